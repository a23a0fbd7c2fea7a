package config

import (
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/pagewrap/internal/foundation/normalization"
)

const (
	DefaultPartialMarker = "_"
	DefaultIncludeDepth  = 32
	DefaultPort          = 9000
	DefaultDebounce      = 300 * time.Millisecond
	DefaultNotifySubject = "pagewrap.pass"
)

// DefaultApplier applies defaults for a specific configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config) error
	Domain() string
}

// ProjectDefaultApplier handles project folder defaults.
type ProjectDefaultApplier struct{}

func (ProjectDefaultApplier) Domain() string { return "project" }

func (ProjectDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Project.Src == "" {
		cfg.Project.Src = "src"
	}
	if cfg.Project.App == "" {
		cfg.Project.App = "dist"
	}
	return nil
}

// WrapDefaultApplier derives page assembly paths from the project folders.
type WrapDefaultApplier struct{}

func (WrapDefaultApplier) Domain() string { return "wrap" }

func (WrapDefaultApplier) ApplyDefaults(cfg *Config) error {
	w := &cfg.Wrap
	pages := filepath.Join(cfg.Project.Src, "pages")
	if w.Header == "" {
		w.Header = filepath.Join(pages, "header.tmpl")
	}
	if w.Footer == "" {
		w.Footer = filepath.Join(pages, "footer.tmpl")
	}
	if w.ContentRoot == "" {
		w.ContentRoot = filepath.Join(pages, "content")
	}
	if w.PartialsRoot == "" {
		w.PartialsRoot = filepath.Join(pages, "partials")
	}
	if w.Dest == "" {
		w.Dest = cfg.Project.App
	}
	if w.Marker == "" {
		w.Marker = DefaultPartialMarker
	}
	if len(w.Extensions) == 0 {
		w.Extensions = []string{".html"}
	}
	for i, ext := range w.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		w.Extensions[i] = ext
	}
	if w.IncludeDepth == 0 {
		w.IncludeDepth = DefaultIncludeDepth
	}
	if w.Delims.Left == "" {
		w.Delims.Left = "{{"
	}
	if w.Delims.Right == "" {
		w.Delims.Right = "}}"
	}
	if w.CaseInsensitive == nil {
		ci := normalization.DefaultCaseInsensitive()
		w.CaseInsensitive = &ci
	}
	return nil
}

// ServeDefaultApplier handles dev server and watcher defaults.
type ServeDefaultApplier struct{}

func (ServeDefaultApplier) Domain() string { return "serve" }

func (ServeDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Serve.Port == 0 {
		cfg.Serve.Port = DefaultPort
	}
	if cfg.Watch.Debounce <= 0 {
		cfg.Watch.Debounce = DefaultDebounce
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.Notify.NATSURL != "" && cfg.Notify.Subject == "" {
		cfg.Notify.Subject = DefaultNotifySubject
	}
	return nil
}

// LoggingDefaultApplier normalizes logging values and rejects unknown ones.
type LoggingDefaultApplier struct{}

func (LoggingDefaultApplier) Domain() string { return "logging" }

func (LoggingDefaultApplier) ApplyDefaults(cfg *Config) error {
	level, err := logLevelNormalizer.Parse("logging.level", string(cfg.Logging.Level))
	if err != nil {
		return err
	}
	format, err := logFormatNormalizer.Parse("logging.format", string(cfg.Logging.Format))
	if err != nil {
		return err
	}
	cfg.Logging.Level, cfg.Logging.Format = level, format
	return nil
}

var defaultAppliers = []DefaultApplier{
	ProjectDefaultApplier{},
	WrapDefaultApplier{},
	ServeDefaultApplier{},
	LoggingDefaultApplier{},
}

func applyDefaults(cfg *Config) error {
	if cfg.Version == "" {
		cfg.Version = "1"
	}
	for _, a := range defaultAppliers {
		if err := a.ApplyDefaults(cfg); err != nil {
			return err
		}
	}
	return nil
}

// Default returns a fully defaulted configuration rooted at baseDir.
func Default(baseDir string) *Config {
	cfg := &Config{baseDir: baseDir}
	_ = applyDefaults(cfg)
	cfg.resolvePaths()
	return cfg
}
