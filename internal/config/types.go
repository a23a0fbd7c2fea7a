package config

import "time"

// Config is the pagewrap configuration file.
type Config struct {
	Version string        `yaml:"version"`
	Project ProjectConfig `yaml:"project"`
	Wrap    WrapConfig    `yaml:"wrap"`
	Serve   ServeConfig   `yaml:"serve"`
	Watch   WatchConfig   `yaml:"watch"`
	Journal JournalConfig `yaml:"journal,omitempty"`
	Notify  NotifyConfig  `yaml:"notify,omitempty"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`

	// baseDir is the directory of the loaded file; relative paths resolve against it.
	baseDir string
}

// ProjectConfig mirrors the source/output folder pair of the site.
type ProjectConfig struct {
	Src string `yaml:"src"`
	App string `yaml:"app"`
}

// WrapConfig configures page assembly.
type WrapConfig struct {
	Header       string   `yaml:"header"`
	Footer       string   `yaml:"footer"`
	ContentRoot  string   `yaml:"content_root"`
	PartialsRoot string   `yaml:"partials_root"`
	Dest         string   `yaml:"dest"`
	Separator    *string  `yaml:"separator,omitempty"`
	LocalFirst   *bool    `yaml:"local_first,omitempty"`
	Marker       string   `yaml:"partial_marker"`
	Extensions   []string `yaml:"extensions"`
	IncludeDepth int      `yaml:"include_depth"`
	// Markers wraps content in <!-- start NAME--> / <!-- end NAME--> comments.
	Markers         bool           `yaml:"markers"`
	FailFast        *bool          `yaml:"fail_fast,omitempty"`
	CaseInsensitive *bool          `yaml:"case_insensitive,omitempty"`
	Delims          Delims         `yaml:"delims"`
	Variables       map[string]any `yaml:"variables,omitempty"`
}

// Delims are the template action delimiters.
type Delims struct {
	Left  string `yaml:"left"`
	Right string `yaml:"right"`
}

// ServeConfig configures the development server.
type ServeConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	LiveReload *bool  `yaml:"livereload,omitempty"`
}

// WatchConfig configures change detection.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
	// FullRebuildInterval schedules periodic full passes; zero disables.
	FullRebuildInterval time.Duration `yaml:"full_rebuild_interval"`
}

// JournalConfig configures the SQLite build journal; an empty path disables it.
type JournalConfig struct {
	Path string `yaml:"path"`
}

// NotifyConfig configures pass-completed event publishing.
type NotifyConfig struct {
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LoggingConfig selects log level and format.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// SeparatorValue returns the configured separator.
func (w WrapConfig) SeparatorValue() string {
	if w.Separator == nil {
		return DefaultSeparator
	}
	return *w.Separator
}

// LocalFirstEnabled reports whether local partials win over shared ones.
func (w WrapConfig) LocalFirstEnabled() bool {
	return w.LocalFirst == nil || *w.LocalFirst
}

// FailFastEnabled reports whether a write failure aborts the remaining batch.
func (w WrapConfig) FailFastEnabled() bool {
	return w.FailFast == nil || *w.FailFast
}

// LiveReloadEnabled reports whether the dev server injects the reload client.
func (s ServeConfig) LiveReloadEnabled() bool {
	return s.LiveReload == nil || *s.LiveReload
}

// BaseDir returns the directory relative paths were resolved against.
func (c *Config) BaseDir() string { return c.baseDir }
