package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/pagewrap/internal/foundation/errors"
)

// DefaultFileName is the configuration file looked up when none is given.
const DefaultFileName = "pagewrap.yaml"

// DefaultSeparator is inserted between header, content and footer.
const DefaultSeparator = "\n\n"

// Load reads, expands, defaults and validates the configuration at configPath.
// ${VAR} references are expanded from the environment after .env files next
// to the config file have been loaded.
func Load(configPath string) (*Config, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "resolve config path").
			WithContext("path", configPath).Build()
	}
	baseDir := filepath.Dir(absPath)

	if err := loadEnvFiles(baseDir); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "load .env file").
			WithContext("path", baseDir).Build()
	}

	data, err := os.ReadFile(absPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ferrors.ConfigError("configuration file not found").
			WithContext("path", configPath).Build()
	}
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "read config file").
			WithContext("path", configPath).Build()
	}
	return Parse(data, baseDir)
}

// Parse decodes raw YAML with relative paths anchored at baseDir.
func Parse(data []byte, baseDir string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "unmarshal config").Build()
	}
	cfg.baseDir = baseDir

	if err := applyDefaults(&cfg); err != nil {
		return nil, err
	}
	cfg.resolvePaths()
	if err := ValidateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// resolvePaths anchors relative filesystem paths at the config directory.
func (c *Config) resolvePaths() {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) || c.baseDir == "" {
			return p
		}
		return filepath.Join(c.baseDir, p)
	}
	c.Wrap.Header = abs(c.Wrap.Header)
	c.Wrap.Footer = abs(c.Wrap.Footer)
	c.Wrap.ContentRoot = abs(c.Wrap.ContentRoot)
	c.Wrap.PartialsRoot = abs(c.Wrap.PartialsRoot)
	c.Wrap.Dest = abs(c.Wrap.Dest)
	if c.Journal.Path != "" && c.Journal.Path != ":memory:" {
		c.Journal.Path = abs(c.Journal.Path)
	}
}

// Init writes an example configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return ferrors.ConfigError("configuration file already exists (use --force to overwrite)").
			WithContext("path", configPath).Build()
	}

	sep := DefaultSeparator
	example := Config{
		Version: "1",
		Project: ProjectConfig{Src: "src", App: "dist"},
		Wrap: WrapConfig{
			Header:       "src/pages/header.tmpl",
			Footer:       "src/pages/footer.tmpl",
			ContentRoot:  "src/pages/content",
			PartialsRoot: "src/pages/partials",
			Dest:         "dist",
			Separator:    &sep,
			Marker:       DefaultPartialMarker,
			Extensions:   []string{".html"},
			IncludeDepth: DefaultIncludeDepth,
			Delims:       Delims{Left: "{{", Right: "}}"},
			Variables: map[string]any{
				"name":    "my-site",
				"author":  "Your Name",
				"version": "0.1.0",
			},
		},
		Serve: ServeConfig{Port: DefaultPort},
		Watch: WatchConfig{Debounce: DefaultDebounce},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Logging: LoggingConfig{Level: LogLevelInfo, Format: LogFormatText},
	}

	data, err := yaml.Marshal(&example)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryInternal, "marshal example config").Build()
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "write config file").
			WithContext("path", configPath).Build()
	}
	return nil
}
