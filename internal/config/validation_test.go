package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/pagewrap/internal/foundation/errors"
)

func TestValidateConfig(t *testing.T) {
	base := t.TempDir()

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{name: "empty header", mutate: func(c *Config) { c.Wrap.Header = " " }, wantErr: true},
		{name: "dest inside content", mutate: func(c *Config) { c.Wrap.Dest = filepath.Join(c.Wrap.ContentRoot, "out") }, wantErr: true},
		{name: "dest equals content", mutate: func(c *Config) { c.Wrap.Dest = c.Wrap.ContentRoot }, wantErr: true},
		{name: "dest sibling prefix", mutate: func(c *Config) { c.Wrap.Dest = c.Wrap.ContentRoot + "-out" }},
		{name: "negative depth", mutate: func(c *Config) { c.Wrap.IncludeDepth = -1 }, wantErr: true},
		{name: "marker with slash", mutate: func(c *Config) { c.Wrap.Marker = "a/" }, wantErr: true},
		{name: "same delimiters", mutate: func(c *Config) { c.Wrap.Delims = Delims{Left: "%", Right: "%"} }, wantErr: true},
		{name: "bad port", mutate: func(c *Config) { c.Serve.Port = 70000 }, wantErr: true},
		{name: "bad metrics path", mutate: func(c *Config) { c.Metrics.Path = "metrics" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default(base)
			tt.mutate(cfg)
			err := ValidateConfig(cfg)
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))
		})
	}
}

func TestNormalizeLogLevel(t *testing.T) {
	require.Equal(t, LogLevelWarn, NormalizeLogLevel(" Warning "))
	require.Equal(t, LogLevelInfo, NormalizeLogLevel("verbose"))
	require.Equal(t, LogFormatText, NormalizeLogFormat(""))
}

func TestParse_RejectsUnknownLogLevel(t *testing.T) {
	_, err := Parse([]byte("logging:\n  level: loud\n"), t.TempDir())
	require.Error(t, err)
	require.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))
}
