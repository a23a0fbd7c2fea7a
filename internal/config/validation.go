package config

import (
	"path/filepath"
	"strings"

	ferrors "git.home.luguber.info/inful/pagewrap/internal/foundation/errors"
)

// ValidateConfig validates a defaulted configuration.
func ValidateConfig(cfg *Config) error {
	return newConfigurationValidator(cfg).validate()
}

type configurationValidator struct {
	config *Config
}

func newConfigurationValidator(config *Config) *configurationValidator {
	return &configurationValidator{config: config}
}

func (cv *configurationValidator) validate() error {
	if err := cv.validateWrap(); err != nil {
		return err
	}
	if err := cv.validateServe(); err != nil {
		return err
	}
	return nil
}

func (cv *configurationValidator) validateWrap() error {
	w := cv.config.Wrap
	required := map[string]string{
		"wrap.header":       w.Header,
		"wrap.footer":       w.Footer,
		"wrap.content_root": w.ContentRoot,
		"wrap.dest":         w.Dest,
	}
	for field, value := range required {
		if strings.TrimSpace(value) == "" {
			return ferrors.ValidationError("required field is empty").WithContext("field", field).Build()
		}
	}
	if w.IncludeDepth < 0 {
		return ferrors.ValidationError("include_depth must be positive").
			WithContext("field", "wrap.include_depth").Build()
	}
	if strings.ContainsAny(w.Marker, `/\`) {
		return ferrors.ValidationError("partial_marker must not contain path separators").
			WithContext("field", "wrap.partial_marker").Build()
	}
	if w.Delims.Left == w.Delims.Right {
		return ferrors.ValidationError("template delimiters must differ").
			WithContext("field", "wrap.delims").Build()
	}
	if isWithin(w.ContentRoot, w.Dest) {
		return ferrors.ValidationError("dest must not be inside content_root").
			WithContext("field", "wrap.dest").
			WithContext("path", w.Dest).Build()
	}
	return nil
}

func (cv *configurationValidator) validateServe() error {
	if p := cv.config.Serve.Port; p < 0 || p > 65535 {
		return ferrors.ValidationError("serve.port out of range").WithContext("port", p).Build()
	}
	if cv.config.Watch.FullRebuildInterval < 0 {
		return ferrors.ValidationError("watch.full_rebuild_interval must not be negative").Build()
	}
	if m := cv.config.Metrics.Path; !strings.HasPrefix(m, "/") {
		return ferrors.ValidationError("metrics.path must start with /").WithContext("path", m).Build()
	}
	return nil
}

func isWithin(root, p string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(p))
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
