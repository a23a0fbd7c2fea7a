package commands

import (
	"log/slog"
	"path/filepath"

	prom "github.com/prometheus/client_golang/prometheus"
	promcollect "github.com/prometheus/client_golang/prometheus/collectors"

	"git.home.luguber.info/inful/pagewrap/internal/assemble"
	"git.home.luguber.info/inful/pagewrap/internal/config"
	"git.home.luguber.info/inful/pagewrap/internal/content"
	"git.home.luguber.info/inful/pagewrap/internal/foundation/normalization"
	"git.home.luguber.info/inful/pagewrap/internal/logfields"
	"git.home.luguber.info/inful/pagewrap/internal/metrics"
	"git.home.luguber.info/inful/pagewrap/internal/partials"
	"git.home.luguber.info/inful/pagewrap/internal/revision"
	"git.home.luguber.info/inful/pagewrap/internal/scope"
	"git.home.luguber.info/inful/pagewrap/internal/substitute"
	"git.home.luguber.info/inful/pagewrap/internal/version"
)

// Project bundles the collaborators built from one configuration.
type Project struct {
	Config     *config.Config
	Normalizer *normalization.PathNormalizer
	Tree       *content.Tree
	Resolver   *partials.Resolver
	Assembler  *assemble.Assembler
	Decider    *scope.Decider
	// Registry is nil unless metrics were requested.
	Registry *prom.Registry
}

// NewProject wires the assembly pipeline for cfg. withMetrics registers a
// Prometheus recorder when metrics are enabled in the configuration.
func NewProject(cfg *config.Config, logger *slog.Logger, withMetrics bool) *Project {
	if logger == nil {
		logger = slog.Default()
	}
	w := cfg.Wrap
	norm := normalization.NewPathNormalizer(w.CaseInsensitive != nil && *w.CaseInsensitive)
	tree := content.NewTree(w.ContentRoot, w.Marker, w.Extensions, norm, w.Dest)

	sub := substitute.NewTemplateSubstituter(w.Delims.Left, w.Delims.Right)
	res := partials.NewResolver(partials.Options{
		PartialsRoot: w.PartialsRoot,
		LocalFirst:   w.LocalFirstEnabled(),
		Marker:       w.Marker,
		MaxDepth:     w.IncludeDepth,
	}, sub, partials.WithLogger(logger))

	p := &Project{Config: cfg, Normalizer: norm, Tree: tree, Resolver: res}

	var recorder metrics.Recorder = metrics.NoopRecorder{}
	if withMetrics && cfg.Metrics.Enabled {
		p.Registry = prom.NewRegistry()
		p.Registry.MustRegister(promcollect.NewGoCollector(), promcollect.NewProcessCollector(promcollect.ProcessCollectorOpts{}))
		recorder = metrics.NewPrometheusRecorder(p.Registry)
	}

	p.Assembler = assemble.New(assemble.Options{
		Header:    w.Header,
		Footer:    w.Footer,
		Dest:      w.Dest,
		Separator: w.SeparatorValue(),
		Markers:   w.Markers,
		FailFast:  w.FailFastEnabled(),
		Site:      assemble.SiteData(w.Variables, builtinSiteData(cfg, logger)),
	}, tree, res, sub, assemble.WithLogger(logger), assemble.WithRecorder(recorder))

	p.Decider = scope.NewDecider(scope.Inputs{
		Header:       w.Header,
		Footer:       w.Footer,
		PartialsRoot: w.PartialsRoot,
		Marker:       w.Marker,
		Tree:         tree,
		Normalizer:   norm,
	})
	return p
}

// DecideChanged maps a user-supplied changed path onto a scope. An empty
// path requests a full rebuild.
func (p *Project) DecideChanged(changed string) scope.Scope {
	if changed == "" {
		return scope.All(scope.ReasonRequested)
	}
	if abs, err := filepath.Abs(changed); err == nil {
		changed = abs
	}
	return p.Decider.Decide(changed)
}

// builtinSiteData is merged under .Site next to the configured variables.
func builtinSiteData(cfg *config.Config, logger *slog.Logger) map[string]any {
	dir := cfg.BaseDir()
	if dir == "" {
		dir = filepath.Dir(cfg.Wrap.ContentRoot)
	}
	rev, err := revision.Detect(dir)
	if err != nil {
		logger.Warn("Failed to read git revision", logfields.Path(dir), logfields.Error(err))
	}
	return map[string]any{
		"Revision": rev.Map(),
		"Version":  version.Resolved(),
	}
}
