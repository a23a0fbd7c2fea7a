// Package metrics provides observability hooks for assembly passes.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so nothing needs a nil check:
//
//	rec := metrics.Recorder(metrics.NoopRecorder{})
//	if cfg.Metrics.Enabled {
//	    rec = metrics.NewPrometheusRecorder(registry)
//	}
//
// The development server exposes the registry through HTTPHandler.
package metrics
