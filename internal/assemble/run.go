package assemble

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/pagewrap/internal/content"
	"git.home.luguber.info/inful/pagewrap/internal/logfields"
	"git.home.luguber.info/inful/pagewrap/internal/metrics"
	"git.home.luguber.info/inful/pagewrap/internal/scope"
)

// Plan lists the files a scope covers without reading or writing them.
// A single-scope path is listed even when the file no longer exists.
func (a *Assembler) Plan(s scope.Scope) ([]content.File, error) {
	if s.IsAll() {
		return a.tree.Pages()
	}
	f, err := a.tree.File(s.Path)
	if err != nil {
		return nil, err
	}
	if f.LocalPartial {
		return nil, nil
	}
	return []content.File{f}, nil
}

// Run executes one assembly pass over s. The returned error is the pass's
// fatal error, if any; per-file failures that did not abort the pass are
// listed in the report.
func (a *Assembler) Run(ctx context.Context, s scope.Scope) (*Report, error) {
	r := &Report{PassID: uuid.NewString(), Scope: s, Started: time.Now()}
	log := a.logger.With(logfields.PassID(r.PassID), logfields.Scope(s.Kind.String()))

	err := a.run(ctx, s, r, log)
	r.Err = err
	r.Finished = time.Now()

	outcome := metrics.OutcomeSuccess
	if r.Status() == StatusFailed {
		outcome = metrics.OutcomeFailed
	}
	a.recorder.ObservePassDuration(s.Kind.String(), r.Duration())
	a.recorder.IncPassOutcome(outcome)
	a.recorder.SetLastPass(r.Finished)

	attrs := []any{
		logfields.Reason(string(s.Reason)),
		logfields.Files(len(r.Outputs)),
		slog.Int("missing_includes", r.MissingIncludes),
		logfields.Duration(r.Duration()),
	}
	switch {
	case err != nil:
		log.Error("Assembly pass failed", append(attrs, logfields.Error(err))...)
	case len(r.Failures) > 0:
		log.Warn("Assembly pass finished with failures", append(attrs, slog.Int("failures", len(r.Failures)))...)
	default:
		log.Info("Assembly pass finished", attrs...)
	}
	return r, err
}

func (a *Assembler) run(ctx context.Context, s scope.Scope, r *Report, log *slog.Logger) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	templates, err := a.LoadTemplates()
	if err != nil {
		return err
	}

	files, err := a.Plan(s)
	if err != nil {
		return err
	}

	for _, f := range files {
		if !s.IsAll() && !content.Exists(f.Path) {
			removed, rmErr := a.Remove(f)
			if rmErr != nil {
				if failErr := a.fail(r, f, rmErr, log); failErr != nil {
					return failErr
				}
				continue
			}
			if removed {
				r.Removed = append(r.Removed, a.DestPath(f))
				a.recorder.IncFileResult(metrics.ResultRemoved)
			}
			continue
		}

		out, err := a.Assemble(f, templates)
		if err != nil {
			if failErr := a.fail(r, f, err, log); failErr != nil {
				return failErr
			}
			continue
		}
		if out == nil {
			r.Skipped = append(r.Skipped, f.Path)
			continue
		}
		r.MissingIncludes += out.MissingIncludes

		if err := a.Write(out); err != nil {
			if failErr := a.fail(r, f, err, log); failErr != nil {
				return failErr
			}
			continue
		}
		r.Outputs = append(r.Outputs, OutputRecord{
			Source:      out.Source,
			Dest:        out.Dest,
			Fingerprint: Fingerprint(out.Content),
		})
		a.recorder.IncFileResult(metrics.ResultWritten)
	}
	return nil
}

// fail records a per-file failure and returns non-nil when the pass must stop.
func (a *Assembler) fail(r *Report, f content.File, err error, log *slog.Logger) error {
	r.Failures = append(r.Failures, FileFailure{Source: f.Path, Err: err})
	a.recorder.IncFileResult(metrics.ResultFailed)
	log.Error("File failed", logfields.Source(f.Path), logfields.Error(err))

	if a.opts.FailFast {
		return err
	}
	return nil
}
