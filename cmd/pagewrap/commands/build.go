package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/pagewrap/internal/assemble"
	"git.home.luguber.info/inful/pagewrap/internal/config"
	ferrors "git.home.luguber.info/inful/pagewrap/internal/foundation/errors"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Changed string `name:"changed" help:"Rebuild only what a change to this path affects" type:"path"`
}

func (b *BuildCmd) Run(_ *Global, root *CLI) error {
	cfg, logger, err := loadConfig(root)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, err = RunBuild(ctx, cfg, b.Changed, logger, os.Stdout)
	return err
}

// RunBuild runs one assembly pass and prints a summary to out. The pass is
// recorded in the journal and published when those are configured.
func RunBuild(ctx context.Context, cfg *config.Config, changed string, logger *slog.Logger, out io.Writer) (*assemble.Report, error) {
	sk, err := openSinks(cfg, logger)
	if err != nil {
		return nil, err
	}
	defer sk.Close()

	p := NewProject(cfg, logger, false)
	s := p.DecideChanged(changed)
	_, _ = fmt.Fprintf(out, "Assembling %s (%s)\n", s, s.Reason)

	r, err := p.Assembler.Run(ctx, s)
	sk.Record(ctx, r)
	if err != nil {
		return r, err
	}

	_, _ = fmt.Fprintf(out, "Wrote %d file(s), removed %d, %d missing include(s) in %s\n",
		len(r.Outputs), len(r.Removed), r.MissingIncludes, r.Duration().Round(time.Millisecond))
	if len(r.Failures) > 0 {
		for _, f := range r.Failures {
			_, _ = fmt.Fprintf(out, "  failed: %s: %v\n", f.Source, f.Err)
		}
		return r, ferrors.BuildError(fmt.Sprintf("%d file(s) failed to assemble", len(r.Failures))).
			WithContext("pass_id", r.PassID).Build()
	}
	return r, nil
}
