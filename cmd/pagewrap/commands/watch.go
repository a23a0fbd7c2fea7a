package commands

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/pagewrap/internal/config"
	"git.home.luguber.info/inful/pagewrap/internal/livereload"
	"git.home.luguber.info/inful/pagewrap/internal/server"
	"git.home.luguber.info/inful/pagewrap/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Host    string `help:"Override serve.host"`
	Port    int    `short:"p" help:"Override serve.port"`
	NoServe bool   `name:"no-serve" help:"Rebuild on change without starting the development server"`
}

func (w *WatchCmd) Run(_ *Global, root *CLI) error {
	cfg, logger, err := loadConfig(root)
	if err != nil {
		return err
	}
	if w.Host != "" {
		cfg.Serve.Host = w.Host
	}
	if w.Port != 0 {
		cfg.Serve.Port = w.Port
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return RunWatch(ctx, cfg, !w.NoServe, logger)
}

// RunWatch runs the initial full pass, then rebuilds on every relevant change
// until ctx is canceled. With serve set the destination tree is served with
// live reload next to the watcher.
func RunWatch(ctx context.Context, cfg *config.Config, serve bool, logger *slog.Logger) error {
	sk, err := openSinks(cfg, logger)
	if err != nil {
		return err
	}
	defer sk.Close()

	p := NewProject(cfg, logger, serve)
	svc := watch.New(WatchOptions(cfg), p.Assembler, p.Decider, logger)
	svc.OnPass(sk.Record)

	g, gctx := errgroup.WithContext(ctx)
	if serve {
		var hub *livereload.Hub
		if cfg.Serve.LiveReloadEnabled() {
			hub = livereload.NewHub(logger)
		}
		opts := server.Options{Host: cfg.Serve.Host, Port: cfg.Serve.Port, Dest: cfg.Wrap.Dest}
		if p.Registry != nil {
			opts.MetricsPath = cfg.Metrics.Path
			opts.Registry = p.Registry
		}
		srv := server.New(opts, hub, svc.Last, logger)
		svc.OnPass(srv.Notify)
		g.Go(func() error { return srv.ListenAndServe(gctx) })
	}
	g.Go(func() error { return svc.Run(gctx) })

	logger.Info("Watching for changes", slog.String("content_root", cfg.Wrap.ContentRoot), slog.Bool("serve", serve))
	return g.Wait()
}

// WatchOptions derives the watcher inputs from the configuration: the content
// and partials roots recursively, the header and footer individually.
func WatchOptions(cfg *config.Config) watch.Options {
	return watch.Options{
		Recursive:           []string{cfg.Wrap.ContentRoot, cfg.Wrap.PartialsRoot},
		Files:               []string{cfg.Wrap.Header, cfg.Wrap.Footer},
		Debounce:            cfg.Watch.Debounce,
		FullRebuildInterval: cfg.Watch.FullRebuildInterval,
	}
}
