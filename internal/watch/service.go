// Package watch turns filesystem changes into assembly passes. Events are
// debounced, classified by the scope decider, coalesced, and handed to a
// single worker, so no two passes ever overlap.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/pagewrap/internal/assemble"
	"git.home.luguber.info/inful/pagewrap/internal/logfields"
	"git.home.luguber.info/inful/pagewrap/internal/scope"
)

// DefaultDebounce is the quiet period before queued changes are processed.
const DefaultDebounce = 300 * time.Millisecond

// PassHandler observes every finished pass.
type PassHandler func(ctx context.Context, r *assemble.Report)

// Options configures a Service.
type Options struct {
	// Recursive directories are watched with all their subdirectories.
	Recursive []string
	// Files are watched through their parent directory; other files in
	// those directories are ignored unless the decider considers them relevant.
	Files               []string
	Debounce            time.Duration
	FullRebuildInterval time.Duration
	// SkipInitial disables the full pass normally run at startup.
	SkipInitial bool
}

// Service runs the watch loop.
type Service struct {
	opts      Options
	assembler *assemble.Assembler
	decider   *scope.Decider
	queue     *scope.Queue
	logger    *slog.Logger

	mu       sync.Mutex
	handlers []PassHandler
	last     *assemble.Report
}

// New creates a watch service.
func New(opts Options, asm *assemble.Assembler, decider *scope.Decider, logger *slog.Logger) *Service {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		opts:      opts,
		assembler: asm,
		decider:   decider,
		queue:     scope.NewQueue(decider),
		logger:    logger,
	}
}

// OnPass registers a handler called after each pass, in registration order.
func (s *Service) OnPass(h PassHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, h)
}

// Last returns the report of the most recent pass, or nil.
func (s *Service) Last() *assemble.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Trigger queues a change to path; an empty path requests a full rebuild.
func (s *Service) Trigger(path string) scope.Scope {
	return s.queue.Add(path)
}

// Run watches until ctx is canceled. Pass failures are logged and the
// service keeps waiting for the next change.
func (s *Service) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	for _, dir := range s.opts.Recursive {
		addDirsRecursive(watcher, dir, s.logger)
	}
	for _, dir := range s.fileDirs() {
		if err := watcher.Add(dir); err != nil {
			s.logger.Warn("watch add failed", logfields.Path(dir), logfields.Error(err))
		}
	}

	debouncer := NewDebouncer(s.opts.Debounce, func(paths []string) {
		for _, p := range paths {
			sc := s.queue.Add(p)
			s.logger.Debug("Change queued", logfields.Path(p), logfields.Scope(sc.Kind.String()), logfields.Reason(string(sc.Reason)))
		}
	})
	defer debouncer.Stop()

	if s.opts.FullRebuildInterval > 0 {
		sched, err := NewScheduler(s.logger)
		if err != nil {
			return err
		}
		if _, err := sched.SchedulePeriodicRebuild(s.opts.FullRebuildInterval, func() {
			s.queue.Push(scope.All(scope.ReasonScheduled))
		}); err != nil {
			return err
		}
		sched.Start()
		defer func() {
			if err := sched.Stop(); err != nil {
				s.logger.Warn("scheduler shutdown", logfields.Error(err))
			}
		}()
	}

	if !s.opts.SkipInitial {
		s.queue.Push(scope.All(scope.ReasonRequested))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.worker(gctx) })
	g.Go(func() error { return s.events(gctx, watcher, debouncer) })
	return g.Wait()
}

func (s *Service) fileDirs() []string {
	var dirs []string
	for _, f := range s.opts.Files {
		if f == "" {
			continue
		}
		d := filepath.Dir(f)
		if !slices.Contains(dirs, d) {
			dirs = append(dirs, d)
		}
	}
	return dirs
}

func (s *Service) events(ctx context.Context, w *fsnotify.Watcher, d *Debouncer) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			s.handleEvent(w, ev, d)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("watcher error", logfields.Error(err))
		}
	}
}

func (s *Service) handleEvent(w *fsnotify.Watcher, ev fsnotify.Event, d *Debouncer) {
	if shouldIgnoreEvent(ev.Name) || ev.Op == fsnotify.Chmod {
		return
	}
	if ev.Op.Has(fsnotify.Create) {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			if s.underRecursiveRoot(ev.Name) {
				addDirsRecursive(w, ev.Name, s.logger)
				// Files may have landed before the watch was added.
				d.Add("")
			}
			return
		}
	}
	if !s.decider.Relevant(ev.Name) {
		s.logger.Debug("Ignoring change", logfields.Path(ev.Name), logfields.Op(ev.Op.String()))
		return
	}
	s.logger.Debug("File change detected", logfields.Path(ev.Name), logfields.Op(ev.Op.String()))
	d.Add(ev.Name)
}

func (s *Service) underRecursiveRoot(path string) bool {
	for _, root := range s.opts.Recursive {
		rel, err := filepath.Rel(root, path)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func (s *Service) worker(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.queue.Ready():
			for _, sc := range s.queue.Drain() {
				if ctx.Err() != nil {
					return nil
				}
				s.runPass(ctx, sc)
			}
		}
	}
}

func (s *Service) runPass(ctx context.Context, sc scope.Scope) {
	r, err := s.assembler.Run(ctx, sc)
	if err != nil && errors.Is(err, context.Canceled) {
		return
	}
	s.mu.Lock()
	s.last = r
	handlers := slices.Clone(s.handlers)
	s.mu.Unlock()
	for _, h := range handlers {
		h(ctx, r)
	}
}

func addDirsRecursive(w *fsnotify.Watcher, root string, logger *slog.Logger) {
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != root && shouldIgnoreEvent(path) {
				return filepath.SkipDir
			}
			if err := w.Add(path); err != nil {
				logger.Warn("watch add failed", logfields.Path(path), logfields.Error(err))
			}
		}
		return nil
	})
}
