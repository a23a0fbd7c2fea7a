// Package notify publishes assembly pass results to NATS so that other
// services (deployers, cache purgers) can react to a rebuilt site.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/pagewrap/internal/assemble"
	ferrors "git.home.luguber.info/inful/pagewrap/internal/foundation/errors"
	"git.home.luguber.info/inful/pagewrap/internal/logfields"
)

// flushTimeout bounds the wait for the server when the caller set no deadline.
const flushTimeout = 5 * time.Second

// PassEvent is the JSON payload published after each pass.
type PassEvent struct {
	PassID          string    `json:"pass_id"`
	Scope           string    `json:"scope"`
	Reason          string    `json:"reason"`
	Status          string    `json:"status"`
	Started         time.Time `json:"started"`
	Finished        time.Time `json:"finished"`
	Files           []string  `json:"files"`
	Removed         []string  `json:"removed,omitempty"`
	MissingIncludes int       `json:"missing_includes"`
	Error           string    `json:"error,omitempty"`
	Hash            string    `json:"hash"`
}

// NewPassEvent builds the event for a report.
func NewPassEvent(r *assemble.Report) PassEvent {
	ev := PassEvent{
		PassID:          r.PassID,
		Scope:           r.Scope.String(),
		Reason:          string(r.Scope.Reason),
		Status:          r.Status(),
		Started:         r.Started,
		Finished:        r.Finished,
		Files:           make([]string, 0, len(r.Outputs)),
		Removed:         r.Removed,
		MissingIncludes: r.MissingIncludes,
		Hash:            r.Hash(),
	}
	for _, o := range r.Outputs {
		ev.Files = append(ev.Files, o.Dest)
	}
	if r.Err != nil {
		ev.Error = r.Err.Error()
	}
	return ev
}

// Publisher announces finished passes.
type Publisher interface {
	Publish(ctx context.Context, r *assemble.Report) error
	Close() error
}

// Noop discards events.
type Noop struct{}

func (Noop) Publish(context.Context, *assemble.Report) error { return nil }
func (Noop) Close() error                                    { return nil }

type conn interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Drain() error
}

// NATSPublisher publishes PassEvents on a subject.
type NATSPublisher struct {
	conn    conn
	subject string
	logger  *slog.Logger
}

// Connect dials url and returns a publisher for subject.
func Connect(url, subject string, logger *slog.Logger) (*NATSPublisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	nc, err := nats.Connect(url,
		nats.Name("pagewrap"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", logfields.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", logfields.Addr(c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryNetwork, "connect to NATS").
			WithContext("url", url).Retryable().Build()
	}
	logger.Info("NATS publisher connected", logfields.Addr(nc.ConnectedUrl()), slog.String("subject", subject))
	return newPublisher(nc, subject, logger), nil
}

func newPublisher(c conn, subject string, logger *slog.Logger) *NATSPublisher {
	return &NATSPublisher{conn: c, subject: subject, logger: logger}
}

// Publish sends the pass event and waits for the server to acknowledge the flush.
func (p *NATSPublisher) Publish(ctx context.Context, r *assemble.Report) error {
	data, err := json.Marshal(NewPassEvent(r))
	if err != nil {
		return fmt.Errorf("marshal pass event: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryNetwork, "publish pass event").
			WithContext("subject", p.subject).Retryable().Build()
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, flushTimeout)
		defer cancel()
	}
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryNetwork, "flush pass event").
			WithContext("subject", p.subject).Retryable().Build()
	}
	p.logger.Debug("Published pass event", logfields.PassID(r.PassID), slog.String("subject", p.subject))
	return nil
}

// Close drains the connection.
func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}
