package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lumenplay/gametrics/internal/queue"
	"github.com/lumenplay/gametrics/internal/report"
)

// Result describes the outcome of one flush.
type Result struct {
	// ReportID is the identity assigned to this flush.
	ReportID string

	// Channel names the channel that accepted the payload.
	Channel string

	// Queued is true when the durable fallback queue accepted it, meaning
	// delivery is deferred, not completed.
	Queued bool

	// FlushedAt is the flush wall-clock time in unix milliseconds.
	FlushedAt int64
}

// Router tries delivery channels in fixed priority order.
type Router struct {
	channels []Channel
	idgen    ReportIDGenerator
	clock    func() time.Time
	logger   *slog.Logger
}

// Config wires the host capabilities into the router. Nil lookups mean the
// corresponding channel is never eligible; Queue must be non-nil so the
// terminal fallback always exists.
type Config struct {
	// Webview detects the embedded-webview message-posting capability.
	Webview func() PostMessenger

	// Parent detects the distinct parent execution context.
	Parent func() ParentMessenger

	// ParentTargetOrigin restricts the parent-frame target origin ("*" if empty).
	ParentTargetOrigin string

	// Host detects the host bridge object.
	Host func() AnalyticsBridge

	// Queue is the durable fallback queue.
	Queue *queue.Queue
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithIDGenerator overrides the report id generator. Used by tests.
func WithIDGenerator(g ReportIDGenerator) RouterOption {
	return func(r *Router) { r.idgen = g }
}

// WithClock overrides the wall clock. Used by tests.
func WithClock(clock func() time.Time) RouterOption {
	return func(r *Router) { r.clock = clock }
}

// WithLogger sets the logger for channel demotion warnings.
func WithLogger(logger *slog.Logger) RouterOption {
	return func(r *Router) { r.logger = logger }
}

// NewRouter builds a router with the fixed channel chain
// webview_bridge -> parent_frame -> host_bridge -> durable_queue.
func NewRouter(cfg Config, opts ...RouterOption) *Router {
	r := &Router{
		channels: []Channel{
			&WebviewBridge{Lookup: cfg.Webview},
			&ParentFrame{Lookup: cfg.Parent, TargetOrigin: cfg.ParentTargetOrigin},
			&HostBridge{Lookup: cfg.Host},
			&DurableQueue{Queue: cfg.Queue},
		},
		idgen: UUIDv7Generator{},
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// NewRouterWithChannels builds a router over an explicit channel chain.
// Used by the harness and by tests that script channel behavior; the chain
// order is taken as given.
func NewRouterWithChannels(channels []Channel, opts ...RouterOption) *Router {
	r := &Router{
		channels: channels,
		idgen:    UUIDv7Generator{},
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Flush routes one report snapshot through the channel chain.
//
// The first channel that is eligible and attempts without error wins; no
// later channel is tried. Ineligible channels are skipped silently, failed
// attempts are logged as warnings and demote to the next channel. When every
// channel fails - including the terminal durable queue - Flush returns an
// error and the report is lost from the router's point of view (the caller
// still holds its collector state and may flush again).
func (r *Router) Flush(ctx context.Context, rep *report.Report) (Result, error) {
	d := &Delivery{
		ReportID:  r.idgen.Generate(),
		FlushedAt: r.clock().UnixMilli(),
		Report:    rep,
	}

	var lastErr error
	for _, ch := range r.channels {
		if !ch.Eligible() {
			r.logger.Debug("channel not eligible", "channel", ch.Name(), "report_id", d.ReportID)
			continue
		}

		if err := r.attempt(ctx, ch, d); err != nil {
			lastErr = err
			r.logger.Warn("delivery attempt failed",
				"channel", ch.Name(), "report_id", d.ReportID, "error", err)
			continue
		}

		r.logger.Info("report delivered",
			"channel", ch.Name(), "report_id", d.ReportID)
		return Result{
			ReportID:  d.ReportID,
			Channel:   ch.Name(),
			Queued:    ch.Name() == ChannelDurableQueue,
			FlushedAt: d.FlushedAt,
		}, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no delivery channel eligible")
	}
	return Result{ReportID: d.ReportID, FlushedAt: d.FlushedAt},
		fmt.Errorf("report %s not delivered: %w", d.ReportID, lastErr)
}

// attempt runs one channel attempt, converting a panic from foreign host
// capability code into an ordinary channel error.
func (r *Router) attempt(ctx context.Context, ch Channel, d *Delivery) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("channel %s panicked: %v", ch.Name(), rec)
		}
	}()
	return ch.Attempt(ctx, d)
}
