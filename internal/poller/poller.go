package poller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/libellus/transit/internal/logging"
	"github.com/libellus/transit/internal/realtime"
	"github.com/libellus/transit/internal/schedule"
	"github.com/libellus/transit/internal/snapshot"
)

// ErrNoSchedule is returned when no schedule index has been loaded yet
var ErrNoSchedule = errors.New("schedule not loaded")

// FeedSource fetches one decoded real-time feed
type FeedSource interface {
	FetchFeed(ctx context.Context) (*realtime.Feed, error)
}

// StatsStore receives recorded snapshots for aggregation
type StatsStore interface {
	RecordSnapshot(ctx context.Context, snap *snapshot.Snapshot) error
	UpdateDelayStats(ctx context.Context, capturedAt time.Time, records []realtime.DelayRecord) error
	Cleanup(ctx context.Context, now time.Time, retention time.Duration) (int, error)
}

// Options configures a Poller
type Options struct {
	Feed         FeedSource
	Provider     *schedule.Provider
	Reconciler   *realtime.Reconciler
	Store        *snapshot.Store
	Stats        StatsStore // optional
	Interval     time.Duration
	WarmupDelay  time.Duration
	FetchTimeout time.Duration
	Retention    time.Duration // zero disables pruning
	Logger       *slog.Logger
}

// Result is the outcome of one poll
type Result struct {
	CapturedAt  time.Time
	Records     []realtime.DelayRecord
	Diagnostics []realtime.Diagnostic
	Snapshot    *snapshot.Snapshot // nil when nothing was recorded
}

// Poller periodically fetches the feed, reconciles it and records a snapshot
type Poller struct {
	opts   Options
	now    func() time.Time
	logger *slog.Logger
	mu     sync.Mutex
}

// New creates a Poller
func New(opts Options) *Poller {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Reconciler == nil {
		opts.Reconciler = realtime.NewReconciler(realtime.WithLogger(logger))
	}
	return &Poller{
		opts:   opts,
		now:    time.Now,
		logger: logger.With(slog.String("component", "poller")),
	}
}

// Reconcile fetches the feed and reconciles it against the current index
// without recording anything
func (p *Poller) Reconcile(ctx context.Context) (*Result, error) {
	idx := p.opts.Provider.Index()
	if idx == nil {
		return nil, ErrNoSchedule
	}

	fetchCtx := ctx
	if p.opts.FetchTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, p.opts.FetchTimeout)
		defer cancel()
	}

	capturedAt := p.now()
	feed, err := p.opts.Feed.FetchFeed(fetchCtx)
	if err != nil {
		return nil, err
	}

	res := p.opts.Reconciler.Reconcile(feed, idx)
	return &Result{
		CapturedAt:  capturedAt,
		Records:     res.Records,
		Diagnostics: res.Diagnostics,
	}, nil
}

// Poll runs one fetch, reconcile and record cycle. Fetches run concurrently;
// only the recording step is serialized.
func (p *Poller) Poll(ctx context.Context) (*Result, error) {
	start := time.Now()
	res, err := p.Reconcile(ctx)
	if err != nil {
		return nil, err
	}

	snap, err := p.record(ctx, res)
	if err != nil {
		return res, err
	}
	res.Snapshot = snap

	logging.LogOperation(p.logger, "poll_complete",
		slog.Int("records", len(res.Records)),
		slog.Int("dropped", len(res.Diagnostics)),
		slog.Bool("recorded", snap != nil),
		slog.Duration("duration", time.Since(start)))
	return res, nil
}

func (p *Poller) record(ctx context.Context, res *Result) (*snapshot.Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	snap, err := p.opts.Store.Record(res.CapturedAt, res.Records)
	if err != nil || snap == nil {
		return snap, err
	}

	if p.opts.Stats != nil {
		if err := p.opts.Stats.RecordSnapshot(ctx, snap); err != nil {
			logging.LogError(p.logger, "failed to index snapshot", err)
		}
		if err := p.opts.Stats.UpdateDelayStats(ctx, snap.CapturedAt, snap.Records); err != nil {
			logging.LogError(p.logger, "failed to update delay stats", err)
		}
	}
	return snap, nil
}

// Run polls once after the warm-up delay and then at every interval until
// ctx is cancelled. Failures are logged and the loop continues.
func (p *Poller) Run(ctx context.Context) {
	warmup := time.NewTimer(p.opts.WarmupDelay)
	defer warmup.Stop()

	select {
	case <-warmup.C:
		p.tick(ctx)
	case <-ctx.Done():
		return
	}

	ticker := time.NewTicker(p.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.tick(ctx)
		case <-ctx.Done():
			p.logger.Info("polling loop stopped")
			return
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	idx := p.opts.Provider.Index()
	if idx == nil {
		p.logger.Warn("skipping poll, schedule not loaded")
		return
	}

	today := schedule.DateKey(p.now().In(idx.Location()))
	if !idx.HasServiceOn(today) {
		p.logger.Info("no service today, skipping poll", slog.String("date", today))
		return
	}

	if _, err := p.Poll(ctx); err != nil {
		var transportErr *realtime.TransportError
		if errors.As(err, &transportErr) {
			logging.LogError(p.logger, "feed unavailable", err,
				slog.Bool("timeout", transportErr.Timeout()))
		} else {
			logging.LogError(p.logger, "poll failed", err)
		}
	}

	p.cleanup(ctx)
}

func (p *Poller) cleanup(ctx context.Context) {
	if p.opts.Retention <= 0 {
		return
	}
	now := p.now()
	if _, err := p.opts.Store.Prune(now.Add(-p.opts.Retention)); err != nil {
		logging.LogError(p.logger, "snapshot prune failed", err)
	}
	if p.opts.Stats != nil {
		if _, err := p.opts.Stats.Cleanup(ctx, now, p.opts.Retention); err != nil {
			logging.LogError(p.logger, "stats cleanup failed", err)
		}
	}
}
