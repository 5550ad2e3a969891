package poller

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libellus/transit/internal/realtime"
	"github.com/libellus/transit/internal/schedule"
	"github.com/libellus/transit/internal/snapshot"
	"github.com/libellus/transit/internal/static/gtfs"
)

var cet = time.FixedZone("CET", 3600)

// monday 2024-03-04 08:20 CET; T1 leaves S1 at 08:15 on weekdays
var monday = time.Date(2024, 3, 4, 8, 20, 0, 0, cet)

func testIndex() *schedule.Index {
	return schedule.Build(&gtfs.Data{
		Routes:    []gtfs.Route{{RouteID: "R1", RouteShortName: "1"}},
		Stops:     []gtfs.Stop{{StopID: "S1", StopName: "Gare"}},
		Trips:     []gtfs.Trip{{TripID: "T1", RouteID: "R1", ServiceID: "WD", TripHeadsign: "Hopital"}},
		StopTimes: []gtfs.StopTime{{TripID: "T1", StopID: "S1", StopSequence: 1, ArrivalTime: "08:15:00", DepartureTime: "08:15:00"}},
		Calendar: []gtfs.CalendarService{
			{ServiceID: "WD", Monday: true, Tuesday: true, Wednesday: true, Thursday: true, Friday: true},
		},
	}, cet)
}

type fakeFeed struct {
	feed  *realtime.Feed
	err   error
	calls atomic.Int32
}

func (f *fakeFeed) FetchFeed(ctx context.Context) (*realtime.Feed, error) {
	f.calls.Add(1)
	return f.feed, f.err
}

func lateFeed() *realtime.Feed {
	return &realtime.Feed{Entities: []realtime.Entity{{
		ID:         "e1",
		Vehicle:    &realtime.VehicleObservation{TripID: "T1", StopID: "S1", Timestamp: monday.Add(-3 * time.Minute).Unix()},
		TripUpdate: &realtime.TripUpdate{TripID: "T1"},
	}}}
}

// stallingFeed blocks its first fetch until release is closed
type stallingFeed struct {
	feed    *realtime.Feed
	started chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func (f *stallingFeed) FetchFeed(ctx context.Context) (*realtime.Feed, error) {
	if f.calls.Add(1) == 1 {
		close(f.started)
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.feed, nil
}

type fakeStats struct {
	mu        sync.Mutex
	snapshots int
	records   int
	cleanups  int
}

func (s *fakeStats) RecordSnapshot(ctx context.Context, snap *snapshot.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots++
	return nil
}

func (s *fakeStats) UpdateDelayStats(ctx context.Context, capturedAt time.Time, records []realtime.DelayRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records += len(records)
	return nil
}

func (s *fakeStats) Cleanup(ctx context.Context, now time.Time, retention time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanups++
	return 0, nil
}

func newTestPoller(t *testing.T, feed FeedSource, stats StatsStore, now time.Time) (*Poller, *snapshot.Store) {
	t.Helper()
	store, err := snapshot.NewStore(filepath.Join(t.TempDir(), "snapshots"), nil)
	require.NoError(t, err)

	p := New(Options{
		Feed:         feed,
		Provider:     schedule.NewProvider(testIndex()),
		Reconciler:   realtime.NewReconciler(realtime.WithClock(func() time.Time { return now })),
		Store:        store,
		Stats:        stats,
		Interval:     10 * time.Millisecond,
		WarmupDelay:  time.Millisecond,
		FetchTimeout: time.Second,
		Retention:    24 * time.Hour,
	})
	p.now = func() time.Time { return now }
	return p, store
}

func TestPoll(t *testing.T) {
	t.Run("records a snapshot", func(t *testing.T) {
		stats := &fakeStats{}
		p, store := newTestPoller(t, &fakeFeed{feed: lateFeed()}, stats, monday)

		res, err := p.Poll(context.Background())
		require.NoError(t, err)
		require.Len(t, res.Records, 1)
		assert.Equal(t, int64(120), res.Records[0].Delay)
		require.NotNil(t, res.Snapshot)
		assert.Equal(t, 1, stats.snapshots)
		assert.Equal(t, 1, stats.records)

		latest, err := store.LatestNonEmpty()
		require.NoError(t, err)
		assert.Equal(t, res.Snapshot.ID, latest.ID)
	})

	t.Run("empty result writes nothing", func(t *testing.T) {
		stats := &fakeStats{}
		p, store := newTestPoller(t, &fakeFeed{feed: &realtime.Feed{}}, stats, monday)

		res, err := p.Poll(context.Background())
		require.NoError(t, err)
		assert.Nil(t, res.Snapshot)
		assert.Equal(t, 0, stats.snapshots)

		_, err = store.LatestNonEmpty()
		assert.ErrorIs(t, err, snapshot.ErrNoSnapshot)
	})

	t.Run("transport failure", func(t *testing.T) {
		feedErr := &realtime.TransportError{URL: "http://feed.test", Err: context.DeadlineExceeded}
		p, _ := newTestPoller(t, &fakeFeed{err: feedErr}, nil, monday)

		_, err := p.Poll(context.Background())
		var transportErr *realtime.TransportError
		require.True(t, errors.As(err, &transportErr))
		assert.True(t, transportErr.Timeout())
	})

	t.Run("slow fetch does not block a concurrent poll", func(t *testing.T) {
		feed := &stallingFeed{feed: lateFeed(), started: make(chan struct{}), release: make(chan struct{})}
		p, _ := newTestPoller(t, feed, nil, monday)

		slow := make(chan error, 1)
		go func() {
			_, err := p.Poll(context.Background())
			slow <- err
		}()
		<-feed.started

		fast := make(chan error, 1)
		go func() {
			_, err := p.Poll(context.Background())
			fast <- err
		}()

		select {
		case err := <-fast:
			require.NoError(t, err)
		case <-time.After(500 * time.Millisecond):
			t.Fatal("concurrent poll waited on the stalled fetch")
		}

		close(feed.release)
		require.NoError(t, <-slow)
	})

	t.Run("no schedule", func(t *testing.T) {
		p, _ := newTestPoller(t, &fakeFeed{feed: lateFeed()}, nil, monday)
		p.opts.Provider = schedule.NewProvider(nil)

		_, err := p.Poll(context.Background())
		assert.ErrorIs(t, err, ErrNoSchedule)
	})
}

func TestRun(t *testing.T) {
	t.Run("polls after warm-up and on every tick", func(t *testing.T) {
		feed := &fakeFeed{feed: lateFeed()}
		stats := &fakeStats{}
		p, _ := newTestPoller(t, feed, stats, monday)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			p.Run(ctx)
			close(done)
		}()

		require.Eventually(t, func() bool { return feed.calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
		cancel()
		<-done

		stats.mu.Lock()
		defer stats.mu.Unlock()
		assert.GreaterOrEqual(t, stats.cleanups, 3)
	})

	t.Run("keeps going after failures", func(t *testing.T) {
		feed := &fakeFeed{err: &realtime.TransportError{URL: "http://feed.test", Err: errors.New("connection refused")}}
		p, _ := newTestPoller(t, feed, nil, monday)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go p.Run(ctx)

		require.Eventually(t, func() bool { return feed.calls.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	})

	t.Run("skips days without service", func(t *testing.T) {
		sunday := time.Date(2024, 3, 3, 10, 0, 0, 0, cet)
		feed := &fakeFeed{feed: lateFeed()}
		p, _ := newTestPoller(t, feed, nil, sunday)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		p.Run(ctx)

		assert.Equal(t, int32(0), feed.calls.Load())
	})

	t.Run("stops before warm-up", func(t *testing.T) {
		feed := &fakeFeed{feed: lateFeed()}
		p, _ := newTestPoller(t, feed, nil, monday)
		p.opts.WarmupDelay = time.Hour

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		p.Run(ctx)

		assert.Equal(t, int32(0), feed.calls.Load())
	})
}

type fakeLoader struct {
	idx *schedule.Index
	err error
}

func (l *fakeLoader) Load(ctx context.Context) (*schedule.Index, error) {
	return l.idx, l.err
}

func TestReload(t *testing.T) {
	first := testIndex()
	provider := schedule.NewProvider(first)

	assert.False(t, Reload(context.Background(), &fakeLoader{err: assert.AnError}, provider, nil))
	assert.Same(t, first, provider.Index())

	next := testIndex()
	assert.True(t, Reload(context.Background(), &fakeLoader{idx: next}, provider, nil))
	assert.Same(t, next, provider.Index())
}
