package sync

import (
	"context"
	"errors"
	stdsync "sync"
	"sync/atomic"
	"testing"
	"time"

	"gallery-backend/application/ports"
	"gallery-backend/domain/template"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type staticStore struct {
	snap ports.Snapshot
	err  error
}

func (s *staticStore) Read(context.Context) (ports.Snapshot, error) { return s.snap, s.err }

func (s *staticStore) Write(context.Context, template.Collection, string, string) (string, error) {
	return "", errors.New("read only")
}

type mapMirror struct {
	mu       stdsync.Mutex
	rows     map[string]ports.MirrorRow
	failIDs  map[string]bool
	upserts  int
	inflight int32
	peak     int32
}

func newMapMirror() *mapMirror {
	return &mapMirror{rows: map[string]ports.MirrorRow{}, failIDs: map[string]bool{}}
}

func (m *mapMirror) Upsert(_ context.Context, row ports.MirrorRow) error {
	n := atomic.AddInt32(&m.inflight, 1)
	defer atomic.AddInt32(&m.inflight, -1)
	for {
		peak := atomic.LoadInt32(&m.peak)
		if n <= peak || atomic.CompareAndSwapInt32(&m.peak, peak, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts++
	if m.failIDs[row.Template.ID] {
		return errors.New("boom")
	}
	m.rows[row.Template.ID] = row
	return nil
}

func (m *mapMirror) ListByUser(context.Context, string) ([]ports.MirrorRow, error) { return nil, nil }

func (m *mapMirror) Fingerprints(context.Context) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.rows))
	for id, row := range m.rows {
		out[id] = row.Fingerprint
	}
	return out, nil
}

type countingMetrics struct {
	mu       stdsync.Mutex
	ok, fail int
}

func (c *countingMetrics) ObserveMirrorUpsert(_ string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.fail++
	} else {
		c.ok++
	}
}

func collection(n int) template.Collection {
	out := make(template.Collection, 0, n)
	for i := 1; i <= n; i++ {
		id := string(rune('0' + i))
		out = append(out, template.Template{ID: id, Slug: "t-" + id, Title: "T" + id})
	}
	return out
}

func TestReconciler(t *testing.T) {
	ctx := context.Background()

	t.Run("Should upsert every missing row", func(t *testing.T) {
		mirror := newMapMirror()
		metrics := &countingMetrics{}
		r := NewReconciler(&staticStore{snap: ports.Snapshot{Templates: collection(5)}}, mirror, metrics, zap.NewNop(), 2)

		report, err := r.Reconcile(ctx)
		require.NoError(t, err)
		assert.Equal(t, 5, report.Documents)
		assert.Equal(t, 5, report.Upserted)
		assert.Equal(t, 0, report.Unchanged)
		assert.NotEmpty(t, report.RunID)
		assert.Len(t, mirror.rows, 5)
		assert.Equal(t, 5, metrics.ok)
		assert.LessOrEqual(t, atomic.LoadInt32(&mirror.peak), int32(2))
	})

	t.Run("Should skip rows whose fingerprint matches", func(t *testing.T) {
		mirror := newMapMirror()
		store := &staticStore{snap: ports.Snapshot{Templates: collection(3)}}
		r := NewReconciler(store, mirror, nil, zap.NewNop(), 0)

		_, err := r.Reconcile(ctx)
		require.NoError(t, err)

		store.snap.Templates[1].Title = "Changed"
		report, err := r.Reconcile(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Upserted)
		assert.Equal(t, 2, report.Unchanged)
		assert.Equal(t, "Changed", mirror.rows["2"].Template.Title)
	})

	t.Run("Should continue past failed rows and report them", func(t *testing.T) {
		mirror := newMapMirror()
		mirror.failIDs["2"] = true
		metrics := &countingMetrics{}
		r := NewReconciler(&staticStore{snap: ports.Snapshot{Templates: collection(3)}}, mirror, metrics, zap.NewNop(), 1)

		report, err := r.Reconcile(ctx)
		require.Error(t, err)
		assert.Equal(t, 2, report.Upserted)
		assert.Equal(t, 1, report.Failed)
		assert.Equal(t, []string{"2"}, report.FailedIDs)
		assert.Equal(t, 1, metrics.fail)
	})

	t.Run("Should fail when the document cannot be read", func(t *testing.T) {
		mirror := newMapMirror()
		r := NewReconciler(&staticStore{err: errors.New("offline")}, mirror, nil, zap.NewNop(), 1)

		_, err := r.Reconcile(ctx)
		require.Error(t, err)
		assert.Zero(t, mirror.upserts)
	})
}

type countingRunner struct {
	runs atomic.Int32
}

func (c *countingRunner) Reconcile(context.Context) (*Report, error) {
	c.runs.Add(1)
	return &Report{}, nil
}

func TestScheduler(t *testing.T) {
	t.Run("Should reject an invalid schedule", func(t *testing.T) {
		_, err := NewScheduler("not a schedule", &countingRunner{}, time.Second, zap.NewNop())
		assert.Error(t, err)
	})

	t.Run("Should run on schedule and stop cleanly", func(t *testing.T) {
		runner := &countingRunner{}
		s, err := NewScheduler("@every 1s", runner, time.Second, zap.NewNop())
		require.NoError(t, err)

		s.Start()
		s.Start()
		require.Eventually(t, func() bool { return runner.runs.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
		s.Stop()
		s.Stop()
	})

	t.Run("Should stop without starting", func(t *testing.T) {
		s, err := NewScheduler("@every 1h", &countingRunner{}, 0, zap.NewNop())
		require.NoError(t, err)
		s.Stop()
	})
}
