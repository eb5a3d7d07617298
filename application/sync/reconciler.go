// Package sync keeps the relational template mirror in step with the
// authoritative templates document.
package sync

import (
	"context"
	"fmt"
	stdsync "sync"
	"sync/atomic"
	"time"

	"gallery-backend/application/ports"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds parallel mirror upserts
const DefaultConcurrency = 4

// Metrics receives per-row upsert outcomes
type Metrics interface {
	ObserveMirrorUpsert(trigger string, err error)
}

// Report summarises one reconciliation run
type Report struct {
	RunID     string        `json:"runId"`
	Documents int           `json:"documents"`
	Upserted  int           `json:"upserted"`
	Unchanged int           `json:"unchanged"`
	Failed    int           `json:"failed"`
	FailedIDs []string      `json:"failedIds,omitempty"`
	Duration  time.Duration `json:"duration"`
	StartedAt time.Time     `json:"startedAt"`
}

// Reconciler copies templates missing or stale in the mirror
type Reconciler struct {
	store       ports.DocumentStore
	mirror      ports.TemplateMirror
	metrics     Metrics
	logger      *zap.Logger
	concurrency int

	// one run at a time
	running stdsync.Mutex
}

// NewReconciler creates a reconciler. metrics may be nil.
func NewReconciler(store ports.DocumentStore, mirror ports.TemplateMirror, metrics Metrics, logger *zap.Logger, concurrency int) *Reconciler {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Reconciler{
		store:       store,
		mirror:      mirror,
		metrics:     metrics,
		logger:      logger,
		concurrency: concurrency,
	}
}

// Reconcile runs one pass. Individual row failures are counted and logged;
// the returned error is non-nil when the pass could not start or any row failed.
func (r *Reconciler) Reconcile(ctx context.Context) (*Report, error) {
	r.running.Lock()
	defer r.running.Unlock()

	report := &Report{RunID: uuid.NewString(), StartedAt: time.Now().UTC()}
	logger := r.logger.With(zap.String("run_id", report.RunID))

	snap, err := r.store.Read(ctx)
	if err != nil {
		return report, fmt.Errorf("reading templates document: %w", err)
	}
	current, err := r.mirror.Fingerprints(ctx)
	if err != nil {
		return report, fmt.Errorf("reading mirror fingerprints: %w", err)
	}
	report.Documents = len(snap.Templates)

	var pending []ports.MirrorRow
	for _, t := range snap.Templates {
		row := ports.NewMirrorRow(t)
		if current[t.ID] == row.Fingerprint {
			report.Unchanged++
			continue
		}
		pending = append(pending, row)
	}

	var (
		upserted int64
		mu       stdsync.Mutex
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for _, row := range pending {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			err := r.mirror.Upsert(gctx, row)
			if r.metrics != nil {
				r.metrics.ObserveMirrorUpsert("sync", err)
			}
			if err != nil {
				logger.Warn("Mirror upsert failed",
					zap.String("id", row.Template.ID),
					zap.String("slug", row.Template.Slug),
					zap.Error(err))
				mu.Lock()
				report.FailedIDs = append(report.FailedIDs, row.Template.ID)
				mu.Unlock()
				return nil
			}
			atomic.AddInt64(&upserted, 1)
			return nil
		})
	}
	waitErr := g.Wait()

	report.Upserted = int(upserted)
	report.Failed = len(report.FailedIDs)
	report.Duration = time.Since(report.StartedAt)

	logger.Info("Mirror reconciliation finished",
		zap.Int("documents", report.Documents),
		zap.Int("upserted", report.Upserted),
		zap.Int("unchanged", report.Unchanged),
		zap.Int("failed", report.Failed),
		zap.Duration("duration", report.Duration))

	if waitErr != nil {
		return report, waitErr
	}
	if report.Failed > 0 {
		return report, fmt.Errorf("mirror reconciliation: %d of %d rows failed", report.Failed, len(pending))
	}
	return report, nil
}
