package uploads

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrijs2005/megavault/internal/common"
	"github.com/dmitrijs2005/megavault/internal/logging"
)

const sweepBatchSize = 100

// Aborter aborts a multipart upload in the object store.
type Aborter interface {
	AbortMultipartUpload(ctx context.Context, key, uploadID string) error
}

// SweepResult summarizes one sweep.
type SweepResult struct {
	Aborted int
	Pruned  int
	Errors  int
}

// Sweeper periodically aborts in-progress uploads idle for longer than maxAge
// and forgets finished ones after the same age.
type Sweeper struct {
	repo     Repository
	aborter  Aborter
	maxAge   time.Duration
	interval time.Duration
	logger   logging.Logger
	now      func() time.Time

	aborted prometheus.Counter
}

func NewSweeper(repo Repository, aborter Aborter, maxAge, interval time.Duration, logger logging.Logger, reg prometheus.Registerer) *Sweeper {
	aborted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "megavault_stale_uploads_aborted_total",
		Help: "Multipart uploads aborted by the stale upload sweeper.",
	})
	if reg != nil {
		reg.MustRegister(aborted)
	}

	return &Sweeper{
		repo:     repo,
		aborter:  aborter,
		maxAge:   maxAge,
		interval: interval,
		logger:   logger.With("module", "sweeper"),
		now:      time.Now,
		aborted:  aborted,
	}
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Info(ctx, "sweeper started", "interval", s.interval.String(), "maxAge", s.maxAge.String())

	s.SweepOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "sweeper stopped")
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce aborts one batch of stale uploads and prunes finished ones.
// Uploads the store no longer knows are marked aborted as well.
func (s *Sweeper) SweepOnce(ctx context.Context) SweepResult {
	var res SweepResult
	cutoff := s.now().Add(-s.maxAge)

	stale, err := s.repo.ListStale(ctx, cutoff, sweepBatchSize)
	if err != nil {
		s.logger.Warn(ctx, "listing stale uploads failed", "error", err)
		res.Errors++
		return res
	}

	for _, u := range stale {
		err := s.aborter.AbortMultipartUpload(ctx, u.Key, u.UploadID)
		if err != nil && !errors.Is(err, common.ErrNoSuchUpload) {
			s.logger.Warn(ctx, "aborting stale upload failed", "uploadId", u.UploadID, "key", u.Key, "error", err)
			res.Errors++
			continue
		}

		if err := s.repo.SetState(ctx, u.UploadID, StateAborted); err != nil {
			s.logger.Warn(ctx, "marking stale upload aborted failed", "uploadId", u.UploadID, "error", err)
			res.Errors++
			continue
		}

		s.aborted.Inc()
		res.Aborted++
	}

	pruned, err := s.repo.Prune(ctx, cutoff)
	if err != nil {
		s.logger.Warn(ctx, "pruning finished uploads failed", "error", err)
		res.Errors++
	}
	res.Pruned = pruned

	if res.Aborted > 0 || res.Pruned > 0 || res.Errors > 0 {
		s.logger.Info(ctx, "stale uploads swept", "aborted", res.Aborted, "pruned", res.Pruned, "errors", res.Errors)
	}

	return res
}
