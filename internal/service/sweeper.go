package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-ticket-booking/internal/metrics"
	"github.com/iliyamo/event-ticket-booking/internal/model"
	"github.com/iliyamo/event-ticket-booking/internal/queue"
	"github.com/iliyamo/event-ticket-booking/internal/repository"
)

// SweepResult summarizes one pass of the sweeper.
type SweepResult struct {
	Scanned int `json:"scanned"`
	Expired int `json:"expired"`
	// Skipped counts holds that left ACTIVE between the scan and the
	// transition, e.g. because they were confirmed meanwhile.
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Sweeper moves timed-out ACTIVE holds to EXPIRED.  It does not take the
// event lock; each transition is a compare-and-set from ACTIVE so a
// concurrent confirmation and the sweeper can never both succeed.
type Sweeper struct {
	store repository.Store
	cfg   settings
	log   *logrus.Entry
}

// NewSweeper returns a Sweeper over store.
func NewSweeper(store repository.Store, opts ...Option) *Sweeper {
	return &Sweeper{
		store: store,
		cfg:   applyOptions(opts),
		log:   logrus.WithField("component", "sweeper"),
	}
}

// Run sweeps every interval until ctx is done.  The interval is measured
// from the end of one sweep to the start of the next.
func (s *Sweeper) Run(ctx context.Context) error {
	s.log.WithField("interval", s.cfg.sweepInterval.String()).Info("sweeper started")
	timer := time.NewTimer(s.cfg.sweepInterval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			s.log.Info("sweeper stopped")
			return nil
		case <-timer.C:
		}
		if _, err := s.SweepExpiredHolds(ctx); err != nil && ctx.Err() == nil {
			s.log.WithError(err).Error("sweep failed")
		}
		timer.Reset(s.cfg.sweepInterval)
	}
}

// SweepExpiredHolds expires every ACTIVE hold whose ExpiresAt is not after
// now.  Each hold is transitioned in its own transaction; a failure on one
// hold is logged and the sweep continues.
func (s *Sweeper) SweepExpiredHolds(ctx context.Context) (SweepResult, error) {
	start := time.Now()
	defer func() { metrics.SweepDuration.Observe(time.Since(start).Seconds()) }()

	now := s.cfg.clock.Now()
	holds, err := s.store.FindExpiredActiveHolds(ctx, now)
	if err != nil {
		return SweepResult{}, fmt.Errorf("find expired holds: %w", err)
	}

	res := SweepResult{Scanned: len(holds)}
	for _, h := range holds {
		var applied bool
		err := s.store.WithTx(ctx, func(ctx context.Context) error {
			ok, err := s.store.TransitionHold(ctx, h.ID, model.HoldActive, model.HoldExpired)
			applied = ok
			return err
		})
		switch {
		case errors.Is(err, repository.ErrConcurrentUpdate), err == nil && !applied:
			res.Skipped++
		case err != nil:
			res.Failed++
			s.log.WithError(err).WithField("hold_id", h.ID).Error("expire hold failed")
		default:
			res.Expired++
			metrics.HoldsExpired.Inc()
			s.publish(ctx, h, now)
		}
	}

	if res.Scanned > 0 {
		s.log.WithFields(logrus.Fields{
			"scanned": res.Scanned,
			"expired": res.Expired,
			"skipped": res.Skipped,
			"failed":  res.Failed,
		}).Info("expired holds released")
	}
	return res, nil
}

func (s *Sweeper) publish(ctx context.Context, h model.SeatHold, at time.Time) {
	err := s.cfg.publisher.PublishHoldExpired(ctx, queue.HoldExpiredEvent{
		HoldID:    h.ID,
		UserID:    h.UserID,
		EventID:   h.EventID,
		Seats:     h.Seats,
		ExpiredAt: at.UTC().Format(time.RFC3339),
	})
	if err != nil {
		s.log.WithError(err).WithField("hold_id", h.ID).Warn("publish hold expired failed")
	}
}
