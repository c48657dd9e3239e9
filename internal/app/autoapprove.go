package app

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"school_reviews/internal/domain"
)

// AutoApprover approves the oldest pending review once it has waited longer
// than After. It exists for test mode only; nothing starts it otherwise.
type AutoApprover struct {
	wf       *Workflow
	Interval time.Duration
	After    time.Duration
}

func NewAutoApprover(wf *Workflow, interval, after time.Duration) *AutoApprover {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if after < 0 {
		after = 0
	}
	return &AutoApprover{wf: wf, Interval: interval, After: after}
}

// Run polls until ctx is cancelled.
func (a *AutoApprover) Run(ctx context.Context) error {
	log.Warn().Dur("interval", a.Interval).Dur("after", a.After).Msg("test mode: auto-approver running")
	t := time.NewTicker(a.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("auto-approver stopped")
			return nil
		case <-t.C:
			if _, _, err := a.Tick(ctx); err != nil {
				log.Warn().Err(err).Msg("auto-approve tick failed")
			}
		}
	}
}

// Tick runs one poll. approved reports whether a review was approved.
func (a *AutoApprover) Tick(ctx context.Context) (rv domain.Review, approved bool, err error) {
	pending, err := a.wf.ListPending(ctx)
	if err != nil || len(pending) == 0 {
		return domain.Review{}, false, err
	}
	oldest := pending[0]
	if a.wf.now().Sub(oldest.Timestamp) <= a.After {
		return domain.Review{}, false, nil
	}
	log.Info().Str("id", string(oldest.ID)).Msg("auto-approving test review")
	rv, err = a.wf.Approve(ctx, oldest.ID)
	if errors.Is(err, domain.ErrNotFound) {
		// moderated by someone else between list and approve
		return domain.Review{}, false, nil
	}
	if err != nil {
		return domain.Review{}, false, err
	}
	return rv, true, nil
}
