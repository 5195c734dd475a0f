package worker

import (
	"context"
	"log/slog"
	"time"

	applog "expensetracker/internal/log"
)

// DraftPurger deletes drafts last written before cutoff.
type DraftPurger interface {
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// DraftJanitor removes drafts abandoned for longer than ttl.
type DraftJanitor struct {
	drafts DraftPurger
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

func NewDraftJanitor(drafts DraftPurger, ttl time.Duration, logger *slog.Logger) *DraftJanitor {
	return &DraftJanitor{
		drafts: drafts,
		ttl:    ttl,
		logger: applog.ForComponent(logger, applog.ComponentDraft),
		now:    time.Now,
	}
}

// PurgeExpired deletes every draft older than the janitor's ttl.
func (j *DraftJanitor) PurgeExpired(ctx context.Context) error {
	cutoff := j.now().Add(-j.ttl)
	n, err := j.drafts.PurgeBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	if n > 0 {
		j.logger.InfoContext(ctx, "Purged expired drafts", "count", n, "cutoff", cutoff.Format(time.RFC3339))
	}
	return nil
}
