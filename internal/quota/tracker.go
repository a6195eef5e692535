package quota

import (
	"context"
	"fmt"
	"time"

	"estatemap/internal/database"
	"estatemap/internal/models"
)

// Tracker reports how many live calls each tier of an operation has used
// in the current calendar month. Only stored requests count, so cache hits
// are free.
type Tracker struct {
	store database.RequestStore
	loc   *time.Location
	now   func() time.Time
}

func NewTracker(store database.RequestStore, loc *time.Location) *Tracker {
	if loc == nil {
		loc = time.UTC
	}
	return &Tracker{store: store, loc: loc, now: time.Now}
}

// MonthWindow returns [first instant of the month, first instant of the next
// month) around t, in loc.
func MonthWindow(t time.Time, loc *time.Location) (time.Time, time.Time) {
	local := t.In(loc)
	start := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 1, 0)
}

func (t *Tracker) UsageThisMonth(ctx context.Context, op models.Operation) (models.Usage, error) {
	from, to := MonthWindow(t.now(), t.loc)
	usage, err := t.store.CountRequestsByTier(ctx, op, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s usage: %w", op, err)
	}
	return usage, nil
}
