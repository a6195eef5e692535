package quota

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"estatemap/internal/logging"
	"estatemap/internal/metrics"
	"estatemap/internal/models"
)

// Selection is the tier and field mask to use for the next live call.
// Degraded means no paid tier has quota and the caller should fall back to
// a cheaper operation; Tier and Fields are then empty.
type Selection struct {
	Tier     models.Tier
	Fields   []string
	Degraded bool
}

// TableFunc looks up the tier table of an operation
type TableFunc func(op models.Operation) (models.TierTable, bool)

type Selector struct {
	tracker *Tracker
	tables  TableFunc
	logger  *logrus.Logger
}

func NewSelector(tracker *Tracker, tables TableFunc, logger *logrus.Logger) *Selector {
	return &Selector{
		tracker: tracker,
		tables:  tables,
		logger:  logging.OrDiscard(logger),
	}
}

// Usage exposes the monthly usage of op
func (s *Selector) Usage(ctx context.Context, op models.Operation) (models.Usage, error) {
	return s.tracker.UsageThisMonth(ctx, op)
}

// Table returns the tier table of op
func (s *Selector) Table(op models.Operation) (models.TierTable, error) {
	table, ok := s.tables(op)
	if !ok || len(table.Tiers) == 0 {
		return models.TierTable{}, fmt.Errorf("no tier table for operation %s", op)
	}
	return table, nil
}

// Select picks the richest tier of op that still has free quota this month.
// Usage is read on every call.
func (s *Selector) Select(ctx context.Context, op models.Operation) (Selection, error) {
	table, err := s.Table(op)
	if err != nil {
		return Selection{}, err
	}
	usage, err := s.tracker.UsageThisMonth(ctx, op)
	if err != nil {
		return Selection{}, err
	}

	sel := Choose(table, usage)
	floor, _ := table.Floor()
	if !sel.Degraded && sel.Tier == floor.Name && floor.FreeCap > 0 && usage[floor.Name] >= floor.FreeCap {
		s.logger.WithFields(logrus.Fields{
			"operation": op,
			"tier":      floor.Name,
			"usage":     usage[floor.Name],
			"free_cap":  floor.FreeCap,
		}).Warn("Free quota exhausted, charging the floor tier")
		metrics.QuotaOverageTotal.WithLabelValues(string(op), string(floor.Name)).Inc()
	}
	return sel, nil
}

// Allow reports whether n more calls fit under the floor tier's free cap.
// A floor without a cap always allows.
func (s *Selector) Allow(ctx context.Context, op models.Operation, n int) (bool, error) {
	table, err := s.Table(op)
	if err != nil {
		return false, err
	}
	floor, _ := table.Floor()
	if floor.FreeCap == 0 {
		return true, nil
	}
	usage, err := s.tracker.UsageThisMonth(ctx, op)
	if err != nil {
		return false, err
	}
	return usage[floor.Name]+n <= floor.FreeCap, nil
}

// Choose is the pure tier decision. The floor tier's fields are always
// included; paid tiers are tried from richest to cheapest and the first one
// under its cap wins, bringing the fields of every cheaper tier with it.
func Choose(table models.TierTable, usage models.Usage) Selection {
	if len(table.Tiers) == 0 {
		return Selection{}
	}

	for i := len(table.Tiers) - 1; i >= 1; i-- {
		tier := table.Tiers[i]
		if usage[tier.Name] < tier.FreeCap {
			return Selection{Tier: tier.Name, Fields: unionFields(table.Tiers[:i+1])}
		}
	}

	if table.Degradable {
		return Selection{Degraded: true}
	}
	floor := table.Tiers[0]
	return Selection{Tier: floor.Name, Fields: unionFields(table.Tiers[:1])}
}

func unionFields(tiers []models.TierSpec) []string {
	seen := make(map[string]bool)
	var fields []string
	for _, tier := range tiers {
		for _, f := range tier.Fields {
			if !seen[f] {
				seen[f] = true
				fields = append(fields, f)
			}
		}
	}
	return fields
}
