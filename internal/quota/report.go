package quota

import (
	"context"

	"estatemap/internal/models"
)

// TierUsage is the monthly usage of one tier against its free cap
type TierUsage struct {
	Tier     models.Tier `json:"tier"`
	Used     int         `json:"used"`
	FreeCap  int         `json:"free_cap"`
	Uncapped bool        `json:"uncapped,omitempty"`
}

// Remaining is the number of free calls left, 0 once the cap is reached
func (u TierUsage) Remaining() int {
	if u.Uncapped || u.Used >= u.FreeCap {
		return 0
	}
	return u.FreeCap - u.Used
}

// Report describes the quota state of one operation for this month
type Report struct {
	Operation models.Operation `json:"operation"`
	Tiers     []TierUsage      `json:"tiers"`
	Next      models.Tier      `json:"next_tier"`
	Degraded  bool             `json:"degraded"`
}

// Report reads the usage of op once and reports it with the tier the next
// live call would use.
func (s *Selector) Report(ctx context.Context, op models.Operation) (Report, error) {
	table, err := s.Table(op)
	if err != nil {
		return Report{}, err
	}
	usage, err := s.tracker.UsageThisMonth(ctx, op)
	if err != nil {
		return Report{}, err
	}

	report := Report{Operation: op}
	for _, tier := range table.Tiers {
		report.Tiers = append(report.Tiers, TierUsage{
			Tier:     tier.Name,
			Used:     usage[tier.Name],
			FreeCap:  tier.FreeCap,
			Uncapped: tier.FreeCap == 0,
		})
	}

	sel := Choose(table, usage)
	report.Next = sel.Tier
	report.Degraded = sel.Degraded
	return report, nil
}

// Reports returns the report of every known operation in a stable order
func (s *Selector) Reports(ctx context.Context) ([]Report, error) {
	reports := make([]Report, 0, len(models.Operations))
	for _, op := range models.Operations {
		report, err := s.Report(ctx, op)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}
