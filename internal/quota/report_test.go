package quota

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"estatemap/config"
	"estatemap/internal/models"
	"estatemap/internal/testsupport"
)

func TestTierUsageRemaining(t *testing.T) {
	tests := []struct {
		name  string
		usage TierUsage
		want  int
	}{
		{"under cap", TierUsage{Used: 3, FreeCap: 10}, 7},
		{"at cap", TierUsage{Used: 10, FreeCap: 10}, 0},
		{"over cap", TierUsage{Used: 12, FreeCap: 10}, 0},
		{"uncapped", TierUsage{Used: 12, Uncapped: true}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.usage.Remaining())
		})
	}
}

func TestSelectorReport(t *testing.T) {
	store := testsupport.NewStore(t)
	ctx := context.Background()

	tables := config.DefaultTierTables()
	selector := NewSelector(NewTracker(store, time.UTC), func(op models.Operation) (models.TierTable, bool) {
		table, ok := tables[op]
		return table, ok
	}, nil)

	seedUsage(t, store, models.OpTextSearch, models.TierEnterpriseAtmosphere, 3)

	report, err := selector.Report(ctx, models.OpTextSearch)
	require.NoError(t, err)
	assert.Equal(t, models.OpTextSearch, report.Operation)
	require.Len(t, report.Tiers, 4)
	assert.True(t, report.Tiers[0].Uncapped)
	assert.Equal(t, models.TierEnterpriseAtmosphere, report.Tiers[3].Tier)
	assert.Equal(t, 3, report.Tiers[3].Used)
	assert.Equal(t, models.TierEnterpriseAtmosphere, report.Next)
	assert.False(t, report.Degraded)

	reports, err := selector.Reports(ctx)
	require.NoError(t, err)
	require.Len(t, reports, len(models.Operations))
	for i, op := range models.Operations {
		assert.Equal(t, op, reports[i].Operation)
	}
}

func TestSelectorReportUnknownOperation(t *testing.T) {
	store := testsupport.NewStore(t)
	selector := NewSelector(NewTracker(store, time.UTC), func(models.Operation) (models.TierTable, bool) {
		return models.TierTable{}, false
	}, nil)

	_, err := selector.Report(context.Background(), models.OpPlaceDetails)
	assert.Error(t, err)
}
