package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"estatemap/internal/mapping"
	"estatemap/internal/models"
	"estatemap/internal/quota"
)

func TestAcquireLockIsExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run", "estatemap.lock")

	lock, err := acquireLock(path)
	require.NoError(t, err)

	_, err = acquireLock(path)
	assert.ErrorIs(t, err, errLocked)

	require.NoError(t, lock.Unlock())
	again, err := acquireLock(path)
	require.NoError(t, err)
	require.NoError(t, again.Unlock())
}

func TestRenderQuota(t *testing.T) {
	out := renderQuota([]quota.Report{
		{
			Operation: models.OpTextSearch,
			Tiers: []quota.TierUsage{
				{Tier: models.TierEssentialsIDOnly, Used: 12, Uncapped: true},
				{Tier: models.TierPro, Used: 5000, FreeCap: 5000},
			},
			Degraded: true,
		},
		{
			Operation: models.OpPlaceImage,
			Tiers:     []quota.TierUsage{{Tier: models.TierNormal, Used: 50, FreeCap: 950}},
			Next:      models.TierNormal,
		},
	})

	for _, want := range []string{"text_search", "degraded", "essentials_id_only", "place_image", "900"} {
		assert.Contains(t, out, want)
	}
}

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable([]string{"A", "B"}, [][]string{{"only"}}, nil)
	assert.Contains(t, out, "only")
	assert.Empty(t, renderTable(nil, nil, nil))
}

func TestFormatSummary(t *testing.T) {
	s := mapping.Summary{RunID: "run-1", Batches: 2}
	s.Processed, s.Mapped, s.NotFound, s.Failed = 5, 3, 1, 1
	assert.Equal(t, "run run-1: 2 batches, 5 processed, 3 mapped, 1 not found, 1 failed", formatSummary(s))
}

func TestRootRejectsUnknownRegion(t *testing.T) {
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--region", "atlantis", "quota"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "unknown region"))
}

func TestRootHasCommands(t *testing.T) {
	cmd := newRootCommand()
	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	for _, want := range []string{"import", "map", "quota", "resolve", "serve"} {
		assert.Contains(t, names, want)
	}
}
