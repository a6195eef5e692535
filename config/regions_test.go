package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetRegionNames(t *testing.T) {
	names := GetRegionNames()
	assert.Contains(t, names, "hong_kong")
	assert.Len(t, names, len(SupportedRegions))
}

func TestGetRegionByName(t *testing.T) {
	tests := []struct {
		name            string
		input           string
		expectFound     bool
		expectedCountry string
	}{
		{
			name:            "Exact name",
			input:           "hong_kong",
			expectFound:     true,
			expectedCountry: "Hong Kong",
		},
		{
			name:            "Display name with spaces",
			input:           "Hong Kong",
			expectFound:     true,
			expectedCountry: "Hong Kong",
		},
		{
			name:        "Unknown region",
			input:       "macau",
			expectFound: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			region := GetRegionByName(tt.input)
			if !tt.expectFound {
				assert.Nil(t, region)
				return
			}
			require.NotNil(t, region)
			assert.Equal(t, tt.expectedCountry, region.Country)
			assert.Equal(t, "hk", region.RegionCode)
			assert.Equal(t, "zh-HK", region.LanguageCode)
			assert.InDelta(t, 22.3193, region.Center[0], 0.0001)
			assert.InDelta(t, 114.1694, region.Center[1], 0.0001)
		})
	}
}

func TestNormalizeRegion(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "Simple region name", input: "Macau", expected: "macau"},
		{name: "Region name with spaces", input: "Hong Kong", expected: "hong_kong"},
		{name: "Multiple spaces", input: "  New   Territories ", expected: "new_territories"},
		{name: "Already normalized", input: "hong_kong", expected: "hong_kong"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizeRegion(tt.input)
			assert.Equal(t, tt.expected, result,
				"NormalizeRegion(%q) = %q, want %q", tt.input, result, tt.expected)
		})
	}
}
