package models

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

func TestPlaceIsRegion(t *testing.T) {
	tests := []struct {
		name  string
		types []string
		want  bool
	}{
		{"building", []string{"apartment_building", "establishment"}, false},
		{"sublocality", []string{"sublocality", "political"}, true},
		{"admin area", []string{"administrative_area_level_3"}, true},
		{"no types", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Place{Types: tt.types}
			assert.Equal(t, tt.want, p.IsRegion())
		})
	}
}

func TestPlaceRegions(t *testing.T) {
	p := Place{AddressComponents: []AddressComponent{
		{LongText: "Sunshine Court", Types: []string{"premise"}},
		{LongText: "Sha Tin", Types: []string{"sublocality", "political"}},
		{LongText: "New Territories", Types: []string{"administrative_area_level_1"}},
	}}

	regions := p.Regions()
	assert.Len(t, regions, 2)
	assert.Equal(t, "Sha Tin", regions[0].LongText)
	assert.Equal(t, "New Territories", regions[1].LongText)
}

func TestLatLngPoint(t *testing.T) {
	l := LatLng{Latitude: 22.3193, Longitude: 114.1694}
	assert.Equal(t, orb.Point{114.1694, 22.3193}, l.Point())
	assert.Equal(t, l, LatLngFromPoint(l.Point()))
}

func TestOperationValid(t *testing.T) {
	for _, op := range Operations {
		assert.True(t, op.Valid(), op)
	}
	assert.False(t, Operation("geocode").Valid())
}

func TestTierTableFloor(t *testing.T) {
	_, ok := TierTable{}.Floor()
	assert.False(t, ok)

	floor, ok := TierTable{Tiers: []TierSpec{{Name: TierEssentials}, {Name: TierPro}}}.Floor()
	assert.True(t, ok)
	assert.Equal(t, TierEssentials, floor.Name)
}
