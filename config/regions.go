package config

import "strings"

// Region describes where building names are looked up
type Region struct {
	Name         string    `json:"name"`
	Country      string    `json:"country"`
	RegionCode   string    `json:"region_code"`
	LanguageCode string    `json:"language_code"`
	Center       []float64 `json:"center"`
	RadiusMeters float64   `json:"radius_meters"`
}

// SupportedRegions is a list of regions supported by the application
var SupportedRegions = []Region{
	{
		Name:         "hong_kong",
		Country:      "Hong Kong",
		RegionCode:   "hk",
		LanguageCode: "zh-HK",
		Center:       []float64{22.3193, 114.1694},
		RadiusMeters: 30000,
	},
	// Add more regions here as needed
}

// GetRegionNames returns a list of supported region names
func GetRegionNames() []string {
	names := make([]string, len(SupportedRegions))
	for i, region := range SupportedRegions {
		names[i] = region.Name
	}
	return names
}

// GetRegionByName returns a region configuration by name
func GetRegionByName(name string) *Region {
	name = NormalizeRegion(name)
	for _, region := range SupportedRegions {
		if region.Name == name {
			return &region
		}
	}
	return nil
}

// NormalizeRegion lowercases a region name and joins its words with underscores
func NormalizeRegion(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "_")
}
