package config

import "estatemap/internal/models"

// Free monthly caps per SKU. The photo cap stays below the real 1000 so a
// batch in flight cannot push usage over it.
const (
	essentialsFreeCap = 10000
	proFreeCap        = 5000
	enterpriseFreeCap = 1000
	atmosphereFreeCap = 1000
	photoFreeCap      = 950
)

var detailFieldsPro = []string{
	"id", "name", "attributions",
	"location", "addressComponents", "formattedAddress", "types", "viewport",
	"plusCode", "shortFormattedAddress",
	"displayName", "primaryType", "primaryTypeDisplayName", "photos",
	"businessStatus", "googleMapsUri",
}

var detailFieldsEnterprise = []string{
	"rating", "userRatingCount", "priceLevel", "priceRange", "websiteUri",
	"nationalPhoneNumber", "internationalPhoneNumber",
	"regularOpeningHours", "currentOpeningHours",
}

var detailFieldsAtmosphere = []string{
	"reviews", "reviewSummary", "editorialSummary", "generativeSummary",
	"neighborhoodSummary", "goodForGroups", "goodForChildren", "allowsDogs",
	"restroom", "outdoorSeating", "paymentOptions", "accessibilityOptions",
}

// DefaultTierTables returns the built-in tier tables for every operation
func DefaultTierTables() map[models.Operation]models.TierTable {
	return map[models.Operation]models.TierTable{
		models.OpAutocomplete: {
			Tiers: []models.TierSpec{
				{Name: models.TierNormal, FreeCap: essentialsFreeCap},
			},
		},
		models.OpTextSearch: {
			Degradable: true,
			Tiers: []models.TierSpec{
				{Name: models.TierEssentialsIDOnly, Fields: []string{"places.id", "places.name", "places.attributions", "nextPageToken"}},
				{Name: models.TierPro, FreeCap: proFreeCap, Fields: prefixed("places.", detailFieldsPro[3:])},
				{Name: models.TierEnterprise, FreeCap: enterpriseFreeCap, Fields: prefixed("places.", detailFieldsEnterprise)},
				{Name: models.TierEnterpriseAtmosphere, FreeCap: atmosphereFreeCap, Fields: prefixed("places.", detailFieldsAtmosphere)},
			},
		},
		models.OpNearbySearch: {
			Tiers: []models.TierSpec{
				{Name: models.TierPro, FreeCap: proFreeCap, Fields: prefixed("places.", detailFieldsPro)},
				{Name: models.TierEnterprise, FreeCap: enterpriseFreeCap, Fields: prefixed("places.", detailFieldsEnterprise)},
				{Name: models.TierEnterpriseAtmosphere, FreeCap: atmosphereFreeCap, Fields: prefixed("places.", detailFieldsAtmosphere)},
			},
		},
		models.OpPlaceDetails: {
			Tiers: []models.TierSpec{
				{Name: models.TierPro, FreeCap: proFreeCap, Fields: detailFieldsPro},
				{Name: models.TierEnterprise, FreeCap: enterpriseFreeCap, Fields: detailFieldsEnterprise},
				{Name: models.TierEnterpriseAtmosphere, FreeCap: atmosphereFreeCap, Fields: detailFieldsAtmosphere},
			},
		},
		models.OpPlaceImage: {
			Tiers: []models.TierSpec{
				{Name: models.TierNormal, FreeCap: photoFreeCap},
			},
		},
	}
}

func prefixed(prefix string, fields []string) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = prefix + f
	}
	return out
}
