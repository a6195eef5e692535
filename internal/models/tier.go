package models

// Operation identifies one Places API call type
type Operation string

const (
	OpAutocomplete Operation = "autocomplete"
	OpTextSearch   Operation = "text_search"
	OpNearbySearch Operation = "nearby_search"
	OpPlaceDetails Operation = "place_details"
	OpPlaceImage   Operation = "place_image"
)

// Operations lists every operation in a stable order
var Operations = []Operation{
	OpAutocomplete,
	OpTextSearch,
	OpNearbySearch,
	OpPlaceDetails,
	OpPlaceImage,
}

// Valid reports whether op is a known operation
func (op Operation) Valid() bool {
	for _, known := range Operations {
		if op == known {
			return true
		}
	}
	return false
}

// Tier is the pricing level charged for a live call
type Tier string

const (
	TierNone                 Tier = ""
	TierEssentialsIDOnly     Tier = "essentials_id_only"
	TierEssentials           Tier = "essentials"
	TierNormal               Tier = "normal"
	TierPro                  Tier = "pro"
	TierEnterprise           Tier = "enterprise"
	TierEnterpriseAtmosphere Tier = "enterprise_atmosphere"
)

// TierSpec is one row of a tier table. Fields are incremental: a tier's
// field mask is the union of its own fields and those of every cheaper tier.
type TierSpec struct {
	Name    Tier     `toml:"name" json:"name"`
	FreeCap int      `toml:"free_cap" json:"free_cap"`
	Fields  []string `toml:"fields" json:"fields"`
}

// TierTable holds the tiers of one operation ordered from cheapest to richest.
// Tiers[0] is the floor: its fields are always requested.
type TierTable struct {
	Tiers []TierSpec `toml:"tiers" json:"tiers"`

	// Degradable operations switch to a cheaper operation instead of
	// charging the floor tier once every paid tier is at its cap.
	Degradable bool `toml:"degradable" json:"degradable"`
}

// Floor returns the cheapest tier of the table
func (t TierTable) Floor() (TierSpec, bool) {
	if len(t.Tiers) == 0 {
		return TierSpec{}, false
	}
	return t.Tiers[0], true
}

// Usage counts live calls per tier inside a quota window
type Usage map[Tier]int
