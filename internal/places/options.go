package places

import "estatemap/internal/models"

// Options is the argument set of one Places operation. The JSON encoding of
// an Options value is what the request cache hashes, so fields that do not
// change the answer (field masks, page sizes) do not belong here.
type Options interface {
	Operation() models.Operation
}

type AutocompleteOptions struct {
	Input                string   `json:"input"`
	IncludedPrimaryTypes []string `json:"includedPrimaryTypes,omitempty"`
	IncludedRegionCodes  []string `json:"includedRegionCodes,omitempty"`
	LanguageCode         string   `json:"languageCode,omitempty"`
}

func (AutocompleteOptions) Operation() models.Operation { return models.OpAutocomplete }

type TextSearchOptions struct {
	TextQuery    string `json:"textQuery"`
	IncludedType string `json:"includedType,omitempty"`
	RegionCode   string `json:"regionCode,omitempty"`
	LanguageCode string `json:"languageCode,omitempty"`
}

func (TextSearchOptions) Operation() models.Operation { return models.OpTextSearch }

type Circle struct {
	Center models.LatLng `json:"center"`
	Radius float64       `json:"radius"`
}

type LocationRestriction struct {
	Circle Circle `json:"circle"`
}

type NearbySearchOptions struct {
	LocationRestriction  LocationRestriction `json:"locationRestriction"`
	IncludedPrimaryTypes []string            `json:"includedPrimaryTypes,omitempty"`
	RegionCode           string              `json:"regionCode,omitempty"`
	LanguageCode         string              `json:"languageCode,omitempty"`
}

func (NearbySearchOptions) Operation() models.Operation { return models.OpNearbySearch }

type PlaceDetailsOptions struct {
	PlaceID      string `json:"place_id"`
	RegionCode   string `json:"regionCode,omitempty"`
	LanguageCode string `json:"languageCode,omitempty"`
}

func (PlaceDetailsOptions) Operation() models.Operation { return models.OpPlaceDetails }

// PlaceImageOptions asks for one photo. Sizes above MaxPhotoPx are clamped.
type PlaceImageOptions struct {
	Name        string `json:"name"`
	MaxHeightPx int    `json:"heightPx"`
	MaxWidthPx  int    `json:"widthPx"`
}

func (PlaceImageOptions) Operation() models.Operation { return models.OpPlaceImage }
