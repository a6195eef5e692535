package models

import (
	"time"

	"github.com/paulmach/orb"
)

// RegionTypes are place types describing an area rather than a building
var RegionTypes = []string{
	"locality",
	"sublocality",
	"postal_code",
	"country",
	"administrative_area_level_1",
	"administrative_area_level_2",
	"administrative_area_level_3",
}

// LocalizedText is a Places API text value with its language
type LocalizedText struct {
	Text         string `json:"text" bson:"text"`
	LanguageCode string `json:"languageCode,omitempty" bson:"language_code,omitempty"`
}

type LatLng struct {
	Latitude  float64 `json:"latitude" bson:"latitude"`
	Longitude float64 `json:"longitude" bson:"longitude"`
}

// Point converts the location to an orb point (lng, lat order)
func (l LatLng) Point() orb.Point {
	return orb.Point{l.Longitude, l.Latitude}
}

// LatLngFromPoint converts an orb point back to a LatLng
func LatLngFromPoint(p orb.Point) LatLng {
	return LatLng{Latitude: p.Lat(), Longitude: p.Lon()}
}

type AddressComponent struct {
	LongText     string   `json:"longText" bson:"long_text"`
	ShortText    string   `json:"shortText,omitempty" bson:"short_text,omitempty"`
	Types        []string `json:"types" bson:"types"`
	LanguageCode string   `json:"languageCode,omitempty" bson:"language_code,omitempty"`
}

// Photo references a place photo resource, not the image itself
type Photo struct {
	Name     string `json:"name" bson:"name"`
	WidthPx  int    `json:"widthPx,omitempty" bson:"width_px,omitempty"`
	HeightPx int    `json:"heightPx,omitempty" bson:"height_px,omitempty"`
}

// MaxPhotoBlobs bounds how many photos are stored per place
const MaxPhotoBlobs = 3

// Place is a resolved Places API record. The JSON tags follow the Places
// API v1 payload so responses decode straight into it.
type Place struct {
	ID                string             `json:"id" bson:"id" gorm:"primaryKey"`
	DisplayName       LocalizedText      `json:"displayName" bson:"display_name" gorm:"serializer:json"`
	FormattedAddress  string             `json:"formattedAddress,omitempty" bson:"formatted_address"`
	Types             []string           `json:"types,omitempty" bson:"types" gorm:"serializer:json"`
	PrimaryType       string             `json:"primaryType,omitempty" bson:"primary_type"`
	Location          LatLng             `json:"location" bson:"location" gorm:"serializer:json"`
	AddressComponents []AddressComponent `json:"addressComponents,omitempty" bson:"address_components" gorm:"serializer:json"`
	Photos            []Photo            `json:"photos,omitempty" bson:"photos" gorm:"serializer:json"`
	PhotoBlobs        []string           `json:"photoBlobs,omitempty" bson:"photo_blobs,omitempty" gorm:"serializer:json"`
	PhotosAttempted   bool               `json:"photosAttempted,omitempty" bson:"photos_attempted"`
	CreatedAt         time.Time          `json:"createdAt,omitempty" bson:"created_at"`
	UpdatedAt         time.Time          `json:"updatedAt,omitempty" bson:"updated_at"`
}

func (Place) TableName() string {
	return "places"
}

// IsRegion reports whether any of the place types marks a geographic area
func (p *Place) IsRegion() bool {
	return hasRegionType(p.Types)
}

// Regions returns the address components that describe areas
func (p *Place) Regions() []AddressComponent {
	var regions []AddressComponent
	for _, c := range p.AddressComponents {
		if hasRegionType(c.Types) {
			regions = append(regions, c)
		}
	}
	return regions
}

func hasRegionType(types []string) bool {
	for _, t := range types {
		for _, r := range RegionTypes {
			if t == r {
				return true
			}
		}
	}
	return false
}
