package models

import "time"

// EstateBuilding is the canonical building record derived from a place.
// There is at most one per place id.
type EstateBuilding struct {
	ID               string             `json:"id" bson:"id" gorm:"primaryKey"`
	PlaceID          string             `json:"place_id" bson:"place_id" gorm:"uniqueIndex"`
	Name             map[string]string  `json:"name" bson:"name" gorm:"serializer:json"`
	FormattedAddress string             `json:"formatted_address" bson:"formatted_address"`
	Types            []string           `json:"types" bson:"types" gorm:"serializer:json"`
	PrimaryType      string             `json:"primary_type" bson:"primary_type"`
	Regions          []AddressComponent `json:"regions" bson:"regions" gorm:"serializer:json"`
	Location         LatLng             `json:"location" bson:"location" gorm:"serializer:json"`
	CreatedAt        time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at" bson:"updated_at"`
}

func (EstateBuilding) TableName() string {
	return "estate_buildings"
}
