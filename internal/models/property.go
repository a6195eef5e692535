package models

import "time"

type PropertyStatus string

const (
	StatusDataExtracted PropertyStatus = "data_extracted"
	StatusMapped        PropertyStatus = "mapped_to_estate_building"
	StatusNotFound      PropertyStatus = "estate_building_not_found"
	StatusMapError      PropertyStatus = "estate_building_map_error"
)

// Property is the slice of a scraped listing the mapping run needs
type Property struct {
	SourceID             string         `json:"source_id" gorm:"primaryKey"`
	EstateOrBuildingName string         `json:"estate_or_building_name"`
	District             string         `json:"district"`
	Status               PropertyStatus `json:"status" gorm:"index"`
	EstateBuildingID     string         `json:"estate_building_id,omitempty"`
	MapError             string         `json:"map_error,omitempty"`
	UpdatedAt            time.Time      `json:"updated_at"`
}

func (Property) TableName() string {
	return "props"
}

// PropertyUpdate is the outcome recorded for one property
type PropertyUpdate struct {
	Status           PropertyStatus
	EstateBuildingID string
	MapError         string
	UpdatedAt        time.Time
}
