package models

import (
	"encoding/json"
	"time"
)

// CachedRequest is one live Places call, keyed by the hash of its
// operation and canonical options. Rows are written once and never updated.
type CachedRequest struct {
	Hash        string          `json:"hash" gorm:"primaryKey"`
	Operation   Operation       `json:"operation" gorm:"index:idx_place_requests_usage,priority:1"`
	Options     json.RawMessage `json:"options"`
	Tier        Tier            `json:"tier"`
	RequestedAt time.Time       `json:"requested_at" gorm:"index:idx_place_requests_usage,priority:2"`
	Result      json.RawMessage `json:"result"`
}

func (CachedRequest) TableName() string {
	return "place_requests"
}
