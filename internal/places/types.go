package places

import (
	"encoding/json"
	"fmt"

	"estatemap/internal/models"
)

// SearchResponse is the payload of text and nearby searches
type SearchResponse struct {
	Places        []models.Place `json:"places"`
	NextPageToken string         `json:"nextPageToken,omitempty"`
}

type AutocompleteResponse struct {
	Suggestions []Suggestion `json:"suggestions"`
}

type Suggestion struct {
	PlacePrediction *PlacePrediction `json:"placePrediction,omitempty"`
}

type PlacePrediction struct {
	Place   string               `json:"place"`
	PlaceID string               `json:"placeId"`
	Text    models.LocalizedText `json:"text"`
}

// PlaceIDs returns the place ids predicted by the suggestions, in order
func (r AutocompleteResponse) PlaceIDs() []string {
	var ids []string
	for _, s := range r.Suggestions {
		if s.PlacePrediction != nil && s.PlacePrediction.PlaceID != "" {
			ids = append(ids, s.PlacePrediction.PlaceID)
		}
	}
	return ids
}

// PhotoMedia is a downloaded place photo
type PhotoMedia struct {
	Data        []byte
	ContentType string
}

func DecodeSearch(raw json.RawMessage) (SearchResponse, error) {
	var resp SearchResponse
	if len(raw) == 0 {
		return resp, nil
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return resp, fmt.Errorf("failed to decode search response: %w", err)
	}
	return resp, nil
}

func DecodeAutocomplete(raw json.RawMessage) (AutocompleteResponse, error) {
	var resp AutocompleteResponse
	if len(raw) == 0 {
		return resp, nil
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return resp, fmt.Errorf("failed to decode autocomplete response: %w", err)
	}
	return resp, nil
}

func DecodePlace(raw json.RawMessage) (models.Place, error) {
	var place models.Place
	if err := json.Unmarshal(raw, &place); err != nil {
		return place, fmt.Errorf("failed to decode place: %w", err)
	}
	return place, nil
}
