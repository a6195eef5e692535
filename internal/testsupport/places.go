package testsupport

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"estatemap/internal/models"
	"estatemap/internal/places"
)

// FakePlaces answers Places calls from canned JSON payloads and counts the
// calls per operation. Unknown queries answer with an empty result.
type FakePlaces struct {
	mu sync.Mutex

	// Search and autocomplete payloads are keyed by query, details by id
	SearchResults       map[string]string
	AutocompleteResults map[string]string
	NearbyResult        string
	DetailsResults      map[string]string

	// Errors keyed by operation, then by query or id ("*" matches all)
	Errors map[models.Operation]map[string]error

	Photo *places.PhotoMedia

	calls  map[models.Operation]int
	fields map[models.Operation][]string
	asked  []string
}

func NewFakePlaces() *FakePlaces {
	return &FakePlaces{
		SearchResults:       map[string]string{},
		AutocompleteResults: map[string]string{},
		DetailsResults:      map[string]string{},
		Errors:              map[models.Operation]map[string]error{},
		Photo:               &places.PhotoMedia{Data: []byte("jpeg"), ContentType: "image/jpeg"},
		calls:               map[models.Operation]int{},
		fields:              map[models.Operation][]string{},
	}
}

// Fail makes op fail for key ("*" for every key)
func (f *FakePlaces) Fail(op models.Operation, key string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Errors[op] == nil {
		f.Errors[op] = map[string]error{}
	}
	f.Errors[op][key] = err
}

// Calls returns how many times op was called
func (f *FakePlaces) Calls(op models.Operation) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// Fields returns the field mask of the last call of op
func (f *FakePlaces) Fields(op models.Operation) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fields[op]
}

// Queries returns every text query and autocomplete input in call order
func (f *FakePlaces) Queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.asked...)
}

func (f *FakePlaces) record(op models.Operation, key string, fields []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	f.fields[op] = fields
	if op == models.OpTextSearch || op == models.OpAutocomplete {
		f.asked = append(f.asked, key)
	}
	if errs := f.Errors[op]; errs != nil {
		if err, ok := errs[key]; ok {
			return err
		}
		if err, ok := errs["*"]; ok {
			return err
		}
	}
	return nil
}

func (f *FakePlaces) TextSearch(ctx context.Context, opts places.TextSearchOptions, fields []string) (json.RawMessage, error) {
	if err := f.record(models.OpTextSearch, opts.TextQuery, fields); err != nil {
		return nil, err
	}
	return payload(f.SearchResults[opts.TextQuery], `{}`), nil
}

func (f *FakePlaces) Autocomplete(ctx context.Context, opts places.AutocompleteOptions) (json.RawMessage, error) {
	if err := f.record(models.OpAutocomplete, opts.Input, nil); err != nil {
		return nil, err
	}
	return payload(f.AutocompleteResults[opts.Input], `{}`), nil
}

func (f *FakePlaces) NearbySearch(ctx context.Context, opts places.NearbySearchOptions, fields []string) (json.RawMessage, error) {
	if err := f.record(models.OpNearbySearch, "", fields); err != nil {
		return nil, err
	}
	return payload(f.NearbyResult, `{}`), nil
}

func (f *FakePlaces) PlaceDetails(ctx context.Context, opts places.PlaceDetailsOptions, fields []string) (json.RawMessage, error) {
	if err := f.record(models.OpPlaceDetails, opts.PlaceID, fields); err != nil {
		return nil, err
	}
	body, ok := f.DetailsResults[opts.PlaceID]
	if !ok {
		return nil, &places.APIError{Operation: string(models.OpPlaceDetails), StatusCode: 404, Body: "not found"}
	}
	return json.RawMessage(body), nil
}

func (f *FakePlaces) PlaceImage(ctx context.Context, opts places.PlaceImageOptions) (*places.PhotoMedia, error) {
	if err := f.record(models.OpPlaceImage, opts.Name, nil); err != nil {
		return nil, err
	}
	if f.Photo == nil {
		return nil, errors.New("no photo configured")
	}
	return f.Photo, nil
}

func payload(body, fallback string) json.RawMessage {
	if body == "" {
		return json.RawMessage(fallback)
	}
	return json.RawMessage(body)
}
