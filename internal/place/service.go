package place

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"

	"estatemap/internal/blobstore"
	"estatemap/internal/database"
	"estatemap/internal/logging"
	"estatemap/internal/metrics"
	"estatemap/internal/models"
	"estatemap/internal/places"
	"estatemap/internal/quota"
	"estatemap/internal/requestcache"
)

// ErrMissingPlaceID is returned for API places without an id
var ErrMissingPlaceID = errors.New("missing place id")

var errDegraded = errors.New("no paid tier has quota")

// PlacesAPI is the live Places transport
type PlacesAPI interface {
	Autocomplete(ctx context.Context, opts places.AutocompleteOptions) (json.RawMessage, error)
	TextSearch(ctx context.Context, opts places.TextSearchOptions, fields []string) (json.RawMessage, error)
	NearbySearch(ctx context.Context, opts places.NearbySearchOptions, fields []string) (json.RawMessage, error)
	PlaceDetails(ctx context.Context, opts places.PlaceDetailsOptions, fields []string) (json.RawMessage, error)
	PlaceImage(ctx context.Context, opts places.PlaceImageOptions) (*places.PhotoMedia, error)
}

// SearchOptions narrows text searches and autocomplete
type SearchOptions struct {
	IncludedType string
	RegionCode   string
	LanguageCode string
}

type Config struct {
	// RegionCode and LanguageCode are sent with details and nearby searches
	RegionCode   string
	LanguageCode string

	// MaxPhotos is how many photos DownloadPhotos fetches per place
	MaxPhotos int
}

// Service is the place lookup surface. Every live call goes through the
// request cache with a tier chosen from the remaining monthly quota.
type Service struct {
	api      PlacesAPI
	cache    *requestcache.Cache
	selector *quota.Selector
	store    database.PlaceStore
	uploader blobstore.Uploader
	cfg      Config
	logger   *logrus.Logger
}

func NewService(api PlacesAPI, cache *requestcache.Cache, selector *quota.Selector, store database.PlaceStore,
	uploader blobstore.Uploader, cfg Config, logger *logrus.Logger) *Service {
	return &Service{
		api:      api,
		cache:    cache,
		selector: selector,
		store:    store,
		uploader: uploader,
		cfg:      cfg,
		logger:   logging.OrDiscard(logger),
	}
}

// Search runs a text search. When every paid text search tier is at its
// cap the search is answered by autocomplete plus details instead.
func (s *Service) Search(ctx context.Context, query string, opts SearchOptions) ([]models.Place, error) {
	searchOpts := places.TextSearchOptions{
		TextQuery:    query,
		IncludedType: opts.IncludedType,
		RegionCode:   opts.RegionCode,
		LanguageCode: opts.LanguageCode,
	}

	raw, hit, err := s.cache.Lookup(ctx, searchOpts)
	if err != nil {
		return nil, err
	}
	if hit {
		return s.placesFromCachedSearch(ctx, raw)
	}

	raw, err = s.fetch(ctx, searchOpts, func(ctx context.Context, fields []string) (json.RawMessage, error) {
		return s.api.TextSearch(ctx, searchOpts, fields)
	})
	if errors.Is(err, errDegraded) {
		metrics.DegradedSearchesTotal.Inc()
		s.logger.WithField("query", query).Info("Text search quota exhausted, using autocomplete")
		return s.searchViaAutocomplete(ctx, query, opts)
	}
	if err != nil {
		return nil, err
	}
	return s.placesFromSearch(ctx, raw)
}

// NearbySearch finds places of the given primary types inside a circle
func (s *Service) NearbySearch(ctx context.Context, center orb.Point, radius float64, types []string) ([]models.Place, error) {
	nearbyOpts := places.NearbySearchOptions{
		LocationRestriction: places.LocationRestriction{Circle: places.Circle{
			Center: models.LatLngFromPoint(center),
			Radius: radius,
		}},
		IncludedPrimaryTypes: types,
		RegionCode:           s.cfg.RegionCode,
		LanguageCode:         s.cfg.LanguageCode,
	}

	raw, hit, err := s.cache.Lookup(ctx, nearbyOpts)
	if err != nil {
		return nil, err
	}
	if hit {
		return s.placesFromCachedSearch(ctx, raw)
	}

	raw, err = s.fetch(ctx, nearbyOpts, func(ctx context.Context, fields []string) (json.RawMessage, error) {
		return s.api.NearbySearch(ctx, nearbyOpts, fields)
	})
	if err != nil {
		return nil, err
	}
	return s.placesFromSearch(ctx, raw)
}

// Autocomplete returns the predictions for partial input
func (s *Service) Autocomplete(ctx context.Context, query string, opts SearchOptions) (places.AutocompleteResponse, error) {
	autoOpts := places.AutocompleteOptions{
		Input:        query,
		LanguageCode: opts.LanguageCode,
	}
	if opts.IncludedType != "" {
		autoOpts.IncludedPrimaryTypes = []string{opts.IncludedType}
	}
	if opts.RegionCode != "" {
		autoOpts.IncludedRegionCodes = []string{opts.RegionCode}
	}

	raw, hit, err := s.cache.Lookup(ctx, autoOpts)
	if err != nil {
		return places.AutocompleteResponse{}, err
	}
	if !hit {
		raw, err = s.fetch(ctx, autoOpts, func(ctx context.Context, _ []string) (json.RawMessage, error) {
			return s.api.Autocomplete(ctx, autoOpts)
		})
		if err != nil {
			return places.AutocompleteResponse{}, err
		}
	}
	return places.DecodeAutocomplete(raw)
}

// Details returns a stored place for free, or fetches and stores it
func (s *Service) Details(ctx context.Context, id string) (*models.Place, error) {
	if id == "" {
		return nil, ErrMissingPlaceID
	}

	existing, err := s.store.GetPlace(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	detailsOpts := places.PlaceDetailsOptions{
		PlaceID:      id,
		RegionCode:   s.cfg.RegionCode,
		LanguageCode: s.cfg.LanguageCode,
	}
	raw, err := s.fetch(ctx, detailsOpts, func(ctx context.Context, fields []string) (json.RawMessage, error) {
		return s.api.PlaceDetails(ctx, detailsOpts, fields)
	})
	if err != nil {
		return nil, err
	}

	apiPlace, err := places.DecodePlace(raw)
	if err != nil {
		return nil, err
	}
	if apiPlace.ID == "" {
		apiPlace.ID = id
	}
	return s.CreateOrUpdate(ctx, &apiPlace)
}

// CreateOrUpdate stores an API place. Updates keep the stored photo state.
func (s *Service) CreateOrUpdate(ctx context.Context, apiPlace *models.Place) (*models.Place, error) {
	if apiPlace.ID == "" {
		return nil, ErrMissingPlaceID
	}

	existing, err := s.store.GetPlace(ctx, apiPlace.ID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		err = s.store.InsertPlace(ctx, apiPlace)
		if err == nil {
			return apiPlace, nil
		}
		if !errors.Is(err, database.ErrDuplicate) {
			return nil, err
		}
		existing, err = s.store.GetPlace(ctx, apiPlace.ID)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, fmt.Errorf("place %s vanished after duplicate insert", apiPlace.ID)
		}
	}

	if err := s.store.UpdatePlace(ctx, apiPlace); err != nil {
		return nil, err
	}
	updated := *apiPlace
	updated.PhotoBlobs = existing.PhotoBlobs
	updated.PhotosAttempted = existing.PhotosAttempted
	updated.CreatedAt = existing.CreatedAt
	return &updated, nil
}

// DownloadPhotos stores the first photos of a place once. The whole download
// is skipped while the photo quota cannot cover it; the first failing photo
// ends it and keeps what was stored so far.
func (s *Service) DownloadPhotos(ctx context.Context, p *models.Place) error {
	if p.PhotosAttempted {
		return nil
	}
	if s.uploader == nil {
		return errors.New("no blob uploader configured")
	}

	photos := p.Photos
	if limit := min(s.cfg.MaxPhotos, models.MaxPhotoBlobs); len(photos) > limit {
		photos = photos[:limit]
	}

	log := s.logger.WithField("place_id", p.ID)
	if len(photos) > 0 {
		ok, err := s.selector.Allow(ctx, models.OpPlaceImage, len(photos))
		if err != nil {
			return err
		}
		if !ok {
			log.WithField("photos", len(photos)).Warn("Photo quota exhausted, skipping download")
			return nil
		}
	}

	var blobs []string
	for i, photo := range photos {
		if photo.Name == "" {
			break
		}
		blobURL, err := s.downloadPhoto(ctx, p.ID, i, photo)
		if err != nil {
			log.WithError(err).WithField("photo", photo.Name).Warn("Photo download failed")
			break
		}
		blobs = append(blobs, blobURL)
	}

	if err := s.store.SetPlacePhotos(ctx, p.ID, blobs); err != nil {
		return err
	}
	p.PhotoBlobs = blobs
	p.PhotosAttempted = true
	log.WithField("photos", len(blobs)).Info("Stored place photos")
	return nil
}

type photoResult struct {
	BlobURL string `json:"blob_url"`
}

func (s *Service) downloadPhoto(ctx context.Context, placeID string, index int, photo models.Photo) (string, error) {
	imageOpts := places.PlaceImageOptions{
		Name:        photo.Name,
		MaxHeightPx: places.ClampPhotoPx(photo.HeightPx),
		MaxWidthPx:  places.ClampPhotoPx(photo.WidthPx),
	}

	raw, err := s.fetch(ctx, imageOpts, func(ctx context.Context, _ []string) (json.RawMessage, error) {
		media, err := s.api.PlaceImage(ctx, imageOpts)
		if err != nil {
			return nil, err
		}
		blobURL, err := s.uploader.Upload(ctx, fmt.Sprintf("%s_%d", placeID, index), media.Data, media.ContentType)
		if err != nil {
			return nil, err
		}
		return json.Marshal(photoResult{BlobURL: blobURL})
	})
	if err != nil {
		return "", err
	}

	var result photoResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("failed to decode photo result: %w", err)
	}
	if result.BlobURL == "" {
		return "", errors.New("photo result has no blob url")
	}
	return result.BlobURL, nil
}

// fetch selects a tier for opts and runs call through the request cache.
// A result that could not be persisted is still returned.
func (s *Service) fetch(ctx context.Context, opts places.Options, call func(ctx context.Context, fields []string) (json.RawMessage, error)) (json.RawMessage, error) {
	sel, err := s.selector.Select(ctx, opts.Operation())
	if err != nil {
		return nil, err
	}
	if sel.Degraded {
		return nil, errDegraded
	}

	raw, err := s.cache.Execute(ctx, sel.Tier, opts, func(ctx context.Context) (json.RawMessage, error) {
		return call(ctx, sel.Fields)
	})
	if errors.Is(err, requestcache.ErrNotPersisted) {
		s.logger.WithError(err).WithField("operation", opts.Operation()).Warn("Using unpersisted Places result")
		return raw, nil
	}
	return raw, err
}

func (s *Service) searchViaAutocomplete(ctx context.Context, query string, opts SearchOptions) ([]models.Place, error) {
	resp, err := s.Autocomplete(ctx, query, opts)
	if err != nil {
		return nil, err
	}

	var result []models.Place
	for _, id := range resp.PlaceIDs() {
		p, err := s.Details(ctx, id)
		if err != nil {
			s.logger.WithError(err).WithField("place_id", id).Warn("Failed to fetch suggested place")
			continue
		}
		result = append(result, *p)
	}
	return result, nil
}

func (s *Service) placesFromSearch(ctx context.Context, raw json.RawMessage) ([]models.Place, error) {
	resp, err := places.DecodeSearch(raw)
	if err != nil {
		return nil, err
	}

	var result []models.Place
	for i := range resp.Places {
		p, err := s.CreateOrUpdate(ctx, &resp.Places[i])
		if errors.Is(err, ErrMissingPlaceID) {
			s.logger.Debug("Skipping search result without id")
			continue
		}
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	return result, nil
}

// placesFromCachedSearch returns the stored places of a cached search in the
// order the API returned them, restoring any that are missing.
func (s *Service) placesFromCachedSearch(ctx context.Context, raw json.RawMessage) ([]models.Place, error) {
	resp, err := places.DecodeSearch(raw)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(resp.Places))
	for _, p := range resp.Places {
		if p.ID != "" {
			ids = append(ids, p.ID)
		}
	}
	stored, err := s.store.GetPlaces(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.Place, len(stored))
	for _, p := range stored {
		byID[p.ID] = p
	}

	var result []models.Place
	for i := range resp.Places {
		apiPlace := &resp.Places[i]
		if apiPlace.ID == "" {
			continue
		}
		if p, ok := byID[apiPlace.ID]; ok {
			result = append(result, p)
			continue
		}
		p, err := s.CreateOrUpdate(ctx, apiPlace)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	return result, nil
}
