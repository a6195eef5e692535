package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"estatemap/config"
	"estatemap/internal/blobstore"
	"estatemap/internal/building"
	"estatemap/internal/database"
	"estatemap/internal/place"
	"estatemap/internal/places"
	"estatemap/internal/quota"
	"estatemap/internal/requestcache"
	"estatemap/internal/resolver"
)

// app holds the wired lookup stack shared by every command
type app struct {
	cfg       *config.Config
	region    config.Region
	store     database.Store
	selector  *quota.Selector
	places    *place.Service
	resolver  *resolver.Resolver
	buildings *building.Materializer
	logger    *logrus.Logger
}

// newApp opens the store and builds the stack on top of it. withClient is
// false for commands that never call Places, so they run without an API key.
func newApp(ctx context.Context, cfg *config.Config, logger *logrus.Logger, withClient bool) (*app, error) {
	region := config.GetRegionByName(cfg.Mapping.Region)
	if region == nil {
		return nil, fmt.Errorf("unknown region: %s", cfg.Mapping.Region)
	}

	store, err := database.Open(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	selector := quota.NewSelector(quota.NewTracker(store, cfg.QuotaLocation()), config.GetTierTable, logger)
	a := &app{
		cfg:       cfg,
		region:    *region,
		store:     store,
		selector:  selector,
		buildings: building.NewMaterializer(store, region.LanguageCode, logger),
		logger:    logger,
	}
	if !withClient {
		return a, nil
	}

	client, err := places.NewClient(places.Config{
		BaseURL: cfg.Places.BaseURL,
		APIKey:  cfg.Places.APIKey,
		Timeout: cfg.Places.Timeout,
	}, logger)
	if err != nil {
		store.Close()
		return nil, err
	}

	uploader, err := blobstore.NewDirUploader(cfg.Photos.BlobDir, cfg.Photos.BlobBaseURL)
	if err != nil {
		store.Close()
		return nil, err
	}

	a.places = place.NewService(client, requestcache.New(store, logger), selector, store, uploader, place.Config{
		RegionCode:   region.RegionCode,
		LanguageCode: region.LanguageCode,
		MaxPhotos:    cfg.Photos.MaxPerPlace,
	}, logger)
	a.resolver = resolver.NewResolver(a.places, resolver.Config{
		Country:             region.Country,
		RegionCode:          region.RegionCode,
		LanguageCode:        region.LanguageCode,
		AllowedPrimaryTypes: cfg.Mapping.AllowedPrimaryTypes,
	}, logger)
	return a, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.WithError(err).Warn("Failed to close store")
	}
}
