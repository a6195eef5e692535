package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"estatemap/internal/models"
)

// SQLStore is the gorm/SQLite backend used for local runs and tests
type SQLStore struct {
	db *gorm.DB
}

func NewSQLStore(dbPath string) (*SQLStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// One connection: SQLite has a single writer
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	return &SQLStore{db: db}, nil
}

// DB exposes the underlying gorm handle
func (s *SQLStore) DB() *gorm.DB {
	return s.db
}

func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *SQLStore) FindRequest(ctx context.Context, hash string) (*models.CachedRequest, error) {
	var req models.CachedRequest
	err := s.db.WithContext(ctx).Where("hash = ?", hash).Take(&req).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find request %s: %w", hash, err)
	}
	return &req, nil
}

func (s *SQLStore) InsertRequest(ctx context.Context, req *models.CachedRequest) error {
	// Stored times are compared as text, so they must share one offset
	row := *req
	row.RequestedAt = row.RequestedAt.UTC()
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return translateError("request", err)
	}
	return nil
}

func (s *SQLStore) CountRequestsByTier(ctx context.Context, op models.Operation, from, to time.Time) (models.Usage, error) {
	var rows []struct {
		Tier  models.Tier
		Count int
	}
	err := s.db.WithContext(ctx).
		Model(&models.CachedRequest{}).
		Select("tier, COUNT(*) AS count").
		Where("operation = ? AND requested_at >= ? AND requested_at < ?", op, from.UTC(), to.UTC()).
		Group("tier").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count %s requests: %w", op, err)
	}

	usage := models.Usage{}
	for _, r := range rows {
		usage[r.Tier] = r.Count
	}
	return usage, nil
}

func (s *SQLStore) GetPlace(ctx context.Context, id string) (*models.Place, error) {
	var place models.Place
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&place).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get place %s: %w", id, err)
	}
	return &place, nil
}

// GetPlaces returns the stored places among ids, in no particular order
func (s *SQLStore) GetPlaces(ctx context.Context, ids []string) ([]models.Place, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var places []models.Place
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&places).Error; err != nil {
		return nil, fmt.Errorf("failed to get places: %w", err)
	}
	return places, nil
}

func (s *SQLStore) InsertPlace(ctx context.Context, place *models.Place) error {
	if err := s.db.WithContext(ctx).Create(place).Error; err != nil {
		return translateError("place", err)
	}
	return nil
}

func (s *SQLStore) UpdatePlace(ctx context.Context, place *models.Place) error {
	result := s.db.WithContext(ctx).
		Model(&models.Place{}).
		Where("id = ?", place.ID).
		Select("display_name", "formatted_address", "types", "primary_type",
			"location", "address_components", "photos", "updated_at").
		Updates(place)
	if result.Error != nil {
		return fmt.Errorf("failed to update place %s: %w", place.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) SetPlacePhotos(ctx context.Context, id string, blobs []string) error {
	result := s.db.WithContext(ctx).
		Model(&models.Place{}).
		Where("id = ?", id).
		Select("photo_blobs", "photos_attempted", "updated_at").
		Updates(&models.Place{PhotoBlobs: blobs, PhotosAttempted: true, UpdatedAt: time.Now()})
	if result.Error != nil {
		return fmt.Errorf("failed to set photos of place %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) GetBuildingByPlaceID(ctx context.Context, placeID string) (*models.EstateBuilding, error) {
	var building models.EstateBuilding
	err := s.db.WithContext(ctx).Where("place_id = ?", placeID).Take(&building).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get building for place %s: %w", placeID, err)
	}
	return &building, nil
}

func (s *SQLStore) InsertBuilding(ctx context.Context, building *models.EstateBuilding) error {
	if err := s.db.WithContext(ctx).Create(building).Error; err != nil {
		return translateError("building", err)
	}
	return nil
}

// InsertProperties stores extracted listings in one transaction
func (s *SQLStore) InsertProperties(ctx context.Context, props []models.Property) error {
	if len(props) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&props).Error; err != nil {
			return translateError("properties", err)
		}
		return nil
	})
}

func (s *SQLStore) PendingProperties(ctx context.Context, limit int) ([]models.Property, error) {
	var props []models.Property
	err := s.db.WithContext(ctx).
		Where("status = ?", models.StatusDataExtracted).
		Order("source_id").
		Limit(limit).
		Find(&props).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load pending properties: %w", err)
	}
	return props, nil
}

func (s *SQLStore) UpdateProperty(ctx context.Context, sourceID string, update models.PropertyUpdate) error {
	fields := map[string]interface{}{
		"status":     update.Status,
		"updated_at": update.UpdatedAt,
	}
	if update.EstateBuildingID != "" {
		fields["estate_building_id"] = update.EstateBuildingID
	}
	if update.MapError != "" {
		fields["map_error"] = update.MapError
	}

	result := s.db.WithContext(ctx).Model(&models.Property{}).Where("source_id = ?", sourceID).Updates(fields)
	if result.Error != nil {
		return fmt.Errorf("failed to update property %s: %w", sourceID, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func translateError(entity string, err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%s: %w", entity, ErrDuplicate)
	}
	return fmt.Errorf("failed to insert %s: %w", entity, err)
}
