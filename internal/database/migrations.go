package database

import (
	"fmt"

	"estatemap/internal/models"
)

// RunMigrations creates or updates every table and index the store uses
func (s *SQLStore) RunMigrations() error {
	err := s.db.AutoMigrate(
		&models.CachedRequest{},
		&models.Place{},
		&models.EstateBuilding{},
		&models.Property{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}
