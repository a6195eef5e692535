package building

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/language"

	"estatemap/internal/database"
	"estatemap/internal/logging"
	"estatemap/internal/models"
	"estatemap/internal/place"
)

// Materializer turns resolved places into estate building records, at most
// one per place id.
type Materializer struct {
	store       database.BuildingStore
	defaultLang language.Tag
	logger      *logrus.Logger
	now         func() time.Time
}

// NewMaterializer keys names without a usable language code under
// defaultLanguage.
func NewMaterializer(store database.BuildingStore, defaultLanguage string, logger *logrus.Logger) *Materializer {
	tag, err := language.Parse(defaultLanguage)
	if err != nil {
		tag = language.English
	}
	return &Materializer{
		store:       store,
		defaultLang: tag,
		logger:      logging.OrDiscard(logger),
		now:         time.Now,
	}
}

func (m *Materializer) GetByPlaceID(ctx context.Context, placeID string) (*models.EstateBuilding, error) {
	return m.store.GetBuildingByPlaceID(ctx, placeID)
}

// GetOrCreate returns the building of p, creating it on first sight
func (m *Materializer) GetOrCreate(ctx context.Context, p *models.Place) (*models.EstateBuilding, error) {
	if p.ID == "" {
		return nil, place.ErrMissingPlaceID
	}

	existing, err := m.store.GetBuildingByPlaceID(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	return m.Create(ctx, p)
}

// Create inserts the building of p. Losing an insert race to another
// caller returns the winner's record.
func (m *Materializer) Create(ctx context.Context, p *models.Place) (*models.EstateBuilding, error) {
	if p.ID == "" {
		return nil, place.ErrMissingPlaceID
	}

	now := m.now()
	building := &models.EstateBuilding{
		ID:               p.ID,
		PlaceID:          p.ID,
		Name:             map[string]string{},
		FormattedAddress: p.FormattedAddress,
		Types:            p.Types,
		PrimaryType:      p.PrimaryType,
		Regions:          p.Regions(),
		Location:         p.Location,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if p.DisplayName.Text != "" {
		building.Name[m.languageKey(p.DisplayName.LanguageCode)] = p.DisplayName.Text
	}

	err := m.store.InsertBuilding(ctx, building)
	if errors.Is(err, database.ErrDuplicate) {
		existing, ferr := m.store.GetBuildingByPlaceID(ctx, p.ID)
		if ferr != nil {
			return nil, ferr
		}
		if existing == nil {
			return nil, fmt.Errorf("building for place %s vanished after duplicate insert", p.ID)
		}
		return existing, nil
	}
	if err != nil {
		return nil, err
	}

	m.logger.WithFields(logrus.Fields{
		"building_id": building.ID,
		"name":        p.DisplayName.Text,
	}).Info("Created estate building")
	return building, nil
}

// languageKey canonicalises a BCP 47 code, e.g. "zh-hk" becomes "zh-HK"
func (m *Materializer) languageKey(code string) string {
	if code == "" {
		return m.defaultLang.String()
	}
	tag, err := language.Parse(code)
	if err != nil {
		return m.defaultLang.String()
	}
	return tag.String()
}
