package mapping

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"estatemap/internal/database"
	"estatemap/internal/models"
	"estatemap/internal/testsupport"
)

// MockResolver is a mock implementation of Resolver
type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) Resolve(ctx context.Context, name, district string) (*models.Place, error) {
	args := m.Called(ctx, name, district)
	p, _ := args.Get(0).(*models.Place)
	return p, args.Error(1)
}

// MockMaterializer is a mock implementation of Materializer
type MockMaterializer struct {
	mock.Mock
}

func (m *MockMaterializer) GetOrCreate(ctx context.Context, p *models.Place) (*models.EstateBuilding, error) {
	args := m.Called(ctx, p)
	b, _ := args.Get(0).(*models.EstateBuilding)
	return b, args.Error(1)
}

type recordingPhotos struct {
	places []string
	err    error
}

func (r *recordingPhotos) DownloadPhotos(ctx context.Context, p *models.Place) error {
	r.places = append(r.places, p.ID)
	return r.err
}

func loadProperty(t *testing.T, store *database.SQLStore, sourceID string) models.Property {
	t.Helper()
	var p models.Property
	require.NoError(t, store.DB().Where("source_id = ?", sourceID).Take(&p).Error)
	return p
}

func seedProperties(t *testing.T, store *database.SQLStore, props ...models.Property) {
	t.Helper()
	for i := range props {
		props[i].Status = models.StatusDataExtracted
	}
	require.NoError(t, store.InsertProperties(context.Background(), props))
}

func TestProcessBatchOutcomes(t *testing.T) {
	store := testsupport.NewStore(t)
	seedProperties(t, store,
		models.Property{SourceID: "a", EstateOrBuildingName: "Sunshine Court", District: "Sha Tin"},
		models.Property{SourceID: "b", EstateOrBuildingName: "Nowhere"},
		models.Property{SourceID: "c", EstateOrBuildingName: "  "},
		models.Property{SourceID: "d", EstateOrBuildingName: "Broken Tower"},
	)

	sunshine := &models.Place{ID: "p1", DisplayName: models.LocalizedText{Text: "Sunshine Court"}}
	broken := &models.Place{ID: "p2"}

	resolver := new(MockResolver)
	resolver.On("Resolve", mock.Anything, "Sunshine Court", "Sha Tin").Return(sunshine, nil)
	resolver.On("Resolve", mock.Anything, "Nowhere", "").Return(nil, nil)
	resolver.On("Resolve", mock.Anything, "Broken Tower", "").Return(broken, nil)

	buildings := new(MockMaterializer)
	buildings.On("GetOrCreate", mock.Anything, sunshine).Return(&models.EstateBuilding{ID: "p1", PlaceID: "p1"}, nil)
	buildings.On("GetOrCreate", mock.Anything, broken).Return(nil, errors.New("insert failed"))

	photos := &recordingPhotos{err: errors.New("quota")}
	driver := NewDriver(store, resolver, buildings, photos, Config{BatchSize: 10, DownloadPhotos: true}, nil)

	result, err := driver.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, BatchResult{Processed: 4, Mapped: 1, NotFound: 2, Failed: 1}, result)

	a := loadProperty(t, store, "a")
	assert.Equal(t, models.StatusMapped, a.Status)
	assert.Equal(t, "p1", a.EstateBuildingID)

	assert.Equal(t, models.StatusNotFound, loadProperty(t, store, "b").Status)
	assert.Equal(t, models.StatusNotFound, loadProperty(t, store, "c").Status)

	d := loadProperty(t, store, "d")
	assert.Equal(t, models.StatusMapError, d.Status)
	assert.Equal(t, "insert failed", d.MapError)

	// Photo failures never change the outcome
	assert.Equal(t, []string{"p1"}, photos.places)

	resolver.AssertNotCalled(t, "Resolve", mock.Anything, "", mock.Anything)
	resolver.AssertExpectations(t)
	buildings.AssertExpectations(t)
}

func TestRunHonoursMaxBatches(t *testing.T) {
	store := testsupport.NewStore(t)
	seedProperties(t, store,
		models.Property{SourceID: "1", EstateOrBuildingName: "A"},
		models.Property{SourceID: "2", EstateOrBuildingName: "B"},
		models.Property{SourceID: "3", EstateOrBuildingName: "C"},
	)

	resolver := new(MockResolver)
	resolver.On("Resolve", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)

	driver := NewDriver(store, resolver, new(MockMaterializer), nil, Config{BatchSize: 1, MaxBatches: 2}, nil)
	summary, err := driver.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Batches)
	assert.Equal(t, 2, summary.Processed)
	assert.NotEmpty(t, summary.RunID)

	pending, err := store.PendingProperties(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "3", pending[0].SourceID)
}

func TestRunUntilNothingPending(t *testing.T) {
	store := testsupport.NewStore(t)
	seedProperties(t, store,
		models.Property{SourceID: "1", EstateOrBuildingName: "A"},
		models.Property{SourceID: "2", EstateOrBuildingName: "B"},
		models.Property{SourceID: "3", EstateOrBuildingName: "C"},
	)

	resolver := new(MockResolver)
	resolver.On("Resolve", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)

	driver := NewDriver(store, resolver, new(MockMaterializer), nil, Config{BatchSize: 2}, nil)
	summary, err := driver.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Batches)
	assert.Equal(t, 3, summary.Processed)
	assert.Equal(t, 3, summary.NotFound)
}

func TestRunStopsWhenCancelled(t *testing.T) {
	store := testsupport.NewStore(t)
	seedProperties(t, store,
		models.Property{SourceID: "1", EstateOrBuildingName: "A"},
		models.Property{SourceID: "2", EstateOrBuildingName: "B"},
	)

	ctx, cancel := context.WithCancel(context.Background())
	resolver := new(MockResolver)
	resolver.On("Resolve", mock.Anything, "A", "").Run(func(mock.Arguments) { cancel() }).Return(nil, nil)

	driver := NewDriver(store, resolver, new(MockMaterializer), nil, Config{BatchSize: 10}, nil)
	summary, err := driver.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, summary.Processed)

	pending, err := store.PendingProperties(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "2", pending[0].SourceID)
}

func TestProcessPropertyCancelledResolveIsNotRecorded(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resolver := new(MockResolver)
	resolver.On("Resolve", mock.Anything, "A", "").Return(nil, context.Canceled)

	driver := NewDriver(testsupport.NewStore(t), resolver, new(MockMaterializer), nil, Config{}, nil)
	driver.now = func() time.Time { return time.Unix(0, 0) }
	_, err := driver.ProcessProperty(ctx, models.Property{SourceID: "1", EstateOrBuildingName: "A"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProcessBatchRecordsResolverStoreErrors(t *testing.T) {
	store := testsupport.NewStore(t)
	seedProperties(t, store, models.Property{SourceID: "a", EstateOrBuildingName: "Sunshine Court"})

	resolver := new(MockResolver)
	resolver.On("Resolve", mock.Anything, "Sunshine Court", "").
		Return(nil, errors.New(`search "Sunshine Court": failed to find request: connection refused`))
	buildings := new(MockMaterializer)

	driver := NewDriver(store, resolver, buildings, nil, Config{BatchSize: 10}, nil)
	result, err := driver.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, BatchResult{Processed: 1, Failed: 1}, result)

	a := loadProperty(t, store, "a")
	assert.Equal(t, models.StatusMapError, a.Status)
	assert.Contains(t, a.MapError, "connection refused")
	buildings.AssertNotCalled(t, "GetOrCreate", mock.Anything, mock.Anything)
}
