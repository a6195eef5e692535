package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"estatemap/internal/models"
)

const (
	requestsCollection  = "place_requests"
	placesCollection    = "places"
	buildingsCollection = "estate_buildings"
	propsCollection     = "props"
)

// MongoStore is the production backend shared with the scraping pipeline
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}
	return &MongoStore{client: client, db: client.Database(database)}, nil
}

// RunMigrations creates the unique and lookup indexes
func (s *MongoStore) RunMigrations(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		requestsCollection: {
			{Keys: bson.D{{Key: "hash", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "operation", Value: 1}, {Key: "requested_at", Value: 1}}},
		},
		placesCollection: {
			{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		buildingsCollection: {
			{Keys: bson.D{{Key: "place_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		propsCollection: {
			{Keys: bson.D{{Key: "status", Value: 1}}},
		},
	}
	for coll, idx := range indexes {
		if _, err := s.db.Collection(coll).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("failed to create %s indexes: %w", coll, err)
		}
	}
	return nil
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

type requestDoc struct {
	Hash        string    `bson:"hash"`
	Operation   string    `bson:"operation"`
	Options     bson.D    `bson:"options"`
	Tier        string    `bson:"tier"`
	RequestedAt time.Time `bson:"requested_at"`
	Result      bson.D    `bson:"result"`
}

func newRequestDoc(req *models.CachedRequest) (*requestDoc, error) {
	opts, err := jsonToDocument(req.Options)
	if err != nil {
		return nil, fmt.Errorf("options: %w", err)
	}
	result, err := jsonToDocument(req.Result)
	if err != nil {
		return nil, fmt.Errorf("result: %w", err)
	}
	return &requestDoc{
		Hash:        req.Hash,
		Operation:   string(req.Operation),
		Options:     opts,
		Tier:        string(req.Tier),
		RequestedAt: req.RequestedAt.UTC(),
		Result:      result,
	}, nil
}

func (d *requestDoc) toModel() (*models.CachedRequest, error) {
	opts, err := documentToJSON(d.Options)
	if err != nil {
		return nil, fmt.Errorf("options: %w", err)
	}
	result, err := documentToJSON(d.Result)
	if err != nil {
		return nil, fmt.Errorf("result: %w", err)
	}
	return &models.CachedRequest{
		Hash:        d.Hash,
		Operation:   models.Operation(d.Operation),
		Options:     opts,
		Tier:        models.Tier(d.Tier),
		RequestedAt: d.RequestedAt,
		Result:      result,
	}, nil
}

// jsonToDocument stores a JSON object as a native document so it stays
// queryable from the shell
func jsonToDocument(raw json.RawMessage) (bson.D, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var doc bson.D
	if err := bson.UnmarshalExtJSON(raw, false, &doc); err != nil {
		return nil, fmt.Errorf("failed to convert JSON to document: %w", err)
	}
	return doc, nil
}

func documentToJSON(doc bson.D) (json.RawMessage, error) {
	if doc == nil {
		return nil, nil
	}
	data, err := bson.MarshalExtJSON(doc, false, false)
	if err != nil {
		return nil, fmt.Errorf("failed to convert document to JSON: %w", err)
	}
	return json.RawMessage(data), nil
}

func (s *MongoStore) FindRequest(ctx context.Context, hash string) (*models.CachedRequest, error) {
	var doc requestDoc
	err := s.db.Collection(requestsCollection).FindOne(ctx, bson.M{"hash": hash}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find request %s: %w", hash, err)
	}
	return doc.toModel()
}

func (s *MongoStore) InsertRequest(ctx context.Context, req *models.CachedRequest) error {
	doc, err := newRequestDoc(req)
	if err != nil {
		return fmt.Errorf("failed to encode request %s: %w", req.Hash, err)
	}
	if _, err := s.db.Collection(requestsCollection).InsertOne(ctx, doc); err != nil {
		return translateMongoError("request", err)
	}
	return nil
}

func (s *MongoStore) CountRequestsByTier(ctx context.Context, op models.Operation, from, to time.Time) (models.Usage, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{
			{Key: "operation", Value: string(op)},
			{Key: "requested_at", Value: bson.D{
				{Key: "$gte", Value: from.UTC()},
				{Key: "$lt", Value: to.UTC()},
			}},
		}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$tier"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}

	cursor, err := s.db.Collection(requestsCollection).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to count %s requests: %w", op, err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Tier  string `bson:"_id"`
		Count int    `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode %s usage: %w", op, err)
	}

	usage := models.Usage{}
	for _, r := range rows {
		usage[models.Tier(r.Tier)] = r.Count
	}
	return usage, nil
}

func (s *MongoStore) GetPlace(ctx context.Context, id string) (*models.Place, error) {
	var place models.Place
	err := s.db.Collection(placesCollection).FindOne(ctx, bson.M{"id": id}).Decode(&place)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get place %s: %w", id, err)
	}
	return &place, nil
}

func (s *MongoStore) GetPlaces(ctx context.Context, ids []string) ([]models.Place, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cursor, err := s.db.Collection(placesCollection).Find(ctx, bson.M{"id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("failed to get places: %w", err)
	}
	defer cursor.Close(ctx)

	var places []models.Place
	if err := cursor.All(ctx, &places); err != nil {
		return nil, fmt.Errorf("failed to decode places: %w", err)
	}
	return places, nil
}

func (s *MongoStore) InsertPlace(ctx context.Context, place *models.Place) error {
	now := time.Now()
	if place.CreatedAt.IsZero() {
		place.CreatedAt = now
	}
	if place.UpdatedAt.IsZero() {
		place.UpdatedAt = now
	}
	if _, err := s.db.Collection(placesCollection).InsertOne(ctx, place); err != nil {
		return translateMongoError("place", err)
	}
	return nil
}

func (s *MongoStore) UpdatePlace(ctx context.Context, place *models.Place) error {
	update := bson.M{"$set": bson.M{
		"display_name":       place.DisplayName,
		"formatted_address":  place.FormattedAddress,
		"types":              place.Types,
		"primary_type":       place.PrimaryType,
		"location":           place.Location,
		"address_components": place.AddressComponents,
		"photos":             place.Photos,
		"updated_at":         time.Now(),
	}}
	result, err := s.db.Collection(placesCollection).UpdateOne(ctx, bson.M{"id": place.ID}, update)
	if err != nil {
		return fmt.Errorf("failed to update place %s: %w", place.ID, err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) SetPlacePhotos(ctx context.Context, id string, blobs []string) error {
	update := bson.M{"$set": bson.M{
		"photo_blobs":      blobs,
		"photos_attempted": true,
		"updated_at":       time.Now(),
	}}
	result, err := s.db.Collection(placesCollection).UpdateOne(ctx, bson.M{"id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to set photos of place %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) GetBuildingByPlaceID(ctx context.Context, placeID string) (*models.EstateBuilding, error) {
	var building models.EstateBuilding
	err := s.db.Collection(buildingsCollection).FindOne(ctx, bson.M{"place_id": placeID}).Decode(&building)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get building for place %s: %w", placeID, err)
	}
	return &building, nil
}

func (s *MongoStore) InsertBuilding(ctx context.Context, building *models.EstateBuilding) error {
	if _, err := s.db.Collection(buildingsCollection).InsertOne(ctx, building); err != nil {
		return translateMongoError("building", err)
	}
	return nil
}

// propertyDoc is the subset of a scraped listing document the mapping run
// reads and writes. Extraction output lives under v1_extracted_data.
type propertyDoc struct {
	SourceID  string `bson:"source_id"`
	Status    string `bson:"status"`
	Extracted struct {
		EstateOrBuildingName string `bson:"estate_or_building_name"`
		District             string `bson:"district"`
	} `bson:"v1_extracted_data"`
	EstateBuildingID string    `bson:"estate_building_id,omitempty"`
	MapError         string    `bson:"estate_building_map_error,omitempty"`
	UpdatedAt        time.Time `bson:"updated_at"`
}

func newPropertyDoc(p models.Property) propertyDoc {
	doc := propertyDoc{
		SourceID:         p.SourceID,
		Status:           string(p.Status),
		EstateBuildingID: p.EstateBuildingID,
		MapError:         p.MapError,
		UpdatedAt:        p.UpdatedAt,
	}
	doc.Extracted.EstateOrBuildingName = p.EstateOrBuildingName
	doc.Extracted.District = p.District
	return doc
}

func (d propertyDoc) toModel() models.Property {
	return models.Property{
		SourceID:             d.SourceID,
		EstateOrBuildingName: d.Extracted.EstateOrBuildingName,
		District:             d.Extracted.District,
		Status:               models.PropertyStatus(d.Status),
		EstateBuildingID:     d.EstateBuildingID,
		MapError:             d.MapError,
		UpdatedAt:            d.UpdatedAt,
	}
}

func (s *MongoStore) InsertProperties(ctx context.Context, props []models.Property) error {
	if len(props) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(props))
	for _, p := range props {
		docs = append(docs, newPropertyDoc(p))
	}
	opts := options.InsertMany().SetOrdered(false)
	if _, err := s.db.Collection(propsCollection).InsertMany(ctx, docs, opts); err != nil {
		return translateBatchError("properties", err)
	}
	return nil
}

func (s *MongoStore) PendingProperties(ctx context.Context, limit int) ([]models.Property, error) {
	opts := options.Find().
		SetLimit(int64(limit)).
		SetSort(bson.D{{Key: "source_id", Value: 1}}).
		SetProjection(bson.M{
			"source_id":         1,
			"status":            1,
			"v1_extracted_data": 1,
			"updated_at":        1,
		})
	cursor, err := s.db.Collection(propsCollection).Find(ctx, bson.M{"status": string(models.StatusDataExtracted)}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending properties: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []propertyDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode pending properties: %w", err)
	}
	props := make([]models.Property, 0, len(docs))
	for _, d := range docs {
		props = append(props, d.toModel())
	}
	return props, nil
}

func (s *MongoStore) UpdateProperty(ctx context.Context, sourceID string, update models.PropertyUpdate) error {
	set := bson.M{
		"status":     string(update.Status),
		"updated_at": update.UpdatedAt,
	}
	if update.EstateBuildingID != "" {
		set["estate_building_id"] = update.EstateBuildingID
	}
	if update.MapError != "" {
		set["estate_building_map_error"] = update.MapError
	}

	result, err := s.db.Collection(propsCollection).UpdateOne(ctx, bson.M{"source_id": sourceID}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update property %s: %w", sourceID, err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// translateBatchError turns an unordered insert that failed only on
// duplicate keys into a *BatchDuplicateError
func translateBatchError(entity string, err error) error {
	var bulk mongo.BulkWriteException
	if !errors.As(err, &bulk) || bulk.WriteConcernError != nil || len(bulk.WriteErrors) == 0 {
		return translateMongoError(entity, err)
	}
	indexes := make([]int, 0, len(bulk.WriteErrors))
	for _, we := range bulk.WriteErrors {
		if !isDuplicateCode(we.Code) {
			return fmt.Errorf("failed to insert %s: %w", entity, err)
		}
		indexes = append(indexes, we.Index)
	}
	return &BatchDuplicateError{Entity: entity, Indexes: indexes}
}

func isDuplicateCode(code int) bool {
	return code == 11000 || code == 11001 || code == 12582
}

func translateMongoError(entity string, err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%s: %w", entity, ErrDuplicate)
	}
	return fmt.Errorf("failed to insert %s: %w", entity, err)
}
