package database

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	"estatemap/internal/models"
)

func TestRequestDocRoundTrip(t *testing.T) {
	req := &models.CachedRequest{
		Hash:        "h1",
		Operation:   models.OpNearbySearch,
		Options:     json.RawMessage(`{"locationRestriction":{"circle":{"center":{"latitude":22.3,"longitude":114.17},"radius":500}}}`),
		Tier:        models.TierPro,
		RequestedAt: time.Date(2024, 5, 1, 8, 0, 0, 0, time.FixedZone("HKT", 8*3600)),
		Result:      json.RawMessage(`{"places":[{"id":"p1","types":["premise"]}],"count":2}`),
	}

	doc, err := newRequestDoc(req)
	require.NoError(t, err)
	assert.Equal(t, time.UTC, doc.RequestedAt.Location())

	back, err := doc.toModel()
	require.NoError(t, err)
	assert.Equal(t, req.Hash, back.Hash)
	assert.Equal(t, req.Operation, back.Operation)
	assert.Equal(t, req.Tier, back.Tier)
	assert.True(t, req.RequestedAt.Equal(back.RequestedAt))
	assert.JSONEq(t, string(req.Options), string(back.Options))
	assert.JSONEq(t, string(req.Result), string(back.Result))
}

func TestJSONToDocumentRejectsNonObjects(t *testing.T) {
	doc, err := jsonToDocument(nil)
	require.NoError(t, err)
	assert.Nil(t, doc)

	_, err = jsonToDocument(json.RawMessage(`[1,2]`))
	assert.Error(t, err)
}

func TestPropertyDocNestsExtractedData(t *testing.T) {
	p := models.Property{
		SourceID:             "s1",
		EstateOrBuildingName: "Sunshine Court",
		District:             "Sha Tin",
		Status:               models.StatusDataExtracted,
	}
	doc := newPropertyDoc(p)
	assert.Equal(t, "Sunshine Court", doc.Extracted.EstateOrBuildingName)
	assert.Equal(t, "Sha Tin", doc.Extracted.District)
	assert.Equal(t, p, doc.toModel())
}

func TestTranslateBatchError(t *testing.T) {
	writeErr := func(index, code int) mongo.BulkWriteError {
		return mongo.BulkWriteError{WriteError: mongo.WriteError{Index: index, Code: code, Message: "E11000 duplicate key"}}
	}

	t.Run("only duplicates", func(t *testing.T) {
		err := translateBatchError("properties", mongo.BulkWriteException{
			WriteErrors: []mongo.BulkWriteError{writeErr(0, 11000), writeErr(2, 11000)},
		})
		var partial *BatchDuplicateError
		require.ErrorAs(t, err, &partial)
		assert.Equal(t, []int{0, 2}, partial.Indexes)
		assert.ErrorIs(t, err, ErrDuplicate)
	})

	t.Run("other write error", func(t *testing.T) {
		err := translateBatchError("properties", mongo.BulkWriteException{
			WriteErrors: []mongo.BulkWriteError{writeErr(0, 11000), writeErr(1, 121)},
		})
		var partial *BatchDuplicateError
		assert.False(t, errors.As(err, &partial))
		assert.NotErrorIs(t, err, ErrDuplicate)
		assert.Contains(t, err.Error(), "failed to insert properties")
	})

	t.Run("not a bulk error", func(t *testing.T) {
		err := translateBatchError("properties", errors.New("server selection timeout"))
		assert.NotErrorIs(t, err, ErrDuplicate)
	})
}
