package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"

	"estatemap/config"
	"estatemap/internal/geometry"
	"estatemap/internal/logging"
	"estatemap/internal/models"
	"estatemap/internal/place"
	"estatemap/internal/places"
	"estatemap/internal/quota"
)

// Places API rejects larger nearby radii
const maxNearbyRadius = 50000

type PlaceService interface {
	Search(ctx context.Context, query string, opts place.SearchOptions) ([]models.Place, error)
	NearbySearch(ctx context.Context, center orb.Point, radius float64, types []string) ([]models.Place, error)
	Details(ctx context.Context, id string) (*models.Place, error)
}

type Resolver interface {
	Resolve(ctx context.Context, name, district string) (*models.Place, error)
}

type BuildingReader interface {
	GetByPlaceID(ctx context.Context, placeID string) (*models.EstateBuilding, error)
}

type QuotaReporter interface {
	Report(ctx context.Context, op models.Operation) (quota.Report, error)
	Reports(ctx context.Context) ([]quota.Report, error)
}

type Handler struct {
	places    PlaceService
	resolver  Resolver
	buildings BuildingReader
	quota     QuotaReporter
	region    config.Region
	logger    *logrus.Logger
}

type SearchQuery struct {
	Query string `form:"q" binding:"required"`
	Type  string `form:"type"`
}

type NearbyQuery struct {
	Lat    *float64 `form:"lat"`
	Lng    *float64 `form:"lng"`
	Radius float64  `form:"radius"`
	Types  string   `form:"type"`
	Format string   `form:"format"`
}

type ResolveRequest struct {
	Name     string `json:"name" binding:"required"`
	District string `json:"district"`
}

type ResolveResponse struct {
	Place    *models.Place          `json:"place"`
	Building *models.EstateBuilding `json:"building,omitempty"`
}

func NewHandler(places PlaceService, resolver Resolver, buildings BuildingReader, reporter QuotaReporter,
	region config.Region, logger *logrus.Logger) *Handler {
	return &Handler{
		places:    places,
		resolver:  resolver,
		buildings: buildings,
		quota:     reporter,
		region:    region,
		logger:    logging.OrDiscard(logger),
	}
}

func (h *Handler) GetQuota(c *gin.Context) {
	reports, err := h.quota.Reports(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to get quota usage")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get quota usage"})
		return
	}

	c.JSON(http.StatusOK, reports)
}

func (h *Handler) GetOperationQuota(c *gin.Context) {
	op := models.Operation(c.Param("operation"))
	if !op.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown operation"})
		return
	}

	report, err := h.quota.Report(c.Request.Context(), op)
	if err != nil {
		h.logger.WithError(err).WithField("operation", op).Error("Failed to get quota usage")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get quota usage"})
		return
	}

	c.JSON(http.StatusOK, report)
}

func (h *Handler) SearchPlaces(c *gin.Context) {
	var query SearchQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing search query"})
		return
	}

	results, err := h.places.Search(c.Request.Context(), query.Query, place.SearchOptions{
		IncludedType: query.Type,
		RegionCode:   h.region.RegionCode,
		LanguageCode: h.region.LanguageCode,
	})
	if err != nil {
		h.placesError(c, err, "Failed to search places")
		return
	}

	c.JSON(http.StatusOK, results)
}

func (h *Handler) NearbyPlaces(c *gin.Context) {
	var query NearbyQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid nearby parameters"})
		return
	}
	if (query.Lat == nil) != (query.Lng == nil) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lng must be given together"})
		return
	}

	center := h.regionCenter()
	if query.Lat != nil {
		center = orb.Point{*query.Lng, *query.Lat}
	}
	radius := query.Radius
	if radius <= 0 {
		radius = h.region.RadiusMeters
	}
	if radius <= 0 || radius > maxNearbyRadius {
		radius = maxNearbyRadius
	}

	results, err := h.places.NearbySearch(c.Request.Context(), center, radius, splitList(query.Types))
	if err != nil {
		h.placesError(c, err, "Failed to search nearby places")
		return
	}

	if query.Format == "geojson" {
		c.JSON(http.StatusOK, geometry.FeatureCollection(results))
		return
	}
	c.JSON(http.StatusOK, geometry.RankByDistance(center, radius, results))
}

func (h *Handler) GetPlace(c *gin.Context) {
	p, err := h.places.Details(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.placesError(c, err, "Failed to get place")
		return
	}

	c.JSON(http.StatusOK, p)
}

func (h *Handler) Resolve(c *gin.Context) {
	var req ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithError(err).Error("Failed to parse resolve request")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request parameters"})
		return
	}

	ctx := c.Request.Context()
	p, err := h.resolver.Resolve(ctx, req.Name, req.District)
	if err != nil {
		h.logger.WithError(err).WithField("name", req.Name).Error("Failed to resolve name")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve name"})
		return
	}
	if p == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No matching place"})
		return
	}

	building, err := h.buildings.GetByPlaceID(ctx, p.ID)
	if err != nil {
		h.logger.WithError(err).WithField("place_id", p.ID).Warn("Failed to load building of resolved place")
	}

	c.JSON(http.StatusOK, ResolveResponse{Place: p, Building: building})
}

func (h *Handler) GetBuilding(c *gin.Context) {
	placeID := c.Param("place_id")
	building, err := h.buildings.GetByPlaceID(c.Request.Context(), placeID)
	if err != nil {
		h.logger.WithError(err).WithField("place_id", placeID).Error("Failed to get building")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get building"})
		return
	}
	if building == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Building not found"})
		return
	}

	c.JSON(http.StatusOK, building)
}

// placesError maps lookup failures onto HTTP statuses
func (h *Handler) placesError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, place.ErrMissingPlaceID):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing place id"})
	case places.StatusCode(err) == http.StatusNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": "Place not found"})
	default:
		h.logger.WithError(err).Error(message)
		c.JSON(http.StatusBadGateway, gin.H{"error": message})
	}
}

func (h *Handler) regionCenter() orb.Point {
	if len(h.region.Center) != 2 {
		return orb.Point{}
	}
	return orb.Point{h.region.Center[1], h.region.Center[0]}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
