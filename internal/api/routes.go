package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"estatemap/internal/metrics"
)

// NewRouter builds the gin engine with recovery, request logging and CORS.
// An empty origin list or "*" allows every origin.
func NewRouter(handler *Handler, allowedOrigins []string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(handler.logger))

	corsConfig := cors.DefaultConfig()
	if len(allowedOrigins) == 0 || contains(allowedOrigins, "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = allowedOrigins
	}
	router.Use(cors.New(corsConfig))

	SetupRoutes(router, handler)
	return router
}

func SetupRoutes(router *gin.Engine, handler *Handler) {
	api := router.Group("/api")
	{
		api.GET("/quota", handler.GetQuota)
		api.GET("/quota/:operation", handler.GetOperationQuota)
		api.GET("/places/search", handler.SearchPlaces)
		api.GET("/places/nearby", handler.NearbyPlaces)
		api.GET("/places/:id", handler.GetPlace)
		api.POST("/resolve", handler.Resolve)
		api.GET("/buildings/:place_id", handler.GetBuilding)
	}

	router.GET("/metrics", gin.WrapH(metrics.Handler()))
}

func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}).Debug("Handled request")
	}
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
