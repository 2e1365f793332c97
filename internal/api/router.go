package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"aidfinder-backend/internal/mw"
)

// RouterConfig holds the HTTP-layer tuning knobs.
type RouterConfig struct {
	RateLimitPerSec float64
	RateLimitBurst  int
	CacheTTL        time.Duration
	AllowedOrigins  []string
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	cfg.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	cfg.MaxAge = 12 * time.Hour
	return cfg
}

// NewRouter creates and configures a new Gin router.
func NewRouter(d Deps, cfg RouterConfig) *gin.Engine {
	r := gin.Default()
	r.Use(mw.Metrics(), cors.New(corsConfig(cfg.AllowedOrigins)))

	handler := NewHandler(d)

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	// Listings that change only on writes are cached; any successful write
	// flushes them.
	responseCache := mw.NewResponseCache(cfg.CacheTTL)
	caching := responseCache.Cache()

	r.GET("/healthz", handler.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API group
	api := r.Group("/api")
	api.Use(rateLimiter, responseCache.FlushOnWrite())
	{
		api.GET("/resources", handler.SearchResources)
		api.POST("/resources", handler.CreateResource)
		api.GET("/resources/:id", handler.GetResource)
		api.POST("/resources/:id/requests", handler.SubmitRequest)
		api.GET("/resources/:id/requests", handler.ListRequests)
		api.POST("/resources/:id/restock", handler.RestockResource)

		api.PATCH("/requests/:id", handler.UpdateRequestStatus)
		api.POST("/requests/:id/release", handler.ReleaseRequest)

		api.GET("/organizations", caching, handler.ListOrganizations)
		api.POST("/organizations", handler.CreateOrganization)

		api.GET("/analytics/categories", caching, handler.GetCategoryCounts)
		api.GET("/analytics/requests", caching, handler.GetRequestStats)
		api.GET("/analytics/cities", caching, handler.GetCityCounts)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}

// Healthz reports whether the database answers a ping.
func (h *Handler) Healthz(c *gin.Context) {
	sqlDB, err := h.store.DB().DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		h.log.Warn("health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
