package api

import (
	"net/http"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"voltfox-backend/config"
	"voltfox-backend/internal/device"
	"voltfox-backend/internal/mw"
	"voltfox-backend/internal/store"
)

// Deps are the collaborators of the HTTP API.
type Deps struct {
	Store      store.Store
	Devices    *device.Service
	Recognizer Recognizer
	WebPush    *webpush.Options
	Verifier   *mw.TokenVerifier
	Server     config.ServerConfig
	Vision     config.VisionConfig
	Log        *zap.Logger
}

// NewRouter creates and configures a new Gin router.
func NewRouter(deps Deps) *gin.Engine {
	if deps.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), mw.RequestID(), mw.Logging(deps.Log))

	corsConfig := cors.DefaultConfig()
	if len(deps.Server.CORSAllowedOrigins) > 0 {
		corsConfig.AllowOrigins = deps.Server.CORSAllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowHeaders("Authorization")
	corsConfig.AddExposeHeaders(mw.RequestIDHeader, mw.CacheStatusHeader)
	r.Use(cors.New(corsConfig))

	handler := NewHandler(deps.Store, deps.Devices, deps.Recognizer, deps.WebPush, deps.Log)
	if deps.Vision.MaxImageBytes > 0 {
		handler.maxImageBytes = deps.Vision.MaxImageBytes
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Per client IP, before authentication.
	rateLimiter := mw.RateLimiter(limit(deps.Server.RateLimitPerSec), deps.Server.RateLimitBurst, mw.ByClientIP)

	authMiddleware := []gin.HandlerFunc{mw.Auth(deps.Verifier), handler.EnsureUser}
	if ttl := time.Duration(deps.Server.CacheTTLSeconds) * time.Second; ttl > 0 {
		// Per user, cleared on any write by that user.
		authMiddleware = append(authMiddleware, mw.Cache(cache.New(ttl, 2*ttl), ttl))
	}

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)

		authed := api.Group("")
		authed.Use(authMiddleware...)

		authed.GET("/me", handler.GetMe)

		authed.GET("/devices", handler.ListDevices)
		authed.POST("/devices", handler.CreateDevice)
		authed.GET("/devices/:id", handler.GetDevice)
		authed.PATCH("/devices/:id", handler.PatchDevice)
		authed.DELETE("/devices/:id", handler.DeleteDevice)
		authed.POST("/devices/:id/charged", handler.MarkCharged)
		authed.POST("/devices/:id/defective", handler.MarkDefective)
		authed.GET("/devices/:id/estimate", handler.GetEstimate)
		authed.GET("/devices/:id/history", handler.GetHistory)
		authed.POST("/devices/:id/history", handler.PostHistory)

		authed.GET("/preferences", handler.GetPreferences)
		authed.PUT("/preferences", handler.PutPreferences)

		authed.GET("/subscriptions", handler.GetSubscription)
		authed.PUT("/subscriptions", handler.PutSubscription)
		authed.DELETE("/subscriptions", handler.DeleteSubscription)

		authed.GET("/notifications", handler.ListNotifications)

		// Recognition calls a paid backend, so it is also limited per user.
		recognizeLimiter := mw.RateLimiter(limit(deps.Vision.RateLimitPerSec), 1, mw.ByUser)
		authed.POST("/recognize", recognizeLimiter, handler.Recognize)
	}

	return r
}

// limit maps a non-positive configured rate to no limit.
func limit(perSec float64) rate.Limit {
	if perSec <= 0 {
		return rate.Inf
	}
	return rate.Limit(perSec)
}
