package api

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"codingclub/internal/auth"
	"codingclub/internal/club"
	"codingclub/internal/httpmiddleware"
	"codingclub/internal/logging"
	"codingclub/internal/metrics"
	"codingclub/internal/store"
)

// Deps are the collaborators of the HTTP layer.
type Deps struct {
	Service *club.Service
	Tokens  auth.Config
	DB      *store.DB
	Redis   *store.Redis
	Log     *zap.Logger

	CORSOrigins     []string
	RateLimitPerMin int
	AuthRatePerSec  float64
	AuthRateBurst   int
}

type handler struct {
	svc *club.Service
	log *zap.Logger
}

// NewRouter builds the gin engine. Rate limiter bookkeeping stops with ctx.
func NewRouter(ctx context.Context, d Deps) *gin.Engine {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	h := &handler{svc: d.Service, log: d.Log}

	r := gin.New()
	r.Use(logging.GinRecovery(d.Log))
	r.Use(logging.GinLogger(d.Log, "/healthz", "/metrics"))
	r.Use(metrics.GinMiddleware())
	r.Use(corsMiddleware(d.CORSOrigins))
	r.Use(securityHeaders())

	general := httpmiddleware.PerMinute(d.RateLimitPerMin)
	authLimit := httpmiddleware.NewRateLimiter(d.AuthRatePerSec, d.AuthRateBurst)
	go general.Cleanup(ctx, time.Minute)
	go authLimit.Cleanup(ctx, time.Minute)

	r.GET("/metrics", metrics.Handler())
	r.GET("/healthz", healthz(d.DB, d.Redis))

	api := r.Group("/api", general.GinMiddleware())

	open := api.Group("", authLimit.GinMiddleware())
	open.POST("/register", h.register)
	open.POST("/members/login", h.login)
	open.POST("/token", h.obtainPair)
	open.POST("/token/refresh", h.refresh)

	authed := api.Group("", auth.Authenticate(d.Tokens, d.Service))
	teacher := authed.Group("", auth.RequireRole(auth.RoleTeacher))

	authed.GET("/members", h.listMembers)
	authed.GET("/members/:id", h.getMember)
	teacher.POST("/members", h.createMember)
	teacher.PUT("/members/:id", h.updateMember(false))
	teacher.PATCH("/members/:id", h.updateMember(true))
	teacher.DELETE("/members/:id", h.deleteMember)

	authed.GET("/meetings", h.listMeetings)
	authed.GET("/meetings/:id", h.getMeeting)
	teacher.POST("/meetings", h.createMeeting)
	teacher.PUT("/meetings/:id", h.updateMeeting(false))
	teacher.PATCH("/meetings/:id", h.updateMeeting(true))
	teacher.DELETE("/meetings/:id", h.deleteMeeting)

	teacher.GET("/attendance", h.listAttendance)
	teacher.POST("/attendance", h.createAttendance)
	teacher.POST("/attendance/record_batch", h.recordBatch)
	teacher.GET("/attendance/meeting_attendance", h.meetingAttendance)
	teacher.GET("/attendance/:id", h.getAttendance)
	teacher.PUT("/attendance/:id", h.updateAttendance(false))
	teacher.PATCH("/attendance/:id", h.updateAttendance(true))
	teacher.DELETE("/attendance/:id", h.deleteAttendance)

	authed.GET("/current-user", h.currentUser)
	teacher.GET("/students-list", h.studentsList)

	return r
}

func healthz(db *store.DB, rdb *store.Redis) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		dbHealthy := db.Healthy(ctx)
		redisStatus := "disabled"
		healthy := dbHealthy
		if rdb != nil {
			redisStatus = "ok"
			if !rdb.Healthy(ctx) {
				redisStatus = "down"
				healthy = false
			}
		}
		status, text := http.StatusOK, "ok"
		if !healthy {
			status, text = http.StatusServiceUnavailable, "degraded"
		}
		c.JSON(status, gin.H{"status": text, "db": dbHealthy, "redis": redisStatus})
	}
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", logging.RequestIDHeader},
		ExposeHeaders:    []string{logging.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}
