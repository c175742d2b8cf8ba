package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"examflow/internal/auth"
	"examflow/internal/exam"
	"examflow/internal/httpmiddleware"
	"examflow/internal/user"
)

// Deps are the collaborators the API is built from.
type Deps struct {
	Exams           *exam.Repository
	Users           *user.Service
	Tokens          *auth.Issuer
	Logger          zerolog.Logger
	Health          map[string]func(context.Context) bool
	AllowedOrigins  []string
	RateLimitPerMin int
	// BaseContext bounds long-lived streams; cancel it on shutdown.
	BaseContext context.Context
}

// API holds the handlers.
type API struct {
	exams   *exam.Repository
	users   *user.Service
	tokens  *auth.Issuer
	logger  zerolog.Logger
	health  map[string]func(context.Context) bool
	origins []string
	base    context.Context
}

// NewRouter builds the gin engine with every route and middleware.
func NewRouter(d Deps) *gin.Engine {
	if d.BaseContext == nil {
		d.BaseContext = context.Background()
	}
	api := &API{
		exams:   d.Exams,
		users:   d.Users,
		tokens:  d.Tokens,
		logger:  d.Logger,
		health:  d.Health,
		origins: d.AllowedOrigins,
		base:    d.BaseContext,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(d.Logger, "/healthz", "/metrics"))
	r.Use(corsMiddleware(d.AllowedOrigins))
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewSimpleTokenBucket(d.RateLimitPerMin, d.RateLimitPerMin, nil).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", api.healthz)

	v1 := r.Group("/v1")
	v1.POST("/auth/signup", api.signup)
	v1.POST("/auth/login", api.login)
	v1.POST("/auth/refresh", api.refresh)

	authed := v1.Group("", auth.Bearer(d.Tokens), auth.LoadProfile(d.Users))
	authed.GET("/me", api.me)

	student := authed.Group("/student", auth.RequireRole(user.RoleStudent))
	student.GET("/exam", api.studentExam)

	staff := authed.Group("/staff", auth.RequireRole(user.RoleStaff))
	staff.GET("/exams", api.listExams)
	staff.GET("/exams/stream", api.streamExams)
	staff.POST("/exams", api.createExam)
	staff.PATCH("/exams/:id", api.updateExam)

	return r
}

func (a *API) healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	status := http.StatusOK
	body := gin.H{"status": "ok"}
	for name, check := range a.health {
		ok := check(ctx)
		body[name] = ok
		if !ok {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
	}
	c.JSON(status, body)
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
		MaxAge:           24 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowOriginFunc = func(string) bool { return true }
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

func requestLogger(logger zerolog.Logger, skip ...string) gin.HandlerFunc {
	skipped := make(map[string]bool, len(skip))
	for _, p := range skip {
		skipped[p] = true
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if skipped[c.Request.URL.Path] {
			return
		}
		status := c.Writer.Status()
		evt := logger.Info()
		if status >= http.StatusInternalServerError {
			evt = logger.Error()
		} else if status >= http.StatusBadRequest {
			evt = logger.Warn()
		}
		evt.Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("request")
	}
}
