// Package httpapi wires the gin transport to the handoff services. It owns
// middleware ordering, dependency injection and route registration for the
// bot runtime API.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-handoff-backend/docs"
	"github.com/tbourn/go-handoff-backend/internal/config"
	"github.com/tbourn/go-handoff-backend/internal/domain"
	"github.com/tbourn/go-handoff-backend/internal/http/handlers"
	"github.com/tbourn/go-handoff-backend/internal/http/middleware"
	"github.com/tbourn/go-handoff-backend/internal/observability"
	"github.com/tbourn/go-handoff-backend/internal/repo"
	"github.com/tbourn/go-handoff-backend/internal/sentiment"
	"github.com/tbourn/go-handoff-backend/internal/services"
)

// maxBodyBytes caps request bodies. Activities with inline attachments stay
// well below it.
const maxBodyBytes = 1 << 20

// conversationRepoShim adapts the repo free functions to services.ConversationRepo.
type conversationRepoShim struct{}

func (conversationRepoShim) FindConversation(ctx context.Context, db *gorm.DB, f repo.Filter) (*domain.Conversation, error) {
	return repo.FindConversation(ctx, db, f)
}

func (conversationRepoShim) GetConversation(ctx context.Context, db *gorm.DB, id string) (*domain.Conversation, error) {
	return repo.GetConversation(ctx, db, id)
}

func (conversationRepoShim) FindConversations(ctx context.Context, db *gorm.DB, f repo.Filter) ([]domain.Conversation, error) {
	return repo.FindConversations(ctx, db, f)
}

func (conversationRepoShim) CreateConversation(ctx context.Context, db *gorm.DB, c *domain.Conversation) error {
	return repo.CreateConversation(ctx, db, c)
}

func (conversationRepoShim) UpdateConversation(ctx context.Context, db *gorm.DB, c *domain.Conversation) error {
	return repo.UpdateConversation(ctx, db, c)
}

func (conversationRepoShim) DeleteConversation(ctx context.Context, db *gorm.DB, id string) error {
	return repo.DeleteConversation(ctx, db, id)
}

func (conversationRepoShim) CountConversations(ctx context.Context, db *gorm.DB, f repo.Filter) (int64, error) {
	return repo.CountConversations(ctx, db, f)
}

func (conversationRepoShim) ListConversationsPage(ctx context.Context, db *gorm.DB, f repo.Filter, offset, limit int) ([]domain.Conversation, error) {
	return repo.ListConversationsPage(ctx, db, f, offset, limit)
}

// leadRepoShim adapts the repo free functions to services.LeadRepo.
type leadRepoShim struct{}

func (leadRepoShim) FindLead(ctx context.Context, db *gorm.DB, leadID string) (*domain.Lead, error) {
	return repo.FindLead(ctx, db, leadID)
}

func (leadRepoShim) CreateLead(ctx context.Context, db *gorm.DB, l *domain.Lead) error {
	return repo.CreateLead(ctx, db, l)
}

func (leadRepoShim) UpdateLeadConversations(ctx context.Context, db *gorm.DB, l *domain.Lead) error {
	return repo.UpdateLeadConversations(ctx, db, l)
}

func (leadRepoShim) DeleteLead(ctx context.Context, db *gorm.DB, leadID string) error {
	return repo.DeleteLead(ctx, db, leadID)
}

// Deps are the collaborators the API is built from. Scorer and Tracker may
// be nil: lines are then unscored and no telemetry events are emitted.
type Deps struct {
	DB      *gorm.DB
	Scorer  sentiment.Scorer
	Tracker observability.EventTracker
	Log     zerolog.Logger
}

// NewHandlers builds the services over deps and binds them to handlers.
func NewHandlers(deps Deps, cfg config.Config) *handlers.Handlers {
	resolver := services.NewResolver(deps.DB, conversationRepoShim{}, deps.Log)
	return handlers.New(
		resolver,
		services.NewHandoffService(resolver, services.HandoffConfig{RetainData: cfg.RetainData}, deps.Log),
		services.NewTranscriptService(resolver, deps.Scorer, deps.Tracker, cfg.IdempotencyTTL, deps.Log),
		services.NewLeadService(deps.DB, conversationRepoShim{}, leadRepoShim{}, deps.Log),
	)
}

// idempotencyLookup reports whether key was already recorded for the
// conversation scope.
func idempotencyLookup(db *gorm.DB) middleware.IdempotencyLookup {
	return func(ctx context.Context, scope, key string, now time.Time) (bool, error) {
		_, err := repo.GetIdempotency(ctx, db, scope, key, now)
		switch {
		case err == nil:
			return true, nil
		case errors.Is(err, repo.ErrNotFound):
			return false, nil
		}
		return false, err
	}
}

// RegisterRoutes attaches middleware, operational endpoints and the bot
// runtime API to r.
//
// Middleware order:
//  1. OpenTelemetry
//  2. RequestID and BotCaller
//  3. RedactingLogger, then Recovery
//  4. Body size limit and gzip
//  5. Metrics
//  6. Idempotency validator (before the rate limiter so replays bypass it)
//  7. Rate limiter per bot or IP
//  8. CORS and security headers
func RegisterRoutes(r *gin.Engine, deps Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID(), middleware.BotCaller())
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{"Ocp-Apim-Subscription-Key"},
	}))
	r.Use(middleware.Recovery())
	r.Use(limitBody(maxBodyBytes))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{MaxLen: 200}, idempotencyLookup(deps.DB)))

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByBotOrIP())
	r.Use(rl.Handler())

	useCORS(r, cfg.CORS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		EnablePolicy: true,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = cfg.APIBasePath
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h := NewHandlers(deps, cfg)
	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		api.POST("/conversations/resolve", h.ResolveConversation)
		api.GET("/conversations", h.ListConversations)
		api.POST("/conversations/queue", h.QueueCustomer)
		api.POST("/conversations/connect-agent", h.ConnectAgent)
		api.POST("/conversations/connect-bot", h.ConnectBot)
		api.POST("/transcript", h.AppendTranscript)
	}

	// Customer text and contact data are never cached.
	private := api.Group("", middleware.NoStore())
	{
		private.GET("/conversations/:id/transcript", h.ListTranscript)
		private.POST("/leads/rollup", h.RollUpLead)
		private.GET("/leads/:leadId", h.GetLead)
		private.DELETE("/leads/:leadId", h.DeleteLead)
	}
}

var (
	corsMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsHeaders = []string{
		"Origin", "Content-Type", "Accept", "Authorization",
		middleware.HeaderBotID, middleware.HeaderIdempotencyKey, middleware.HeaderConversationID,
		"If-None-Match",
	}
)

// useCORS installs gin-contrib/cors. With no allowlist every origin is
// accepted without credentials; otherwise allowed origins are echoed back
// even on non-preflight requests.
func useCORS(r *gin.Engine, cc config.CORSConfig) {
	base := cors.Config{
		AllowMethods:     corsMethods,
		AllowHeaders:     corsHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}

	if len(cc.AllowedOrigins) == 0 {
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		base.AllowAllOrigins = true
		r.Use(cors.New(base))
		return
	}

	allowed := make(map[string]struct{}, len(cc.AllowedOrigins))
	for _, o := range cc.AllowedOrigins {
		allowed[o] = struct{}{}
	}
	r.Use(func(c *gin.Context) {
		if origin := c.GetHeader("Origin"); origin != "" {
			if _, ok := allowed[origin]; ok {
				h := c.Writer.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
			}
		}
		c.Next()
	})
	base.AllowOrigins = cc.AllowedOrigins
	r.Use(cors.New(base))
}

// limitBody caps request bodies at maxBytes; reads past it fail.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
