package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-handoff-backend/internal/domain"
	"github.com/tbourn/go-handoff-backend/internal/http/middleware"
	"github.com/tbourn/go-handoff-backend/internal/repo"
	"github.com/tbourn/go-handoff-backend/internal/services"
)

// ---------- test DB + repo shim ----------

type storeRepo struct{}

func (storeRepo) FindConversation(ctx context.Context, db *gorm.DB, f repo.Filter) (*domain.Conversation, error) {
	return repo.FindConversation(ctx, db, f)
}
func (storeRepo) GetConversation(ctx context.Context, db *gorm.DB, id string) (*domain.Conversation, error) {
	return repo.GetConversation(ctx, db, id)
}
func (storeRepo) FindConversations(ctx context.Context, db *gorm.DB, f repo.Filter) ([]domain.Conversation, error) {
	return repo.FindConversations(ctx, db, f)
}
func (storeRepo) CreateConversation(ctx context.Context, db *gorm.DB, c *domain.Conversation) error {
	return repo.CreateConversation(ctx, db, c)
}
func (storeRepo) UpdateConversation(ctx context.Context, db *gorm.DB, c *domain.Conversation) error {
	return repo.UpdateConversation(ctx, db, c)
}
func (storeRepo) DeleteConversation(ctx context.Context, db *gorm.DB, id string) error {
	return repo.DeleteConversation(ctx, db, id)
}
func (storeRepo) CountConversations(ctx context.Context, db *gorm.DB, f repo.Filter) (int64, error) {
	return repo.CountConversations(ctx, db, f)
}
func (storeRepo) ListConversationsPage(ctx context.Context, db *gorm.DB, f repo.Filter, offset, limit int) ([]domain.Conversation, error) {
	return repo.ListConversationsPage(ctx, db, f, offset, limit)
}
func (storeRepo) FindLead(ctx context.Context, db *gorm.DB, leadID string) (*domain.Lead, error) {
	return repo.FindLead(ctx, db, leadID)
}
func (storeRepo) CreateLead(ctx context.Context, db *gorm.DB, l *domain.Lead) error {
	return repo.CreateLead(ctx, db, l)
}
func (storeRepo) UpdateLeadConversations(ctx context.Context, db *gorm.DB, l *domain.Lead) error {
	return repo.UpdateLeadConversations(ctx, db, l)
}
func (storeRepo) DeleteLead(ctx context.Context, db *gorm.DB, leadID string) error {
	return repo.DeleteLead(ctx, db, leadID)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:handlers_%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// ---------- engine ----------

type testEnv struct {
	db *gorm.DB
	r  *gin.Engine
}

func newEnv(t *testing.T, retain bool) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := newTestDB(t)
	log := zerolog.Nop()
	resolver := services.NewResolver(db, storeRepo{}, log)
	h := New(
		resolver,
		services.NewHandoffService(resolver, services.HandoffConfig{RetainData: retain}, log),
		services.NewTranscriptService(resolver, nil, nil, time.Hour, log),
		services.NewLeadService(db, storeRepo{}, storeRepo{}, log),
	)
	return &testEnv{db: db, r: newEngine(h)}
}

func newEngine(h *Handlers) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.BotCaller(), middleware.IdempotencyValidator(middleware.IdempotencyOptions{}, nil))
	r.POST("/conversations/resolve", h.ResolveConversation)
	r.GET("/conversations", h.ListConversations)
	r.POST("/conversations/queue", h.QueueCustomer)
	r.POST("/conversations/connect-agent", h.ConnectAgent)
	r.POST("/conversations/connect-bot", h.ConnectBot)
	r.POST("/transcript", h.AppendTranscript)
	r.GET("/conversations/:id/transcript", h.ListTranscript)
	r.POST("/leads/rollup", h.RollUpLead)
	r.GET("/leads/:leadId", h.GetLead)
	r.DELETE("/leads/:leadId", h.DeleteLead)
	return r
}

func do(t *testing.T, r http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	switch b := body.(type) {
	case nil:
		rd = bytes.NewReader(nil)
	case string:
		rd = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.HeaderBotID, "helpbot")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

// ---------- fixtures ----------

func customerAddr(userID, convID string) domain.Address {
	return domain.Address{
		Bot:          domain.Identity{ID: "bot-1", Name: "helpbot"},
		ChannelID:    "webchat",
		Conversation: &domain.Identity{ID: convID},
		User:         domain.Identity{ID: userID, Name: "Customer " + userID},
	}
}

func agentAddr() domain.Address {
	return domain.Address{
		Bot:          domain.Identity{ID: "bot-1", Name: "helpbot"},
		ChannelID:    "emulator",
		Conversation: &domain.Identity{ID: "agent-conv-1"},
		User:         domain.Identity{ID: "agent-1", Name: "Alice"},
	}
}

// seed creates a conversation through the resolve endpoint and returns it.
func seed(t *testing.T, env *testEnv, userID, convID string) domain.Conversation {
	t.Helper()
	addr := customerAddr(userID, convID)
	w := do(t, env.r, http.MethodPost, "/conversations/resolve", ResolveRequest{
		By:              domain.By{CustomerConversationID: convID},
		CustomerAddress: &addr,
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("seed resolve = %d %s", w.Code, w.Body.String())
	}
	return decode[domain.Conversation](t, w)
}

func appendLine(t *testing.T, env *testEnv, convID, text string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	return do(t, env.r, http.MethodPost, "/transcript", AppendTranscriptRequest{
		By:      domain.By{CustomerConversationID: convID},
		Message: domain.InboundMessage{Text: text},
		From:    domain.FromCustomer,
	}, headers)
}
