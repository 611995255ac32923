package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-handoff-backend/internal/domain"
	"github.com/tbourn/go-handoff-backend/internal/repo"
)

// storeRepo proxies the repo package functions.
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

var errStoreDown = errors.New("store down")

// failingRepo fails writes on demand and otherwise uses the real store.
type failingRepo struct {
	storeRepo
	failUpdate bool
	failDelete bool
	failFind   bool
}

func (r *failingRepo) FindConversation(ctx context.Context, db *gorm.DB, f repo.Filter) (*domain.Conversation, error) {
	if r.failFind {
		return nil, errStoreDown
	}
	return r.storeRepo.FindConversation(ctx, db, f)
}

func (r *failingRepo) FindConversations(ctx context.Context, db *gorm.DB, f repo.Filter) ([]domain.Conversation, error) {
	if r.failFind {
		return nil, errStoreDown
	}
	return r.storeRepo.FindConversations(ctx, db, f)
}

func (r *failingRepo) UpdateConversation(ctx context.Context, db *gorm.DB, c *domain.Conversation) error {
	if r.failUpdate {
		return errStoreDown
	}
	return r.storeRepo.UpdateConversation(ctx, db, c)
}

func (r *failingRepo) DeleteConversation(ctx context.Context, db *gorm.DB, id string) error {
	if r.failDelete {
		return errStoreDown
	}
	return r.storeRepo.DeleteConversation(ctx, db, id)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())
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
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()
	return NewResolver(newTestDB(t), storeRepo{}, zerolog.Nop())
}

func customerAddr(userID, name, convID, channel string) domain.Address {
	return domain.Address{
		Bot:          domain.Identity{ID: "bot-1", Name: "helpbot"},
		ChannelID:    channel,
		Conversation: &domain.Identity{ID: convID},
		User:         domain.Identity{ID: userID, Name: name},
		ServiceURL:   "https://smba.example.com/",
	}
}

func agentAddr(convID string) domain.Address {
	return domain.Address{
		Bot:          domain.Identity{ID: "bot-1", Name: "helpbot"},
		ChannelID:    "emulator",
		Conversation: &domain.Identity{ID: convID},
		User:         domain.Identity{ID: "agent-1", Name: "Alice"},
	}
}

// seed creates a conversation through the resolver fallback.
func seed(t *testing.T, r *Resolver, addr domain.Address) *domain.Conversation {
	t.Helper()
	c, err := r.Resolve(context.Background(), domain.ByCustomerConversationID(addr.ConversationID()), &addr)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return c
}

func customerMsg(text string, at time.Time) domain.InboundMessage {
	return domain.InboundMessage{Text: text, LocalTimestamp: &at}
}

func fixedClock(ts time.Time) func() time.Time { return func() time.Time { return ts } }

type fakeScorer struct {
	score *float64
	err   error
	calls int
}

func (f *fakeScorer) Score(context.Context, string) (*float64, error) {
	f.calls++
	return f.score, f.err
}

type recordedEvent struct {
	name  string
	props map[string]string
}

type recordingTracker struct{ events []recordedEvent }

func (r *recordingTracker) TrackEvent(_ context.Context, name string, props map[string]string) {
	r.events = append(r.events, recordedEvent{name: name, props: props})
}
