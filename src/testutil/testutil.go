package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
	"tourbook/src/models"
	"tourbook/src/types"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB opens a private in-memory sqlite database with the schema
// migrated. A single connection keeps every statement on the same database.
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, models.Migrate(conn))
	t.Cleanup(func() { sqlDB.Close() })
	return conn
}

func CreateUser(t testing.TB, conn *gorm.DB, role types.Role) *models.User {
	t.Helper()
	n := uuid.NewString()[:8]
	user := &models.User{
		Name:  "user " + n,
		Email: n + "@example.com",
		Phone: "+15550000",
		Role:  role,
	}
	require.NoError(t, conn.Create(user).Error)
	return user
}

type TourOption func(*models.Tour)

func WithCost(cost float64) TourOption {
	return func(t *models.Tour) { t.CostFrom = cost }
}

func StartingIn(d time.Duration) TourOption {
	return func(t *models.Tour) {
		t.StartDate = time.Now().UTC().Add(d)
		t.EndDate = t.StartDate.Add(48 * time.Hour)
	}
}

func EndedAgo(d time.Duration) TourOption {
	return func(t *models.Tour) {
		t.EndDate = time.Now().UTC().Add(-d)
		t.StartDate = t.EndDate.Add(-48 * time.Hour)
	}
}

func Inactive() TourOption {
	return func(t *models.Tour) { t.IsActive = false }
}

func GuidedBy(guideID uint) TourOption {
	return func(t *models.Tour) { t.GuideID = guideID }
}

// CreateTour inserts an active $100 tour starting in 30 days unless
// options say otherwise.
func CreateTour(t testing.TB, conn *gorm.DB, opts ...TourOption) *models.Tour {
	t.Helper()
	n := uuid.NewString()[:8]
	tour := &models.Tour{
		Title:        "Tour " + n,
		Slug:         "tour-" + n,
		Location:     "Lisbon",
		CostFrom:     100,
		MaxGroupSize: 12,
		IsActive:     true,
	}
	StartingIn(30 * 24 * time.Hour)(tour)
	for _, opt := range opts {
		opt(tour)
	}
	require.NoError(t, conn.Create(tour).Error)
	return tour
}

func Customer() types.CustomerDetails {
	return types.CustomerDetails{Name: "Jane Doe", Email: "jane@example.com", Phone: "+15551234"}
}

// RecordingPublisher keeps every published event in memory.
type RecordingPublisher struct {
	mu     sync.Mutex
	Events []PublishedEvent
	Err    error
}

type PublishedEvent struct {
	Type    types.LifecycleEvent
	Payload types.JSONB
}

func (p *RecordingPublisher) Publish(ctx context.Context, event types.LifecycleEvent, payload types.JSONB) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, PublishedEvent{Type: event, Payload: payload})
	return p.Err
}

func (p *RecordingPublisher) Types() []types.LifecycleEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := []types.LifecycleEvent{}
	for _, e := range p.Events {
		out = append(out, e.Type)
	}
	return out
}

// RecordingNotifier records the bookings it was asked to email about.
type RecordingNotifier struct {
	mu        sync.Mutex
	Confirmed []uuid.UUID
	Cancelled []uuid.UUID
}

func (n *RecordingNotifier) BookingConfirmed(ctx context.Context, booking *models.Booking) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Confirmed = append(n.Confirmed, booking.ID)
	return nil
}

func (n *RecordingNotifier) BookingCancelled(ctx context.Context, booking *models.Booking) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Cancelled = append(n.Cancelled, booking.ID)
	return nil
}
