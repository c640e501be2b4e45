package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/fenilmodi00/ipo-gmp-tracker/models"
	"github.com/fenilmodi00/ipo-gmp-tracker/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func day(text string) time.Time {
	d, err := shared.ParseDate(text)
	if err != nil {
		panic(err)
	}
	return d
}

// recordingNotifier returns a fixed result and remembers every message
type recordingNotifier struct {
	mu       sync.Mutex
	result   bool
	messages []models.AlertMessage
}

func (n *recordingNotifier) Deliver(_ context.Context, msg models.AlertMessage) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
	return n.result
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.messages)
}

var errStoreDown = errors.New("connection refused")

// brokenRegistry fails every selection query
type brokenRegistry struct {
	*MemoryStore
}

func (b brokenRegistry) FindByStatusAndEndDate(context.Context, models.IPOStatus, time.Time) ([]models.IPO, error) {
	return nil, errStoreDown
}

func (b brokenRegistry) FindByStatus(context.Context, ...models.IPOStatus) ([]models.IPO, error) {
	return nil, errStoreDown
}

// flakyStore fails sample reads for one IPO only
type flakyStore struct {
	*MemoryStore
	failFor uuid.UUID
}

func (f flakyStore) SamplesOnDays(ctx context.Context, ipoID uuid.UUID, days []time.Time) ([]models.GMPSample, error) {
	if ipoID == f.failFor {
		return nil, errStoreDown
	}
	return f.MemoryStore.SamplesOnDays(ctx, ipoID, days)
}

// vanishingRegistry reports one IPO as deleted when its status is written
type vanishingRegistry struct {
	*MemoryStore
	gone uuid.UUID
}

func (v vanishingRegistry) UpdateStatus(ctx context.Context, id uuid.UUID, status models.IPOStatus) error {
	if id == v.gone {
		return fmt.Errorf("update status of %s: %w", id, shared.ErrIPONotFound)
	}
	return v.MemoryStore.UpdateStatus(ctx, id, status)
}

func seedIPO(t *testing.T, store *MemoryStore, name string, endDate time.Time, status models.IPOStatus) models.IPO {
	t.Helper()
	ipo := &models.IPO{Name: name, Price: "₹100", Subscription: "12.5x", EndDate: endDate, Status: status}
	created, err := store.Create(context.Background(), ipo)
	require.NoError(t, err)
	require.True(t, created)
	return *ipo
}

func seedSamples(t *testing.T, store *MemoryStore, ipoID uuid.UUID, samples map[string]float64) {
	t.Helper()
	for d, gmp := range samples {
		require.NoError(t, store.RecordOrUpdate(context.Background(), ipoID, day(d), gmp))
	}
}

func statusOf(t *testing.T, store *MemoryStore, id uuid.UUID) models.IPOStatus {
	t.Helper()
	ipo, err := store.GetByID(context.Background(), id)
	require.NoError(t, err)
	return ipo.Status
}
