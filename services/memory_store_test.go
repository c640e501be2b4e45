package services

import (
	"context"
	"testing"
	"time"

	"github.com/fenilmodi00/ipo-gmp-tracker/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreFindByStatusAndEndDateIn(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	monday := seedIPO(t, store, "Monday Ltd", day("2024-03-11"), models.StatusTracking)
	tuesday := seedIPO(t, store, "Tuesday Ltd", day("2024-03-12"), models.StatusTracking)
	alerted := seedIPO(t, store, "Alerted Ltd", day("2024-03-11"), models.StatusAlertedTomorrow)
	seedIPO(t, store, "Later Ltd", day("2024-03-20"), models.StatusTracking)

	weekend := []time.Time{day("2024-03-09"), day("2024-03-10"), day("2024-03-11")}
	found, err := store.FindByStatusAndEndDateIn(ctx, models.StatusTracking, weekend)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{monday.ID}, ipoIDs(found))

	// non-midnight instants match by calendar day
	found, err = store.FindByStatusAndEndDateIn(ctx, models.StatusTracking,
		[]time.Time{time.Date(2024, 3, 11, 18, 30, 0, 0, time.UTC), day("2024-03-12")})
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{monday.ID, tuesday.ID}, ipoIDs(found))

	found, err = store.FindByStatusAndEndDateIn(ctx, models.StatusAlertedTomorrow, weekend)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{alerted.ID}, ipoIDs(found))

	found, err = store.FindByStatusAndEndDateIn(ctx, models.StatusExpired, weekend)
	require.NoError(t, err)
	assert.Empty(t, found, "no IPO has the requested status")

	found, err = store.FindByStatusAndEndDateIn(ctx, models.StatusTracking, nil)
	require.NoError(t, err)
	assert.Empty(t, found, "an empty date set matches nothing")
}

func TestMemoryStoreUpdateStatusNotFound(t *testing.T) {
	store := NewMemoryStore()
	err := store.UpdateStatus(context.Background(), uuid.New(), models.StatusExpired)
	assert.True(t, IsNotFound(err))
}
