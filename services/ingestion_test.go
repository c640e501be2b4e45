package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fenilmodi00/ipo-gmp-tracker/models"
	"github.com/fenilmodi00/ipo-gmp-tracker/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staticFeed serves a fixed snapshot
type staticFeed struct {
	rows  []models.ScrapedIPO
	err   error
	calls int
}

func (f *staticFeed) Fetch(context.Context, time.Time) ([]models.ScrapedIPO, error) {
	f.calls++
	return f.rows, f.err
}

func scraped(name, end string, gmp float64) models.ScrapedIPO {
	return models.ScrapedIPO{Name: name, EndDate: day(end), GMPPercentage: gmp, Price: "₹50", Subscription: "2x"}
}

func TestTrackNewIPOsHonoursLeadDaysAndDeduplicates(t *testing.T) {
	store := NewMemoryStore()
	feed := &staticFeed{rows: []models.ScrapedIPO{
		scraped("Early Ltd", "2024-03-08", 10), // two days out, too late
		scraped("Acme Ltd", "2024-03-09", 12),  // exactly three days out
		scraped("Later Ltd", "2024-03-15", -1),
	}}
	ingestion := NewIngestionService(feed, store, store, shared.NewDefaultAlertPolicy(), nil)

	summary, err := ingestion.TrackNewIPOs(context.Background(), today)
	require.NoError(t, err)
	assert.Equal(t, TrackSummary{Scraped: 3, Added: 2, TooLate: 1}, summary)

	acme, err := store.FindByNameAndEndDate(context.Background(), "Acme Ltd", day("2024-03-09"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusTracking, acme.Status)

	history, err := store.History(context.Background(), acme.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, today, history[0].RecordedOn)
	assert.InDelta(t, 12.0, history[0].GMP, 1e-9)

	summary, err = ingestion.TrackNewIPOs(context.Background(), today)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Existing)
	assert.Zero(t, summary.Added)

	ipos, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, ipos, 2)
}

func TestTrackNewIPOsFetchFailure(t *testing.T) {
	store := NewMemoryStore()
	feed := &staticFeed{err: shared.NewRunError(shared.ErrorCategoryNetwork, "SOURCE_FETCH_FAILED", "down", "test", "Fetch", errors.New("timeout"))}

	_, err := NewIngestionService(feed, store, store, shared.NewDefaultAlertPolicy(), nil).TrackNewIPOs(context.Background(), today)
	require.Error(t, err)
	assert.True(t, shared.IsFatalRunError(err))
}

func TestCollectSamplesUpsertsTodaysSample(t *testing.T) {
	store := NewMemoryStore()
	acme := seedIPO(t, store, "Acme Ltd", day("2024-03-08"), models.StatusTracking)
	alerted := seedIPO(t, store, "Beta Industries", day("2024-03-07"), models.StatusAlertedTomorrow)
	missing := seedIPO(t, store, "Gone Ltd", day("2024-03-08"), models.StatusTracking)
	done := seedIPO(t, store, "Done Ltd", day("2024-03-06"), models.StatusAlertedToday)

	feed := &staticFeed{rows: []models.ScrapedIPO{
		scraped("ACME LTD. IPO (BSE SME)", "2024-03-08", 9),
		scraped("Beta Industries Limited", "2024-03-07", 6),
		scraped("Done Ltd", "2024-03-06", 50),
	}}
	ingestion := NewIngestionService(feed, store, store, shared.NewDefaultAlertPolicy(), nil)

	summary, err := ingestion.CollectSamples(context.Background(), today)
	require.NoError(t, err)
	assert.Equal(t, CollectSummary{Tracked: 3, Recorded: 2, Missing: 1}, summary)

	feed.rows[0].GMPPercentage = 11
	_, err = ingestion.CollectSamples(context.Background(), today)
	require.NoError(t, err)

	history, err := store.History(context.Background(), acme.ID)
	require.NoError(t, err)
	require.Len(t, history, 1, "same day collection overwrites")
	assert.InDelta(t, 11.0, history[0].GMP, 1e-9)

	history, _ = store.History(context.Background(), alerted.ID)
	assert.Len(t, history, 1)
	history, _ = store.History(context.Background(), missing.ID)
	assert.Empty(t, history)
	history, _ = store.History(context.Background(), done.ID)
	assert.Empty(t, history, "terminal IPOs are not collected")
}

func TestCollectSamplesSkipsFetchWithoutTrackedIPOs(t *testing.T) {
	store := NewMemoryStore()
	feed := &staticFeed{}

	summary, err := NewIngestionService(feed, store, store, shared.NewDefaultAlertPolicy(), nil).CollectSamples(context.Background(), today)
	require.NoError(t, err)
	assert.Zero(t, summary.Tracked)
	assert.Zero(t, feed.calls)
}

func TestCollectSamplesSelectionFailureIsFatal(t *testing.T) {
	store := NewMemoryStore()
	ingestion := NewIngestionService(&staticFeed{}, brokenRegistry{store}, store, shared.NewDefaultAlertPolicy(), nil)

	_, err := ingestion.CollectSamples(context.Background(), today)
	require.Error(t, err)
	assert.True(t, shared.IsFatalRunError(err))
}

func TestCollectSamplesAppendsUnderRecencyPolicy(t *testing.T) {
	store := NewMemoryStore()
	acme := seedIPO(t, store, "Acme Ltd", day("2024-03-08"), models.StatusTracking)
	feed := &staticFeed{rows: []models.ScrapedIPO{scraped("Acme Ltd", "2024-03-08", 9)}}

	ingestion := NewIngestionService(feed, store, store, shared.ProfileTwiceDailyRecency(), nil)
	clock := time.Date(2024, 3, 6, 4, 30, 0, 0, time.UTC)
	ingestion.now = func() time.Time { return clock }

	_, err := ingestion.CollectSamples(context.Background(), today)
	require.NoError(t, err)
	clock = clock.Add(5 * time.Hour)
	_, err = ingestion.CollectSamples(context.Background(), today)
	require.NoError(t, err)

	history, err := store.History(context.Background(), acme.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestSnapshotLookupPrefersMatchingEndDate(t *testing.T) {
	ingestion := NewIngestionService(&staticFeed{}, nil, nil, shared.NewDefaultAlertPolicy(), nil)
	index := ingestion.indexSnapshot([]models.ScrapedIPO{
		scraped("Acme Ltd", "2024-01-10", 1),
		scraped("Acme Limited", "2024-03-08", 2),
	})

	row, ok := index.lookup("acme", day("2024-03-08"))
	require.True(t, ok)
	assert.InDelta(t, 2.0, row.GMPPercentage, 1e-9)

	row, ok = index.lookup("acme", day("2024-05-01"))
	require.True(t, ok)
	assert.InDelta(t, 1.0, row.GMPPercentage, 1e-9)

	_, ok = index.lookup("beta", day("2024-03-08"))
	assert.False(t, ok)
}
