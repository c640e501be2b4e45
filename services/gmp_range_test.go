package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/fenilmodi00/ipo-gmp-tracker/models"
	"github.com/fenilmodi00/ipo-gmp-tracker/shared"
	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGMPRange(t *testing.T) {
	for input, want := range map[string]GMPRange{"": GMPRangeAll, "all": GMPRangeAll, "low": GMPRangeLow, "high": GMPRangeHigh} {
		got, err := ParseGMPRange(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got)
	}

	_, err := ParseGMPRange("medium")
	var serviceErr *shared.ServiceError
	require.ErrorAs(t, err, &serviceErr)
	assert.Equal(t, "INVALID_GMP_RANGE", serviceErr.Code)
}

func TestGMPRangeBoundaries(t *testing.T) {
	assert.True(t, GMPRangeLow.Contains(0))
	assert.True(t, GMPRangeLow.Contains(30))
	assert.False(t, GMPRangeHigh.Contains(30))
	assert.True(t, GMPRangeHigh.Contains(30.01))
	assert.False(t, GMPRangeLow.Contains(-3.5))
	assert.False(t, GMPRangeHigh.Contains(-3.5))
	assert.True(t, GMPRangeAll.Contains(-3.5))
}

func TestGMPRangeBucketsAreDisjoint(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("non-negative GMP lands in exactly one of low and high", prop.ForAll(
		func(gmp float64) bool {
			low, high := GMPRangeLow.Contains(gmp), GMPRangeHigh.Contains(gmp)
			if gmp < 0 {
				return !low && !high
			}
			return low != high
		},
		gen.Float64Range(-100, 500),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestFilterByLatestGMP(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	low := seedIPO(t, store, "Low Ltd", day("2024-03-07"), models.StatusTracking)
	seedSamples(t, store, low.ID, map[string]float64{"2024-03-05": 45, "2024-03-06": 12})
	high := seedIPO(t, store, "High Ltd", day("2024-03-08"), models.StatusTracking)
	seedSamples(t, store, high.ID, map[string]float64{"2024-03-05": 10, "2024-03-06": 55})
	negative := seedIPO(t, store, "Negative Ltd", day("2024-03-08"), models.StatusTracking)
	seedSamples(t, store, negative.ID, map[string]float64{"2024-03-06": -4})
	fresh := seedIPO(t, store, "Fresh Ltd", day("2024-03-12"), models.StatusTracking)

	ipos := []models.IPO{low, high, negative, fresh}

	matched, total, err := FilterByLatestGMP(ctx, store, ipos, GMPRangeLow, 0)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, low.ID, matched[0].ID, "the newest sample decides the bucket")
	require.NotNil(t, matched[0].LatestGMP)
	assert.InDelta(t, 12.0, *matched[0].LatestGMP, 1e-9)

	matched, _, err = FilterByLatestGMP(ctx, store, ipos, GMPRangeHigh, 0)
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, high.ID, matched[0].ID)

	matched, total, err = FilterByLatestGMP(ctx, store, ipos, GMPRangeAll, 0)
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Nil(t, matched[3].LatestGMP, "IPOs without samples are listed under all")
}

func TestFilterByLatestGMPLimit(t *testing.T) {
	store := NewMemoryStore()
	var ipos []models.IPO
	for i := 0; i < 12; i++ {
		ipo := seedIPO(t, store, fmt.Sprintf("Batch %02d Ltd", i), day("2024-03-07"), models.StatusTracking)
		seedSamples(t, store, ipo.ID, map[string]float64{"2024-03-06": float64(i)})
		ipos = append(ipos, ipo)
	}

	matched, total, err := FilterByLatestGMP(context.Background(), store, ipos, GMPRangeLow, DefaultGMPRangeLimit)
	require.NoError(t, err)
	assert.Equal(t, 12, total)
	require.Len(t, matched, DefaultGMPRangeLimit)
	assert.Equal(t, ipos[0].ID, matched[0].ID)
}

func TestFilterByLatestGMPStoreFailure(t *testing.T) {
	store := NewMemoryStore()
	ipo := seedIPO(t, store, "Acme Ltd", day("2024-03-07"), models.StatusTracking)

	_, _, err := FilterByLatestGMP(context.Background(), failingRecentStore{store}, []models.IPO{ipo}, GMPRangeHigh, 0)
	assert.ErrorIs(t, err, errStoreDown)
}

type failingRecentStore struct {
	*MemoryStore
}

func (f failingRecentStore) RecentSamples(context.Context, uuid.UUID, int) ([]models.GMPSample, error) {
	return nil, errStoreDown
}
