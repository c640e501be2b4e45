package services

import (
	"context"
	"fmt"

	"github.com/fenilmodi00/ipo-gmp-tracker/models"
	"github.com/fenilmodi00/ipo-gmp-tracker/shared"
)

// GMPRange buckets IPOs by their latest GMP percentage
type GMPRange string

const (
	GMPRangeAll  GMPRange = "all"
	GMPRangeLow  GMPRange = "low"
	GMPRangeHigh GMPRange = "high"

	// HighGMPPercent is the boundary between the low and high buckets; it belongs to low
	HighGMPPercent = 30.0
	// DefaultGMPRangeLimit caps how many IPOs a range listing returns
	DefaultGMPRangeLimit = 10
)

// ParseGMPRange accepts low, high or all; an empty value means all
func ParseGMPRange(value string) (GMPRange, error) {
	switch r := GMPRange(value); r {
	case "":
		return GMPRangeAll, nil
	case GMPRangeAll, GMPRangeLow, GMPRangeHigh:
		return r, nil
	default:
		return "", shared.NewServiceError(shared.ErrorCategoryValidation, "INVALID_GMP_RANGE",
			fmt.Sprintf("unknown gmp range %q", value), "gmp-range", "ParseGMPRange", false, nil)
	}
}

// Contains reports whether gmp falls in the bucket. Negative GMP is in neither low nor high.
func (r GMPRange) Contains(gmp float64) bool {
	switch r {
	case GMPRangeLow:
		return gmp >= 0 && gmp <= HighGMPPercent
	case GMPRangeHigh:
		return gmp > HighGMPPercent
	default:
		return true
	}
}

// FilterByLatestGMP joins each IPO with its newest sample and keeps those in rng,
// preserving input order. IPOs without samples only pass the all bucket.
// It returns at most limit IPOs (no cap when limit <= 0) and the number that matched.
func FilterByLatestGMP(ctx context.Context, store GMPSampleStore, ipos []models.IPO, rng GMPRange, limit int) ([]models.IPOWithLatestGMP, int, error) {
	matched := make([]models.IPOWithLatestGMP, 0, len(ipos))
	for _, ipo := range ipos {
		latest, err := store.RecentSamples(ctx, ipo.ID, 1)
		if err != nil {
			return nil, 0, fmt.Errorf("latest gmp of %s: %w", ipo.Name, err)
		}

		entry := models.IPOWithLatestGMP{IPO: ipo}
		if len(latest) > 0 {
			gmp := latest[0].GMP
			entry.LatestGMP = &gmp
		}

		if rng == GMPRangeAll || (entry.LatestGMP != nil && rng.Contains(*entry.LatestGMP)) {
			matched = append(matched, entry)
		}
	}

	total := len(matched)
	if limit > 0 && total > limit {
		matched = matched[:limit]
	}
	return matched, total, nil
}
