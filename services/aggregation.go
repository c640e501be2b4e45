package services

import (
	"context"
	"math"
	"time"

	"github.com/fenilmodi00/ipo-gmp-tracker/models"
	"github.com/fenilmodi00/ipo-gmp-tracker/shared"
	"github.com/sirupsen/logrus"
)

// AggregationOutcome classifies the result of reducing an IPO's samples
type AggregationOutcome string

const (
	OutcomeOK AggregationOutcome = "ok"
	// OutcomeNoData means the window matched zero samples
	OutcomeNoData AggregationOutcome = "no_data"
	// OutcomeInsufficient means the recency window matched fewer samples than required
	OutcomeInsufficient AggregationOutcome = "insufficient_data"
)

// AggregationResult is the average GMP of one IPO's window. Average is only meaningful when Outcome is OutcomeOK.
type AggregationResult struct {
	Outcome AggregationOutcome
	Average float64
	Samples []models.GMPSample
	// Days is the calendar window; empty under the recency policy
	Days []time.Time
}

// HasAverage reports whether the result carries a usable average
func (r AggregationResult) HasAverage() bool {
	return r.Outcome == OutcomeOK
}

type AggregationEngine struct {
	Store  GMPSampleStore
	Policy shared.AlertPolicy
}

func NewAggregationEngine(store GMPSampleStore, policy shared.AlertPolicy) *AggregationEngine {
	policy.ValidateAndApplyDefaults()
	return &AggregationEngine{Store: store, Policy: policy}
}

// Aggregate reduces the configured window of ipo's samples to an unrounded mean.
// Store failures are returned unchanged; "no data" is an outcome, not an error.
func (e *AggregationEngine) Aggregate(ctx context.Context, ipo models.IPO) (AggregationResult, error) {
	var result AggregationResult

	switch e.Policy.WindowPolicy {
	case shared.WindowRecency:
		samples, err := e.Store.RecentSamples(ctx, ipo.ID, e.Policy.WindowSize)
		if err != nil {
			return result, err
		}
		result.Samples = samples

		switch {
		case len(samples) == 0:
			result.Outcome = OutcomeNoData
		case len(samples) < e.Policy.MinRecencySamples:
			result.Outcome = OutcomeInsufficient
		default:
			result.Outcome = OutcomeOK
		}

	default:
		result.Days = shared.BusinessDaysBefore(ipo.EndDate, e.Policy.WindowSize)
		samples, err := e.Store.SamplesOnDays(ctx, ipo.ID, result.Days)
		if err != nil {
			return result, err
		}
		result.Samples = canonicalPerDay(samples)

		if len(result.Samples) == 0 {
			result.Outcome = OutcomeNoData
		} else {
			result.Outcome = OutcomeOK
		}
	}

	if result.Outcome == OutcomeOK {
		result.Average = MeanGMP(result.Samples)
	}

	logrus.WithFields(logrus.Fields{
		"component":    "AggregationEngine",
		"ipo":          ipo.Name,
		"policy":       e.Policy.WindowPolicy,
		"sample_count": len(result.Samples),
		"outcome":      result.Outcome,
		"average_gmp":  RoundGMP(result.Average),
	}).Debug("Aggregated GMP window")

	return result, nil
}

// canonicalPerDay keeps the first sample seen for each recorded day; input is newest first
func canonicalPerDay(samples []models.GMPSample) []models.GMPSample {
	seen := make(map[time.Time]bool, len(samples))
	kept := make([]models.GMPSample, 0, len(samples))
	for _, s := range samples {
		day := shared.DateOf(s.RecordedOn)
		if seen[day] {
			continue
		}
		seen[day] = true
		kept = append(kept, s)
	}
	return kept
}

// MeanGMP is the arithmetic mean of the samples' GMP values, 0 for no samples
func MeanGMP(samples []models.GMPSample) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s.GMP
	}
	return sum / float64(len(samples))
}

// RoundGMP rounds for display only
func RoundGMP(value float64) float64 {
	return math.Round(value*100) / 100
}
