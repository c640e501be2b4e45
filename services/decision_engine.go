package services

import (
	"context"
	"fmt"
	"time"

	"github.com/fenilmodi00/ipo-gmp-tracker/models"
	"github.com/fenilmodi00/ipo-gmp-tracker/shared"
	"github.com/sirupsen/logrus"
)

// RunSummary counts what one alert pass did
type RunSummary struct {
	Today            time.Time `json:"today"`
	Evaluated        int       `json:"evaluated"`
	AlertedTomorrow  int       `json:"alerted_tomorrow"`
	AlertedToday     int       `json:"alerted_today"`
	Expired          int       `json:"expired"`
	NoData           int       `json:"no_data"`
	BelowThreshold   int       `json:"below_threshold"`
	DeliveryFailures int       `json:"delivery_failures"`
	Errors           int       `json:"errors"`
	FailureSamples   []error   `json:"-"`
}

// AlertEngine decides, per tracked IPO and day, whether to notify and how its status moves.
// It keeps no state between runs; everything lives in the registry.
type AlertEngine struct {
	Registry   IPORegistry
	Aggregator *AggregationEngine
	Notifier   Notifier
	Policy     shared.AlertPolicy

	metrics *shared.ServiceMetrics
	now     func() time.Time
}

func NewAlertEngine(registry IPORegistry, store GMPSampleStore, notifier Notifier, policy shared.AlertPolicy) *AlertEngine {
	policy.ValidateAndApplyDefaults()
	return &AlertEngine{
		Registry:   registry,
		Aggregator: NewAggregationEngine(store, policy),
		Notifier:   notifier,
		Policy:     policy,
		metrics:    shared.NewServiceMetrics("alert-engine"),
		now:        time.Now,
	}
}

// Metrics exposes the engine's cumulative counters
func (e *AlertEngine) Metrics() *shared.ServiceMetrics {
	return e.metrics
}

// Run performs the closing-tomorrow pass and then the closing-today pass for today.
// Only a failed candidate selection aborts the run; per-IPO failures are logged and counted.
func (e *AlertEngine) Run(ctx context.Context, today time.Time) (RunSummary, error) {
	today = shared.DateOf(today)
	tomorrow := shared.AddDays(today, 1)
	summary := RunSummary{Today: today}
	start := time.Now()

	logger := logrus.WithFields(logrus.Fields{
		"component": "AlertEngine",
		"today":     shared.FormatDate(today),
		"threshold": e.Policy.GMPThresholdPercent,
		"policy":    e.Policy.WindowPolicy,
	})
	logger.Info("Starting alert run")

	closingTomorrow, err := e.Registry.FindByStatusAndEndDate(ctx, models.StatusTracking, tomorrow)
	if err != nil {
		e.metrics.RecordRequest(false, time.Since(start))
		return summary, shared.NewRunError(shared.ErrorCategoryDatabase, "CANDIDATE_SELECTION_FAILED",
			"failed to select IPOs closing tomorrow", "alert-engine", "Run", err).
			WithDetails(map[string]string{"end_date": shared.FormatDate(tomorrow)})
	}
	for _, ipo := range closingTomorrow {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		e.record(&summary, ipo, e.evaluateClosingTomorrow(ctx, ipo, &summary))
	}

	// alerted_tomorrow first, then tracking IPOs that reach their closing day unannounced
	primary, err := e.Registry.FindByStatusAndEndDate(ctx, models.StatusAlertedTomorrow, today)
	if err != nil {
		e.metrics.RecordRequest(false, time.Since(start))
		return summary, shared.NewRunError(shared.ErrorCategoryDatabase, "CANDIDATE_SELECTION_FAILED",
			"failed to select IPOs alerted for today", "alert-engine", "Run", err).
			WithDetails(map[string]string{"end_date": shared.FormatDate(today)})
	}
	catchUp, err := e.Registry.FindByStatusAndEndDate(ctx, models.StatusTracking, today)
	if err != nil {
		e.metrics.RecordRequest(false, time.Since(start))
		return summary, shared.NewRunError(shared.ErrorCategoryDatabase, "CANDIDATE_SELECTION_FAILED",
			"failed to select tracking IPOs closing today", "alert-engine", "Run", err).
			WithDetails(map[string]string{"end_date": shared.FormatDate(today)})
	}
	for _, ipo := range append(primary, catchUp...) {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		e.record(&summary, ipo, e.evaluateClosingToday(ctx, ipo, &summary))
	}

	e.metrics.RecordRequest(summary.Errors == 0, time.Since(start))

	fields := logrus.Fields{
		"evaluated":         summary.Evaluated,
		"alerted_tomorrow":  summary.AlertedTomorrow,
		"alerted_today":     summary.AlertedToday,
		"expired":           summary.Expired,
		"no_data":           summary.NoData,
		"below_threshold":   summary.BelowThreshold,
		"delivery_failures": summary.DeliveryFailures,
		"errors":            summary.Errors,
		"duration":          time.Since(start),
	}
	if summary.Errors > 0 {
		logger.WithFields(fields).Warn(shared.BuildBatchProcessingErrorSummary(
			summary.Evaluated-summary.Errors, summary.Errors, summary.FailureSamples))
	} else {
		logger.WithFields(fields).Info("Alert run completed")
	}

	return summary, nil
}

func (e *AlertEngine) record(summary *RunSummary, ipo models.IPO, err error) {
	summary.Evaluated++
	if err == nil {
		return
	}

	summary.Errors++
	if len(summary.FailureSamples) < 3 {
		summary.FailureSamples = append(summary.FailureSamples, fmt.Errorf("%s: %w", ipo.Name, err))
	}
	e.metrics.IncrementCounter("ipo_errors")

	entry := logrus.WithFields(logrus.Fields{
		"component": "AlertEngine",
		"ipo_id":    ipo.ID,
		"ipo":       ipo.Name,
		"status":    ipo.Status,
	}).WithError(err)
	if IsNotFound(err) {
		entry.Warn("IPO disappeared during run, skipping")
		return
	}
	entry.Error("Failed to evaluate IPO, continuing with next")
}

func (e *AlertEngine) evaluateClosingTomorrow(ctx context.Context, ipo models.IPO, summary *RunSummary) error {
	logger := logrus.WithFields(logrus.Fields{"component": "AlertEngine", "pass": "closing_tomorrow", "ipo": ipo.Name})

	result, err := e.Aggregator.Aggregate(ctx, ipo)
	if err != nil {
		return err
	}

	if !result.HasAverage() {
		// one more day of collection remains
		summary.NoData++
		logger.WithField("outcome", result.Outcome).Warn("No usable GMP window, leaving IPO in tracking")
		return nil
	}

	if result.Average < e.Policy.GMPThresholdPercent {
		summary.BelowThreshold++
		logger.WithField("average_gmp", RoundGMP(result.Average)).Info("Average GMP below threshold")
		if e.Policy.ExpireBelowThresholdEarly {
			if err := e.transition(ctx, ipo, models.StatusExpired); err != nil {
				return err
			}
			summary.Expired++
		}
		return nil
	}

	if !e.deliver(ctx, models.AlertClosingTomorrow, ipo, result) {
		summary.DeliveryFailures++
		logger.Warn("Closing tomorrow alert not delivered, will retry next run")
		return nil
	}

	if err := e.transition(ctx, ipo, models.StatusAlertedTomorrow); err != nil {
		return err
	}
	summary.AlertedTomorrow++
	return nil
}

func (e *AlertEngine) evaluateClosingToday(ctx context.Context, ipo models.IPO, summary *RunSummary) error {
	logger := logrus.WithFields(logrus.Fields{"component": "AlertEngine", "pass": "closing_today", "ipo": ipo.Name})

	result, err := e.Aggregator.Aggregate(ctx, ipo)
	if err != nil {
		return err
	}

	if !result.HasAverage() {
		summary.NoData++
		logger.WithField("outcome", result.Outcome).Warn("No usable GMP window on closing day, expiring")
		if err := e.transition(ctx, ipo, models.StatusExpired); err != nil {
			return err
		}
		summary.Expired++
		return nil
	}

	if result.Average < e.Policy.GMPThresholdPercent {
		summary.BelowThreshold++
		logger.WithField("average_gmp", RoundGMP(result.Average)).Info("Average GMP below threshold on closing day, expiring")
		if err := e.transition(ctx, ipo, models.StatusExpired); err != nil {
			return err
		}
		summary.Expired++
		return nil
	}

	if !e.deliver(ctx, models.AlertClosingToday, ipo, result) {
		summary.DeliveryFailures++
		logger.Warn("Closing today alert not delivered, will retry next run")
		return nil
	}

	if err := e.transition(ctx, ipo, models.StatusAlertedToday); err != nil {
		return err
	}
	summary.AlertedToday++
	return nil
}

func (e *AlertEngine) deliver(ctx context.Context, kind models.AlertKind, ipo models.IPO, result AggregationResult) bool {
	message := models.AlertMessage{
		Kind:           kind,
		IPO:            ipo,
		Samples:        result.Samples,
		AverageGMP:     result.Average,
		Recommendation: models.RecommendationProceed,
		GeneratedAt:    e.now(),
	}

	delivered := e.Notifier.Deliver(ctx, message)
	if delivered {
		e.metrics.IncrementCounter("alerts_delivered")
	} else {
		e.metrics.IncrementCounter("delivery_failures")
	}
	return delivered
}

func (e *AlertEngine) transition(ctx context.Context, ipo models.IPO, next models.IPOStatus) error {
	if !ipo.Status.CanTransitionTo(next) {
		return shared.NewServiceError(shared.ErrorCategoryValidation, "ILLEGAL_TRANSITION",
			fmt.Sprintf("cannot move %s from %s to %s", ipo.Name, ipo.Status, next),
			"alert-engine", "transition", false, nil)
	}

	if err := e.Registry.UpdateStatus(ctx, ipo.ID, next); err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"component": "AlertEngine",
		"ipo":       ipo.Name,
		"from":      ipo.Status,
		"to":        next,
	}).Info("IPO status transitioned")
	e.metrics.IncrementCounter("transitions_" + string(next))
	return nil
}
