package services

import (
	"context"
	"time"

	"github.com/fenilmodi00/ipo-gmp-tracker/shared"
	"github.com/sirupsen/logrus"
)

// RetentionService deletes IPOs whose closing date is older than the retention window.
// Samples go with them through the foreign key cascade.
type RetentionService struct {
	Registry IPORegistry
	Policy   shared.AlertPolicy
}

func NewRetentionService(registry IPORegistry, policy shared.AlertPolicy) *RetentionService {
	policy.ValidateAndApplyDefaults()
	return &RetentionService{Registry: registry, Policy: policy}
}

// Cutoff is the first end date that is still retained
func (s *RetentionService) Cutoff(today time.Time) time.Time {
	return shared.AddDays(today, -7*s.Policy.RetentionWeeks)
}

func (s *RetentionService) Cleanup(ctx context.Context, today time.Time) (int64, error) {
	cutoff := s.Cutoff(today)
	logger := logrus.WithFields(logrus.Fields{
		"component": "RetentionService",
		"cutoff":    shared.FormatDate(cutoff),
	})
	logger.Info("Cleaning up IPOs past retention")

	deleted, err := s.Registry.DeleteEndedBefore(ctx, cutoff)
	if err != nil {
		return 0, shared.NewRunError(shared.ErrorCategoryDatabase, "CLEANUP_FAILED",
			"failed to delete expired IPOs", "retention", "Cleanup", err)
	}

	logger.WithField("deleted", deleted).Info("Deleted old IPO records")
	return deleted, nil
}
