package jobs

import (
	"context"
	"time"

	"github.com/fenilmodi00/ipo-gmp-tracker/services"
	"github.com/fenilmodi00/ipo-gmp-tracker/shared"
	"github.com/sirupsen/logrus"
)

type CleanupJob struct {
	runGuard
	Retention *services.RetentionService
	Location  *time.Location
}

func NewCleanupJob(retention *services.RetentionService, loc *time.Location) *CleanupJob {
	return &CleanupJob{Retention: retention, Location: loc}
}

func (j *CleanupJob) Name() string { return "cleanup" }

func (j *CleanupJob) Run(ctx context.Context) error {
	if !j.acquire(j.Name()) {
		return nil
	}
	defer j.release()

	logrus.Info("Starting Cleanup Job")
	ctx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()

	start := time.Now()
	deleted, err := j.Retention.Cleanup(ctx, shared.TodayIn(j.Location))
	if err != nil {
		return err
	}

	logCompletion(j.Name(), start, logrus.Fields{"deleted": deleted})
	return nil
}
