package jobs

import (
	"context"
	"time"

	"github.com/fenilmodi00/ipo-gmp-tracker/services"
	"github.com/fenilmodi00/ipo-gmp-tracker/shared"
	"github.com/sirupsen/logrus"
)

// DailyIPOTrackJob registers newly listed IPOs from the source feed
type DailyIPOTrackJob struct {
	runGuard
	Ingestion *services.IngestionService
	Location  *time.Location
}

func NewDailyIPOTrackJob(ingestion *services.IngestionService, loc *time.Location) *DailyIPOTrackJob {
	return &DailyIPOTrackJob{Ingestion: ingestion, Location: loc}
}

func (j *DailyIPOTrackJob) Name() string { return "track" }

func (j *DailyIPOTrackJob) Run(ctx context.Context) error {
	if !j.acquire(j.Name()) {
		return nil
	}
	defer j.release()

	ctx, cancel := context.WithTimeout(ctx, 15*time.Minute)
	defer cancel()

	start := time.Now()
	logrus.Info("Starting Daily IPO Track Job")

	summary, err := j.Ingestion.TrackNewIPOs(ctx, shared.TodayIn(j.Location))
	if err != nil {
		logrus.WithError(err).Error("Daily IPO Track Job failed")
		return err
	}

	logCompletion(j.Name(), start, logrus.Fields{
		"scraped":  summary.Scraped,
		"added":    summary.Added,
		"existing": summary.Existing,
		"too_late": summary.TooLate,
		"failed":   summary.Failed,
	})
	return nil
}
