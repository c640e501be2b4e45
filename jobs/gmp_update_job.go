package jobs

import (
	"context"
	"time"

	"github.com/fenilmodi00/ipo-gmp-tracker/services"
	"github.com/fenilmodi00/ipo-gmp-tracker/shared"
	"github.com/sirupsen/logrus"
)

// GMPCollectJob records today's GMP for every IPO still awaiting an alert
type GMPCollectJob struct {
	runGuard
	Ingestion *services.IngestionService
	Location  *time.Location
}

func NewGMPCollectJob(ingestion *services.IngestionService, loc *time.Location) *GMPCollectJob {
	return &GMPCollectJob{Ingestion: ingestion, Location: loc}
}

func (j *GMPCollectJob) Name() string { return "collect" }

func (j *GMPCollectJob) Run(ctx context.Context) error {
	if !j.acquire(j.Name()) {
		return nil
	}
	defer j.release()

	ctx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()

	start := time.Now()
	logrus.Info("Running GMP Collect Job")

	summary, err := j.Ingestion.CollectSamples(ctx, shared.TodayIn(j.Location))
	if err != nil {
		logrus.Errorf("GMP Collect Job failed: %v", err)
		return err
	}

	if summary.Tracked > 0 && summary.Recorded == 0 {
		logrus.Warn("GMP Collect Job: no tracked IPO matched the source snapshot")
	}

	logCompletion(j.Name(), start, logrus.Fields{
		"tracked":  summary.Tracked,
		"recorded": summary.Recorded,
		"missing":  summary.Missing,
		"failed":   summary.Failed,
	})
	return nil
}
