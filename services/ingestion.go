package services

import (
	"context"
	"time"

	"github.com/fenilmodi00/ipo-gmp-tracker/models"
	"github.com/fenilmodi00/ipo-gmp-tracker/shared"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// TrackSummary reports what TrackNewIPOs did with one snapshot
type TrackSummary struct {
	Scraped  int `json:"scraped"`
	Added    int `json:"added"`
	Existing int `json:"existing"`
	TooLate  int `json:"too_late"`
	Failed   int `json:"failed"`
}

// CollectSummary reports what CollectSamples did with one snapshot
type CollectSummary struct {
	Tracked  int `json:"tracked"`
	Recorded int `json:"recorded"`
	Missing  int `json:"missing"`
	Failed   int `json:"failed"`
}

// IngestionService feeds the registry and sample store from the source feed
type IngestionService struct {
	Source   SourceFeed
	Registry IPORegistry
	Store    GMPSampleStore
	Policy   shared.AlertPolicy
	utility  *UtilityService
	now      func() time.Time
}

func NewIngestionService(source SourceFeed, registry IPORegistry, store GMPSampleStore, policy shared.AlertPolicy, utility *UtilityService) *IngestionService {
	policy.ValidateAndApplyDefaults()
	if utility == nil {
		utility = NewUtilityService()
	}
	return &IngestionService{
		Source:   source,
		Registry: registry,
		Store:    store,
		Policy:   policy,
		utility:  utility,
		now:      time.Now,
	}
}

// TrackNewIPOs registers snapshot IPOs closing at least MinLeadDays after today and records their first sample
func (s *IngestionService) TrackNewIPOs(ctx context.Context, today time.Time) (TrackSummary, error) {
	today = shared.DateOf(today)
	minEndDate := shared.AddDays(today, s.Policy.MinLeadDays)
	logger := logrus.WithFields(logrus.Fields{"component": "IngestionService", "operation": "TrackNewIPOs"})

	scraped, err := s.Source.Fetch(ctx, today)
	if err != nil {
		return TrackSummary{}, err
	}
	summary := TrackSummary{Scraped: len(scraped)}
	if len(scraped) == 0 {
		logger.Warn("No IPOs found in source snapshot")
		return summary, nil
	}

	for _, row := range scraped {
		if row.EndDate.Before(minEndDate) {
			summary.TooLate++
			continue
		}

		ipo := &models.IPO{
			Name:         row.Name,
			Price:        row.Price,
			Subscription: row.Subscription,
			StartDate:    row.StartDate,
			EndDate:      row.EndDate,
			Status:       models.StatusTracking,
		}
		created, err := s.Registry.Create(ctx, ipo)
		if err != nil {
			summary.Failed++
			logger.WithError(err).WithField("ipo", row.Name).Error("Error adding IPO")
			continue
		}
		if !created {
			summary.Existing++
			continue
		}

		if err := s.record(ctx, ipo.ID, today, row.GMPPercentage); err != nil {
			summary.Failed++
			logger.WithError(err).WithField("ipo", row.Name).Error("Error recording initial GMP")
			continue
		}

		summary.Added++
		logger.WithFields(logrus.Fields{
			"ipo":      ipo.Name,
			"end_date": shared.FormatDate(ipo.EndDate),
			"gmp":      row.GMPPercentage,
		}).Info("Added new IPO")
	}

	logger.WithFields(logrus.Fields{
		"scraped":  summary.Scraped,
		"added":    summary.Added,
		"existing": summary.Existing,
		"too_late": summary.TooLate,
		"failed":   summary.Failed,
	}).Info("IPO tracking pass completed")
	return summary, nil
}

// CollectSamples records today's GMP for every IPO that can still be alerted
func (s *IngestionService) CollectSamples(ctx context.Context, today time.Time) (CollectSummary, error) {
	today = shared.DateOf(today)
	logger := logrus.WithFields(logrus.Fields{"component": "IngestionService", "operation": "CollectSamples"})

	tracked, err := s.Registry.FindByStatus(ctx, models.StatusTracking, models.StatusAlertedTomorrow)
	if err != nil {
		return CollectSummary{}, shared.NewRunError(shared.ErrorCategoryDatabase, "CANDIDATE_SELECTION_FAILED",
			"failed to list tracked IPOs", "ingestion", "CollectSamples", err)
	}
	summary := CollectSummary{Tracked: len(tracked)}
	if len(tracked) == 0 {
		logger.Info("No IPOs currently being tracked")
		return summary, nil
	}

	scraped, err := s.Source.Fetch(ctx, today)
	if err != nil {
		return summary, err
	}
	index := s.indexSnapshot(scraped)

	for _, ipo := range tracked {
		row, ok := index.lookup(s.utility.NormalizeIPOName(ipo.Name), ipo.EndDate)
		if !ok {
			summary.Missing++
			logger.WithField("ipo", ipo.Name).Warn("GMP not found for tracked IPO")
			continue
		}

		if err := s.record(ctx, ipo.ID, today, row.GMPPercentage); err != nil {
			summary.Failed++
			logger.WithError(err).WithField("ipo", ipo.Name).Error("Error recording GMP")
			continue
		}
		summary.Recorded++
		logger.WithFields(logrus.Fields{"ipo": ipo.Name, "gmp": row.GMPPercentage}).Debug("Recorded GMP")
	}

	logger.WithFields(logrus.Fields{
		"tracked":  summary.Tracked,
		"recorded": summary.Recorded,
		"missing":  summary.Missing,
		"failed":   summary.Failed,
	}).Info("GMP collection completed")
	return summary, nil
}

// record writes a sample the way the active window policy reads it
func (s *IngestionService) record(ctx context.Context, ipoID uuid.UUID, today time.Time, gmp float64) error {
	if s.Policy.WindowPolicy == shared.WindowRecency {
		return s.Store.Append(ctx, ipoID, s.now(), gmp)
	}
	return s.Store.RecordOrUpdate(ctx, ipoID, today, gmp)
}

type snapshotIndex map[string][]models.ScrapedIPO

func (s *IngestionService) indexSnapshot(rows []models.ScrapedIPO) snapshotIndex {
	index := make(snapshotIndex, len(rows))
	for _, row := range rows {
		key := s.utility.NormalizeIPOName(row.Name)
		index[key] = append(index[key], row)
	}
	return index
}

// lookup prefers the row with the same closing date when a name appears more than once
func (idx snapshotIndex) lookup(name string, endDate time.Time) (models.ScrapedIPO, bool) {
	rows := idx[name]
	if len(rows) == 0 {
		return models.ScrapedIPO{}, false
	}
	for _, row := range rows {
		if row.EndDate.Equal(endDate) {
			return row, true
		}
	}
	return rows[0], true
}
