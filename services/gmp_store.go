package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/fenilmodi00/ipo-gmp-tracker/models"
	"github.com/fenilmodi00/ipo-gmp-tracker/shared"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// GMPSampleStore persists GMP readings. Store failures are returned as
// retryable database errors; callers decide whether they are fatal.
type GMPSampleStore interface {
	// RecordOrUpdate keeps one canonical sample per (ipo, day), overwriting a same-day reading
	RecordOrUpdate(ctx context.Context, ipoID uuid.UUID, day time.Time, gmp float64) error
	// Append records a new sample even if the day already has one
	Append(ctx context.Context, ipoID uuid.UUID, at time.Time, gmp float64) error
	// RecentSamples returns up to limit samples, newest first
	RecentSamples(ctx context.Context, ipoID uuid.UUID, limit int) ([]models.GMPSample, error)
	// SamplesOnDays returns samples whose recorded day is one of days, newest first
	SamplesOnDays(ctx context.Context, ipoID uuid.UUID, days []time.Time) ([]models.GMPSample, error)
	// History returns every sample of the IPO, oldest first
	History(ctx context.Context, ipoID uuid.UUID) ([]models.GMPSample, error)
}

// PostgresGMPSampleStore stores samples in the gmp_history table
type PostgresGMPSampleStore struct {
	DB *sql.DB
}

func NewPostgresGMPSampleStore(db *sql.DB) *PostgresGMPSampleStore {
	return &PostgresGMPSampleStore{DB: db}
}

const sampleColumns = "id, ipo_id, gmp, recorded_on, recorded_at"

func (s *PostgresGMPSampleStore) RecordOrUpdate(ctx context.Context, ipoID uuid.UUID, day time.Time, gmp float64) error {
	dayText := shared.FormatDate(shared.DateOf(day))

	result, err := s.DB.ExecContext(ctx, `
		UPDATE gmp_history SET gmp = $1, recorded_at = NOW()
		WHERE ipo_id = $2 AND recorded_on = $3::date`,
		gmp, ipoID, dayText)
	if err != nil {
		return storeError(err, "RecordOrUpdate")
	}

	updated, err := result.RowsAffected()
	if err != nil {
		return storeError(err, "RecordOrUpdate")
	}
	if updated > 0 {
		logrus.WithFields(logrus.Fields{
			"component": "GMPSampleStore",
			"ipo_id":    ipoID,
			"day":       dayText,
			"gmp":       gmp,
		}).Debug("Updated same-day GMP sample")
		return nil
	}

	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO gmp_history (id, ipo_id, gmp, recorded_on, recorded_at)
		VALUES ($1, $2, $3, $4::date, NOW())`,
		uuid.New(), ipoID, gmp, dayText)
	if err != nil {
		return storeError(err, "RecordOrUpdate")
	}
	return nil
}

func (s *PostgresGMPSampleStore) Append(ctx context.Context, ipoID uuid.UUID, at time.Time, gmp float64) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO gmp_history (id, ipo_id, gmp, recorded_on, recorded_at)
		VALUES ($1, $2, $3, $4::date, $5)`,
		uuid.New(), ipoID, gmp, shared.FormatDate(shared.DateOf(at)), at)
	if err != nil {
		return storeError(err, "Append")
	}
	return nil
}

func (s *PostgresGMPSampleStore) RecentSamples(ctx context.Context, ipoID uuid.UUID, limit int) ([]models.GMPSample, error) {
	if limit <= 0 {
		return nil, nil
	}
	return s.query(ctx, "RecentSamples", `
		SELECT `+sampleColumns+` FROM gmp_history
		WHERE ipo_id = $1
		ORDER BY recorded_at DESC
		LIMIT $2`, ipoID, limit)
}

func (s *PostgresGMPSampleStore) SamplesOnDays(ctx context.Context, ipoID uuid.UUID, days []time.Time) ([]models.GMPSample, error) {
	if len(days) == 0 {
		return nil, nil
	}

	dayTexts := make([]string, len(days))
	for i, day := range days {
		dayTexts[i] = shared.FormatDate(shared.DateOf(day))
	}

	return s.query(ctx, "SamplesOnDays", `
		SELECT `+sampleColumns+` FROM gmp_history
		WHERE ipo_id = $1 AND recorded_on = ANY($2::date[])
		ORDER BY recorded_on DESC, recorded_at DESC`, ipoID, pq.Array(dayTexts))
}

func (s *PostgresGMPSampleStore) History(ctx context.Context, ipoID uuid.UUID) ([]models.GMPSample, error) {
	return s.query(ctx, "History", `
		SELECT `+sampleColumns+` FROM gmp_history
		WHERE ipo_id = $1
		ORDER BY recorded_on ASC, recorded_at ASC`, ipoID)
}

func (s *PostgresGMPSampleStore) query(ctx context.Context, operation, query string, args ...interface{}) ([]models.GMPSample, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeError(err, operation)
	}
	defer rows.Close()

	var samples []models.GMPSample
	for rows.Next() {
		var sample models.GMPSample
		if err := rows.Scan(&sample.ID, &sample.IPOID, &sample.GMP, &sample.RecordedOn, &sample.RecordedAt); err != nil {
			return nil, storeError(err, operation)
		}
		sample.RecordedOn = shared.DateOf(sample.RecordedOn)
		samples = append(samples, sample)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(err, operation)
	}
	return samples, nil
}

func storeError(err error, operation string) error {
	return shared.WrapError(err, shared.ErrorCategoryDatabase, "STORE_QUERY_FAILED", "gmp-store", operation, true)
}
