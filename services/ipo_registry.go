package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fenilmodi00/ipo-gmp-tracker/models"
	"github.com/fenilmodi00/ipo-gmp-tracker/shared"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// IPORegistry holds tracked IPOs and their lifecycle status
type IPORegistry interface {
	FindByStatusAndEndDate(ctx context.Context, status models.IPOStatus, endDate time.Time) ([]models.IPO, error)
	FindByStatusAndEndDateIn(ctx context.Context, status models.IPOStatus, endDates []time.Time) ([]models.IPO, error)
	FindByStatus(ctx context.Context, statuses ...models.IPOStatus) ([]models.IPO, error)
	FindByNameAndEndDate(ctx context.Context, name string, endDate time.Time) (*models.IPO, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.IPO, error)
	List(ctx context.Context) ([]models.IPO, error)

	// Create inserts ipo unless (name, end_date) already exists; it reports whether a row was added
	Create(ctx context.Context, ipo *models.IPO) (bool, error)
	// UpdateStatus returns shared.ErrIPONotFound when id matches no row
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.IPOStatus) error
	// DeleteEndedBefore removes IPOs closing strictly before cutoff, samples included
	DeleteEndedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type PostgresIPORegistry struct {
	DB *sql.DB
}

func NewPostgresIPORegistry(db *sql.DB) *PostgresIPORegistry {
	return &PostgresIPORegistry{DB: db}
}

const ipoColumns = "id, name, price, subscription, start_date, end_date, status, created_at, updated_at"

func (r *PostgresIPORegistry) FindByStatusAndEndDate(ctx context.Context, status models.IPOStatus, endDate time.Time) ([]models.IPO, error) {
	return r.query(ctx, "FindByStatusAndEndDate", `
		SELECT `+ipoColumns+` FROM ipos
		WHERE status = $1 AND end_date = $2::date
		ORDER BY name`, string(status), shared.FormatDate(shared.DateOf(endDate)))
}

func (r *PostgresIPORegistry) FindByStatusAndEndDateIn(ctx context.Context, status models.IPOStatus, endDates []time.Time) ([]models.IPO, error) {
	if len(endDates) == 0 {
		return nil, nil
	}

	dates := make([]string, len(endDates))
	for i, d := range endDates {
		dates[i] = shared.FormatDate(shared.DateOf(d))
	}

	return r.query(ctx, "FindByStatusAndEndDateIn", `
		SELECT `+ipoColumns+` FROM ipos
		WHERE status = $1 AND end_date = ANY($2::date[])
		ORDER BY end_date, name`, string(status), pq.Array(dates))
}

func (r *PostgresIPORegistry) FindByStatus(ctx context.Context, statuses ...models.IPOStatus) ([]models.IPO, error) {
	if len(statuses) == 0 {
		return nil, nil
	}

	values := make([]string, len(statuses))
	for i, s := range statuses {
		values[i] = string(s)
	}

	return r.query(ctx, "FindByStatus", `
		SELECT `+ipoColumns+` FROM ipos
		WHERE status = ANY($1)
		ORDER BY end_date, name`, pq.Array(values))
}

func (r *PostgresIPORegistry) FindByNameAndEndDate(ctx context.Context, name string, endDate time.Time) (*models.IPO, error) {
	ipos, err := r.query(ctx, "FindByNameAndEndDate", `
		SELECT `+ipoColumns+` FROM ipos
		WHERE name = $1 AND end_date = $2::date`, name, shared.FormatDate(shared.DateOf(endDate)))
	if err != nil {
		return nil, err
	}
	if len(ipos) == 0 {
		return nil, shared.ErrIPONotFound
	}
	return &ipos[0], nil
}

func (r *PostgresIPORegistry) GetByID(ctx context.Context, id uuid.UUID) (*models.IPO, error) {
	ipos, err := r.query(ctx, "GetByID", `SELECT `+ipoColumns+` FROM ipos WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	if len(ipos) == 0 {
		return nil, shared.ErrIPONotFound
	}
	return &ipos[0], nil
}

func (r *PostgresIPORegistry) List(ctx context.Context) ([]models.IPO, error) {
	return r.query(ctx, "List", `SELECT `+ipoColumns+` FROM ipos ORDER BY end_date DESC, name`)
}

func (r *PostgresIPORegistry) Create(ctx context.Context, ipo *models.IPO) (bool, error) {
	if ipo.ID == uuid.Nil {
		ipo.ID = uuid.New()
	}
	if ipo.Status == "" {
		ipo.Status = models.StatusTracking
	}
	now := time.Now().UTC()
	ipo.CreatedAt, ipo.UpdatedAt = now, now

	var startDate interface{}
	if ipo.StartDate != nil {
		startDate = shared.FormatDate(*ipo.StartDate)
	}

	result, err := r.DB.ExecContext(ctx, `
		INSERT INTO ipos (id, name, price, subscription, start_date, end_date, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5::date, $6::date, $7, $8, $9)
		ON CONFLICT (name, end_date) DO NOTHING`,
		ipo.ID, ipo.Name, ipo.Price, ipo.Subscription, startDate,
		shared.FormatDate(shared.DateOf(ipo.EndDate)), string(ipo.Status), ipo.CreatedAt, ipo.UpdatedAt)
	if err != nil {
		return false, registryError(err, "Create")
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return false, registryError(err, "Create")
	}
	return inserted > 0, nil
}

func (r *PostgresIPORegistry) UpdateStatus(ctx context.Context, id uuid.UUID, status models.IPOStatus) error {
	if !status.IsValid() {
		return shared.NewServiceError(shared.ErrorCategoryValidation, "INVALID_STATUS",
			fmt.Sprintf("unknown ipo status %q", status), "ipo-registry", "UpdateStatus", false, nil)
	}

	result, err := r.DB.ExecContext(ctx,
		`UPDATE ipos SET status = $1, updated_at = NOW() WHERE id = $2`, string(status), id)
	if err != nil {
		return registryError(err, "UpdateStatus")
	}

	updated, err := result.RowsAffected()
	if err != nil {
		return registryError(err, "UpdateStatus")
	}
	if updated == 0 {
		return fmt.Errorf("update status of %s: %w", id, shared.ErrIPONotFound)
	}

	logrus.WithFields(logrus.Fields{
		"component": "IPORegistry",
		"ipo_id":    id,
		"status":    status,
	}).Debug("IPO status updated")
	return nil
}

func (r *PostgresIPORegistry) DeleteEndedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.DB.ExecContext(ctx,
		`DELETE FROM ipos WHERE end_date < $1::date`, shared.FormatDate(shared.DateOf(cutoff)))
	if err != nil {
		return 0, registryError(err, "DeleteEndedBefore")
	}
	return result.RowsAffected()
}

func (r *PostgresIPORegistry) query(ctx context.Context, operation, query string, args ...interface{}) ([]models.IPO, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, registryError(err, operation)
	}
	defer rows.Close()

	var ipos []models.IPO
	for rows.Next() {
		var ipo models.IPO
		var startDate sql.NullTime
		var status string
		if err := rows.Scan(&ipo.ID, &ipo.Name, &ipo.Price, &ipo.Subscription, &startDate,
			&ipo.EndDate, &status, &ipo.CreatedAt, &ipo.UpdatedAt); err != nil {
			return nil, registryError(err, operation)
		}
		if startDate.Valid {
			day := shared.DateOf(startDate.Time)
			ipo.StartDate = &day
		}
		ipo.EndDate = shared.DateOf(ipo.EndDate)
		ipo.Status = models.IPOStatus(status)
		ipos = append(ipos, ipo)
	}
	if err := rows.Err(); err != nil {
		return nil, registryError(err, operation)
	}
	return ipos, nil
}

func registryError(err error, operation string) error {
	return shared.WrapError(err, shared.ErrorCategoryDatabase, "REGISTRY_QUERY_FAILED", "ipo-registry", operation, true)
}

// LoadIPOWithHistory joins an IPO with its full sample history
func LoadIPOWithHistory(ctx context.Context, registry IPORegistry, store GMPSampleStore, id uuid.UUID) (*models.IPOWithHistory, error) {
	ipo, err := registry.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	history, err := store.History(ctx, id)
	if err != nil {
		return nil, err
	}

	result := &models.IPOWithHistory{IPO: *ipo, History: history}
	if len(history) > 0 {
		avg := MeanGMP(history)
		result.AverageGMP = &avg
	}
	return result, nil
}

// IsNotFound reports whether err signals an unknown IPO id
func IsNotFound(err error) bool {
	return errors.Is(err, shared.ErrIPONotFound)
}
