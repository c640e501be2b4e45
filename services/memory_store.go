package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fenilmodi00/ipo-gmp-tracker/models"
	"github.com/fenilmodi00/ipo-gmp-tracker/shared"
	"github.com/google/uuid"
)

// MemoryStore is an in-process IPORegistry and GMPSampleStore with the same
// semantics as the Postgres implementations, cascade delete included.
type MemoryStore struct {
	mu      sync.RWMutex
	ipos    map[uuid.UUID]models.IPO
	samples map[uuid.UUID][]models.GMPSample
	clock   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		ipos:    make(map[uuid.UUID]models.IPO),
		samples: make(map[uuid.UUID][]models.GMPSample),
		clock:   time.Now,
	}
}

func (m *MemoryStore) FindByStatusAndEndDate(ctx context.Context, status models.IPOStatus, endDate time.Time) ([]models.IPO, error) {
	return m.FindByStatusAndEndDateIn(ctx, status, []time.Time{endDate})
}

func (m *MemoryStore) FindByStatusAndEndDateIn(_ context.Context, status models.IPOStatus, endDates []time.Time) ([]models.IPO, error) {
	wanted := make(map[time.Time]bool, len(endDates))
	for _, d := range endDates {
		wanted[shared.DateOf(d)] = true
	}
	return m.filter(func(ipo models.IPO) bool {
		return ipo.Status == status && wanted[ipo.EndDate]
	}), nil
}

func (m *MemoryStore) FindByStatus(_ context.Context, statuses ...models.IPOStatus) ([]models.IPO, error) {
	wanted := make(map[models.IPOStatus]bool, len(statuses))
	for _, s := range statuses {
		wanted[s] = true
	}
	return m.filter(func(ipo models.IPO) bool { return wanted[ipo.Status] }), nil
}

func (m *MemoryStore) FindByNameAndEndDate(_ context.Context, name string, endDate time.Time) (*models.IPO, error) {
	day := shared.DateOf(endDate)
	found := m.filter(func(ipo models.IPO) bool { return ipo.Name == name && ipo.EndDate.Equal(day) })
	if len(found) == 0 {
		return nil, shared.ErrIPONotFound
	}
	return &found[0], nil
}

func (m *MemoryStore) GetByID(_ context.Context, id uuid.UUID) (*models.IPO, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ipo, ok := m.ipos[id]
	if !ok {
		return nil, shared.ErrIPONotFound
	}
	return &ipo, nil
}

func (m *MemoryStore) List(_ context.Context) ([]models.IPO, error) {
	ipos := m.filter(func(models.IPO) bool { return true })
	sort.SliceStable(ipos, func(i, j int) bool { return ipos[i].EndDate.After(ipos[j].EndDate) })
	return ipos, nil
}

func (m *MemoryStore) Create(_ context.Context, ipo *models.IPO) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ipo.EndDate = shared.DateOf(ipo.EndDate)
	for _, existing := range m.ipos {
		if existing.Name == ipo.Name && existing.EndDate.Equal(ipo.EndDate) {
			return false, nil
		}
	}

	if ipo.ID == uuid.Nil {
		ipo.ID = uuid.New()
	}
	if ipo.Status == "" {
		ipo.Status = models.StatusTracking
	}
	now := m.clock().UTC()
	ipo.CreatedAt, ipo.UpdatedAt = now, now
	m.ipos[ipo.ID] = *ipo
	return true, nil
}

func (m *MemoryStore) UpdateStatus(_ context.Context, id uuid.UUID, status models.IPOStatus) error {
	if !status.IsValid() {
		return shared.NewServiceError(shared.ErrorCategoryValidation, "INVALID_STATUS",
			fmt.Sprintf("unknown ipo status %q", status), "memory-store", "UpdateStatus", false, nil)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	ipo, ok := m.ipos[id]
	if !ok {
		return fmt.Errorf("update status of %s: %w", id, shared.ErrIPONotFound)
	}
	ipo.Status = status
	ipo.UpdatedAt = m.clock().UTC()
	m.ipos[id] = ipo
	return nil
}

func (m *MemoryStore) DeleteEndedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff = shared.DateOf(cutoff)
	var deleted int64
	for id, ipo := range m.ipos {
		if ipo.EndDate.Before(cutoff) {
			delete(m.ipos, id)
			delete(m.samples, id)
			deleted++
		}
	}
	return deleted, nil
}

func (m *MemoryStore) RecordOrUpdate(_ context.Context, ipoID uuid.UUID, day time.Time, gmp float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	day = shared.DateOf(day)
	now := m.clock().UTC()
	samples := m.samples[ipoID]
	for i := range samples {
		if samples[i].RecordedOn.Equal(day) {
			samples[i].GMP = gmp
			samples[i].RecordedAt = now
			return nil
		}
	}
	m.samples[ipoID] = append(samples, models.GMPSample{ID: uuid.New(), IPOID: ipoID, GMP: gmp, RecordedOn: day, RecordedAt: now})
	return nil
}

func (m *MemoryStore) Append(_ context.Context, ipoID uuid.UUID, at time.Time, gmp float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.samples[ipoID] = append(m.samples[ipoID], models.GMPSample{
		ID: uuid.New(), IPOID: ipoID, GMP: gmp, RecordedOn: shared.DateOf(at), RecordedAt: at,
	})
	return nil
}

func (m *MemoryStore) RecentSamples(_ context.Context, ipoID uuid.UUID, limit int) ([]models.GMPSample, error) {
	if limit <= 0 {
		return nil, nil
	}
	samples := m.sorted(ipoID, true)
	if limit < len(samples) {
		samples = samples[:limit]
	}
	return samples, nil
}

func (m *MemoryStore) SamplesOnDays(_ context.Context, ipoID uuid.UUID, days []time.Time) ([]models.GMPSample, error) {
	wanted := make(map[time.Time]bool, len(days))
	for _, d := range days {
		wanted[shared.DateOf(d)] = true
	}

	var matched []models.GMPSample
	for _, s := range m.sorted(ipoID, true) {
		if wanted[s.RecordedOn] {
			matched = append(matched, s)
		}
	}
	return matched, nil
}

func (m *MemoryStore) History(_ context.Context, ipoID uuid.UUID) ([]models.GMPSample, error) {
	return m.sorted(ipoID, false), nil
}

// sorted orders by recorded day, then recorded time
func (m *MemoryStore) sorted(ipoID uuid.UUID, newestFirst bool) []models.GMPSample {
	m.mu.RLock()
	samples := append([]models.GMPSample(nil), m.samples[ipoID]...)
	m.mu.RUnlock()

	sort.SliceStable(samples, func(i, j int) bool {
		a, b := samples[i], samples[j]
		if newestFirst {
			a, b = b, a
		}
		if !a.RecordedOn.Equal(b.RecordedOn) {
			return a.RecordedOn.Before(b.RecordedOn)
		}
		return a.RecordedAt.Before(b.RecordedAt)
	})
	return samples
}

func (m *MemoryStore) filter(keep func(models.IPO) bool) []models.IPO {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.IPO
	for _, ipo := range m.ipos {
		if keep(ipo) {
			out = append(out, ipo)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].EndDate.Equal(out[j].EndDate) {
			return out[i].EndDate.Before(out[j].EndDate)
		}
		return out[i].Name < out[j].Name
	})
	return out
}

var (
	_ IPORegistry    = (*MemoryStore)(nil)
	_ GMPSampleStore = (*MemoryStore)(nil)
	_ IPORegistry    = (*PostgresIPORegistry)(nil)
	_ GMPSampleStore = (*PostgresGMPSampleStore)(nil)
)
