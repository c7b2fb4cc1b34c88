package snapshot

import (
	"context"
	"errors"
	"sync"

	"github.com/SuOnTheRun/intel-hub/internal/domain"
)

var ErrNoSnapshot = errors.New("no snapshot recorded yet")

const (
	maxSnapshotsKept = 96
	maxAlertsKept    = 500
)

// Repository persists refresh snapshots, per-category heat history and
// the alert log. Heat history backs the tension percentile context.
type Repository interface {
	SaveSnapshot(ctx context.Context, snap *domain.Snapshot) error
	Latest(ctx context.Context) (*domain.Snapshot, error)
	HeatHistory(ctx context.Context, category string, limit int) ([]domain.CategoryHeat, error)
	SaveAlerts(ctx context.Context, alerts []domain.Alert) error
	RecentAlerts(ctx context.Context, limit int) ([]domain.Alert, error)
	Close() error
}

type repository struct {
	mu        sync.RWMutex
	snapshots []*domain.Snapshot
	alerts    []domain.Alert
}

// NewRepository creates an in-memory snapshot repository.
func NewRepository() Repository {
	return &repository{}
}

func (r *repository) SaveSnapshot(ctx context.Context, snap *domain.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.snapshots = append(r.snapshots, snap)
	if len(r.snapshots) > maxSnapshotsKept {
		r.snapshots = r.snapshots[len(r.snapshots)-maxSnapshotsKept:]
	}

	return nil
}

func (r *repository) Latest(ctx context.Context) (*domain.Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.snapshots) == 0 {
		return nil, ErrNoSnapshot
	}

	return r.snapshots[len(r.snapshots)-1], nil
}

// HeatHistory returns the category's heat rows from newest to oldest.
func (r *repository) HeatHistory(ctx context.Context, category string, limit int) ([]domain.CategoryHeat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var rows []domain.CategoryHeat
	for i := len(r.snapshots) - 1; i >= 0 && len(rows) < limit; i-- {
		for _, h := range r.snapshots[i].Heat {
			if h.Category == category {
				rows = append(rows, h)
				break
			}
		}
	}

	return rows, nil
}

func (r *repository) SaveAlerts(ctx context.Context, alerts []domain.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.alerts = append(r.alerts, alerts...)
	if len(r.alerts) > maxAlertsKept {
		r.alerts = r.alerts[len(r.alerts)-maxAlertsKept:]
	}

	return nil
}

// RecentAlerts returns alerts newest first.
func (r *repository) RecentAlerts(ctx context.Context, limit int) ([]domain.Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := len(r.alerts)
	if limit > n {
		limit = n
	}

	out := make([]domain.Alert, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, r.alerts[i])
	}

	return out, nil
}

func (r *repository) Close() error {
	return nil
}
