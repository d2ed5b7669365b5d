// Package sessions persists the audit trail of automation runs.
package sessions

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/conciergelabs/checkout-concierge/pkg/db/models"
)

// ErrNotFound is returned when no run exists for a session.
var ErrNotFound = errors.New("checkout run not found")

// Repository defines persistence operations for checkout run records.
type Repository interface {
	Create(ctx context.Context, run *models.CheckoutRun) (*models.CheckoutRun, error)
	FindBySession(ctx context.Context, sessionID string) (*models.CheckoutRun, error)
	UpdateOutcome(ctx context.Context, sessionID string, updates map[string]any) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a sessions repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, run *models.CheckoutRun) (*models.CheckoutRun, error) {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.Outcome == "" {
		run.Outcome = models.RunOutcomePending
	}
	if err := r.db.WithContext(ctx).Create(run).Error; err != nil {
		return nil, err
	}
	return run, nil
}

func (r *repository) FindBySession(ctx context.Context, sessionID string) (*models.CheckoutRun, error) {
	var run models.CheckoutRun
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *repository) UpdateOutcome(ctx context.Context, sessionID string, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.CheckoutRun{}).
		Where("session_id = ?", sessionID).
		Updates(updates).Error
}
