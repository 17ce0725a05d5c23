package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/explorex/nomad-connect/internal/db"
)

// ActivityRepository provides data access for activities with coordinates.
type ActivityRepository struct {
	db *gorm.DB
}

// NewActivityRepository creates a new repository bound to the given DB connection.
func NewActivityRepository(database *gorm.DB) *ActivityRepository {
	return &ActivityRepository{db: database}
}

// ListUpcoming returns activities starting after now, date ascending.
// The radar matcher applies the exact distance cut.
func (r *ActivityRepository) ListUpcoming(ctx context.Context) ([]db.Activity, error) {
	var activities []db.Activity
	err := r.db.WithContext(ctx).
		Where("starts_at > ?", time.Now().UTC()).
		Order("starts_at ASC").
		Find(&activities).Error
	return activities, err
}
