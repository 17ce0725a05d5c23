package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/explorex/nomad-connect/internal/db"
)

// QuotaRepository provides data access for per-user quota profiles.
// The check-and-increment is a single conditional UPDATE so concurrent
// requests for the same user cannot push a counter past its limit.
type QuotaRepository struct {
	db *gorm.DB
}

// NewQuotaRepository creates a new repository bound to the given DB connection.
func NewQuotaRepository(database *gorm.DB) *QuotaRepository {
	return &QuotaRepository{db: database}
}

// GetOrCreateProfile loads the user's quota profile, lazily creating a
// zeroed one stamped now on first use.
func (r *QuotaRepository) GetOrCreateProfile(ctx context.Context, userID uint64) (*db.QuotaProfile, error) {
	profile := db.QuotaProfile{UserID: userID, LastResetAt: time.Now().UTC()}
	err := r.db.WithContext(ctx).
		Where(db.QuotaProfile{UserID: userID}).
		FirstOrCreate(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// ResetIfStale zeroes both counters once 24h have passed since the last
// reset. The WHERE clause compares the previously seen last_reset_at so
// concurrent readers reset exactly once; losers simply reload.
func (r *QuotaRepository) ResetIfStale(ctx context.Context, profile *db.QuotaProfile) error {
	now := time.Now().UTC()
	if now.Sub(profile.LastResetAt) <= 24*time.Hour {
		return nil
	}

	res := r.db.WithContext(ctx).
		Model(&db.QuotaProfile{}).
		Where("user_id = ? AND last_reset_at = ?", profile.UserID, profile.LastResetAt).
		Updates(map[string]interface{}{
			"radar_scans_used":          0,
			"compatibility_checks_used": 0,
			"last_reset_at":             now,
		})
	if res.Error != nil {
		return res.Error
	}

	// Reload regardless of who won the reset race.
	return r.db.WithContext(ctx).
		Where("user_id = ?", profile.UserID).
		First(profile).Error
}

// ConsumeRadarScan atomically increments the radar counter when it is
// below limit. A negative limit means unlimited. Returns false when the
// user is at or over the limit.
func (r *QuotaRepository) ConsumeRadarScan(ctx context.Context, userID uint64, limit int) (bool, error) {
	return r.consume(ctx, userID, "radar_scans_used", limit)
}

// ConsumeCompatibilityCheck is ConsumeRadarScan for the compatibility counter.
func (r *QuotaRepository) ConsumeCompatibilityCheck(ctx context.Context, userID uint64, limit int) (bool, error) {
	return r.consume(ctx, userID, "compatibility_checks_used", limit)
}

func (r *QuotaRepository) consume(ctx context.Context, userID uint64, column string, limit int) (bool, error) {
	query := r.db.WithContext(ctx).
		Model(&db.QuotaProfile{}).
		Where("user_id = ?", userID)
	if limit >= 0 {
		query = query.Where(column+" < ?", limit)
	}

	res := query.UpdateColumn(column, gorm.Expr(column+" + 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
