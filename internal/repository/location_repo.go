package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/explorex/nomad-connect/internal/db"
	"github.com/explorex/nomad-connect/internal/geo"
)

// locationMaxAge is how old a reported location may be before the radar
// stops matching on it.
const locationMaxAge = 7 * 24 * time.Hour

// Candidate is a location row joined with the visible parts of its
// owner's profile, as consumed by the radar matcher.
type Candidate struct {
	UserID    uint64
	Username  string
	Verified  bool
	IsDemo    bool
	Lat       float64
	Lng       float64
	UpdatedAt time.Time
}

// LocationRepository provides data access for per-user locations.
type LocationRepository struct {
	db *gorm.DB
}

// NewLocationRepository creates a new repository bound to the given DB connection.
func NewLocationRepository(database *gorm.DB) *LocationRepository {
	return &LocationRepository{db: database}
}

// Upsert stores the user's latest position, one row per user.
func (r *LocationRepository) Upsert(ctx context.Context, userID uint64, lat, lng float64) error {
	loc := db.UserLocation{
		UserID: userID,
		Lat:    lat,
		Lng:    lng,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"lat", "lng", "updated_at"}),
		}).
		Create(&loc).Error
}

// FindCandidatesInBox returns visible users whose locations lie strictly
// inside the bounding box.
//
// Behavior:
//   - The requester is excluded.
//   - Locations older than seven days are excluded (staleness rule).
//   - Users with is_visible = false never appear, regardless of distance.
//   - The box is a superset of the search circle; the caller applies the
//     exact haversine cut.
func (r *LocationRepository) FindCandidatesInBox(
	ctx context.Context,
	requesterID uint64,
	box geo.BoundingBox,
) ([]Candidate, error) {
	var candidates []Candidate

	since := time.Now().UTC().Add(-locationMaxAge)

	err := r.db.WithContext(ctx).
		Table("user_locations l").
		Select("l.user_id, l.lat, l.lng, l.updated_at, u.username, u.verified, u.is_demo").
		Joins("JOIN users u ON u.id = l.user_id").
		Where("l.user_id <> ?", requesterID).
		Where("l.updated_at > ?", since).
		Where("u.active = ? AND u.is_visible = ?", true, true).
		Where("l.lat > ? AND l.lat < ? AND l.lng > ? AND l.lng < ?",
			box.MinLat, box.MaxLat, box.MinLng, box.MaxLng).
		Find(&candidates).Error
	if err != nil {
		return nil, err
	}
	return candidates, nil
}
