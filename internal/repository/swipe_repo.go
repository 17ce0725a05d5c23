package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/explorex/nomad-connect/internal/db"
)

// SwipeRepository provides data access methods for the Swipe model.
type SwipeRepository struct {
	db *gorm.DB
}

// NewSwipeRepository creates a new repository bound to the given DB connection.
func NewSwipeRepository(database *gorm.DB) *SwipeRepository {
	return &SwipeRepository{db: database}
}

// UpsertSwipe inserts or updates the swipe made by swiper -> swiped.
//
// Behavior:
//   - If the (swiper_id, swiped_id) pair exists, the row is updated with
//     the new direction and timestamp.
//   - Otherwise a new row is inserted.
//   - Composite PK ensures the overwrite guarantee.
//
// Example:
//
//	repo.UpsertSwipe(ctx, 1, 2, "right") // user 1 right-swiped user 2
func (r *SwipeRepository) UpsertSwipe(ctx context.Context, swiperID, swipedID uint64, direction string) error {
	swipe := db.Swipe{
		SwiperID:  swiperID,
		SwipedID:  swipedID,
		Direction: direction,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "swiper_id"}, {Name: "swiped_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"direction", "updated_at"}),
		}).
		Create(&swipe).Error
}

// HasRightSwipe checks whether swiper has an active right-swipe on
// swiped. Used for mutual-like detection after recording a swipe.
func (r *SwipeRepository) HasRightSwipe(ctx context.Context, swiperID, swipedID uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Swipe{}).
		Where("swiper_id = ? AND swiped_id = ? AND direction = ?", swiperID, swipedID, "right").
		Count(&count).Error
	return count > 0, err
}
