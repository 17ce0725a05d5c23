package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/explorex/nomad-connect/internal/db"
)

// UserRepository provides data access methods for user accounts.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new repository bound to the given DB connection.
func NewUserRepository(database *gorm.DB) *UserRepository {
	return &UserRepository{db: database}
}

// Create inserts a new user row.
func (r *UserRepository) Create(ctx context.Context, user *db.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// GetByID fetches a user by primary key.
func (r *UserRepository) GetByID(ctx context.Context, id uint64) (*db.User, error) {
	var user db.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail fetches a user by their (already normalized) email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*db.User, error) {
	var user db.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// EmailExists reports whether an account already uses the email.
func (r *UserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("email = ?", email).
		Count(&count).Error
	return count > 0, err
}

// SetVisibility flips whether the user appears in radar scan results.
func (r *UserRepository) SetVisibility(ctx context.Context, userID uint64, visible bool) error {
	return r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("id = ?", userID).
		Update("is_visible", visible).Error
}

// TouchLastLogin stamps a successful login.
func (r *UserRepository) TouchLastLogin(ctx context.Context, userID uint64) error {
	return r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("id = ?", userID).
		Update("last_login_at", time.Now().UTC()).Error
}

// SaveFeedback stores a user-submitted feedback row and returns its ID.
func (r *UserRepository) SaveFeedback(ctx context.Context, userID uint64, category, message string) (string, error) {
	fb := db.Feedback{
		ID:       uuid.NewString(),
		UserID:   userID,
		Category: category,
		Message:  message,
	}
	if err := r.db.WithContext(ctx).Create(&fb).Error; err != nil {
		return "", err
	}
	return fb.ID, nil
}
