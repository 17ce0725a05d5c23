package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/explorex/nomad-connect/internal/db"
)

// ChatRequestRepository provides data access for radar chat requests.
type ChatRequestRepository struct {
	db *gorm.DB
}

// NewChatRequestRepository creates a new repository bound to the given DB connection.
func NewChatRequestRepository(database *gorm.DB) *ChatRequestRepository {
	return &ChatRequestRepository{db: database}
}

// HasActiveBetween reports whether a pending or accepted request exists
// between the two users in either direction.
func (r *ChatRequestRepository) HasActiveBetween(ctx context.Context, userA, userB uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.ChatRequest{}).
		Where("status IN ?", []string{"pending", "accepted"}).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			userA, userB, userB, userA).
		Count(&count).Error
	return count > 0, err
}

// Create inserts a fresh pending request from sender to receiver.
func (r *ChatRequestRepository) Create(ctx context.Context, senderID, receiverID uint64) (*db.ChatRequest, error) {
	req := db.ChatRequest{
		ID:         uuid.NewString(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Status:     "pending",
	}
	if err := r.db.WithContext(ctx).Create(&req).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

// GetByID fetches a single request.
func (r *ChatRequestRepository) GetByID(ctx context.Context, id string) (*db.ChatRequest, error) {
	var req db.ChatRequest
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// ListForUser returns all requests the user sent or received, newest first.
func (r *ChatRequestRepository) ListForUser(ctx context.Context, userID uint64) ([]db.ChatRequest, error) {
	var reqs []db.ChatRequest
	err := r.db.WithContext(ctx).
		Where("sender_id = ? OR receiver_id = ?", userID, userID).
		Order("created_at DESC").
		Find(&reqs).Error
	return reqs, err
}

// UpdateStatus transitions a pending request to accepted or declined.
// The WHERE on status makes the transition race-safe: only one of two
// concurrent responses wins.
func (r *ChatRequestRepository) UpdateStatus(ctx context.Context, id, status string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&db.ChatRequest{}).
		Where("id = ? AND status = ?", id, "pending").
		Update("status", status)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
