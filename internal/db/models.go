package db

import (
	"time"
)

// User table
type User struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement"`
	Username     string `gorm:"uniqueIndex;size:64;not null"`
	Email        string `gorm:"uniqueIndex;size:128;not null"`
	PasswordHash string `gorm:"size:255;not null"`
	Active       bool   `gorm:"default:true"`
	LastLoginAt  time.Time
	Tier         string `gorm:"size:16;not null;default:free"`
	// IsVisible controls whether the user appears in other users' radar scans.
	IsVisible bool `gorm:"not null;default:true"`
	// IsDemo marks synthetic profiles; right-swiping one auto-matches.
	IsDemo    bool      `gorm:"not null;default:false"`
	Verified  bool      `gorm:"not null;default:false"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// UserLocation holds the latest reported position, one row per user.
// Upserted on every scan or explicit location update. Rows older than
// seven days are ignored by the radar matcher.
type UserLocation struct {
	UserID    uint64    `gorm:"primaryKey"`
	Lat       float64   `gorm:"not null"`
	Lng       float64   `gorm:"not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;index"`
}

// Swipe represents a swiper's directional decision on another profile.
//
// Composite PK: (SwiperID, SwipedID)
//   - Ensures a single row per ordered pair; re-swiping overwrites
//     direction and timestamp.
//
// Indexes:
//   - idx_swiped_direction(swiped_id, direction)
//     Optimizes the reverse lookup used for mutual-like detection.
type Swipe struct {
	SwiperID  uint64    `gorm:"primaryKey"`
	SwipedID  uint64    `gorm:"primaryKey;index:idx_swiped_direction,priority:1"`
	Direction string    `gorm:"size:8;not null;index:idx_swiped_direction,priority:2"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// Match is a mutually-established connection between two users.
//
// UserAID/UserBID are the canonical unordered pair: UserAID < UserBID
// always, so (A,B) and (B,A) collapse to one row. The unique index plus
// insert-or-ignore makes materialization idempotent under concurrent
// mutual swipes.
type Match struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserAID   uint64    `gorm:"not null;uniqueIndex:idx_match_pair,priority:1" json:"userAId"`
	UserBID   uint64    `gorm:"not null;uniqueIndex:idx_match_pair,priority:2" json:"userBId"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// ChatRequest is a radar-initiated connection request. At most one
// active (pending or accepted) request exists per unordered pair.
type ChatRequest struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	SenderID   uint64    `gorm:"not null;index" json:"senderId"`
	ReceiverID uint64    `gorm:"not null;index" json:"receiverId"`
	Status     string    `gorm:"size:16;not null;default:pending" json:"status"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// QuotaProfile tracks per-user usage of gated features. Counters reset
// lazily once 24h have passed since LastResetAt.
type QuotaProfile struct {
	UserID                  uint64    `gorm:"primaryKey"`
	RadarScansUsed          int       `gorm:"not null;default:0"`
	CompatibilityChecksUsed int       `gorm:"not null;default:0"`
	LastResetAt             time.Time `gorm:"not null"`
}

// Activity is an event with coordinates that radar scans surface when
// it is upcoming and within the requested radius.
type Activity struct {
	ID        string    `gorm:"primaryKey;size:36"`
	Title     string    `gorm:"size:128;not null"`
	Lat       float64   `gorm:"not null"`
	Lng       float64   `gorm:"not null"`
	StartsAt  time.Time `gorm:"not null;index"`
	CreatedBy uint64    `gorm:"not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// Message is a chat message inside a match. Only the count per match is
// needed by this core (ghost-match filtering), plus enough fields to be
// a usable row.
type Message struct {
	ID        string    `gorm:"primaryKey;size:36"`
	MatchID   string    `gorm:"size:36;not null;index"`
	SenderID  uint64    `gorm:"not null"`
	Body      string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// Feedback is a user-submitted report or suggestion.
type Feedback struct {
	ID        string    `gorm:"primaryKey;size:36"`
	UserID    uint64    `gorm:"not null;index"`
	Category  string    `gorm:"size:32;not null"`
	Message   string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}
