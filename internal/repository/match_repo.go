package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/explorex/nomad-connect/internal/db"
	"github.com/explorex/nomad-connect/internal/utils/pagination"
)

// ghostMatchAge is how old an unengaged match may be before the list
// endpoint hides it. Hidden, not deleted.
const ghostMatchAge = 2 * time.Hour

// MatchRepository provides data access methods for the Match model.
type MatchRepository struct {
	db *gorm.DB
}

// NewMatchRepository creates a new repository bound to the given DB connection.
func NewMatchRepository(database *gorm.DB) *MatchRepository {
	return &MatchRepository{db: database}
}

// CanonicalPair orders two user IDs so (A,B) and (B,A) address the same
// match row.
func CanonicalPair(a, b uint64) (uint64, uint64) {
	if a > b {
		return b, a
	}
	return a, b
}

// EnsureMatch materializes the match for an unordered pair.
//
// Behavior:
//   - The pair is canonicalized before writing.
//   - Insert-or-ignore on the (user_a_id, user_b_id) unique index makes
//     the operation idempotent: concurrent mutual swipes converge on a
//     single row.
//   - The surviving row is returned regardless of who inserted it.
func (r *MatchRepository) EnsureMatch(ctx context.Context, userA, userB uint64) (*db.Match, error) {
	a, b := CanonicalPair(userA, userB)

	match := db.Match{
		ID:      uuid.NewString(),
		UserAID: a,
		UserBID: b,
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_a_id"}, {Name: "user_b_id"}},
			DoNothing: true,
		}).
		Create(&match).Error
	if err != nil {
		return nil, err
	}

	// Re-read so a lost insert race still returns the canonical row.
	var existing db.Match
	err = r.db.WithContext(ctx).
		Where("user_a_id = ? AND user_b_id = ?", a, b).
		First(&existing).Error
	if err != nil {
		return nil, err
	}
	return &existing, nil
}

// GetMatch returns the match row for an unordered pair, if any.
func (r *MatchRepository) GetMatch(ctx context.Context, userA, userB uint64) (*db.Match, error) {
	a, b := CanonicalPair(userA, userB)

	var match db.Match
	err := r.db.WithContext(ctx).
		Where("user_a_id = ? AND user_b_id = ?", a, b).
		First(&match).Error
	if err != nil {
		return nil, err
	}
	return &match, nil
}

// ListForUser returns the user's matches, newest first, hiding ghost
// matches: rows older than two hours with zero chat messages. Supports
// cursor-based pagination via paginationToken.
func (r *MatchRepository) ListForUser(
	ctx context.Context,
	userID uint64,
	paginationToken *string,
	limit int,
) ([]db.Match, *string, error) {
	var matches []db.Match

	cursor, err := pagination.Decode(derefString(paginationToken))
	if err != nil {
		return nil, nil, err
	}

	cutoff := time.Now().UTC().Add(-ghostMatchAge)

	query := r.db.WithContext(ctx).
		Table("matches m").
		Where("m.user_a_id = ? OR m.user_b_id = ?", userID, userID).
		Where(`
			m.created_at > ?
			OR EXISTS (
				SELECT 1 FROM messages msg WHERE msg.match_id = m.id
			)`, cutoff).
		Order("m.created_at DESC, m.id DESC").
		Limit(limit + 1)

	// apply cursor
	if cursor.MatchID != "" && cursor.CreatedUnix > 0 {
		ts := time.UnixMilli(cursor.CreatedUnix)
		query = query.Where(
			"(m.created_at < ? OR (m.created_at = ? AND m.id < ?))",
			ts, ts, cursor.MatchID,
		)
	}

	if err := query.Find(&matches).Error; err != nil {
		return nil, nil, err
	}

	// pagination: build next cursor if needed
	var nextToken *string
	if len(matches) > limit {
		last := matches[limit-1]
		token, _ := pagination.Encode(pagination.Cursor{
			MatchID:     last.ID,
			CreatedUnix: last.CreatedAt.UnixMilli(),
		})
		nextToken = &token
		matches = matches[:limit]
	}

	return matches, nextToken, nil
}

// derefString safely dereferences a string pointer for pagination tokens.
func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
