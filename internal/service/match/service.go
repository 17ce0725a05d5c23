package match

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/explorex/nomad-connect/internal/app"
	"github.com/explorex/nomad-connect/internal/db"
	apperr "github.com/explorex/nomad-connect/internal/errors"
	"github.com/explorex/nomad-connect/internal/repository"
)

// SwipeResult reports whether recording a swipe produced a match.
type SwipeResult struct {
	Matched bool
	Match   *db.Match
}

// EnrichedMatch is a match row annotated with the counterpart's profile
// for list rendering.
type EnrichedMatch struct {
	ID          string `json:"id"`
	OtherUserID uint64 `json:"otherUserId"`
	Username    string `json:"username"`
	Verified    bool   `json:"verified"`
	CreatedAt   int64  `json:"createdAt"`
}

// Service implements the swipe/match state machine.
//
// Per ordered pair a swipe is absent, left (terminal) or right (match
// candidate). Per unordered pair the state is unmatched or matched;
// matched is terminal and idempotent.
type Service struct {
	appCtx    *app.AppContext
	swipeRepo *repository.SwipeRepository
	matchRepo *repository.MatchRepository
	userRepo  *repository.UserRepository
}

// NewService wires a match service from shared dependencies.
func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:    appCtx,
		swipeRepo: repository.NewSwipeRepository(appCtx.DB),
		matchRepo: repository.NewMatchRepository(appCtx.DB),
		userRepo:  repository.NewUserRepository(appCtx.DB),
	}
}

// RecordSwipe upserts the swipe and materializes a match when policy says so.
//
// Behavior:
//   - Re-swiping the same profile overwrites direction and timestamp.
//   - Right-swiping a synthetic demo profile auto-matches immediately.
//   - Otherwise a match requires a prior right-swipe back from the target.
//   - Materialization is idempotent on the canonical unordered pair, so
//     concurrent mutual swipes still yield exactly one match row.
func (s *Service) RecordSwipe(ctx context.Context, swiperID, swipedID uint64, direction string) (*SwipeResult, error) {
	if direction != "left" && direction != "right" {
		return nil, apperr.Invalid("direction must be left or right")
	}
	if swiperID == swipedID {
		return nil, apperr.Invalid("cannot swipe on yourself")
	}

	swiped, err := s.userRepo.GetByID(ctx, swipedID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("swiped profile")
		}
		return nil, err
	}

	if err := s.swipeRepo.UpsertSwipe(ctx, swiperID, swipedID, direction); err != nil {
		return nil, err
	}

	if direction != "right" {
		return &SwipeResult{}, nil
	}

	shouldMatch := swiped.IsDemo
	if !shouldMatch {
		shouldMatch, err = s.swipeRepo.HasRightSwipe(ctx, swipedID, swiperID)
		if err != nil {
			return nil, err
		}
	}
	if !shouldMatch {
		return &SwipeResult{}, nil
	}

	m, err := s.matchRepo.EnsureMatch(ctx, swiperID, swipedID)
	if err != nil {
		return nil, err
	}

	s.appCtx.Logger.Info("match created", "match_id", m.ID, "user_a", m.UserAID, "user_b", m.UserBID)
	return &SwipeResult{Matched: true, Match: m}, nil
}

// ListMatches returns the user's matches, enriched with the other
// side's profile and filtered of ghost matches (older than two hours
// with no messages). Supports cursor pagination.
func (s *Service) ListMatches(ctx context.Context, userID uint64, paginationToken *string, limit int) ([]EnrichedMatch, *string, error) {
	matches, nextToken, err := s.matchRepo.ListForUser(ctx, userID, paginationToken, limit)
	if err != nil {
		return nil, nil, err
	}

	enriched := make([]EnrichedMatch, 0, len(matches))
	for _, m := range matches {
		otherID := m.UserAID
		if otherID == userID {
			otherID = m.UserBID
		}

		e := EnrichedMatch{
			ID:          m.ID,
			OtherUserID: otherID,
			CreatedAt:   m.CreatedAt.UnixMilli(),
		}

		// Profile enrichment is best-effort; a lookup failure degrades
		// to an unannotated row rather than failing the list.
		if other, err := s.userRepo.GetByID(ctx, otherID); err == nil {
			e.Username = other.Username
			e.Verified = other.Verified
		} else {
			s.appCtx.Logger.Warn("match enrichment failed", "match_id", m.ID, "other_user", otherID, "err", err)
		}

		enriched = append(enriched, e)
	}

	return enriched, nextToken, nil
}
