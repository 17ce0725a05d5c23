package compat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/explorex/nomad-connect/internal/app"
	apperr "github.com/explorex/nomad-connect/internal/errors"
	"github.com/explorex/nomad-connect/internal/llm"
	"github.com/explorex/nomad-connect/internal/quota"
	"github.com/explorex/nomad-connect/internal/repository"
)

// Result is one compatibility check outcome.
type Result struct {
	Summary     string `json:"summary"`
	Cached      bool   `json:"cached"`
	ChecksUsed  int    `json:"checksUsed"`
	ChecksLimit int    `json:"checksLimit"`
}

// Service implements the quota-gated compatibility check over the
// external text-completion collaborator, with a 24h per-pair cache.
type Service struct {
	appCtx   *app.AppContext
	userRepo *repository.UserRepository
	ledger   *quota.Ledger
	llm      llm.Client
}

// NewService wires a compatibility service from shared dependencies.
func NewService(appCtx *app.AppContext, ledger *quota.Ledger, client llm.Client) *Service {
	return &Service{
		appCtx:   appCtx,
		userRepo: repository.NewUserRepository(appCtx.DB),
		ledger:   ledger,
		llm:      client,
	}
}

// Check runs (or replays) a compatibility check between two users.
//
// Behavior:
//   - One result per unordered pair per 24h: a cache hit is returned
//     as-is and does not consume quota.
//   - On a miss, one compatibility-check unit is consumed atomically
//     before the collaborator is invoked.
//   - The collaborator call carries a deadline; its failure surfaces as
//     an upstream error rather than crashing the pipeline, and the
//     consumed unit is not refunded (the attempt was made).
func (s *Service) Check(ctx context.Context, userID, otherUserID uint64, tier quota.Tier) (*Result, error) {
	if userID == otherUserID {
		return nil, apperr.Invalid("cannot check compatibility with yourself")
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	other, err := s.userRepo.GetByID(ctx, otherUserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("profile")
		}
		return nil, err
	}

	if cached, hit, err := s.appCtx.RedisCache.GetCompatibility(ctx, userID, otherUserID); err == nil && hit {
		_, compat, err := s.ledger.Status(ctx, userID, tier)
		if err != nil {
			return nil, err
		}
		return &Result{Summary: cached, Cached: true, ChecksUsed: compat.Used, ChecksLimit: compat.Limit}, nil
	} else if err != nil {
		// Cache unavailability degrades to a fresh computation.
		s.appCtx.Logger.Warn("compatibility cache unavailable", "err", err)
	}

	usage, err := s.ledger.Consume(ctx, userID, tier, quota.FeatureCompatibility)
	if err != nil {
		return nil, err
	}

	llmCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	prompt := fmt.Sprintf(
		"In two sentences, describe what travel companions %s and %s would have in common.",
		user.Username, other.Username,
	)
	summary, err := s.llm.Complete(llmCtx, prompt)
	if err != nil {
		s.appCtx.Logger.Error("completion collaborator failed", "err", err)
		return nil, fmt.Errorf("compatibility check: %w", apperr.ErrUpstream)
	}

	if err := s.appCtx.RedisCache.SetCompatibility(ctx, userID, otherUserID, summary); err != nil {
		s.appCtx.Logger.Warn("failed to cache compatibility result", "err", err)
	}

	return &Result{Summary: summary, ChecksUsed: usage.Used, ChecksLimit: usage.Limit}, nil
}
