package quota

import (
	"context"

	"github.com/explorex/nomad-connect/internal/db"
	apperr "github.com/explorex/nomad-connect/internal/errors"
	"github.com/explorex/nomad-connect/internal/repository"
)

// Usage is a snapshot of a user's quota state for one feature.
type Usage struct {
	Used  int
	Limit int
}

// Ledger gates features on daily per-tier usage limits. Counters live
// in the quota_profiles table and reset lazily on a rolling 24h basis
// from the last reset, not at calendar midnight.
type Ledger struct {
	repo *repository.QuotaRepository
}

func NewLedger(repo *repository.QuotaRepository) *Ledger {
	return &Ledger{repo: repo}
}

// Consume spends one unit of the feature for the user, applying the
// lazy 24h reset first. Over-limit returns a QuotaError carrying the
// structured upgrade payload; on success the returned Usage reflects
// the counter after the increment.
func (l *Ledger) Consume(ctx context.Context, userID uint64, tier Tier, feature Feature) (Usage, error) {
	profile, err := l.repo.GetOrCreateProfile(ctx, userID)
	if err != nil {
		return Usage{}, err
	}
	if err := l.repo.ResetIfStale(ctx, profile); err != nil {
		return Usage{}, err
	}

	limit := LimitFor(tier, feature)

	var ok bool
	switch feature {
	case FeatureCompatibility:
		ok, err = l.repo.ConsumeCompatibilityCheck(ctx, userID, limit)
	default:
		ok, err = l.repo.ConsumeRadarScan(ctx, userID, limit)
	}
	if err != nil {
		return Usage{}, err
	}
	if !ok {
		return Usage{}, &apperr.QuotaError{
			Feature: string(feature),
			Limit:   limit,
			Used:    counterFor(profile, feature),
			Tier:    string(tier),
		}
	}

	return Usage{Used: counterFor(profile, feature) + 1, Limit: limit}, nil
}

// Status reports current usage without consuming anything. The lazy
// reset still applies, so a stale profile reads as zeroed.
func (l *Ledger) Status(ctx context.Context, userID uint64, tier Tier) (radar, compat Usage, err error) {
	profile, err := l.repo.GetOrCreateProfile(ctx, userID)
	if err != nil {
		return Usage{}, Usage{}, err
	}
	if err := l.repo.ResetIfStale(ctx, profile); err != nil {
		return Usage{}, Usage{}, err
	}

	radar = Usage{Used: profile.RadarScansUsed, Limit: LimitFor(tier, FeatureRadarScan)}
	compat = Usage{Used: profile.CompatibilityChecksUsed, Limit: LimitFor(tier, FeatureCompatibility)}
	return radar, compat, nil
}

func counterFor(p *db.QuotaProfile, feature Feature) int {
	if feature == FeatureCompatibility {
		return p.CompatibilityChecksUsed
	}
	return p.RadarScansUsed
}
