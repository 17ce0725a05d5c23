package quota

import (
	apperr "github.com/explorex/nomad-connect/internal/errors"
)

// Tier is a subscription level. It is an enumerated type with an
// exhaustive limit mapping so an unknown tier is an error, never a
// silent default.
type Tier string

const (
	TierFree    Tier = "free"
	TierPremium Tier = "premium"
	TierElite   Tier = "elite"
)

// Feature is a quota-gated capability.
type Feature string

const (
	FeatureRadarScan     Feature = "radar_scan"
	FeatureCompatibility Feature = "compatibility_check"
)

// Unlimited marks a feature with no daily cap for a tier.
const Unlimited = -1

type limits struct {
	RadarScans          int
	CompatibilityChecks int
}

var tierLimits = map[Tier]limits{
	TierFree:    {RadarScans: 5, CompatibilityChecks: 3},
	TierPremium: {RadarScans: 20, CompatibilityChecks: 10},
	TierElite:   {RadarScans: Unlimited, CompatibilityChecks: Unlimited},
}

// ParseTier validates a client-supplied tier string.
func ParseTier(s string) (Tier, error) {
	t := Tier(s)
	if _, ok := tierLimits[t]; !ok {
		return "", apperr.Invalid("unknown tier %q", s)
	}
	return t, nil
}

// LimitFor returns the daily limit for a feature at a tier, Unlimited
// when the tier has no cap.
func LimitFor(t Tier, f Feature) int {
	l := tierLimits[t]
	if f == FeatureCompatibility {
		return l.CompatibilityChecks
	}
	return l.RadarScans
}
