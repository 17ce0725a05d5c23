package radar

import (
	"context"
	"errors"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/explorex/nomad-connect/internal/app"
	"github.com/explorex/nomad-connect/internal/db"
	apperr "github.com/explorex/nomad-connect/internal/errors"
	"github.com/explorex/nomad-connect/internal/geo"
	"github.com/explorex/nomad-connect/internal/quota"
	"github.com/explorex/nomad-connect/internal/repository"
)

const (
	// DefaultRadiusKm applies when a scan request omits the radius.
	DefaultRadiusKm = 75.0

	maxNearbyUsers      = 25
	maxNearbyActivities = 10
)

// NearbyUser is one ranked scan result.
type NearbyUser struct {
	UserID     uint64    `json:"userId"`
	Username   string    `json:"username"`
	Verified   bool      `json:"verified"`
	DistanceKm float64   `json:"distanceKm"`
	LastSeenAt time.Time `json:"lastSeenAt"`
}

// NearbyActivity is an upcoming activity within the scan radius.
type NearbyActivity struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	StartsAt   time.Time `json:"startsAt"`
	DistanceKm float64   `json:"distanceKm"`
}

// ScanResult is the full radar scan response payload.
type ScanResult struct {
	Users      []NearbyUser     `json:"users"`
	Activities []NearbyActivity `json:"activities"`
	ScansUsed  int              `json:"scansUsed"`
	ScansLimit int              `json:"scansLimit"`
}

// Service implements the radar feature set: location tracking, the
// quota-gated proximity scan, visibility, and chat requests.
type Service struct {
	appCtx       *app.AppContext
	locationRepo *repository.LocationRepository
	activityRepo *repository.ActivityRepository
	userRepo     *repository.UserRepository
	chatReqRepo  *repository.ChatRequestRepository
	matchRepo    *repository.MatchRepository
	ledger       *quota.Ledger
}

// NewService wires a radar service from shared dependencies.
func NewService(appCtx *app.AppContext, ledger *quota.Ledger) *Service {
	return &Service{
		appCtx:       appCtx,
		locationRepo: repository.NewLocationRepository(appCtx.DB),
		activityRepo: repository.NewActivityRepository(appCtx.DB),
		userRepo:     repository.NewUserRepository(appCtx.DB),
		chatReqRepo:  repository.NewChatRequestRepository(appCtx.DB),
		matchRepo:    repository.NewMatchRepository(appCtx.DB),
		ledger:       ledger,
	}
}

// UpdateLocation upserts the requester's position.
func (s *Service) UpdateLocation(ctx context.Context, userID uint64, lat, lng float64) error {
	if err := validateCoords(lat, lng); err != nil {
		return err
	}
	return s.locationRepo.Upsert(ctx, userID, lat, lng)
}

// Scan performs a quota-gated proximity search around (lat, lng).
//
// Behavior:
//  1. Consumes one radar-scan unit up front; the check-and-increment is
//     a single atomic store operation, so over-quota requests stop here
//     with a structured limit error.
//  2. Upserts the requester's location.
//  3. Bounding-box prefilter, then exact haversine cut at the radius,
//     ranked by distance ascending with most-recent location first on
//     ties, capped at 25.
//  4. Upcoming activities within the same radius, date ascending,
//     capped at 10. An activity lookup failure degrades to an empty
//     list instead of failing the scan.
func (s *Service) Scan(ctx context.Context, userID uint64, lat, lng, radiusKm float64, tier quota.Tier) (*ScanResult, error) {
	if err := validateCoords(lat, lng); err != nil {
		return nil, err
	}
	if radiusKm <= 0 {
		radiusKm = DefaultRadiusKm
	}

	usage, err := s.ledger.Consume(ctx, userID, tier, quota.FeatureRadarScan)
	if err != nil {
		return nil, err
	}

	if err := s.locationRepo.Upsert(ctx, userID, lat, lng); err != nil {
		return nil, err
	}

	box := geo.BoxAround(lat, lng, radiusKm)
	candidates, err := s.locationRepo.FindCandidatesInBox(ctx, userID, box)
	if err != nil {
		return nil, err
	}

	users := make([]NearbyUser, 0, len(candidates))
	for _, c := range candidates {
		dist := geo.HaversineKm(lat, lng, c.Lat, c.Lng)
		if dist > radiusKm {
			continue // the box is a superset, not exact
		}
		users = append(users, NearbyUser{
			UserID:     c.UserID,
			Username:   c.Username,
			Verified:   c.Verified,
			DistanceKm: dist,
			LastSeenAt: c.UpdatedAt,
		})
	}

	sort.Slice(users, func(i, j int) bool {
		if users[i].DistanceKm != users[j].DistanceKm {
			return users[i].DistanceKm < users[j].DistanceKm
		}
		return users[i].LastSeenAt.After(users[j].LastSeenAt)
	})
	if len(users) > maxNearbyUsers {
		users = users[:maxNearbyUsers]
	}

	activities := s.nearbyActivities(ctx, lat, lng, radiusKm)

	s.appCtx.Logger.Debug("radar scan",
		"user_id", userID, "radius_km", radiusKm,
		"candidates", len(candidates), "results", len(users))

	return &ScanResult{
		Users:      users,
		Activities: activities,
		ScansUsed:  usage.Used,
		ScansLimit: usage.Limit,
	}, nil
}

func (s *Service) nearbyActivities(ctx context.Context, lat, lng, radiusKm float64) []NearbyActivity {
	upcoming, err := s.activityRepo.ListUpcoming(ctx)
	if err != nil {
		s.appCtx.Logger.Warn("activity lookup failed, returning none", "err", err)
		return []NearbyActivity{}
	}

	result := make([]NearbyActivity, 0, maxNearbyActivities)
	for _, a := range upcoming {
		dist := geo.HaversineKm(lat, lng, a.Lat, a.Lng)
		if dist > radiusKm {
			continue
		}
		result = append(result, NearbyActivity{
			ID:         a.ID,
			Title:      a.Title,
			StartsAt:   a.StartsAt,
			DistanceKm: dist,
		})
		if len(result) == maxNearbyActivities {
			break
		}
	}
	return result
}

// ToggleVisibility flips whether the user appears in others' scans.
func (s *Service) ToggleVisibility(ctx context.Context, userID uint64, visible bool) error {
	return s.userRepo.SetVisibility(ctx, userID, visible)
}

// RequestChat opens a pending chat request toward another user.
//
// Behavior:
//   - Self-requests are invalid.
//   - The receiver must exist.
//   - At most one active (pending or accepted) request per unordered
//     pair; a duplicate is a conflict.
func (s *Service) RequestChat(ctx context.Context, senderID, receiverID uint64) (*db.ChatRequest, error) {
	if senderID == receiverID {
		return nil, apperr.Invalid("cannot send a chat request to yourself")
	}

	if _, err := s.userRepo.GetByID(ctx, receiverID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("receiver")
		}
		return nil, err
	}

	active, err := s.chatReqRepo.HasActiveBetween(ctx, senderID, receiverID)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, apperr.ErrConflict
	}

	return s.chatReqRepo.Create(ctx, senderID, receiverID)
}

// ListChatRequests returns requests the user sent or received.
func (s *Service) ListChatRequests(ctx context.Context, userID uint64) ([]db.ChatRequest, error) {
	return s.chatReqRepo.ListForUser(ctx, userID)
}

// RespondChatRequest resolves a pending request as accepted or declined.
//
// Behavior:
//   - Only the receiver may respond; anyone else gets forbidden.
//   - Accepting materializes a match through the same canonical-pair,
//     insert-or-ignore path mutual swipes use.
//   - Responding to an already-resolved request is a conflict (the
//     status transition is a compare-and-set on "pending").
func (s *Service) RespondChatRequest(ctx context.Context, requestID string, responderID uint64, response string) (*db.Match, error) {
	if response != "accepted" && response != "declined" {
		return nil, apperr.Invalid("response must be accepted or declined")
	}

	req, err := s.chatReqRepo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("chat request")
		}
		return nil, err
	}
	if req.ReceiverID != responderID {
		return nil, apperr.Forbidden("only the receiver can respond")
	}

	ok, err := s.chatReqRepo.UpdateStatus(ctx, requestID, response)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.ErrConflict
	}

	if response != "accepted" {
		return nil, nil
	}
	return s.matchRepo.EnsureMatch(ctx, req.SenderID, req.ReceiverID)
}

func validateCoords(lat, lng float64) error {
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return apperr.Invalid("coordinates out of range")
	}
	return nil
}
