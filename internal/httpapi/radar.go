package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/explorex/nomad-connect/internal/quota"
)

type updateLocationRequest struct {
	UserID uint64   `json:"userId" validate:"required"`
	Lat    *float64 `json:"lat" validate:"required"`
	Lng    *float64 `json:"lng" validate:"required"`
}

type scanRequest struct {
	UserID   uint64   `json:"userId" validate:"required"`
	Lat      *float64 `json:"lat" validate:"required"`
	Lng      *float64 `json:"lng" validate:"required"`
	RadiusKm float64  `json:"radiusKm"`
	Tier     string   `json:"tier"`
}

type toggleVisibilityRequest struct {
	UserID    uint64 `json:"userId" validate:"required"`
	IsVisible *bool  `json:"isVisible" validate:"required"`
}

type chatRequestRequest struct {
	SenderID   uint64 `json:"senderId" validate:"required"`
	ReceiverID uint64 `json:"receiverId" validate:"required"`
}

type respondChatRequestRequest struct {
	UserID   uint64 `json:"userId" validate:"required"`
	Response string `json:"response" validate:"required,oneof=accepted declined"`
}

func (s *Server) handleUpdateLocation(w http.ResponseWriter, r *http.Request) {
	var req updateLocationRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if !authorizeIdentity(w, r, req.UserID) {
		return
	}

	if err := s.radar.UpdateLocation(r.Context(), req.UserID, *req.Lat, *req.Lng); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if !authorizeIdentity(w, r, req.UserID) {
		return
	}

	tier, err := s.resolveTier(r, req.UserID, req.Tier)
	if err != nil {
		writeAppError(w, err)
		return
	}

	result, err := s.radar.Scan(r.Context(), req.UserID, *req.Lat, *req.Lng, req.RadiusKm, tier)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleToggleVisibility(w http.ResponseWriter, r *http.Request) {
	var req toggleVisibilityRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if !authorizeIdentity(w, r, req.UserID) {
		return
	}

	if err := s.radar.ToggleVisibility(r.Context(), req.UserID, *req.IsVisible); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleCreateChatRequest(w http.ResponseWriter, r *http.Request) {
	var req chatRequestRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if !authorizeIdentity(w, r, req.SenderID) {
		return
	}

	created, err := s.radar.RequestChat(r.Context(), req.SenderID, req.ReceiverID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListChatRequests(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUserID(w, r)
	if !ok {
		return
	}
	if !authorizeIdentity(w, r, userID) {
		return
	}

	requests, err := s.radar.ListChatRequests(r.Context(), userID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"requests": requests})
}

func (s *Server) handleRespondChatRequest(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "id")

	var req respondChatRequestRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if !authorizeIdentity(w, r, req.UserID) {
		return
	}

	matchRow, err := s.radar.RespondChatRequest(r.Context(), requestID, req.UserID, req.Response)
	if err != nil {
		writeAppError(w, err)
		return
	}

	resp := map[string]any{"success": true}
	if matchRow != nil {
		resp["match"] = matchRow
	}
	writeJSON(w, http.StatusOK, resp)
}

// resolveTier prefers the tier declared in the request body, falling
// back to the account's stored tier when the body omits it.
func (s *Server) resolveTier(r *http.Request, userID uint64, declared string) (quota.Tier, error) {
	if declared != "" {
		return quota.ParseTier(declared)
	}
	user, err := s.accounts.GetUser(r.Context(), userID)
	if err != nil {
		return "", err
	}
	return quota.ParseTier(user.Tier)
}

// pathUserID parses the {userId} path parameter, answering 400 when it
// is absent or malformed.
func pathUserID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	raw := chi.URLParam(r, "userId")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		badRequest(w, "userId must be a valid id")
		return 0, false
	}
	return id, true
}
