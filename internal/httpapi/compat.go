package httpapi

import (
	"net/http"
)

type compatibilityRequest struct {
	UserID      uint64 `json:"userId" validate:"required"`
	OtherUserID uint64 `json:"otherUserId" validate:"required"`
	Tier        string `json:"tier"`
}

type feedbackRequest struct {
	UserID   uint64 `json:"userId" validate:"required"`
	Category string `json:"category" validate:"required,oneof=bug idea abuse other"`
	Message  string `json:"message" validate:"required,max=2000"`
}

func (s *Server) handleCompatibilityCheck(w http.ResponseWriter, r *http.Request) {
	var req compatibilityRequest
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

	result, err := s.compat.Check(r.Context(), req.UserID, req.OtherUserID, tier)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleQuotaStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUserID(w, r)
	if !ok {
		return
	}
	if !authorizeIdentity(w, r, userID) {
		return
	}

	tier, err := s.resolveTier(r, userID, "")
	if err != nil {
		writeAppError(w, err)
		return
	}

	radarUsage, compatUsage, err := s.ledger.Status(r.Context(), userID, tier)
	if err != nil {
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"tier": string(tier),
		"radarScans": map[string]int{
			"used": radarUsage.Used, "limit": radarUsage.Limit,
		},
		"compatibilityChecks": map[string]int{
			"used": compatUsage.Used, "limit": compatUsage.Limit,
		},
	})
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if !authorizeIdentity(w, r, req.UserID) {
		return
	}

	id, err := s.accounts.SubmitFeedback(r.Context(), req.UserID, req.Category, req.Message)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}
