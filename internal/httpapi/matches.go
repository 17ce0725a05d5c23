package httpapi

import (
	"net/http"
)

const matchPageSize = 20

type swipeRequest struct {
	SwiperID  uint64 `json:"swiperId" validate:"required"`
	SwipedID  uint64 `json:"swipedId" validate:"required"`
	Direction string `json:"direction" validate:"required,oneof=left right"`
}

func (s *Server) handleSwipe(w http.ResponseWriter, r *http.Request) {
	var req swipeRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if !authorizeIdentity(w, r, req.SwiperID) {
		return
	}

	result, err := s.matches.RecordSwipe(r.Context(), req.SwiperID, req.SwipedID, req.Direction)
	if err != nil {
		writeAppError(w, err)
		return
	}

	resp := map[string]any{"success": true}
	if result.Matched {
		resp["match"] = result.Match
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListMatches(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUserID(w, r)
	if !ok {
		return
	}
	if !authorizeIdentity(w, r, userID) {
		return
	}

	var paginationToken *string
	if token := r.URL.Query().Get("paginationToken"); token != "" {
		paginationToken = &token
	}

	matches, nextToken, err := s.matches.ListMatches(r.Context(), userID, paginationToken, matchPageSize)
	if err != nil {
		writeAppError(w, err)
		return
	}

	resp := map[string]any{"matches": matches}
	if nextToken != nil {
		resp["nextPaginationToken"] = *nextToken
	}
	writeJSON(w, http.StatusOK, resp)
}
