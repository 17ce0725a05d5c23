package httpapi

import (
	"net/http"
	"time"

	"github.com/explorex/nomad-connect/internal/db"
	"github.com/explorex/nomad-connect/internal/ratelimit"
)

type signupRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// userPayload is the public shape of an account; the password hash
// never leaves the server.
type userPayload struct {
	ID        uint64    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Tier      string    `json:"tier"`
	IsVisible bool      `json:"isVisible"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"createdAt"`
}

func toUserPayload(u *db.User) userPayload {
	return userPayload{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Tier:      u.Tier,
		IsVisible: u.IsVisible,
		Verified:  u.Verified,
		CreatedAt: u.CreatedAt,
	}
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	user, sessionToken, err := s.accounts.Signup(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"user":         toUserPayload(user),
		"sessionToken": sessionToken,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	user, sessionToken, err := s.accounts.Login(r.Context(), req.Email, req.Password, ratelimit.ClientKey(r))
	if err != nil {
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user":         toUserPayload(user),
		"sessionToken": sessionToken,
	})
}

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	if err := s.accounts.ForgotPassword(r.Context(), req.Email); err != nil {
		writeAppError(w, err)
		return
	}

	// Always the same answer, whether or not the account exists.
	writeJSON(w, http.StatusAccepted, map[string]string{
		"message": "if the account exists, a reset email has been sent",
	})
}
