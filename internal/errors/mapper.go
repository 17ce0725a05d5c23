// internal/errors/mapper.go
package errors

import (
	"context"
	"errors"
	"net/http"

	"gorm.io/gorm"
)

// Body is the JSON error payload written by the API layer.
type Body struct {
	Error           string `json:"error"`
	Limit           int    `json:"limit,omitempty"`
	Used            int    `json:"used,omitempty"`
	Tier            string `json:"tier,omitempty"`
	RequiresUpgrade bool   `json:"requiresUpgrade,omitempty"`
}

// Map converts service/repo/infra errors into an HTTP status and JSON
// body. Keeps handlers clean by centralizing error mapping.
func Map(err error) (int, Body) {
	if err == nil {
		return http.StatusOK, Body{}
	}

	var vErr *ValidationError
	var qErr *QuotaError
	var lErr *LockedError

	switch {
	case errors.As(err, &vErr):
		return http.StatusBadRequest, Body{Error: vErr.Msg}

	case errors.As(err, &qErr):
		return http.StatusForbidden, Body{
			Error:           qErr.Feature + " limit reached",
			Limit:           qErr.Limit,
			Used:            qErr.Used,
			Tier:            qErr.Tier,
			RequiresUpgrade: true,
		}

	case errors.As(err, &lErr):
		// Same wording as a bad-credentials failure on purpose.
		return http.StatusUnauthorized, Body{Error: "invalid credentials"}

	case errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized, Body{Error: "invalid credentials"}

	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, Body{Error: "unauthorized"}

	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, Body{Error: "forbidden"}

	case errors.Is(err, ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, Body{Error: "not found"}

	case errors.Is(err, ErrConflict):
		return http.StatusConflict, Body{Error: "conflict"}

	case errors.Is(err, ErrUpstream):
		return http.StatusInternalServerError, Body{Error: "service temporarily unavailable"}

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, Body{Error: "request timed out"}

	default:
		return http.StatusInternalServerError, Body{Error: "internal error"}
	}
}
