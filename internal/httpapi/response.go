package httpapi

import (
	"encoding/json"
	"net/http"

	apperr "github.com/explorex/nomad-connect/internal/errors"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeAppError maps a service error to its HTTP status and JSON body.
func writeAppError(w http.ResponseWriter, err error) {
	status, body := apperr.Map(err)
	writeJSON(w, status, body)
}

func badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, apperr.Body{Error: message})
}

func unauthorized(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, apperr.Body{Error: "unauthorized"})
}
