// Package handler serves the court's JSON API.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/dukerupert/gavel/internal/court"
)

// maxBodyBytes bounds request bodies, including whole-document imports.
const maxBodyBytes = 1 << 20

func parseIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeCourtError maps a rejected case action to a status code.
// Acting on someone else's case is forbidden, acting out of turn conflicts.
func writeCourtError(w http.ResponseWriter, err error) {
	status := http.StatusForbidden
	if errors.Is(err, court.ErrInvalidTransition) {
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
