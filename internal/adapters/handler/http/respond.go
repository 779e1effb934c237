package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/chapterelect/elections/internal/core/domain"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			http.Error(w, "failed to encode response", http.StatusInternalServerError)
		}
	}
}

// writeAdminError gives administrators the specific reason.
func writeAdminError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrForbidden):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, domain.ErrElectionNotFound),
		errors.Is(err, domain.ErrPositionNotFound),
		errors.Is(err, domain.ErrCandidateNotFound),
		errors.Is(err, domain.ErrLinkNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrElectionNotActive),
		errors.Is(err, domain.ErrElectionNotClosed),
		errors.Is(err, domain.ErrElectionImmutable):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrServiceUnavailable):
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// writeVoterError collapses every credential failure into one opaque message
// so a probe cannot learn whether a voter or link exists.
func writeVoterError(w http.ResponseWriter, err error) {
	switch {
	case domain.IsRedemptionError(err):
		http.Error(w, "this voting link is not valid", http.StatusForbidden)
	case errors.Is(err, domain.ErrElectionNotActive):
		http.Error(w, "voting is not open for this election", http.StatusConflict)
	case errors.Is(err, domain.ErrInvalidSelection):
		http.Error(w, "invalid selection", http.StatusBadRequest)
	case errors.Is(err, domain.ErrIncompleteBallot):
		http.Error(w, "ballot is missing a required position", http.StatusBadRequest)
	case errors.Is(err, domain.ErrServiceUnavailable):
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
	default:
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}
