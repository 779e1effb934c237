package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/chapterelect/elections/internal/core/ports"
)

type LinkHandler struct {
	service ports.LinkService
}

func NewLinkHandler(service ports.LinkService) *LinkHandler {
	return &LinkHandler{
		service: service,
	}
}

type generateLinksRequest struct {
	SendNotification bool `json:"send_notification"`
}

type issuedLinkResponse struct {
	VoterID  uuid.UUID `json:"voter_id"`
	RawToken string    `json:"raw_token"`
}

type generateLinksResponse struct {
	Issued  []issuedLinkResponse `json:"issued"`
	Skipped int                  `json:"skipped"`
}

// GenerateLinks returns the raw tokens exactly once; they are not stored and
// cannot be fetched again.
func (h *LinkHandler) GenerateLinks(w http.ResponseWriter, r *http.Request) {
	cap, ok := capabilityFromContext(r)
	if !ok {
		http.Error(w, "Unauthorized: missing capability", http.StatusUnauthorized)
		return
	}

	electionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid election id", http.StatusBadRequest)
		return
	}

	var req generateLinksRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
	}

	result, err := h.service.GenerateLinks(r.Context(), cap, electionID, req.SendNotification)
	if err != nil {
		writeAdminError(w, err)
		return
	}

	resp := generateLinksResponse{Skipped: result.Skipped}
	for _, issued := range result.Issued {
		resp.Issued = append(resp.Issued, issuedLinkResponse{
			VoterID:  issued.Link.VoterID,
			RawToken: issued.RawToken,
		})
	}
	writeJSON(w, http.StatusCreated, resp)
}

type revokeLinkRequest struct {
	VoterID uuid.UUID `json:"voter_id"`
}

func (h *LinkHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	cap, ok := capabilityFromContext(r)
	if !ok {
		http.Error(w, "Unauthorized: missing capability", http.StatusUnauthorized)
		return
	}

	electionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid election id", http.StatusBadRequest)
		return
	}

	var req revokeLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.service.Revoke(r.Context(), cap, electionID, req.VoterID); err != nil {
		writeAdminError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
