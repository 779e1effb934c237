package http

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/chapterelect/elections/internal/core/ports"
)

type ResultsHandler struct {
	service ports.ResultsService
}

func NewResultsHandler(service ports.ResultsService) *ResultsHandler {
	return &ResultsHandler{
		service: service,
	}
}

// Live is reachable without a capability; the public_results flag decides in
// the service whether an anonymous caller may see anything.
func (h *ResultsHandler) Live(w http.ResponseWriter, r *http.Request) {
	electionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid election id", http.StatusBadRequest)
		return
	}

	cap, _ := capabilityFromContext(r)

	results, err := h.service.Live(r.Context(), electionID, cap)
	if err != nil {
		writeAdminError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, results)
}

func (h *ResultsHandler) Final(w http.ResponseWriter, r *http.Request) {
	electionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid election id", http.StatusBadRequest)
		return
	}

	cap, _ := capabilityFromContext(r)

	results, err := h.service.Final(r.Context(), electionID, cap)
	if err != nil {
		writeAdminError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, results)
}

func (h *ResultsHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
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

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "election-"+electionID.String()+".csv"))

	if err := h.service.ExportCSV(r.Context(), cap, electionID, w); err != nil {
		writeAdminError(w, err)
		return
	}
}

func (h *ResultsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		writeAdminError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
