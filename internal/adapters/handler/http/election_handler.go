package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/chapterelect/elections/internal/core/domain"
	"github.com/chapterelect/elections/internal/core/ports"
)

type ElectionHandler struct {
	service ports.ElectionService
}

func NewElectionHandler(service ports.ElectionService) *ElectionHandler {
	return &ElectionHandler{
		service: service,
	}
}

type createElectionRequest struct {
	Title                  string     `json:"title"`
	Description            string     `json:"description"`
	ChapterID              string     `json:"chapter_id"`
	StartTime              *time.Time `json:"start_time"`
	EndTime                *time.Time `json:"end_time"`
	AllowMultiplePositions bool       `json:"allow_multiple_positions"`
	RequireVerification    bool       `json:"require_verification"`
	PublicResults          bool       `json:"public_results"`
}

func (h *ElectionHandler) Create(w http.ResponseWriter, r *http.Request) {
	cap, ok := capabilityFromContext(r)
	if !ok {
		http.Error(w, "Unauthorized: missing capability", http.StatusUnauthorized)
		return
	}

	var req createElectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	election, err := h.service.Create(r.Context(), cap, ports.CreateElectionInput{
		Title:                  req.Title,
		Description:            req.Description,
		ChapterID:              req.ChapterID,
		StartTime:              req.StartTime,
		EndTime:                req.EndTime,
		AllowMultiplePositions: req.AllowMultiplePositions,
		RequireVerification:    req.RequireVerification,
		PublicResults:          req.PublicResults,
	})
	if err != nil {
		writeAdminError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, election)
}

func (h *ElectionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid election id", http.StatusBadRequest)
		return
	}

	election, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeAdminError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, election)
}

func (h *ElectionHandler) ListByChapter(w http.ResponseWriter, r *http.Request) {
	cap, ok := capabilityFromContext(r)
	if !ok {
		http.Error(w, "Unauthorized: missing capability", http.StatusUnauthorized)
		return
	}

	chapterID := r.URL.Query().Get("chapter_id")
	if chapterID == "" {
		chapterID = cap.ChapterID
	}

	elections, err := h.service.ListByChapter(r.Context(), cap, chapterID)
	if err != nil {
		writeAdminError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, elections)
}

func (h *ElectionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	cap, ok := capabilityFromContext(r)
	if !ok {
		http.Error(w, "Unauthorized: missing capability", http.StatusUnauthorized)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid election id", http.StatusBadRequest)
		return
	}

	if err := h.service.Delete(r.Context(), cap, id); err != nil {
		writeAdminError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type addPositionRequest struct {
	Title        string `json:"title"`
	DisplayOrder int    `json:"display_order"`
	Required     *bool  `json:"required"`
}

func (h *ElectionHandler) AddPosition(w http.ResponseWriter, r *http.Request) {
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

	var req addPositionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	required := true
	if req.Required != nil {
		required = *req.Required
	}

	position, err := h.service.AddPosition(r.Context(), cap, ports.AddPositionInput{
		ElectionID:   electionID,
		Title:        req.Title,
		DisplayOrder: req.DisplayOrder,
		Required:     required,
	})
	if err != nil {
		writeAdminError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, position)
}

type addCandidateRequest struct {
	Name         string `json:"name"`
	PhotoURL     string `json:"photo_url"`
	Bio          string `json:"bio"`
	DisplayOrder int    `json:"display_order"`
}

func (h *ElectionHandler) AddCandidate(w http.ResponseWriter, r *http.Request) {
	cap, ok := capabilityFromContext(r)
	if !ok {
		http.Error(w, "Unauthorized: missing capability", http.StatusUnauthorized)
		return
	}

	positionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid position id", http.StatusBadRequest)
		return
	}

	var req addCandidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	candidate, err := h.service.AddCandidate(r.Context(), cap, ports.AddCandidateInput{
		PositionID:   positionID,
		Name:         req.Name,
		PhotoURL:     req.PhotoURL,
		Bio:          req.Bio,
		DisplayOrder: req.DisplayOrder,
	})
	if err != nil {
		writeAdminError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, candidate)
}

type approveCandidateRequest struct {
	Approval string `json:"approval"`
}

func (h *ElectionHandler) ApproveCandidate(w http.ResponseWriter, r *http.Request) {
	cap, ok := capabilityFromContext(r)
	if !ok {
		http.Error(w, "Unauthorized: missing capability", http.StatusUnauthorized)
		return
	}

	candidateID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid candidate id", http.StatusBadRequest)
		return
	}

	var req approveCandidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.service.ApproveCandidate(r.Context(), cap, candidateID, domain.CandidateApproval(req.Approval)); err != nil {
		writeAdminError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ElectionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Submit)
}

func (h *ElectionHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Approve)
}

func (h *ElectionHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Start)
}

func (h *ElectionHandler) Close(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Close)
}

func (h *ElectionHandler) transition(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, cap domain.Capability, id uuid.UUID) error) {
	cap, ok := capabilityFromContext(r)
	if !ok {
		http.Error(w, "Unauthorized: missing capability", http.StatusUnauthorized)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid election id", http.StatusBadRequest)
		return
	}

	if err := op(r.Context(), cap, id); err != nil {
		writeAdminError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
