package http

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/chapterelect/elections/internal/core/domain"
	"github.com/chapterelect/elections/internal/core/ports"
)

type BallotHandler struct {
	links   ports.LinkService
	ballots ports.BallotService
}

func NewBallotHandler(links ports.LinkService, ballots ports.BallotService) *BallotHandler {
	return &BallotHandler{
		links:   links,
		ballots: ballots,
	}
}

type redeemRequest struct {
	Token string `json:"token"`
}

type ballotPosition struct {
	ID         uuid.UUID         `json:"id"`
	Title      string            `json:"title"`
	Required   bool              `json:"required"`
	Candidates []ballotCandidate `json:"candidates"`
}

type ballotCandidate struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	PhotoURL string    `json:"photo_url,omitempty"`
	Bio      string    `json:"bio,omitempty"`
}

type ballotFormResponse struct {
	ElectionID             uuid.UUID        `json:"election_id"`
	Title                  string           `json:"title"`
	AllowMultiplePositions bool             `json:"allow_multiple_positions"`
	Positions              []ballotPosition `json:"positions"`
}

// Redeem validates a raw token and returns the ballot form metadata: the
// contest structure and approved candidates, nothing voter-identifying.
func (h *BallotHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	var req redeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	access, err := h.links.Redeem(r.Context(), req.Token)
	if err != nil {
		writeVoterError(w, err)
		return
	}

	election := access.Election
	resp := ballotFormResponse{
		ElectionID:             election.ID,
		Title:                  election.Title,
		AllowMultiplePositions: election.AllowMultiplePositions,
	}
	for _, position := range election.Positions {
		bp := ballotPosition{
			ID:       position.ID,
			Title:    position.Title,
			Required: position.Required,
		}
		for _, candidate := range position.Candidates {
			if candidate.ApprovalStatus != domain.CandidateApproved {
				continue
			}
			bp.Candidates = append(bp.Candidates, ballotCandidate{
				ID:       candidate.ID,
				Name:     candidate.Name,
				PhotoURL: candidate.PhotoURL,
				Bio:      candidate.Bio,
			})
		}
		resp.Positions = append(resp.Positions, bp)
	}

	writeJSON(w, http.StatusOK, resp)
}

type castRequest struct {
	Token      string               `json:"token"`
	Selections map[string]uuid.UUID `json:"selections"` // position id -> candidate id
}

func (h *BallotHandler) Cast(w http.ResponseWriter, r *http.Request) {
	var req castRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	selections := make(map[uuid.UUID]uuid.UUID, len(req.Selections))
	for positionStr, candidateID := range req.Selections {
		positionID, err := uuid.Parse(positionStr)
		if err != nil {
			http.Error(w, "invalid position id", http.StatusBadRequest)
			return
		}
		selections[positionID] = candidateID
	}

	receipt, err := h.ballots.Cast(r.Context(), req.Token, selections)
	if err != nil {
		writeVoterError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, receipt)
}
