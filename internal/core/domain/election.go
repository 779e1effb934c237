package domain

import (
	"time"

	"github.com/google/uuid"
)

type ElectionStatus string

const (
	ElectionDraft    ElectionStatus = "draft"
	ElectionPending  ElectionStatus = "pending"
	ElectionApproved ElectionStatus = "approved"
	ElectionActive   ElectionStatus = "active"
	ElectionClosed   ElectionStatus = "closed"
)

// transitions holds the one-directional state machine. There is no path out
// of closed.
var transitions = map[ElectionStatus]ElectionStatus{
	ElectionDraft:    ElectionPending,
	ElectionPending:  ElectionApproved,
	ElectionApproved: ElectionActive,
	ElectionActive:   ElectionClosed,
}

// NextStatus returns the only legal successor of from, or false when from is
// terminal.
func NextStatus(from ElectionStatus) (ElectionStatus, bool) {
	next, ok := transitions[from]
	return next, ok
}

type Election struct {
	ID                     uuid.UUID      `json:"id"`
	Title                  string         `json:"title"`
	Description            string         `json:"description,omitempty"`
	ChapterID              string         `json:"chapter_id"`
	Status                 ElectionStatus `json:"status"`
	StartTime              *time.Time     `json:"start_time,omitempty"`
	EndTime                *time.Time     `json:"end_time,omitempty"`
	AllowMultiplePositions bool           `json:"allow_multiple_positions"`
	RequireVerification    bool           `json:"require_verification"`
	PublicResults          bool           `json:"public_results"`
	CreatedBy              uuid.UUID      `json:"created_by"`
	CreatedAt              time.Time      `json:"created_at"`
	Positions              []Position     `json:"positions,omitempty"`
}

type Position struct {
	ID           uuid.UUID   `json:"id"`
	ElectionID   uuid.UUID   `json:"election_id"`
	Title        string      `json:"title"`
	DisplayOrder int         `json:"display_order"`
	Required     bool        `json:"required"`
	Candidates   []Candidate `json:"candidates,omitempty"`
}

type CandidateApproval string

const (
	CandidatePending  CandidateApproval = "pending"
	CandidateApproved CandidateApproval = "approved"
	CandidateRejected CandidateApproval = "rejected"
)

type Candidate struct {
	ID             uuid.UUID         `json:"id"`
	PositionID     uuid.UUID         `json:"position_id"`
	Name           string            `json:"name"`
	PhotoURL       string            `json:"photo_url,omitempty"`
	Bio            string            `json:"bio,omitempty"`
	DisplayOrder   int               `json:"display_order"`
	ApprovalStatus CandidateApproval `json:"approval_status"`
}
