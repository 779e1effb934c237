package domain

import (
	"time"

	"github.com/google/uuid"
)

type CandidateTally struct {
	CandidateID   uuid.UUID `json:"candidate_id"`
	CandidateName string    `json:"candidate_name"`
	VoteCount     int64     `json:"vote_count"`
}

type PositionResult struct {
	PositionID    uuid.UUID        `json:"position_id"`
	PositionTitle string           `json:"position_title"`
	Tallies       []CandidateTally `json:"tallies"`
}

type ElectionResults struct {
	ElectionID        uuid.UUID        `json:"election_id"`
	Status            ElectionStatus   `json:"status"`
	Positions         []PositionResult `json:"positions"`
	TotalVotesCast    int64            `json:"total_votes_cast"`
	EligibleVoters    int64            `json:"eligible_voters"`
	TurnoutPercentage float64          `json:"turnout_percentage"`
	Frozen            bool             `json:"frozen"`
	ComputedAt        time.Time        `json:"computed_at"`
}

type DashboardStats struct {
	TotalElections  int64 `json:"total_elections"`
	ActiveElections int64 `json:"active_elections"`
}
