package domain

import (
	"time"

	"github.com/google/uuid"
)

// Vote deliberately carries no voter or voting-link reference. The only
// coupling between a ballot and its voter is the transaction that marks the
// link used while these rows are written.
type Vote struct {
	ID          uuid.UUID `json:"id"`
	ElectionID  uuid.UUID `json:"election_id"`
	PositionID  uuid.UUID `json:"position_id"`
	CandidateID uuid.UUID `json:"candidate_id"`
	CastAt      time.Time `json:"cast_at"`
}

// Receipt confirms a recorded ballot. It never echoes the selections and its
// ID is unrelated to the voting link.
type Receipt struct {
	ReceiptID  uuid.UUID `json:"receipt_id"`
	ElectionID uuid.UUID `json:"election_id"`
	CastAt     time.Time `json:"cast_at"`
}
