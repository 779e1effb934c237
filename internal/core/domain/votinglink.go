package domain

import (
	"time"

	"github.com/google/uuid"
)

type LinkStatus string

const (
	LinkIssued  LinkStatus = "issued"
	LinkUsed    LinkStatus = "used"
	LinkRevoked LinkStatus = "revoked"
	LinkExpired LinkStatus = "expired"
)

// VotingLink is the durable record of a one-time voting credential. Only the
// token hash is ever stored; the raw token exists once, at issuance.
type VotingLink struct {
	ID         uuid.UUID  `json:"id"`
	ElectionID uuid.UUID  `json:"election_id"`
	VoterID    uuid.UUID  `json:"voter_id"`
	TokenHash  string     `json:"-"`
	Status     LinkStatus `json:"status"`
	IssuedAt   time.Time  `json:"issued_at"`
	UsedAt     *time.Time `json:"used_at,omitempty"`
}

// IssuedLink pairs a freshly minted link with its raw token for one-shot
// delivery. The raw token is never persisted.
type IssuedLink struct {
	Link     VotingLink
	RawToken string
}

type RosterMember struct {
	ElectionID uuid.UUID
	VoterID    uuid.UUID
	Email      string
}
