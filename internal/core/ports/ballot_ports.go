package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/chapterelect/elections/internal/core/domain"
)

type BallotRepository interface {
	// RecordBallot is the single serialization point of the subsystem: in one
	// transaction it compare-and-swaps the link from issued to used, writes
	// one vote row per selection and bumps the derived tally counters. When
	// the conditional update matches no row the transaction aborts with the
	// link's terminal status error and no votes are written.
	RecordBallot(ctx context.Context, linkID uuid.UUID, votes []*domain.Vote) error
}

type BallotService interface {
	// Cast validates the credential and selections, then records the ballot.
	// Validation failures never consume the link.
	Cast(ctx context.Context, rawToken string, selections map[uuid.UUID]uuid.UUID) (*domain.Receipt, error)
}
