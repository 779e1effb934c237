package ports

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/chapterelect/elections/internal/core/domain"
)

type TallyRow struct {
	PositionID  uuid.UUID
	CandidateID uuid.UUID
	VoteCount   int64
}

type ResultsRepository interface {
	// CountVotes recomputes tallies from the vote ledger; the ledger is the
	// only source of truth, the cache rows are derived.
	CountVotes(ctx context.Context, electionID uuid.UUID) ([]TallyRow, error)

	// FrozenTallies reads the snapshot stamped at close time.
	FrozenTallies(ctx context.Context, electionID uuid.UUID) ([]TallyRow, error)

	// RefreshTallies re-derives the cached tally rows from votes. Frozen
	// rows are never touched.
	RefreshTallies(ctx context.Context, electionID uuid.UUID) error

	ListUnfrozenElectionIDs(ctx context.Context) ([]uuid.UUID, error)

	Stats(ctx context.Context) (*domain.DashboardStats, error)
}

type ResultsService interface {
	// Live computes current results. cap may be zero-valued for public
	// access; the public_results flag gates that path.
	Live(ctx context.Context, electionID uuid.UUID, cap domain.Capability) (*domain.ElectionResults, error)

	// Final returns the frozen snapshot of a closed election, gated the same
	// way as Live.
	Final(ctx context.Context, electionID uuid.UUID, cap domain.Capability) (*domain.ElectionResults, error)

	ExportCSV(ctx context.Context, cap domain.Capability, electionID uuid.UUID, w io.Writer) error

	Stats(ctx context.Context) (*domain.DashboardStats, error)
}

type SummaryService interface {
	RefreshAllTallies(ctx context.Context) error
}
