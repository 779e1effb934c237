package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/chapterelect/elections/internal/core/domain"
)

type LinkRepository interface {
	// InsertIssued creates a link in issued state. A voter already holding a
	// live link for the election is left untouched and inserted reports
	// false; the no-two-live-links invariant is the database's partial
	// unique index, not an application-level check.
	InsertIssued(ctx context.Context, link *domain.VotingLink) (inserted bool, err error)

	ListByVoter(ctx context.Context, electionID, voterID uuid.UUID) ([]*domain.VotingLink, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.VotingLink, error)

	// Revoke transitions the voter's live link to revoked. Returns
	// domain.ErrLinkNotFound when no live link exists.
	Revoke(ctx context.Context, electionID, voterID uuid.UUID) error

	// ExpireOverdue flips issued links of elections whose end time has
	// passed to expired, returning how many rows changed.
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)

	CountByStatus(ctx context.Context, electionID uuid.UUID, status domain.LinkStatus) (int64, error)
}

type RosterRepository interface {
	Members(ctx context.Context, electionID uuid.UUID) ([]domain.RosterMember, error)
	Count(ctx context.Context, electionID uuid.UUID) (int64, error)
}

// LinkNotifier delivers one raw token to one voter. Delivery transport is a
// collaborator concern; the core never re-sends a raw token after issuance.
type LinkNotifier interface {
	Deliver(ctx context.Context, member domain.RosterMember, rawToken string) error
}

type GenerateLinksResult struct {
	Issued  []domain.IssuedLink
	Skipped int // voters who already held a live link
}

// BallotAccess is the handle a successful redemption yields. It is valid for
// exactly one cast; the issued-to-used transition is what consumes it.
type BallotAccess struct {
	Link     *domain.VotingLink
	Election *domain.Election
}

type LinkService interface {
	GenerateLinks(ctx context.Context, cap domain.Capability, electionID uuid.UUID, sendNotification bool) (*GenerateLinksResult, error)
	Redeem(ctx context.Context, rawToken string) (*BallotAccess, error)
	Revoke(ctx context.Context, cap domain.Capability, electionID, voterID uuid.UUID) error
	ExpireOverdue(ctx context.Context) (int64, error)
}
