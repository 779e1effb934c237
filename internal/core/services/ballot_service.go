package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/chapterelect/elections/internal/core/domain"
	"github.com/chapterelect/elections/internal/core/ports"
)

type ballotService struct {
	links      ports.LinkService
	ballotRepo ports.BallotRepository
	logger     *slog.Logger
}

func NewBallotService(links ports.LinkService, ballotRepo ports.BallotRepository, logger *slog.Logger) ports.BallotService {
	return &ballotService{
		links:      links,
		ballotRepo: ballotRepo,
		logger:     logger,
	}
}

// Cast turns one verified redemption into exactly one recorded ballot. All
// validation happens before the link is consumed, so a voter can correct a
// rejected ballot and resubmit with the same token.
func (s *ballotService) Cast(ctx context.Context, rawToken string, selections map[uuid.UUID]uuid.UUID) (*domain.Receipt, error) {
	access, err := s.links.Redeem(ctx, rawToken)
	if err != nil {
		return nil, err
	}

	election := access.Election
	if election.Status != domain.ElectionActive {
		return nil, domain.ErrElectionNotActive
	}

	if err := validateSelections(election, selections); err != nil {
		return nil, err
	}

	castAt := time.Now()
	votes := make([]*domain.Vote, 0, len(selections))
	for positionID, candidateID := range selections {
		votes = append(votes, &domain.Vote{
			ID:          uuid.New(),
			ElectionID:  election.ID,
			PositionID:  positionID,
			CandidateID: candidateID,
			CastAt:      castAt,
		})
	}

	// Single all-or-nothing unit: the issued-to-used compare-and-swap, the
	// vote rows and the tally increments commit together. Retrying after a
	// timeout is safe; a second attempt on the same link loses the CAS.
	if err := withRetry(ctx, s.logger, "ballot.record", func() error {
		return s.ballotRepo.RecordBallot(ctx, access.Link.ID, votes)
	}); err != nil {
		return nil, err
	}

	s.logger.Info("ballot recorded", "election_id", election.ID, "positions", len(votes))

	// The receipt id is freshly minted and stored nowhere; it cannot be
	// joined back to the link or the votes.
	return &domain.Receipt{
		ReceiptID:  uuid.New(),
		ElectionID: election.ID,
		CastAt:     castAt,
	}, nil
}

func validateSelections(election *domain.Election, selections map[uuid.UUID]uuid.UUID) error {
	if len(selections) == 0 {
		return domain.ErrIncompleteBallot
	}
	if !election.AllowMultiplePositions && len(selections) != 1 {
		return domain.ErrInvalidSelection
	}

	positionsByID := make(map[uuid.UUID]*domain.Position, len(election.Positions))
	for i := range election.Positions {
		positionsByID[election.Positions[i].ID] = &election.Positions[i]
	}

	for positionID, candidateID := range selections {
		position, ok := positionsByID[positionID]
		if !ok {
			return domain.ErrInvalidSelection
		}
		approved := false
		for _, candidate := range position.Candidates {
			if candidate.ID == candidateID && candidate.ApprovalStatus == domain.CandidateApproved {
				approved = true
				break
			}
		}
		if !approved {
			return domain.ErrInvalidSelection
		}
	}

	// Required positions must all be answered, unless the election restricts
	// ballots to a single position.
	if election.AllowMultiplePositions {
		for _, position := range election.Positions {
			if !position.Required {
				continue
			}
			if _, ok := selections[position.ID]; !ok {
				return domain.ErrIncompleteBallot
			}
		}
	}

	return nil
}
