package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/chapterelect/elections/internal/core/credential"
	"github.com/chapterelect/elections/internal/core/domain"
	"github.com/chapterelect/elections/internal/core/ports"
)

type linkService struct {
	codec        *credential.Codec
	linkRepo     ports.LinkRepository
	electionRepo ports.ElectionRepository
	rosterRepo   ports.RosterRepository
	notifier     ports.LinkNotifier
	logger       *slog.Logger
}

func NewLinkService(
	codec *credential.Codec,
	linkRepo ports.LinkRepository,
	electionRepo ports.ElectionRepository,
	rosterRepo ports.RosterRepository,
	notifier ports.LinkNotifier,
	logger *slog.Logger,
) ports.LinkService {
	return &linkService{
		codec:        codec,
		linkRepo:     linkRepo,
		electionRepo: electionRepo,
		rosterRepo:   rosterRepo,
		notifier:     notifier,
		logger:       logger,
	}
}

// GenerateLinks issues one live link per eligible voter who does not already
// hold one. Re-invocation is a no-op per voter: the partial unique index
// rejects a second live link and the voter is counted as skipped, so a voter
// can never accumulate two usable ballots.
func (s *linkService) GenerateLinks(ctx context.Context, cap domain.Capability, electionID uuid.UUID, sendNotification bool) (*ports.GenerateLinksResult, error) {
	if !cap.CanManage() {
		return nil, domain.ErrForbidden
	}

	election, err := s.electionRepo.GetByID(ctx, electionID)
	if err != nil {
		return nil, err
	}
	// Link generation becomes available when the lifecycle controller starts
	// the election.
	if election.Status != domain.ElectionActive {
		return nil, domain.ErrElectionNotActive
	}

	var members []domain.RosterMember
	if err := withRetry(ctx, s.logger, "links.roster", func() error {
		var err error
		members, err = s.rosterRepo.Members(ctx, electionID)
		return err
	}); err != nil {
		return nil, err
	}

	result := &ports.GenerateLinksResult{}
	for _, member := range members {
		raw, hash, err := s.codec.Issue(electionID, member.VoterID)
		if err != nil {
			return nil, err
		}

		link := &domain.VotingLink{
			ID:         uuid.New(),
			ElectionID: electionID,
			VoterID:    member.VoterID,
			TokenHash:  hash,
			Status:     domain.LinkIssued,
			IssuedAt:   time.Now(),
		}

		inserted, err := s.linkRepo.InsertIssued(ctx, link)
		if err != nil {
			return nil, err
		}
		if !inserted {
			result.Skipped++
			continue
		}

		result.Issued = append(result.Issued, domain.IssuedLink{Link: *link, RawToken: raw})

		if sendNotification {
			if err := s.notifier.Deliver(ctx, member, raw); err != nil {
				// The link exists and its hash is stored; the raw token in
				// this batch result is the only remaining copy. Surface the
				// failure but do not roll back issuance.
				s.logger.Error("voting link delivery failed", "election_id", electionID, "voter_id", member.VoterID, "error", err)
			}
		}
	}

	s.logger.Info("voting links generated",
		"election_id", electionID, "issued", len(result.Issued), "skipped", result.Skipped)
	return result, nil
}

// Redeem validates a raw token and returns the single-use ballot access
// handle. Every failure in here is terminal for the token.
func (s *linkService) Redeem(ctx context.Context, rawToken string) (*ports.BallotAccess, error) {
	electionID, voterID, err := s.codec.Decode(rawToken)
	if err != nil {
		return nil, domain.ErrInvalidCredential
	}

	var links []*domain.VotingLink
	if err := withRetry(ctx, s.logger, "links.lookup", func() error {
		var err error
		links, err = s.linkRepo.ListByVoter(ctx, electionID, voterID)
		return err
	}); err != nil {
		return nil, err
	}

	// A voter may hold dead links from revoke-and-reissue cycles; the MAC
	// picks out the one this token belongs to.
	var match *domain.VotingLink
	for _, link := range links {
		if s.codec.Verify(rawToken, link.TokenHash) {
			match = link
			break
		}
	}
	if match == nil {
		return nil, domain.ErrInvalidCredential
	}

	switch match.Status {
	case domain.LinkUsed:
		return nil, domain.ErrLinkUsed
	case domain.LinkRevoked:
		return nil, domain.ErrLinkRevoked
	case domain.LinkExpired:
		return nil, domain.ErrLinkExpired
	}

	election, err := s.electionRepo.GetByID(ctx, electionID)
	if err != nil {
		return nil, err
	}
	if election.EndTime != nil && election.EndTime.Before(time.Now()) {
		return nil, domain.ErrLinkExpired
	}

	return &ports.BallotAccess{Link: match, Election: election}, nil
}

func (s *linkService) Revoke(ctx context.Context, cap domain.Capability, electionID, voterID uuid.UUID) error {
	if !cap.CanManage() {
		return domain.ErrForbidden
	}
	err := withRetry(ctx, s.logger, "links.revoke", func() error {
		return s.linkRepo.Revoke(ctx, electionID, voterID)
	})
	if err != nil {
		return err
	}
	s.logger.Info("voting link revoked", "election_id", electionID, "voter_id", voterID)
	return nil
}

func (s *linkService) ExpireOverdue(ctx context.Context) (int64, error) {
	var n int64
	err := withRetry(ctx, s.logger, "links.expire", func() error {
		var err error
		n, err = s.linkRepo.ExpireOverdue(ctx, time.Now())
		return err
	})
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("overdue voting links expired", "count", n)
	}
	return n, nil
}
