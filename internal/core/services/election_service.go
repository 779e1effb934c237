package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/chapterelect/elections/internal/core/domain"
	"github.com/chapterelect/elections/internal/core/ports"
)

type electionService struct {
	repo   ports.ElectionRepository
	logger *slog.Logger
}

func NewElectionService(repo ports.ElectionRepository, logger *slog.Logger) ports.ElectionService {
	return &electionService{
		repo:   repo,
		logger: logger,
	}
}

func (s *electionService) Create(ctx context.Context, cap domain.Capability, input ports.CreateElectionInput) (*domain.Election, error) {
	if !cap.CanManage() {
		return nil, domain.ErrForbidden
	}
	if input.Title == "" {
		return nil, errors.New("title is required")
	}
	if input.ChapterID == "" {
		return nil, errors.New("chapter id is required")
	}

	election := &domain.Election{
		ID:                     uuid.New(),
		Title:                  input.Title,
		Description:            input.Description,
		ChapterID:              input.ChapterID,
		Status:                 domain.ElectionDraft,
		StartTime:              input.StartTime,
		EndTime:                input.EndTime,
		AllowMultiplePositions: input.AllowMultiplePositions,
		RequireVerification:    input.RequireVerification,
		PublicResults:          input.PublicResults,
		CreatedBy:              cap.ActorID,
		CreatedAt:              time.Now(),
	}

	if err := withRetry(ctx, s.logger, "election.create", func() error {
		return s.repo.Save(ctx, election)
	}); err != nil {
		return nil, err
	}

	s.logger.Info("election created", "election_id", election.ID, "chapter_id", election.ChapterID)
	return election, nil
}

func (s *electionService) Get(ctx context.Context, id uuid.UUID) (*domain.Election, error) {
	var election *domain.Election
	err := withRetry(ctx, s.logger, "election.get", func() error {
		var err error
		election, err = s.repo.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return election, nil
}

func (s *electionService) ListByChapter(ctx context.Context, cap domain.Capability, chapterID string) ([]*domain.Election, error) {
	if !cap.CanManage() {
		return nil, domain.ErrForbidden
	}
	var elections []*domain.Election
	err := withRetry(ctx, s.logger, "election.list", func() error {
		var err error
		elections, err = s.repo.ListByChapter(ctx, chapterID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return elections, nil
}

func (s *electionService) AddPosition(ctx context.Context, cap domain.Capability, input ports.AddPositionInput) (*domain.Position, error) {
	if !cap.CanManage() {
		return nil, domain.ErrForbidden
	}
	if input.Title == "" {
		return nil, errors.New("position title is required")
	}

	election, err := s.Get(ctx, input.ElectionID)
	if err != nil {
		return nil, err
	}
	// Positions are immutable once the election leaves draft.
	if election.Status != domain.ElectionDraft {
		return nil, domain.ErrElectionImmutable
	}

	position := &domain.Position{
		ID:           uuid.New(),
		ElectionID:   input.ElectionID,
		Title:        input.Title,
		DisplayOrder: input.DisplayOrder,
		Required:     input.Required,
	}
	if err := withRetry(ctx, s.logger, "election.add_position", func() error {
		return s.repo.AddPosition(ctx, position)
	}); err != nil {
		return nil, err
	}
	return position, nil
}

func (s *electionService) AddCandidate(ctx context.Context, cap domain.Capability, input ports.AddCandidateInput) (*domain.Candidate, error) {
	if !cap.CanManage() {
		return nil, domain.ErrForbidden
	}
	if input.Name == "" {
		return nil, errors.New("candidate name is required")
	}

	election, err := s.electionForPosition(ctx, input.PositionID)
	if err != nil {
		return nil, err
	}
	// New candidates may still arrive while approvals are pending, but not
	// once voting can begin.
	if election.Status != domain.ElectionDraft && election.Status != domain.ElectionPending {
		return nil, domain.ErrElectionImmutable
	}

	candidate := &domain.Candidate{
		ID:             uuid.New(),
		PositionID:     input.PositionID,
		Name:           input.Name,
		PhotoURL:       input.PhotoURL,
		Bio:            input.Bio,
		DisplayOrder:   input.DisplayOrder,
		ApprovalStatus: domain.CandidatePending,
	}
	if err := withRetry(ctx, s.logger, "election.add_candidate", func() error {
		return s.repo.AddCandidate(ctx, candidate)
	}); err != nil {
		return nil, err
	}
	return candidate, nil
}

func (s *electionService) ApproveCandidate(ctx context.Context, cap domain.Capability, candidateID uuid.UUID, approval domain.CandidateApproval) error {
	if !cap.CanApprove() {
		return domain.ErrForbidden
	}
	if approval != domain.CandidateApproved && approval != domain.CandidateRejected {
		return errors.New("approval must be approved or rejected")
	}

	election, err := s.electionForCandidate(ctx, candidateID)
	if err != nil {
		return err
	}
	// Approval decisions close when the ballot does: once voting can begin the
	// candidate list is fixed.
	if election.Status != domain.ElectionDraft && election.Status != domain.ElectionPending {
		return domain.ErrElectionImmutable
	}

	return withRetry(ctx, s.logger, "election.approve_candidate", func() error {
		return s.repo.SetCandidateApproval(ctx, candidateID, approval)
	})
}

func (s *electionService) Submit(ctx context.Context, cap domain.Capability, id uuid.UUID) error {
	if !cap.CanManage() {
		return domain.ErrForbidden
	}
	return s.transition(ctx, id, domain.ElectionDraft, domain.ElectionPending)
}

func (s *electionService) Approve(ctx context.Context, cap domain.Capability, id uuid.UUID) error {
	if !cap.CanApprove() {
		return domain.ErrForbidden
	}
	return s.transition(ctx, id, domain.ElectionPending, domain.ElectionApproved)
}

func (s *electionService) Start(ctx context.Context, cap domain.Capability, id uuid.UUID) error {
	if !cap.CanManage() {
		return domain.ErrForbidden
	}

	election, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if election.Status != domain.ElectionApproved {
		return domain.ErrInvalidTransition
	}
	if election.StartTime == nil {
		return errors.New("start time must be configured before starting")
	}
	if len(election.Positions) == 0 {
		return errors.New("election has no positions")
	}
	for _, position := range election.Positions {
		approved := 0
		for _, candidate := range position.Candidates {
			if candidate.ApprovalStatus == domain.CandidateApproved {
				approved++
			}
		}
		if approved == 0 {
			return errors.New("every position needs at least one approved candidate")
		}
	}

	return s.transition(ctx, id, domain.ElectionApproved, domain.ElectionActive)
}

func (s *electionService) Close(ctx context.Context, cap domain.Capability, id uuid.UUID) error {
	if !cap.CanManage() {
		return domain.ErrForbidden
	}
	// Close is not a plain status flip: the final tally snapshot is frozen
	// and outstanding issued links expire in the same transaction.
	err := withRetry(ctx, s.logger, "election.close", func() error {
		return s.repo.Close(ctx, id)
	})
	if err != nil {
		return err
	}
	s.logger.Info("election closed", "election_id", id)
	return nil
}

func (s *electionService) Delete(ctx context.Context, cap domain.Capability, id uuid.UUID) error {
	if !cap.CanManage() {
		return domain.ErrForbidden
	}
	return withRetry(ctx, s.logger, "election.delete", func() error {
		return s.repo.Delete(ctx, id)
	})
}

func (s *electionService) transition(ctx context.Context, id uuid.UUID, from, to domain.ElectionStatus) error {
	err := withRetry(ctx, s.logger, "election.transition", func() error {
		return s.repo.UpdateStatus(ctx, id, from, to)
	})
	if err != nil {
		return err
	}
	s.logger.Info("election transitioned", "election_id", id, "from", from, "to", to)
	return nil
}

func (s *electionService) electionForPosition(ctx context.Context, positionID uuid.UUID) (*domain.Election, error) {
	var election *domain.Election
	err := withRetry(ctx, s.logger, "election.for_position", func() error {
		var err error
		election, err = s.repo.GetByPositionID(ctx, positionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return election, nil
}

func (s *electionService) electionForCandidate(ctx context.Context, candidateID uuid.UUID) (*domain.Election, error) {
	var election *domain.Election
	err := withRetry(ctx, s.logger, "election.for_candidate", func() error {
		var err error
		election, err = s.repo.GetByCandidateID(ctx, candidateID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return election, nil
}
