package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/chapterelect/elections/internal/core/domain"
)

type ElectionRepository interface {
	Save(ctx context.Context, election *domain.Election) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Election, error)
	GetByPositionID(ctx context.Context, positionID uuid.UUID) (*domain.Election, error)
	GetByCandidateID(ctx context.Context, candidateID uuid.UUID) (*domain.Election, error)
	ListByChapter(ctx context.Context, chapterID string) ([]*domain.Election, error)

	// UpdateStatus performs the guarded transition as a single conditional
	// update. It returns domain.ErrInvalidTransition when the election is not
	// currently in the from state.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.ElectionStatus) error

	// Close moves active to closed, freezes the final tally snapshot and
	// expires outstanding issued links, all within one transaction.
	Close(ctx context.Context, id uuid.UUID) error

	AddPosition(ctx context.Context, position *domain.Position) error
	AddCandidate(ctx context.Context, candidate *domain.Candidate) error
	SetCandidateApproval(ctx context.Context, candidateID uuid.UUID, approval domain.CandidateApproval) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type CreateElectionInput struct {
	Title                  string
	Description            string
	ChapterID              string
	StartTime              *time.Time
	EndTime                *time.Time
	AllowMultiplePositions bool
	RequireVerification    bool
	PublicResults          bool
}

type AddPositionInput struct {
	ElectionID   uuid.UUID
	Title        string
	DisplayOrder int
	Required     bool
}

type AddCandidateInput struct {
	PositionID   uuid.UUID
	Name         string
	PhotoURL     string
	Bio          string
	DisplayOrder int
}

type ElectionService interface {
	Create(ctx context.Context, cap domain.Capability, input CreateElectionInput) (*domain.Election, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Election, error)
	ListByChapter(ctx context.Context, cap domain.Capability, chapterID string) ([]*domain.Election, error)

	AddPosition(ctx context.Context, cap domain.Capability, input AddPositionInput) (*domain.Position, error)
	AddCandidate(ctx context.Context, cap domain.Capability, input AddCandidateInput) (*domain.Candidate, error)
	ApproveCandidate(ctx context.Context, cap domain.Capability, candidateID uuid.UUID, approval domain.CandidateApproval) error

	Submit(ctx context.Context, cap domain.Capability, id uuid.UUID) error
	Approve(ctx context.Context, cap domain.Capability, id uuid.UUID) error
	Start(ctx context.Context, cap domain.Capability, id uuid.UUID) error
	Close(ctx context.Context, cap domain.Capability, id uuid.UUID) error
	Delete(ctx context.Context, cap domain.Capability, id uuid.UUID) error
}
