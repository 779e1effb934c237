package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/chapterelect/elections/internal/core/domain"
	"github.com/chapterelect/elections/internal/core/ports"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func managerCap() domain.Capability {
	return domain.Capability{ActorID: uuid.New(), ChapterID: "chapter-42", ManageElections: true}
}

func approverCap() domain.Capability {
	return domain.Capability{ActorID: uuid.New(), ChapterID: "chapter-42", ApproveElections: true}
}

// seedElection stores an election with one Chair position holding two
// approved candidates.
func seedElection(t *testing.T, repo *fakeElectionRepo, status domain.ElectionStatus) *domain.Election {
	t.Helper()

	start := time.Now().Add(-time.Hour)
	end := time.Now().Add(24 * time.Hour)
	electionID := uuid.New()
	chairID := uuid.New()

	election := &domain.Election{
		ID:            electionID,
		Title:         "Spring Officer Election",
		ChapterID:     "chapter-42",
		Status:        status,
		StartTime:     &start,
		EndTime:       &end,
		PublicResults: true,
		CreatedBy:     uuid.New(),
		CreatedAt:     time.Now(),
		Positions: []domain.Position{
			{
				ID:         chairID,
				ElectionID: electionID,
				Title:      "Chair",
				Required:   true,
				Candidates: []domain.Candidate{
					{ID: uuid.New(), PositionID: chairID, Name: "Alice Moreno", ApprovalStatus: domain.CandidateApproved},
					{ID: uuid.New(), PositionID: chairID, Name: "Ben Okafor", ApprovalStatus: domain.CandidateApproved},
				},
			},
		},
	}
	require.NoError(t, repo.Save(context.Background(), election))
	return election
}

// In-memory fakes mirroring the postgres adapters' semantics, most
// importantly the conditional-update behavior of status transitions.

type fakeElectionRepo struct {
	mu        sync.Mutex
	elections map[uuid.UUID]*domain.Election
}

func newFakeElectionRepo() *fakeElectionRepo {
	return &fakeElectionRepo{elections: make(map[uuid.UUID]*domain.Election)}
}

func (r *fakeElectionRepo) Save(ctx context.Context, election *domain.Election) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *election
	r.elections[election.ID] = &copied
	return nil
}

func (r *fakeElectionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Election, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	election, ok := r.elections[id]
	if !ok {
		return nil, domain.ErrElectionNotFound
	}
	copied := *election
	return &copied, nil
}

func (r *fakeElectionRepo) GetByPositionID(ctx context.Context, positionID uuid.UUID) (*domain.Election, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, election := range r.elections {
		for _, position := range election.Positions {
			if position.ID == positionID {
				copied := *election
				return &copied, nil
			}
		}
	}
	return nil, domain.ErrPositionNotFound
}

func (r *fakeElectionRepo) GetByCandidateID(ctx context.Context, candidateID uuid.UUID) (*domain.Election, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, election := range r.elections {
		for _, position := range election.Positions {
			for _, candidate := range position.Candidates {
				if candidate.ID == candidateID {
					copied := *election
					return &copied, nil
				}
			}
		}
	}
	return nil, domain.ErrCandidateNotFound
}

func (r *fakeElectionRepo) ListByChapter(ctx context.Context, chapterID string) ([]*domain.Election, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Election
	for _, election := range r.elections {
		if election.ChapterID == chapterID {
			copied := *election
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeElectionRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.ElectionStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	election, ok := r.elections[id]
	if !ok {
		return domain.ErrElectionNotFound
	}
	if election.Status != from {
		return domain.ErrInvalidTransition
	}
	election.Status = to
	return nil
}

func (r *fakeElectionRepo) Close(ctx context.Context, id uuid.UUID) error {
	return r.UpdateStatus(ctx, id, domain.ElectionActive, domain.ElectionClosed)
}

func (r *fakeElectionRepo) AddPosition(ctx context.Context, position *domain.Position) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	election, ok := r.elections[position.ElectionID]
	if !ok {
		return domain.ErrElectionNotFound
	}
	election.Positions = append(election.Positions, *position)
	return nil
}

func (r *fakeElectionRepo) AddCandidate(ctx context.Context, candidate *domain.Candidate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, election := range r.elections {
		for i := range election.Positions {
			if election.Positions[i].ID == candidate.PositionID {
				election.Positions[i].Candidates = append(election.Positions[i].Candidates, *candidate)
				return nil
			}
		}
	}
	return domain.ErrPositionNotFound
}

func (r *fakeElectionRepo) SetCandidateApproval(ctx context.Context, candidateID uuid.UUID, approval domain.CandidateApproval) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, election := range r.elections {
		for i := range election.Positions {
			for j := range election.Positions[i].Candidates {
				if election.Positions[i].Candidates[j].ID == candidateID {
					election.Positions[i].Candidates[j].ApprovalStatus = approval
					return nil
				}
			}
		}
	}
	return domain.ErrCandidateNotFound
}

func (r *fakeElectionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.elections[id]; !ok {
		return domain.ErrElectionNotFound
	}
	delete(r.elections, id)
	return nil
}

type fakeLinkRepo struct {
	mu        sync.Mutex
	links     map[uuid.UUID]*domain.VotingLink
	elections *fakeElectionRepo
}

func newFakeLinkRepo(elections *fakeElectionRepo) *fakeLinkRepo {
	return &fakeLinkRepo{links: make(map[uuid.UUID]*domain.VotingLink), elections: elections}
}

func (r *fakeLinkRepo) InsertIssued(ctx context.Context, link *domain.VotingLink) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.links {
		if existing.ElectionID == link.ElectionID && existing.VoterID == link.VoterID && existing.Status == domain.LinkIssued {
			return false, nil
		}
	}
	copied := *link
	r.links[link.ID] = &copied
	return true, nil
}

func (r *fakeLinkRepo) ListByVoter(ctx context.Context, electionID, voterID uuid.UUID) ([]*domain.VotingLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.VotingLink
	for _, link := range r.links {
		if link.ElectionID == electionID && link.VoterID == voterID {
			copied := *link
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeLinkRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.VotingLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	link, ok := r.links[id]
	if !ok {
		return nil, domain.ErrLinkNotFound
	}
	copied := *link
	return &copied, nil
}

func (r *fakeLinkRepo) Revoke(ctx context.Context, electionID, voterID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, link := range r.links {
		if link.ElectionID == electionID && link.VoterID == voterID && link.Status == domain.LinkIssued {
			link.Status = domain.LinkRevoked
			return nil
		}
	}
	return domain.ErrLinkNotFound
}

func (r *fakeLinkRepo) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, link := range r.links {
		if link.Status != domain.LinkIssued {
			continue
		}
		election, err := r.elections.GetByID(ctx, link.ElectionID)
		if err != nil {
			continue
		}
		if election.EndTime != nil && election.EndTime.Before(now) {
			link.Status = domain.LinkExpired
			n++
		}
	}
	return n, nil
}

func (r *fakeLinkRepo) CountByStatus(ctx context.Context, electionID uuid.UUID, status domain.LinkStatus) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, link := range r.links {
		if link.ElectionID == electionID && link.Status == status {
			n++
		}
	}
	return n, nil
}

// fakeBallotRepo shares the link map so its compare-and-swap races against
// concurrent casts the same way the database row does.
type fakeBallotRepo struct {
	links *fakeLinkRepo
	votes []*domain.Vote
}

func newFakeBallotRepo(links *fakeLinkRepo) *fakeBallotRepo {
	return &fakeBallotRepo{links: links}
}

func (r *fakeBallotRepo) RecordBallot(ctx context.Context, linkID uuid.UUID, votes []*domain.Vote) error {
	r.links.mu.Lock()
	defer r.links.mu.Unlock()
	link, ok := r.links.links[linkID]
	if !ok {
		return domain.ErrLinkNotFound
	}
	switch link.Status {
	case domain.LinkIssued:
	case domain.LinkRevoked:
		return domain.ErrLinkRevoked
	case domain.LinkExpired:
		return domain.ErrLinkExpired
	default:
		return domain.ErrLinkUsed
	}
	now := time.Now()
	link.Status = domain.LinkUsed
	link.UsedAt = &now
	r.votes = append(r.votes, votes...)
	return nil
}

type fakeRosterRepo struct {
	members []domain.RosterMember
}

func (r *fakeRosterRepo) Members(ctx context.Context, electionID uuid.UUID) ([]domain.RosterMember, error) {
	var out []domain.RosterMember
	for _, member := range r.members {
		if member.ElectionID == electionID {
			out = append(out, member)
		}
	}
	return out, nil
}

func (r *fakeRosterRepo) Count(ctx context.Context, electionID uuid.UUID) (int64, error) {
	members, _ := r.Members(ctx, electionID)
	return int64(len(members)), nil
}

type fakeNotifier struct {
	mu         sync.Mutex
	deliveries []string
}

func (n *fakeNotifier) Deliver(ctx context.Context, member domain.RosterMember, rawToken string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deliveries = append(n.deliveries, member.Email)
	return nil
}

type fakeResultsRepo struct {
	mu     sync.Mutex
	live   map[uuid.UUID][]ports.TallyRow
	frozen map[uuid.UUID][]ports.TallyRow
}

func newFakeResultsRepo() *fakeResultsRepo {
	return &fakeResultsRepo{
		live:   make(map[uuid.UUID][]ports.TallyRow),
		frozen: make(map[uuid.UUID][]ports.TallyRow),
	}
}

func (r *fakeResultsRepo) CountVotes(ctx context.Context, electionID uuid.UUID) ([]ports.TallyRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.live[electionID], nil
}

func (r *fakeResultsRepo) FrozenTallies(ctx context.Context, electionID uuid.UUID) ([]ports.TallyRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frozen[electionID], nil
}

func (r *fakeResultsRepo) RefreshTallies(ctx context.Context, electionID uuid.UUID) error {
	return nil
}

func (r *fakeResultsRepo) ListUnfrozenElectionIDs(ctx context.Context) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []uuid.UUID
	for id := range r.live {
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *fakeResultsRepo) Stats(ctx context.Context) (*domain.DashboardStats, error) {
	return &domain.DashboardStats{}, nil
}
