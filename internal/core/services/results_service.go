package services

import (
	"context"
	"encoding/csv"
	"io"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/chapterelect/elections/internal/core/domain"
	"github.com/chapterelect/elections/internal/core/ports"
)

type resultsService struct {
	electionRepo ports.ElectionRepository
	resultsRepo  ports.ResultsRepository
	linkRepo     ports.LinkRepository
	rosterRepo   ports.RosterRepository
	precision    int
	logger       *slog.Logger
}

func NewResultsService(
	electionRepo ports.ElectionRepository,
	resultsRepo ports.ResultsRepository,
	linkRepo ports.LinkRepository,
	rosterRepo ports.RosterRepository,
	precision int,
	logger *slog.Logger,
) ports.ResultsService {
	return &resultsService{
		electionRepo: electionRepo,
		resultsRepo:  resultsRepo,
		linkRepo:     linkRepo,
		rosterRepo:   rosterRepo,
		precision:    precision,
		logger:       logger,
	}
}

// Live recomputes results from the vote ledger on every read; the derived
// tally cache never serves this path, so it cannot drift.
func (s *resultsService) Live(ctx context.Context, electionID uuid.UUID, cap domain.Capability) (*domain.ElectionResults, error) {
	election, err := s.electionRepo.GetByID(ctx, electionID)
	if err != nil {
		return nil, err
	}
	if election.Status != domain.ElectionActive && election.Status != domain.ElectionClosed {
		return nil, domain.ErrElectionNotActive
	}
	if !election.PublicResults && !cap.CanManage() {
		return nil, domain.ErrForbidden
	}

	var rows []ports.TallyRow
	if err := withRetry(ctx, s.logger, "results.count", func() error {
		var err error
		rows, err = s.resultsRepo.CountVotes(ctx, electionID)
		return err
	}); err != nil {
		return nil, err
	}

	return s.assemble(ctx, election, rows, false)
}

// Final serves the snapshot frozen at close time. Recomputing from the same
// vote ledger reproduces it; the ledger is append-only once closed.
func (s *resultsService) Final(ctx context.Context, electionID uuid.UUID, cap domain.Capability) (*domain.ElectionResults, error) {
	election, err := s.electionRepo.GetByID(ctx, electionID)
	if err != nil {
		return nil, err
	}
	if election.Status != domain.ElectionClosed {
		return nil, domain.ErrElectionNotClosed
	}
	if !election.PublicResults && !cap.CanManage() {
		return nil, domain.ErrForbidden
	}

	var rows []ports.TallyRow
	if err := withRetry(ctx, s.logger, "results.frozen", func() error {
		var err error
		rows, err = s.resultsRepo.FrozenTallies(ctx, electionID)
		return err
	}); err != nil {
		return nil, err
	}

	return s.assemble(ctx, election, rows, true)
}

func (s *resultsService) ExportCSV(ctx context.Context, cap domain.Capability, electionID uuid.UUID, w io.Writer) error {
	if !cap.CanManage() {
		return domain.ErrForbidden
	}

	election, err := s.electionRepo.GetByID(ctx, electionID)
	if err != nil {
		return err
	}

	var results *domain.ElectionResults
	if election.Status == domain.ElectionClosed {
		results, err = s.Final(ctx, electionID, cap)
	} else {
		results, err = s.Live(ctx, electionID, cap)
	}
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"position", "candidate", "vote_count"}); err != nil {
		return err
	}
	for _, position := range results.Positions {
		for _, tally := range position.Tallies {
			record := []string{
				position.PositionTitle,
				tally.CandidateName,
				strconv.FormatInt(tally.VoteCount, 10),
			}
			if err := cw.Write(record); err != nil {
				return err
			}
		}
	}
	trailer := []string{
		"turnout",
		strconv.FormatFloat(results.TurnoutPercentage, 'f', s.precision, 64),
		strconv.FormatInt(results.TotalVotesCast, 10),
	}
	if err := cw.Write(trailer); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

func (s *resultsService) Stats(ctx context.Context) (*domain.DashboardStats, error) {
	var stats *domain.DashboardStats
	err := withRetry(ctx, s.logger, "results.stats", func() error {
		var err error
		stats, err = s.resultsRepo.Stats(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *resultsService) assemble(ctx context.Context, election *domain.Election, rows []ports.TallyRow, frozen bool) (*domain.ElectionResults, error) {
	counts := make(map[uuid.UUID]map[uuid.UUID]int64, len(rows))
	for _, row := range rows {
		if counts[row.PositionID] == nil {
			counts[row.PositionID] = make(map[uuid.UUID]int64)
		}
		counts[row.PositionID][row.CandidateID] = row.VoteCount
	}

	var ballotsCast, eligible int64
	if err := withRetry(ctx, s.logger, "results.turnout", func() error {
		var err error
		if ballotsCast, err = s.linkRepo.CountByStatus(ctx, election.ID, domain.LinkUsed); err != nil {
			return err
		}
		eligible, err = s.rosterRepo.Count(ctx, election.ID)
		return err
	}); err != nil {
		return nil, err
	}

	turnout := 0.0
	if eligible > 0 {
		turnout = roundTo(float64(ballotsCast)/float64(eligible)*100, s.precision)
	}

	results := &domain.ElectionResults{
		ElectionID:        election.ID,
		Status:            election.Status,
		TotalVotesCast:    ballotsCast,
		EligibleVoters:    eligible,
		TurnoutPercentage: turnout,
		Frozen:            frozen,
		ComputedAt:        time.Now(),
	}

	// Every approved candidate appears, zero counts included; ordering
	// follows the configured display order so repeated computations are
	// deterministic. A candidate who gathered votes before losing approval
	// keeps their tally, so the per-candidate sums always reconcile with the
	// ledger.
	for _, position := range election.Positions {
		pr := domain.PositionResult{
			PositionID:    position.ID,
			PositionTitle: position.Title,
		}
		for _, candidate := range position.Candidates {
			count := counts[position.ID][candidate.ID]
			if candidate.ApprovalStatus != domain.CandidateApproved && count == 0 {
				continue
			}
			pr.Tallies = append(pr.Tallies, domain.CandidateTally{
				CandidateID:   candidate.ID,
				CandidateName: candidate.Name,
				VoteCount:     count,
			})
		}
		results.Positions = append(results.Positions, pr)
	}

	return results, nil
}

func roundTo(value float64, precision int) float64 {
	factor := math.Pow(10, float64(precision))
	return math.Round(value*factor) / factor
}
