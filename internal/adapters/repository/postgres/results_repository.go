package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/chapterelect/elections/internal/core/domain"
	"github.com/chapterelect/elections/internal/core/ports"
)

type resultsRepository struct {
	db *sql.DB
}

func NewResultsRepository(db *sql.DB) ports.ResultsRepository {
	return &resultsRepository{
		db: db,
	}
}

func (r *resultsRepository) CountVotes(ctx context.Context, electionID uuid.UUID) ([]ports.TallyRow, error) {
	query := `
		SELECT position_id, candidate_id, COUNT(*)
		FROM votes
		WHERE election_id = $1
		GROUP BY position_id, candidate_id
	`
	return r.queryTallies(ctx, query, electionID)
}

func (r *resultsRepository) FrozenTallies(ctx context.Context, electionID uuid.UUID) ([]ports.TallyRow, error) {
	query := `
		SELECT position_id, candidate_id, vote_count
		FROM election_results
		WHERE election_id = $1 AND frozen
	`
	return r.queryTallies(ctx, query, electionID)
}

// RefreshTallies re-derives the cached rows from the vote ledger. Frozen
// elections are skipped entirely.
func (r *resultsRepository) RefreshTallies(ctx context.Context, electionID uuid.UUID) error {
	query := `
		INSERT INTO election_results (election_id, position_id, candidate_id, vote_count, frozen, last_updated_at)
		SELECT election_id, position_id, candidate_id, COUNT(*), FALSE, NOW()
		FROM votes
		WHERE election_id = $1
		  AND NOT EXISTS (
			SELECT 1 FROM election_results er
			WHERE er.election_id = $1 AND er.frozen
		  )
		GROUP BY election_id, position_id, candidate_id
		ON CONFLICT (election_id, position_id, candidate_id) DO UPDATE
		SET vote_count = EXCLUDED.vote_count,
		    last_updated_at = NOW()
		WHERE NOT election_results.frozen
	`
	_, err := r.db.ExecContext(ctx, query, electionID)
	if err != nil {
		return fmt.Errorf("failed to refresh tallies for election %s: %w", electionID, err)
	}
	return nil
}

func (r *resultsRepository) ListUnfrozenElectionIDs(ctx context.Context) ([]uuid.UUID, error) {
	query := `
		SELECT id FROM elections
		WHERE status = 'active' AND deleted_at IS NULL
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list active elections: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan election id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating election ids: %w", err)
	}
	return ids, nil
}

func (r *resultsRepository) Stats(ctx context.Context) (*domain.DashboardStats, error) {
	query := `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE status = 'active')
		FROM elections
		WHERE deleted_at IS NULL
	`
	stats := &domain.DashboardStats{}
	if err := r.db.QueryRowContext(ctx, query).Scan(&stats.TotalElections, &stats.ActiveElections); err != nil {
		return nil, fmt.Errorf("failed to compute dashboard stats: %w", err)
	}
	return stats, nil
}

func (r *resultsRepository) queryTallies(ctx context.Context, query string, electionID uuid.UUID) ([]ports.TallyRow, error) {
	rows, err := r.db.QueryContext(ctx, query, electionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tallies: %w", err)
	}
	defer rows.Close()

	var tallies []ports.TallyRow
	for rows.Next() {
		var row ports.TallyRow
		if err := rows.Scan(&row.PositionID, &row.CandidateID, &row.VoteCount); err != nil {
			return nil, fmt.Errorf("failed to scan tally: %w", err)
		}
		tallies = append(tallies, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tallies: %w", err)
	}
	return tallies, nil
}
