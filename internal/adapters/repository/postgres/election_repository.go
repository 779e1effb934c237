package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/chapterelect/elections/internal/core/domain"
	"github.com/chapterelect/elections/internal/core/ports"
)

type electionRepository struct {
	db *sql.DB
}

func NewElectionRepository(db *sql.DB) ports.ElectionRepository {
	return &electionRepository{
		db: db,
	}
}

func (r *electionRepository) Save(ctx context.Context, election *domain.Election) error {
	query := `
		INSERT INTO elections (id, title, description, chapter_id, status, start_time, end_time,
			allow_multiple_positions, require_verification, public_results, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.db.ExecContext(ctx, query,
		election.ID, election.Title, election.Description, election.ChapterID, election.Status,
		election.StartTime, election.EndTime, election.AllowMultiplePositions,
		election.RequireVerification, election.PublicResults, election.CreatedBy, election.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert election: %w", err)
	}
	return nil
}

func (r *electionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Election, error) {
	query := `
		SELECT id, title, description, chapter_id, status, start_time, end_time,
			allow_multiple_positions, require_verification, public_results, created_by, created_at
		FROM elections
		WHERE id = $1 AND deleted_at IS NULL
	`
	return r.scanElection(ctx, r.db.QueryRowContext(ctx, query, id))
}

func (r *electionRepository) GetByPositionID(ctx context.Context, positionID uuid.UUID) (*domain.Election, error) {
	query := `
		SELECT e.id, e.title, e.description, e.chapter_id, e.status, e.start_time, e.end_time,
			e.allow_multiple_positions, e.require_verification, e.public_results, e.created_by, e.created_at
		FROM elections e
		JOIN positions p ON p.election_id = e.id
		WHERE p.id = $1 AND e.deleted_at IS NULL
	`
	election, err := r.scanElection(ctx, r.db.QueryRowContext(ctx, query, positionID))
	if errors.Is(err, domain.ErrElectionNotFound) {
		return nil, domain.ErrPositionNotFound
	}
	return election, err
}

func (r *electionRepository) GetByCandidateID(ctx context.Context, candidateID uuid.UUID) (*domain.Election, error) {
	query := `
		SELECT e.id, e.title, e.description, e.chapter_id, e.status, e.start_time, e.end_time,
			e.allow_multiple_positions, e.require_verification, e.public_results, e.created_by, e.created_at
		FROM elections e
		JOIN positions p ON p.election_id = e.id
		JOIN candidates c ON c.position_id = p.id
		WHERE c.id = $1 AND e.deleted_at IS NULL
	`
	election, err := r.scanElection(ctx, r.db.QueryRowContext(ctx, query, candidateID))
	if errors.Is(err, domain.ErrElectionNotFound) {
		return nil, domain.ErrCandidateNotFound
	}
	return election, err
}

func (r *electionRepository) scanElection(ctx context.Context, row *sql.Row) (*domain.Election, error) {
	var election domain.Election
	var description sql.NullString
	err := row.Scan(
		&election.ID, &election.Title, &description, &election.ChapterID, &election.Status,
		&election.StartTime, &election.EndTime, &election.AllowMultiplePositions,
		&election.RequireVerification, &election.PublicResults, &election.CreatedBy, &election.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrElectionNotFound
		}
		return nil, fmt.Errorf("failed to get election: %w", err)
	}
	election.Description = description.String

	positions, err := r.fetchPositions(ctx, election.ID)
	if err != nil {
		return nil, err
	}
	election.Positions = positions

	return &election, nil
}

func (r *electionRepository) ListByChapter(ctx context.Context, chapterID string) ([]*domain.Election, error) {
	query := `
		SELECT id, title, description, chapter_id, status, start_time, end_time,
			allow_multiple_positions, require_verification, public_results, created_by, created_at
		FROM elections
		WHERE chapter_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, chapterID)
	if err != nil {
		return nil, fmt.Errorf("failed to list elections: %w", err)
	}
	defer rows.Close()

	var elections []*domain.Election
	for rows.Next() {
		var election domain.Election
		var description sql.NullString
		if err := rows.Scan(
			&election.ID, &election.Title, &description, &election.ChapterID, &election.Status,
			&election.StartTime, &election.EndTime, &election.AllowMultiplePositions,
			&election.RequireVerification, &election.PublicResults, &election.CreatedBy, &election.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan election: %w", err)
		}
		election.Description = description.String
		elections = append(elections, &election)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating elections: %w", err)
	}
	return elections, nil
}

// UpdateStatus is the guarded lifecycle transition: a single conditional
// update, so a concurrent competing transition loses cleanly instead of
// overwriting.
func (r *electionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.ElectionStatus) error {
	query := `
		UPDATE elections SET status = $3
		WHERE id = $1 AND status = $2 AND deleted_at IS NULL
	`
	res, err := r.db.ExecContext(ctx, query, id, from, to)
	if err != nil {
		return fmt.Errorf("failed to update election status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		// Either the election is gone or it is not in the expected state.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return domain.ErrInvalidTransition
	}
	return nil
}

// Close transitions active to closed, stamps the frozen tally snapshot from
// the vote ledger and expires outstanding issued links, all in one
// transaction. A crash mid-close leaves the election active with no frozen
// rows, never half of each.
func (r *electionRepository) Close(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE elections SET status = 'closed'
		WHERE id = $1 AND status = 'active' AND deleted_at IS NULL
	`, id)
	if err != nil {
		return fmt.Errorf("failed to close election: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return domain.ErrInvalidTransition
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM election_results WHERE election_id = $1`, id); err != nil {
		return fmt.Errorf("failed to clear tally cache: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO election_results (election_id, position_id, candidate_id, vote_count, frozen, last_updated_at)
		SELECT election_id, position_id, candidate_id, COUNT(*), TRUE, NOW()
		FROM votes
		WHERE election_id = $1
		GROUP BY election_id, position_id, candidate_id
	`, id)
	if err != nil {
		return fmt.Errorf("failed to freeze tallies: %w", err)
	}

	// Approved candidates with zero votes get explicit zero rows so the
	// snapshot is complete on its own.
	_, err = tx.ExecContext(ctx, `
		INSERT INTO election_results (election_id, position_id, candidate_id, vote_count, frozen, last_updated_at)
		SELECT p.election_id, p.id, c.id, 0, TRUE, NOW()
		FROM positions p
		JOIN candidates c ON c.position_id = p.id
		WHERE p.election_id = $1 AND c.approval_status = 'approved'
		ON CONFLICT (election_id, position_id, candidate_id) DO NOTHING
	`, id)
	if err != nil {
		return fmt.Errorf("failed to freeze zero tallies: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE voting_links SET status = 'expired'
		WHERE election_id = $1 AND status = 'issued'
	`, id)
	if err != nil {
		return fmt.Errorf("failed to expire outstanding links: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit close: %w", err)
	}
	return nil
}

func (r *electionRepository) AddPosition(ctx context.Context, position *domain.Position) error {
	query := `
		INSERT INTO positions (id, election_id, title, display_order, required)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.ExecContext(ctx, query,
		position.ID, position.ElectionID, position.Title, position.DisplayOrder, position.Required)
	if err != nil {
		return fmt.Errorf("failed to insert position: %w", err)
	}
	return nil
}

func (r *electionRepository) AddCandidate(ctx context.Context, candidate *domain.Candidate) error {
	query := `
		INSERT INTO candidates (id, position_id, name, photo_url, bio, display_order, approval_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		candidate.ID, candidate.PositionID, candidate.Name, candidate.PhotoURL,
		candidate.Bio, candidate.DisplayOrder, candidate.ApprovalStatus)
	if err != nil {
		return fmt.Errorf("failed to insert candidate: %w", err)
	}
	return nil
}

func (r *electionRepository) SetCandidateApproval(ctx context.Context, candidateID uuid.UUID, approval domain.CandidateApproval) error {
	query := `UPDATE candidates SET approval_status = $2 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, candidateID, approval)
	if err != nil {
		return fmt.Errorf("failed to update candidate approval: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrCandidateNotFound
	}
	return nil
}

func (r *electionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE elections SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete election: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrElectionNotFound
	}
	return nil
}

func (r *electionRepository) fetchPositions(ctx context.Context, electionID uuid.UUID) ([]domain.Position, error) {
	query := `
		SELECT id, election_id, title, display_order, required
		FROM positions
		WHERE election_id = $1
		ORDER BY display_order, id
	`
	rows, err := r.db.QueryContext(ctx, query, electionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get positions: %w", err)
	}
	defer rows.Close()

	var positions []domain.Position
	index := make(map[uuid.UUID]int)
	for rows.Next() {
		var position domain.Position
		if err := rows.Scan(&position.ID, &position.ElectionID, &position.Title, &position.DisplayOrder, &position.Required); err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		index[position.ID] = len(positions)
		positions = append(positions, position)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating positions: %w", err)
	}
	if len(positions) == 0 {
		return nil, nil
	}

	candQuery := `
		SELECT c.id, c.position_id, c.name, COALESCE(c.photo_url, ''), COALESCE(c.bio, ''), c.display_order, c.approval_status
		FROM candidates c
		JOIN positions p ON p.id = c.position_id
		WHERE p.election_id = $1
		ORDER BY c.display_order, c.id
	`
	candRows, err := r.db.QueryContext(ctx, candQuery, electionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get candidates: %w", err)
	}
	defer candRows.Close()

	for candRows.Next() {
		var candidate domain.Candidate
		if err := candRows.Scan(&candidate.ID, &candidate.PositionID, &candidate.Name,
			&candidate.PhotoURL, &candidate.Bio, &candidate.DisplayOrder, &candidate.ApprovalStatus); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		if i, ok := index[candidate.PositionID]; ok {
			positions[i].Candidates = append(positions[i].Candidates, candidate)
		}
	}
	if err := candRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating candidates: %w", err)
	}

	return positions, nil
}
