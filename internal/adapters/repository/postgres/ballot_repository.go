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

type ballotRepository struct {
	db *sql.DB
}

func NewBallotRepository(db *sql.DB) ports.BallotRepository {
	return &ballotRepository{
		db: db,
	}
}

// RecordBallot commits the issued-to-used transition, the vote rows and the
// tally increments as one unit. The conditional UPDATE is the serialization
// point: under N concurrent casts on the same link exactly one matches a row,
// the rest abort before any vote is written.
func (r *ballotRepository) RecordBallot(ctx context.Context, linkID uuid.UUID, votes []*domain.Vote) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE voting_links SET status = 'used', used_at = NOW()
		WHERE id = $1 AND status = 'issued'
	`, linkID)
	if err != nil {
		return fmt.Errorf("failed to mark link used: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return r.linkStateError(ctx, linkID)
	}

	voteStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO votes (id, election_id, position_id, candidate_id, cast_at)
		VALUES ($1, $2, $3, $4, $5)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare vote statement: %w", err)
	}
	defer voteStmt.Close()

	tallyStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO election_results (election_id, position_id, candidate_id, vote_count, frozen, last_updated_at)
		VALUES ($1, $2, $3, 1, FALSE, NOW())
		ON CONFLICT (election_id, position_id, candidate_id) DO UPDATE
		SET vote_count = election_results.vote_count + 1,
		    last_updated_at = NOW()
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare tally statement: %w", err)
	}
	defer tallyStmt.Close()

	for _, vote := range votes {
		if _, err := voteStmt.ExecContext(ctx, vote.ID, vote.ElectionID, vote.PositionID, vote.CandidateID, vote.CastAt); err != nil {
			return fmt.Errorf("failed to insert vote: %w", err)
		}
		if _, err := tallyStmt.ExecContext(ctx, vote.ElectionID, vote.PositionID, vote.CandidateID); err != nil {
			return fmt.Errorf("failed to increment tally: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit ballot: %w", err)
	}
	return nil
}

// linkStateError maps a lost compare-and-swap to the terminal status the
// caller should see.
func (r *ballotRepository) linkStateError(ctx context.Context, linkID uuid.UUID) error {
	var status domain.LinkStatus
	err := r.db.QueryRowContext(ctx, `SELECT status FROM voting_links WHERE id = $1`, linkID).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrLinkNotFound
		}
		return fmt.Errorf("failed to read link status: %w", err)
	}
	switch status {
	case domain.LinkRevoked:
		return domain.ErrLinkRevoked
	case domain.LinkExpired:
		return domain.ErrLinkExpired
	default:
		return domain.ErrLinkUsed
	}
}
