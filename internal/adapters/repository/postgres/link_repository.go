package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/chapterelect/elections/internal/core/domain"
	"github.com/chapterelect/elections/internal/core/ports"
)

const uniqueViolation = "23505"

type linkRepository struct {
	db *sql.DB
}

func NewLinkRepository(db *sql.DB) ports.LinkRepository {
	return &linkRepository{
		db: db,
	}
}

// InsertIssued relies on the partial unique index idx_voting_links_live: a
// voter with a live link conflicts and the insert is skipped, so two
// concurrent generate runs cannot double-issue.
func (r *linkRepository) InsertIssued(ctx context.Context, link *domain.VotingLink) (bool, error) {
	query := `
		INSERT INTO voting_links (id, election_id, voter_id, token_hash, status, issued_at)
		VALUES ($1, $2, $3, $4, 'issued', $5)
		ON CONFLICT (election_id, voter_id) WHERE status = 'issued' DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, query,
		link.ID, link.ElectionID, link.VoterID, link.TokenHash, link.IssuedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return false, nil
		}
		return false, fmt.Errorf("failed to insert voting link: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return affected == 1, nil
}

func (r *linkRepository) ListByVoter(ctx context.Context, electionID, voterID uuid.UUID) ([]*domain.VotingLink, error) {
	query := `
		SELECT id, election_id, voter_id, token_hash, status, issued_at, used_at
		FROM voting_links
		WHERE election_id = $1 AND voter_id = $2
		ORDER BY issued_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, electionID, voterID)
	if err != nil {
		return nil, fmt.Errorf("failed to list voting links: %w", err)
	}
	defer rows.Close()

	var links []*domain.VotingLink
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating voting links: %w", err)
	}
	return links, nil
}

func (r *linkRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.VotingLink, error) {
	query := `
		SELECT id, election_id, voter_id, token_hash, status, issued_at, used_at
		FROM voting_links
		WHERE id = $1
	`
	link := &domain.VotingLink{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&link.ID, &link.ElectionID, &link.VoterID, &link.TokenHash,
		&link.Status, &link.IssuedAt, &link.UsedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to get voting link: %w", err)
	}
	return link, nil
}

func (r *linkRepository) Revoke(ctx context.Context, electionID, voterID uuid.UUID) error {
	query := `
		UPDATE voting_links SET status = 'revoked'
		WHERE election_id = $1 AND voter_id = $2 AND status = 'issued'
	`
	res, err := r.db.ExecContext(ctx, query, electionID, voterID)
	if err != nil {
		return fmt.Errorf("failed to revoke voting link: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrLinkNotFound
	}
	return nil
}

func (r *linkRepository) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE voting_links vl SET status = 'expired'
		FROM elections e
		WHERE vl.election_id = e.id
		  AND vl.status = 'issued'
		  AND e.end_time IS NOT NULL
		  AND e.end_time < $1
	`
	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to expire voting links: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return affected, nil
}

func (r *linkRepository) CountByStatus(ctx context.Context, electionID uuid.UUID, status domain.LinkStatus) (int64, error) {
	query := `SELECT COUNT(*) FROM voting_links WHERE election_id = $1 AND status = $2`
	var count int64
	if err := r.db.QueryRowContext(ctx, query, electionID, status).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count voting links: %w", err)
	}
	return count, nil
}

func scanLink(rows *sql.Rows) (*domain.VotingLink, error) {
	link := &domain.VotingLink{}
	if err := rows.Scan(
		&link.ID, &link.ElectionID, &link.VoterID, &link.TokenHash,
		&link.Status, &link.IssuedAt, &link.UsedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to scan voting link: %w", err)
	}
	return link, nil
}
