package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/chapterelect/elections/internal/core/domain"
	"github.com/chapterelect/elections/internal/core/ports"
)

// rosterRepository reads the eligible voter roster seeded by the membership
// collaborator. This service never writes to it.
type rosterRepository struct {
	db *sql.DB
}

func NewRosterRepository(db *sql.DB) ports.RosterRepository {
	return &rosterRepository{
		db: db,
	}
}

func (r *rosterRepository) Members(ctx context.Context, electionID uuid.UUID) ([]domain.RosterMember, error) {
	query := `
		SELECT election_id, voter_id, email
		FROM roster_members
		WHERE election_id = $1
		ORDER BY voter_id
	`
	rows, err := r.db.QueryContext(ctx, query, electionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get roster: %w", err)
	}
	defer rows.Close()

	var members []domain.RosterMember
	for rows.Next() {
		var member domain.RosterMember
		if err := rows.Scan(&member.ElectionID, &member.VoterID, &member.Email); err != nil {
			return nil, fmt.Errorf("failed to scan roster member: %w", err)
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating roster: %w", err)
	}
	return members, nil
}

func (r *rosterRepository) Count(ctx context.Context, electionID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM roster_members WHERE election_id = $1`
	var count int64
	if err := r.db.QueryRowContext(ctx, query, electionID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count roster: %w", err)
	}
	return count, nil
}
