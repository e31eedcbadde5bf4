package repository

import (
	"context"
	"fmt"

	"github.com/avkuzmin/slugline/internal/models"
)

// VisitRepository appends visit rows and answers exact counts. Every call to
// Record is one insert: no dedup, no rate limiting, repeat visits from the
// same address all land as separate rows.
type VisitRepository interface {
	Record(ctx context.Context, visit *models.Visit) error
	CountByLink(ctx context.Context, linkID int64) (int64, error)
	StatsByLink(ctx context.Context, linkID int64) (*models.VisitStats, error)
}

type visitRepository struct {
	db *PostgresDB
}

func NewVisitRepository(db *PostgresDB) VisitRepository {
	return &visitRepository{db: db}
}

func (r *visitRepository) Record(ctx context.Context, visit *models.Visit) error {
	query := `
		INSERT INTO visits (link_id, ip_address, created_at)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		visit.LinkID,
		visit.IPAddress,
		visit.CreatedAt,
	).Scan(&visit.ID, &visit.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to record visit: %w", err)
	}

	return nil
}

// CountByLink recomputes the count from the visits table itself, so it can
// never drift from the recorded rows.
func (r *visitRepository) CountByLink(ctx context.Context, linkID int64) (int64, error) {
	query := `SELECT COUNT(*) FROM visits WHERE link_id = $1`

	var count int64
	if err := r.db.Pool.QueryRow(ctx, query, linkID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count visits: %w", err)
	}

	return count, nil
}

func (r *visitRepository) StatsByLink(ctx context.Context, linkID int64) (*models.VisitStats, error) {
	query := `
		SELECT
			COUNT(*) as total_visits,
			COUNT(DISTINCT ip_address) as unique_visitors
		FROM visits
		WHERE link_id = $1
	`

	stats := &models.VisitStats{
		LinkID: linkID,
	}

	err := r.db.Pool.QueryRow(ctx, query, linkID).Scan(
		&stats.TotalVisits,
		&stats.UniqueVisitors,
	)

	if err != nil {
		return nil, fmt.Errorf("failed to get visit stats: %w", err)
	}

	return stats, nil
}
