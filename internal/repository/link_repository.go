package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/avkuzmin/slugline/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrLinkNotFound = errors.New("link not found")
	ErrSlugTaken    = errors.New("slug already taken")
)

// LinkRepository is the persistent link store. Every lookup except
// GetBySlug is scoped by owner: a link is never visible through another
// owner's id, so handing out guessed ids gets you nothing.
type LinkRepository interface {
	Create(ctx context.Context, link *models.Link) error
	GetByIDAndOwner(ctx context.Context, id int64, ownerID string) (*models.Link, error)
	GetBySlug(ctx context.Context, slug string) (*models.Link, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Link, error)
	Update(ctx context.Context, link *models.Link) error
	Delete(ctx context.Context, id int64, ownerID string) error
}

type linkRepository struct {
	db *PostgresDB
}

func NewLinkRepository(db *PostgresDB) LinkRepository {
	return &linkRepository{db: db}
}

func (r *linkRepository) Create(ctx context.Context, link *models.Link) error {
	query := `
		INSERT INTO links (owner_id, slug, target_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		RETURNING id, created_at, updated_at
	`

	err := r.db.Pool.QueryRow(
		ctx,
		query,
		link.OwnerID,
		link.Slug,
		link.TargetURL,
		link.CreatedAt,
	).Scan(&link.ID, &link.CreatedAt, &link.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrSlugTaken
		}
		return fmt.Errorf("failed to create link: %w", err)
	}

	return nil
}

func (r *linkRepository) GetByIDAndOwner(ctx context.Context, id int64, ownerID string) (*models.Link, error) {
	query := `
		SELECT id, owner_id, slug, target_url, created_at, updated_at
		FROM links
		WHERE id = $1 AND owner_id = $2
	`

	link := &models.Link{}
	err := r.db.Pool.QueryRow(ctx, query, id, ownerID).Scan(
		&link.ID,
		&link.OwnerID,
		&link.Slug,
		&link.TargetURL,
		&link.CreatedAt,
		&link.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to get link: %w", err)
	}

	return link, nil
}

// GetBySlug is the one unscoped lookup; only the public redirect path uses it.
func (r *linkRepository) GetBySlug(ctx context.Context, slug string) (*models.Link, error) {
	query := `
		SELECT id, owner_id, slug, target_url, created_at, updated_at
		FROM links
		WHERE slug = $1
	`

	link := &models.Link{}
	err := r.db.Pool.QueryRow(ctx, query, slug).Scan(
		&link.ID,
		&link.OwnerID,
		&link.Slug,
		&link.TargetURL,
		&link.CreatedAt,
		&link.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to get link by slug: %w", err)
	}

	return link, nil
}

func (r *linkRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Link, error) {
	query := `
		SELECT id, owner_id, slug, target_url, created_at, updated_at
		FROM links
		WHERE owner_id = $1
		ORDER BY created_at, id
	`

	rows, err := r.db.Pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	defer rows.Close()

	var links []models.Link
	for rows.Next() {
		var link models.Link
		if err := rows.Scan(
			&link.ID,
			&link.OwnerID,
			&link.Slug,
			&link.TargetURL,
			&link.CreatedAt,
			&link.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		links = append(links, link)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating links: %w", err)
	}

	return links, nil
}

// Update replaces slug and target_url in a single statement, re-checking the
// owner in the WHERE clause. Concurrent readers see either the old or the
// new row, never a half-written one.
func (r *linkRepository) Update(ctx context.Context, link *models.Link) error {
	query := `
		UPDATE links
		SET slug = $1, target_url = $2, updated_at = now()
		WHERE id = $3 AND owner_id = $4
	`

	result, err := r.db.Pool.Exec(ctx, query, link.Slug, link.TargetURL, link.ID, link.OwnerID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSlugTaken
		}
		return fmt.Errorf("failed to update link: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrLinkNotFound
	}

	return nil
}

func (r *linkRepository) Delete(ctx context.Context, id int64, ownerID string) error {
	query := `DELETE FROM links WHERE id = $1 AND owner_id = $2`

	result, err := r.db.Pool.Exec(ctx, query, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete link: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrLinkNotFound
	}

	return nil
}

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
