package service

import (
	"context"
	"errors"
	"time"

	"github.com/avkuzmin/slugline/internal/models"
	"github.com/avkuzmin/slugline/internal/normalize"
	"github.com/avkuzmin/slugline/internal/repository"
	"go.uber.org/zap"
)

var (
	ErrValidation = errors.New("slug and target URL must not be empty")
)

const cacheTTL = 24 * time.Hour

// LinkService orchestrates the link store under ownership constraints.
// Every operation takes the owner id explicitly; there is no ambient
// "current user" anywhere below the HTTP layer.
type LinkService interface {
	CreateLink(ctx context.Context, ownerID string, input *models.CreateLinkInput) (*models.Link, error)
	GetLink(ctx context.Context, ownerID string, id int64) (*models.Link, error)
	ListLinks(ctx context.Context, ownerID string) ([]models.Link, error)
	UpdateLink(ctx context.Context, ownerID string, id int64, input *models.UpdateLinkInput) (*models.Link, error)
	DeleteLink(ctx context.Context, ownerID string, id int64) error
	GetLinkStats(ctx context.Context, ownerID string, id int64) (*models.VisitStats, error)
}

type linkService struct {
	linkRepo  repository.LinkRepository
	visitRepo repository.VisitRepository
	cacheRepo repository.CacheRepository
	logger    *zap.Logger
}

func NewLinkService(
	linkRepo repository.LinkRepository,
	visitRepo repository.VisitRepository,
	cacheRepo repository.CacheRepository,
	logger *zap.Logger,
) LinkService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &linkService{
		linkRepo:  linkRepo,
		visitRepo: visitRepo,
		cacheRepo: cacheRepo,
		logger:    logger,
	}
}

// CreateLink validates, normalizes the target URL and persists the link.
// Normalization happens before the insert, so an unnormalized target is
// never observable in the store, not even transiently.
func (s *linkService) CreateLink(ctx context.Context, ownerID string, input *models.CreateLinkInput) (*models.Link, error) {
	slug := input.Slug
	target := normalize.Target(input.TargetURL)

	if slug == "" || target == "" {
		return nil, ErrValidation
	}

	link := &models.Link{
		OwnerID:   ownerID,
		Slug:      slug,
		TargetURL: target,
		CreatedAt: time.Now(),
	}

	if err := s.linkRepo.Create(ctx, link); err != nil {
		return nil, err
	}

	s.fillCache(ctx, link)

	return link, nil
}

func (s *linkService) GetLink(ctx context.Context, ownerID string, id int64) (*models.Link, error) {
	return s.linkRepo.GetByIDAndOwner(ctx, id, ownerID)
}

func (s *linkService) ListLinks(ctx context.Context, ownerID string) ([]models.Link, error) {
	return s.linkRepo.ListByOwner(ctx, ownerID)
}

// UpdateLink applies a partial update to a link the owner actually owns.
// A foreign or absent link fails with ErrLinkNotFound before anything is
// touched. A supplied target URL is normalized before the write.
func (s *linkService) UpdateLink(ctx context.Context, ownerID string, id int64, input *models.UpdateLinkInput) (*models.Link, error) {
	link, err := s.linkRepo.GetByIDAndOwner(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	oldSlug := link.Slug

	if input.Slug != nil {
		link.Slug = *input.Slug
	}
	if input.TargetURL != nil {
		link.TargetURL = normalize.Target(*input.TargetURL)
	}

	if link.Slug == "" || link.TargetURL == "" {
		return nil, ErrValidation
	}

	if err := s.linkRepo.Update(ctx, link); err != nil {
		return nil, err
	}

	// Drop the old slug mapping so the redirect path cannot serve a stale
	// target; the next resolution re-fills the cache from the store.
	s.invalidateCache(ctx, oldSlug)
	if link.Slug != oldSlug {
		s.invalidateCache(ctx, link.Slug)
	}

	return link, nil
}

func (s *linkService) DeleteLink(ctx context.Context, ownerID string, id int64) error {
	link, err := s.linkRepo.GetByIDAndOwner(ctx, id, ownerID)
	if err != nil {
		return err
	}

	if err := s.linkRepo.Delete(ctx, id, ownerID); err != nil {
		return err
	}

	s.invalidateCache(ctx, link.Slug)

	return nil
}

// GetLinkStats returns visit counts for a link, owner-scoped like every
// other id lookup.
func (s *linkService) GetLinkStats(ctx context.Context, ownerID string, id int64) (*models.VisitStats, error) {
	link, err := s.linkRepo.GetByIDAndOwner(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	return s.visitRepo.StatsByLink(ctx, link.ID)
}

// fillCache is best effort: a cache failure never fails the operation.
func (s *linkService) fillCache(ctx context.Context, link *models.Link) {
	if s.cacheRepo == nil {
		return
	}
	if err := s.cacheRepo.Set(ctx, link.Slug, link, cacheTTL); err != nil {
		s.logger.Warn("Failed to cache link", zap.String("slug", link.Slug), zap.Error(err))
	}
}

func (s *linkService) invalidateCache(ctx context.Context, slug string) {
	if s.cacheRepo == nil {
		return
	}
	if err := s.cacheRepo.Delete(ctx, slug); err != nil {
		s.logger.Warn("Failed to invalidate cached link", zap.String("slug", slug), zap.Error(err))
	}
}
