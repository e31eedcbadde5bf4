package service

import (
	"context"
	"time"

	"github.com/avkuzmin/slugline/internal/models"
	"github.com/avkuzmin/slugline/internal/repository"
	"go.uber.org/zap"
)

const (
	// redirectScheme is re-attached to the stored scheme-less target when
	// building the redirect location. Fixed to https deliberately; targets
	// that only speak http will be upgraded by the redirect.
	redirectScheme = "https://"

	recordMaxRetries = 3
)

// RedirectService resolves a slug to its redirect location and records the
// visit. The visit row is written synchronously, exactly once, before the
// location is returned: a redirect response implies the visit was counted.
// The two writes are not transactional; a crash after the record yields a
// counted visit without a delivered redirect, which is accepted.
type RedirectService interface {
	ResolveAndRecord(ctx context.Context, slug, ipAddress string) (string, error)
}

type redirectService struct {
	linkRepo  repository.LinkRepository
	visitRepo repository.VisitRepository
	cacheRepo repository.CacheRepository
	logger    *zap.Logger
}

func NewRedirectService(
	linkRepo repository.LinkRepository,
	visitRepo repository.VisitRepository,
	cacheRepo repository.CacheRepository,
	logger *zap.Logger,
) RedirectService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &redirectService{
		linkRepo:  linkRepo,
		visitRepo: visitRepo,
		cacheRepo: cacheRepo,
		logger:    logger,
	}
}

func (s *redirectService) ResolveAndRecord(ctx context.Context, slug, ipAddress string) (string, error) {
	link, err := s.resolve(ctx, slug)
	if err != nil {
		// No visit is recorded for a slug that resolves to nothing.
		return "", err
	}

	if err := s.recordVisit(ctx, link.ID, ipAddress); err != nil {
		s.logger.Error("Failed to record visit",
			zap.String("slug", slug),
			zap.Int64("link_id", link.ID),
			zap.Error(err),
		)
		return "", err
	}

	return redirectScheme + link.TargetURL, nil
}

// resolve checks the cache first; on a miss the store is authoritative and
// the mapping is cached for the next visitor.
func (s *redirectService) resolve(ctx context.Context, slug string) (*models.Link, error) {
	if s.cacheRepo != nil {
		if link, err := s.cacheRepo.Get(ctx, slug); err == nil {
			return link, nil
		}
	}

	link, err := s.linkRepo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	if s.cacheRepo != nil {
		if err := s.cacheRepo.Set(ctx, slug, link, cacheTTL); err != nil {
			s.logger.Warn("Failed to cache link", zap.String("slug", slug), zap.Error(err))
		}
	}

	return link, nil
}

// recordVisit inserts the visit row with bounded retries and backoff. If the
// store stays unavailable the whole resolution fails; a redirect is never
// served for a visit that could not be counted.
func (s *redirectService) recordVisit(ctx context.Context, linkID int64, ipAddress string) error {
	visit := &models.Visit{
		LinkID:    linkID,
		IPAddress: ipAddress,
		CreatedAt: time.Now(),
	}

	var lastErr error
	for i := 0; i < recordMaxRetries; i++ {
		if lastErr = s.visitRepo.Record(ctx, visit); lastErr == nil {
			return nil
		}
		if i < recordMaxRetries-1 {
			s.logger.Debug("Retrying visit record",
				zap.Int64("link_id", linkID),
				zap.Int("attempt", i+1),
				zap.Error(lastErr),
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(i+1) * 100 * time.Millisecond):
			}
		}
	}

	return lastErr
}
