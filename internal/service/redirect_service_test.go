package service_test

import (
	"context"
	"testing"

	"github.com/avkuzmin/slugline/internal/models"
	"github.com/avkuzmin/slugline/internal/repository"
	"github.com/avkuzmin/slugline/internal/service"
	"github.com/avkuzmin/slugline/internal/service/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedirectService() (service.RedirectService, *mocks.MockLinkRepository, *mocks.MockVisitRepository, *mocks.MockCacheRepository) {
	linkRepo := mocks.NewMockLinkRepository()
	visitRepo := mocks.NewMockVisitRepository()
	cacheRepo := mocks.NewMockCacheRepository()
	redirectService := service.NewRedirectService(linkRepo, visitRepo, cacheRepo, nil)
	return redirectService, linkRepo, visitRepo, cacheRepo
}

func createLink(t *testing.T, linkRepo *mocks.MockLinkRepository, slug, target string) *models.Link {
	t.Helper()
	link := &models.Link{OwnerID: "alice", Slug: slug, TargetURL: target}
	require.NoError(t, linkRepo.Create(context.Background(), link))
	return link
}

func TestRedirectService_ResolveAndRecord_Success(t *testing.T) {
	redirectService, linkRepo, visitRepo, _ := setupRedirectService()

	link := createLink(t, linkRepo, "abc", "example.com")

	target, err := redirectService.ResolveAndRecord(context.Background(), "abc", "1.2.3.4")

	require.NoError(t, err)
	assert.Equal(t, "https://example.com", target)

	count, err := visitRepo.CountByLink(context.Background(), link.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count, "exactly one visit per resolution")
}

func TestRedirectService_ResolveAndRecord_UnknownSlug(t *testing.T) {
	redirectService, _, visitRepo, _ := setupRedirectService()

	target, err := redirectService.ResolveAndRecord(context.Background(), "nonexistent-slug", "1.2.3.4")

	assert.ErrorIs(t, err, repository.ErrLinkNotFound)
	assert.Empty(t, target)

	// A failed resolution records nothing.
	stats, err := visitRepo.StatsByLink(context.Background(), 1)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalVisits)
}

func TestRedirectService_VisitAccounting(t *testing.T) {
	redirectService, linkRepo, visitRepo, _ := setupRedirectService()

	link := createLink(t, linkRepo, "abc", "example.com")

	count, err := visitRepo.CountByLink(context.Background(), link.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	for i := 0; i < 5; i++ {
		_, err := redirectService.ResolveAndRecord(context.Background(), "abc", "1.2.3.4")
		require.NoError(t, err)
	}

	count, err = visitRepo.CountByLink(context.Background(), link.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)
}

func TestRedirectService_CacheHitStillRecordsVisit(t *testing.T) {
	redirectService, linkRepo, visitRepo, cacheRepo := setupRedirectService()

	link := createLink(t, linkRepo, "abc", "example.com")

	// First resolution fills the cache.
	_, err := redirectService.ResolveAndRecord(context.Background(), "abc", "1.2.3.4")
	require.NoError(t, err)
	require.True(t, cacheRepo.Contains("abc"))

	// Second resolution is served from cache and still counts.
	target, err := redirectService.ResolveAndRecord(context.Background(), "abc", "5.6.7.8")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", target)

	count, err := visitRepo.CountByLink(context.Background(), link.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestRedirectService_RecordRetriesThenSucceeds(t *testing.T) {
	redirectService, linkRepo, visitRepo, _ := setupRedirectService()

	link := createLink(t, linkRepo, "abc", "example.com")
	visitRepo.FailRecord = 2 // first two inserts fail, third succeeds

	target, err := redirectService.ResolveAndRecord(context.Background(), "abc", "1.2.3.4")

	require.NoError(t, err)
	assert.Equal(t, "https://example.com", target)

	count, err := visitRepo.CountByLink(context.Background(), link.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestRedirectService_RecordExhaustedFailsResolution(t *testing.T) {
	redirectService, linkRepo, visitRepo, _ := setupRedirectService()

	link := createLink(t, linkRepo, "abc", "example.com")
	visitRepo.FailRecord = 10 // more failures than the retry budget

	target, err := redirectService.ResolveAndRecord(context.Background(), "abc", "1.2.3.4")

	assert.Error(t, err)
	assert.Empty(t, target, "no redirect for an uncounted visit")

	count, err := visitRepo.CountByLink(context.Background(), link.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRedirectService_SchemelessTargetGetsHTTPS(t *testing.T) {
	redirectService, linkRepo, _, _ := setupRedirectService()

	createLink(t, linkRepo, "pathy", "example.com/a/b?q=1")

	target, err := redirectService.ResolveAndRecord(context.Background(), "pathy", "1.2.3.4")

	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a/b?q=1", target)
}
