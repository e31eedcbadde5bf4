package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/avkuzmin/slugline/internal/config"
	"github.com/avkuzmin/slugline/internal/models"
	"github.com/avkuzmin/slugline/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
)

// testEnv holds the containers and repositories under test.
type testEnv struct {
	db             *repository.PostgresDB
	redis          *repository.RedisDB
	dbContainer    testcontainers.Container
	redisContainer testcontainers.Container
	links          repository.LinkRepository
	visits         repository.VisitRepository
	cache          repository.CacheRepository
}

func setupTestEnv(t *testing.T) *testEnv {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := t.Context()

	dbContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("slugline"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	redisContainer, err := redis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)

	dbHost, err := dbContainer.Host(ctx)
	require.NoError(t, err)
	dbPort, err := dbContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	redisHost, err := redisContainer.Host(ctx)
	require.NoError(t, err)
	redisPort, err := redisContainer.MappedPort(ctx, "6379")
	require.NoError(t, err)

	db, err := repository.NewPostgresDB(config.DBConfig{
		Host:     dbHost,
		Port:     dbPort.Port(),
		User:     "user",
		Password: "password",
		Name:     "slugline",
	})
	require.NoError(t, err)

	redisClient, err := repository.NewRedisClient(config.RedisConfig{
		Host: redisHost,
		Port: redisPort.Port(),
	})
	require.NoError(t, err)

	return &testEnv{
		db:             db,
		redis:          redisClient,
		dbContainer:    dbContainer,
		redisContainer: redisContainer,
		links:          repository.NewLinkRepository(db),
		visits:         repository.NewVisitRepository(db),
		cache:          repository.NewCacheRepository(redisClient),
	}
}

func (env *testEnv) teardown(t *testing.T) {
	env.db.Close()
	env.redis.Close()

	ctx := t.Context()
	if env.dbContainer != nil {
		env.dbContainer.Terminate(ctx)
	}
	if env.redisContainer != nil {
		env.redisContainer.Terminate(ctx)
	}
}

func TestIntegration_LinkLifecycle(t *testing.T) {
	env := setupTestEnv(t)
	defer env.teardown(t)

	ctx := context.Background()

	link := &models.Link{
		OwnerID:   "alice",
		Slug:      "docs",
		TargetURL: "example.com/docs",
		CreatedAt: time.Now(),
	}
	require.NoError(t, env.links.Create(ctx, link))
	assert.NotZero(t, link.ID)

	// Duplicate slug hits the unique constraint, whoever the owner is.
	dup := &models.Link{OwnerID: "bob", Slug: "docs", TargetURL: "other.com", CreatedAt: time.Now()}
	assert.ErrorIs(t, env.links.Create(ctx, dup), repository.ErrSlugTaken)

	// Owner-scoped lookup.
	got, err := env.links.GetByIDAndOwner(ctx, link.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, "docs", got.Slug)

	_, err = env.links.GetByIDAndOwner(ctx, link.ID, "bob")
	assert.ErrorIs(t, err, repository.ErrLinkNotFound)

	// Unscoped slug lookup for the redirect path.
	got, err = env.links.GetBySlug(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, link.ID, got.ID)

	// Update re-checks the owner in the WHERE clause.
	foreign := *got
	foreign.OwnerID = "bob"
	foreign.TargetURL = "hijacked.com"
	assert.ErrorIs(t, env.links.Update(ctx, &foreign), repository.ErrLinkNotFound)

	got.TargetURL = "example.com/v2"
	require.NoError(t, env.links.Update(ctx, got))

	fresh, err := env.links.GetBySlug(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, "example.com/v2", fresh.TargetURL)

	// Delete is owner-scoped too.
	assert.ErrorIs(t, env.links.Delete(ctx, link.ID, "bob"), repository.ErrLinkNotFound)
	require.NoError(t, env.links.Delete(ctx, link.ID, "alice"))

	_, err = env.links.GetBySlug(ctx, "docs")
	assert.ErrorIs(t, err, repository.ErrLinkNotFound)
}

func TestIntegration_VisitAccounting(t *testing.T) {
	env := setupTestEnv(t)
	defer env.teardown(t)

	ctx := context.Background()

	link := &models.Link{OwnerID: "alice", Slug: "counted", TargetURL: "example.com", CreatedAt: time.Now()}
	require.NoError(t, env.links.Create(ctx, link))

	count, err := env.visits.CountByLink(ctx, link.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	for i := 0; i < 5; i++ {
		require.NoError(t, env.visits.Record(ctx, &models.Visit{
			LinkID:    link.ID,
			IPAddress: "1.2.3.4",
			CreatedAt: time.Now(),
		}))
	}
	require.NoError(t, env.visits.Record(ctx, &models.Visit{
		LinkID:    link.ID,
		IPAddress: "5.6.7.8",
		CreatedAt: time.Now(),
	}))

	count, err = env.visits.CountByLink(ctx, link.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(6), count)

	stats, err := env.visits.StatsByLink(ctx, link.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(6), stats.TotalVisits)
	assert.Equal(t, int64(2), stats.UniqueVisitors)

	// Deleting the link orphans the visit rows; the count survives.
	require.NoError(t, env.links.Delete(ctx, link.ID, "alice"))
	count, err = env.visits.CountByLink(ctx, link.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(6), count)
}

func TestIntegration_CacheRoundTrip(t *testing.T) {
	env := setupTestEnv(t)
	defer env.teardown(t)

	ctx := context.Background()

	link := &models.Link{ID: 42, OwnerID: "alice", Slug: "cached", TargetURL: "example.com"}
	require.NoError(t, env.cache.Set(ctx, "cached", link, time.Minute))

	got, err := env.cache.Get(ctx, "cached")
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.ID)
	assert.Equal(t, "example.com", got.TargetURL)

	require.NoError(t, env.cache.Delete(ctx, "cached"))
	_, err = env.cache.Get(ctx, "cached")
	assert.Error(t, err)
}
