package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/avkuzmin/slugline/internal/models"
	"github.com/avkuzmin/slugline/internal/repository"
)

// MockLinkRepository implements repository.LinkRepository for testing
type MockLinkRepository struct {
	mu     sync.RWMutex
	links  map[int64]*models.Link // id -> link
	nextID int64

	// FailCreate forces Create to return the given error when set.
	FailCreate error
}

func NewMockLinkRepository() *MockLinkRepository {
	return &MockLinkRepository{
		links:  make(map[int64]*models.Link),
		nextID: 1,
	}
}

func (m *MockLinkRepository) Create(ctx context.Context, link *models.Link) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailCreate != nil {
		return m.FailCreate
	}

	for _, existing := range m.links {
		if existing.Slug == link.Slug {
			return repository.ErrSlugTaken
		}
	}

	link.ID = m.nextID
	m.nextID++
	link.UpdatedAt = link.CreatedAt
	stored := *link
	m.links[link.ID] = &stored
	return nil
}

func (m *MockLinkRepository) GetByIDAndOwner(ctx context.Context, id int64, ownerID string) (*models.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	link, exists := m.links[id]
	if !exists || link.OwnerID != ownerID {
		return nil, repository.ErrLinkNotFound
	}
	copied := *link
	return &copied, nil
}

func (m *MockLinkRepository) GetBySlug(ctx context.Context, slug string) (*models.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, link := range m.links {
		if link.Slug == slug {
			copied := *link
			return &copied, nil
		}
	}
	return nil, repository.ErrLinkNotFound
}

func (m *MockLinkRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var links []models.Link
	// Ascending id matches the store's stable insertion order.
	for id := int64(1); id < m.nextID; id++ {
		if link, exists := m.links[id]; exists && link.OwnerID == ownerID {
			links = append(links, *link)
		}
	}
	return links, nil
}

func (m *MockLinkRepository) Update(ctx context.Context, link *models.Link) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, exists := m.links[link.ID]
	if !exists || existing.OwnerID != link.OwnerID {
		return repository.ErrLinkNotFound
	}

	for id, other := range m.links {
		if id != link.ID && other.Slug == link.Slug {
			return repository.ErrSlugTaken
		}
	}

	link.UpdatedAt = time.Now()
	stored := *link
	m.links[link.ID] = &stored
	return nil
}

func (m *MockLinkRepository) Delete(ctx context.Context, id int64, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	link, exists := m.links[id]
	if !exists || link.OwnerID != ownerID {
		return repository.ErrLinkNotFound
	}
	delete(m.links, id)
	return nil
}

func (m *MockLinkRepository) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links = make(map[int64]*models.Link)
	m.nextID = 1
}

// MockVisitRepository implements repository.VisitRepository for testing
type MockVisitRepository struct {
	mu     sync.RWMutex
	visits map[int64][]*models.Visit // link_id -> visits
	nextID int64

	// FailRecord makes Record fail that many times before succeeding.
	FailRecord int
}

func NewMockVisitRepository() *MockVisitRepository {
	return &MockVisitRepository{
		visits: make(map[int64][]*models.Visit),
		nextID: 1,
	}
}

func (m *MockVisitRepository) Record(ctx context.Context, visit *models.Visit) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailRecord > 0 {
		m.FailRecord--
		return context.DeadlineExceeded
	}

	visit.ID = m.nextID
	m.nextID++
	stored := *visit
	m.visits[visit.LinkID] = append(m.visits[visit.LinkID], &stored)
	return nil
}

func (m *MockVisitRepository) CountByLink(ctx context.Context, linkID int64) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.visits[linkID])), nil
}

func (m *MockVisitRepository) StatsByLink(ctx context.Context, linkID int64) (*models.VisitStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	uniqueIPs := make(map[string]bool)
	for _, visit := range m.visits[linkID] {
		uniqueIPs[visit.IPAddress] = true
	}

	return &models.VisitStats{
		LinkID:         linkID,
		TotalVisits:    int64(len(m.visits[linkID])),
		UniqueVisitors: int64(len(uniqueIPs)),
	}, nil
}

func (m *MockVisitRepository) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.visits = make(map[int64][]*models.Visit)
	m.nextID = 1
}

// MockCacheRepository implements repository.CacheRepository for testing
type MockCacheRepository struct {
	mu    sync.RWMutex
	cache map[string]*models.Link
}

func NewMockCacheRepository() *MockCacheRepository {
	return &MockCacheRepository{
		cache: make(map[string]*models.Link),
	}
}

func (m *MockCacheRepository) Get(ctx context.Context, slug string) (*models.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	link, exists := m.cache[slug]
	if !exists {
		return nil, repository.ErrLinkNotFound
	}
	return link, nil
}

func (m *MockCacheRepository) Set(ctx context.Context, slug string, link *models.Link, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache[slug] = link
	return nil
}

func (m *MockCacheRepository) Delete(ctx context.Context, slug string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cache, slug)
	return nil
}

func (m *MockCacheRepository) Contains(slug string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.cache[slug]
	return exists
}

func (m *MockCacheRepository) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache = make(map[string]*models.Link)
}
