package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"launchpad-indexer/internal/domain"
	"launchpad-indexer/internal/storage"
)

// CampaignStore is an in-memory implementation of storage.CampaignStore.
type CampaignStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Campaign // keyed by address
}

// NewCampaignStore creates a new in-memory campaign store.
func NewCampaignStore() *CampaignStore {
	return &CampaignStore{
		data: make(map[string]*domain.Campaign),
	}
}

// Insert adds a new campaign. Returns ErrDuplicateKey if the address exists.
func (s *CampaignStore) Insert(_ context.Context, c *domain.Campaign) error {
	if c == nil || c.Address == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[c.Address]; exists {
		return storage.ErrDuplicateKey
	}

	stored := *c
	if stored.CreatedAt == 0 {
		stored.CreatedAt = time.Now().Unix()
	}
	s.data[c.Address] = &stored
	return nil
}

// GetByAddress retrieves a campaign by contract address. Returns ErrNotFound if not exists.
func (s *CampaignStore) GetByAddress(_ context.Context, address string) (*domain.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	campaign, exists := s.data[address]
	if !exists {
		return nil, storage.ErrNotFound
	}

	result := *campaign
	return &result, nil
}

// List retrieves all campaigns ordered by deploy block ASC.
func (s *CampaignStore) List(_ context.Context) ([]*domain.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Campaign, 0, len(s.data))
	for _, campaign := range s.data {
		c := *campaign
		result = append(result, &c)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].DeployBlock != result[j].DeployBlock {
			return result[i].DeployBlock < result[j].DeployBlock
		}
		return result[i].Address < result[j].Address
	})

	return result, nil
}

// MarkGraduated records that the campaign graduated to a DEX at the given block.
// Idempotent: an already-graduated campaign keeps its original graduation block.
func (s *CampaignStore) MarkGraduated(_ context.Context, address string, block int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	campaign, exists := s.data[address]
	if !exists {
		return storage.ErrNotFound
	}
	if campaign.Graduated {
		return nil
	}

	campaign.Graduated = true
	campaign.GraduationBlock = &block
	return nil
}

var _ storage.CampaignStore = (*CampaignStore)(nil)
