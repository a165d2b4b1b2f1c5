package services

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/mhadley/receiptvault/internal/client/models"
	"github.com/mhadley/receiptvault/internal/client/store"
	"github.com/mhadley/receiptvault/internal/common"
	"github.com/mhadley/receiptvault/internal/logging"
)

// LoyaltyService manages the loyalty-card collection. Cards have no upload
// pipeline; the whole collection is persisted on every mutation, same as
// receipts.
type LoyaltyService struct {
	store *store.Store
	log   logging.Logger

	mu    sync.Mutex
	items []models.LoyaltyCard
}

func NewLoyaltyService(st *store.Store, log logging.Logger) *LoyaltyService {
	return &LoyaltyService{
		store: st,
		log:   log.With("component", "loyalty"),
	}
}

// LoadCached reads the persisted card collection into memory.
func (s *LoyaltyService) LoadCached(ctx context.Context) error {
	items, err := s.store.LoadLoyaltyCards(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.items = items
	s.mu.Unlock()
	return nil
}

// Add inserts a card. An empty id gets a generated one; a new card sorts
// after the existing ones.
func (s *LoyaltyService) Add(ctx context.Context, card models.LoyaltyCard) (models.LoyaltyCard, error) {
	if card.ID == "" {
		card.ID = uuid.NewString()
	}

	s.mu.Lock()
	maxOrder := -1
	for _, c := range s.items {
		if c.SortOrder > maxOrder {
			maxOrder = c.SortOrder
		}
	}
	card.SortOrder = maxOrder + 1
	s.items = append(s.items, card)
	snapshot := s.items
	s.mu.Unlock()

	return card, s.store.SaveLoyaltyCards(ctx, snapshot)
}

// Update replaces the card sharing card's id.
func (s *LoyaltyService) Update(ctx context.Context, card models.LoyaltyCard) error {
	s.mu.Lock()
	found := false
	for i := range s.items {
		if s.items[i].ID == card.ID {
			s.items[i] = card
			found = true
		}
	}
	snapshot := s.items
	s.mu.Unlock()

	if !found {
		return common.ErrorNotFound
	}
	return s.store.SaveLoyaltyCards(ctx, snapshot)
}

// Delete removes the card. Deleting an unknown id is a no-op.
func (s *LoyaltyService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	kept := s.items[:0:0]
	removed := false
	for _, c := range s.items {
		if c.ID == id {
			removed = true
			continue
		}
		kept = append(kept, c)
	}
	s.items = kept
	s.mu.Unlock()

	if !removed {
		return nil
	}
	return s.store.SaveLoyaltyCards(ctx, kept)
}

// GetByID looks up a card in the current snapshot.
func (s *LoyaltyService) GetByID(id string) (models.LoyaltyCard, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.items {
		if c.ID == id {
			return c, true
		}
	}
	return models.LoyaltyCard{}, false
}

// Cards returns the collection ordered by sort order, ties broken by
// creation time.
func (s *LoyaltyService) Cards() []models.LoyaltyCard {
	s.mu.Lock()
	out := make([]models.LoyaltyCard, len(s.items))
	copy(out, s.items)
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].CreatedAt < out[j].CreatedAt
	})
	return out
}

// ClearLocalCache wipes the persisted card collection and in-memory state.
func (s *LoyaltyService) ClearLocalCache(ctx context.Context) error {
	s.mu.Lock()
	s.items = nil
	s.mu.Unlock()
	return s.store.ClearLoyaltyCards(ctx)
}
