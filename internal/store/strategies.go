package store

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rzzdr/options-risk-engine/internal/strategy"
	"github.com/rzzdr/options-risk-engine/pkg/utils/errors"
	"github.com/rzzdr/options-risk-engine/pkg/utils/logger"
)

// StoredStrategy is a strategy with its store identity
type StoredStrategy struct {
	ID        string
	CreatedAt time.Time
	Strategy  *strategy.Strategy

	seq uint64
}

// StrategyStore keeps strategies in memory, keyed by generated IDs
type StrategyStore struct {
	strategies map[string]StoredStrategy
	seq        uint64
	mu         sync.RWMutex
	now        func() time.Time
	log        *logger.Logger
}

// NewStrategyStore creates an empty strategy store
func NewStrategyStore() *StrategyStore {
	return &StrategyStore{
		strategies: make(map[string]StoredStrategy),
		now:        time.Now,
		log:        logger.GetLogger("store.strategies"),
	}
}

// Save stores s under a new ID and returns the stored entry
func (s *StrategyStore) Save(st *strategy.Strategy) (StoredStrategy, error) {
	if st == nil {
		return StoredStrategy{}, errors.InvalidArgument("cannot save nil strategy")
	}

	entry := StoredStrategy{
		ID:        uuid.NewString(),
		CreatedAt: s.now(),
		Strategy:  st,
	}

	s.mu.Lock()
	s.seq++
	entry.seq = s.seq
	s.strategies[entry.ID] = entry
	s.mu.Unlock()

	s.log.Debugw("Saved strategy", "id", entry.ID, "name", st.Name(), "legs", st.Len())
	return entry, nil
}

// Get retrieves a strategy by ID
func (s *StrategyStore) Get(id string) (StoredStrategy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.strategies[id]
	if !exists {
		return StoredStrategy{}, errors.NotFound("strategy not found: %s", id)
	}
	return entry, nil
}

// List returns every stored strategy, oldest first
func (s *StrategyStore) List() []StoredStrategy {
	s.mu.RLock()
	entries := make([]StoredStrategy, 0, len(s.strategies))
	for _, e := range s.strategies {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].seq < entries[j].seq
		}
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
	return entries
}

// Delete removes a strategy by ID
func (s *StrategyStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.strategies[id]; !exists {
		return errors.NotFound("strategy not found: %s", id)
	}

	delete(s.strategies, id)
	return nil
}
