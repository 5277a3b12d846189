package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aman-zulfiqar/solana-zap-engine/internal/models"
	"github.com/aman-zulfiqar/solana-zap-engine/internal/storage"
)

const defaultListLimit = 50

// ZapStore is an in-memory implementation of storage.ZapStore.
type ZapStore struct {
	mu   sync.RWMutex
	data map[string]*models.ZapEvent
}

// NewZapStore creates a new in-memory zap store.
func NewZapStore() *ZapStore {
	return &ZapStore{
		data: make(map[string]*models.ZapEvent),
	}
}

var _ storage.ZapStore = (*ZapStore)(nil)

// Insert adds a new zap. Returns ErrDuplicateKey if the ID exists.
func (s *ZapStore) Insert(_ context.Context, zap *models.ZapEvent) error {
	if zap == nil || zap.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[zap.ID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *zap
	s.data[zap.ID] = &copy
	return nil
}

// GetByID retrieves a zap by ID. Returns ErrNotFound if not found.
func (s *ZapStore) GetByID(_ context.Context, id string) (*models.ZapEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	zap, ok := s.data[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copy := *zap
	return &copy, nil
}

// ListByCaller retrieves a caller's zaps, newest first.
func (s *ZapStore) ListByCaller(_ context.Context, caller string, limit int) ([]*models.ZapEvent, error) {
	return s.list(func(z *models.ZapEvent) bool { return z.Caller == caller }, limit), nil
}

// ListByPool retrieves a pool's zaps, newest first.
func (s *ZapStore) ListByPool(_ context.Context, pool string, limit int) ([]*models.ZapEvent, error) {
	return s.list(func(z *models.ZapEvent) bool { return z.Pool == pool }, limit), nil
}

func (s *ZapStore) list(match func(*models.ZapEvent) bool, limit int) []*models.ZapEvent {
	if limit <= 0 {
		limit = defaultListLimit
	}

	s.mu.RLock()
	result := make([]*models.ZapEvent, 0)
	for _, zap := range s.data {
		if match(zap) {
			copy := *zap
			result = append(result, &copy)
		}
	}
	s.mu.RUnlock()

	// Sort by timestamp DESC, ID ASC
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Timestamp.Equal(result[j].Timestamp) {
			return result[i].Timestamp.After(result[j].Timestamp)
		}
		return result[i].ID < result[j].ID
	})

	if len(result) > limit {
		result = result[:limit]
	}
	return result
}
