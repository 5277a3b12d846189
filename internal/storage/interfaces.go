package storage

import (
	"context"
	"io"

	"github.com/aman-zulfiqar/solana-zap-engine/internal/models"
)

// ZapCache defines the interface for the hot zap feed
type ZapCache interface {
	// GetRecentZaps retrieves the most recent zaps, newest first
	GetRecentZaps(ctx context.Context, limit int64) ([]*models.ZapEvent, error)

	// PublishZap records the zap and fans it out to the Pub/Sub channels
	PublishZap(ctx context.Context, zap *models.ZapEvent) error

	// SubscribeZaps subscribes to real-time zap events
	SubscribeZaps(ctx context.Context) (<-chan *models.ZapEvent, error)

	// Ping checks if the cache is reachable
	Ping(ctx context.Context) error

	// Close closes the cache connection
	io.Closer
}

// ZapArchive defines the interface for the analytics copy of zap events
type ZapArchive interface {
	// InsertZap appends a zap event
	InsertZap(ctx context.Context, zap *models.ZapEvent) error

	// Ping checks if the store is reachable
	Ping(ctx context.Context) error

	// Close closes the store connection
	io.Closer
}

// ZapStore is the durable record of committed zaps.
type ZapStore interface {
	// Insert adds a zap. Returns ErrDuplicateKey if the ID exists.
	Insert(ctx context.Context, zap *models.ZapEvent) error

	// GetByID returns ErrNotFound for unknown IDs.
	GetByID(ctx context.Context, id string) (*models.ZapEvent, error)

	// ListByCaller returns the caller's zaps, newest first.
	ListByCaller(ctx context.Context, caller string, limit int) ([]*models.ZapEvent, error)

	// ListByPool returns the pool's zaps, newest first.
	ListByPool(ctx context.Context, pool string, limit int) ([]*models.ZapEvent, error)
}

// ZapHandler is a function that processes zap events
type ZapHandler func(*models.ZapEvent)
