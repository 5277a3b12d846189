package storage

import (
	"context"
	"errors"

	"github.com/aman-zulfiqar/solana-zap-engine/internal/models"
)

// StorePublisher records committed zaps in a ZapStore as they are emitted.
// Redelivered events are ignored.
type StorePublisher struct {
	Store ZapStore
}

func (p StorePublisher) PublishZap(ctx context.Context, zap *models.ZapEvent) error {
	if err := p.Store.Insert(ctx, zap); err != nil && !errors.Is(err, ErrDuplicateKey) {
		return err
	}
	return nil
}
