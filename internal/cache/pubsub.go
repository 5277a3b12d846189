// ============================================================================
// cache/pubsub.go - Redis Pub/Sub consumer
// ============================================================================
package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-zap-engine/internal/models"
	"github.com/aman-zulfiqar/solana-zap-engine/internal/storage"
)

// PubSubManager consumes zap events published by RedisCache.
type PubSubManager struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewPubSubManager(client *redis.Client, logger *logrus.Logger) *PubSubManager {
	if logger == nil {
		logger = logrus.New()
	}
	return &PubSubManager{client: client, logger: logger}
}

// Subscribe delivers every event on channel to handler until ctx is done.
func (p *PubSubManager) Subscribe(ctx context.Context, channel string, handler storage.ZapHandler) error {
	pubsub := p.client.Subscribe(ctx, channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", channel, err)
	}
	p.logger.WithField("channel", channel).Info("subscribed")

	return p.consume(ctx, pubsub, handler)
}

// PSubscribe is Subscribe for a pattern such as "zaps:pool:*".
func (p *PubSubManager) PSubscribe(ctx context.Context, pattern string, handler storage.ZapHandler) error {
	pubsub := p.client.PSubscribe(ctx, pattern)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("psubscribe %s: %w", pattern, err)
	}
	p.logger.WithField("pattern", pattern).Info("subscribed")

	return p.consume(ctx, pubsub, handler)
}

func (p *PubSubManager) consume(ctx context.Context, pubsub *redis.PubSub, handler storage.ZapHandler) error {
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var zap models.ZapEvent
			if err := json.Unmarshal([]byte(msg.Payload), &zap); err != nil {
				p.logger.WithError(err).WithField("channel", msg.Channel).Warn("error unmarshaling zap")
				continue
			}
			handler(&zap)
		}
	}
}
