package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-zap-engine/internal/constants"
	"github.com/aman-zulfiqar/solana-zap-engine/internal/models"
	"github.com/aman-zulfiqar/solana-zap-engine/internal/storage"
)

// RedisConfig holds connection settings for the zap feed.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisCache keeps the recent-zaps list and fans events out over Pub/Sub.
type RedisCache struct {
	client *redis.Client
	logger *logrus.Logger
}

var _ storage.ZapCache = (*RedisCache)(nil)

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(ctx context.Context, cfg RedisConfig, logger *logrus.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedisCacheFromClient(client, logger), nil
}

// NewRedisCacheFromClient wraps an existing client. The cache owns it from
// then on and closes it in Close.
func NewRedisCacheFromClient(client *redis.Client, logger *logrus.Logger) *RedisCache {
	if logger == nil {
		logger = logrus.New()
	}
	return &RedisCache{client: client, logger: logger}
}

// Client exposes the underlying client for stores sharing the connection.
func (r *RedisCache) Client() *redis.Client {
	return r.client
}

// ZapChannels lists every Pub/Sub channel an event is published to.
func ZapChannels(zap *models.ZapEvent) []string {
	return []string{
		constants.PubSubChannelZaps,
		constants.PubSubChannelPoolPrefix + zap.Pool,
		constants.PubSubChannelCallerPrefix + zap.Caller,
	}
}

// GetRecentZaps returns up to limit zaps, newest first.
func (r *RedisCache) GetRecentZaps(ctx context.Context, limit int64) ([]*models.ZapEvent, error) {
	if limit <= 0 {
		return []*models.ZapEvent{}, nil
	}

	vals, err := r.client.LRange(ctx, constants.RedisKeyRecentZaps, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("get recent zaps: %w", err)
	}

	out := make([]*models.ZapEvent, 0, len(vals))
	for _, v := range vals {
		var zap models.ZapEvent
		if err := json.Unmarshal([]byte(v), &zap); err != nil {
			r.logger.WithError(err).Warn("skipping malformed recent zap")
			continue
		}
		out = append(out, &zap)
	}
	return out, nil
}

// PublishZap records zap in the recent list and publishes it to all of its
// channels in one transaction.
func (r *RedisCache) PublishZap(ctx context.Context, zap *models.ZapEvent) error {
	data, err := json.Marshal(zap)
	if err != nil {
		return fmt.Errorf("marshal zap: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, constants.RedisKeyRecentZaps, data)
	pipe.LTrim(ctx, constants.RedisKeyRecentZaps, 0, constants.MaxRecentZaps-1)
	for _, channel := range ZapChannels(zap) {
		pipe.Publish(ctx, channel, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish zap: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"id":   zap.ID,
		"pool": zap.Pool,
	}).Debug("zap published")
	return nil
}

// SubscribeZaps streams events from the all-zaps channel until ctx is done.
func (r *RedisCache) SubscribeZaps(ctx context.Context) (<-chan *models.ZapEvent, error) {
	pubsub := r.client.Subscribe(ctx, constants.PubSubChannelZaps)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe zaps: %w", err)
	}

	out := make(chan *models.ZapEvent, 64)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var zap models.ZapEvent
				if err := json.Unmarshal([]byte(msg.Payload), &zap); err != nil {
					r.logger.WithError(err).Warn("skipping malformed zap event")
					continue
				}
				select {
				case out <- &zap:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
