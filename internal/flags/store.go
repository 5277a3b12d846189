package flags

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aman-zulfiqar/solana-zap-engine/internal/constants"
)

// Store keeps boolean switches in Redis. The zap engine reads it as its pause
// gate.
type Store struct {
	client redis.Cmdable
}

func NewStore(client redis.Cmdable) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	return &Store{client: client}, nil
}

func (s *Store) Upsert(ctx context.Context, key string, value bool) (*Flag, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	flag := &Flag{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	flag.Pool, _ = PoolFromKey(key)

	b, err := json.Marshal(flag)
	if err != nil {
		return nil, fmt.Errorf("marshal flag: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, flagKey(key), b, 0)
	pipe.SAdd(ctx, constants.RedisKeyFlagIndex, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("upsert flag: %w", err)
	}

	return flag, nil
}

// SetPaused switches zaps into pool on or off. An empty pool is the global
// switch.
func (s *Store) SetPaused(ctx context.Context, pool string, paused bool) (*Flag, error) {
	return s.Upsert(ctx, PoolPausedKey(pool), paused)
}

func (s *Store) Get(ctx context.Context, key string) (*Flag, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	val, err := s.client.Get(ctx, flagKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get flag: %w", err)
	}

	var f Flag
	if err := json.Unmarshal([]byte(val), &f); err != nil {
		return nil, fmt.Errorf("unmarshal flag: %w", err)
	}
	return &f, nil
}

// IsSet reports whether key exists and is true. A missing flag is false.
func (s *Store) IsSet(ctx context.Context, key string) (bool, error) {
	f, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return f.Value, nil
}

// PauseStates reads the global switch and the switch of every pool in one
// round trip.
func (s *Store) PauseStates(ctx context.Context, pools []string) (map[string]PauseState, error) {
	keys := make([]string, 0, len(pools)+1)
	keys = append(keys, flagKey(constants.FlagZapPaused))
	for _, p := range pools {
		keys = append(keys, flagKey(PoolPausedKey(p)))
	}

	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("mget pause flags: %w", err)
	}

	global := flagValue(vals[0])
	out := make(map[string]PauseState, len(pools))
	for i, p := range pools {
		out[p] = PauseState{Global: global, Pool: flagValue(vals[i+1])}
	}
	return out, nil
}

func (s *Store) List(ctx context.Context) ([]*Flag, error) {
	keys, err := s.client.SMembers(ctx, constants.RedisKeyFlagIndex).Result()
	if err != nil {
		return nil, fmt.Errorf("list flags index: %w", err)
	}

	redisKeys := make([]string, 0, len(keys))
	for _, k := range keys {
		if ValidateKey(k) == nil {
			redisKeys = append(redisKeys, flagKey(k))
		}
	}
	if len(redisKeys) == 0 {
		return []*Flag{}, nil
	}

	vals, err := s.client.MGet(ctx, redisKeys...).Result()
	if err != nil {
		return nil, fmt.Errorf("mget flags: %w", err)
	}

	out := make([]*Flag, 0, len(vals))
	for _, v := range vals {
		if f, ok := decodeFlag(v); ok {
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, flagKey(key))
	pipe.SRem(ctx, constants.RedisKeyFlagIndex, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete flag: %w", err)
	}

	return nil
}

// decodeFlag parses one MGET entry; missing or corrupt entries are skipped.
func decodeFlag(v any) (*Flag, bool) {
	raw, ok := v.(string)
	if !ok {
		return nil, false
	}
	var f Flag
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		return nil, false
	}
	return &f, true
}

func flagValue(v any) bool {
	f, ok := decodeFlag(v)
	return ok && f.Value
}
