package flags

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/aman-zulfiqar/solana-zap-engine/internal/constants"
)

var ErrNotFound = errors.New("flag not found")

var keyRe = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,128}$`)

// Flag is a boolean switch. Pool is filled in for per-pool pause flags.
type Flag struct {
	Key       string    `json:"key"`
	Value     bool      `json:"value"`
	Pool      string    `json:"pool,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PauseState is what the engine sees for one pool.
type PauseState struct {
	Global bool `json:"global"`
	Pool   bool `json:"pool"`
}

// Paused reports whether zaps into the pool are blocked.
func (p PauseState) Paused() bool { return p.Global || p.Pool }

func ValidateKey(key string) error {
	if !keyRe.MatchString(key) {
		return fmt.Errorf("invalid flag key")
	}
	return nil
}

// PoolPausedKey is the flag that pauses zaps into a single pool. An empty
// pool gives the global switch.
func PoolPausedKey(pool string) string {
	if pool == "" {
		return constants.FlagZapPaused
	}
	return constants.FlagZapPaused + "." + pool
}

// PoolFromKey returns the pool of a per-pool pause key.
func PoolFromKey(key string) (string, bool) {
	pool, ok := strings.CutPrefix(key, constants.FlagZapPaused+".")
	if !ok || pool == "" {
		return "", false
	}
	return pool, true
}

func flagKey(key string) string {
	return constants.RedisKeyFlagPrefix + key
}
