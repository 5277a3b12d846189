package constants

import "time"

// Redis keys
const (
	RedisKeyRecentZaps = "zaps:recent"
	RedisKeyFlagIndex  = "zap:flags:index"
	RedisKeyFlagPrefix = "zap:flags:"
)

// Redis Pub/Sub channels
const (
	PubSubChannelZaps         = "zaps:all"
	PubSubChannelPoolPrefix   = "zaps:pool:"
	PubSubChannelCallerPrefix = "zaps:caller:"
)

// Flag keys read by the engine before every zap. A pool can be paused on its
// own with FlagZapPaused + "." + <pool address>.
const (
	FlagZapPaused = "zap.paused"
)

// Limits
const (
	MaxRecentZaps         = 100
	MaxSlippageBps        = 1000
	DefaultSlippageBps    = 50
	DefaultPublishTimeout = 3 * time.Second
)

// Program addresses
const (
	// ZapProgramID is the program every pool and zap account address is
	// derived from.
	ZapProgramID = "8MzMDBFj696F8GGzB6cS5tShXASiHA346x72FCfEbecG"
	// IncineratorAddress owns the seed liquidity of configured pools.
	IncineratorAddress = "1nc1nerator11111111111111111111111111111111"
)

// Token mint addresses to symbols
var TokenSymbols = map[string]string{
	"So11111111111111111111111111111111111111112":  "SOL",
	"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v": "USDC",
	"Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB": "USDT",
	"mSoLzYCxHdYgdzU16g5QSh3i5K3z3KZK7ytfqcJm7So":  "mSOL",
	"7vfCXTUXx5WJV5JADk17DUJ4ksgau7utNKj4b963voxs": "ETH",
	"3NZ9JMVBmGAqocybic2c7LQCJScmgsAZ6vQqTDzcqmJh": "BTC",
	"DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263": "BONK",
	"JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN":  "JUP",
	"4k3Dyjzvzp8eMZWUXbBCjEvwSkkk59S5iCNLY3QrkX6R": "RAY",
}

// Symbol returns the known symbol of mint, or a shortened address.
func Symbol(mint string) string {
	if s, ok := TokenSymbols[mint]; ok {
		return s
	}
	if len(mint) > 8 {
		return mint[:4] + ".." + mint[len(mint)-4:]
	}
	return mint
}
