package zap

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/aman-zulfiqar/solana-zap-engine/internal/amm"
	"github.com/aman-zulfiqar/solana-zap-engine/internal/models"
)

// Strategy selects how much of the input is swapped.
type Strategy string

const (
	// StrategyOptimal swaps the amount that leaves the deposit at the
	// post-swap pool ratio, so almost nothing is left over.
	StrategyOptimal Strategy = "optimal"
	// StrategyHalf swaps exactly half of the input.
	StrategyHalf Strategy = "half"
)

// ParseStrategy accepts "optimal" or "half" (case-insensitive).
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case StrategyOptimal, "":
		return StrategyOptimal, nil
	case StrategyHalf:
		return StrategyHalf, nil
	default:
		return "", fmt.Errorf("unknown zap strategy %q", s)
	}
}

// Request is a single-asset zap into a pool.
type Request struct {
	Caller     solana.PublicKey
	InputAsset solana.PublicKey
	Pool       solana.PublicKey
	Amount     *big.Int

	// TransferResidual returns the balanced-deposit dust to the caller.
	// When false the dust stays with the zap account.
	TransferResidual bool

	// Optional parameters
	SlippageBps *uint16  // tolerance on the swap leg, defaults to engine config
	MinShares   *big.Int // minimum LP shares to accept

	RequestedAt time.Time
}

// Plan is the solver's output for one zap.
type Plan struct {
	Strategy            Strategy
	ReserveIn           *big.Int
	ReserveOut          *big.Int
	AmountToSwap        *big.Int
	ExpectedAmountOut   *big.Int
	MinAmountOut        *big.Int
	AmountToAddDirectly *big.Int
	SlippageBps         uint16
	FeeBps              uint16
	PriceImpact         float64
}

// Deposit is what the minter actually added to the pool.
type Deposit struct {
	AmountIn    *big.Int
	AmountOut   *big.Int
	ResidualIn  *big.Int
	ResidualOut *big.Int
	Shares      *big.Int
}

// Result is returned for a committed zap.
type Result struct {
	ID             string
	Plan           *Plan
	AmountOut      *big.Int
	Deposit        *Deposit
	LPSharesMinted *big.Int
	Pool           *amm.Snapshot
	Event          *models.ZapEvent
	Duration       time.Duration
}
