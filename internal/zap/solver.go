package zap

import (
	"fmt"
	"math/big"

	"github.com/aman-zulfiqar/solana-zap-engine/internal/amm"
)

// OptimalSwapAmount returns the part of amountIn to sell so that the rest
// matches the pool ratio after the sale. With f = D - n it is the positive
// root of
//
//	f*s^2 + reserveIn*(f+D)*s - amountIn*reserveIn*D = 0
//
// evaluated with floor division at every step.
func OptimalSwapAmount(reserveIn, amountIn *big.Int, fee amm.Fee) (*big.Int, error) {
	if err := fee.Validate(); err != nil {
		return nil, err
	}
	if reserveIn == nil || reserveIn.Sign() <= 0 {
		return nil, ErrInsufficientLiquidity
	}
	if amountIn == nil || amountIn.Sign() <= 0 {
		return new(big.Int), nil
	}

	denom := new(big.Int).SetUint64(fee.Denominator)
	kept := new(big.Int).SetUint64(fee.Denominator - fee.Numerator)

	// b = reserveIn * (f + D)
	b := new(big.Int).Add(kept, denom)
	b.Mul(b, reserveIn)

	// disc = b^2 + 4*f*D*amountIn*reserveIn
	disc := new(big.Int).Mul(b, b)
	term := new(big.Int).Mul(big.NewInt(4), kept)
	term.Mul(term, denom)
	term.Mul(term, amountIn)
	term.Mul(term, reserveIn)
	disc.Add(disc, term)

	s := amm.Sqrt(disc)
	s.Sub(s, b)
	s.Div(s, new(big.Int).Mul(big.NewInt(2), kept))
	if s.Sign() < 0 {
		s.SetInt64(0)
	}
	return s, nil
}

// HalfSwapAmount returns floor(amountIn / 2).
func HalfSwapAmount(amountIn *big.Int) *big.Int {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return new(big.Int)
	}
	return new(big.Int).Rsh(amountIn, 1)
}

// Solve builds a zap plan against the given reserves. It never mutates its
// arguments.
func Solve(reserveIn, reserveOut, amountIn *big.Int, fee amm.Fee, strategy Strategy, slippageBps uint16) (*Plan, error) {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, fmt.Errorf("%w: amount must be > 0", ErrInvalidRequest)
	}
	if reserveIn == nil || reserveOut == nil || reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return nil, fmt.Errorf("%w: pool has no reserves", ErrInsufficientLiquidity)
	}

	var (
		toSwap *big.Int
		err    error
	)
	switch strategy {
	case StrategyOptimal, "":
		strategy = StrategyOptimal
		toSwap, err = OptimalSwapAmount(reserveIn, amountIn, fee)
		if err != nil {
			return nil, err
		}
	case StrategyHalf:
		toSwap = HalfSwapAmount(amountIn)
	default:
		return nil, fmt.Errorf("%w: unknown strategy %q", ErrInvalidRequest, strategy)
	}

	if toSwap.Sign() <= 0 || toSwap.Cmp(amountIn) >= 0 {
		return nil, fmt.Errorf("%w: amount %s too small to split", ErrInsufficientLiquidity, amountIn)
	}

	expectedOut, err := amm.GetAmountOut(toSwap, reserveIn, reserveOut, fee)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInsufficientLiquidity, err)
	}
	if expectedOut.Sign() <= 0 {
		return nil, fmt.Errorf("%w: swap of %s yields nothing", ErrInsufficientLiquidity, toSwap)
	}

	return &Plan{
		Strategy:            strategy,
		ReserveIn:           new(big.Int).Set(reserveIn),
		ReserveOut:          new(big.Int).Set(reserveOut),
		AmountToSwap:        toSwap,
		ExpectedAmountOut:   expectedOut,
		MinAmountOut:        amm.ApplySlippage(expectedOut, slippageBps),
		AmountToAddDirectly: new(big.Int).Sub(amountIn, toSwap),
		SlippageBps:         slippageBps,
		FeeBps:              fee.Bps(),
		PriceImpact:         amm.PriceImpact(toSwap, expectedOut, reserveIn, reserveOut),
	}, nil
}
