package zap

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/gagliardetto/solana-go"

	"github.com/aman-zulfiqar/solana-zap-engine/internal/amm"
)

// ReservesOf reads the reserves of an open pool transaction oriented for a
// swap out of assetIn. aToB reports whether assetIn is the pool's asset0.
func ReservesOf(tx *amm.PairTx, assetIn solana.PublicKey) (reserveIn, reserveOut *big.Int, aToB bool, err error) {
	aToB, err = tx.Pair().Direction(assetIn)
	if err != nil {
		return nil, nil, false, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	reserve0, reserve1 := tx.Reserves()
	if aToB {
		return reserve0, reserve1, true, nil
	}
	return reserve1, reserve0, false, nil
}

// ExecuteSwap sells amountIn of assetIn inside tx and returns the realized
// output. An output below minAmountOut fails with ErrSlippageExceeded.
func ExecuteSwap(tx *amm.PairTx, assetIn solana.PublicKey, amountIn, minAmountOut *big.Int) (*big.Int, error) {
	out, err := tx.Swap(assetIn, amountIn, minAmountOut)
	switch {
	case err == nil:
		return out, nil
	case errors.Is(err, amm.ErrInsufficientOutputAmount):
		return nil, fmt.Errorf("%w: %w", ErrSlippageExceeded, err)
	case errors.Is(err, amm.ErrInsufficientLiquidity), errors.Is(err, amm.ErrInsufficientInputAmount), errors.Is(err, amm.ErrK):
		return nil, fmt.Errorf("%w: %w", ErrInsufficientLiquidity, err)
	case errors.Is(err, amm.ErrInvalidAsset):
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	default:
		return nil, fmt.Errorf("swap: %w", err)
	}
}

// AddLiquidity deposits a balanced amount of (assetIn, counter-asset) at the
// transaction's current ratio, capped by amountIn and amountOut, and mints
// LP shares to recipient. Whatever does not fit is reported as residual.
func AddLiquidity(tx *amm.PairTx, assetIn solana.PublicKey, amountIn, amountOut *big.Int, recipient solana.PublicKey) (*Deposit, error) {
	reserveIn, reserveOut, aToB, err := ReservesOf(tx, assetIn)
	if err != nil {
		return nil, err
	}

	depositIn, depositOut, err := balancedAmounts(amountIn, amountOut, reserveIn, reserveOut)
	if err != nil {
		return nil, err
	}

	amount0, amount1 := depositIn, depositOut
	if !aToB {
		amount0, amount1 = depositOut, depositIn
	}

	shares, err := tx.Mint(amount0, amount1, recipient)
	if err != nil {
		if errors.Is(err, amm.ErrInsufficientLiquidityMinted) || errors.Is(err, amm.ErrInsufficientLiquidity) {
			return nil, fmt.Errorf("%w: %w", ErrInsufficientLiquidity, err)
		}
		return nil, fmt.Errorf("mint: %w", err)
	}

	return &Deposit{
		AmountIn:    depositIn,
		AmountOut:   depositOut,
		ResidualIn:  new(big.Int).Sub(amountIn, depositIn),
		ResidualOut: new(big.Int).Sub(amountOut, depositOut),
		Shares:      shares,
	}, nil
}

// balancedAmounts picks the largest deposit within the desired amounts that
// matches reserveIn:reserveOut, rounding down on both sides.
func balancedAmounts(desiredIn, desiredOut, reserveIn, reserveOut *big.Int) (*big.Int, *big.Int, error) {
	depositIn := new(big.Int).Set(desiredIn)
	depositOut, err := amm.Quote(depositIn, reserveIn, reserveOut)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInsufficientLiquidity, err)
	}

	if depositOut.Cmp(desiredOut) > 0 {
		depositIn, err = amm.Quote(desiredOut, reserveOut, reserveIn)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %w", ErrInsufficientLiquidity, err)
		}
		if depositIn.Sign() <= 0 {
			return nil, nil, fmt.Errorf("%w: deposit rounds to zero", ErrInsufficientLiquidity)
		}
		depositOut, err = amm.Quote(depositIn, reserveIn, reserveOut)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %w", ErrInsufficientLiquidity, err)
		}
	}

	if depositOut.Sign() <= 0 {
		return nil, nil, fmt.Errorf("%w: deposit rounds to zero", ErrInsufficientLiquidity)
	}
	return depositIn, depositOut, nil
}
