package amm

import (
	"fmt"
	"math"
	"math/big"
)

// MinimumLiquidity is locked forever on the first mint of every pair.
const MinimumLiquidity = 1000

// Fee is the swap fee charged on the input amount, expressed as a fraction.
type Fee struct {
	Numerator   uint64 `json:"numerator"`
	Denominator uint64 `json:"denominator"`
}

// DefaultFee is the classic 30 bps constant-product fee.
var DefaultFee = Fee{Numerator: 3, Denominator: 1000}

// Validate checks that the fee is a proper fraction below 100%.
func (f Fee) Validate() error {
	if f.Denominator == 0 {
		return fmt.Errorf("%w: denominator must be > 0", ErrInvalidFee)
	}
	if f.Numerator >= f.Denominator {
		return fmt.Errorf("%w: %d/%d must be below 100%%", ErrInvalidFee, f.Numerator, f.Denominator)
	}
	return nil
}

// Bps converts the fee to basis points, rounding down.
func (f Fee) Bps() uint16 {
	return CalculateFeeBps(f.Numerator, f.Denominator)
}

func (f Fee) String() string {
	return fmt.Sprintf("%d/%d", f.Numerator, f.Denominator)
}

// multipliers returns (D - n, D) as big integers.
func (f Fee) multipliers() (*big.Int, *big.Int) {
	kept := new(big.Int).SetUint64(f.Denominator - f.Numerator)
	denom := new(big.Int).SetUint64(f.Denominator)
	return kept, denom
}

// GetAmountOut computes the output of a constant-product swap with the fee
// applied to the input. All divisions floor, so rounding favours the pool.
//
//	out = in*(D-n)*reserveOut / (reserveIn*D + in*(D-n))
func GetAmountOut(amountIn, reserveIn, reserveOut *big.Int, fee Fee) (*big.Int, error) {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, ErrInsufficientInputAmount
	}
	if reserveIn == nil || reserveOut == nil || reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return nil, ErrInsufficientLiquidity
	}
	if err := fee.Validate(); err != nil {
		return nil, err
	}

	kept, denom := fee.multipliers()

	amountInWithFee := new(big.Int).Mul(amountIn, kept)
	numerator := new(big.Int).Mul(amountInWithFee, reserveOut)
	denominator := new(big.Int).Mul(reserveIn, denom)
	denominator.Add(denominator, amountInWithFee)

	return numerator.Div(numerator, denominator), nil
}

// Quote returns the amount of B that matches amountA at the current pool ratio.
func Quote(amountA, reserveA, reserveB *big.Int) (*big.Int, error) {
	if amountA == nil || amountA.Sign() <= 0 {
		return nil, ErrInsufficientAmount
	}
	if reserveA == nil || reserveB == nil || reserveA.Sign() <= 0 || reserveB.Sign() <= 0 {
		return nil, ErrInsufficientLiquidity
	}
	amountB := new(big.Int).Mul(amountA, reserveB)
	return amountB.Div(amountB, reserveA), nil
}

// Sqrt returns floor(sqrt(x)) and zero for non-positive inputs.
func Sqrt(x *big.Int) *big.Int {
	if x == nil || x.Sign() <= 0 {
		return new(big.Int)
	}
	return new(big.Int).Sqrt(x)
}

// ApplySlippage calculates minimum output with slippage tolerance
// slippageBps: basis points (e.g., 100 = 1%, 50 = 0.5%)
func ApplySlippage(amountOut *big.Int, slippageBps uint16) *big.Int {
	if amountOut == nil || slippageBps >= 10000 {
		return new(big.Int)
	}

	result := new(big.Int).Mul(amountOut, big.NewInt(int64(10000-slippageBps)))
	return result.Div(result, big.NewInt(10000))
}

// PriceImpact compares the execution rate of a swap against the spot rate.
// Returns a fraction, 0.01 = 1%.
func PriceImpact(amountIn, amountOut, reserveIn, reserveOut *big.Int) float64 {
	if amountIn == nil || amountOut == nil || reserveIn == nil || reserveOut == nil {
		return 0
	}
	if amountIn.Sign() <= 0 || reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return 0
	}

	// impact = 1 - (out/in) / (reserveOut/reserveIn) = 1 - out*reserveIn / (in*reserveOut)
	num := new(big.Float).SetInt(new(big.Int).Mul(amountOut, reserveIn))
	den := new(big.Float).SetInt(new(big.Int).Mul(amountIn, reserveOut))
	ratio, _ := new(big.Float).Quo(num, den).Float64()

	return math.Max(0, 1-ratio)
}

// ValidatePriceImpact rejects a swap whose impact is above maxImpactBps.
// Zero disables the check.
func ValidatePriceImpact(priceImpact float64, maxImpactBps uint16) error {
	if maxImpactBps == 0 {
		return nil
	}
	if maxImpact := float64(maxImpactBps) / 10000; priceImpact > maxImpact {
		return fmt.Errorf("%w: %.2f bps > %d bps", ErrPriceImpactTooHigh, priceImpact*10000, maxImpactBps)
	}
	return nil
}

// CalculateFeeBps converts fee numerator/denominator to basis points
func CalculateFeeBps(feeNumerator, feeDenominator uint64) uint16 {
	if feeDenominator == 0 {
		return 0
	}
	return uint16((feeNumerator * 10000) / feeDenominator)
}
