package amm

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// ToRaw converts a human amount such as "1.5" into base units.
// Fractions below one base unit are rejected.
func ToRaw(human string, decimals uint8) (*big.Int, error) {
	d, err := decimal.NewFromString(human)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", human, err)
	}
	shifted := d.Shift(int32(decimals))
	if !shifted.Equal(shifted.Truncate(0)) {
		return nil, fmt.Errorf("amount %q has more than %d decimals", human, decimals)
	}
	return shifted.BigInt(), nil
}

// ToHuman formats base units as a decimal string.
func ToHuman(raw *big.Int, decimals uint8) string {
	if raw == nil {
		return "0"
	}
	return decimal.NewFromBigInt(raw, -int32(decimals)).String()
}

// ToFloat converts base units into a float for metrics and display only.
func ToFloat(raw *big.Int, decimals uint8) float64 {
	if raw == nil {
		return 0
	}
	return decimal.NewFromBigInt(raw, -int32(decimals)).InexactFloat64()
}
