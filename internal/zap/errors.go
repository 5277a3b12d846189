package zap

import "errors"

var (
	ErrInvalidRequest        = errors.New("invalid zap request")
	ErrInsufficientLiquidity = errors.New("INSUFFICIENT_LIQUIDITY")
	ErrSlippageExceeded      = errors.New("slippage exceeded")
)

// Error kinds reported to API and CLI callers.
const (
	KindInvalidRequest        = "INVALID_REQUEST"
	KindInsufficientLiquidity = "INSUFFICIENT_LIQUIDITY"
	KindSlippageExceeded      = "SLIPPAGE_EXCEEDED"
	KindInternal              = "INTERNAL"
)

// Kind classifies err into one of the zap error kinds.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return KindInvalidRequest
	case errors.Is(err, ErrInsufficientLiquidity):
		return KindInsufficientLiquidity
	case errors.Is(err, ErrSlippageExceeded):
		return KindSlippageExceeded
	default:
		return KindInternal
	}
}
