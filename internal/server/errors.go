package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/aman-zulfiqar/solana-zap-engine/internal/amm"
	"github.com/aman-zulfiqar/solana-zap-engine/internal/ledger"
	"github.com/aman-zulfiqar/solana-zap-engine/internal/zap"
)

// NotFoundJSON returns a custom HTTP error handler that returns JSON responses
// This ensures all errors (including 404s) have consistent JSON format
func NotFoundJSON() echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		// Don't send response if already committed
		if c.Response().Committed {
			return
		}

		// Handle Echo HTTP errors (like 404, 400, 429 from middleware)
		var he *echo.HTTPError
		if errors.As(err, &he) {
			_ = c.JSON(he.Code, ErrorResponse{
				Error: http.StatusText(he.Code),
				Code:  he.Code,
			})
			return
		}

		// Handle all other errors as internal server error
		_ = c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "internal server error",
			Code:  http.StatusInternalServerError,
		})
	}
}

// zapStatus maps an engine error to its HTTP status
func zapStatus(err error) int {
	switch zap.Kind(err) {
	case zap.KindInvalidRequest:
		if errors.Is(err, amm.ErrPairNotFound) {
			return http.StatusNotFound
		}
		return http.StatusBadRequest
	case zap.KindInsufficientLiquidity, zap.KindSlippageExceeded:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// poolStatus maps factory and ledger errors raised outside the engine
func poolStatus(err error) int {
	switch {
	case errors.Is(err, amm.ErrPairExists):
		return http.StatusConflict
	case errors.Is(err, amm.ErrPairNotFound):
		return http.StatusNotFound
	case errors.Is(err, amm.ErrIdenticalAssets),
		errors.Is(err, amm.ErrZeroAsset),
		errors.Is(err, amm.ErrInvalidFee),
		errors.Is(err, amm.ErrInvalidAsset),
		errors.Is(err, amm.ErrInsufficientInputAmount),
		errors.Is(err, ledger.ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, amm.ErrInsufficientLiquidityMinted):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
