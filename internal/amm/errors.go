package amm

import "errors"

var (
	ErrInsufficientLiquidity       = errors.New("insufficient liquidity")
	ErrInsufficientInputAmount     = errors.New("insufficient input amount")
	ErrInsufficientOutputAmount    = errors.New("insufficient output amount")
	ErrInsufficientAmount          = errors.New("insufficient amount")
	ErrInsufficientLiquidityMinted = errors.New("insufficient liquidity minted")
	ErrK                           = errors.New("constant product invariant violated")
	ErrInvalidFee                  = errors.New("invalid fee")
	ErrInvalidAsset                = errors.New("asset is not part of the pair")
	ErrIdenticalAssets             = errors.New("identical assets")
	ErrZeroAsset                   = errors.New("zero asset address")
	ErrPairExists                  = errors.New("pair already exists")
	ErrPairNotFound                = errors.New("pair not found")
	ErrTxClosed                    = errors.New("pair transaction already closed")
	ErrPriceImpactTooHigh          = errors.New("price impact too high")
)
