// ============================================================================
// models/zap.go
// ============================================================================
package models

import (
	"math/big"
	"time"
)

// ZapEvent is emitted once for every committed zap.
type ZapEvent struct {
	ID               string    `json:"id"`
	Timestamp        time.Time `json:"timestamp"`
	Caller           string    `json:"caller"`
	Pool             string    `json:"pool"`
	PoolName         string    `json:"pool_name,omitempty"`
	InputAsset       string    `json:"input_asset"`
	OutputAsset      string    `json:"output_asset"`
	InputSymbol      string    `json:"input_symbol,omitempty"`
	OutputSymbol     string    `json:"output_symbol,omitempty"`
	InputDecimals    uint8     `json:"input_decimals"`
	OutputDecimals   uint8     `json:"output_decimals"`
	InputAmount      *big.Int  `json:"input_amount"`
	AmountSwapped    *big.Int  `json:"amount_swapped"`
	AmountOut        *big.Int  `json:"amount_out"`
	DepositIn        *big.Int  `json:"deposit_in"`
	DepositOut       *big.Int  `json:"deposit_out"`
	ResidualIn       *big.Int  `json:"residual_in"`
	ResidualOut      *big.Int  `json:"residual_out"`
	LPSharesMinted   *big.Int  `json:"lp_shares_minted"`
	ReserveIn        *big.Int  `json:"reserve_in"`  // after the zap
	ReserveOut       *big.Int  `json:"reserve_out"` // after the zap
	TotalSupply      *big.Int  `json:"total_supply"`
	TransferResidual bool      `json:"transfer_residual"`
	Strategy         string    `json:"strategy"`
	FeeBps           uint16    `json:"fee_bps"`
}
