package server

import (
	"time"

	"github.com/aman-zulfiqar/solana-zap-engine/internal/amm"
	"github.com/aman-zulfiqar/solana-zap-engine/internal/flags"
	"github.com/aman-zulfiqar/solana-zap-engine/internal/zap"
)

// Amounts travel as base-10 strings of base units so they never lose
// precision in JSON.

// ErrorResponse represents a standardized error response format
type ErrorResponse struct {
	Error   string `json:"error"`             // Human-readable error message
	Code    int    `json:"code"`              // HTTP status code
	Kind    string `json:"kind,omitempty"`    // Zap error kind, e.g. INSUFFICIENT_LIQUIDITY
	Details any    `json:"details,omitempty"` // Additional error details (dev mode only)
}

// HealthResponse represents the health check response
type HealthResponse struct {
	OK     bool            `json:"ok"`               // Service health status
	Pools  int             `json:"pools"`            // Number of pools in the factory
	Checks map[string]bool `json:"checks,omitempty"` // Reachability of optional backends
}

// PoolResponse describes a pool and its committed state
type PoolResponse struct {
	Address     string    `json:"address"`          // Pair address derived from the program
	Name        string    `json:"name"`             // e.g. "SOL-USDC"
	Asset0      string    `json:"asset0"`           // Lower-sorted mint
	Asset1      string    `json:"asset1"`           // Higher-sorted mint
	Symbol0     string    `json:"symbol0"`          // Symbol of asset0
	Symbol1     string    `json:"symbol1"`          // Symbol of asset1
	Decimals0   uint8     `json:"decimals0"`        // Decimals of asset0
	Decimals1   uint8     `json:"decimals1"`        // Decimals of asset1
	Reserve0    string    `json:"reserve0"`         // Raw reserve of asset0
	Reserve1    string    `json:"reserve1"`         // Raw reserve of asset1
	TotalSupply string    `json:"total_supply"`     // LP shares outstanding
	FeeBps      uint16    `json:"fee_bps"`          // Swap fee in basis points
	Fee         string    `json:"fee"`              // Swap fee as a fraction, e.g. "3/1000"
	UpdatedAt   time.Time `json:"updated_at"`       // Last committed change
	Paused      *bool     `json:"paused,omitempty"` // Pause switch, omitted without a flag store
}

// PoolCreateRequest represents a request to create an empty pool
type PoolCreateRequest struct {
	AssetA         string `json:"asset_a"`         // Mint of the first asset
	AssetB         string `json:"asset_b"`         // Mint of the second asset
	FeeNumerator   uint64 `json:"fee_numerator"`   // Optional, zero uses the factory default
	FeeDenominator uint64 `json:"fee_denominator"` // Optional, zero uses the factory default
}

// PoolSeedRequest represents a request to add seed liquidity (dev mode only)
type PoolSeedRequest struct {
	Asset   string `json:"asset"`    // Mint or symbol AmountA is denominated in
	AmountA string `json:"amount_a"` // Raw amount of Asset
	AmountB string `json:"amount_b"` // Raw amount of the other pool asset
}

// PoolSeedResponse reports the LP shares minted by a seed
type PoolSeedResponse struct {
	Pool   PoolResponse `json:"pool"`
	Shares string       `json:"shares"`
}

// PauseResponse is returned when a pool is paused or resumed
type PauseResponse struct {
	Pool   string           `json:"pool"`
	Flag   *flags.Flag      `json:"flag"`
	State  flags.PauseState `json:"state"`
	Paused bool             `json:"paused"`
}

// ZapRequest represents a single-asset zap
type ZapRequest struct {
	Caller           string  `json:"caller"`                 // Account funding the zap
	InputAsset       string  `json:"input_asset"`            // Mint or symbol of the asset supplied
	Pool             string  `json:"pool"`                   // Target pool address
	Amount           string  `json:"amount"`                 // Raw input amount
	TransferResidual bool    `json:"transfer_residual"`      // Return dust to the caller
	SlippageBps      *uint16 `json:"slippage_bps,omitempty"` // Optional swap tolerance override
	MinShares        string  `json:"min_shares,omitempty"`   // Optional minimum LP shares
}

// PlanResponse is the solver output
type PlanResponse struct {
	Strategy            string  `json:"strategy"`
	ReserveIn           string  `json:"reserve_in"`
	ReserveOut          string  `json:"reserve_out"`
	AmountToSwap        string  `json:"amount_to_swap"`
	ExpectedAmountOut   string  `json:"expected_amount_out"`
	MinAmountOut        string  `json:"min_amount_out"`
	AmountToAddDirectly string  `json:"amount_to_add_directly"`
	SlippageBps         uint16  `json:"slippage_bps"`
	FeeBps              uint16  `json:"fee_bps"`
	PriceImpact         float64 `json:"price_impact"`
}

// DepositResponse is what the minter added to the pool
type DepositResponse struct {
	AmountIn    string `json:"amount_in"`
	AmountOut   string `json:"amount_out"`
	ResidualIn  string `json:"residual_in"`
	ResidualOut string `json:"residual_out"`
	Shares      string `json:"shares"`
}

// QuoteResponse represents a simulated zap
type QuoteResponse struct {
	Plan      PlanResponse    `json:"plan"`
	AmountOut string          `json:"amount_out"`
	Deposit   DepositResponse `json:"deposit"`
}

// ZapResponse represents a committed zap
type ZapResponse struct {
	ID             string          `json:"id"`
	Plan           PlanResponse    `json:"plan"`
	AmountOut      string          `json:"amount_out"`
	Deposit        DepositResponse `json:"deposit"`
	LPSharesMinted string          `json:"lp_shares_minted"`
	Pool           PoolResponse    `json:"pool"`
	TookMs         int64           `json:"took_ms"`
}

// AmountRequest represents a deposit or approval for one asset
type AmountRequest struct {
	Asset  string `json:"asset"`  // Mint
	Amount string `json:"amount"` // Raw amount
}

// BalanceResponse is one asset row of an account
type BalanceResponse struct {
	Asset     string `json:"asset"`
	Symbol    string `json:"symbol"`
	Balance   string `json:"balance"`   // Total balance including held funds
	Available string `json:"available"` // Balance not reserved by an in-flight zap
	Allowance string `json:"allowance"` // Approved to the zap account
}

// AccountResponse lists an account's balances
type AccountResponse struct {
	Owner       string            `json:"owner"`
	ZapAccount  string            `json:"zap_account"`
	Balances    []BalanceResponse `json:"balances"`
	LPPositions map[string]string `json:"lp_positions,omitempty"` // pool address -> shares
}

// FlagUpsertRequest represents a request to create or update a feature flag
type FlagUpsertRequest struct {
	Key   string `json:"key"`   // Flag key (must match regex pattern)
	Value bool   `json:"value"` // Flag value (true/false)
}

// FlagUpdateRequest represents a request to update an existing feature flag
type FlagUpdateRequest struct {
	Value bool `json:"value"` // New flag value
}

// AIAskRequest represents a natural language query request
type AIAskRequest struct {
	Question string `json:"question"` // Natural language question about zap data
	Model    string `json:"model"`    // Optional AI model override
}

// AIAskResponse represents the response from an AI query
type AIAskResponse struct {
	SQL    string `json:"sql"`     // Generated SQL query
	Answer string `json:"answer"`  // Natural language answer
	TookMs int64  `json:"took_ms"` // Execution time in milliseconds
}

func poolResponse(p *amm.Pair) PoolResponse {
	snap := p.Snapshot()
	meta := p.Meta()
	return PoolResponse{
		Address:     snap.Address.String(),
		Name:        meta.Name,
		Asset0:      snap.Asset0.String(),
		Asset1:      snap.Asset1.String(),
		Symbol0:     meta.Symbol0,
		Symbol1:     meta.Symbol1,
		Decimals0:   meta.Decimals0,
		Decimals1:   meta.Decimals1,
		Reserve0:    snap.Reserve0.String(),
		Reserve1:    snap.Reserve1.String(),
		TotalSupply: snap.TotalSupply.String(),
		FeeBps:      snap.Fee.Bps(),
		Fee:         snap.Fee.String(),
		UpdatedAt:   snap.UpdatedAt,
	}
}

func planResponse(p *zap.Plan) PlanResponse {
	return PlanResponse{
		Strategy:            string(p.Strategy),
		ReserveIn:           p.ReserveIn.String(),
		ReserveOut:          p.ReserveOut.String(),
		AmountToSwap:        p.AmountToSwap.String(),
		ExpectedAmountOut:   p.ExpectedAmountOut.String(),
		MinAmountOut:        p.MinAmountOut.String(),
		AmountToAddDirectly: p.AmountToAddDirectly.String(),
		SlippageBps:         p.SlippageBps,
		FeeBps:              p.FeeBps,
		PriceImpact:         p.PriceImpact,
	}
}

func depositResponse(d *zap.Deposit) DepositResponse {
	return DepositResponse{
		AmountIn:    d.AmountIn.String(),
		AmountOut:   d.AmountOut.String(),
		ResidualIn:  d.ResidualIn.String(),
		ResidualOut: d.ResidualOut.String(),
		Shares:      d.Shares.String(),
	}
}
