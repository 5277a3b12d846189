package zap

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-zap-engine/internal/amm"
	"github.com/aman-zulfiqar/solana-zap-engine/internal/constants"
	"github.com/aman-zulfiqar/solana-zap-engine/internal/ledger"
	"github.com/aman-zulfiqar/solana-zap-engine/internal/models"
)

// PoolSource resolves pools by address.
type PoolSource interface {
	PairByAddress(addr solana.PublicKey) (*amm.Pair, error)
}

// Custody moves the caller's funds in two phases.
type Custody interface {
	Check(owner, spender, asset solana.PublicKey, amount *big.Int) error
	Hold(owner, spender, asset solana.PublicKey, amount *big.Int) (*ledger.Hold, error)
	Settle(h *ledger.Hold, transfers []ledger.Transfer) error
	Release(h *ledger.Hold) error
}

// Gate reports whether a feature flag is switched on.
type Gate interface {
	IsSet(ctx context.Context, key string) (bool, error)
}

// Publisher receives committed zap events.
type Publisher interface {
	PublishZap(ctx context.Context, ev *models.ZapEvent) error
}

// EngineConfig holds configuration for the zap engine
type EngineConfig struct {
	Pools   PoolSource
	Custody Custody

	// Account is the zap's own custody account: it is the spender the caller
	// approves and keeps residuals when TransferResidual is false.
	Account solana.PublicKey

	Strategy           Strategy
	DefaultSlippageBps uint16
	MaxSlippageBps     uint16
	MaxPriceImpactBps  uint16 // zero disables the cap

	Gate           Gate        // optional pause switch
	Publishers     []Publisher // best-effort event sinks
	PublishTimeout time.Duration

	Logger *logrus.Logger
}

// DefaultEngineConfig returns sensible defaults
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Strategy:           StrategyOptimal,
		DefaultSlippageBps: constants.DefaultSlippageBps,
		MaxSlippageBps:     constants.MaxSlippageBps,
		PublishTimeout:     constants.DefaultPublishTimeout,
	}
}

// Engine turns a single-asset deposit into an LP position in one
// all-or-nothing step. It keeps no state between calls.
type Engine struct {
	pools              PoolSource
	custody            Custody
	account            solana.PublicKey
	strategy           Strategy
	defaultSlippageBps uint16
	maxSlippageBps     uint16
	maxPriceImpactBps  uint16
	gate               Gate
	publishers         []Publisher
	publishTimeout     time.Duration
	logger             *logrus.Logger
}

// NewEngine creates a new zap engine with all dependencies
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Pools == nil {
		return nil, fmt.Errorf("pool source is required")
	}
	if cfg.Custody == nil {
		return nil, fmt.Errorf("custody is required")
	}
	if cfg.Account.IsZero() {
		return nil, fmt.Errorf("zap account is required")
	}
	if cfg.Strategy == "" {
		cfg.Strategy = StrategyOptimal
	}
	if _, err := ParseStrategy(string(cfg.Strategy)); err != nil {
		return nil, err
	}
	if cfg.MaxSlippageBps == 0 || cfg.MaxSlippageBps > 10000 {
		cfg.MaxSlippageBps = 10000
	}
	if cfg.DefaultSlippageBps > cfg.MaxSlippageBps {
		return nil, fmt.Errorf("default slippage %d bps exceeds max %d bps", cfg.DefaultSlippageBps, cfg.MaxSlippageBps)
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 3 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	return &Engine{
		pools:              cfg.Pools,
		custody:            cfg.Custody,
		account:            cfg.Account,
		strategy:           cfg.Strategy,
		defaultSlippageBps: cfg.DefaultSlippageBps,
		maxSlippageBps:     cfg.MaxSlippageBps,
		maxPriceImpactBps:  cfg.MaxPriceImpactBps,
		gate:               cfg.Gate,
		publishers:         cfg.Publishers,
		publishTimeout:     cfg.PublishTimeout,
		logger:             cfg.Logger,
	}, nil
}

func (e *Engine) Account() solana.PublicKey { return e.account }
func (e *Engine) Strategy() Strategy        { return e.strategy }

// Quote is a dry run of a zap: the plan plus the deposit it would make.
type Quote struct {
	Plan      *Plan
	AmountOut *big.Int
	Deposit   *Deposit
}

// Quote simulates a zap against the pool's current state without moving
// funds. The simulation is rolled back before returning.
func (e *Engine) Quote(ctx context.Context, req Request) (*Quote, error) {
	slippage, err := e.validateShape(req)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("quote cancelled: %w", err)
	}

	pair, err := e.resolvePool(req.Pool)
	if err != nil {
		return nil, err
	}

	tx := pair.Begin()
	defer tx.Rollback()

	plan, err := e.plan(tx, req, slippage)
	if err != nil {
		return nil, err
	}
	out, err := ExecuteSwap(tx, req.InputAsset, plan.AmountToSwap, plan.MinAmountOut)
	if err != nil {
		return nil, err
	}
	recipient := req.Caller
	if recipient.IsZero() {
		recipient = e.account
	}
	dep, err := AddLiquidity(tx, req.InputAsset, plan.AmountToAddDirectly, out, recipient)
	if err != nil {
		return nil, err
	}

	return &Quote{Plan: plan, AmountOut: out, Deposit: dep}, nil
}

// Zap executes req. On any error nothing is observable: the pool transaction
// is rolled back and the custody hold is released. Cancellation of ctx is
// honoured only before the pool is locked.
func (e *Engine) Zap(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	slippage, err := e.validate(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("zap cancelled: %w", err)
	}

	pair, err := e.resolvePool(req.Pool)
	if err != nil {
		return nil, err
	}

	tx := pair.Begin()
	defer tx.Rollback()

	plan, err := e.plan(tx, req, slippage)
	if err != nil {
		return nil, err
	}

	hold, err := e.custody.Hold(req.Caller, e.account, req.InputAsset, req.Amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	settled := false
	defer func() {
		if settled {
			return
		}
		if err := e.custody.Release(hold); err != nil {
			e.logger.WithError(err).WithField("hold", hold.ID).Error("failed to release hold")
		}
	}()

	amountOut, err := ExecuteSwap(tx, req.InputAsset, plan.AmountToSwap, plan.MinAmountOut)
	if err != nil {
		return nil, err
	}

	dep, err := AddLiquidity(tx, req.InputAsset, plan.AmountToAddDirectly, amountOut, req.Caller)
	if err != nil {
		return nil, err
	}
	if req.MinShares != nil && dep.Shares.Cmp(req.MinShares) < 0 {
		return nil, fmt.Errorf("%w: minted %s shares, want at least %s", ErrSlippageExceeded, dep.Shares, req.MinShares)
	}

	outputAsset, err := pair.Other(req.InputAsset)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	transfers := e.transfers(req, pair.Address(), outputAsset, plan, amountOut, dep)
	if err := e.custody.Settle(hold, transfers); err != nil {
		return nil, fmt.Errorf("settle custody: %w", err)
	}
	settled = true

	snapshot := tx.Snapshot()
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit pool: %w", err)
	}

	id, err := newZapID()
	if err != nil {
		e.logger.WithError(err).Warn("failed to generate zap id")
	}
	ev := buildEvent(id, req, pair, outputAsset, plan, amountOut, dep, snapshot)

	e.logger.WithFields(logrus.Fields{
		"id":       ev.ID,
		"pool":     ev.Pool,
		"caller":   ev.Caller,
		"input":    ev.InputAmount.String(),
		"swapped":  ev.AmountSwapped.String(),
		"shares":   ev.LPSharesMinted.String(),
		"strategy": ev.Strategy,
	}).Info("zap committed")

	e.publish(ctx, ev)

	return &Result{
		ID:             ev.ID,
		Plan:           plan,
		AmountOut:      amountOut,
		Deposit:        dep,
		LPSharesMinted: dep.Shares,
		Pool:           snapshot,
		Event:          ev,
		Duration:       time.Since(start),
	}, nil
}

// validateShape checks the request fields that need no external lookup.
func (e *Engine) validateShape(req Request) (uint16, error) {
	if req.InputAsset.IsZero() {
		return 0, fmt.Errorf("%w: input asset is required", ErrInvalidRequest)
	}
	if req.Pool.IsZero() {
		return 0, fmt.Errorf("%w: pool is required", ErrInvalidRequest)
	}
	if req.Amount == nil || req.Amount.Sign() <= 0 {
		return 0, fmt.Errorf("%w: amount must be > 0", ErrInvalidRequest)
	}
	if req.MinShares != nil && req.MinShares.Sign() < 0 {
		return 0, fmt.Errorf("%w: min shares must be >= 0", ErrInvalidRequest)
	}

	slippage := e.defaultSlippageBps
	if req.SlippageBps != nil {
		slippage = *req.SlippageBps
	}
	if slippage > e.maxSlippageBps {
		return 0, fmt.Errorf("%w: slippage %d bps exceeds max %d bps", ErrInvalidRequest, slippage, e.maxSlippageBps)
	}
	return slippage, nil
}

func (e *Engine) validate(ctx context.Context, req Request) (uint16, error) {
	slippage, err := e.validateShape(req)
	if err != nil {
		return 0, err
	}
	if req.Caller.IsZero() {
		return 0, fmt.Errorf("%w: caller is required", ErrInvalidRequest)
	}

	if e.gate != nil {
		for _, key := range []string{constants.FlagZapPaused, constants.FlagZapPaused + "." + req.Pool.String()} {
			paused, err := e.gate.IsSet(ctx, key)
			if err != nil {
				return 0, fmt.Errorf("check flag %s: %w", key, err)
			}
			if paused {
				return 0, fmt.Errorf("%w: zaps are paused (%s)", ErrInvalidRequest, key)
			}
		}
	}

	if err := e.custody.Check(req.Caller, e.account, req.InputAsset, req.Amount); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return slippage, nil
}

func (e *Engine) resolvePool(addr solana.PublicKey) (*amm.Pair, error) {
	pair, err := e.pools.PairByAddress(addr)
	if err != nil {
		if errors.Is(err, amm.ErrPairNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		return nil, fmt.Errorf("resolve pool: %w", err)
	}
	return pair, nil
}

func (e *Engine) plan(tx *amm.PairTx, req Request, slippage uint16) (*Plan, error) {
	reserveIn, reserveOut, _, err := ReservesOf(tx, req.InputAsset)
	if err != nil {
		return nil, err
	}
	plan, err := Solve(reserveIn, reserveOut, req.Amount, tx.Pair().Fee(), e.strategy, slippage)
	if err != nil {
		return nil, err
	}
	if err := amm.ValidatePriceImpact(plan.PriceImpact, e.maxPriceImpactBps); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSlippageExceeded, err)
	}
	return plan, nil
}

// transfers lists the custody movements of a zap: caller funds the zap
// account, the account trades and deposits with the pool, then residuals
// either go back to the caller or stay with the account.
func (e *Engine) transfers(req Request, pool, outputAsset solana.PublicKey, plan *Plan, amountOut *big.Int, dep *Deposit) []ledger.Transfer {
	in, out := req.InputAsset, outputAsset
	moves := []ledger.Transfer{
		{From: req.Caller, To: e.account, Asset: in, Amount: req.Amount},
		{From: e.account, To: pool, Asset: in, Amount: plan.AmountToSwap},
		{From: pool, To: e.account, Asset: out, Amount: amountOut},
		{From: e.account, To: pool, Asset: in, Amount: dep.AmountIn},
		{From: e.account, To: pool, Asset: out, Amount: dep.AmountOut},
	}
	if req.TransferResidual {
		if dep.ResidualIn.Sign() > 0 {
			moves = append(moves, ledger.Transfer{From: e.account, To: req.Caller, Asset: in, Amount: dep.ResidualIn})
		}
		if dep.ResidualOut.Sign() > 0 {
			moves = append(moves, ledger.Transfer{From: e.account, To: req.Caller, Asset: out, Amount: dep.ResidualOut})
		}
	}
	return moves
}

// publish hands the event to every sink. Failures are logged only: the zap
// is already committed.
func (e *Engine) publish(ctx context.Context, ev *models.ZapEvent) {
	for _, p := range e.publishers {
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.publishTimeout)
		if err := p.PublishZap(pctx, ev); err != nil {
			e.logger.WithError(err).WithField("id", ev.ID).Warn("failed to publish zap event")
		}
		cancel()
	}
}

func newZapID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("zap-%d", time.Now().UnixNano()), err
	}
	return base58.Encode(b), nil
}

func buildEvent(id string, req Request, pair *amm.Pair, outputAsset solana.PublicKey, plan *Plan, amountOut *big.Int, dep *Deposit, snap *amm.Snapshot) *models.ZapEvent {
	meta := pair.Meta()
	aToB := req.InputAsset.Equals(pair.Asset0())
	reserveIn, reserveOut := snap.GetReserves(aToB)

	ev := &models.ZapEvent{
		ID:               id,
		Timestamp:        time.Now().UTC(),
		Caller:           req.Caller.String(),
		Pool:             pair.Address().String(),
		PoolName:         meta.Name,
		InputAsset:       req.InputAsset.String(),
		OutputAsset:      outputAsset.String(),
		InputAmount:      new(big.Int).Set(req.Amount),
		AmountSwapped:    new(big.Int).Set(plan.AmountToSwap),
		AmountOut:        new(big.Int).Set(amountOut),
		DepositIn:        new(big.Int).Set(dep.AmountIn),
		DepositOut:       new(big.Int).Set(dep.AmountOut),
		ResidualIn:       new(big.Int).Set(dep.ResidualIn),
		ResidualOut:      new(big.Int).Set(dep.ResidualOut),
		LPSharesMinted:   new(big.Int).Set(dep.Shares),
		ReserveIn:        reserveIn,
		ReserveOut:       reserveOut,
		TotalSupply:      snap.TotalSupply,
		TransferResidual: req.TransferResidual,
		Strategy:         string(plan.Strategy),
		FeeBps:           plan.FeeBps,
	}

	if aToB {
		ev.InputSymbol, ev.OutputSymbol = meta.Symbol0, meta.Symbol1
		ev.InputDecimals, ev.OutputDecimals = meta.Decimals0, meta.Decimals1
	} else {
		ev.InputSymbol, ev.OutputSymbol = meta.Symbol1, meta.Symbol0
		ev.InputDecimals, ev.OutputDecimals = meta.Decimals1, meta.Decimals0
	}
	return ev
}
