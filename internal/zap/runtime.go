package zap

import (
	"fmt"
	"math/big"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-zap-engine/internal/amm"
	"github.com/aman-zulfiqar/solana-zap-engine/internal/constants"
	"github.com/aman-zulfiqar/solana-zap-engine/internal/ledger"
)

// RuntimeConfig describes an in-process zap deployment.
type RuntimeConfig struct {
	ProgramID   solana.PublicKey // zero means constants.ZapProgramID
	DefaultFee  amm.Fee          // zero means amm.DefaultFee
	PoolConfigs []amm.PoolConfig

	Strategy           Strategy
	DefaultSlippageBps uint16
	MaxSlippageBps     uint16
	MaxPriceImpactBps  uint16 // zero disables the cap

	Gate           Gate
	Publishers     []Publisher
	PublishTimeout time.Duration // zero means 3s

	Logger *logrus.Logger
}

// Runtime bundles the pools, the custody ledger and the engine that share
// them.
type Runtime struct {
	Factory  *amm.Factory
	Registry *amm.PoolRegistry
	Ledger   *ledger.Ledger
	Engine   *Engine

	// Account is the zap custody account, derived from the program ID.
	Account solana.PublicKey
	// LPOwner receives the LP shares of seeded liquidity.
	LPOwner solana.PublicKey

	logger *logrus.Logger
}

// AccountAddress derives the zap custody account of programID.
func AccountAddress(programID solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{[]byte("zap")}, programID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive zap account: %w", err)
	}
	return addr, nil
}

// NewRuntime builds the factory, seeds the configured pools into a fresh
// ledger and starts an engine over both.
func NewRuntime(cfg RuntimeConfig) (*Runtime, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.New()
	}

	programID := cfg.ProgramID
	if programID.IsZero() {
		programID = solana.MustPublicKeyFromBase58(constants.ZapProgramID)
	}
	fee := cfg.DefaultFee
	if fee.Denominator == 0 {
		fee = amm.DefaultFee
	}

	factory, err := amm.NewFactory(programID, fee)
	if err != nil {
		return nil, err
	}

	account, err := AccountAddress(programID)
	if err != nil {
		return nil, err
	}

	lpOwner := solana.MustPublicKeyFromBase58(constants.IncineratorAddress)
	book := ledger.New(logger)

	registry, err := amm.NewPoolRegistry(factory, cfg.PoolConfigs, lpOwner, book)
	if err != nil {
		return nil, fmt.Errorf("load pools: %w", err)
	}

	engineCfg := DefaultEngineConfig()
	engineCfg.Pools = factory
	engineCfg.Custody = book
	engineCfg.Account = account
	engineCfg.Gate = cfg.Gate
	engineCfg.Publishers = cfg.Publishers
	if cfg.PublishTimeout > 0 {
		engineCfg.PublishTimeout = cfg.PublishTimeout
	}
	engineCfg.Logger = logger
	if cfg.Strategy != "" {
		engineCfg.Strategy = cfg.Strategy
	}
	if cfg.MaxSlippageBps != 0 {
		engineCfg.MaxSlippageBps = cfg.MaxSlippageBps
	}
	engineCfg.MaxPriceImpactBps = cfg.MaxPriceImpactBps
	if cfg.DefaultSlippageBps != 0 {
		engineCfg.DefaultSlippageBps = cfg.DefaultSlippageBps
	}

	engine, err := NewEngine(engineCfg)
	if err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"program":  programID.String(),
		"account":  account.String(),
		"pools":    registry.PoolCount(),
		"strategy": engine.Strategy(),
	}).Info("zap runtime ready")

	return &Runtime{
		Factory:  factory,
		Registry: registry,
		Ledger:   book,
		Engine:   engine,
		Account:  account,
		LPOwner:  lpOwner,
		logger:   logger,
	}, nil
}

// CreatePool adds an empty pair for assets a and b. fee may be zero to use
// the factory default.
func (rt *Runtime) CreatePool(a, b solana.PublicKey, fee amm.Fee) (*amm.Pair, error) {
	var (
		pair *amm.Pair
		err  error
	)
	if fee.Denominator == 0 {
		pair, err = rt.Factory.CreatePair(a, b)
	} else {
		pair, err = rt.Factory.CreatePairWithFee(a, b, fee)
	}
	if err != nil {
		return nil, err
	}

	meta := amm.PoolMeta{
		Symbol0: constants.Symbol(pair.Asset0().String()),
		Symbol1: constants.Symbol(pair.Asset1().String()),
	}
	if info, ok := rt.Registry.AssetInfo(pair.Asset0()); ok {
		meta.Symbol0, meta.Decimals0 = info.Symbol, info.Decimals
	}
	if info, ok := rt.Registry.AssetInfo(pair.Asset1()); ok {
		meta.Symbol1, meta.Decimals1 = info.Symbol, info.Decimals
	}
	meta.Name = meta.Symbol0 + "-" + meta.Symbol1
	pair.SetMeta(meta)

	rt.logger.WithFields(logrus.Fields{
		"pool":   pair.Address().String(),
		"asset0": pair.Asset0().String(),
		"asset1": pair.Asset1().String(),
	}).Info("pool created")
	return pair, nil
}

// SeedPool adds liquidity owned by LPOwner and funds the pool's custody
// account with the same amounts. amountA is denominated in assetA.
func (rt *Runtime) SeedPool(pool, assetA solana.PublicKey, amountA, amountB *big.Int) (*big.Int, error) {
	pair, err := rt.Factory.PairByAddress(pool)
	if err != nil {
		return nil, err
	}
	if !pair.Contains(assetA) {
		return nil, fmt.Errorf("%w: %s", amm.ErrInvalidAsset, assetA)
	}

	amount0, amount1 := amountA, amountB
	if !pair.Asset0().Equals(assetA) {
		amount0, amount1 = amountB, amountA
	}

	shares, err := amm.SeedPair(pair, amount0, amount1, rt.LPOwner, rt.Ledger)
	if err != nil {
		return nil, err
	}

	rt.logger.WithFields(logrus.Fields{
		"pool":    pool.String(),
		"amount0": amount0.String(),
		"amount1": amount1.String(),
		"shares":  shares.String(),
	}).Info("pool seeded")
	return shares, nil
}
