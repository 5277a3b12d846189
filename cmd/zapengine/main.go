package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"sort"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/aman-zulfiqar/solana-zap-engine/internal/amm"
	"github.com/aman-zulfiqar/solana-zap-engine/internal/config"
	"github.com/aman-zulfiqar/solana-zap-engine/internal/wallet"
	"github.com/aman-zulfiqar/solana-zap-engine/internal/zap"
)

func loadEnv() {
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "../..")
	_ = godotenv.Load(filepath.Join(projectRoot, ".env"))
}

func main() {
	loadEnv()
	cfg := config.Load()

	var (
		mode        string
		poolName    string
		input       string
		amount      string
		strategy    string
		slippageBps uint16
		maxImpact   uint16
		minShares   string
		residual    bool
		keypair     string
		verbose     bool
	)

	pflag.StringVarP(&mode, "mode", "m", "quote", "pools | quote | zap")
	pflag.StringVarP(&poolName, "pool", "p", "SOL-USDC", "pool name or address")
	pflag.StringVarP(&input, "in", "i", "", "input asset symbol or mint (defaults to the pool's first asset)")
	pflag.StringVarP(&amount, "amt", "a", "", "input amount in human units (e.g. 0.1)")
	pflag.StringVar(&strategy, "strategy", cfg.Strategy, "optimal | half")
	pflag.Uint16Var(&slippageBps, "slippage-bps", cfg.DefaultSlippageBps, "slippage tolerance on the swap leg")
	pflag.Uint16Var(&maxImpact, "max-impact-bps", cfg.MaxPriceImpactBps, "reject zaps whose swap leg moves the price more than this (0 = off)")
	pflag.StringVar(&minShares, "min-shares", "", "minimum LP shares in base units")
	pflag.BoolVar(&residual, "return-residual", true, "send leftover dust back to the caller")
	pflag.StringVarP(&keypair, "keypair", "k", os.Getenv("ZAP_CALLER_KEYPAIR"), "caller keypair file (defaults to a throwaway wallet)")
	pflag.BoolVarP(&verbose, "verbose", "v", false, "log runtime events")
	pflag.Parse()

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	if verbose {
		logger.SetLevel(logrus.InfoLevel)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	strat, err := zap.ParseStrategy(strategy)
	if err != nil {
		fail(2, err)
	}

	pools, err := amm.LoadPoolConfigs(cfg.PoolConfigPath)
	if err != nil {
		fail(1, err)
	}

	rtCfg := zap.RuntimeConfig{
		DefaultFee:         amm.Fee{Numerator: cfg.FeeNumerator, Denominator: cfg.FeeDenominator},
		PoolConfigs:        pools,
		Strategy:           strat,
		DefaultSlippageBps: cfg.DefaultSlippageBps,
		MaxSlippageBps:     cfg.MaxSlippageBps,
		MaxPriceImpactBps:  maxImpact,
		Logger:             logger,
	}
	if cfg.ProgramID != "" {
		if rtCfg.ProgramID, err = solana.PublicKeyFromBase58(cfg.ProgramID); err != nil {
			fail(2, fmt.Errorf("invalid ZAP_PROGRAM_ID: %w", err))
		}
	}

	rt, err := zap.NewRuntime(rtCfg)
	if err != nil {
		fail(1, fmt.Errorf("failed to init zap runtime: %w", err))
	}

	switch mode {
	case "pools":
		printPools(rt)
		return
	case "quote", "zap":
	default:
		fail(2, fmt.Errorf("invalid --mode %q (use pools|quote|zap)", mode))
	}

	if amount == "" {
		fail(2, fmt.Errorf("missing --amt"))
	}

	pair, err := findPool(rt, poolName)
	if err != nil {
		fail(1, err)
	}
	meta := pair.Meta()

	assetIn, decimalsIn, err := resolveInput(rt, pair, input)
	if err != nil {
		fail(2, err)
	}
	raw, err := amm.ToRaw(amount, decimalsIn)
	if err != nil {
		fail(2, err)
	}

	// Each run starts from a fresh ledger, so the caller is funded with
	// exactly the zap amount.
	signer := wallet.Ephemeral()
	if keypair != "" {
		if signer, err = wallet.LoadKeypairFile(keypair); err != nil {
			fail(2, err)
		}
	}
	caller := signer.PublicKey()
	slip := slippageBps
	req := zap.Request{
		Caller:           caller,
		InputAsset:       assetIn,
		Pool:             pair.Address(),
		Amount:           raw,
		TransferResidual: residual,
		SlippageBps:      &slip,
		RequestedAt:      time.Now(),
	}
	if minShares != "" {
		v, ok := new(big.Int).SetString(minShares, 10)
		if !ok {
			fail(2, fmt.Errorf("invalid --min-shares %q", minShares))
		}
		req.MinShares = v
	}

	if mode == "quote" {
		q, err := rt.Engine.Quote(ctx, req)
		if err != nil {
			fail(1, fmt.Errorf("quote failed [%s]: %w", zap.Kind(err), err))
		}
		fmt.Printf("pool=%s strategy=%s amount_in=%s swap=%s expected_out=%s min_out=%s direct=%s\n",
			meta.Name, q.Plan.Strategy, raw, q.Plan.AmountToSwap, q.Plan.ExpectedAmountOut,
			q.Plan.MinAmountOut, q.Plan.AmountToAddDirectly)
		fmt.Printf("lp_shares=%s residual_in=%s residual_out=%s fee_bps=%d price_impact=%.4f\n",
			q.Deposit.Shares, q.Deposit.ResidualIn, q.Deposit.ResidualOut, q.Plan.FeeBps, q.Plan.PriceImpact)
		return
	}

	if err := rt.Ledger.Deposit(caller, assetIn, raw); err != nil {
		fail(1, err)
	}
	if err := rt.Ledger.Approve(caller, rt.Account, assetIn, raw); err != nil {
		fail(1, err)
	}

	res, err := rt.Engine.Zap(ctx, req)
	if err != nil {
		fail(1, fmt.Errorf("zap failed [%s]: %w", zap.Kind(err), err))
	}
	fmt.Printf("id=%s pool=%s caller=%s lp_shares=%s duration=%s\n",
		res.ID, meta.Name, caller, res.LPSharesMinted, res.Duration)
	fmt.Printf("swapped=%s out=%s deposit_in=%s deposit_out=%s residual_in=%s residual_out=%s\n",
		res.Plan.AmountToSwap, res.AmountOut, res.Deposit.AmountIn, res.Deposit.AmountOut,
		res.Deposit.ResidualIn, res.Deposit.ResidualOut)
	fmt.Printf("reserve0=%s reserve1=%s total_supply=%s\n",
		res.Pool.Reserve0, res.Pool.Reserve1, res.Pool.TotalSupply)
}

func fail(code int, err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(code)
}

func printPools(rt *zap.Runtime) {
	pairs := append([]*amm.Pair(nil), rt.Registry.GetAllPools()...)
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Meta().Name < pairs[j].Meta().Name })
	for _, p := range pairs {
		meta := p.Meta()
		snap := p.Snapshot()
		fmt.Printf("%-12s %s fee=%s %s %s / %s %s supply=%s\n",
			meta.Name, p.Address(), p.Fee(),
			amm.ToHuman(snap.Reserve0, meta.Decimals0), meta.Symbol0,
			amm.ToHuman(snap.Reserve1, meta.Decimals1), meta.Symbol1,
			snap.TotalSupply)
	}
}

func findPool(rt *zap.Runtime, ref string) (*amm.Pair, error) {
	if addr, err := solana.PublicKeyFromBase58(ref); err == nil {
		return rt.Registry.FindPoolByAddress(addr)
	}
	return rt.Registry.FindPoolByName(ref)
}

// resolveInput maps a symbol or mint onto one of the pair's assets.
func resolveInput(rt *zap.Runtime, pair *amm.Pair, ref string) (solana.PublicKey, uint8, error) {
	meta := pair.Meta()
	switch ref {
	case "", meta.Symbol0, pair.Asset0().String():
		return pair.Asset0(), meta.Decimals0, nil
	case meta.Symbol1, pair.Asset1().String():
		return pair.Asset1(), meta.Decimals1, nil
	}
	info, ok := rt.Registry.FindAssetBySymbol(ref)
	if !ok {
		if addr, err := solana.PublicKeyFromBase58(ref); err == nil {
			info, ok = rt.Registry.AssetInfo(addr)
		}
	}
	if ok && pair.Contains(info.Mint) {
		return info.Mint, info.Decimals, nil
	}
	return solana.PublicKey{}, 0, fmt.Errorf("%s is not an asset of %s", ref, meta.Name)
}
