package zap

import (
	"context"
	"errors"
	"io"
	"math/big"
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-zulfiqar/solana-zap-engine/internal/amm"
	"github.com/aman-zulfiqar/solana-zap-engine/internal/constants"
	"github.com/aman-zulfiqar/solana-zap-engine/internal/ledger"
	"github.com/aman-zulfiqar/solana-zap-engine/internal/models"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*models.ZapEvent
	err    error
}

func (p *recordingPublisher) PublishZap(_ context.Context, ev *models.ZapEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

type fakeGate struct {
	set map[string]bool
	err error
}

func (g *fakeGate) IsSet(_ context.Context, key string) (bool, error) {
	if g.err != nil {
		return false, g.err
	}
	return g.set[key], nil
}

type fixture struct {
	rt      *Runtime
	pub     *recordingPublisher
	gate    *fakeGate
	weth    solana.PublicKey
	partner solana.PublicKey
	pool    *amm.Pair
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// newFixture seeds a 20 WETH / 40 partner pool, the reference setup.
func newFixture(t *testing.T, strategy Strategy) *fixture {
	t.Helper()

	weth, partner := newKey(), newKey()
	pub := &recordingPublisher{}
	gate := &fakeGate{set: map[string]bool{}}

	rt, err := NewRuntime(RuntimeConfig{
		PoolConfigs: []amm.PoolConfig{{
			Name:         "WETH-PARTNER",
			TokenMintA:   weth.String(),
			TokenMintB:   partner.String(),
			SymbolA:      "WETH",
			SymbolB:      "PARTNER",
			DecimalsA:    18,
			DecimalsB:    18,
			SeedReserveA: e18(20).String(),
			SeedReserveB: e18(40).String(),
		}},
		Strategy:   strategy,
		Gate:       gate,
		Publishers: []Publisher{pub},
		Logger:     quietLogger(),
	})
	require.NoError(t, err)

	pool, err := rt.Registry.FindPoolByName("WETH-PARTNER")
	require.NoError(t, err)

	return &fixture{rt: rt, pub: pub, gate: gate, weth: weth, partner: partner, pool: pool}
}

// fund gives caller amount of asset and approves the zap account for it.
func (f *fixture) fund(t *testing.T, caller, asset solana.PublicKey, amount *big.Int) {
	t.Helper()
	require.NoError(t, f.rt.Ledger.Deposit(caller, asset, amount))
	require.NoError(t, f.rt.Ledger.Approve(caller, f.rt.Account, asset, amount))
}

func (f *fixture) request(caller solana.PublicKey, amount *big.Int) Request {
	return Request{
		Caller:           caller,
		InputAsset:       f.weth,
		Pool:             f.pool.Address(),
		Amount:           amount,
		TransferResidual: true,
	}
}

func (f *fixture) reserves() (weth, partner *big.Int) {
	snap := f.pool.Snapshot()
	return snap.GetReserves(f.pool.Asset0().Equals(f.weth))
}

// assertPoolBacked checks that the pool's custody balances equal its reserves.
func (f *fixture) assertPoolBacked(t *testing.T) {
	t.Helper()
	rWeth, rPartner := f.reserves()
	assert.Equal(t, rWeth.String(), f.rt.Ledger.BalanceOf(f.pool.Address(), f.weth).String())
	assert.Equal(t, rPartner.String(), f.rt.Ledger.BalanceOf(f.pool.Address(), f.partner).String())
}

// assertUntouched checks that a failed zap left no trace.
func (f *fixture) assertUntouched(t *testing.T, caller solana.PublicKey, balance, allowance *big.Int) {
	t.Helper()
	rWeth, rPartner := f.reserves()
	assert.Equal(t, e18(20).String(), rWeth.String())
	assert.Equal(t, e18(40).String(), rPartner.String())
	assert.Equal(t, "28284271247461900976", f.pool.Snapshot().TotalSupply.String())
	assert.Equal(t, "0", f.pool.BalanceOf(caller).String())
	assert.Equal(t, balance.String(), f.rt.Ledger.BalanceOf(caller, f.weth).String())
	assert.Equal(t, allowance.String(), f.rt.Ledger.Allowance(caller, f.rt.Account, f.weth).String())
	assert.Equal(t, 0, f.rt.Ledger.ActiveHolds())
	assert.Equal(t, 0, f.pub.count())
	f.assertPoolBacked(t)
}

func TestEngine_ZapHalfMatchesReference(t *testing.T) {
	f := newFixture(t, StrategyHalf)
	caller := newKey()
	f.fund(t, caller, f.weth, e18(1))

	res, err := f.rt.Engine.Zap(context.Background(), f.request(caller, e18(1)))
	require.NoError(t, err)

	assert.Equal(t, "689860274328339047", res.LPSharesMinted.String())
	assert.Equal(t, "500000000000000000", res.Plan.AmountToSwap.String())
	assert.Equal(t, "972754103958826255", res.AmountOut.String())
	assert.Equal(t, "951884046244906676", res.Deposit.AmountOut.String())
	assert.Equal(t, "0", res.Deposit.ResidualIn.String())
	assert.Equal(t, "20870057713919579", res.Deposit.ResidualOut.String())

	assert.Equal(t, res.LPSharesMinted.String(), f.pool.BalanceOf(caller).String())
	assert.Equal(t, "0", f.rt.Ledger.BalanceOf(caller, f.weth).String())
	assert.Equal(t, "20870057713919579", f.rt.Ledger.BalanceOf(caller, f.partner).String())
	assert.Equal(t, "0", f.rt.Ledger.Allowance(caller, f.rt.Account, f.weth).String())

	rWeth, rPartner := f.reserves()
	assert.Equal(t, "21000000000000000000", rWeth.String())
	assert.Equal(t, "39979129942286080421", rPartner.String())
	assert.Equal(t, "28974131521790240023", f.pool.Snapshot().TotalSupply.String())
	f.assertPoolBacked(t)
}

func TestEngine_ZapOptimalLeavesNoResidual(t *testing.T) {
	f := newFixture(t, StrategyOptimal)
	caller := newKey()
	f.fund(t, caller, f.weth, e18(1))

	res, err := f.rt.Engine.Zap(context.Background(), f.request(caller, e18(1)))
	require.NoError(t, err)

	assert.Equal(t, "697432966569580442", res.LPSharesMinted.String())
	assert.Equal(t, "494643510616249782", res.Plan.AmountToSwap.String())
	assert.Equal(t, "505356489383750218", res.Deposit.AmountIn.String())
	assert.Equal(t, "962583789302381367", res.Deposit.AmountOut.String())
	assert.Equal(t, "0", res.Deposit.ResidualIn.String())
	assert.Equal(t, "0", res.Deposit.ResidualOut.String())

	rWeth, rPartner := f.reserves()
	assert.Equal(t, "21000000000000000000", rWeth.String())
	assert.Equal(t, "40000000000000000000", rPartner.String())
	assert.Equal(t, "28981704214031481418", res.Pool.TotalSupply.String())

	assert.Equal(t, "0", f.rt.Ledger.BalanceOf(caller, f.weth).String())
	assert.Equal(t, "0", f.rt.Ledger.BalanceOf(caller, f.partner).String())
	f.assertPoolBacked(t)
}

func TestEngine_ZapFromOtherSide(t *testing.T) {
	f := newFixture(t, StrategyOptimal)
	caller := newKey()
	f.fund(t, caller, f.partner, e18(2))

	req := f.request(caller, e18(2))
	req.InputAsset = f.partner

	res, err := f.rt.Engine.Zap(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "697432966569580441", res.LPSharesMinted.String())
	assert.Equal(t, "989287021232499564", res.Plan.AmountToSwap.String())
	f.assertPoolBacked(t)
}

func TestEngine_ResidualStaysWithAccount(t *testing.T) {
	f := newFixture(t, StrategyHalf)
	caller := newKey()
	f.fund(t, caller, f.weth, e18(1))

	req := f.request(caller, e18(1))
	req.TransferResidual = false

	res, err := f.rt.Engine.Zap(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, res.Event.TransferResidual)

	assert.Equal(t, "0", f.rt.Ledger.BalanceOf(caller, f.partner).String())
	assert.Equal(t, "20870057713919579", f.rt.Ledger.BalanceOf(f.rt.Account, f.partner).String())
	assert.Equal(t, "0", f.rt.Ledger.BalanceOf(f.rt.Account, f.weth).String())
	f.assertPoolBacked(t)
}

func TestEngine_EmitsOneEvent(t *testing.T) {
	f := newFixture(t, StrategyHalf)
	caller := newKey()
	f.fund(t, caller, f.weth, e18(1))

	res, err := f.rt.Engine.Zap(context.Background(), f.request(caller, e18(1)))
	require.NoError(t, err)

	require.Equal(t, 1, f.pub.count())
	ev := f.pub.events[0]
	assert.Same(t, res.Event, ev)
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, res.ID, ev.ID)
	assert.Equal(t, caller.String(), ev.Caller)
	assert.Equal(t, f.pool.Address().String(), ev.Pool)
	assert.Equal(t, "WETH-PARTNER", ev.PoolName)
	assert.Equal(t, f.weth.String(), ev.InputAsset)
	assert.Equal(t, "WETH", ev.InputSymbol)
	assert.Equal(t, "PARTNER", ev.OutputSymbol)
	assert.Equal(t, e18(1).String(), ev.InputAmount.String())
	assert.Equal(t, "689860274328339047", ev.LPSharesMinted.String())
	assert.Equal(t, "21000000000000000000", ev.ReserveIn.String())
	assert.Equal(t, string(StrategyHalf), ev.Strategy)
	assert.Equal(t, uint16(30), ev.FeeBps)
}

func TestEngine_PublishFailureDoesNotUndoZap(t *testing.T) {
	f := newFixture(t, StrategyHalf)
	f.pub.err = errors.New("redis down")
	caller := newKey()
	f.fund(t, caller, f.weth, e18(1))

	res, err := f.rt.Engine.Zap(context.Background(), f.request(caller, e18(1)))
	require.NoError(t, err)
	assert.Equal(t, res.LPSharesMinted.String(), f.pool.BalanceOf(caller).String())
	assert.Equal(t, 1, f.pub.count())
}

func TestEngine_FreshPoolIsInsufficientLiquidity(t *testing.T) {
	f := newFixture(t, StrategyHalf)
	tokenA, tokenB := newKey(), newKey()
	fresh, err := f.rt.CreatePool(tokenA, tokenB, amm.Fee{})
	require.NoError(t, err)

	caller := newKey()
	f.fund(t, caller, tokenA, e18(1))

	res, err := f.rt.Engine.Zap(context.Background(), Request{
		Caller:     caller,
		InputAsset: tokenA,
		Pool:       fresh.Address(),
		Amount:     e18(1),
	})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrInsufficientLiquidity)
	assert.Equal(t, "INSUFFICIENT_LIQUIDITY", Kind(err))

	snap := fresh.Snapshot()
	assert.Equal(t, "0", snap.Reserve0.String())
	assert.Equal(t, "0", snap.Reserve1.String())
	assert.Equal(t, "0", snap.TotalSupply.String())
	assert.Equal(t, "0", fresh.BalanceOf(caller).String())
	assert.Equal(t, e18(1).String(), f.rt.Ledger.BalanceOf(caller, tokenA).String())
	assert.Equal(t, 0, f.rt.Ledger.ActiveHolds())
	assert.Equal(t, 0, f.pub.count())
}

func TestEngine_DustIsInsufficientLiquidity(t *testing.T) {
	for _, amount := range []int64{1, 2} {
		f := newFixture(t, StrategyOptimal)
		caller := newKey()
		f.fund(t, caller, f.weth, big.NewInt(amount))

		_, err := f.rt.Engine.Zap(context.Background(), f.request(caller, big.NewInt(amount)))
		assert.ErrorIs(t, err, ErrInsufficientLiquidity, "amount %d", amount)
		f.assertUntouched(t, caller, big.NewInt(amount), big.NewInt(amount))
	}
}

func TestEngine_InvalidRequests(t *testing.T) {
	f := newFixture(t, StrategyHalf)
	caller := newKey()
	f.fund(t, caller, f.weth, e18(1))

	stranger := newKey()
	f.fund(t, caller, stranger, e18(1))

	tooMuch := uint16(constants.MaxSlippageBps + 1)

	tests := []struct {
		name   string
		mutate func(*Request)
	}{
		{"zero caller", func(r *Request) { r.Caller = solana.PublicKey{} }},
		{"zero asset", func(r *Request) { r.InputAsset = solana.PublicKey{} }},
		{"zero pool", func(r *Request) { r.Pool = solana.PublicKey{} }},
		{"nil amount", func(r *Request) { r.Amount = nil }},
		{"zero amount", func(r *Request) { r.Amount = big.NewInt(0) }},
		{"negative amount", func(r *Request) { r.Amount = big.NewInt(-1) }},
		{"negative min shares", func(r *Request) { r.MinShares = big.NewInt(-1) }},
		{"slippage above max", func(r *Request) { r.SlippageBps = &tooMuch }},
		{"unknown pool", func(r *Request) { r.Pool = newKey() }},
		{"asset not in pool", func(r *Request) { r.InputAsset = stranger }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := f.request(caller, e18(1))
			tt.mutate(&req)

			res, err := f.rt.Engine.Zap(context.Background(), req)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, ErrInvalidRequest)
			assert.Equal(t, KindInvalidRequest, Kind(err))
		})
	}

	f.assertUntouched(t, caller, e18(1), e18(1))
}

func TestEngine_CustodyShortfall(t *testing.T) {
	f := newFixture(t, StrategyHalf)

	broke := newKey()
	_, err := f.rt.Engine.Zap(context.Background(), f.request(broke, e18(1)))
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)

	unapproved := newKey()
	require.NoError(t, f.rt.Ledger.Deposit(unapproved, f.weth, e18(1)))
	_, err = f.rt.Engine.Zap(context.Background(), f.request(unapproved, e18(1)))
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.ErrorIs(t, err, ledger.ErrInsufficientAllowance)

	f.assertUntouched(t, unapproved, e18(1), big.NewInt(0))
}

func TestEngine_MinSharesNotMet(t *testing.T) {
	f := newFixture(t, StrategyHalf)
	caller := newKey()
	f.fund(t, caller, f.weth, e18(1))

	req := f.request(caller, e18(1))
	req.MinShares = bi("689860274328339048")

	res, err := f.rt.Engine.Zap(context.Background(), req)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrSlippageExceeded)
	assert.Equal(t, KindSlippageExceeded, Kind(err))
	f.assertUntouched(t, caller, e18(1), e18(1))

	req.MinShares = bi("689860274328339047")
	res, err = f.rt.Engine.Zap(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "689860274328339047", res.LPSharesMinted.String())
}

func TestEngine_PriceImpactCap(t *testing.T) {
	f := newFixture(t, StrategyOptimal)
	caller := newKey()
	f.fund(t, caller, f.weth, e18(1))

	// The optimal 1 WETH zap swaps ~0.49 WETH at roughly 270 bps of impact.
	f.rt.Engine.maxPriceImpactBps = 100

	_, err := f.rt.Engine.Quote(context.Background(), f.request(caller, e18(1)))
	assert.ErrorIs(t, err, ErrSlippageExceeded)
	assert.ErrorIs(t, err, amm.ErrPriceImpactTooHigh)

	res, err := f.rt.Engine.Zap(context.Background(), f.request(caller, e18(1)))
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrSlippageExceeded)
	assert.Equal(t, KindSlippageExceeded, Kind(err))
	f.assertUntouched(t, caller, e18(1), e18(1))
	assert.Equal(t, 0, f.rt.Ledger.ActiveHolds())
	assert.Equal(t, 0, f.pub.count())

	f.rt.Engine.maxPriceImpactBps = 500
	res, err = f.rt.Engine.Zap(context.Background(), f.request(caller, e18(1)))
	require.NoError(t, err)
	assert.Equal(t, "697432966569580442", res.LPSharesMinted.String())
}

func TestRuntime_PassesPriceImpactCap(t *testing.T) {
	rt, err := NewRuntime(RuntimeConfig{MaxPriceImpactBps: 250, Logger: quietLogger()})
	require.NoError(t, err)
	assert.Equal(t, uint16(250), rt.Engine.maxPriceImpactBps)
}

// settleFails is a custody whose settlement always fails after the hold
// has been taken.
type settleFails struct {
	*ledger.Ledger
}

func (settleFails) Settle(*ledger.Hold, []ledger.Transfer) error {
	return errors.New("custody offline")
}

func TestEngine_SettleFailureLeavesNoTrace(t *testing.T) {
	f := newFixture(t, StrategyOptimal)
	caller := newKey()
	f.fund(t, caller, f.weth, e18(1))

	cfg := DefaultEngineConfig()
	cfg.Pools = f.rt.Factory
	cfg.Custody = settleFails{f.rt.Ledger}
	cfg.Account = f.rt.Account
	cfg.Publishers = []Publisher{f.pub}
	cfg.Logger = quietLogger()
	engine, err := NewEngine(cfg)
	require.NoError(t, err)

	res, err := engine.Zap(context.Background(), f.request(caller, e18(1)))
	assert.Nil(t, res)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "custody offline")
	assert.Equal(t, KindInternal, Kind(err))

	f.assertUntouched(t, caller, e18(1), e18(1))
	f.assertPoolBacked(t)
	assert.Equal(t, 0, f.rt.Ledger.ActiveHolds())
	assert.Equal(t, "0", f.rt.Ledger.BalanceOf(f.rt.Account, f.weth).String())
	assert.Equal(t, "0", f.rt.Ledger.BalanceOf(f.rt.Account, f.partner).String())
	assert.Equal(t, 0, f.pub.count())

	// The pool lock was released with the rollback.
	res, err = f.rt.Engine.Zap(context.Background(), f.request(caller, e18(1)))
	require.NoError(t, err)
	assert.Equal(t, "697432966569580442", res.LPSharesMinted.String())
}

func TestEngine_Paused(t *testing.T) {
	f := newFixture(t, StrategyHalf)
	caller := newKey()
	f.fund(t, caller, f.weth, e18(1))

	f.gate.set[constants.FlagZapPaused] = true
	_, err := f.rt.Engine.Zap(context.Background(), f.request(caller, e18(1)))
	assert.ErrorIs(t, err, ErrInvalidRequest)

	f.gate.set[constants.FlagZapPaused] = false
	f.gate.set[constants.FlagZapPaused+"."+f.pool.Address().String()] = true
	_, err = f.rt.Engine.Zap(context.Background(), f.request(caller, e18(1)))
	assert.ErrorIs(t, err, ErrInvalidRequest)

	f.gate.set = map[string]bool{}
	f.gate.err = errors.New("redis down")
	_, err = f.rt.Engine.Zap(context.Background(), f.request(caller, e18(1)))
	assert.Error(t, err)
	assert.Equal(t, KindInternal, Kind(err))

	f.assertUntouched(t, caller, e18(1), e18(1))
}

func TestEngine_CancelledContext(t *testing.T) {
	f := newFixture(t, StrategyHalf)
	caller := newKey()
	f.fund(t, caller, f.weth, e18(1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.rt.Engine.Zap(ctx, f.request(caller, e18(1)))
	assert.ErrorIs(t, err, context.Canceled)
	f.assertUntouched(t, caller, e18(1), e18(1))
}

func TestEngine_QuoteDoesNotMutate(t *testing.T) {
	f := newFixture(t, StrategyOptimal)

	req := f.request(solana.PublicKey{}, e18(1))
	q, err := f.rt.Engine.Quote(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "494643510616249782", q.Plan.AmountToSwap.String())
	assert.Equal(t, "962583789302381367", q.AmountOut.String())
	assert.Equal(t, "697432966569580442", q.Deposit.Shares.String())

	rWeth, rPartner := f.reserves()
	assert.Equal(t, e18(20).String(), rWeth.String())
	assert.Equal(t, e18(40).String(), rPartner.String())
	assert.Equal(t, "0", f.pool.BalanceOf(f.rt.Account).String())

	_, err = f.rt.Engine.Quote(context.Background(), f.request(newKey(), big.NewInt(0)))
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestEngine_ConcurrentZaps(t *testing.T) {
	f := newFixture(t, StrategyOptimal)

	const callers = 16
	keys := make([]solana.PublicKey, callers)
	for i := range keys {
		keys[i] = newKey()
		f.fund(t, keys[i], f.weth, e18(1))
	}

	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for _, caller := range keys {
		wg.Add(1)
		go func(caller solana.PublicKey) {
			defer wg.Done()
			_, err := f.rt.Engine.Zap(context.Background(), f.request(caller, bi("100000000000000000")))
			errs <- err
		}(caller)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, callers, f.pub.count())
	assert.Equal(t, 0, f.rt.Ledger.ActiveHolds())

	// Every share is owned by someone.
	minted := new(big.Int)
	for _, caller := range keys {
		minted.Add(minted, f.pool.BalanceOf(caller))
	}
	minted.Add(minted, f.pool.BalanceOf(f.rt.LPOwner))
	minted.Add(minted, f.pool.BalanceOf(solana.PublicKey{}))
	assert.Equal(t, f.pool.Snapshot().TotalSupply.String(), minted.String())

	rWeth, _ := f.reserves()
	assert.Equal(t, "21600000000000000000", rWeth.String())
	assert.Equal(t, "0", f.rt.Ledger.BalanceOf(f.rt.Account, f.weth).String())
	assert.Equal(t, "0", f.rt.Ledger.BalanceOf(f.rt.Account, f.partner).String())
	f.assertPoolBacked(t)
}

func TestRuntime_SeedPool(t *testing.T) {
	f := newFixture(t, StrategyOptimal)
	tokenA, tokenB := newKey(), newKey()
	pair, err := f.rt.CreatePool(tokenA, tokenB, amm.Fee{Numerator: 1, Denominator: 100})
	require.NoError(t, err)

	shares, err := f.rt.SeedPool(pair.Address(), tokenA, big.NewInt(1000), big.NewInt(2000))
	require.NoError(t, err)
	assert.Equal(t, "414", shares.String())
	assert.Equal(t, "414", pair.BalanceOf(f.rt.LPOwner).String())
	assert.Equal(t, "1000", f.rt.Ledger.BalanceOf(pair.Address(), tokenA).String())
	assert.Equal(t, "2000", f.rt.Ledger.BalanceOf(pair.Address(), tokenB).String())

	_, err = f.rt.SeedPool(pair.Address(), newKey(), big.NewInt(1), big.NewInt(1))
	assert.ErrorIs(t, err, amm.ErrInvalidAsset)

	_, err = f.rt.CreatePool(tokenB, tokenA, amm.Fee{})
	assert.ErrorIs(t, err, amm.ErrPairExists)
}

func TestAccountAddress_Deterministic(t *testing.T) {
	program := solana.MustPublicKeyFromBase58(constants.ZapProgramID)
	a, err := AccountAddress(program)
	require.NoError(t, err)
	b, err := AccountAddress(program)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.False(t, a.IsZero())
}
