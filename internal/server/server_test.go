package server

import (
	"bytes"
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-zulfiqar/solana-zap-engine/internal/amm"
	"github.com/aman-zulfiqar/solana-zap-engine/internal/models"
	"github.com/aman-zulfiqar/solana-zap-engine/internal/storage"
	"github.com/aman-zulfiqar/solana-zap-engine/internal/storage/memory"
	"github.com/aman-zulfiqar/solana-zap-engine/internal/zap"
)

const testAPIKey = "test-api-key"

type testEnv struct {
	srv     *Server
	rt      *zap.Runtime
	weth    solana.PublicKey
	partner solana.PublicKey
	pool    *amm.Pair
}

func e18(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

func setupServer(t *testing.T, devMode bool) *testEnv {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	weth := solana.NewWallet().PublicKey()
	partner := solana.NewWallet().PublicKey()
	store := memory.NewZapStore()

	rt, err := zap.NewRuntime(zap.RuntimeConfig{
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
		Publishers: []zap.Publisher{storage.StorePublisher{Store: store}},
		Logger:     logger,
	})
	require.NoError(t, err)

	pool, err := rt.Registry.FindPoolByName("WETH-PARTNER")
	require.NoError(t, err)

	srv, err := NewServer(ServerDeps{
		Handlers: &Handlers{Runtime: rt, Store: store, Logger: logger},
		Config:   ServerConfig{Addr: ":0", DevMode: devMode, APIKey: testAPIKey},
	})
	require.NoError(t, err)

	return &testEnv{srv: srv, rt: rt, weth: weth, partner: partner, pool: pool}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", testAPIKey)

	rec := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestNewServer_RequiresRuntime(t *testing.T) {
	_, err := NewServer(ServerDeps{Handlers: &Handlers{}})
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	env := setupServer(t, false)

	rec := env.do(t, http.MethodGet, "/v1/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[HealthResponse](t, rec)
	assert.True(t, resp.OK)
	assert.Equal(t, 1, resp.Pools)
}

func TestAPIKeyRequired(t *testing.T) {
	env := setupServer(t, false)

	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	req.Header.Set("X-API-Key", "wrong")
	rec := httptest.NewRecorder()
	env.srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPools_GetByNameAndAddress(t *testing.T) {
	env := setupServer(t, false)

	byName := decode[PoolResponse](t, env.do(t, http.MethodGet, "/v1/pools/WETH-PARTNER", nil))
	byAddr := decode[PoolResponse](t, env.do(t, http.MethodGet, "/v1/pools/"+env.pool.Address().String(), nil))

	assert.Equal(t, byName, byAddr)
	assert.Equal(t, "28284271247461900976", byName.TotalSupply)
	assert.Equal(t, uint16(30), byName.FeeBps)
	assert.Equal(t, "3/1000", byName.Fee)

	rec := env.do(t, http.MethodGet, "/v1/pools/NOPE-NOPE", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPools_CreateAndConflict(t *testing.T) {
	env := setupServer(t, false)

	body := PoolCreateRequest{AssetA: env.weth.String(), AssetB: solana.NewWallet().PublicKey().String()}
	rec := env.do(t, http.MethodPost, "/v1/pools", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	created := decode[PoolResponse](t, rec)
	assert.Equal(t, "0", created.TotalSupply)
	assert.Contains(t, created.Name, "WETH")

	rec = env.do(t, http.MethodPost, "/v1/pools", body)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, "/v1/pools", PoolCreateRequest{AssetA: env.weth.String(), AssetB: env.weth.String()})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	list := decode[map[string][]PoolResponse](t, env.do(t, http.MethodGet, "/v1/pools", nil))
	assert.Len(t, list["items"], 2)
}

func TestDevOnlyRoutes(t *testing.T) {
	env := setupServer(t, false)
	owner := solana.NewWallet().PublicKey()

	rec := env.do(t, http.MethodPost, "/v1/accounts/"+owner.String()+"/deposit", AmountRequest{Asset: env.weth.String(), Amount: "1"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPost, "/v1/pools/WETH-PARTNER/seed", PoolSeedRequest{Asset: env.weth.String(), AmountA: "1", AmountB: "2"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPoolSeed(t *testing.T) {
	env := setupServer(t, true)
	other := solana.NewWallet().PublicKey()

	created := decode[PoolResponse](t, env.do(t, http.MethodPost, "/v1/pools", PoolCreateRequest{AssetA: env.weth.String(), AssetB: other.String()}))

	rec := env.do(t, http.MethodPost, "/v1/pools/"+created.Address+"/seed", PoolSeedRequest{Asset: "WETH", AmountA: "1000", AmountB: "2000"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[PoolSeedResponse](t, rec)
	assert.Equal(t, "414", resp.Shares)
	assert.Equal(t, "1414", resp.Pool.TotalSupply)

	rec = env.do(t, http.MethodPost, "/v1/pools/"+created.Address+"/seed", PoolSeedRequest{Asset: env.weth.String(), AmountA: "0", AmountB: "2000"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// fund deposits and approves amount of the pool's WETH for owner.
func (e *testEnv) fund(t *testing.T, owner solana.PublicKey, amount *big.Int) {
	t.Helper()
	for _, route := range []string{"deposit", "approve"} {
		rec := e.do(t, http.MethodPost, "/v1/accounts/"+owner.String()+"/"+route, AmountRequest{Asset: e.weth.String(), Amount: amount.String()})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
}

func TestZap_EndToEnd(t *testing.T) {
	env := setupServer(t, true)
	caller := solana.NewWallet().PublicKey()
	env.fund(t, caller, e18(1))

	account := decode[AccountResponse](t, env.do(t, http.MethodGet, "/v1/accounts/"+caller.String()+"?assets="+env.weth.String(), nil))
	require.Len(t, account.Balances, 1)
	assert.Equal(t, e18(1).String(), account.Balances[0].Allowance)
	assert.Equal(t, "WETH", account.Balances[0].Symbol)

	rec := env.do(t, http.MethodPost, "/v1/zap", ZapRequest{
		Caller:           caller.String(),
		InputAsset:       env.weth.String(),
		Pool:             "WETH-PARTNER",
		Amount:           e18(1).String(),
		TransferResidual: true,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[ZapResponse](t, rec)
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, "optimal", resp.Plan.Strategy)
	assert.Equal(t, "494643510616249782", resp.Plan.AmountToSwap)
	assert.Equal(t, "697432966569580442", resp.LPSharesMinted)
	assert.Equal(t, "28981704214031481418", resp.Pool.TotalSupply)

	account = decode[AccountResponse](t, env.do(t, http.MethodGet, "/v1/accounts/"+caller.String(), nil))
	assert.Equal(t, "697432966569580442", account.LPPositions[env.pool.Address().String()])
	for _, b := range account.Balances {
		assert.Equal(t, "0", b.Balance, b.Symbol)
	}

	rec = env.do(t, http.MethodGet, "/v1/zaps/"+resp.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	ev := decode[models.ZapEvent](t, rec)
	assert.Equal(t, caller.String(), ev.Caller)
	assert.Equal(t, "WETH-PARTNER", ev.PoolName)

	history := decode[map[string][]models.ZapEvent](t, env.do(t, http.MethodGet, "/v1/accounts/"+caller.String()+"/zaps", nil))
	assert.Len(t, history["items"], 1)

	rec = env.do(t, http.MethodGet, "/v1/zaps/unknown", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestZapQuote_DoesNotMutate(t *testing.T) {
	env := setupServer(t, false)

	rec := env.do(t, http.MethodGet, "/v1/zap/quote?pool=WETH-PARTNER&input_asset="+env.weth.String()+"&amount="+e18(1).String()+"&slippage_bps=50", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	q := decode[QuoteResponse](t, rec)
	assert.Equal(t, "962583789302381367", q.AmountOut)
	assert.Equal(t, "957770870355869460", q.Plan.MinAmountOut)
	assert.Equal(t, "697432966569580442", q.Deposit.Shares)
	assert.Equal(t, "0", q.Deposit.ResidualIn)

	pool := decode[PoolResponse](t, env.do(t, http.MethodGet, "/v1/pools/WETH-PARTNER", nil))
	assert.Equal(t, "28284271247461900976", pool.TotalSupply)
}

func TestZapQuote_InputAssetBySymbol(t *testing.T) {
	env := setupServer(t, false)

	rec := env.do(t, http.MethodGet, "/v1/zap/quote?pool=WETH-PARTNER&input_asset=weth&amount="+e18(1).String(), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	q := decode[QuoteResponse](t, rec)
	assert.Equal(t, "697432966569580442", q.Deposit.Shares)

	rec = env.do(t, http.MethodGet, "/v1/zap/quote?pool=WETH-PARTNER&input_asset=DOGE&amount=1", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "input_asset")
}

func TestZap_Errors(t *testing.T) {
	env := setupServer(t, true)
	caller := solana.NewWallet().PublicKey()
	env.fund(t, caller, e18(1))

	fresh := decode[PoolResponse](t, env.do(t, http.MethodPost, "/v1/pools", PoolCreateRequest{AssetA: env.weth.String(), AssetB: solana.NewWallet().PublicKey().String()}))

	tests := []struct {
		name     string
		req      ZapRequest
		wantCode int
		wantKind string
	}{
		{"fresh pool", ZapRequest{Caller: caller.String(), InputAsset: env.weth.String(), Pool: fresh.Address, Amount: "1000"}, http.StatusUnprocessableEntity, zap.KindInsufficientLiquidity},
		{"zero amount", ZapRequest{Caller: caller.String(), InputAsset: env.weth.String(), Pool: "WETH-PARTNER", Amount: "0"}, http.StatusBadRequest, zap.KindInvalidRequest},
		{"over allowance", ZapRequest{Caller: caller.String(), InputAsset: env.weth.String(), Pool: "WETH-PARTNER", Amount: e18(2).String()}, http.StatusBadRequest, zap.KindInvalidRequest},
		{"unknown pool", ZapRequest{Caller: caller.String(), InputAsset: env.weth.String(), Pool: solana.NewWallet().PublicKey().String(), Amount: "1000"}, http.StatusNotFound, zap.KindInvalidRequest},
		{"min shares", ZapRequest{Caller: caller.String(), InputAsset: env.weth.String(), Pool: "WETH-PARTNER", Amount: e18(1).String(), MinShares: e18(1).String()}, http.StatusUnprocessableEntity, zap.KindSlippageExceeded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/v1/zap", tt.req)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantKind, decode[ErrorResponse](t, rec).Kind)
		})
	}

	rec := env.do(t, http.MethodPost, "/v1/zap", ZapRequest{Caller: "not-a-key", InputAsset: env.weth.String(), Pool: "WETH-PARTNER", Amount: "1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Nothing above moved funds.
	pool := decode[PoolResponse](t, env.do(t, http.MethodGet, "/v1/pools/WETH-PARTNER", nil))
	assert.Equal(t, "28284271247461900976", pool.TotalSupply)
	assert.Equal(t, e18(1).String(), env.rt.Ledger.BalanceOf(caller, env.weth).String())
}

func TestOptionalBackends(t *testing.T) {
	env := setupServer(t, false)

	assert.Equal(t, http.StatusServiceUnavailable, env.do(t, http.MethodGet, "/v1/zaps/recent", nil).Code)
	assert.Equal(t, http.StatusServiceUnavailable, env.do(t, http.MethodGet, "/v1/zaps/stream", nil).Code)
	assert.Equal(t, http.StatusServiceUnavailable, env.do(t, http.MethodGet, "/v1/flags", nil).Code)
	assert.Equal(t, http.StatusServiceUnavailable, env.do(t, http.MethodPost, "/v1/pools/WETH-PARTNER/pause", nil).Code)
	assert.NotContains(t, env.do(t, http.MethodGet, "/v1/pools/WETH-PARTNER", nil).Body.String(), "paused")
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/v1/ai/ask", AIAskRequest{Question: "how many zaps?"}).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/v1/nope", nil).Code)
}

func TestMatchesStream(t *testing.T) {
	ev := &models.ZapEvent{Pool: "pool-addr", PoolName: "SOL-USDC", Caller: "alice"}

	assert.True(t, matchesStream(ev, "", ""))
	assert.True(t, matchesStream(ev, "pool-addr", "alice"))
	assert.True(t, matchesStream(ev, "SOL-USDC", ""))
	assert.False(t, matchesStream(ev, "other", ""))
	assert.False(t, matchesStream(ev, "", "bob"))
}

func TestSplitCSVQuery(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitCSVQuery([]string{"a, b", " ", "c,"}))
	assert.Nil(t, splitCSVQuery(nil))
}
