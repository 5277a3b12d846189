package server

import (
	"math/big"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-zap-engine/internal/amm"
	"github.com/aman-zulfiqar/solana-zap-engine/internal/constants"
	"github.com/aman-zulfiqar/solana-zap-engine/internal/zap"
)

// PoolsList returns every pool known to the factory, sorted by name
func (h *Handlers) PoolsList(c echo.Context) error {
	pairs := h.Runtime.Factory.AllPairs()
	items := make([]PoolResponse, 0, len(pairs))
	for _, p := range pairs {
		items = append(items, poolResponse(p))
	}
	h.fillPauseState(c, items)
	sort.Slice(items, func(i, j int) bool {
		if items[i].Name != items[j].Name {
			return items[i].Name < items[j].Name
		}
		return items[i].Address < items[j].Address
	})
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// PoolGet returns one pool by address or configured name
func (h *Handlers) PoolGet(c echo.Context) error {
	pair, err := h.lookupPool(c.Param("pool"))
	if err != nil {
		return h.err(c, poolStatus(err), "pool not found", map[string]any{"err": err.Error()})
	}
	items := []PoolResponse{poolResponse(pair)}
	h.fillPauseState(c, items)
	return c.JSON(http.StatusOK, items[0])
}

// fillPauseState marks each pool with its pause switch. Flag errors leave
// the field empty rather than failing the read.
func (h *Handlers) fillPauseState(c echo.Context, items []PoolResponse) {
	if h.Flags == nil || len(items) == 0 {
		return
	}
	ctx, cancel := h.withTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	pools := make([]string, len(items))
	for i := range items {
		pools[i] = items[i].Address
	}
	states, err := h.Flags.PauseStates(ctx, pools)
	if err != nil {
		h.Logger.WithError(err).Warn("failed to read pause flags")
		return
	}
	for i := range items {
		paused := states[items[i].Address].Paused()
		items[i].Paused = &paused
	}
}

// PoolPause stops zaps into one pool
func (h *Handlers) PoolPause(c echo.Context) error {
	return h.setPoolPaused(c, true)
}

// PoolResume lets zaps into one pool again. The global switch still applies.
func (h *Handlers) PoolResume(c echo.Context) error {
	return h.setPoolPaused(c, false)
}

func (h *Handlers) setPoolPaused(c echo.Context, paused bool) error {
	pair, err := h.lookupPool(c.Param("pool"))
	if err != nil {
		return h.err(c, poolStatus(err), "pool not found", nil)
	}
	ctx, cancel := h.withTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	pool := pair.Address().String()
	flag, err := h.Flags.SetPaused(ctx, pool, paused)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to update pause flag", map[string]any{"err": err.Error()})
	}
	states, err := h.Flags.PauseStates(ctx, []string{pool})
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to read pause flags", map[string]any{"err": err.Error()})
	}

	h.Logger.WithFields(logrus.Fields{"pool": pool, "paused": paused}).Info("pool pause switch updated")
	state := states[pool]
	return c.JSON(http.StatusOK, PauseResponse{Pool: pool, Flag: flag, State: state, Paused: state.Paused()})
}

func (h *Handlers) lookupPool(ref string) (*amm.Pair, error) {
	ref = strings.TrimSpace(ref)
	if addr, err := solana.PublicKeyFromBase58(ref); err == nil {
		return h.Runtime.Factory.PairByAddress(addr)
	}
	return h.Runtime.Registry.FindPoolByName(ref)
}

// lookupAsset accepts a mint address or a configured symbol.
func (h *Handlers) lookupAsset(ref string) (solana.PublicKey, bool) {
	ref = strings.TrimSpace(ref)
	if addr, err := solana.PublicKeyFromBase58(ref); err == nil {
		return addr, true
	}
	if info, ok := h.Runtime.Registry.FindAssetBySymbol(ref); ok {
		return info.Mint, true
	}
	return solana.PublicKey{}, false
}

// PoolCreate adds an empty pool for two assets
// Returns 409 if the pool already exists
func (h *Handlers) PoolCreate(c echo.Context) error {
	var req PoolCreateRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	assetA, err := parseKey(req.AssetA)
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid asset_a", map[string]any{"asset_a": "must be a base58 address"})
	}
	assetB, err := parseKey(req.AssetB)
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid asset_b", map[string]any{"asset_b": "must be a base58 address"})
	}
	if req.FeeNumerator != 0 && req.FeeDenominator == 0 {
		return h.err(c, http.StatusBadRequest, "invalid fee", map[string]any{"fee_denominator": "required with fee_numerator"})
	}

	fee := amm.Fee{Numerator: req.FeeNumerator, Denominator: req.FeeDenominator}
	pair, err := h.Runtime.CreatePool(assetA, assetB, fee)
	if err != nil {
		code := poolStatus(err)
		if code == http.StatusConflict {
			return h.err(c, code, "pool already exists", nil)
		}
		return h.err(c, code, "failed to create pool", map[string]any{"err": err.Error()})
	}
	return c.JSON(http.StatusCreated, poolResponse(pair))
}

// PoolSeed adds seed liquidity owned by the burn address (dev mode only)
func (h *Handlers) PoolSeed(c echo.Context) error {
	pair, err := h.lookupPool(c.Param("pool"))
	if err != nil {
		return h.err(c, poolStatus(err), "pool not found", nil)
	}

	var req PoolSeedRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	asset, ok := h.lookupAsset(req.Asset)
	if !ok {
		return h.err(c, http.StatusBadRequest, "invalid asset", map[string]any{"asset": "must be a mint address or a known symbol"})
	}
	amountA, ok := parseAmount(req.AmountA)
	if !ok {
		return h.err(c, http.StatusBadRequest, "invalid amount_a", map[string]any{"amount_a": "positive integer in base units"})
	}
	amountB, ok := parseAmount(req.AmountB)
	if !ok {
		return h.err(c, http.StatusBadRequest, "invalid amount_b", map[string]any{"amount_b": "positive integer in base units"})
	}

	shares, err := h.Runtime.SeedPool(pair.Address(), asset, amountA, amountB)
	if err != nil {
		return h.err(c, poolStatus(err), "failed to seed pool", map[string]any{"err": err.Error()})
	}
	return c.JSON(http.StatusOK, PoolSeedResponse{Pool: poolResponse(pair), Shares: shares.String()})
}

// zapRequest converts the wire request into an engine request
func (h *Handlers) zapRequest(req ZapRequest, requireCaller bool) (zap.Request, map[string]any) {
	var out zap.Request
	var err error

	if requireCaller || strings.TrimSpace(req.Caller) != "" {
		if out.Caller, err = parseKey(req.Caller); err != nil {
			return out, map[string]any{"caller": "must be a base58 address"}
		}
	}
	var ok bool
	if out.InputAsset, ok = h.lookupAsset(req.InputAsset); !ok {
		return out, map[string]any{"input_asset": "must be a mint address or a known symbol"}
	}
	pool, err := h.lookupPool(req.Pool)
	if err != nil {
		if out.Pool, err = parseKey(req.Pool); err != nil {
			return out, map[string]any{"pool": "must be a pool address or name"}
		}
	} else {
		out.Pool = pool.Address()
	}

	amount, ok := new(big.Int).SetString(strings.TrimSpace(req.Amount), 10)
	if !ok {
		return out, map[string]any{"amount": "must be an integer in base units"}
	}
	out.Amount = amount

	if req.MinShares != "" {
		minShares, ok := new(big.Int).SetString(strings.TrimSpace(req.MinShares), 10)
		if !ok {
			return out, map[string]any{"min_shares": "must be an integer"}
		}
		out.MinShares = minShares
	}

	out.SlippageBps = req.SlippageBps
	out.TransferResidual = req.TransferResidual
	out.RequestedAt = time.Now().UTC()
	return out, nil
}

// ZapQuote simulates a zap without moving funds
// Query parameters: pool, input_asset, amount, optional slippage_bps and caller
func (h *Handlers) ZapQuote(c echo.Context) error {
	wire := ZapRequest{
		Caller:     c.QueryParam("caller"),
		InputAsset: c.QueryParam("input_asset"),
		Pool:       c.QueryParam("pool"),
		Amount:     c.QueryParam("amount"),
	}
	if s := c.QueryParam("slippage_bps"); s != "" {
		n, err := strconv.ParseUint(s, 10, 16)
		if err != nil {
			return h.err(c, http.StatusBadRequest, "invalid slippage_bps", map[string]any{"slippage_bps": "0-10000"})
		}
		bps := uint16(n)
		wire.SlippageBps = &bps
	}

	req, details := h.zapRequest(wire, false)
	if details != nil {
		return h.err(c, http.StatusBadRequest, "invalid quote request", details)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	q, err := h.Runtime.Engine.Quote(ctx, req)
	if err != nil {
		return h.zapErr(c, err)
	}
	return c.JSON(http.StatusOK, QuoteResponse{
		Plan:      planResponse(q.Plan),
		AmountOut: q.AmountOut.String(),
		Deposit:   depositResponse(q.Deposit),
	})
}

// Zap executes a single-asset zap on behalf of the caller
// The caller must have deposited and approved the input amount to the zap account
func (h *Handlers) Zap(c echo.Context) error {
	var wire ZapRequest
	if err := c.Bind(&wire); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	req, details := h.zapRequest(wire, true)
	if details != nil {
		return h.err(c, http.StatusBadRequest, "invalid zap request", details)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	res, err := h.Runtime.Engine.Zap(ctx, req)
	if err != nil {
		h.Logger.WithError(err).WithFields(logrus.Fields{
			"pool":   wire.Pool,
			"caller": wire.Caller,
			"kind":   zap.Kind(err),
		}).Debug("zap rejected")
		return h.zapErr(c, err)
	}

	pair, err := h.Runtime.Factory.PairByAddress(req.Pool)
	if err != nil {
		return h.zapErr(c, err)
	}
	return c.JSON(http.StatusOK, ZapResponse{
		ID:             res.ID,
		Plan:           planResponse(res.Plan),
		AmountOut:      res.AmountOut.String(),
		Deposit:        depositResponse(res.Deposit),
		LPSharesMinted: res.LPSharesMinted.String(),
		Pool:           poolResponse(pair),
		TookMs:         res.Duration.Milliseconds(),
	})
}

// AccountDeposit credits an account with an asset (dev mode only)
func (h *Handlers) AccountDeposit(c echo.Context) error {
	owner, asset, amount, ok := h.bindAmount(c)
	if !ok {
		return nil
	}
	if err := h.Runtime.Ledger.Deposit(owner, asset, amount); err != nil {
		return h.err(c, poolStatus(err), "failed to deposit", map[string]any{"err": err.Error()})
	}
	return h.accountResponse(c, owner, []solana.PublicKey{asset})
}

// AccountApprove sets the account's allowance to the zap account (dev mode only)
func (h *Handlers) AccountApprove(c echo.Context) error {
	owner, asset, amount, ok := h.bindAmount(c)
	if !ok {
		return nil
	}
	if err := h.Runtime.Ledger.Approve(owner, h.Runtime.Account, asset, amount); err != nil {
		return h.err(c, poolStatus(err), "failed to approve", map[string]any{"err": err.Error()})
	}
	return h.accountResponse(c, owner, []solana.PublicKey{asset})
}

// bindAmount parses the owner path parameter and an AmountRequest body.
// It writes the error response itself and reports ok=false on failure.
func (h *Handlers) bindAmount(c echo.Context) (solana.PublicKey, solana.PublicKey, *big.Int, bool) {
	owner, err := parseKey(c.Param("owner"))
	if err != nil {
		_ = h.err(c, http.StatusBadRequest, "invalid owner", map[string]any{"owner": "must be a base58 address"})
		return solana.PublicKey{}, solana.PublicKey{}, nil, false
	}
	var req AmountRequest
	if err := c.Bind(&req); err != nil {
		_ = h.err(c, http.StatusBadRequest, "invalid json", nil)
		return solana.PublicKey{}, solana.PublicKey{}, nil, false
	}
	asset, err := parseKey(req.Asset)
	if err != nil {
		_ = h.err(c, http.StatusBadRequest, "invalid asset", map[string]any{"asset": "must be a base58 address"})
		return solana.PublicKey{}, solana.PublicKey{}, nil, false
	}
	amount, ok := new(big.Int).SetString(strings.TrimSpace(req.Amount), 10)
	if !ok || amount.Sign() < 0 {
		_ = h.err(c, http.StatusBadRequest, "invalid amount", map[string]any{"amount": "non-negative integer in base units"})
		return solana.PublicKey{}, solana.PublicKey{}, nil, false
	}
	return owner, asset, amount, true
}

// AccountGet returns balances, allowances and LP positions of an account
// Accepts an assets query parameter (comma separated mints); defaults to every pool asset
func (h *Handlers) AccountGet(c echo.Context) error {
	owner, err := parseKey(c.Param("owner"))
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid owner", map[string]any{"owner": "must be a base58 address"})
	}

	var assets []solana.PublicKey
	for _, s := range splitCSVQuery(c.QueryParams()["assets"]) {
		asset, err := parseKey(s)
		if err != nil {
			return h.err(c, http.StatusBadRequest, "invalid assets", map[string]any{"assets": s})
		}
		assets = append(assets, asset)
	}
	if len(assets) == 0 {
		assets = h.poolAssets()
	}
	return h.accountResponse(c, owner, assets)
}

func (h *Handlers) poolAssets() []solana.PublicKey {
	seen := make(map[solana.PublicKey]bool)
	var out []solana.PublicKey
	for _, p := range h.Runtime.Factory.AllPairs() {
		for _, a := range []solana.PublicKey{p.Asset0(), p.Asset1()} {
			if !seen[a] {
				seen[a] = true
				out = append(out, a)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

func (h *Handlers) accountResponse(c echo.Context, owner solana.PublicKey, assets []solana.PublicKey) error {
	book := h.Runtime.Ledger
	resp := AccountResponse{
		Owner:      owner.String(),
		ZapAccount: h.Runtime.Account.String(),
		Balances:   make([]BalanceResponse, 0, len(assets)),
	}
	for _, asset := range assets {
		symbol := constants.Symbol(asset.String())
		if info, ok := h.Runtime.Registry.AssetInfo(asset); ok && info.Symbol != "" {
			symbol = info.Symbol
		}
		resp.Balances = append(resp.Balances, BalanceResponse{
			Asset:     asset.String(),
			Symbol:    symbol,
			Balance:   book.BalanceOf(owner, asset).String(),
			Available: book.Available(owner, asset).String(),
			Allowance: book.Allowance(owner, h.Runtime.Account, asset).String(),
		})
	}
	for _, p := range h.Runtime.Factory.AllPairs() {
		if shares := p.BalanceOf(owner); shares.Sign() > 0 {
			if resp.LPPositions == nil {
				resp.LPPositions = make(map[string]string)
			}
			resp.LPPositions[p.Address().String()] = shares.String()
		}
	}
	return c.JSON(http.StatusOK, resp)
}

func splitCSVQuery(values []string) []string {
	var out []string
	for _, v := range values {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
