package server

import (
	"context"
	"errors"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-zap-engine/internal/ai"
	"github.com/aman-zulfiqar/solana-zap-engine/internal/flags"
	"github.com/aman-zulfiqar/solana-zap-engine/internal/models"
	"github.com/aman-zulfiqar/solana-zap-engine/internal/storage"
	"github.com/aman-zulfiqar/solana-zap-engine/internal/zap"
)

// Handlers contains all dependencies for API endpoint handlers
type Handlers struct {
	Runtime      *zap.Runtime     // Pools, custody ledger and zap engine
	Store        storage.ZapStore // Durable zap history (optional)
	Cache        storage.ZapCache // Redis-backed recent zaps feed (optional)
	Flags        *flags.Store     // Redis-backed feature flags store (optional)
	AI           *ai.Agent        // AI agent for natural language queries (optional)
	AIBaseConfig ai.AgentConfig   // Base configuration for AI agents
	DevMode      bool             // Enable dev-only endpoints and detailed errors
	Logger       *logrus.Logger   // Structured logger
}

// err returns a standardized JSON error response
// In dev mode, includes additional error details for debugging
func (h *Handlers) err(c echo.Context, code int, msg string, details any) error {
	resp := ErrorResponse{Error: msg, Code: code}
	if h.DevMode && details != nil {
		resp.Details = details
	}
	return c.JSON(code, resp)
}

// zapErr reports an engine error with its kind
func (h *Handlers) zapErr(c echo.Context, err error) error {
	code := zapStatus(err)
	resp := ErrorResponse{Error: err.Error(), Code: code, Kind: zap.Kind(err)}
	if code == http.StatusInternalServerError {
		h.Logger.WithError(err).Error("zap failed")
		resp.Error = "internal server error"
		if h.DevMode {
			resp.Details = map[string]any{"err": err.Error()}
		}
	}
	return c.JSON(code, resp)
}

// withTimeout creates a context with timeout, defaulting to 10 seconds if duration <= 0
func (h *Handlers) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 10 * time.Second
	}
	return context.WithTimeout(ctx, d)
}

// Health reports the pool count and the reachability of Redis
func (h *Handlers) Health(c echo.Context) error {
	resp := HealthResponse{OK: true, Pools: h.Runtime.Factory.PairCount()}
	if h.Cache != nil {
		ctx, cancel := h.withTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		resp.Checks = map[string]bool{"redis": h.Cache.Ping(ctx) == nil}
	}
	return c.JSON(http.StatusOK, resp)
}

// parseLimit reads the limit query parameter (default def, range 1-upper)
func parseLimit(c echo.Context, def, upper int) (int, bool) {
	limitStr := c.QueryParam("limit")
	if limitStr == "" {
		return def, true
	}
	n, err := strconv.Atoi(limitStr)
	if err != nil || n < 1 || n > upper {
		return 0, false
	}
	return n, true
}

// parseKey decodes a base58 address
func parseKey(s string) (solana.PublicKey, error) {
	return solana.PublicKeyFromBase58(strings.TrimSpace(s))
}

// parseAmount decodes a positive base-10 integer amount
func parseAmount(s string) (*big.Int, bool) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok || v.Sign() <= 0 {
		return nil, false
	}
	return v, true
}

// RecentZaps returns the most recent zap events with optional limit parameter
// Accepts limit query parameter (default: 100, range: 1-100)
func (h *Handlers) RecentZaps(c echo.Context) error {
	if h.Cache == nil {
		return h.err(c, http.StatusServiceUnavailable, "zap feed is not configured", nil)
	}
	limit, ok := parseLimit(c, 100, 100)
	if !ok {
		return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "min 1 max 100"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Cache.GetRecentZaps(ctx, int64(limit))
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to get zaps", nil)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// ZapGet returns a committed zap from the durable store
func (h *Handlers) ZapGet(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return h.err(c, http.StatusBadRequest, "invalid id", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return h.err(c, http.StatusNotFound, "zap not found", nil)
		}
		return h.err(c, http.StatusInternalServerError, "failed to get zap", nil)
	}
	return c.JSON(http.StatusOK, out)
}

// PoolZaps lists a pool's zaps, newest first
func (h *Handlers) PoolZaps(c echo.Context) error {
	return h.listZaps(c, "pool", h.Store.ListByPool)
}

// AccountZaps lists a caller's zaps, newest first
func (h *Handlers) AccountZaps(c echo.Context) error {
	return h.listZaps(c, "owner", h.Store.ListByCaller)
}

func (h *Handlers) listZaps(c echo.Context, param string, list func(context.Context, string, int) ([]*models.ZapEvent, error)) error {
	key, err := parseKey(c.Param(param))
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid "+param, map[string]any{param: "must be a base58 address"})
	}
	limit, ok := parseLimit(c, 50, 200)
	if !ok {
		return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "min 1 max 200"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := list(ctx, key.String(), limit)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to list zaps", nil)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// requireStore guards the history routes when no store is wired
func (h *Handlers) requireStore(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if h.Store == nil {
			return h.err(c, http.StatusServiceUnavailable, "zap store is not configured", nil)
		}
		return next(c)
	}
}

// requireFlags guards the flag routes when Redis is not wired
func (h *Handlers) requireFlags(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if h.Flags == nil {
			return h.err(c, http.StatusServiceUnavailable, "flags are not configured", nil)
		}
		return next(c)
	}
}

// devOnly rejects the request unless the server runs in dev mode
func (h *Handlers) devOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !h.DevMode {
			return h.err(c, http.StatusForbidden, "only available in dev mode", nil)
		}
		return next(c)
	}
}

// FlagsUpsert creates or updates a feature flag with the given key and value
// Validates key format and returns the created/updated flag
func (h *Handlers) FlagsUpsert(c echo.Context) error {
	var req FlagUpsertRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	if err := flags.ValidateKey(req.Key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Flags.Upsert(ctx, req.Key, req.Value)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to upsert flag", nil)
	}
	return c.JSON(http.StatusOK, out)
}

// FlagsUpdate updates an existing feature flag with the given key
// Validates key format and returns the updated flag
func (h *Handlers) FlagsUpdate(c echo.Context) error {
	key := c.Param("key")
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}
	var req FlagUpdateRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Flags.Upsert(ctx, key, req.Value)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to update flag", nil)
	}
	return c.JSON(http.StatusOK, out)
}

// FlagsGet retrieves a feature flag by its key
// Returns 404 if flag doesn't exist
func (h *Handlers) FlagsGet(c echo.Context) error {
	key := c.Param("key")
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Flags.Get(ctx, key)
	if err != nil {
		if errors.Is(err, flags.ErrNotFound) {
			return h.err(c, http.StatusNotFound, "flag not found", nil)
		}
		return h.err(c, http.StatusInternalServerError, "failed to get flag", nil)
	}
	return c.JSON(http.StatusOK, out)
}

// FlagsList returns all feature flags in the system
func (h *Handlers) FlagsList(c echo.Context) error {
	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Flags.List(ctx)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to list flags", nil)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// FlagsDelete removes a feature flag by its key
// Returns 204 No Content on successful deletion
func (h *Handlers) FlagsDelete(c echo.Context) error {
	key := c.Param("key")
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	if err := h.Flags.Delete(ctx, key); err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to delete flag", nil)
	}
	return c.NoContent(http.StatusNoContent)
}

// AIAsk processes natural language questions about zap data using AI
// Supports optional model override for one-off requests
// Returns SQL query and answer with execution time
func (h *Handlers) AIAsk(c echo.Context) error {
	if h.AI == nil {
		return h.err(c, http.StatusBadRequest, "ai is not configured", nil)
	}

	var req AIAskRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		return h.err(c, http.StatusBadRequest, "question is required", map[string]any{"question": "required"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 45*time.Second)
	defer cancel()

	start := time.Now()

	// Use default AI agent or create temporary one with custom model
	agent := h.AI
	if m := strings.TrimSpace(req.Model); m != "" {
		cfg := h.AIBaseConfig
		cfg.Model = m
		tmp, err := ai.NewAgent(ctx, cfg)
		if err != nil {
			return h.err(c, http.StatusInternalServerError, "failed to create ai agent", nil)
		}
		agent = tmp
		defer func() {
			_ = tmp.Close() // Clean up temporary agent
		}()
	}

	res, err := agent.Ask(ctx, req.Question)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "ai ask failed", map[string]any{"err": err.Error()})
	}

	return c.JSON(http.StatusOK, AIAskResponse{SQL: res.SQL, Answer: res.Answer, TookMs: time.Since(start).Milliseconds()})
}
