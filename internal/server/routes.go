package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// RegisterRoutes configures all API routes, middleware, and error handlers
func RegisterRoutes(e *echo.Echo, h *Handlers, cfg ServerConfig) {
	// Set custom error handler for consistent JSON responses
	e.HTTPErrorHandler = NotFoundJSON()

	// Apply global middleware
	e.Use(SetJSONContentType) // Ensure all responses are JSON
	e.Use(SetNoCacheHeaders)  // Prevent caching of API responses

	// Optional API key authentication
	if cfg.APIKey != "" {
		e.Use(middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
			KeyLookup: "header:X-API-Key", // Look for API key in X-API-Key header
			Validator: func(key string, c echo.Context) (bool, error) {
				return key == cfg.APIKey, nil // Simple string comparison
			},
		}))
	}

	zapRate := cfg.ZapRate
	if zapRate <= 0 {
		zapRate = 20
	}

	// API v1 routes
	v1 := e.Group("/v1")
	v1.GET("/health", h.Health) // Health check endpoint

	// Pools
	poolGroup := v1.Group("/pools")
	poolGroup.GET("", h.PoolsList)                                // List all pools
	poolGroup.POST("", h.PoolCreate)                              // Create an empty pool
	poolGroup.GET("/:pool", h.PoolGet)                            // Pool by address or name
	poolGroup.POST("/:pool/seed", h.PoolSeed, h.devOnly)          // Seed liquidity (dev only)
	poolGroup.GET("/:pool/zaps", h.PoolZaps, h.requireStore)      // Zap history of a pool
	poolGroup.POST("/:pool/pause", h.PoolPause, h.requireFlags)   // Pause zaps into a pool
	poolGroup.POST("/:pool/resume", h.PoolResume, h.requireFlags) // Resume zaps into a pool

	// Zaps, rate limited per client
	zapGroup := v1.Group("/zap")
	zapGroup.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(zapRate), // Zaps and quotes per second
		Burst:     int(zapRate) * 2,    // Allow short bursts
		ExpiresIn: 2 * time.Minute,     // Rate limit window
	})))
	zapGroup.GET("/quote", h.ZapQuote) // Simulate a zap
	zapGroup.POST("", h.Zap)           // Execute a zap

	// Zap history and live feed
	zapsGroup := v1.Group("/zaps")
	zapsGroup.GET("/recent", h.RecentZaps)          // Recent zap events
	zapsGroup.GET("/stream", h.ZapStream)           // Websocket feed
	zapsGroup.GET("/:id", h.ZapGet, h.requireStore) // Zap by id

	// Accounts
	accountGroup := v1.Group("/accounts/:owner")
	accountGroup.GET("", h.AccountGet)                         // Balances and LP positions
	accountGroup.GET("/zaps", h.AccountZaps, h.requireStore)   // Zap history of a caller
	accountGroup.POST("/deposit", h.AccountDeposit, h.devOnly) // Credit funds (dev only)
	accountGroup.POST("/approve", h.AccountApprove, h.devOnly) // Approve the zap account (dev only)

	// AI endpoints with rate limiting
	aigroup := v1.Group("/ai")
	aigroup.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(0.2), // 1 request every 5 seconds
		Burst:     2,               // Allow burst of 2 requests
		ExpiresIn: 2 * time.Minute, // Rate limit window
	})))
	aigroup.POST("/ask", h.AIAsk) // Natural language to SQL endpoint

	// Feature flags CRUD endpoints
	flagGroup := v1.Group("/flags", h.requireFlags)
	flagGroup.GET("", h.FlagsList)           // List all flags
	flagGroup.POST("", h.FlagsUpsert)        // Create new flag
	flagGroup.GET("/:key", h.FlagsGet)       // Get specific flag
	flagGroup.PUT("/:key", h.FlagsUpdate)    // Update existing flag
	flagGroup.DELETE("/:key", h.FlagsDelete) // Delete flag

	// Catch-all route for 404 responses
	e.RouteNotFound("/*", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found", Code: http.StatusNotFound})
	})
}
