// ============================================================================
// cmd/indexer/main.go - Zap indexer: Redis Pub/Sub -> ClickHouse + InfluxDB
// ============================================================================
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-zap-engine/internal/cache"
	"github.com/aman-zulfiqar/solana-zap-engine/internal/config"
	"github.com/aman-zulfiqar/solana-zap-engine/internal/constants"
	"github.com/aman-zulfiqar/solana-zap-engine/internal/metrics"
	"github.com/aman-zulfiqar/solana-zap-engine/internal/models"
)

// pendingBatches bounds how many batches are held while ClickHouse is down.
const pendingBatches = 4

type zapArchive interface {
	InsertZaps(ctx context.Context, zaps []*models.ZapEvent) error
}

// Indexer archives every published zap.
type Indexer struct {
	clickhouse zapArchive
	influx     *metrics.Writer // optional
	logger     *logrus.Logger

	batchSize int
	mu        sync.Mutex
	pending   []*models.ZapEvent
}

func (idx *Indexer) maxPending() int {
	if idx.batchSize <= 0 {
		return pendingBatches
	}
	return idx.batchSize * pendingBatches
}

// trimLocked drops the oldest pending zaps beyond maxPending.
func (idx *Indexer) trimLocked() {
	over := len(idx.pending) - idx.maxPending()
	if over <= 0 {
		return
	}
	dropped := idx.pending[:over]
	idx.logger.WithFields(logrus.Fields{
		"dropped": over,
		"oldest":  dropped[0].ID,
		"newest":  dropped[over-1].ID,
		"kept":    idx.maxPending(),
	}).Warn("pending zaps over limit, dropping oldest")
	idx.pending = append([]*models.ZapEvent(nil), idx.pending[over:]...)
}

// ProcessZap queues a zap for the next ClickHouse batch and writes its point.
func (idx *Indexer) ProcessZap(ctx context.Context, zap *models.ZapEvent) {
	idx.logger.WithFields(logrus.Fields{
		"id":     zap.ID,
		"pool":   zap.PoolName,
		"input":  zap.InputSymbol,
		"shares": zap.LPSharesMinted.String(),
	}).Debug("processing zap")

	if idx.influx != nil {
		idx.influx.WriteZap(zap)
	}

	idx.mu.Lock()
	idx.pending = append(idx.pending, zap)
	idx.trimLocked()
	full := len(idx.pending) >= idx.batchSize
	idx.mu.Unlock()

	if full {
		idx.Flush(ctx)
	}
}

// Flush writes the pending batch. A failed batch is kept for the next flush,
// up to pendingBatches batches.
func (idx *Indexer) Flush(ctx context.Context) {
	idx.mu.Lock()
	batch := idx.pending
	idx.pending = nil
	idx.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	if err := idx.clickhouse.InsertZaps(ctx, batch); err != nil {
		idx.logger.WithError(err).WithField("count", len(batch)).Error("clickhouse insert failed")
		idx.mu.Lock()
		idx.pending = append(batch, idx.pending...)
		idx.trimLocked()
		idx.mu.Unlock()
		return
	}
	idx.logger.WithField("count", len(batch)).Info("zaps archived")
}

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file found, using system environment variables")
	}

	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	chCfg := cache.ClickHouseConfig{
		Addr:     cfg.ClickHouseAddr,
		Database: cfg.ClickHouseDatabase,
		Username: cfg.ClickHouseUsername,
		Password: cfg.ClickHousePassword,
	}
	if err := cache.EnsureClickHouseDatabase(ctx, chCfg); err != nil {
		logger.WithError(err).Fatal("failed to prepare ClickHouse database")
	}
	clickhouse, err := cache.NewClickHouseStore(ctx, chCfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to ClickHouse")
	}
	defer clickhouse.Close()
	if err := clickhouse.ApplyMigrations(ctx); err != nil {
		logger.WithError(err).Fatal("failed to apply ClickHouse migrations")
	}

	var influx *metrics.Writer
	if cfg.InfluxEnabled() {
		influx, err = metrics.NewWriter(metrics.Config{
			URL:    cfg.InfluxURL,
			Token:  cfg.InfluxToken,
			Org:    cfg.InfluxOrg,
			Bucket: cfg.InfluxBucket,
			Logger: logger,
		})
		if err != nil {
			logger.WithError(err).Fatal("failed to create influx writer")
		}
		defer influx.Close()
	}

	rclient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rclient.Close()
	if err := rclient.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Fatal("failed to connect to Redis")
	}

	indexer := &Indexer{
		clickhouse: clickhouse,
		influx:     influx,
		logger:     logger,
		batchSize:  cfg.IndexerBatchSize,
	}

	pubsub := cache.NewPubSubManager(rclient, logger)
	done := make(chan struct{})
	go func() {
		defer close(done)
		err := pubsub.Subscribe(ctx, constants.PubSubChannelZaps, func(zap *models.ZapEvent) {
			indexer.ProcessZap(ctx, zap)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.WithError(err).Error("subscription ended")
			cancel()
		}
	}()

	go func() {
		ticker := time.NewTicker(cfg.IndexerFlushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				indexer.Flush(ctx)
			}
		}
	}()

	logger.WithFields(logrus.Fields{
		"channel":    constants.PubSubChannelZaps,
		"clickhouse": cfg.ClickHouseAddr,
		"influx":     cfg.InfluxEnabled(),
	}).Info("indexer running")

	select {
	case <-sigChan:
		logger.Info("shutting down")
		cancel()
	case <-ctx.Done():
	}
	<-done

	// Final flush on a fresh context
	flushCtx, flushCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer flushCancel()
	indexer.Flush(flushCtx)
}
