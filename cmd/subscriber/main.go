// ============================================================================
// cmd/subscriber/main.go - Example zap feed consumer
// ============================================================================
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-zap-engine/internal/amm"
	"github.com/aman-zulfiqar/solana-zap-engine/internal/cache"
	"github.com/aman-zulfiqar/solana-zap-engine/internal/config"
	"github.com/aman-zulfiqar/solana-zap-engine/internal/constants"
	"github.com/aman-zulfiqar/solana-zap-engine/internal/models"
)

func main() {
	pool := flag.String("pool", "", "Only follow zaps into this pool address")
	caller := flag.String("caller", "", "Only follow zaps by this caller")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	rclient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	defer rclient.Close()

	pubsub := cache.NewPubSubManager(rclient, logger)

	printZap := func(zap *models.ZapEvent) {
		logger.WithFields(logrus.Fields{
			"id":     zap.ID,
			"pool":   zap.PoolName,
			"caller": zap.Caller,
			"shares": zap.LPSharesMinted.String(),
		}).Infof("zap %s %s -> %s LP",
			amm.ToHuman(zap.InputAmount, zap.InputDecimals), zap.InputSymbol, zap.PoolName)
	}

	channel := constants.PubSubChannelZaps
	switch {
	case *pool != "":
		channel = constants.PubSubChannelPoolPrefix + *pool
	case *caller != "":
		channel = constants.PubSubChannelCallerPrefix + *caller
	}

	go func() {
		if err := pubsub.Subscribe(ctx, channel, printZap); err != nil && ctx.Err() == nil {
			logger.WithError(err).Error("subscription ended")
			cancel()
		}
	}()

	// Per-pool tallies across every pool channel
	var (
		mu     sync.Mutex
		counts = make(map[string]int)
	)
	go func() {
		_ = pubsub.PSubscribe(ctx, constants.PubSubChannelPoolPrefix+"*", func(zap *models.ZapEvent) {
			mu.Lock()
			counts[zap.PoolName]++
			mu.Unlock()
		})
	}()

	logger.WithField("channel", channel).Info("subscriber running, press Ctrl+C to stop")

	select {
	case <-sigChan:
	case <-ctx.Done():
	}
	mu.Lock()
	defer mu.Unlock()
	for pool, n := range counts {
		logger.WithFields(logrus.Fields{"pool": pool, "zaps": n}).Info("pool total")
	}
	logger.Info("shutting down subscriber")
}
