package cache

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-zap-engine/internal/amm"
	"github.com/aman-zulfiqar/solana-zap-engine/internal/models"
	"github.com/aman-zulfiqar/solana-zap-engine/internal/storage"
	"github.com/aman-zulfiqar/solana-zap-engine/internal/storage/migrations"
)

// ClickHouseConfig holds connection settings for the analytics store.
type ClickHouseConfig struct {
	Addr     string
	Database string
	Username string
	Password string
}

// ClickHouseStore appends committed zaps to the zaps table.
type ClickHouseStore struct {
	conn   driver.Conn
	logger *logrus.Logger
}

var _ storage.ZapArchive = (*ClickHouseStore)(nil)

func openClickHouse(ctx context.Context, cfg ClickHouseConfig, database string) (driver.Conn, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}
	return conn, nil
}

// EnsureClickHouseDatabase creates cfg.Database if it does not exist.
func EnsureClickHouseDatabase(ctx context.Context, cfg ClickHouseConfig) error {
	admin, err := openClickHouse(ctx, cfg, "default")
	if err != nil {
		return err
	}
	defer admin.Close()

	if err := admin.Exec(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", cfg.Database)); err != nil {
		return fmt.Errorf("create database %s: %w", cfg.Database, err)
	}
	return nil
}

func NewClickHouseStore(ctx context.Context, cfg ClickHouseConfig, logger *logrus.Logger) (*ClickHouseStore, error) {
	if logger == nil {
		logger = logrus.New()
	}

	conn, err := openClickHouse(ctx, cfg, cfg.Database)
	if err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"addr":     cfg.Addr,
		"database": cfg.Database,
	}).Info("connected to ClickHouse")

	return &ClickHouseStore{conn: conn, logger: logger}, nil
}

// ApplyMigrations creates the zaps table.
func (c *ClickHouseStore) ApplyMigrations(ctx context.Context) error {
	return migrations.RunClickhouseMigrations(ctx, c.conn)
}

func (c *ClickHouseStore) InsertZap(ctx context.Context, zap *models.ZapEvent) error {
	return c.InsertZaps(ctx, []*models.ZapEvent{zap})
}

// InsertZaps writes zaps in a single batch.
func (c *ClickHouseStore) InsertZaps(ctx context.Context, zaps []*models.ZapEvent) error {
	if len(zaps) == 0 {
		return nil
	}

	batch, err := c.conn.PrepareBatch(ctx, `
		INSERT INTO zaps (
			id, timestamp, caller, pool, pool_name, input_asset, output_asset,
			input_symbol, output_symbol, input_amount, amount_swapped, amount_out,
			lp_shares_minted, residual_in, residual_out, input_amount_ui,
			strategy, fee_bps, transfer_residual
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, zap := range zaps {
		if zap == nil || zap.ID == "" {
			_ = batch.Abort()
			return storage.ErrInvalidInput
		}
		err := batch.Append(
			zap.ID,
			zap.Timestamp,
			zap.Caller,
			zap.Pool,
			zap.PoolName,
			zap.InputAsset,
			zap.OutputAsset,
			zap.InputSymbol,
			zap.OutputSymbol,
			zap.InputAmount,
			zap.AmountSwapped,
			zap.AmountOut,
			zap.LPSharesMinted,
			zap.ResidualIn,
			zap.ResidualOut,
			amm.ToFloat(zap.InputAmount, zap.InputDecimals),
			zap.Strategy,
			zap.FeeBps,
			zap.TransferResidual,
		)
		if err != nil {
			_ = batch.Abort()
			return fmt.Errorf("append zap %s: %w", zap.ID, err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to insert zaps: %w", err)
	}
	return nil
}

func (c *ClickHouseStore) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

func (c *ClickHouseStore) Close() error {
	return c.conn.Close()
}
