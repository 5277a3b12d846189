package postgres

import (
	"context"
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/aman-zulfiqar/solana-zap-engine/internal/models"
	"github.com/aman-zulfiqar/solana-zap-engine/internal/storage"
)

const defaultListLimit = 50

// ZapStore implements storage.ZapStore using PostgreSQL.
type ZapStore struct {
	pool *Pool
}

// NewZapStore creates a new ZapStore.
func NewZapStore(pool *Pool) *ZapStore {
	return &ZapStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ZapStore = (*ZapStore)(nil)

const zapColumns = `
	id, created_at, caller, pool, pool_name, input_asset, output_asset,
	input_symbol, output_symbol, input_decimals, output_decimals,
	input_amount, amount_swapped, amount_out, deposit_in, deposit_out,
	residual_in, residual_out, lp_shares_minted, reserve_in, reserve_out,
	total_supply, transfer_residual, strategy, fee_bps`

// Insert adds a new zap. Returns ErrDuplicateKey if the ID exists.
func (s *ZapStore) Insert(ctx context.Context, zap *models.ZapEvent) error {
	if zap == nil || zap.ID == "" {
		return storage.ErrInvalidInput
	}

	query := `INSERT INTO zaps (` + zapColumns + `
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22, $23, $24, $25)`

	_, err := s.pool.Exec(ctx, query,
		zap.ID,
		zap.Timestamp,
		zap.Caller,
		zap.Pool,
		zap.PoolName,
		zap.InputAsset,
		zap.OutputAsset,
		zap.InputSymbol,
		zap.OutputSymbol,
		int16(zap.InputDecimals),
		int16(zap.OutputDecimals),
		numeric(zap.InputAmount),
		numeric(zap.AmountSwapped),
		numeric(zap.AmountOut),
		numeric(zap.DepositIn),
		numeric(zap.DepositOut),
		numeric(zap.ResidualIn),
		numeric(zap.ResidualOut),
		numeric(zap.LPSharesMinted),
		numeric(zap.ReserveIn),
		numeric(zap.ReserveOut),
		numeric(zap.TotalSupply),
		zap.TransferResidual,
		zap.Strategy,
		int32(zap.FeeBps),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert zap: %w", err)
	}
	return nil
}

// GetByID retrieves a zap by ID. Returns ErrNotFound if not found.
func (s *ZapStore) GetByID(ctx context.Context, id string) (*models.ZapEvent, error) {
	query := `SELECT ` + zapColumns + ` FROM zaps WHERE id = $1`

	zap, err := scanZap(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get zap by id: %w", err)
	}
	return zap, nil
}

// ListByCaller retrieves a caller's zaps, newest first.
func (s *ZapStore) ListByCaller(ctx context.Context, caller string, limit int) ([]*models.ZapEvent, error) {
	query := `SELECT ` + zapColumns + `
		FROM zaps
		WHERE caller = $1
		ORDER BY created_at DESC, id ASC
		LIMIT $2`

	rows, err := s.pool.Query(ctx, query, caller, listLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list zaps by caller: %w", err)
	}
	defer rows.Close()

	return scanZaps(rows)
}

// ListByPool retrieves a pool's zaps, newest first.
func (s *ZapStore) ListByPool(ctx context.Context, pool string, limit int) ([]*models.ZapEvent, error) {
	query := `SELECT ` + zapColumns + `
		FROM zaps
		WHERE pool = $1
		ORDER BY created_at DESC, id ASC
		LIMIT $2`

	rows, err := s.pool.Query(ctx, query, pool, listLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list zaps by pool: %w", err)
	}
	defer rows.Close()

	return scanZaps(rows)
}

func listLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	return limit
}

func scanZaps(rows pgx.Rows) ([]*models.ZapEvent, error) {
	zaps := []*models.ZapEvent{}
	for rows.Next() {
		zap, err := scanZap(rows)
		if err != nil {
			return nil, fmt.Errorf("scan zap: %w", err)
		}
		zaps = append(zaps, zap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate zaps: %w", err)
	}
	return zaps, nil
}

// scanZap reads one row in zapColumns order.
func scanZap(row pgx.Row) (*models.ZapEvent, error) {
	var (
		zap        models.ZapEvent
		inDecimals int16
		outDec     int16
		feeBps     int32
		amounts    [11]pgtype.Numeric
	)

	err := row.Scan(
		&zap.ID,
		&zap.Timestamp,
		&zap.Caller,
		&zap.Pool,
		&zap.PoolName,
		&zap.InputAsset,
		&zap.OutputAsset,
		&zap.InputSymbol,
		&zap.OutputSymbol,
		&inDecimals,
		&outDec,
		&amounts[0],
		&amounts[1],
		&amounts[2],
		&amounts[3],
		&amounts[4],
		&amounts[5],
		&amounts[6],
		&amounts[7],
		&amounts[8],
		&amounts[9],
		&amounts[10],
		&zap.TransferResidual,
		&zap.Strategy,
		&feeBps,
	)
	if err != nil {
		return nil, err
	}

	targets := []**big.Int{
		&zap.InputAmount,
		&zap.AmountSwapped,
		&zap.AmountOut,
		&zap.DepositIn,
		&zap.DepositOut,
		&zap.ResidualIn,
		&zap.ResidualOut,
		&zap.LPSharesMinted,
		&zap.ReserveIn,
		&zap.ReserveOut,
		&zap.TotalSupply,
	}
	for i, target := range targets {
		v, err := bigFromNumeric(amounts[i])
		if err != nil {
			return nil, fmt.Errorf("column %d: %w", i, err)
		}
		*target = v
	}

	zap.InputDecimals = uint8(inDecimals)
	zap.OutputDecimals = uint8(outDec)
	zap.FeeBps = uint16(feeBps)
	zap.Timestamp = zap.Timestamp.UTC()
	return &zap, nil
}
