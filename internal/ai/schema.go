package ai

import "fmt"

// zapsSchemaDescription describes the ClickHouse zaps table used for NL→SQL
// prompting. Keep it in sync with storage/migrations/clickhouse.
const zapsSchemaDescription = `
Database: %[1]s
Table: zaps

Columns:
  - id                String          -- Zap id (base58)
  - timestamp         DateTime64(3)   -- Commit time of the zap (UTC)
  - caller            String          -- Account that supplied the input asset
  - pool              String          -- Pool address
  - pool_name         String          -- Pool name, e.g. "SOL-USDC"
  - input_asset       String          -- Mint of the asset the caller supplied
  - output_asset      String          -- Mint of the other pool asset
  - input_symbol      String          -- Symbol of input_asset, e.g. "SOL"
  - output_symbol     String          -- Symbol of output_asset
  - input_amount      UInt256         -- Input amount in base units
  - amount_swapped    UInt256         -- Part of the input sold for the other asset, base units
  - amount_out        UInt256         -- Output asset received from the swap, base units
  - lp_shares_minted  UInt256         -- LP shares minted for the caller
  - residual_in       UInt256         -- Input asset left over after the deposit
  - residual_out      UInt256         -- Output asset left over after the deposit
  - input_amount_ui   Float64         -- input_amount scaled by the asset decimals
  - strategy          String          -- "optimal" or "half"
  - fee_bps           UInt16          -- Pool swap fee in basis points
  - transfer_residual Bool            -- Whether residuals were returned to the caller

Notes:
  - Use input_amount_ui for human readable volume; the UInt256 columns are raw base units.
  - Group by pool_name or input_symbol for per-pool or per-asset breakdowns.
  - Time filters should use timestamp, e.g. timestamp >= now() - INTERVAL 24 HOUR.
`

func schemaDescription(database string) string {
	return fmt.Sprintf(zapsSchemaDescription, database)
}
