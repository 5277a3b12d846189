package amm

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/gagliardetto/solana-go"
)

// PoolConfig represents a pool entry in the JSON config
type PoolConfig struct {
	Name           string `json:"name"`
	TokenMintA     string `json:"token_mint_a"`
	TokenMintB     string `json:"token_mint_b"`
	SymbolA        string `json:"symbol_a"`
	SymbolB        string `json:"symbol_b"`
	DecimalsA      uint8  `json:"decimals_a"`
	DecimalsB      uint8  `json:"decimals_b"`
	FeeNumerator   uint64 `json:"fee_numerator"`
	FeeDenominator uint64 `json:"fee_denominator"`

	// Optional raw seed reserves. Empty means the pool starts unfunded.
	SeedReserveA string `json:"seed_reserve_a,omitempty"`
	SeedReserveB string `json:"seed_reserve_b,omitempty"`
}

// AssetInfo describes a token known to the registry.
type AssetInfo struct {
	Mint     solana.PublicKey
	Symbol   string
	Decimals uint8
}

// Funder receives the seed balances of a pool so that custody matches the
// pair reserves.
type Funder interface {
	Deposit(owner, asset solana.PublicKey, amount *big.Int) error
}

// PoolRegistry holds all configured pools
type PoolRegistry struct {
	factory *Factory
	pools   []*Pair
	byName  map[string]*Pair
	assets  map[solana.PublicKey]AssetInfo
	symbols map[string]AssetInfo // upper-cased symbol, first mint wins
}

// LoadPoolConfigs reads and parses pool configurations
func LoadPoolConfigs(path string) ([]PoolConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var configs []PoolConfig
	if err := json.Unmarshal(data, &configs); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return configs, nil
}

// NewPoolRegistry creates a pair in the factory for every config and seeds the
// ones carrying reserves. Seed LP shares go to lpOwner. funder may be nil.
func NewPoolRegistry(factory *Factory, configs []PoolConfig, lpOwner solana.PublicKey, funder Funder) (*PoolRegistry, error) {
	r := &PoolRegistry{
		factory: factory,
		byName:  make(map[string]*Pair, len(configs)),
		assets:  make(map[solana.PublicKey]AssetInfo),
		symbols: make(map[string]AssetInfo),
	}

	for i, cfg := range configs {
		if err := r.register(cfg, lpOwner, funder); err != nil {
			return nil, fmt.Errorf("pool %d (%s): %w", i, cfg.Name, err)
		}
	}
	return r, nil
}

func (r *PoolRegistry) register(cfg PoolConfig, lpOwner solana.PublicKey, funder Funder) error {
	if cfg.Name == "" {
		return fmt.Errorf("name is required")
	}
	if _, ok := r.byName[cfg.Name]; ok {
		return fmt.Errorf("duplicate pool name")
	}

	mintA, err := solana.PublicKeyFromBase58(cfg.TokenMintA)
	if err != nil {
		return fmt.Errorf("invalid token_mint_a: %w", err)
	}
	mintB, err := solana.PublicKeyFromBase58(cfg.TokenMintB)
	if err != nil {
		return fmt.Errorf("invalid token_mint_b: %w", err)
	}

	fee := factoryFee(r.factory, cfg)
	pair, err := r.factory.CreatePairWithFee(mintA, mintB, fee)
	if err != nil {
		return err
	}

	infoA := AssetInfo{Mint: mintA, Symbol: cfg.SymbolA, Decimals: cfg.DecimalsA}
	infoB := AssetInfo{Mint: mintB, Symbol: cfg.SymbolB, Decimals: cfg.DecimalsB}
	r.addAsset(infoA)
	r.addAsset(infoB)

	info0, info1 := infoA, infoB
	if !pair.Asset0().Equals(mintA) {
		info0, info1 = infoB, infoA
	}
	pair.SetMeta(PoolMeta{
		Name:      cfg.Name,
		Symbol0:   info0.Symbol,
		Symbol1:   info1.Symbol,
		Decimals0: info0.Decimals,
		Decimals1: info1.Decimals,
	})

	if cfg.SeedReserveA != "" || cfg.SeedReserveB != "" {
		if err := seedPair(pair, mintA, cfg.SeedReserveA, cfg.SeedReserveB, lpOwner, funder); err != nil {
			return err
		}
	}

	r.pools = append(r.pools, pair)
	r.byName[cfg.Name] = pair
	return nil
}

func (r *PoolRegistry) addAsset(info AssetInfo) {
	r.assets[info.Mint] = info
	if info.Symbol == "" {
		return
	}
	key := strings.ToUpper(info.Symbol)
	if _, ok := r.symbols[key]; !ok {
		r.symbols[key] = info
	}
}

func factoryFee(f *Factory, cfg PoolConfig) Fee {
	if cfg.FeeDenominator == 0 {
		return f.defaultFee
	}
	return Fee{Numerator: cfg.FeeNumerator, Denominator: cfg.FeeDenominator}
}

func seedPair(pair *Pair, mintA solana.PublicKey, rawA, rawB string, lpOwner solana.PublicKey, funder Funder) error {
	amountA, ok := new(big.Int).SetString(rawA, 10)
	if !ok || amountA.Sign() <= 0 {
		return fmt.Errorf("invalid seed_reserve_a %q", rawA)
	}
	amountB, ok := new(big.Int).SetString(rawB, 10)
	if !ok || amountB.Sign() <= 0 {
		return fmt.Errorf("invalid seed_reserve_b %q", rawB)
	}

	amount0, amount1 := amountA, amountB
	if !pair.Asset0().Equals(mintA) {
		amount0, amount1 = amountB, amountA
	}

	_, err := SeedPair(pair, amount0, amount1, lpOwner, funder)
	return err
}

// SeedPair adds liquidity to pair on behalf of lpOwner and credits the same
// amounts to the pool's custody account through funder, which may be nil.
func SeedPair(pair *Pair, amount0, amount1 *big.Int, lpOwner solana.PublicKey, funder Funder) (*big.Int, error) {
	if amount0 == nil || amount1 == nil || amount0.Sign() <= 0 || amount1.Sign() <= 0 {
		return nil, ErrInsufficientInputAmount
	}

	// Custody is credited while the pair is locked, so no zap can see the
	// new reserves before the pool account holds them.
	tx := pair.Begin()
	defer tx.Rollback()

	shares, err := tx.Mint(amount0, amount1, lpOwner)
	if err != nil {
		return nil, fmt.Errorf("seed liquidity: %w", err)
	}

	if funder != nil {
		if err := funder.Deposit(pair.Address(), pair.Asset0(), amount0); err != nil {
			return nil, fmt.Errorf("fund pool asset0: %w", err)
		}
		if err := funder.Deposit(pair.Address(), pair.Asset1(), amount1); err != nil {
			return nil, fmt.Errorf("fund pool asset1: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return shares, nil
}

// FindPoolByAssets searches for a pool matching the given token pair
func (r *PoolRegistry) FindPoolByAssets(mintA, mintB solana.PublicKey) (*Pair, error) {
	return r.factory.GetPair(mintA, mintB)
}

// FindPoolByName searches for a pool by its name
func (r *PoolRegistry) FindPoolByName(name string) (*Pair, error) {
	pair, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPairNotFound, name)
	}
	return pair, nil
}

// FindPoolByAddress resolves any pair of the underlying factory, configured or not.
func (r *PoolRegistry) FindPoolByAddress(addr solana.PublicKey) (*Pair, error) {
	return r.factory.PairByAddress(addr)
}

// GetAllPools returns all configured pools
func (r *PoolRegistry) GetAllPools() []*Pair {
	return r.pools
}

// PoolCount returns the number of configured pools
func (r *PoolRegistry) PoolCount() int {
	return len(r.pools)
}

// AssetInfo returns the symbol and decimals of a configured mint.
func (r *PoolRegistry) AssetInfo(mint solana.PublicKey) (AssetInfo, bool) {
	info, ok := r.assets[mint]
	return info, ok
}

// FindAssetBySymbol resolves a configured symbol to its mint, ignoring case.
// A symbol shared by several mints resolves to the first one configured.
func (r *PoolRegistry) FindAssetBySymbol(symbol string) (AssetInfo, bool) {
	info, ok := r.symbols[strings.ToUpper(strings.TrimSpace(symbol))]
	return info, ok
}
