package amm

import (
	"bytes"
	"encoding/json"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortAssets(t *testing.T) {
	a, b := newKey(), newKey()

	x0, x1, err := SortAssets(a, b)
	require.NoError(t, err)
	y0, y1, err := SortAssets(b, a)
	require.NoError(t, err)

	assert.Equal(t, x0, y0)
	assert.Equal(t, x1, y1)
	assert.Negative(t, bytes.Compare(x0[:], x1[:]))

	_, _, err = SortAssets(a, a)
	assert.ErrorIs(t, err, ErrIdenticalAssets)

	_, _, err = SortAssets(a, solana.PublicKey{})
	assert.ErrorIs(t, err, ErrZeroAsset)
}

func TestFactory_CreateAndLookup(t *testing.T) {
	f := newTestFactory(t)
	a, b := newKey(), newKey()

	pair, err := f.CreatePair(a, b)
	require.NoError(t, err)

	addr, err := f.PairAddress(b, a)
	require.NoError(t, err)
	assert.Equal(t, addr, pair.Address())

	got, err := f.GetPair(b, a)
	require.NoError(t, err)
	assert.Same(t, pair, got)

	got, err = f.PairByAddress(pair.Address())
	require.NoError(t, err)
	assert.Same(t, pair, got)

	assert.Equal(t, 1, f.PairCount())
	assert.Len(t, f.AllPairs(), 1)
	assert.Equal(t, DefaultFee, pair.Fee())
}

func TestFactory_DuplicatePair(t *testing.T) {
	f := newTestFactory(t)
	a, b := newKey(), newKey()

	_, err := f.CreatePair(a, b)
	require.NoError(t, err)

	_, err = f.CreatePair(b, a)
	assert.ErrorIs(t, err, ErrPairExists)
}

func TestFactory_NotFound(t *testing.T) {
	f := newTestFactory(t)

	_, err := f.GetPair(newKey(), newKey())
	assert.ErrorIs(t, err, ErrPairNotFound)

	_, err = f.PairByAddress(newKey())
	assert.ErrorIs(t, err, ErrPairNotFound)
}

func TestFactory_RejectsBadFee(t *testing.T) {
	_, err := NewFactory(newKey(), Fee{Numerator: 5, Denominator: 5})
	assert.ErrorIs(t, err, ErrInvalidFee)

	f := newTestFactory(t)
	_, err = f.CreatePairWithFee(newKey(), newKey(), Fee{})
	assert.ErrorIs(t, err, ErrInvalidFee)
}

func TestFactory_NewPairIsEmpty(t *testing.T) {
	pair, err := newTestFactory(t).CreatePair(newKey(), newKey())
	require.NoError(t, err)

	snap := pair.Snapshot()
	assert.Zero(t, snap.Reserve0.Sign())
	assert.Zero(t, snap.Reserve1.Sign())
	assert.Zero(t, snap.TotalSupply.Sign())
}

type recordingFunder struct {
	deposits map[[2]solana.PublicKey]*big.Int
}

func (f *recordingFunder) Deposit(owner, asset solana.PublicKey, amount *big.Int) error {
	if f.deposits == nil {
		f.deposits = make(map[[2]solana.PublicKey]*big.Int)
	}
	f.deposits[[2]solana.PublicKey{owner, asset}] = new(big.Int).Set(amount)
	return nil
}

func writePoolConfigs(t *testing.T, configs []PoolConfig) string {
	t.Helper()
	data, err := json.Marshal(configs)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "pools.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestPoolRegistry_LoadAndSeed(t *testing.T) {
	weth, partner, usdc := newKey(), newKey(), newKey()
	path := writePoolConfigs(t, []PoolConfig{
		{
			Name:         "WETH-PARTNER",
			TokenMintA:   weth.String(),
			TokenMintB:   partner.String(),
			SymbolA:      "WETH",
			SymbolB:      "PARTNER",
			DecimalsA:    18,
			DecimalsB:    18,
			SeedReserveA: "20000000000000000000",
			SeedReserveB: "40000000000000000000",
		},
		{
			Name:           "PARTNER-USDC",
			TokenMintA:     partner.String(),
			TokenMintB:     usdc.String(),
			SymbolA:        "PARTNER",
			SymbolB:        "USDC",
			DecimalsA:      18,
			DecimalsB:      6,
			FeeNumerator:   1,
			FeeDenominator: 1000,
		},
	})

	configs, err := LoadPoolConfigs(path)
	require.NoError(t, err)
	require.Len(t, configs, 2)

	lpOwner := newKey()
	funder := &recordingFunder{}
	r, err := NewPoolRegistry(newTestFactory(t), configs, lpOwner, funder)
	require.NoError(t, err)
	assert.Equal(t, 2, r.PoolCount())

	seeded, err := r.FindPoolByName("WETH-PARTNER")
	require.NoError(t, err)
	aToB, err := seeded.Direction(weth)
	require.NoError(t, err)
	reserveIn, reserveOut := seeded.Snapshot().GetReserves(aToB)
	assert.Equal(t, e18(20).String(), reserveIn.String())
	assert.Equal(t, e18(40).String(), reserveOut.String())
	assert.Equal(t, "28284271247461899976", seeded.BalanceOf(lpOwner).String())
	assert.Equal(t, "WETH-PARTNER", seeded.Meta().Name)

	assert.Equal(t, e18(20).String(), funder.deposits[[2]solana.PublicKey{seeded.Address(), weth}].String())
	assert.Equal(t, e18(40).String(), funder.deposits[[2]solana.PublicKey{seeded.Address(), partner}].String())

	empty, err := r.FindPoolByAssets(usdc, partner)
	require.NoError(t, err)
	assert.Zero(t, empty.Snapshot().TotalSupply.Sign())
	assert.Equal(t, Fee{Numerator: 1, Denominator: 1000}, empty.Fee())

	byAddr, err := r.FindPoolByAddress(empty.Address())
	require.NoError(t, err)
	assert.Same(t, empty, byAddr)

	info, ok := r.AssetInfo(usdc)
	require.True(t, ok)
	assert.Equal(t, uint8(6), info.Decimals)

	info, ok = r.FindAssetBySymbol("WETH")
	require.True(t, ok)
	assert.Equal(t, weth, info.Mint)
	info, ok = r.FindAssetBySymbol(" usdc ")
	require.True(t, ok)
	assert.Equal(t, usdc, info.Mint)
	_, ok = r.FindAssetBySymbol("DOGE")
	assert.False(t, ok)

	_, err = r.FindPoolByName("missing")
	assert.ErrorIs(t, err, ErrPairNotFound)
}

func TestPoolRegistry_SymbolFirstMintWins(t *testing.T) {
	first, second, quote := newKey(), newKey(), newKey()
	r, err := NewPoolRegistry(newTestFactory(t), []PoolConfig{
		{Name: "A", TokenMintA: first.String(), TokenMintB: quote.String(), SymbolA: "TKN", SymbolB: "Q"},
		{Name: "B", TokenMintA: second.String(), TokenMintB: quote.String(), SymbolA: "tkn", SymbolB: "Q"},
	}, newKey(), nil)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		info, ok := r.FindAssetBySymbol("TKN")
		require.True(t, ok)
		assert.Equal(t, first, info.Mint)
	}
}

// lockCheckingFunder records whether the pair was locked during each deposit.
type lockCheckingFunder struct {
	pair     *Pair
	unlocked int
	failOn   solana.PublicKey
}

func (f *lockCheckingFunder) Deposit(_, asset solana.PublicKey, _ *big.Int) error {
	if f.pair.mu.TryLock() {
		f.unlocked++
		f.pair.mu.Unlock()
	}
	if asset.Equals(f.failOn) {
		return errors.New("ledger rejected deposit")
	}
	return nil
}

func TestSeedPair_FundsCustodyUnderPairLock(t *testing.T) {
	pair, err := newTestFactory(t).CreatePair(newKey(), newKey())
	require.NoError(t, err)

	funder := &lockCheckingFunder{pair: pair}
	shares, err := SeedPair(pair, big.NewInt(1000), big.NewInt(2000), newKey(), funder)
	require.NoError(t, err)
	assert.Equal(t, "414", shares.String())
	assert.Zero(t, funder.unlocked)

	// The lock is released once seeding commits.
	assert.Equal(t, "1000", pair.Snapshot().Reserve0.String())
}

func TestSeedPair_FundingFailureRollsBack(t *testing.T) {
	pair, err := newTestFactory(t).CreatePair(newKey(), newKey())
	require.NoError(t, err)

	funder := &lockCheckingFunder{pair: pair, failOn: pair.Asset1()}
	_, err = SeedPair(pair, big.NewInt(1000), big.NewInt(2000), newKey(), funder)
	assert.ErrorContains(t, err, "fund pool asset1")

	snap := pair.Snapshot()
	assert.Zero(t, snap.Reserve0.Sign())
	assert.Zero(t, snap.Reserve1.Sign())
	assert.Zero(t, snap.TotalSupply.Sign())
}

func TestPoolRegistry_InvalidConfigs(t *testing.T) {
	a, b := newKey().String(), newKey().String()

	tests := []struct {
		name string
		cfg  []PoolConfig
	}{
		{"missing name", []PoolConfig{{TokenMintA: a, TokenMintB: b}}},
		{"bad mint", []PoolConfig{{Name: "x", TokenMintA: "not-base58!", TokenMintB: b}}},
		{"identical mints", []PoolConfig{{Name: "x", TokenMintA: a, TokenMintB: a}}},
		{"bad seed", []PoolConfig{{Name: "x", TokenMintA: a, TokenMintB: b, SeedReserveA: "abc", SeedReserveB: "1"}}},
		{"one-sided seed", []PoolConfig{{Name: "x", TokenMintA: a, TokenMintB: b, SeedReserveA: "1000000"}}},
		{"duplicate name", []PoolConfig{
			{Name: "x", TokenMintA: a, TokenMintB: b},
			{Name: "x", TokenMintA: a, TokenMintB: newKey().String()},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPoolRegistry(newTestFactory(t), tt.cfg, newKey(), nil)
			assert.Error(t, err)
		})
	}
}

func TestLoadPoolConfigs_MissingFile(t *testing.T) {
	_, err := LoadPoolConfigs(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
