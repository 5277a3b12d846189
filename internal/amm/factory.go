package amm

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
)

const pairSeed = "pair"

// SortAssets returns the two assets in canonical byte order.
func SortAssets(a, b solana.PublicKey) (solana.PublicKey, solana.PublicKey, error) {
	if a.Equals(b) {
		return solana.PublicKey{}, solana.PublicKey{}, ErrIdenticalAssets
	}
	if a.IsZero() || b.IsZero() {
		return solana.PublicKey{}, solana.PublicKey{}, ErrZeroAsset
	}
	if bytes.Compare(a[:], b[:]) < 0 {
		return a, b, nil
	}
	return b, a, nil
}

type pairKey [2]solana.PublicKey

// Factory creates pairs and resolves them by asset pair or by address.
type Factory struct {
	mu         sync.RWMutex
	programID  solana.PublicKey
	defaultFee Fee
	pairs      map[pairKey]*Pair
	byAddress  map[solana.PublicKey]*Pair
	all        []*Pair
}

// NewFactory creates an empty factory. Pair addresses are program-derived
// from programID.
func NewFactory(programID solana.PublicKey, defaultFee Fee) (*Factory, error) {
	if err := defaultFee.Validate(); err != nil {
		return nil, err
	}
	return &Factory{
		programID:  programID,
		defaultFee: defaultFee,
		pairs:      make(map[pairKey]*Pair),
		byAddress:  make(map[solana.PublicKey]*Pair),
	}, nil
}

func (f *Factory) ProgramID() solana.PublicKey { return f.programID }

// PairAddress derives the deterministic address of the a/b pair.
func (f *Factory) PairAddress(a, b solana.PublicKey) (solana.PublicKey, error) {
	asset0, asset1, err := SortAssets(a, b)
	if err != nil {
		return solana.PublicKey{}, err
	}
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(pairSeed), asset0[:], asset1[:]},
		f.programID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive pair address: %w", err)
	}
	return addr, nil
}

// CreatePair creates an empty pair using the factory's default fee.
func (f *Factory) CreatePair(a, b solana.PublicKey) (*Pair, error) {
	return f.CreatePairWithFee(a, b, f.defaultFee)
}

// CreatePairWithFee creates an empty pair with an explicit fee.
func (f *Factory) CreatePairWithFee(a, b solana.PublicKey, fee Fee) (*Pair, error) {
	if err := fee.Validate(); err != nil {
		return nil, err
	}
	asset0, asset1, err := SortAssets(a, b)
	if err != nil {
		return nil, err
	}
	addr, err := f.PairAddress(asset0, asset1)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	key := pairKey{asset0, asset1}
	if _, ok := f.pairs[key]; ok {
		return nil, fmt.Errorf("%w: %s / %s", ErrPairExists, asset0, asset1)
	}

	pair := newPair(addr, asset0, asset1, fee)
	f.pairs[key] = pair
	f.byAddress[addr] = pair
	f.all = append(f.all, pair)
	return pair, nil
}

// GetPair searches for the pair of the two assets in either order.
func (f *Factory) GetPair(a, b solana.PublicKey) (*Pair, error) {
	asset0, asset1, err := SortAssets(a, b)
	if err != nil {
		return nil, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	pair, ok := f.pairs[pairKey{asset0, asset1}]
	if !ok {
		return nil, fmt.Errorf("%w: %s / %s", ErrPairNotFound, a, b)
	}
	return pair, nil
}

// PairByAddress resolves a pair by its derived address.
func (f *Factory) PairByAddress(addr solana.PublicKey) (*Pair, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	pair, ok := f.byAddress[addr]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPairNotFound, addr)
	}
	return pair, nil
}

// AllPairs returns pairs in creation order.
func (f *Factory) AllPairs() []*Pair {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]*Pair, len(f.all))
	copy(out, f.all)
	return out
}

func (f *Factory) PairCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.all)
}
