package amm

import (
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
)

// PoolMeta carries display information attached by the registry.
type PoolMeta struct {
	Name      string
	Symbol0   string
	Symbol1   string
	Decimals0 uint8
	Decimals1 uint8
}

// Snapshot is a consistent copy of a pair's state.
type Snapshot struct {
	Address     solana.PublicKey
	Name        string
	Asset0      solana.PublicKey
	Asset1      solana.PublicKey
	Reserve0    *big.Int
	Reserve1    *big.Int
	TotalSupply *big.Int
	Fee         Fee
	UpdatedAt   time.Time
}

// GetReserves returns reserves in the correct order for a swap direction
func (s *Snapshot) GetReserves(aToB bool) (reserveIn, reserveOut *big.Int) {
	if aToB {
		return s.Reserve0, s.Reserve1
	}
	return s.Reserve1, s.Reserve0
}

type pairState struct {
	reserve0    *big.Int
	reserve1    *big.Int
	totalSupply *big.Int
	balances    map[solana.PublicKey]*big.Int
	updatedAt   time.Time
}

func newPairState() pairState {
	return pairState{
		reserve0:    new(big.Int),
		reserve1:    new(big.Int),
		totalSupply: new(big.Int),
		balances:    make(map[solana.PublicKey]*big.Int),
	}
}

func (s pairState) clone() pairState {
	out := pairState{
		reserve0:    new(big.Int).Set(s.reserve0),
		reserve1:    new(big.Int).Set(s.reserve1),
		totalSupply: new(big.Int).Set(s.totalSupply),
		balances:    make(map[solana.PublicKey]*big.Int, len(s.balances)),
		updatedAt:   s.updatedAt,
	}
	for k, v := range s.balances {
		out.balances[k] = new(big.Int).Set(v)
	}
	return out
}

func (s pairState) credit(owner solana.PublicKey, amount *big.Int) {
	bal, ok := s.balances[owner]
	if !ok {
		bal = new(big.Int)
		s.balances[owner] = bal
	}
	bal.Add(bal, amount)
	s.totalSupply.Add(s.totalSupply, amount)
}

// Pair is an in-process constant-product pool over two assets stored in
// canonical byte order. All mutation goes through a PairTx, which holds the
// pair lock from Begin until Commit or Rollback.
type Pair struct {
	mu      sync.Mutex
	address solana.PublicKey
	asset0  solana.PublicKey
	asset1  solana.PublicKey
	fee     Fee

	metaMu sync.RWMutex
	meta   PoolMeta

	state pairState
}

func newPair(address, asset0, asset1 solana.PublicKey, fee Fee) *Pair {
	return &Pair{
		address: address,
		asset0:  asset0,
		asset1:  asset1,
		fee:     fee,
		state:   newPairState(),
	}
}

func (p *Pair) Address() solana.PublicKey { return p.address }
func (p *Pair) Asset0() solana.PublicKey  { return p.asset0 }
func (p *Pair) Asset1() solana.PublicKey  { return p.asset1 }
func (p *Pair) Fee() Fee                  { return p.fee }

// Contains reports whether asset is one of the pair's two assets.
func (p *Pair) Contains(asset solana.PublicKey) bool {
	return asset.Equals(p.asset0) || asset.Equals(p.asset1)
}

// Direction reports whether assetIn is asset0 (a swap 0 -> 1).
func (p *Pair) Direction(assetIn solana.PublicKey) (bool, error) {
	if assetIn.Equals(p.asset0) {
		return true, nil
	}
	if assetIn.Equals(p.asset1) {
		return false, nil
	}
	return false, fmt.Errorf("%w: %s not in %s", ErrInvalidAsset, assetIn, p.address)
}

// Other returns the counter-asset of asset.
func (p *Pair) Other(asset solana.PublicKey) (solana.PublicKey, error) {
	aToB, err := p.Direction(asset)
	if err != nil {
		return solana.PublicKey{}, err
	}
	if aToB {
		return p.asset1, nil
	}
	return p.asset0, nil
}

func (p *Pair) Meta() PoolMeta {
	p.metaMu.RLock()
	defer p.metaMu.RUnlock()
	return p.meta
}

func (p *Pair) SetMeta(meta PoolMeta) {
	p.metaMu.Lock()
	defer p.metaMu.Unlock()
	p.meta = meta
}

// Snapshot returns the committed state. It waits for any open transaction,
// so callers never see a half-applied zap.
func (p *Pair) Snapshot() *Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked(p.state)
}

func (p *Pair) snapshotLocked(s pairState) *Snapshot {
	return &Snapshot{
		Address:     p.address,
		Name:        p.Meta().Name,
		Asset0:      p.asset0,
		Asset1:      p.asset1,
		Reserve0:    new(big.Int).Set(s.reserve0),
		Reserve1:    new(big.Int).Set(s.reserve1),
		TotalSupply: new(big.Int).Set(s.totalSupply),
		Fee:         p.fee,
		UpdatedAt:   s.updatedAt,
	}
}

// BalanceOf returns the LP share balance of owner.
func (p *Pair) BalanceOf(owner solana.PublicKey) *big.Int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if bal, ok := p.state.balances[owner]; ok {
		return new(big.Int).Set(bal)
	}
	return new(big.Int)
}

// Begin locks the pair and opens a transaction over a private copy of its state.
func (p *Pair) Begin() *PairTx {
	p.mu.Lock()
	return &PairTx{pair: p, state: p.state.clone()}
}

// PairTx is an open transaction on a pair. Writes are applied to a private
// copy and become visible only on Commit.
type PairTx struct {
	pair  *Pair
	state pairState
	done  bool
}

func (tx *PairTx) Pair() *Pair { return tx.pair }

// Reserves returns copies of the transaction's current reserves.
func (tx *PairTx) Reserves() (reserve0, reserve1 *big.Int) {
	return new(big.Int).Set(tx.state.reserve0), new(big.Int).Set(tx.state.reserve1)
}

func (tx *PairTx) TotalSupply() *big.Int {
	return new(big.Int).Set(tx.state.totalSupply)
}

// Snapshot returns the transaction's uncommitted view.
func (tx *PairTx) Snapshot() *Snapshot {
	return tx.pair.snapshotLocked(tx.state)
}

// Swap sells amountIn of assetIn and returns the output amount, failing with
// ErrInsufficientOutputAmount when it is below minAmountOut.
func (tx *PairTx) Swap(assetIn solana.PublicKey, amountIn, minAmountOut *big.Int) (*big.Int, error) {
	if tx.done {
		return nil, ErrTxClosed
	}
	aToB, err := tx.pair.Direction(assetIn)
	if err != nil {
		return nil, err
	}

	reserveIn, reserveOut := tx.state.reserve1, tx.state.reserve0
	if aToB {
		reserveIn, reserveOut = tx.state.reserve0, tx.state.reserve1
	}

	amountOut, err := GetAmountOut(amountIn, reserveIn, reserveOut, tx.pair.fee)
	if err != nil {
		return nil, err
	}
	if amountOut.Sign() <= 0 {
		return nil, ErrInsufficientOutputAmount
	}
	if minAmountOut != nil && amountOut.Cmp(minAmountOut) < 0 {
		return nil, fmt.Errorf("%w: got %s, want at least %s", ErrInsufficientOutputAmount, amountOut, minAmountOut)
	}
	if amountOut.Cmp(reserveOut) >= 0 {
		return nil, ErrInsufficientLiquidity
	}

	balanceIn := new(big.Int).Add(reserveIn, amountIn)
	balanceOut := new(big.Int).Sub(reserveOut, amountOut)
	if err := checkK(reserveIn, reserveOut, balanceIn, balanceOut, amountIn, tx.pair.fee); err != nil {
		return nil, err
	}

	reserveIn.Set(balanceIn)
	reserveOut.Set(balanceOut)
	tx.state.updatedAt = time.Now().UTC()

	return amountOut, nil
}

// checkK verifies the fee-adjusted product did not decrease.
func checkK(reserveIn, reserveOut, balanceIn, balanceOut, amountIn *big.Int, fee Fee) error {
	feeNum := new(big.Int).SetUint64(fee.Numerator)
	denom := new(big.Int).SetUint64(fee.Denominator)

	adjustedIn := new(big.Int).Mul(balanceIn, denom)
	adjustedIn.Sub(adjustedIn, new(big.Int).Mul(amountIn, feeNum))
	adjustedOut := new(big.Int).Mul(balanceOut, denom)

	lhs := adjustedIn.Mul(adjustedIn, adjustedOut)
	rhs := new(big.Int).Mul(reserveIn, reserveOut)
	rhs.Mul(rhs, denom)
	rhs.Mul(rhs, denom)

	if lhs.Cmp(rhs) < 0 {
		return ErrK
	}
	return nil
}

// Mint adds amount0/amount1 to the reserves and credits LP shares to `to`.
// The first mint locks MinimumLiquidity to the zero account.
func (tx *PairTx) Mint(amount0, amount1 *big.Int, to solana.PublicKey) (*big.Int, error) {
	if tx.done {
		return nil, ErrTxClosed
	}
	if amount0 == nil || amount1 == nil || amount0.Sign() < 0 || amount1.Sign() < 0 {
		return nil, ErrInsufficientInputAmount
	}

	s := tx.state
	var liquidity *big.Int
	if s.totalSupply.Sign() == 0 {
		liquidity = Sqrt(new(big.Int).Mul(amount0, amount1))
		liquidity.Sub(liquidity, big.NewInt(MinimumLiquidity))
		if liquidity.Sign() <= 0 {
			return nil, ErrInsufficientLiquidityMinted
		}
		s.credit(solana.PublicKey{}, big.NewInt(MinimumLiquidity))
	} else {
		if s.reserve0.Sign() <= 0 || s.reserve1.Sign() <= 0 {
			return nil, ErrInsufficientLiquidity
		}
		l0 := new(big.Int).Mul(amount0, s.totalSupply)
		l0.Div(l0, s.reserve0)
		l1 := new(big.Int).Mul(amount1, s.totalSupply)
		l1.Div(l1, s.reserve1)
		liquidity = l0
		if l1.Cmp(l0) < 0 {
			liquidity = l1
		}
		if liquidity.Sign() <= 0 {
			return nil, ErrInsufficientLiquidityMinted
		}
	}

	s.credit(to, liquidity)
	s.reserve0.Add(s.reserve0, amount0)
	s.reserve1.Add(s.reserve1, amount1)
	tx.state.updatedAt = time.Now().UTC()

	return new(big.Int).Set(liquidity), nil
}

// Commit publishes the transaction's state and releases the pair lock.
func (tx *PairTx) Commit() error {
	if tx.done {
		return ErrTxClosed
	}
	tx.done = true
	tx.pair.state = tx.state
	tx.pair.mu.Unlock()
	return nil
}

// Rollback discards the transaction and releases the pair lock. It is a
// no-op after Commit, so it is safe to defer.
func (tx *PairTx) Rollback() {
	if tx.done {
		return
	}
	tx.done = true
	tx.pair.mu.Unlock()
}
