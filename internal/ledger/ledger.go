package ledger

import (
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidAmount         = errors.New("amount must be > 0")
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrHoldNotActive         = errors.New("hold is not active")
	ErrHoldExceeded          = errors.New("transfers exceed held amount")
)

// Transfer moves Amount of Asset between two accounts.
type Transfer struct {
	From   solana.PublicKey
	To     solana.PublicKey
	Asset  solana.PublicKey
	Amount *big.Int
}

// Hold is a reservation of an owner's funds on behalf of a spender. Held
// funds still count in BalanceOf but are excluded from Available.
type Hold struct {
	ID        string
	Owner     solana.PublicKey
	Spender   solana.PublicKey
	Asset     solana.PublicKey
	Amount    *big.Int
	CreatedAt time.Time
}

type balanceKey struct {
	owner solana.PublicKey
	asset solana.PublicKey
}

type allowanceKey struct {
	owner   solana.PublicKey
	spender solana.PublicKey
	asset   solana.PublicKey
}

// Ledger is an in-process token custody with ERC20-style allowances and
// prepare/commit/abort holds.
type Ledger struct {
	mu         sync.Mutex
	balances   map[balanceKey]*big.Int
	allowances map[allowanceKey]*big.Int
	held       map[balanceKey]*big.Int
	holds      map[string]*Hold
	seq        uint64
	logger     *logrus.Logger
}

func New(logger *logrus.Logger) *Ledger {
	if logger == nil {
		logger = logrus.New()
	}
	return &Ledger{
		balances:   make(map[balanceKey]*big.Int),
		allowances: make(map[allowanceKey]*big.Int),
		held:       make(map[balanceKey]*big.Int),
		holds:      make(map[string]*Hold),
		logger:     logger,
	}
}

func amountOf(m map[balanceKey]*big.Int, k balanceKey) *big.Int {
	if v, ok := m[k]; ok {
		return v
	}
	return new(big.Int)
}

func validAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Deposit mints amount of asset into owner's account.
func (l *Ledger) Deposit(owner, asset solana.PublicKey, amount *big.Int) error {
	if err := validAmount(amount); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	k := balanceKey{owner, asset}
	l.balances[k] = new(big.Int).Add(amountOf(l.balances, k), amount)
	return nil
}

// BalanceOf returns the full balance, including held funds.
func (l *Ledger) BalanceOf(owner, asset solana.PublicKey) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(amountOf(l.balances, balanceKey{owner, asset}))
}

// Available returns the balance not reserved by active holds.
func (l *Ledger) Available(owner, asset solana.PublicKey) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.availableLocked(balanceKey{owner, asset})
}

func (l *Ledger) availableLocked(k balanceKey) *big.Int {
	return new(big.Int).Sub(amountOf(l.balances, k), amountOf(l.held, k))
}

// Approve sets the amount spender may move out of owner's account.
func (l *Ledger) Approve(owner, spender, asset solana.PublicKey, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.allowances[allowanceKey{owner, spender, asset}] = new(big.Int).Set(amount)
	return nil
}

func (l *Ledger) Allowance(owner, spender, asset solana.PublicKey) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(l.allowanceLocked(owner, spender, asset))
}

func (l *Ledger) allowanceLocked(owner, spender, asset solana.PublicKey) *big.Int {
	if v, ok := l.allowances[allowanceKey{owner, spender, asset}]; ok {
		return v
	}
	return new(big.Int)
}

// Transfer moves funds immediately. The sender's held funds cannot be spent.
func (l *Ledger) Transfer(t Transfer) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	staged := make(map[balanceKey]*big.Int)
	if err := l.stageLocked(staged, t); err != nil {
		return err
	}
	l.applyLocked(staged)
	return nil
}

// Check verifies that spender could hold amount of owner's asset right now.
func (l *Ledger) Check(owner, spender, asset solana.PublicKey, amount *big.Int) error {
	if err := validAmount(amount); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.checkLocked(owner, spender, asset, amount)
}

func (l *Ledger) checkLocked(owner, spender, asset solana.PublicKey, amount *big.Int) error {
	if avail := l.availableLocked(balanceKey{owner, asset}); avail.Cmp(amount) < 0 {
		return fmt.Errorf("%w: available %s, need %s", ErrInsufficientBalance, avail, amount)
	}
	if owner.Equals(spender) {
		return nil
	}
	if allowance := l.allowanceLocked(owner, spender, asset); allowance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: allowance %s, need %s", ErrInsufficientAllowance, allowance, amount)
	}
	return nil
}

// Hold reserves amount of owner's asset for spender. Nothing moves until Settle.
func (l *Ledger) Hold(owner, spender, asset solana.PublicKey, amount *big.Int) (*Hold, error) {
	if err := validAmount(amount); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.checkLocked(owner, spender, asset, amount); err != nil {
		return nil, err
	}

	l.seq++
	h := &Hold{
		ID:        fmt.Sprintf("hold-%d", l.seq),
		Owner:     owner,
		Spender:   spender,
		Asset:     asset,
		Amount:    new(big.Int).Set(amount),
		CreatedAt: time.Now().UTC(),
	}

	k := balanceKey{owner, asset}
	l.held[k] = new(big.Int).Add(amountOf(l.held, k), amount)
	l.holds[h.ID] = h

	l.logger.WithFields(logrus.Fields{
		"hold":   h.ID,
		"owner":  owner.String(),
		"asset":  asset.String(),
		"amount": amount.String(),
	}).Debug("funds held")

	return h, nil
}

// Settle consumes the hold and applies transfers as one unit: either every
// transfer lands or none does and the hold stays active. Transfers out of the
// hold owner's held asset may not exceed the held amount.
func (l *Ledger) Settle(h *Hold, transfers []Transfer) error {
	if h == nil {
		return ErrHoldNotActive
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	active, ok := l.holds[h.ID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrHoldNotActive, h.ID)
	}

	spent := new(big.Int)
	for _, t := range transfers {
		if t.From.Equals(active.Owner) && t.Asset.Equals(active.Asset) && t.Amount != nil {
			spent.Add(spent, t.Amount)
		}
	}
	if spent.Cmp(active.Amount) > 0 {
		return fmt.Errorf("%w: %s > %s", ErrHoldExceeded, spent, active.Amount)
	}

	// Release the reservation inside the staging area only.
	heldKey := balanceKey{active.Owner, active.Asset}
	l.held[heldKey] = new(big.Int).Sub(amountOf(l.held, heldKey), active.Amount)

	staged := make(map[balanceKey]*big.Int)
	for i, t := range transfers {
		if err := l.stageLocked(staged, t); err != nil {
			l.held[heldKey].Add(l.held[heldKey], active.Amount)
			return fmt.Errorf("transfer %d: %w", i, err)
		}
	}

	l.applyLocked(staged)
	if l.held[heldKey].Sign() == 0 {
		delete(l.held, heldKey)
	}
	if !active.Owner.Equals(active.Spender) {
		ak := allowanceKey{active.Owner, active.Spender, active.Asset}
		remaining := new(big.Int).Sub(l.allowanceLocked(active.Owner, active.Spender, active.Asset), spent)
		l.allowances[ak] = remaining
	}
	delete(l.holds, active.ID)

	l.logger.WithFields(logrus.Fields{
		"hold":      active.ID,
		"transfers": len(transfers),
		"spent":     spent.String(),
	}).Debug("hold settled")

	return nil
}

// Release aborts a hold and frees the reserved funds.
func (l *Ledger) Release(h *Hold) error {
	if h == nil {
		return ErrHoldNotActive
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	active, ok := l.holds[h.ID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrHoldNotActive, h.ID)
	}

	k := balanceKey{active.Owner, active.Asset}
	remaining := new(big.Int).Sub(amountOf(l.held, k), active.Amount)
	if remaining.Sign() == 0 {
		delete(l.held, k)
	} else {
		l.held[k] = remaining
	}
	delete(l.holds, active.ID)

	l.logger.WithField("hold", active.ID).Debug("hold released")
	return nil
}

// ActiveHolds returns the number of holds not yet settled or released.
func (l *Ledger) ActiveHolds() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.holds)
}

// stageLocked applies t to the staged balances, reading through to the
// committed ones.
func (l *Ledger) stageLocked(staged map[balanceKey]*big.Int, t Transfer) error {
	if err := validAmount(t.Amount); err != nil {
		return err
	}

	from := balanceKey{t.From, t.Asset}
	to := balanceKey{t.To, t.Asset}

	fromBal, ok := staged[from]
	if !ok {
		fromBal = new(big.Int).Set(amountOf(l.balances, from))
		staged[from] = fromBal
	}
	avail := new(big.Int).Sub(fromBal, amountOf(l.held, from))
	if avail.Cmp(t.Amount) < 0 {
		return fmt.Errorf("%w: %s has %s of %s, need %s", ErrInsufficientBalance, t.From, avail, t.Asset, t.Amount)
	}
	fromBal.Sub(fromBal, t.Amount)

	toBal, ok := staged[to]
	if !ok {
		toBal = new(big.Int).Set(amountOf(l.balances, to))
		staged[to] = toBal
	}
	toBal.Add(toBal, t.Amount)
	return nil
}

func (l *Ledger) applyLocked(staged map[balanceKey]*big.Int) {
	for k, v := range staged {
		if v.Sign() == 0 {
			delete(l.balances, k)
			continue
		}
		l.balances[k] = v
	}
}
