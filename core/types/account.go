package types

import "math/big"

// Account holds the native-currency balance tracked for a principal. The
// settlement currency used by the marketplace and the escrow vault is the
// native balance; module tokens keep their own ledgers.
type Account struct {
	Balance *big.Int `json:"balance"`
}

// Normalize returns the account with a non-nil balance so callers can operate
// on it without nil checks. A nil receiver yields a fresh zero-balance account.
func (a *Account) Normalize() *Account {
	if a == nil {
		return &Account{Balance: big.NewInt(0)}
	}
	if a.Balance == nil {
		a.Balance = big.NewInt(0)
	}
	return a
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() *Account {
	if a == nil {
		return &Account{Balance: big.NewInt(0)}
	}
	clone := &Account{Balance: big.NewInt(0)}
	if a.Balance != nil {
		clone.Balance = new(big.Int).Set(a.Balance)
	}
	return clone
}
