package entities

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Account holds the spendable balance of a participant
type Account struct {
	Address   common.Address `db:"address"`
	Balance   int64          `db:"balance"`
	Frozen    bool           `db:"frozen"` // Frozen accounts can neither pay nor receive
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

// CanPay returns true if the account can cover the amount
func (a *Account) CanPay(amount int64) bool {
	return !a.Frozen && a.Balance >= amount
}

// CanReceive returns true if the account accepts incoming funds
func (a *Account) CanReceive() bool {
	return !a.Frozen
}
