package entities

// TransactionType represents the type of balance change
type TransactionType string

// All transaction types supported by the system
const (
	// Raffle transactions
	TransactionTypeRaffleEntry TransactionType = "raffle_entry"
	TransactionTypeRaffleWin   TransactionType = "raffle_win"

	// Account funding
	TransactionTypeDeposit    TransactionType = "deposit"
	TransactionTypeWithdrawal TransactionType = "withdrawal"
)

// IsRaffleType returns true if the transaction was made by a raffle
func (tt TransactionType) IsRaffleType() bool {
	return tt == TransactionTypeRaffleEntry ||
		tt == TransactionTypeRaffleWin
}

// IsFundingType returns true if the transaction moved funds in or out of the system
func (tt TransactionType) IsFundingType() bool {
	return tt == TransactionTypeDeposit ||
		tt == TransactionTypeWithdrawal
}

// String returns the string representation of the transaction type
func (tt TransactionType) String() string {
	return string(tt)
}
