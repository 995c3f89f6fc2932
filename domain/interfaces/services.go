package interfaces

import (
	"context"
	"math/big"
	"time"

	"raffle/domain/entities"

	"github.com/ethereum/go-ethereum/common"
)

// RaffleService defines the raffle state machine
type RaffleService interface {
	// CreateRaffle validates the construction parameters and stores a new open raffle
	CreateRaffle(ctx context.Context, params CreateRaffleParams) (*entities.Raffle, error)

	// Enter records a paid entry; the raffle must be open and the fee covered
	Enter(ctx context.Context, raffleID int64, player common.Address, paidAmount int64) (*EnterResult, error)

	// CheckUpkeep reports whether settlement is due without changing anything
	CheckUpkeep(ctx context.Context, raffleID int64) (*entities.UpkeepCheck, error)

	// PerformUpkeep moves an eligible raffle to calculating and requests randomness
	PerformUpkeep(ctx context.Context, raffleID int64) (*UpkeepResult, error)

	RandomnessConsumer

	// Read accessors
	GetRaffle(ctx context.Context, raffleID int64) (*entities.Raffle, error)
	GetPlayer(ctx context.Context, raffleID int64, index int64) (common.Address, error)
	GetPlayers(ctx context.Context, raffleID int64) ([]common.Address, error)
	GetNumberOfPlayers(ctx context.Context, raffleID int64) (int64, error)
	GetRecentWinner(ctx context.Context, raffleID int64) (*common.Address, error)
	GetLatestTimestamp(ctx context.Context, raffleID int64) (time.Time, error)
	GetRecentWinners(ctx context.Context, raffleID int64, limit int) ([]*entities.RaffleWinner, error)
}

// RandomnessConsumer receives fulfilled random words from the coordinator
type RandomnessConsumer interface {
	FulfillRandomWords(ctx context.Context, raffleID, requestID int64, randomWords []*big.Int) (*SettlementResult, error)
}

// RandomnessCoordinator accepts randomness requests; the answer arrives later
// through RandomnessConsumer.FulfillRandomWords
type RandomnessCoordinator interface {
	RequestRandomWords(ctx context.Context, request RandomWordsRequest) (requestID int64, err error)
}

// FundsTransfer moves value between participant accounts and the raffle pool
type FundsTransfer interface {
	// Collect debits the payer; it fails without side effects if the payer cannot cover the amount
	Collect(ctx context.Context, from common.Address, amount int64, raffleID int64, metadata map[string]any) (*entities.BalanceHistory, error)

	// Pay credits the recipient; it fails without side effects if the recipient cannot accept funds
	Pay(ctx context.Context, to common.Address, amount int64, raffleID int64, metadata map[string]any) (*entities.BalanceHistory, error)
}

// WalletService defines account operations used by operators
type WalletService interface {
	FundsTransfer

	// Deposit credits an account, creating it if needed
	Deposit(ctx context.Context, address common.Address, amount int64) (*entities.Account, error)

	// SetFrozen blocks or unblocks an account
	SetFrozen(ctx context.Context, address common.Address, frozen bool) error

	// GetAccount returns the account or nil
	GetAccount(ctx context.Context, address common.Address) (*entities.Account, error)
}

// CreateRaffleParams holds the immutable construction inputs of a raffle
type CreateRaffleParams struct {
	Name                 string
	EntranceFee          int64
	Interval             time.Duration
	KeyHash              common.Hash
	SubscriptionID       int64
	CallbackGasLimit     uint32
	RequestConfirmations uint16
	NumWords             uint32
}

// RandomWordsRequest is the configuration sent with a randomness request
type RandomWordsRequest struct {
	KeyHash              common.Hash
	SubscriptionID       int64
	MinimumConfirmations uint16
	CallbackGasLimit     uint32
	NumWords             uint32
	RaffleID             int64
}

// EnterResult contains the outcome of an accepted entry
type EnterResult struct {
	Raffle *entities.Raffle
	Entry  *entities.RaffleEntry
}

// UpkeepResult contains the outcome of a started settlement
type UpkeepResult struct {
	Raffle    *entities.Raffle
	RequestID int64
}

// SettlementResult contains the outcome of a fulfilled settlement
type SettlementResult struct {
	Raffle      *entities.Raffle
	Winner      common.Address
	WinnerIndex int
	Payout      int64
	RequestID   int64
	Round       int64
}
