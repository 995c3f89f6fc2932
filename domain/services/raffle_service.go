package services

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"raffle/domain/entities"
	"raffle/domain/interfaces"
	"raffle/events"

	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"
)

const (
	// DefaultRequestConfirmations is how many confirmations the oracle waits for
	DefaultRequestConfirmations uint16 = 3

	// DefaultNumWords is the number of random words requested per settlement
	DefaultNumWords uint32 = 1
)

// raffleService implements the raffle state machine.
// Every method expects to run inside a single transaction; mutating methods
// lock the raffle row before evaluating any precondition.
type raffleService struct {
	raffleRepo     interfaces.RaffleRepository
	entryRepo      interfaces.RaffleEntryRepository
	winnerRepo     interfaces.RaffleWinnerRepository
	funds          interfaces.FundsTransfer
	coordinator    interfaces.RandomnessCoordinator
	eventPublisher interfaces.EventPublisher
	now            func() time.Time
}

// RaffleServiceOption customizes a raffle service
type RaffleServiceOption func(*raffleService)

// WithClock overrides the time source
func WithClock(now func() time.Time) RaffleServiceOption {
	return func(s *raffleService) {
		s.now = now
	}
}

// NewRaffleService creates a new raffle service
func NewRaffleService(
	raffleRepo interfaces.RaffleRepository,
	entryRepo interfaces.RaffleEntryRepository,
	winnerRepo interfaces.RaffleWinnerRepository,
	funds interfaces.FundsTransfer,
	coordinator interfaces.RandomnessCoordinator,
	eventPublisher interfaces.EventPublisher,
	opts ...RaffleServiceOption,
) interfaces.RaffleService {
	s := &raffleService{
		raffleRepo:     raffleRepo,
		entryRepo:      entryRepo,
		winnerRepo:     winnerRepo,
		funds:          funds,
		coordinator:    coordinator,
		eventPublisher: eventPublisher,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateRaffle validates the construction parameters and stores a new open raffle
func (s *raffleService) CreateRaffle(ctx context.Context, params interfaces.CreateRaffleParams) (*entities.Raffle, error) {
	if params.RequestConfirmations == 0 {
		params.RequestConfirmations = DefaultRequestConfirmations
	}
	if params.NumWords == 0 {
		params.NumWords = DefaultNumWords
	}
	if err := validateCreateParams(params); err != nil {
		return nil, err
	}

	raffle := &entities.Raffle{
		Name:                 params.Name,
		EntranceFee:          params.EntranceFee,
		Interval:             params.Interval,
		KeyHash:              params.KeyHash,
		SubscriptionID:       params.SubscriptionID,
		CallbackGasLimit:     params.CallbackGasLimit,
		RequestConfirmations: params.RequestConfirmations,
		NumWords:             params.NumWords,
		State:                entities.RaffleStateOpen,
		Round:                1,
		LastSettlementAt:     s.now(),
	}
	if err := s.raffleRepo.Create(ctx, raffle); err != nil {
		return nil, fmt.Errorf("failed to create raffle: %w", err)
	}

	log.WithFields(log.Fields{
		"raffleID":       raffle.ID,
		"name":           raffle.Name,
		"entranceFee":    raffle.EntranceFee,
		"interval":       raffle.Interval,
		"subscriptionID": raffle.SubscriptionID,
	}).Info("Raffle created")

	return raffle, nil
}

// Enter records a paid entry in the current round
func (s *raffleService) Enter(ctx context.Context, raffleID int64, player common.Address, paidAmount int64) (*interfaces.EnterResult, error) {
	raffle, err := s.lockRaffle(ctx, raffleID)
	if err != nil {
		return nil, err
	}

	if paidAmount < raffle.EntranceFee {
		return nil, fmt.Errorf("%w: paid %d, fee is %d", ErrInsufficientFee, paidAmount, raffle.EntranceFee)
	}
	if !raffle.IsOpen() {
		return nil, fmt.Errorf("%w: raffle %d is %s", ErrNotOpen, raffle.ID, raffle.State)
	}

	history, err := s.funds.Collect(ctx, player, paidAmount, raffle.ID, map[string]any{
		"raffle_id": raffle.ID,
		"round":     raffle.Round,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to collect entrance fee: %w", err)
	}

	entry := &entities.RaffleEntry{
		RaffleID:         raffle.ID,
		Round:            raffle.Round,
		Position:         raffle.NumPlayers,
		Player:           player,
		Amount:           paidAmount,
		BalanceHistoryID: history.ID,
	}
	if err := s.entryRepo.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to create entry: %w", err)
	}

	raffle.AcceptEntry(paidAmount)
	if err := s.raffleRepo.Update(ctx, raffle); err != nil {
		return nil, fmt.Errorf("failed to update raffle: %w", err)
	}

	s.publish(events.RaffleEnterEvent{
		RaffleID: raffle.ID,
		Round:    raffle.Round,
		Player:   player,
		Amount:   paidAmount,
		Pool:     raffle.Pool,
	})

	log.WithFields(log.Fields{
		"raffleID": raffle.ID,
		"round":    raffle.Round,
		"player":   player.Hex(),
		"amount":   paidAmount,
		"pool":     raffle.Pool,
		"players":  raffle.NumPlayers,
	}).Info("Raffle entry recorded")

	return &interfaces.EnterResult{Raffle: raffle, Entry: entry}, nil
}

// CheckUpkeep reports whether settlement is due
func (s *raffleService) CheckUpkeep(ctx context.Context, raffleID int64) (*entities.UpkeepCheck, error) {
	raffle, err := s.GetRaffle(ctx, raffleID)
	if err != nil {
		return nil, err
	}
	return raffle.CheckUpkeep(s.now()), nil
}

// PerformUpkeep starts settlement of a due raffle
func (s *raffleService) PerformUpkeep(ctx context.Context, raffleID int64) (*interfaces.UpkeepResult, error) {
	raffle, err := s.lockRaffle(ctx, raffleID)
	if err != nil {
		return nil, err
	}

	check := raffle.CheckUpkeep(s.now())
	if !check.Needed {
		return nil, &UpkeepNotNeededError{
			RaffleID:   raffle.ID,
			Pool:       raffle.Pool,
			NumPlayers: raffle.NumPlayers,
			State:      raffle.State,
			Check:      check,
		}
	}

	requestID, err := s.coordinator.RequestRandomWords(ctx, interfaces.RandomWordsRequest{
		KeyHash:              raffle.KeyHash,
		SubscriptionID:       raffle.SubscriptionID,
		MinimumConfirmations: raffle.RequestConfirmations,
		CallbackGasLimit:     raffle.CallbackGasLimit,
		NumWords:             raffle.NumWords,
		RaffleID:             raffle.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to request random words: %w", err)
	}

	raffle.BeginCalculating(requestID)
	if err := s.raffleRepo.Update(ctx, raffle); err != nil {
		return nil, fmt.Errorf("failed to update raffle: %w", err)
	}

	s.publish(events.RequestedRaffleWinnerEvent{
		RaffleID:  raffle.ID,
		Round:     raffle.Round,
		RequestID: requestID,
	})

	log.WithFields(log.Fields{
		"raffleID":  raffle.ID,
		"round":     raffle.Round,
		"requestID": requestID,
		"pool":      raffle.Pool,
		"players":   raffle.NumPlayers,
	}).Info("Requested raffle winner")

	return &interfaces.UpkeepResult{Raffle: raffle, RequestID: requestID}, nil
}

// FulfillRandomWords selects the winner for the pending request and pays out the pool
func (s *raffleService) FulfillRandomWords(ctx context.Context, raffleID, requestID int64, randomWords []*big.Int) (*interfaces.SettlementResult, error) {
	raffle, err := s.lockRaffle(ctx, raffleID)
	if err != nil {
		return nil, err
	}

	if !raffle.IsAwaiting(requestID) {
		return nil, fmt.Errorf("%w: raffle %d is %s and not awaiting request %d", ErrUnknownRequest, raffle.ID, raffle.State, requestID)
	}
	if len(randomWords) == 0 || randomWords[0] == nil {
		return nil, fmt.Errorf("%w: request %d", ErrNoRandomWords, requestID)
	}

	players, err := s.entryRepo.GetPlayers(ctx, raffle.ID, raffle.Round)
	if err != nil {
		return nil, fmt.Errorf("failed to get players: %w", err)
	}
	if int64(len(players)) != raffle.NumPlayers {
		return nil, fmt.Errorf("raffle %d round %d has %d entries but counts %d players", raffle.ID, raffle.Round, len(players), raffle.NumPlayers)
	}

	winnerIndex, err := entities.SelectWinnerIndex(randomWords[0], len(players))
	if err != nil {
		return nil, fmt.Errorf("failed to select winner: %w", err)
	}
	winner := players[winnerIndex]
	payout := raffle.Pool
	round := raffle.Round

	history, err := s.funds.Pay(ctx, winner, payout, raffle.ID, map[string]any{
		"raffle_id":  raffle.ID,
		"round":      round,
		"request_id": requestID,
	})
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"raffleID":  raffle.ID,
			"round":     round,
			"requestID": requestID,
			"winner":    winner.Hex(),
			"payout":    payout,
		}).Error("Raffle payout failed, settlement remains pending")
		return nil, fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}

	winnerRecord := &entities.RaffleWinner{
		RaffleID:         raffle.ID,
		Round:            round,
		RequestID:        requestID,
		RandomWord:       randomWords[0].String(),
		WinnerIndex:      int64(winnerIndex),
		Winner:           winner,
		Payout:           payout,
		PlayerCount:      int64(len(players)),
		BalanceHistoryID: history.ID,
	}
	if err := s.winnerRepo.Create(ctx, winnerRecord); err != nil {
		return nil, fmt.Errorf("failed to record winner: %w", err)
	}

	raffle.CompleteRound(winner, s.now())
	if err := s.raffleRepo.Update(ctx, raffle); err != nil {
		return nil, fmt.Errorf("failed to update raffle: %w", err)
	}

	s.publish(events.WinnerPickedEvent{
		RaffleID:  raffle.ID,
		Round:     round,
		RequestID: requestID,
		Winner:    winner,
		Payout:    payout,
	})

	log.WithFields(log.Fields{
		"raffleID":    raffle.ID,
		"round":       round,
		"requestID":   requestID,
		"winner":      winner.Hex(),
		"winnerIndex": winnerIndex,
		"payout":      payout,
	}).Info("Winner picked")

	return &interfaces.SettlementResult{
		Raffle:      raffle,
		Winner:      winner,
		WinnerIndex: winnerIndex,
		Payout:      payout,
		RequestID:   requestID,
		Round:       round,
	}, nil
}

// GetRaffle returns the raffle without locking it
func (s *raffleService) GetRaffle(ctx context.Context, raffleID int64) (*entities.Raffle, error) {
	raffle, err := s.raffleRepo.GetByID(ctx, raffleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get raffle: %w", err)
	}
	if raffle == nil {
		return nil, fmt.Errorf("%w: %d", ErrRaffleNotFound, raffleID)
	}
	return raffle, nil
}

// GetPlayer returns the player at the given index of the current round
func (s *raffleService) GetPlayer(ctx context.Context, raffleID int64, index int64) (common.Address, error) {
	raffle, err := s.GetRaffle(ctx, raffleID)
	if err != nil {
		return common.Address{}, err
	}
	if index < 0 || index >= raffle.NumPlayers {
		return common.Address{}, fmt.Errorf("%w: %d of %d", ErrPlayerIndex, index, raffle.NumPlayers)
	}

	entry, err := s.entryRepo.GetByPosition(ctx, raffle.ID, raffle.Round, index)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to get entry: %w", err)
	}
	if entry == nil {
		return common.Address{}, fmt.Errorf("%w: %d", ErrPlayerIndex, index)
	}
	return entry.Player, nil
}

// GetPlayers returns the current round's players in entry order
func (s *raffleService) GetPlayers(ctx context.Context, raffleID int64) ([]common.Address, error) {
	raffle, err := s.GetRaffle(ctx, raffleID)
	if err != nil {
		return nil, err
	}

	players, err := s.entryRepo.GetPlayers(ctx, raffle.ID, raffle.Round)
	if err != nil {
		return nil, fmt.Errorf("failed to get players: %w", err)
	}
	return players, nil
}

// GetNumberOfPlayers returns the number of entries in the current round
func (s *raffleService) GetNumberOfPlayers(ctx context.Context, raffleID int64) (int64, error) {
	raffle, err := s.GetRaffle(ctx, raffleID)
	if err != nil {
		return 0, err
	}
	return raffle.NumPlayers, nil
}

// GetRecentWinner returns the last settled winner, or nil before the first settlement
func (s *raffleService) GetRecentWinner(ctx context.Context, raffleID int64) (*common.Address, error) {
	raffle, err := s.GetRaffle(ctx, raffleID)
	if err != nil {
		return nil, err
	}
	return raffle.RecentWinner, nil
}

// GetLatestTimestamp returns the time of the last settlement (or construction)
func (s *raffleService) GetLatestTimestamp(ctx context.Context, raffleID int64) (time.Time, error) {
	raffle, err := s.GetRaffle(ctx, raffleID)
	if err != nil {
		return time.Time{}, err
	}
	return raffle.LastSettlementAt, nil
}

// GetRecentWinners returns settled rounds, newest first
func (s *raffleService) GetRecentWinners(ctx context.Context, raffleID int64, limit int) ([]*entities.RaffleWinner, error) {
	winners, err := s.winnerRepo.GetByRaffle(ctx, raffleID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get winners: %w", err)
	}
	return winners, nil
}

// lockRaffle loads the raffle with a row lock
func (s *raffleService) lockRaffle(ctx context.Context, raffleID int64) (*entities.Raffle, error) {
	raffle, err := s.raffleRepo.GetByIDForUpdate(ctx, raffleID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock raffle: %w", err)
	}
	if raffle == nil {
		return nil, fmt.Errorf("%w: %d", ErrRaffleNotFound, raffleID)
	}
	return raffle, nil
}

func (s *raffleService) publish(event events.Event) {
	if err := s.eventPublisher.Publish(event); err != nil {
		log.WithError(err).WithField("eventType", event.Type()).Error("Failed to publish raffle event")
	}
}

func validateCreateParams(params interfaces.CreateRaffleParams) error {
	var problems []error
	if params.Name == "" {
		problems = append(problems, errors.New("name is required"))
	}
	if params.EntranceFee <= 0 {
		problems = append(problems, fmt.Errorf("entrance fee must be positive, got %d", params.EntranceFee))
	}
	if params.Interval <= 0 || params.Interval%time.Second != 0 {
		problems = append(problems, fmt.Errorf("interval must be a positive whole number of seconds, got %s", params.Interval))
	}
	if params.SubscriptionID <= 0 {
		problems = append(problems, fmt.Errorf("subscription id must be positive, got %d", params.SubscriptionID))
	}
	if params.CallbackGasLimit == 0 {
		problems = append(problems, errors.New("callback gas limit must be positive"))
	}
	if params.KeyHash == (common.Hash{}) {
		problems = append(problems, errors.New("key hash is required"))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(problems...))
	}
	return nil
}
