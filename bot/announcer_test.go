package bot

import (
	"context"
	"errors"
	"sync"
	"testing"

	"raffle/events"

	"github.com/bwmarrin/discordgo"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	mu       sync.Mutex
	sent     map[string][]*discordgo.MessageEmbed
	failWith error
}

func newFakeSender() *fakeSender {
	return &fakeSender{sent: make(map[string][]*discordgo.MessageEmbed)}
}

func (f *fakeSender) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	f.sent[channelID] = append(f.sent[channelID], embed)
	return &discordgo.Message{ChannelID: channelID}, nil
}

func (f *fakeSender) embeds(channelID string) []*discordgo.MessageEmbed {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[channelID]
}

var winner = common.HexToAddress("0x1234567890abcdef1234567890abcdef12345678")

func TestBuildEmbed(t *testing.T) {
	t.Parallel()

	t.Run("entry", func(t *testing.T) {
		embed := BuildEmbed(events.RaffleEnterEvent{RaffleID: 2, Round: 4, Player: winner, Amount: 10000000000000000, Pool: 30000000000000000})

		require.NotNil(t, embed)
		assert.Contains(t, embed.Description, "0x1234…5678")
		assert.Contains(t, embed.Description, "0.01 ETH")
		assert.Equal(t, "0.03 ETH", embed.Fields[0].Value)
		assert.Equal(t, "4", embed.Fields[1].Value)
		assert.Equal(t, "Raffle #2", embed.Footer.Text)
	})

	t.Run("requested winner", func(t *testing.T) {
		embed := BuildEmbed(events.RequestedRaffleWinnerEvent{RaffleID: 2, Round: 4, RequestID: 9})

		require.NotNil(t, embed)
		assert.Contains(t, embed.Description, "Round 4")
		assert.Contains(t, embed.Description, "#9")
	})

	t.Run("winner", func(t *testing.T) {
		embed := BuildEmbed(events.WinnerPickedEvent{RaffleID: 2, Round: 4, RequestID: 9, Winner: winner, Payout: 30000000000000000})

		require.NotNil(t, embed)
		assert.Contains(t, embed.Description, winner.Hex())
		assert.Contains(t, embed.Fields[0].Value, "0.03 ETH")
		assert.Contains(t, embed.Fields[0].Value, "30,000,000,000,000,000 wei")
	})

	t.Run("other events have no embed", func(t *testing.T) {
		assert.Nil(t, BuildEmbed(events.BalanceChangeEvent{Address: winner}))
		assert.Nil(t, BuildEmbed(events.RandomWordsRequestedEvent{RequestID: 1}))
	})
}

func TestAnnouncer_Subscribe(t *testing.T) {
	t.Parallel()

	sender := newFakeSender()
	bus := events.NewBus()
	NewWithSender(sender, "chan-1").Subscribe(bus)

	ctx := context.Background()
	bus.Emit(ctx, events.RaffleEnterEvent{RaffleID: 1, Round: 1, Player: winner, Amount: 1, Pool: 1})
	bus.Emit(ctx, events.RandomWordsFulfilledEvent{RequestID: 1, RaffleID: 1})
	bus.Emit(ctx, events.WinnerPickedEvent{RaffleID: 1, Round: 1, RequestID: 1, Winner: winner, Payout: 1})
	bus.Wait()

	assert.Len(t, sender.embeds("chan-1"), 2)
}

func TestAnnouncer_AnnounceFailure(t *testing.T) {
	t.Parallel()

	sender := newFakeSender()
	sender.failWith = errors.New("rate limited")
	announcer := NewWithSender(sender, "chan-1")

	err := announcer.Announce(context.Background(), events.WinnerPickedEvent{RaffleID: 1, Winner: winner})
	assert.ErrorContains(t, err, "rate limited")

	assert.NoError(t, announcer.Announce(context.Background(), events.BalanceChangeEvent{}))
	assert.NoError(t, announcer.Close())
}
