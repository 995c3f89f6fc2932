package bot

import (
	"context"
	"fmt"

	"raffle/bot/common"
	"raffle/events"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// Config holds announcer configuration
type Config struct {
	Token     string
	ChannelID string
}

// EmbedSender posts embeds to a channel. *discordgo.Session implements it.
type EmbedSender interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Announcer posts raffle lifecycle events to a Discord channel
type Announcer struct {
	sender    EmbedSender
	channelID string
	session   *discordgo.Session
}

// New opens a Discord session and returns an announcer posting to the configured channel
func New(config Config) (*Announcer, error) {
	dg, err := discordgo.New("Bot " + config.Token)
	if err != nil {
		return nil, fmt.Errorf("error creating discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuildMessages

	if err := dg.Open(); err != nil {
		return nil, fmt.Errorf("error opening connection: %w", err)
	}

	a := NewWithSender(dg, config.ChannelID)
	a.session = dg
	return a, nil
}

// NewWithSender creates an announcer on an existing sender
func NewWithSender(sender EmbedSender, channelID string) *Announcer {
	return &Announcer{
		sender:    sender,
		channelID: channelID,
	}
}

// Close closes the Discord session, if the announcer owns one
func (a *Announcer) Close() error {
	if a.session == nil {
		return nil
	}
	return a.session.Close()
}

// Subscribe posts entries, settlement starts and winners as they happen
func (a *Announcer) Subscribe(bus *events.Bus) {
	bus.SubscribeAll([]events.EventType{
		events.EventTypeRaffleEnter,
		events.EventTypeRequestedRaffleWinner,
		events.EventTypeWinnerPicked,
	}, func(ctx context.Context, event events.Event) {
		if err := a.Announce(ctx, event); err != nil {
			log.WithError(err).WithField("eventType", event.Type()).Error("Failed to announce raffle event")
		}
	})
	log.WithField("channelID", a.channelID).Info("Raffle announcements enabled")
}

// Announce posts the embed for a single event. Events without an embed are ignored.
func (a *Announcer) Announce(ctx context.Context, event events.Event) error {
	embed := BuildEmbed(event)
	if embed == nil {
		return nil
	}

	if _, err := a.sender.ChannelMessageSendEmbed(a.channelID, embed, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to send %s announcement: %w", event.Type(), err)
	}
	return nil
}

// BuildEmbed returns the announcement embed for an event, or nil
func BuildEmbed(event events.Event) *discordgo.MessageEmbed {
	switch e := event.(type) {
	case events.RaffleEnterEvent:
		return buildEntryEmbed(e)
	case events.RequestedRaffleWinnerEvent:
		return buildRequestedWinnerEmbed(e)
	case events.WinnerPickedEvent:
		return buildWinnerEmbed(e)
	default:
		return nil
	}
}

func buildEntryEmbed(e events.RaffleEnterEvent) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "🎟️ New Raffle Entry",
		Description: fmt.Sprintf("`%s` entered with **%s**", common.ShortAddress(e.Player), common.FormatEther(e.Amount)),
		Color:       common.ColorPrimary,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "💰 Pool",
				Value:  common.FormatEther(e.Pool),
				Inline: true,
			},
			{
				Name:   "Round",
				Value:  fmt.Sprintf("%d", e.Round),
				Inline: true,
			},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Raffle #%d", e.RaffleID),
		},
	}
}

func buildRequestedWinnerEmbed(e events.RequestedRaffleWinnerEvent) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "🎲 Drawing a Winner",
		Description: fmt.Sprintf("Round %d is closed. Waiting for randomness request **#%d**.", e.Round, e.RequestID),
		Color:       common.ColorWarning,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Raffle #%d", e.RaffleID),
		},
	}
}

func buildWinnerEmbed(e events.WinnerPickedEvent) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "🎉 **WINNER!** 🎉",
		Description: fmt.Sprintf("`%s` won round %d", e.Winner.Hex(), e.Round),
		Color:       common.ColorSuccess,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "Payout",
				Value:  fmt.Sprintf("**%s**\n%s wei", common.FormatEther(e.Payout), common.FormatBalance(e.Payout)),
				Inline: false,
			},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Raffle #%d • Request #%d", e.RaffleID, e.RequestID),
		},
	}
}
