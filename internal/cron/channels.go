package cron

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/mymmrac/telego"
	"github.com/slack-go/slack"

	"github.com/nextlevelbuilder/goclaw/internal/bus"
)

// AnnounceChannelTokens carries the per-backend credentials needed to
// deliver a delivery.mode="announce" outcome. Backends with an empty token
// are simply not registered.
type AnnounceChannelTokens struct {
	DiscordBotToken  string
	SlackBotToken    string
	TelegramBotToken string
}

// RegisterAnnounceChannels wires one MessageHandler per configured channel
// backend onto bus, so a job's delivery.mode="announce" can reach a
// Discord, Slack, or Telegram chat by name. WhatsApp is registered
// separately by RegisterWhatsAppAnnounce, since it authenticates via an
// already-paired device store rather than a static bot token.
func RegisterAnnounceChannels(msgBus *bus.MessageBus, tokens AnnounceChannelTokens) {
	if tokens.DiscordBotToken != "" {
		if session, err := discordgo.New("Bot " + tokens.DiscordBotToken); err == nil {
			msgBus.RegisterHandler("discord", func(msg bus.OutboundMessage) error {
				_, err := session.ChannelMessageSend(msg.ChatID, msg.Content)
				return err
			})
		}
	}

	if tokens.SlackBotToken != "" {
		client := slack.New(tokens.SlackBotToken)
		msgBus.RegisterHandler("slack", func(msg bus.OutboundMessage) error {
			_, _, err := client.PostMessage(msg.ChatID, slack.MsgOptionText(msg.Content, false))
			return err
		})
	}

	if tokens.TelegramBotToken != "" {
		if bot, err := telego.NewBot(tokens.TelegramBotToken); err == nil {
			msgBus.RegisterHandler("telegram", func(msg bus.OutboundMessage) error {
				chatID, err := parseChatID(msg.ChatID)
				if err != nil {
					return err
				}
				_, err = bot.SendMessage(&telego.SendMessageParams{
					ChatID: telego.ChatID{ID: chatID},
					Text:   msg.Content,
				})
				return err
			})
		}
	}
}

func parseChatID(s string) (int64, error) {
	var id int64
	if _, err := fmt.Sscanf(s, "%d", &id); err != nil {
		return 0, fmt.Errorf("invalid chat id %q: %w", s, err)
	}
	return id, nil
}
