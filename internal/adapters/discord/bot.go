package discord

import (
	"context"
	"fmt"

	"github.com/bnema/oabot/internal/application"
	"github.com/bnema/oabot/internal/domain"
	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const Intents = discordgo.IntentGuilds |
	discordgo.IntentGuildMembers |
	discordgo.IntentGuildVoiceStates |
	discordgo.IntentGuildMessages |
	discordgo.IntentMessageContent

// gateway is the part of *discordgo.Session the bot drives.
type gateway interface {
	AddHandler(handler interface{}) func()
	Open() error
	Close() error
}

// Bot connects session events to the application: every readiness event
// (Ready, and GuildCreate on each guild join) asks the listener to start, and
// every guild message goes through the chat router.
type Bot struct {
	session  gateway
	listener *application.Listener
	router   *application.ChatRouter
	logger   *zap.Logger
}

func NewBot(session gateway, listener *application.Listener, router *application.ChatRouter, logger *zap.Logger) *Bot {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Bot{session: session, listener: listener, router: router, logger: logger}
}

// Run opens the gateway connection and blocks until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	removers := []func(){
		b.session.AddHandler(func(_ *discordgo.Session, ready *discordgo.Ready) {
			b.logger.Info("session ready", zap.Int("guilds", len(ready.Guilds)))
			b.onCacheReady(ctx)
		}),
		b.session.AddHandler(func(_ *discordgo.Session, guild *discordgo.GuildCreate) {
			b.logger.Debug("guild available", zap.String("guild", guild.ID), zap.String("name", guild.Name))
			b.onCacheReady(ctx)
		}),
		b.session.AddHandler(func(_ *discordgo.Session, message *discordgo.MessageCreate) {
			b.onMessage(ctx, message)
		}),
	}
	defer func() {
		for _, remove := range removers {
			remove()
		}
	}()

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}
	b.logger.Info("discord session opened")

	<-ctx.Done()

	if err := b.session.Close(); err != nil {
		return fmt.Errorf("close discord session: %w", err)
	}
	b.logger.Info("discord session closed")
	return nil
}

func (b *Bot) onCacheReady(ctx context.Context) {
	if b.listener.Start(ctx) {
		b.logger.Debug("control channel listener launched")
	}
}

func (b *Bot) onMessage(ctx context.Context, message *discordgo.MessageCreate) {
	chat, ok := chatMessage(message)
	if !ok {
		return
	}

	handled, err := b.router.Route(ctx, chat)
	if err != nil {
		b.logger.Warn("chat command failed",
			zap.String("guild", string(chat.Guild)),
			zap.Stringer("author", chat.Author),
			zap.String("content", chat.Content),
			zap.Error(err),
		)
		return
	}
	if handled {
		b.logger.Debug("chat command handled", zap.String("content", chat.Content))
	}
}

func chatMessage(message *discordgo.MessageCreate) (application.ChatMessage, bool) {
	if message == nil || message.Message == nil || message.Author == nil {
		return application.ChatMessage{}, false
	}

	author := domain.MemberRef{ID: domain.MemberID(message.Author.ID), Name: message.Author.Username}
	if message.Author.GlobalName != "" {
		author.Name = message.Author.GlobalName
	}
	if message.Member != nil && message.Member.Nick != "" {
		author.Name = message.Member.Nick
	}

	return application.ChatMessage{
		Guild:       domain.GuildID(message.GuildID),
		Author:      author,
		AuthorIsBot: message.Author.Bot,
		Content:     message.Content,
	}, true
}
