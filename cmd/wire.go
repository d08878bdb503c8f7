package cmd

import (
	"fmt"

	"github.com/bnema/oabot/internal/adapters/discord"
	"github.com/bnema/oabot/internal/adapters/fifo"
	vocabularystore "github.com/bnema/oabot/internal/adapters/vocabulary"
	"github.com/bnema/oabot/internal/application"
	"github.com/bnema/oabot/internal/config"
	"github.com/bnema/oabot/internal/domain"
	"github.com/bnema/oabot/internal/logging"
	"github.com/bwmarrin/discordgo"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type app struct {
	config     config.Config
	newSession func(token string) (*discordgo.Session, error)
}

func wireApp() (*app, error) {
	cfg, err := config.Load(viper.New())
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	return &app{
		config:     cfg,
		newSession: newDiscordSession,
	}, nil
}

func newDiscordSession(token string) (*discordgo.Session, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discord.Intents
	session.StateEnabled = true

	return session, nil
}

// botRuntime is everything `run` needs once a session exists.
type botRuntime struct {
	logger     *zap.Logger
	vocabulary *vocabularystore.Store
	listener   *application.Listener
	bot        *discord.Bot
}

func (a *app) wireRuntime(session *discordgo.Session) (*botRuntime, error) {
	logger, err := logging.New(logging.Options{Level: a.config.Log.Level, Development: a.config.Log.Development})
	if err != nil {
		return nil, fmt.Errorf("wire logger: %w", err)
	}

	vocabulary, err := vocabularystore.NewStore(a.config.Control.VocabularyFile, logger)
	if err != nil {
		return nil, fmt.Errorf("wire vocabulary: %w", err)
	}

	executor := application.NewExecutor(discord.NewDirectory(session.State), discord.NewActions(session), logger)

	listener := application.NewListener(fifo.NewChannel(a.config.Control.Path), vocabulary, executor, application.ListenerConfig{
		Guild:         domain.GuildID(a.config.Discord.GuildID),
		Identity:      a.config.Control.Identity,
		IdleDelay:     a.config.Control.IdleDelay,
		RetryDelay:    a.config.Control.RetryDelay,
		MaxRetryDelay: a.config.Control.MaxRetryDelay,
		MaxFailures:   a.config.Control.MaxFailures,
	}, logger)

	router := application.NewChatRouter(a.config.Discord.Prefix)
	application.NewChatCommands(executor, logger).Register(router)

	return &botRuntime{
		logger:     logger,
		vocabulary: vocabulary,
		listener:   listener,
		bot:        discord.NewBot(session, listener, router, logger),
	}, nil
}
