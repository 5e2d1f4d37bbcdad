package serve

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/thread-tracker/internal/bot"
	"github.com/user/thread-tracker/internal/config"
	"github.com/user/thread-tracker/internal/logger"
	"github.com/user/thread-tracker/internal/store"
	"github.com/user/thread-tracker/internal/summarizer"
	"github.com/user/thread-tracker/pkg/discord"
	"github.com/user/thread-tracker/pkg/github"
)

var (
	configFile string
	debug      bool
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Connect to Discord and track forum threads as issues",
		RunE:  runServe,
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "config.yaml", "Path to config file")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging (full gateway traffic)")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.Get()
	logger.SetDebug(debug)

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	repoOwner, repoName, err := cfg.SplitRepo()
	if err != nil {
		return err
	}

	ghClient := github.NewClient(cfg.GitHubToken)
	chat := discord.NewClient(cfg.DiscordToken)

	strategy, err := buildStrategy(cfg)
	if err != nil {
		return err
	}
	log.Info().Str("strategy", strategy.Name()).Str("repo", cfg.Repo).Msg("Strategy selected")

	botUser, err := chat.Me(context.Background())
	if err != nil {
		return fmt.Errorf("fetching bot user: %w", err)
	}

	dispatcher, err := newDispatcher(cfg, chat, ghClient, botUser.ID, repoOwner, repoName, strategy)
	if err != nil {
		return err
	}

	gateway := discord.NewGatewayClient(cfg.DiscordToken)
	if debug {
		gateway.SetDebugLog(func(format string, args ...interface{}) {
			log.Debug().Msgf("[GW] "+format, args...)
		})
	}
	gateway.OnMessage(func(message *discord.Message) {
		go dispatcher.HandleMessage(message)
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		for {
			ctx := context.Background()
			if err := gateway.Connect(ctx); err != nil {
				log.Error().Err(err).Msg("Gateway connection failed, retrying in 5 seconds")
				time.Sleep(5 * time.Second)
				continue
			}
			log.Info().
				Str("bot_user", gateway.BotUser().ID).
				Str("bot_name", gateway.BotUser().Username).
				Msg("Gateway connected - listening for commands")

			if err := gateway.Listen(ctx); err != nil {
				log.Error().Err(err).Msg("Gateway error, reconnecting in 5 seconds")
				time.Sleep(5 * time.Second)
				continue
			}
			break
		}
	}()

	<-quit

	log.Info().Msg("Shutting down")
	if err := gateway.Close(); err != nil {
		log.Warn().Err(err).Msg("Gateway close failed")
	}

	return nil
}

func buildStrategy(cfg *config.Config) (bot.Strategy, error) {
	switch cfg.Summarizer {
	case config.SummarizerPlain:
		return bot.NewPlainStrategy(), nil
	case config.SummarizerAI:
		llm, err := summarizer.NewClient(summarizer.ClientConfig{
			APIKey: cfg.OpenAIKey,
			Model:  cfg.OpenAIModel,
		})
		if err != nil {
			return nil, fmt.Errorf("initializing model client: %w", err)
		}
		return bot.NewAIStrategy(summarizer.NewGenerator(llm)), nil
	default:
		return nil, fmt.Errorf("unknown summarizer %q", cfg.Summarizer)
	}
}

func newDispatcher(cfg *config.Config, chat *discord.Client, issues *github.Client, botUserID, repoOwner, repoName string, strategy bot.Strategy) (*bot.Dispatcher, error) {
	log := logger.Get()

	resolver := bot.NewHistoryResolver(chat, botUserID, cfg.OwnerUserID)
	if cfg.DBPath != "" {
		db, err := store.NewSQLiteDB(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("opening tracking index: %w", err)
		}
		resolver = bot.NewStoreResolver(resolver, store.New(db))
		log.Info().Str("path", cfg.DBPath).Msg("Tracking index enabled")
	}

	return bot.NewDispatcher(bot.DispatcherConfig{
		Chat:        chat,
		Issues:      issues,
		Resolver:    resolver,
		Strategy:    strategy,
		BotUserID:   botUserID,
		OwnerUserID: cfg.OwnerUserID,
		RepoOwner:   repoOwner,
		RepoName:    repoName,
		NoticeDelay: time.Duration(cfg.NoticeDelay),
	}), nil
}
