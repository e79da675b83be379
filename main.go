package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sarah/internal/adapters/generator"
	"sarah/internal/adapters/telegram"
	"sarah/internal/core/domain"
	"sarah/internal/core/domain/command"
	"sarah/internal/core/port"
	"sarah/internal/core/service"
	"sarah/internal/plugins/ask"
	"sarah/internal/plugins/counter"
	"sarah/internal/plugins/debug"
	"sarah/internal/plugins/echo"
	"sarah/internal/plugins/hello"
	"sarah/internal/plugins/quotes"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type config struct {
	logLevel          zerolog.Level
	options           service.Options
	telegramToken     string
	reconnectAttempts int
	openRouterKey     string
	systemPrompt      string
	plugins           domain.PluginConfigs
}

var configPath string

var rootCmd = &cobra.Command{
	Use:   "sarah",
	Short: "Chat bot dispatching commands, conversations and scheduled jobs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd.Context())
	},
	SilenceUsage: true,
}

var commandsCmd = &cobra.Command{
	Use:   "commands",
	Short: "Print the commands of the configured plugins without connecting",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(viper.New(), configPath)
		if err != nil {
			return err
		}

		zerolog.SetGlobalLevel(cfg.logLevel)

		return printCommands(cmd.OutOrStdout(), cfg)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"path to the TOML config file (default ./config.toml)")
	rootCmd.AddCommand(commandsCmd)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		os.Exit(1)
	}
}

func loadConfig(v *viper.Viper, path string) (*config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
	}
	v.SetConfigType("toml")

	v.SetDefault("bot.log_level", "info")
	v.SetDefault("bot.max_workers", 0)
	v.SetDefault("bot.send_rate", 0)
	v.SetDefault("bot.stop_timeout", service.DefaultStopTimeout)
	v.SetDefault("telegram.reconnect_attempts", telegram.DefaultReconnectAttempts)

	log.Info().Msg("reading config file...")
	err := v.ReadInConfig()
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}

	logLevel, err := zerolog.ParseLevel(v.GetString("bot.log_level"))
	if err != nil || logLevel == zerolog.NoLevel {
		logLevel = zerolog.InfoLevel
	}

	var plugins domain.PluginConfigs
	err = v.UnmarshalKey("plugins", &plugins)
	if err != nil {
		return nil, fmt.Errorf("invalid plugins section: %w", err)
	}

	return &config{
		logLevel: logLevel,
		options: service.Options{
			MaxWorkers:  v.GetInt("bot.max_workers"),
			SendRate:    v.GetFloat64("bot.send_rate"),
			StopTimeout: v.GetDuration("bot.stop_timeout"),
		},
		telegramToken:     v.GetString("telegram.bot_token"),
		reconnectAttempts: v.GetInt("telegram.reconnect_attempts"),
		openRouterKey:     v.GetString("openrouter.api_key"),
		systemPrompt:      v.GetString("openrouter.system_prompt"),
		plugins:           plugins,
	}, nil
}

func newPluginLoader(cfg *config) *service.PluginLoader {
	plugins := []port.Plugin{
		echo.New(),
		hello.New(),
		counter.New(),
		quotes.New(),
		debug.New(),
	}

	if cfg.openRouterKey != "" {
		plugins = append(plugins, ask.New(generator.NewOpenRouter(cfg.openRouterKey, cfg.systemPrompt)))
	}

	return service.NewPluginLoader(plugins...)
}

func run(ctx context.Context) error {
	log.Info().Msg("starting sarah...")

	cfg, err := loadConfig(viper.New(), configPath)
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
		return err
	}

	zerolog.SetGlobalLevel(cfg.logLevel)

	if cfg.telegramToken == "" {
		err = errors.New("telegram.bot_token is not set")
		log.Error().Err(err).Msg("invalid config")
		return err
	}

	log.Info().Str("plugins", cfg.plugins.String()).Msg("configured plugins")

	b := service.NewBot(
		telegram.New(cfg.telegramToken, cfg.reconnectAttempts),
		command.NewCatalog(),
		newPluginLoader(cfg),
		cfg.plugins,
		cfg.options,
	)
	defer b.Stop()

	err = b.Run(ctx)
	if err != nil {
		log.Error().Err(err).Msg("bot stopped with error")
		return err
	}

	log.Info().Msg("shutting down")

	return nil
}

func printCommands(w io.Writer, cfg *config) error {
	registry := command.NewCatalog().Activate(telegram.Scope)
	newPluginLoader(cfg).LoadAll(telegram.Scope, registry, cfg.plugins)

	for _, cmd := range registry.List() {
		_, err := fmt.Fprintln(w, cmd.Help())
		if err != nil {
			return err
		}
	}

	return nil
}
