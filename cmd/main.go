package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/latoulicious/Baguetta/internal/commands"
	"github.com/latoulicious/Baguetta/internal/config"
	"github.com/latoulicious/Baguetta/internal/handlers"
	"github.com/latoulicious/Baguetta/internal/presence"
	"github.com/latoulicious/Baguetta/pkg/control"
	"github.com/latoulicious/Baguetta/pkg/cron"
	"github.com/latoulicious/Baguetta/pkg/database"
	"github.com/latoulicious/Baguetta/pkg/logging"
	"github.com/latoulicious/Baguetta/pkg/metrics"
	"github.com/latoulicious/Baguetta/pkg/playback"
	"github.com/latoulicious/Baguetta/pkg/voice"
	"github.com/latoulicious/Baguetta/pkg/youtube"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		bootLogger := logging.Setup("production")
		bootLogger.Fatal().Err(err).Msg("Failed to load config")
	}

	logger := logging.Setup(cfg.Environment)

	// Create a new Discord session using the provided token
	dg, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create Discord session")
	}
	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates | discordgo.IntentsGuildMessages

	provider := youtube.NewProvider(cfg.CookieHeader, logging.Component("youtube"))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector, err := metrics.NewCollector(reg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to register metrics")
	}

	presenceManager := presence.NewManager(dg, func() int {
		dg.State.RLock()
		defer dg.State.RUnlock()
		return len(dg.State.Guilds)
	}, logger)

	observers := playback.Observers{collector, presenceManager}

	// Play history is optional
	var (
		store     *database.HistoryStore
		recorder  *database.HistoryRecorder
		retention *cron.RetentionManager
		history   commands.HistoryReader
	)
	if cfg.HistoryPath != "" {
		dbCfg := database.DefaultDatabaseConfig()
		dbCfg.DatabasePath = cfg.HistoryPath
		dbCfg.HistoryRetention = cfg.HistoryRetention

		store, err = database.NewHistoryStore(dbCfg, logging.Component("database"))
		if err != nil {
			logger.Fatal().Err(err).Str("path", cfg.HistoryPath).Msg("Failed to open history database")
		}
		recorder = database.NewHistoryRecorder(store, logging.Component("history"))
		if err := recorder.Start(); err != nil {
			logger.Fatal().Err(err).Msg("Failed to start history recorder")
		}
		retention, err = cron.NewRetentionManager(store.CleanExpiredData, cfg.HistoryCleanupSchedule, logging.Component("retention"))
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to schedule history cleanup")
		}
		observers = append(observers, recorder)
		history = store
	}

	registry := playback.NewRegistry(provider,
		playback.WithRetryPolicy(playback.RetryPolicy{Attempts: cfg.FetchAttempts, Delay: cfg.FetchRetryDelay}),
		playback.WithMaxQueueLength(cfg.MaxQueueLength),
		playback.WithLogger(logging.Component("playback")),
		playback.WithObserver(observers),
	)

	music := commands.NewMusic(commands.Deps{
		Registry: registry,
		Join: func(ctx context.Context, guildID, userID string) (playback.Transport, error) {
			conn, err := voice.Join(ctx, dg, guildID, userID, logging.Component("voice"))
			if err != nil {
				return nil, err
			}
			return conn, nil
		},
		NewSink: func(guildID string) playback.Sink {
			sinkLogger := logging.Component("sink").With().Str("guild_id", guildID).Logger()
			return voice.NewSink(cfg.FFmpegPath, voice.WithSinkLogger(sinkLogger))
		},
		NewSurface: func(channelID string, interaction *discordgo.Interaction) playback.ControlSurface {
			return control.NewSurface(dg, channelID, interaction, cfg.ControlEditsPerSecond, logging.Component("control"))
		},
		Playlists: provider,
		History:   history,
		Logger:    logging.Component("commands"),
	})

	// Register the interaction and mention handlers
	dg.AddHandler(handlers.NewHandler(dg, music, logger).OnInteraction)
	dg.AddHandler(handlers.NewMentions(dg, logging.Component("mentions")).OnMessage)

	// Open a websocket connection to Discord and begin listening.
	if err := dg.Open(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to open Discord session")
	}

	if err := commands.RegisterSlashCommands(dg, cfg.AppID); err != nil {
		logger.Fatal().Err(err).Msg("Failed to register slash commands")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go presenceManager.Run(ctx)

	if retention != nil {
		retention.Start()
	}

	var server *metrics.Server
	if cfg.MetricsAddr != "" {
		server = metrics.NewServer(cfg.MetricsAddr, reg, registry, logging.Component("metrics"))
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Str("addr", cfg.MetricsAddr).Msg("Failed to start metrics server")
		}
	}

	logger.Info().Msg("Bot is running. Press CTRL-C to exit.")
	// Wait here until CTRL-C or other term signal is received.
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	shutdown(logger, cfg, dg, registry, recorder, retention, server, store)
}

func shutdown(
	logger zerolog.Logger,
	cfg *config.Config,
	dg *discordgo.Session,
	registry *playback.Registry,
	recorder *database.HistoryRecorder,
	retention *cron.RetentionManager,
	server *metrics.Server,
	store *database.HistoryStore,
) {
	logger.Info().Int("sessions", registry.Len()).Msg("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := registry.StopAll(ctx); err != nil {
		logger.Warn().Err(err).Msg("Failed to stop all sessions")
	}
	if recorder != nil {
		recorder.Stop()
	}
	if retention != nil {
		retention.Stop()
	}
	if server != nil {
		if err := server.Shutdown(ctx); err != nil {
			logger.Warn().Err(err).Msg("Failed to stop metrics server")
		}
	}
	if store != nil {
		if err := store.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close history database")
		}
	}

	// Development bots re-register on every start, keep the command list clean
	if cfg.IsDevelopment() {
		if err := commands.DeleteAllSlashCommands(dg, cfg.AppID); err != nil {
			logger.Warn().Err(err).Msg("Failed to delete slash commands")
		}
	}

	// Cleanly close down the Discord session.
	if err := dg.Close(); err != nil {
		logger.Warn().Err(err).Msg("Failed to close Discord session")
	}
}
