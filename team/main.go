package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mcforge/team-service/shared/api"
	"github.com/mcforge/team-service/shared/config"
	"github.com/mcforge/team-service/shared/logging"
	redisu "github.com/mcforge/team-service/shared/redis"
	teamapi "github.com/mcforge/team-service/team/api"
	"github.com/mcforge/team-service/team/display"
	"github.com/mcforge/team-service/team/saver"
	"github.com/mcforge/team-service/team/service"
	"github.com/mcforge/team-service/team/store"
	"github.com/mcforge/team-service/team/updater"
	"go.uber.org/zap"
)

func main() {
	// --- 1. Load Configuration ---
	cfg, err := config.LoadTeamServiceConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.NewLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logger.Sync()
	logger.Info("Configuration loaded for Team Service", zap.String("listen_addr", cfg.ListenAddr))

	// --- 2. Initialize Data Stores ---
	var world store.WorldStore
	var presence store.PresenceStore
	var tags store.TagStore

	if cfg.Standalone {
		// Everything in process memory, for local development.
		world = store.NewMemoryWorldStore()
		presence = store.NewMemoryPresenceStore()
		tags = store.NewMemoryTagStore()
		logger.Info("Running standalone with in-memory stores")
	} else {
		redisClient, err := redisu.NewClusterClient(cfg.RedisAddrs, cfg.RedisPassword)
		if err != nil {
			logger.Fatal("Failed to connect to Redis Cluster", zap.Error(err))
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Error("Error closing Redis client", zap.Error(err))
			}
		}()
		logger.Info("Connected to Redis Cluster", zap.Strings("addrs", cfg.RedisAddrs))

		world = store.NewRedisWorldStore(redisClient)
		presence = store.NewRedisPresenceStore(redisClient, cfg.PresenceTTL, logger)
		tags = store.NewRedisTagStore(redisClient)
	}

	// --- 3. Initialize Business Logic Services ---
	sync := display.NewSynchronizer(tags, logger)
	teamService := service.NewTeamService(world, sync, logger)

	loadCtx, loadCancel := context.WithTimeout(context.Background(), 15*time.Second)
	result := teamService.Load(loadCtx)
	loadCancel()
	switch result.Status {
	case service.Loaded:
		logger.Info("Team registry loaded", zap.Int("teams", result.Teams))
	case service.NoPriorData:
		logger.Info("No prior team data found, starting empty")
	case service.CorruptData:
		logger.Warn("Stored team data unreadable, starting empty", zap.String("detail", result.Detail))
	}

	inviteService := service.NewInviteService(teamService, cfg.InviteTTL, logger)

	resolver := display.NewResolver(presence, sync, teamService, cfg.ResolveRetryInterval, cfg.ResolveMaxAttempts, logger)
	defer resolver.Stop()

	// --- 4. Start Background Tasks ---
	autoSaver := saver.NewAutoSaver(cfg, teamService, logger)
	go autoSaver.Start()
	defer autoSaver.Stop()

	displayUpdater := updater.NewDisplayUpdater(cfg, teamService, presence, sync, logger)
	go displayUpdater.Start()
	defer displayUpdater.Stop()

	// --- 5. Setup HTTP Server and Register Routes ---
	handlers := teamapi.NewTeamAPIHandlers(teamService, inviteService, presence, tags, sync, resolver, logger)

	baseServer := api.NewBaseServer(cfg.ListenAddr, logger)
	handlers.RegisterRoutes(baseServer.Router)
	logger.Info("HTTP routes registered")

	// --- 6. Start HTTP Server ---
	go func() {
		logger.Info("HTTP server starting", zap.String("addr", cfg.ListenAddr))
		if err := baseServer.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed to start", zap.Error(err))
		}
	}()

	// --- 7. Graceful Shutdown ---
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down Team Service...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := baseServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server graceful shutdown failed", zap.Error(err))
	}

	// One final save so nothing accumulated since the last auto-save is lost.
	if err := teamService.Save(shutdownCtx); err != nil {
		logger.Error("Final save failed", zap.Error(err))
	}

	logger.Info("Team Service gracefully shut down")
}
