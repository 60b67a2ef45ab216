package main

// @title           Fleet Monitor - Control Plane API
// @version         1.0
// @description     Control plane for a fleet of monitoring agents. Issues agent tokens, tracks agent liveness and telemetry, and queues commands for agents.
// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html
// @host      localhost:8000
// @BasePath  /
// @securityDefinitions.apikey  AdminSession
// @in                          header
// @name                        X-Admin-Session
// @securityDefinitions.apikey  AgentToken
// @in                          header
// @name                        Authorization

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	_ "github.com/Alwanly/service-fleet-monitor/docs/server"
	"github.com/Alwanly/service-fleet-monitor/internal/config"
	"github.com/Alwanly/service-fleet-monitor/internal/server/agent"
	"github.com/Alwanly/service-fleet-monitor/internal/server/controller/handler"
	"github.com/Alwanly/service-fleet-monitor/pkg/database"
	"github.com/Alwanly/service-fleet-monitor/pkg/deps"
	"github.com/Alwanly/service-fleet-monitor/pkg/logger"
	"github.com/Alwanly/service-fleet-monitor/pkg/middleware"
	"github.com/Alwanly/service-fleet-monitor/pkg/poll"
	"github.com/Alwanly/service-fleet-monitor/pkg/pubsub"
	swagger "github.com/gofiber/swagger"
)

func main() {
	envErr := config.LoadDotEnv()

	log, err := logger.NewLoggerFromEnv("server")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if envErr != nil {
		log.WithError(envErr).Fatal("failed to load .env")
	}

	log.Info("starting fleet control plane")

	cfg, err := config.LoadServerConfig()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	// server set-admin [username] reads the password twice from stdin
	if len(os.Args) > 1 && os.Args[1] == "set-admin" {
		username := ""
		if len(os.Args) > 2 {
			username = os.Args[2]
		}
		if err := setAdmin(cfg.AdminCredentialsPath, username, os.Stdin); err != nil {
			log.WithError(err).Fatal("failed to write admin credentials")
		}
		log.Info("admin credentials written", logger.String("path", cfg.AdminCredentialsPath))
		return
	}

	log.Info("configuration loaded",
		logger.String("mode", cfg.Mode),
		logger.String("server_addr", cfg.ServerAddr),
		logger.String("database_path", cfg.DatabasePath),
		logger.Duration("heartbeat_interval", cfg.HeartbeatInterval),
		logger.Duration("command_ttl", cfg.CommandTTL),
	)

	db, err := database.NewSQLiteDB(cfg.DatabasePath)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize database")
	}
	log.Info("database initialized", logger.String("path", cfg.DatabasePath))

	if err := database.RunMigrations(db); err != nil {
		log.WithError(err).Fatal("failed to migrate database")
	}
	log.Info("database migrations applied successfully")

	app := fiber.New(fiber.Config{
		AppName:               "Fleet Control Plane",
		DisableStartupMessage: true,
		ErrorHandler:          middleware.ErrorHandler(log),
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.CanonicalLoggerMiddleware(log))

	poller := poll.NewPoller(log, poll.DefaultConfig())

	deps := deps.App{
		Fiber:    app,
		Database: db,
		Logger:   log,
		Poller:   poller,
		Pub:      pubsub.NewMemoryPubSub(),
	}

	if cfg.RedisEnabled() {
		redisPub, err := pubsub.NewRedisPubSub(pubsub.RedisConfig{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, log)
		if err != nil {
			log.WithError(err).Error("failed to initialize redis pub/sub, notifications stay in-process",
				logger.String("mode", "in-process"))
		} else {
			deps.Pub = redisPub
			log.Info("redis pub/sub initialized",
				logger.String("host", cfg.RedisHost),
				logger.Int("port", cfg.RedisPort))
		}
	} else {
		log.Info("no redis configuration provided; notifications stay in-process")
	}
	defer deps.Pub.Close()

	h, err := handler.NewHandler(deps, cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize control plane")
	}

	if err := h.UseCase.Restore(context.Background()); err != nil {
		log.WithError(err).Fatal("failed to restore persisted state")
	}

	app.Get("/swagger/*", swagger.HandlerDefault)

	// NEXUS_MODE=both runs an agent in this process; it starts once the listener is up
	var embedded *agent.Service
	listening := make(chan struct{})
	agentDone := make(chan struct{})
	if cfg.Mode == config.ModeBoth {
		agentCfg, err := config.LoadAgentConfig()
		if err != nil {
			log.WithError(err).Fatal("failed to load agent configuration")
		}
		embedded = agent.NewService(agentCfg, log.Component("agent"))
		embedded.Routes(app.Group("/agent"))
		app.Hooks().OnListen(func(fiber.ListenData) error {
			close(listening)
			return nil
		})
		log.Info("agent runs in-process", logger.String("server_url", agentCfg.ServerURL))
	} else {
		close(agentDone)
	}

	ctx, cancel := context.WithCancel(context.Background())
	gErr, gCtx := errgroup.WithContext(ctx)

	if embedded != nil {
		gErr.Go(func() error {
			defer close(agentDone)
			select {
			case <-listening:
			case <-gCtx.Done():
				return nil
			}
			return embedded.Run(gCtx)
		})
	}

	gErr.Go(func() error {
		return h.UseCase.Hub.Run(gCtx)
	})

	gErr.Go(func() error {
		return poller.Start(gCtx)
	})

	gErr.Go(func() error {
		log.Info("control plane is running", logger.String("address", cfg.ServerAddr))
		if err := app.Listen(cfg.ServerAddr); err != nil {
			cancel()
			return err
		}
		return nil
	})

	gErr.Go(func() error {
		<-gCtx.Done()
		// the agent unregisters before the listener goes away
		<-agentDone

		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.WithError(err).Error("failed to shutdown fiber app")
		}
		if err := poller.Stop(); err != nil {
			log.WithError(err).Error("failed to stop poller")
		}

		if err := h.UseCase.Flush(context.Background()); err != nil {
			log.WithError(err).Error("final agent flush failed")
		}

		conn, err := db.DB()
		if err != nil {
			log.WithError(err).Error("failed to get database connection")
			return err
		}
		if err := conn.Close(); err != nil {
			log.WithError(err).Error("failed to close database")
			return err
		}

		return nil
	})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		log.Info("listening for shutdown signals")
		<-sigChan
		log.Info("shutdown signal received")
		cancel()
	}()

	if err := gErr.Wait(); err != nil {
		log.WithError(err).Fatal("control plane encountered an error")
	}

	log.Info("control plane stopped gracefully")
}
