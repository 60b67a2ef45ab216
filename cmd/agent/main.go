package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"golang.org/x/sync/errgroup"

	"github.com/Alwanly/service-fleet-monitor/internal/config"
	"github.com/Alwanly/service-fleet-monitor/internal/server/agent"
	"github.com/Alwanly/service-fleet-monitor/pkg/logger"
	"github.com/Alwanly/service-fleet-monitor/pkg/middleware"
)

func main() {
	envErr := config.LoadDotEnv()

	log, err := logger.NewLoggerFromEnv("agent")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if envErr != nil {
		log.WithError(envErr).Fatal("failed to load .env")
	}

	log.Info("starting agent service")

	cfg, err := config.LoadAgentConfig()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	log.Info("configuration loaded",
		logger.String("server_url", cfg.ServerURL),
		logger.String("agent_addr", cfg.AgentAddr),
		logger.Duration("heartbeat_interval", cfg.HeartbeatInterval),
		logger.Bool("live_enabled", cfg.LiveEnabled),
	)

	svc := agent.NewService(cfg, log)

	app := fiber.New(fiber.Config{DisableStartupMessage: true, ErrorHandler: middleware.ErrorHandler(log)})
	app.Use(recover.New())
	svc.Routes(app)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting HTTP server", logger.String("address", cfg.AgentAddr))
		if err := app.Listen(cfg.AgentAddr); err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return svc.Run(gCtx)
	})

	g.Go(func() error {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case sig := <-sigCh:
			log.Info("received shutdown signal", logger.String("signal", sig.String()))
		case <-gCtx.Done():
			log.Info("context cancelled")
		}
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.WithError(err).Error("error during server shutdown")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.WithError(err).Error("agent service stopped with error")
		os.Exit(1)
	}

	log.Info("agent service stopped gracefully")
}
