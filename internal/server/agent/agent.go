package agent

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Alwanly/service-fleet-monitor/internal/config"
	"github.com/Alwanly/service-fleet-monitor/internal/server/agent/handler"
	"github.com/Alwanly/service-fleet-monitor/internal/server/agent/repository"
	"github.com/Alwanly/service-fleet-monitor/internal/server/agent/usecase"
	"github.com/Alwanly/service-fleet-monitor/internal/telemetry"
	"github.com/Alwanly/service-fleet-monitor/pkg/logger"
)

// Service is one monitoring agent wired to its controller. It runs standalone or inside the
// control plane process.
type Service struct {
	UseCase *usecase.UseCase
	repo    *repository.Repository
}

func NewService(cfg *config.AgentConfig, log *logger.CanonicalLogger, opts ...usecase.Option) *Service {
	collector := telemetry.NewCollector(telemetry.NewHostSource())
	return newService(collector, repository.NewControllerClient(cfg, log), cfg, log, opts...)
}

func newService(collector usecase.Collector, client repository.IControllerClient, cfg *config.AgentConfig, log *logger.CanonicalLogger, opts ...usecase.Option) *Service {
	repo := repository.NewRepository(collector.Hostname(), time.Now())
	return &Service{
		UseCase: usecase.NewUseCase(client, repo, collector, cfg, log, opts...),
		repo:    repo,
	}
}

// Routes mounts the agent health endpoint on router.
func (s *Service) Routes(router fiber.Router) {
	handler.NewHandler(router, s.repo)
}

// Run blocks until ctx is canceled and the agent has unregistered.
func (s *Service) Run(ctx context.Context) error {
	return s.UseCase.Serve(ctx)
}
