package agent

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Alwanly/service-fleet-monitor/internal/config"
	"github.com/Alwanly/service-fleet-monitor/internal/models"
	"github.com/Alwanly/service-fleet-monitor/internal/server/agent/dto"
	"github.com/Alwanly/service-fleet-monitor/internal/server/agent/repository"
	"github.com/Alwanly/service-fleet-monitor/internal/server/agent/usecase"
	controllerdto "github.com/Alwanly/service-fleet-monitor/internal/server/controller/dto"
	"github.com/Alwanly/service-fleet-monitor/internal/telemetry"
	"github.com/Alwanly/service-fleet-monitor/pkg/logger"
)

type fixedCollector struct{}

func (fixedCollector) Hostname() string { return "h1" }

func (fixedCollector) Collect(context.Context) telemetry.Snapshot {
	return telemetry.Snapshot{Hostname: "h1"}
}

func testConfig(serverURL string) *config.AgentConfig {
	return &config.AgentConfig{
		ServerURL:                serverURL,
		APIKey:                   "secret-1",
		HeartbeatInterval:        10 * time.Second,
		RequestTimeout:           time.Second,
		CommandBatch:             10,
		DeliveryMaxAttempts:      1,
		DeliveryBaseDelay:        time.Millisecond,
		ConnectInitialBackoff:    time.Millisecond,
		ConnectMaxBackoff:        time.Millisecond,
		ConnectBackoffMultiplier: 2,
	}
}

func TestRoutesServeHealth(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	svc := newService(fixedCollector{}, repository.NewControllerClient(cfg, logger.NewNop()), cfg, logger.NewNop())

	app := fiber.New()
	svc.Routes(app.Group("/agent"))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/agent/health", nil), -1)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202 while registering, got %d", resp.StatusCode)
	}
	raw, _ := io.ReadAll(resp.Body)
	var health dto.HealthResponse
	if err := json.Unmarshal(raw, &health); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if health.Hostname != "h1" || health.Status != dto.StatusRegistering {
		t.Fatalf("unexpected health %+v", health)
	}
}

func TestRunRegistersAgainstController(t *testing.T) {
	var connects, disconnects atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/agent/connect":
			connects.Add(1)
			_ = json.NewEncoder(w).Encode(controllerdto.ConnectResponse{Status: "connected", Agent: models.AgentRecord{ID: "h1"}})
		case r.URL.Path == "/api/agent/update":
			_ = json.NewEncoder(w).Encode(controllerdto.UpdateResponse{Status: "ok", AgentID: "h1"})
		case r.URL.Path == "/api/agent/h1/commands":
			_ = json.NewEncoder(w).Encode([]models.Command{})
		case r.URL.Path == "/api/agent/disconnect":
			disconnects.Add(1)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "disconnected"})
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stopAfterHeartbeat := func(_ context.Context, d time.Duration) error {
		if d == 10*time.Second {
			cancel()
		}
		return nil
	}

	cfg := testConfig(ts.URL + "/")
	svc := newService(fixedCollector{}, repository.NewControllerClient(cfg, logger.NewNop()), cfg, logger.NewNop(), usecase.WithSleep(stopAfterHeartbeat))
	if err := svc.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}

	if connects.Load() != 1 || disconnects.Load() != 1 {
		t.Fatalf("expected one connect and one disconnect, got %d and %d", connects.Load(), disconnects.Load())
	}
	if s := svc.repo.Snapshot(); s.Status != dto.StatusRegistered || s.AgentID != "h1" {
		t.Fatalf("unexpected state %+v", s)
	}
}
