package handler

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Alwanly/service-fleet-monitor/internal/server/agent/dto"
	"github.com/Alwanly/service-fleet-monitor/internal/server/agent/repository"
)

func TestHealthFollowsRegistration(t *testing.T) {
	repo := repository.NewRepository("h1", time.Now())
	app := fiber.New()
	NewHandler(app, repo)

	get := func() (int, dto.HealthResponse) {
		resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		defer resp.Body.Close()
		var body dto.HealthResponse
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return resp.StatusCode, body
	}

	if code, body := get(); code != fiber.StatusAccepted || body.Status != dto.StatusRegistering {
		t.Fatalf("expected 202 registering, got %d %s", code, body.Status)
	}

	repo.RecordRegistration(errors.New("refused"), 4)
	if code, body := get(); code != fiber.StatusServiceUnavailable || body.RegistrationAttempts != 4 {
		t.Fatalf("expected 503 with attempts, got %d %+v", code, body)
	}

	repo.SetAgentID("h1")
	repo.RecordRegistration(nil, 5)
	repo.RecordDelivery(errors.New("timeout"), 3)
	code, body := get()
	if code != fiber.StatusOK || body.AgentID != "h1" {
		t.Fatalf("expected 200 for h1, got %d %+v", code, body)
	}
	if body.LastDelivery == nil || body.LastDelivery.OK || body.LastDelivery.Attempts != 3 {
		t.Fatalf("unexpected last delivery %+v", body.LastDelivery)
	}
}
