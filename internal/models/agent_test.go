package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestAgentRecordRowConversion(t *testing.T) {
	seen := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	rec := AgentRecord{
		ID:          "h1",
		TokenName:   "node-1",
		Status:      AgentStale,
		LastMetrics: json.RawMessage(`{"hostname":"h1","cpu":10}`),
		LastSeen:    seen,
		CreatedAt:   seen.Add(-time.Hour),
	}

	back := rec.ToRow().ToRecord()
	if back.ID != rec.ID || back.TokenName != rec.TokenName || back.Status != rec.Status {
		t.Fatalf("identity fields lost: %+v", back)
	}
	if string(back.LastMetrics) != string(rec.LastMetrics) {
		t.Fatalf("metrics lost: %s", back.LastMetrics)
	}
	if !back.LastSeen.Equal(seen) {
		t.Fatalf("last seen lost: %v", back.LastSeen)
	}
}

func TestAgentRowWithoutMetrics(t *testing.T) {
	rec := Agent{AgentID: "h2", Status: string(AgentConnected)}.ToRecord()
	if rec.LastMetrics != nil {
		t.Fatalf("expected nil metrics, got %s", rec.LastMetrics)
	}
}
