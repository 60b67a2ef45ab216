package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"
)

type fakeSource struct {
	procs   []Process
	diskErr error
}

func (f fakeSource) CPUPercent(context.Context) (float64, error) { return 9.6, nil }

func (f fakeSource) Memory(context.Context) (Memory, error) {
	return Memory{Total: 100, Available: 40, Used: 60, Percent: 60}, nil
}

func (f fakeSource) Disks(context.Context) ([]Disk, error) {
	if f.diskErr != nil {
		return nil, f.diskErr
	}
	return []Disk{{FS: "/dev/sda1", Type: "ext4", Size: 10, Used: 5, Available: 5, UsePercent: 50}}, nil
}

func (f fakeSource) Network(context.Context) ([]NetInterface, error) {
	return nil, nil
}

func (f fakeSource) Processes(context.Context) ([]Process, error) {
	return f.procs, nil
}

func fixedHost() (string, error) { return "h1", nil }

func TestCollect(t *testing.T) {
	var procs []Process
	for i := 0; i < 15; i++ {
		procs = append(procs, Process{PID: int32(i), Name: fmt.Sprintf("p%d", i), CPU: float64(i)})
	}
	at := time.Unix(1_700_000_000, 0)
	c := NewCollector(fakeSource{procs: procs}, WithHostname(fixedHost), WithClock(func() time.Time { return at }))

	snap := c.Collect(context.Background())
	if snap.Degraded() {
		t.Fatalf("unexpected degraded snapshot: %s", snap.Error)
	}
	if snap.Hostname != "h1" || snap.CPUPercent != 10 || snap.Memory.Percent != 60 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if !snap.CollectedAt.Equal(at) {
		t.Fatalf("expected collected at %v, got %v", at, snap.CollectedAt)
	}
	if len(snap.Processes) != TopProcesses {
		t.Fatalf("expected %d processes, got %d", TopProcesses, len(snap.Processes))
	}
	if snap.Processes[0].PID != 14 || snap.Processes[9].PID != 5 {
		t.Fatalf("processes not ordered by cpu: %+v", snap.Processes)
	}
	if snap.Network == nil {
		t.Fatal("empty sections must encode as arrays")
	}
}

func TestCollect_FailureYieldsTaggedSnapshot(t *testing.T) {
	c := NewCollector(fakeSource{diskErr: errors.New("statfs: permission denied")}, WithHostname(fixedHost))

	snap := c.Collect(context.Background())
	if !snap.Degraded() || snap.Error != "statfs: permission denied" {
		t.Fatalf("expected tagged error snapshot, got %+v", snap)
	}
	if snap.Hostname != "h1" || snap.CPUPercent != 0 || len(snap.Disk) != 0 {
		t.Fatalf("fallback snapshot should be empty apart from hostname, got %+v", snap)
	}

	raw, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if doc["hostname"] != "h1" || doc["error"] == nil {
		t.Fatalf("hostname and error must be on the wire: %s", raw)
	}
}

func TestHostname_Fallback(t *testing.T) {
	c := NewCollector(fakeSource{}, WithHostname(func() (string, error) { return "", errors.New("no uts") }))
	if got := c.Hostname(); got != "unknown" {
		t.Fatalf("expected unknown, got %q", got)
	}
}
