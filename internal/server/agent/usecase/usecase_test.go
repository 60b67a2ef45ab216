package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Alwanly/service-fleet-monitor/internal/config"
	"github.com/Alwanly/service-fleet-monitor/internal/live"
	"github.com/Alwanly/service-fleet-monitor/internal/models"
	"github.com/Alwanly/service-fleet-monitor/internal/server/agent/dto"
	"github.com/Alwanly/service-fleet-monitor/internal/server/agent/repository"
	"github.com/Alwanly/service-fleet-monitor/internal/telemetry"
	"github.com/Alwanly/service-fleet-monitor/pkg/apperror"
	"github.com/Alwanly/service-fleet-monitor/pkg/logger"
)

type mockControllerClient struct {
	mu         sync.Mutex
	connectErr error
	updateErr  error
	updates    int
	pending    []models.Command
	fetches    int
	acked      []string
	gone       []string
	live       chan repository.LiveConn
}

func (m *mockControllerClient) Connect(ctx context.Context, hostname string) (*models.AgentRecord, error) {
	if m.connectErr != nil {
		return nil, m.connectErr
	}
	return &models.AgentRecord{ID: hostname, Status: models.AgentConnected}, nil
}

func (m *mockControllerClient) Update(ctx context.Context, metrics json.RawMessage) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates++
	if m.updateErr != nil {
		return "", m.updateErr
	}
	var snap telemetry.Snapshot
	if err := json.Unmarshal(metrics, &snap); err != nil {
		return "", err
	}
	return snap.Hostname, nil
}

func (m *mockControllerClient) FetchCommands(ctx context.Context, agentID string, max int) ([]models.Command, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches++
	n := min(max, len(m.pending))
	out := m.pending[:n]
	m.pending = m.pending[n:]
	return out, nil
}

func (m *mockControllerClient) Ack(ctx context.Context, commandID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acked = append(m.acked, commandID)
	return nil
}

func (m *mockControllerClient) Disconnect(ctx context.Context, agentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gone = append(m.gone, agentID)
	return nil
}

func (m *mockControllerClient) DialLive(ctx context.Context, agentID string) (repository.LiveConn, error) {
	select {
	case c := <-m.live:
		return c, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type fixedCollector struct{ host string }

func (f fixedCollector) Hostname() string { return f.host }

func (f fixedCollector) Collect(ctx context.Context) telemetry.Snapshot {
	return telemetry.Snapshot{Hostname: f.host, CPUPercent: 10}
}

type fakeLiveConn struct {
	events chan live.Event
	closed chan struct{}
	once   sync.Once
}

func newFakeLiveConn() *fakeLiveConn {
	return &fakeLiveConn{events: make(chan live.Event, 4), closed: make(chan struct{})}
}

func (f *fakeLiveConn) ReadJSON(v any) error {
	select {
	case ev := <-f.events:
		*(v.(*live.Event)) = ev
		return nil
	case <-f.closed:
		return errors.New("closed")
	}
}

func (f *fakeLiveConn) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func testConfig() *config.AgentConfig {
	return &config.AgentConfig{
		HeartbeatInterval:        10 * time.Second,
		CommandBatch:             2,
		DeliveryMaxAttempts:      3,
		DeliveryBaseDelay:        1500 * time.Millisecond,
		ConnectMaxRetries:        0,
		ConnectInitialBackoff:    time.Millisecond,
		ConnectMaxBackoff:        time.Millisecond,
		ConnectBackoffMultiplier: 2,
	}
}

func newTestUseCase(client *mockControllerClient, opts ...Option) (*UseCase, *repository.Repository) {
	repo := repository.NewRepository("h1", time.Now())
	return NewUseCase(client, repo, fixedCollector{host: "h1"}, testConfig(), logger.NewNop(), opts...), repo
}

func TestRegisterStoresAgentID(t *testing.T) {
	uc, repo := newTestUseCase(&mockControllerClient{})
	if err := uc.Register(context.Background()); err != nil {
		t.Fatalf("expected register to succeed, got %v", err)
	}
	if repo.GetAgentID() != "h1" {
		t.Fatalf("expected agent id stored, got %q", repo.GetAgentID())
	}
	if s := repo.Snapshot(); s.Status != dto.StatusRegistered || s.RegistrationAttempts != 1 {
		t.Fatalf("unexpected registration state %+v", s)
	}
}

func TestRegisterFailureIsRecorded(t *testing.T) {
	uc, repo := newTestUseCase(&mockControllerClient{connectErr: apperror.ErrAuth})
	err := uc.Register(context.Background())
	if !errors.Is(err, apperror.ErrAuth) {
		t.Fatalf("expected auth error, got %v", err)
	}
	if s := repo.Snapshot(); s.Status != dto.StatusRegistrationFailed || s.RegistrationError == "" {
		t.Fatalf("unexpected registration state %+v", s)
	}
}

func TestRunRetriesDeliveryAndKeepsLooping(t *testing.T) {
	client := &mockControllerClient{updateErr: fmt.Errorf("%w: refused", apperror.ErrTransientNetwork)}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var delays []time.Duration
	heartbeats := 0
	sleep := func(_ context.Context, d time.Duration) error {
		mu.Lock()
		defer mu.Unlock()
		delays = append(delays, d)
		if d == 10*time.Second {
			heartbeats++
			if heartbeats == 2 {
				cancel()
			}
		}
		return nil
	}

	uc, repo := newTestUseCase(client, WithSleep(sleep))

	done := make(chan error, 1)
	go func() { done <- uc.Run(ctx) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("run did not stop after cancel")
	}

	if client.updates != 6 {
		t.Fatalf("expected 3 attempts per heartbeat over 2 heartbeats, got %d", client.updates)
	}
	want := []time.Duration{1500 * time.Millisecond, 3 * time.Second, 10 * time.Second, 1500 * time.Millisecond, 3 * time.Second, 10 * time.Second}
	if len(delays) != len(want) {
		t.Fatalf("expected delays %v, got %v", want, delays)
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Fatalf("delay %d: expected %v, got %v", i, want[i], delays[i])
		}
	}

	s := repo.Snapshot()
	if s.LastDelivery == nil || s.LastDelivery.OK || s.LastDelivery.Attempts != 3 || s.FailedDeliveries != 2 {
		t.Fatalf("unexpected delivery state %+v", s.LastDelivery)
	}
}

func TestHeartbeatSucceedsAfterTransientFailure(t *testing.T) {
	client := &mockControllerClient{}
	var calls int
	sleep := func(_ context.Context, d time.Duration) error {
		calls++
		client.mu.Lock()
		client.updateErr = nil
		client.mu.Unlock()
		return nil
	}
	client.updateErr = apperror.ErrTransientNetwork
	uc, repo := newTestUseCase(client, WithSleep(sleep))

	if err := uc.Heartbeat(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.updates != 2 || calls != 1 {
		t.Fatalf("expected 2 attempts and 1 delay, got %d and %d", client.updates, calls)
	}
	if repo.GetAgentID() != "h1" {
		t.Fatalf("expected agent id from update, got %q", repo.GetAgentID())
	}
}

func TestDrainCommandsAcksInOrderAcrossBatches(t *testing.T) {
	client := &mockControllerClient{pending: []models.Command{{ID: "c1"}, {ID: "c2"}, {ID: "c3"}}}
	var handled []string
	uc, repo := newTestUseCase(client, WithCommandHandler(func(_ context.Context, cmd models.Command) error {
		handled = append(handled, cmd.ID)
		return nil
	}))
	repo.SetAgentID("h1")

	if err := uc.DrainCommands(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fmt.Sprint(handled) != "[c1 c2 c3]" || fmt.Sprint(client.acked) != "[c1 c2 c3]" {
		t.Fatalf("expected ordered handling and acks, got %v / %v", handled, client.acked)
	}
	if client.fetches != 2 {
		t.Fatalf("expected a second fetch after a full batch, got %d", client.fetches)
	}
	if s := repo.Snapshot(); s.CommandsProcessed != 3 || s.LastCommandID != "c3" {
		t.Fatalf("unexpected command state %+v", s)
	}
}

func TestDrainCommandsWithoutAgentIDIsNoop(t *testing.T) {
	client := &mockControllerClient{pending: []models.Command{{ID: "c1"}}}
	uc, _ := newTestUseCase(client)
	if err := uc.DrainCommands(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.fetches != 0 {
		t.Fatalf("expected no fetch before the agent id is known")
	}
}

func TestSubscribePushTriggersDrain(t *testing.T) {
	conn := newFakeLiveConn()
	client := &mockControllerClient{live: make(chan repository.LiveConn, 1)}
	client.live <- conn
	uc, repo := newTestUseCase(client)
	repo.SetAgentID("h1")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- uc.Subscribe(ctx) }()

	conn.events <- live.Event{Type: live.EventKeepAlive}
	conn.events <- live.Event{Type: live.EventCommandsAvailable, AgentID: "h1"}

	select {
	case <-uc.drain:
	case <-time.After(time.Second):
		t.Fatal("expected a drain signal after commands-available")
	}
	if !repo.Snapshot().LiveConnected {
		t.Fatal("expected live channel marked connected")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("subscribe returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("subscribe did not stop after cancel")
	}
	if repo.Snapshot().LiveConnected {
		t.Fatal("expected live channel marked disconnected")
	}
}

func TestNotifyCoalesces(t *testing.T) {
	uc, _ := newTestUseCase(&mockControllerClient{})
	uc.Notify()
	uc.Notify()
	if len(uc.drain) != 1 {
		t.Fatalf("expected one pending signal, got %d", len(uc.drain))
	}
}

func TestRegisterRetriesThroughInjectedSleep(t *testing.T) {
	client := &mockControllerClient{connectErr: apperror.ErrTransientNetwork}
	var delays []time.Duration
	sleep := func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	repo := repository.NewRepository("h1", time.Now())
	cfg := testConfig()
	cfg.ConnectMaxRetries = 2
	cfg.ConnectInitialBackoff = time.Second
	cfg.ConnectMaxBackoff = 10 * time.Second
	uc := NewUseCase(client, repo, fixedCollector{host: "h1"}, cfg, logger.NewNop(), WithSleep(sleep))

	if err := uc.Register(context.Background()); !errors.Is(err, apperror.ErrTransientNetwork) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if len(delays) != 2 {
		t.Fatalf("expected 2 backoff delays, got %v", delays)
	}
	if delays[0] < 750*time.Millisecond || delays[0] > 1250*time.Millisecond ||
		delays[1] < 1500*time.Millisecond || delays[1] > 2500*time.Millisecond {
		t.Fatalf("expected exponential delays around 1s and 2s, got %v", delays)
	}
	if s := repo.Snapshot(); s.RegistrationAttempts != 3 {
		t.Fatalf("expected 3 attempts recorded, got %d", s.RegistrationAttempts)
	}
}

func TestSubscribeWaitsForAgentID(t *testing.T) {
	conn := newFakeLiveConn()
	client := &mockControllerClient{live: make(chan repository.LiveConn, 1)}
	client.live <- conn

	var repo *repository.Repository
	waits := 0
	sleep := func(_ context.Context, d time.Duration) error {
		waits++
		repo.SetAgentID("h1")
		return nil
	}
	var uc *UseCase
	uc, repo = newTestUseCase(client, WithSleep(sleep))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- uc.Subscribe(ctx) }()

	conn.events <- live.Event{Type: live.EventCommandsAvailable, AgentID: "h1"}
	select {
	case <-uc.drain:
	case <-time.After(time.Second):
		t.Fatal("expected a drain signal once connected")
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("subscribe returned %v", err)
	}
	if waits != 1 {
		t.Fatalf("expected one backoff wait before the id was known, got %d", waits)
	}
}

func TestServeRegistersHeartbeatsAndUnregisters(t *testing.T) {
	client := &mockControllerClient{pending: []models.Command{{ID: "c1", TargetAgentID: "h1"}}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sleep := func(_ context.Context, d time.Duration) error {
		if d == 10*time.Second {
			cancel()
		}
		return nil
	}
	uc, repo := newTestUseCase(client, WithSleep(sleep))

	done := make(chan error, 1)
	go func() { done <- uc.Serve(ctx) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("serve did not stop after cancel")
	}

	if repo.GetAgentID() != "h1" {
		t.Fatalf("expected agent id h1, got %q", repo.GetAgentID())
	}
	client.mu.Lock()
	defer client.mu.Unlock()
	if client.updates != 1 {
		t.Fatalf("expected one heartbeat, got %d", client.updates)
	}
	if len(client.acked) != 1 || client.acked[0] != "c1" {
		t.Fatalf("expected c1 acked, got %v", client.acked)
	}
	if len(client.gone) != 1 || client.gone[0] != "h1" {
		t.Fatalf("expected h1 to unregister once, got %v", client.gone)
	}
}

func TestServeWithLiveStopsSubscriberOnCancel(t *testing.T) {
	client := &mockControllerClient{live: make(chan repository.LiveConn, 1)}
	conn := newFakeLiveConn()
	client.live <- conn

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	heartbeats := make(chan struct{}, 8)
	sleep := func(ctx context.Context, d time.Duration) error {
		if d == 10*time.Second {
			heartbeats <- struct{}{}
			<-ctx.Done()
			return ctx.Err()
		}
		return nil
	}
	uc, repo := newTestUseCase(client, WithSleep(sleep))
	uc.cfg.LiveEnabled = true

	done := make(chan error, 1)
	go func() { done <- uc.Serve(ctx) }()

	<-heartbeats
	deadline := time.Now().Add(2 * time.Second)
	for !repo.Snapshot().LiveConnected {
		if time.Now().After(deadline) {
			t.Fatal("live channel never connected")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("serve did not stop after cancel")
	}
	if repo.Snapshot().LiveConnected {
		t.Fatal("live flag should clear once the channel closes")
	}
}
