package usecase

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Alwanly/service-fleet-monitor/internal/config"
	"github.com/Alwanly/service-fleet-monitor/internal/dispatch"
	"github.com/Alwanly/service-fleet-monitor/internal/live"
	"github.com/Alwanly/service-fleet-monitor/internal/registry"
	"github.com/Alwanly/service-fleet-monitor/internal/server/controller/dto"
	"github.com/Alwanly/service-fleet-monitor/internal/session"
	"github.com/Alwanly/service-fleet-monitor/internal/token"
	"github.com/Alwanly/service-fleet-monitor/pkg/apperror"
	"github.com/Alwanly/service-fleet-monitor/pkg/logger"
	"github.com/Alwanly/service-fleet-monitor/pkg/wrapper"
	"go.uber.org/zap"
)

// UseCase ties the control-plane components to the HTTP surface. Every method returns the
// status code and body the handler should write.
type UseCase struct {
	Tokens     *token.Authority
	Registry   *registry.Registry
	Dispatcher *dispatch.Dispatcher
	Sessions   *session.Manager
	Hub        *live.Hub
	Config     *config.ServerConfig
	Logger     *logger.CanonicalLogger
}

type UseCaseInterface interface {
	Connect(ctx context.Context, req *dto.ConnectRequest) wrapper.JSONResult
	Update(ctx context.Context, req *dto.UpdateRequest) wrapper.JSONResult
	Disconnect(ctx context.Context, secret string, req *dto.DisconnectRequest) wrapper.JSONResult
	ListAgents(ctx context.Context) wrapper.JSONResult
	GetAgent(ctx context.Context, agentID string) wrapper.JSONResult
	EnqueueCommand(ctx context.Context, sessionID string, req *dto.EnqueueCommandRequest) wrapper.JSONResult
	FetchCommands(ctx context.Context, secret, agentID string, max int) wrapper.JSONResult
	AckCommand(ctx context.Context, secret string, req *dto.AckCommandRequest) wrapper.JSONResult
	CommandHistory(ctx context.Context, agentID string) wrapper.JSONResult
	Login(ctx context.Context, req *dto.LoginRequest) wrapper.JSONResult
	Logout(ctx context.Context, sessionID string) wrapper.JSONResult
	CreateToken(ctx context.Context, sessionID string, req *dto.CreateTokenRequest) wrapper.JSONResult
	Health(ctx context.Context) wrapper.JSONResult
}

var _ UseCaseInterface = (*UseCase)(nil)

func NewUseCase(uc UseCase) *UseCase {
	return &uc
}

// Restore loads persisted tokens and agents into memory.
func (uc *UseCase) Restore(ctx context.Context) error {
	if err := uc.Tokens.Load(ctx); err != nil {
		return err
	}
	return uc.Registry.Load(ctx)
}

func (uc *UseCase) fail(ctx context.Context, err error) wrapper.JSONResult {
	logger.AddToContext(ctx, zap.Error(err))
	if apperror.Kind(err) == "internal_error" {
		uc.Logger.WithError(err).Error("unexpected failure")
	}
	return wrapper.ResponseError(err)
}

func (uc *UseCase) Connect(ctx context.Context, req *dto.ConnectRequest) wrapper.JSONResult {
	rec, err := uc.Registry.Connect(req.Secret(), req.Hostname)
	if err != nil {
		return uc.fail(ctx, err)
	}
	logger.AddToContext(ctx, logger.String(logger.FieldAgentID, rec.ID))
	return wrapper.ResponseSuccess(http.StatusOK, dto.ConnectResponse{Status: "connected", Agent: rec})
}

func (uc *UseCase) Update(ctx context.Context, req *dto.UpdateRequest) wrapper.JSONResult {
	rec, err := uc.Registry.Update(req.Secret(), req.Metrics)
	if err != nil {
		return uc.fail(ctx, err)
	}
	logger.AddToContext(ctx, logger.String(logger.FieldAgentID, rec.ID))
	uc.Hub.BroadcastUpdate(rec.ID, rec.LastMetrics)
	return wrapper.ResponseSuccess(http.StatusOK, dto.UpdateResponse{Status: "ok", AgentID: rec.ID})
}

func (uc *UseCase) Disconnect(ctx context.Context, secret string, req *dto.DisconnectRequest) wrapper.JSONResult {
	rec, err := uc.Registry.Disconnect(secret, req.AgentID)
	if err != nil {
		return uc.fail(ctx, err)
	}
	logger.AddToContext(ctx, logger.String(logger.FieldAgentID, rec.ID))
	return wrapper.ResponseSuccess(http.StatusOK, dto.DisconnectResponse{Status: "disconnected", Agent: rec})
}

func (uc *UseCase) ListAgents(_ context.Context) wrapper.JSONResult {
	return wrapper.ResponseSuccess(http.StatusOK, dto.ListAgentsResponse{Agents: uc.Registry.List()})
}

func (uc *UseCase) GetAgent(ctx context.Context, agentID string) wrapper.JSONResult {
	rec, err := uc.Registry.Get(agentID)
	if err != nil {
		return uc.fail(ctx, err)
	}
	return wrapper.ResponseSuccess(http.StatusOK, rec)
}

func (uc *UseCase) EnqueueCommand(ctx context.Context, sessionID string, req *dto.EnqueueCommandRequest) wrapper.JSONResult {
	cmd, err := uc.Dispatcher.Enqueue(sessionID, req.AgentID, req.Payload)
	if err != nil {
		return uc.fail(ctx, err)
	}
	logger.AddToContext(ctx,
		logger.String(logger.FieldAgentID, cmd.TargetAgentID),
		logger.String(logger.FieldCommandID, cmd.ID),
	)
	return wrapper.ResponseSuccess(http.StatusOK, dto.EnqueueCommandResponse{Status: "queued", CommandID: cmd.ID})
}

// FetchCommands delivers pending commands to the agent that owns secret.
func (uc *UseCase) FetchCommands(ctx context.Context, secret, agentID string, max int) wrapper.JSONResult {
	if err := uc.Registry.Authorize(secret, agentID); err != nil {
		return uc.fail(ctx, err)
	}
	cmds, err := uc.Dispatcher.FetchPending(agentID, max)
	if err != nil {
		return uc.fail(ctx, err)
	}
	logger.AddToContext(ctx,
		logger.String(logger.FieldAgentID, agentID),
		logger.Int("delivered", len(cmds)),
	)
	return wrapper.ResponseSuccess(http.StatusOK, cmds)
}

// AckCommand acknowledges a command on behalf of the agent it targets.
func (uc *UseCase) AckCommand(ctx context.Context, secret string, req *dto.AckCommandRequest) wrapper.JSONResult {
	logger.AddToContext(ctx, logger.String(logger.FieldCommandID, req.CommandID))

	cmd, err := uc.Dispatcher.Get(req.CommandID)
	if err != nil {
		return uc.fail(ctx, err)
	}
	if err := uc.Registry.Authorize(secret, cmd.TargetAgentID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			err = apperror.ErrAuth
		}
		return uc.fail(ctx, err)
	}
	if err := uc.Dispatcher.Ack(req.CommandID); err != nil {
		return uc.fail(ctx, err)
	}
	return wrapper.ResponseSuccess(http.StatusOK, dto.StatusResponse{Status: "ok"})
}

func (uc *UseCase) CommandHistory(ctx context.Context, agentID string) wrapper.JSONResult {
	if !uc.Registry.Exists(agentID) {
		return uc.fail(ctx, apperror.ErrNotFound)
	}
	return wrapper.ResponseSuccess(http.StatusOK, dto.CommandHistoryResponse{
		AgentID:  agentID,
		Commands: uc.Dispatcher.History(agentID),
	})
}

func (uc *UseCase) Login(ctx context.Context, req *dto.LoginRequest) wrapper.JSONResult {
	sess, err := uc.Sessions.Login(ctx, req.Username, req.Password)
	if err != nil {
		return uc.fail(ctx, err)
	}
	return wrapper.ResponseSuccess(http.StatusOK, dto.LoginResponse{Status: "ok", Session: sess.ID, ExpiresAt: sess.ExpiresAt})
}

func (uc *UseCase) Logout(_ context.Context, sessionID string) wrapper.JSONResult {
	uc.Sessions.Logout(sessionID)
	return wrapper.ResponseSuccess(http.StatusOK, dto.StatusResponse{Status: "ok"})
}

func (uc *UseCase) CreateToken(ctx context.Context, sessionID string, req *dto.CreateTokenRequest) wrapper.JSONResult {
	tok, err := uc.Tokens.Create(ctx, sessionID, req.Name, req.Token)
	if err != nil {
		return uc.fail(ctx, err)
	}
	logger.AddToContext(ctx, logger.String(logger.FieldTokenName, tok.Name))
	return wrapper.ResponseSuccess(http.StatusOK, dto.CreateTokenResponse{Status: "created", Name: tok.Name, Token: tok.Secret})
}

func (uc *UseCase) Health(_ context.Context) wrapper.JSONResult {
	counts := uc.Registry.Counts()
	agents := make(map[string]int, len(counts))
	for status, n := range counts {
		agents[string(status)] = n
	}
	liveAgents, observers := uc.Hub.Counts()
	return wrapper.ResponseSuccess(http.StatusOK, dto.HealthResponse{
		Status:         "healthy",
		Agents:         agents,
		QueuedCommands: uc.Dispatcher.PendingCount(),
		LiveAgents:     liveAgents,
		Observers:      observers,
		Time:           time.Now().UTC(),
	})
}

// Sweep runs one liveness, command-expiry and session sweep.
func (uc *UseCase) Sweep(_ context.Context) error {
	now := time.Now()
	uc.Registry.SweepStale(now, uc.Config.HeartbeatInterval)
	uc.Dispatcher.SweepExpired(now)
	if n := uc.Sessions.SweepExpired(now); n > 0 {
		uc.Logger.Info("admin sessions expired", logger.Int(logger.FieldSweptCount, n))
	}
	return nil
}

// Flush persists changed agent records.
func (uc *UseCase) Flush(ctx context.Context) error {
	return uc.Registry.Flush(ctx)
}

// AuthorizeLive decides who is opening a live channel: an admin observer (agentID empty)
// or an agent that owns agentID.
func (uc *UseCase) AuthorizeLive(sessionID, secret, agentID string) (observer bool, err error) {
	if sessionID != "" && uc.Sessions.Authorize(sessionID) {
		return true, nil
	}
	if agentID == "" {
		return false, apperror.ErrAuth
	}
	if err := uc.Registry.Authorize(secret, agentID); err != nil {
		return false, err
	}
	return false, nil
}
