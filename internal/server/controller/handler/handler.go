package handler

import (
	"context"
	"fmt"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Alwanly/service-fleet-monitor/internal/auth"
	"github.com/Alwanly/service-fleet-monitor/internal/config"
	"github.com/Alwanly/service-fleet-monitor/internal/dispatch"
	"github.com/Alwanly/service-fleet-monitor/internal/live"
	"github.com/Alwanly/service-fleet-monitor/internal/registry"
	"github.com/Alwanly/service-fleet-monitor/internal/server/controller/dto"
	"github.com/Alwanly/service-fleet-monitor/internal/server/controller/repository"
	"github.com/Alwanly/service-fleet-monitor/internal/server/controller/usecase"
	"github.com/Alwanly/service-fleet-monitor/internal/session"
	"github.com/Alwanly/service-fleet-monitor/internal/token"
	"github.com/Alwanly/service-fleet-monitor/pkg/apperror"
	authentication "github.com/Alwanly/service-fleet-monitor/pkg/auth"
	"github.com/Alwanly/service-fleet-monitor/pkg/deps"
	"github.com/Alwanly/service-fleet-monitor/pkg/logger"
	"github.com/Alwanly/service-fleet-monitor/pkg/middleware"
	"github.com/Alwanly/service-fleet-monitor/pkg/poll"
	"github.com/Alwanly/service-fleet-monitor/pkg/validator"
	"github.com/Alwanly/service-fleet-monitor/pkg/wrapper"
)

const (
	liveRoleKey    = "live_role"
	liveAgentIDKey = "live_agent_id"
	roleObserver   = "observer"
	roleAgent      = "agent"
)

type Handler struct {
	Logger  *logger.CanonicalLogger
	UseCase *usecase.UseCase
	Config  *config.ServerConfig
}

// NewHandler builds the control plane from d and cfg, registers its routes on d.Fiber and
// its periodic jobs on d.Poller. Persisted state is not loaded until UseCase.Restore.
func NewHandler(d deps.App, cfg *config.ServerConfig) (*Handler, error) {
	creds := auth.NewCredentialStore(cfg.AdminCredentialsPath, cfg.AdminUsername, cfg.AdminPasswordHash)
	admin, err := creds.LoadAdmin(context.Background())
	if err != nil {
		return nil, err
	}
	verifier := authentication.SelectVerifier(admin.PasswordHash)
	if !verifier.Secure() {
		d.Logger.Error("REDUCED SECURITY: admin password verified with a fast unsalted hash; store a bcrypt hash instead",
			logger.String("verifier", verifier.Name()),
		)
	} else {
		d.Logger.Info("admin password verifier selected", logger.String("verifier", verifier.Name()))
	}

	repo := repository.NewRepository(d.Database)
	sessions := session.NewManager(creds, verifier, d.Logger, session.WithTTL(cfg.SessionTTL))
	tokens := token.NewAuthority(repo, sessions, d.Logger)
	reg := registry.New(tokens, repo, d.Logger)
	hub := live.NewHub(d.Pub, d.Logger, live.WithKeepAlive(cfg.KeepAliveInterval))
	dispatcher := dispatch.New(sessions, reg, d.Logger,
		dispatch.WithTTL(cfg.CommandTTL),
		dispatch.WithNotifier(hub),
	)

	uc := usecase.NewUseCase(usecase.UseCase{
		Tokens:     tokens,
		Registry:   reg,
		Dispatcher: dispatcher,
		Sessions:   sessions,
		Hub:        hub,
		Config:     cfg,
		Logger:     d.Logger,
	})

	h := &Handler{
		Logger:  d.Logger,
		UseCase: uc,
		Config:  cfg,
	}

	adminOnly := middleware.AdminSession(sessions, d.Logger)
	agentOnly := middleware.AgentTokenAuth(tokens, d.Logger)

	// Health check endpoint (no auth required)
	d.Fiber.Get("/health", h.health)

	// Agent endpoints; connect and update carry the token in the body
	d.Fiber.Post("/api/agent/connect", h.connect)
	d.Fiber.Post("/api/agent/update", h.update)
	d.Fiber.Post("/api/agent/disconnect", agentOnly, h.disconnect)
	d.Fiber.Post("/api/agent/command/ack", agentOnly, h.ackCommand)

	// Admin endpoints
	d.Fiber.Post("/api/admin/login", h.login)
	d.Fiber.Post("/api/admin/logout", adminOnly, h.logout)
	d.Fiber.Post("/api/admin/token", adminOnly, h.createToken)
	d.Fiber.Get("/api/agent/list", adminOnly, h.listAgents)
	d.Fiber.Post("/api/agent/command", adminOnly, h.enqueueCommand)
	d.Fiber.Get("/api/agent/:id/commands", agentOnly, h.fetchCommands)
	d.Fiber.Get("/api/agent/:id/history", adminOnly, h.commandHistory)
	d.Fiber.Get("/api/agent/:id", adminOnly, h.getAgent)

	// Live push channel
	d.Fiber.Use("/api/live", h.liveUpgrade)
	d.Fiber.Get("/api/live", websocket.New(h.live))

	if d.Poller != nil {
		d.Poller.RegisterFetchFunc("sweep", uc.Sweep, poll.PollerConfig{Interval: cfg.SweepInterval})
		d.Poller.RegisterFetchFunc("flush_agents", uc.Flush, poll.PollerConfig{Interval: cfg.FlushInterval})
	}

	return h, nil
}

func (h *Handler) write(c *fiber.Ctx, res wrapper.JSONResult) error {
	return c.Status(res.Code).JSON(res.Data)
}

func (h *Handler) badRequest(c *fiber.Ctx, err error) error {
	logger.AddToContext(c.UserContext(), zap.Error(err))
	return h.write(c, wrapper.ResponseError(err))
}

// parse decodes the body into req and runs its validation tags.
func parse[T any](c *fiber.Ctx, req *T) error {
	if err := c.BodyParser(req); err != nil {
		return fmt.Errorf("%w: %v", apperror.ErrValidation, err)
	}
	return validator.ValidateStruct(req)
}

// connect godoc
// @Summary      Connect an agent
// @Description  Register or refresh the agent reporting hostname. The token travels in the body.
// @Tags         agent
// @Accept       json
// @Produce      json
// @Param        request body dto.ConnectRequest true "Token and hostname"
// @Success      200 {object} dto.ConnectResponse
// @Failure      400 {object} wrapper.ErrorBody
// @Failure      401 {object} wrapper.ErrorBody
// @Router       /api/agent/connect [post]
func (h *Handler) connect(c *fiber.Ctx) error {
	logger.AddToContext(c.UserContext(), logger.String(logger.FieldOperation, "agent_connect"))

	req := new(dto.ConnectRequest)
	if err := parse(c, req); err != nil {
		return h.badRequest(c, err)
	}
	return h.write(c, h.UseCase.Connect(c.UserContext(), req))
}

// update godoc
// @Summary      Report telemetry
// @Description  Store a metrics document. The agent id is taken from metrics.hostname.
// @Tags         agent
// @Accept       json
// @Produce      json
// @Param        request body dto.UpdateRequest true "Token and metrics"
// @Success      200 {object} dto.UpdateResponse
// @Failure      400 {object} wrapper.ErrorBody
// @Failure      401 {object} wrapper.ErrorBody
// @Router       /api/agent/update [post]
func (h *Handler) update(c *fiber.Ctx) error {
	logger.AddToContext(c.UserContext(), logger.String(logger.FieldOperation, "agent_update"))

	req := new(dto.UpdateRequest)
	if err := parse(c, req); err != nil {
		return h.badRequest(c, err)
	}
	return h.write(c, h.UseCase.Update(c.UserContext(), req))
}

// disconnect godoc
// @Summary      Disconnect an agent
// @Description  Mark the agent Disconnected. The token must be the one the agent connected with.
// @Tags         agent
// @Accept       json
// @Produce      json
// @Param        request body dto.DisconnectRequest true "Agent id"
// @Success      200 {object} dto.DisconnectResponse
// @Failure      401 {object} wrapper.ErrorBody
// @Failure      404 {object} wrapper.ErrorBody
// @Router       /api/agent/disconnect [post]
// @Security     AgentToken
func (h *Handler) disconnect(c *fiber.Ctx) error {
	logger.AddToContext(c.UserContext(), logger.String(logger.FieldOperation, "agent_disconnect"))

	req := new(dto.DisconnectRequest)
	if err := parse(c, req); err != nil {
		return h.badRequest(c, err)
	}
	return h.write(c, h.UseCase.Disconnect(c.UserContext(), agentSecret(c), req))
}

// listAgents godoc
// @Summary      List agents
// @Tags         agent
// @Produce      json
// @Success      200 {object} dto.ListAgentsResponse
// @Failure      401 {object} wrapper.ErrorBody
// @Router       /api/agent/list [get]
// @Security     AdminSession
func (h *Handler) listAgents(c *fiber.Ctx) error {
	logger.AddToContext(c.UserContext(), logger.String(logger.FieldOperation, "list_agents"))
	return h.write(c, h.UseCase.ListAgents(c.UserContext()))
}

// getAgent godoc
// @Summary      Get agent
// @Tags         agent
// @Produce      json
// @Param        id path string true "Agent id"
// @Success      200 {object} models.AgentRecord
// @Failure      401 {object} wrapper.ErrorBody
// @Failure      404 {object} wrapper.ErrorBody
// @Router       /api/agent/{id} [get]
// @Security     AdminSession
func (h *Handler) getAgent(c *fiber.Ctx) error {
	logger.AddToContext(c.UserContext(),
		logger.String(logger.FieldOperation, "get_agent"),
		logger.String(logger.FieldAgentID, c.Params("id")),
	)
	return h.write(c, h.UseCase.GetAgent(c.UserContext(), c.Params("id")))
}

// enqueueCommand godoc
// @Summary      Queue a command
// @Description  Append a command to the target agent's queue and push a commands-available notification.
// @Tags         command
// @Accept       json
// @Produce      json
// @Param        request body dto.EnqueueCommandRequest true "Target agent and payload"
// @Success      200 {object} dto.EnqueueCommandResponse
// @Failure      400 {object} wrapper.ErrorBody
// @Failure      401 {object} wrapper.ErrorBody
// @Failure      404 {object} wrapper.ErrorBody
// @Router       /api/agent/command [post]
// @Security     AdminSession
func (h *Handler) enqueueCommand(c *fiber.Ctx) error {
	logger.AddToContext(c.UserContext(), logger.String(logger.FieldOperation, "enqueue_command"))

	req := new(dto.EnqueueCommandRequest)
	if err := parse(c, req); err != nil {
		return h.badRequest(c, err)
	}
	return h.write(c, h.UseCase.EnqueueCommand(c.UserContext(), sessionID(c), req))
}

// fetchCommands godoc
// @Summary      Fetch pending commands
// @Description  Return up to max queued commands in order, marking each delivered.
// @Tags         command
// @Produce      json
// @Param        id path string true "Agent id"
// @Param        max query int false "Batch size" default(10)
// @Success      200 {array} models.Command
// @Failure      401 {object} wrapper.ErrorBody
// @Failure      404 {object} wrapper.ErrorBody
// @Router       /api/agent/{id}/commands [get]
// @Security     AgentToken
func (h *Handler) fetchCommands(c *fiber.Ctx) error {
	agentID := c.Params("id")
	logger.AddToContext(c.UserContext(), logger.String(logger.FieldOperation, "fetch_commands"))

	max := c.QueryInt("max", dispatch.DefaultBatch)
	return h.write(c, h.UseCase.FetchCommands(c.UserContext(), agentSecret(c), agentID, max))
}

// ackCommand godoc
// @Summary      Acknowledge a command
// @Tags         command
// @Accept       json
// @Produce      json
// @Param        request body dto.AckCommandRequest true "Command id"
// @Success      200 {object} dto.StatusResponse
// @Failure      401 {object} wrapper.ErrorBody
// @Failure      404 {object} wrapper.ErrorBody
// @Failure      409 {object} wrapper.ErrorBody
// @Router       /api/agent/command/ack [post]
// @Security     AgentToken
func (h *Handler) ackCommand(c *fiber.Ctx) error {
	logger.AddToContext(c.UserContext(), logger.String(logger.FieldOperation, "ack_command"))

	req := new(dto.AckCommandRequest)
	if err := parse(c, req); err != nil {
		return h.badRequest(c, err)
	}
	return h.write(c, h.UseCase.AckCommand(c.UserContext(), agentSecret(c), req))
}

// commandHistory godoc
// @Summary      Command history
// @Description  Every retained command for the agent with its status.
// @Tags         command
// @Produce      json
// @Param        id path string true "Agent id"
// @Success      200 {object} dto.CommandHistoryResponse
// @Failure      401 {object} wrapper.ErrorBody
// @Failure      404 {object} wrapper.ErrorBody
// @Router       /api/agent/{id}/history [get]
// @Security     AdminSession
func (h *Handler) commandHistory(c *fiber.Ctx) error {
	logger.AddToContext(c.UserContext(),
		logger.String(logger.FieldOperation, "command_history"),
		logger.String(logger.FieldAgentID, c.Params("id")),
	)
	return h.write(c, h.UseCase.CommandHistory(c.UserContext(), c.Params("id")))
}

// login godoc
// @Summary      Admin login
// @Description  Issue an admin session. Any earlier session for the admin is revoked.
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        request body dto.LoginRequest true "Credentials"
// @Success      200 {object} dto.LoginResponse
// @Failure      400 {object} wrapper.ErrorBody
// @Failure      401 {object} wrapper.ErrorBody
// @Router       /api/admin/login [post]
func (h *Handler) login(c *fiber.Ctx) error {
	logger.AddToContext(c.UserContext(), logger.String(logger.FieldOperation, "admin_login"))

	req := new(dto.LoginRequest)
	if err := parse(c, req); err != nil {
		return h.badRequest(c, err)
	}
	return h.write(c, h.UseCase.Login(c.UserContext(), req))
}

// logout godoc
// @Summary      Admin logout
// @Tags         admin
// @Produce      json
// @Success      200 {object} dto.StatusResponse
// @Failure      401 {object} wrapper.ErrorBody
// @Router       /api/admin/logout [post]
// @Security     AdminSession
func (h *Handler) logout(c *fiber.Ctx) error {
	logger.AddToContext(c.UserContext(), logger.String(logger.FieldOperation, "admin_logout"))
	return h.write(c, h.UseCase.Logout(c.UserContext(), sessionID(c)))
}

// createToken godoc
// @Summary      Issue an agent token
// @Description  Create or overwrite the token for name. The previous secret stops working immediately.
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        request body dto.CreateTokenRequest true "Token name and optional secret"
// @Success      200 {object} dto.CreateTokenResponse
// @Failure      400 {object} wrapper.ErrorBody
// @Failure      401 {object} wrapper.ErrorBody
// @Failure      409 {object} wrapper.ErrorBody
// @Router       /api/admin/token [post]
// @Security     AdminSession
func (h *Handler) createToken(c *fiber.Ctx) error {
	logger.AddToContext(c.UserContext(), logger.String(logger.FieldOperation, "create_token"))

	req := new(dto.CreateTokenRequest)
	if err := parse(c, req); err != nil {
		return h.badRequest(c, err)
	}
	return h.write(c, h.UseCase.CreateToken(c.UserContext(), sessionID(c), req))
}

// health godoc
// @Summary     Health check
// @Description Registry counts, queued commands and live connections (unauthenticated)
// @Tags        health
// @Produce     json
// @Success     200 {object} dto.HealthResponse
// @Router      /health [get]
func (h *Handler) health(c *fiber.Ctx) error {
	logger.AddToContext(c.UserContext(), logger.String(logger.FieldOperation, "health_check"))
	return h.write(c, h.UseCase.Health(c.UserContext()))
}

// liveUpgrade authenticates a live channel before the websocket handshake. Admins pass a
// session; agents pass their token and agent id.
func (h *Handler) liveUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	agentID := c.Query("agent")
	observer, err := h.UseCase.AuthorizeLive(middleware.SessionFromRequest(c), middleware.AgentTokenFromRequest(c), agentID)
	if err != nil {
		logger.AddToContext(c.UserContext(), zap.Error(err))
		return h.write(c, wrapper.ResponseError(err))
	}
	if observer {
		c.Locals(liveRoleKey, roleObserver)
	} else {
		c.Locals(liveRoleKey, roleAgent)
		c.Locals(liveAgentIDKey, agentID)
	}
	return c.Next()
}

func (h *Handler) live(conn *websocket.Conn) {
	if role, _ := conn.Locals(liveRoleKey).(string); role == roleObserver {
		h.UseCase.Hub.ServeObserver(conn)
		return
	}
	agentID, _ := conn.Locals(liveAgentIDKey).(string)
	h.UseCase.Hub.ServeAgent(agentID, conn)
}

func agentSecret(c *fiber.Ctx) string {
	secret, _ := c.Locals(middleware.AgentSecretContextKey).(string)
	return secret
}

func sessionID(c *fiber.Ctx) string {
	id, _ := c.Locals(middleware.SessionIDContextKey).(string)
	return id
}
