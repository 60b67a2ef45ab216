package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/Alwanly/service-fleet-monitor/internal/config"
	"github.com/Alwanly/service-fleet-monitor/internal/models"
	"github.com/Alwanly/service-fleet-monitor/internal/server/controller/dto"
	"github.com/Alwanly/service-fleet-monitor/pkg/apperror"
	"github.com/Alwanly/service-fleet-monitor/pkg/logger"
	"github.com/Alwanly/service-fleet-monitor/pkg/wrapper"
)

type controllerClient struct {
	httpClient *http.Client
	dialer     *websocket.Dialer
	baseURL    string
	token      string
	logger     *logger.CanonicalLogger
}

// NewControllerClient creates a new controller client repository
func NewControllerClient(cfg *config.AgentConfig, log *logger.CanonicalLogger) IControllerClient {
	return &controllerClient{
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		dialer:     &websocket.Dialer{HandshakeTimeout: cfg.RequestTimeout},
		baseURL:    strings.TrimRight(cfg.ServerURL, "/"),
		token:      cfg.APIKey,
		logger:     log.Component("controller_client"),
	}
}

func (c *controllerClient) Connect(ctx context.Context, hostname string) (*models.AgentRecord, error) {
	var resp dto.ConnectResponse
	if err := c.do(ctx, http.MethodPost, "/api/agent/connect", dto.ConnectRequest{Token: c.token, Hostname: hostname}, &resp); err != nil {
		return nil, err
	}
	return &resp.Agent, nil
}

func (c *controllerClient) Update(ctx context.Context, metrics json.RawMessage) (string, error) {
	var resp dto.UpdateResponse
	if err := c.do(ctx, http.MethodPost, "/api/agent/update", dto.UpdateRequest{Token: c.token, Metrics: metrics}, &resp); err != nil {
		return "", err
	}
	return resp.AgentID, nil
}

func (c *controllerClient) FetchCommands(ctx context.Context, agentID string, max int) ([]models.Command, error) {
	path := "/api/agent/" + url.PathEscape(agentID) + "/commands?max=" + strconv.Itoa(max)
	var cmds []models.Command
	if err := c.do(ctx, http.MethodGet, path, nil, &cmds); err != nil {
		return nil, err
	}
	return cmds, nil
}

func (c *controllerClient) Ack(ctx context.Context, commandID string) error {
	return c.do(ctx, http.MethodPost, "/api/agent/command/ack", dto.AckCommandRequest{CommandID: commandID}, nil)
}

func (c *controllerClient) Disconnect(ctx context.Context, agentID string) error {
	return c.do(ctx, http.MethodPost, "/api/agent/disconnect", dto.DisconnectRequest{AgentID: agentID}, nil)
}

func (c *controllerClient) DialLive(ctx context.Context, agentID string) (LiveConn, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: server url: %v", apperror.ErrConfig, err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/api/live"
	u.RawQuery = url.Values{"agent": {agentID}}.Encode()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.token)

	conn, resp, err := c.dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, fmt.Errorf("%w: live channel rejected", apperror.ErrAuth)
		}
		return nil, fmt.Errorf("%w: dial live: %v", apperror.ErrTransientNetwork, err)
	}
	return conn, nil
}

// do sends body as JSON with the agent bearer token and decodes a 200 response into out.
// Transport failures and 5xx map to ErrTransientNetwork, other statuses to their kind.
func (c *controllerClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	c.logger.Debug("sending request", logger.String("method", method), logger.String("path", path))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", apperror.ErrTransientNetwork, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var body wrapper.ErrorBody
	_ = json.Unmarshal(raw, &body)

	var kind error
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		kind = apperror.ErrAuth
	case resp.StatusCode == http.StatusNotFound:
		kind = apperror.ErrNotFound
	case resp.StatusCode == http.StatusBadRequest:
		kind = apperror.ErrValidation
	case resp.StatusCode == http.StatusConflict:
		kind = apperror.ErrConflict
	case resp.StatusCode >= http.StatusInternalServerError:
		kind = apperror.ErrTransientNetwork
	default:
		kind = errors.New("unexpected response")
	}
	return fmt.Errorf("%w: status %d %s", kind, resp.StatusCode, body.Error)
}
