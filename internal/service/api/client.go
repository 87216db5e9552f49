package api

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/hertz/pkg/app/client"
	"github.com/cloudwego/hertz/pkg/network/standard"
	"github.com/cloudwego/hertz/pkg/protocol"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"go.uber.org/zap"

	"github.com/zhouzirui/mindpeers/client/internal/config"
	"github.com/zhouzirui/mindpeers/client/internal/model/analysis"
	"github.com/zhouzirui/mindpeers/client/internal/model/chat"
	"github.com/zhouzirui/mindpeers/client/internal/model/trend"
)

const (
	endpointPing    = "/api/ping"
	endpointLogin   = "/api/login"
	endpointConsent = "/api/consent"
	endpointMessage = "/api/message"
	endpointTrend   = "/api/trend/%s"
)

// Reply is a successful classification of one user message.
type Reply struct {
	BotReply string
	Analysis analysis.Analysis
}

// TrendResult is the mood series for a user. Summary is nil when the service
// has nothing to summarise yet.
type TrendResult struct {
	Points  []trend.Point
	Summary *trend.Summary
}

// Client is the typed boundary around the remote analysis service. It holds
// no conversation state.
type Client struct {
	http   *client.Client
	server string
	log    *zap.Logger
}

// NewClient creates a client for cfg.BaseURL. Transport timeouts come from
// cfg.Timeout and surface as NetworkError.
func NewClient(cfg config.APIConfig, logger *zap.Logger) (*Client, error) {
	server, err := config.NormalizeBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	c, err := client.NewClient(
		client.WithDialTimeout(timeout),
		client.WithClientReadTimeout(timeout),
		client.WithWriteTimeout(timeout),
		client.WithMaxIdleConnDuration(60*time.Second),
		client.WithDialer(standard.NewDialer()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	return &Client{http: c, server: server, log: logger.Named("api")}, nil
}

// Server returns the normalised base URL the client talks to.
func (c *Client) Server() string {
	return c.server
}

// Ping checks that the service answers.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, "ping", consts.MethodGet, endpointPing, nil, nil)
}

// Login exchanges an email for the service's user identity.
func (c *Client) Login(ctx context.Context, email string) (chat.Identity, error) {
	var resp loginResponse
	if err := c.do(ctx, "login", consts.MethodPost, endpointLogin, loginRequest{Email: email}, &resp); err != nil {
		return chat.Identity{}, err
	}
	if strings.TrimSpace(string(resp.UserID)) == "" {
		return chat.Identity{}, &ServiceError{Op: "login", StatusCode: 200, Err: fmt.Errorf("%w: missing user_id", ErrMalformedPayload)}
	}

	identity := chat.Identity{UserID: string(resp.UserID), Email: resp.Email}
	if identity.Email == "" {
		identity.Email = email
	}
	return identity, nil
}

// Consent records the user's acceptance of the terms.
func (c *Client) Consent(ctx context.Context, userID, emergencyPhone string) error {
	req := consentRequest{UserID: toWireID(userID), EmergencyPhone: strings.TrimSpace(emergencyPhone)}
	return c.do(ctx, "consent", consts.MethodPost, endpointConsent, req, nil)
}

// SendMessage submits text for classification and returns the bot reply
// together with the analysis.
func (c *Client) SendMessage(ctx context.Context, userID, text string) (Reply, error) {
	var resp messageResponse
	req := messageRequest{UserID: toWireID(userID), MessageText: text}
	if err := c.do(ctx, "send message", consts.MethodPost, endpointMessage, req, &resp); err != nil {
		return Reply{}, err
	}

	reply, err := resp.toReply()
	if err != nil {
		return Reply{}, &ServiceError{Op: "send message", StatusCode: 200, Err: fmt.Errorf("%w: %v", ErrMalformedPayload, err)}
	}
	return reply, nil
}

// FetchTrend returns the user's mood series. An empty series is a valid result.
func (c *Client) FetchTrend(ctx context.Context, userID string) (TrendResult, error) {
	var resp trendResponse
	path := fmt.Sprintf(endpointTrend, url.PathEscape(userID))
	if err := c.do(ctx, "fetch trend", consts.MethodGet, path, nil, &resp); err != nil {
		return TrendResult{}, err
	}

	result, err := resp.toResult()
	if err != nil {
		return TrendResult{}, &ServiceError{Op: "fetch trend", StatusCode: 200, Err: fmt.Errorf("%w: %v", ErrMalformedPayload, err)}
	}
	return result, nil
}

// do performs one JSON round trip. Transport failures become NetworkError;
// non-2xx statuses and undecodable bodies become ServiceError.
func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	req := protocol.AcquireRequest()
	resp := protocol.AcquireResponse()
	defer func() {
		protocol.ReleaseRequest(req)
		protocol.ReleaseResponse(resp)
	}()

	req.SetMethod(method)
	req.SetRequestURI(c.server + path)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		bodyBytes, err := sonic.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: failed to marshal request: %w", op, err)
		}
		req.Header.SetContentTypeBytes([]byte("application/json"))
		req.SetBody(bodyBytes)
	}

	start := time.Now()
	if err := c.http.Do(ctx, req, resp); err != nil {
		c.log.Warn("request failed",
			zap.String("op", op),
			zap.String("kind", "network"),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return &NetworkError{Op: op, Err: err}
	}

	status := resp.StatusCode()
	if status < 200 || status >= 300 {
		svcErr := &ServiceError{Op: op, StatusCode: status}
		var payload errorResponse
		if err := sonic.Unmarshal(resp.Body(), &payload); err == nil {
			svcErr.Message = strings.TrimSpace(payload.Error)
		}
		c.log.Warn("request rejected",
			zap.String("op", op),
			zap.String("kind", "service"),
			zap.Int("status", status),
			zap.String("error", svcErr.Message))
		return svcErr
	}

	c.log.Debug("request completed",
		zap.String("op", op),
		zap.Int("status", status),
		zap.Duration("elapsed", time.Since(start)))

	if out == nil {
		return nil
	}
	if err := sonic.Unmarshal(resp.Body(), out); err != nil {
		c.log.Warn("malformed response", zap.String("op", op), zap.String("kind", "service"), zap.Error(err))
		return &ServiceError{Op: op, StatusCode: status, Err: fmt.Errorf("%w: %v", ErrMalformedPayload, err)}
	}
	return nil
}

func toWireID(id string) wireID {
	return wireID(strings.TrimSpace(id))
}
