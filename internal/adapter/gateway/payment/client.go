package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"checkout-sandbox/config"
	"checkout-sandbox/internal/core/ports"
	"checkout-sandbox/pkg/apperror"

	"github.com/rs/zerolog"
)

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client wraps the hosted payment gateway's session API. Authentication is
// HTTP Basic with the gateway's merchant API credentials.
type Client struct {
	cfg        config.GatewayConfig
	httpClient HTTPClient
	log        zerolog.Logger
}

// NewClient creates a payment gateway client.
func NewClient(cfg config.GatewayConfig, httpClient HTTPClient, log zerolog.Logger) *Client {
	return &Client{cfg: cfg, httpClient: httpClient, log: log}
}

type sessionRequest struct {
	APIOperation string       `json:"apiOperation"`
	Order        sessionOrder `json:"order"`
}

type sessionOrder struct {
	ID          string `json:"id"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Description string `json:"description"`
}

type sessionResponse struct {
	Result  string `json:"result"`
	Session struct {
		ID string `json:"id"`
	} `json:"session"`
	Error struct {
		Cause       string `json:"cause"`
		Explanation string `json:"explanation"`
	} `json:"error"`
}

// CreateCheckoutSession initiates a hosted-checkout session for the total
// order amount and returns the gateway-issued session identifier plus the
// raw gateway response.
func (c *Client) CreateCheckoutSession(ctx context.Context, req ports.GatewaySessionRequest) (*ports.GatewaySession, error) {
	body, err := json.Marshal(sessionRequest{
		APIOperation: "INITIATE_CHECKOUT",
		Order: sessionOrder{
			ID:          req.OrderID,
			Amount:      req.Amount.StringFixed(2),
			Currency:    req.Currency,
			Description: req.Description,
		},
	})
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("marshal gateway session request: %w", err))
	}

	url := c.cfg.BaseURL + "/session"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("build gateway request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth("merchant."+c.cfg.MerchantID, c.cfg.APIPassword)

	c.log.Debug().
		Str("order_id", req.OrderID).
		Str("amount", req.Amount.StringFixed(2)).
		Str("currency", req.Currency).
		Msg("initiating hosted-checkout session")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, apperror.ErrGateway("payment gateway unreachable", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperror.ErrGateway("reading payment gateway response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Warn().Int("status", resp.StatusCode).Str("order_id", req.OrderID).Msg("gateway session creation rejected")
		return nil, apperror.ErrGateway(
			fmt.Sprintf("payment gateway returned HTTP %d", resp.StatusCode),
			fmt.Errorf("gateway response: %s", raw),
		)
	}

	var parsed sessionResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, apperror.ErrGateway("malformed payment gateway response", err)
	}

	if parsed.Result != "SUCCESS" {
		explanation := parsed.Error.Explanation
		if explanation == "" {
			explanation = fmt.Sprintf("gateway result %q", parsed.Result)
		}
		return nil, apperror.ErrGateway(explanation, fmt.Errorf("gateway response: %s", raw))
	}
	if parsed.Session.ID == "" {
		return nil, apperror.ErrGateway("gateway response missing session id", fmt.Errorf("gateway response: %s", raw))
	}

	c.log.Info().
		Str("session_id", parsed.Session.ID).
		Str("order_id", req.OrderID).
		Msg("hosted-checkout session created")

	return &ports.GatewaySession{SessionID: parsed.Session.ID, Raw: raw}, nil
}
