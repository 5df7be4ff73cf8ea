package odoo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Carlos-mc14/nexius-landing-sub000/app/models"
)

// PushResult reports the outcome of a push. Failures are described, never
// returned as errors.
type PushResult struct {
	OK     bool            `json:"ok"`
	Status int             `json:"status,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Pusher sends one payment to the accounting system.
type Pusher interface {
	PushPayment(ctx context.Context, tx models.Transaction) PushResult
}

// Client pushes payments to Odoo. A client built from a disabled config
// answers every push with ok=false without touching the network.
type Client struct {
	Enabled    bool
	Endpoint   string
	Token      string
	AppVersion string
	Location   *time.Location
	Timeout    time.Duration

	HTTPClient *http.Client
}

func NewClient(cfg Config) *Client {
	cfg.applyDefaults()
	return &Client{
		Enabled:    cfg.Enabled,
		Endpoint:   cfg.Endpoint(),
		Token:      cfg.Token,
		AppVersion: cfg.AppVersion,
		Location:   cfg.Location,
		Timeout:    cfg.Timeout,
		HTTPClient: &http.Client{},
	}
}

// PushPayment posts tx and waits at most c.Timeout for the answer.
func (c *Client) PushPayment(ctx context.Context, tx models.Transaction) PushResult {
	if !c.Enabled {
		return PushResult{Error: "odoo sync disabled"}
	}
	if strings.TrimSpace(c.Endpoint) == "" {
		return PushResult{Error: "odoo endpoint is not configured"}
	}
	if strings.TrimSpace(tx.TransactionID) == "" {
		return PushResult{Error: "transaction id is required"}
	}

	body, err := json.Marshal(BuildPaymentPayload(tx, c.Location, c.AppVersion))
	if err != nil {
		return PushResult{Error: err.Error()}
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return PushResult{Error: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return PushResult{Error: err.Error()}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	res := PushResult{Status: resp.StatusCode}
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && json.Valid(trimmed) {
		res.Data = json.RawMessage(trimmed)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		res.Error = fmt.Sprintf("odoo payment push failed: status=%d body=%s", resp.StatusCode, truncate(string(raw), 256))
		return res
	}
	res.OK = true
	return res
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
