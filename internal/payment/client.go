// Package payment talks to the bank transfer gateway that pays out claims.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"profitshare/internal/distribution"
)

const transferEndpoint = "payout/transfer"

// Config holds the gateway endpoint and credentials.
type Config struct {
	BaseURL     string
	Channel     string
	Secret      string
	CallbackURL string
	Currency    string
	Timeout     time.Duration
}

// Client is an HTTP PaymentGateway.
type Client struct {
	cfg    Config
	http   *http.Client
	logger logrus.FieldLogger
}

// NewClient builds a gateway client. A zero timeout defaults to 30 seconds.
func NewClient(cfg Config, logger logrus.FieldLogger) (*Client, error) {
	if cfg.BaseURL == "" || cfg.Channel == "" || cfg.Secret == "" {
		return nil, errors.New("payment: base url, channel and secret are required")
	}
	if !strings.HasSuffix(cfg.BaseURL, "/") {
		cfg.BaseURL += "/"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}, nil
}

// Response is the gateway's envelope.
type Response struct {
	Status  bool                   `json:"status"`
	Code    interface{}            `json:"code"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data"`
}

type transferPayload struct {
	ExternalID    string `json:"externalId"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	AccountNumber string `json:"accountNumber"`
	AccountHolder string `json:"accountHolder,omitempty"`
	BankCode      string `json:"bankCode,omitempty"`
	CallbackURL   string `json:"callbackUrl,omitempty"`
}

// Initiate requests a transfer of the claim amount and returns the gateway's
// payment id. The claim id is sent as the external id so the gateway can
// deduplicate retries.
func (c *Client) Initiate(ctx context.Context, req distribution.TransferRequest) (string, error) {
	currency := req.Currency
	if currency == "" {
		currency = c.cfg.Currency
	}
	payload := transferPayload{
		ExternalID:    req.ClaimID,
		Amount:        req.Amount.String(),
		Currency:      currency,
		AccountNumber: req.BankDetails.AccountNumber,
		AccountHolder: req.BankDetails.AccountHolder,
		BankCode:      req.BankDetails.BankCode,
		CallbackURL:   c.cfg.CallbackURL,
	}
	resp, err := c.makeRequest(ctx, http.MethodPost, transferEndpoint, payload)
	if err != nil {
		return "", err
	}
	paymentID, _ := resp.Data["paymentId"].(string)
	if paymentID == "" {
		return "", errors.New("payment gateway response has no paymentId")
	}
	return paymentID, nil
}

func (c *Client) headers() map[string]string {
	return map[string]string{
		"Content-Type": "application/json",
		"channel":      c.cfg.Channel,
		"secret":       c.cfg.Secret,
	}
}

func (c *Client) makeRequest(ctx context.Context, method, endpoint string, payload interface{}) (*Response, error) {
	url := c.cfg.BaseURL + endpoint

	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, value := range c.headers() {
		req.Header.Set(key, value)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	c.logger.WithFields(logrus.Fields{
		"endpoint":    endpoint,
		"status_code": resp.StatusCode,
	}).Debug("Payment gateway response")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("payment gateway returned HTTP %d", resp.StatusCode)
	}

	var gwResp Response
	if err := json.Unmarshal(respBody, &gwResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if !gwResp.Status {
		code := "unknown"
		if gwResp.Code != nil {
			code = fmt.Sprintf("%v", gwResp.Code)
		}
		if gwResp.Message != "" {
			return &gwResp, fmt.Errorf("payment gateway error: %s - %s", code, gwResp.Message)
		}
		return &gwResp, fmt.Errorf("payment gateway error: %s", code)
	}
	return &gwResp, nil
}

var _ distribution.PaymentGateway = (*Client)(nil)
