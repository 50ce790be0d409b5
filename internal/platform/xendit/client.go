package xendit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nclex311/billing/pkg/config"

	"go.uber.org/zap"
)

// Client talks to the gateway's hosted-invoice REST API. Authentication is
// HTTP Basic with the API key as username and an empty password.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *zap.SugaredLogger
}

func NewClient(cfg *config.Config, log *zap.SugaredLogger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.Gateway.BaseURL, "/"),
		apiKey:     cfg.Gateway.APIKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        log,
	}
}

type CreateInvoiceRequest struct {
	ExternalID         string `json:"external_id"`
	Amount             int64  `json:"amount"`
	Currency           string `json:"currency,omitempty"`
	Description        string `json:"description,omitempty"`
	PayerEmail         string `json:"payer_email,omitempty"`
	InvoiceDuration    int    `json:"invoice_duration,omitempty"` // seconds
	SuccessRedirectURL string `json:"success_redirect_url,omitempty"`
}

type Invoice struct {
	ID         string     `json:"id"`
	ExternalID string     `json:"external_id"`
	Status     string     `json:"status"`
	InvoiceURL string     `json:"invoice_url"`
	Amount     int64      `json:"amount"`
	Currency   string     `json:"currency"`
	ExpiryDate *time.Time `json:"expiry_date"`
}

// APIError is a non-2xx gateway reply.
type APIError struct {
	StatusCode int    `json:"-"`
	ErrorCode  string `json:"error_code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gateway error: %s (code=%s, http=%d)", e.Message, e.ErrorCode, e.StatusCode)
}

// CreateInvoice creates a hosted invoice the payer completes in the browser.
func (c *Client) CreateInvoice(ctx context.Context, req *CreateInvoiceRequest) (*Invoice, error) {
	var inv Invoice
	if err := c.do(ctx, http.MethodPost, "/v2/invoices", req, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

// ExpireInvoice invalidates a still-open invoice at the gateway.
func (c *Client) ExpireInvoice(ctx context.Context, invoiceID string) (*Invoice, error) {
	var inv Invoice
	path := "/invoices/" + url.PathEscape(invoiceID) + "/expire!"
	if err := c.do(ctx, http.MethodPost, path, nil, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.apiKey, "")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read gateway response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.Unmarshal(raw, apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		c.log.Warnw("gateway rejected request", "method", method, "path", path, "status", resp.StatusCode, "error_code", apiErr.ErrorCode)
		return apiErr
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("failed to decode gateway response: %w", err)
		}
	}
	return nil
}
