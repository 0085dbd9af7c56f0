// Package eupago talks to the EuPago REST API for Multibanco references and
// MB WAY payment requests.
package eupago

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dermafill/storefront-backend/pkg/config"
)

const (
	multibancoPath = "/clientes/rest_api/multibanco/create"
	mbwayPath      = "/clientes/rest_api/mbway/create"
)

// ErrDisabled is returned when no API key is configured.
var ErrDisabled = errors.New("eupago is not configured")

type Client struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	callbackKey string
}

// NewClient returns nil when EuPago is not configured.
func NewClient(cfg config.EuPagoConfig) *Client {
	if !cfg.Enabled() {
		return nil
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      strings.TrimSpace(cfg.APIKey),
		callbackKey: strings.TrimSpace(cfg.CallbackKey),
	}
}

// MultibancoReference is what the customer types at an ATM or home banking.
type MultibancoReference struct {
	Entity    string          `json:"entity"`
	Reference string          `json:"reference"`
	Amount    decimal.Decimal `json:"amount"`
}

// MBWayRequest is a push payment request sent to the customer's phone.
type MBWayRequest struct {
	Reference string `json:"reference"`
	Phone     string `json:"phone"`
}

type apiResponse struct {
	Success   bool            `json:"sucesso"`
	State     int             `json:"estado"`
	Message   string          `json:"resposta"`
	Reference flexString      `json:"referencia"`
	Entity    flexString      `json:"entidade"`
	Amount    decimal.Decimal `json:"valor"`
}

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	if string(b) == "null" {
		*f = ""
		return nil
	}
	*f = flexString(b)
	return nil
}

func (f flexString) String() string {
	return strings.TrimSpace(string(f))
}

// APIError reports a refused EuPago request.
type APIError struct {
	StatusCode int
	State      int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("eupago %d (estado %d): %s", e.StatusCode, e.State, e.Message)
}

// CreateMultibanco issues a reference for amount tagged with identifier.
func (c *Client) CreateMultibanco(ctx context.Context, identifier string, amount decimal.Decimal) (*MultibancoReference, error) {
	if c == nil {
		return nil, ErrDisabled
	}
	body := map[string]any{
		"chave":   c.apiKey,
		"valor":   json.Number(amount.StringFixed(2)),
		"id":      identifier,
		"per_dup": 0,
	}
	resp, err := c.post(ctx, multibancoPath, body)
	if err != nil {
		return nil, err
	}
	out := &MultibancoReference{
		Entity:    resp.Entity.String(),
		Reference: resp.Reference.String(),
		Amount:    amount,
	}
	if !resp.Amount.IsZero() {
		out.Amount = resp.Amount
	}
	if out.Entity == "" || out.Reference == "" {
		return nil, errors.New("eupago multibanco response missing entity or reference")
	}
	return out, nil
}

// CreateMBWay pushes a payment request to phone.
func (c *Client) CreateMBWay(ctx context.Context, identifier string, amount decimal.Decimal, phone, description string) (*MBWayRequest, error) {
	if c == nil {
		return nil, ErrDisabled
	}
	body := map[string]any{
		"chave":     c.apiKey,
		"valor":     json.Number(amount.StringFixed(2)),
		"id":        identifier,
		"alias":     phone,
		"descricao": description,
	}
	resp, err := c.post(ctx, mbwayPath, body)
	if err != nil {
		return nil, err
	}
	if resp.Reference.String() == "" {
		return nil, errors.New("eupago mbway response missing reference")
	}
	return &MBWayRequest{Reference: resp.Reference.String(), Phone: phone}, nil
}

// VerifyCallbackKey compares the key sent on a payment callback.
func (c *Client) VerifyCallbackKey(key string) bool {
	if c == nil || c.callbackKey == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(c.callbackKey), []byte(strings.TrimSpace(key))) == 1
}

func (c *Client) post(ctx context.Context, path string, body any) (*apiResponse, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &APIError{StatusCode: resp.StatusCode, State: -1, Message: strings.TrimSpace(string(payload))}
	}

	var out apiResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("decode eupago response: %w", err)
	}
	if !out.Success || out.State != 0 {
		return nil, &APIError{StatusCode: resp.StatusCode, State: out.State, Message: out.Message}
	}
	return &out, nil
}
