// Package paypal is a small client for the PayPal Orders v2 REST API.
package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dermafill/storefront-backend/pkg/enums"
)

const (
	sandboxBaseURL = "https://api-m.sandbox.paypal.com"
	liveBaseURL    = "https://api-m.paypal.com"

	StatusCompleted = "COMPLETED"
	StatusApproved  = "APPROVED"
)

// ErrDisabled is returned when no usable credentials are configured.
var ErrDisabled = errors.New("paypal is not configured")

// Credentials selects the PayPal app and environment for one call.
type Credentials struct {
	ClientID     string
	ClientSecret string
	Mode         enums.PayPalMode
	Enabled      bool
}

// CredentialSource resolves credentials at call time so admin edits apply
// without a restart.
type CredentialSource func(ctx context.Context) (Credentials, error)

type Client struct {
	httpClient  *http.Client
	credentials CredentialSource
	baseURL     string

	mu     sync.Mutex
	tokens map[string]cachedToken
}

type cachedToken struct {
	value  string
	expiry time.Time
}

func NewClient(source CredentialSource, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		credentials: source,
		tokens:      map[string]cachedToken{},
	}
}

// WithBaseURL pins every call to baseURL regardless of mode.
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

type Amount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type PurchaseUnit struct {
	ReferenceID string    `json:"reference_id,omitempty"`
	CustomID    string    `json:"custom_id,omitempty"`
	InvoiceID   string    `json:"invoice_id,omitempty"`
	Amount      *Amount   `json:"amount,omitempty"`
	Payments    *Payments `json:"payments,omitempty"`
}

type Payments struct {
	Captures []Capture `json:"captures"`
}

type Capture struct {
	ID     string  `json:"id"`
	Status string  `json:"status"`
	Amount *Amount `json:"amount,omitempty"`
}

type Link struct {
	Href   string `json:"href"`
	Rel    string `json:"rel"`
	Method string `json:"method,omitempty"`
}

type Order struct {
	ID            string         `json:"id"`
	Status        string         `json:"status"`
	PurchaseUnits []PurchaseUnit `json:"purchase_units,omitempty"`
	Links         []Link         `json:"links,omitempty"`
}

// ApprovalURL returns the buyer redirect link of a created order.
func (o *Order) ApprovalURL() string {
	if o == nil {
		return ""
	}
	for _, link := range o.Links {
		if link.Rel == "approve" || link.Rel == "payer-action" {
			return link.Href
		}
	}
	return ""
}

type CreateOrderRequest struct {
	ReferenceID string
	InvoiceID   string
	Amount      Amount
	ReturnURL   string
	CancelURL   string
}

// APIError carries PayPal's error envelope.
type APIError struct {
	StatusCode int    `json:"-"`
	Name       string `json:"name"`
	Message    string `json:"message"`
	DebugID    string `json:"debug_id"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("paypal %d %s: %s (debug_id=%s)", e.StatusCode, e.Name, e.Message, e.DebugID)
}

// CreateOrder opens a CAPTURE-intent order for one purchase unit.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	body := map[string]any{
		"intent": "CAPTURE",
		"purchase_units": []PurchaseUnit{{
			ReferenceID: req.ReferenceID,
			CustomID:    req.ReferenceID,
			InvoiceID:   req.InvoiceID,
			Amount:      &req.Amount,
		}},
		"application_context": map[string]string{
			"return_url":          req.ReturnURL,
			"cancel_url":          req.CancelURL,
			"user_action":         "PAY_NOW",
			"shipping_preference": "NO_SHIPPING",
		},
	}
	var out Order
	if err := c.do(ctx, http.MethodPost, "/v2/checkout/orders", req.ReferenceID, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CaptureOrder captures an approved order. requestID makes retries safe.
func (c *Client) CaptureOrder(ctx context.Context, paypalOrderID, requestID string) (*Order, error) {
	if strings.TrimSpace(paypalOrderID) == "" {
		return nil, errors.New("paypal order id required")
	}
	var out Order
	path := "/v2/checkout/orders/" + url.PathEscape(paypalOrderID) + "/capture"
	if err := c.do(ctx, http.MethodPost, path, requestID, struct{}{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path, requestID string, body, out any) error {
	creds, err := c.resolve(ctx)
	if err != nil {
		return err
	}
	token, err := c.token(ctx, creds)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseFor(creds.Mode)+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if requestID != "" {
		req.Header.Set("PayPal-Request-Id", requestID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeAPIError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) resolve(ctx context.Context) (Credentials, error) {
	if c == nil || c.credentials == nil {
		return Credentials{}, ErrDisabled
	}
	creds, err := c.credentials(ctx)
	if err != nil {
		return Credentials{}, err
	}
	if !creds.Enabled || creds.ClientID == "" || creds.ClientSecret == "" {
		return Credentials{}, ErrDisabled
	}
	return creds, nil
}

func (c *Client) token(ctx context.Context, creds Credentials) (string, error) {
	key := string(creds.Mode) + ":" + creds.ClientID

	c.mu.Lock()
	defer c.mu.Unlock()

	if cached, ok := c.tokens[key]; ok && time.Until(cached.expiry) > time.Minute {
		return cached.value, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseFor(creds.Mode)+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(creds.ClientID, creds.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", decodeAPIError(resp)
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", err
	}
	if tokenResp.AccessToken == "" {
		return "", errors.New("paypal token response missing access_token")
	}
	c.tokens[key] = cachedToken{
		value:  tokenResp.AccessToken,
		expiry: time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second),
	}
	return tokenResp.AccessToken, nil
}

func (c *Client) baseFor(mode enums.PayPalMode) string {
	if c.baseURL != "" {
		return c.baseURL
	}
	if mode == enums.PayPalModeLive {
		return liveBaseURL
	}
	return sandboxBaseURL
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err := json.Unmarshal(b, apiErr); err != nil || apiErr.Name == "" {
		var oauth struct {
			Error            string `json:"error"`
			ErrorDescription string `json:"error_description"`
		}
		if json.Unmarshal(b, &oauth) == nil && oauth.Error != "" {
			apiErr.Name = oauth.Error
			apiErr.Message = oauth.ErrorDescription
		} else {
			apiErr.Name = resp.Status
			apiErr.Message = strings.TrimSpace(string(b))
		}
	}
	return apiErr
}
