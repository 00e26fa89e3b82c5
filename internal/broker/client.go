// Package broker is a REST client for the GMO-style FX broker private API:
// HMAC-SHA256 request signing, speed (market) orders, and fill-and-kill
// closes.
package broker

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

const defaultBaseURL = "https://forex-api.coin.z.com"

// Side is the order side sent to the broker.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Client is the broker's private REST API client.
type Client struct {
	apiKey     string
	apiSecret  []byte
	baseURL    string
	httpClient *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the client's http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithBaseURL overrides the client's base URL, for pointing at a sandbox.
func WithBaseURL(url string) ClientOption {
	return func(c *Client) { c.baseURL = url }
}

// Config holds the credentials needed to sign requests.
type Config struct {
	APIKey    string
	APISecret string
	Timeout   time.Duration
}

// NewClient builds a Client from cfg.
func NewClient(cfg Config, opts ...ClientOption) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		apiKey:     cfg.APIKey,
		apiSecret:  []byte(cfg.APISecret),
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is returned when the broker responds with a non-success status.
type APIError struct {
	StatusCode int
	Status     string `json:"status"`
	Messages   []struct {
		MessageCode   string `json:"message_code"`
		MessageString string `json:"message_string"`
	} `json:"messages"`
}

func (e *APIError) Error() string {
	if len(e.Messages) > 0 {
		return fmt.Sprintf("broker API error (status %d): %s", e.StatusCode, e.Messages[0].MessageString)
	}
	return fmt.Sprintf("broker API error (status %d)", e.StatusCode)
}

// IsRetryable reports whether the error represents a 429 or 5xx response,
// the two classes OrderDispatcher retries with backoff.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// OrderRejectedError is returned when the broker accepts an order request
// at the HTTP level but reports a non-success business status in the
// response body — the venue's own rejection, not a transport or HTTP
// failure, and never worth retrying.
type OrderRejectedError struct {
	Status int
	Data   string
}

func (e *OrderRejectedError) Error() string {
	return fmt.Sprintf("broker rejected order (status %d): %s", e.Status, e.Data)
}

// successStatus is the only OrderResult.Status value the venue's API
// documents as a successful order.
const successStatus = 0

// IsRetryableError reports whether err is a broker APIError eligible for
// OrderDispatcher's backoff-and-retry policy. An OrderRejectedError is a
// permanent business-level failure and is never retryable. Other failures
// (e.g. a transport-level timeout) are treated as retryable.
func IsRetryableError(err error) bool {
	if apiErr, ok := err.(*APIError); ok {
		return apiErr.IsRetryable()
	}
	if _, ok := err.(*OrderRejectedError); ok {
		return false
	}
	return true
}

// sign implements timestamp+METHOD+path+body HMAC-SHA256, the venue's
// private-API signing scheme.
func (c *Client) sign(timestamp, method, path, body string) string {
	h := hmac.New(sha256.New, c.apiSecret)
	h.Write([]byte(timestamp + method + path + body))
	return hex.EncodeToString(h.Sum(nil))
}

// doRequest signs and sends a private POST request to "/private"+path.
func (c *Client) doRequest(method, path string, payload interface{}) ([]byte, error) {
	var bodyStr string
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		bodyStr = string(raw)
	}

	timestamp := strconv.FormatInt(time.Now().Unix(), 10) + "000"
	signature := c.sign(timestamp, method, path, bodyStr)

	var reqBody io.Reader
	if bodyStr != "" {
		reqBody = bytes.NewReader([]byte(bodyStr))
	}

	req, err := http.NewRequest(method, c.baseURL+"/private"+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("API-KEY", c.apiKey)
	req.Header.Set("API-TIMESTAMP", timestamp)
	req.Header.Set("API-SIGN", signature)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		_ = json.Unmarshal(body, apiErr)
		return nil, apiErr
	}
	return body, nil
}

// OrderResult is the broker's response envelope for an order call.
type OrderResult struct {
	Status   int      `json:"status"`
	Data     string   `json:"data"`
	Messages []string `json:"-"`
}

// OpenMarketOrder sends a speed (market) order to open a position.
func (c *Client) OpenMarketOrder(symbol string, side Side, size float64) (*OrderResult, error) {
	clientOrderID := fmt.Sprintf("AURAFX%d", time.Now().UnixMilli())
	if len(clientOrderID) > 20 {
		clientOrderID = clientOrderID[:20]
	}
	payload := map[string]interface{}{
		"symbol":        symbol,
		"side":          string(side),
		"size":          strconv.FormatFloat(size, 'f', 0, 64),
		"clientOrderId": clientOrderID,
		"isHedgeable":   false,
	}
	body, err := c.doRequest(http.MethodPost, "/v1/speedOrder", payload)
	if err != nil {
		return nil, err
	}
	var result OrderResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if result.Status != successStatus {
		log.Error().Str("symbol", symbol).Int("status", result.Status).Str("data", result.Data).Msg("broker returned non-success status for open order")
		return &result, &OrderRejectedError{Status: result.Status, Data: result.Data}
	}
	log.Info().Str("symbol", symbol).Str("side", string(side)).Float64("size", size).Msg("broker open order sent")
	return &result, nil
}

// CloseMarketOrder closes an existing position with a fill-and-kill market
// order in the opposite direction.
func (c *Client) CloseMarketOrder(symbol string, side Side, size float64) (*OrderResult, error) {
	payload := map[string]interface{}{
		"symbol":        symbol,
		"side":          string(side),
		"executionType": "MARKET",
		"timeInForce":   "FAK",
		"size":          strconv.FormatFloat(size, 'f', 0, 64),
	}
	body, err := c.doRequest(http.MethodPost, "/v1/closeOrder", payload)
	if err != nil {
		return nil, err
	}
	var result OrderResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if result.Status != successStatus {
		log.Error().Str("symbol", symbol).Int("status", result.Status).Str("data", result.Data).Msg("broker returned non-success status for close order")
		return &result, &OrderRejectedError{Status: result.Status, Data: result.Data}
	}
	log.Info().Str("symbol", symbol).Str("side", string(side)).Float64("size", size).Msg("broker close order sent")
	return &result, nil
}

// Opposite returns the inverted side, used when closing a position: the
// close order's side is the position direction's opposite.
func Opposite(s Side) Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}
