package broker

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOpenMarketOrderSignsRequest(t *testing.T) {
	secret := "s3cr3t"
	var gotPath, gotTimestamp, gotSign, gotBody string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotTimestamp = r.Header.Get("API-TIMESTAMP")
		gotSign = r.Header.Get("API-SIGN")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.Write([]byte(`{"status":0,"data":"order-1"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "key", APISecret: secret}, WithBaseURL(srv.URL))
	result, err := c.OpenMarketOrder("USD_JPY", SideBuy, 10000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != 0 {
		t.Fatalf("expected status 0, got %d", result.Status)
	}
	if gotPath != "/private/v1/speedOrder" {
		t.Fatalf("unexpected path: %s", gotPath)
	}

	expectedSign := hmacHex(secret, gotTimestamp+http.MethodPost+"/v1/speedOrder"+gotBody)
	if gotSign != expectedSign {
		t.Fatalf("signature mismatch: got %s want %s", gotSign, expectedSign)
	}
}

func TestCloseMarketOrderUsesCloseEndpoint(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"status":0,"data":"order-2"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "key", APISecret: "secret"}, WithBaseURL(srv.URL))
	if _, err := c.CloseMarketOrder("USD_JPY", SideSell, 10000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/private/v1/closeOrder" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
}

func TestAPIErrorIsRetryableFor429And5xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"status":-1,"messages":[{"message_code":"ERR-5003","message_string":"rate limit"}]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "key", APISecret: "secret"}, WithBaseURL(srv.URL))
	_, err := c.OpenMarketOrder("USD_JPY", SideBuy, 10000)
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if !apiErr.IsRetryable() {
		t.Fatalf("expected 429 to be retryable")
	}
}

func TestOpenMarketOrderNonSuccessStatusIsRejectedNotRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":-27,"data":"ERR-201 insufficient margin"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "key", APISecret: "secret"}, WithBaseURL(srv.URL))
	_, err := c.OpenMarketOrder("USD_JPY", SideBuy, 10000)
	rejected, ok := err.(*OrderRejectedError)
	if !ok {
		t.Fatalf("expected *OrderRejectedError, got %T: %v", err, err)
	}
	if rejected.Status != -27 {
		t.Fatalf("expected status -27, got %d", rejected.Status)
	}
	if IsRetryableError(err) {
		t.Fatalf("expected a rejected order to be non-retryable")
	}
}

func TestOppositeSide(t *testing.T) {
	if Opposite(SideBuy) != SideSell {
		t.Fatalf("expected SELL")
	}
	if Opposite(SideSell) != SideBuy {
		t.Fatalf("expected BUY")
	}
}

func hmacHex(secret, message string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(message))
	return hex.EncodeToString(h.Sum(nil))
}
