package relay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mr-tron/base58"
)

func TestHTTPRelayClient_SubmitBundle(t *testing.T) {
	tx := []byte{0xAA, 0xBB, 0xCC}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}

		if req.Method != "sendBundle" {
			t.Errorf("method = %s, want sendBundle", req.Method)
		}
		txs, ok := req.Params[0].([]interface{})
		if !ok || len(txs) != 1 || txs[0] != base58.Encode(tx) {
			t.Errorf("unexpected params: %v", req.Params)
		}

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  "bundle-abc123",
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPRelayClient(server.URL)
	bundleID, err := client.SubmitBundle(context.Background(), [][]byte{tx})
	if err != nil {
		t.Fatalf("SubmitBundle: %v", err)
	}
	if bundleID != "bundle-abc123" {
		t.Errorf("bundle id = %s", bundleID)
	}
}

func TestHTTPRelayClient_RPCError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"error": map[string]interface{}{
				"code":    -32000,
				"message": "bundle simulation failed",
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPRelayClient(server.URL)
	_, err := client.SubmitBundle(context.Background(), [][]byte{{1}})

	var relayErr *RelayError
	if !errors.As(err, &relayErr) {
		t.Fatalf("err = %v, want *RelayError", err)
	}
	if relayErr.Code != -32000 || relayErr.Message != "bundle simulation failed" {
		t.Errorf("relay error = %+v", relayErr)
	}
}

func TestHTTPRelayClient_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many bundles", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewHTTPRelayClient(server.URL)
	_, err := client.SubmitBundle(context.Background(), [][]byte{{1}})

	var relayErr *RelayError
	if !errors.As(err, &relayErr) {
		t.Fatalf("err = %v, want *RelayError", err)
	}
	if relayErr.Code != http.StatusTooManyRequests {
		t.Errorf("code = %d, want 429", relayErr.Code)
	}
}

func TestHTTPRelayClient_EmptyBundle(t *testing.T) {
	client := NewHTTPRelayClient("http://localhost:0")
	if _, err := client.SubmitBundle(context.Background(), nil); err == nil {
		t.Fatal("empty bundle should be rejected without a network call")
	}
}
