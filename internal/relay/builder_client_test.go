package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mr-tron/base58"

	"solana-autotrader/internal/domain"
)

func TestHTTPBuilderClient_BuildSwap(t *testing.T) {
	tx1 := []byte{1, 2, 3, 4}
	tx2 := []byte{5, 6, 7, 8}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req BuildRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}

		if req.TokenAddress != "mint" || req.Direction != domain.DirectionBuy {
			t.Errorf("unexpected request: %+v", req)
		}
		if req.Amount != 1.5 || req.Priority != domain.PriorityHigh {
			t.Errorf("amount/priority not forwarded: %+v", req)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]string{base58.Encode(tx1), base58.Encode(tx2)})
	}))
	defer server.Close()

	client := NewHTTPBuilderClient(server.URL)
	blobs, err := client.BuildSwap(context.Background(), BuildRequest{
		WalletAddresses: []string{"w1"},
		TokenAddress:    "mint",
		Direction:       domain.DirectionBuy,
		Amount:          1.5,
		SlippagePct:     1,
		Priority:        domain.PriorityHigh,
	})
	if err != nil {
		t.Fatalf("BuildSwap: %v", err)
	}

	// Order preserved
	if len(blobs) != 2 || !bytes.Equal(blobs[0], tx1) || !bytes.Equal(blobs[1], tx2) {
		t.Errorf("blobs = %v", blobs)
	}
}

func TestHTTPBuilderClient_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no route for token", http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewHTTPBuilderClient(server.URL)
	if _, err := client.BuildSwap(context.Background(), BuildRequest{}); err == nil {
		t.Fatal("expected error for HTTP 400")
	}
}

func TestHTTPBuilderClient_BadTransactionEncoding(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]string{"not-valid-base58-0OIl"})
	}))
	defer server.Close()

	client := NewHTTPBuilderClient(server.URL)
	if _, err := client.BuildSwap(context.Background(), BuildRequest{}); err == nil {
		t.Fatal("expected error for undecodable transaction")
	}
}
