package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/mr-tron/base58"
)

// DefaultRelayTimeout bounds one relay submission.
const DefaultRelayTimeout = 30 * time.Second

// HTTPRelayClient implements RelayClient using the relay's JSON-RPC 2.0
// sendBundle method. Single-shot: retry policy lives in the submission
// pipeline, which knows whether a bundle is critical.
type HTTPRelayClient struct {
	endpoint  string
	client    *http.Client
	requestID atomic.Uint64
}

// RelayOption configures HTTPRelayClient.
type RelayOption func(*HTTPRelayClient)

// WithRelayTimeout sets the HTTP client timeout.
func WithRelayTimeout(d time.Duration) RelayOption {
	return func(c *HTTPRelayClient) {
		c.client.Timeout = d
	}
}

// WithRelayHTTPClient sets a custom http.Client.
func WithRelayHTTPClient(client *http.Client) RelayOption {
	return func(c *HTTPRelayClient) {
		c.client = client
	}
}

// NewHTTPRelayClient creates a relay client.
func NewHTTPRelayClient(endpoint string, opts ...RelayOption) *HTTPRelayClient {
	c := &HTTPRelayClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: DefaultRelayTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile-time interface check.
var _ RelayClient = (*HTTPRelayClient)(nil)

// rpcRequest represents a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

// rpcResponse represents a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// rpcError represents a JSON-RPC 2.0 error.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// SubmitBundle sends an ordered list of signed transactions as one bundle.
// Returns the relay-assigned bundle id, or a *RelayError for structured
// relay rejections.
func (c *HTTPRelayClient) SubmitBundle(ctx context.Context, signedTxs [][]byte) (string, error) {
	if len(signedTxs) == 0 {
		return "", fmt.Errorf("empty bundle")
	}

	encoded := make([]string, 0, len(signedTxs))
	for _, tx := range signedTxs {
		encoded = append(encoded, base58.Encode(tx))
	}

	reqBody := rpcRequest{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  "sendBundle",
		Params:  []interface{}{encoded},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("relay request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read relay response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &RelayError{Code: resp.StatusCode, Message: truncate(data, 200)}
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(data, &rpcResp); err != nil {
		return "", fmt.Errorf("decode relay response: %w", err)
	}
	if rpcResp.Error != nil {
		return "", &RelayError{Code: rpcResp.Error.Code, Message: rpcResp.Error.Message}
	}

	var bundleID string
	if err := json.Unmarshal(rpcResp.Result, &bundleID); err != nil {
		return "", fmt.Errorf("decode bundle id: %w", err)
	}
	return bundleID, nil
}
