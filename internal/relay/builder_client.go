package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mr-tron/base58"
)

// DefaultBuilderTimeout bounds one builder request.
const DefaultBuilderTimeout = 30 * time.Second

// HTTPBuilderClient implements BuilderClient against the builder service's
// HTTP API. No retry here: a builder failure aborts only the trade request
// that needed it, so the pipeline reports it immediately.
type HTTPBuilderClient struct {
	endpoint string
	client   *http.Client
}

// BuilderOption configures HTTPBuilderClient.
type BuilderOption func(*HTTPBuilderClient)

// WithBuilderTimeout sets the HTTP client timeout.
func WithBuilderTimeout(d time.Duration) BuilderOption {
	return func(c *HTTPBuilderClient) {
		c.client.Timeout = d
	}
}

// WithBuilderHTTPClient sets a custom http.Client.
func WithBuilderHTTPClient(client *http.Client) BuilderOption {
	return func(c *HTTPBuilderClient) {
		c.client = client
	}
}

// NewHTTPBuilderClient creates a builder service client.
func NewHTTPBuilderClient(endpoint string, opts ...BuilderOption) *HTTPBuilderClient {
	c := &HTTPBuilderClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: DefaultBuilderTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile-time interface check.
var _ BuilderClient = (*HTTPBuilderClient)(nil)

// BuildSwap requests unsigned swap transactions. The response is an
// ordered JSON array of base58-encoded transaction blobs; order is
// preserved because bundle sequencing depends on it.
func (c *HTTPBuilderClient) BuildSwap(ctx context.Context, req BuildRequest) ([][]byte, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal build request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("builder request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read builder response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("builder returned HTTP %d: %s", resp.StatusCode, truncate(data, 200))
	}

	var encoded []string
	if err := json.Unmarshal(data, &encoded); err != nil {
		return nil, fmt.Errorf("decode builder response: %w", err)
	}

	blobs := make([][]byte, 0, len(encoded))
	for i, tx := range encoded {
		raw, err := base58.Decode(tx)
		if err != nil {
			return nil, fmt.Errorf("decode transaction %d: %w", i, err)
		}
		blobs = append(blobs, raw)
	}
	return blobs, nil
}

func truncate(data []byte, n int) string {
	if len(data) <= n {
		return string(data)
	}
	return string(data[:n]) + "..."
}
