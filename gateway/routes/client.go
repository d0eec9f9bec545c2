package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

const clientDefaultTimeout = 10 * time.Second

// Client speaks JSON-RPC to the staychain node. Mutating methods require the
// node bearer token, which the gateway attaches on every call.
type Client struct {
	target    *url.URL
	http      *http.Client
	authToken string
	timeout   time.Duration
	nextID    atomic.Int64
}

// RPCError mirrors the node's JSON-RPC error object.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int64         `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
}

// NewClient validates the node target and returns a ready client. The
// authToken may be empty when the gateway only serves read routes.
func NewClient(target *url.URL, timeout time.Duration, authToken string) (*Client, error) {
	if target == nil {
		return nil, fmt.Errorf("nil node target")
	}
	cloned := *target
	if strings.TrimSpace(cloned.Scheme) == "" {
		return nil, fmt.Errorf("node target scheme required")
	}
	if strings.TrimSpace(cloned.Host) == "" {
		return nil, fmt.Errorf("node target host required")
	}
	if strings.TrimSpace(cloned.Path) == "" {
		cloned.Path = "/"
	}
	if timeout <= 0 {
		timeout = clientDefaultTimeout
	}
	return &Client{
		target:    &cloned,
		http:      &http.Client{Timeout: timeout + 5*time.Second},
		authToken: strings.TrimSpace(authToken),
		timeout:   timeout,
	}, nil
}

// Call posts method with a single parameter object (or none when params is
// nil) and returns the raw result, the upstream HTTP status, and the RPC
// error if the node reported one. The returned error covers transport and
// decoding failures only.
func (c *Client) Call(ctx context.Context, method string, params interface{}) (json.RawMessage, int, *RPCError, error) {
	body := rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  []interface{}{},
	}
	if params != nil {
		body.Params = []interface{}{params}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("encode rpc request: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.target.String(), bytes.NewReader(payload))
	if err != nil {
		return nil, 0, nil, fmt.Errorf("build rpc request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}
	otel.GetTextMapPropagator().Inject(callCtx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("forward rpc request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, nil, fmt.Errorf("read rpc response: %w", err)
	}
	var decoded rpcResponse
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, resp.StatusCode, nil, fmt.Errorf("decode rpc response: %w", err)
	}
	if decoded.Error != nil {
		return nil, resp.StatusCode, decoded.Error, nil
	}
	return decoded.Result, resp.StatusCode, nil, nil
}
