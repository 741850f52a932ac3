package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"resty.dev/v3"

	"github.com/vk/modelbind/internal/ctxlog"
)

// rpcRequest is the JSON-RPC 2.0 request envelope the session service speaks.
type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("session rpc error %d: %s", e.Code, e.Message)
}

// Handle is the concrete Session backed by the remote service. It owns its
// HTTP client; Close releases both the remote session and the transport.
type Handle struct {
	client    *resty.Client
	sessionID string
	nextID    atomic.Uint64
	closed    atomic.Bool
}

var _ Session = (*Handle)(nil)

// releaseTimeout bounds the release round trip in Close, which runs without a
// caller context. A dead service must not hang shutdown.
var releaseTimeout = 5 * time.Second

// Connect registers a session with the remote service under the given
// policies and returns the handle for it.
func Connect(ctx context.Context, endpoint string, policies []Policy) (*Handle, error) {
	logger := ctxlog.FromContext(ctx).With("endpoint", endpoint)
	logger.Info("Opening account session...", "policies", len(policies))

	h := &Handle{client: resty.New().SetBaseURL(endpoint)}

	var result struct {
		SessionID string `json:"session_id"`
	}
	if err := h.call(ctx, "session_connect", map[string]any{"policies": policies}, &result); err != nil {
		h.client.Close()
		return nil, fmt.Errorf("session connect failed: %w", err)
	}
	if result.SessionID == "" {
		h.client.Close()
		return nil, fmt.Errorf("session connect returned an empty session id")
	}

	h.sessionID = result.SessionID
	logger.Info("Account session open", "session_id", h.sessionID)
	return h, nil
}

// Execute signs and submits a batch of calls.
func (h *Handle) Execute(ctx context.Context, calls []Call) (*Result, error) {
	if h.closed.Load() {
		return nil, fmt.Errorf("session is closed")
	}
	var result Result
	params := map[string]any{"session_id": h.sessionID, "calls": calls}
	if err := h.call(ctx, "session_execute", params, &result); err != nil {
		return nil, fmt.Errorf("execute failed: %w", err)
	}
	return &result, nil
}

// Nonce returns the account's next nonce.
func (h *Handle) Nonce(ctx context.Context) (string, error) {
	if h.closed.Load() {
		return "", fmt.Errorf("session is closed")
	}
	var result struct {
		Nonce string `json:"nonce"`
	}
	params := map[string]any{"session_id": h.sessionID}
	if err := h.call(ctx, "session_nonce", params, &result); err != nil {
		return "", fmt.Errorf("nonce failed: %w", err)
	}
	return result.Nonce, nil
}

// Close releases the remote session, then the transport. Safe to call once;
// later calls report the handle as already closed.
func (h *Handle) Close() error {
	if !h.closed.CompareAndSwap(false, true) {
		return fmt.Errorf("session is closed")
	}
	defer h.client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()

	params := map[string]any{"session_id": h.sessionID}
	if err := h.call(ctx, "session_release", params, &struct{}{}); err != nil {
		return fmt.Errorf("session release failed: %w", err)
	}
	return nil
}

// call performs one JSON-RPC round trip and unmarshals the result payload.
func (h *Handle) call(ctx context.Context, method string, params any, out any) error {
	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      h.nextID.Add(1),
		Method:  method,
		Params:  params,
	}

	var rpcResp rpcResponse
	resp, err := h.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		SetResult(&rpcResp).
		Post("")
	if err != nil {
		return fmt.Errorf("rpc %s: %w", method, err)
	}
	if resp.IsError() {
		return fmt.Errorf("rpc %s: unexpected status %s", method, resp.Status())
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("rpc %s: %w", method, rpcResp.Error)
	}
	if out != nil && len(rpcResp.Result) > 0 {
		if err := json.Unmarshal(rpcResp.Result, out); err != nil {
			return fmt.Errorf("rpc %s: decoding result: %w", method, err)
		}
	}
	return nil
}
