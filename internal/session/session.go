// Package session is a thin façade over the external account/session
// service that signs and submits transactions. Keys and policy enforcement
// live on the other side of the RPC boundary; this package only carries
// requests across it and hands back an opaque handle whose lifetime the
// caller controls.
package session

import (
	"context"
)

// Policy authorizes the session to call one method on one target contract.
type Policy struct {
	Target string `json:"target"`
	Method string `json:"method"`
}

// Call is a single contract invocation inside an Execute batch.
type Call struct {
	To       string   `json:"to"`
	Selector string   `json:"selector"`
	Calldata []string `json:"calldata"`
}

// Result is the outcome of a successful Execute.
type Result struct {
	TransactionHash string `json:"transaction_hash"`
}

// Session is the capability returned by Connect. Every operation reports an
// explicit error; nothing fails silently.
type Session interface {
	// Execute signs and submits a batch of calls under the session's policies.
	Execute(ctx context.Context, calls []Call) (*Result, error)

	// Nonce returns the account's next nonce.
	Nonce(ctx context.Context) (string, error)

	// Close releases the remote session and the transport underneath it.
	// The handle is unusable afterwards.
	Close() error
}
