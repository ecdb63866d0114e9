package solana

import "context"

// WSClient defines Solana WebSocket subscription interface.
type WSClient interface {
	// SubscribeSignature subscribes to the finalization of one signature.
	// The returned channel delivers at most one notification and is then
	// closed, matching the node's one-shot signatureSubscribe semantics.
	SubscribeSignature(ctx context.Context, signature string) (<-chan SignatureNotification, error)

	// Close closes the WebSocket connection.
	Close() error
}

// SignatureNotification reports the terminal status of a watched signature.
type SignatureNotification struct {
	Signature string
	Slot      int64
	// Err is the on-chain execution error, nil when the transaction succeeded.
	Err interface{}
}
