package listener

import (
	"context"

	"github.com/latticebuild/critpath/signal"
)

// senderContextKey is the unexported key type under which a Sender is
// stored in a context.Context, keeping the bus handle reachable from deep
// in a build's call stack without a global variable.
type senderContextKey struct{}

// WithSender returns a copy of ctx carrying sender, retrievable later with
// SenderFromContext.
func WithSender(ctx context.Context, sender signal.Sender) context.Context {
	return context.WithValue(ctx, senderContextKey{}, sender)
}

// SenderFromContext returns the Sender stored in ctx by WithSender, if any.
func SenderFromContext(ctx context.Context) (signal.Sender, bool) {
	sender, ok := ctx.Value(senderContextKey{}).(signal.Sender)
	return sender, ok
}
