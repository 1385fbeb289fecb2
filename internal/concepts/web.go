package concepts

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/weftlabs/weft/internal/ir"
)

// Web is a request/response gateway. An inbound request becomes a
// completion carrying a fresh correlation token; rules route work off it
// and eventually invoke respond with the same token, which releases the
// parked caller.
//
// Operations:
//
//	request (any payload)        -> (payload..., request)
//	respond (request, payload..) -> (request) or business error for an
//	                                unknown or already-resolved token
//
// Both are ordinary mutating operations; the runtime gives them no
// special treatment.
type Web struct {
	mu      sync.Mutex
	pending map[string]chan ir.Object
	tokens  func() string
}

// NewWeb creates a gateway minting UUID request tokens.
func NewWeb() *Web {
	return &Web{
		pending: make(map[string]chan ir.Object),
		tokens:  uuid.NewString,
	}
}

// NewWebWithTokens creates a gateway with a custom token source.
func NewWebWithTokens(tokens func() string) *Web {
	return &Web{
		pending: make(map[string]chan ir.Object),
		tokens:  tokens,
	}
}

func (w *Web) Perform(_ context.Context, op string, input ir.Object) (ir.Object, error) {
	switch op {
	case "request":
		return w.request(input), nil
	case "respond":
		return w.respond(input), nil
	default:
		return nil, fmt.Errorf("web: unknown operation %q", op)
	}
}

func (w *Web) Query(_ context.Context, op string, _ ir.Object) ([]ir.Object, error) {
	return nil, fmt.Errorf("web: unknown query %q", op)
}

// request parks a response slot under a fresh token and settles with the
// payload plus the token, so rules can correlate the eventual respond.
func (w *Web) request(input ir.Object) ir.Object {
	token := w.tokens()

	w.mu.Lock()
	// Buffered so respond never blocks on a caller that has not reached
	// Await yet.
	w.pending[token] = make(chan ir.Object, 1)
	w.mu.Unlock()

	out := input.Clone()
	if out == nil {
		out = ir.Object{}
	}
	out["request"] = ir.String(token)
	return out
}

// respond resolves the parked slot for the given request token.
func (w *Web) respond(input ir.Object) ir.Object {
	token, ok := stringField(input, "request")
	if !ok {
		return ir.Object{"error": ir.String("missing request token")}
	}

	w.mu.Lock()
	ch, found := w.pending[token]
	w.mu.Unlock()

	if !found {
		return ir.Object{"error": ir.String("unknown request")}
	}

	body := input.Clone()
	delete(body, "request")

	select {
	case ch <- body:
		return ir.Object{"request": ir.String(token)}
	default:
		return ir.Object{"error": ir.String("request already resolved")}
	}
}

// Await blocks until the request token is responded to or the context
// ends. With the runtime's depth-first dispatch the response is usually
// already buffered by the time the instrumented request call returns.
func (w *Web) Await(ctx context.Context, token string) (ir.Object, error) {
	w.mu.Lock()
	ch, found := w.pending[token]
	w.mu.Unlock()
	if !found {
		return nil, fmt.Errorf("web: no pending request %q", token)
	}

	select {
	case body := <-ch:
		w.mu.Lock()
		delete(w.pending, token)
		w.mu.Unlock()
		return body, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
