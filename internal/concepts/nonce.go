package concepts

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/weftlabs/weft/internal/ir"
)

// NonceGenerator mints unique opaque strings.
//
// Operations:
//
//	generate () -> (nonce)
//
// The default source is uuid.NewString; tests inject a deterministic one.
type NonceGenerator struct {
	source func() string
}

// NewNonceGenerator creates a generator backed by random UUIDs.
func NewNonceGenerator() *NonceGenerator {
	return &NonceGenerator{source: uuid.NewString}
}

// NewNonceGeneratorWithSource creates a generator with a custom source.
func NewNonceGeneratorWithSource(source func() string) *NonceGenerator {
	return &NonceGenerator{source: source}
}

func (g *NonceGenerator) Perform(_ context.Context, op string, _ ir.Object) (ir.Object, error) {
	if op != "generate" {
		return nil, fmt.Errorf("nonce: unknown operation %q", op)
	}
	return ir.Object{"nonce": ir.String(g.source())}, nil
}

func (g *NonceGenerator) Query(_ context.Context, op string, _ ir.Object) ([]ir.Object, error) {
	return nil, fmt.Errorf("nonce: unknown query %q", op)
}
