// Package reply isolates the external completion capability behind the
// Generator interface; everything non-deterministic lives behind it.
package reply

import (
	"context"
	"fmt"

	"github.com/pingbackhq/pingbacker/internal/conversation"
)

// Generator produces a reply for a conversation window.
type Generator interface {
	Generate(ctx context.Context, window []conversation.Turn) (string, error)
}

// GenerationError wraps any upstream failure: transport errors, error
// responses, timeouts, and blank output. Callers treat them uniformly.
type GenerationError struct {
	Cause error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("reply generation failed: %v", e.Cause)
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}
