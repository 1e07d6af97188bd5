// Package conversation assembles the bounded chat context submitted to the
// reply generator.
package conversation

import (
	"context"
	"fmt"
	"strings"

	"github.com/pingbackhq/pingbacker/internal/message"
	"github.com/pingbackhq/pingbacker/internal/tenant"
)

// DefaultWindowSize is the number of recent messages a window may carry.
const DefaultWindowSize = 10

// Turn is one role/content pair of the conversation window.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// WindowBuilder derives conversation windows from stored history.
type WindowBuilder struct {
	store          message.Reader
	limit          int
	defaultPersona string
}

// NewWindowBuilder creates a builder reading at most limit messages per
// window. defaultPersona seeds tenants whose own persona is blank.
func NewWindowBuilder(store message.Reader, limit int, defaultPersona string) *WindowBuilder {
	if limit <= 0 {
		limit = DefaultWindowSize
	}
	return &WindowBuilder{
		store:          store,
		limit:          limit,
		defaultPersona: strings.TrimSpace(defaultPersona),
	}
}

// Build returns the tenant's recent history oldest-first as turns. A tenant
// with no history gets a single system turn carrying its persona, so the
// first reply is still grounded in something.
func (b *WindowBuilder) Build(ctx context.Context, t tenant.Tenant) ([]Turn, error) {
	history, err := b.store.Recent(ctx, t.ID, b.limit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	if len(history) == 0 {
		persona := strings.TrimSpace(t.Persona)
		if persona == "" {
			persona = b.defaultPersona
		}
		return []Turn{{Role: message.RoleSystem, Content: persona}}, nil
	}

	window := make([]Turn, 0, len(history))
	for _, msg := range history {
		window = append(window, Turn{Role: msg.Role, Content: msg.Body})
	}
	return window, nil
}
