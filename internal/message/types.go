package message

import (
	"context"
	"errors"
	"time"
)

// Roles a stored message can carry.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// ErrDuplicateMessage means the provider message id is already stored. The
// provider retries webhook deliveries, so this is expected and benign.
var ErrDuplicateMessage = errors.New("duplicate provider message id")

// Message is one persisted conversation message. Messages are append-only;
// nothing mutates or deletes them after Append.
type Message struct {
	Seq         int64     `json:"seq"`
	TenantID    string    `json:"tenant_id"`
	WAMessageID string    `json:"wa_message_id,omitempty"`
	Role        string    `json:"role"`
	Body        string    `json:"body"`
	CreatedAt   time.Time `json:"created_at"`
}

// AppendInput is the input for storing a message. WAMessageID is set only
// for inbound user messages; it is the idempotency key.
type AppendInput struct {
	TenantID    string
	Role        string
	Body        string
	WAMessageID string
}

// Appender defines the write behavior the ingestion pipeline needs.
type Appender interface {
	Append(ctx context.Context, input AppendInput) (Message, error)
}

// Reader defines the bounded recency read the window builder needs.
type Reader interface {
	Recent(ctx context.Context, tenantID string, limit int) ([]Message, error)
}
