package message

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	dbpkg "github.com/pingbackhq/pingbacker/internal/db"
)

// Store persists conversation messages in Postgres.
type Store struct {
	db     dbpkg.Querier
	logger *slog.Logger
}

// NewStore creates a message store.
func NewStore(log *slog.Logger, db dbpkg.Querier) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		db:     db,
		logger: log.With(slog.String("service", "message")),
	}
}

// Append stores one message. Sequence number and timestamp are assigned by
// the database. When the input carries a provider message id that is already
// stored, nothing is written and ErrDuplicateMessage is returned; the unique
// index makes the check-and-insert atomic under concurrent retries of the
// same delivery.
func (s *Store) Append(ctx context.Context, input AppendInput) (Message, error) {
	tenantID := strings.TrimSpace(input.TenantID)
	if tenantID == "" {
		return Message{}, fmt.Errorf("tenant id is required")
	}
	switch input.Role {
	case RoleUser, RoleAssistant, RoleSystem:
	default:
		return Message{}, fmt.Errorf("invalid role %q", input.Role)
	}

	row := s.db.QueryRow(ctx,
		`INSERT INTO messages (tenant_id, wa_message_id, role, body)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (wa_message_id) DO NOTHING
		 RETURNING seq, tenant_id, wa_message_id, role, body, created_at`,
		tenantID, dbpkg.ToPgText(input.WAMessageID), input.Role, input.Body,
	)
	msg, err := scanMessage(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// The conflict target swallowed the insert: this provider
			// message id is already stored.
			return Message{}, ErrDuplicateMessage
		}
		return Message{}, fmt.Errorf("append message: %w", err)
	}
	return msg, nil
}

// Recent returns the newest limit messages of a tenant, oldest first. The
// query walks the (tenant_id, seq DESC) index and the store reverses the
// rows, so callers never re-order history themselves.
func (s *Store) Recent(ctx context.Context, tenantID string, limit int) ([]Message, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, fmt.Errorf("tenant id is required")
	}
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.db.Query(ctx,
		`SELECT seq, tenant_id, wa_message_id, role, body, created_at
		 FROM messages WHERE tenant_id = $1
		 ORDER BY seq DESC LIMIT $2`,
		tenantID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent messages: %w", err)
	}
	defer rows.Close()

	var newestFirst []Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		newestFirst = append(newestFirst, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	oldestFirst := make([]Message, 0, len(newestFirst))
	for i := len(newestFirst) - 1; i >= 0; i-- {
		oldestFirst = append(oldestFirst, newestFirst[i])
	}
	return oldestFirst, nil
}

func scanMessage(row pgx.Row) (Message, error) {
	var (
		msg       Message
		waID      pgtype.Text
		createdAt pgtype.Timestamptz
	)
	if err := row.Scan(&msg.Seq, &msg.TenantID, &waID, &msg.Role, &msg.Body, &createdAt); err != nil {
		return Message{}, err
	}
	msg.WAMessageID = dbpkg.TextToString(waID)
	msg.CreatedAt = createdAt.Time
	return msg, nil
}
