package tenant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	dbpkg "github.com/pingbackhq/pingbacker/internal/db"
)

const uniqueViolationCode = "23505"

// Service reads and provisions tenant records.
type Service struct {
	db     dbpkg.Querier
	logger *slog.Logger
}

// NewService creates a tenant service.
func NewService(log *slog.Logger, db dbpkg.Querier) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		db:     db,
		logger: log.With(slog.String("service", "tenant")),
	}
}

// Resolve looks up the tenant owning a provider phone number id.
func (s *Service) Resolve(ctx context.Context, phoneNumberID string) (Tenant, error) {
	phoneNumberID = strings.TrimSpace(phoneNumberID)
	if phoneNumberID == "" {
		return Tenant{}, fmt.Errorf("phone number id is required")
	}

	row := s.db.QueryRow(ctx,
		`SELECT id, phone_number_id, wh_token, persona FROM tenants WHERE phone_number_id = $1`,
		phoneNumberID,
	)
	var t Tenant
	if err := row.Scan(&t.ID, &t.PhoneNumberID, &t.Token, &t.Persona); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Tenant{}, ErrUnknownTenant
		}
		return Tenant{}, fmt.Errorf("resolve tenant: %w", err)
	}
	return t, nil
}

// Create provisions a tenant. The phone number id must be unassigned.
func (s *Service) Create(ctx context.Context, input CreateInput) (Tenant, error) {
	t := Tenant{
		ID:            strings.TrimSpace(input.ID),
		PhoneNumberID: strings.TrimSpace(input.PhoneNumberID),
		Token:         strings.TrimSpace(input.Token),
		Persona:       strings.TrimSpace(input.Persona),
	}
	if t.ID == "" || t.PhoneNumberID == "" || t.Token == "" {
		return Tenant{}, fmt.Errorf("id, phone number id and token are required")
	}

	row := s.db.QueryRow(ctx,
		`INSERT INTO tenants (id, phone_number_id, wh_token, persona)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, phone_number_id, wh_token, persona`,
		t.ID, t.PhoneNumberID, t.Token, t.Persona,
	)
	var created Tenant
	if err := row.Scan(&created.ID, &created.PhoneNumberID, &created.Token, &created.Persona); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return Tenant{}, ErrRoutingKeyTaken
		}
		return Tenant{}, fmt.Errorf("create tenant: %w", err)
	}
	s.logger.Info("tenant created",
		slog.String("tenant_id", created.ID),
		slog.String("phone_number_id", created.PhoneNumberID),
	)
	return created, nil
}

// List returns all tenants.
func (s *Service) List(ctx context.Context) ([]Tenant, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, phone_number_id, wh_token, persona FROM tenants ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	var tenants []Tenant
	for rows.Next() {
		var t Tenant
		if err := rows.Scan(&t.ID, &t.PhoneNumberID, &t.Token, &t.Persona); err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}
