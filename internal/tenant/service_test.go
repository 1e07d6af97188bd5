package tenant

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRow struct {
	scanFunc func(dest ...any) error
}

func (r *fakeRow) Scan(dest ...any) error {
	return r.scanFunc(dest...)
}

type fakeQuerier struct {
	queryRowFunc func(ctx context.Context, sql string, args ...any) pgx.Row
}

func (d *fakeQuerier) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (d *fakeQuerier) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, nil
}

func (d *fakeQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if d.queryRowFunc != nil {
		return d.queryRowFunc(ctx, sql, args...)
	}
	return &fakeRow{scanFunc: func(dest ...any) error { return pgx.ErrNoRows }}
}

func tenantScan(id, phoneNumberID, token, persona string) func(dest ...any) error {
	return func(dest ...any) error {
		*dest[0].(*string) = id
		*dest[1].(*string) = phoneNumberID
		*dest[2].(*string) = token
		*dest[3].(*string) = persona
		return nil
	}
}

func TestResolve(t *testing.T) {
	svc := NewService(nil, &fakeQuerier{
		queryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
			if args[0].(string) == "123" {
				return &fakeRow{scanFunc: tenantScan("acme", "123", "tok", "Be nice.")}
			}
			return &fakeRow{scanFunc: func(dest ...any) error { return pgx.ErrNoRows }}
		},
	})

	got, err := svc.Resolve(context.Background(), "123")
	require.NoError(t, err)
	assert.Equal(t, "acme", got.ID)
	assert.Equal(t, "tok", got.Token)
	assert.Equal(t, "Be nice.", got.Persona)

	_, err = svc.Resolve(context.Background(), "999")
	assert.ErrorIs(t, err, ErrUnknownTenant)

	_, err = svc.Resolve(context.Background(), "  ")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnknownTenant)
}

func TestCreateRoutingKeyTaken(t *testing.T) {
	svc := NewService(nil, &fakeQuerier{
		queryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
			return &fakeRow{scanFunc: func(dest ...any) error {
				return &pgconn.PgError{Code: uniqueViolationCode}
			}}
		},
	})

	_, err := svc.Create(context.Background(), CreateInput{
		ID:            "acme",
		PhoneNumberID: "123",
		Token:         "tok",
	})
	assert.ErrorIs(t, err, ErrRoutingKeyTaken)
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(nil, &fakeQuerier{})

	_, err := svc.Create(context.Background(), CreateInput{PhoneNumberID: "123", Token: "tok"})
	assert.Error(t, err)

	_, err = svc.Create(context.Background(), CreateInput{ID: "acme", Token: "tok"})
	assert.Error(t, err)

	_, err = svc.Create(context.Background(), CreateInput{ID: "acme", PhoneNumberID: "123"})
	assert.Error(t, err)
}

func TestCreateTrimsInput(t *testing.T) {
	var gotArgs []any
	svc := NewService(nil, &fakeQuerier{
		queryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
			gotArgs = args
			return &fakeRow{scanFunc: tenantScan("acme", "123", "tok", "")}
		},
	})

	_, err := svc.Create(context.Background(), CreateInput{
		ID:            " acme ",
		PhoneNumberID: "123\n",
		Token:         "tok\n",
	})
	require.NoError(t, err)
	assert.Equal(t, "acme", gotArgs[0])
	assert.Equal(t, "123", gotArgs[1])
	assert.Equal(t, "tok", gotArgs[2])
}
