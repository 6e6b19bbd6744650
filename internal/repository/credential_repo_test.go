package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"chat-relay/internal/db"
	"chat-relay/internal/domain"
)

type fakeRow struct {
	cred domain.Credential
	err  error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != 4 {
		return fmt.Errorf("unexpected scan targets: %d", len(dest))
	}
	*dest[0].(*string) = r.cred.ID
	*dest[1].(*string) = r.cred.Username
	*dest[2].(*string) = r.cred.PasswordHash
	*dest[3].(*time.Time) = r.cred.CreatedAt
	return nil
}

type fakeQuerier struct {
	execArgs  []any
	execErr   error
	queryArgs []any
	row       fakeRow
}

func (q *fakeQuerier) Exec(_ context.Context, _ string, args ...any) (pgconn.CommandTag, error) {
	q.execArgs = args
	if q.execErr != nil {
		return pgconn.CommandTag{}, q.execErr
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (q *fakeQuerier) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	q.queryArgs = args
	return q.row
}

func TestIsUniqueViolation(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"}
	if !isUniqueViolation(dup) {
		t.Fatalf("expected 23505 to be a unique violation")
	}
	if !isUniqueViolation(fmt.Errorf("exec: %w", dup)) {
		t.Fatalf("expected wrapped 23505 to be a unique violation")
	}
	if isUniqueViolation(&pgconn.PgError{Code: "23503"}) {
		t.Fatalf("foreign key violation is not a unique violation")
	}
	if isUniqueViolation(errors.New("boom")) || isUniqueViolation(nil) {
		t.Fatalf("plain errors are not unique violations")
	}
}

func TestPgCredentialRepository_Create(t *testing.T) {
	cred := domain.Credential{
		ID:           uuid.NewString(),
		Username:     "alice",
		PasswordHash: "$argon2id$hash",
		CreatedAt:    time.Now().UTC(),
	}

	t.Run("inserts all columns", func(t *testing.T) {
		q := &fakeQuerier{}
		repo := &PgCredentialRepository{db: q}
		if err := repo.Create(context.Background(), cred); err != nil {
			t.Fatalf("create: %v", err)
		}
		if len(q.execArgs) != 4 || q.execArgs[0] != cred.ID || q.execArgs[1] != "alice" || q.execArgs[2] != cred.PasswordHash {
			t.Fatalf("unexpected insert args: %v", q.execArgs)
		}
	})

	t.Run("duplicate username", func(t *testing.T) {
		q := &fakeQuerier{execErr: &pgconn.PgError{Code: "23505"}}
		repo := &PgCredentialRepository{db: q}
		if err := repo.Create(context.Background(), cred); !errors.Is(err, ErrUsernameTaken) {
			t.Fatalf("expected ErrUsernameTaken, got %v", err)
		}
	})

	t.Run("other errors pass through", func(t *testing.T) {
		boom := errors.New("connection refused")
		repo := &PgCredentialRepository{db: &fakeQuerier{execErr: boom}}
		if err := repo.Create(context.Background(), cred); !errors.Is(err, boom) {
			t.Fatalf("expected original error, got %v", err)
		}
	})
}

func TestPgCredentialRepository_GetByUsername(t *testing.T) {
	stored := domain.Credential{
		ID:           uuid.NewString(),
		Username:     "alice",
		PasswordHash: "$argon2id$hash",
		CreatedAt:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	t.Run("found", func(t *testing.T) {
		q := &fakeQuerier{row: fakeRow{cred: stored}}
		repo := &PgCredentialRepository{db: q}
		got, err := repo.GetByUsername(context.Background(), "alice")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got != stored {
			t.Fatalf("unexpected credential: %+v", got)
		}
		if len(q.queryArgs) != 1 || q.queryArgs[0] != "alice" {
			t.Fatalf("unexpected query args: %v", q.queryArgs)
		}
	})

	t.Run("missing", func(t *testing.T) {
		repo := &PgCredentialRepository{db: &fakeQuerier{row: fakeRow{err: pgx.ErrNoRows}}}
		if _, err := repo.GetByUsername(context.Background(), "ghost"); !errors.Is(err, ErrCredentialNotFound) {
			t.Fatalf("expected ErrCredentialNotFound, got %v", err)
		}
	})

	t.Run("scan error", func(t *testing.T) {
		boom := errors.New("conn closed")
		repo := &PgCredentialRepository{db: &fakeQuerier{row: fakeRow{err: boom}}}
		if _, err := repo.GetByUsername(context.Background(), "alice"); !errors.Is(err, boom) {
			t.Fatalf("expected original error, got %v", err)
		}
	})
}

// Corre contra Postgres real solo si TEST_DATABASE_URL esta definida.
func TestPgCredentialRepository_Postgres(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer pool.Close()
	if err := db.Migrate(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	repo := NewPgCredentialRepository(pool)
	username := "it-" + uuid.NewString()
	cred := domain.Credential{ID: uuid.NewString(), Username: username, PasswordHash: "h", CreatedAt: time.Now().UTC()}
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), "DELETE FROM users WHERE username = $1", username)
	})

	if err := repo.Create(ctx, cred); err != nil {
		t.Fatalf("create: %v", err)
	}
	dup := cred
	dup.ID = uuid.NewString()
	if err := repo.Create(ctx, dup); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
	got, err := repo.GetByUsername(ctx, username)
	if err != nil || got.ID != cred.ID || got.PasswordHash != "h" {
		t.Fatalf("unexpected credential: %+v err=%v", got, err)
	}
}
