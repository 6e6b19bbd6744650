package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"chat-relay/internal/domain"
)

const uniqueViolationCode = "23505"

var (
	ErrCredentialNotFound = errors.New("credential not found")
	ErrUsernameTaken      = errors.New("username already taken")
)

// CredentialRepository define el contrato de persistencia para credenciales.
type CredentialRepository interface {
	Create(ctx context.Context, cred domain.Credential) error
	GetByUsername(ctx context.Context, username string) (domain.Credential, error)
}

// querier es la parte de pgxpool.Pool que usa el repositorio.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgCredentialRepository implementa CredentialRepository usando pgxpool.
type PgCredentialRepository struct {
	db querier
}

func NewPgCredentialRepository(pool *pgxpool.Pool) *PgCredentialRepository {
	return &PgCredentialRepository{db: pool}
}

// Create inserta la credencial; la restriccion UNIQUE sobre username resuelve la carrera
// entre registros concurrentes del mismo nombre.
func (r *PgCredentialRepository) Create(ctx context.Context, cred domain.Credential) error {
	const query = `
		INSERT INTO users (id, username, password_hash, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.db.Exec(ctx, query,
		cred.ID,
		cred.Username,
		cred.PasswordHash,
		cred.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrUsernameTaken
	}
	return err
}

func (r *PgCredentialRepository) GetByUsername(ctx context.Context, username string) (domain.Credential, error) {
	const query = `
		SELECT id, username, password_hash, created_at
		FROM users
		WHERE username = $1
	`
	var c domain.Credential
	err := r.db.QueryRow(ctx, query, username).Scan(
		&c.ID,
		&c.Username,
		&c.PasswordHash,
		&c.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Credential{}, ErrCredentialNotFound
	}
	if err != nil {
		return domain.Credential{}, err
	}
	return c, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}
