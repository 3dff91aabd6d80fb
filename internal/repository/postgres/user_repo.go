package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/NordCoder/Shortly/internal/domain/user"
	"github.com/jackc/pgx/v5"
)

var _ user.Repo = (*UserRepo)(nil)

type UserRepo struct {
	db *DB
}

func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

const (
	qUserInsert = `
INSERT INTO users (username, password_hash)
VALUES ($1, $2)
RETURNING id, created_at;`

	qUserByID = `
SELECT id, username, password_hash, created_at
FROM users
WHERE id = $1;`

	qUserByUsername = `
SELECT id, username, password_hash, created_at
FROM users
WHERE username = $1;`
)

// Create relies on the unique index on username; a duplicate surfaces as
// ErrConflict rather than being pre-checked.
func (r *UserRepo) Create(ctx context.Context, tx pgx.Tx, u *user.User) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if err := r.db.on(tx).QueryRow(ctx, qUserInsert, u.Username, u.PasswordHash).
		Scan(&u.ID, &u.CreatedAt); err != nil {
		if mapped := mapPgErr(err); errors.Is(mapped, ErrConflict) {
			return ErrConflict
		}
		return fmt.Errorf("user insert: %w", err)
	}
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*user.User, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var u user.User
	if err := scanUser(r.db.Pool.QueryRow(ctx, qUserByID, id), &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var u user.User
	if err := scanUser(r.db.Pool.QueryRow(ctx, qUserByUsername, username), &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func scanUser(row pgx.Row, out *user.User) error {
	if err := row.Scan(&out.ID, &out.Username, &out.PasswordHash, &out.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("scan user: %w", err)
	}
	return nil
}
