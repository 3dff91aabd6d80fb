package user

import (
	"context"

	"github.com/jackc/pgx/v5"
)

type Repo interface {
	Create(ctx context.Context, tx pgx.Tx, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
}
