package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"evcharge/backend/libs/auth"
)

// UserRepository resolves token subjects against the shared users table.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository returns repository instance.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// UserByID implements auth.UserLoader.
func (r *UserRepository) UserByID(ctx context.Context, id int64) (*auth.User, error) {
	query, args, err := psql.Select("id", "name", "email", "role").
		From("users").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: UserByID - build select: %v", ErrBuildQuery, err)
	}

	var u auth.User
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&u.ID, &u.Name, &u.Email, &u.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: UserByID - scan: %v", ErrScanRow, err)
	}
	return &u, nil
}
