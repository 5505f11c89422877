package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	intdb "github.com/galliconnect/rideshare/internal/db"
	"github.com/galliconnect/rideshare/internal/domain"
	"github.com/galliconnect/rideshare/internal/domain/models"
)

type UserRepository struct {
	DB *sql.DB
}

// Create inserts u and sets its ID. A second account for the same (email, role)
// yields domain.ConflictError.
func (r UserRepository) Create(ctx context.Context, u *models.User) error {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (name, email, password_hash, role) VALUES (?, ?, ?, ?)`,
		u.Name, u.Email, u.PasswordHash, u.Role,
	)
	if err != nil {
		if intdb.IsDuplicateKey(err) {
			return domain.ConflictError{Resource: "user", Msg: "an account with this email and role already exists", Err: err}
		}
		return fmt.Errorf("create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("create user: last insert id: %w", err)
	}
	u.ID = id
	return nil
}

func (r UserRepository) GetByEmailAndRole(ctx context.Context, email, role string) (models.User, error) {
	return r.getOne(ctx,
		`SELECT id, name, email, password_hash, role FROM users WHERE email = ? AND role = ? LIMIT 1`,
		email, role,
	)
}

func (r UserRepository) GetByID(ctx context.Context, id int64) (models.User, error) {
	return r.getOne(ctx,
		`SELECT id, name, email, password_hash, role FROM users WHERE id = ? LIMIT 1`,
		id,
	)
}

func (r UserRepository) getOne(ctx context.Context, query string, args ...any) (models.User, error) {
	var u models.User
	err := r.DB.QueryRowContext(ctx, query, args...).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, domain.NotFoundError{Resource: "user", Err: err}
		}
		return models.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}
