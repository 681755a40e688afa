package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/servibook/libs/db"
	"github.com/md-rashed-zaman/servibook/services/booking-service/internal/model"
)

// UserRepository is the identity provider: read-only participant lookups.
// Account management itself lives elsewhere.
type UserRepository struct {
	pool *db.Pool
}

func NewUserRepository(pool *db.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// FindByID returns (nil, nil) when the id is malformed or unknown, so a
// bad reference reads as "participant not found" rather than a query
// error.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}

	var u model.User
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, name, COALESCE(email, ''), COALESCE(phone, ''), COALESCE(whatsapp, ''), role
		FROM users
		WHERE id = $1
	`, id).Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.Whatsapp, &u.Role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}
