package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/neonship/neon-server/database"
	"github.com/neonship/neon-server/models"
	"github.com/neonship/neon-server/pkg"
)

// sqliteUserRepo, UserRepository interface'inin SQLite implementasyonu.
type sqliteUserRepo struct {
	db database.TxQuerier
}

// NewSQLiteUserRepo, constructor.
func NewSQLiteUserRepo(db database.TxQuerier) UserRepository {
	return &sqliteUserRepo{db: db}
}

func (r *sqliteUserRepo) Create(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	query := `
		INSERT INTO users (id, phone_number, name, email, address_line, city, country,
			phone_verified, email_verified, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.PhoneNumber, user.Name, user.Email,
		user.AddressLine, user.City, user.Country,
		user.PhoneVerified, user.EmailVerified,
		user.CreatedAt, user.UpdatedAt,
	)

	if err != nil {
		// UNIQUE constraint → telefon zaten kayıtlı
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: phone number already registered", pkg.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

func (r *sqliteUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getByField(ctx, "id", id)
}

func (r *sqliteUserRepo) GetByPhone(ctx context.Context, phone string) (*models.User, error) {
	return r.getByField(ctx, "phone_number", phone)
}

func (r *sqliteUserRepo) getByField(ctx context.Context, field, value string) (*models.User, error) {
	query := fmt.Sprintf(`
		SELECT id, phone_number, name, email, address_line, city, country,
			phone_verified, email_verified, created_at, updated_at
		FROM users WHERE %s = ?`, field)

	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, value).Scan(
		&user.ID, &user.PhoneNumber, &user.Name, &user.Email,
		&user.AddressLine, &user.City, &user.Country,
		&user.PhoneVerified, &user.EmailVerified,
		&user.CreatedAt, &user.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by %s: %w", field, err)
	}

	return user, nil
}

// UpdateProfile, sadece gönderilen (nil olmayan) alanları günceller.
// Dinamik SET listesi kurulur — boş istek no-op olur.
func (r *sqliteUserRepo) UpdateProfile(ctx context.Context, id string, req *models.UpdateProfileRequest) error {
	var sets []string
	var args []any

	if req.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *req.Name)
	}
	if req.Email != nil {
		if strings.TrimSpace(*req.Email) == "" {
			// Boş string → email kaldır (NULL) ve doğrulamayı sıfırla
			sets = append(sets, "email = NULL", "email_verified = 0")
		} else {
			sets = append(sets, "email = ?", "email_verified = 0")
			args = append(args, *req.Email)
		}
	}
	if req.AddressLine != nil {
		sets = append(sets, "address_line = ?")
		args = append(args, *req.AddressLine)
	}
	if req.City != nil {
		sets = append(sets, "city = ?")
		args = append(args, *req.City)
	}
	if req.Country != nil {
		sets = append(sets, "country = ?")
		args = append(args, *req.Country)
	}

	if len(sets) == 0 {
		return nil
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC(), id)

	query := fmt.Sprintf("UPDATE users SET %s WHERE id = ?", strings.Join(sets, ", "))

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update user profile: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return pkg.ErrNotFound
	}

	return nil
}
