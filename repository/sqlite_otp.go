package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/neonship/neon-server/database"
	"github.com/neonship/neon-server/models"
	"github.com/neonship/neon-server/pkg"
)

// sqliteOTPRepo, OTPRepository interface'inin SQLite implementasyonu.
type sqliteOTPRepo struct {
	db database.TxQuerier
}

// NewSQLiteOTPRepo, constructor.
func NewSQLiteOTPRepo(db database.TxQuerier) OTPRepository {
	return &sqliteOTPRepo{db: db}
}

func (r *sqliteOTPRepo) Create(ctx context.Context, otp *models.OTPCode) error {
	if otp.ID == "" {
		otp.ID = uuid.NewString()
	}
	if otp.CreatedAt.IsZero() {
		otp.CreatedAt = time.Now().UTC()
	}
	otp.Status = models.OTPStatusPending

	query := `
		INSERT INTO otp_codes (id, phone_number, code, purpose, status,
			attempts, max_attempts, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		otp.ID, otp.PhoneNumber, otp.Code, string(otp.Purpose), string(otp.Status),
		otp.Attempts, otp.MaxAttempts, otp.ExpiresAt, otp.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create otp code: %w", err)
	}

	return nil
}

func (r *sqliteOTPRepo) GetLatestPending(ctx context.Context, phone string, purpose models.OTPPurpose) (*models.OTPCode, error) {
	query := `
		SELECT id, phone_number, code, purpose, status, attempts, max_attempts,
			expires_at, created_at, verified_at
		FROM otp_codes
		WHERE phone_number = ? AND purpose = ? AND status = 'pending' AND expires_at > ?
		ORDER BY created_at DESC LIMIT 1`

	otp := &models.OTPCode{}
	err := r.db.QueryRowContext(ctx, query, phone, string(purpose), time.Now().UTC()).Scan(
		&otp.ID, &otp.PhoneNumber, &otp.Code, &otp.Purpose, &otp.Status,
		&otp.Attempts, &otp.MaxAttempts, &otp.ExpiresAt, &otp.CreatedAt, &otp.VerifiedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pending otp code: %w", err)
	}

	return otp, nil
}

// ConsumeAttempt — sayaç tek bir atomik UPDATE ile artırılır ve yeni değer
// RETURNING ile okunur. Read-then-write yoktur: iki eşzamanlı doğrulama
// denemesi sayacı iki kez artırır, limit aşımı kaçmaz.
func (r *sqliteOTPRepo) ConsumeAttempt(ctx context.Context, id string) (int, error) {
	query := `
		UPDATE otp_codes SET attempts = attempts + 1
		WHERE id = ?
		RETURNING attempts`

	var attempts int
	err := r.db.QueryRowContext(ctx, query, id).Scan(&attempts)

	if errors.Is(err, sql.ErrNoRows) {
		return 0, pkg.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to consume otp attempt: %w", err)
	}

	return attempts, nil
}

func (r *sqliteOTPRepo) MarkVerified(ctx context.Context, id string) error {
	query := `
		UPDATE otp_codes SET status = 'verified', verified_at = ?
		WHERE id = ? AND status = 'pending'`

	res, err := r.db.ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to mark otp verified: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check otp update result: %w", err)
	}
	if affected == 0 {
		return pkg.ErrNotFound
	}

	return nil
}

func (r *sqliteOTPRepo) SupersedePending(ctx context.Context, phone string, purpose models.OTPPurpose) error {
	query := `
		UPDATE otp_codes SET status = 'superseded'
		WHERE phone_number = ? AND purpose = ? AND status = 'pending'`

	_, err := r.db.ExecContext(ctx, query, phone, string(purpose))
	if err != nil {
		return fmt.Errorf("failed to supersede pending otp codes: %w", err)
	}

	return nil
}

func (r *sqliteOTPRepo) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM otp_codes WHERE expires_at < ?`, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired otp codes: %w", err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted otp codes: %w", err)
	}

	return deleted, nil
}
