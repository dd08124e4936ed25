package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/neonship/neon-server/database"
	"github.com/neonship/neon-server/models"
	"github.com/neonship/neon-server/pkg"
)

// sqliteSessionRepo, SessionRepository interface'inin SQLite implementasyonu.
type sqliteSessionRepo struct {
	db database.TxQuerier
}

// NewSQLiteSessionRepo, constructor.
func NewSQLiteSessionRepo(db database.TxQuerier) SessionRepository {
	return &sqliteSessionRepo{db: db}
}

const sessionColumns = `id, user_id, phone_number, type, access_token,
	refresh_token_hash, user_agent, ip_address, expires_at, created_at, last_accessed_at`

func (r *sqliteSessionRepo) Create(ctx context.Context, session *models.Session) error {
	now := time.Now().UTC()
	session.CreatedAt = now
	session.LastAccessedAt = now

	query := `
		INSERT INTO sessions (` + sessionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		session.ID, session.UserID, session.PhoneNumber, string(session.Type),
		session.AccessToken, session.RefreshTokenHash,
		session.UserAgent, session.IPAddress,
		session.ExpiresAt, session.CreatedAt, session.LastAccessedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

func (r *sqliteSessionRepo) GetByID(ctx context.Context, id string) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + `
		FROM sessions WHERE id = ? AND expires_at > ?`

	return r.scanOne(r.db.QueryRowContext(ctx, query, id, time.Now().UTC()))
}

func (r *sqliteSessionRepo) TouchLastAccessed(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET last_accessed_at = ? WHERE id = ?`,
		time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	return nil
}

func (r *sqliteSessionRepo) GetAuthenticatedByRefreshHash(ctx context.Context, hash string) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + `
		FROM sessions
		WHERE refresh_token_hash = ? AND type = 'authenticated' AND expires_at > ?`

	return r.scanOne(r.db.QueryRowContext(ctx, query, hash, time.Now().UTC()))
}

// UpdateAccessToken — refresh akışı. Satır yerinde güncellenir, session id
// değişmez; last_accessed_at da bu yenilemeyle birlikte ilerler.
func (r *sqliteSessionRepo) UpdateAccessToken(ctx context.Context, id, accessToken string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET access_token = ?, last_accessed_at = ? WHERE id = ?`,
		accessToken, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update session access token: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check session update result: %w", err)
	}
	if affected == 0 {
		return pkg.ErrNotFound
	}

	return nil
}

func (r *sqliteSessionRepo) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (r *sqliteSessionRepo) DeleteByUserID(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete user sessions: %w", err)
	}
	return nil
}

func (r *sqliteSessionRepo) ExpirePendingByPhone(ctx context.Context, phone, excludeID string) error {
	query := `
		UPDATE sessions SET expires_at = ?
		WHERE phone_number = ? AND type = 'pending_registration' AND id != ?`

	_, err := r.db.ExecContext(ctx, query, time.Now().UTC(), phone, excludeID)
	if err != nil {
		return fmt.Errorf("failed to expire pending sessions: %w", err)
	}
	return nil
}

func (r *sqliteSessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at < ?`, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted sessions: %w", err)
	}

	return deleted, nil
}

func (r *sqliteSessionRepo) CountActiveByUser(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sessions
		WHERE user_id = ? AND type = 'authenticated' AND expires_at > ?`,
		userID, time.Now().UTC()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active sessions: %w", err)
	}
	return count, nil
}

func (r *sqliteSessionRepo) scanOne(row *sql.Row) (*models.Session, error) {
	session := &models.Session{}
	err := row.Scan(
		&session.ID, &session.UserID, &session.PhoneNumber, &session.Type,
		&session.AccessToken, &session.RefreshTokenHash,
		&session.UserAgent, &session.IPAddress,
		&session.ExpiresAt, &session.CreatedAt, &session.LastAccessedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}

	return session, nil
}
