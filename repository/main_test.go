package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/neonship/neon-server/database"
	"github.com/neonship/neon-server/models"
)

// newTestDB, in-memory SQLite + gerçek migration'lar ile test DB'si açar.
// Fake yerine gerçek şema kullanılır — CHECK constraint'ler ve index'ler de
// test kapsamına girer.
func newTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.New(":memory:", database.Migrations())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return db
}

// seedUser, testlerde kullanılacak bir kullanıcı oluşturur.
func seedUser(t *testing.T, repo UserRepository, phone string) *models.User {
	t.Helper()

	user := &models.User{
		ID:            models.NewUserID(),
		PhoneNumber:   phone,
		Name:          "Test User",
		PhoneVerified: true,
	}
	require.NoError(t, repo.Create(t.Context(), user))
	return user
}

// seedSession, testlerde kullanılacak bir session oluşturur.
func seedSession(t *testing.T, repo SessionRepository, session *models.Session) *models.Session {
	t.Helper()

	if session.ID == "" {
		session.ID = "sess_" + time.Now().Format("150405.000000000")
	}
	if session.RefreshTokenHash == "" {
		session.RefreshTokenHash = "hash_" + session.ID
	}
	if session.ExpiresAt.IsZero() {
		session.ExpiresAt = time.Now().UTC().Add(time.Hour)
	}
	require.NoError(t, repo.Create(t.Context(), session))
	return session
}
