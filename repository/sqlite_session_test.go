package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neonship/neon-server/models"
	"github.com/neonship/neon-server/pkg"
)

func TestSessionRepo_CreateAndGetByID(t *testing.T) {
	db := newTestDB(t)
	repo := NewSQLiteSessionRepo(db.Conn)
	users := NewSQLiteUserRepo(db.Conn)
	ctx := t.Context()

	user := seedUser(t, users, "+212600000010")
	session := seedSession(t, repo, &models.Session{
		UserID:      &user.ID,
		PhoneNumber: user.PhoneNumber,
		Type:        models.SessionTypeAuthenticated,
		AccessToken: "neon_token",
	})

	got, err := repo.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)
	assert.Equal(t, models.SessionTypeAuthenticated, got.Type)
	assert.Equal(t, "neon_token", got.AccessToken)
	require.NotNil(t, got.UserID)
	assert.Equal(t, user.ID, *got.UserID)
}

func TestSessionRepo_GetByID_ExpiredInvisible(t *testing.T) {
	db := newTestDB(t)
	repo := NewSQLiteSessionRepo(db.Conn)
	ctx := t.Context()

	session := seedSession(t, repo, &models.Session{
		PhoneNumber: "+212600000011",
		Type:        models.SessionTypePending,
		ExpiresAt:   time.Now().UTC().Add(-time.Minute),
	})

	_, err := repo.GetByID(ctx, session.ID)
	assert.ErrorIs(t, err, pkg.ErrNotFound)
}

func TestSessionRepo_GetAuthenticatedByRefreshHash(t *testing.T) {
	db := newTestDB(t)
	repo := NewSQLiteSessionRepo(db.Conn)
	users := NewSQLiteUserRepo(db.Conn)
	ctx := t.Context()

	user := seedUser(t, users, "+212600000012")
	session := seedSession(t, repo, &models.Session{
		UserID:           &user.ID,
		PhoneNumber:      user.PhoneNumber,
		Type:             models.SessionTypeAuthenticated,
		RefreshTokenHash: "known-hash",
	})

	got, err := repo.GetAuthenticatedByRefreshHash(ctx, "known-hash")
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)

	_, err = repo.GetAuthenticatedByRefreshHash(ctx, "unknown-hash")
	assert.ErrorIs(t, err, pkg.ErrNotFound)
}

func TestSessionRepo_GetAuthenticatedByRefreshHash_SkipsPending(t *testing.T) {
	db := newTestDB(t)
	repo := NewSQLiteSessionRepo(db.Conn)
	ctx := t.Context()

	// pending session'ın hash'i refresh akışında kullanılamaz
	seedSession(t, repo, &models.Session{
		PhoneNumber:      "+212600000013",
		Type:             models.SessionTypePending,
		RefreshTokenHash: "pending-hash",
	})

	_, err := repo.GetAuthenticatedByRefreshHash(ctx, "pending-hash")
	assert.ErrorIs(t, err, pkg.ErrNotFound)
}

func TestSessionRepo_UpdateAccessToken(t *testing.T) {
	db := newTestDB(t)
	repo := NewSQLiteSessionRepo(db.Conn)
	users := NewSQLiteUserRepo(db.Conn)
	ctx := t.Context()

	user := seedUser(t, users, "+212600000014")
	session := seedSession(t, repo, &models.Session{
		UserID:      &user.ID,
		PhoneNumber: user.PhoneNumber,
		Type:        models.SessionTypeAuthenticated,
		AccessToken: "neon_old",
	})

	require.NoError(t, repo.UpdateAccessToken(ctx, session.ID, "neon_new"))

	got, err := repo.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, "neon_new", got.AccessToken)
	assert.Equal(t, session.ID, got.ID, "session id must survive refresh")

	assert.ErrorIs(t, repo.UpdateAccessToken(ctx, "missing", "x"), pkg.ErrNotFound)
}

func TestSessionRepo_ExpirePendingByPhone(t *testing.T) {
	db := newTestDB(t)
	repo := NewSQLiteSessionRepo(db.Conn)
	ctx := t.Context()

	phone := "+212600000015"
	first := seedSession(t, repo, &models.Session{PhoneNumber: phone, Type: models.SessionTypePending})
	second := seedSession(t, repo, &models.Session{PhoneNumber: phone, Type: models.SessionTypePending})

	// second hariç hepsi düşürülür
	require.NoError(t, repo.ExpirePendingByPhone(ctx, phone, second.ID))

	_, err := repo.GetByID(ctx, first.ID)
	assert.ErrorIs(t, err, pkg.ErrNotFound)

	_, err = repo.GetByID(ctx, second.ID)
	assert.NoError(t, err)
}

func TestSessionRepo_DeleteByUserID(t *testing.T) {
	db := newTestDB(t)
	repo := NewSQLiteSessionRepo(db.Conn)
	users := NewSQLiteUserRepo(db.Conn)
	ctx := t.Context()

	user := seedUser(t, users, "+212600000016")
	s1 := seedSession(t, repo, &models.Session{UserID: &user.ID, PhoneNumber: user.PhoneNumber, Type: models.SessionTypeAuthenticated})
	s2 := seedSession(t, repo, &models.Session{UserID: &user.ID, PhoneNumber: user.PhoneNumber, Type: models.SessionTypeAuthenticated})

	require.NoError(t, repo.DeleteByUserID(ctx, user.ID))

	for _, id := range []string{s1.ID, s2.ID} {
		_, err := repo.GetByID(ctx, id)
		assert.ErrorIs(t, err, pkg.ErrNotFound)
	}
}

func TestSessionRepo_CountActiveByUser(t *testing.T) {
	db := newTestDB(t)
	repo := NewSQLiteSessionRepo(db.Conn)
	users := NewSQLiteUserRepo(db.Conn)
	ctx := t.Context()

	user := seedUser(t, users, "+212600000017")
	seedSession(t, repo, &models.Session{UserID: &user.ID, PhoneNumber: user.PhoneNumber, Type: models.SessionTypeAuthenticated})
	seedSession(t, repo, &models.Session{UserID: &user.ID, PhoneNumber: user.PhoneNumber, Type: models.SessionTypeAuthenticated})
	// Süresi geçmiş session sayılmaz
	seedSession(t, repo, &models.Session{
		UserID: &user.ID, PhoneNumber: user.PhoneNumber,
		Type: models.SessionTypeAuthenticated, ExpiresAt: time.Now().UTC().Add(-time.Minute),
	})

	count, err := repo.CountActiveByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
