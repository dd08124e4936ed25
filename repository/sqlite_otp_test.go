package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neonship/neon-server/models"
	"github.com/neonship/neon-server/pkg"
)

func newOTP(phone string, purpose models.OTPPurpose, ttl time.Duration) *models.OTPCode {
	return &models.OTPCode{
		PhoneNumber: phone,
		Code:        "123456",
		Purpose:     purpose,
		MaxAttempts: 5,
		ExpiresAt:   time.Now().UTC().Add(ttl),
	}
}

func TestOTPRepo_CreateAndGetLatestPending(t *testing.T) {
	db := newTestDB(t)
	repo := NewSQLiteOTPRepo(db.Conn)
	ctx := t.Context()

	otp := newOTP("+212600000001", models.OTPPurposeLogin, 10*time.Minute)
	require.NoError(t, repo.Create(ctx, otp))
	assert.NotEmpty(t, otp.ID, "Create must assign an id")

	got, err := repo.GetLatestPending(ctx, "+212600000001", models.OTPPurposeLogin)
	require.NoError(t, err)
	assert.Equal(t, otp.ID, got.ID)
	assert.Equal(t, "123456", got.Code)
	assert.Equal(t, models.OTPStatusPending, got.Status)
	assert.Equal(t, 5, got.MaxAttempts)
}

func TestOTPRepo_GetLatestPending_IgnoresExpired(t *testing.T) {
	db := newTestDB(t)
	repo := NewSQLiteOTPRepo(db.Conn)
	ctx := t.Context()

	expired := newOTP("+212600000002", models.OTPPurposeLogin, -time.Minute)
	require.NoError(t, repo.Create(ctx, expired))

	_, err := repo.GetLatestPending(ctx, "+212600000002", models.OTPPurposeLogin)
	assert.ErrorIs(t, err, pkg.ErrNotFound)
}

func TestOTPRepo_GetLatestPending_ScopedByPurpose(t *testing.T) {
	db := newTestDB(t)
	repo := NewSQLiteOTPRepo(db.Conn)
	ctx := t.Context()

	require.NoError(t, repo.Create(ctx, newOTP("+212600000003", models.OTPPurposeLogin, 10*time.Minute)))

	// login kodu register akışında görünmemeli
	_, err := repo.GetLatestPending(ctx, "+212600000003", models.OTPPurposeRegister)
	assert.ErrorIs(t, err, pkg.ErrNotFound)
}

func TestOTPRepo_ConsumeAttempt_Increments(t *testing.T) {
	db := newTestDB(t)
	repo := NewSQLiteOTPRepo(db.Conn)
	ctx := t.Context()

	otp := newOTP("+212600000004", models.OTPPurposeLogin, 10*time.Minute)
	require.NoError(t, repo.Create(ctx, otp))

	for want := 1; want <= 3; want++ {
		got, err := repo.ConsumeAttempt(ctx, otp.ID)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestOTPRepo_ConsumeAttempt_UnknownID(t *testing.T) {
	db := newTestDB(t)
	repo := NewSQLiteOTPRepo(db.Conn)

	_, err := repo.ConsumeAttempt(t.Context(), "does-not-exist")
	assert.ErrorIs(t, err, pkg.ErrNotFound)
}

func TestOTPRepo_MarkVerified(t *testing.T) {
	db := newTestDB(t)
	repo := NewSQLiteOTPRepo(db.Conn)
	ctx := t.Context()

	otp := newOTP("+212600000005", models.OTPPurposeLogin, 10*time.Minute)
	require.NoError(t, repo.Create(ctx, otp))
	require.NoError(t, repo.MarkVerified(ctx, otp.ID))

	// verified kod artık pending lookup'ında görünmez
	_, err := repo.GetLatestPending(ctx, "+212600000005", models.OTPPurposeLogin)
	assert.ErrorIs(t, err, pkg.ErrNotFound)

	// İkinci kez verified yapılamaz — kod tek kullanımlıktır
	assert.ErrorIs(t, repo.MarkVerified(ctx, otp.ID), pkg.ErrNotFound)
}

func TestOTPRepo_SupersedePending(t *testing.T) {
	db := newTestDB(t)
	repo := NewSQLiteOTPRepo(db.Conn)
	ctx := t.Context()

	old := newOTP("+212600000006", models.OTPPurposeLogin, 10*time.Minute)
	require.NoError(t, repo.Create(ctx, old))

	require.NoError(t, repo.SupersedePending(ctx, "+212600000006", models.OTPPurposeLogin))

	newer := newOTP("+212600000006", models.OTPPurposeLogin, 10*time.Minute)
	newer.Code = "654321"
	require.NoError(t, repo.Create(ctx, newer))

	// Sadece yeni kod pending'dir — eski kod artık doğrulanamaz
	got, err := repo.GetLatestPending(ctx, "+212600000006", models.OTPPurposeLogin)
	require.NoError(t, err)
	assert.Equal(t, newer.ID, got.ID)
	assert.Equal(t, "654321", got.Code)
}

func TestOTPRepo_DeleteExpired(t *testing.T) {
	db := newTestDB(t)
	repo := NewSQLiteOTPRepo(db.Conn)
	ctx := t.Context()

	require.NoError(t, repo.Create(ctx, newOTP("+212600000007", models.OTPPurposeLogin, -time.Minute)))
	require.NoError(t, repo.Create(ctx, newOTP("+212600000008", models.OTPPurposeLogin, 10*time.Minute)))

	deleted, err := repo.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	// Geçerli kod silinmemiş olmalı
	_, err = repo.GetLatestPending(ctx, "+212600000008", models.OTPPurposeLogin)
	assert.NoError(t, err)
}
