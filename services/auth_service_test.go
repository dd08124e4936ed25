package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neonship/neon-server/database"
	"github.com/neonship/neon-server/models"
	"github.com/neonship/neon-server/pkg"
	"github.com/neonship/neon-server/pkg/notify"
	"github.com/neonship/neon-server/pkg/token"
	"github.com/neonship/neon-server/repository"
)

// recordingSender, son gönderilen kodu yakalayan test sender'ı.
// Gerçek teslimat kanalı yerine geçer — testler kodu buradan okur.
type recordingSender struct {
	lastPhone string
	lastCode  string
	sendCount int
}

func (s *recordingSender) SendOTP(_ context.Context, phone, _, code string, _ int) error {
	s.lastPhone = phone
	s.lastCode = code
	s.sendCount++
	return nil
}

type authTestEnv struct {
	svc      AuthService
	sender   *recordingSender
	users    repository.UserRepository
	sessions repository.SessionRepository
	otps     repository.OTPRepository
	codec    *token.Codec
}

func newAuthTestEnv(t *testing.T) *authTestEnv {
	t.Helper()

	db, err := database.New(":memory:", database.Migrations())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	env := &authTestEnv{
		sender:   &recordingSender{},
		users:    repository.NewSQLiteUserRepo(db.Conn),
		sessions: repository.NewSQLiteSessionRepo(db.Conn),
		otps:     repository.NewSQLiteOTPRepo(db.Conn),
		codec:    token.NewCodec("test-secret", 3600),
	}
	env.svc = NewAuthService(
		db.Conn, env.users, env.otps, env.sessions, env.codec, env.sender,
		10, // otp expiry minutes
		5,  // otp max attempts
		60, // pending session expiry minutes
		30, // authenticated session expiry days
	)
	return env
}

// requestCode, OTP ister ve teslim edilen kodu döner.
func (env *authTestEnv) requestCode(t *testing.T, phone, purpose string) string {
	t.Helper()
	err := env.svc.RequestOTP(t.Context(), &models.RequestOTPRequest{
		PhoneNumber: phone, Purpose: purpose,
	})
	require.NoError(t, err)
	require.NotEmpty(t, env.sender.lastCode)
	return env.sender.lastCode
}

// registerUser, tam kayıt akışını koşar ve token set'ini döner.
func (env *authTestEnv) registerUser(t *testing.T, phone, name string) *AuthTokens {
	t.Helper()
	code := env.requestCode(t, phone, "register")

	result, err := env.svc.VerifyOTP(t.Context(), &models.VerifyOTPRequest{
		PhoneNumber: phone, Code: code, Purpose: "register",
	}, "test-agent", "127.0.0.1")
	require.NoError(t, err)
	require.True(t, result.IsNewUser)

	tokens, err := env.svc.CompleteRegistration(t.Context(), &models.CompleteRegistrationRequest{
		SessionID: result.SessionID, Name: name,
	}, "test-agent", "127.0.0.1")
	require.NoError(t, err)
	return tokens
}

func TestRequestOTP_InvalidInput(t *testing.T) {
	env := newAuthTestEnv(t)

	err := env.svc.RequestOTP(t.Context(), &models.RequestOTPRequest{
		PhoneNumber: "0600000000", Purpose: "login", // E.164 değil
	})
	assert.ErrorIs(t, err, pkg.ErrBadRequest)

	err = env.svc.RequestOTP(t.Context(), &models.RequestOTPRequest{
		PhoneNumber: "+212600000000", Purpose: "reset", // bilinmeyen purpose
	})
	assert.ErrorIs(t, err, pkg.ErrBadRequest)

	assert.Zero(t, env.sender.sendCount, "invalid requests must not reach the delivery channel")
}

func TestRequestOTP_NewPhoneWithEmailSender(t *testing.T) {
	// Üretim kablolaması: Resend sender aktif. Yeni telefonun user satırı da
	// email'i de yoktur — teslimat log'a düşmeli, istek BAŞARISIZ OLMAMALI.
	// Aksi halde hiçbir yeni kullanıcı kayıt kodu alamaz.
	db, err := database.New(":memory:", database.Migrations())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	users := repository.NewSQLiteUserRepo(db.Conn)
	otps := repository.NewSQLiteOTPRepo(db.Conn)
	sessions := repository.NewSQLiteSessionRepo(db.Conn)

	svc := NewAuthService(
		db.Conn, users, otps, sessions,
		token.NewCodec("test-secret", 3600),
		notify.NewResendSender("re_test_key", "otp@neonship.ma"),
		10, 5, 60, 30,
	)

	err = svc.RequestOTP(t.Context(), &models.RequestOTPRequest{
		PhoneNumber: "+212600000999", Purpose: "register",
	})
	require.NoError(t, err)

	// Kod üretilmiş ve pending olarak kaydedilmiş olmalı
	otp, err := otps.GetLatestPending(t.Context(), "+212600000999", models.OTPPurposeRegister)
	require.NoError(t, err)
	assert.Len(t, otp.Code, 6)
}

func TestRequestOTP_GeneratesSixDigitCode(t *testing.T) {
	env := newAuthTestEnv(t)

	code := env.requestCode(t, "+212600000100", "login")
	assert.Len(t, code, 6)
	for _, ch := range code {
		assert.True(t, ch >= '0' && ch <= '9', "code must be numeric: %q", code)
	}
	assert.Equal(t, "+212600000100", env.sender.lastPhone)
}

func TestRequestOTP_SupersedesPreviousCode(t *testing.T) {
	env := newAuthTestEnv(t)
	phone := "+212600000101"

	first := env.requestCode(t, phone, "login")
	second := env.requestCode(t, phone, "login")

	// Eski kod artık geçersizdir — henüz süresi geçmemiş olsa bile
	_, err := env.svc.VerifyOTP(t.Context(), &models.VerifyOTPRequest{
		PhoneNumber: phone, Code: first, Purpose: "login",
	}, "", "")
	if first != second {
		assert.ErrorIs(t, err, pkg.ErrOTPIncorrect)
	}

	// Yeni kod çalışır
	result, verr := env.svc.VerifyOTP(t.Context(), &models.VerifyOTPRequest{
		PhoneNumber: phone, Code: second, Purpose: "login",
	}, "", "")
	require.NoError(t, verr)
	assert.True(t, result.IsNewUser)
}

func TestVerifyOTP_NoPendingCode(t *testing.T) {
	env := newAuthTestEnv(t)

	_, err := env.svc.VerifyOTP(t.Context(), &models.VerifyOTPRequest{
		PhoneNumber: "+212600000102", Code: "123456", Purpose: "login",
	}, "", "")
	assert.ErrorIs(t, err, pkg.ErrOTPInvalidOrExpired)
}

func TestVerifyOTP_WrongCodeConsumesAttempt(t *testing.T) {
	env := newAuthTestEnv(t)
	phone := "+212600000103"
	code := env.requestCode(t, phone, "login")

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}

	// 5 yanlış deneme → hepsi ErrOTPIncorrect
	for i := 0; i < 5; i++ {
		_, err := env.svc.VerifyOTP(t.Context(), &models.VerifyOTPRequest{
			PhoneNumber: phone, Code: wrong, Purpose: "login",
		}, "", "")
		assert.ErrorIs(t, err, pkg.ErrOTPIncorrect, "attempt %d", i+1)
	}

	// Limit doldu — DOĞRU kod bile artık reddedilir
	_, err := env.svc.VerifyOTP(t.Context(), &models.VerifyOTPRequest{
		PhoneNumber: phone, Code: code, Purpose: "login",
	}, "", "")
	assert.ErrorIs(t, err, pkg.ErrOTPMaxAttempts)
}

func TestVerifyOTP_CodeIsSingleUse(t *testing.T) {
	env := newAuthTestEnv(t)
	phone := "+212600000104"
	code := env.requestCode(t, phone, "login")

	_, err := env.svc.VerifyOTP(t.Context(), &models.VerifyOTPRequest{
		PhoneNumber: phone, Code: code, Purpose: "login",
	}, "", "")
	require.NoError(t, err)

	// Aynı kod ikinci kez kullanılamaz
	_, err = env.svc.VerifyOTP(t.Context(), &models.VerifyOTPRequest{
		PhoneNumber: phone, Code: code, Purpose: "login",
	}, "", "")
	assert.ErrorIs(t, err, pkg.ErrOTPInvalidOrExpired)
}

func TestVerifyOTP_NewUser_PendingSession(t *testing.T) {
	env := newAuthTestEnv(t)
	phone := "+212600000105"
	code := env.requestCode(t, phone, "register")

	result, err := env.svc.VerifyOTP(t.Context(), &models.VerifyOTPRequest{
		PhoneNumber: phone, Code: code, Purpose: "register",
	}, "agent", "10.0.0.1")
	require.NoError(t, err)

	assert.True(t, result.IsNewUser)
	assert.NotEmpty(t, result.SessionID)
	assert.Empty(t, result.AccessToken, "pending session must not carry an access token")
	assert.Nil(t, result.User)

	session, err := env.svc.GetSession(t.Context(), result.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionTypePending, session.Type)
	assert.Nil(t, session.UserID)
}

func TestVerifyOTP_ExistingUser_AuthenticatedSession(t *testing.T) {
	env := newAuthTestEnv(t)
	phone := "+212600000106"
	env.registerUser(t, phone, "Amina")

	code := env.requestCode(t, phone, "login")
	result, err := env.svc.VerifyOTP(t.Context(), &models.VerifyOTPRequest{
		PhoneNumber: phone, Code: code, Purpose: "login",
	}, "agent", "10.0.0.1")
	require.NoError(t, err)

	assert.False(t, result.IsNewUser)
	assert.True(t, strings.HasPrefix(result.AccessToken, token.Prefix))
	assert.NotEmpty(t, result.RefreshToken)
	require.NotNil(t, result.User)
	assert.Equal(t, phone, result.User.PhoneNumber)

	// Access token gerçekten bu kullanıcı için imzalanmış olmalı
	claims, err := env.codec.Validate(result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, claims.Subject)
	assert.Equal(t, phone, claims.PhoneNumber)
}

func TestCompleteRegistration_FullFlow(t *testing.T) {
	env := newAuthTestEnv(t)
	phone := "+212600000107"

	tokens := env.registerUser(t, phone, "Youssef")

	assert.True(t, strings.HasPrefix(tokens.AccessToken, token.Prefix))
	assert.NotEmpty(t, tokens.RefreshToken)
	assert.Equal(t, phone, tokens.User.PhoneNumber)
	assert.Equal(t, "Youssef", tokens.User.Name)
	assert.True(t, tokens.User.PhoneVerified)
	assert.True(t, strings.HasPrefix(tokens.User.ID, "neon_user_"))

	// Yeni session authenticated'dır
	session, err := env.svc.GetSession(t.Context(), tokens.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionTypeAuthenticated, session.Type)
}

func TestCompleteRegistration_ExpiresPendingSession(t *testing.T) {
	env := newAuthTestEnv(t)
	phone := "+212600000108"
	code := env.requestCode(t, phone, "register")

	result, err := env.svc.VerifyOTP(t.Context(), &models.VerifyOTPRequest{
		PhoneNumber: phone, Code: code, Purpose: "register",
	}, "", "")
	require.NoError(t, err)

	_, err = env.svc.CompleteRegistration(t.Context(), &models.CompleteRegistrationRequest{
		SessionID: result.SessionID, Name: "Fatima",
	}, "", "")
	require.NoError(t, err)

	// Kullanılan pending session düşürülmüştür — ikinci kayıt denemesi yapılamaz
	_, err = env.svc.GetSession(t.Context(), result.SessionID)
	assert.ErrorIs(t, err, pkg.ErrSessionNotFound)
}

func TestCompleteRegistration_InvalidSession(t *testing.T) {
	env := newAuthTestEnv(t)

	_, err := env.svc.CompleteRegistration(t.Context(), &models.CompleteRegistrationRequest{
		SessionID: "unknown-session", Name: "Ghost",
	}, "", "")
	assert.ErrorIs(t, err, pkg.ErrSessionNotFound)
}

func TestCompleteRegistration_RejectsAuthenticatedSession(t *testing.T) {
	env := newAuthTestEnv(t)
	tokens := env.registerUser(t, "+212600000109", "Karim")

	// Authenticated session ile tekrar kayıt olunamaz
	_, err := env.svc.CompleteRegistration(t.Context(), &models.CompleteRegistrationRequest{
		SessionID: tokens.SessionID, Name: "Karim Again",
	}, "", "")
	assert.ErrorIs(t, err, pkg.ErrBadRequest)
}

func TestRefreshSession_RotatesAccessTokenInPlace(t *testing.T) {
	env := newAuthTestEnv(t)
	tokens := env.registerUser(t, "+212600000110", "Salma")

	result, err := env.svc.RefreshSession(t.Context(), tokens.RefreshToken)
	require.NoError(t, err)

	assert.Equal(t, tokens.SessionID, result.SessionID, "refresh must not rotate the session id")
	assert.True(t, strings.HasPrefix(result.AccessToken, token.Prefix))

	claims, err := env.codec.Validate(result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, tokens.User.ID, claims.Subject)
}

func TestRefreshSession_InvalidToken(t *testing.T) {
	env := newAuthTestEnv(t)
	env.registerUser(t, "+212600000111", "Omar")

	for _, tok := range []string{"", "garbage", "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"} {
		_, err := env.svc.RefreshSession(t.Context(), tok)
		assert.ErrorIs(t, err, pkg.ErrRefreshTokenInvalid, "token: %q", tok)
	}
}

func TestRefreshSession_AfterLogout(t *testing.T) {
	env := newAuthTestEnv(t)
	tokens := env.registerUser(t, "+212600000112", "Nadia")

	require.NoError(t, env.svc.Logout(t.Context(), tokens.SessionID))

	// Session silindi — refresh token artık işe yaramaz
	_, err := env.svc.RefreshSession(t.Context(), tokens.RefreshToken)
	assert.ErrorIs(t, err, pkg.ErrRefreshTokenInvalid)
}

func TestLogout_Idempotent(t *testing.T) {
	env := newAuthTestEnv(t)

	assert.NoError(t, env.svc.Logout(t.Context(), "never-existed"))
	assert.NoError(t, env.svc.Logout(t.Context(), ""))
}

func TestLogoutAll(t *testing.T) {
	env := newAuthTestEnv(t)
	phone := "+212600000113"
	tokens := env.registerUser(t, phone, "Rachid")

	// İkinci bir cihazdan login
	code := env.requestCode(t, phone, "login")
	second, err := env.svc.VerifyOTP(t.Context(), &models.VerifyOTPRequest{
		PhoneNumber: phone, Code: code, Purpose: "login",
	}, "", "")
	require.NoError(t, err)

	require.NoError(t, env.svc.LogoutAll(t.Context(), tokens.User.ID))

	for _, id := range []string{tokens.SessionID, second.SessionID} {
		_, err := env.svc.GetSession(t.Context(), id)
		assert.ErrorIs(t, err, pkg.ErrSessionNotFound)
	}
}

func TestAccountStats(t *testing.T) {
	env := newAuthTestEnv(t)
	phone := "+212600000114"
	tokens := env.registerUser(t, phone, "Leila")

	code := env.requestCode(t, phone, "login")
	_, err := env.svc.VerifyOTP(t.Context(), &models.VerifyOTPRequest{
		PhoneNumber: phone, Code: code, Purpose: "login",
	}, "", "")
	require.NoError(t, err)

	stats, err := env.svc.AccountStats(t.Context(), tokens.User.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.ActiveSessions)
	assert.False(t, stats.MemberSince.IsZero())
}
