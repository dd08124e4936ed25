// Package services, business logic katmanını barındırır.
//
// Service Layer Pattern:
// Handler (HTTP) ile Repository (DB) arasında oturan katmandır.
// Tüm iş kuralları burada yaşar:
//   - OTP üretimi ve doğrulama kuralları
//   - Session ömürleri ve tip geçişleri
//   - Token üretimi
//
// Service ASLA http.Request/Response bilmez — sadece domain modelleri alır/verir.
// Service ASLA doğrudan SQL çalıştırmaz — Repository interface'i kullanır.
package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/neonship/neon-server/database"
	"github.com/neonship/neon-server/models"
	"github.com/neonship/neon-server/pkg"
	"github.com/neonship/neon-server/pkg/notify"
	"github.com/neonship/neon-server/pkg/token"
	"github.com/neonship/neon-server/repository"
)

// AuthService interface'i — dışarıya açık API.
// Handler ve middleware bu interface'e bağımlıdır, concrete struct'a değil.
//
// Hata sözleşmesi: tüm "giriş yapılamadı" durumları pkg sentinel'leri olarak
// döner (ErrOTPIncorrect, ErrSessionNotFound, ErrRefreshTokenInvalid...).
// Hiçbir doğrulama hatası panic/exception olarak katman sınırını geçmez.
type AuthService interface {
	// RequestOTP, (telefon, amaç) için yeni kod üretir ve teslimat kanalına verir.
	// Önceki pending kodlar superseded olur.
	RequestOTP(ctx context.Context, req *models.RequestOTPRequest) error
	// VerifyOTP, kodu doğrular ve sonucuna göre session üretir:
	// kayıtlı telefon → authenticated session + token çifti,
	// bilinmeyen telefon → pending_registration session (access token YOK).
	VerifyOTP(ctx context.Context, req *models.VerifyOTPRequest, userAgent, ip string) (*VerifyResult, error)
	// CompleteRegistration, pending session üzerinden kullanıcıyı oluşturur ve
	// taze bir authenticated session döner. Telefonun diğer pending
	// session'ları zorla düşürülür.
	CompleteRegistration(ctx context.Context, req *models.CompleteRegistrationRequest, userAgent, ip string) (*AuthTokens, error)
	// RefreshSession, refresh token ile access token'ı yeniler.
	// Session satırı yerinde güncellenir — id değişmez.
	RefreshSession(ctx context.Context, refreshToken string) (*RefreshResult, error)
	// Logout, session'ı siler. Olmayan session için de nil döner (idempotent).
	Logout(ctx context.Context, sessionID string) error
	// LogoutAll, kullanıcının tüm session'larını siler.
	LogoutAll(ctx context.Context, userID string) error
	// GetSession, süresi geçmemiş session'ı döner ve last_accessed'i ilerletir.
	GetSession(ctx context.Context, sessionID string) (*models.Session, error)
	// ValidateAccessToken, neon_ access token'ını doğrular (middleware kullanır).
	ValidateAccessToken(tokenString string) (*models.TokenClaims, error)
	// AccountStats, dashboard için hesap istatistiklerini döner.
	AccountStats(ctx context.Context, userID string) (*AccountStats, error)
}

// AuthTokens, tam (authenticated) oturum açılışında dönen set.
// RefreshToken plaintext olarak SADECE burada görünür — DB'de hash'i yaşar.
type AuthTokens struct {
	SessionID    string      `json:"session_id"`
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	User         models.User `json:"user"`
}

// VerifyResult, OTP doğrulaması sonucu.
// IsNewUser=true ise AccessToken boştur ve User nil'dir — client kayıt
// ekranına yönlenir, SessionID kayıt tamamlamada kullanılır.
type VerifyResult struct {
	IsNewUser    bool         `json:"is_new_user"`
	SessionID    string       `json:"session_id"`
	AccessToken  string       `json:"access_token,omitempty"`
	RefreshToken string       `json:"refresh_token,omitempty"`
	User         *models.User `json:"user,omitempty"`
}

// RefreshResult, refresh akışının sonucu.
type RefreshResult struct {
	AccessToken string `json:"access_token"`
	SessionID   string `json:"session_id"`
}

// AccountStats, hesap istatistikleri (client dashboard prefetch'i için).
type AccountStats struct {
	ActiveSessions int       `json:"active_sessions"`
	MemberSince    time.Time `json:"member_since"`
}

// authService, AuthService interface'inin implementasyonu.
// db, kayıt akışındaki çok adımlı transaction için tutulur (bkz. WithTx).
type authService struct {
	db          *sql.DB
	userRepo    repository.UserRepository
	otpRepo     repository.OTPRepository
	sessionRepo repository.SessionRepository
	codec       *token.Codec
	sender      notify.Sender

	otpExpiry      time.Duration
	otpExpiryMins  int
	otpMaxAttempts int
	pendingExpiry  time.Duration
	authExpiry     time.Duration
}

// NewAuthService, constructor.
//
// otpExpiryMinutes/otpMaxAttempts/pendingExpiryMinutes/authExpiryDays
// config'ten gelir (kaynak sistemde gömülü sabitlerdi: 10dk / 5 / 60dk / 30gün).
func NewAuthService(
	db *sql.DB,
	userRepo repository.UserRepository,
	otpRepo repository.OTPRepository,
	sessionRepo repository.SessionRepository,
	codec *token.Codec,
	sender notify.Sender,
	otpExpiryMinutes int,
	otpMaxAttempts int,
	pendingExpiryMinutes int,
	authExpiryDays int,
) AuthService {
	return &authService{
		db:             db,
		userRepo:       userRepo,
		otpRepo:        otpRepo,
		sessionRepo:    sessionRepo,
		codec:          codec,
		sender:         sender,
		otpExpiry:      time.Duration(otpExpiryMinutes) * time.Minute,
		otpExpiryMins:  otpExpiryMinutes,
		otpMaxAttempts: otpMaxAttempts,
		pendingExpiry:  time.Duration(pendingExpiryMinutes) * time.Minute,
		authExpiry:     time.Duration(authExpiryDays) * 24 * time.Hour,
	}
}

// RequestOTP, yeni doğrulama kodu üretir.
//
// Invariant: (phone, purpose) başına en fazla bir pending kod — önce
// eskiler superseded yapılır, sonra yenisi eklenir.
func (s *authService) RequestOTP(ctx context.Context, req *models.RequestOTPRequest) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}
	purpose := models.OTPPurpose(req.Purpose)

	if err := s.otpRepo.SupersedePending(ctx, req.PhoneNumber, purpose); err != nil {
		return err
	}

	code, err := generateCode()
	if err != nil {
		return fmt.Errorf("failed to generate otp code: %w", err)
	}

	otp := &models.OTPCode{
		PhoneNumber: req.PhoneNumber,
		Code:        code,
		Purpose:     purpose,
		MaxAttempts: s.otpMaxAttempts,
		ExpiresAt:   time.Now().UTC().Add(s.otpExpiry),
	}

	if err := s.otpRepo.Create(ctx, otp); err != nil {
		return err
	}

	// Teslimat: kullanıcının kayıtlı email'i varsa kanala iletilir.
	// Kayıtlı olmayan telefonlar için email boştur — sender bu durumda kodu
	// log'a düşer, hata dönmez (yeni kullanıcı kayıt kodu alabilmelidir).
	// Production'da WhatsApp adapter'ı devreye girer.
	email := ""
	if user, err := s.userRepo.GetByPhone(ctx, req.PhoneNumber); err == nil && user.Email != nil {
		email = *user.Email
	}

	if err := s.sender.SendOTP(ctx, req.PhoneNumber, email, code, s.otpExpiryMins); err != nil {
		return fmt.Errorf("failed to deliver otp code: %w", err)
	}

	return nil
}

// VerifyOTP, kodu doğrular ve oturum başlatır.
//
// Deneme sayacı kod KARŞILAŞTIRILMADAN ÖNCE harcanır — limit dolduktan
// sonra gelen doğru kod bile reddedilir. Sayaç artırımı repository'de tek
// atomik UPDATE'tir.
func (s *authService) VerifyOTP(ctx context.Context, req *models.VerifyOTPRequest, userAgent, ip string) (*VerifyResult, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}
	purpose := models.OTPPurpose(req.Purpose)

	otp, err := s.otpRepo.GetLatestPending(ctx, req.PhoneNumber, purpose)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return nil, pkg.ErrOTPInvalidOrExpired
		}
		return nil, err
	}

	attempts, err := s.otpRepo.ConsumeAttempt(ctx, otp.ID)
	if err != nil {
		return nil, err
	}
	if attempts > otp.MaxAttempts {
		return nil, pkg.ErrOTPMaxAttempts
	}

	if otp.Code != req.Code {
		return nil, pkg.ErrOTPIncorrect // deneme yine de harcandı
	}

	if err := s.otpRepo.MarkVerified(ctx, otp.ID); err != nil {
		return nil, err
	}

	// Telefon kayıtlı mı? Kayıtlıysa doğrudan authenticated oturum,
	// değilse kayıt tamamlanana kadar pending_registration oturumu.
	user, err := s.userRepo.GetByPhone(ctx, req.PhoneNumber)
	if err != nil && !errors.Is(err, pkg.ErrNotFound) {
		return nil, err
	}

	if user == nil {
		session, _, err := s.createSession(ctx, s.sessionRepo, req.PhoneNumber, models.SessionTypePending, nil, userAgent, ip)
		if err != nil {
			return nil, err
		}
		return &VerifyResult{
			IsNewUser: true,
			SessionID: session.ID,
		}, nil
	}

	session, refreshToken, err := s.createSession(ctx, s.sessionRepo, req.PhoneNumber, models.SessionTypeAuthenticated, user, userAgent, ip)
	if err != nil {
		return nil, err
	}

	return &VerifyResult{
		IsNewUser:    false,
		SessionID:    session.ID,
		AccessToken:  session.AccessToken,
		RefreshToken: refreshToken,
		User:         user,
	}, nil
}

// CompleteRegistration, kayıt akışının son adımı.
func (s *authService) CompleteRegistration(ctx context.Context, req *models.CompleteRegistrationRequest, userAgent, ip string) (*AuthTokens, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	session, err := s.sessionRepo.GetByID(ctx, req.SessionID)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return nil, pkg.ErrSessionNotFound
		}
		return nil, err
	}
	if session.Type != models.SessionTypePending {
		return nil, fmt.Errorf("%w: session is not pending registration", pkg.ErrBadRequest)
	}

	// Telefon session'dan alınır, istekten DEĞİL — kullanıcı OTP ile
	// doğruladığı numaradan başka bir numarayla kayıt olamaz.
	user := &models.User{
		ID:            models.NewUserID(),
		PhoneNumber:   session.PhoneNumber,
		Name:          req.Name,
		Email:         req.Email,
		AddressLine:   req.AddressLine,
		City:          req.City,
		Country:       req.Country,
		PhoneVerified: true,
	}

	// ─── Atomik transaction: User + Session + pending temizliği ───
	//
	// Kullanıcı yaratılıp session yaratılamazsa ortada "giriş yapamayan
	// kayıtlı kullanıcı" kalır. Tx-bound repo'lar aynı transaction
	// üzerinden çalışır; herhangi bir adım hata verirse ROLLBACK.
	var authSession *models.Session
	var refreshToken string

	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		txUserRepo := repository.NewSQLiteUserRepo(tx)
		txSessionRepo := repository.NewSQLiteSessionRepo(tx)

		if err := txUserRepo.Create(ctx, user); err != nil {
			return err // ErrAlreadyExists olabilir
		}

		authSession, refreshToken, err = s.createSession(ctx, txSessionRepo, user.PhoneNumber, models.SessionTypeAuthenticated, user, userAgent, ip)
		if err != nil {
			return err
		}

		// Yarım kalmış kayıt oturumları birikmesin: telefonun TÜM pending
		// session'ları (kullanılan dahil) zorla düşürülür.
		return txSessionRepo.ExpirePendingByPhone(ctx, user.PhoneNumber, "")
	})
	if err != nil {
		return nil, err
	}

	return &AuthTokens{
		SessionID:    authSession.ID,
		AccessToken:  authSession.AccessToken,
		RefreshToken: refreshToken,
		User:         *user,
	}, nil
}

// RefreshSession, access token'ı yeniler.
// Her lookup hatası ErrRefreshTokenInvalid'e düşer — "not authenticated"
// dışında bir sinyal sızdırılmaz.
func (s *authService) RefreshSession(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	if refreshToken == "" {
		return nil, pkg.ErrRefreshTokenInvalid
	}

	session, err := s.sessionRepo.GetAuthenticatedByRefreshHash(ctx, hashToken(refreshToken))
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return nil, pkg.ErrRefreshTokenInvalid
		}
		return nil, err
	}
	if session.UserID == nil {
		return nil, pkg.ErrRefreshTokenInvalid
	}

	user, err := s.userRepo.GetByID(ctx, *session.UserID)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return nil, pkg.ErrRefreshTokenInvalid
		}
		return nil, err
	}

	accessToken, err := s.codec.Generate(user.ID, user.PhoneNumber)
	if err != nil {
		return nil, err
	}

	if err := s.sessionRepo.UpdateAccessToken(ctx, session.ID, accessToken); err != nil {
		return nil, err
	}

	return &RefreshResult{
		AccessToken: accessToken,
		SessionID:   session.ID,
	}, nil
}

// Logout, session'ı siler. Session zaten yoksa sessizce başarılı sayılır.
func (s *authService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return s.sessionRepo.DeleteByID(ctx, sessionID)
}

// LogoutAll, kullanıcının tüm oturumlarını kapatır.
func (s *authService) LogoutAll(ctx context.Context, userID string) error {
	return s.sessionRepo.DeleteByUserID(ctx, userID)
}

// GetSession, session'ı döner ve last_accessed'i ilerletir.
func (s *authService) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return nil, pkg.ErrSessionNotFound
		}
		return nil, err
	}

	// Touch hatası oturumu düşürmez — sadece loglanır.
	if err := s.sessionRepo.TouchLastAccessed(ctx, session.ID); err != nil {
		log.Printf("[auth] failed to touch session %s: %v", session.ID, err)
	}

	return session, nil
}

// ValidateAccessToken, neon_ token'ı doğrular (bkz. pkg/token).
func (s *authService) ValidateAccessToken(tokenString string) (*models.TokenClaims, error) {
	return s.codec.Validate(tokenString)
}

// AccountStats, hesap istatistiklerini toplar.
func (s *authService) AccountStats(ctx context.Context, userID string) (*AccountStats, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	count, err := s.sessionRepo.CountActiveByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &AccountStats{
		ActiveSessions: count,
		MemberSince:    user.CreatedAt,
	}, nil
}

// ─── Private Helpers ───

// createSession, session satırını ve token'larını üretir.
//
// Dönen ikinci değer plaintext refresh token'dır — DB'ye hash'i yazılır,
// plaintext bu fonksiyondan çıktıktan sonra bir daha üretilemez.
// pending_registration session'da access token ÜRETİLMEZ (kullanıcı henüz yok).
//
// sessionRepo parametre olarak alınır: normal akışta s.sessionRepo,
// kayıt akışında tx-bound repo geçilir.
func (s *authService) createSession(
	ctx context.Context,
	sessionRepo repository.SessionRepository,
	phone string,
	sessionType models.SessionType,
	user *models.User,
	userAgent, ip string,
) (*models.Session, string, error) {
	id, err := randomHex(32)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate session id: %w", err)
	}

	refreshToken, err := randomHex(32)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate refresh token: %w", err)
	}

	session := &models.Session{
		ID:               id,
		PhoneNumber:      phone,
		Type:             sessionType,
		RefreshTokenHash: hashToken(refreshToken),
	}

	if sessionType == models.SessionTypeAuthenticated {
		if user == nil {
			return nil, "", fmt.Errorf("%w: authenticated session requires a user", pkg.ErrInternal)
		}
		session.UserID = &user.ID
		session.ExpiresAt = time.Now().UTC().Add(s.authExpiry)

		accessToken, err := s.codec.Generate(user.ID, user.PhoneNumber)
		if err != nil {
			return nil, "", err
		}
		session.AccessToken = accessToken
	} else {
		session.ExpiresAt = time.Now().UTC().Add(s.pendingExpiry)
	}

	if userAgent != "" {
		session.UserAgent = &userAgent
	}
	if ip != "" {
		session.IPAddress = &ip
	}

	if err := sessionRepo.Create(ctx, session); err != nil {
		return nil, "", err
	}

	return session, refreshToken, nil
}

// generateCode, uniform dağılımlı 6 haneli kod üretir (100000-999999).
// crypto/rand kullanılır — math/rand tahmin edilebilirdir.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// randomHex, n byte'lık random değerin hex halini döner (2n karakter).
func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// hashToken, refresh token'ın SHA256 hex hash'ini döner.
// Plaintext token DB'de ASLA saklanmaz — DB sızsa bile token kullanılamaz.
func hashToken(t string) string {
	sum := sha256.Sum256([]byte(t))
	return hex.EncodeToString(sum[:])
}
