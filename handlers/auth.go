// Package handlers, HTTP request/response işlemlerini yönetir.
//
// Handler'ın görevi çok basit ve "ince" (thin) olmalı:
// 1. Request body'yi parse et (JSON → struct)
// 2. Service katmanını çağır
// 3. Sonucu HTTP response olarak döndür
//
// Handler ASLA iş mantığı (business logic) içermez.
// Handler ASLA doğrudan DB'ye erişmez.
// Tüm akıl service'de, handler sadece köprü.
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/neonship/neon-server/models"
	"github.com/neonship/neon-server/pkg"
	"github.com/neonship/neon-server/pkg/ratelimit"
	"github.com/neonship/neon-server/services"
)

// AuthHandler, auth endpoint'lerini yöneten struct.
// Service interface'i ve rate limiter constructor'dan alınır (DI).
type AuthHandler struct {
	authService services.AuthService
	otpLimiter  *ratelimit.OTPRateLimiter
}

// NewAuthHandler, constructor.
// otpLimiter: OTP istekleri için spam koruması. nil ise rate limiting devre dışı kalır.
func NewAuthHandler(authService services.AuthService, otpLimiter *ratelimit.OTPRateLimiter) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		otpLimiter:  otpLimiter,
	}
}

// RequestOTP godoc
// POST /api/auth/otp/request
// Body: { "phone_number": "+212600000000", "purpose": "login" }
//
// Rate limiting: hem telefon hem IP bazlı pencere.
// - Aynı telefona kısa aralıkla kod yağdırmak SMS/WhatsApp maliyeti ve
//   spam demektir; aynı IP'den farklı telefonlara istek yağdırmak da
//   telefon numarası taramasıdır. İkisi birden sınırlanır.
// - Limit aşıldığında 429 Too Many Requests + Retry-After header döner.
func (h *AuthHandler) RequestOTP(w http.ResponseWriter, r *http.Request) {
	var req models.RequestOTPRequest

	// json.NewDecoder: Request body'yi Go struct'ına parse eder.
	// r.Body bir io.Reader'dır — stream olarak okunur, hepsini belleğe almaz.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ip := ratelimit.ExtractIP(r)
	if h.otpLimiter != nil && !h.otpLimiter.Allow(req.PhoneNumber, ip) {
		retryAfter := h.otpLimiter.RetryAfterSeconds(req.PhoneNumber, ip)
		w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
		pkg.ErrorWithMessage(w, http.StatusTooManyRequests,
			fmt.Sprintf("too many verification code requests, please try again in %s",
				ratelimit.FormatRetryMessage(retryAfter)))
		return
	}

	if err := h.authService.RequestOTP(r.Context(), &req); err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]string{"message": "verification code sent"})
}

// VerifyOTP godoc
// POST /api/auth/otp/verify
// Body: { "phone_number": "...", "code": "123456", "purpose": "login" }
//
// İki olası sonuç:
// - Kayıtlı telefon: is_new_user=false + access/refresh token + user
// - Yeni telefon: is_new_user=true + session_id (kayıt ekranına yönlendir)
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyOTPRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.authService.VerifyOTP(r.Context(), &req, r.UserAgent(), ratelimit.ExtractIP(r))
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, result)
}

// Register godoc
// POST /api/auth/register
// Body: { "session_id": "...", "name": "...", "email": "...", ... }
//
// OTP doğrulamasından dönen pending session ile kayıt tamamlanır.
// Telefon numarası body'den DEĞİL session'dan alınır.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.CompleteRegistrationRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tokens, err := h.authService.CompleteRegistration(r.Context(), &req, r.UserAgent(), ratelimit.ExtractIP(r))
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusCreated, tokens)
}

// Refresh godoc
// POST /api/auth/refresh
// Body: { "refresh_token": "..." }
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.RefreshToken == "" {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "refresh_token is required")
		return
	}

	result, err := h.authService.RefreshSession(r.Context(), req.RefreshToken)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, result)
}

// Logout godoc
// POST /api/auth/logout
// Body: { "session_id": "..." }
//
// Idempotent: session zaten yoksa da success döner — client her durumda
// local credential'larını temizler.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.authService.Logout(r.Context(), req.SessionID); err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// LogoutAll godoc
// POST /api/auth/logout-all
// Auth middleware gerektirir — kullanıcının TÜM oturumları kapatılır.
// Çalınan refresh token senaryosunda kullanıcının tek kurtuluşu budur.
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	if err := h.authService.LogoutAll(r.Context(), user.ID); err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]string{"message": "all sessions logged out"})
}

// UserContextKey, context'te kullanıcı bilgisi taşımak için kullanılan key tipi.
//
// Go'da context.Value() any tip kabul eder — string key kullanmak çakışmaya neden olabilir.
// Özel bir tip tanımlayarak namespace collision'ı önleriz.
type contextKey string

const UserContextKey contextKey = "user"

// SessionContextKey, context'te aktif session'ı taşıyan key.
// Auth middleware tarafından eklenir; stats handler'ı gibi session
// bilgisine ihtiyaç duyan yerler buradan okur.
const SessionContextKey contextKey = "session"
