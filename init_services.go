// Package main — Service katmanı başlatma.
//
// initServices, service'leri, rate limiter'ı ve cleanup janitor'ı oluşturur.
// Her service, ihtiyaç duyduğu repository interface'lerini ve diğer
// dependency'leri constructor injection ile alır.
package main

import (
	"database/sql"
	"log"
	"time"

	"github.com/neonship/neon-server/config"
	"github.com/neonship/neon-server/pkg/notify"
	"github.com/neonship/neon-server/pkg/ratelimit"
	"github.com/neonship/neon-server/pkg/token"
	"github.com/neonship/neon-server/services"
)

// Services, tüm service instance'larını tutan container struct.
type Services struct {
	Auth services.AuthService
}

// RateLimiters, tüm rate limiter instance'larını tutan container.
type RateLimiters struct {
	OTP *ratelimit.OTPRateLimiter
}

// initServices, service'leri, rate limiter'ları ve janitor'ı oluşturur.
func initServices(db *sql.DB, repos *Repositories, cfg *config.Config) (*Services, *RateLimiters, *services.CleanupJanitor) {
	// ─── OTP teslimat kanalı (opsiyonel) ───
	// API key yoksa kodlar log'a yazılır — development için yeterli.
	var sender notify.Sender
	if cfg.Notify.ResendAPIKey != "" && cfg.Notify.FromEmail != "" {
		sender = notify.NewResendSender(cfg.Notify.ResendAPIKey, cfg.Notify.FromEmail)
		log.Printf("[main] otp delivery enabled (from=%s)", cfg.Notify.FromEmail)
	} else {
		sender = notify.NewLogSender()
		log.Println("[main] otp delivery disabled, codes will be logged (RESEND_API_KEY or RESEND_FROM not set)")
	}

	codec := token.NewCodec(cfg.Token.Secret, cfg.Token.ExpirySeconds)

	authService := services.NewAuthService(
		db, repos.User, repos.OTP, repos.Session, codec, sender,
		cfg.OTP.ExpiryMinutes, cfg.OTP.MaxAttempts,
		cfg.Session.PendingExpiryMinutes, cfg.Session.AuthenticatedExpiryDays,
	)

	// ─── Rate Limiter ───
	// 3 istek / 10 dakika — OTP teslimatı maliyetlidir (WhatsApp/SMS),
	// pencere login rate limitlerinden bilinçli olarak geniş tutuldu.
	otpLimiter := ratelimit.NewOTPRateLimiter(3, 10*time.Minute)

	// ─── Cleanup Janitor ───
	janitor := services.NewCleanupJanitor(repos.OTP, repos.Session, cfg.Session.CleanupIntervalMinutes)

	return &Services{Auth: authService},
		&RateLimiters{OTP: otpLimiter},
		janitor
}
