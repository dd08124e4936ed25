// Package config, uygulamanın tüm konfigürasyonunu merkezi olarak yönetir.
// Environment variable'lardan okur, .env dosyasını da destekler.
//
// Config struct'ı tüm ayarları tek bir yerde toplar, böylece
// her yerde ayrı ayrı os.Getenv() çağırmak yerine tek bir Config nesnesi taşırız.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config, uygulamanın tüm konfigürasyon değerlerini taşır.
// Her alt bölüm ayrı bir struct — Single Responsibility: her struct tek bir concern'ü temsil eder.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Token    TokenConfig
	OTP      OTPConfig
	Session  SessionConfig
	Notify   NotifyConfig
}

// ServerConfig, HTTP server ayarları.
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig, SQLite database ayarları.
type DatabaseConfig struct {
	Path string // SQLite dosya yolu (ör: ./data/neon.db)
}

// TokenConfig, access token (neon_ ailesi) ayarları.
type TokenConfig struct {
	Secret        string // HMAC imzalama anahtarı — GİZLİ TUTULMALI
	ExpirySeconds int    // Access token ömrü (varsayılan: 3600 = 1 saat)
	RefreshMargin int    // Proaktif yenileme eşiği, saniye (varsayılan: 300 = 5 dk)
}

// OTPConfig, tek kullanımlık kod ayarları.
//
// Kaynak sistemde bunlar gömülü sabitlerdi (10 dk, 6 hane); burada bilinçli
// olarak konfigürasyona çıkarıldı, varsayılanlar aynı bırakıldı.
// Kod uzunluğu (6 hane) sabit kalır — SMS/WhatsApp şablonları buna göre.
type OTPConfig struct {
	ExpiryMinutes int // Kodun geçerlilik süresi (varsayılan: 10)
	MaxAttempts   int // Kod başına izin verilen doğrulama denemesi (varsayılan: 5)
}

// SessionConfig, session ömürleri.
type SessionConfig struct {
	AuthenticatedExpiryDays int // authenticated session ömrü (varsayılan: 30 gün)
	PendingExpiryMinutes    int // pending_registration session ömrü (varsayılan: 60 dk)
	CleanupIntervalMinutes  int // Süresi dolan OTP/session satırlarının süpürülme aralığı
}

// NotifyConfig, OTP teslimat kanalı ayarları.
// ResendAPIKey boşsa email kanalı devre dışı kalır, dev log sender kullanılır.
type NotifyConfig struct {
	ResendAPIKey string
	FromEmail    string // Gönderici adresi (ör: otp@neonship.ma)
}

// Load, environment variable'lardan Config oluşturur.
// .env dosyası varsa önce onu yükler (development kolaylığı için).
func Load() (*Config, error) {
	// .env dosyasını yükle — dosya yoksa hata vermez, sessizce devam eder.
	// Production'da bu dosya olmaz, gerçek env variable'lar kullanılır.
	_ = godotenv.Load()

	port, err := strconv.Atoi(getEnv("SERVER_PORT", "9090"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	tokenExpiry, err := strconv.Atoi(getEnv("TOKEN_EXPIRY_SECONDS", "3600"))
	if err != nil {
		return nil, fmt.Errorf("invalid TOKEN_EXPIRY_SECONDS: %w", err)
	}

	refreshMargin, err := strconv.Atoi(getEnv("TOKEN_REFRESH_MARGIN_SECONDS", "300"))
	if err != nil {
		return nil, fmt.Errorf("invalid TOKEN_REFRESH_MARGIN_SECONDS: %w", err)
	}

	otpExpiry, err := strconv.Atoi(getEnv("OTP_EXPIRY_MINUTES", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid OTP_EXPIRY_MINUTES: %w", err)
	}

	otpAttempts, err := strconv.Atoi(getEnv("OTP_MAX_ATTEMPTS", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid OTP_MAX_ATTEMPTS: %w", err)
	}

	authExpiry, err := strconv.Atoi(getEnv("SESSION_AUTH_EXPIRY_DAYS", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_AUTH_EXPIRY_DAYS: %w", err)
	}

	pendingExpiry, err := strconv.Atoi(getEnv("SESSION_PENDING_EXPIRY_MINUTES", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_PENDING_EXPIRY_MINUTES: %w", err)
	}

	cleanupInterval, err := strconv.Atoi(getEnv("CLEANUP_INTERVAL_MINUTES", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid CLEANUP_INTERVAL_MINUTES: %w", err)
	}

	tokenSecret := getEnv("TOKEN_SECRET", "")
	if tokenSecret == "" {
		return nil, fmt.Errorf("TOKEN_SECRET environment variable is required")
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: port,
		},
		Database: DatabaseConfig{
			Path: getEnv("DATABASE_PATH", "./data/neon.db"),
		},
		Token: TokenConfig{
			Secret:        tokenSecret,
			ExpirySeconds: tokenExpiry,
			RefreshMargin: refreshMargin,
		},
		OTP: OTPConfig{
			ExpiryMinutes: otpExpiry,
			MaxAttempts:   otpAttempts,
		},
		Session: SessionConfig{
			AuthenticatedExpiryDays: authExpiry,
			PendingExpiryMinutes:    pendingExpiry,
			CleanupIntervalMinutes:  cleanupInterval,
		},
		Notify: NotifyConfig{
			ResendAPIKey: getEnv("RESEND_API_KEY", ""),
			FromEmail:    getEnv("RESEND_FROM", ""),
		},
	}

	return cfg, nil
}

// Addr, HTTP server'ın dinleyeceği adresi döner (ör: "0.0.0.0:9090").
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// getEnv, environment variable'ı okur, yoksa fallback değeri döner.
func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}
