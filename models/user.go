// Package models, uygulamanın domain modellerini (veri yapıları) tanımlar.
//
// Model nedir?
// Veritabanındaki bir tablonun Go karşılığıdır.
// Aynı zamanda API'den gelen/giden verilerin şeklini de belirler.
//
// `json:"phone_number"` gibi tag'ler, struct field'larının JSON'a
// nasıl serialize/deserialize edileceğini belirler.
package models

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// phoneRegex, E.164 format kontrolü: + ile başlar, 8-15 rakam.
// Numara WhatsApp üzerinden OTP teslimatında da kullanıldığı için
// format baştan sıkı tutulur.
var phoneRegex = regexp.MustCompile(`^\+[1-9][0-9]{7,14}$`)

// emailRegex, basit email format kontrolü.
var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// User, bir müşteriyi temsil eder.
//
// Telefon numarası tekil kimliktir — şifre yoktur, giriş OTP ile yapılır.
// Adres alanları kargo yönlendirme tarafında kullanılır; auth akışı için opsiyoneldir.
type User struct {
	ID            string    `json:"id"` // neon_user_<ts>_<rand>
	PhoneNumber   string    `json:"phone_number"`
	Name          string    `json:"name"`
	Email         *string   `json:"email"` // *string = nullable — Go'da nil olabilir
	AddressLine   *string   `json:"address_line"`
	City          *string   `json:"city"`
	Country       *string   `json:"country"`
	PhoneVerified bool      `json:"phone_verified"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewUserID, neon_user_<unix>_<8 hex byte> formatında yeni bir kullanıcı id'si üretir.
// Timestamp prefix'i id'leri kabaca sıralanabilir kılar, random suffix çakışmayı önler.
func NewUserID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return fmt.Sprintf("neon_user_%d_%s", time.Now().Unix(), hex.EncodeToString(buf))
}

// ValidatePhone, telefon numarasını normalize edip format kontrolü yapar.
// Boşluk ve tire temizlenir; E.164 dışı her şey reddedilir.
func ValidatePhone(phone string) (string, error) {
	phone = strings.ReplaceAll(strings.TrimSpace(phone), " ", "")
	phone = strings.ReplaceAll(phone, "-", "")
	if phone == "" {
		return "", fmt.Errorf("phone number is required")
	}
	if !phoneRegex.MatchString(phone) {
		return "", fmt.Errorf("invalid phone number format, expected E.164 (e.g. +212600000000)")
	}
	return phone, nil
}

// CompleteRegistrationRequest, kayıt tamamlama isteği.
// SessionID: OTP doğrulaması sonrası dönen pending_registration session id'si.
type CompleteRegistrationRequest struct {
	SessionID   string  `json:"session_id"`
	Name        string  `json:"name"`
	Email       *string `json:"email"`
	AddressLine *string `json:"address_line"`
	City        *string `json:"city"`
	Country     *string `json:"country"`
}

// Validate, CompleteRegistrationRequest geçerlilik kontrolü.
func (r *CompleteRegistrationRequest) Validate() error {
	if strings.TrimSpace(r.SessionID) == "" {
		return fmt.Errorf("session_id is required")
	}

	r.Name = strings.TrimSpace(r.Name)
	nameLen := utf8.RuneCountInString(r.Name)
	if nameLen < 2 || nameLen > 64 {
		return fmt.Errorf("name must be between 2 and 64 characters")
	}

	if r.Email != nil {
		email := strings.TrimSpace(*r.Email)
		if email == "" {
			r.Email = nil
		} else {
			if !emailRegex.MatchString(email) {
				return fmt.Errorf("invalid email format")
			}
			r.Email = &email
		}
	}

	return nil
}

// UpdateProfileRequest, profil güncellemesi için.
// nil field'lar "değiştirme" anlamına gelir (partial update).
type UpdateProfileRequest struct {
	Name        *string `json:"name"`
	Email       *string `json:"email"`
	AddressLine *string `json:"address_line"`
	City        *string `json:"city"`
	Country     *string `json:"country"`
}

// Validate, UpdateProfileRequest geçerlilik kontrolü.
func (r *UpdateProfileRequest) Validate() error {
	if r.Name != nil {
		name := strings.TrimSpace(*r.Name)
		nameLen := utf8.RuneCountInString(name)
		if nameLen < 2 || nameLen > 64 {
			return fmt.Errorf("name must be between 2 and 64 characters")
		}
		r.Name = &name
	}

	if r.Email != nil && strings.TrimSpace(*r.Email) != "" {
		email := strings.TrimSpace(*r.Email)
		if !emailRegex.MatchString(email) {
			return fmt.Errorf("invalid email format")
		}
		r.Email = &email
	}

	return nil
}
