// Package models — OTP kodu ve ilgili request struct'ları.
//
// OTPCode, DB'de saklanan tek kullanımlık doğrulama kodudur.
// Kod kullanıcıya WhatsApp/email gibi bant-dışı bir kanaldan iletilir;
// bu sistem sadece üretir, saklar ve doğrular — teslimat dışarıdadır.
package models

import (
	"fmt"
	"strings"
	"time"
)

// OTPPurpose, kodun hangi akış için istendiğini belirtir.
type OTPPurpose string

// İzin verilen OTPPurpose değerleri.
// Go'da enum yoktur, bunun yerine typed constant'lar kullanılır.
const (
	OTPPurposeLogin    OTPPurpose = "login"
	OTPPurposeRegister OTPPurpose = "register"
)

// Valid, purpose değerinin bilinen bir değer olup olmadığını kontrol eder.
func (p OTPPurpose) Valid() bool {
	return p == OTPPurposeLogin || p == OTPPurposeRegister
}

// OTPStatus, kodun yaşam döngüsündeki durumunu belirtir.
//
// Kaynak sistem "verified" flag'ini hem "kullanıldı" hem "yenisi istendi"
// anlamında kullanıyordu — burada anlam ayrıştırıldı:
//   - pending: doğrulanmayı bekliyor
//   - verified: başarıyla kullanıldı
//   - superseded: yeni bir kod istendiği için geçersiz kılındı
//
// Expiry ayrı bir durum değil, expires_at üzerinden hesaplanır.
type OTPStatus string

const (
	OTPStatusPending    OTPStatus = "pending"
	OTPStatusVerified   OTPStatus = "verified"
	OTPStatusSuperseded OTPStatus = "superseded"
)

// OTPCode, otp_codes tablosunun Go karşılığı.
//
// Invariant: (phone, purpose) başına en fazla BİR pending, süresi geçmemiş
// satır bulunur — yeni kod isteği eskileri superseded yapar.
type OTPCode struct {
	ID          string     `json:"id"`
	PhoneNumber string     `json:"phone_number"`
	Code        string     `json:"-"` // API yanıtlarına ASLA dahil edilmez
	Purpose     OTPPurpose `json:"purpose"`
	Status      OTPStatus  `json:"status"`
	Attempts    int        `json:"attempts"`
	MaxAttempts int        `json:"max_attempts"`
	ExpiresAt   time.Time  `json:"expires_at"`
	CreatedAt   time.Time  `json:"created_at"`
	VerifiedAt  *time.Time `json:"verified_at"`
}

// Expired, kodun süresinin geçip geçmediğini döner.
func (o *OTPCode) Expired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}

// RequestOTPRequest, kod isteme isteği.
type RequestOTPRequest struct {
	PhoneNumber string `json:"phone_number"`
	Purpose     string `json:"purpose"`
}

// Validate, RequestOTPRequest geçerlilik kontrolü.
// Telefon numarası normalize edilir (bkz. ValidatePhone).
func (r *RequestOTPRequest) Validate() error {
	phone, err := ValidatePhone(r.PhoneNumber)
	if err != nil {
		return err
	}
	r.PhoneNumber = phone

	if !OTPPurpose(r.Purpose).Valid() {
		return fmt.Errorf("purpose must be 'login' or 'register'")
	}

	return nil
}

// VerifyOTPRequest, kod doğrulama isteği.
type VerifyOTPRequest struct {
	PhoneNumber string `json:"phone_number"`
	Code        string `json:"code"`
	Purpose     string `json:"purpose"`
}

// Validate, VerifyOTPRequest geçerlilik kontrolü.
// Kod 6 haneli sayısal olmalı — format dışı girişler DB'ye hiç uğramaz.
func (r *VerifyOTPRequest) Validate() error {
	phone, err := ValidatePhone(r.PhoneNumber)
	if err != nil {
		return err
	}
	r.PhoneNumber = phone

	r.Code = strings.TrimSpace(r.Code)
	if len(r.Code) != 6 {
		return fmt.Errorf("code must be 6 digits")
	}
	for _, ch := range r.Code {
		if ch < '0' || ch > '9' {
			return fmt.Errorf("code must be 6 digits")
		}
	}

	if !OTPPurpose(r.Purpose).Valid() {
		return fmt.Errorf("purpose must be 'login' or 'register'")
	}

	return nil
}
