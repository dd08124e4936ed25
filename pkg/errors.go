// Package pkg, projede paylaşılan utility'leri barındırır.
// Bu dosya domain-level error tanımlarını içerir.
//
// Go'da error'lar basit değerlerdir (string taşıyan struct'lar).
// errors.New() ile sabit error değişkenleri tanımlarız.
// Böylece error karşılaştırması string yerine referans ile yapılır:
//
//	if errors.Is(err, pkg.ErrOTPIncorrect) { ... }
//
// Bu, typo'ya açık string karşılaştırmasından çok daha güvenlidir.
package pkg

import "errors"

// Domain-level error'lar.
// Handler katmanı bu error'ları HTTP status code'larına map'ler.
// Service katmanı bunları döner, handler yakalar.
var (
	ErrNotFound      = errors.New("not found")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrAlreadyExists = errors.New("already exists")
	ErrBadRequest    = errors.New("bad request")
	ErrInternal      = errors.New("internal error")
)

// Auth akışına özel error'lar.
//
// OTP ve session doğrulama hataları client'a exception olarak DEĞİL,
// {success:false, error} yanıtı olarak taşınır — end user tarafında hepsi
// "oturum süresi doldu, tekrar giriş yapın" mesajına düşer, ayrım sadece
// iç kontrol akışı içindir.
var (
	// ErrOTPInvalidOrExpired — (telefon, amaç) için bekleyen geçerli kod yok.
	ErrOTPInvalidOrExpired = errors.New("invalid or expired code")
	// ErrOTPMaxAttempts — deneme sayacı limite ulaştı; doğru kod bile reddedilir.
	ErrOTPMaxAttempts = errors.New("maximum verification attempts exceeded")
	// ErrOTPIncorrect — kod mevcut ama değer uyuşmadı (deneme yine de harcandı).
	ErrOTPIncorrect = errors.New("incorrect code")
	// ErrSessionNotFound — session id yok veya süresi geçmiş.
	ErrSessionNotFound = errors.New("session not found")
	// ErrRefreshTokenInvalid — hash hiçbir canlı authenticated session ile eşleşmedi.
	ErrRefreshTokenInvalid = errors.New("invalid refresh token")
	// ErrTokenMalformed — neon_ prefix'i yok ya da payload çözülemedi.
	ErrTokenMalformed = errors.New("malformed token")
	// ErrTokenExpired — token çözüldü ama exp geçmiş.
	ErrTokenExpired = errors.New("token expired")
)
