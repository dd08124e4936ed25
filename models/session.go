// Package models — Session modeli.
//
// Neden refresh token ayrı saklanır?
// Access token kısa ömürlü (1 saat) — sık sık yenilenir, imzası yeterlidir.
// Refresh token uzun ömürlü (30 gün) — DB'de SADECE SHA256 hash'i tutulur.
// Session'ları DB'de tutarak:
//   - Çalınan refresh token'ı iptal edebiliriz (logout / logout-all)
//   - Kullanıcının tüm oturumlarını görebiliriz
//   - Kayıt yarıda kalan (pending_registration) oturumları süpürebiliriz
package models

import "time"

// SessionType, oturumun hangi aşamada olduğunu belirtir.
//
// pending_registration: telefon doğrulandı ama kullanıcı henüz yok —
// 1 saat içinde kayıt tamamlanmazsa oturum düşer, access token üretilmez.
// authenticated: kullanıcıya bağlı tam oturum, 30 gün yaşar.
type SessionType string

const (
	SessionTypeAuthenticated SessionType = "authenticated"
	SessionTypePending       SessionType = "pending_registration"
)

// Session, sessions tablosunun Go karşılığı.
type Session struct {
	ID               string      `json:"id"` // 32 byte random hex — opak
	UserID           *string     `json:"user_id"`
	PhoneNumber      string      `json:"phone_number"`
	Type             SessionType `json:"type"`
	AccessToken      string      `json:"-"` // API'ye session objesi içinde gönderilmez
	RefreshTokenHash string      `json:"-"`
	UserAgent        *string     `json:"user_agent"`
	IPAddress        *string     `json:"ip_address"`
	ExpiresAt        time.Time   `json:"expires_at"`
	CreatedAt        time.Time   `json:"created_at"`
	LastAccessedAt   time.Time   `json:"last_accessed_at"`
}

// Expired, oturumun süresinin geçip geçmediğini döner.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
