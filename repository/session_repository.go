package repository

import (
	"context"

	"github.com/neonship/neon-server/models"
)

// SessionRepository, sessions tablosu için interface.
//
// Tüm "bulunamadı / süresi geçmiş" durumları pkg.ErrNotFound olarak döner —
// service katmanı bunu "not authenticated" sentinel'lerine çevirir.
type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	// GetByID, süresi geçmemiş session'ı döner; yoksa/expired ise pkg.ErrNotFound.
	GetByID(ctx context.Context, id string) (*models.Session, error)
	// TouchLastAccessed, last_accessed_at'i şimdiye çeker.
	// Her authenticated request'te çağrılır; hatası kritik değildir.
	TouchLastAccessed(ctx context.Context, id string) error
	// GetAuthenticatedByRefreshHash, hash'i eşleşen, süresi geçmemiş ve
	// authenticated tipte session'ı döner.
	GetAuthenticatedByRefreshHash(ctx context.Context, hash string) (*models.Session, error)
	// UpdateAccessToken, refresh akışında access token'ı yerinde günceller.
	// Session id ve satır DEĞİŞMEZ — kaynak sistemin davranışı korunur.
	UpdateAccessToken(ctx context.Context, id, accessToken string) error
	DeleteByID(ctx context.Context, id string) error
	DeleteByUserID(ctx context.Context, userID string) error
	// ExpirePendingByPhone, telefon için tüm pending_registration session'ları
	// zorla düşürür (expires_at = now); excludeID boş değilse o satır atlanır.
	// Kayıt baştan başlatıldığında yarım oturumların birikmesini önler.
	ExpirePendingByPhone(ctx context.Context, phone, excludeID string) error
	// DeleteExpired, süresi geçmiş tüm satırları siler (bakım süpürmesi).
	DeleteExpired(ctx context.Context) (int64, error)
	// CountActiveByUser, kullanıcının süresi geçmemiş authenticated
	// session sayısını döner (hesap istatistikleri için).
	CountActiveByUser(ctx context.Context, userID string) (int, error)
}
