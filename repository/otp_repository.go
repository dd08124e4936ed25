package repository

import (
	"context"

	"github.com/neonship/neon-server/models"
)

// OTPRepository, otp_codes tablosu için interface.
//
// ConsumeAttempt dikkat: deneme sayacı TEK bir atomik UPDATE ile artırılır
// ve yeni değer döner — read-then-write yarışı yoktur. İki eşzamanlı doğrulama
// denemesi bile sayacı doğru artırır.
type OTPRepository interface {
	// Create, yeni OTP satırı ekler. Çağıran önce SupersedePending çağırmalıdır.
	Create(ctx context.Context, otp *models.OTPCode) error
	// GetLatestPending, (phone, purpose) için en yeni pending ve süresi
	// geçmemiş kodu döner; yoksa pkg.ErrNotFound.
	GetLatestPending(ctx context.Context, phone string, purpose models.OTPPurpose) (*models.OTPCode, error)
	// ConsumeAttempt, attempts sayacını atomik artırır ve yeni değeri döner.
	ConsumeAttempt(ctx context.Context, id string) (int, error)
	// MarkVerified, kodu verified yapar ve verified_at'i işler.
	MarkVerified(ctx context.Context, id string) error
	// SupersedePending, (phone, purpose) için tüm pending kodları superseded yapar.
	SupersedePending(ctx context.Context, phone string, purpose models.OTPPurpose) error
	// DeleteExpired, süresi geçmiş tüm satırları siler (bakım süpürmesi).
	DeleteExpired(ctx context.Context) (int64, error)
}
