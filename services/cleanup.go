// Background cleanup janitor.
//
// Süresi geçmiş OTP kodlarını ve session'ları periyodik olarak siler.
// Okuma sorguları zaten expires_at filtresi uyguladığı için bu temizlik
// doğruluk değil hijyen içindir — tablo şişmesin, telefon numaraları
// gereksiz yere ortalıkta durmasın.
package services

import (
	"context"
	"log"
	"time"

	"github.com/neonship/neon-server/repository"
)

// CleanupJanitor, arka planda çalışan temizlik görevlisi.
type CleanupJanitor struct {
	otpRepo     repository.OTPRepository
	sessionRepo repository.SessionRepository
	interval    time.Duration
	stopChan    chan struct{}
	doneChan    chan struct{}
}

// NewCleanupJanitor, constructor. intervalMinutes config'ten gelir.
func NewCleanupJanitor(otpRepo repository.OTPRepository, sessionRepo repository.SessionRepository, intervalMinutes int) *CleanupJanitor {
	return &CleanupJanitor{
		otpRepo:     otpRepo,
		sessionRepo: sessionRepo,
		interval:    time.Duration(intervalMinutes) * time.Minute,
		stopChan:    make(chan struct{}),
		doneChan:    make(chan struct{}),
	}
}

// Start, janitor'ı kendi goroutine'inde başlatır.
// İlk süpürme hemen yapılır, sonrakiler interval aralıklarla.
func (j *CleanupJanitor) Start() {
	go func() {
		defer close(j.doneChan)

		log.Printf("[cleanup] janitor started (interval: %s)", j.interval)
		j.RunOnce(context.Background())

		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				j.RunOnce(context.Background())
			case <-j.stopChan:
				log.Println("[cleanup] janitor stopped")
				return
			}
		}
	}()
}

// Stop, janitor'ı durdurur ve goroutine çıkana kadar bekler.
func (j *CleanupJanitor) Stop() {
	close(j.stopChan)
	<-j.doneChan
}

// RunOnce, tek bir süpürme turu çalıştırır.
// Hatalar loglanır ama tur'u kesmez — OTP silme patlasa bile session
// silme denenir.
func (j *CleanupJanitor) RunOnce(ctx context.Context) {
	if n, err := j.otpRepo.DeleteExpired(ctx); err != nil {
		log.Printf("[cleanup] failed to delete expired otp codes: %v", err)
	} else if n > 0 {
		log.Printf("[cleanup] deleted %d expired otp codes", n)
	}

	if n, err := j.sessionRepo.DeleteExpired(ctx); err != nil {
		log.Printf("[cleanup] failed to delete expired sessions: %v", err)
	} else if n > 0 {
		log.Printf("[cleanup] deleted %d expired sessions", n)
	}
}
