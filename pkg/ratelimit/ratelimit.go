// Package ratelimit — OTPRateLimiter: OTP isteme endpoint'i için
// telefon numarası + IP bazlı rate limiting.
//
// Tasarım:
// - Her anahtar (telefon veya IP) için sliding window ile istek sayısı takip edilir.
// - Window süresi içinde maxAttempts aşılırsa istek reddedilir.
// - Background goroutine ile süresi dolmuş bucket'lar temizlenir (memory leak engeli).
//
// Neden hem telefon hem IP?
// - Telefon bazlı limit: tek bir numaraya SMS/WhatsApp bombardımanını engeller
//   (kurban numarası maliyet + rahatsızlık demektir).
// - IP bazlı limit: tek kaynaktan çok sayıda farklı numara denenmesini engeller.
//
// Neden in-memory?
// - SQLite'a her request'te yazma gereksiz I/O + contention yaratır.
// - Redis bağımlılığı eklememek için in-memory yeterli (tek instance deploy).
// - sync.Mutex ile thread-safe.
package ratelimit

import (
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"
)

// bucket, bir anahtar için istek sayacı ve window başlangıç zamanı tutar.
type bucket struct {
	count       int
	windowStart time.Time
}

// OTPRateLimiter, telefon + IP bazlı OTP isteme rate limiting.
//
// Kullanım:
//
//	limiter := ratelimit.NewOTPRateLimiter(3, 10*time.Minute)
//	if !limiter.Allow(phone, ip) { return 429 }
type OTPRateLimiter struct {
	mu          sync.Mutex
	phones      map[string]*bucket
	ips         map[string]*bucket
	maxAttempts int
	window      time.Duration
	stopCleanup chan struct{}
}

// NewOTPRateLimiter, yeni rate limiter oluşturur ve arka plan temizleme
// goroutine'ini başlatır.
//
// maxAttempts: Pencere başına izin verilen OTP isteği (ör: 3).
// window: Pencere süresi (ör: 10*time.Minute → 10 dakikada 3 istek).
func NewOTPRateLimiter(maxAttempts int, window time.Duration) *OTPRateLimiter {
	rl := &OTPRateLimiter{
		phones:      make(map[string]*bucket),
		ips:         make(map[string]*bucket),
		maxAttempts: maxAttempts,
		window:      window,
		stopCleanup: make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Allow, verilen telefon ve IP için OTP isteğine izin verilip verilmediğini
// kontrol eder. İki anahtardan HERHANGİ biri limitteyse istek reddedilir.
//
// Her çağrı her iki sayacı da artırır (istek başarılı olsun veya olmasın) —
// reddedilen istek de pencereyi doldurur, aksi halde limit sorgulamayla aşılır.
func (rl *OTPRateLimiter) Allow(phone, ip string) bool {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	phoneOK := consume(rl.phones, phone, now, rl.window, rl.maxAttempts)
	ipOK := consume(rl.ips, ip, now, rl.window, rl.maxAttempts)

	return phoneOK && ipOK
}

// consume, bucket sayacını sliding window mantığıyla artırır.
func consume(buckets map[string]*bucket, key string, now time.Time, window time.Duration, max int) bool {
	b, exists := buckets[key]
	if !exists {
		buckets[key] = &bucket{count: 1, windowStart: now}
		return true
	}

	// Window süresi dolduysa yeni pencere başlat
	if now.Sub(b.windowStart) > window {
		b.count = 1
		b.windowStart = now
		return true
	}

	b.count++
	return b.count <= max
}

// RetryAfterSeconds, rate limit aşıldığında kalan bekleme süresini saniye
// cinsinden döner. HTTP Retry-After header değeri olarak kullanılır.
// İki anahtardan geç açılanı esas alınır.
func (rl *OTPRateLimiter) RetryAfterSeconds(phone, ip string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	remaining := time.Duration(0)
	for _, b := range []*bucket{rl.phones[phone], rl.ips[ip]} {
		if b == nil || b.count <= rl.maxAttempts {
			continue
		}
		if r := rl.window - time.Since(b.windowStart); r > remaining {
			remaining = r
		}
	}

	if remaining <= 0 {
		return 0
	}
	return int(remaining.Seconds()) + 1 // +1 yuvarlama — client'ın tam süreyi beklemesi için
}

// Close, temizleme goroutine'ini durdurur.
func (rl *OTPRateLimiter) Close() {
	close(rl.stopCleanup)
}

// cleanupLoop, arka planda süresi dolmuş bucket'ları temizler.
func (rl *OTPRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(60 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanup, window süresi geçmiş tüm bucket'ları siler.
func (rl *OTPRateLimiter) cleanup() {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for _, buckets := range []map[string]*bucket{rl.phones, rl.ips} {
		for key, b := range buckets {
			if now.Sub(b.windowStart) > rl.window {
				delete(buckets, key)
			}
		}
	}
}

// ExtractIP, HTTP request'ten client IP adresini çıkarır.
//
// Öncelik sırası:
// 1. X-Forwarded-For header (reverse proxy arkasındaysa, ilk IP)
// 2. X-Real-IP header
// 3. RemoteAddr (doğrudan bağlantı)
func ExtractIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// Virgülle ayrılmış listeden ilk IP'yi al
		for i := 0; i < len(xff); i++ {
			if xff[i] == ',' {
				return xff[:i]
			}
		}
		return xff
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// FormatRetryMessage, kalan süreyi okunabilir formata çevirir.
// Örn: 120 → "2 minute(s)", 45 → "45 second(s)"
func FormatRetryMessage(seconds int) string {
	if seconds >= 60 {
		return fmt.Sprintf("%d minute(s)", seconds/60)
	}
	return fmt.Sprintf("%d second(s)", seconds)
}
