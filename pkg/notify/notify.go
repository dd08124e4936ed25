// Package notify, OTP kodlarının bant-dışı teslimatı için soyutlama katmanı sağlar.
//
// Sender interface'i ile teslimat detayları soyutlanır (Dependency Inversion).
// Asıl üretim kanalı (WhatsApp Business API) ayrı bir servistir ve bu repo'nun
// kapsamı dışındadır — o servis de bu interface'in bir implementasyonu olarak
// takılır. Burada iki implementasyon bulunur:
//
//  1. ResendSender — email'i olan kullanıcılara kodu email ile iletir,
//     email'i olmayanlar için log'a düşer (yeni kullanıcılar dahil)
//  2. LogSender — development: kodu server log'una yazar, hiçbir yere göndermez
//
// Service katmanı Sender interface'ine bağımlıdır, concrete implementasyona değil.
package notify

import (
	"context"
	"fmt"
	"log"

	"github.com/resend/resend-go/v3"
)

// Sender, OTP teslimatı için interface.
type Sender interface {
	// SendOTP, kodu kullanıcıya iletir.
	// phone: E.164 numara (kanal seçimi/loglama için), email: varsa email adresi,
	// code: plaintext 6 haneli kod, expiryMinutes: kodun geçerlilik süresi.
	SendOTP(ctx context.Context, phone, email, code string, expiryMinutes int) error
}

// ─── Resend (email) ───

// resendSender, Resend API ile email gönderen Sender implementasyonu.
type resendSender struct {
	client    *resend.Client
	fromEmail string // Gönderici adresi (ör: otp@neonship.ma)
}

// NewResendSender, Resend API client'ı ile yeni bir Sender oluşturur.
//
// apiKey: Resend dashboard'dan alınan API key (re_xxxxxxxx formatında).
// fromEmail: Gönderici email adresi — Resend'de doğrulanmış domain altında olmalı.
func NewResendSender(apiKey, fromEmail string) Sender {
	return &resendSender{
		client:    resend.NewClient(apiKey),
		fromEmail: fromEmail,
	}
}

// SendOTP, doğrulama kodunu email ile gönderir.
//
// Email adresi olmayan telefonlar (henüz kayıt olmamış kullanıcılar ve email
// vermemiş hesaplar) için teslimat log'a düşer ve hata DÖNMEZ: asıl kanal
// (WhatsApp) ayrı bir servistir, email ikincil kanaldır. Email yokluğu OTP
// isteğini başarısız yapsaydı hiçbir yeni kullanıcı kayıt kodu alamazdı.
func (s *resendSender) SendOTP(ctx context.Context, phone, email, code string, expiryMinutes int) error {
	if email == "" {
		log.Printf("[notify] no email for %s, OTP: %s (expires in %dm)", phone, code, expiryMinutes)
		return nil
	}

	html := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="margin:0;padding:0;background-color:#0f172a;font-family:Arial,Helvetica,sans-serif;">
  <table width="100%%" cellpadding="0" cellspacing="0" style="padding:40px 0;">
    <tr>
      <td align="center">
        <table width="440" cellpadding="0" cellspacing="0" style="background-color:#1e293b;border-radius:8px;padding:40px;">
          <tr>
            <td>
              <h1 style="color:#e2e8f0;font-size:22px;margin:0 0 16px 0;">Neon</h1>
              <p style="color:#94a3b8;font-size:15px;line-height:1.6;margin:0 0 24px 0;">
                Your verification code:
              </p>
              <p style="color:#f8fafc;font-size:32px;letter-spacing:8px;font-weight:700;margin:0 0 24px 0;">%s</p>
              <p style="color:#64748b;font-size:13px;line-height:1.6;margin:0;">
                This code expires in %d minutes. If you didn't request it, you can safely ignore this email.
              </p>
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`, code, expiryMinutes)

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("Neon <%s>", s.fromEmail),
		To:      []string{email},
		Subject: fmt.Sprintf("%s is your Neon verification code", code),
		Html:    html,
	}

	if _, err := s.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("failed to send otp email: %w", err)
	}

	return nil
}

// ─── Log (development) ───

// logSender, kodu sadece server log'una yazan dev implementasyonu.
type logSender struct{}

// NewLogSender, development ortamı için Sender döner.
// Gerçek teslimat yapılmaz — kod log'dan okunur.
func NewLogSender() Sender {
	return logSender{}
}

func (logSender) SendOTP(_ context.Context, phone, _, code string, expiryMinutes int) error {
	log.Printf("[notify] OTP for %s: %s (expires in %dm)", phone, code, expiryMinutes)
	return nil
}
