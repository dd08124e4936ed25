package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResendSender_NoEmailFallsBackToLog(t *testing.T) {
	// Email'i olmayan telefon (yeni kullanıcı) için gönderim hata DÖNMEMELİ —
	// kod log'a düşer, istek başarılı sayılır. API'ye hiç çıkılmaz.
	sender := NewResendSender("re_test_key", "otp@neonship.ma")

	err := sender.SendOTP(t.Context(), "+212600000999", "", "123456", 10)
	assert.NoError(t, err)
}

func TestLogSender_AlwaysSucceeds(t *testing.T) {
	sender := NewLogSender()

	assert.NoError(t, sender.SendOTP(t.Context(), "+212600000001", "", "654321", 10))
	assert.NoError(t, sender.SendOTP(t.Context(), "+212600000001", "a@b.ma", "654321", 10))
}
