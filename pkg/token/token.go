// Package token, neon_ ailesi access token'larının codec'idir.
//
// Token formatı: "neon_" prefix + HS256 imzalı JWT.
// Payload kaynak sistemin wire şeklini korur: {sub, phone, iat, exp, iss, aud}.
// Prefix, bu token ailesini diğer Authorization değerlerinden (ör. raw session
// id fallback'i) ayırt etmeye yarar — güvenlik imzadan gelir, prefix'ten değil.
//
// İki FARKLI expiry semantiği bilinçli olarak bir arada yaşar:
//   - Validate: sert kesim — exp geçtiyse token kullanılamaz (server-side).
//   - ExpiresSoon: proaktif kontrol — exp'e 5 dakikadan az kaldıysa client
//     refresh etmelidir. Client imza anahtarını TUTMAZ; bu yüzden ExpiresSoon
//     imza doğrulamadan sadece claim'leri çözer.
//
// 55-60. dakika penceresinde ikisi kasıtlı olarak farklı cevap verir:
// ExpiresSoon=true iken Validate hâlâ geçer.
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/neonship/neon-server/models"
	"github.com/neonship/neon-server/pkg"
)

// Prefix, neon token ailesinin sabit etiketi.
const Prefix = "neon_"

// Issuer ve Audience claim değerleri.
const (
	Issuer   = "neon-api"
	Audience = "neon-app"
)

// DefaultRefreshMargin, ExpiresSoon için varsayılan eşik (5 dakika).
const DefaultRefreshMargin = 300 * time.Second

// Codec, access token üretir ve doğrular. Secret sadece server tarafında bulunur.
type Codec struct {
	secret []byte
	expiry time.Duration
}

// NewCodec, constructor.
// expirySeconds: access token ömrü (varsayılan konfigürasyonda 3600).
func NewCodec(secret string, expirySeconds int) *Codec {
	return &Codec{
		secret: []byte(secret),
		expiry: time.Duration(expirySeconds) * time.Second,
	}
}

// Generate, kullanıcı için yeni bir access token üretir.
func (c *Codec) Generate(userID, phone string) (string, error) {
	now := time.Now()
	claims := &models.TokenClaims{
		PhoneNumber: phone,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.expiry)),
			Issuer:    Issuer,
			Audience:  jwt.ClaimStrings{Audience},
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}

	return Prefix + signed, nil
}

// Validate, token'ı doğrular ve claims'i döner.
//
// Başarısızlık her zaman kapalı davranır (fail closed):
//   - prefix yok / parse edilemiyor / imza tutmuyor → pkg.ErrTokenMalformed
//   - çözüldü ama exp geçmiş → pkg.ErrTokenExpired
//
// Her iki durum da handler katmanında 401'e map'lenir — client ayrımı görmez.
func (c *Codec) Validate(tokenString string) (*models.TokenClaims, error) {
	raw, ok := strings.CutPrefix(tokenString, Prefix)
	if !ok {
		return nil, pkg.ErrTokenMalformed
	}

	parsed, err := jwt.ParseWithClaims(raw, &models.TokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	}, jwt.WithIssuer(Issuer), jwt.WithAudience(Audience))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, pkg.ErrTokenExpired
		}
		return nil, pkg.ErrTokenMalformed
	}

	claims, ok := parsed.Claims.(*models.TokenClaims)
	if !ok || !parsed.Valid {
		return nil, pkg.ErrTokenMalformed
	}

	return claims, nil
}

// ExpiresSoon, token'ın proaktif yenileme eşiğine girip girmediğini döner.
//
// true dönen durumlar:
//   - prefix yok veya claim'ler çözülemiyor (kullanılamaz token → yenile)
//   - exp claim'i eksik
//   - exp'e margin'den az kaldı (veya geçti)
//
// İmza DOĞRULANMAZ — client secret tutmaz. Bu fonksiyon sadece
// "şimdi refresh edeyim mi?" sorusuna cevap verir, yetki vermez.
func ExpiresSoon(tokenString string, margin time.Duration) bool {
	raw, ok := strings.CutPrefix(tokenString, Prefix)
	if !ok {
		return true
	}

	claims := &models.TokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return true
	}

	if claims.ExpiresAt == nil {
		return true
	}

	return time.Until(claims.ExpiresAt.Time) < margin
}
