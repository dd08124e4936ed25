package token

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neonship/neon-server/pkg"
)

func TestGenerateValidate_Roundtrip(t *testing.T) {
	codec := NewCodec("test-secret", 3600)

	tokenString, err := codec.Generate("neon_user_1_abc", "+212600000000")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(tokenString, Prefix), "token must carry the neon_ prefix")

	claims, err := codec.Validate(tokenString)
	require.NoError(t, err)
	assert.Equal(t, "neon_user_1_abc", claims.Subject)
	assert.Equal(t, "+212600000000", claims.PhoneNumber)
}

func TestValidate_RejectsMissingPrefix(t *testing.T) {
	codec := NewCodec("test-secret", 3600)

	tokenString, err := codec.Generate("u1", "+212600000000")
	require.NoError(t, err)

	// Prefix'i sök — düz JWT kabul edilmemeli
	bare := strings.TrimPrefix(tokenString, Prefix)
	_, err = codec.Validate(bare)
	assert.ErrorIs(t, err, pkg.ErrTokenMalformed)
}

func TestValidate_RejectsForgedSignature(t *testing.T) {
	codec := NewCodec("test-secret", 3600)
	forger := NewCodec("attacker-secret", 3600)

	forged, err := forger.Generate("u1", "+212600000000")
	require.NoError(t, err)

	_, err = codec.Validate(forged)
	assert.ErrorIs(t, err, pkg.ErrTokenMalformed)
}

func TestValidate_RejectsExpired(t *testing.T) {
	// Negatif expiry — token üretildiği anda süresi geçmiş olur
	codec := NewCodec("test-secret", -10)

	tokenString, err := codec.Generate("u1", "+212600000000")
	require.NoError(t, err)

	_, err = codec.Validate(tokenString)
	assert.ErrorIs(t, err, pkg.ErrTokenExpired)
}

func TestValidate_RejectsGarbage(t *testing.T) {
	codec := NewCodec("test-secret", 3600)

	for _, input := range []string{"", "neon_", "neon_garbage", "neon_a.b.c"} {
		_, err := codec.Validate(input)
		assert.ErrorIs(t, err, pkg.ErrTokenMalformed, "input: %q", input)
	}
}

func TestExpiresSoon(t *testing.T) {
	// 1 saatlik token, 5 dk margin → yenileme gerekmez
	codec := NewCodec("test-secret", 3600)
	tokenString, err := codec.Generate("u1", "+212600000000")
	require.NoError(t, err)
	assert.False(t, ExpiresSoon(tokenString, 5*time.Minute))

	// Margin token ömründen büyükse → yenileme gerekir
	assert.True(t, ExpiresSoon(tokenString, 2*time.Hour))

	// Parse edilemeyen token iyimser yorumlanmaz
	assert.True(t, ExpiresSoon("garbage", 5*time.Minute))
}
