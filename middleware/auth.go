// Package middleware, HTTP request pipeline'ına eklenen ara katmanları barındırır.
//
// Middleware Pattern nedir?
// Her HTTP request, handler'a ulaşmadan önce bir veya daha fazla middleware'dan geçer.
// Middleware'lar zincir şeklinde çalışır: Auth → Handler
//
// Go'da middleware bir fonksiyondur:
//   func(next http.Handler) http.Handler
//
// "next" parametresi zincirdeki bir sonraki handler'dır.
// Middleware kendi işini yapar (ör: token doğrula), sonra next'i çağırır.
// Eğer hata varsa next'i çağırmaz → request burada durur.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/neonship/neon-server/handlers"
	"github.com/neonship/neon-server/models"
	"github.com/neonship/neon-server/pkg"
	"github.com/neonship/neon-server/pkg/token"
	"github.com/neonship/neon-server/repository"
	"github.com/neonship/neon-server/services"
)

// AuthMiddleware, kimlik doğrulama middleware'ı.
type AuthMiddleware struct {
	authService services.AuthService
	userRepo    repository.UserRepository
}

// NewAuthMiddleware, constructor.
func NewAuthMiddleware(authService services.AuthService, userRepo repository.UserRepository) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
		userRepo:    userRepo,
	}
}

// Require, kimlik doğrulamayı zorunlu kılan middleware.
//
// İki credential formatı kabul edilir (ikisi de Bearer ile taşınır):
//
//  1. neon_ prefix'li access token → imza doğrulanır, DB'ye session
//     sorgusu atılmaz (hızlı yol). Kullanıcı yine de DB'den getirilir —
//     token geçerli ama kullanıcı silinmiş olabilir.
//  2. Opak session id → access token'ı kaybetmiş ama session id'si duran
//     client'lar için fallback. Session DB'den doğrulanır, last_accessed
//     ilerletilir.
//
// Her iki yolda da user context'e eklenir; session yolu ayrıca session'ı
// da ekler.
func (m *AuthMiddleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 1. Header'dan credential'ı al
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			pkg.ErrorWithMessage(w, http.StatusUnauthorized, "authorization header required")
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			pkg.ErrorWithMessage(w, http.StatusUnauthorized, "invalid authorization format, use: Bearer <token>")
			return
		}
		credential := strings.TrimPrefix(authHeader, "Bearer ")

		if strings.HasPrefix(credential, token.Prefix) {
			m.requireAccessToken(w, r, next, credential)
			return
		}

		m.requireSession(w, r, next, credential)
	})
}

// requireAccessToken, imzalı access token yolu.
func (m *AuthMiddleware) requireAccessToken(w http.ResponseWriter, r *http.Request, next http.Handler, tokenString string) {
	claims, err := m.authService.ValidateAccessToken(tokenString)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	user, err := m.userRepo.GetByID(r.Context(), claims.Subject)
	if err != nil {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found")
		return
	}

	ctx := context.WithValue(r.Context(), handlers.UserContextKey, user)
	next.ServeHTTP(w, r.WithContext(ctx))
}

// requireSession, opak session id yolu (client fallback'i).
// pending_registration session'lar korumalı endpoint açamaz — kullanıcı
// henüz yoktur.
func (m *AuthMiddleware) requireSession(w http.ResponseWriter, r *http.Request, next http.Handler, sessionID string) {
	session, err := m.authService.GetSession(r.Context(), sessionID)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	if session.Type != models.SessionTypeAuthenticated || session.UserID == nil {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "session is not authenticated")
		return
	}

	user, err := m.userRepo.GetByID(r.Context(), *session.UserID)
	if err != nil {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found")
		return
	}

	ctx := context.WithValue(r.Context(), handlers.UserContextKey, user)
	ctx = context.WithValue(ctx, handlers.SessionContextKey, session)
	next.ServeHTTP(w, r.WithContext(ctx))
}
