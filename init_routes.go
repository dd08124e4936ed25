// Package main — HTTP route registration.
//
// initRoutes, tüm API endpoint'lerini mux'a bağlar.
// Middleware chain helper'ı burada tanımlıdır:
//   - auth: access token VEYA session id doğrulaması
package main

import (
	"net/http"

	"github.com/neonship/neon-server/middleware"
	"github.com/neonship/neon-server/repository"
	"github.com/neonship/neon-server/services"
)

// initRoutes, middleware chain'i kurar ve tüm endpoint'leri mux'a bağlar.
func initRoutes(
	mux *http.ServeMux,
	h *Handlers,
	authService services.AuthService,
	userRepo repository.UserRepository,
) {
	// ─── Middleware ───
	authMw := middleware.NewAuthMiddleware(authService, userRepo)

	// ─── Middleware Chain Helper ───
	auth := func(handler http.HandlerFunc) http.Handler {
		return authMw.Require(http.HandlerFunc(handler))
	}

	// Auth — OTP akışı public'tir, logout-all korumalıdır
	mux.HandleFunc("POST /api/auth/otp/request", h.Auth.RequestOTP)
	mux.HandleFunc("POST /api/auth/otp/verify", h.Auth.VerifyOTP)
	mux.HandleFunc("POST /api/auth/register", h.Auth.Register)
	mux.HandleFunc("POST /api/auth/refresh", h.Auth.Refresh)
	mux.HandleFunc("POST /api/auth/logout", h.Auth.Logout)
	mux.Handle("POST /api/auth/logout-all", auth(h.Auth.LogoutAll))

	// User
	mux.Handle("GET /api/users/me", auth(h.Profile.Me))
	mux.Handle("PATCH /api/users/me/profile", auth(h.Profile.UpdateProfile))
	mux.Handle("GET /api/users/me/stats", auth(h.Stats.AccountStats))

	// Health — public
	mux.HandleFunc("GET /api/health", h.Stats.Health)
}
