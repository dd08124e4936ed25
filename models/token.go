package models

import "github.com/golang-jwt/jwt/v5"

// TokenClaims, access token'ın içindeki veriler (payload).
//
// Claim isimleri kaynak sistemin wire formatını korur:
// {sub, phone, iat, exp, iss, aud} — sub kullanıcı id'si, phone telefon numarası.
// RegisteredClaims embed'i iat/exp/iss/aud alanlarını standart isimleriyle sağlar.
//
// Bu struct models paketinde tanımlanır çünkü birden fazla katman
// (pkg/token, services, middleware, client) tarafından kullanılır —
// her katman models'e bağımlı olabilir, circular dependency oluşmaz.
type TokenClaims struct {
	PhoneNumber string `json:"phone"`
	jwt.RegisteredClaims
}
