// Package repository, veri erişim katmanını tanımlar.
//
// Her domain modeli için iki dosya vardır:
//   - *_repository.go: interface (service katmanı buna bağımlıdır)
//   - sqlite_*.go: SQLite implementasyonu
//
// Bu ayrım sayesinde service'ler DB detayı bilmez, testlerde in-memory
// fake'ler kullanılabilir.
package repository

import (
	"context"

	"github.com/neonship/neon-server/models"
)

// UserRepository, users tablosu için interface.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByPhone(ctx context.Context, phone string) (*models.User, error)
	UpdateProfile(ctx context.Context, id string, req *models.UpdateProfileRequest) error
}
