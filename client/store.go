// Package client, neon API'si için Go istemci SDK'sıdır.
//
// Web/mobil uygulamanın auth context'inin Go karşılığı: credential
// saklama, oturum başlatma, proaktif token yenileme ve dashboard
// prefetch burada yaşar.
//
// CredentialStore, tarayıcıdaki localStorage + cookie ikilisinin
// soyutlamasıdır. MultiStore ile birden fazla store'a aynı anda yazılır —
// biri silinse/bozulsa diğerinden oturum kurtarılır.
package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Credentials, client tarafında saklanan oturum bilgileri.
type Credentials struct {
	SessionID    string `json:"session_id"`
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// Empty, hiçbir credential olmadığını döner.
func (c *Credentials) Empty() bool {
	return c == nil || (c.SessionID == "" && c.AccessToken == "" && c.RefreshToken == "")
}

// CredentialStore, credential persistence soyutlaması.
//
// Load, store boşsa (nil, nil) döner — "credential yok" bir hata değildir.
type CredentialStore interface {
	Save(creds *Credentials) error
	Load() (*Credentials, error)
	Clear() error
}

// ─── MemoryStore ───

// MemoryStore, process ömürlü in-memory store. Testlerde ve kısa ömürlü
// CLI kullanımında işe yarar.
type MemoryStore struct {
	mu    sync.Mutex
	creds *Credentials
}

// NewMemoryStore, constructor.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Save(creds *Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *creds
	s.creds = &cp
	return nil
}

func (s *MemoryStore) Load() (*Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.creds == nil {
		return nil, nil
	}
	cp := *s.creds
	return &cp, nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = nil
	return nil
}

// ─── FileStore ───

// FileStore, credential'ları JSON dosyasında saklar (~/.neon/credentials.json).
// Dosya 0600 ile yazılır — refresh token içerir.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore, constructor. path boşsa varsayılan konum kullanılır.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve home directory: %w", err)
		}
		path = filepath.Join(home, ".neon", "credentials.json")
	}
	return &FileStore{path: path}, nil
}

func (s *FileStore) Save(creds *Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create credentials directory: %w", err)
	}

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return err
	}

	// Önce temp dosyaya yaz, sonra rename — yarım yazılmış dosya kalmaz.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	return os.Rename(tmp, s.path)
}

func (s *FileStore) Load() (*Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		// Bozuk dosya = credential yok. Bir sonraki Save üzerine yazar.
		return nil, nil
	}
	if creds.Empty() {
		return nil, nil
	}
	return &creds, nil
}

func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove credentials: %w", err)
	}
	return nil
}

// ─── MultiStore ───

// MultiStore, birden fazla store'a fan-out yapar.
//
// Save/Clear TÜM store'lara uygulanır (ilk hata döner ama devam edilir),
// Load ilk dolu store'dan okur. Tarayıcıdaki localStorage + cookie
// ikilisinin davranışı: biri temizlense öbüründen oturum kurtulur.
type MultiStore struct {
	stores []CredentialStore
}

// NewMultiStore, constructor. En az bir store verilmelidir.
func NewMultiStore(stores ...CredentialStore) *MultiStore {
	return &MultiStore{stores: stores}
}

func (s *MultiStore) Save(creds *Credentials) error {
	var firstErr error
	for _, store := range s.stores {
		if err := store.Save(creds); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *MultiStore) Load() (*Credentials, error) {
	for _, store := range s.stores {
		creds, err := store.Load()
		if err != nil {
			continue // bozuk store diğerlerini engellemez
		}
		if !creds.Empty() {
			return creds, nil
		}
	}
	return nil, nil
}

func (s *MultiStore) Clear() error {
	var firstErr error
	for _, store := range s.stores {
		if err := store.Clear(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
