package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/neonship/neon-server/models"
	"github.com/neonship/neon-server/pkg/cache"
	"github.com/neonship/neon-server/pkg/token"
	"github.com/neonship/neon-server/services"
)

// ErrNotAuthenticated, geçerli bir oturum kurulamadığında döner.
// Init bu hatayı döndüğünde tüm store'lar temizlenmiştir — caller
// kullanıcıyı login akışına yönlendirmelidir.
var ErrNotAuthenticated = errors.New("not authenticated")

// statsCacheTTL, dashboard istatistiklerinin client-side cache ömrü.
const statsCacheTTL = 30 * time.Second

// Client, neon API istemcisi.
//
// Thread-safe'tir; tek instance tüm uygulama boyunca paylaşılabilir.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	store         CredentialStore
	refreshMargin time.Duration
	statsCache    *cache.TTLCache[string, *services.AccountStats]
}

// Option, Client yapılandırması.
type Option func(*Client)

// WithHTTPClient, özel bir http.Client kullandırır (test/proxy için).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRefreshMargin, proaktif yenileme eşiğini değiştirir.
// Varsayılan 5 dakikadır: token süresinin bitmesine bundan az kaldıysa
// istek atılmadan ÖNCE refresh denenir.
func WithRefreshMargin(margin time.Duration) Option {
	return func(c *Client) { c.refreshMargin = margin }
}

// New, constructor.
func New(baseURL string, store CredentialStore, opts ...Option) *Client {
	c := &Client{
		baseURL:       baseURL,
		httpClient:    &http.Client{Timeout: 15 * time.Second},
		store:         store,
		refreshMargin: token.DefaultRefreshMargin,
		statsCache:    cache.New[string, *services.AccountStats](statsCacheTTL, time.Minute),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close, arka plan cache goroutine'ini durdurur.
func (c *Client) Close() {
	c.statsCache.Close()
}

// Init, uygulama açılışında oturumu kurtarmaya çalışır.
//
// Sıra:
//  1. Store'dan credential yükle — yoksa ErrNotAuthenticated.
//  2. Access token varsa ve süresi yaklaşmadıysa onunla doğrula.
//  3. Token süresi yaklaştıysa/geçtiyse önce refresh dene.
//  4. Access token yoksa session id fallback'i ile doğrula.
//  5. Doğrulama 401 dönerse BİR kez refresh + retry.
//  6. Hepsi başarısızsa TÜM store'lar temizlenir — yarım credential
//     bırakılmaz, sonraki açılış temiz başlar.
func (c *Client) Init(ctx context.Context) (*models.User, error) {
	creds, err := c.store.Load()
	if err != nil || creds.Empty() {
		return nil, ErrNotAuthenticated
	}

	// Süresi yaklaşan token ile istek atmanın anlamı yok — önce yenile.
	if creds.AccessToken != "" && token.ExpiresSoon(creds.AccessToken, c.refreshMargin) {
		if refreshed, err := c.refresh(ctx, creds); err == nil {
			creds = refreshed
		}
		// refresh başarısız olsa bile eldeki token'la bir şans verilir —
		// ExpiresSoon margin'i geniştir, token hâlâ geçerli olabilir.
	}

	user, err := c.me(ctx, creds)
	if err == nil {
		return user, nil
	}

	// 401 → bir kez refresh + retry
	if isUnauthorized(err) && creds.RefreshToken != "" {
		refreshed, rerr := c.refresh(ctx, creds)
		if rerr == nil {
			if user, err := c.me(ctx, refreshed); err == nil {
				return user, nil
			}
		}
	}

	_ = c.store.Clear()
	return nil, ErrNotAuthenticated
}

// Login, dışarıdan gelen credential set'i ile oturum kurar.
//
// VerifyOTP/CompleteRegistration zaten kendi credential'larını saklar;
// Login, token'ların başka bir akıştan (ör. SSR handoff) geldiği durum
// içindir. Verilenler saklanır, profil çekilir, dashboard istatistikleri
// prefetch edilir. Profil çekilemezse store temizlenir — yarım oturum
// bırakılmaz.
func (c *Client) Login(ctx context.Context, sessionID, accessToken, refreshToken string) (*models.User, error) {
	creds := &Credentials{
		SessionID:    sessionID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}
	if err := c.store.Save(creds); err != nil {
		return nil, fmt.Errorf("failed to persist credentials: %w", err)
	}

	user, err := c.me(ctx, creds)
	if err != nil {
		_ = c.store.Clear()
		return nil, err
	}

	// Prefetch best-effort'tur: istatistik alınamazsa oturum yine geçerlidir.
	var stats services.AccountStats
	if err := c.do(ctx, http.MethodGet, "/api/users/me/stats", nil, c.bearer(creds), &stats); err == nil {
		c.statsCache.Set("stats", &stats)
	}

	return user, nil
}

// RequestOTP, telefona doğrulama kodu gönderilmesini ister.
func (c *Client) RequestOTP(ctx context.Context, phone, purpose string) error {
	body := map[string]string{"phone_number": phone, "purpose": purpose}
	return c.do(ctx, http.MethodPost, "/api/auth/otp/request", body, "", nil)
}

// VerifyOTP, kodu doğrular ve dönen credential'ları store'a yazar.
//
// result.IsNewUser=true ise sadece session id saklanır — kayıt
// CompleteRegistration ile tamamlanana kadar access token yoktur.
func (c *Client) VerifyOTP(ctx context.Context, phone, code, purpose string) (*services.VerifyResult, error) {
	body := map[string]string{"phone_number": phone, "code": code, "purpose": purpose}

	var result services.VerifyResult
	if err := c.do(ctx, http.MethodPost, "/api/auth/otp/verify", body, "", &result); err != nil {
		return nil, err
	}

	creds := &Credentials{
		SessionID:    result.SessionID,
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
	}
	if err := c.store.Save(creds); err != nil {
		return nil, fmt.Errorf("failed to persist credentials: %w", err)
	}

	return &result, nil
}

// CompleteRegistration, pending session üzerinden kaydı tamamlar.
// Store'daki session id kullanılır; dönen yeni credential set'i eskisinin
// üzerine yazılır.
func (c *Client) CompleteRegistration(ctx context.Context, req *models.CompleteRegistrationRequest) (*models.User, error) {
	if req.SessionID == "" {
		creds, err := c.store.Load()
		if err != nil || creds.Empty() {
			return nil, ErrNotAuthenticated
		}
		req.SessionID = creds.SessionID
	}

	var tokens services.AuthTokens
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", req, "", &tokens); err != nil {
		return nil, err
	}

	creds := &Credentials{
		SessionID:    tokens.SessionID,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}
	if err := c.store.Save(creds); err != nil {
		return nil, fmt.Errorf("failed to persist credentials: %w", err)
	}

	return &tokens.User, nil
}

// Me, oturum sahibinin profilini döner. 401'de bir kez refresh + retry.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	creds, err := c.authedCreds(ctx)
	if err != nil {
		return nil, err
	}

	user, err := c.me(ctx, creds)
	if err != nil && isUnauthorized(err) && creds.RefreshToken != "" {
		refreshed, rerr := c.refresh(ctx, creds)
		if rerr != nil {
			return nil, err
		}
		return c.me(ctx, refreshed)
	}
	return user, err
}

// DashboardStats, hesap istatistiklerini döner.
// Client-side cache: 30 saniye içinde tekrar çağrılırsa API'ye gidilmez.
func (c *Client) DashboardStats(ctx context.Context) (*services.AccountStats, error) {
	if stats, ok := c.statsCache.Get("stats"); ok {
		return stats, nil
	}

	creds, err := c.authedCreds(ctx)
	if err != nil {
		return nil, err
	}

	var stats services.AccountStats
	if err := c.do(ctx, http.MethodGet, "/api/users/me/stats", nil, c.bearer(creds), &stats); err != nil {
		return nil, err
	}

	c.statsCache.Set("stats", &stats)
	return &stats, nil
}

// Logout, server'daki session'ı sonlandırır ve store'ları temizler.
//
// Server çağrısı best-effort'tur: network hatası olsa bile local
// credential'lar HER DURUMDA silinir — kullanıcı "çıkış yap" dediğinde
// çıkmış olmalıdır.
func (c *Client) Logout(ctx context.Context) error {
	creds, _ := c.store.Load()

	if !creds.Empty() {
		body := map[string]string{"session_id": creds.SessionID}
		_ = c.do(ctx, http.MethodPost, "/api/auth/logout", body, "", nil)
	}

	c.statsCache.Clear()
	return c.store.Clear()
}

// ─── Private Helpers ───

// authedCreds, store'dan credential yükler ve gerekiyorsa proaktif refresh yapar.
func (c *Client) authedCreds(ctx context.Context) (*Credentials, error) {
	creds, err := c.store.Load()
	if err != nil || creds.Empty() {
		return nil, ErrNotAuthenticated
	}

	if creds.AccessToken != "" && token.ExpiresSoon(creds.AccessToken, c.refreshMargin) && creds.RefreshToken != "" {
		if refreshed, err := c.refresh(ctx, creds); err == nil {
			return refreshed, nil
		}
	}
	return creds, nil
}

// bearer, Authorization değeri seçer: access token öncelikli, yoksa session id.
func (c *Client) bearer(creds *Credentials) string {
	if creds.AccessToken != "" {
		return creds.AccessToken
	}
	return creds.SessionID
}

// me, verilen credential ile GET /api/users/me çağırır.
func (c *Client) me(ctx context.Context, creds *Credentials) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, http.MethodGet, "/api/users/me", nil, c.bearer(creds), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// refresh, refresh token ile yeni access token alır ve store'u günceller.
func (c *Client) refresh(ctx context.Context, creds *Credentials) (*Credentials, error) {
	body := map[string]string{"refresh_token": creds.RefreshToken}

	var result services.RefreshResult
	if err := c.do(ctx, http.MethodPost, "/api/auth/refresh", body, "", &result); err != nil {
		return nil, err
	}

	updated := &Credentials{
		SessionID:    result.SessionID,
		AccessToken:  result.AccessToken,
		RefreshToken: creds.RefreshToken, // refresh token değişmez
	}
	if err := c.store.Save(updated); err != nil {
		return nil, fmt.Errorf("failed to persist refreshed credentials: %w", err)
	}
	return updated, nil
}

// apiError, server'ın {success:false, error} yanıtını taşır.
type apiError struct {
	StatusCode int
	Message    string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("api error (%d): %s", e.StatusCode, e.Message)
}

func isUnauthorized(err error) bool {
	var ae *apiError
	return errors.As(err, &ae) && ae.StatusCode == http.StatusUnauthorized
}

// do, API çağrısının tek giriş noktası.
//
// Server her zaman {success, data?, error?} zarfı döner — data buradan
// açılıp out'a decode edilir. out nil ise data atlanır.
func (c *Client) do(ctx context.Context, method, path string, body any, bearerToken string, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+bearerToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if !envelope.Success {
		return &apiError{StatusCode: resp.StatusCode, Message: envelope.Error}
	}

	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("failed to decode response data: %w", err)
		}
	}
	return nil
}
