package handlers

import (
	"net/http"
	"time"

	"github.com/neonship/neon-server/models"
	"github.com/neonship/neon-server/pkg"
	"github.com/neonship/neon-server/services"
)

// StatsHandler, hesap istatistikleri ve health endpoint'leri.
type StatsHandler struct {
	authService services.AuthService
	startedAt   time.Time
}

// NewStatsHandler, constructor.
func NewStatsHandler(authService services.AuthService) *StatsHandler {
	return &StatsHandler{
		authService: authService,
		startedAt:   time.Now(),
	}
}

// AccountStats godoc
// GET /api/users/me/stats
// Auth middleware gerektirir.
// Client dashboard açılışında prefetch eder ve kısa süreli cache'ler.
func (h *StatsHandler) AccountStats(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	stats, err := h.authService.AccountStats(r.Context(), user.ID)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, stats)
}

// Health godoc
// GET /api/health
// Auth gerektirmez — load balancer / uptime monitör için.
func (h *StatsHandler) Health(w http.ResponseWriter, r *http.Request) {
	pkg.JSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"uptime_seconds": int(time.Since(h.startedAt).Seconds()),
	})
}
