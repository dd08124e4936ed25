package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/neonship/neon-server/models"
	"github.com/neonship/neon-server/pkg"
	"github.com/neonship/neon-server/repository"
)

// ProfileHandler, kullanıcı profil endpoint'lerini yönetir.
// Profil işlemleri saf CRUD olduğu için service katmanı yerine doğrudan
// repository kullanır — araya boş bir passthrough service koymaya değmez.
type ProfileHandler struct {
	userRepo repository.UserRepository
}

// NewProfileHandler, constructor.
func NewProfileHandler(userRepo repository.UserRepository) *ProfileHandler {
	return &ProfileHandler{userRepo: userRepo}
}

// Me godoc
// GET /api/users/me
// Auth middleware gerektirir — context'te user bilgisi olur.
func (h *ProfileHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	pkg.JSON(w, http.StatusOK, user)
}

// UpdateProfile godoc
// PATCH /api/users/me/profile
// Body: alanlardan herhangi bir alt küme — nil olanlar değişmez.
//
// Email boş string'e çekilirse NULL yazılır ve email_verified sıfırlanır
// (repository'de). Telefon numarası bu endpoint'ten DEĞİŞTİRİLEMEZ —
// telefon kimliktir, değişimi ayrı bir OTP akışı gerektirir.
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	var req models.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := req.Validate(); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.userRepo.UpdateProfile(r.Context(), user.ID, &req); err != nil {
		pkg.Error(w, err)
		return
	}

	updated, err := h.userRepo.GetByID(r.Context(), user.ID)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, updated)
}
