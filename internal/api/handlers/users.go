package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-chat/internal/api/middleware"
	"github.com/dvloznov/finance-chat/internal/domain"
)

// ProfileStore is the subset of the profile store the admin API needs.
type ProfileStore interface {
	Get(ctx context.Context, userID string) (*domain.UserProfile, error)
	Save(ctx context.Context, profile *domain.UserProfile) error
	Delete(ctx context.Context, userID string) error
}

// UsersHandler handles the profile administration endpoints.
type UsersHandler struct {
	profiles ProfileStore
	log      zerolog.Logger
}

// NewUsersHandler creates a new users handler.
func NewUsersHandler(profiles ProfileStore, log zerolog.Logger) *UsersHandler {
	return &UsersHandler{profiles: profiles, log: log}
}

// profileUpdate is the PUT body. Nil fields are left unchanged.
type profileUpdate struct {
	DisplayName       *string   `json:"display_name"`
	PreferredLanguage *string   `json:"preferred_language"`
	DefaultAccount    *string   `json:"default_account"`
	DefaultCurrency   *string   `json:"default_currency"`
	DefaultFund       *string   `json:"default_fund"`
	Accounts          *[]string `json:"accounts"`
	Funds             *[]string `json:"funds"`
	LinkedUsers       *[]string `json:"linked_users"`
	Instructions      *[]string `json:"instructions"`
	OnboardingState   *string   `json:"onboarding_state"`
	Debug             *bool     `json:"debug"`
}

// GetUser handles GET /api/users/{id}
func (h *UsersHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.load(w, r)
	if !ok {
		return
	}
	middleware.WriteJSON(w, http.StatusOK, profile.WithEmptyLists())
}

// UpdateUser handles PUT /api/users/{id}
func (h *UsersHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req profileUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.OnboardingState != nil && !domain.OnboardingState(*req.OnboardingState).Valid() {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid onboarding_state")
		return
	}

	profile, ok := h.load(w, r)
	if !ok {
		return
	}

	if req.DisplayName != nil {
		profile.DisplayName = strings.TrimSpace(*req.DisplayName)
	}
	if req.PreferredLanguage != nil {
		profile.PreferredLanguage = strings.TrimSpace(*req.PreferredLanguage)
	}
	if req.DefaultAccount != nil {
		profile.DefaultAccount = domain.NormalizeCode(*req.DefaultAccount)
	}
	if req.DefaultCurrency != nil {
		profile.DefaultCurrency = domain.NormalizeCode(*req.DefaultCurrency)
	}
	if req.DefaultFund != nil {
		profile.DefaultFund = domain.NormalizeCode(*req.DefaultFund)
	}
	if req.Accounts != nil {
		profile.Accounts = normalizeNames(*req.Accounts)
	}
	if req.Funds != nil {
		profile.Funds = normalizeNames(*req.Funds)
	}
	if req.LinkedUsers != nil {
		profile.LinkedUsers = append([]string{}, *req.LinkedUsers...)
	}
	if req.Instructions != nil {
		profile.Instructions = append([]string{}, *req.Instructions...)
	}
	if req.OnboardingState != nil {
		profile.OnboardingState = domain.OnboardingState(*req.OnboardingState)
	}
	if req.Debug != nil {
		profile.Debug = *req.Debug
	}

	h.save(w, r, profile, http.StatusOK)
}

// DeleteUser handles DELETE /api/users/{id}
func (h *UsersHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if err := h.profiles.Delete(r.Context(), userID); err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to delete user")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to delete user")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateDefaults handles PATCH /api/users/{id}/defaults
func (h *UsersHandler) UpdateDefaults(w http.ResponseWriter, r *http.Request) {
	var req domain.SetAsDefault
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	profile, ok := h.load(w, r)
	if !ok {
		return
	}

	if v := domain.NormalizeCode(req.Account); v != "" {
		profile.DefaultAccount = v
	}
	if v := domain.NormalizeCode(req.Currency); v != "" {
		profile.DefaultCurrency = v
	}
	if v := domain.NormalizeCode(req.Fund); v != "" {
		profile.DefaultFund = v
	}

	h.save(w, r, profile, http.StatusOK)
}

// AddInstruction handles POST /api/users/{id}/instructions
func (h *UsersHandler) AddInstruction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		middleware.WriteError(w, http.StatusBadRequest, "text is required")
		return
	}

	profile, ok := h.load(w, r)
	if !ok {
		return
	}
	profile.AddInstruction(text)

	h.save(w, r, profile, http.StatusCreated)
}

// RemoveInstruction handles DELETE /api/users/{id}/instructions/{index}
func (h *UsersHandler) RemoveInstruction(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "index must be an integer")
		return
	}

	profile, ok := h.load(w, r)
	if !ok {
		return
	}
	if _, removed := profile.RemoveInstruction(index); !removed {
		middleware.WriteError(w, http.StatusNotFound, "Instruction not found")
		return
	}

	h.save(w, r, profile, http.StatusOK)
}

// AddAccount handles POST /api/users/{id}/accounts
func (h *UsersHandler) AddAccount(w http.ResponseWriter, r *http.Request) {
	h.addName(w, r, (*domain.UserProfile).AddAccount)
}

// AddFund handles POST /api/users/{id}/funds
func (h *UsersHandler) AddFund(w http.ResponseWriter, r *http.Request) {
	h.addName(w, r, (*domain.UserProfile).AddFund)
}

func (h *UsersHandler) addName(w http.ResponseWriter, r *http.Request, add func(*domain.UserProfile, string) bool) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	name := domain.NormalizeName(req.Name)
	if name == "" {
		middleware.WriteError(w, http.StatusBadRequest, "name is required")
		return
	}

	profile, ok := h.load(w, r)
	if !ok {
		return
	}
	add(profile, name)

	h.save(w, r, profile, http.StatusCreated)
}

func (h *UsersHandler) load(w http.ResponseWriter, r *http.Request) (*domain.UserProfile, bool) {
	userID := chi.URLParam(r, "id")
	profile, err := h.profiles.Get(r.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to load user")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to load user")
		return nil, false
	}
	return profile, true
}

func (h *UsersHandler) save(w http.ResponseWriter, r *http.Request, profile *domain.UserProfile, status int) {
	if err := h.profiles.Save(r.Context(), profile); err != nil {
		h.log.Error().Err(err).Str("user_id", profile.UserID).Msg("Failed to save user")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to save user")
		return
	}
	middleware.WriteJSON(w, status, profile.WithEmptyLists())
}

func normalizeNames(names []string) []string {
	out := []string{}
	for _, n := range names {
		if v := domain.NormalizeName(n); v != "" && !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}
