package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"afterpay-payment-api/middleware"
	"afterpay-payment-api/models"
	"afterpay-payment-api/services/auth"
	"afterpay-payment-api/services/settings"
	"afterpay-payment-api/utils"
)

// SettingsHandler exposes the merchant configuration API. Everything except
// token issuance sits behind the JWT middleware.
type SettingsHandler struct {
	resolver       *settings.Resolver
	jwtService     *auth.JWTService
	internalSecret string
}

func NewSettingsHandler(resolver *settings.Resolver, jwtService *auth.JWTService, internalSecret string) *SettingsHandler {
	return &SettingsHandler{
		resolver:       resolver,
		jwtService:     jwtService,
		internalSecret: internalSecret,
	}
}

type tokenRequest struct {
	Merchant string `json:"merchant"`
}

// GenerateToken exchanges the shared internal secret for a short-lived
// bearer token. The host shop's backend is the only caller.
func (h *SettingsHandler) GenerateToken(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("X-Internal-Secret") != h.internalSecret || h.internalSecret == "" {
		utils.SendErrorResponse(w, http.StatusUnauthorized, "invalid internal secret")
		return
	}

	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Merchant == "" {
		utils.SendErrorResponse(w, http.StatusBadRequest, "merchant is required")
		return
	}

	token, err := h.jwtService.GenerateToken(req.Merchant, auth.TokenDuration)
	if err != nil {
		log.Printf("Token generation failed for %s: %v", req.Merchant, err)
		utils.SendErrorResponse(w, http.StatusInternalServerError, "failed to generate token")
		return
	}

	utils.SendSuccessResponse(w, "token generated", map[string]string{"token": token})
}

// Get returns the settings for one (mode, country) combination.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	mode := vars["mode"]
	countryID := utils.Atoi(vars["country"])

	result, err := h.resolver.Resolve(r.Context(), mode, countryID)
	if err != nil {
		utils.SendErrorResponse(w, http.StatusInternalServerError, "failed to load settings")
		return
	}
	if result == nil {
		utils.SendErrorResponse(w, http.StatusNotFound, "no settings for this country")
		return
	}

	utils.SendSuccessResponse(w, "settings", result)
}

// List returns every configured country for a mode.
func (h *SettingsHandler) List(w http.ResponseWriter, r *http.Request) {
	mode := mux.Vars(r)["mode"]

	result, err := h.resolver.ListByMode(r.Context(), mode)
	if err != nil {
		utils.SendErrorResponse(w, http.StatusInternalServerError, "failed to list settings")
		return
	}

	utils.SendSuccessResponse(w, "settings", result)
}

// Save upserts the settings for one (mode, country) combination.
func (h *SettingsHandler) Save(w http.ResponseWriter, r *http.Request) {
	var payload models.Settings
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Mode != models.ModeInvoice && payload.Mode != models.ModeInstallment {
		utils.SendErrorResponse(w, http.StatusBadRequest, "unknown payment mode")
		return
	}
	if payload.CountryID == 0 {
		utils.SendErrorResponse(w, http.StatusBadRequest, "country is required")
		return
	}

	if err := h.resolver.Save(r.Context(), &payload); err != nil {
		log.Printf("Saving settings for %s/%d failed: %v", payload.Mode, payload.CountryID, err)
		utils.SendErrorResponse(w, http.StatusInternalServerError, "failed to save settings")
		return
	}

	log.Printf("Settings saved by %s for %s/%d",
		middleware.MerchantFromContext(r.Context()), payload.Mode, payload.CountryID)
	utils.SendSuccessResponse(w, "settings saved", &payload)
}
