package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"

	"afterpay-payment-api/config"
	"afterpay-payment-api/models"
	"afterpay-payment-api/services/payment"
	"afterpay-payment-api/services/settings"
	"afterpay-payment-api/utils"
)

const sessionCookieName = "afterpay-session"

// CheckoutHandler exposes the checkout flow: prepare, the confirmation and
// error pages, authorize, the success and cancel callbacks, and payment
// execution after order placement. The browser session id travels in a
// cookie; all checkout state lives behind it in the session store.
type CheckoutHandler struct {
	orchestrator *payment.Orchestrator
	resolver     *settings.Resolver
	sessions     payment.SessionStore
	store        *sessions.CookieStore
}

func NewCheckoutHandler(orchestrator *payment.Orchestrator, resolver *settings.Resolver, sessionStore payment.SessionStore, cfg *config.Config) *CheckoutHandler {
	store := sessions.NewCookieStore([]byte(cfg.Session.Secret))
	store.Options = &sessions.Options{
		Path:     "/",
		Domain:   cfg.Session.Domain,
		MaxAge:   cfg.Session.MaxAge,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return &CheckoutHandler{
		orchestrator: orchestrator,
		resolver:     resolver,
		sessions:     sessionStore,
		store:        store,
	}
}

// sessionID returns the browser's checkout session id, minting one on first
// contact.
func (h *CheckoutHandler) sessionID(w http.ResponseWriter, r *http.Request) (string, error) {
	session, err := h.store.Get(r, sessionCookieName)
	if err != nil {
		// A stale or tampered cookie gets replaced, not rejected.
		log.Printf("Error reading session cookie: %v", err)
	}

	id, ok := session.Values["id"].(string)
	if !ok || id == "" {
		id = uuid.New().String()
		session.Values["id"] = id
		if err := session.Save(r, w); err != nil {
			return "", err
		}
	}
	return id, nil
}

func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		parts := strings.Split(ip, ",")
		return strings.TrimSpace(parts[0])
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}

// respondDomainError maps the error taxonomy onto HTTP codes. Validation
// problems are caller-fixable, state problems route to cancel, provider
// problems surface the customer-facing message.
func respondDomainError(w http.ResponseWriter, err error) {
	var validationErr *models.ValidationError
	var stateErr *models.StateError
	var providerErr *models.ProviderError

	switch {
	case errors.As(err, &validationErr):
		utils.SendErrorResponse(w, http.StatusUnprocessableEntity, validationErr.Error())
	case errors.As(err, &stateErr):
		utils.SendErrorResponse(w, http.StatusConflict, stateErr.Error())
	case errors.As(err, &providerErr):
		utils.SendErrorResponse(w, http.StatusBadGateway, providerErr.Error())
	default:
		utils.SendErrorResponse(w, http.StatusInternalServerError, "internal error")
	}
}

type prepareRequest struct {
	Mode       string `json:"mode"`
	GuestEmail string `json:"guestEmail"`
	Language   string `json:"language"`
}

// Prepare builds the authorization request for the session's basket and
// returns the next redirect target.
func (h *CheckoutHandler) Prepare(w http.ResponseWriter, r *http.Request) {
	sessionID, err := h.sessionID(w, r)
	if err != nil {
		utils.SendErrorResponse(w, http.StatusInternalServerError, "session error")
		return
	}

	var req prepareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Mode != models.ModeInvoice && req.Mode != models.ModeInstallment {
		utils.SendErrorResponse(w, http.StatusBadRequest, "unknown payment mode")
		return
	}

	redirect, err := h.orchestrator.Prepare(r.Context(), sessionID, &payment.PrepareInput{
		Mode:       req.Mode,
		GuestEmail: req.GuestEmail,
		Language:   req.Language,
		IPAddress:  clientIP(r),
	})
	if err != nil {
		log.Printf("Prepare failed for session %s: %v", sessionID, err)
		respondDomainError(w, err)
		return
	}

	utils.SendSuccessResponse(w, "prepared", map[string]string{"redirect": redirect})
}

// Authorize submits the stored request to the provider and reports the next
// redirect target.
func (h *CheckoutHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	sessionID, err := h.sessionID(w, r)
	if err != nil {
		utils.SendErrorResponse(w, http.StatusInternalServerError, "session error")
		return
	}

	mode := r.URL.Query().Get("mode")
	if mode == "" {
		mode = models.ModeInvoice
	}

	redirect, err := h.orchestrator.Authorize(r.Context(), sessionID, mode)
	if err != nil {
		log.Printf("Authorize failed for session %s: %v", sessionID, err)
		if redirect != "" {
			utils.SendSuccessResponse(w, "redirect", map[string]string{"redirect": redirect})
			return
		}
		respondDomainError(w, err)
		return
	}

	utils.SendSuccessResponse(w, "authorized", map[string]string{"redirect": redirect})
}

// Confirmation serves the stored checkout state for the confirmation page.
func (h *CheckoutHandler) Confirmation(w http.ResponseWriter, r *http.Request) {
	sessionID, err := h.sessionID(w, r)
	if err != nil {
		utils.SendErrorResponse(w, http.StatusInternalServerError, "session error")
		return
	}

	state, err := h.sessions.Get(r.Context(), sessionID)
	if err != nil {
		utils.SendErrorResponse(w, http.StatusInternalServerError, "failed to load checkout state")
		return
	}
	if !state.HasRequest() {
		utils.SendErrorResponse(w, http.StatusNotFound, "no active checkout")
		return
	}

	utils.SendSuccessResponse(w, "checkout", map[string]interface{}{
		"order":       state.Request.Order,
		"installment": state.Installment,
	})
}

// ErrorPage serves the stored notification after a failed authorization.
func (h *CheckoutHandler) ErrorPage(w http.ResponseWriter, r *http.Request) {
	sessionID, err := h.sessionID(w, r)
	if err != nil {
		utils.SendErrorResponse(w, http.StatusInternalServerError, "session error")
		return
	}

	state, err := h.sessions.Get(r.Context(), sessionID)
	if err != nil {
		utils.SendErrorResponse(w, http.StatusInternalServerError, "failed to load checkout state")
		return
	}
	if state.Notification == nil {
		utils.SendErrorResponse(w, http.StatusNotFound, "no stored notification")
		return
	}

	utils.SendSuccessResponse(w, "error", state.Notification)
}

// ConfirmReturn is the success callback. The payment id in the query is
// checked against the stored one; mismatches cancel the attempt.
func (h *CheckoutHandler) ConfirmReturn(w http.ResponseWriter, r *http.Request) {
	sessionID, err := h.sessionID(w, r)
	if err != nil {
		utils.SendErrorResponse(w, http.StatusInternalServerError, "session error")
		return
	}

	mode := r.URL.Query().Get("type")
	if mode == "" {
		mode = models.ModeInvoice
	}

	redirect, err := h.orchestrator.ConfirmReturn(r.Context(), sessionID,
		r.URL.Query().Get("paymentId"), mode)
	if err != nil {
		log.Printf("Confirm return rejected for session %s: %v", sessionID, err)
	}

	http.Redirect(w, r, redirect, http.StatusFound)
}

// Cancel is the cancel callback: void the pending authorization and wipe the
// attempt.
func (h *CheckoutHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	sessionID, err := h.sessionID(w, r)
	if err != nil {
		utils.SendErrorResponse(w, http.StatusInternalServerError, "session error")
		return
	}

	mode := mux.Vars(r)["mode"]
	redirect, err := h.orchestrator.Cancel(r.Context(), sessionID, mode)
	if err != nil {
		log.Printf("Cancel failed for session %s: %v", sessionID, err)
		utils.SendErrorResponse(w, http.StatusInternalServerError, "failed to cancel checkout")
		return
	}

	http.Redirect(w, r, redirect, http.StatusFound)
}

type executeRequest struct {
	OrderID int `json:"orderId"`
}

// Execute creates the ledger payment for a placed order from the stored
// authorize response.
func (h *CheckoutHandler) Execute(w http.ResponseWriter, r *http.Request) {
	sessionID, err := h.sessionID(w, r)
	if err != nil {
		utils.SendErrorResponse(w, http.StatusInternalServerError, "session error")
		return
	}

	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OrderID == 0 {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid order id")
		return
	}

	record, err := h.orchestrator.ExecutePayment(r.Context(), sessionID, req.OrderID)
	if err != nil {
		log.Printf("Execute payment failed for order %d: %v", req.OrderID, err)
		respondDomainError(w, err)
		return
	}

	utils.SendSuccessResponse(w, "payment created", record)
}

// Availability reports whether a mode may be offered for a basket amount in
// a country, with the configured display texts.
func (h *CheckoutHandler) Availability(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	mode := query.Get("mode")
	countryID := utils.Atoi(query.Get("country"))
	amount := utils.ParseAmount(query.Get("amount"))
	lang := query.Get("lang")

	available, err := h.resolver.MethodAvailable(r.Context(), mode, countryID, amount)
	if err != nil {
		utils.SendErrorResponse(w, http.StatusInternalServerError, "failed to evaluate availability")
		return
	}

	response := map[string]interface{}{"available": available}
	if available {
		cfg, err := h.resolver.Resolve(r.Context(), mode, countryID)
		if err == nil && cfg != nil {
			response["title"] = cfg.Title(lang)
			response["description"] = cfg.Description(lang)
			response["logo"] = cfg.Logo
		}
	}

	utils.SendSuccessResponse(w, "availability", response)
}
