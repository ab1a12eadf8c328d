package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"afterpay-payment-api/models"
	"afterpay-payment-api/utils"
)

// FinancingOptions lists the installment plans available for the prepared
// basket amount.
func (h *CheckoutHandler) FinancingOptions(w http.ResponseWriter, r *http.Request) {
	sessionID, err := h.sessionID(w, r)
	if err != nil {
		utils.SendErrorResponse(w, http.StatusInternalServerError, "session error")
		return
	}

	plans, err := h.orchestrator.InstallmentPlans(r.Context(), sessionID)
	if err != nil {
		log.Printf("Installment plan lookup failed for session %s: %v", sessionID, err)
		respondDomainError(w, err)
		return
	}

	utils.SendSuccessResponse(w, "installment plans", plans)
}

// SelectFinancingOption stores the shopper's plan choice and routes back to
// the confirmation step.
func (h *CheckoutHandler) SelectFinancingOption(w http.ResponseWriter, r *http.Request) {
	sessionID, err := h.sessionID(w, r)
	if err != nil {
		utils.SendErrorResponse(w, http.StatusInternalServerError, "session error")
		return
	}

	var selection models.InstallmentSelection
	if err := json.NewDecoder(r.Body).Decode(&selection); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if selection.ProfileNo == 0 || selection.NumberOfInstallments == 0 {
		utils.SendErrorResponse(w, http.StatusBadRequest, "incomplete installment selection")
		return
	}

	redirect, err := h.orchestrator.SelectInstallmentPlan(r.Context(), sessionID, &selection)
	if err != nil {
		log.Printf("Installment selection failed for session %s: %v", sessionID, err)
		respondDomainError(w, err)
		return
	}

	utils.SendSuccessResponse(w, "plan selected", map[string]string{"redirect": redirect})
}
