package models

import "encoding/json"

// Notification is a user-facing error stored for the error page, keeping the
// raw provider payload for debugging.
type Notification struct {
	Message string          `json:"message"`
	Debug   json.RawMessage `json:"debug,omitempty"`
}

// CheckoutState is the per-attempt checkout context. It lives in the session
// store for the duration of one checkout attempt and survives the redirect
// round trip to the provider. Cancel clears every field.
//
// PayID is the provider's checkoutId, recorded at authorize time; the success
// callback echoes it back. MopID is the host ledger's method-of-payment id.
type CheckoutState struct {
	PayID        string                `json:"pay_id"`
	MopID        int                   `json:"mop_id"`
	OrderNumber  string                `json:"order_number"`
	CountryID    int                   `json:"country_id"`
	Request      *AuthorizationRequest `json:"request,omitempty"`
	Response     json.RawMessage       `json:"response,omitempty"`
	Installment  *InstallmentSelection `json:"installment,omitempty"`
	Notification *Notification         `json:"notification,omitempty"`
}

// HasRequest reports whether a prepared authorization request is stored.
func (s *CheckoutState) HasRequest() bool {
	return s != nil && s.Request != nil
}
