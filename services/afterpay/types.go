package afterpay

import (
	"encoding/json"

	"afterpay-payment-api/models"
)

// Authorize outcomes reported by the provider.
const (
	OutcomeAccepted = "Accepted"
	OutcomePending  = "Pending"
	OutcomeRejected = "Rejected"
)

// ResponseCustomer is the customer block the provider reports back after a
// successful authorization.
type ResponseCustomer struct {
	CustomerNumber string           `json:"customerNumber"`
	FirstName      string           `json:"firstName"`
	LastName       string           `json:"lastName"`
	AddressList    []models.Address `json:"addressList"`
}

// AuthorizeResult is the parsed authorize response. Raw keeps the unparsed
// payload for session storage and error-shape probing.
type AuthorizeResult struct {
	Outcome       string            `json:"outcome"`
	CheckoutID    string            `json:"checkoutId"`
	ReservationID string            `json:"reservationId"`
	Customer      *ResponseCustomer `json:"customer"`
	Raw           json.RawMessage   `json:"-"`
}

// SaleDetails is the order status read back from GET /api/v3/orders/{saleId}.
type SaleDetails struct {
	Status        string `json:"status"`
	CheckoutID    string `json:"checkoutId"`
	ReservationID string `json:"reservationId"`
	OrderDetails  struct {
		Number           string  `json:"number"`
		TotalGrossAmount float64 `json:"totalGrossAmount"`
		Currency         string  `json:"currency"`
	} `json:"orderDetails"`
}

// CaptureOrderDetails is the order section of a capture request.
type CaptureOrderDetails struct {
	TotalGrossAmount float64            `json:"totalGrossAmount"`
	Currency         string             `json:"currency"`
	Items            []models.OrderLine `json:"items"`
}

// CaptureRequest confirms the funds of an authorized order.
type CaptureRequest struct {
	InvoiceNumber string              `json:"invoiceNumber"`
	OrderDetails  CaptureOrderDetails `json:"orderDetails"`
}

// CaptureResult carries the capture number on success; Message is only set
// on provider-side failure.
type CaptureResult struct {
	CaptureNumber string `json:"captureNumber"`
	Message       string `json:"message"`
}

// VoidResult reports the amounts remaining after a cancellation.
type VoidResult struct {
	TotalCancelledAmount  float64 `json:"totalCancelledAmount"`
	TotalAuthorizedAmount float64 `json:"totalAuthorizedAmount"`
}

// RefundRequest reverses captured order lines.
type RefundRequest struct {
	CaptureNumber string             `json:"captureNumber"`
	OrderItems    []models.OrderLine `json:"orderItems"`
}

// RefundResult carries the refund references; State is "pending" while the
// provider still processes the refund.
type RefundResult struct {
	RefundNumbers []string `json:"refundNumbers"`
	State         string   `json:"state"`
}

// InstallmentPlan is one financing option for a basket amount.
type InstallmentPlan struct {
	ProfileNo             int     `json:"installmentProfileNumber"`
	NumberOfInstallments  int     `json:"numberOfInstallments"`
	InterestRate          float64 `json:"interestRate"`
	EffectiveInterestRate float64 `json:"effectiveInterestRate"`
	InstallmentAmount     float64 `json:"installmentAmount"`
	TotalAmount           float64 `json:"totalAmount"`
}

// InstallmentPlansResult is the lookup response for available plans.
type InstallmentPlansResult struct {
	AvailableInstallmentPlans []InstallmentPlan `json:"availableInstallmentPlans"`
}
