package models

// Payment modes offered by the provider. Each mode has its own settings row
// and API credentials.
const (
	ModeInvoice     = "invoice"
	ModeInstallment = "installment"
)

// Reserved product id for the synthetic shipping-cost order line.
const ShippingProductID = "0"

// Address id sentinel meaning "deliver to the invoice address".
const InvoiceAddressSentinel = -99

// OrderBlock is the order section of an authorization request. The number is
// generated fresh for every checkout attempt and becomes the provider-side
// order identifier.
type OrderBlock struct {
	Number           string      `json:"number"`
	TotalGrossAmount float64     `json:"totalGrossAmount"`
	TotalNetAmount   float64     `json:"totalNetAmount"`
	Currency         string      `json:"currency"`
	Items            []OrderLine `json:"items"`
}

// InstallmentSelection is the financing plan the shopper picked during the
// installment sub-step.
type InstallmentSelection struct {
	ProfileNo            int     `json:"profileNo"`
	NumberOfInstallments int     `json:"numberOfInstallments"`
	InterestRate         float64 `json:"customerInterestRate"`
}

// PaymentBlock selects the payment variant on authorize.
type PaymentBlock struct {
	Type        string                `json:"type"`
	Installment *InstallmentSelection `json:"installment,omitempty"`
}

// AuthorizationRequest is the full payload POSTed to the provider's
// authorize endpoint. It is built once per checkout attempt and is immutable
// once persisted to the session.
type AuthorizationRequest struct {
	Customer         CustomerBlock  `json:"customer"`
	DeliveryCustomer *CustomerBlock `json:"deliveryCustomer,omitempty"`
	Order            OrderBlock     `json:"order"`
	Payment          *PaymentBlock  `json:"payment,omitempty"`
}
