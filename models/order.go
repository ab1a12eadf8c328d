package models

// Order line as sent to the provider. vatAmount must always equal
// grossUnitPrice - netUnitPrice after 2-decimal rounding.
type OrderLine struct {
	ProductID   string  `json:"productId"`
	Description string  `json:"description"`
	GrossPrice  float64 `json:"grossUnitPrice"`
	NetPrice    float64 `json:"netUnitPrice"`
	VatPercent  float64 `json:"vatPercent"`
	VatAmount   float64 `json:"vatAmount"`
	Quantity    float64 `json:"quantity"`
	ImageURL    string  `json:"imageUrl,omitempty"`
}

// CartLine is a single basket position from the host shop.
type CartLine struct {
	VariationID int     `json:"variation_id"`
	Name        string  `json:"name"`
	GrossPrice  float64 `json:"gross_price"`
	VatPercent  float64 `json:"vat_percent"`
	Quantity    float64 `json:"quantity"`
	ImageURL    string  `json:"image_url,omitempty"`
}

// CartSnapshot is the basket state read from the host shop at prepare time.
type CartSnapshot struct {
	WebstoreID        int        `json:"webstore_id"`
	ContactID         int        `json:"contact_id"` // 0 = guest checkout
	Currency          string     `json:"currency"`
	BasketAmount      float64    `json:"basket_amount"`
	BasketAmountNet   float64    `json:"basket_amount_net"`
	ShippingAmount    float64    `json:"shipping_amount"`
	ShippingAmountNet float64    `json:"shipping_amount_net"`
	ShippingCountryID int        `json:"shipping_country_id"`
	InvoiceAddressID  int        `json:"invoice_address_id"`
	ShippingAddressID int        `json:"shipping_address_id"`
	Items             []CartLine `json:"items"`
}

// Host order types relevant for reconciliation.
const (
	OrderTypeSale       = 1
	OrderTypeCreditNote = 4
)

// OrderItemSnapshot is one position of a placed order.
type OrderItemSnapshot struct {
	VariationID int     `json:"variation_id"`
	Name        string  `json:"name"`
	GrossPrice  float64 `json:"gross_price"`
	NetPrice    float64 `json:"net_price"`
	Quantity    float64 `json:"quantity"`
}

// OrderSnapshot is a placed order (sale or credit note) read from the host
// shop. OriginOrderID links a credit note to the order it reverses.
type OrderSnapshot struct {
	ID            int                 `json:"id"`
	TypeID        int                 `json:"type_id"`
	OriginOrderID int                 `json:"origin_order_id"`
	Amount        float64             `json:"amount"`
	Currency      string              `json:"currency"`
	Items         []OrderItemSnapshot `json:"items"`
}

// IsSale reports whether the order is a primary sale order.
func (o *OrderSnapshot) IsSale() bool {
	return o.TypeID == OrderTypeSale
}
