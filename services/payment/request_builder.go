package payment

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"afterpay-payment-api/models"
	"afterpay-payment-api/utils"
)

// Per-country field requirements for the authorization request. Countries not
// listed require nothing beyond the base fields.
var (
	salutationCountries = map[string]bool{"DE": true, "DK": true, "NL": true, "BE": true, "AT": true, "CH": true}
	emailCountries      = map[string]bool{"DE": true, "DK": true, "NL": true, "BE": true, "AT": true, "CH": true, "SE": true}
	birthDateCountries  = map[string]bool{"DE": true, "DK": true, "NL": true, "BE": true, "AT": true}
	streetAddCountries  = map[string]bool{"NL": true}
)

// BuildInput carries everything the builder needs to assemble one
// authorization request. Contact is nil for guest checkouts; ShippingAddress
// is nil when the basket points at the invoice address sentinel.
// ShippingCountry is the ISO code of the basket's shipping country; when
// empty, the address country codes decide the per-country rules.
type BuildInput struct {
	Cart            *models.CartSnapshot
	Contact         *models.Contact
	GuestEmail      string
	InvoiceAddress  *models.Address
	ShippingAddress *models.Address
	ShippingCountry string
	Language        string
	IPAddress       string
}

// RequestBuilder assembles authorization requests from basket and customer
// state. It is stateless; every call generates a fresh order number.
type RequestBuilder struct{}

func NewRequestBuilder() *RequestBuilder {
	return &RequestBuilder{}
}

// Build maps the basket into the provider's authorization payload and
// validates it against the per-country field rules. Validation failures are
// aggregated into one error naming every violated field.
func (b *RequestBuilder) Build(in *BuildInput) (*models.AuthorizationRequest, error) {
	if in.Cart == nil {
		return nil, &models.StateError{Reason: "no basket available"}
	}
	if in.InvoiceAddress == nil {
		return nil, &models.StateError{Reason: "no invoice address available"}
	}

	req := &models.AuthorizationRequest{
		Customer: b.buildCustomer(in),
		Order: models.OrderBlock{
			Number:           uuid.New().String(),
			TotalGrossAmount: utils.Round(in.Cart.BasketAmount),
			TotalNetAmount:   utils.Round(in.Cart.BasketAmountNet),
			Currency:         in.Cart.Currency,
			Items:            b.buildItems(in.Cart),
		},
	}

	if in.ShippingAddress != nil {
		delivery := b.buildCustomer(in)
		delivery.Address = b.mapAddress(in.ShippingAddress)
		delivery.FirstName = in.ShippingAddress.FirstName
		delivery.LastName = in.ShippingAddress.LastName
		req.DeliveryCustomer = &delivery
	}

	if err := b.validate(req, in); err != nil {
		return nil, err
	}
	return req, nil
}

// buildItems maps every basket position and, when shipping costs apply,
// appends a synthetic shipping line. The shipping VAT rate is derived from
// the basket totals because the basket does not store it.
func (b *RequestBuilder) buildItems(cart *models.CartSnapshot) []models.OrderLine {
	items := make([]models.OrderLine, 0, len(cart.Items)+1)

	for _, line := range cart.Items {
		net := utils.NetFromGross(line.GrossPrice, line.VatPercent)
		items = append(items, models.OrderLine{
			ProductID:   strconv.Itoa(line.VariationID),
			Description: line.Name,
			GrossPrice:  utils.Round(line.GrossPrice),
			NetPrice:    net,
			VatPercent:  line.VatPercent,
			VatAmount:   utils.Round(line.GrossPrice - net),
			Quantity:    line.Quantity,
			ImageURL:    line.ImageURL,
		})
	}

	if cart.ShippingAmount > 0 {
		gross := utils.Round(cart.ShippingAmount)
		net := utils.Round(cart.ShippingAmountNet)
		items = append(items, models.OrderLine{
			ProductID:   models.ShippingProductID,
			Description: "Shipping costs",
			GrossPrice:  gross,
			NetPrice:    net,
			VatPercent:  utils.VatPercentFromTotals(cart.BasketAmount, cart.BasketAmountNet),
			VatAmount:   utils.Round(gross - net),
			Quantity:    1,
		})
	}

	return items
}

func (b *RequestBuilder) buildCustomer(in *BuildInput) models.CustomerBlock {
	customer := models.CustomerBlock{
		ConversationLanguage: strings.ToUpper(in.Language),
		CustomerCategory:     "Person",
		Address:              b.mapAddress(in.InvoiceAddress),
	}

	if in.Contact != nil && in.Contact.ID != 0 {
		customer.FirstName = in.Contact.FirstName
		customer.LastName = in.Contact.LastName
		customer.Email = in.Contact.Email
		customer.Salutation = salutationForGender(in.Contact.Gender)
		if in.Contact.BirthdayAt != nil {
			customer.BirthDate = in.Contact.BirthdayAt.Format("2006-01-02")
		}
	} else {
		customer.FirstName = in.InvoiceAddress.FirstName
		customer.LastName = in.InvoiceAddress.LastName
		customer.Email = in.GuestEmail
	}

	if b.shippingCountryISO(in) == "DE" {
		customer.RiskData = b.buildRiskData(in)
	}

	return customer
}

func (b *RequestBuilder) mapAddress(addr *models.Address) *models.Address {
	mapped := *addr
	mapped.ID = 0
	return &mapped
}

// buildRiskData is only called for the provider's home market.
func (b *RequestBuilder) buildRiskData(in *BuildInput) *models.RiskData {
	risk := &models.RiskData{IPAddress: in.IPAddress}

	if in.Contact != nil && in.Contact.ID != 0 {
		risk.ExistingCustomer = true
		risk.MarketingOptIn = in.Contact.NewsletterAllowanceAt != nil
		risk.CustomerSince = in.Contact.CreatedAt.Format("2006-01-02")
		risk.CustomerClassification = models.CustomerClassificationName(in.Contact.TypeID)
	}

	return risk
}

func (b *RequestBuilder) shippingCountryISO(in *BuildInput) string {
	if in.ShippingCountry != "" {
		return in.ShippingCountry
	}
	if in.ShippingAddress != nil {
		return in.ShippingAddress.CountryCode
	}
	return in.InvoiceAddress.CountryCode
}

// validate checks the assembled request against the per-country field rules,
// aggregating every violation into one error.
func (b *RequestBuilder) validate(req *models.AuthorizationRequest, in *BuildInput) error {
	country := strings.ToUpper(b.shippingCountryISO(in))
	var fields []string

	if req.Customer.FirstName == "" {
		fields = append(fields, "firstName is required")
	}
	if req.Customer.LastName == "" {
		fields = append(fields, "lastName is required")
	}
	if salutationCountries[country] && req.Customer.Salutation == "" {
		fields = append(fields, fmt.Sprintf("salutation is required for %s", country))
	}
	if emailCountries[country] && req.Customer.Email == "" {
		fields = append(fields, fmt.Sprintf("email is required for %s", country))
	}
	if birthDateCountries[country] && req.Customer.BirthDate == "" {
		fields = append(fields, fmt.Sprintf("birthDate is required for %s", country))
	}
	if streetAddCountries[country] && req.Customer.Address != nil &&
		req.Customer.Address.Additional == "" {
		fields = append(fields, fmt.Sprintf("streetNumberAdditional is required for %s", country))
	}

	if len(fields) > 0 {
		return &models.ValidationError{Fields: fields}
	}
	return nil
}

func salutationForGender(gender string) string {
	switch strings.ToLower(gender) {
	case "male":
		return "Mr"
	case "female":
		return "Mrs"
	default:
		return ""
	}
}
