package models

import "time"

// Contact classification type ids used by the host shop.
var customerClassifications = map[int]string{
	1: "CUSTOMER",
	2: "SALES_LEAD",
	3: "SALES_REPRESENTATIVE",
	4: "SUPPLIER",
	5: "PRODUCER",
	6: "PARTNER",
}

// CustomerClassificationName maps a host contact type id to the provider's
// classification enum. Unmapped ids yield an empty string.
func CustomerClassificationName(typeID int) string {
	return customerClassifications[typeID]
}

// Contact is a registered customer account in the host shop.
type Contact struct {
	ID                    int        `json:"id"`
	FirstName             string     `json:"first_name"`
	LastName              string     `json:"last_name"`
	Gender                string     `json:"gender"`
	Email                 string     `json:"email"`
	BirthdayAt            *time.Time `json:"birthday_at"`
	CreatedAt             time.Time  `json:"created_at"`
	TypeID                int        `json:"type_id"`
	NewsletterAllowanceAt *time.Time `json:"newsletter_allowance_at"`
}

// Address is a postal address from the host address book.
type Address struct {
	ID          int    `json:"id"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Street      string `json:"street"`
	HouseNumber string `json:"streetNumber"`
	Additional  string `json:"streetNumberAdditional"`
	PostalCode  string `json:"postalCode"`
	Town        string `json:"postalPlace"`
	CountryCode string `json:"countryCode"`
}

// RiskData is only populated for customers shipping to the provider's home
// market.
type RiskData struct {
	ExistingCustomer       bool   `json:"existingCustomer"`
	MarketingOptIn         bool   `json:"marketingOptIn,omitempty"`
	CustomerSince          string `json:"customerSince,omitempty"`
	CustomerClassification string `json:"customerClassification,omitempty"`
	IPAddress              string `json:"ipAddress,omitempty"`
}

// CustomerBlock is the customer section of an authorization request.
type CustomerBlock struct {
	FirstName            string    `json:"firstName"`
	LastName             string    `json:"lastName"`
	Salutation           string    `json:"salutation"`
	Email                string    `json:"email"`
	BirthDate            string    `json:"birthDate,omitempty"`
	ConversationLanguage string    `json:"conversationLanguage"`
	CustomerCategory     string    `json:"customerCategory"`
	Address              *Address  `json:"address,omitempty"`
	RiskData             *RiskData `json:"riskData,omitempty"`
}
