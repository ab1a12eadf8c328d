package models

import (
	"fmt"
	"time"
)

// Payment property kinds. A payment carries an append-only list of typed
// key/value pairs; CaptureID must occur at most once per payment.
type PropertyKind int

const (
	PropertyBookingText PropertyKind = iota + 1
	PropertyTransactionID
	PropertyOrigin
	PropertyPaymentText
	PropertyCaptureID
)

// Origin marker for payments created by this integration.
const PaymentOriginPlugin = "plugin"

// PaymentProperty is one entry of the payment property bag.
type PaymentProperty struct {
	Kind  PropertyKind `json:"kind"`
	Value string       `json:"value"`
}

// PaymentRecord is a ledger entry for a provider payment. A refund creates a
// second record of type "debit" linked via ParentID.
type PaymentRecord struct {
	ID            int               `json:"id"`
	MopID         int               `json:"mop_id"`
	Status        int               `json:"status"`
	Amount        float64           `json:"amount"`
	Currency      string            `json:"currency"`
	Type          string            `json:"type,omitempty"`
	ParentID      int               `json:"parent_id,omitempty"`
	Unaccountable bool              `json:"unaccountable"`
	ReceivedAt    time.Time         `json:"received_at"`
	Properties    []PaymentProperty `json:"properties"`
}

// PropertyValue returns the value of the first property of the given kind,
// or an empty string when the payment has none.
func (p *PaymentRecord) PropertyValue(kind PropertyKind) string {
	for _, prop := range p.Properties {
		if prop.Kind == kind {
			return prop.Value
		}
	}
	return ""
}

// AddProperty appends a property to the bag.
func (p *PaymentRecord) AddProperty(kind PropertyKind, value string) {
	p.Properties = append(p.Properties, PaymentProperty{Kind: kind, Value: value})
}

// AddCaptureID attaches the capture number to the payment. The property bag
// admits at most one CaptureID; a second attempt is rejected naming the
// existing capture number.
func (p *PaymentRecord) AddCaptureID(captureNumber string) error {
	if existing := p.PropertyValue(PropertyCaptureID); existing != "" {
		return &ReconciliationError{
			Op:     "capture",
			Reason: fmt.Sprintf("captureNumber %s already exists", existing),
		}
	}
	p.AddProperty(PropertyCaptureID, captureNumber)
	return nil
}
