package models

import (
	"errors"
	"strings"
	"testing"
)

func TestPropertyValue(t *testing.T) {
	p := &PaymentRecord{}
	p.AddProperty(PropertyTransactionID, "abc-123")
	p.AddProperty(PropertyOrigin, PaymentOriginPlugin)

	if got := p.PropertyValue(PropertyTransactionID); got != "abc-123" {
		t.Errorf("PropertyValue(TransactionID) = %q, want %q", got, "abc-123")
	}
	if got := p.PropertyValue(PropertyCaptureID); got != "" {
		t.Errorf("PropertyValue(CaptureID) = %q, want empty", got)
	}
}

func TestAddCaptureIDOnce(t *testing.T) {
	p := &PaymentRecord{}

	if err := p.AddCaptureID("cap-1"); err != nil {
		t.Fatalf("first AddCaptureID returned error: %v", err)
	}
	if got := p.PropertyValue(PropertyCaptureID); got != "cap-1" {
		t.Fatalf("PropertyValue(CaptureID) = %q, want %q", got, "cap-1")
	}
}

func TestAddCaptureIDRejectsSecond(t *testing.T) {
	p := &PaymentRecord{}
	if err := p.AddCaptureID("cap-1"); err != nil {
		t.Fatalf("first AddCaptureID returned error: %v", err)
	}

	err := p.AddCaptureID("cap-2")
	if err == nil {
		t.Fatal("second AddCaptureID succeeded, want error")
	}

	var recErr *ReconciliationError
	if !errors.As(err, &recErr) {
		t.Fatalf("second AddCaptureID returned %T, want *ReconciliationError", err)
	}
	if !strings.Contains(recErr.Reason, "cap-1") {
		t.Errorf("error %q does not name the existing capture number", recErr.Reason)
	}
	if got := p.PropertyValue(PropertyCaptureID); got != "cap-1" {
		t.Errorf("PropertyValue(CaptureID) = %q after rejected add, want %q", got, "cap-1")
	}
}

func TestCustomerClassificationName(t *testing.T) {
	tests := []struct {
		typeID int
		want   string
	}{
		{1, "CUSTOMER"},
		{2, "SALES_LEAD"},
		{3, "SALES_REPRESENTATIVE"},
		{4, "SUPPLIER"},
		{5, "PRODUCER"},
		{6, "PARTNER"},
		{0, ""},
		{7, ""},
	}

	for _, tt := range tests {
		if got := CustomerClassificationName(tt.typeID); got != tt.want {
			t.Errorf("CustomerClassificationName(%d) = %q, want %q", tt.typeID, got, tt.want)
		}
	}
}
