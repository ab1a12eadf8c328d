package afterpay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"afterpay-payment-api/models"
)

type staticResolver struct {
	creds *Credentials
}

func (r *staticResolver) Credentials(ctx context.Context, mode string, countryID int) (*Credentials, error) {
	return r.creds, nil
}

func newTestClient(server *httptest.Server) *Client {
	return NewClient(&staticResolver{creds: &Credentials{
		BaseURL:  server.URL,
		XAuthKey: "test-key",
	}})
}

func TestAuthorizeSendsHeadersAndPath(t *testing.T) {
	var gotPath, gotAuth, gotContentType string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("X-Auth-Key")
		gotContentType = r.Header.Get("Content-Type")
		json.NewEncoder(w).Encode(map[string]string{
			"outcome":       "Accepted",
			"checkoutId":    "c-1",
			"reservationId": "r-1",
		})
	}))
	defer server.Close()

	client := newTestClient(server)
	result, err := client.Authorize(context.Background(), models.ModeInvoice, 1, &models.AuthorizationRequest{})
	if err != nil {
		t.Fatalf("Authorize returned error: %v", err)
	}

	if gotPath != "/api/v3/checkout/authorize" {
		t.Errorf("path = %q, want /api/v3/checkout/authorize", gotPath)
	}
	if gotAuth != "test-key" {
		t.Errorf("X-Auth-Key = %q, want test-key", gotAuth)
	}
	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", gotContentType)
	}
	if result.Outcome != OutcomeAccepted || result.CheckoutID != "c-1" {
		t.Errorf("result = %+v, want Accepted/c-1", result)
	}
	if len(result.Raw) == 0 {
		t.Error("result.Raw is empty, want raw payload")
	}
}

func TestInstallmentPlansQuery(t *testing.T) {
	var gotQuery string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("amount")
		json.NewEncoder(w).Encode(InstallmentPlansResult{
			AvailableInstallmentPlans: []InstallmentPlan{{ProfileNo: 1, NumberOfInstallments: 6}},
		})
	}))
	defer server.Close()

	client := newTestClient(server)
	result, err := client.InstallmentPlans(context.Background(), models.ModeInstallment, 1, 123.45)
	if err != nil {
		t.Fatalf("InstallmentPlans returned error: %v", err)
	}

	if gotQuery != "123.45" {
		t.Errorf("amount query = %q, want 123.45", gotQuery)
	}
	if len(result.AvailableInstallmentPlans) != 1 {
		t.Fatalf("got %d plans, want 1", len(result.AvailableInstallmentPlans))
	}
}

func TestProviderErrorOnRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":"400.104","message":"address invalid"}`))
	}))
	defer server.Close()

	client := newTestClient(server)
	_, err := client.SaleDetails(context.Background(), models.ModeInvoice, 1, "order-1")
	if err == nil {
		t.Fatal("SaleDetails succeeded, want error")
	}

	var providerErr *models.ProviderError
	if !errors.As(err, &providerErr) {
		t.Fatalf("error is %T, want *models.ProviderError", err)
	}
	if providerErr.Code != "400.104" {
		t.Errorf("code = %q, want 400.104", providerErr.Code)
	}
}

func TestCapturePostsToOrderPath(t *testing.T) {
	var gotPath string
	var gotBody CaptureRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(CaptureResult{CaptureNumber: "cap-9"})
	}))
	defer server.Close()

	client := newTestClient(server)
	result, err := client.Capture(context.Background(), models.ModeInvoice, 1, "order-7", &CaptureRequest{
		InvoiceNumber: "42",
		OrderDetails:  CaptureOrderDetails{TotalGrossAmount: 45.00, Currency: "EUR"},
	})
	if err != nil {
		t.Fatalf("Capture returned error: %v", err)
	}

	if gotPath != "/api/v3/orders/order-7/captures" {
		t.Errorf("path = %q, want /api/v3/orders/order-7/captures", gotPath)
	}
	if gotBody.InvoiceNumber != "42" || gotBody.OrderDetails.TotalGrossAmount != 45.00 {
		t.Errorf("body = %+v, want invoiceNumber 42 and amount 45.00", gotBody)
	}
	if result.CaptureNumber != "cap-9" {
		t.Errorf("capture number = %q, want cap-9", result.CaptureNumber)
	}
}

func TestStripsByteOrderMark(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(append([]byte{0xEF, 0xBB, 0xBF}, []byte(`{"status":"Accepted"}`)...))
	}))
	defer server.Close()

	client := newTestClient(server)
	details, err := client.SaleDetails(context.Background(), models.ModeInvoice, 1, "order-1")
	if err != nil {
		t.Fatalf("SaleDetails returned error: %v", err)
	}
	if details.Status != "Accepted" {
		t.Errorf("status = %q, want Accepted from the BOM-prefixed body", details.Status)
	}
}

func TestUnconfiguredCountry(t *testing.T) {
	client := NewClient(&staticResolver{creds: nil})

	_, err := client.SaleDetails(context.Background(), models.ModeInvoice, 99, "order-1")
	if err == nil {
		t.Fatal("SaleDetails succeeded for unconfigured country, want error")
	}

	var providerErr *models.ProviderError
	if !errors.As(err, &providerErr) {
		t.Fatalf("error is %T, want *models.ProviderError", err)
	}
	if providerErr.Code != "no_settings" {
		t.Errorf("code = %q, want no_settings", providerErr.Code)
	}
}
