package payment

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"afterpay-payment-api/models"
	"afterpay-payment-api/services/afterpay"
)

type fakeSessions struct {
	states map[string]*models.CheckoutState
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{states: make(map[string]*models.CheckoutState)}
}

func (f *fakeSessions) Get(ctx context.Context, sessionID string) (*models.CheckoutState, error) {
	if state, ok := f.states[sessionID]; ok {
		return state, nil
	}
	return &models.CheckoutState{}, nil
}

func (f *fakeSessions) Save(ctx context.Context, sessionID string, state *models.CheckoutState) error {
	f.states[sessionID] = state
	return nil
}

func (f *fakeSessions) Clear(ctx context.Context, sessionID string) error {
	delete(f.states, sessionID)
	return nil
}

type fakeShop struct {
	cart       *models.CartSnapshot
	contact    *models.Contact
	addresses  map[int]*models.Address
	countryISO string
	created    []models.Address
}

func (f *fakeShop) GetCart(ctx context.Context, sessionID string) (*models.CartSnapshot, error) {
	return f.cart, nil
}

func (f *fakeShop) GetContact(ctx context.Context, contactID int) (*models.Contact, error) {
	return f.contact, nil
}

func (f *fakeShop) GetAddress(ctx context.Context, addressID int) (*models.Address, error) {
	return f.addresses[addressID], nil
}

func (f *fakeShop) CreateContactAddress(ctx context.Context, contactID int, addr *models.Address) (int, error) {
	f.created = append(f.created, *addr)
	return 100 + len(f.created), nil
}

func (f *fakeShop) CountryISOCode(ctx context.Context, countryID int) (string, error) {
	return f.countryISO, nil
}

type fakeProvider struct {
	authorizeResult *afterpay.AuthorizeResult
	authorizeErr    error
	plans           []afterpay.InstallmentPlan
	voided          []string
}

func (f *fakeProvider) Authorize(ctx context.Context, mode string, countryID int, req *models.AuthorizationRequest) (*afterpay.AuthorizeResult, error) {
	if f.authorizeErr != nil {
		return &afterpay.AuthorizeResult{Raw: f.rawResult()}, f.authorizeErr
	}
	f.authorizeResult.Raw = f.rawResult()
	return f.authorizeResult, nil
}

func (f *fakeProvider) rawResult() json.RawMessage {
	if f.authorizeResult == nil {
		return json.RawMessage(`{}`)
	}
	raw, _ := json.Marshal(f.authorizeResult)
	return raw
}

func (f *fakeProvider) InstallmentPlans(ctx context.Context, mode string, countryID int, amount float64) (*afterpay.InstallmentPlansResult, error) {
	return &afterpay.InstallmentPlansResult{AvailableInstallmentPlans: f.plans}, nil
}

func (f *fakeProvider) Void(ctx context.Context, mode string, countryID int, saleID string) (*afterpay.VoidResult, error) {
	f.voided = append(f.voided, saleID)
	return &afterpay.VoidResult{}, nil
}

type fakeLedger struct {
	nextID   int
	payments []*models.PaymentRecord
	attached map[int]int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{nextID: 1, attached: make(map[int]int)}
}

func (f *fakeLedger) CreatePayment(ctx context.Context, p *models.PaymentRecord) (*models.PaymentRecord, error) {
	p.ID = f.nextID
	f.nextID++
	f.payments = append(f.payments, p)
	return p, nil
}

func (f *fakeLedger) AttachPaymentToOrder(ctx context.Context, paymentID, orderID int) error {
	f.attached[paymentID] = orderID
	return nil
}

func (f *fakeLedger) MopIDForPaymentKey(ctx context.Context, paymentKey string) (int, error) {
	if paymentKey == PaymentKeyInstallment {
		return 61, nil
	}
	return 60, nil
}

func (f *fakeLedger) StatusConstants(ctx context.Context) (map[string]int, error) {
	return map[string]int{
		"approved":          3,
		"awaiting_approval": 4,
		"refused":           5,
		"completed":         6,
	}, nil
}

func newTestOrchestrator(provider *fakeProvider) (*Orchestrator, *fakeSessions, *fakeLedger) {
	sessions := newFakeSessions()
	ledger := newFakeLedger()
	shop := &fakeShop{
		cart:       testCart(),
		contact:    testContact(),
		addresses:  map[int]*models.Address{10: testAddress("DE")},
		countryISO: "DE",
	}
	orchestrator := NewOrchestrator(sessions, shop, provider, ledger, NewStatusMapper(ledger))
	return orchestrator, sessions, ledger
}

func acceptedProvider() *fakeProvider {
	return &fakeProvider{
		authorizeResult: &afterpay.AuthorizeResult{
			Outcome:       afterpay.OutcomeAccepted,
			CheckoutID:    "checkout-1",
			ReservationID: "reservation-1",
		},
	}
}

func prepare(t *testing.T, o *Orchestrator, mode string) string {
	t.Helper()
	redirect, err := o.Prepare(context.Background(), "sess-1", &PrepareInput{
		Mode:      mode,
		Language:  "de",
		IPAddress: "203.0.113.7",
	})
	if err != nil {
		t.Fatalf("Prepare returned error: %v", err)
	}
	return redirect
}

func TestPrepareInvoiceMode(t *testing.T) {
	orchestrator, sessions, _ := newTestOrchestrator(acceptedProvider())

	redirect := prepare(t, orchestrator, models.ModeInvoice)
	if redirect != RedirectCheckoutStep {
		t.Errorf("redirect = %q, want %q", redirect, RedirectCheckoutStep)
	}

	state := sessions.states["sess-1"]
	if state == nil || !state.HasRequest() {
		t.Fatal("prepared request not stored in session")
	}
	if state.MopID != 60 {
		t.Errorf("stored mop id = %d, want the invoice mop id 60", state.MopID)
	}
	if state.PayID != "" {
		t.Errorf("stored payId = %q, want empty before authorize", state.PayID)
	}
	if state.CountryID != 1 {
		t.Errorf("stored country = %d, want 1", state.CountryID)
	}
}

func TestPrepareInstallmentModeRoutesToFinancingOptions(t *testing.T) {
	orchestrator, _, _ := newTestOrchestrator(acceptedProvider())

	redirect := prepare(t, orchestrator, models.ModeInstallment)
	if redirect != RedirectFinancingOptions {
		t.Errorf("redirect = %q, want %q", redirect, RedirectFinancingOptions)
	}
}

func TestAuthorizeWithoutPreparedRequest(t *testing.T) {
	orchestrator, sessions, _ := newTestOrchestrator(acceptedProvider())

	redirect, err := orchestrator.Authorize(context.Background(), "sess-1", models.ModeInvoice)
	if redirect != RedirectCheckout {
		t.Errorf("redirect = %q, want the cancel target %q", redirect, RedirectCheckout)
	}

	var stateErr *models.StateError
	if !errors.As(err, &stateErr) {
		t.Fatalf("error is %T, want *models.StateError", err)
	}
	if _, ok := sessions.states["sess-1"]; ok {
		t.Error("session state not cleared")
	}
}

func TestAuthorizeStoresResponse(t *testing.T) {
	orchestrator, sessions, _ := newTestOrchestrator(acceptedProvider())
	prepare(t, orchestrator, models.ModeInvoice)

	redirect, err := orchestrator.Authorize(context.Background(), "sess-1", models.ModeInvoice)
	if err != nil {
		t.Fatalf("Authorize returned error: %v", err)
	}
	if redirect != RedirectPlaceOrder {
		t.Errorf("redirect = %q, want %q", redirect, RedirectPlaceOrder)
	}

	state := sessions.states["sess-1"]
	if state.OrderNumber == "" {
		t.Error("order number not recorded")
	}
	if state.PayID != "checkout-1" {
		t.Errorf("stored payId = %q, want the provider checkoutId", state.PayID)
	}
	if len(state.Response) == 0 {
		t.Error("authorize response not recorded")
	}
	if state.Request.Payment == nil || state.Request.Payment.Type != "Invoice" {
		t.Errorf("payment block = %+v, want type Invoice", state.Request.Payment)
	}
}

func TestAuthorizeInstallmentRequiresSelection(t *testing.T) {
	orchestrator, _, _ := newTestOrchestrator(acceptedProvider())
	prepare(t, orchestrator, models.ModeInstallment)

	redirect, err := orchestrator.Authorize(context.Background(), "sess-1", models.ModeInstallment)
	if redirect != RedirectCheckout {
		t.Errorf("redirect = %q, want the cancel target %q", redirect, RedirectCheckout)
	}
	var stateErr *models.StateError
	if !errors.As(err, &stateErr) {
		t.Fatalf("error is %T, want *models.StateError", err)
	}
}

func TestAuthorizeInstallmentMergesSelection(t *testing.T) {
	orchestrator, sessions, _ := newTestOrchestrator(acceptedProvider())
	prepare(t, orchestrator, models.ModeInstallment)

	selection := &models.InstallmentSelection{ProfileNo: 2, NumberOfInstallments: 6, InterestRate: 9.9}
	if _, err := orchestrator.SelectInstallmentPlan(context.Background(), "sess-1", selection); err != nil {
		t.Fatalf("SelectInstallmentPlan returned error: %v", err)
	}

	if _, err := orchestrator.Authorize(context.Background(), "sess-1", models.ModeInstallment); err != nil {
		t.Fatalf("Authorize returned error: %v", err)
	}

	payment := sessions.states["sess-1"].Request.Payment
	if payment == nil || payment.Type != "Installment" || payment.Installment.NumberOfInstallments != 6 {
		t.Errorf("payment block = %+v, want installment selection merged in", payment)
	}
}

func TestAuthorizeRejectedStoresNotification(t *testing.T) {
	provider := &fakeProvider{
		authorizeResult: &afterpay.AuthorizeResult{Outcome: afterpay.OutcomeRejected},
	}
	orchestrator, sessions, _ := newTestOrchestrator(provider)
	prepare(t, orchestrator, models.ModeInvoice)

	redirect, err := orchestrator.Authorize(context.Background(), "sess-1", models.ModeInvoice)
	if redirect != RedirectError {
		t.Errorf("redirect = %q, want %q", redirect, RedirectError)
	}

	var providerErr *models.ProviderError
	if !errors.As(err, &providerErr) {
		t.Fatalf("error is %T, want *models.ProviderError", err)
	}
	if sessions.states["sess-1"].Notification == nil {
		t.Error("notification not stored for the error page")
	}
}

func TestConfirmReturnMismatchBehavesLikeCancel(t *testing.T) {
	provider := acceptedProvider()
	orchestrator, sessions, _ := newTestOrchestrator(provider)
	prepare(t, orchestrator, models.ModeInvoice)
	if _, err := orchestrator.Authorize(context.Background(), "sess-1", models.ModeInvoice); err != nil {
		t.Fatalf("Authorize returned error: %v", err)
	}
	orderNumber := sessions.states["sess-1"].OrderNumber

	redirect, err := orchestrator.ConfirmReturn(context.Background(), "sess-1", "wrong-id", models.ModeInvoice)
	if redirect != RedirectCheckout {
		t.Errorf("redirect = %q, want the cancel target %q", redirect, RedirectCheckout)
	}

	var stateErr *models.StateError
	if !errors.As(err, &stateErr) {
		t.Fatalf("error is %T, want *models.StateError", err)
	}
	if _, ok := sessions.states["sess-1"]; ok {
		t.Error("session state not fully cleared")
	}
	if len(provider.voided) != 1 || provider.voided[0] != orderNumber {
		t.Errorf("voided = %v, want the pending authorization %q voided", provider.voided, orderNumber)
	}
}

func TestConfirmReturnAcceptsProviderCheckoutID(t *testing.T) {
	provider := acceptedProvider()
	orchestrator, sessions, _ := newTestOrchestrator(provider)
	prepare(t, orchestrator, models.ModeInvoice)
	if _, err := orchestrator.Authorize(context.Background(), "sess-1", models.ModeInvoice); err != nil {
		t.Fatalf("Authorize returned error: %v", err)
	}

	redirect, err := orchestrator.ConfirmReturn(context.Background(), "sess-1", "checkout-1", models.ModeInvoice)
	if err != nil {
		t.Fatalf("ConfirmReturn returned error: %v", err)
	}
	if redirect != RedirectPlaceOrder {
		t.Errorf("redirect = %q, want %q", redirect, RedirectPlaceOrder)
	}
	if len(provider.voided) != 0 {
		t.Errorf("voided = %v, want no void on a genuine success callback", provider.voided)
	}
	if _, ok := sessions.states["sess-1"]; !ok {
		t.Error("session state cleared on a genuine success callback")
	}
}

func TestConfirmReturnMatchUpsertsCustomer(t *testing.T) {
	provider := acceptedProvider()
	provider.authorizeResult.Customer = &afterpay.ResponseCustomer{
		CustomerNumber: "cust-1",
		AddressList:    []models.Address{*testAddress("DE")},
	}
	sessions := newFakeSessions()
	ledger := newFakeLedger()
	shop := &fakeShop{
		cart:       testCart(),
		contact:    testContact(),
		addresses:  map[int]*models.Address{10: testAddress("DE")},
		countryISO: "DE",
	}
	orchestrator := NewOrchestrator(sessions, shop, provider, ledger, NewStatusMapper(ledger))

	prepare(t, orchestrator, models.ModeInvoice)
	if _, err := orchestrator.Authorize(context.Background(), "sess-1", models.ModeInvoice); err != nil {
		t.Fatalf("Authorize returned error: %v", err)
	}

	redirect, err := orchestrator.ConfirmReturn(context.Background(), "sess-1", "checkout-1", models.ModeInvoice)
	if err != nil {
		t.Fatalf("ConfirmReturn returned error: %v", err)
	}
	if redirect != RedirectPlaceOrder {
		t.Errorf("redirect = %q, want %q", redirect, RedirectPlaceOrder)
	}
	if len(shop.created) != 1 {
		t.Errorf("created %d addresses, want the provider-verified address stored", len(shop.created))
	}
}

func TestExecutePaymentCreatesLedgerRecord(t *testing.T) {
	orchestrator, sessions, ledger := newTestOrchestrator(acceptedProvider())
	prepare(t, orchestrator, models.ModeInvoice)
	if _, err := orchestrator.Authorize(context.Background(), "sess-1", models.ModeInvoice); err != nil {
		t.Fatalf("Authorize returned error: %v", err)
	}
	orderNumber := sessions.states["sess-1"].OrderNumber

	record, err := orchestrator.ExecutePayment(context.Background(), "sess-1", 500)
	if err != nil {
		t.Fatalf("ExecutePayment returned error: %v", err)
	}

	if len(ledger.payments) != 1 {
		t.Fatalf("created %d payments, want exactly one", len(ledger.payments))
	}
	if record.Status != 3 {
		t.Errorf("status = %d, want the approved code", record.Status)
	}
	if record.MopID != 60 {
		t.Errorf("mop id = %d, want the invoice mop id 60", record.MopID)
	}
	if record.Amount != 85.00 || record.Currency != "EUR" {
		t.Errorf("amount/currency = %v/%q, want 85.00/EUR", record.Amount, record.Currency)
	}
	if got := record.PropertyValue(models.PropertyTransactionID); got != orderNumber {
		t.Errorf("TransactionId = %q, want the provider order number %q", got, orderNumber)
	}
	if got := record.PropertyValue(models.PropertyBookingText); got != "ReservationId: reservation-1\nCheckoutId: checkout-1" {
		t.Errorf("BookingText = %q", got)
	}
	if got := record.PropertyValue(models.PropertyOrigin); got != models.PaymentOriginPlugin {
		t.Errorf("Origin = %q, want %q", got, models.PaymentOriginPlugin)
	}
	if got := record.PropertyValue(models.PropertyPaymentText); got != `{"country":1}` {
		t.Errorf("PaymentText = %q", got)
	}
	if ledger.attached[record.ID] != 500 {
		t.Errorf("payment %d not attached to order 500", record.ID)
	}
	if _, ok := sessions.states["sess-1"]; ok {
		t.Error("session state not consumed after payment creation")
	}
}

func TestInstallmentPlansRequirePreparedRequest(t *testing.T) {
	orchestrator, _, _ := newTestOrchestrator(acceptedProvider())

	_, err := orchestrator.InstallmentPlans(context.Background(), "sess-1")
	var stateErr *models.StateError
	if !errors.As(err, &stateErr) {
		t.Fatalf("error is %T, want *models.StateError", err)
	}
}
