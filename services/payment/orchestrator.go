package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"afterpay-payment-api/models"
	"afterpay-payment-api/services/afterpay"
)

// Ledger payment keys registered by the host shop, one per mode.
const (
	PaymentKeyInvoice     = "AFTERPAY"
	PaymentKeyInstallment = "AFTERPAYINSTALLMENT"
)

// Redirect targets returned by the orchestrator. The host's checkout frontend
// follows these after each step.
const (
	RedirectCheckoutStep     = "/payment/afterpay/checkout"
	RedirectFinancingOptions = "/payment/afterpay/financing-options"
	RedirectError            = "/payment/afterpay/error"
	RedirectPlaceOrder       = "/place-order"
	RedirectCheckout         = "/checkout"
)

// PaymentKeyForMode returns the ledger payment key for a mode.
func PaymentKeyForMode(mode string) string {
	if mode == models.ModeInstallment {
		return PaymentKeyInstallment
	}
	return PaymentKeyInvoice
}

// SessionStore persists the per-attempt checkout state across the redirect
// round trip.
type SessionStore interface {
	Get(ctx context.Context, sessionID string) (*models.CheckoutState, error)
	Save(ctx context.Context, sessionID string, state *models.CheckoutState) error
	Clear(ctx context.Context, sessionID string) error
}

// ShopReader reads basket and customer snapshots from the host shop.
type ShopReader interface {
	GetCart(ctx context.Context, sessionID string) (*models.CartSnapshot, error)
	GetContact(ctx context.Context, contactID int) (*models.Contact, error)
	GetAddress(ctx context.Context, addressID int) (*models.Address, error)
	CreateContactAddress(ctx context.Context, contactID int, addr *models.Address) (int, error)
	CountryISOCode(ctx context.Context, countryID int) (string, error)
}

// Provider is the subset of the API gateway the orchestrator drives.
type Provider interface {
	Authorize(ctx context.Context, mode string, countryID int, req *models.AuthorizationRequest) (*afterpay.AuthorizeResult, error)
	InstallmentPlans(ctx context.Context, mode string, countryID int, amount float64) (*afterpay.InstallmentPlansResult, error)
	Void(ctx context.Context, mode string, countryID int, saleID string) (*afterpay.VoidResult, error)
}

// Ledger is the payment-record surface of the host shop.
type Ledger interface {
	CreatePayment(ctx context.Context, payment *models.PaymentRecord) (*models.PaymentRecord, error)
	AttachPaymentToOrder(ctx context.Context, paymentID, orderID int) error
	MopIDForPaymentKey(ctx context.Context, paymentKey string) (int, error)
}

// Orchestrator runs one checkout attempt through prepare, authorize and the
// confirm/cancel callbacks. All per-attempt state lives in the session store;
// the orchestrator itself is stateless and safe to share.
type Orchestrator struct {
	sessions SessionStore
	shop     ShopReader
	provider Provider
	ledger   Ledger
	statuses *StatusMapper
	builder  *RequestBuilder
}

func NewOrchestrator(sessions SessionStore, shop ShopReader, provider Provider, ledger Ledger, statuses *StatusMapper) *Orchestrator {
	return &Orchestrator{
		sessions: sessions,
		shop:     shop,
		provider: provider,
		ledger:   ledger,
		statuses: statuses,
		builder:  NewRequestBuilder(),
	}
}

// PrepareInput is the request-scoped context for a prepare call.
type PrepareInput struct {
	Mode       string
	GuestEmail string
	Language   string
	IPAddress  string
}

// Prepare builds and stores the authorization request for the session's
// basket and returns the next redirect target: the confirmation page for
// invoice mode, the financing-options page for installment mode. Validation
// failures return an error and no redirect.
func (o *Orchestrator) Prepare(ctx context.Context, sessionID string, in *PrepareInput) (string, error) {
	cart, err := o.shop.GetCart(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if cart == nil {
		return "", &models.StateError{Reason: "no basket available"}
	}

	var contact *models.Contact
	if cart.ContactID != 0 {
		if contact, err = o.shop.GetContact(ctx, cart.ContactID); err != nil {
			return "", err
		}
	}

	invoiceAddr, err := o.shop.GetAddress(ctx, cart.InvoiceAddressID)
	if err != nil {
		return "", err
	}

	var shippingAddr *models.Address
	if cart.ShippingAddressID != models.InvoiceAddressSentinel &&
		cart.ShippingAddressID != cart.InvoiceAddressID {
		if shippingAddr, err = o.shop.GetAddress(ctx, cart.ShippingAddressID); err != nil {
			return "", err
		}
	}

	shippingCountry, err := o.shop.CountryISOCode(ctx, cart.ShippingCountryID)
	if err != nil {
		return "", err
	}

	req, err := o.builder.Build(&BuildInput{
		Cart:            cart,
		Contact:         contact,
		GuestEmail:      in.GuestEmail,
		InvoiceAddress:  invoiceAddr,
		ShippingAddress: shippingAddr,
		ShippingCountry: shippingCountry,
		Language:        in.Language,
		IPAddress:       in.IPAddress,
	})
	if err != nil {
		return "", err
	}

	mopID, err := o.ledger.MopIDForPaymentKey(ctx, PaymentKeyForMode(in.Mode))
	if err != nil {
		return "", err
	}

	state := &models.CheckoutState{
		MopID:     mopID,
		CountryID: cart.ShippingCountryID,
		Request:   req,
	}
	if err := o.sessions.Save(ctx, sessionID, state); err != nil {
		return "", err
	}

	if in.Mode == models.ModeInstallment {
		return RedirectFinancingOptions, nil
	}
	return RedirectCheckoutStep, nil
}

// InstallmentPlans lists the financing options for the prepared basket
// amount.
func (o *Orchestrator) InstallmentPlans(ctx context.Context, sessionID string) ([]afterpay.InstallmentPlan, error) {
	state, err := o.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !state.HasRequest() {
		return nil, &models.StateError{Reason: "no active request"}
	}

	result, err := o.provider.InstallmentPlans(ctx, models.ModeInstallment,
		state.CountryID, state.Request.Order.TotalGrossAmount)
	if err != nil {
		return nil, err
	}
	return result.AvailableInstallmentPlans, nil
}

// SelectInstallmentPlan stores the shopper's plan choice and routes back to
// the confirmation step.
func (o *Orchestrator) SelectInstallmentPlan(ctx context.Context, sessionID string, selection *models.InstallmentSelection) (string, error) {
	state, err := o.sessions.Get(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if !state.HasRequest() {
		return "", &models.StateError{Reason: "no active request"}
	}

	state.Installment = selection
	if err := o.sessions.Save(ctx, sessionID, state); err != nil {
		return "", err
	}
	return RedirectCheckoutStep, nil
}

// Authorize merges the mode-specific payment block into the stored request
// and POSTs it to the provider. A missing stored request routes to the cancel
// path; provider rejections store a notification and route to the error page.
func (o *Orchestrator) Authorize(ctx context.Context, sessionID, mode string) (string, error) {
	state, err := o.sessions.Get(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if !state.HasRequest() {
		redirect, _ := o.Cancel(ctx, sessionID, mode)
		return redirect, &models.StateError{Reason: "no active request"}
	}

	req := state.Request
	if mode == models.ModeInstallment {
		if state.Installment == nil {
			redirect, _ := o.Cancel(ctx, sessionID, mode)
			return redirect, &models.StateError{Reason: "no installment plan selected"}
		}
		req.Payment = &models.PaymentBlock{Type: "Installment", Installment: state.Installment}
	} else {
		req.Payment = &models.PaymentBlock{Type: "Invoice"}
	}

	result, err := o.provider.Authorize(ctx, mode, state.CountryID, req)
	if err != nil {
		var raw json.RawMessage
		if result != nil {
			raw = result.Raw
		}
		return o.failWith(ctx, sessionID, state, err.Error(), raw), err
	}

	if perr := afterpay.ExtractError(result.Raw); perr != nil {
		return o.failWith(ctx, sessionID, state, perr.Error(), result.Raw), perr
	}
	if result.Outcome == afterpay.OutcomeRejected {
		perr := &models.ProviderError{Code: "Rejected", Message: "payment authorization rejected"}
		return o.failWith(ctx, sessionID, state, perr.Error(), result.Raw), perr
	}

	state.PayID = result.CheckoutID
	state.OrderNumber = req.Order.Number
	state.Response = result.Raw
	state.Notification = nil
	if err := o.sessions.Save(ctx, sessionID, state); err != nil {
		return "", err
	}

	log.Printf("Authorization %s for order %s (outcome %s)", result.CheckoutID, state.OrderNumber, result.Outcome)
	return RedirectPlaceOrder, nil
}

// failWith stores a user-facing notification for the error page and returns
// its redirect target.
func (o *Orchestrator) failWith(ctx context.Context, sessionID string, state *models.CheckoutState, message string, debug json.RawMessage) string {
	state.Notification = &models.Notification{Message: message, Debug: debug}
	if err := o.sessions.Save(ctx, sessionID, state); err != nil {
		log.Printf("Failed to store checkout notification: %v", err)
	}
	return RedirectError
}

// ConfirmReturn handles the success callback. The provider echoes back the
// checkoutId recorded at authorize time; anything else is handled exactly
// like an explicit cancel. On a match
// the customer block reported by the provider is written back to the host
// address book.
func (o *Orchestrator) ConfirmReturn(ctx context.Context, sessionID, returnedPaymentID, mode string) (string, error) {
	state, err := o.sessions.Get(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if returnedPaymentID == "" || returnedPaymentID != state.PayID {
		redirect, _ := o.Cancel(ctx, sessionID, mode)
		return redirect, &models.StateError{
			Reason: fmt.Sprintf("payment id %q does not match session", returnedPaymentID),
		}
	}

	o.upsertCustomer(ctx, sessionID, state)
	return RedirectPlaceOrder, nil
}

// upsertCustomer writes the provider-verified addresses back to the host
// address book. Failures here never block order placement.
func (o *Orchestrator) upsertCustomer(ctx context.Context, sessionID string, state *models.CheckoutState) {
	if len(state.Response) == 0 {
		return
	}

	var result afterpay.AuthorizeResult
	if err := json.Unmarshal(state.Response, &result); err != nil || result.Customer == nil {
		return
	}

	contactID := 0
	if cart, err := o.shop.GetCart(ctx, sessionID); err == nil && cart != nil {
		contactID = cart.ContactID
	}

	for i := range result.Customer.AddressList {
		if _, err := o.shop.CreateContactAddress(ctx, contactID, &result.Customer.AddressList[i]); err != nil {
			log.Printf("Failed to store verified address for contact %d: %v", contactID, err)
		}
	}
}

// Cancel voids any in-flight authorization (best effort), wipes the session
// state and routes back to checkout.
func (o *Orchestrator) Cancel(ctx context.Context, sessionID, mode string) (string, error) {
	state, err := o.sessions.Get(ctx, sessionID)
	if err != nil {
		log.Printf("Failed to load checkout state on cancel: %v", err)
	}

	if state != nil && state.OrderNumber != "" {
		if _, err := o.provider.Void(ctx, mode, state.CountryID, state.OrderNumber); err != nil {
			log.Printf("Void of order %s on cancel failed: %v", state.OrderNumber, err)
		}
	}

	if err := o.sessions.Clear(ctx, sessionID); err != nil {
		return "", err
	}
	return RedirectCheckout, nil
}

// ExecutePayment turns the stored authorize response into a ledger payment
// record, links it to the placed order and consumes the session state.
func (o *Orchestrator) ExecutePayment(ctx context.Context, sessionID string, orderID int) (*models.PaymentRecord, error) {
	state, err := o.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !state.HasRequest() || len(state.Response) == 0 {
		return nil, &models.StateError{Reason: "no authorized payment in session"}
	}

	var result afterpay.AuthorizeResult
	if err := json.Unmarshal(state.Response, &result); err != nil {
		return nil, fmt.Errorf("error parsing stored authorize response: %v", err)
	}

	status, err := o.statuses.ForOutcome(ctx, result.Outcome)
	if err != nil {
		return nil, err
	}
	if state.MopID == 0 {
		return nil, &models.StateError{Reason: "no payment method in session"}
	}

	record := &models.PaymentRecord{
		MopID:      state.MopID,
		Status:     status,
		Amount:     state.Request.Order.TotalGrossAmount,
		Currency:   state.Request.Order.Currency,
		ReceivedAt: time.Now(),
	}
	record.AddProperty(models.PropertyBookingText,
		fmt.Sprintf("ReservationId: %s\nCheckoutId: %s", result.ReservationID, result.CheckoutID))
	record.AddProperty(models.PropertyTransactionID, state.OrderNumber)
	record.AddProperty(models.PropertyOrigin, models.PaymentOriginPlugin)
	record.AddProperty(models.PropertyPaymentText, fmt.Sprintf(`{"country":%d}`, state.CountryID))

	created, err := o.ledger.CreatePayment(ctx, record)
	if err != nil {
		return nil, err
	}
	if err := o.ledger.AttachPaymentToOrder(ctx, created.ID, orderID); err != nil {
		return nil, err
	}

	if err := o.sessions.Clear(ctx, sessionID); err != nil {
		log.Printf("Failed to clear checkout state after payment %d: %v", created.ID, err)
	}

	log.Printf("Created payment %d for order %d (status %d)", created.ID, orderID, status)
	return created, nil
}
