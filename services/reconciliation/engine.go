package reconciliation

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"afterpay-payment-api/models"
	"afterpay-payment-api/services/afterpay"
	"afterpay-payment-api/services/payment"
	"afterpay-payment-api/utils"
)

// Ledger is the payment-record surface the engine reconciles against.
type Ledger interface {
	GetPaymentsByOrderID(ctx context.Context, orderID int) ([]*models.PaymentRecord, error)
	UpdatePayment(ctx context.Context, p *models.PaymentRecord) error
	CreatePayment(ctx context.Context, p *models.PaymentRecord) (*models.PaymentRecord, error)
	AttachPaymentToOrder(ctx context.Context, paymentID, orderID int) error
	MopIDForPaymentKey(ctx context.Context, paymentKey string) (int, error)
}

// Provider is the subset of the API gateway the engine drives.
type Provider interface {
	Capture(ctx context.Context, mode string, countryID int, saleID string, req *afterpay.CaptureRequest) (*afterpay.CaptureResult, error)
	Void(ctx context.Context, mode string, countryID int, saleID string) (*afterpay.VoidResult, error)
	Refund(ctx context.Context, mode string, countryID int, saleID string, req *afterpay.RefundRequest) (*afterpay.RefundResult, error)
	SaleDetails(ctx context.Context, mode string, countryID int, saleID string) (*afterpay.SaleDetails, error)
}

// Engine performs the post-order operations: capture, void and refund. Every
// operation resolves the sale order first, then reconciles each plugin-owned
// payment on it. Precondition violations fail hard and are never retried.
type Engine struct {
	orders   OrderStore
	ledger   Ledger
	provider Provider
	statuses *payment.StatusMapper

	mopOnce        sync.Once
	invoiceMop     int
	installmentMop int
	mopErr         error
}

func NewEngine(orders OrderStore, ledger Ledger, provider Provider, statuses *payment.StatusMapper) *Engine {
	return &Engine{
		orders:   orders,
		ledger:   ledger,
		provider: provider,
		statuses: statuses,
	}
}

func (e *Engine) loadMops(ctx context.Context) error {
	e.mopOnce.Do(func() {
		if e.invoiceMop, e.mopErr = e.ledger.MopIDForPaymentKey(ctx, payment.PaymentKeyInvoice); e.mopErr != nil {
			return
		}
		e.installmentMop, e.mopErr = e.ledger.MopIDForPaymentKey(ctx, payment.PaymentKeyInstallment)
	})
	return e.mopErr
}

// modeForPayment maps a payment's method-of-payment id back to the API mode.
// Payments of other methods yield an empty mode and are skipped.
func (e *Engine) modeForPayment(ctx context.Context, p *models.PaymentRecord) (string, error) {
	if err := e.loadMops(ctx); err != nil {
		return "", err
	}
	switch p.MopID {
	case e.invoiceMop:
		return models.ModeInvoice, nil
	case e.installmentMop:
		return models.ModeInstallment, nil
	}
	return "", nil
}

// countryForPayment recovers the shipping country stored in the payment's
// PaymentText property at checkout time.
func countryForPayment(p *models.PaymentRecord) (int, error) {
	text := p.PropertyValue(models.PropertyPaymentText)
	if text == "" {
		return 0, &models.ReconciliationError{Op: "resolve",
			Reason: fmt.Sprintf("payment %d has no country information", p.ID)}
	}

	var payload struct {
		Country int `json:"country"`
	}
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return 0, &models.ReconciliationError{Op: "resolve",
			Reason: fmt.Sprintf("payment %d has malformed country information: %v", p.ID, err)}
	}
	return payload.Country, nil
}

// ownPayments filters an order's payments down to the ones this integration
// created, paired with their API mode.
func (e *Engine) ownPayments(ctx context.Context, orderID int) ([]*models.PaymentRecord, []string, error) {
	all, err := e.ledger.GetPaymentsByOrderID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}

	var payments []*models.PaymentRecord
	var modes []string
	for _, p := range all {
		if p.PropertyValue(models.PropertyOrigin) != models.PaymentOriginPlugin {
			continue
		}
		mode, err := e.modeForPayment(ctx, p)
		if err != nil {
			return nil, nil, err
		}
		if mode == "" {
			continue
		}
		payments = append(payments, p)
		modes = append(modes, mode)
	}
	return payments, modes, nil
}

func transactionID(op string, p *models.PaymentRecord) (string, error) {
	txID := p.PropertyValue(models.PropertyTransactionID)
	if txID == "" {
		return "", &models.ReconciliationError{Op: op,
			Reason: fmt.Sprintf("payment %d has no transaction id", p.ID)}
	}
	return txID, nil
}

// Capture confirms the funds of every plugin payment on the sale order behind
// the event order. A payment already carrying a capture number fails hard,
// naming it.
func (e *Engine) Capture(ctx context.Context, eventOrderID int) error {
	sale, err := ResolveSaleOrder(ctx, e.orders, eventOrderID)
	if err != nil {
		return err
	}

	payments, modes, err := e.ownPayments(ctx, sale.ID)
	if err != nil {
		return err
	}

	for i, p := range payments {
		txID, err := transactionID("capture", p)
		if err != nil {
			return err
		}
		country, err := countryForPayment(p)
		if err != nil {
			return err
		}

		result, err := e.provider.Capture(ctx, modes[i], country, txID, &afterpay.CaptureRequest{
			InvoiceNumber: strconv.Itoa(sale.ID),
			OrderDetails: afterpay.CaptureOrderDetails{
				TotalGrossAmount: sale.Amount,
				Currency:         sale.Currency,
			},
		})
		if err != nil {
			return err
		}
		if result.CaptureNumber == "" {
			return &models.ProviderError{Code: "capture_failed", Message: result.Message}
		}

		if err := p.AddCaptureID(result.CaptureNumber); err != nil {
			return err
		}
		if err := e.ledger.UpdatePayment(ctx, p); err != nil {
			return err
		}
		log.Printf("Captured payment %d for order %d (capture %s)", p.ID, sale.ID, result.CaptureNumber)
	}
	return nil
}

// Void cancels the un-captured authorization of every plugin payment on the
// sale order. A captured payment cannot be voided.
func (e *Engine) Void(ctx context.Context, eventOrderID int) error {
	sale, err := ResolveSaleOrder(ctx, e.orders, eventOrderID)
	if err != nil {
		return err
	}

	payments, modes, err := e.ownPayments(ctx, sale.ID)
	if err != nil {
		return err
	}

	for i, p := range payments {
		if capture := p.PropertyValue(models.PropertyCaptureID); capture != "" {
			return &models.ReconciliationError{Op: "void",
				Reason: fmt.Sprintf("payment %d already captured with captureNumber %s", p.ID, capture)}
		}
		txID, err := transactionID("void", p)
		if err != nil {
			return err
		}
		country, err := countryForPayment(p)
		if err != nil {
			return err
		}

		result, err := e.provider.Void(ctx, modes[i], country, txID)
		if err != nil {
			return err
		}

		if result.TotalAuthorizedAmount != 0 {
			status, err := e.statuses.Completed(ctx)
			if err != nil {
				return err
			}
			p.Unaccountable = true
			p.Status = status
			if err := e.ledger.UpdatePayment(ctx, p); err != nil {
				return err
			}
		}
		log.Printf("Voided payment %d for order %d (remaining authorized %.2f)",
			p.ID, sale.ID, result.TotalAuthorizedAmount)
	}
	return nil
}

// Refund reverses the captured amount of the event order, line by line. The
// refunded items come from the event order itself (usually a credit note);
// the payments live on the sale order behind it. A payment without a capture
// number fails before any provider call.
func (e *Engine) Refund(ctx context.Context, eventOrderID int) error {
	event, err := e.orders.GetOrder(ctx, eventOrderID)
	if err != nil {
		return err
	}
	if event == nil {
		return &models.ReconciliationError{Op: "refund",
			Reason: fmt.Sprintf("invalid order %d: not found", eventOrderID)}
	}

	sale, err := ResolveSaleOrder(ctx, e.orders, eventOrderID)
	if err != nil {
		return err
	}

	payments, modes, err := e.ownPayments(ctx, sale.ID)
	if err != nil {
		return err
	}

	for i, p := range payments {
		captureNumber := p.PropertyValue(models.PropertyCaptureID)
		if captureNumber == "" {
			return &models.ReconciliationError{Op: "refund",
				Reason: fmt.Sprintf("payment %d has no capture to refund", p.ID)}
		}
		txID, err := transactionID("refund", p)
		if err != nil {
			return err
		}
		country, err := countryForPayment(p)
		if err != nil {
			return err
		}

		result, err := e.provider.Refund(ctx, modes[i], country, txID, &afterpay.RefundRequest{
			CaptureNumber: captureNumber,
			OrderItems:    refundItems(event),
		})
		if err != nil {
			return err
		}

		debit := &models.PaymentRecord{
			MopID:         p.MopID,
			Status:        p.Status,
			Amount:        event.Amount,
			Currency:      event.Currency,
			Type:          "debit",
			ParentID:      p.ID,
			Unaccountable: strings.EqualFold(result.State, "pending"),
			ReceivedAt:    time.Now(),
		}
		debit.AddProperty(models.PropertyOrigin, models.PaymentOriginPlugin)
		debit.AddProperty(models.PropertyTransactionID, txID)
		debit.AddProperty(models.PropertyBookingText,
			"RefundNumbers: "+strings.Join(result.RefundNumbers, ", "))

		created, err := e.ledger.CreatePayment(ctx, debit)
		if err != nil {
			return err
		}

		if details, err := e.provider.SaleDetails(ctx, modes[i], country, txID); err != nil {
			log.Printf("Failed to refresh sale details for payment %d: %v", p.ID, err)
		} else {
			status, err := e.statuses.ForOutcome(ctx, details.Status)
			if err != nil {
				return err
			}
			p.Status = status
			if err := e.ledger.UpdatePayment(ctx, p); err != nil {
				return err
			}
		}

		if len(result.RefundNumbers) > 0 {
			if err := e.ledger.AttachPaymentToOrder(ctx, created.ID, event.ID); err != nil {
				return err
			}
		}
		log.Printf("Refunded payment %d for order %d (refunds %v)", p.ID, sale.ID, result.RefundNumbers)
	}
	return nil
}

// refundItems maps the event order's items into refund lines. The provider
// identifies refunded products by the variation id behind an underscore.
func refundItems(order *models.OrderSnapshot) []models.OrderLine {
	items := make([]models.OrderLine, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, models.OrderLine{
			ProductID:   "_" + strconv.Itoa(item.VariationID),
			Description: item.Name,
			GrossPrice:  utils.Round(item.GrossPrice),
			NetPrice:    utils.Round(item.NetPrice),
			VatPercent:  utils.VatPercentFromTotals(item.GrossPrice, item.NetPrice),
			VatAmount:   utils.Round(item.GrossPrice - item.NetPrice),
			Quantity:    item.Quantity,
		})
	}
	return items
}
