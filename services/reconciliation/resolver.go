package reconciliation

import (
	"context"
	"fmt"

	"afterpay-payment-api/models"
)

// Order events may fire on a credit note up to two levels below the sale
// order that carries the payments.
const maxAncestryDepth = 2

// OrderStore reads order snapshots from the host shop.
type OrderStore interface {
	GetOrder(ctx context.Context, orderID int) (*models.OrderSnapshot, error)
}

// ResolveSaleOrder walks the origin-order chain of an event order until it
// finds the originating sale order. The walk is bounded; running out of depth
// or links fails with "invalid order".
func ResolveSaleOrder(ctx context.Context, orders OrderStore, orderID int) (*models.OrderSnapshot, error) {
	order, err := orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	for depth := 0; depth <= maxAncestryDepth; depth++ {
		if order == nil {
			break
		}
		if order.IsSale() {
			return order, nil
		}
		if order.OriginOrderID == 0 {
			break
		}
		if order, err = orders.GetOrder(ctx, order.OriginOrderID); err != nil {
			return nil, err
		}
	}

	return nil, &models.ReconciliationError{
		Op:     "resolve",
		Reason: fmt.Sprintf("invalid order %d: no sale order ancestor", orderID),
	}
}
