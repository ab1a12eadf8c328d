package database

import (
	"context"
	"database/sql"
	"fmt"

	"afterpay-payment-api/models"
)

// CreatePayment inserts a new payment record together with its properties
// and returns the record with its assigned id.
func (c *Connection) CreatePayment(ctx context.Context, payment *models.PaymentRecord) (*models.PaymentRecord, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO payments (mop_id, status, amount, currency, type, parent_id, unaccountable, received_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, payment.MopID, payment.Status, payment.Amount, payment.Currency,
		payment.Type, payment.ParentID, payment.Unaccountable, payment.ReceivedAt)
	if err != nil {
		return nil, fmt.Errorf("error creating payment: %v", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	payment.ID = int(id)

	for _, prop := range payment.Properties {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO payment_properties (payment_id, kind, value)
			VALUES (?, ?, ?)
		`, payment.ID, prop.Kind, prop.Value); err != nil {
			return nil, fmt.Errorf("error creating payment property: %v", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit payment: %v", err)
	}

	return payment, nil
}

// UpdatePayment persists status, unaccountable flag and the property bag of
// an existing payment. Properties are replaced wholesale; the bag itself is
// append-only in memory.
func (c *Connection) UpdatePayment(ctx context.Context, payment *models.PaymentRecord) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		UPDATE payments
		SET status = ?, unaccountable = ?
		WHERE id = ?
	`, payment.Status, payment.Unaccountable, payment.ID)
	if err != nil {
		return fmt.Errorf("error updating payment %d: %v", payment.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM payment_properties WHERE payment_id = ?`, payment.ID); err != nil {
		return fmt.Errorf("error clearing payment properties: %v", err)
	}
	for _, prop := range payment.Properties {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO payment_properties (payment_id, kind, value)
			VALUES (?, ?, ?)
		`, payment.ID, prop.Kind, prop.Value); err != nil {
			return fmt.Errorf("error writing payment property: %v", err)
		}
	}

	return tx.Commit()
}

// GetPaymentsByOrderID loads every payment linked to the given order,
// including properties.
func (c *Connection) GetPaymentsByOrderID(ctx context.Context, orderID int) ([]*models.PaymentRecord, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT p.id, p.mop_id, p.status, p.amount, p.currency, p.type, p.parent_id, p.unaccountable, p.received_at
		FROM payments p
		JOIN payment_order_relations r ON r.payment_id = p.id
		WHERE r.order_id = ?
		ORDER BY p.id ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("error loading payments for order %d: %v", orderID, err)
	}
	defer rows.Close()

	var payments []*models.PaymentRecord
	for rows.Next() {
		var p models.PaymentRecord
		if err := rows.Scan(&p.ID, &p.MopID, &p.Status, &p.Amount, &p.Currency,
			&p.Type, &p.ParentID, &p.Unaccountable, &p.ReceivedAt); err != nil {
			return nil, err
		}
		payments = append(payments, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, p := range payments {
		props, err := c.loadProperties(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		p.Properties = props
	}

	return payments, nil
}

func (c *Connection) loadProperties(ctx context.Context, paymentID int) ([]models.PaymentProperty, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT kind, value
		FROM payment_properties
		WHERE payment_id = ?
		ORDER BY id ASC
	`, paymentID)
	if err != nil {
		return nil, fmt.Errorf("error loading properties for payment %d: %v", paymentID, err)
	}
	defer rows.Close()

	var props []models.PaymentProperty
	for rows.Next() {
		var prop models.PaymentProperty
		if err := rows.Scan(&prop.Kind, &prop.Value); err != nil {
			return nil, err
		}
		props = append(props, prop)
	}
	return props, rows.Err()
}

// AttachPaymentToOrder links a payment to an order, provided the order
// exists.
func (c *Connection) AttachPaymentToOrder(ctx context.Context, paymentID, orderID int) error {
	var exists bool
	err := c.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM orders WHERE id = ?)`, orderID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("error checking order %d: %v", orderID, err)
	}
	if !exists {
		return fmt.Errorf("order %d not found", orderID)
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO payment_order_relations (payment_id, order_id)
		VALUES (?, ?)
	`, paymentID, orderID)
	if err != nil {
		return fmt.Errorf("error linking payment %d to order %d: %v", paymentID, orderID, err)
	}
	return nil
}

// StatusConstants returns the ledger's payment status codes by name
// (approved, awaiting_approval, refused, completed, ...).
func (c *Connection) StatusConstants(ctx context.Context) (map[string]int, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT name, value FROM payment_statuses`)
	if err != nil {
		return nil, fmt.Errorf("error loading payment status constants: %v", err)
	}
	defer rows.Close()

	constants := make(map[string]int)
	for rows.Next() {
		var name string
		var value int
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		constants[name] = value
	}
	return constants, rows.Err()
}

// MopIDForPaymentKey resolves the method-of-payment id registered in the
// ledger for a payment key (AFTERPAY / AFTERPAYINSTALLMENT).
func (c *Connection) MopIDForPaymentKey(ctx context.Context, paymentKey string) (int, error) {
	var id int
	err := c.db.QueryRowContext(ctx,
		`SELECT id FROM payment_methods WHERE payment_key = ?`, paymentKey).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("no payment method found for key %s", paymentKey)
	}
	if err != nil {
		return 0, fmt.Errorf("error resolving mop id for %s: %v", paymentKey, err)
	}
	return id, nil
}
