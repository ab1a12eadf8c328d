package database

import (
	"context"
	"database/sql"
	"fmt"

	"afterpay-payment-api/models"
)

// GetOrder loads one placed order with its items.
func (c *Connection) GetOrder(ctx context.Context, orderID int) (*models.OrderSnapshot, error) {
	var order models.OrderSnapshot
	var origin sql.NullInt64

	err := c.db.QueryRowContext(ctx, `
		SELECT id, type_id, origin_order_id, amount, currency
		FROM orders
		WHERE id = ?
	`, orderID).Scan(&order.ID, &order.TypeID, &origin, &order.Amount, &order.Currency)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error loading order %d: %v", orderID, err)
	}
	if origin.Valid {
		order.OriginOrderID = int(origin.Int64)
	}

	rows, err := c.db.QueryContext(ctx, `
		SELECT variation_id, name, price_gross, price_net, quantity
		FROM order_items
		WHERE order_id = ?
		ORDER BY id ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("error loading items for order %d: %v", orderID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var item models.OrderItemSnapshot
		if err := rows.Scan(&item.VariationID, &item.Name, &item.GrossPrice,
			&item.NetPrice, &item.Quantity); err != nil {
			return nil, err
		}
		order.Items = append(order.Items, item)
	}

	return &order, rows.Err()
}

// GetCart loads the basket snapshot stored for a checkout session.
func (c *Connection) GetCart(ctx context.Context, sessionID string) (*models.CartSnapshot, error) {
	var cart models.CartSnapshot

	err := c.db.QueryRowContext(ctx, `
		SELECT webstore_id, contact_id, currency, basket_amount, basket_amount_net,
		       shipping_amount, shipping_amount_net, shipping_country_id,
		       invoice_address_id, shipping_address_id
		FROM carts
		WHERE session_id = ?
	`, sessionID).Scan(&cart.WebstoreID, &cart.ContactID, &cart.Currency,
		&cart.BasketAmount, &cart.BasketAmountNet,
		&cart.ShippingAmount, &cart.ShippingAmountNet, &cart.ShippingCountryID,
		&cart.InvoiceAddressID, &cart.ShippingAddressID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error loading cart for session: %v", err)
	}

	rows, err := c.db.QueryContext(ctx, `
		SELECT ci.variation_id, ci.name, ci.gross_price, ci.vat_percent, ci.quantity, ci.image_url
		FROM cart_items ci
		JOIN carts ca ON ca.id = ci.cart_id
		WHERE ca.session_id = ?
		ORDER BY ci.id ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("error loading cart items: %v", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line models.CartLine
		var image sql.NullString
		if err := rows.Scan(&line.VariationID, &line.Name, &line.GrossPrice,
			&line.VatPercent, &line.Quantity, &image); err != nil {
			return nil, err
		}
		line.ImageURL = image.String
		cart.Items = append(cart.Items, line)
	}

	return &cart, rows.Err()
}

// GetContact loads a registered customer account.
func (c *Connection) GetContact(ctx context.Context, contactID int) (*models.Contact, error) {
	var contact models.Contact
	var birthday, newsletter sql.NullTime

	err := c.db.QueryRowContext(ctx, `
		SELECT id, first_name, last_name, gender, email, birthday_at, created_at, type_id, newsletter_allowance_at
		FROM contacts
		WHERE id = ?
	`, contactID).Scan(&contact.ID, &contact.FirstName, &contact.LastName,
		&contact.Gender, &contact.Email, &birthday, &contact.CreatedAt,
		&contact.TypeID, &newsletter)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error loading contact %d: %v", contactID, err)
	}

	if birthday.Valid {
		contact.BirthdayAt = &birthday.Time
	}
	if newsletter.Valid {
		contact.NewsletterAllowanceAt = &newsletter.Time
	}

	return &contact, nil
}

// GetAddress loads one address book entry.
func (c *Connection) GetAddress(ctx context.Context, addressID int) (*models.Address, error) {
	var addr models.Address
	var additional sql.NullString

	err := c.db.QueryRowContext(ctx, `
		SELECT id, first_name, last_name, street, house_number, additional,
		       postal_code, town, country_iso
		FROM addresses
		WHERE id = ?
	`, addressID).Scan(&addr.ID, &addr.FirstName, &addr.LastName, &addr.Street,
		&addr.HouseNumber, &additional, &addr.PostalCode, &addr.Town, &addr.CountryCode)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error loading address %d: %v", addressID, err)
	}
	addr.Additional = additional.String

	return &addr, nil
}

// CreateContactAddress stores a delivery address reported back by the
// provider, optionally attached to a contact (0 for guests).
func (c *Connection) CreateContactAddress(ctx context.Context, contactID int, addr *models.Address) (int, error) {
	result, err := c.db.ExecContext(ctx, `
		INSERT INTO addresses (contact_id, first_name, last_name, street, house_number,
		                       additional, postal_code, town, country_iso)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, contactID, addr.FirstName, addr.LastName, addr.Street, addr.HouseNumber,
		addr.Additional, addr.PostalCode, addr.Town, addr.CountryCode)
	if err != nil {
		return 0, fmt.Errorf("error creating address: %v", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	return int(id), nil
}

// CountryISOCode resolves the two-letter ISO code of a host country id.
func (c *Connection) CountryISOCode(ctx context.Context, countryID int) (string, error) {
	var iso string
	err := c.db.QueryRowContext(ctx,
		`SELECT iso_code_2 FROM countries WHERE id = ?`, countryID).Scan(&iso)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("unknown country id %d", countryID)
	}
	if err != nil {
		return "", fmt.Errorf("error resolving country %d: %v", countryID, err)
	}
	return iso, nil
}
