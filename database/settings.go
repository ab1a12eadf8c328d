package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"afterpay-payment-api/models"
)

// LoadSetting reads the settings row for one (webstore, mode, country)
// combination. Returns nil without an error when no row matches: callers
// treat a missing row as "payment method not offered here", not as a fault.
func (c *Connection) LoadSetting(ctx context.Context, webstoreID int, mode string, countryID int) (*models.Settings, error) {
	var value string

	err := c.db.QueryRowContext(ctx, `
		SELECT value
		FROM afterpay_settings
		WHERE webstore = ? AND name = ? AND country = ?
	`, webstoreID, mode, countryID).Scan(&value)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error loading settings: %v", err)
	}

	var settings models.Settings
	if err := json.Unmarshal([]byte(value), &settings); err != nil {
		return nil, fmt.Errorf("error parsing settings value: %v", err)
	}

	settings.WebstoreID = webstoreID
	settings.CountryID = countryID
	settings.Mode = mode

	return &settings, nil
}

// SaveSetting upserts the settings row for one (webstore, mode, country)
// combination, storing the configuration as an opaque JSON blob.
func (c *Connection) SaveSetting(ctx context.Context, settings *models.Settings) error {
	value, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings value: %v", err)
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO afterpay_settings (webstore, country, name, value, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE value = VALUES(value), updated_at = VALUES(updated_at)
	`, settings.WebstoreID, settings.CountryID, settings.Mode, string(value), time.Now(), time.Now())

	if err != nil {
		return fmt.Errorf("error saving settings: %v", err)
	}
	return nil
}

// LoadSettingsByMode lists every country row configured for a mode on one
// webstore.
func (c *Connection) LoadSettingsByMode(ctx context.Context, webstoreID int, mode string) ([]*models.Settings, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT country, value
		FROM afterpay_settings
		WHERE webstore = ? AND name = ?
		ORDER BY country ASC
	`, webstoreID, mode)
	if err != nil {
		return nil, fmt.Errorf("error listing settings: %v", err)
	}
	defer rows.Close()

	var result []*models.Settings
	for rows.Next() {
		var countryID int
		var value string
		if err := rows.Scan(&countryID, &value); err != nil {
			return nil, err
		}

		var settings models.Settings
		if err := json.Unmarshal([]byte(value), &settings); err != nil {
			return nil, fmt.Errorf("error parsing settings value for country %d: %v", countryID, err)
		}
		settings.WebstoreID = webstoreID
		settings.CountryID = countryID
		settings.Mode = mode
		result = append(result, &settings)
	}

	return result, rows.Err()
}
