package models

// LanguageSettings holds the per-language display configuration of a payment
// method.
type LanguageSettings struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	InfoPage    int    `json:"infoPage"`
	InfoPageID  int    `json:"infoPageId"`
	InfoPageURL string `json:"infoPageUrl"`
}

// Settings is the merchant configuration for one (webstore, mode, country)
// combination. Stored as an opaque JSON blob in the settings table.
type Settings struct {
	WebstoreID        int                         `json:"webstore_id"`
	CountryID         int                         `json:"country_id"`
	Mode              string                      `json:"mode"`
	XAuthKey          string                      `json:"xauthKey"`
	ProductionMode    bool                        `json:"productionMode"`
	Available         bool                        `json:"available"`
	MinOrderAmount    float64                     `json:"minOrderAmount"`
	MaxOrderAmount    float64                     `json:"maxOrderAmount"`
	Logo              int                         `json:"logo"`
	Analytics         bool                        `json:"analytics"`
	AnalyticsUserID   string                      `json:"analyticsUserId"`
	AnalyticsClientID string                      `json:"analyticsClientId"`
	Language          map[string]LanguageSettings `json:"language"`
}

// Title returns the configured method title for the given language, falling
// back to the provider name.
func (s *Settings) Title(lang string) string {
	if ls, ok := s.Language[lang]; ok && ls.Title != "" {
		return ls.Title
	}
	return "AfterPay"
}

// Description returns the configured method description for the given
// language.
func (s *Settings) Description(lang string) string {
	if ls, ok := s.Language[lang]; ok {
		return ls.Description
	}
	return ""
}
