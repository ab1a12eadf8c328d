package settings

import (
	"context"
	"testing"

	"afterpay-payment-api/config"
	"afterpay-payment-api/models"
)

type fakeStore struct {
	settings map[string]*models.Settings
	loads    int
	saved    []*models.Settings
}

func storeKey(webstoreID int, mode string, countryID int) string {
	return mode + "/" + string(rune('0'+webstoreID)) + "/" + string(rune('0'+countryID))
}

func (f *fakeStore) LoadSetting(ctx context.Context, webstoreID int, mode string, countryID int) (*models.Settings, error) {
	f.loads++
	return f.settings[storeKey(webstoreID, mode, countryID)], nil
}

func (f *fakeStore) SaveSetting(ctx context.Context, s *models.Settings) error {
	f.saved = append(f.saved, s)
	f.settings[storeKey(s.WebstoreID, s.Mode, s.CountryID)] = s
	return nil
}

func (f *fakeStore) LoadSettingsByMode(ctx context.Context, webstoreID int, mode string) ([]*models.Settings, error) {
	var out []*models.Settings
	for _, s := range f.settings {
		if s.WebstoreID == webstoreID && s.Mode == mode {
			out = append(out, s)
		}
	}
	return out, nil
}

func testProviderConfig() config.AfterPayConfig {
	return config.AfterPayConfig{
		SandboxURL:    "https://sandbox.example",
		ProductionURL: "https://live.example",
	}
}

func configuredSettings() *models.Settings {
	return &models.Settings{
		WebstoreID: 1,
		Mode:       models.ModeInvoice,
		CountryID:  1,
		XAuthKey:   "key-1",
		Available:  true,
	}
}

func TestResolveCachesLookups(t *testing.T) {
	store := &fakeStore{settings: map[string]*models.Settings{}}
	store.settings[storeKey(1, models.ModeInvoice, 1)] = configuredSettings()

	resolver := NewResolver(store, testProviderConfig(), 1)

	for i := 0; i < 3; i++ {
		s, err := resolver.Resolve(context.Background(), models.ModeInvoice, 1)
		if err != nil {
			t.Fatalf("Resolve returned error: %v", err)
		}
		if s == nil || s.XAuthKey != "key-1" {
			t.Fatalf("settings = %+v, want the configured entry", s)
		}
	}

	if store.loads != 1 {
		t.Errorf("store hit %d times, want 1 with warm cache", store.loads)
	}
}

func TestResolveCachesAbsence(t *testing.T) {
	store := &fakeStore{settings: map[string]*models.Settings{}}
	resolver := NewResolver(store, testProviderConfig(), 1)

	for i := 0; i < 3; i++ {
		s, err := resolver.Resolve(context.Background(), models.ModeInvoice, 9)
		if err != nil {
			t.Fatalf("Resolve returned error: %v", err)
		}
		if s != nil {
			t.Fatalf("settings = %+v, want nil for unconfigured country", s)
		}
	}

	if store.loads != 1 {
		t.Errorf("store hit %d times, want a cached nil after the first miss", store.loads)
	}
}

func TestSaveInvalidatesCache(t *testing.T) {
	store := &fakeStore{settings: map[string]*models.Settings{}}
	store.settings[storeKey(1, models.ModeInvoice, 1)] = configuredSettings()

	resolver := NewResolver(store, testProviderConfig(), 1)
	if _, err := resolver.Resolve(context.Background(), models.ModeInvoice, 1); err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}

	updated := configuredSettings()
	updated.XAuthKey = "key-2"
	if err := resolver.Save(context.Background(), updated); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	s, err := resolver.Resolve(context.Background(), models.ModeInvoice, 1)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if s.XAuthKey != "key-2" {
		t.Errorf("XAuthKey = %q, want key-2 after save", s.XAuthKey)
	}
}

func TestCredentialsFollowProductionFlag(t *testing.T) {
	store := &fakeStore{settings: map[string]*models.Settings{}}
	sandbox := configuredSettings()
	store.settings[storeKey(1, models.ModeInvoice, 1)] = sandbox

	live := configuredSettings()
	live.CountryID = 2
	live.ProductionMode = true
	store.settings[storeKey(1, models.ModeInvoice, 2)] = live

	resolver := NewResolver(store, testProviderConfig(), 1)

	creds, err := resolver.Credentials(context.Background(), models.ModeInvoice, 1)
	if err != nil {
		t.Fatalf("Credentials returned error: %v", err)
	}
	if creds.BaseURL != "https://sandbox.example" {
		t.Errorf("BaseURL = %q, want the sandbox endpoint", creds.BaseURL)
	}

	creds, err = resolver.Credentials(context.Background(), models.ModeInvoice, 2)
	if err != nil {
		t.Fatalf("Credentials returned error: %v", err)
	}
	if creds.BaseURL != "https://live.example" {
		t.Errorf("BaseURL = %q, want the production endpoint", creds.BaseURL)
	}
}

func TestCredentialsNilWithoutKey(t *testing.T) {
	store := &fakeStore{settings: map[string]*models.Settings{}}
	keyless := configuredSettings()
	keyless.XAuthKey = ""
	store.settings[storeKey(1, models.ModeInvoice, 1)] = keyless

	resolver := NewResolver(store, testProviderConfig(), 1)

	creds, err := resolver.Credentials(context.Background(), models.ModeInvoice, 1)
	if err != nil {
		t.Fatalf("Credentials returned error: %v", err)
	}
	if creds != nil {
		t.Errorf("creds = %+v, want nil without an auth key", creds)
	}

	creds, err = resolver.Credentials(context.Background(), models.ModeInvoice, 7)
	if err != nil {
		t.Fatalf("Credentials returned error: %v", err)
	}
	if creds != nil {
		t.Errorf("creds = %+v, want nil for unconfigured country", creds)
	}
}

func TestMethodAvailable(t *testing.T) {
	bounded := configuredSettings()
	bounded.MinOrderAmount = 10
	bounded.MaxOrderAmount = 100

	unbounded := configuredSettings()
	unbounded.CountryID = 2

	off := configuredSettings()
	off.CountryID = 3
	off.Available = false

	store := &fakeStore{settings: map[string]*models.Settings{}}
	store.settings[storeKey(1, models.ModeInvoice, 1)] = bounded
	store.settings[storeKey(1, models.ModeInvoice, 2)] = unbounded
	store.settings[storeKey(1, models.ModeInvoice, 3)] = off

	resolver := NewResolver(store, testProviderConfig(), 1)

	tests := []struct {
		name      string
		countryID int
		amount    float64
		want      bool
	}{
		{"inside bounds", 1, 50, true},
		{"at lower bound", 1, 10, true},
		{"below minimum", 1, 9.99, false},
		{"above maximum", 1, 100.01, false},
		{"zero bounds accept anything", 2, 100000, true},
		{"switched off", 3, 50, false},
		{"unconfigured country", 9, 50, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolver.MethodAvailable(context.Background(), models.ModeInvoice, tt.countryID, tt.amount)
			if err != nil {
				t.Fatalf("MethodAvailable returned error: %v", err)
			}
			if got != tt.want {
				t.Errorf("MethodAvailable = %v, want %v", got, tt.want)
			}
		})
	}
}
