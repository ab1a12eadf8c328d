package settings

import (
	"context"
	"sync"
	"time"

	"afterpay-payment-api/config"
	"afterpay-payment-api/models"
	"afterpay-payment-api/services/afterpay"
)

const cacheTTL = 5 * time.Minute

// Store is the persistence contract the resolver reads through.
type Store interface {
	LoadSetting(ctx context.Context, webstoreID int, mode string, countryID int) (*models.Settings, error)
	SaveSetting(ctx context.Context, settings *models.Settings) error
	LoadSettingsByMode(ctx context.Context, webstoreID int, mode string) ([]*models.Settings, error)
}

type cacheKey struct {
	webstoreID int
	mode       string
	countryID  int
}

type cacheEntry struct {
	settings *models.Settings
	loadedAt time.Time
}

// Resolver is a read-through cache over the settings store, keyed by
// (webstore, mode, country). A cached nil is meaningful: the method is not
// configured for that combination.
type Resolver struct {
	store      Store
	provider   config.AfterPayConfig
	webstoreID int

	mu    sync.RWMutex
	cache map[cacheKey]cacheEntry
}

func NewResolver(store Store, provider config.AfterPayConfig, webstoreID int) *Resolver {
	return &Resolver{
		store:      store,
		provider:   provider,
		webstoreID: webstoreID,
		cache:      make(map[cacheKey]cacheEntry),
	}
}

// Resolve returns the settings for a (mode, country) combination on the
// resolver's webstore, or nil when none are configured.
func (r *Resolver) Resolve(ctx context.Context, mode string, countryID int) (*models.Settings, error) {
	key := cacheKey{webstoreID: r.webstoreID, mode: mode, countryID: countryID}

	r.mu.RLock()
	entry, ok := r.cache[key]
	r.mu.RUnlock()
	if ok && time.Since(entry.loadedAt) < cacheTTL {
		return entry.settings, nil
	}

	settings, err := r.store.LoadSetting(ctx, r.webstoreID, mode, countryID)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cache[key] = cacheEntry{settings: settings, loadedAt: time.Now()}
	r.mu.Unlock()

	return settings, nil
}

// Save persists new settings and drops the stale cache entry.
func (r *Resolver) Save(ctx context.Context, settings *models.Settings) error {
	if err := r.store.SaveSetting(ctx, settings); err != nil {
		return err
	}

	r.mu.Lock()
	delete(r.cache, cacheKey{
		webstoreID: settings.WebstoreID,
		mode:       settings.Mode,
		countryID:  settings.CountryID,
	})
	r.mu.Unlock()

	return nil
}

// ListByMode returns every configured country for a mode, bypassing the
// cache.
func (r *Resolver) ListByMode(ctx context.Context, mode string) ([]*models.Settings, error) {
	return r.store.LoadSettingsByMode(ctx, r.webstoreID, mode)
}

// Credentials implements the API gateway's credentials contract. The base URL
// follows the per-country production flag; nil means the method is not
// configured for that country.
func (r *Resolver) Credentials(ctx context.Context, mode string, countryID int) (*afterpay.Credentials, error) {
	settings, err := r.Resolve(ctx, mode, countryID)
	if err != nil {
		return nil, err
	}
	if settings == nil || settings.XAuthKey == "" {
		return nil, nil
	}

	baseURL := r.provider.SandboxURL
	if settings.ProductionMode {
		baseURL = r.provider.ProductionURL
	}
	return &afterpay.Credentials{BaseURL: baseURL, XAuthKey: settings.XAuthKey}, nil
}

// MethodAvailable decides whether a mode may be offered for a basket: the
// country must be configured with a key, switched on, and the basket amount
// must sit inside the configured bounds (0 = unbounded).
func (r *Resolver) MethodAvailable(ctx context.Context, mode string, countryID int, basketAmount float64) (bool, error) {
	settings, err := r.Resolve(ctx, mode, countryID)
	if err != nil {
		return false, err
	}
	if settings == nil || !settings.Available || settings.XAuthKey == "" {
		return false, nil
	}
	if settings.MinOrderAmount > 0 && basketAmount < settings.MinOrderAmount {
		return false, nil
	}
	if settings.MaxOrderAmount > 0 && basketAmount > settings.MaxOrderAmount {
		return false, nil
	}
	return true, nil
}
