package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"afterpay-payment-api/models"
)

const keyPrefix = "afterpay:checkout:"

// Store keeps the per-attempt checkout state in Redis so that it survives
// the redirect round trip to the provider.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStore(redisURL string, ttl time.Duration) (*Store, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %v", err)
	}

	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %v", err)
	}

	return &Store{client: client, ttl: ttl}, nil
}

// Get loads the checkout state for a session. A missing key yields an empty
// state, not an error.
func (s *Store) Get(ctx context.Context, sessionID string) (*models.CheckoutState, error) {
	data, err := s.client.Get(ctx, keyPrefix+sessionID).Result()
	if err == redis.Nil {
		return &models.CheckoutState{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load checkout state: %v", err)
	}

	var state models.CheckoutState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkout state: %v", err)
	}
	return &state, nil
}

// Save writes the checkout state for a session.
func (s *Store) Save(ctx context.Context, sessionID string, state *models.CheckoutState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal checkout state: %v", err)
	}

	if err := s.client.Set(ctx, keyPrefix+sessionID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save checkout state: %v", err)
	}
	return nil
}

// Clear removes every stored field of the checkout state.
func (s *Store) Clear(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, keyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("failed to clear checkout state: %v", err)
	}
	return nil
}

func (s *Store) Client() *redis.Client {
	return s.client
}

func (s *Store) Close() error {
	return s.client.Close()
}
