package payment

import (
	"context"
	"sync"
)

// Ledger status names resolved from the host's status constants.
const (
	statusApproved         = "approved"
	statusAwaitingApproval = "awaiting_approval"
	statusRefused          = "refused"
	statusCompleted        = "completed"
)

// StatusNeutral is the fixed code used for unrecognized or empty provider
// outcomes.
const StatusNeutral = 2

// StatusSource provides the ledger's named status constants.
type StatusSource interface {
	StatusConstants(ctx context.Context) (map[string]int, error)
}

// StatusMapper translates provider outcomes into ledger status codes. The
// constants are loaded from the ledger once and cached for the process
// lifetime.
type StatusMapper struct {
	source StatusSource

	once      sync.Once
	constants map[string]int
	loadErr   error
}

func NewStatusMapper(source StatusSource) *StatusMapper {
	return &StatusMapper{source: source}
}

func (m *StatusMapper) load(ctx context.Context) error {
	m.once.Do(func() {
		m.constants, m.loadErr = m.source.StatusConstants(ctx)
	})
	return m.loadErr
}

// ForOutcome maps an authorize/sale outcome (Accepted, Pending, Rejected) to
// the ledger status code. Unknown or empty outcomes map to the neutral code.
func (m *StatusMapper) ForOutcome(ctx context.Context, outcome string) (int, error) {
	if err := m.load(ctx); err != nil {
		return 0, err
	}

	switch outcome {
	case "Accepted":
		return m.constants[statusApproved], nil
	case "Pending":
		return m.constants[statusAwaitingApproval], nil
	case "Rejected":
		return m.constants[statusRefused], nil
	default:
		return StatusNeutral, nil
	}
}

// Completed returns the ledger code for a fully settled payment.
func (m *StatusMapper) Completed(ctx context.Context) (int, error) {
	if err := m.load(ctx); err != nil {
		return 0, err
	}
	return m.constants[statusCompleted], nil
}
