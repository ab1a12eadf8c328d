package models

import (
	"fmt"
	"strings"
)

// ValidationError aggregates every violated field-requirement rule of an
// authorization request. It is caller-fixable; the shopper stays in
// checkout.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "authorization request invalid: " + strings.Join(e.Fields, "; ")
}

// ProviderError is a remote rejection or transport problem reported by the
// provider.
type ProviderError struct {
	Code            string
	Message         string
	CustomerMessage string
}

func (e *ProviderError) Error() string {
	if e.CustomerMessage != "" {
		return e.CustomerMessage
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// StateError signals an expired or mismatched checkout session. It routes to
// the cancel path.
type StateError struct {
	Reason string
}

func (e *StateError) Error() string {
	return e.Reason
}

// ReconciliationError is a precondition violation during capture, void or
// refund. It is raised to the invoking order-event trigger and never retried
// automatically.
type ReconciliationError struct {
	Op     string
	Reason string
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Op, e.Reason)
}
