package waf

import "context"

// ViolationStore persists the violator map of a reconciliation scope between runs.
type ViolationStore interface {
	// Load returns the saved violators, or an empty map if nothing was saved for the scope yet.
	Load(ctx context.Context, scope string) (ViolatorMap, error)

	// Save overwrites the saved violators of the scope.
	Save(ctx context.Context, scope string, violators ViolatorMap) error
}
