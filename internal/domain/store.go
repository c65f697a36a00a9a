package domain

import "context"

// Scope is the storage namespace a property lives in, the chat network name.
type Scope string

// PropertyStore is the scoped key-value service karma records are kept in.
// It offers no transactions; each call stands alone.
type PropertyStore interface {
	// GetProperty returns ErrPropertyNotFound when key is unset in scope.
	GetProperty(ctx context.Context, scope Scope, key string) (string, error)
	SetProperty(ctx context.Context, scope Scope, key, value string) error
}

// PropertyLister enumerates keys in a scope. Only the migration tooling needs it.
type PropertyLister interface {
	PropertyKeys(ctx context.Context, scope Scope, prefix string) ([]string, error)
}
