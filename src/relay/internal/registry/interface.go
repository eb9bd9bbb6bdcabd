package registry

import "context"

// Registry tracks the connection ids that completed a handshake.
// Implementations may be backed by a remote store, so every call takes a context
// and reports backing failures through the returned error.
type Registry interface {
	// Add registers id. Adding an id that is already registered has no effect.
	Add(ctx context.Context, id string) error

	// Remove unregisters id and reports whether this call removed it.
	// Removing an unknown id is not an error. When several callers race on the
	// same id, exactly one of them sees removed == true.
	Remove(ctx context.Context, id string) (removed bool, err error)

	// Exists reports whether id is currently registered.
	Exists(ctx context.Context, id string) (bool, error)

	// Len returns the amount of registered ids. Reported as a gauge by the session store.
	Len() int
}
