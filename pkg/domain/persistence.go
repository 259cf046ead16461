package domain

import "context"

// LocalStore is the synchronous cache-first gateway. Load never fails past
// the boundary: missing or corrupt data yields the default state.
type LocalStore interface {
	Load() AppState
	Save(state AppState) error
}

// RemoteStore is an asynchronous whole-state backend. Load returns
// (nil, nil) when the backend is reachable but holds no data, so callers
// keep their local cache instead of overwriting it with emptiness; it
// returns an error only when the backend is unusable as a whole.
type RemoteStore interface {
	Load(ctx context.Context) (*AppState, error)
	Save(ctx context.Context, state AppState) error
}
