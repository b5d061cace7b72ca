package domain

import "context"

// ─── Service Interfaces ─────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; application layer depends on them.

// IdentityProvider supplies the opaque id of the signed-in user.
// ok=false means nobody is signed in and remote sync is disabled.
type IdentityProvider interface {
	CurrentUserID() (id string, ok bool)
}

// StaticIdentity is an IdentityProvider with a fixed user id.
// The empty string means "signed out".
type StaticIdentity string

// CurrentUserID implements IdentityProvider.
func (s StaticIdentity) CurrentUserID() (string, bool) {
	return string(s), s != ""
}

// Document is a flat keyed record in the remote store.
type Document map[string]any

// RemoteStore abstracts the keyed document store the engine syncs to.
// Implemented by infra/sqlite.DocStore and infra/remote.Client.
type RemoteStore interface {
	// Get returns the document at key, or ErrDocumentNotFound.
	Get(ctx context.Context, key string) (Document, error)

	// Set writes partial to key. With merge=true, top-level fields of
	// partial overwrite existing ones and all other fields are kept.
	Set(ctx context.Context, key string, partial Document, merge bool) error

	// OnChange registers fn for writes to key and returns an unsubscribe func.
	OnChange(key string, fn func(Document)) (unsubscribe func())
}

// Notifier receives the "achievement unlocked" trigger.
// Implementations must not block and have no result the engine inspects.
type Notifier interface {
	NotifyAchievementUnlocked(achID string)
}

// SyncPort is the engine's fire-and-forget output side.
// Both calls return immediately; the implementation owns debounce timers
// and error handling.
type SyncPort interface {
	PushStats()
	PushUnlock(achID string)
}
