// Package platform abstracts the runtime surface the session layer touches:
// tab-scoped key/value storage, the current location/history, and the
// cross-tab change-notification channel. Session and gateway logic depend
// only on these interfaces so they can run and be tested without a browser.
package platform

import "net/url"

// Storage is synchronous key/value storage scoped to a single tab.
// Writes are visible to other tabs only through an explicit Signal on a
// SignalBus, never by observing the storage itself.
type Storage interface {
	// Get returns the value for key and whether it was present.
	Get(key string) (string, bool)

	// Set stores value under key, replacing any previous value.
	Set(key, value string)

	// Delete removes key. Deleting an absent key is a no-op.
	Delete(key string)
}

// Navigator exposes the location of the current tab.
type Navigator interface {
	// CurrentURL returns the tab's current URL.
	CurrentURL() *url.URL

	// ReplaceURL rewrites the visible URL without triggering a network
	// navigation (history replacement).
	ReplaceURL(u *url.URL)

	// Navigate performs an in-app navigation to a path such as "/login".
	Navigate(path string)

	// Assign performs a full navigation to an absolute URL, leaving the
	// application (used for the OAuth provider redirect).
	Assign(absoluteURL string)
}

// Signal is a cross-tab notification. Key identifies the kind of signal,
// Value carries its payload (e.g. a timestamped logout sentinel) and
// SourceTab identifies the tab that published it so a tab can ignore its
// own signals.
type Signal struct {
	Key       string
	Value     string
	SourceTab string
}

// SignalBus delivers Signals to every other tab of the same origin.
// Delivery is push-based and asynchronous with no ordering guarantee
// relative to in-flight requests in other tabs. A publisher never receives
// its own signal.
type SignalBus interface {
	// Publish broadcasts the signal to all other subscribed tabs.
	Publish(s Signal)

	// Subscribe registers fn for signals from other tabs and returns a
	// cancel function that unregisters it.
	Subscribe(fn func(Signal)) (cancel func())
}
