// Package platformfakes provides in-memory implementations of the platform
// interfaces. A FakeOrigin stands in for one browser origin and can open any
// number of FakeTabs that share a signal bus, which is enough to exercise
// cross-tab behaviour in tests.
package platformfakes

import (
	"net/url"
	"sync"

	"github.com/secure-command-center/go-client/platform"
)

var _ platform.Storage = (*FakeStorage)(nil)

// FakeStorage is tab-scoped in-memory storage.
type FakeStorage struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewFakeStorage() *FakeStorage {
	return &FakeStorage{values: make(map[string]string)}
}

func (s *FakeStorage) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	return v, ok
}

func (s *FakeStorage) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
}

func (s *FakeStorage) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, key)
}

var _ platform.Navigator = (*FakeNavigator)(nil)

// FakeNavigator records navigations and URL rewrites for assertions.
type FakeNavigator struct {
	mu       sync.Mutex
	current  *url.URL
	Replaced []string // URLs passed to ReplaceURL
	Visited  []string // paths passed to Navigate
	Assigned []string // absolute URLs passed to Assign
}

// NewFakeNavigator creates a navigator positioned at rawURL.
// It panics on an unparseable URL since that is a test-setup bug.
func NewFakeNavigator(rawURL string) *FakeNavigator {
	u, err := url.Parse(rawURL)
	if err != nil {
		panic("platformfakes: invalid URL: " + rawURL)
	}
	return &FakeNavigator{current: u}
}

func (n *FakeNavigator) CurrentURL() *url.URL {
	n.mu.Lock()
	defer n.mu.Unlock()

	copied := *n.current
	return &copied
}

func (n *FakeNavigator) ReplaceURL(u *url.URL) {
	n.mu.Lock()
	defer n.mu.Unlock()

	copied := *u
	n.current = &copied
	n.Replaced = append(n.Replaced, u.String())
}

func (n *FakeNavigator) Navigate(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	u := *n.current
	u.Path = path
	u.RawQuery = ""
	u.Fragment = ""
	n.current = &u
	n.Visited = append(n.Visited, path)
}

func (n *FakeNavigator) Assign(absoluteURL string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.Assigned = append(n.Assigned, absoluteURL)
}

// LastVisited returns the most recent in-app navigation, or "".
func (n *FakeNavigator) LastVisited() string {
	n.mu.Lock()
	defer n.mu.Unlock()

	if len(n.Visited) == 0 {
		return ""
	}
	return n.Visited[len(n.Visited)-1]
}

// FakeOrigin connects the tabs of one origin through a shared signal bus.
type FakeOrigin struct {
	mu   sync.Mutex
	subs []*subscription
}

type subscription struct {
	tab *FakeTab
	fn  func(platform.Signal)
}

func NewFakeOrigin() *FakeOrigin {
	return &FakeOrigin{}
}

// NewTab opens a tab at rawURL with its own storage and navigator.
func (o *FakeOrigin) NewTab(rawURL string) *FakeTab {
	return &FakeTab{
		origin:  o,
		Storage: NewFakeStorage(),
		Nav:     NewFakeNavigator(rawURL),
	}
}

func (o *FakeOrigin) broadcast(from *FakeTab, s platform.Signal) {
	o.mu.Lock()
	subs := make([]*subscription, len(o.subs))
	copy(subs, o.subs)
	o.mu.Unlock()

	// Delivered synchronously; the real runtime delivers storage events
	// asynchronously, but tests only rely on eventual delivery.
	for _, sub := range subs {
		if sub.tab == from {
			continue
		}
		sub.fn(s)
	}
}

// FakeTab is one tab of a FakeOrigin. Its Bus view never delivers a tab's
// own signals back to it, matching storage-event semantics.
type FakeTab struct {
	origin  *FakeOrigin
	Storage *FakeStorage
	Nav     *FakeNavigator
}

var _ platform.SignalBus = (*tabBus)(nil)

type tabBus struct {
	tab *FakeTab
}

// Bus returns this tab's view of the shared signal bus.
func (t *FakeTab) Bus() platform.SignalBus {
	return &tabBus{tab: t}
}

func (b *tabBus) Publish(s platform.Signal) {
	b.tab.origin.broadcast(b.tab, s)
}

func (b *tabBus) Subscribe(fn func(platform.Signal)) (cancel func()) {
	o := b.tab.origin
	sub := &subscription{tab: b.tab, fn: fn}

	o.mu.Lock()
	o.subs = append(o.subs, sub)
	o.mu.Unlock()

	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		for i, existing := range o.subs {
			if existing == sub {
				o.subs = append(o.subs[:i], o.subs[i+1:]...)
				return
			}
		}
	}
}
