package playback

import (
	"sync"
	"sync/atomic"
)

// Loader tracks the one-time load of the vendor SDK script for a page.
//
// Inject reports true only on its first call, so at most one script element is ever
// requested. Resolve may be called any number of times; the Ready channel closes once.
type Loader struct {
	injected atomic.Bool
	once     sync.Once
	ready    chan struct{}
	onInject func()
}

// NewLoader returns an unresolved loader. onInject, if non-nil, runs on the first Inject.
func NewLoader(onInject func()) *Loader {
	return &Loader{ready: make(chan struct{}), onInject: onInject}
}

// Inject requests the script. Only the first call has an effect.
func (l *Loader) Inject() bool {
	if !l.injected.CompareAndSwap(false, true) {
		return false
	}
	if l.onInject != nil {
		l.onInject()
	}
	return true
}

// Injected reports whether Inject has been called.
func (l *Loader) Injected() bool {
	return l.injected.Load()
}

// Resolve marks the SDK as loaded.
func (l *Loader) Resolve() {
	l.once.Do(func() { close(l.ready) })
}

// Ready is closed once the SDK has loaded.
func (l *Loader) Ready() <-chan struct{} {
	return l.ready
}

// Resolved reports whether Resolve has been called.
func (l *Loader) Resolved() bool {
	select {
	case <-l.ready:
		return true
	default:
		return false
	}
}
