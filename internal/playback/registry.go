package playback

import (
	"sync"

	"github.com/desertthunder/spotlight/internal/shared"
)

// Page is a rendered home page and the controller that serves it.
type Page struct {
	ID         string
	SessionID  string
	Controller *Controller
}

// Factory builds the controller for a new page.
type Factory func(pageID, sessionID string) *Controller

// Registry holds at most one live page per browser session.
type Registry struct {
	mu        sync.Mutex
	factory   Factory
	pages     map[string]*Page
	bySession map[string]*Page
}

// NewRegistry creates an empty registry.
func NewRegistry(factory Factory) *Registry {
	return &Registry{
		factory:   factory,
		pages:     make(map[string]*Page),
		bySession: make(map[string]*Page),
	}
}

// Open starts a page for sessionID with a fresh page id, closing the session's previous page.
func (r *Registry) Open(sessionID string) *Page {
	page := &Page{ID: shared.GenerateID(), SessionID: sessionID}
	page.Controller = r.factory(page.ID, sessionID)

	r.mu.Lock()
	old := r.bySession[sessionID]
	if old != nil {
		delete(r.pages, old.ID)
	}
	r.pages[page.ID] = page
	r.bySession[sessionID] = page
	r.mu.Unlock()

	if old != nil {
		old.Controller.Close()
	}
	return page
}

// Lookup returns the live page with the given id.
func (r *Registry) Lookup(pageID string) (*Page, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pages[pageID]
	return p, ok
}

// ForSession returns the live page of a session.
func (r *Registry) ForSession(sessionID string) (*Page, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.bySession[sessionID]
	return p, ok
}

// Close closes the page and forgets it. Unknown ids are ignored.
func (r *Registry) Close(pageID string) {
	r.mu.Lock()
	p, ok := r.pages[pageID]
	if ok {
		delete(r.pages, pageID)
		if r.bySession[p.SessionID] == p {
			delete(r.bySession, p.SessionID)
		}
	}
	r.mu.Unlock()

	if ok {
		p.Controller.Close()
	}
}

// CloseSession closes the session's page, if any.
func (r *Registry) CloseSession(sessionID string) {
	if p, ok := r.ForSession(sessionID); ok {
		r.Close(p.ID)
	}
}

// CloseAll closes every page.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	pages := make([]*Page, 0, len(r.pages))
	for _, p := range r.pages {
		pages = append(pages, p)
	}
	r.pages = make(map[string]*Page)
	r.bySession = make(map[string]*Page)
	r.mu.Unlock()

	for _, p := range pages {
		p.Controller.Close()
	}
}

// Len returns the number of live pages.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pages)
}
