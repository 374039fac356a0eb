package render

import (
	"sync"

	"rescueops/internal/fleet"
)

// ChooseBackend picks the hosted backend when a maps key is configured and
// the fallback projection otherwise.
func ChooseBackend(mapsAPIKey string, w Window, b Band) Backend {
	if mapsAPIKey != "" {
		return NewHostedBackend(mapsAPIKey)
	}
	return NewFallbackBackend(w, b)
}

// Adapter re-renders the chosen backend after every Store change and every
// selection change.
type Adapter struct {
	backend  Backend
	store    *fleet.Store
	onSelect SelectFunc
	zones    []Zone

	mu        sync.Mutex
	selected  string
	renders   int
	listeners []func(Frame)
}

// NewAdapter subscribes to store and performs an initial render.
func NewAdapter(backend Backend, store *fleet.Store, onSelect SelectFunc, zones []Zone) *Adapter {
	a := &Adapter{backend: backend, store: store, onSelect: onSelect, zones: zones}
	store.Observe(func(fleet.Change) { a.Refresh() })
	a.Refresh()
	return a
}

// Backend returns the active backend.
func (a *Adapter) Backend() Backend { return a.backend }

// SetSelected records the highlighted unit and re-renders.
func (a *Adapter) SetSelected(id string) {
	a.mu.Lock()
	a.selected = id
	a.mu.Unlock()
	a.Refresh()
}

// Refresh renders the current Store contents.
func (a *Adapter) Refresh() {
	a.mu.Lock()
	f := Frame{Snapshot: a.store.Snapshot(), Selected: a.selected, Zones: a.zones}
	a.backend.RenderSnapshot(f, a.onSelect)
	a.renders++
	listeners := append([]func(Frame){}, a.listeners...)
	a.mu.Unlock()
	for _, fn := range listeners {
		fn(f)
	}
}

// Renders counts completed render passes.
func (a *Adapter) Renders() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.renders
}

// OnRender registers fn to run after each render pass.
func (a *Adapter) OnRender(fn func(Frame)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listeners = append(a.listeners, fn)
}

// Click forwards a click on id to the backend.
func (a *Adapter) Click(id string) error { return a.backend.Click(id) }

// Visuals returns the backend's current visuals.
func (a *Adapter) Visuals() []Visual { return a.backend.Visuals() }

// Overlays returns the backend's current zone overlays.
func (a *Adapter) Overlays() []Overlay { return a.backend.Overlays() }
