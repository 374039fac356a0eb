package render

import "sync"

// FallbackBackend redraws every visual on each frame using a fixed linear
// projection clamped into a band.
type FallbackBackend struct {
	window Window

	mu       sync.RWMutex
	band     Band
	visuals  []Visual
	overlays []Overlay
	onSelect SelectFunc
}

// NewFallbackBackend returns a backend projecting w into b. Invalid inputs
// fall back to DefaultWindow and DefaultBand.
func NewFallbackBackend(w Window, b Band) *FallbackBackend {
	if !w.Valid() {
		w = DefaultWindow
	}
	if b.Max <= b.Min {
		b = DefaultBand
	}
	return &FallbackBackend{window: w, band: b}
}

func (f *FallbackBackend) Name() string { return "fallback" }

// Window returns the projection window.
func (f *FallbackBackend) Window() Window { return f.window }

func (f *FallbackBackend) RenderSnapshot(fr Frame, onSelect SelectFunc) {
	visuals := buildVisuals(fr)
	for i := range visuals {
		x, y := f.window.Project(fleetPos(visuals[i]))
		visuals[i].X = f.band.Clamp(x)
		visuals[i].Y = f.band.Clamp(y)
	}
	overlays := make([]Overlay, 0, len(fr.Zones))
	for _, z := range fr.Zones {
		overlays = append(overlays, f.window.ProjectZone(z))
	}
	f.mu.Lock()
	f.visuals = visuals
	f.overlays = overlays
	f.onSelect = onSelect
	f.mu.Unlock()
}

func (f *FallbackBackend) Visuals() []Visual {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]Visual(nil), f.visuals...)
}

func (f *FallbackBackend) Overlays() []Overlay {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]Overlay(nil), f.overlays...)
}

func (f *FallbackBackend) Click(id string) error {
	f.mu.RLock()
	var (
		hit   Visual
		found bool
	)
	for _, v := range f.visuals {
		if v.EntityID == id {
			hit, found = v, true
			break
		}
	}
	onSelect := f.onSelect
	f.mu.RUnlock()
	return click(hit, found, onSelect)
}
