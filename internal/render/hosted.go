package render

import "sync"

// DiffStats counts marker changes made by the last render pass.
type DiffStats struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
	Removed int `json:"removed"`
}

// HostedBackend keeps one persistent marker per entity id for a browser
// map client. Each render pass diffs the frame against the current markers.
type HostedBackend struct {
	apiKey string

	mu       sync.RWMutex
	markers  map[string]Visual
	order    []string
	overlays []Overlay
	onSelect SelectFunc
	last     DiffStats
	revision uint64
}

// NewHostedBackend returns an empty marker set for the given maps key.
func NewHostedBackend(apiKey string) *HostedBackend {
	return &HostedBackend{apiKey: apiKey, markers: make(map[string]Visual)}
}

func (h *HostedBackend) Name() string { return "hosted" }

// APIKey returns the maps key handed to the browser client.
func (h *HostedBackend) APIKey() string { return h.apiKey }

func (h *HostedBackend) RenderSnapshot(f Frame, onSelect SelectFunc) {
	next := buildVisuals(f)
	overlays := make([]Overlay, 0, len(f.Zones))
	for _, z := range f.Zones {
		overlays = append(overlays, Overlay{Zone: z})
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	var d DiffStats
	seen := make(map[string]struct{}, len(next))
	order := make([]string, 0, len(next))
	for _, v := range next {
		seen[v.EntityID] = struct{}{}
		order = append(order, v.EntityID)
		prev, ok := h.markers[v.EntityID]
		switch {
		case !ok:
			d.Added++
		case prev != v:
			d.Updated++
		default:
			continue
		}
		h.markers[v.EntityID] = v
	}
	for id := range h.markers {
		if _, ok := seen[id]; !ok {
			delete(h.markers, id)
			d.Removed++
		}
	}
	h.order = order
	h.overlays = overlays
	h.onSelect = onSelect
	h.last = d
	if d != (DiffStats{}) {
		h.revision++
	}
}

// LastDiff reports the changes applied by the most recent render.
func (h *HostedBackend) LastDiff() DiffStats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.last
}

// Revision increases whenever the marker set changes.
func (h *HostedBackend) Revision() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.revision
}

func (h *HostedBackend) Visuals() []Visual {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Visual, 0, len(h.order))
	for _, id := range h.order {
		out = append(out, h.markers[id])
	}
	return out
}

func (h *HostedBackend) Overlays() []Overlay {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]Overlay(nil), h.overlays...)
}

func (h *HostedBackend) Click(id string) error {
	h.mu.RLock()
	v, ok := h.markers[id]
	onSelect := h.onSelect
	h.mu.RUnlock()
	return click(v, ok, onSelect)
}
