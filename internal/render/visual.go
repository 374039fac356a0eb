// Package render turns Store snapshots into map visuals. A hosted backend
// keeps persistent markers for a browser map client; a fallback backend
// projects entities onto a fixed percentage grid.
package render

import (
	"errors"
	"fmt"

	"rescueops/internal/fleet"
)

var (
	// ErrNoVisual is returned when clicking an id that is not drawn.
	ErrNoVisual = errors.New("no visual for id")
	// ErrNotClickable is returned when clicking a victim or hazard.
	ErrNotClickable = errors.New("visual is not clickable")
)

// SelectFunc is invoked with a unit id when its visual is clicked.
type SelectFunc func(id string) error

// Zone is a named circular overlay. Zones are drawn but are not entities.
type Zone struct {
	Name    string         `json:"name" yaml:"name"`
	Center  fleet.Position `json:"center" yaml:"center"`
	RadiusM float64        `json:"radius_m" yaml:"radius_m"`
	Color   string         `json:"color" yaml:"color"`
}

// Frame is the input to one render pass.
type Frame struct {
	Snapshot fleet.Snapshot
	Selected string
	Zones    []Zone
}

// Style describes how a visual is painted.
type Style struct {
	Color string `json:"color"`
	Shape string `json:"shape"`
}

// Visual is the drawn form of one entity.
type Visual struct {
	EntityID   string           `json:"id"`
	Type       fleet.EntityType `json:"type"`
	Kind       string           `json:"kind,omitempty"`
	Label      string           `json:"label"`
	Lat        float64          `json:"lat"`
	Lon        float64          `json:"lng"`
	X          float64          `json:"x,omitempty"`
	Y          float64          `json:"y,omitempty"`
	Status     string           `json:"status,omitempty"`
	Battery    float64          `json:"battery,omitempty"`
	Style      Style            `json:"style"`
	Selectable bool             `json:"selectable"`
	Selected   bool             `json:"selected"`
}

// Overlay is the drawn form of a Zone. X, Y and the radii are percentages
// on the fallback grid and zero on the hosted backend.
type Overlay struct {
	Zone
	X       float64 `json:"x,omitempty"`
	Y       float64 `json:"y,omitempty"`
	RadiusX float64 `json:"rx,omitempty"`
	RadiusY float64 `json:"ry,omitempty"`
}

// Backend is one map rendering strategy. Implementations must produce
// exactly one visual per entity in the frame.
type Backend interface {
	Name() string
	RenderSnapshot(f Frame, onSelect SelectFunc)
	Visuals() []Visual
	Overlays() []Overlay
	// Click resolves a visual to its entity and selects it if it is a unit.
	Click(id string) error
}

// Unit marker colors by status; active units are colored by kind.
const (
	colorActiveDrone = "#3b82f6"
	colorActiveRover = "#10b981"
	colorScanning    = "#eab308"
	colorDelivering  = "#f59e0b"
	colorReturning   = "#8b5cf6"
	colorRescued     = "#10b981"
	colorUnrescued   = "#ef4444"
	colorFire        = "#ef4444"
	colorDebris      = "#f97316"
	colorUnstable    = "#eab308"
	colorUnknown     = "#6b7280"
)

func unitStyle(u fleet.Unit) Style {
	s := Style{Shape: string(u.Type)}
	switch u.Status {
	case fleet.StatusActive:
		s.Color = colorActiveDrone
		if u.Type == fleet.KindRover {
			s.Color = colorActiveRover
		}
	case fleet.StatusScanning:
		s.Color = colorScanning
	case fleet.StatusDelivering:
		s.Color = colorDelivering
	case fleet.StatusReturning:
		s.Color = colorReturning
	default:
		s.Color = colorUnknown
	}
	return s
}

func hazardStyle(h fleet.Hazard) Style {
	s := Style{Shape: "warning", Color: colorUnknown}
	switch h.Type {
	case fleet.HazardFire:
		s.Color = colorFire
	case fleet.HazardDebris:
		s.Color = colorDebris
	case fleet.HazardUnstable:
		s.Color = colorUnstable
	}
	return s
}

// buildVisuals converts a frame into visuals without projection.
func buildVisuals(f Frame) []Visual {
	snap := f.Snapshot
	out := make([]Visual, 0, snap.Len())
	for _, u := range snap.Units {
		out = append(out, Visual{
			EntityID:   u.ID,
			Type:       fleet.TypeUnit,
			Kind:       string(u.Type),
			Label:      fmt.Sprintf("%s %.0f%%", u.ID, u.Battery),
			Lat:        u.Position.Lat,
			Lon:        u.Position.Lon,
			Status:     string(u.Status),
			Battery:    u.Battery,
			Style:      unitStyle(u),
			Selectable: true,
			Selected:   u.ID == f.Selected,
		})
	}
	for _, v := range snap.Victims {
		color := colorUnrescued
		label := v.ID + " awaiting rescue"
		if v.Rescued {
			color = colorRescued
			label = v.ID + " rescued"
		}
		out = append(out, Visual{
			EntityID: v.ID,
			Type:     fleet.TypeVictim,
			Label:    label,
			Lat:      v.Position.Lat,
			Lon:      v.Position.Lon,
			Style:    Style{Color: color, Shape: "person"},
		})
	}
	for _, h := range snap.Hazards {
		out = append(out, Visual{
			EntityID: h.ID,
			Type:     fleet.TypeHazard,
			Kind:     string(h.Type),
			Label:    fmt.Sprintf("%s %s", h.ID, h.Type),
			Lat:      h.Position.Lat,
			Lon:      h.Position.Lon,
			Style:    hazardStyle(h),
		})
	}
	return out
}

// click applies the shared selection contract for both backends.
func click(v Visual, found bool, onSelect SelectFunc) error {
	if !found {
		return ErrNoVisual
	}
	if !v.Selectable {
		return fmt.Errorf("%s (%s): %w", v.EntityID, v.Type, ErrNotClickable)
	}
	if onSelect == nil {
		return nil
	}
	return onSelect(v.EntityID)
}

func fleetPos(v Visual) fleet.Position {
	return fleet.Position{Lat: v.Lat, Lon: v.Lon}
}
