package render

import "rescueops/internal/fleet"

// Window is the geographic rectangle mapped onto the 0..100% grid.
type Window struct {
	MinLat float64 `json:"min_lat" yaml:"min_lat"`
	MaxLat float64 `json:"max_lat" yaml:"max_lat"`
	MinLon float64 `json:"min_lon" yaml:"min_lon"`
	MaxLon float64 `json:"max_lon" yaml:"max_lon"`
}

// Band bounds projected coordinates so markers never leave the canvas.
type Band struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// DefaultWindow covers the operating area around the seed data.
var DefaultWindow = Window{MinLat: 37.75, MaxLat: 37.79, MinLon: -122.44, MaxLon: -122.40}

// DefaultBand keeps markers between 5% and 90%.
var DefaultBand = Band{Min: 5, Max: 90}

// Project maps p to unclamped percentages. X grows east, Y grows south.
func (w Window) Project(p fleet.Position) (x, y float64) {
	x = (p.Lon - w.MinLon) / (w.MaxLon - w.MinLon) * 100
	y = (w.MaxLat - p.Lat) / (w.MaxLat - w.MinLat) * 100
	return x, y
}

// Valid reports whether the window has a positive extent on both axes.
func (w Window) Valid() bool {
	return w.MaxLat > w.MinLat && w.MaxLon > w.MinLon
}

// Clamp limits v to the band.
func (b Band) Clamp(v float64) float64 {
	if v < b.Min {
		return b.Min
	}
	if v > b.Max {
		return b.Max
	}
	return v
}

const metersPerDegree = 111320.0

// ProjectZone projects a zone center and converts its radius into grid
// percentages per axis.
func (w Window) ProjectZone(z Zone) Overlay {
	x, y := w.Project(z.Center)
	deg := z.RadiusM / metersPerDegree
	return Overlay{
		Zone:    z,
		X:       x,
		Y:       y,
		RadiusX: deg / (w.MaxLon - w.MinLon) * 100,
		RadiusY: deg / (w.MaxLat - w.MinLat) * 100,
	}
}
