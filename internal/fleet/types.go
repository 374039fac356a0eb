// Entity types tracked by the console map
package fleet

import "math"

// EntityType distinguishes the three collections held by the Store.
type EntityType string

const (
	TypeUnit   EntityType = "unit"
	TypeVictim EntityType = "victim"
	TypeHazard EntityType = "hazard"
)

// UnitKind is fixed when a unit is created.
type UnitKind string

const (
	KindDrone UnitKind = "drone"
	KindRover UnitKind = "rover"
)

// UnitStatus is advanced only by operator commands.
type UnitStatus string

const (
	StatusActive     UnitStatus = "active"
	StatusScanning   UnitStatus = "scanning"
	StatusDelivering UnitStatus = "delivering"
	StatusReturning  UnitStatus = "returning"
)

// HazardKind classifies a hazard marker.
type HazardKind string

const (
	HazardFire     HazardKind = "fire"
	HazardDebris   HazardKind = "debris"
	HazardUnstable HazardKind = "unstable"
)

// Position holds latitude and longitude in degrees.
type Position struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lng" yaml:"lon"`
}

// Finite reports whether both coordinates are real numbers.
func (p Position) Finite() bool {
	return !math.IsNaN(p.Lat) && !math.IsInf(p.Lat, 0) &&
		!math.IsNaN(p.Lon) && !math.IsInf(p.Lon, 0)
}

// Entity is implemented by Unit, Victim and Hazard.
type Entity interface {
	EntityID() string
	EntityType() EntityType
	// Kind returns the immutable sub-kind, or "" when the type has none.
	Kind() string
	Pos() Position
}

// Unit is one drone or rover.
type Unit struct {
	ID       string     `json:"id" yaml:"id"`
	Type     UnitKind   `json:"type" yaml:"type"`
	Position Position   `json:"position" yaml:"position"`
	Status   UnitStatus `json:"status" yaml:"status"`
	Battery  float64    `json:"battery" yaml:"battery"`
}

func (u Unit) EntityID() string       { return u.ID }
func (u Unit) EntityType() EntityType { return TypeUnit }
func (u Unit) Kind() string           { return string(u.Type) }
func (u Unit) Pos() Position          { return u.Position }

// Victim is a located person awaiting rescue.
type Victim struct {
	ID       string   `json:"id" yaml:"id"`
	Position Position `json:"position" yaml:"position"`
	Rescued  bool     `json:"rescued" yaml:"rescued"`
}

func (v Victim) EntityID() string       { return v.ID }
func (v Victim) EntityType() EntityType { return TypeVictim }
func (v Victim) Kind() string           { return "" }
func (v Victim) Pos() Position          { return v.Position }

// Hazard is a geospatial danger marker.
type Hazard struct {
	ID       string     `json:"id" yaml:"id"`
	Position Position   `json:"position" yaml:"position"`
	Type     HazardKind `json:"type" yaml:"type"`
}

func (h Hazard) EntityID() string       { return h.ID }
func (h Hazard) EntityType() EntityType { return TypeHazard }
func (h Hazard) Kind() string           { return string(h.Type) }
func (h Hazard) Pos() Position          { return h.Position }

// Snapshot is an immutable copy of the Store contents in insertion order.
type Snapshot struct {
	Units   []Unit   `json:"units"`
	Victims []Victim `json:"victims"`
	Hazards []Hazard `json:"hazards"`
}

// Len returns the number of entities in the snapshot.
func (s Snapshot) Len() int {
	return len(s.Units) + len(s.Victims) + len(s.Hazards)
}

// Entities flattens the snapshot: units, then victims, then hazards.
func (s Snapshot) Entities() []Entity {
	out := make([]Entity, 0, s.Len())
	for _, u := range s.Units {
		out = append(out, u)
	}
	for _, v := range s.Victims {
		out = append(out, v)
	}
	for _, h := range s.Hazards {
		out = append(out, h)
	}
	return out
}

// Unit looks up a unit by id.
func (s Snapshot) Unit(id string) (Unit, bool) {
	for _, u := range s.Units {
		if u.ID == id {
			return u, true
		}
	}
	return Unit{}, false
}
