package api

import (
	"math/rand"
	"sync"
	"time"
)

type ServiceLocation struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// EmergencyService is one nearby responder.
type EmergencyService struct {
	Type        string          `json:"type"`
	Name        string          `json:"name"`
	Distance    float64         `json:"distance"`
	Contact     string          `json:"contact"`
	Coordinates ServiceLocation `json:"coordinates"`
}

// EmergencyDirectory returns simulated responders around a coordinate.
type EmergencyDirectory struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewEmergencyDirectory(rng *rand.Rand) *EmergencyDirectory {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &EmergencyDirectory{rng: rng}
}

// Near lists a hospital, a fire station and a police station within
// roughly half a kilometre of lat/lng. Distances are in km.
func (d *EmergencyDirectory) Near(lat, lng float64) []EmergencyService {
	d.mu.Lock()
	defer d.mu.Unlock()
	jitter := func() float64 { return (d.rng.Float64() - 0.5) * 0.01 }
	mk := func(kind, name string, base, spread float64) EmergencyService {
		return EmergencyService{
			Type:        kind,
			Name:        name,
			Distance:    d.rng.Float64()*spread + base,
			Contact:     "911",
			Coordinates: ServiceLocation{Lat: lat + jitter(), Lng: lng + jitter()},
		}
	}
	return []EmergencyService{
		mk("hospital", "General Hospital", 1, 5),
		mk("fire_station", "Fire Station #3", 0.5, 3),
		mk("police", "Police Station", 1, 4),
	}
}
