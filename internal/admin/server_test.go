package admin

import (
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"rescueops/internal/fleet"
	"rescueops/internal/render"
	"rescueops/internal/sim"
)

func newTestServer(t *testing.T, backend render.Backend) *Server {
	t.Helper()
	store := fleet.NewStore()
	for _, e := range []fleet.Entity{
		fleet.Unit{ID: "D-001", Type: fleet.KindDrone, Position: fleet.Position{Lat: 37.7749, Lon: -122.4194}, Status: fleet.StatusActive, Battery: 85},
		fleet.Unit{ID: "R-001", Type: fleet.KindRover, Position: fleet.Position{Lat: 37.7549, Lon: -122.4394}, Status: fleet.StatusActive, Battery: 94},
		fleet.Victim{ID: "V-001", Position: fleet.Position{Lat: 37.7729, Lon: -122.4174}},
	} {
		if err := store.Upsert(e); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	rng := rand.New(rand.NewSource(1))
	console := sim.NewConsole(store,
		sim.NewPositionSimulator(store, 0, rng),
		sim.NewAdvisoryRotator(sim.DefaultAdvisories(), sim.InitialAdvisory, rng))
	adapter := render.NewAdapter(backend, store, console.Select, nil)
	console.OnSelectionChange(adapter.SetSelected)
	return NewServer(console, adapter)
}

func do(s *Server, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHandleMarkers(t *testing.T) {
	s := newTestServer(t, render.NewHostedBackend("key"))
	w := do(s, http.MethodGet, "/markers")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp markersResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Backend != "hosted" || len(resp.Markers) != 3 || resp.Revision == 0 {
		t.Fatalf("unexpected markers response %+v", resp)
	}
}

func TestClickSelectsUnitAndCommandDispatches(t *testing.T) {
	for _, b := range []render.Backend{render.NewHostedBackend("key"), render.NewFallbackBackend(render.DefaultWindow, render.DefaultBand)} {
		s := newTestServer(t, b)

		if w := do(s, http.MethodPost, "/command/scan_area"); w.Code != http.StatusConflict {
			t.Fatalf("%s: command without selection = %d", b.Name(), w.Code)
		}
		if w := do(s, http.MethodPost, "/markers/V-001/click"); w.Code != http.StatusConflict {
			t.Fatalf("%s: victim click = %d", b.Name(), w.Code)
		}
		if w := do(s, http.MethodPost, "/markers/X-1/click"); w.Code != http.StatusNotFound {
			t.Fatalf("%s: missing click = %d", b.Name(), w.Code)
		}

		w := do(s, http.MethodPost, "/markers/R-001/click")
		if w.Code != http.StatusOK {
			t.Fatalf("%s: click = %d %s", b.Name(), w.Code, w.Body.String())
		}
		if s.Console.SelectedID() != "R-001" {
			t.Fatalf("%s: selected = %q", b.Name(), s.Console.SelectedID())
		}
		for _, v := range s.Map.Visuals() {
			if v.Selected != (v.EntityID == "R-001") {
				t.Fatalf("%s: highlight wrong on %s", b.Name(), v.EntityID)
			}
		}

		w = do(s, http.MethodPost, "/command/return_base")
		if w.Code != http.StatusOK {
			t.Fatalf("%s: command = %d", b.Name(), w.Code)
		}
		if !strings.Contains(w.Body.String(), "AI: R-001 executing return_base. Optimal path calculated.") {
			t.Fatalf("%s: unexpected body %s", b.Name(), w.Body.String())
		}
		u, _ := s.Console.Store().Unit("R-001")
		if u.Status != fleet.StatusReturning {
			t.Fatalf("%s: status = %s", b.Name(), u.Status)
		}

		if w := do(s, http.MethodPost, "/command/hover"); w.Code != http.StatusBadRequest {
			t.Fatalf("%s: unknown command = %d", b.Name(), w.Code)
		}
	}
}

func TestDeselect(t *testing.T) {
	s := newTestServer(t, render.NewFallbackBackend(render.DefaultWindow, render.DefaultBand))
	_ = s.Console.Select("D-001")
	if w := do(s, http.MethodPost, "/deselect"); w.Code != http.StatusNoContent {
		t.Fatalf("deselect = %d", w.Code)
	}
	if s.Console.SelectedID() != "" {
		t.Fatalf("selection not cleared")
	}
}

func TestHandleAdvisoryAndUnits(t *testing.T) {
	s := newTestServer(t, render.NewFallbackBackend(render.DefaultWindow, render.DefaultBand))
	w := do(s, http.MethodGet, "/advisory")
	var adv map[string]string
	_ = json.NewDecoder(w.Body).Decode(&adv)
	if adv["advisory"] != sim.InitialAdvisory {
		t.Fatalf("advisory = %q", adv["advisory"])
	}

	w = do(s, http.MethodGet, "/units")
	var snap fleet.Snapshot
	if err := json.NewDecoder(w.Body).Decode(&snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(snap.Units) != 2 || len(snap.Victims) != 1 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestHandleIndex(t *testing.T) {
	s := newTestServer(t, render.NewHostedBackend("mapskey123"))
	w := do(s, http.MethodGet, "/")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "mapskey123") || !strings.Contains(body, "hosted") {
		t.Fatalf("index missing backend details")
	}
}
