package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"rescueops/internal/fleet"
	"rescueops/internal/render"
)

type fakeProgram struct{ msgs []tea.Msg }

func (f *fakeProgram) Send(msg tea.Msg) { f.msgs = append(f.msgs, msg) }

type fakeCtrl struct {
	selected   []string
	deselected int
	dispatched []string
	err        error
}

func (f *fakeCtrl) Select(id string) error {
	f.selected = append(f.selected, id)
	return f.err
}

func (f *fakeCtrl) Deselect() { f.deselected++ }

func (f *fakeCtrl) DispatchName(name string) (fleet.Unit, error) {
	f.dispatched = append(f.dispatched, name)
	if f.err != nil {
		return fleet.Unit{}, f.err
	}
	return fleet.Unit{ID: "D-001", Status: fleet.StatusScanning}, nil
}

func testVisuals() []render.Visual {
	b := render.NewFallbackBackend(render.DefaultWindow, render.DefaultBand)
	b.RenderSnapshot(render.Frame{Snapshot: fleet.Snapshot{
		Units: []fleet.Unit{
			{ID: "D-001", Type: fleet.KindDrone, Position: fleet.Position{Lat: 37.77, Lon: -122.42}, Status: fleet.StatusActive, Battery: 85},
			{ID: "R-001", Type: fleet.KindRover, Position: fleet.Position{Lat: 37.76, Lon: -122.43}, Status: fleet.StatusActive, Battery: 94},
		},
		Victims: []fleet.Victim{{ID: "V-001", Position: fleet.Position{Lat: 37.78, Lon: -122.41}}},
		Hazards: []fleet.Hazard{{ID: "H-001", Position: fleet.Position{Lat: 37.785, Lon: -122.405}, Type: fleet.HazardFire}},
	}}, nil)
	return b.Visuals()
}

func newTestModel(ctrl Controller) model {
	m := newModel(ctrl, "fallback", render.DefaultWindow, render.DefaultBand, "initial advisory")
	m.now = func() time.Time { return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC) }
	mi, _ := m.Update(tea.WindowSizeMsg{Width: 60, Height: 40})
	mi, _ = mi.Update(frameMsg{visuals: testVisuals()})
	return mi.(model)
}

func press(m model, key string) (model, tea.Cmd) {
	var msg tea.KeyMsg
	switch key {
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	case "shift+tab":
		msg = tea.KeyMsg{Type: tea.KeyShiftTab}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	mi, cmd := m.Update(msg)
	return mi.(model), cmd
}

func TestUIMessages(t *testing.T) {
	p := &fakeProgram{}
	u := &UI{program: p}
	u.ShowFrame(testVisuals(), nil)
	u.ShowAdvisory("AI: D-001 executing scan_area. Optimal path calculated.")
	u.ShowSelection("D-001")
	u.Logf("hello %d", 1)
	if len(p.msgs) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(p.msgs))
	}
	if _, ok := p.msgs[0].(frameMsg); !ok {
		t.Fatalf("expected frameMsg, got %T", p.msgs[0])
	}
	if a, ok := p.msgs[1].(advisoryMsg); !ok || !strings.HasPrefix(a.text, "AI: D-001") {
		t.Fatalf("unexpected advisory msg %#v", p.msgs[1])
	}
	if s, ok := p.msgs[2].(selectionMsg); !ok || s.id != "D-001" {
		t.Fatalf("unexpected selection msg %#v", p.msgs[2])
	}
	if l, ok := p.msgs[3].(logMsg); !ok || l.line != "hello 1" {
		t.Fatalf("unexpected log msg %#v", p.msgs[3])
	}
}

func TestTabCyclesUnitsOnly(t *testing.T) {
	ctrl := &fakeCtrl{}
	m := newTestModel(ctrl)

	m, cmd := press(m, "tab")
	if cmd == nil {
		t.Fatalf("expected select command")
	}
	cmd()
	mi, _ := m.Update(selectionMsg{id: "D-001"})
	m = mi.(model)

	_, cmd = press(m, "tab")
	cmd()
	_, cmd = press(m, "shift+tab")
	cmd()
	want := []string{"D-001", "R-001", "R-001"}
	if strings.Join(ctrl.selected, ",") != strings.Join(want, ",") {
		t.Fatalf("selected %v, want %v", ctrl.selected, want)
	}
}

func TestCommandKeysDispatch(t *testing.T) {
	ctrl := &fakeCtrl{}
	m := newTestModel(ctrl)
	for _, k := range []string{"s", "2", "x", "r"} {
		var cmd tea.Cmd
		m, cmd = press(m, k)
		if cmd == nil {
			t.Fatalf("key %s produced no command", k)
		}
		mi, _ := m.Update(cmd())
		m = mi.(model)
	}
	want := "scan_area,deliver_aid,extract,return_base"
	if got := strings.Join(ctrl.dispatched, ","); got != want {
		t.Fatalf("dispatched %s, want %s", got, want)
	}
	if len(m.logs) != 4 || !strings.Contains(m.logs[0], "scan_area -> D-001") {
		t.Fatalf("unexpected logs %q", m.logs)
	}
}

func TestDispatchErrorIsLogged(t *testing.T) {
	ctrl := &fakeCtrl{err: errors.New("no unit selected")}
	m := newTestModel(ctrl)
	m, cmd := press(m, "s")
	mi, _ := m.Update(cmd())
	m = mi.(model)
	if len(m.logs) != 1 || !strings.Contains(m.logs[0], "no unit selected") {
		t.Fatalf("error not logged: %q", m.logs)
	}
}

func TestEscDeselects(t *testing.T) {
	ctrl := &fakeCtrl{}
	m := newTestModel(ctrl)
	_, cmd := press(m, "esc")
	cmd()
	if ctrl.deselected != 1 {
		t.Fatalf("expected deselect")
	}
}

func TestViewDrawsEveryEntity(t *testing.T) {
	m := newTestModel(&fakeCtrl{})
	out := m.View()
	for _, g := range []string{"D", "R", "V", "!"} {
		if !strings.Contains(out, g) {
			t.Fatalf("map missing glyph %q", g)
		}
	}
	if !strings.Contains(out, "initial advisory") {
		t.Fatalf("advisory missing from view")
	}

	mi, _ := m.Update(advisoryMsg{text: "rotated advisory"})
	m = mi.(model)
	if !strings.Contains(m.View(), "rotated advisory") {
		t.Fatalf("advisory not updated")
	}

	m, _ = press(m, "m")
	if m.showMap {
		t.Fatalf("map not toggled")
	}
}

func TestQuit(t *testing.T) {
	m := newTestModel(&fakeCtrl{})
	_, cmd := press(m, "q")
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected QuitMsg")
	}
}
