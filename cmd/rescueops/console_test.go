package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"rescueops/internal/clock"
	"rescueops/internal/config"
	"rescueops/internal/fleet"
	"rescueops/internal/logging"
	"rescueops/internal/render"
)

func TestConsoleAppWiring(t *testing.T) {
	cfg := config.Default()
	cfg.Simulation.Seed = 42
	fc := clock.Fake(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	app, err := newConsoleApp(cfg, fc)
	if err != nil {
		t.Fatalf("newConsoleApp returned error: %v", err)
	}
	if app.adapter.Backend().Name() != "fallback" {
		t.Fatalf("expected fallback backend without maps key, got %s", app.adapter.Backend().Name())
	}
	if got := len(app.adapter.Visuals()); got != 11 {
		t.Fatalf("expected 11 visuals, got %d", got)
	}
	if got := len(app.adapter.Overlays()); got != 3 {
		t.Fatalf("expected 3 zone overlays, got %d", got)
	}

	if err := app.adapter.Click("D-002"); err != nil {
		t.Fatalf("click failed: %v", err)
	}
	if app.console.SelectedID() != "D-002" {
		t.Fatalf("click did not select, selected=%q", app.console.SelectedID())
	}
	for _, v := range app.adapter.Visuals() {
		if v.Selected != (v.EntityID == "D-002") {
			t.Fatalf("highlight wrong on %s", v.EntityID)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/command/deliver_aid", nil)
	w := httptest.NewRecorder()
	app.admin.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("command status = %d", w.Code)
	}
	u, _ := app.console.Store().Unit("D-002")
	if u.Status != fleet.StatusDelivering {
		t.Fatalf("status = %s", u.Status)
	}
}

func TestConsoleAppSchedulerMovesUnits(t *testing.T) {
	cfg := config.Default()
	cfg.Simulation.Seed = 7
	fc := clock.Fake(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	app, err := newConsoleApp(cfg, fc)
	if err != nil {
		t.Fatalf("newConsoleApp returned error: %v", err)
	}
	renders := make(chan render.Frame, 16)
	app.adapter.OnRender(func(f render.Frame) { renders <- f })

	ctx := logging.NewContext(context.Background(), logging.Discard())
	if err := app.scheduler.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer app.scheduler.Stop()

	before, _ := app.console.Store().Unit("D-001")
	fc.Advance(cfg.Simulation.PositionInterval)
	select {
	case f := <-renders:
		after, _ := f.Snapshot.Unit("D-001")
		if after.Position == before.Position {
			t.Fatalf("unit did not move")
		}
		if after.Status != before.Status || after.Battery != before.Battery {
			t.Fatalf("position tick changed more than position")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no render after position tick")
	}
}

func TestConsoleAppHostedWithKey(t *testing.T) {
	cfg := config.Default()
	cfg.Keys.Maps = "maps-key"
	app, err := newConsoleApp(cfg, clock.Fake(time.Now()))
	if err != nil {
		t.Fatalf("newConsoleApp returned error: %v", err)
	}
	if app.adapter.Backend().Name() != "hosted" {
		t.Fatalf("expected hosted backend, got %s", app.adapter.Backend().Name())
	}
}
