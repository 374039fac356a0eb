package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"rescueops/internal/fleet"
	"rescueops/internal/sim"
)

func writeTemp(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "console.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestLoadShippedConfigMatchesDefault(t *testing.T) {
	cfg, err := Load("../../config/console.yaml")
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	def := Default()
	if !reflect.DeepEqual(cfg.Units, def.Units) {
		t.Errorf("units differ:\n%+v\n%+v", cfg.Units, def.Units)
	}
	if !reflect.DeepEqual(cfg.Victims, def.Victims) || !reflect.DeepEqual(cfg.Hazards, def.Hazards) {
		t.Errorf("victims or hazards differ")
	}
	if !reflect.DeepEqual(cfg.Zones, def.Zones) {
		t.Errorf("zones differ: %+v", cfg.Zones)
	}
	if cfg.Simulation.PositionInterval != 5*time.Second || cfg.Simulation.AdvisoryInterval != 8*time.Second {
		t.Errorf("unexpected cadences %+v", cfg.Simulation)
	}
	if cfg.Map != def.Map {
		t.Errorf("map = %+v, want %+v", cfg.Map, def.Map)
	}
}

func TestLoadKeepsDefaultsForOmittedSections(t *testing.T) {
	path := writeTemp(t, `
units:
  - {id: D-100, type: drone, position: {lat: 48.2, lon: 16.4}, status: active, battery: 50}
simulation:
  position_interval: 250ms
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if len(cfg.Units) != 1 || cfg.Units[0].ID != "D-100" {
		t.Fatalf("units not replaced: %+v", cfg.Units)
	}
	if len(cfg.Victims) != 3 {
		t.Errorf("victims should keep defaults, got %d", len(cfg.Victims))
	}
	if cfg.Simulation.PositionInterval != 250*time.Millisecond {
		t.Errorf("position interval = %v", cfg.Simulation.PositionInterval)
	}
	if cfg.Simulation.AdvisoryInterval != sim.DefaultAdvisoryInterval {
		t.Errorf("advisory interval = %v", cfg.Simulation.AdvisoryInterval)
	}
	if len(cfg.Advisories.Pool) != len(sim.DefaultAdvisories()) {
		t.Errorf("advisory pool lost")
	}
}

func TestLoadRejectsSchemaViolations(t *testing.T) {
	cases := map[string]string{
		"bad status":   `units: [{id: D-1, type: drone, position: {lat: 1, lon: 1}, status: flying, battery: 5}]`,
		"bad kind":     `units: [{id: D-1, type: boat, position: {lat: 1, lon: 1}, status: active, battery: 5}]`,
		"battery":      `units: [{id: D-1, type: drone, position: {lat: 1, lon: 1}, status: active, battery: 140}]`,
		"latitude":     `victims: [{id: V-1, position: {lat: 95, lon: 1}}]`,
		"hazard":       `hazards: [{id: H-1, position: {lat: 1, lon: 1}, type: flood}]`,
		"duration":     `simulation: {position_interval: soon}`,
		"unknown key":  `frobnicate: true`,
		"empty pool":   `advisories: {pool: []}`,
		"zone radius":  `zones: [{name: z, center: {lat: 1, lon: 1}, radius_m: 0}]`,
		"log level":    `log_level: verbose`,
		"missing id":   `units: [{type: drone, position: {lat: 1, lon: 1}, status: active, battery: 5}]`,
	}
	for name, body := range cases {
		if _, err := Load(writeTemp(t, body)); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("%s: err = %v, want ErrInvalidConfig", name, err)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestSeed(t *testing.T) {
	store := fleet.NewStore()
	notes := 0
	store.Observe(func(fleet.Change) { notes++ })
	if err := Default().Seed(store); err != nil {
		t.Fatalf("Seed() returned error: %v", err)
	}
	snap := store.Snapshot()
	if len(snap.Units) != 5 || len(snap.Victims) != 3 || len(snap.Hazards) != 3 {
		t.Fatalf("unexpected snapshot sizes %d/%d/%d", len(snap.Units), len(snap.Victims), len(snap.Hazards))
	}
	if notes != 1 {
		t.Errorf("seeding notified %d times, want 1", notes)
	}
}

func TestSeedRejectsInvalidEntity(t *testing.T) {
	cfg := Default()
	cfg.Units = append(cfg.Units, fleet.Unit{ID: ""})
	if err := cfg.Seed(fleet.NewStore()); !errors.Is(err, fleet.ErrEmptyID) {
		t.Fatalf("err = %v, want ErrEmptyID", err)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("MAPS_API_KEY", "maps")
	t.Setenv("WEATHER_API_KEY", "wx")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := Default()
	cfg.ApplyEnv()
	if cfg.Keys.Maps != "maps" || cfg.Keys.Weather != "wx" || cfg.Keys.Emergency != "" {
		t.Errorf("keys = %+v", cfg.Keys)
	}
	if cfg.Storage.RedisAddr != "redis:6379" || cfg.Storage.RedisDB != 3 {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	if !reflect.DeepEqual(cfg.Messaging.KafkaBrokers, []string{"k1:9092", "k2:9092"}) {
		t.Errorf("brokers = %q", cfg.Messaging.KafkaBrokers)
	}
	if cfg.HTTP.APIAddr != ":9000" || cfg.HTTP.AdminAddr != ":8081" {
		t.Errorf("http = %+v", cfg.HTTP)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log level = %q", cfg.LogLevel)
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("EMERGENCY_API_KEY=from-file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("EMERGENCY_API_KEY", "")
	os.Unsetenv("EMERGENCY_API_KEY")
	if err := LoadEnv(path, filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("LoadEnv() returned error: %v", err)
	}
	if got := os.Getenv("EMERGENCY_API_KEY"); got != "from-file" {
		t.Fatalf("EMERGENCY_API_KEY = %q", got)
	}
}
