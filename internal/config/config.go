// Package config loads the console configuration: seed entities, mission
// zones, tick cadences, map projection and the storage and messaging
// endpoints. YAML files are validated against an embedded CUE schema and
// then overlaid with environment variables.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"rescueops/internal/fleet"
	"rescueops/internal/render"
	"rescueops/internal/sim"
)

// Simulation holds the tick cadences and movement jitter.
type Simulation struct {
	PositionInterval time.Duration `yaml:"position_interval"`
	AdvisoryInterval time.Duration `yaml:"advisory_interval"`
	Jitter           float64       `yaml:"jitter"`
	Seed             int64         `yaml:"seed"`
}

// Map configures the projection used by the fallback renderer and the TUI.
type Map struct {
	Window render.Window `yaml:"window"`
	Band   render.Band   `yaml:"band"`
}

// Advisories seeds the advisory banner.
type Advisories struct {
	Initial string   `yaml:"initial"`
	Pool    []string `yaml:"pool"`
}

// Storage selects the record store and telemetry sinks.
type Storage struct {
	RedisAddr        string `yaml:"redis_addr"`
	RedisPassword    string `yaml:"redis_password"`
	RedisDB          int    `yaml:"redis_db"`
	Namespace        string `yaml:"namespace"`
	GreptimeEndpoint string `yaml:"greptime_endpoint"`
	GreptimeDatabase string `yaml:"greptime_database"`
	GreptimeTable    string `yaml:"greptime_table"`
	TelemetryLog     string `yaml:"telemetry_log"`
	Stdout           bool   `yaml:"stdout"`
}

// Messaging configures the optional Kafka alert topic and MQTT telemetry feed.
type Messaging struct {
	KafkaBrokers []string `yaml:"kafka_brokers"`
	KafkaTopic   string   `yaml:"kafka_topic"`
	MQTTBroker   string   `yaml:"mqtt_broker"`
	MQTTTopic    string   `yaml:"mqtt_topic"`
}

// HTTP holds listen addresses. An empty address disables that server.
type HTTP struct {
	AdminAddr string `yaml:"admin_addr"`
	APIAddr   string `yaml:"api_addr"`
}

// Keys are third-party API keys. They come from the environment only.
type Keys struct {
	Maps      string `yaml:"-"`
	Weather   string `yaml:"-"`
	Emergency string `yaml:"-"`
}

// Config is the root configuration.
type Config struct {
	Units      []fleet.Unit   `yaml:"units"`
	Victims    []fleet.Victim `yaml:"victims"`
	Hazards    []fleet.Hazard `yaml:"hazards"`
	Zones      []render.Zone  `yaml:"zones"`
	Simulation Simulation     `yaml:"simulation"`
	Map        Map            `yaml:"map"`
	Advisories Advisories     `yaml:"advisories"`
	Storage    Storage        `yaml:"storage"`
	Messaging  Messaging      `yaml:"messaging"`
	HTTP       HTTP           `yaml:"http"`
	LogLevel   string         `yaml:"log_level"`
	Keys       Keys           `yaml:"-"`
}

// Default returns the built-in operating picture used when no file is given.
func Default() *Config {
	return &Config{
		Units: []fleet.Unit{
			{ID: "D-001", Type: fleet.KindDrone, Position: fleet.Position{Lat: 37.7749, Lon: -122.4194}, Status: fleet.StatusActive, Battery: 85},
			{ID: "D-002", Type: fleet.KindDrone, Position: fleet.Position{Lat: 37.7849, Lon: -122.4094}, Status: fleet.StatusScanning, Battery: 62},
			{ID: "D-003", Type: fleet.KindDrone, Position: fleet.Position{Lat: 37.7649, Lon: -122.4294}, Status: fleet.StatusDelivering, Battery: 15},
			{ID: "R-001", Type: fleet.KindRover, Position: fleet.Position{Lat: 37.7549, Lon: -122.4394}, Status: fleet.StatusActive, Battery: 94},
			{ID: "R-002", Type: fleet.KindRover, Position: fleet.Position{Lat: 37.7949, Lon: -122.3994}, Status: fleet.StatusReturning, Battery: 38},
		},
		Victims: []fleet.Victim{
			{ID: "V-001", Position: fleet.Position{Lat: 37.7729, Lon: -122.4174}},
			{ID: "V-002", Position: fleet.Position{Lat: 37.7829, Lon: -122.4074}, Rescued: true},
			{ID: "V-003", Position: fleet.Position{Lat: 37.7629, Lon: -122.4274}},
		},
		Hazards: []fleet.Hazard{
			{ID: "H-001", Position: fleet.Position{Lat: 37.7769, Lon: -122.4154}, Type: fleet.HazardFire},
			{ID: "H-002", Position: fleet.Position{Lat: 37.7689, Lon: -122.4234}, Type: fleet.HazardDebris},
			{ID: "H-003", Position: fleet.Position{Lat: 37.7809, Lon: -122.4034}, Type: fleet.HazardUnstable},
		},
		Zones: []render.Zone{
			{Name: "Safe Zone Alpha", Center: fleet.Position{Lat: 37.7749, Lon: -122.4194}, RadiusM: 500, Color: "#10b981"},
			{Name: "Active Mission Beta", Center: fleet.Position{Lat: 37.7849, Lon: -122.4094}, RadiusM: 800, Color: "#f59e0b"},
			{Name: "High-Risk Zone Gamma", Center: fleet.Position{Lat: 37.7649, Lon: -122.4294}, RadiusM: 600, Color: "#ef4444"},
		},
		Simulation: Simulation{
			PositionInterval: sim.DefaultPositionInterval,
			AdvisoryInterval: sim.DefaultAdvisoryInterval,
			Jitter:           sim.DefaultJitter,
		},
		Map: Map{Window: render.DefaultWindow, Band: render.DefaultBand},
		Advisories: Advisories{
			Initial: sim.InitialAdvisory,
			Pool:    sim.DefaultAdvisories(),
		},
		Storage: Storage{
			Namespace:        "rescueops:",
			GreptimeDatabase: "public",
			GreptimeTable:    "unit_telemetry",
		},
		Messaging: Messaging{
			KafkaTopic: "rescueops.alerts",
			MQTTTopic:  "rescueops/telemetry/+",
		},
		HTTP: HTTP{
			AdminAddr: ":8081",
			APIAddr:   ":8080",
		},
		LogLevel: "info",
	}
}

// Load validates path against the schema and decodes it over Default, so
// omitted sections keep their defaults. Seed lists in the file replace the
// defaults entirely.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := Validate(path, data); err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// Entities returns every seed entity in load order: units, victims, hazards.
func (c *Config) Entities() []fleet.Entity {
	out := make([]fleet.Entity, 0, len(c.Units)+len(c.Victims)+len(c.Hazards))
	for _, u := range c.Units {
		out = append(out, u)
	}
	for _, v := range c.Victims {
		out = append(out, v)
	}
	for _, h := range c.Hazards {
		out = append(out, h)
	}
	return out
}

// Seed loads the seed entities into store.
func (c *Config) Seed(store *fleet.Store) error {
	var err error
	store.Batch(func() {
		for _, e := range c.Entities() {
			if err = store.Upsert(e); err != nil {
				err = fmt.Errorf("seed %s: %w", e.EntityID(), err)
				return
			}
		}
	})
	return err
}
