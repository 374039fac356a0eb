package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// LoadEnv reads dotenv files into the process environment. Missing files
// are ignored; with no arguments ".env" is tried.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overlays secrets and endpoints from the environment. Variables
// that are unset leave the file or default value in place.
func (c *Config) ApplyEnv() {
	c.Keys.Maps = getEnv("MAPS_API_KEY", getEnv("GOOGLE_MAPS_API_KEY", c.Keys.Maps))
	c.Keys.Weather = getEnv("WEATHER_API_KEY", c.Keys.Weather)
	c.Keys.Emergency = getEnv("EMERGENCY_API_KEY", c.Keys.Emergency)

	c.Storage.RedisAddr = getEnv("REDIS_ADDR", c.Storage.RedisAddr)
	c.Storage.RedisPassword = getEnv("REDIS_PASSWORD", c.Storage.RedisPassword)
	c.Storage.RedisDB = getEnvAsInt("REDIS_DB", c.Storage.RedisDB)
	c.Storage.GreptimeEndpoint = getEnv("GREPTIMEDB_ENDPOINT", c.Storage.GreptimeEndpoint)
	c.Storage.GreptimeDatabase = getEnv("GREPTIMEDB_DATABASE", c.Storage.GreptimeDatabase)

	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		c.Messaging.KafkaBrokers = splitList(brokers)
	}
	c.Messaging.KafkaTopic = getEnv("KAFKA_TOPIC", c.Messaging.KafkaTopic)
	c.Messaging.MQTTBroker = getEnv("MQTT_BROKER_URL", c.Messaging.MQTTBroker)
	c.Messaging.MQTTTopic = getEnv("MQTT_TOPIC", c.Messaging.MQTTTopic)

	if port := getEnv("HTTP_PORT", ""); port != "" {
		c.HTTP.APIAddr = ":" + port
	}
	c.HTTP.AdminAddr = getEnv("ADMIN_ADDR", c.HTTP.AdminAddr)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
