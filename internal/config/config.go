package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// EnvConfigFile names the optional TOML file read before the environment.
const EnvConfigFile = "ISOCHRONE_CONFIG"

const envPrefix = "ISOCHRONE_"

var envVars = []string{
	"ISOCHRONE_LOG_LEVEL",
	"ISOCHRONE_LOG_FORMAT",
	"ISOCHRONE_LOG_OUTPUT",
	"ISOCHRONE_METRICS_TEXTFILE",
	"ISOCHRONE_S3_ENDPOINT",
	"ISOCHRONE_S3_REGION",
	"ISOCHRONE_S3_ACCESS_KEY_ID",
	"ISOCHRONE_S3_SECRET_ACCESS_KEY",
	"ISOCHRONE_S3_USE_SSL",
	"ISOCHRONE_S3_BUCKET",
	"ISOCHRONE_POSTGRES_HOST",
	"ISOCHRONE_POSTGRES_PORT",
	"ISOCHRONE_POSTGRES_DATABASE",
	"ISOCHRONE_POSTGRES_USERNAME",
	"ISOCHRONE_POSTGRES_PASSWORD",
	"ISOCHRONE_POSTGRES_SSLMODE",
	"ISOCHRONE_POSTGRES_SCHEMA",
}

type Config struct {
	values map[string]string
}

// Load reads the TOML file named by ISOCHRONE_CONFIG, if any, and then
// overlays the environment.
func Load() (*Config, error) {
	cfg := &Config{
		values: make(map[string]string),
	}

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, err
		}
	}

	cfg.loadFromEnv()
	return cfg, nil
}

// LoadFile reads only the given TOML file, without the environment.
func LoadFile(path string) (*Config, error) {
	cfg := &Config{
		values: make(map[string]string),
	}
	if err := cfg.loadFromFile(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromFile flattens [section] key = value into ISOCHRONE_SECTION_KEY.
func (c *Config) loadFromFile(path string) error {
	var raw map[string]interface{}
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}

	c.flatten(envPrefix, raw)
	return nil
}

func (c *Config) flatten(prefix string, raw map[string]interface{}) {
	for key, value := range raw {
		name := prefix + strings.ToUpper(key)
		switch v := value.(type) {
		case map[string]interface{}:
			c.flatten(name+"_", v)
		default:
			c.values[name] = fmt.Sprint(v)
		}
	}
}

func (c *Config) loadFromEnv() {
	for _, envVar := range envVars {
		if value := os.Getenv(envVar); value != "" {
			c.values[envVar] = value
		}
	}
}

// Keys returns the configured keys in sorted order.
func (c *Config) Keys() []string {
	keys := make([]string, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (c *Config) Set(key, value string) {
	c.values[key] = value
}

func (c *Config) GetString(key, defaultValue string) string {
	if value, exists := c.values[key]; exists {
		return value
	}
	return defaultValue
}

func (c *Config) GetInt(key string, defaultValue int) int {
	if value, exists := c.values[key]; exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func (c *Config) GetBool(key string, defaultValue bool) bool {
	if value, exists := c.values[key]; exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func (c *Config) GetS3Config() map[string]string {
	return map[string]string{
		"endpoint":          c.GetString("ISOCHRONE_S3_ENDPOINT", ""),
		"region":            c.GetString("ISOCHRONE_S3_REGION", "us-east-1"),
		"access_key_id":     c.GetString("ISOCHRONE_S3_ACCESS_KEY_ID", ""),
		"secret_access_key": c.GetString("ISOCHRONE_S3_SECRET_ACCESS_KEY", ""),
		"use_ssl":           c.GetString("ISOCHRONE_S3_USE_SSL", "true"),
		"bucket":            c.GetString("ISOCHRONE_S3_BUCKET", ""),
	}
}

func (c *Config) GetPostgresConfig() map[string]string {
	return map[string]string{
		"host":     c.GetString("ISOCHRONE_POSTGRES_HOST", "localhost"),
		"port":     c.GetString("ISOCHRONE_POSTGRES_PORT", "5432"),
		"database": c.GetString("ISOCHRONE_POSTGRES_DATABASE", ""),
		"username": c.GetString("ISOCHRONE_POSTGRES_USERNAME", ""),
		"password": c.GetString("ISOCHRONE_POSTGRES_PASSWORD", ""),
		"sslmode":  c.GetString("ISOCHRONE_POSTGRES_SSLMODE", "prefer"),
		"schema":   c.GetString("ISOCHRONE_POSTGRES_SCHEMA", "public"),
	}
}
