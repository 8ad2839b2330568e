package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

type Logging struct {
	JSONFormat bool   `yaml:"json_format"`
	Level      string `yaml:"level"`
}

type API struct {
	Enabled             bool   `yaml:"enabled" env:"KEYGATE_API_ENABLED"`
	Port                int    `yaml:"port" env:"KEYGATE_API_PORT"`
	HealthCheckFailFile string `yaml:"healthcheck_fail_file"`
}

type Workers struct {
	Enabled bool `yaml:"enabled" env:"KEYGATE_WORKERS_ENABLED"`
	Count   int  `yaml:"count"`
}

type Queue struct {
	Type     string         `yaml:"type"`
	Settings map[string]any `yaml:"settings"`
}

type Cache struct {
	Type     string         `yaml:"type"`
	Settings map[string]any `yaml:"settings"`
}

type Database struct {
	Type     string         `yaml:"type"`
	Settings map[string]any `yaml:"settings"`
}

// Tenant describes one isolated tenant data store. Users are bound to a
// tenant by name; the binding is resolved on every authorized request.
type Tenant struct {
	Name     string         `yaml:"name"`
	Type     string         `yaml:"type"`
	Settings map[string]any `yaml:"settings"`
}

// Vault selects where tenant store credentials are read from. The
// default memory vault serves the inline tenant list below.
type Vault struct {
	Type     string         `yaml:"type"`
	Settings map[string]any `yaml:"settings"`
}

type Crypto struct {
	// TokenSecret keys the bearer token codec. Read once at startup and
	// shared read-only across all issuances and validations.
	TokenSecret string `yaml:"token_secret" env:"KEYGATE_TOKEN_SECRET"`
}

type Keys struct {
	// DefaultExpiryDays is stamped onto every issued key.
	DefaultExpiryDays int `yaml:"default_expiry_days"`
}

type AdminAPIKey struct {
	Key string `yaml:"key"`
}

type KeyGateConfig struct {
	Logging      Logging       `yaml:"logging"`
	API          API           `yaml:"api"`
	Workers      Workers       `yaml:"workers"`
	Queue        Queue         `yaml:"queue"`
	Cache        Cache         `yaml:"cache"`
	Database     Database      `yaml:"database"`
	Vault        Vault         `yaml:"vault"`
	Tenants      []Tenant      `yaml:"tenants"`
	Crypto       Crypto        `yaml:"crypto"`
	Keys         Keys          `yaml:"keys"`
	AdminAPIKeys []AdminAPIKey `yaml:"admin_api_keys"`
}

// Load reads the YAML config at filePath, applying env overrides.
func Load(filePath string) (KeyGateConfig, error) {
	var conf KeyGateConfig
	if err := cleanenv.ReadConfig(filePath, &conf); err != nil {
		return KeyGateConfig{}, fmt.Errorf("config.Load: %w", err)
	}
	return conf, nil
}
