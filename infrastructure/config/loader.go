package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load builds the configuration from defaults, then YAML files, then
// environment variables, lowest to highest priority. Missing files are
// fine; malformed files are not.
func Load() (*Config, error) {
	environment := strings.ToLower(getEnv("ENVIRONMENT", Development))
	cfg := defaultConfig(environment)

	dir := getEnv("CONFIG_DIR", "config")
	for _, name := range []string{"base", environment} {
		if err := loadFile(filepath.Join(dir, name+".yaml"), cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// MustLoad loads the configuration and panics on error. For use in main.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// applyEnv overlays environment variables. Only knobs that differ per
// deployment get an env name; everything else is file-only.
func applyEnv(cfg *Config) {
	setString(&cfg.Server.Address, "SERVER_ADDRESS")
	setBool(&cfg.Server.EnableCORS, "ENABLE_CORS")
	setDuration(&cfg.Server.ShutdownTimeout, "SHUTDOWN_TIMEOUT")

	setString(&cfg.Database.Driver, "DB_DRIVER")
	setString(&cfg.Database.TableName, "TABLE_NAME")
	setString(&cfg.Database.Region, "AWS_REGION")
	setString(&cfg.Database.Endpoint, "DYNAMODB_ENDPOINT")

	setString(&cfg.Events.Driver, "EVENTS_DRIVER")
	setString(&cfg.Events.EventBusName, "EVENT_BUS_NAME")
	setString(&cfg.Events.NATSURL, "NATS_URL")
	setString(&cfg.Events.SubjectPrefix, "EVENTS_SUBJECT_PREFIX")

	setBool(&cfg.AI.Enabled, "AI_ENABLED")
	setString(&cfg.AI.BaseURL, "AI_BASE_URL")
	setString(&cfg.AI.Model, "AI_MODEL")
	setDuration(&cfg.AI.Timeout, "AI_TIMEOUT")
	setString(&cfg.AI.APIKey, "AI_API_KEY")
	if cfg.AI.APIKey == "" {
		// The conventional name most gateways document.
		setString(&cfg.AI.APIKey, "OPENAI_API_KEY")
	}

	setString(&cfg.Auth.JWTSecret, "JWT_SECRET")
	setString(&cfg.Auth.JWTIssuer, "JWT_ISSUER")

	setString(&cfg.Logging.Level, "LOG_LEVEL")
	setString(&cfg.Logging.Format, "LOG_FORMAT")

	setBool(&cfg.Telemetry.EnableMetrics, "ENABLE_METRICS")
	setBool(&cfg.Telemetry.EnableTracing, "ENABLE_TRACING")
	setString(&cfg.Telemetry.OTLPEndpoint, "OTLP_ENDPOINT")
	setString(&cfg.Telemetry.ServiceName, "SERVICE_NAME")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func setString(target *string, key string) {
	if value := os.Getenv(key); value != "" {
		*target = value
	}
}

func setBool(target *bool, key string) {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func setDuration(target *time.Duration, key string) {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			*target = parsed
		}
	}
}
