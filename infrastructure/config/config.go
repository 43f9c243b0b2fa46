// Package config loads suite configuration from three layers: compiled
// defaults, YAML files under the config directory (base.yaml, then
// <environment>.yaml), and finally environment variables.
package config

import (
	"fmt"
	"time"
)

// Environment names. Anything other than production behaves like
// development for validation purposes.
const (
	Development = "development"
	Staging     = "staging"
	Production  = "production"
)

// Config holds all suite configuration.
type Config struct {
	Environment string          `yaml:"environment"`
	Server      ServerConfig    `yaml:"server"`
	Database    DatabaseConfig  `yaml:"database"`
	Events      EventsConfig    `yaml:"events"`
	AI          AIConfig        `yaml:"ai"`
	Auth        AuthConfig      `yaml:"auth"`
	Logging     LoggingConfig   `yaml:"logging"`
	Telemetry   TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	IdleTimeout     time.Duration `yaml:"idleTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	EnableCORS      bool          `yaml:"enableCors"`
}

// DatabaseConfig selects and configures the persistence driver.
type DatabaseConfig struct {
	// Driver is "memory" or "dynamodb".
	Driver    string `yaml:"driver"`
	TableName string `yaml:"tableName"`
	Region    string `yaml:"region"`
	// Endpoint overrides the DynamoDB endpoint, for local emulators.
	Endpoint string `yaml:"endpoint"`
}

// EventsConfig selects and configures the event publisher.
type EventsConfig struct {
	// Driver is "noop", "eventbridge" or "nats".
	Driver        string `yaml:"driver"`
	EventBusName  string `yaml:"eventBusName"`
	NATSURL       string `yaml:"natsUrl"`
	SubjectPrefix string `yaml:"subjectPrefix"`
}

// AIConfig configures the completion provider. When Enabled is false the
// no-op AI service is wired and extraction endpoints report unavailable.
type AIConfig struct {
	Enabled bool          `yaml:"enabled"`
	BaseURL string        `yaml:"baseUrl"`
	APIKey  string        `yaml:"apiKey"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// AuthConfig configures JWT validation.
type AuthConfig struct {
	JWTSecret string `yaml:"jwtSecret"`
	JWTIssuer string `yaml:"jwtIssuer"`
}

// LoggingConfig controls the zap logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "console"
}

// TelemetryConfig controls metrics and tracing.
type TelemetryConfig struct {
	EnableMetrics bool   `yaml:"enableMetrics"`
	EnableTracing bool   `yaml:"enableTracing"`
	OTLPEndpoint  string `yaml:"otlpEndpoint"`
	ServiceName   string `yaml:"serviceName"`
}

func defaultConfig(environment string) *Config {
	return &Config{
		Environment: environment,
		Server: ServerConfig{
			Address:         ":8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			EnableCORS:      true,
		},
		Database: DatabaseConfig{
			Driver:    "memory",
			TableName: "dooz-pm-" + environment,
			Region:    "us-east-1",
		},
		Events: EventsConfig{
			Driver:        "noop",
			EventBusName:  "default",
			NATSURL:       "",
			SubjectPrefix: "pm.events",
		},
		AI: AIConfig{
			Enabled: false,
			Timeout: 60 * time.Second,
		},
		Auth: AuthConfig{
			JWTIssuer: "dooz-pm-suite",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Telemetry: TelemetryConfig{
			EnableMetrics: true,
			EnableTracing: false,
			ServiceName:   "dooz-pm-suite",
		},
	}
}

// Validate checks that the selected drivers have what they need.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "memory":
	case "dynamodb":
		if c.Database.TableName == "" {
			return fmt.Errorf("database.tableName is required for the dynamodb driver")
		}
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}

	switch c.Events.Driver {
	case "noop":
	case "eventbridge":
		if c.Events.EventBusName == "" {
			return fmt.Errorf("events.eventBusName is required for the eventbridge driver")
		}
	case "nats":
		if c.Events.NATSURL == "" {
			return fmt.Errorf("events.natsUrl is required for the nats driver")
		}
	default:
		return fmt.Errorf("unknown events driver %q", c.Events.Driver)
	}

	if c.AI.Enabled && c.AI.Model == "" {
		return fmt.Errorf("ai.model is required when ai is enabled")
	}

	if c.IsProduction() && c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwtSecret is required in production")
	}

	return nil
}

// IsDevelopment reports whether this is a development environment.
func (c *Config) IsDevelopment() bool {
	return c.Environment == Development
}

// IsProduction reports whether this is a production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == Production
}
