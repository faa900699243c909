package domain

import "time"

// Config holds the complete Kestrel configuration.
type Config struct {
	// Server settings
	Server ServerConfig `json:"server" mapstructure:"server"`

	// Review controls how the orchestrators run batches
	Review ReviewConfig `json:"review" mapstructure:"review"`

	// Component configurations
	Repository RepositoryConfig `json:"repository" mapstructure:"repository"`
	Cache      CacheConfig      `json:"cache" mapstructure:"cache"`

	// ReferencePath points at an optional YAML file with DRG tables and custom rules
	ReferencePath string `json:"referencePath" mapstructure:"referencePath"`

	// Observability
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
	Tracing TracingConfig `json:"tracing" mapstructure:"tracing"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host" mapstructure:"host"`
	Port         int    `json:"port" mapstructure:"port"`
	ReadTimeout  int    `json:"readTimeout" mapstructure:"readTimeout"`   // seconds
	WriteTimeout int    `json:"writeTimeout" mapstructure:"writeTimeout"` // seconds

	// AllowedOrigins limits CORS to these origins. Empty allows any origin.
	AllowedOrigins []string `json:"allowedOrigins" mapstructure:"allowedOrigins"`
}

// ReviewConfig holds orchestrator settings.
type ReviewConfig struct {
	// Strict surfaces rule parse warnings on results instead of dropping them.
	Strict bool `json:"strict" mapstructure:"strict"`

	// BatchDelay is the pause inserted between items of a sequential batch.
	// It only paces UI feedback and has no effect on results.
	BatchDelay time.Duration `json:"batchDelay" mapstructure:"batchDelay"`

	// Workers > 1 reviews batch items in parallel; results keep input order.
	Workers int `json:"workers" mapstructure:"workers"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `json:"format" mapstructure:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool   `json:"enabled" mapstructure:"enabled"`
	ServiceName string `json:"serviceName" mapstructure:"serviceName"`
}

// DefaultConfig returns the default configuration: flat files under ./data,
// in-memory result cache, sequential batches with no artificial delay.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Review: ReviewConfig{
			Strict:     false,
			BatchDelay: 0,
			Workers:    1,
		},
		Repository: RepositoryConfig{
			DataDir:          "./data",
			ClaimsFile:       "claims.json",
			DRGFile:          "drg-claims.json",
			NecessityFile:    "medical-necessity-claims.json",
			ReadmissionsFile: "readmissions.json",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 10000,
			LocalTTL:     5 * time.Minute,
			ResultTTL:    time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "kestrel",
		},
	}
}
