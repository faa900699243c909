// Package config loads application configuration and reference data.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// EnvPrefix prefixes every environment override, e.g. KESTREL_SERVER_PORT.
const EnvPrefix = "KESTREL"

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Load layers defaults, the optional config file at path and KESTREL_*
// environment variables, in increasing precedence.
func Load(path string) (*domain.Config, error) {
	v := viper.New()
	setDefaults(v, domain.DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &domain.Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every key so environment overrides reach Unmarshal.
func setDefaults(v *viper.Viper, d *domain.Config) {
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.readTimeout", d.Server.ReadTimeout)
	v.SetDefault("server.writeTimeout", d.Server.WriteTimeout)
	v.SetDefault("server.allowedOrigins", d.Server.AllowedOrigins)

	v.SetDefault("review.strict", d.Review.Strict)
	v.SetDefault("review.batchDelay", d.Review.BatchDelay)
	v.SetDefault("review.workers", d.Review.Workers)

	v.SetDefault("repository.dataDir", d.Repository.DataDir)
	v.SetDefault("repository.claimsFile", d.Repository.ClaimsFile)
	v.SetDefault("repository.drgFile", d.Repository.DRGFile)
	v.SetDefault("repository.necessityFile", d.Repository.NecessityFile)
	v.SetDefault("repository.readmissionsFile", d.Repository.ReadmissionsFile)

	v.SetDefault("cache.type", d.Cache.Type)
	v.SetDefault("cache.localMaxSize", d.Cache.LocalMaxSize)
	v.SetDefault("cache.localTTL", d.Cache.LocalTTL)
	v.SetDefault("cache.resultTTL", d.Cache.ResultTTL)
	v.SetDefault("cache.redisAddr", d.Cache.RedisAddr)
	v.SetDefault("cache.redisPassword", d.Cache.RedisPassword)
	v.SetDefault("cache.redisDB", d.Cache.RedisDB)
	v.SetDefault("cache.enableTwoPhase", d.Cache.EnableTwoPhase)

	v.SetDefault("referencePath", d.ReferencePath)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.serviceName", d.Tracing.ServiceName)
}

// Validate checks value ranges and enumerations.
func Validate(cfg *domain.Config) error {
	var problems []string
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port %d out of range", cfg.Server.Port))
	}
	if cfg.Review.Workers < 0 {
		problems = append(problems, "review.workers must not be negative")
	}
	if cfg.Review.BatchDelay < 0 {
		problems = append(problems, "review.batchDelay must not be negative")
	}
	switch cfg.Cache.Type {
	case "", "none", "memory", "redis":
	default:
		problems = append(problems, fmt.Sprintf("cache.type %q is not one of none, memory, redis", cfg.Cache.Type))
	}
	switch strings.ToLower(cfg.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("logging.level %q is not one of debug, info, warn, error", cfg.Logging.Level))
	}
	switch cfg.Logging.Format {
	case "", "json", "text":
	default:
		problems = append(problems, fmt.Sprintf("logging.format %q is not one of json, text", cfg.Logging.Format))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}
