// pkg/config/env_config.go
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"
)

// EnvironmentConfig holds the deployment settings read from CARSOCCER_* environment variables
type EnvironmentConfig struct {
	ServerAddr    string
	ServerPort    int
	MaxSpectators int
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	TickRate      int
	StateRate     int
	MaxDeltaTime  float64
	Seed          uint64
	ClampCoast    bool

	// Circuit Breaker Configuration
	CircuitBreakerMaxRequests         int
	CircuitBreakerInterval            time.Duration
	CircuitBreakerTimeout             time.Duration
	CircuitBreakerMaxConsecutiveFails int

	// Input rate limiting, per spectator session
	InputRateLimit int
	InputBurst     int

	// Resource supervision
	MaxMemoryMB           int64
	MaxTasks              int
	ResourceCheckInterval time.Duration
	ShutdownTimeout       time.Duration
}

// ValidationError reports the environment setting that failed validation
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s (%v): %s", e.Field, e.Value, e.Message)
}

// LoadConfigFromEnv reads the environment configuration, falling back to defaults for unset variables
func LoadConfigFromEnv() (*EnvironmentConfig, error) {
	config := &EnvironmentConfig{
		ServerAddr:    getEnvOrDefault("CARSOCCER_SERVER_ADDR", "localhost"),
		ServerPort:    getEnvAsIntOrDefault("CARSOCCER_SERVER_PORT", 4570),
		MaxSpectators: getEnvAsIntOrDefault("CARSOCCER_MAX_SPECTATORS", 16),
		ReadTimeout:   getEnvAsDurationOrDefault("CARSOCCER_READ_TIMEOUT", 30*time.Second),
		WriteTimeout:  getEnvAsDurationOrDefault("CARSOCCER_WRITE_TIMEOUT", 10*time.Second),
		TickRate:      getEnvAsIntOrDefault("CARSOCCER_TICK_RATE", 60),
		StateRate:     getEnvAsIntOrDefault("CARSOCCER_STATE_RATE", 30),
		MaxDeltaTime:  getEnvAsFloatOrDefault("CARSOCCER_MAX_DELTA_TIME", 0.1),
		ClampCoast:    getEnvAsBoolOrDefault("CARSOCCER_CLAMP_COAST", true),

		CircuitBreakerMaxRequests:         getEnvAsIntOrDefault("CARSOCCER_CB_MAX_REQUESTS", 3),
		CircuitBreakerInterval:            getEnvAsDurationOrDefault("CARSOCCER_CB_INTERVAL", 60*time.Second),
		CircuitBreakerTimeout:             getEnvAsDurationOrDefault("CARSOCCER_CB_TIMEOUT", 30*time.Second),
		CircuitBreakerMaxConsecutiveFails: getEnvAsIntOrDefault("CARSOCCER_CB_MAX_FAILS", 5),

		InputRateLimit: getEnvAsIntOrDefault("CARSOCCER_INPUT_RATE_LIMIT", 60),
		InputBurst:     getEnvAsIntOrDefault("CARSOCCER_INPUT_BURST", 20),

		MaxMemoryMB:           int64(getEnvAsIntOrDefault("CARSOCCER_MAX_MEMORY_MB", 256)),
		MaxTasks:              getEnvAsIntOrDefault("CARSOCCER_MAX_TASKS", 64),
		ResourceCheckInterval: getEnvAsDurationOrDefault("CARSOCCER_RESOURCE_CHECK_INTERVAL", 10*time.Second),
		ShutdownTimeout:       getEnvAsDurationOrDefault("CARSOCCER_SHUTDOWN_TIMEOUT", 10*time.Second),
	}

	seed, err := getEnvAsUint64OrDefault("CARSOCCER_SEED", 0)
	if err != nil {
		return nil, fmt.Errorf("environment configuration: %w", err)
	}
	config.Seed = seed

	if err := validateEnvironmentConfig(config); err != nil {
		return nil, fmt.Errorf("environment configuration: %w", err)
	}
	return config, nil
}

func validateEnvironmentConfig(c *EnvironmentConfig) error {
	switch {
	case c.ServerAddr == "":
		return &ValidationError{Field: "ServerAddr", Value: c.ServerAddr, Message: "must not be empty"}
	case c.ServerPort < 1024 || c.ServerPort > 65535:
		return &ValidationError{Field: "ServerPort", Value: c.ServerPort, Message: "must be between 1024 and 65535"}
	case c.MaxSpectators < 1 || c.MaxSpectators > 256:
		return &ValidationError{Field: "MaxSpectators", Value: c.MaxSpectators, Message: "must be between 1 and 256"}
	case c.ReadTimeout < time.Second || c.ReadTimeout > time.Minute:
		return &ValidationError{Field: "ReadTimeout", Value: c.ReadTimeout, Message: "must be between 1s and 1m"}
	case c.WriteTimeout < time.Second || c.WriteTimeout > time.Minute:
		return &ValidationError{Field: "WriteTimeout", Value: c.WriteTimeout, Message: "must be between 1s and 1m"}
	case c.TickRate < 1 || c.TickRate > 240:
		return &ValidationError{Field: "TickRate", Value: c.TickRate, Message: "must be between 1 and 240"}
	case c.StateRate < 1 || c.StateRate > c.TickRate:
		return &ValidationError{Field: "StateRate", Value: c.StateRate, Message: "must be between 1 and the tick rate"}
	case !(c.MaxDeltaTime > 0) || c.MaxDeltaTime > 1:
		return &ValidationError{Field: "MaxDeltaTime", Value: c.MaxDeltaTime, Message: "must be in (0, 1]"}
	case c.CircuitBreakerMaxRequests < 1:
		return &ValidationError{Field: "CircuitBreakerMaxRequests", Value: c.CircuitBreakerMaxRequests, Message: "must be at least 1"}
	case c.CircuitBreakerInterval < time.Second:
		return &ValidationError{Field: "CircuitBreakerInterval", Value: c.CircuitBreakerInterval, Message: "must be at least 1s"}
	case c.CircuitBreakerTimeout < time.Second:
		return &ValidationError{Field: "CircuitBreakerTimeout", Value: c.CircuitBreakerTimeout, Message: "must be at least 1s"}
	case c.CircuitBreakerMaxConsecutiveFails < 1:
		return &ValidationError{Field: "CircuitBreakerMaxConsecutiveFails", Value: c.CircuitBreakerMaxConsecutiveFails, Message: "must be at least 1"}
	case c.InputRateLimit < 1:
		return &ValidationError{Field: "InputRateLimit", Value: c.InputRateLimit, Message: "must be at least 1"}
	case c.InputBurst < 1:
		return &ValidationError{Field: "InputBurst", Value: c.InputBurst, Message: "must be at least 1"}
	case c.MaxMemoryMB < 16:
		return &ValidationError{Field: "MaxMemoryMB", Value: c.MaxMemoryMB, Message: "must be at least 16"}
	case c.MaxTasks < 1:
		return &ValidationError{Field: "MaxTasks", Value: c.MaxTasks, Message: "must be at least 1"}
	case c.ResourceCheckInterval < 100*time.Millisecond:
		return &ValidationError{Field: "ResourceCheckInterval", Value: c.ResourceCheckInterval, Message: "must be at least 100ms"}
	}
	return nil
}

// ApplyEnvironmentOverrides overwrites the match's network settings with the environment configuration
func ApplyEnvironmentOverrides(matchConfig *MatchConfig) error {
	env, err := LoadConfigFromEnv()
	if err != nil {
		return err
	}

	matchConfig.NetworkConfig.ServerAddress = net.JoinHostPort(env.ServerAddr, strconv.Itoa(env.ServerPort))
	matchConfig.NetworkConfig.ServerPort = env.ServerPort
	matchConfig.NetworkConfig.MaxSpectators = env.MaxSpectators
	matchConfig.NetworkConfig.TickRate = env.TickRate
	matchConfig.NetworkConfig.StateRate = env.StateRate
	matchConfig.NetworkConfig.MaxDeltaTime = env.MaxDeltaTime
	if _, ok := os.LookupEnv("CARSOCCER_SEED"); ok {
		matchConfig.Seed = env.Seed
	}
	if _, ok := os.LookupEnv("CARSOCCER_CLAMP_COAST"); ok {
		matchConfig.Tuning.ClampCoast = env.ClampCoast
	}

	return matchConfig.Validate()
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvAsUint64OrDefault returns a ValidationError for values that are not unsigned integers
func getEnvAsUint64OrDefault(key string, defaultValue uint64) (uint64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, &ValidationError{Field: key, Value: value, Message: "must be a non-negative integer"}
	}
	return parsed, nil
}

func getEnvAsBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvAsFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvAsDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
