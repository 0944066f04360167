package config

import (
	"errors"
	"os"
	"testing"
	"time"
)

var envVars = []string{
	"CARSOCCER_SERVER_ADDR",
	"CARSOCCER_SERVER_PORT",
	"CARSOCCER_MAX_SPECTATORS",
	"CARSOCCER_READ_TIMEOUT",
	"CARSOCCER_WRITE_TIMEOUT",
	"CARSOCCER_TICK_RATE",
	"CARSOCCER_STATE_RATE",
	"CARSOCCER_MAX_DELTA_TIME",
	"CARSOCCER_SEED",
	"CARSOCCER_CLAMP_COAST",
	"CARSOCCER_INPUT_RATE_LIMIT",
}

// clearEnv unsets every CARSOCCER_ variable for the duration of the test
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envVars {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

// createValidConfig creates a valid EnvironmentConfig for testing
func createValidConfig() *EnvironmentConfig {
	return &EnvironmentConfig{
		ServerAddr:    "localhost",
		ServerPort:    4570,
		MaxSpectators: 16,
		ReadTimeout:   30 * time.Second,
		WriteTimeout:  10 * time.Second,
		TickRate:      60,
		StateRate:     30,
		MaxDeltaTime:  0.1,
		// Circuit Breaker Configuration
		CircuitBreakerMaxRequests:         3,
		CircuitBreakerInterval:            60 * time.Second,
		CircuitBreakerTimeout:             30 * time.Second,
		CircuitBreakerMaxConsecutiveFails: 5,
		InputRateLimit:                    60,
		InputBurst:                        20,
		MaxMemoryMB:                       256,
		MaxTasks:                          64,
		ResourceCheckInterval:             10 * time.Second,
		ShutdownTimeout:                   10 * time.Second,
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Run("DefaultValues", func(t *testing.T) {
		clearEnv(t)

		config, err := LoadConfigFromEnv()
		if err != nil {
			t.Fatalf("LoadConfigFromEnv() failed: %v", err)
		}

		if config.ServerAddr != "localhost" {
			t.Errorf("Expected ServerAddr 'localhost', got '%s'", config.ServerAddr)
		}
		if config.ServerPort != 4570 {
			t.Errorf("Expected ServerPort 4570, got %d", config.ServerPort)
		}
		if config.TickRate != 60 || config.StateRate != 30 {
			t.Errorf("Expected rates 60/30, got %d/%d", config.TickRate, config.StateRate)
		}
		if config.MaxDeltaTime != 0.1 {
			t.Errorf("Expected MaxDeltaTime 0.1, got %f", config.MaxDeltaTime)
		}
		if !config.ClampCoast {
			t.Error("Expected ClampCoast true")
		}
	})

	t.Run("EnvironmentOverrides", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("CARSOCCER_SERVER_ADDR", "0.0.0.0")
		t.Setenv("CARSOCCER_SERVER_PORT", "8080")
		t.Setenv("CARSOCCER_MAX_SPECTATORS", "4")
		t.Setenv("CARSOCCER_READ_TIMEOUT", "45s")
		t.Setenv("CARSOCCER_TICK_RATE", "120")
		t.Setenv("CARSOCCER_STATE_RATE", "15")
		t.Setenv("CARSOCCER_MAX_DELTA_TIME", "0.05")
		t.Setenv("CARSOCCER_CLAMP_COAST", "false")

		config, err := LoadConfigFromEnv()
		if err != nil {
			t.Fatalf("LoadConfigFromEnv() failed: %v", err)
		}

		if config.ServerAddr != "0.0.0.0" {
			t.Errorf("Expected ServerAddr '0.0.0.0', got '%s'", config.ServerAddr)
		}
		if config.ServerPort != 8080 {
			t.Errorf("Expected ServerPort 8080, got %d", config.ServerPort)
		}
		if config.MaxSpectators != 4 {
			t.Errorf("Expected MaxSpectators 4, got %d", config.MaxSpectators)
		}
		if config.ReadTimeout != 45*time.Second {
			t.Errorf("Expected ReadTimeout 45s, got %v", config.ReadTimeout)
		}
		if config.TickRate != 120 || config.StateRate != 15 {
			t.Errorf("Expected rates 120/15, got %d/%d", config.TickRate, config.StateRate)
		}
		if config.MaxDeltaTime != 0.05 {
			t.Errorf("Expected MaxDeltaTime 0.05, got %f", config.MaxDeltaTime)
		}
		if config.ClampCoast {
			t.Error("Expected ClampCoast false")
		}
	})

	t.Run("InvalidValue", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("CARSOCCER_SERVER_PORT", "80")

		_, err := LoadConfigFromEnv()
		var validationErr *ValidationError
		if !errors.As(err, &validationErr) {
			t.Fatalf("Expected ValidationError, got %v", err)
		}
		if validationErr.Field != "ServerPort" {
			t.Errorf("Expected field ServerPort, got %s", validationErr.Field)
		}
	})
}

func TestLoadConfigFromEnv_Seed(t *testing.T) {
	tests := []struct {
		name        string
		value       string
		expected    uint64
		expectError bool
	}{
		{name: "Unset", value: "", expected: 0},
		{name: "Positive", value: "1234", expected: 1234},
		{name: "MaxUint64", value: "18446744073709551615", expected: 18446744073709551615},
		{name: "Negative", value: "-1", expectError: true},
		{name: "NotANumber", value: "seven", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			if tt.value != "" {
				t.Setenv("CARSOCCER_SEED", tt.value)
			}

			config, err := LoadConfigFromEnv()
			if tt.expectError {
				var validationErr *ValidationError
				if !errors.As(err, &validationErr) {
					t.Fatalf("Expected ValidationError, got %v", err)
				}
				if validationErr.Field != "CARSOCCER_SEED" {
					t.Errorf("Expected field CARSOCCER_SEED, got %s", validationErr.Field)
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadConfigFromEnv failed: %v", err)
			}
			if config.Seed != tt.expected {
				t.Errorf("Expected Seed %d, got %d", tt.expected, config.Seed)
			}
		})
	}
}

func TestValidateEnvironmentConfig(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *EnvironmentConfig)
		expectError bool
		errorField  string
	}{
		{name: "ValidConfig", mutate: func(c *EnvironmentConfig) {}},
		{name: "EmptyServerAddr", mutate: func(c *EnvironmentConfig) { c.ServerAddr = "" }, expectError: true, errorField: "ServerAddr"},
		{name: "ServerPortTooLow", mutate: func(c *EnvironmentConfig) { c.ServerPort = 1023 }, expectError: true, errorField: "ServerPort"},
		{name: "ServerPortTooHigh", mutate: func(c *EnvironmentConfig) { c.ServerPort = 65536 }, expectError: true, errorField: "ServerPort"},
		{name: "NoSpectators", mutate: func(c *EnvironmentConfig) { c.MaxSpectators = 0 }, expectError: true, errorField: "MaxSpectators"},
		{name: "ReadTimeoutTooShort", mutate: func(c *EnvironmentConfig) { c.ReadTimeout = 500 * time.Millisecond }, expectError: true, errorField: "ReadTimeout"},
		{name: "TickRateTooHigh", mutate: func(c *EnvironmentConfig) { c.TickRate = 241 }, expectError: true, errorField: "TickRate"},
		{name: "StateRateAboveTickRate", mutate: func(c *EnvironmentConfig) { c.StateRate = 61 }, expectError: true, errorField: "StateRate"},
		{name: "ZeroMaxDeltaTime", mutate: func(c *EnvironmentConfig) { c.MaxDeltaTime = 0 }, expectError: true, errorField: "MaxDeltaTime"},
		{name: "CircuitBreakerMaxRequestsTooLow", mutate: func(c *EnvironmentConfig) { c.CircuitBreakerMaxRequests = 0 }, expectError: true, errorField: "CircuitBreakerMaxRequests"},
		{name: "CircuitBreakerIntervalTooShort", mutate: func(c *EnvironmentConfig) { c.CircuitBreakerInterval = 500 * time.Millisecond }, expectError: true, errorField: "CircuitBreakerInterval"},
		{name: "MemoryLimitTooLow", mutate: func(c *EnvironmentConfig) { c.MaxMemoryMB = 8 }, expectError: true, errorField: "MaxMemoryMB"},
		{name: "NoTasks", mutate: func(c *EnvironmentConfig) { c.MaxTasks = 0 }, expectError: true, errorField: "MaxTasks"},
		{name: "NoInputBurst", mutate: func(c *EnvironmentConfig) { c.InputBurst = 0 }, expectError: true, errorField: "InputBurst"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := createValidConfig()
			tt.mutate(config)
			err := validateEnvironmentConfig(config)

			if tt.expectError {
				if err == nil {
					t.Errorf("Expected validation error, but got none")
				} else if validationErr, ok := err.(*ValidationError); ok {
					if validationErr.Field != tt.errorField {
						t.Errorf("Expected error for field '%s', got error for field '%s'", tt.errorField, validationErr.Field)
					}
				} else {
					t.Errorf("Expected ValidationError, got %T: %v", err, err)
				}
			} else if err != nil {
				t.Errorf("Expected no validation error, but got: %v", err)
			}
		})
	}
}

func TestApplyEnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("CARSOCCER_SERVER_ADDR", "testhost")
	t.Setenv("CARSOCCER_SERVER_PORT", "9999")
	t.Setenv("CARSOCCER_MAX_SPECTATORS", "8")
	t.Setenv("CARSOCCER_TICK_RATE", "30")
	t.Setenv("CARSOCCER_STATE_RATE", "10")
	t.Setenv("CARSOCCER_SEED", "1234")

	matchConfig := DefaultConfig()
	if err := ApplyEnvironmentOverrides(matchConfig); err != nil {
		t.Fatalf("ApplyEnvironmentOverrides failed: %v", err)
	}

	if matchConfig.NetworkConfig.ServerAddress != "testhost:9999" {
		t.Errorf("Expected ServerAddress 'testhost:9999', got '%s'", matchConfig.NetworkConfig.ServerAddress)
	}
	if matchConfig.NetworkConfig.ServerPort != 9999 {
		t.Errorf("Expected ServerPort 9999, got %d", matchConfig.NetworkConfig.ServerPort)
	}
	if matchConfig.NetworkConfig.MaxSpectators != 8 {
		t.Errorf("Expected MaxSpectators 8, got %d", matchConfig.NetworkConfig.MaxSpectators)
	}
	if matchConfig.NetworkConfig.TickRate != 30 || matchConfig.NetworkConfig.StateRate != 10 {
		t.Errorf("Expected rates 30/10, got %d/%d", matchConfig.NetworkConfig.TickRate, matchConfig.NetworkConfig.StateRate)
	}
	if matchConfig.Seed != 1234 {
		t.Errorf("Expected Seed 1234, got %d", matchConfig.Seed)
	}
	if !matchConfig.Tuning.ClampCoast {
		t.Error("ClampCoast should be untouched when CARSOCCER_CLAMP_COAST is unset")
	}
}

func TestGetEnvHelperFunctions(t *testing.T) {
	t.Setenv("TEST_STRING", "test_value")
	if result := getEnvOrDefault("TEST_STRING", "default"); result != "test_value" {
		t.Errorf("getEnvOrDefault: expected 'test_value', got '%s'", result)
	}
	if result := getEnvOrDefault("CARSOCCER_NONEXISTENT", "default"); result != "default" {
		t.Errorf("getEnvOrDefault: expected 'default', got '%s'", result)
	}

	t.Setenv("TEST_INT", "42")
	if result := getEnvAsIntOrDefault("TEST_INT", 10); result != 42 {
		t.Errorf("getEnvAsIntOrDefault: expected 42, got %d", result)
	}
	t.Setenv("TEST_INT_BAD", "forty-two")
	if result := getEnvAsIntOrDefault("TEST_INT_BAD", 10); result != 10 {
		t.Errorf("getEnvAsIntOrDefault: expected 10 for unparsable value, got %d", result)
	}

	t.Setenv("TEST_BOOL", "false")
	if result := getEnvAsBoolOrDefault("TEST_BOOL", true); result {
		t.Errorf("getEnvAsBoolOrDefault: expected false, got %v", result)
	}

	t.Setenv("TEST_FLOAT", "2.5")
	if result := getEnvAsFloatOrDefault("TEST_FLOAT", 1.0); result != 2.5 {
		t.Errorf("getEnvAsFloatOrDefault: expected 2.5, got %f", result)
	}

	t.Setenv("TEST_DURATION", "250ms")
	if result := getEnvAsDurationOrDefault("TEST_DURATION", time.Second); result != 250*time.Millisecond {
		t.Errorf("getEnvAsDurationOrDefault: expected 250ms, got %v", result)
	}
}
