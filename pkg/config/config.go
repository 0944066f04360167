// pkg/config/config.go
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/opd-ai/go-carsoccer/pkg/entity"
	"github.com/opd-ai/go-carsoccer/pkg/physics"
)

// ErrInvalidConfig is wrapped by every match configuration validation failure
var ErrInvalidConfig = errors.New("invalid match configuration")

// MatchConfig contains configuration for a car soccer match
type MatchConfig struct {
	// Seed drives the ball's random launch direction. Zero seeds from the clock.
	Seed          uint64        `json:"seed" yaml:"seed"`
	Arena         physics.Arena `json:"arena" yaml:"arena"`
	BallConfig    BallConfig    `json:"ball" yaml:"ball"`
	CarConfig     CarConfig     `json:"car" yaml:"car"`
	Tuning        Tuning        `json:"tuning" yaml:"tuning"`
	NetworkConfig NetworkConfig `json:"network" yaml:"network"`
}

// BallConfig contains configuration for the ball
type BallConfig struct {
	Spawn  physics.Vector3   `json:"spawn" yaml:"spawn"`
	Radius float64           `json:"radius" yaml:"radius"`
	Params entity.BallParams `json:"params" yaml:"params"`
}

// CarConfig contains configuration for the car
type CarConfig struct {
	Spawn           physics.Vector3 `json:"spawn" yaml:"spawn"`
	Size            physics.Vector3 `json:"size" yaml:"size"`
	CollisionRadius float64         `json:"collisionRadius" yaml:"collision_radius"`
}

// Tuning contains the input-to-motion and collision constants of the match controller
type Tuning struct {
	CarMaxSpeed     float64 `json:"carMaxSpeed" yaml:"car_max_speed"`
	CarAccel        float64 `json:"carAccel" yaml:"car_accel"`
	CarRotationRate float64 `json:"carRotationRate" yaml:"car_rotation_rate"` // rad/s
	// StrikeRetention is the share of the ball's previous speed kept when the car hits it.
	StrikeRetention float64 `json:"strikeRetention" yaml:"strike_retention"`
	// StrikeDrop is subtracted from the launched ball's y velocity.
	StrikeDrop float64 `json:"strikeDrop" yaml:"strike_drop"`
	// ClampCoast stops coasting deceleration exactly at zero instead of overshooting.
	ClampCoast bool `json:"clampCoast" yaml:"clamp_coast"`
}

// NetworkConfig contains configuration for the headless driver and state stream
type NetworkConfig struct {
	ServerAddress string  `json:"serverAddress" yaml:"server_address"`
	ServerPort    int     `json:"serverPort" yaml:"server_port"`
	TickRate      int     `json:"tickRate" yaml:"tick_rate"`   // simulation frames per second
	StateRate     int     `json:"stateRate" yaml:"state_rate"` // snapshots per second
	MaxSpectators int     `json:"maxSpectators" yaml:"max_spectators"`
	MaxDeltaTime  float64 `json:"maxDeltaTime" yaml:"max_delta_time"` // seconds, caps a late frame
}

// LoadConfig loads a configuration from a JSON or YAML file, chosen by extension.
// Fields missing from the file keep their default values.
func LoadConfig(path string) (*MatchConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if isYAML(path) {
		err = yaml.Unmarshal(data, config)
	} else {
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// SaveConfig saves a configuration to a JSON or YAML file, chosen by extension
func SaveConfig(config *MatchConfig, path string) error {
	if config == nil {
		return fmt.Errorf("failed to marshal config: %w", ErrInvalidConfig)
	}

	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(config)
	} else {
		data, err = json.MarshalIndent(config, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// Validate checks the invariants the simulation relies on
func (c *MatchConfig) Validate() error {
	if !(c.BallConfig.Radius > 0) {
		return fmt.Errorf("%w: ball radius must be positive, got %v", ErrInvalidConfig, c.BallConfig.Radius)
	}
	if !(c.CarConfig.CollisionRadius > 0) {
		return fmt.Errorf("%w: car collision radius must be positive, got %v", ErrInvalidConfig, c.CarConfig.CollisionRadius)
	}
	for axis := 0; axis < 3; axis++ {
		if !(c.Arena.Min[axis] < c.Arena.Max[axis]) {
			return fmt.Errorf("%w: arena min %v must be below max %v", ErrInvalidConfig, c.Arena.Min, c.Arena.Max)
		}
	}
	if !c.Arena.ContainsXZ(c.CarConfig.Spawn) {
		return fmt.Errorf("%w: car spawn %v outside arena", ErrInvalidConfig, c.CarConfig.Spawn)
	}
	if !isPositiveFinite(c.Tuning.CarMaxSpeed) || !isPositiveFinite(c.Tuning.CarAccel) {
		return fmt.Errorf("%w: car max speed and acceleration must be positive, got %v and %v",
			ErrInvalidConfig, c.Tuning.CarMaxSpeed, c.Tuning.CarAccel)
	}
	if !isPositiveFinite(c.Tuning.CarRotationRate) {
		return fmt.Errorf("%w: car rotation rate must be positive, got %v", ErrInvalidConfig, c.Tuning.CarRotationRate)
	}
	if r := c.BallConfig.Params.Restitution; r < 0 || r > 1 || math.IsNaN(r) {
		return fmt.Errorf("%w: restitution must be within [0, 1], got %v", ErrInvalidConfig, r)
	}
	if c.NetworkConfig.TickRate <= 0 || c.NetworkConfig.StateRate <= 0 {
		return fmt.Errorf("%w: tick and state rates must be positive", ErrInvalidConfig)
	}
	if !isPositiveFinite(c.NetworkConfig.MaxDeltaTime) {
		return fmt.Errorf("%w: max delta time must be positive", ErrInvalidConfig)
	}
	return nil
}

func isPositiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}

// DefaultConfig returns the standard car soccer configuration
func DefaultConfig() *MatchConfig {
	return &MatchConfig{
		Seed:  0,
		Arena: physics.DefaultArena(),
		BallConfig: BallConfig{
			Spawn:  physics.Vector3{0, 2.6, 0},
			Radius: 2.6,
			Params: entity.DefaultBallParams(),
		},
		CarConfig: CarConfig{
			Spawn:           physics.Vector3{0, 1, 45},
			Size:            physics.Vector3{4, 4, 5},
			CollisionRadius: 4,
		},
		Tuning: Tuning{
			CarMaxSpeed:     40,
			CarAccel:        75,
			CarRotationRate: 3 * math.Pi / 2,
			StrikeRetention: 0.5,
			StrikeDrop:      0.5,
			ClampCoast:      true,
		},
		NetworkConfig: NetworkConfig{
			ServerAddress: "localhost:4570",
			ServerPort:    4570,
			TickRate:      60,
			StateRate:     30,
			MaxSpectators: 16,
			MaxDeltaTime:  0.1,
		},
	}
}
