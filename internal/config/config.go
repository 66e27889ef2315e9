// Package config handles configuration management using Viper
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/bnema/wayseat/internal/seat"
)

// Config represents the application configuration
type Config struct {
	Seat      SeatConfig      `mapstructure:"seat"`
	Grabs     GrabsConfig     `mapstructure:"grabs"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Emergency EmergencyConfig `mapstructure:"emergency"`
	Serve     ServeConfig     `mapstructure:"serve"`
}

// SeatConfig describes the seat created at startup
type SeatConfig struct {
	Name         string   `mapstructure:"name"`
	MaxSeats     int      `mapstructure:"max_seats"`
	Capabilities []string `mapstructure:"capabilities"` // pointer, keyboard, touch
}

// GrabsConfig holds the priorities of the interactive grabs
type GrabsConfig struct {
	MovePriority       int `mapstructure:"move_priority"`
	ResizePriority     int `mapstructure:"resize_priority"`
	TouchMovePriority  int `mapstructure:"touch_move_priority"`
	TaskSwitchPriority int `mapstructure:"task_switch_priority"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	LogLevel    string `mapstructure:"log_level"`    // Override LOG_LEVEL env var
	TraceEvents bool   `mapstructure:"trace_events"` // Print the wire trace on replay
}

// EmergencyConfig configures the emergency grab release
type EmergencyConfig struct {
	Keys        []uint32 `mapstructure:"keys"` // evdev key codes held together
	TriggerFile string   `mapstructure:"trigger_file"`
}

// ServeConfig configures the SSH replay server. Empty key paths resolve
// next to the config file.
type ServeConfig struct {
	Address        string `mapstructure:"address"`
	HostKey        string `mapstructure:"host_key"`
	AuthorizedKeys string `mapstructure:"authorized_keys"`
	MaxSessions    int    `mapstructure:"max_sessions"`
}

var (
	// DefaultConfig provides sensible defaults
	DefaultConfig = Config{
		Seat: SeatConfig{
			Name:         "seat0",
			MaxSeats:     seat.DefaultMaxSeats,
			Capabilities: []string{"pointer", "keyboard", "touch"},
		},
		Grabs: GrabsConfig{
			MovePriority:       10,
			ResizePriority:     10,
			TouchMovePriority:  10,
			TaskSwitchPriority: 20,
		},
		Logging: LoggingConfig{
			LogLevel:    "", // Empty means use LOG_LEVEL env var
			TraceEvents: true,
		},
		Emergency: EmergencyConfig{
			Keys:        []uint32{29, 56, 1}, // Ctrl+Alt+Escape
			TriggerFile: "/tmp/wayseat-release",
		},
		Serve: ServeConfig{
			Address:     ":2323",
			MaxSessions: 4,
		},
	}

	// Global config instance
	cfg *Config

	// Override config path if set
	configPathOverride string
)

// SetConfigPath allows overriding the config path
func SetConfigPath(path string) {
	configPathOverride = path
}

// Init initializes the configuration system
func Init() error {
	viper.SetConfigName("wayseat")
	viper.SetConfigType("toml")

	if configPathOverride != "" {
		viper.SetConfigFile(configPathOverride)
	} else {
		viper.AddConfigPath("/etc/wayseat")
		if home := os.Getenv("HOME"); home != "" && home != "/root" {
			viper.AddConfigPath(filepath.Join(home, ".config", "wayseat"))
		}
		viper.AddConfigPath(".")
	}

	// Set defaults - need to set individual fields for proper merging
	viper.SetDefault("seat.name", DefaultConfig.Seat.Name)
	viper.SetDefault("seat.max_seats", DefaultConfig.Seat.MaxSeats)
	viper.SetDefault("seat.capabilities", DefaultConfig.Seat.Capabilities)

	viper.SetDefault("grabs.move_priority", DefaultConfig.Grabs.MovePriority)
	viper.SetDefault("grabs.resize_priority", DefaultConfig.Grabs.ResizePriority)
	viper.SetDefault("grabs.touch_move_priority", DefaultConfig.Grabs.TouchMovePriority)
	viper.SetDefault("grabs.task_switch_priority", DefaultConfig.Grabs.TaskSwitchPriority)

	viper.SetDefault("logging.log_level", DefaultConfig.Logging.LogLevel)
	viper.SetDefault("logging.trace_events", DefaultConfig.Logging.TraceEvents)

	viper.SetDefault("emergency.keys", DefaultConfig.Emergency.Keys)
	viper.SetDefault("emergency.trigger_file", DefaultConfig.Emergency.TriggerFile)

	viper.SetDefault("serve.address", DefaultConfig.Serve.Address)
	viper.SetDefault("serve.host_key", DefaultConfig.Serve.HostKey)
	viper.SetDefault("serve.authorized_keys", DefaultConfig.Serve.AuthorizedKeys)
	viper.SetDefault("serve.max_sessions", DefaultConfig.Serve.MaxSessions)

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, use defaults
	}

	cfg = &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}
	if _, err := ParseCapabilities(cfg.Seat.Capabilities); err != nil {
		return fmt.Errorf("invalid seat configuration: %w", err)
	}

	return nil
}

// Get returns the current configuration
func Get() *Config {
	if cfg == nil {
		// Return defaults if not initialized
		return &DefaultConfig
	}
	return cfg
}

// Set sets the current configuration (for testing)
func Set(c *Config) {
	cfg = c
}

// UpdateSeat replaces the seat section and saves the file
func UpdateSeat(seatCfg SeatConfig) error {
	viper.Set("seat.name", seatCfg.Name)
	viper.Set("seat.max_seats", seatCfg.MaxSeats)
	viper.Set("seat.capabilities", seatCfg.Capabilities)
	if cfg == nil {
		c := DefaultConfig
		cfg = &c
	}
	cfg.Seat = seatCfg
	return Save()
}

// Save saves the current configuration to file
func Save() error {
	configPath := GetConfigPath()

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		if os.IsPermission(err) && strings.Contains(configPath, "/etc/") {
			return fmt.Errorf("failed to create config directory %s: permission denied. Try running with sudo", dir)
		}
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := viper.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() string {
	if configPathOverride != "" {
		return configPathOverride
	}

	if viper.ConfigFileUsed() != "" {
		return viper.ConfigFileUsed()
	}

	if os.Getuid() == 0 || os.Getenv("SUDO_USER") != "" {
		return "/etc/wayseat/wayseat.toml"
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "/etc/wayseat/wayseat.toml"
	}

	return filepath.Join(home, ".config", "wayseat", "wayseat.toml")
}

// HostKeyPath returns the SSH host key path, defaulting to a file next to
// the config file
func (s ServeConfig) HostKeyPath() string {
	if s.HostKey != "" {
		return s.HostKey
	}
	return filepath.Join(filepath.Dir(GetConfigPath()), "ssh_host_ed25519_key")
}

// AuthorizedKeysPath returns the authorized_keys path, defaulting to a file
// next to the config file
func (s ServeConfig) AuthorizedKeysPath() string {
	if s.AuthorizedKeys != "" {
		return s.AuthorizedKeys
	}
	return filepath.Join(filepath.Dir(GetConfigPath()), "authorized_keys")
}

// ParseCapabilities turns capability names into a capability set
func ParseCapabilities(names []string) (seat.Capability, error) {
	var caps seat.Capability
	for _, name := range names {
		c, ok := seat.ParseCapability(name)
		if !ok {
			return 0, fmt.Errorf("unknown capability %q", name)
		}
		caps |= c
	}
	return caps, nil
}
