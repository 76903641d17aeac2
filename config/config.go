package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config represents the MCP server configuration
type Config struct {
	Name        string      `json:"name"`
	Version     string      `json:"version"`
	Description string      `json:"description"`
	Server      Server      `json:"server"`
	Transports  []Transport `json:"transports"`
	Logging     Logging     `json:"logging"`
	Editor      Editor      `json:"editor"`
	Tracking    Tracking    `json:"tracking"`
	Inspector   Inspector   `json:"inspector"`
}

// Server represents server configuration
type Server struct {
	Host  string `json:"host"`
	Port  int    `json:"port"`
	Debug bool   `json:"debug"`
}

// Transport represents a transport configuration
type Transport struct {
	Type    string `json:"type"`
	Enabled bool   `json:"enabled"`
	URL     string `json:"url,omitempty"`
}

// Logging represents logging configuration
type Logging struct {
	Level  string `json:"level"`
	Format string `json:"format"`
	Path   string `json:"path"`
}

// Editor holds everything needed to launch and reach an Unreal Editor
// instance: project binding, the discovery rendezvous group and the
// timeouts used by launch, discovery and execution.
type Editor struct {
	ProjectPath               string `json:"project_path"`
	EditorPath                string `json:"editor_path,omitempty"`
	MulticastGroupIP          string `json:"multicast_group_ip"`
	PortRangeStart            int    `json:"port_range_start"`
	PortRangeEnd              int    `json:"port_range_end"`
	DiscoveryTimeoutSeconds   int    `json:"discovery_timeout_seconds"`
	ExecuteTimeoutSeconds     int    `json:"execute_timeout_seconds"`
	HealthIntervalSeconds     int    `json:"health_check_interval_seconds"`
	LaunchWaitTimeoutSeconds  int    `json:"launch_wait_timeout_seconds"`
	Unattended                bool   `json:"unattended"`
	RequireUniqueDiscovery    bool   `json:"require_unique_discovery"`
	StopGracePeriodSeconds    int    `json:"stop_grace_period_seconds"`
	ReconnectIntervalSeconds  int    `json:"reconnect_interval_seconds"`
	CrashLogTailBytes         int    `json:"crash_log_tail_bytes"`
}

// Tracking controls the before/after snapshot diff around each execution.
type Tracking struct {
	Enabled           bool    `json:"enabled"`
	PositionTolerance float64 `json:"position_tolerance"`
	RotationTolerance float64 `json:"rotation_tolerance"`
}

// Inspector controls the static code inspection pass.
type Inspector struct {
	BlockingCallSeverity string `json:"blocking_call_severity"`
	MaxAutoInstalls      int    `json:"max_auto_installs"`
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = os.TempDir()
	}
	return &Config{
		Name:        "unreal-mcp-go",
		Version:     "0.1.0",
		Description: "Go-based Model Context Protocol bridge for the Unreal Editor",
		Server: Server{
			Host:  "localhost",
			Port:  9090,
			Debug: false,
		},
		Transports: []Transport{
			{
				Type:    "stdio",
				Enabled: true,
			},
			{
				Type:    "http",
				Enabled: false,
				URL:     "http://localhost:9090/mcp",
			},
		},
		Logging: Logging{
			Level:  "info",
			Format: "json",
			Path:   filepath.Join(home, ".unreal-mcp", "logs", "mcp.log"),
		},
		Editor: Editor{
			MulticastGroupIP:         "239.0.0.1",
			PortRangeStart:           6767,
			PortRangeEnd:             6866,
			DiscoveryTimeoutSeconds:  5,
			ExecuteTimeoutSeconds:    30,
			HealthIntervalSeconds:    5,
			LaunchWaitTimeoutSeconds: 120,
			StopGracePeriodSeconds:   5,
			ReconnectIntervalSeconds: 5,
			CrashLogTailBytes:        100 * 1024,
		},
		Tracking: Tracking{
			Enabled:           true,
			PositionTolerance: 0.001,
			RotationTolerance: 0.01,
		},
		Inspector: Inspector{
			BlockingCallSeverity: "warning",
			MaxAutoInstalls:      3,
		},
	}
}

// LoadConfig loads the configuration from a file
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file not found: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	// Override with environment variables (highest priority).
	applyEnvOverrides(cfg)
	cfg.Normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a file
func SaveConfig(cfg *Config, path string) error {
	if cfg == nil {
		return errors.New("config cannot be nil")
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %v", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %v", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %v", err)
	}

	return nil
}

func applyEnvOverrides(cfg *Config) {
	if portStr := os.Getenv("UE_MCP_PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil {
			cfg.Server.Port = port
		} else {
			log.Printf("warning: ignoring invalid UE_MCP_PORT value %q: %v", portStr, err)
		}
	}

	if host := os.Getenv("UE_MCP_HOST"); host != "" {
		cfg.Server.Host = host
	}

	if debug := os.Getenv("UE_MCP_DEBUG"); debug != "" {
		if parsed, err := strconv.ParseBool(debug); err == nil {
			cfg.Server.Debug = parsed
		} else {
			log.Printf("warning: ignoring invalid UE_MCP_DEBUG value %q: %v", debug, err)
		}
	}

	if logLevel := os.Getenv("UE_MCP_LOG_LEVEL"); logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	if logPath := os.Getenv("UE_MCP_LOG_PATH"); logPath != "" {
		cfg.Logging.Path = logPath
	}

	if projectPath := os.Getenv("UE_MCP_PROJECT_PATH"); projectPath != "" {
		cfg.Editor.ProjectPath = projectPath
	}

	if editorPath := os.Getenv("UE_MCP_EDITOR_PATH"); editorPath != "" {
		cfg.Editor.EditorPath = editorPath
	}

	if severity := os.Getenv("UE_MCP_BLOCKING_CALL_SEVERITY"); severity != "" {
		cfg.Inspector.BlockingCallSeverity = severity
	}

	if tracking := os.Getenv("UE_MCP_TRACKING_ENABLED"); tracking != "" {
		if parsed, err := strconv.ParseBool(tracking); err == nil {
			cfg.Tracking.Enabled = parsed
		} else {
			log.Printf("warning: ignoring invalid UE_MCP_TRACKING_ENABLED value %q: %v", tracking, err)
		}
	}
}

// Normalize canonicalizes config values so downstream validation and runtime
// logic operate on stable representations.
func (c *Config) Normalize() {
	c.Server.Host = strings.TrimSpace(c.Server.Host)
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Path = strings.TrimSpace(c.Logging.Path)
	c.Editor.ProjectPath = strings.TrimSpace(c.Editor.ProjectPath)
	c.Editor.EditorPath = strings.TrimSpace(c.Editor.EditorPath)
	c.Editor.MulticastGroupIP = strings.TrimSpace(c.Editor.MulticastGroupIP)
	c.Inspector.BlockingCallSeverity = strings.ToLower(strings.TrimSpace(c.Inspector.BlockingCallSeverity))
	if c.Inspector.BlockingCallSeverity == "" {
		c.Inspector.BlockingCallSeverity = "warning"
	}
	if c.Inspector.MaxAutoInstalls == 0 {
		c.Inspector.MaxAutoInstalls = 3
	}
	if c.Editor.MulticastGroupIP == "" {
		c.Editor.MulticastGroupIP = "239.0.0.1"
	}
	if c.Editor.PortRangeStart == 0 {
		c.Editor.PortRangeStart = 6767
	}
	if c.Editor.PortRangeEnd == 0 {
		c.Editor.PortRangeEnd = 6866
	}
	if c.Editor.HealthIntervalSeconds == 0 {
		c.Editor.HealthIntervalSeconds = 5
	}
	if c.Editor.CrashLogTailBytes == 0 {
		c.Editor.CrashLogTailBytes = 100 * 1024
	}
	if c.Tracking.PositionTolerance == 0 {
		c.Tracking.PositionTolerance = 0.001
	}
	if c.Tracking.RotationTolerance == 0 {
		c.Tracking.RotationTolerance = 0.01
	}
	for i := range c.Transports {
		c.Transports[i].Type = strings.ToLower(strings.TrimSpace(c.Transports[i].Type))
		c.Transports[i].URL = strings.TrimSpace(c.Transports[i].URL)
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.New("invalid port number")
	}

	if c.Server.Host == "" {
		return errors.New("host cannot be empty")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return errors.New("invalid log level")
	}

	validLogFormats := map[string]bool{
		"json": true,
		"text": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return errors.New("invalid log format")
	}

	if c.Logging.Path == "" {
		return errors.New("log path cannot be empty")
	}

	if len(c.Transports) == 0 {
		return errors.New("at least one transport must be enabled")
	}

	validTransportTypes := map[string]bool{
		"stdio": true,
		"http":  true,
	}

	enabledTransports := 0
	for _, t := range c.Transports {
		if !validTransportTypes[t.Type] {
			return fmt.Errorf("invalid transport type: %s", t.Type)
		}
		if t.Enabled {
			enabledTransports++
		}
	}

	if enabledTransports == 0 {
		return errors.New("at least one transport must be enabled")
	}

	if c.Editor.PortRangeStart <= 0 || c.Editor.PortRangeEnd > 65535 ||
		c.Editor.PortRangeStart > c.Editor.PortRangeEnd {
		return fmt.Errorf(
			"invalid editor port range %d-%d",
			c.Editor.PortRangeStart, c.Editor.PortRangeEnd,
		)
	}

	validSeverities := map[string]bool{
		"warning": true,
		"error":   true,
	}
	if !validSeverities[c.Inspector.BlockingCallSeverity] {
		return fmt.Errorf(
			"invalid blocking call severity %q: expected one of [warning error]",
			c.Inspector.BlockingCallSeverity,
		)
	}

	if c.Inspector.MaxAutoInstalls < 0 || c.Inspector.MaxAutoInstalls > 20 {
		return fmt.Errorf(
			"invalid max auto installs %d: expected range 0..20",
			c.Inspector.MaxAutoInstalls,
		)
	}

	if c.Tracking.PositionTolerance < 0 || c.Tracking.RotationTolerance < 0 {
		return errors.New("tracking tolerances cannot be negative")
	}

	return nil
}

// ResolveConfigPath returns the path that should be used for configuration.
func ResolveConfigPath() (string, error) {
	// First check environment variable
	if path := strings.TrimSpace(os.Getenv("UE_MCP_CONFIG_PATH")); path != "" {
		return path, nil
	}

	// Then check config/mcp_config.json in current directory
	if _, err := os.Stat("config/mcp_config.json"); err == nil {
		return "config/mcp_config.json", nil
	}

	// Finally check home directory
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(home, ".unreal-mcp", "config", "mcp_config.json"), nil
}

// EnsureDefaultConfig creates a default config file if one does not exist.
func EnsureDefaultConfig(path string) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("config path cannot be empty")
	}

	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat config file: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	defaultConfig := NewConfig()
	defaultConfig.Normalize()
	data, err := json.MarshalIndent(defaultConfig, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal default config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write default config: %w", err)
	}

	return nil
}
