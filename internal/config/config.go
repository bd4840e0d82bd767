// Package config provides layered configuration loading.
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// Config holds the resolved configuration.
type Config struct {
	// Agent locations
	AgentConfigPath string `json:"agent_config"`
	TokenPath       string `json:"token_file"`
	PluginsDir      string `json:"plugins_dir"`
	PluginPattern   string `json:"plugin_pattern"`

	// Process images
	ServiceProcess string `json:"service_process"`
	AgentProcess   string `json:"agent_process"`

	// Event log
	EventChannel  string `json:"event_channel"`
	EventProvider string `json:"event_provider"`

	// Tool behavior
	LogFile       string        `json:"log_file"`
	Format        string        `json:"format"`
	FailOn        string        `json:"fail_on"`
	WatchDebounce time.Duration `json:"-"`

	// Sources tracks where each value came from (for debugging).
	Sources map[string]string `json:"-"`
}

// Source indicates where a config value came from.
type Source string

const (
	SourceDefault Source = "default"
	SourceSystem  Source = "system"
	SourceGlobal  Source = "global"
	SourceFile    Source = "file"
	SourceEnv     Source = "env"
	SourceFlag    Source = "flag"
)

// EnvPrefix prefixes every environment variable the tool reads.
const EnvPrefix = "ARCCHECK_"

// FlagOverrides holds command-line flag values.
type FlagOverrides struct {
	ConfigFile string
	PluginsDir string
	TokenFile  string
	LogFile    string
	Format     string
	FailOn     string
}

// Keys lists the configuration keys in display order.
var Keys = []string{
	"agent_config", "token_file", "plugins_dir", "plugin_pattern",
	"service_process", "agent_process",
	"event_channel", "event_provider",
	"log_file", "format", "fail_on", "watch_debounce",
}

// Default returns the default configuration for the running platform.
func Default() *Config {
	return defaultFor(runtime.GOOS)
}

func defaultFor(goos string) *Config {
	cfg := &Config{
		PluginPattern: "Microsoft.Azure.*",
		EventChannel:  "Microsoft-AzureArc-Agent/Operational",
		EventProvider: "Microsoft-AzureArc-Agent",
		LogFile:       filepath.Join(os.TempDir(), "AzureArcAgentChecker_log.txt"),
		Format:        "auto",
		FailOn:        "none",
		WatchDebounce: 500 * time.Millisecond,
		Sources:       make(map[string]string),
	}

	if goos == "windows" {
		agentDir := programData() + `\AzureConnectedMachineAgent`
		cfg.AgentConfigPath = agentDir + `\Config\agentconfig.json`
		cfg.TokenPath = agentDir + `\Tokens\metadata.json`
		cfg.PluginsDir = `C:\Packages\Plugins`
		cfg.ServiceProcess = "himds.exe"
		cfg.AgentProcess = "azcmagent.exe"
	} else {
		cfg.AgentConfigPath = "/var/opt/azcmagent/agentconfig.json"
		cfg.TokenPath = "/var/opt/azcmagent/tokens/metadata.json"
		cfg.PluginsDir = "/var/lib/waagent"
		cfg.ServiceProcess = "himds"
		cfg.AgentProcess = "azcmagent"
	}

	for _, key := range Keys {
		cfg.Sources[key] = string(SourceDefault)
	}
	return cfg
}

// Load loads configuration from all sources with proper precedence.
// Precedence: flags > env > --config-file > global > system > defaults
func Load(overrides FlagOverrides) (*Config, error) {
	return load(systemConfigPath(), globalConfigPath(), overrides, os.Stderr)
}

func load(systemPath, globalPath string, overrides FlagOverrides, warn io.Writer) (*Config, error) {
	cfg := Default()

	loadFromFile(cfg, systemPath, SourceSystem, warn)
	loadFromFile(cfg, globalPath, SourceGlobal, warn)

	if overrides.ConfigFile != "" {
		if _, err := os.Stat(overrides.ConfigFile); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
		loadFromFile(cfg, overrides.ConfigFile, SourceFile, warn)
	}

	LoadFromEnv(cfg)
	ApplyOverrides(cfg, overrides)

	return cfg, nil
}

// stringFields maps JSON keys to the string fields they set.
func (cfg *Config) stringFields() map[string]*string {
	return map[string]*string{
		"agent_config":    &cfg.AgentConfigPath,
		"token_file":      &cfg.TokenPath,
		"plugins_dir":     &cfg.PluginsDir,
		"plugin_pattern":  &cfg.PluginPattern,
		"service_process": &cfg.ServiceProcess,
		"agent_process":   &cfg.AgentProcess,
		"event_channel":   &cfg.EventChannel,
		"event_provider":  &cfg.EventProvider,
		"log_file":        &cfg.LogFile,
		"format":          &cfg.Format,
		"fail_on":         &cfg.FailOn,
	}
}

func loadFromFile(cfg *Config, path string, source Source, warn io.Writer) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: Path is from trusted config locations
	if err != nil {
		return // File doesn't exist, skip
	}

	var fileCfg map[string]any
	if err := json.Unmarshal(data, &fileCfg); err != nil {
		fmt.Fprintf(warn, "warning: skipping malformed config at %s: %v\n", path, err)
		return
	}

	for key, field := range cfg.stringFields() {
		if v, ok := fileCfg[key].(string); ok && v != "" {
			*field = v
			cfg.Sources[key] = string(source)
		}
	}

	if v, ok := fileCfg["watch_debounce"].(string); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			fmt.Fprintf(warn, "warning: ignoring watch_debounce %q in %s\n", v, path)
		} else {
			cfg.WatchDebounce = d
			cfg.Sources["watch_debounce"] = string(source)
		}
	}
}

// LoadFromEnv loads configuration from ARCCHECK_* environment variables.
// The variable name is the upper-cased key, e.g. ARCCHECK_PLUGINS_DIR.
func LoadFromEnv(cfg *Config) {
	for key, field := range cfg.stringFields() {
		if v := os.Getenv(EnvName(key)); v != "" {
			*field = v
			cfg.Sources[key] = string(SourceEnv)
		}
	}
	if v := os.Getenv(EnvName("watch_debounce")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			cfg.WatchDebounce = d
			cfg.Sources["watch_debounce"] = string(SourceEnv)
		}
	}
}

// EnvName returns the environment variable for a config key.
func EnvName(key string) string {
	return EnvPrefix + strings.ToUpper(key)
}

// ApplyOverrides applies non-empty flag overrides to cfg.
func ApplyOverrides(cfg *Config, o FlagOverrides) {
	set := func(key string, field *string, v string) {
		if v != "" {
			*field = v
			cfg.Sources[key] = string(SourceFlag)
		}
	}
	set("plugins_dir", &cfg.PluginsDir, o.PluginsDir)
	set("token_file", &cfg.TokenPath, o.TokenFile)
	set("log_file", &cfg.LogFile, o.LogFile)
	set("format", &cfg.Format, o.Format)
	set("fail_on", &cfg.FailOn, o.FailOn)
}

// Value returns the display value of key.
func (cfg *Config) Value(key string) string {
	if key == "watch_debounce" {
		return cfg.WatchDebounce.String()
	}
	if field, ok := cfg.stringFields()[key]; ok {
		return *field
	}
	return ""
}

// Path helpers

func programData() string {
	if dir := os.Getenv("ProgramData"); dir != "" {
		return dir
	}
	return `C:\ProgramData`
}

func systemConfigPath() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(programData(), "arccheck", "config.json")
	}
	return "/etc/arccheck/config.json"
}

func globalConfigPath() string {
	return filepath.Join(GlobalConfigDir(), "config.json")
}

// GlobalConfigDir returns the per-user config directory.
func GlobalConfigDir() string {
	configDir, err := os.UserConfigDir()
	if err != nil || configDir == "" {
		home, _ := os.UserHomeDir()
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "arccheck")
}

// SystemConfigPath returns the machine-wide config file path.
func SystemConfigPath() string { return systemConfigPath() }

// GlobalConfigPath returns the per-user config file path.
func GlobalConfigPath() string { return globalConfigPath() }
