package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name string, values map[string]any) string {
	t.Helper()
	path := filepath.Join(dir, name)
	data, err := json.Marshal(values)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range Keys {
		t.Setenv(EnvName(key), "")
	}
}

func TestDefaultWindows(t *testing.T) {
	t.Setenv("ProgramData", `C:\ProgramData`)
	cfg := defaultFor("windows")

	assert.Equal(t, `C:\ProgramData\AzureConnectedMachineAgent\Config\agentconfig.json`, cfg.AgentConfigPath)
	assert.Equal(t, `C:\ProgramData\AzureConnectedMachineAgent\Tokens\metadata.json`, cfg.TokenPath)
	assert.Equal(t, `C:\Packages\Plugins`, cfg.PluginsDir)
	assert.Equal(t, "himds.exe", cfg.ServiceProcess)
	assert.Equal(t, "azcmagent.exe", cfg.AgentProcess)
}

func TestDefaultLinux(t *testing.T) {
	cfg := defaultFor("linux")

	assert.Equal(t, "/var/opt/azcmagent/agentconfig.json", cfg.AgentConfigPath)
	assert.Equal(t, "/var/opt/azcmagent/tokens/metadata.json", cfg.TokenPath)
	assert.Equal(t, "/var/lib/waagent", cfg.PluginsDir)
	assert.Equal(t, "himds", cfg.ServiceProcess)
	assert.Equal(t, "azcmagent", cfg.AgentProcess)
}

func TestDefaultShared(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "Microsoft.Azure.*", cfg.PluginPattern)
	assert.Equal(t, "Microsoft-AzureArc-Agent/Operational", cfg.EventChannel)
	assert.Equal(t, "Microsoft-AzureArc-Agent", cfg.EventProvider)
	assert.Equal(t, "AzureArcAgentChecker_log.txt", filepath.Base(cfg.LogFile))
	assert.Equal(t, "auto", cfg.Format)
	assert.Equal(t, "none", cfg.FailOn)
	assert.Equal(t, 500*time.Millisecond, cfg.WatchDebounce)
	for _, key := range Keys {
		assert.Equal(t, "default", cfg.Sources[key], key)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.json", map[string]any{
		"agent_config":   "/opt/agent/agentconfig.json",
		"plugins_dir":    "/opt/plugins",
		"format":         "json",
		"watch_debounce": "2s",
		"unknown":        "ignored",
	})

	cfg := Default()
	loadFromFile(cfg, path, SourceGlobal, &bytes.Buffer{})

	assert.Equal(t, "/opt/agent/agentconfig.json", cfg.AgentConfigPath)
	assert.Equal(t, "/opt/plugins", cfg.PluginsDir)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, 2*time.Second, cfg.WatchDebounce)

	assert.Equal(t, "global", cfg.Sources["agent_config"])
	assert.Equal(t, "global", cfg.Sources["watch_debounce"])
	assert.Equal(t, "default", cfg.Sources["token_file"])
}

func TestLoadFromFileSkipsInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("not valid json"), 0644))

	var warn bytes.Buffer
	cfg := Default()
	loadFromFile(cfg, path, SourceGlobal, &warn)

	assert.Equal(t, Default().PluginsDir, cfg.PluginsDir)
	assert.Contains(t, warn.String(), "skipping malformed config")
}

func TestLoadFromFileSkipsMissingFile(t *testing.T) {
	cfg := Default()
	loadFromFile(cfg, "/nonexistent/path/config.json", SourceGlobal, &bytes.Buffer{})

	assert.Equal(t, Default().AgentConfigPath, cfg.AgentConfigPath)
}

func TestLoadFromFileBadDebounce(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.json", map[string]any{"watch_debounce": "soon"})

	var warn bytes.Buffer
	cfg := Default()
	loadFromFile(cfg, path, SourceGlobal, &warn)

	assert.Equal(t, 500*time.Millisecond, cfg.WatchDebounce)
	assert.Contains(t, warn.String(), "watch_debounce")
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("ARCCHECK_TOKEN_FILE", "/env/metadata.json")
	t.Setenv("ARCCHECK_FAIL_ON", "warning")
	t.Setenv("ARCCHECK_WATCH_DEBOUNCE", "1s")

	cfg := Default()
	LoadFromEnv(cfg)

	assert.Equal(t, "/env/metadata.json", cfg.TokenPath)
	assert.Equal(t, "warning", cfg.FailOn)
	assert.Equal(t, time.Second, cfg.WatchDebounce)
	assert.Equal(t, "env", cfg.Sources["token_file"])
}

func TestApplyOverrides(t *testing.T) {
	cfg := Default()
	ApplyOverrides(cfg, FlagOverrides{PluginsDir: "/flag/plugins", Format: "yaml"})

	assert.Equal(t, "/flag/plugins", cfg.PluginsDir)
	assert.Equal(t, "yaml", cfg.Format)
	assert.Equal(t, "flag", cfg.Sources["plugins_dir"])
	assert.Equal(t, "default", cfg.Sources["token_file"])
}

func TestLoadPrecedence(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	system := writeConfig(t, dir, "system.json", map[string]any{
		"plugins_dir":   "/system/plugins",
		"token_file":    "/system/metadata.json",
		"agent_config":  "/system/agentconfig.json",
		"log_file":      "/system/log.txt",
		"agent_process": "system-agent",
	})
	global := writeConfig(t, dir, "global.json", map[string]any{
		"plugins_dir":  "/global/plugins",
		"token_file":   "/global/metadata.json",
		"agent_config": "/global/agentconfig.json",
		"log_file":     "/global/log.txt",
	})
	explicit := writeConfig(t, dir, "explicit.json", map[string]any{
		"plugins_dir":  "/file/plugins",
		"token_file":   "/file/metadata.json",
		"agent_config": "/file/agentconfig.json",
	})
	t.Setenv("ARCCHECK_PLUGINS_DIR", "/env/plugins")
	t.Setenv("ARCCHECK_TOKEN_FILE", "/env/metadata.json")

	cfg, err := load(system, global, FlagOverrides{
		ConfigFile: explicit,
		PluginsDir: "/flag/plugins",
	}, &bytes.Buffer{})
	require.NoError(t, err)

	tests := []struct {
		key    string
		value  string
		source Source
	}{
		{"plugins_dir", "/flag/plugins", SourceFlag},
		{"token_file", "/env/metadata.json", SourceEnv},
		{"agent_config", "/file/agentconfig.json", SourceFile},
		{"log_file", "/global/log.txt", SourceGlobal},
		{"agent_process", "system-agent", SourceSystem},
		{"plugin_pattern", "Microsoft.Azure.*", SourceDefault},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.value, cfg.Value(tt.key))
			assert.Equal(t, string(tt.source), cfg.Sources[tt.key])
		})
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := load("", "", FlagOverrides{ConfigFile: filepath.Join(t.TempDir(), "nope.json")}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestValue(t *testing.T) {
	cfg := Default()
	assert.Equal(t, cfg.PluginsDir, cfg.Value("plugins_dir"))
	assert.Equal(t, "500ms", cfg.Value("watch_debounce"))
	assert.Empty(t, cfg.Value("bogus"))
}

func TestEnvName(t *testing.T) {
	assert.Equal(t, "ARCCHECK_PLUGINS_DIR", EnvName("plugins_dir"))
}
