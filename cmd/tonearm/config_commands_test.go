package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigInitWritesSample(t *testing.T) {
	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	target := filepath.Join(base, "config.toml")

	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration to "+target)

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	requireContains(t, string(data), "[spotify]")
	requireContains(t, string(data), "client_id")

	_, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err == nil || !strings.Contains(err.Error(), "use --overwrite to replace it") {
		t.Fatalf("expected overwrite guard, got %v", err)
	}

	out, _, err = runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, "")
	if err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration to "+target)
}

func TestConfigInitDefaultPath(t *testing.T) {
	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	out, _, err := runCLI(t, []string{"config", "init"}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	expected := filepath.Join(homeDir, ".config", "tonearm", "config.toml")
	requireContains(t, out, expected)
	if _, err := os.Stat(expected); err != nil {
		t.Fatalf("expected sample at default path: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Config path: "+env.configPath)
	requireContains(t, out, "Configuration valid")
}

func TestConfigValidateMissingFile(t *testing.T) {
	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	// Credentials come from the environment here; validation rejects a
	// config without them.
	t.Setenv("SPOTIFY_ID", "env-id")
	t.Setenv("SPOTIFY_SECRET", "env-secret")

	out, _, err := runCLI(t, []string{"config", "validate", "--config", filepath.Join(base, "missing.toml")}, "")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Config file did not exist; defaults were used")
	requireContains(t, out, "Configuration valid")
}

func TestConfigValidateRejectsMissingCredentials(t *testing.T) {
	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	t.Setenv("SPOTIFY_ID", "")
	t.Setenv("SPOTIFY_SECRET", "")

	_, _, err := runCLI(t, []string{"config", "validate", "--config", filepath.Join(base, "missing.toml")}, "")
	if err == nil || !strings.Contains(err.Error(), "spotify.client_id") {
		t.Fatalf("expected credential validation error, got %v", err)
	}
}

func TestConfigShowMasksSecrets(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "Staging directory: "+env.cfg.Paths.StagingDir)
	requireContains(t, out, "API bind: "+env.cfg.Paths.APIBind)
	requireContains(t, out, "Spotify credentials: set")
	if strings.Contains(out, "test-secret") {
		t.Fatal("config show leaked the client secret")
	}
}

func TestConfigShowJSON(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "show", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("config show --json: %v", err)
	}

	var summary map[string]any
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("invalid JSON: %v\noutput: %s", err, out)
	}
	if summary["spotifySet"] != true {
		t.Fatalf("expected spotifySet=true, got %v", summary["spotifySet"])
	}
	if summary["apiTokenSet"] != false {
		t.Fatalf("expected apiTokenSet=false, got %v", summary["apiTokenSet"])
	}
	if _, ok := summary["clientSecret"]; ok {
		t.Fatal("config show --json leaked the client secret")
	}
}
