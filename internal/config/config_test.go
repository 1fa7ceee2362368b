package config_test

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"tonearm/internal/config"
)

func TestLoadDefaultConfigUsesEnvSpotifyKeysAndExpandsPaths(t *testing.T) {
	t.Setenv("SPOTIFY_ID", "test-id")
	t.Setenv("SPOTIFY_SECRET", "test-secret")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantStaging := filepath.Join(tempHome, ".local", "share", "tonearm", "staging")
	if cfg.Paths.StagingDir != wantStaging {
		t.Fatalf("unexpected staging dir: got %q want %q", cfg.Paths.StagingDir, wantStaging)
	}
	if cfg.Paths.LibraryDir != filepath.Join(tempHome, "music") {
		t.Fatalf("unexpected library dir: %q", cfg.Paths.LibraryDir)
	}
	if cfg.Paths.APIBind != "127.0.0.1:7833" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.Spotify.ClientID != "test-id" {
		t.Fatalf("expected Spotify client ID from env, got %q", cfg.Spotify.ClientID)
	}
	if cfg.Spotify.ClientSecret != "test-secret" {
		t.Fatalf("expected Spotify client secret from env, got %q", cfg.Spotify.ClientSecret)
	}
	if cfg.Spotify.Market != "US" {
		t.Fatalf("unexpected market: %q", cfg.Spotify.Market)
	}
	if cfg.Search.ResultLimit != 10 {
		t.Fatalf("unexpected search result limit: %d", cfg.Search.ResultLimit)
	}
	if cfg.Search.MaxHashDistance != 10 {
		t.Fatalf("unexpected max hash distance: %d", cfg.Search.MaxHashDistance)
	}
	if cfg.Fetch.Retries != 2 {
		t.Fatalf("unexpected fetch retries: %d", cfg.Fetch.Retries)
	}
	if cfg.Fetch.AudioFormat != "mp3" {
		t.Fatalf("unexpected audio format: %q", cfg.Fetch.AudioFormat)
	}
	if cfg.Fetch.FallbackPlayerClient != "tv_embedded" {
		t.Fatalf("unexpected fallback player client: %q", cfg.Fetch.FallbackPlayerClient)
	}
	if cfg.Workflow.HeartbeatInterval != config.Default().Workflow.HeartbeatInterval {
		t.Fatalf("unexpected heartbeat interval: %d", cfg.Workflow.HeartbeatInterval)
	}
	if cfg.Workflow.HeartbeatTimeout != config.Default().Workflow.HeartbeatTimeout {
		t.Fatalf("unexpected heartbeat timeout: %d", cfg.Workflow.HeartbeatTimeout)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}

	for _, dir := range []string{cfg.Paths.StagingDir, cfg.Paths.LibraryDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "tonearm.toml")

	type payload struct {
		Spotify struct {
			ClientID     string `toml:"client_id"`
			ClientSecret string `toml:"client_secret"`
			Market       string `toml:"market"`
		} `toml:"spotify"`
		Search struct {
			ResultLimit int `toml:"result_limit"`
		} `toml:"search"`
		Workflow struct {
			HeartbeatInterval int `toml:"heartbeat_interval"`
			HeartbeatTimeout  int `toml:"heartbeat_timeout"`
		} `toml:"workflow"`
	}
	custom := payload{}
	custom.Spotify.ClientID = "abc123"
	custom.Spotify.ClientSecret = "shh"
	custom.Spotify.Market = "de"
	custom.Search.ResultLimit = 5
	custom.Workflow.HeartbeatInterval = 20
	custom.Workflow.HeartbeatTimeout = 200
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Spotify.ClientID != "abc123" {
		t.Fatalf("expected Spotify client ID from file, got %q", cfg.Spotify.ClientID)
	}
	if cfg.Spotify.Market != "DE" {
		t.Fatalf("expected market to normalize to DE, got %q", cfg.Spotify.Market)
	}
	if cfg.Search.ResultLimit != 5 {
		t.Fatalf("expected result limit 5, got %d", cfg.Search.ResultLimit)
	}
	if cfg.Search.FallbackLimit != config.Default().Search.FallbackLimit {
		t.Fatalf("expected default fallback limit, got %d", cfg.Search.FallbackLimit)
	}
	if cfg.Workflow.HeartbeatInterval != 20 {
		t.Fatalf("expected heartbeat interval 20, got %d", cfg.Workflow.HeartbeatInterval)
	}
	if cfg.Workflow.HeartbeatTimeout != 200 {
		t.Fatalf("expected heartbeat timeout 200, got %d", cfg.Workflow.HeartbeatTimeout)
	}
}

func TestEnvVarFillsMissingSpotifyCredentials(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "tonearm.toml")

	type payload struct {
		Spotify struct {
			ClientID string `toml:"client_id"`
		} `toml:"spotify"`
	}
	custom := payload{}
	custom.Spotify.ClientID = "file-id"

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	t.Setenv("SPOTIFY_ID", "env-id")
	t.Setenv("SPOTIFY_SECRET", "env-secret")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	// File values win; env only fills blanks.
	if cfg.Spotify.ClientID != "file-id" {
		t.Errorf("expected client ID from file, got %q", cfg.Spotify.ClientID)
	}
	if cfg.Spotify.ClientSecret != "env-secret" {
		t.Errorf("expected client secret from env, got %q", cfg.Spotify.ClientSecret)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "your_spotify_client_id_here") {
		t.Fatalf("sample config missing placeholder Spotify client ID: %s", contents)
	}

	// Validate it decodes
	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}

	// On Windows join uses backslashes; skip path expectation specifics when running there to avoid
	// differences in drive letters during CI.
	if runtime.GOOS != "windows" {
		if !strings.Contains(cfg.Paths.StagingDir, "tonearm") {
			t.Fatalf("expected staging dir to contain tonearm, got %q", cfg.Paths.StagingDir)
		}
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	withCreds := func() config.Config {
		cfg := config.Default()
		cfg.Spotify.ClientID = "id"
		cfg.Spotify.ClientSecret = "secret"
		return cfg
	}

	cfg := config.Default()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing Spotify credentials")
	}

	cfg = withCreds()
	cfg.Search.ResultLimit = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero result limit")
	}

	cfg = withCreds()
	cfg.Search.FallbackLimit = cfg.Search.ResultLimit - 1
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when fallback limit below result limit")
	}

	cfg = withCreds()
	cfg.Fetch.AudioFormat = "flac"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unsupported audio format")
	}

	cfg = withCreds()
	cfg.Workflow.HeartbeatInterval = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for heartbeat interval")
	}

	cfg = withCreds()
	cfg.Workflow.HeartbeatTimeout = cfg.Workflow.HeartbeatInterval
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when timeout <= interval")
	}

	cfg = withCreds()
	cfg.Library.SinglesDir = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for empty singles dir")
	}
}
