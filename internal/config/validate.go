package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSpotify(); err != nil {
		return err
	}
	if err := c.validateSearch(); err != nil {
		return err
	}
	if err := c.validateFetch(); err != nil {
		return err
	}
	if err := c.validateLibrary(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateSpotify() error {
	if c.Spotify.ClientID == "" || c.Spotify.ClientSecret == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/tonearm/config.toml"
		}
		return fmt.Errorf("spotify.client_id and spotify.client_secret are required. Set SPOTIFY_ID/SPOTIFY_SECRET env vars or edit %s (create with 'tonearm config init')", defaultPath)
	}
	if len(c.Spotify.Market) != 2 {
		return errors.New("spotify.market must be a two-letter country code")
	}
	return nil
}

func (c *Config) validateSearch() error {
	if c.Search.ResultLimit < 1 || c.Search.ResultLimit > 50 {
		return errors.New("search.result_limit must be between 1 and 50")
	}
	if c.Search.FallbackLimit < c.Search.ResultLimit || c.Search.FallbackLimit > 100 {
		return errors.New("search.fallback_limit must be between search.result_limit and 100")
	}
	if c.Search.ThumbnailTimeout <= 0 {
		return errors.New("search.thumbnail_timeout must be positive (seconds)")
	}
	if c.Search.MaxHashDistance < 0 || c.Search.MaxHashDistance > 64 {
		return errors.New("search.max_hash_distance must be between 0 and 64")
	}
	return nil
}

func (c *Config) validateFetch() error {
	if c.Fetch.AudioFormat != "mp3" {
		return fmt.Errorf("fetch.audio_format %q is not supported (only mp3 artifacts can be tagged)", c.Fetch.AudioFormat)
	}
	if err := ensurePositiveMap(map[string]int{
		"fetch.search_timeout":   c.Fetch.SearchTimeout,
		"fetch.download_timeout": c.Fetch.DownloadTimeout,
	}); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateLibrary() error {
	if c.Library.PlaylistsDir == "" {
		return errors.New("library.playlists_dir must be set")
	}
	if c.Library.AlbumsDir == "" {
		return errors.New("library.albums_dir must be set")
	}
	if c.Library.SinglesDir == "" {
		return errors.New("library.singles_dir must be set")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"workflow.queue_poll_interval":  c.Workflow.QueuePollInterval,
		"workflow.error_retry_interval": c.Workflow.ErrorRetryInterval,
	}); err != nil {
		return err
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		return errors.New("workflow.heartbeat_interval must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= 0 {
		return errors.New("workflow.heartbeat_timeout must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		return errors.New("workflow.heartbeat_timeout must be greater than workflow.heartbeat_interval")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if strings.TrimSpace(c.Notifications.NtfyTopic) != "" && c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	if c.Notifications.DedupWindowSeconds < 0 {
		return errors.New("notifications.dedup_window_seconds must be >= 0")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
