package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeSpotify()
	c.normalizeSearch()
	c.normalizeFetch()
	c.normalizeLibrary()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if c.Paths.LibraryDir, err = expandPath(c.Paths.LibraryDir); err != nil {
		return fmt.Errorf("paths.library_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	return nil
}

func (c *Config) normalizeSpotify() {
	if c.Spotify.ClientID == "" {
		if value, ok := os.LookupEnv("SPOTIFY_ID"); ok {
			c.Spotify.ClientID = strings.TrimSpace(value)
		}
	}
	if c.Spotify.ClientSecret == "" {
		if value, ok := os.LookupEnv("SPOTIFY_SECRET"); ok {
			c.Spotify.ClientSecret = strings.TrimSpace(value)
		}
	}
	c.Spotify.ClientID = strings.TrimSpace(c.Spotify.ClientID)
	c.Spotify.ClientSecret = strings.TrimSpace(c.Spotify.ClientSecret)
	c.Spotify.Market = strings.ToUpper(strings.TrimSpace(c.Spotify.Market))
	if c.Spotify.Market == "" {
		c.Spotify.Market = defaultSpotifyMarket
	}
}

func (c *Config) normalizeSearch() {
	if c.Search.ResultLimit <= 0 {
		c.Search.ResultLimit = defaultSearchResultLimit
	}
	if c.Search.FallbackLimit <= 0 {
		c.Search.FallbackLimit = defaultSearchFallbackLimit
	}
	if c.Search.ThumbnailTimeout <= 0 {
		c.Search.ThumbnailTimeout = defaultThumbnailTimeout
	}
	if c.Search.MaxHashDistance <= 0 {
		c.Search.MaxHashDistance = defaultMaxHashDistance
	}
}

func (c *Config) normalizeFetch() {
	if c.Fetch.Retries < 0 {
		c.Fetch.Retries = defaultFetchRetries
	}
	if c.Fetch.PacingSeconds < 0 {
		c.Fetch.PacingSeconds = defaultFetchPacingSeconds
	}
	if c.Fetch.SearchTimeout <= 0 {
		c.Fetch.SearchTimeout = defaultFetchSearchTimeout
	}
	if c.Fetch.DownloadTimeout <= 0 {
		c.Fetch.DownloadTimeout = defaultFetchDownloadTimeout
	}
	c.Fetch.AudioFormat = strings.ToLower(strings.TrimSpace(c.Fetch.AudioFormat))
	if c.Fetch.AudioFormat == "" {
		c.Fetch.AudioFormat = defaultAudioFormat
	}
	c.Fetch.AudioQuality = strings.TrimSpace(c.Fetch.AudioQuality)
	if c.Fetch.AudioQuality == "" {
		c.Fetch.AudioQuality = defaultAudioQuality
	}
	c.Fetch.CookiesFromBrowser = strings.ToLower(strings.TrimSpace(c.Fetch.CookiesFromBrowser))
	c.Fetch.PlayerClient = strings.ToLower(strings.TrimSpace(c.Fetch.PlayerClient))
	c.Fetch.FallbackPlayerClient = strings.ToLower(strings.TrimSpace(c.Fetch.FallbackPlayerClient))
	if c.Fetch.FallbackPlayerClient == "" {
		c.Fetch.FallbackPlayerClient = defaultFallbackPlayerClient
	}
}

func (c *Config) normalizeLibrary() {
	c.Library.PlaylistsDir = strings.TrimSpace(c.Library.PlaylistsDir)
	if c.Library.PlaylistsDir == "" {
		c.Library.PlaylistsDir = defaultPlaylistsDir
	}
	c.Library.AlbumsDir = strings.TrimSpace(c.Library.AlbumsDir)
	if c.Library.AlbumsDir == "" {
		c.Library.AlbumsDir = defaultAlbumsDir
	}
	c.Library.SinglesDir = strings.TrimSpace(c.Library.SinglesDir)
	if c.Library.SinglesDir == "" {
		c.Library.SinglesDir = defaultSinglesDir
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
