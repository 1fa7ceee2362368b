package config

const (
	defaultStagingDir               = "~/.local/share/tonearm/staging"
	defaultLibraryDir               = "~/music"
	defaultLogDir                   = "~/.local/share/tonearm/logs"
	defaultLogRetentionDays         = 60
	defaultAPIBind                  = "127.0.0.1:7833"
	defaultSpotifyMarket            = "US"
	defaultSearchResultLimit        = 10
	defaultSearchFallbackLimit      = 50
	defaultThumbnailTimeout         = 8
	defaultMaxHashDistance          = 10
	defaultFetchRetries             = 2
	defaultFetchPacingSeconds       = 8
	defaultFetchSearchTimeout       = 120
	defaultFetchDownloadTimeout     = 1800
	defaultAudioFormat              = "mp3"
	defaultAudioQuality             = "0"
	defaultFallbackPlayerClient     = "tv_embedded"
	defaultPlaylistsDir             = "playlists"
	defaultAlbumsDir                = "albums"
	defaultSinglesDir               = "singles"
	defaultNotifyDedupWindowSeconds = 600
	defaultLogFormat                = "console"
	defaultLogLevel                 = "info"
	defaultHeartbeatInterval        = 15
	defaultHeartbeatTimeout         = 120
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			LibraryDir: defaultLibraryDir,
			LogDir:     defaultLogDir,
			APIBind:    defaultAPIBind,
		},
		Spotify: Spotify{
			Market: defaultSpotifyMarket,
		},
		Search: Search{
			ResultLimit:      defaultSearchResultLimit,
			FallbackLimit:    defaultSearchFallbackLimit,
			ThumbnailTimeout: defaultThumbnailTimeout,
			MaxHashDistance:  defaultMaxHashDistance,
		},
		Fetch: Fetch{
			Retries:              defaultFetchRetries,
			PacingSeconds:        defaultFetchPacingSeconds,
			SearchTimeout:        defaultFetchSearchTimeout,
			DownloadTimeout:      defaultFetchDownloadTimeout,
			AudioFormat:          defaultAudioFormat,
			AudioQuality:         defaultAudioQuality,
			FallbackPlayerClient: defaultFallbackPlayerClient,
		},
		Library: Library{
			PlaylistsDir:      defaultPlaylistsDir,
			AlbumsDir:         defaultAlbumsDir,
			SinglesDir:        defaultSinglesDir,
			OverwriteExisting: true,
		},
		Notifications: Notifications{
			RequestTimeout:     10,
			Track:              true,
			Batch:              true,
			Errors:             true,
			DedupWindowSeconds: defaultNotifyDedupWindowSeconds,
		},
		Workflow: Workflow{
			QueuePollInterval:  5,
			ErrorRetryInterval: 10,
			HeartbeatInterval:  defaultHeartbeatInterval,
			HeartbeatTimeout:   defaultHeartbeatTimeout,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
