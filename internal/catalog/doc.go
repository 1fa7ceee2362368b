// Package catalog fetches track metadata from the Spotify Web API.
//
// A catalog reference (track, album, or playlist) expands into the
// ordered list of tracks to enqueue, each carrying the display metadata,
// cover art URL, and collection grouping the pipeline stages consume.
// Authentication uses the client-credentials flow; no user account is
// involved.
package catalog
