// Package tag implements the queue stage that writes ID3 metadata and
// embedded cover art onto fetched artifacts. Tagging is best effort:
// failures deliver the untagged audio rather than failing the track.
package tag
