// Package workflow coordinates background processing of queued tracks.
//
// The manager runs two lanes concurrently. The fetch lane resolves tracks
// against the catalog and downloads audio (pending through fetched), pacing
// downloads so back-to-back tracks do not hammer the source. The finish
// lane runs the local post-processing stages (trimming, tagging,
// organizing) and never touches the network, so a slow download cannot
// stall library placement of audio that is already on disk.
//
// Each lane claims the oldest eligible track, flips it to the stage's
// processing status, executes the stage handler under a heartbeat, and
// advances the track to the stage's done status. Failures are classified
// and persisted on the track; processing states left behind by a crash are
// rolled back at startup and reclaimed at runtime when heartbeats expire.
package workflow
