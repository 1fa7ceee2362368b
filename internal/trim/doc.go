// Package trim implements the queue stage that losslessly shortens a
// fetched artifact to its catalog duration. Trimming is best effort:
// failures keep the original audio and never fail the track.
package trim
