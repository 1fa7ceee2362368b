// Package organizer implements the final queue stage: moving tagged
// artifacts out of staging into the music library.
//
// Library layout is derived from the source kind recorded at fetch time:
// playlist and album tracks land under their collection directory with a
// zero-padded track number prefix, single tracks land flat under the
// singles directory. Re-running the stage is idempotent; an interrupted
// move is detected and completed without error.
package organizer
