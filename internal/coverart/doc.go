// Package coverart computes perceptual hashes for release artwork so
// candidate video thumbnails can be compared against catalog covers.
package coverart
