// Package resolver implements the queue stage that turns catalog metadata
// into an ordered plan of candidate URLs for the fetch stage.
package resolver
