// Package notifications delivers workflow events to an ntfy topic.
// The service is a noop when no topic is configured, and repeated
// identical messages are suppressed within a configurable window.
package notifications
