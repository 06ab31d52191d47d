// Package notifications pushes run outcomes to ntfy.
//
// NewService returns a no-op implementation when no topic is configured, so
// callers publish unconditionally. Events carry a small string payload; the
// ntfy notifier turns each into a title, message, tags and priority.
package notifications
