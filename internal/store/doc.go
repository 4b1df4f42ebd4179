// Package store defines interfaces for data persistence operations.
// These interfaces abstract the underlying data storage mechanism from
// the review scheduler, so the same service logic runs against the
// PostgreSQL and SQLite backends in internal/platform.
package store
