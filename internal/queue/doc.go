// Package queue persists track jobs in SQLite and exposes helpers for
// driving their lifecycle.
//
// The Store manages database connections, schema initialization, stats
// queries, heartbeat tracking, stuck-track recovery, and the status
// transitions the workflow manager relies on. Queue items capture catalog
// metadata, the resolved candidate plan, artifact locations, and progress so
// stages can coordinate without additional state.
//
// The database is treated as transient storage for in-flight jobs rather
// than a long-term archive. Schema changes bump the version in schema.go;
// users clear the database to adopt the new schema.
package queue
