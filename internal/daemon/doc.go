// Package daemon coordinates the long-running Tonearm process.
//
// It wires configuration, queue storage, the workflow manager, and the HTTP
// API into a single lifecycle with flock-based locking to prevent multiple
// instances. The daemon exposes queue maintenance helpers, accepts catalog
// fetch requests, and reports dependency health.
//
// Keep orchestration logic here: individual pipeline stages live in their
// respective packages while the daemon focuses on startup, shutdown, and high
// level coordination.
package daemon
