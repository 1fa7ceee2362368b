// Package main hosts the Tonearm CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into HTTP
// calls against the daemon API, queue maintenance operations, log tailing,
// catalog fetch requests, and configuration scaffolding. Commands that can
// work without a daemon fall back to direct queue store access, so the CLI
// stays useful when nothing is running.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
// That separation keeps the CLI declarative while the heavy lifting lives in
// reusable workflow components.
package main
