// Package preflight provides readiness checks for the directories,
// credentials, and external tools Tonearm depends on.
//
// These checks run in two contexts:
//   - The workflow manager calls RunFeatureChecks once at startup and logs
//     the outcome so a misconfigured daemon announces itself immediately.
//   - The CLI status and deps commands reuse the individual check functions
//     to render readiness tables.
//
// Checks are offline: credential presence is verified without calling the
// Spotify API, which stays the catalog health check's job.
package preflight
