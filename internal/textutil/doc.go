// Package textutil provides text canonicalization and filename sanitization.
//
// The primary use cases are:
//   - Normalizing track titles, artist names, and channel names into a
//     canonical lowercase form for token comparison
//   - Sanitizing filenames and path segments for safe filesystem use
//
// Normalization lowercases text, strips diacritics via Unicode decomposition,
// converts a fixed punctuation set to spaces, and collapses whitespace. The
// result is stable: normalizing twice yields the same string.
package textutil
