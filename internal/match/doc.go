// Package match selects the video candidate that best corresponds to a
// catalog track. Resolution runs three escalating strategies: a strict
// artist+title search, a title-only search, and a cover-art comparison
// gate. A permissive discovery sweep then fills the fallback list handed
// to the downloader.
package match
