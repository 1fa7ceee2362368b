// Package fetch turns an ordered candidate plan into exactly one local audio
// artifact. It walks candidates best-first, probes metadata before committing
// to a download, retries transient failures with linear backoff, and answers
// platform bot challenges with a single alternate-client attempt per
// candidate.
package fetch
