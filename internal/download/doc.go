// Package download reconstructs an authenticated HTTP-segmented stream
// into sequentially numbered local segment files. It classifies every
// fetch (success, transient, end-of-stream, credential expiry), resolves
// the upstream chunk-naming pattern once per job, and reports progress
// against a running total estimate.
package download
