// Package preflight runs startup checks for directories, external
// binaries, and the ollama host.
package preflight
