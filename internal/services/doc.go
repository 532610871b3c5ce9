// Package services defines shared utilities consumed by the pipeline stages
// and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, stage names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent job error codes.
//   - The shared retry policy applied by the chunk fetcher and capability
//     clients so backoff behaviour stays uniform across the pipeline.
package services
