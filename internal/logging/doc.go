// Package logging wires slog with console and JSON handlers plus helpers
// for component loggers and context-derived fields.
package logging
