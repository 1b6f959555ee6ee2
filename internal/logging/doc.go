// Package logging builds slog loggers for console and JSON output.
//
// The console handler prints a compact single-line format with the component
// attribute promoted into a message prefix; the JSON handler is plain slog
// with normalized key names. Loggers are constructed once in the CLI and
// passed down explicitly.
package logging
