// Package logs reads the daemon log file for the CLI: the last N lines and a
// polling follow mode that survives truncation.
package logs
