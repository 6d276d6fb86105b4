// Package tools provides the process runner shared by the installer and the
// execution engine.
//
// Ownership boundary:
// - command execution and exit-code capture
//
// - output streaming vs. capture (quiet policies)
//
// - optional per-command timeouts with process-group kill
package tools
