// Package logging constructs the slog loggers used across mop and defines
// the standardized structured field names, so rig, module, and controller
// context reads the same in every log line.
package logging
