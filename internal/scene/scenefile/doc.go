// Package scenefile persists scene graphs to SQLite files and guards
// them with advisory file locks while a command operates on them.
package scenefile
