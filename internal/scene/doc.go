// Package scene implements the scene-graph host the rig framework runs
// against: a DAG of named nodes carrying typed attributes, attribute
// connections, and an undo journal that groups every mutation performed
// inside an Undoable call into a single reversible entry.
//
// The graph is single-writer by contract. Operations run to completion on
// the calling goroutine and there is no internal locking; callers must not
// mutate the same graph from multiple goroutines.
//
// Treat this package as the single source of truth for host semantics: node
// name uniqueness, recursive deletion, and the one-incoming-plug connection
// rule all live here.
package scene
