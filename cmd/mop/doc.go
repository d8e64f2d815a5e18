// Command mop is the command line surface of the rig framework: it owns
// scene files on disk and exposes the rig lifecycle (init, build,
// unbuild, publish, reset-pose) plus module management.
package main
