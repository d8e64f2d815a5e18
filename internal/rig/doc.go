// Package rig is the core of the framework: the Rig facade owning the
// top-level scene groups, module discovery and dependency-ordered sorting,
// the build/unbuild/publish lifecycle, and the persistence contract that
// carries rigger customizations (attribute state, shapes, parent spaces)
// across rebuild cycles.
//
// Every mutating operation runs inside one scene undo chunk, so the host's
// undo stack sees a single atomic entry per add-module, delete-module,
// build, unbuild, publish, or reset-pose call.
package rig
