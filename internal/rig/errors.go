package rig

import "errors"

var (
	// ErrRigBuilt guards structural edits: modules cannot be added or
	// deleted while the rig is built.
	ErrRigBuilt = errors.New("rig is built")

	// ErrUnknownModuleType reports a module-type key missing from the
	// registry, either on add or when instantiating from scene state.
	ErrUnknownModuleType = errors.New("unknown module type")

	// ErrModuleCycle reports a cyclic parent relation in the module graph.
	ErrModuleCycle = errors.New("module dependency cycle")

	// ErrModuleNotFound reports a delete of a module that is not in the
	// scene. Plain lookups via GetModule do not use it; a lookup miss is
	// an expected outcome there, not an error.
	ErrModuleNotFound = errors.New("module not found")
)
