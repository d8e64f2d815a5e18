package rig

import "fmt"

// sortModules orders modules ancestors-first: a module whose parent joint
// is owned by another module sorts after that owner. Modules with no
// parent relation keep their scene order relative to each other.
//
// The parent relation is derived, not stored: ownership is looked up from
// each module's deform-joint list, so a reparent is reflected on the next
// sort without any bookkeeping.
func (r *Rig) sortModules(mods []Module) ([]Module, error) {
	owners := make(map[string]Module)
	for _, mod := range mods {
		joints, err := mod.Node().DeformJoints()
		if err != nil {
			return nil, fmt.Errorf("sort modules: %w", err)
		}
		for _, joint := range joints {
			owners[joint] = mod
		}
	}

	parentOf := func(mod Module) (Module, error) {
		joint, err := mod.Node().ParentJoint()
		if err != nil {
			return nil, fmt.Errorf("sort modules: %w", err)
		}
		if joint == "" {
			return nil, nil
		}
		parent, ok := owners[joint]
		if !ok || parent == mod {
			return nil, nil
		}
		return parent, nil
	}

	// Reject cycles up front: the placement walk below would silently
	// break one, hiding an authoring error.
	for _, mod := range mods {
		visited := map[Module]bool{mod: true}
		current := mod
		for {
			parent, err := parentOf(current)
			if err != nil {
				return nil, err
			}
			if parent == nil {
				break
			}
			if visited[parent] {
				return nil, fmt.Errorf("sort modules: %w involving %s", ErrModuleCycle, parent.Node().Name())
			}
			visited[parent] = true
			current = parent
		}
	}

	pending := make(map[Module]bool, len(mods))
	for _, mod := range mods {
		pending[mod] = true
	}
	sorted := make([]Module, 0, len(mods))

	var place func(mod Module) error
	place = func(mod Module) error {
		if !pending[mod] {
			return nil
		}
		delete(pending, mod)
		parent, err := parentOf(mod)
		if err != nil {
			return err
		}
		if parent != nil {
			if err := place(parent); err != nil {
				return err
			}
		}
		sorted = append(sorted, mod)
		return nil
	}
	for _, mod := range mods {
		if err := place(mod); err != nil {
			return nil, err
		}
	}
	return sorted, nil
}
