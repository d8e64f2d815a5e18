package testsupport

import (
	"context"
	"testing"

	"github.com/fsanges/master-of-puppets/internal/logging"
	"github.com/fsanges/master-of-puppets/internal/modules"
	"github.com/fsanges/master-of-puppets/internal/rig"
	"github.com/fsanges/master-of-puppets/internal/scene"
)

// NewRig binds a fresh rig with the builtin registry to an empty
// in-memory scene.
func NewRig(t testing.TB, opts ...rig.Option) (*rig.Rig, *scene.Memory) {
	t.Helper()

	g := scene.New()
	r, err := rig.New(context.Background(), g, modules.Builtin(), logging.NewNop(), opts...)
	if err != nil {
		t.Fatalf("initialize rig: %v", err)
	}
	return r, g
}

// AddModule adds a module and fails the test on error.
func AddModule(t testing.TB, r *rig.Rig, moduleType, name, parentJoint string) rig.Module {
	t.Helper()

	mod, err := r.AddModule(context.Background(), moduleType, name, rig.AddModuleOptions{ParentJoint: parentJoint})
	if err != nil {
		t.Fatalf("add module %s: %v", name, err)
	}
	return mod
}

// FirstJoint returns the module's chain root joint.
func FirstJoint(t testing.TB, mod rig.Module) string {
	t.Helper()

	joints, err := mod.Node().DeformJoints()
	if err != nil {
		t.Fatalf("deform joints of %s: %v", mod.Node().Name(), err)
	}
	if len(joints) == 0 {
		t.Fatalf("module %s has no deform joints", mod.Node().Name())
	}
	return joints[0]
}
