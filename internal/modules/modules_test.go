package modules_test

import (
	"context"
	"testing"

	"github.com/fsanges/master-of-puppets/internal/modules"
	"github.com/fsanges/master-of-puppets/internal/rig"
	"github.com/fsanges/master-of-puppets/internal/testsupport"
)

func TestBuiltinRegistryCoversAllTypes(t *testing.T) {
	registry := modules.Builtin()
	for _, moduleType := range []string{modules.TypeRoot, modules.TypeSpine, modules.TypeArm, modules.TypeLeg} {
		if _, ok := registry[moduleType]; !ok {
			t.Fatalf("registry missing %q", moduleType)
		}
	}
}

func TestInitScaffoldsChain(t *testing.T) {
	ctx := context.Background()
	r, g := testsupport.NewRig(t)
	mod, err := r.AddModule(ctx, modules.TypeSpine, "spine", rig.AddModuleOptions{})
	if err != nil {
		t.Fatalf("add module: %v", err)
	}

	joints, err := mod.Node().DeformJoints()
	if err != nil {
		t.Fatal(err)
	}
	wantJoints := []string{"spine_hips_jnt", "spine_spine_01_jnt", "spine_spine_02_jnt", "spine_chest_jnt"}
	if len(joints) != len(wantJoints) {
		t.Fatalf("joints = %v, want %v", joints, wantJoints)
	}
	for i, want := range wantJoints {
		if joints[i] != want {
			t.Fatalf("joints = %v, want %v", joints, wantJoints)
		}
	}

	// First joint hangs off the skeleton group, the rest form a chain.
	parent, err := g.ParentOf(joints[0])
	if err != nil {
		t.Fatal(err)
	}
	if parent != rig.SkeletonGroup {
		t.Fatalf("chain root parented under %q", parent)
	}
	for i := 1; i < len(joints); i++ {
		parent, err := g.ParentOf(joints[i])
		if err != nil {
			t.Fatal(err)
		}
		if parent != joints[i-1] {
			t.Fatalf("%s parented under %q, want %q", joints[i], parent, joints[i-1])
		}
	}

	controllers, err := mod.Node().Controllers()
	if err != nil {
		t.Fatal(err)
	}
	if len(controllers) != len(joints) {
		t.Fatalf("%d controllers for %d joints", len(controllers), len(joints))
	}
	for _, ctl := range controllers {
		if !g.Exists(ctl + "Shape") {
			t.Fatalf("controller %s has no shape", ctl)
		}
		for _, attrName := range []string{rig.AttrShapeData, rig.AttrAttributesState, rig.AttrParentSpaceData} {
			if !g.HasAttr(ctl, attrName) {
				t.Fatalf("controller %s missing %s", ctl, attrName)
			}
		}
	}

	group, err := mod.Node().PlacementGroup()
	if err != nil {
		t.Fatal(err)
	}
	if group != "spine_placement" || !g.Exists(group) {
		t.Fatalf("placement group = %q", group)
	}
}

func TestBuildIsSelfGuarded(t *testing.T) {
	ctx := context.Background()
	r, g := testsupport.NewRig(t)
	mod, err := r.AddModule(ctx, modules.TypeArm, "l_arm", rig.AddModuleOptions{})
	if err != nil {
		t.Fatalf("add module: %v", err)
	}

	if err := mod.Build(ctx); err != nil {
		t.Fatalf("build: %v", err)
	}
	if err := mod.Node().SetBuilt(true); err != nil {
		t.Fatal(err)
	}
	before := len(g.Nodes())

	// A second build must notice the flag and create nothing.
	if err := mod.Build(ctx); err != nil {
		t.Fatalf("second build: %v", err)
	}
	if got := len(g.Nodes()); got != before {
		t.Fatalf("second build created nodes: %d -> %d", before, got)
	}
}

func TestUpdateReparentsChain(t *testing.T) {
	ctx := context.Background()
	r, g := testsupport.NewRig(t)
	root, err := r.AddModule(ctx, modules.TypeRoot, "root", rig.AddModuleOptions{})
	if err != nil {
		t.Fatalf("add root: %v", err)
	}
	rootJoints, err := root.Node().DeformJoints()
	if err != nil {
		t.Fatal(err)
	}
	arm, err := r.AddModule(ctx, modules.TypeArm, "l_arm", rig.AddModuleOptions{})
	if err != nil {
		t.Fatalf("add arm: %v", err)
	}

	if err := arm.Node().SetParentJoint(rootJoints[0]); err != nil {
		t.Fatal(err)
	}
	if err := arm.Update(ctx); err != nil {
		t.Fatalf("update: %v", err)
	}

	armJoints, err := arm.Node().DeformJoints()
	if err != nil {
		t.Fatal(err)
	}
	parent, err := g.ParentOf(armJoints[0])
	if err != nil {
		t.Fatal(err)
	}
	if parent != rootJoints[0] {
		t.Fatalf("chain parented under %q, want %q", parent, rootJoints[0])
	}
}
