package rig_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/fsanges/master-of-puppets/internal/logging"
	"github.com/fsanges/master-of-puppets/internal/modules"
	"github.com/fsanges/master-of-puppets/internal/rig"
	"github.com/fsanges/master-of-puppets/internal/scene"
	"github.com/fsanges/master-of-puppets/internal/spaces"
	"github.com/fsanges/master-of-puppets/internal/testsupport"
)

func firstController(t *testing.T, mod rig.Module) string {
	t.Helper()
	controllers, err := mod.Node().Controllers()
	if err != nil {
		t.Fatalf("controllers: %v", err)
	}
	if len(controllers) == 0 {
		t.Fatalf("module %s has no controllers", mod.Node().Name())
	}
	return controllers[0]
}

func moduleNames(t *testing.T, r *rig.Rig) []string {
	t.Helper()
	mods, err := r.Modules()
	if err != nil {
		t.Fatalf("modules: %v", err)
	}
	names := make([]string, len(mods))
	for i, mod := range mods {
		names[i] = mod.Node().Name()
	}
	return names
}

func TestNewCreatesHierarchyOnce(t *testing.T) {
	_, g := testsupport.NewRig(t)
	for _, name := range []string{rig.RigNode, rig.ModulesGroup, rig.ExtrasGroup, rig.SkeletonGroup} {
		if !g.Exists(name) {
			t.Fatalf("missing group %s", name)
		}
	}
	before := len(g.Nodes())

	// Rebinding to the same scene must not duplicate anything.
	if _, err := rig.New(context.Background(), g, modules.Builtin(), logging.NewNop()); err != nil {
		t.Fatalf("rebind: %v", err)
	}
	if got := len(g.Nodes()); got != before {
		t.Fatalf("rebind created nodes: %d -> %d", before, got)
	}
}

func TestDefaultModulesSeededOnFirstInit(t *testing.T) {
	defaults := []rig.DefaultModule{{Type: modules.TypeRoot, Name: "root"}}
	r, _ := testsupport.NewRig(t, rig.WithDefaultModules(defaults))
	names := moduleNames(t, r)
	if len(names) != 1 || names[0] != "root_mod" {
		t.Fatalf("unexpected modules %v", names)
	}
}

func TestModulesSortedAncestorsFirst(t *testing.T) {
	r, _ := testsupport.NewRig(t)
	// Added in reverse of the eventual dependency order.
	c := testsupport.AddModule(t, r, modules.TypeRoot, "c", "")
	b := testsupport.AddModule(t, r, modules.TypeRoot, "b", "")
	a := testsupport.AddModule(t, r, modules.TypeRoot, "a", "")
	if err := b.Node().SetParentJoint(testsupport.FirstJoint(t, a)); err != nil {
		t.Fatal(err)
	}
	if err := c.Node().SetParentJoint(testsupport.FirstJoint(t, b)); err != nil {
		t.Fatal(err)
	}

	got := moduleNames(t, r)
	want := []string{"a_mod", "b_mod", "c_mod"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestModulesStableForIndependentModules(t *testing.T) {
	r, _ := testsupport.NewRig(t)
	testsupport.AddModule(t, r, modules.TypeRoot, "first", "")
	testsupport.AddModule(t, r, modules.TypeRoot, "second", "")
	testsupport.AddModule(t, r, modules.TypeRoot, "third", "")

	got := moduleNames(t, r)
	want := []string{"first_mod", "second_mod", "third_mod"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestModulesReportsCycle(t *testing.T) {
	r, _ := testsupport.NewRig(t)
	a := testsupport.AddModule(t, r, modules.TypeRoot, "a", "")
	b := testsupport.AddModule(t, r, modules.TypeRoot, "b", "")
	if err := a.Node().SetParentJoint(testsupport.FirstJoint(t, b)); err != nil {
		t.Fatal(err)
	}
	if err := b.Node().SetParentJoint(testsupport.FirstJoint(t, a)); err != nil {
		t.Fatal(err)
	}

	_, err := r.Modules()
	if !errors.Is(err, rig.ErrModuleCycle) {
		t.Fatalf("err = %v, want ErrModuleCycle", err)
	}
}

func TestAddModuleUnknownType(t *testing.T) {
	r, _ := testsupport.NewRig(t)
	_, err := r.AddModule(context.Background(), "tentacle", "t", rig.AddModuleOptions{})
	if !errors.Is(err, rig.ErrUnknownModuleType) {
		t.Fatalf("err = %v, want ErrUnknownModuleType", err)
	}
}

func TestRefusedAddModuleRecordsNoUndoEntry(t *testing.T) {
	ctx := context.Background()
	r, g := testsupport.NewRig(t)
	testsupport.AddModule(t, r, modules.TypeRoot, "root", "")
	depth := g.UndoDepth()
	if _, err := r.AddModule(ctx, "tentacle", "t", rig.AddModuleOptions{}); !errors.Is(err, rig.ErrUnknownModuleType) {
		t.Fatalf("err = %v, want ErrUnknownModuleType", err)
	}
	if g.UndoDepth() != depth {
		t.Fatal("refused unknown-type add pushed an undo entry")
	}

	if err := r.Build(ctx); err != nil {
		t.Fatalf("build: %v", err)
	}
	depth = g.UndoDepth()
	if _, err := r.AddModule(ctx, modules.TypeArm, "arm", rig.AddModuleOptions{}); !errors.Is(err, rig.ErrRigBuilt) {
		t.Fatalf("err = %v, want ErrRigBuilt", err)
	}
	if g.UndoDepth() != depth {
		t.Fatal("refused add on built rig pushed an undo entry")
	}
}

func TestStructuralEditsRefusedWhileBuilt(t *testing.T) {
	ctx := context.Background()
	r, _ := testsupport.NewRig(t)
	testsupport.AddModule(t, r, modules.TypeRoot, "root", "")
	if err := r.Build(ctx); err != nil {
		t.Fatalf("build: %v", err)
	}

	if _, err := r.AddModule(ctx, modules.TypeArm, "arm", rig.AddModuleOptions{}); !errors.Is(err, rig.ErrRigBuilt) {
		t.Fatalf("add err = %v, want ErrRigBuilt", err)
	}
	if err := r.DeleteModule(ctx, "root_mod"); !errors.Is(err, rig.ErrRigBuilt) {
		t.Fatalf("delete err = %v, want ErrRigBuilt", err)
	}
}

func TestGetModule(t *testing.T) {
	r, _ := testsupport.NewRig(t)
	testsupport.AddModule(t, r, modules.TypeRoot, "root", "")

	mod, err := r.GetModule("root_mod")
	if err != nil {
		t.Fatal(err)
	}
	if mod == nil || mod.Node().Name() != "root_mod" {
		t.Fatalf("got %v", mod)
	}

	missing, err := r.GetModule("nope_mod")
	if err != nil {
		t.Fatal(err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown module, got %s", missing.Node().Name())
	}
}

func TestBuildTagsOnlyEphemeralNodes(t *testing.T) {
	ctx := context.Background()
	r, g := testsupport.NewRig(t)
	root := testsupport.AddModule(t, r, modules.TypeRoot, "root", "")
	persistent := make(map[string]bool)
	for _, name := range g.Nodes() {
		persistent[name] = true
	}

	if err := r.Build(ctx); err != nil {
		t.Fatalf("build: %v", err)
	}
	buildNodes := r.BuildNodes()
	if len(buildNodes) == 0 {
		t.Fatal("expected ephemeral nodes after build")
	}
	for _, name := range buildNodes {
		if persistent[name] {
			t.Fatalf("persistent node %s tagged as build node", name)
		}
	}

	joint := testsupport.FirstJoint(t, root)
	if _, driven := g.ConnectionSource(joint, "translate"); !driven {
		t.Fatalf("joint %s not driven after build", joint)
	}
	built, err := r.IsBuilt()
	if err != nil {
		t.Fatal(err)
	}
	if !built {
		t.Fatal("rig not flagged built")
	}
}

func TestBuildHidesPlacementAndUnbuildRestoresIt(t *testing.T) {
	ctx := context.Background()
	r, g := testsupport.NewRig(t)
	root := testsupport.AddModule(t, r, modules.TypeRoot, "root", "")
	group, err := root.Node().PlacementGroup()
	if err != nil {
		t.Fatal(err)
	}

	if err := r.Build(ctx); err != nil {
		t.Fatalf("build: %v", err)
	}
	vis, err := g.GetAttr(group, "visibility")
	if err != nil {
		t.Fatal(err)
	}
	if vis.Bool {
		t.Fatal("placement group visible after build")
	}

	if err := r.Unbuild(ctx); err != nil {
		t.Fatalf("unbuild: %v", err)
	}
	vis, err = g.GetAttr(group, "visibility")
	if err != nil {
		t.Fatal(err)
	}
	if !vis.Bool {
		t.Fatal("placement group hidden after unbuild")
	}
}

func TestUnbuildRemovesBuildNodesAndResetsFlags(t *testing.T) {
	ctx := context.Background()
	r, g := testsupport.NewRig(t)
	root := testsupport.AddModule(t, r, modules.TypeRoot, "root", "")
	before := len(g.Nodes())

	if err := r.Build(ctx); err != nil {
		t.Fatalf("build: %v", err)
	}
	if err := r.Unbuild(ctx); err != nil {
		t.Fatalf("unbuild: %v", err)
	}

	if got := len(g.Nodes()); got != before {
		t.Fatalf("node count %d after unbuild, want %d", got, before)
	}
	if nodes := r.BuildNodes(); len(nodes) != 0 {
		t.Fatalf("build nodes survived unbuild: %v", nodes)
	}
	joint := testsupport.FirstJoint(t, root)
	if _, driven := g.ConnectionSource(joint, "translate"); driven {
		t.Fatalf("joint %s still driven after unbuild", joint)
	}
	built, err := root.Node().IsBuilt()
	if err != nil {
		t.Fatal(err)
	}
	if built {
		t.Fatal("module still flagged built")
	}
}

func TestUnbuildIsIdempotent(t *testing.T) {
	ctx := context.Background()
	r, g := testsupport.NewRig(t)
	testsupport.AddModule(t, r, modules.TypeRoot, "root", "")
	before := len(g.Nodes())
	depth := g.UndoDepth()

	if err := r.Unbuild(ctx); err != nil {
		t.Fatalf("unbuild: %v", err)
	}
	if got := len(g.Nodes()); got != before {
		t.Fatalf("unbuild of unbuilt rig changed the scene")
	}
	if g.UndoDepth() != depth {
		t.Fatal("unbuild of unbuilt rig recorded an undo entry")
	}
}

func TestCustomizationsSurviveRebuild(t *testing.T) {
	ctx := context.Background()
	r, g := testsupport.NewRig(t)
	root := testsupport.AddModule(t, r, modules.TypeRoot, "root", "")
	ctl := firstController(t, root)

	if err := r.Build(ctx); err != nil {
		t.Fatalf("build: %v", err)
	}

	// Rigger edits on the built rig: reshape the controller and lock its
	// scale channel.
	shape := ctl + "Shape"
	customCVs := "[[0,0,0],[0,5,0],[5,5,0]]"
	if err := g.SetAttr(shape, "cvs", scene.StringValue(customCVs)); err != nil {
		t.Fatal(err)
	}
	if err := g.SetFlags(ctl, "scale", scene.AttrFlags{Locked: true}); err != nil {
		t.Fatal(err)
	}

	if err := r.Unbuild(ctx); err != nil {
		t.Fatalf("unbuild: %v", err)
	}
	// Clear the live flag so the rebuild has to restore it from the blob.
	if err := g.SetFlags(ctl, "scale", scene.AttrFlags{Keyable: true}); err != nil {
		t.Fatal(err)
	}
	if err := r.Build(ctx); err != nil {
		t.Fatalf("rebuild: %v", err)
	}

	var wantCVs, gotCVs [][3]float64
	if err := json.Unmarshal([]byte(customCVs), &wantCVs); err != nil {
		t.Fatal(err)
	}
	cvs, err := g.GetAttr(ctl+"Shape", "cvs")
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal([]byte(cvs.Str), &gotCVs); err != nil {
		t.Fatal(err)
	}
	if fmt.Sprint(gotCVs) != fmt.Sprint(wantCVs) {
		t.Fatalf("cvs = %v, want %v", gotCVs, wantCVs)
	}

	flags, err := g.Flags(ctl, "scale")
	if err != nil {
		t.Fatal(err)
	}
	if !flags.Locked {
		t.Fatal("scale lock lost across rebuild")
	}
}

func TestParentSpacesBuiltAndTornDown(t *testing.T) {
	ctx := context.Background()
	r, g := testsupport.NewRig(t)
	root := testsupport.AddModule(t, r, modules.TypeRoot, "root", "")
	arm := testsupport.AddModule(t, r, modules.TypeArm, "l_arm", testsupport.FirstJoint(t, root))

	armCtl := firstController(t, arm)
	rootCtl := firstController(t, root)
	blob, err := spaces.Encode(spaces.Record{Parents: []string{rootCtl}, SpaceType: spaces.SpaceParent})
	if err != nil {
		t.Fatal(err)
	}
	if err := g.SetAttr(armCtl, rig.AttrParentSpaceData, scene.StringValue(blob)); err != nil {
		t.Fatal(err)
	}

	if err := r.Build(ctx); err != nil {
		t.Fatalf("build: %v", err)
	}
	if !g.HasAttr(armCtl, spaces.SwitchAttr) {
		t.Fatal("switch attribute missing after build")
	}
	cns := fmt.Sprintf("%s_space1_parentConstraint", armCtl)
	if !g.Exists(cns) {
		t.Fatalf("space constraint %s missing", cns)
	}

	if err := r.Unbuild(ctx); err != nil {
		t.Fatalf("unbuild: %v", err)
	}
	if g.Exists(cns) {
		t.Fatal("space constraint survived unbuild")
	}
}

func TestBuildToleratesMalformedBlobs(t *testing.T) {
	ctx := context.Background()
	r, g := testsupport.NewRig(t)
	root := testsupport.AddModule(t, r, modules.TypeRoot, "root", "")
	ctl := firstController(t, root)
	for _, attrName := range []string{rig.AttrShapeData, rig.AttrAttributesState, rig.AttrParentSpaceData} {
		if err := g.SetAttr(ctl, attrName, scene.StringValue("{bad json")); err != nil {
			t.Fatal(err)
		}
	}

	if err := r.Build(ctx); err != nil {
		t.Fatalf("build with malformed blobs: %v", err)
	}
	built, err := r.IsBuilt()
	if err != nil {
		t.Fatal(err)
	}
	if !built {
		t.Fatal("rig not built")
	}
}

func TestDeleteModuleRepairsDependents(t *testing.T) {
	ctx := context.Background()
	r, g := testsupport.NewRig(t)
	root := testsupport.AddModule(t, r, modules.TypeRoot, "root", "")
	spine := testsupport.AddModule(t, r, modules.TypeSpine, "spine", testsupport.FirstJoint(t, root))
	arm := testsupport.AddModule(t, r, modules.TypeArm, "l_arm", testsupport.FirstJoint(t, spine))
	rootJoint := testsupport.FirstJoint(t, root)
	spineJoints, err := spine.Node().DeformJoints()
	if err != nil {
		t.Fatal(err)
	}

	if err := r.DeleteModule(ctx, "spine_mod"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if g.Exists("spine_mod") {
		t.Fatal("module node survived delete")
	}
	for _, joint := range spineJoints {
		if g.Exists(joint) {
			t.Fatalf("deform joint %s survived delete", joint)
		}
	}
	parentJoint, err := arm.Node().ParentJoint()
	if err != nil {
		t.Fatal(err)
	}
	if parentJoint != rootJoint {
		t.Fatalf("dependent parent joint = %q, want %q", parentJoint, rootJoint)
	}
	armJoint := testsupport.FirstJoint(t, arm)
	parent, err := g.ParentOf(armJoint)
	if err != nil {
		t.Fatal(err)
	}
	if parent != rootJoint {
		t.Fatalf("arm chain parented under %q, want %q", parent, rootJoint)
	}
}

func TestDeleteModuleUnknownName(t *testing.T) {
	r, _ := testsupport.NewRig(t)
	err := r.DeleteModule(context.Background(), "ghost_mod")
	if !errors.Is(err, rig.ErrModuleNotFound) {
		t.Fatalf("err = %v, want ErrModuleNotFound", err)
	}
}

func TestOperationsAreSingleUndoEntries(t *testing.T) {
	ctx := context.Background()
	r, g := testsupport.NewRig(t)
	depth := g.UndoDepth()

	testsupport.AddModule(t, r, modules.TypeRoot, "root", "")
	if g.UndoDepth() != depth+1 {
		t.Fatalf("add module produced %d entries", g.UndoDepth()-depth)
	}

	if err := r.Build(ctx); err != nil {
		t.Fatalf("build: %v", err)
	}
	if g.UndoDepth() != depth+2 {
		t.Fatalf("build produced %d entries", g.UndoDepth()-depth-1)
	}

	// One undo reverses the entire build.
	name, ok := g.Undo()
	if !ok || name != "build_rig" {
		t.Fatalf("undo = %q, %v", name, ok)
	}
	built, err := r.IsBuilt()
	if err != nil {
		t.Fatal(err)
	}
	if built {
		t.Fatal("rig still built after undo")
	}
	if nodes := r.BuildNodes(); len(nodes) != 0 {
		t.Fatalf("build nodes survived undo: %v", nodes)
	}
}

func TestResetPoseRestoresControllerDefaults(t *testing.T) {
	ctx := context.Background()
	r, g := testsupport.NewRig(t)
	root := testsupport.AddModule(t, r, modules.TypeRoot, "root", "")
	ctl := firstController(t, root)

	if err := g.SetAttr(ctl, "translate", scene.VectorValue(3, 4, 5)); err != nil {
		t.Fatal(err)
	}
	if err := r.ResetPose(ctx); err != nil {
		t.Fatalf("reset pose: %v", err)
	}
	value, err := g.GetAttr(ctl, "translate")
	if err != nil {
		t.Fatal(err)
	}
	if value.Vec != (scene.Vector3{0, 0, 0}) {
		t.Fatalf("translate = %v after reset", value.Vec)
	}
}

func TestSkeletonLeafToRoot(t *testing.T) {
	r, _ := testsupport.NewRig(t)
	root := testsupport.AddModule(t, r, modules.TypeRoot, "root", "")
	spine := testsupport.AddModule(t, r, modules.TypeSpine, "spine", testsupport.FirstJoint(t, root))

	skeleton, err := r.Skeleton()
	if err != nil {
		t.Fatal(err)
	}
	rootJoint := testsupport.FirstJoint(t, root)
	spineJoints, err := spine.Node().DeformJoints()
	if err != nil {
		t.Fatal(err)
	}
	leaf := spineJoints[len(spineJoints)-1]

	index := make(map[string]int, len(skeleton))
	for i, name := range skeleton {
		index[name] = i
	}
	if index[leaf] > index[rootJoint] {
		t.Fatalf("leaf %s ordered after root %s: %v", leaf, rootJoint, skeleton)
	}
}

func TestSpineArmLifecycle(t *testing.T) {
	ctx := context.Background()
	r, g := testsupport.NewRig(t)
	root := testsupport.AddModule(t, r, modules.TypeRoot, "root", "")
	spine := testsupport.AddModule(t, r, modules.TypeSpine, "spine", testsupport.FirstJoint(t, root))
	spineJoints, err := spine.Node().DeformJoints()
	if err != nil {
		t.Fatal(err)
	}
	chest := spineJoints[len(spineJoints)-1]
	arm := testsupport.AddModule(t, r, modules.TypeArm, "l_arm", chest)

	got := moduleNames(t, r)
	want := []string{"root_mod", "spine_mod", "l_arm_mod"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}

	for cycle := 0; cycle < 2; cycle++ {
		if err := r.Build(ctx); err != nil {
			t.Fatalf("build cycle %d: %v", cycle, err)
		}
		armJoint := testsupport.FirstJoint(t, arm)
		if _, driven := g.ConnectionSource(armJoint, "rotate"); !driven {
			t.Fatalf("cycle %d: arm joint not driven", cycle)
		}
		if err := r.Unbuild(ctx); err != nil {
			t.Fatalf("unbuild cycle %d: %v", cycle, err)
		}
		if !g.Exists(armJoint) {
			t.Fatalf("cycle %d: deform joint deleted by unbuild", cycle)
		}
	}
}

func TestPublishHidesSkeletonAndLocksControllers(t *testing.T) {
	ctx := context.Background()
	r, g := testsupport.NewRig(t)
	root := testsupport.AddModule(t, r, modules.TypeRoot, "root", "")
	if err := r.Build(ctx); err != nil {
		t.Fatalf("build: %v", err)
	}
	if err := r.Publish(ctx); err != nil {
		t.Fatalf("publish: %v", err)
	}

	vis, err := g.GetAttr(rig.SkeletonGroup, "visibility")
	if err != nil {
		t.Fatal(err)
	}
	if vis.Bool {
		t.Fatal("skeleton group visible after publish")
	}
	flags, err := g.Flags(firstController(t, root), "scale")
	if err != nil {
		t.Fatal(err)
	}
	if !flags.Locked {
		t.Fatal("controller scale unlocked after publish")
	}
}
