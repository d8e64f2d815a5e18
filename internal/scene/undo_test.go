package scene_test

import (
	"errors"
	"testing"

	"github.com/fsanges/master-of-puppets/internal/scene"
)

func TestUndoableGroupsMutationsIntoOneEntry(t *testing.T) {
	g := scene.New()
	mustCreate(t, g, scene.Transform, "root")

	err := g.Undoable("add_module", func() error {
		mustCreate(t, g, scene.Joint, "jnt")
		mustCreate(t, g, scene.Transform, "ctl")
		mustParent(t, g, "jnt", "root")
		return g.SetAttr("ctl", "translate", scene.VectorValue(1, 2, 3))
	})
	if err != nil {
		t.Fatalf("Undoable failed: %v", err)
	}
	if g.UndoDepth() != 1 {
		t.Fatalf("expected one undo entry, got %d", g.UndoDepth())
	}

	name, ok := g.Undo()
	if !ok || name != "add_module" {
		t.Fatalf("unexpected undo entry: %q ok=%v", name, ok)
	}
	if g.Exists("jnt") || g.Exists("ctl") {
		t.Fatal("expected undo to remove all nodes from the chunk")
	}
	if !g.Exists("root") {
		t.Fatal("undo removed a node created before the chunk")
	}
}

func TestNestedUndoableFoldsIntoOuterChunk(t *testing.T) {
	g := scene.New()
	err := g.Undoable("build", func() error {
		mustCreate(t, g, scene.Transform, "a")
		return g.Undoable("inner", func() error {
			mustCreate(t, g, scene.Transform, "b")
			return nil
		})
	})
	if err != nil {
		t.Fatalf("Undoable failed: %v", err)
	}
	if g.UndoDepth() != 1 {
		t.Fatalf("expected nested chunks to fold, got %d entries", g.UndoDepth())
	}
	if name, _ := g.Undo(); name != "build" {
		t.Fatalf("expected outer chunk name, got %q", name)
	}
	if g.Exists("a") || g.Exists("b") {
		t.Fatal("expected both nested mutations undone together")
	}
}

func TestUndoableRecordsFailedChunk(t *testing.T) {
	g := scene.New()
	boom := errors.New("boom")
	err := g.Undoable("build", func() error {
		mustCreate(t, g, scene.Transform, "partial")
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected propagated error, got %v", err)
	}
	// Partial progress stays visible but reverses as one step.
	if !g.Exists("partial") {
		t.Fatal("expected partial mutation to remain after error")
	}
	if _, ok := g.Undo(); !ok {
		t.Fatal("expected failed chunk on the undo stack")
	}
	if g.Exists("partial") {
		t.Fatal("expected undo to reverse the failed chunk")
	}
}

func TestUndoOnEmptyStack(t *testing.T) {
	g := scene.New()
	if name, ok := g.Undo(); ok || name != "" {
		t.Fatalf("expected empty undo, got %q ok=%v", name, ok)
	}
}
