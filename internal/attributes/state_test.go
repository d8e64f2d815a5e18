package attributes_test

import (
	"testing"

	"github.com/fsanges/master-of-puppets/internal/attributes"
	"github.com/fsanges/master-of-puppets/internal/scene"
)

func newController(t *testing.T) (*scene.Memory, string) {
	t.Helper()
	g := scene.New()
	ctl, err := g.CreateNode(scene.Transform, "arm_ctl")
	if err != nil {
		t.Fatalf("CreateNode failed: %v", err)
	}
	if err := g.AddAttr(ctl, "attributes_state", scene.TypeString, scene.StringValue("")); err != nil {
		t.Fatalf("AddAttr failed: %v", err)
	}
	return g, ctl
}

func TestCaptureApplyRoundTrip(t *testing.T) {
	g, ctl := newController(t)
	if err := g.SetFlags(ctl, "rotate", scene.AttrFlags{Locked: true}); err != nil {
		t.Fatalf("SetFlags failed: %v", err)
	}
	if err := g.SetFlags(ctl, "visibility", scene.AttrFlags{ChannelBox: false}); err != nil {
		t.Fatalf("SetFlags failed: %v", err)
	}

	state, err := attributes.Capture(g, ctl)
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}

	blob, err := attributes.Encode(state)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	decoded, ok := attributes.Decode(blob)
	if !ok {
		t.Fatal("Decode rejected a fresh blob")
	}

	// Reset flags, then restore from the decoded state.
	if err := g.SetFlags(ctl, "rotate", scene.AttrFlags{Keyable: true, ChannelBox: true}); err != nil {
		t.Fatalf("SetFlags failed: %v", err)
	}
	if err := attributes.Apply(g, ctl, decoded); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	flags, err := g.Flags(ctl, "rotate")
	if err != nil {
		t.Fatalf("Flags failed: %v", err)
	}
	if !flags.Locked {
		t.Fatal("expected rotate lock restored")
	}
	visFlags, err := g.Flags(ctl, "visibility")
	if err != nil {
		t.Fatalf("Flags failed: %v", err)
	}
	if visFlags.ChannelBox {
		t.Fatal("expected visibility channel-box state restored")
	}
}

func TestCaptureSkipsPersistenceAttrs(t *testing.T) {
	g, ctl := newController(t)
	state, err := attributes.Capture(g, ctl)
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	for _, rec := range state.Attributes {
		if rec.Name == "attributes_state" {
			t.Fatal("captured a framework persistence attribute")
		}
	}
}

func TestDecodeLeniency(t *testing.T) {
	cases := []string{"", "   ", "{bad json", `{"version":99,"attributes":[]}`, "null"}
	for _, blob := range cases {
		if _, ok := attributes.Decode(blob); ok {
			t.Fatalf("Decode accepted %q", blob)
		}
	}
}

func TestApplySkipsMissingAttributes(t *testing.T) {
	g, ctl := newController(t)
	state := attributes.State{Attributes: []attributes.AttrState{
		{Name: "long_gone", Locked: true},
		{Name: "translate", Locked: true, Keyable: true},
	}}
	if err := attributes.Apply(g, ctl, state); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	flags, err := g.Flags(ctl, "translate")
	if err != nil || !flags.Locked {
		t.Fatalf("expected translate locked, got %+v err=%v", flags, err)
	}
}
