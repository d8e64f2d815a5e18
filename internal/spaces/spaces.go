package spaces

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fsanges/master-of-puppets/internal/scene"
)

// Space types supported by the switching rig.
const (
	SpaceParent = "parent"
	SpaceOrient = "orient"
	SpacePoint  = "point"
)

// SwitchAttr is the controller attribute holding the active space index.
const SwitchAttr = "parent_space"

// Record is the persisted parent-space configuration of one controller.
// Parents are ordered candidates; SpaceType selects the constraint flavor.
type Record struct {
	Parents   []string `json:"parents"`
	SpaceType string   `json:"space_type"`
}

// Encode serializes a record for storage on a controller node.
func Encode(rec Record) (string, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("encode parent spaces: %w", err)
	}
	return string(data), nil
}

// Decode parses a persisted record. Malformed or empty blobs report
// ok=false; a record without a space type defaults to "parent".
func Decode(blob string) (Record, bool) {
	if strings.TrimSpace(blob) == "" {
		return Record{}, false
	}
	var rec Record
	if err := json.Unmarshal([]byte(blob), &rec); err != nil {
		return Record{}, false
	}
	if len(rec.Parents) == 0 {
		return Record{}, false
	}
	if rec.SpaceType == "" {
		rec.SpaceType = SpaceParent
	}
	return rec, true
}

func constraintType(spaceType string) scene.NodeType {
	switch spaceType {
	case SpaceOrient:
		return scene.OrientConstraint
	case SpacePoint:
		return scene.PointConstraint
	default:
		return scene.ParentConstraint
	}
}

// Apply establishes space switching on a controller: a switch attribute
// plus one constraint node per parent candidate, in record order, parented
// under group. Created nodes are ordinary build output; the caller's node
// diff makes them ephemeral. Parents missing from the scene are an error.
func Apply(g scene.Graph, ctl string, rec Record, group string) error {
	if !g.Exists(ctl) {
		return fmt.Errorf("apply parent spaces: %w: %s", scene.ErrUnknownNode, ctl)
	}
	for _, parent := range rec.Parents {
		if !g.Exists(parent) {
			return fmt.Errorf("apply parent spaces on %s: %w: %s", ctl, scene.ErrUnknownNode, parent)
		}
	}

	if !g.HasAttr(ctl, SwitchAttr) {
		if err := g.AddAttr(ctl, SwitchAttr, scene.TypeFloat, scene.FloatValue(0)); err != nil {
			return fmt.Errorf("apply parent spaces on %s: %w", ctl, err)
		}
	}

	typ := constraintType(rec.SpaceType)
	for i, parent := range rec.Parents {
		name := fmt.Sprintf("%s_space%d_%s", ctl, i+1, typ)
		cns, err := g.CreateNode(typ, name)
		if err != nil {
			return fmt.Errorf("apply parent spaces on %s: %w", ctl, err)
		}
		if group != "" {
			if err := g.Parent(cns, group); err != nil {
				return fmt.Errorf("apply parent spaces on %s: %w", ctl, err)
			}
		}
		// Wire the candidate's transform into the constraint so the
		// switching rig tracks it. The channels wired depend on the flavor.
		attrs := []string{"translate", "rotate"}
		switch rec.SpaceType {
		case SpaceOrient:
			attrs = []string{"rotate"}
		case SpacePoint:
			attrs = []string{"translate"}
		}
		for _, attrName := range attrs {
			if err := g.Connect(parent, attrName, cns, attrName); err != nil {
				return fmt.Errorf("apply parent spaces on %s: %w", ctl, err)
			}
		}
	}
	return nil
}

// ResetTransform restores translate, rotate, and scale to their defaults,
// skipping locked and connection-driven plugs.
func ResetTransform(g scene.Graph, node string) error {
	for _, attrName := range []string{"translate", "rotate", "scale"} {
		if !g.HasAttr(node, attrName) {
			continue
		}
		flags, err := g.Flags(node, attrName)
		if err != nil {
			return fmt.Errorf("reset %s: %w", node, err)
		}
		if flags.Locked {
			continue
		}
		if _, driven := g.ConnectionSource(node, attrName); driven {
			continue
		}
		def, err := g.DefaultOf(node, attrName)
		if err != nil {
			return fmt.Errorf("reset %s: %w", node, err)
		}
		if err := g.SetAttr(node, attrName, def); err != nil {
			return fmt.Errorf("reset %s: %w", node, err)
		}
	}
	return nil
}
