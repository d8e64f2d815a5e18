package modules

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/fsanges/master-of-puppets/internal/logging"
	"github.com/fsanges/master-of-puppets/internal/rig"
	"github.com/fsanges/master-of-puppets/internal/scene"
)

// defaultCVs is the degree-1 square every controller starts with. Riggers
// reshape it; the captured result replays on the next build.
var defaultCVs = [][3]float64{
	{-1, 0, -1},
	{1, 0, -1},
	{1, 0, 1},
	{-1, 0, 1},
}

// chain is the shared scaffold behind every builtin: one joint and one
// controller per segment, authored at add time and driven at build time.
type chain struct {
	node     *rig.ModuleNode
	logger   *slog.Logger
	segments []string
}

func newChain(node *rig.ModuleNode, logger *slog.Logger, segments []string) *chain {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &chain{
		node:     node,
		logger:   logger.With(logging.FieldModule, node.Name()),
		segments: segments,
	}
}

func (c *chain) Node() *rig.ModuleNode { return c.node }

func (c *chain) graph() scene.Graph { return c.node.Graph() }

// Init scaffolds the persistent content: placement guides, the joint
// chain, and the controllers with their default shapes and persistence
// attributes. Everything created here survives unbuild.
func (c *chain) Init(ctx context.Context) error {
	g := c.graph()
	base := c.node.BaseName()

	placement, err := g.CreateNode(scene.Transform, base+"_placement")
	if err != nil {
		return fmt.Errorf("init %s: %w", c.node.Name(), err)
	}
	if err := g.Parent(placement, c.node.Name()); err != nil {
		return fmt.Errorf("init %s: %w", c.node.Name(), err)
	}
	if err := c.node.SetPlacementGroup(placement); err != nil {
		return err
	}

	controls, err := g.CreateNode(scene.Transform, base+"_controls")
	if err != nil {
		return fmt.Errorf("init %s: %w", c.node.Name(), err)
	}
	if err := g.Parent(controls, c.node.Name()); err != nil {
		return fmt.Errorf("init %s: %w", c.node.Name(), err)
	}

	parentJoint, err := c.node.ParentJoint()
	if err != nil {
		return err
	}
	jointParent := parentJoint
	if jointParent == "" {
		jointParent = rig.SkeletonGroup
	}

	joints := make([]string, 0, len(c.segments))
	controllers := make([]string, 0, len(c.segments))
	for _, segment := range c.segments {
		joint, err := g.CreateNode(scene.Joint, fmt.Sprintf("%s_%s_jnt", base, segment))
		if err != nil {
			return fmt.Errorf("init %s: %w", c.node.Name(), err)
		}
		if err := g.Parent(joint, jointParent); err != nil {
			return fmt.Errorf("init %s: %w", c.node.Name(), err)
		}
		jointParent = joint
		joints = append(joints, joint)

		ctl, err := c.createController(controls, segment)
		if err != nil {
			return err
		}
		controllers = append(controllers, ctl)
	}

	if err := c.node.SetDeformJoints(joints); err != nil {
		return err
	}
	if err := c.node.SetControllers(controllers); err != nil {
		return err
	}
	c.logger.Debug("Initialized module scaffold.", "joints", len(joints))
	return nil
}

func (c *chain) createController(controls, segment string) (string, error) {
	g := c.graph()
	ctl, err := g.CreateNode(scene.Transform, fmt.Sprintf("%s_%s_ctl", c.node.BaseName(), segment))
	if err != nil {
		return "", fmt.Errorf("init %s: %w", c.node.Name(), err)
	}
	if err := g.Parent(ctl, controls); err != nil {
		return "", fmt.Errorf("init %s: %w", c.node.Name(), err)
	}

	for _, attrName := range []string{rig.AttrShapeData, rig.AttrAttributesState, rig.AttrParentSpaceData} {
		if err := g.AddAttr(ctl, attrName, scene.TypeString, scene.StringValue("")); err != nil {
			return "", fmt.Errorf("init %s: %w", c.node.Name(), err)
		}
	}

	shape, err := g.CreateNode(scene.NurbsCurve, ctl+"Shape")
	if err != nil {
		return "", fmt.Errorf("init %s: %w", c.node.Name(), err)
	}
	if err := g.Parent(shape, ctl); err != nil {
		return "", fmt.Errorf("init %s: %w", c.node.Name(), err)
	}
	cvs, err := json.Marshal(defaultCVs)
	if err != nil {
		return "", fmt.Errorf("init %s: %w", c.node.Name(), err)
	}
	if err := g.SetAttr(shape, "degree", scene.FloatValue(1)); err != nil {
		return "", fmt.Errorf("init %s: %w", c.node.Name(), err)
	}
	if err := g.SetAttr(shape, "cvs", scene.StringValue(string(cvs))); err != nil {
		return "", fmt.Errorf("init %s: %w", c.node.Name(), err)
	}
	return ctl, nil
}

// Build wires each controller to its joint through a constraint parented
// under the extras group. The constraints are the only nodes created, so
// the build diff tags exactly them.
func (c *chain) Build(ctx context.Context) error {
	built, err := c.node.IsBuilt()
	if err != nil {
		return err
	}
	if built {
		return nil
	}

	g := c.graph()
	joints, err := c.node.DeformJoints()
	if err != nil {
		return err
	}
	controllers, err := c.node.Controllers()
	if err != nil {
		return err
	}
	if len(joints) != len(controllers) {
		return fmt.Errorf("build %s: %d joints vs %d controllers", c.node.Name(), len(joints), len(controllers))
	}

	for i, joint := range joints {
		ctl := controllers[i]
		cns, err := g.CreateNode(scene.ParentConstraint, fmt.Sprintf("%s_%s_cns", c.node.BaseName(), c.segments[i]))
		if err != nil {
			return fmt.Errorf("build %s: %w", c.node.Name(), err)
		}
		if err := g.Parent(cns, rig.ExtrasGroup); err != nil {
			return fmt.Errorf("build %s: %w", c.node.Name(), err)
		}
		for _, attrName := range []string{"translate", "rotate"} {
			if err := g.Connect(ctl, attrName, cns, attrName); err != nil {
				return fmt.Errorf("build %s: %w", c.node.Name(), err)
			}
			if err := g.Connect(cns, attrName, joint, attrName); err != nil {
				return fmt.Errorf("build %s: %w", c.node.Name(), err)
			}
		}
	}
	return nil
}

// Update reattaches the joint chain after a parent-joint change. Only the
// first joint moves; the rest of the chain follows it.
func (c *chain) Update(ctx context.Context) error {
	g := c.graph()
	joints, err := c.node.DeformJoints()
	if err != nil {
		return err
	}
	if len(joints) == 0 {
		return nil
	}
	parentJoint, err := c.node.ParentJoint()
	if err != nil {
		return err
	}
	if parentJoint == "" {
		parentJoint = rig.SkeletonGroup
	}
	if !g.Exists(parentJoint) {
		return fmt.Errorf("update %s: parent joint %s: %w", c.node.Name(), parentJoint, scene.ErrUnknownNode)
	}
	if err := g.Parent(joints[0], parentJoint); err != nil {
		return fmt.Errorf("update %s: %w", c.node.Name(), err)
	}
	c.logger.Debug("Reparented joint chain.", "parent", parentJoint)
	return nil
}

// Publish locks down the controllers for animation: scale stays at its
// rig value and the placement guides disappear for good.
func (c *chain) Publish(ctx context.Context) error {
	g := c.graph()
	controllers, err := c.node.Controllers()
	if err != nil {
		return err
	}
	for _, ctl := range controllers {
		if !g.HasAttr(ctl, "scale") {
			continue
		}
		flags, err := g.Flags(ctl, "scale")
		if err != nil {
			return fmt.Errorf("publish %s: %w", c.node.Name(), err)
		}
		flags.Locked = true
		flags.Keyable = false
		if err := g.SetFlags(ctl, "scale", flags); err != nil {
			return fmt.Errorf("publish %s: %w", c.node.Name(), err)
		}
	}

	group, err := c.node.PlacementGroup()
	if err != nil {
		return err
	}
	if group != "" && g.Exists(group) {
		if err := g.SetAttr(group, "visibility", scene.BoolValue(false)); err != nil {
			return fmt.Errorf("publish %s: %w", c.node.Name(), err)
		}
	}
	return nil
}
