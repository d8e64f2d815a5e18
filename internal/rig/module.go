package rig

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fsanges/master-of-puppets/internal/scene"
)

// Attribute names of the module record stored on each module node, and of
// the persistence blobs stored on controller nodes.
const (
	AttrModuleType      = "module_type"
	AttrParentJoint     = "parent_joint"
	AttrDeformJoints    = "deform_joints"
	AttrControllers     = "controllers"
	AttrPlacementGroup  = "placement_group"
	AttrIsBuilt         = "is_built"
	AttrShapeData       = "shape_data"
	AttrAttributesState = "attributes_state"
	AttrParentSpaceData = "parent_space_data"
	AttrBuildNode       = "is_build_node"
)

// ModuleSuffix is appended to a module's name to form its node name.
const ModuleSuffix = "_mod"

// Module is the polymorphic contract every module implementation fulfils.
// Init scaffolds the authoring-time content (joints, controllers,
// placement guides) once when the module is added; Build derives the
// ephemeral rig; Update reacts to a parent-joint change; Publish finalizes
// a built module for downstream use.
type Module interface {
	Node() *ModuleNode
	Init(ctx context.Context) error
	Build(ctx context.Context) error
	Update(ctx context.Context) error
	Publish(ctx context.Context) error
}

// Constructor instantiates a module implementation bound to its scene
// record.
type Constructor func(node *ModuleNode, logger *slog.Logger) Module

// Registry maps module-type keys to constructors.
type Registry map[string]Constructor

// ModuleNode is the scene-backed record of one module: a typed wrapper
// over the attributes on the module's defining node.
type ModuleNode struct {
	g    scene.Graph
	name string
}

// NewModuleNode wraps an existing module node.
func NewModuleNode(g scene.Graph, name string) *ModuleNode {
	return &ModuleNode{g: g, name: name}
}

// Graph returns the scene graph the module lives in.
func (n *ModuleNode) Graph() scene.Graph { return n.g }

// Name returns the module's node name (including the _mod suffix).
func (n *ModuleNode) Name() string { return n.name }

// BaseName returns the module's name without the node suffix, used as the
// prefix for every node the module creates.
func (n *ModuleNode) BaseName() string {
	return strings.TrimSuffix(n.name, ModuleSuffix)
}

// Type returns the module-type registry key.
func (n *ModuleNode) Type() (string, error) {
	return n.stringAttr(AttrModuleType)
}

// ParentJoint returns the joint this module attaches to, or an empty
// string for top-level modules.
func (n *ModuleNode) ParentJoint() (string, error) {
	return n.stringAttr(AttrParentJoint)
}

// SetParentJoint repoints the module at a new parent joint. Callers are
// expected to follow up with Update so the scene hierarchy matches.
func (n *ModuleNode) SetParentJoint(joint string) error {
	return n.setStringAttr(AttrParentJoint, joint)
}

// DeformJoints returns the ordered joints this module manages.
func (n *ModuleNode) DeformJoints() ([]string, error) {
	return n.listAttr(AttrDeformJoints)
}

// SetDeformJoints records the module's joint list.
func (n *ModuleNode) SetDeformJoints(joints []string) error {
	return n.setListAttr(AttrDeformJoints, joints)
}

// Controllers returns the module's controller nodes.
func (n *ModuleNode) Controllers() ([]string, error) {
	return n.listAttr(AttrControllers)
}

// SetControllers records the module's controller list.
func (n *ModuleNode) SetControllers(controllers []string) error {
	return n.setListAttr(AttrControllers, controllers)
}

// PlacementGroup returns the node whose visibility gates preview vs.
// built state.
func (n *ModuleNode) PlacementGroup() (string, error) {
	return n.stringAttr(AttrPlacementGroup)
}

// SetPlacementGroup records the placement group node.
func (n *ModuleNode) SetPlacementGroup(group string) error {
	return n.setStringAttr(AttrPlacementGroup, group)
}

// IsBuilt reports the module's own lifecycle flag.
func (n *ModuleNode) IsBuilt() (bool, error) {
	value, err := n.g.GetAttr(n.name, AttrIsBuilt)
	if err != nil {
		return false, fmt.Errorf("module %s: %w", n.name, err)
	}
	return value.Bool, nil
}

// SetBuilt writes the module's lifecycle flag.
func (n *ModuleNode) SetBuilt(built bool) error {
	if err := n.g.SetAttr(n.name, AttrIsBuilt, scene.BoolValue(built)); err != nil {
		return fmt.Errorf("module %s: %w", n.name, err)
	}
	return nil
}

func (n *ModuleNode) stringAttr(attr string) (string, error) {
	value, err := n.g.GetAttr(n.name, attr)
	if err != nil {
		return "", fmt.Errorf("module %s: %w", n.name, err)
	}
	return value.Str, nil
}

func (n *ModuleNode) setStringAttr(attr, value string) error {
	if err := n.g.SetAttr(n.name, attr, scene.StringValue(value)); err != nil {
		return fmt.Errorf("module %s: %w", n.name, err)
	}
	return nil
}

func (n *ModuleNode) listAttr(attr string) ([]string, error) {
	raw, err := n.stringAttr(attr)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, fmt.Errorf("module %s: parse %s: %w", n.name, attr, err)
	}
	return list, nil
}

func (n *ModuleNode) setListAttr(attr string, list []string) error {
	if list == nil {
		list = []string{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("module %s: encode %s: %w", n.name, attr, err)
	}
	return n.setStringAttr(attr, string(data))
}
