package rig

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/fsanges/master-of-puppets/internal/logging"
	"github.com/fsanges/master-of-puppets/internal/scene"
)

// Fixed names of the rig node and its three top-level groups. Group
// existence is checked by name so they are created exactly once per scene.
const (
	RigNode       = "RIG"
	ModulesGroup  = "MODULES"
	ExtrasGroup   = "EXTRAS"
	SkeletonGroup = "SKELETON"
)

// Rig node attributes.
const (
	attrInitialized   = "is_initialized"
	attrModulesGroup  = "modules_group"
	attrExtrasGroup   = "extras_group"
	attrSkeletonGroup = "skeleton_group"
)

// DefaultModule seeds a module on first rig initialization.
type DefaultModule struct {
	Type        string
	Name        string
	ParentJoint string
}

// Rig is the entry point: it owns the three top-level scene groups and
// exposes the lifecycle operations as atomic, undoable units.
type Rig struct {
	g         scene.Graph
	registry  Registry
	hooks     HookRunner
	logger    *slog.Logger
	ctlSuffix string
	defaults  []DefaultModule
}

// Option configures optional Rig behavior.
type Option func(*Rig)

// WithHooks installs the lifecycle hook runner.
func WithHooks(runner HookRunner) Option {
	return func(r *Rig) {
		if runner != nil {
			r.hooks = runner
		}
	}
}

// WithControllerSuffix overrides the naming convention identifying
// controller transforms (default "_ctl").
func WithControllerSuffix(suffix string) Option {
	return func(r *Rig) {
		if suffix != "" {
			r.ctlSuffix = suffix
		}
	}
}

// WithDefaultModules seeds modules on first initialization.
func WithDefaultModules(defaults []DefaultModule) Option {
	return func(r *Rig) { r.defaults = defaults }
}

// New binds a Rig to a scene, creating the RIG node, its groups, and the
// default modules on first use. Re-opening a scene that already holds a
// rig is a cheap no-op beyond attribute reads.
func New(ctx context.Context, g scene.Graph, registry Registry, logger *slog.Logger, opts ...Option) (*Rig, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	r := &Rig{
		g:         g,
		registry:  registry,
		hooks:     NopHooks(),
		logger:    logging.WithComponent(logger, "rig"),
		ctlSuffix: "_ctl",
	}
	for _, opt := range opts {
		opt(r)
	}

	err := g.Undoable("init_rig", func() error {
		if err := r.ensureRigNode(); err != nil {
			return err
		}
		if err := r.ensureHierarchy(); err != nil {
			return err
		}
		initialized, err := r.boolAttr(attrInitialized)
		if err != nil {
			return err
		}
		if initialized {
			return nil
		}
		if err := r.addDefaultModules(ctx); err != nil {
			return err
		}
		return g.SetAttr(RigNode, attrInitialized, scene.BoolValue(true))
	})
	if err != nil {
		return nil, fmt.Errorf("initialize rig: %w", err)
	}
	return r, nil
}

func (r *Rig) ensureRigNode() error {
	if r.g.Exists(RigNode) {
		return nil
	}
	if _, err := r.g.CreateNode(scene.Transform, RigNode); err != nil {
		return err
	}
	boolAttrs := []string{attrInitialized, AttrIsBuilt}
	for _, attr := range boolAttrs {
		if err := r.g.AddAttr(RigNode, attr, scene.TypeBool, scene.BoolValue(false)); err != nil {
			return err
		}
	}
	groupAttrs := []string{attrModulesGroup, attrExtrasGroup, attrSkeletonGroup}
	for _, attr := range groupAttrs {
		if err := r.g.AddAttr(RigNode, attr, scene.TypeString, scene.StringValue("")); err != nil {
			return err
		}
	}
	return nil
}

func (r *Rig) ensureHierarchy() error {
	groups := []struct {
		name string
		attr string
	}{
		{ModulesGroup, attrModulesGroup},
		{ExtrasGroup, attrExtrasGroup},
		{SkeletonGroup, attrSkeletonGroup},
	}
	for _, group := range groups {
		if r.g.Exists(group.name) {
			continue
		}
		if _, err := r.g.CreateNode(scene.Transform, group.name); err != nil {
			return err
		}
		if err := r.g.Parent(group.name, RigNode); err != nil {
			return err
		}
		if err := r.g.SetAttr(RigNode, group.attr, scene.StringValue(group.name)); err != nil {
			return err
		}
	}
	return nil
}

func (r *Rig) addDefaultModules(ctx context.Context) error {
	for _, def := range r.defaults {
		opts := AddModuleOptions{ParentJoint: def.ParentJoint}
		if _, err := r.addModule(ctx, def.Type, def.Name, opts); err != nil {
			return fmt.Errorf("add default module %s: %w", def.Name, err)
		}
	}
	return nil
}

// Graph returns the scene the rig operates on.
func (r *Rig) Graph() scene.Graph { return r.g }

// IsBuilt reports the rig-level lifecycle flag.
func (r *Rig) IsBuilt() (bool, error) {
	return r.boolAttr(AttrIsBuilt)
}

func (r *Rig) boolAttr(attr string) (bool, error) {
	value, err := r.g.GetAttr(RigNode, attr)
	if err != nil {
		return false, fmt.Errorf("rig: %w", err)
	}
	return value.Bool, nil
}

func (r *Rig) setBuilt(built bool) error {
	if err := r.g.SetAttr(RigNode, AttrIsBuilt, scene.BoolValue(built)); err != nil {
		return fmt.Errorf("rig: %w", err)
	}
	return nil
}

// Modules returns every module in the scene, always in dependency order.
// The list is recomputed from live scene state on each call, so external
// structural edits are reflected immediately.
func (r *Rig) Modules() ([]Module, error) {
	children, err := r.g.Children(ModulesGroup)
	if err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}
	mods := make([]Module, 0, len(children))
	for _, child := range children {
		node := NewModuleNode(r.g, child)
		moduleType, err := node.Type()
		if err != nil {
			return nil, fmt.Errorf("list modules: %w", err)
		}
		ctor, ok := r.registry[moduleType]
		if !ok {
			return nil, fmt.Errorf("list modules: %w: %q on %s", ErrUnknownModuleType, moduleType, child)
		}
		mods = append(mods, ctor(node, r.logger))
	}
	return r.sortModules(mods)
}

// GetModule returns the module with the given node name, or nil when no
// such module exists; a miss is an expected query outcome, logged at
// warning level rather than reported as an error.
func (r *Rig) GetModule(name string) (Module, error) {
	mods, err := r.Modules()
	if err != nil {
		return nil, err
	}
	for _, mod := range mods {
		if mod.Node().Name() == name {
			return mod, nil
		}
	}
	r.logger.Warn("Found no module with that name.", logging.FieldModule, name)
	return nil, nil
}

// Skeleton returns every node under the skeleton group in leaf-to-root
// order, so unbuild can disconnect and delete without orphaning a
// still-referenced child.
func (r *Rig) Skeleton() ([]string, error) {
	descendants, err := r.g.Descendants(SkeletonGroup)
	if err != nil {
		return nil, fmt.Errorf("skeleton: %w", err)
	}
	out := make([]string, len(descendants))
	for i, name := range descendants {
		out[len(descendants)-1-i] = name
	}
	return out, nil
}

// BuildNodes returns every node carrying the ephemeral marker attribute.
// The marker, not a session list, is the durable record of ephemerality,
// so the set survives across sessions.
func (r *Rig) BuildNodes() []string {
	var out []string
	for _, name := range r.g.Nodes() {
		if r.g.HasAttr(name, AttrBuildNode) {
			out = append(out, name)
		}
	}
	return out
}

// AddModuleOptions carries optional module-add parameters.
type AddModuleOptions struct {
	ParentJoint string
}

// AddModule instantiates a new module and scaffolds its authoring-time
// nodes, as one undoable unit. It refuses on a built rig and on unknown
// module types; a refused add leaves the undo stack untouched.
func (r *Rig) AddModule(ctx context.Context, moduleType, name string, opts AddModuleOptions) (Module, error) {
	ctor, err := r.checkAddModule(moduleType, name, opts)
	if err != nil {
		return nil, err
	}
	var mod Module
	err = r.g.Undoable("add_module", func() error {
		var err error
		mod, err = r.createModule(ctx, ctor, moduleType, name, opts)
		return err
	})
	if err != nil {
		return nil, err
	}
	return mod, nil
}

func (r *Rig) addModule(ctx context.Context, moduleType, name string, opts AddModuleOptions) (Module, error) {
	ctor, err := r.checkAddModule(moduleType, name, opts)
	if err != nil {
		return nil, err
	}
	return r.createModule(ctx, ctor, moduleType, name, opts)
}

func (r *Rig) checkAddModule(moduleType, name string, opts AddModuleOptions) (Constructor, error) {
	built, err := r.IsBuilt()
	if err != nil {
		return nil, err
	}
	if built {
		return nil, fmt.Errorf("add module %s: %w", name, ErrRigBuilt)
	}
	ctor, ok := r.registry[moduleType]
	if !ok {
		return nil, fmt.Errorf("add module %s: %w: %q", name, ErrUnknownModuleType, moduleType)
	}
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("add module: empty name")
	}
	if opts.ParentJoint != "" && !r.g.Exists(opts.ParentJoint) {
		return nil, fmt.Errorf("add module %s: parent joint %s: %w", name, opts.ParentJoint, scene.ErrUnknownNode)
	}
	return ctor, nil
}

func (r *Rig) createModule(ctx context.Context, ctor Constructor, moduleType, name string, opts AddModuleOptions) (Module, error) {
	nodeName, err := r.g.CreateNode(scene.Transform, name+ModuleSuffix)
	if err != nil {
		return nil, fmt.Errorf("add module %s: %w", name, err)
	}
	if err := r.g.Parent(nodeName, ModulesGroup); err != nil {
		return nil, fmt.Errorf("add module %s: %w", name, err)
	}

	stringAttrs := []struct {
		attr  string
		value string
	}{
		{AttrModuleType, moduleType},
		{AttrParentJoint, opts.ParentJoint},
		{AttrDeformJoints, "[]"},
		{AttrControllers, "[]"},
		{AttrPlacementGroup, ""},
	}
	for _, def := range stringAttrs {
		if err := r.g.AddAttr(nodeName, def.attr, scene.TypeString, scene.StringValue(def.value)); err != nil {
			return nil, fmt.Errorf("add module %s: %w", name, err)
		}
	}
	if err := r.g.AddAttr(nodeName, AttrIsBuilt, scene.TypeBool, scene.BoolValue(false)); err != nil {
		return nil, fmt.Errorf("add module %s: %w", name, err)
	}

	mod := ctor(NewModuleNode(r.g, nodeName), r.logger)
	if err := mod.Init(ctx); err != nil {
		return nil, fmt.Errorf("add module %s: %w", name, err)
	}
	r.logger.Info("Added module.",
		logging.FieldModule, nodeName,
		logging.FieldModuleType, moduleType)
	return mod, nil
}

// DeleteModule removes a module and its deform joints. Modules whose
// parent joint belongs to the deleted module are first reparented to the
// deleted module's own parent joint, so no dangling reference survives.
func (r *Rig) DeleteModule(ctx context.Context, name string) error {
	built, err := r.IsBuilt()
	if err != nil {
		return err
	}
	if built {
		r.logger.Error("Cannot delete a module while the rig is built.", logging.FieldModule, name)
		return fmt.Errorf("delete module %s: %w", name, ErrRigBuilt)
	}

	return r.g.Undoable("delete_module", func() error {
		mods, err := r.Modules()
		if err != nil {
			return err
		}
		var target Module
		for _, mod := range mods {
			if mod.Node().Name() == name {
				target = mod
				break
			}
		}
		if target == nil {
			return fmt.Errorf("delete module %s: %w", name, ErrModuleNotFound)
		}

		deformJoints, err := target.Node().DeformJoints()
		if err != nil {
			return err
		}
		owned := make(map[string]bool, len(deformJoints))
		for _, joint := range deformJoints {
			owned[joint] = true
		}
		newParent, err := target.Node().ParentJoint()
		if err != nil {
			return err
		}

		for _, mod := range mods {
			if mod.Node().Name() == name {
				continue
			}
			parentJoint, err := mod.Node().ParentJoint()
			if err != nil {
				return err
			}
			if !owned[parentJoint] {
				continue
			}
			if err := mod.Node().SetParentJoint(newParent); err != nil {
				return err
			}
			if err := mod.Update(ctx); err != nil {
				return fmt.Errorf("delete module %s: update %s: %w", name, mod.Node().Name(), err)
			}
		}

		if err := r.g.Delete(name); err != nil {
			return fmt.Errorf("delete module %s: %w", name, err)
		}
		if err := r.g.Delete(deformJoints...); err != nil {
			return fmt.Errorf("delete module %s: %w", name, err)
		}
		r.logger.Info("Deleted module.", logging.FieldModule, name)
		return nil
	})
}

// opLogger tags a logger with the operation name and a fresh correlation
// id so one lifecycle run can be traced through the log stream.
func (r *Rig) opLogger(operation string) *slog.Logger {
	return r.logger.With(
		logging.FieldOperation, operation,
		logging.FieldCorrelationID, uuid.NewString(),
	)
}
