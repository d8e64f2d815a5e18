package rig

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fsanges/master-of-puppets/internal/attributes"
	"github.com/fsanges/master-of-puppets/internal/logging"
	"github.com/fsanges/master-of-puppets/internal/scene"
	"github.com/fsanges/master-of-puppets/internal/shapes"
	"github.com/fsanges/master-of-puppets/internal/spaces"
)

// Build derives the animation rig from the authored modules: each module
// builds in dependency order, persisted customizations are restored, and
// every node created along the way is tagged ephemeral so Unbuild can
// find it again. The whole run is one undo entry.
//
// Build is not guarded by the rig-level flag; each module skips itself
// when already built, so a partial build can be resumed by running Build
// again.
func (r *Rig) Build(ctx context.Context) error {
	logger := r.opLogger("build")
	start := time.Now()

	err := r.g.Undoable("build_rig", func() error {
		if err := r.hooks.Run(ctx, PhasePreBuild); err != nil {
			return fmt.Errorf("build: %s hooks: %w", PhasePreBuild, err)
		}

		before := r.nodeSet()
		mods, err := r.Modules()
		if err != nil {
			return fmt.Errorf("build: %w", err)
		}

		for _, mod := range mods {
			name := mod.Node().Name()
			built, err := mod.Node().IsBuilt()
			if err != nil {
				return fmt.Errorf("build: %w", err)
			}
			if built {
				logger.Debug("Module already built, skipping.", logging.FieldModule, name)
				continue
			}
			logger.Info("Building module.", logging.FieldModule, name)
			if err := mod.Build(ctx); err != nil {
				return fmt.Errorf("build module %s: %w", name, err)
			}
			if err := r.restoreCustomizations(mod, logger); err != nil {
				return err
			}
			if err := r.hidePlacement(mod); err != nil {
				return err
			}
			if err := mod.Node().SetBuilt(true); err != nil {
				return err
			}
		}

		// Second pass: parent spaces reference controllers across module
		// boundaries, so every module must exist before any record applies.
		if err := r.applyParentSpaces(mods, logger); err != nil {
			return err
		}

		// The delta is taken after the spaces pass so switching constraints
		// are tagged too and a later unbuild removes them cleanly.
		if err := r.tagBuildNodes(before); err != nil {
			return err
		}
		if err := r.setBuilt(true); err != nil {
			return err
		}
		if err := r.hooks.Run(ctx, PhasePostBuild); err != nil {
			return fmt.Errorf("build: %s hooks: %w", PhasePostBuild, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	logger.Info("Built rig.", "duration", time.Since(start).Round(time.Millisecond).String())
	return nil
}

// restoreCustomizations replays the persisted shape and attribute-flag
// blobs onto a freshly built module's controllers. Malformed blobs are
// skipped with a warning: stale customization data must never block a
// build.
func (r *Rig) restoreCustomizations(mod Module, logger *slog.Logger) error {
	controllers, err := mod.Node().Controllers()
	if err != nil {
		return fmt.Errorf("build: %w", err)
	}
	for _, ctl := range controllers {
		if r.g.HasAttr(ctl, AttrShapeData) {
			blob, err := r.g.GetAttr(ctl, AttrShapeData)
			if err != nil {
				return fmt.Errorf("build: %w", err)
			}
			if data, ok := shapes.Decode(blob.Str); ok {
				if err := shapes.Apply(r.g, ctl, data); err != nil {
					return fmt.Errorf("build: restore shapes on %s: %w", ctl, err)
				}
			} else if blob.Str != "" {
				logger.Warn("Ignoring unreadable shape data.", logging.FieldController, ctl)
			}
		}
		if r.g.HasAttr(ctl, AttrAttributesState) {
			blob, err := r.g.GetAttr(ctl, AttrAttributesState)
			if err != nil {
				return fmt.Errorf("build: %w", err)
			}
			if state, ok := attributes.Decode(blob.Str); ok {
				if err := attributes.Apply(r.g, ctl, state); err != nil {
					return fmt.Errorf("build: restore attribute state on %s: %w", ctl, err)
				}
			} else if blob.Str != "" {
				logger.Warn("Ignoring unreadable attribute state.", logging.FieldController, ctl)
			}
		}
	}
	return nil
}

func (r *Rig) applyParentSpaces(mods []Module, logger *slog.Logger) error {
	for _, mod := range mods {
		controllers, err := mod.Node().Controllers()
		if err != nil {
			return fmt.Errorf("build: %w", err)
		}
		for _, ctl := range controllers {
			if !r.g.HasAttr(ctl, AttrParentSpaceData) {
				continue
			}
			blob, err := r.g.GetAttr(ctl, AttrParentSpaceData)
			if err != nil {
				return fmt.Errorf("build: %w", err)
			}
			rec, ok := spaces.Decode(blob.Str)
			if !ok {
				if blob.Str != "" {
					logger.Warn("Ignoring unreadable parent space data.", logging.FieldController, ctl)
				}
				continue
			}
			if err := spaces.Apply(r.g, ctl, rec, ExtrasGroup); err != nil {
				return fmt.Errorf("build: %w", err)
			}
		}
	}
	return nil
}

// hidePlacement hides the module's placement guides so the built rig is
// what the animator sees.
func (r *Rig) hidePlacement(mod Module) error {
	group, err := mod.Node().PlacementGroup()
	if err != nil {
		return fmt.Errorf("build: %w", err)
	}
	if group == "" || !r.g.Exists(group) {
		return nil
	}
	if err := r.g.SetAttr(group, "visibility", scene.BoolValue(false)); err != nil {
		return fmt.Errorf("build: hide placement %s: %w", group, err)
	}
	return nil
}

func (r *Rig) nodeSet() map[string]bool {
	set := make(map[string]bool)
	for _, name := range r.g.Nodes() {
		set[name] = true
	}
	return set
}

// tagBuildNodes marks every node created since the snapshot as ephemeral.
// Curve shapes are exempt: a shape recreated from persisted data replaces
// authoring content and must survive the next unbuild.
func (r *Rig) tagBuildNodes(before map[string]bool) error {
	for _, name := range r.g.Nodes() {
		if before[name] {
			continue
		}
		if typ, err := r.g.TypeOf(name); err == nil && typ == scene.NurbsCurve {
			continue
		}
		if r.g.HasAttr(name, AttrBuildNode) {
			if err := r.g.SetAttr(name, AttrBuildNode, scene.BoolValue(true)); err != nil {
				return fmt.Errorf("build: tag %s: %w", name, err)
			}
			continue
		}
		if err := r.g.AddAttr(name, AttrBuildNode, scene.TypeBool, scene.BoolValue(true)); err != nil {
			return fmt.Errorf("build: tag %s: %w", name, err)
		}
	}
	return nil
}
