package rig

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fsanges/master-of-puppets/internal/attributes"
	"github.com/fsanges/master-of-puppets/internal/logging"
	"github.com/fsanges/master-of-puppets/internal/scene"
	"github.com/fsanges/master-of-puppets/internal/shapes"
	"github.com/fsanges/master-of-puppets/internal/spaces"
)

// Unbuild returns the rig to its authoring state: customizations are
// captured back onto controller nodes, skeleton drivers are severed, and
// every node tagged during Build is deleted. Persistent nodes (modules,
// controllers, deform joints, placement guides) survive, which is what
// makes the build/unbuild cycle lossless. Calling Unbuild on an unbuilt
// rig is a no-op.
func (r *Rig) Unbuild(ctx context.Context) error {
	logger := r.opLogger("unbuild")

	built, err := r.IsBuilt()
	if err != nil {
		return err
	}
	if !built {
		logger.Debug("Rig is not built, nothing to unbuild.")
		return nil
	}

	return r.g.Undoable("unbuild_rig", func() error {
		if err := r.hooks.Run(ctx, PhasePreUnbuild); err != nil {
			return fmt.Errorf("unbuild: %s hooks: %w", PhasePreUnbuild, err)
		}
		if err := r.resetPose(); err != nil {
			return fmt.Errorf("unbuild: %w", err)
		}

		mods, err := r.Modules()
		if err != nil {
			return fmt.Errorf("unbuild: %w", err)
		}
		for _, mod := range mods {
			if err := r.captureCustomizations(mod, logger); err != nil {
				return err
			}
			if err := r.showPlacement(mod); err != nil {
				return err
			}
			if err := mod.Node().SetBuilt(false); err != nil {
				return err
			}
		}

		if err := r.disconnectSkeleton(); err != nil {
			return err
		}
		if nodes := r.BuildNodes(); len(nodes) > 0 {
			if err := r.g.Delete(nodes...); err != nil {
				return fmt.Errorf("unbuild: delete build nodes: %w", err)
			}
		}
		if err := r.setBuilt(false); err != nil {
			return err
		}
		if err := r.hooks.Run(ctx, PhasePostUnbuild); err != nil {
			return fmt.Errorf("unbuild: %s hooks: %w", PhasePostUnbuild, err)
		}
		logger.Info("Unbuilt rig.")
		return nil
	})
}

// captureCustomizations stores the rigger's edits on the controller nodes
// themselves, so they ride along with the scene and replay on the next
// build. Shape capture is best-effort: a controller without supported
// curve shapes keeps its previous blob.
func (r *Rig) captureCustomizations(mod Module, logger *slog.Logger) error {
	controllers, err := mod.Node().Controllers()
	if err != nil {
		return fmt.Errorf("unbuild: %w", err)
	}
	for _, ctl := range controllers {
		if !r.g.Exists(ctl) {
			continue
		}
		if data, err := shapes.Capture(r.g, ctl); err != nil {
			logger.Debug("Skipping shape capture.", logging.FieldController, ctl, "reason", err.Error())
		} else {
			blob, err := shapes.Encode(data)
			if err != nil {
				return fmt.Errorf("unbuild: %w", err)
			}
			if err := r.setStringAttr(ctl, AttrShapeData, blob); err != nil {
				return fmt.Errorf("unbuild: %w", err)
			}
		}

		state, err := attributes.Capture(r.g, ctl)
		if err != nil {
			return fmt.Errorf("unbuild: %w", err)
		}
		blob, err := attributes.Encode(state)
		if err != nil {
			return fmt.Errorf("unbuild: %w", err)
		}
		if err := r.setStringAttr(ctl, AttrAttributesState, blob); err != nil {
			return fmt.Errorf("unbuild: %w", err)
		}
	}
	return nil
}

func (r *Rig) showPlacement(mod Module) error {
	group, err := mod.Node().PlacementGroup()
	if err != nil {
		return fmt.Errorf("unbuild: %w", err)
	}
	if group == "" || !r.g.Exists(group) {
		return nil
	}
	if err := r.g.SetAttr(group, "visibility", scene.BoolValue(true)); err != nil {
		return fmt.Errorf("unbuild: show placement %s: %w", group, err)
	}
	return nil
}

// disconnectSkeleton severs incoming driver connections on every skeleton
// joint, leaf first, so deleting the build nodes leaves clean joints.
func (r *Rig) disconnectSkeleton() error {
	joints, err := r.Skeleton()
	if err != nil {
		return fmt.Errorf("unbuild: %w", err)
	}
	for _, joint := range joints {
		for _, attrName := range []string{"translate", "rotate", "scale"} {
			if _, driven := r.g.ConnectionSource(joint, attrName); !driven {
				continue
			}
			if err := r.g.Disconnect(joint, attrName); err != nil {
				return fmt.Errorf("unbuild: disconnect %s.%s: %w", joint, attrName, err)
			}
		}
	}
	return nil
}

// setStringAttr writes a string attribute, defining it first if the node
// does not carry it yet.
func (r *Rig) setStringAttr(node, attrName, value string) error {
	if !r.g.HasAttr(node, attrName) {
		return r.g.AddAttr(node, attrName, scene.TypeString, scene.StringValue(value))
	}
	return r.g.SetAttr(node, attrName, scene.StringValue(value))
}

// ResetPose restores every controller transform to its defaults, as an
// undoable operation of its own.
func (r *Rig) ResetPose(ctx context.Context) error {
	logger := r.opLogger("reset_pose")
	return r.g.Undoable("reset_pose", func() error {
		if err := r.resetPose(); err != nil {
			return err
		}
		logger.Info("Reset pose.")
		return nil
	})
}

func (r *Rig) resetPose() error {
	for _, name := range r.g.Nodes() {
		if !strings.HasSuffix(name, r.ctlSuffix) {
			continue
		}
		typ, err := r.g.TypeOf(name)
		if err != nil || typ != scene.Transform {
			continue
		}
		if err := spaces.ResetTransform(r.g, name); err != nil {
			return fmt.Errorf("reset pose: %w", err)
		}
	}
	return nil
}
