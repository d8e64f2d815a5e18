package rig

import (
	"context"
	"fmt"

	"github.com/fsanges/master-of-puppets/internal/logging"
	"github.com/fsanges/master-of-puppets/internal/scene"
)

// Publish finalizes a built rig for downstream consumers: the skeleton
// group is hidden and each module runs its publish step in dependency
// order. Like the other lifecycle operations it lands on the undo stack
// as a single entry.
func (r *Rig) Publish(ctx context.Context) error {
	logger := r.opLogger("publish")

	return r.g.Undoable("publish_rig", func() error {
		if err := r.hooks.Run(ctx, PhasePrePublish); err != nil {
			return fmt.Errorf("publish: %s hooks: %w", PhasePrePublish, err)
		}
		if err := r.g.SetAttr(SkeletonGroup, "visibility", scene.BoolValue(false)); err != nil {
			return fmt.Errorf("publish: hide skeleton: %w", err)
		}

		mods, err := r.Modules()
		if err != nil {
			return fmt.Errorf("publish: %w", err)
		}
		for _, mod := range mods {
			name := mod.Node().Name()
			logger.Info("Publishing module.", logging.FieldModule, name)
			if err := mod.Publish(ctx); err != nil {
				return fmt.Errorf("publish module %s: %w", name, err)
			}
		}

		if err := r.hooks.Run(ctx, PhasePostPublish); err != nil {
			return fmt.Errorf("publish: %s hooks: %w", PhasePostPublish, err)
		}
		logger.Info("Published rig.")
		return nil
	})
}
