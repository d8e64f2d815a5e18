package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fsanges/master-of-puppets/internal/rig"
	"github.com/fsanges/master-of-puppets/internal/scene"
	"github.com/fsanges/master-of-puppets/internal/scene/scenefile"
)

func newInitCommand(ctx *commandContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a new scene file with an initialized rig",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := ctx.scenePath()
			if err != nil {
				return err
			}
			if !force {
				if exists, err := fileExists(path); err != nil {
					return err
				} else if exists {
					return fmt.Errorf("scene %s already exists (use --force to replace it)", path)
				}
			}

			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			g := scene.New()
			if _, err := ctx.bindRig(cmd.Context(), g, logger); err != nil {
				return err
			}
			if err := scenefile.Save(cmd.Context(), path, g); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized scene %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Replace an existing scene file")
	return cmd
}

func newBuildCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Build the rig from its modules",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRig(cmd, "build", true, func(runCtx context.Context, r *rig.Rig, g *scene.Memory) error {
				if err := r.Build(runCtx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Built rig.")
				return nil
			})
		},
	}
}

func newUnbuildCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "unbuild",
		Short: "Return the rig to its authoring state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRig(cmd, "unbuild", true, func(runCtx context.Context, r *rig.Rig, g *scene.Memory) error {
				if err := r.Unbuild(runCtx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Unbuilt rig.")
				return nil
			})
		},
	}
}

func newPublishCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "publish",
		Short: "Finalize a built rig for animation",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRig(cmd, "publish", true, func(runCtx context.Context, r *rig.Rig, g *scene.Memory) error {
				if err := r.Publish(runCtx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Published rig.")
				return nil
			})
		},
	}
}

func newResetPoseCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-pose",
		Short: "Reset every controller to its default transform",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRig(cmd, "reset_pose", true, func(runCtx context.Context, r *rig.Rig, g *scene.Memory) error {
				if err := r.ResetPose(runCtx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Reset pose.")
				return nil
			})
		},
	}
}
