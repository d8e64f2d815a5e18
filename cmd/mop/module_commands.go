package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/fsanges/master-of-puppets/internal/rig"
	"github.com/fsanges/master-of-puppets/internal/scene"
)

func displayType(moduleType string) string {
	return cases.Title(language.Und).String(strings.ReplaceAll(moduleType, "_", " "))
}

// renderModuleTable lays out the modules listing: one row per module in
// dependency order, joint counts right-aligned.
func renderModuleTable(rows []moduleRow) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Module", "Type", "Parent Joint", "Built", "Joints"})
	for _, row := range rows {
		tw.AppendRow(table.Row{row.name, row.moduleType, row.parentJoint, row.built, row.joints})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 5, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}

type moduleRow struct {
	name        string
	moduleType  string
	parentJoint string
	built       string
	joints      int
}

func newModulesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "modules",
		Short: "List the scene's modules in dependency order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRig(cmd, "modules", false, func(runCtx context.Context, r *rig.Rig, g *scene.Memory) error {
				mods, err := r.Modules()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(mods) == 0 {
					fmt.Fprintln(out, "No modules in scene.")
					return nil
				}

				rows := make([]moduleRow, 0, len(mods))
				for _, mod := range mods {
					node := mod.Node()
					moduleType, err := node.Type()
					if err != nil {
						return err
					}
					parentJoint, err := node.ParentJoint()
					if err != nil {
						return err
					}
					joints, err := node.DeformJoints()
					if err != nil {
						return err
					}
					built, err := node.IsBuilt()
					if err != nil {
						return err
					}
					rows = append(rows, moduleRow{
						name:        node.Name(),
						moduleType:  displayType(moduleType),
						parentJoint: parentJoint,
						built:       builtLabel(out, built),
						joints:      len(joints),
					})
				}
				fmt.Fprintln(out, renderModuleTable(rows))
				return nil
			})
		},
	}
}

func newModuleCommand(ctx *commandContext) *cobra.Command {
	moduleCmd := &cobra.Command{
		Use:   "module",
		Short: "Manage individual modules",
	}

	moduleCmd.AddCommand(newModuleAddCommand(ctx))
	moduleCmd.AddCommand(newModuleDeleteCommand(ctx))
	moduleCmd.AddCommand(newModuleShowCommand(ctx))

	return moduleCmd
}

func newModuleAddCommand(ctx *commandContext) *cobra.Command {
	var parentJoint string

	cmd := &cobra.Command{
		Use:   "add <type> <name>",
		Short: "Add a module to the rig",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRig(cmd, "module_add", true, func(runCtx context.Context, r *rig.Rig, g *scene.Memory) error {
				mod, err := r.AddModule(runCtx, args[0], args[1], rig.AddModuleOptions{ParentJoint: parentJoint})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added module %s\n", mod.Node().Name())
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&parentJoint, "parent-joint", "", "Joint the new module attaches to")
	return cmd
}

func newModuleDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a module and its deform joints",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRig(cmd, "module_delete", true, func(runCtx context.Context, r *rig.Rig, g *scene.Memory) error {
				if err := r.DeleteModule(runCtx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted module %s\n", args[0])
				return nil
			})
		},
	}
}

func newModuleShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Show one module's record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRig(cmd, "module_show", false, func(runCtx context.Context, r *rig.Rig, g *scene.Memory) error {
				mod, err := r.GetModule(args[0])
				if err != nil {
					return err
				}
				if mod == nil {
					return fmt.Errorf("module %s not found", args[0])
				}

				node := mod.Node()
				moduleType, err := node.Type()
				if err != nil {
					return err
				}
				parentJoint, err := node.ParentJoint()
				if err != nil {
					return err
				}
				joints, err := node.DeformJoints()
				if err != nil {
					return err
				}
				controllers, err := node.Controllers()
				if err != nil {
					return err
				}
				built, err := node.IsBuilt()
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%-14s %s\n", "Module:", node.Name())
				fmt.Fprintf(out, "%-14s %s\n", "Type:", displayType(moduleType))
				fmt.Fprintf(out, "%-14s %s\n", "Parent joint:", orDash(parentJoint))
				fmt.Fprintf(out, "%-14s %s\n", "Built:", builtLabel(out, built))
				fmt.Fprintf(out, "%-14s %s\n", "Joints:", orDash(strings.Join(joints, ", ")))
				fmt.Fprintf(out, "%-14s %s\n", "Controllers:", orDash(strings.Join(controllers, ", ")))
				return nil
			})
		},
	}
}

func orDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
