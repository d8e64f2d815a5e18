package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var sceneFlag string

	ctx := newCommandContext(&configFlag, &sceneFlag)

	rootCmd := &cobra.Command{
		Use:           "mop",
		Short:         "Modular rig building for animation scenes",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&sceneFlag, "scene", "", "Scene file path (overrides scene_path from the config)")

	rootCmd.AddCommand(newInitCommand(ctx))
	rootCmd.AddCommand(newBuildCommand(ctx))
	rootCmd.AddCommand(newUnbuildCommand(ctx))
	rootCmd.AddCommand(newPublishCommand(ctx))
	rootCmd.AddCommand(newResetPoseCommand(ctx))
	rootCmd.AddCommand(newModulesCommand(ctx))
	rootCmd.AddCommand(newModuleCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
