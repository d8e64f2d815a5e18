package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/fsanges/master-of-puppets/internal/config"
	"github.com/fsanges/master-of-puppets/internal/hooks"
	"github.com/fsanges/master-of-puppets/internal/logging"
	"github.com/fsanges/master-of-puppets/internal/modules"
	"github.com/fsanges/master-of-puppets/internal/rig"
	"github.com/fsanges/master-of-puppets/internal/scene"
	"github.com/fsanges/master-of-puppets/internal/scene/scenefile"
)

type commandContext struct {
	configFlag *string
	sceneFlag  *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, sceneFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		sceneFlag:  sceneFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) scenePath() (string, error) {
	if c.sceneFlag != nil && strings.TrimSpace(*c.sceneFlag) != "" {
		return config.ExpandPath(*c.sceneFlag)
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return "", err
	}
	if cfg.ScenePath == "" {
		return "", errors.New("no scene file configured; pass --scene or set scene_path in the config")
	}
	return cfg.ScenePath, nil
}

func (c *commandContext) logger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return logging.NewFromConfig(cfg)
}

func (c *commandContext) hookRunner(logger *slog.Logger) (rig.HookRunner, *hooks.Runner) {
	cfg, err := c.ensureConfig()
	if err != nil || cfg.HooksDir == "" {
		return rig.NopHooks(), nil
	}
	runner := hooks.New(cfg.HooksDir, logger)
	return runner, runner
}

func (c *commandContext) bindRig(ctx context.Context, g *scene.Memory, logger *slog.Logger) (*rig.Rig, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	coreHooks, _ := c.hookRunner(logger)
	defaults := make([]rig.DefaultModule, 0, len(cfg.DefaultModules))
	for _, mod := range cfg.DefaultModules {
		defaults = append(defaults, rig.DefaultModule{
			Type:        mod.Type,
			Name:        mod.Name,
			ParentJoint: mod.ParentJoint,
		})
	}
	return rig.New(ctx, g, modules.Builtin(), logger,
		rig.WithHooks(coreHooks),
		rig.WithControllerSuffix(cfg.ControllerSuffix),
		rig.WithDefaultModules(defaults),
	)
}

// withRig runs fn against the rig in the configured scene file under an
// advisory lock. Mutating commands copy the scene into the incremental
// directory first and save the result afterwards; around fn the CLI-level
// <action>_pre / <action>_post hooks fire.
func (c *commandContext) withRig(cmd *cobra.Command, action string, mutating bool, fn func(ctx context.Context, r *rig.Rig, g *scene.Memory) error) error {
	ctx := cmd.Context()
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	path, err := c.scenePath()
	if err != nil {
		return err
	}
	logger, err := c.logger()
	if err != nil {
		return err
	}

	lock := scenefile.Lock(path)
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("lock scene: %w", err)
	}
	if !ok {
		return fmt.Errorf("scene %s is in use by another mop process", path)
	}
	defer func() { _ = lock.Unlock() }()

	g, err := scenefile.Load(ctx, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("scene %s does not exist; create it with `mop init`", path)
		}
		return err
	}

	_, cliHooks := c.hookRunner(logger)
	if cliHooks != nil {
		if err := cliHooks.Run(ctx, action+"_pre"); err != nil {
			return err
		}
	}
	if mutating {
		if _, err := scenefile.SaveIncremental(path, cfg.IncrementalCopies); err != nil {
			return err
		}
	}

	r, err := c.bindRig(ctx, g, logger)
	if err != nil {
		return err
	}
	if err := fn(ctx, r, g); err != nil {
		return err
	}

	if cliHooks != nil {
		if err := cliHooks.Run(ctx, action+"_post"); err != nil {
			return err
		}
	}
	if mutating {
		if err := scenefile.Save(ctx, path, g); err != nil {
			return err
		}
	}
	return nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
