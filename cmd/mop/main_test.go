package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"github.com/fsanges/master-of-puppets/internal/config"
	"github.com/fsanges/master-of-puppets/internal/testsupport"
)

func writeTestConfig(t *testing.T, opts ...testsupport.ConfigOption) (configPath, scenePath string) {
	t.Helper()
	base := []testsupport.ConfigOption{
		testsupport.WithDefaultModules(config.DefaultModule{Type: "root", Name: "root"}),
	}
	cfg := testsupport.NewConfig(t, append(base, opts...)...)
	cfg.Logging.Level = "error"

	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatal(err)
	}
	configPath = filepath.Join(filepath.Dir(cfg.ScenePath), "config.toml")
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return configPath, cfg.ScenePath
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestInitCreatesSceneWithDefaultModules(t *testing.T) {
	configPath, scenePath := writeTestConfig(t)

	out, err := runCommand(t, "init", "--config", configPath)
	if err != nil {
		t.Fatalf("init: %v\n%s", err, out)
	}
	if _, err := os.Stat(scenePath); err != nil {
		t.Fatalf("scene file missing: %v", err)
	}

	out, err = runCommand(t, "modules", "--config", configPath)
	if err != nil {
		t.Fatalf("modules: %v\n%s", err, out)
	}
	if !strings.Contains(out, "root_mod") {
		t.Fatalf("default module missing from listing:\n%s", out)
	}
}

func TestInitRefusesExistingScene(t *testing.T) {
	configPath, _ := writeTestConfig(t)
	if out, err := runCommand(t, "init", "--config", configPath); err != nil {
		t.Fatalf("init: %v\n%s", err, out)
	}
	if _, err := runCommand(t, "init", "--config", configPath); err == nil {
		t.Fatal("second init succeeded without --force")
	}
	if out, err := runCommand(t, "init", "--config", configPath, "--force"); err != nil {
		t.Fatalf("forced init: %v\n%s", err, out)
	}
}

func TestLifecycleCommands(t *testing.T) {
	configPath, _ := writeTestConfig(t)
	if out, err := runCommand(t, "init", "--config", configPath); err != nil {
		t.Fatalf("init: %v\n%s", err, out)
	}

	out, err := runCommand(t, "module", "add", "arm", "l_arm", "--parent-joint", "root_root_jnt", "--config", configPath)
	if err != nil {
		t.Fatalf("module add: %v\n%s", err, out)
	}
	if !strings.Contains(out, "l_arm_mod") {
		t.Fatalf("unexpected add output:\n%s", out)
	}

	if out, err := runCommand(t, "build", "--config", configPath); err != nil {
		t.Fatalf("build: %v\n%s", err, out)
	}
	out, err = runCommand(t, "module", "show", "l_arm_mod", "--config", configPath)
	if err != nil {
		t.Fatalf("module show: %v\n%s", err, out)
	}
	if !strings.Contains(out, "yes") {
		t.Fatalf("module not reported built:\n%s", out)
	}

	if out, err := runCommand(t, "unbuild", "--config", configPath); err != nil {
		t.Fatalf("unbuild: %v\n%s", err, out)
	}
	if out, err := runCommand(t, "module", "delete", "l_arm_mod", "--config", configPath); err != nil {
		t.Fatalf("module delete: %v\n%s", err, out)
	}
	out, err = runCommand(t, "modules", "--config", configPath)
	if err != nil {
		t.Fatalf("modules: %v\n%s", err, out)
	}
	if strings.Contains(out, "l_arm_mod") {
		t.Fatalf("deleted module still listed:\n%s", out)
	}
}

func TestBuildWithoutSceneSuggestsInit(t *testing.T) {
	configPath, _ := writeTestConfig(t)
	_, err := runCommand(t, "build", "--config", configPath)
	if err == nil || !strings.Contains(err.Error(), "mop init") {
		t.Fatalf("err = %v, want hint about mop init", err)
	}
}

func TestModulesRendersDependencyTable(t *testing.T) {
	configPath, _ := writeTestConfig(t)
	if out, err := runCommand(t, "init", "--config", configPath); err != nil {
		t.Fatalf("init: %v\n%s", err, out)
	}
	if out, err := runCommand(t, "module", "add", "arm", "l_arm", "--parent-joint", "root_root_jnt", "--config", configPath); err != nil {
		t.Fatalf("module add: %v\n%s", err, out)
	}

	out, err := runCommand(t, "modules", "--config", configPath)
	if err != nil {
		t.Fatalf("modules: %v\n%s", err, out)
	}
	for _, want := range []string{"Module", "Parent Joint", "Joints", "╭"} {
		if !strings.Contains(out, want) {
			t.Fatalf("listing missing %q:\n%s", want, out)
		}
	}
	// Dependency order: the arm hangs off the root module's joint.
	if strings.Index(out, "root_mod") > strings.Index(out, "l_arm_mod") {
		t.Fatalf("modules out of dependency order:\n%s", out)
	}
}

func TestIncrementalCopiesWrittenOnMutation(t *testing.T) {
	configPath, scenePath := writeTestConfig(t, testsupport.WithIncrementalCopies(2))
	if out, err := runCommand(t, "init", "--config", configPath); err != nil {
		t.Fatalf("init: %v\n%s", err, out)
	}
	if out, err := runCommand(t, "build", "--config", configPath); err != nil {
		t.Fatalf("build: %v\n%s", err, out)
	}

	entries, err := os.ReadDir(scenePath + ".incremental")
	if err != nil {
		t.Fatalf("incremental dir: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("no incremental copy written by mutating command")
	}
}
