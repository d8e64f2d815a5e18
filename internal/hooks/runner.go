package hooks

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"github.com/fsanges/master-of-puppets/internal/logging"
)

// Runner executes every script under <Dir>/<phase>/ when a phase fires.
// Scripts are plain Go files exposing Main() or Main() error; they run in
// filename order so numbered prefixes control sequencing. A missing phase
// directory means no hooks are registered.
type Runner struct {
	dir    string
	logger *slog.Logger
}

// New creates a runner rooted at dir.
func New(dir string, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Runner{dir: dir, logger: logging.WithComponent(logger, "hooks")}
}

// Run executes the phase's scripts. The first failing script aborts the
// run; a broken hook is a configuration error the operation must surface,
// not paper over.
func (r *Runner) Run(ctx context.Context, phase string) error {
	if r.dir == "" {
		return nil
	}
	phaseDir := filepath.Join(r.dir, phase)
	entries, err := os.ReadDir(phaseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("hooks: read %s: %w", phaseDir, err)
	}

	var scripts []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".go") {
			continue
		}
		scripts = append(scripts, filepath.Join(phaseDir, entry.Name()))
	}
	sort.Strings(scripts)

	for _, script := range scripts {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("hooks: %w", err)
		}
		r.logger.Debug("Running hook script.", logging.FieldPhase, phase, "script", filepath.Base(script))
		if err := r.runScript(script); err != nil {
			return fmt.Errorf("hooks: %s: %w", script, err)
		}
	}
	return nil
}

func (r *Runner) runScript(path string) error {
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return fmt.Errorf("load stdlib symbols: %w", err)
	}
	if _, err := i.EvalPath(path); err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}

	value, err := i.Eval("Main")
	if err != nil {
		return fmt.Errorf("missing Main: %w", err)
	}
	switch fn := value.Interface().(type) {
	case func():
		fn()
		return nil
	case func() error:
		return fn()
	default:
		return fmt.Errorf("Main has unsupported signature %T", value.Interface())
	}
}
