package scenefile

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// SaveIncremental copies the current scene file into a sibling
// <scene>.incremental/ directory before a mutating command overwrites it,
// keeping at most keep copies. A missing scene file is a no-op: there is
// nothing to preserve yet.
func SaveIncremental(path string, keep int) (string, error) {
	if keep <= 0 {
		return "", nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("incremental save: %w", err)
	}

	dir := path + ".incremental"
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("incremental save: %w", err)
	}

	base := filepath.Base(path)
	existing, err := incrementalCopies(dir, base)
	if err != nil {
		return "", err
	}
	next := 1
	if len(existing) > 0 {
		next = existing[len(existing)-1].index + 1
	}

	target := filepath.Join(dir, fmt.Sprintf("%s.%03d", base, next))
	if err := copyFile(path, target); err != nil {
		return "", fmt.Errorf("incremental save: %w", err)
	}

	// Prune the oldest copies beyond the retention window.
	existing = append(existing, incrementalCopy{index: next, name: filepath.Base(target)})
	for len(existing) > keep {
		oldest := existing[0]
		existing = existing[1:]
		if err := os.Remove(filepath.Join(dir, oldest.name)); err != nil && !os.IsNotExist(err) {
			return "", fmt.Errorf("incremental save: prune %s: %w", oldest.name, err)
		}
	}
	return target, nil
}

type incrementalCopy struct {
	index int
	name  string
}

func incrementalCopies(dir, base string) ([]incrementalCopy, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("incremental save: %w", err)
	}
	prefix := base + "."
	var copies []incrementalCopy
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		index, err := strconv.Atoi(strings.TrimPrefix(entry.Name(), prefix))
		if err != nil {
			continue
		}
		copies = append(copies, incrementalCopy{index: index, name: entry.Name()})
	}
	sort.Slice(copies, func(i, j int) bool { return copies[i].index < copies[j].index })
	return copies, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	return out.Close()
}
