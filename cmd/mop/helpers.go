package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

const (
	ansiReset = "\x1b[0m"
	ansiRed   = "\x1b[31m"
	ansiGreen = "\x1b[32m"
)

func fileExists(path string) (bool, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("check %s: %w", path, err)
	}
	return true, nil
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// builtLabel renders a yes/no lifecycle flag, colored when the output is
// a terminal.
func builtLabel(writer io.Writer, built bool) string {
	label := yesNo(built)
	if !shouldColorize(writer) {
		return label
	}
	if built {
		return ansiGreen + label + ansiReset
	}
	return ansiRed + label + ansiReset
}
