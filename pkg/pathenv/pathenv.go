// Package pathenv manipulates the executable search path of the current
// process. Shell profile files are never touched; permanence is left to the
// user, with an explicit instruction.
package pathenv

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// OnPath reports whether dir is one of the entries in PATH.
func OnPath(dir string) bool {
	clean := filepath.Clean(dir)
	for _, entry := range filepath.SplitList(os.Getenv("PATH")) {
		if entry != "" && filepath.Clean(entry) == clean {
			return true
		}
	}
	return false
}

// Extend appends dir to PATH for the lifetime of this process. It reports
// whether the path actually changed.
func Extend(dir string) bool {
	if OnPath(dir) {
		return false
	}
	path := os.Getenv("PATH")
	if path == "" {
		os.Setenv("PATH", dir)
		return true
	}
	os.Setenv("PATH", path+string(os.PathListSeparator)+dir)
	return true
}

// PermanenceHint is the user-facing instruction for making the extension
// survive the current session.
func PermanenceHint(dir string) string {
	return fmt.Sprintf("add 'export PATH=\"$PATH:%s\"' to your shell profile to make this permanent", strings.TrimSpace(dir))
}
