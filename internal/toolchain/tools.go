package toolchain

import (
	"fmt"
	"os/exec"
)

// NotFoundError reports a required external tool missing from PATH.
type NotFoundError struct {
	Tool string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("required tool %q not found in PATH", e.Tool)
}

// CheckTools resolves each named tool with exec.LookPath and returns an
// error naming the first one that is missing. Empty names are skipped.
func CheckTools(tools ...string) error {
	for _, tool := range tools {
		if tool == "" {
			continue
		}
		if _, err := exec.LookPath(tool); err != nil {
			return &NotFoundError{Tool: tool}
		}
	}
	return nil
}

// Available reports whether a single tool resolves on PATH.
func Available(tool string) bool {
	_, err := exec.LookPath(tool)
	return err == nil
}
