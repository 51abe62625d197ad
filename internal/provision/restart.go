package provision

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// ExecRestarter restarts the station by replacing the current process image
// with a fresh copy of the same executable.
type ExecRestarter struct {
	exec func(argv0 string, argv []string, envv []string) error
}

// NewExecRestarter creates a restarter using execve(2).
func NewExecRestarter() *ExecRestarter {
	return &ExecRestarter{exec: unix.Exec}
}

// Restart re-executes the running binary with its original arguments and
// environment. It only returns on failure.
func (r *ExecRestarter) Restart() error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locating executable: %w", err)
	}
	if err := r.exec(exe, os.Args, os.Environ()); err != nil {
		return fmt.Errorf("re-executing %s: %w", exe, err)
	}
	return nil
}
