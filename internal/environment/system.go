package environment

import (
	"context"
	"os"
	"os/exec"

	"golang.org/x/sys/unix"
)

// System abstracts the OS operations the checks probe, so tests can run
// without a PHP installation. None of them change the filesystem.
type System interface {
	LookPath(file string) (string, error)
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
	Stat(name string) (os.FileInfo, error)
	// Writable reports whether the process may create entries in dir.
	Writable(dir string) error
}

// RealSystem implements System using the OS.
type RealSystem struct{}

func (RealSystem) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (RealSystem) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

func (RealSystem) Stat(name string) (os.FileInfo, error) {
	return os.Stat(name)
}

func (RealSystem) Writable(dir string) error {
	return unix.Access(dir, unix.W_OK|unix.X_OK)
}
