// Package executor defines the sandboxed command execution
// capability the builder pipeline uses to run a recipe's prepare/
// build/package scripts, and provides two implementations: an
// OCI-container-backed one for real builds and an in-process one
// used as a test double.
package executor

import "context"

// Mount binds a host directory into the executor's working
// environment.
type Mount struct {
	Source      string
	Destination string
	ReadOnly    bool
}

// Status is the outcome of a single script run.
type Status struct {
	ExitCode int
}

// Executor runs a shell script against a named image, with the given
// environment and bind mounts, and returns its exit status.
type Executor interface {
	Run(ctx context.Context, image string, script string, env map[string]string, workdir string, mounts []Mount) (Status, error)
}
