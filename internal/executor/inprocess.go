package executor

import (
	"context"
	"io"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"

	"github.com/ipkrecipe/ipkrecipe/internal/errs"
)

// InProcess runs a script against an in-process shell interpreter
// instead of a container. It does not honor image or mounts (the
// caller is expected to have already placed files at workdir) and
// exists for tests and for environments with no container runtime
// available — it is not a conforming Executor per SPEC_FULL.md §4.4,
// which requires real isolation.
type InProcess struct {
	Stdout io.Writer
	Stderr io.Writer
}

func (p InProcess) Run(ctx context.Context, _ string, script string, env map[string]string, workdir string, _ []Mount) (Status, error) {
	file, err := syntax.NewParser(syntax.Variant(syntax.LangBash)).Parse(strings.NewReader(script), "script")
	if err != nil {
		return Status{}, errs.Wrap(err, errs.KindBuildScript, "failed to parse build script").
			WithOperation("InProcess.Run")
	}

	envPairs := make([]string, 0, len(env))
	for k, v := range env {
		envPairs = append(envPairs, k+"="+v)
	}

	runner, err := interp.New(
		interp.Dir(workdir),
		interp.Env(expand.ListEnviron(envPairs...)),
		interp.StdIO(nil, stdout(p), stderr(p)),
	)
	if err != nil {
		return Status{}, errs.Wrap(err, errs.KindBuildScript, "failed to create shell interpreter").
			WithOperation("InProcess.Run")
	}

	if err := runner.Run(ctx, file); err != nil {
		var status interp.ExitStatus
		if ok := asExitStatus(err, &status); ok {
			return Status{ExitCode: int(status)}, nil
		}

		if ctx.Err() != nil {
			return Status{}, errs.Wrap(ctx.Err(), errs.KindCanceled, "build script canceled").
				WithOperation("InProcess.Run")
		}

		return Status{}, errs.Wrap(err, errs.KindBuildScript, "build script failed").
			WithOperation("InProcess.Run")
	}

	return Status{ExitCode: 0}, nil
}

func asExitStatus(err error, out *interp.ExitStatus) bool {
	status, ok := err.(interp.ExitStatus)
	if ok {
		*out = status
	}

	return ok
}

func stdout(p InProcess) io.Writer {
	if p.Stdout != nil {
		return p.Stdout
	}

	return io.Discard
}

func stderr(p InProcess) io.Writer {
	if p.Stderr != nil {
		return p.Stderr
	}

	return io.Discard
}
