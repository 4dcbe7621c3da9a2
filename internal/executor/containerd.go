package executor

import (
	"context"
	"fmt"

	containerd "github.com/containerd/containerd/v2/client"
	"github.com/containerd/containerd/v2/pkg/namespaces"
	"github.com/containerd/containerd/v2/pkg/oci"
	specs "github.com/opencontainers/runtime-spec/specs-go"

	"github.com/ipkrecipe/ipkrecipe/internal/errs"
)

// Containerd runs a recipe's scripts inside a containerd-managed OCI
// container, binding workdir through a volume mount as SPEC_FULL.md
// §4.4 requires of a conforming executor.
type Containerd struct {
	// Address is the containerd socket path, e.g. "/run/containerd/containerd.sock".
	Address string
	// Namespace scopes the containers this executor creates.
	Namespace string
}

func (c Containerd) Run(ctx context.Context, image string, script string, env map[string]string, workdir string, mounts []Mount) (Status, error) {
	client, err := containerd.New(c.Address)
	if err != nil {
		return Status{}, errs.Wrap(err, errs.KindBuildScript, "failed to connect to containerd").
			WithContext("address", c.Address).WithOperation("Containerd.Run")
	}
	defer client.Close()

	ns := c.Namespace
	if ns == "" {
		ns = "ipkrecipe"
	}

	ctx = namespaces.WithNamespace(ctx, ns)

	img, err := client.Pull(ctx, image, containerd.WithPullUnpack)
	if err != nil {
		return Status{}, errs.Wrap(err, errs.KindBuildScript, "failed to pull image").
			WithContext("image", image).WithOperation("Containerd.Run")
	}

	envPairs := make([]string, 0, len(env))
	for k, v := range env {
		envPairs = append(envPairs, k+"="+v)
	}

	mountSpecs := make([]specs.Mount, 0, len(mounts)+1)
	mountSpecs = append(mountSpecs, toOCIMount(Mount{Source: workdir, Destination: "/work"}))

	for _, m := range mounts {
		mountSpecs = append(mountSpecs, toOCIMount(m))
	}

	id := fmt.Sprintf("ipkrecipe-%s", img.Target().Digest.Encoded()[:12])

	container, err := client.NewContainer(ctx, id,
		containerd.WithImage(img),
		containerd.WithNewSnapshot(id+"-snapshot", img),
		containerd.WithNewSpec(
			oci.WithImageConfig(img),
			oci.WithProcessArgs("/bin/sh", "-c", script),
			oci.WithEnv(envPairs),
			oci.WithMounts(mountSpecs),
			oci.WithProcessCwd("/work"),
		),
	)
	if err != nil {
		return Status{}, errs.Wrap(err, errs.KindBuildScript, "failed to create container").
			WithContext("image", image).WithOperation("Containerd.Run")
	}
	defer container.Delete(ctx, containerd.WithSnapshotCleanup)

	task, err := container.NewTask(ctx, nil)
	if err != nil {
		return Status{}, errs.Wrap(err, errs.KindBuildScript, "failed to create task").
			WithOperation("Containerd.Run")
	}
	defer task.Delete(ctx)

	exitCh, err := task.Wait(ctx)
	if err != nil {
		return Status{}, errs.Wrap(err, errs.KindBuildScript, "failed to wait on task").
			WithOperation("Containerd.Run")
	}

	if err := task.Start(ctx); err != nil {
		return Status{}, errs.Wrap(err, errs.KindBuildScript, "failed to start task").
			WithOperation("Containerd.Run")
	}

	select {
	case <-ctx.Done():
		_ = task.Kill(ctx, 9)
		return Status{}, errs.Wrap(ctx.Err(), errs.KindCanceled, "build script canceled").
			WithOperation("Containerd.Run")
	case exit := <-exitCh:
		return Status{ExitCode: int(exit.ExitCode())}, nil
	}
}

func toOCIMount(m Mount) specs.Mount {
	options := []string{"rbind"}
	if m.ReadOnly {
		options = append(options, "ro")
	} else {
		options = append(options, "rw")
	}

	return specs.Mount{
		Source:      m.Source,
		Destination: m.Destination,
		Type:        "bind",
		Options:     options,
	}
}
