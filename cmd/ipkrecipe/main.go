// Command ipkrecipe is a thin CLI wrapper proving the build core is
// callable end to end. Orchestration across multiple recipes,
// progress presentation, and repository management are out of scope
// (see spec.md §1) — this command builds exactly one recipe for one
// architecture and writes its .ipk archives to disk.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ipkrecipe/ipkrecipe/internal/executor"
	"github.com/ipkrecipe/ipkrecipe/internal/fetch"
	"github.com/ipkrecipe/ipkrecipe/internal/ipk"
	"github.com/ipkrecipe/ipkrecipe/internal/pipeline"
)

func main() {
	var (
		arch      string
		workDir   string
		distDir   string
		image     string
		timeout   time.Duration
		useInProc bool
	)

	root := &cobra.Command{
		Use:   "ipkrecipe <recipe-file>",
		Short: "Build one recipe into .ipk archives",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := os.ReadFile(args[0]) // #nosec G304 -- user-supplied recipe path, the program's entire purpose
			if err != nil {
				return err
			}

			ctx := context.Background()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			var exec executor.Executor = executor.Containerd{}
			if useInProc {
				exec = executor.InProcess{Stdout: os.Stdout, Stderr: os.Stderr}
			}

			p := &pipeline.Pipeline{
				Fetcher:  fetch.NewDefaultFetcher(),
				Executor: exec,
				Image:    image,
			}

			result, err := p.Run(ctx, filepath.Base(args[0]), source, arch, workDir)
			if err != nil {
				return err
			}

			for _, artifact := range result.Artifacts {
				archDir := filepath.Join(distDir, artifact.Package.Arch)
				if err := os.MkdirAll(archDir, 0o755); err != nil {
					return err
				}

				out := filepath.Join(archDir, ipk.FileName(artifact.Package))
				if err := os.WriteFile(out, artifact.Data, 0o644); err != nil {
					return err
				}

				fmt.Fprintln(cmd.OutOrStdout(), out)
			}

			return nil
		},
	}

	root.Flags().StringVar(&arch, "arch", "armv7", "target architecture")
	root.Flags().StringVar(&workDir, "work-dir", ".ipkrecipe-work", "scratch directory for sources and staged files")
	root.Flags().StringVar(&distDir, "dist-dir", "dist", "directory finished .ipk archives are written to")
	root.Flags().StringVar(&image, "image", "", "OCI image the build scripts run inside")
	root.Flags().DurationVar(&timeout, "timeout", 0, "overall build timeout, 0 for none")
	root.Flags().BoolVar(&useInProc, "in-process", false, "run scripts with the in-process shell interpreter instead of a container")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
