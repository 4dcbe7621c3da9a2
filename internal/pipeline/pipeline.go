// Package pipeline implements the six-phase build state machine:
// Parse, Fetch, Prepare, Build, Package, Archive. It fires hook
// events at each phase boundary and threads a context.Context through
// every phase so cancellation kills the running executor promptly.
package pipeline

import (
	"bytes"
	"context"
	"path/filepath"
	"time"

	"github.com/ipkrecipe/ipkrecipe/internal/clock"
	"github.com/ipkrecipe/ipkrecipe/internal/errs"
	"github.com/ipkrecipe/ipkrecipe/internal/executor"
	"github.com/ipkrecipe/ipkrecipe/internal/fetch"
	"github.com/ipkrecipe/ipkrecipe/internal/hooks"
	"github.com/ipkrecipe/ipkrecipe/internal/ipk"
	"github.com/ipkrecipe/ipkrecipe/internal/logx"
	"github.com/ipkrecipe/ipkrecipe/internal/parser"
	"github.com/ipkrecipe/ipkrecipe/internal/recipe"
)

// State names the six phases of a build, in order.
type State int

const (
	StateParsed State = iota
	StateFetched
	StatePrepared
	StateBuilt
	StatePackaged
	StateArchived
)

// Pipeline drives one recipe through every phase for one target
// architecture.
type Pipeline struct {
	Fetcher  fetch.Fetcher
	Executor executor.Executor
	Hooks    *hooks.Registry
	Logger   *logx.Logger
	Image    string
}

// Artifact is one split package's finished .ipk archive.
type Artifact struct {
	Package recipe.Package
	Data    []byte
}

// Result is the final output of a successful run: one .ipk archive
// per split package.
type Result struct {
	Artifacts []Artifact
}

// Run executes every phase for recipeSource against arch, rooted at
// workDir, and returns the built archives.
func (p *Pipeline) Run(ctx context.Context, recipeName string, recipeSource []byte, arch, workDir string) (*Result, error) {
	if p.Hooks == nil {
		p.Hooks = hooks.NewRegistry()
	}

	logger := p.Logger
	if logger == nil {
		logger = logx.Default
	}

	// --- Parse ---
	r, err := parser.ParseFile(recipeName, recipeSource, time.Unix(0, 0).UTC())
	if err != nil {
		return nil, err
	}

	logger.Info("recipe parsed", "recipe", r.Name, "arch", arch)

	// post_parse fires with the live, mutable recipe: a hook MAY
	// append to r.Packages here (spec.md §4.5/§9) and the pipeline
	// will carry that package through fetch, build, and archive.
	if err := p.Hooks.Fire(hooks.EventPostParse, &hooks.Context{Recipe: r, WorkDir: workDir}); err != nil {
		return nil, err
	}

	if err := checkCanceled(ctx); err != nil {
		return nil, err
	}

	// --- Fetch ---
	srcDir := filepath.Join(workDir, "src")

	if err := fetch.Acquire(ctx, p.Fetcher, r.Sources, r.NoExtract, srcDir); err != nil {
		return nil, err
	}

	logger.Info("sources fetched", "recipe", r.Name, "count", len(r.Sources))

	if err := p.Hooks.Fire(hooks.EventPostFetchSources, &hooks.Context{Recipe: r, WorkDir: workDir, SrcDir: srcDir}); err != nil {
		return nil, err
	}

	if err := checkCanceled(ctx); err != nil {
		return nil, err
	}

	// --- Specialize for the target architecture ---
	br, err := parser.Specialize(r, arch)
	if err != nil {
		return nil, err
	}

	// --- Prepare ---
	if err := p.runStage(ctx, br, "prepare", buildEnv(br, r.Name, srcDir, workDir), workDir); err != nil {
		return nil, err
	}

	if err := p.Hooks.Fire(hooks.EventPostPrepare, &hooks.Context{Recipe: r, Build: br, WorkDir: workDir, SrcDir: srcDir}); err != nil {
		return nil, err
	}

	if err := checkCanceled(ctx); err != nil {
		return nil, err
	}

	// --- Build ---
	if err := p.runStage(ctx, br, "build", buildEnv(br, r.Name, srcDir, workDir), workDir); err != nil {
		return nil, err
	}

	if err := p.Hooks.Fire(hooks.EventPostBuild, &hooks.Context{Recipe: r, Build: br, WorkDir: workDir, SrcDir: srcDir}); err != nil {
		return nil, err
	}

	if err := checkCanceled(ctx); err != nil {
		return nil, err
	}

	// --- Package ---
	// Resolved after post_build fires, so a hook that appended a
	// package during post_parse is reflected in the final set.
	packages := parser.ResolvePackages(r, br)
	result := &Result{Artifacts: make([]Artifact, 0, len(packages))}

	for _, pkg := range packages {
		env := buildEnv(br, pkg.Name, srcDir, workDir)

		stage := "package"
		if _, ok := br.Functions["package_"+pkg.Name]; ok {
			stage = "package_" + pkg.Name
		}

		if err := p.runStage(ctx, br, stage, env, workDir); err != nil {
			return nil, err
		}

		pkgCopy := pkg

		if err := p.Hooks.Fire(hooks.EventPostPackage, &hooks.Context{Recipe: r, Build: br, Package: &pkgCopy, WorkDir: workDir}); err != nil {
			return nil, err
		}

		// --- Archive ---
		files, err := stageFiles(env["pkgdir"])
		if err != nil {
			return nil, err
		}

		for _, f := range files {
			pkgCopy.Files = append(pkgCopy.Files, f.Path)
		}

		var buf bytes.Buffer

		if err := ipk.Build(&buf, pkgCopy, files, clock.NewPinned(r.Timestamp).Time()); err != nil {
			return nil, err
		}

		result.Artifacts = append(result.Artifacts, Artifact{Package: pkgCopy, Data: buf.Bytes()})

		if err := p.Hooks.Fire(hooks.EventPostArchive, &hooks.Context{Recipe: r, Build: br, Package: &pkgCopy, WorkDir: workDir}); err != nil {
			return nil, err
		}
	}

	logger.Info("archives built", "recipe", r.Name, "packages", len(packages))

	return result, nil
}

// runStage renders the stage's function body and hands it to the
// executor, mirroring the ancestor codebase's "set -e; set -x"
// preamble convention.
func (p *Pipeline) runStage(ctx context.Context, br *recipe.BuildRecipe, stage string, env map[string]string, workDir string) error {
	body, ok := br.Functions[stage]
	if !ok {
		return nil
	}

	script := "set -e\nset -x\n" + body

	status, err := p.Executor.Run(ctx, p.Image, script, env, workDir, nil)
	if err != nil {
		return err
	}

	if status.ExitCode != 0 {
		return errs.New(errs.KindBuildScript, "build script exited non-zero").
			WithContext("stage", stage).
			WithContext("exit_code", status.ExitCode).
			WithOperation("runStage")
	}

	return nil
}

// buildEnv computes the shell environment one stage invocation runs
// with. pkgName selects the per-package staging directory (spec.md
// §6: "<workdir>/<recipe>/<arch>/pkg/<name>"); the prepare/build
// stages run once per recipe and pass the recipe's own name, while
// the package stage runs once per split package and passes that
// package's name.
func buildEnv(br *recipe.BuildRecipe, pkgName, srcDir, workDir string) map[string]string {
	return map[string]string{
		"pkgname": pkgName,
		"pkgver":  br.Owner.Version,
		"pkgrel":  br.Owner.Revision,
		"srcdir":  srcDir,
		"pkgdir":  filepath.Join(workDir, "pkg", pkgName),
		"CARCH":   br.Arch,
	}
}

func checkCanceled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, errs.KindCanceled, "pipeline canceled").WithOperation("Pipeline.Run")
	}

	return nil
}
