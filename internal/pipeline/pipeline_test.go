package pipeline_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ipkrecipe/ipkrecipe/internal/executor"
	"github.com/ipkrecipe/ipkrecipe/internal/fetch"
	"github.com/ipkrecipe/ipkrecipe/internal/hooks"
	"github.com/ipkrecipe/ipkrecipe/internal/pipeline"
)

const recipeSource = `
pkgname=foo
pkgver=1.0
pkgrel=1
pkgdesc="a test package"
section=utils
maintainer="Jane Doe <jane@example.org>"
license=(MIT)
arch=(armv7)
depends=(libc)

prepare() {
	:
}

build() {
	:
}

package() {
	install -D -m 755 "$srcdir"/foo "$pkgdir"/usr/bin/foo
}
`

func findArtifact(t *testing.T, result *pipeline.Result, name string) pipeline.Artifact {
	t.Helper()

	for _, a := range result.Artifacts {
		if a.Package.Name == name {
			return a
		}
	}

	t.Fatalf("no artifact for package %q", name)

	return pipeline.Artifact{}
}

func TestPipelineRunProducesArchive(t *testing.T) {
	workDir := t.TempDir()

	p := &pipeline.Pipeline{
		Fetcher:  fetch.NewDefaultFetcher(),
		Executor: stagingExecutor{},
	}

	result, err := p.Run(context.Background(), "foo.recipe", []byte(recipeSource), "armv7", workDir)
	require.NoError(t, err)
	require.Len(t, result.Artifacts, 1)

	archive := findArtifact(t, result, "foo")
	require.NotEmpty(t, archive.Data)
	require.Equal(t, "!<arch>\n", string(archive.Data[:8]))
}

// stagingExecutor is a minimal Executor test double that creates the
// package() function's expected output on disk directly, since the
// sample recipes' shell bodies are trivial no-ops/install one-liners
// we assert on structurally rather than by running a real shell. It
// reads the staging directory out of env["pkgdir"], exactly as the
// real executor's shell environment would provide it, so a regression
// in how that path is computed shows up here too.
type stagingExecutor struct{}

func (stagingExecutor) Run(_ context.Context, _ string, _ string, env map[string]string, _ string, _ []executor.Mount) (executor.Status, error) {
	dir := filepath.Join(env["pkgdir"], "usr", "bin")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return executor.Status{}, err
	}

	if err := os.WriteFile(filepath.Join(dir, "foo"), []byte("hi"), 0o644); err != nil {
		return executor.Status{}, err
	}

	return executor.Status{ExitCode: 0}, nil
}

const splitRecipeSource = `
pkgnames=(foo-bin foo-doc)
pkgver=1.0
pkgrel=1
pkgdesc="base description"
section=utils
maintainer="Jane Doe <jane@example.org>"
license=(MIT)
arch=(armv7)

prepare() {
	:
}

build() {
	:
}

package_foo-bin() {
	pkgdesc="the binary"
	section=utils
	install -D -m 755 "$srcdir"/foo "$pkgdir"/usr/bin/foo
}

package_foo-doc() {
	pkgdesc="the docs"
	section=doc
	install -D -m 644 "$srcdir"/foo.txt "$pkgdir"/usr/share/doc/foo/README
}
`

func TestPipelineRunFansOutSplitPackages(t *testing.T) {
	workDir := t.TempDir()

	p := &pipeline.Pipeline{
		Fetcher:  fetch.NewDefaultFetcher(),
		Executor: splitStagingExecutor{},
	}

	result, err := p.Run(context.Background(), "foo.recipe", []byte(splitRecipeSource), "armv7", workDir)
	require.NoError(t, err)
	require.Len(t, result.Artifacts, 2)

	bin := findArtifact(t, result, "foo-bin")
	require.Equal(t, "the binary", bin.Package.Description)
	require.Equal(t, "utils", bin.Package.Section)

	doc := findArtifact(t, result, "foo-doc")
	require.Equal(t, "the docs", doc.Package.Description)
	require.Equal(t, "doc", doc.Package.Section)
}

// splitStagingExecutor stages a distinct file per package name so
// each split package's pkgdir is exercised independently.
type splitStagingExecutor struct{}

func (splitStagingExecutor) Run(_ context.Context, _ string, _ string, env map[string]string, _ string, _ []executor.Mount) (executor.Status, error) {
	dir := filepath.Join(env["pkgdir"], "usr")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return executor.Status{}, err
	}

	if err := os.WriteFile(filepath.Join(dir, env["pkgname"]), []byte("hi"), 0o644); err != nil {
		return executor.Status{}, err
	}

	return executor.Status{ExitCode: 0}, nil
}

func TestPipelineHookAppendsPackage(t *testing.T) {
	workDir := t.TempDir()

	registry := hooks.NewRegistry()
	registry.Register(hooks.EventPostParse, func(ctx *hooks.Context) error {
		ctx.Recipe.Packages = append(ctx.Recipe.Packages, ctx.Recipe.Packages[0])
		ctx.Recipe.Packages[len(ctx.Recipe.Packages)-1].Name = "foo-extra"

		return nil
	})

	p := &pipeline.Pipeline{
		Fetcher:  fetch.NewDefaultFetcher(),
		Executor: stagingExecutor{},
		Hooks:    registry,
	}

	result, err := p.Run(context.Background(), "foo.recipe", []byte(recipeSource), "armv7", workDir)
	require.NoError(t, err)
	require.Len(t, result.Artifacts, 2)

	findArtifact(t, result, "foo")
	findArtifact(t, result, "foo-extra")
}
