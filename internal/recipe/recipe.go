// Package recipe defines the typed data model a shell recipe is
// parsed into: a Recipe (the raw, architecture-generic declaration),
// a BuildRecipe (one architecture's specialized view of it), and the
// Package(s) it ultimately produces.
package recipe

import "time"

// Source is one fetchable input a recipe's build depends on.
type Source struct {
	// URI is the http(s)/ftp URL or local path to fetch. A VCS scheme
	// is not supported by this core (see DESIGN.md).
	URI string
	// Checksum is a lowercase hex SHA-256 digest, or the literal
	// string "SKIP" to bypass verification.
	Checksum string
}

// Recipe is the architecture-generic result of parsing a recipe file:
// every scalar/array symbol and function body the shell bridge
// collected, still carrying any `_<arch>` suffixed overrides
// unresolved.
type Recipe struct {
	Name         string
	Version      string
	Revision     string
	Epoch        string
	Description  string
	Section      string
	Maintainer   string
	License      []string
	Architectures []string
	Sources      []Source
	Depends      []string
	MakeDepends  []string
	OptDepends   []string
	Conflicts    []string
	Provides     []string
	Replaces     []string
	Backup       []string
	// NoExtract lists the basenames of declared sources that must be
	// left as fetched, never auto-extracted, even when they match a
	// recognized archive format.
	NoExtract []string

	// Variables holds every scalar symbol the shell bridge found,
	// including `_<arch>` suffixed overrides, keyed by their raw
	// name (e.g. "pkgver", "pkgver_armv7").
	Variables map[string]string
	// Arrays holds every array/associative-array symbol, same
	// suffix convention as Variables.
	Arrays map[string][]string
	// Functions holds every shell function body, keyed by name
	// ("prepare", "build", "package", "build_armv7", ...).
	Functions map[string]string

	// Packages lists the split-package declarations this recipe
	// produces; a single-package recipe has exactly one entry whose
	// Name equals Name above.
	Packages []PackageSpec

	// Timestamp is the instant build output is pinned to for
	// reproducibility (see internal/clock).
	Timestamp time.Time
}

// PackageSpec is one split package a recipe declares, before
// architecture specialization is folded in.
type PackageSpec struct {
	Name        string
	Description string
	Depends     []string
	Backup      []string
}

// BuildRecipe is a Recipe specialized for exactly one target
// architecture: every `_<arch>` suffixed symbol has been folded into
// its base name per the rules in SPEC_FULL.md §4.2.
type BuildRecipe struct {
	// Owner is a non-owning back-reference to the Recipe this was
	// specialized from. It is set once at construction and never
	// reassigned.
	Owner *Recipe
	Arch  string

	Variables map[string]string
	Arrays    map[string][]string
	Functions map[string]string
	Sources   []Source
	Depends   []string
}

// Package is one concrete, buildable artifact: a BuildRecipe narrowed
// to a single split package.
type Package struct {
	// Owner is a non-owning back-reference to the BuildRecipe this
	// package was produced from.
	Owner *BuildRecipe

	Name        string
	Version     string
	Revision    string
	Epoch       string
	Arch        string
	Description string
	Maintainer  string
	Section     string
	Depends     []string
	Conflicts   []string
	Provides    []string
	Replaces    []string
	Backup      []string

	// Files is the list of staged filesystem paths (relative to the
	// package root) this package installs, populated after the
	// package phase runs.
	Files []string

	// Scriptlets maps each of the seven maintainer lifecycle hooks
	// (configure, preinstall, postinstall, preremove, postremove,
	// preupgrade, postupgrade) to its shell body, if declared.
	Scriptlets map[string]string
}

// VersionString renders the opkg-style "version-revision" (or
// "epoch:version-revision" when an epoch is set) used in control
// files and archive filenames.
func (p Package) VersionString() string {
	if p.Epoch != "" {
		return p.Epoch + ":" + p.Version + "-" + p.Revision
	}

	return p.Version + "-" + p.Revision
}
