// Package parser turns a shell bridge's flat symbol table into a
// typed Recipe, then specializes a Recipe for one target
// architecture into a BuildRecipe by folding `_<arch>` suffixed
// overrides into their base symbols.
package parser

import (
	"strings"
	"time"

	"github.com/ipkrecipe/ipkrecipe/internal/errs"
	"github.com/ipkrecipe/ipkrecipe/internal/recipe"
	"github.com/ipkrecipe/ipkrecipe/internal/shellbridge"
)

// ParseFile evaluates source through the shell bridge and assembles
// a Recipe from the well-known symbol names, the same mandatory/
// semantic split the ancestor PKGBUILD parser uses. The recipe's
// `timestamp` symbol (RFC 3339) becomes Recipe.Timestamp; now is used
// when the recipe declares none.
func ParseFile(name string, source []byte, now time.Time) (*recipe.Recipe, error) {
	syms, err := shellbridge.Evaluate(name, source)
	if err != nil {
		return nil, err
	}

	timestamp := now
	if declared := syms.Variables["timestamp"]; declared != "" {
		parsed, err := time.Parse(time.RFC3339, declared)
		if err != nil {
			return nil, errs.Wrap(err, errs.KindRecipeParse, "invalid timestamp").
				WithContext("recipe", name).WithContext("field", "timestamp").WithOperation("ParseFile")
		}

		timestamp = parsed
	}

	r := &recipe.Recipe{
		Name:          syms.Variables["pkgname"],
		Version:       syms.Variables["pkgver"],
		Revision:      orDefault(syms.Variables["pkgrel"], "1"),
		Epoch:         syms.Variables["epoch"],
		Description:   syms.Variables["pkgdesc"],
		Section:       syms.Variables["section"],
		Maintainer:    syms.Variables["maintainer"],
		License:       syms.Arrays["license"],
		Architectures: syms.Arrays["arch"],
		Depends:       syms.Arrays["depends"],
		MakeDepends:   syms.Arrays["makedepends"],
		OptDepends:    syms.Arrays["optdepends"],
		Conflicts:     syms.Arrays["conflicts"],
		Provides:      syms.Arrays["provides"],
		Replaces:      syms.Arrays["replaces"],
		Backup:        syms.Arrays["backup"],
		NoExtract:     syms.Arrays["noextract"],
		Variables:     syms.Variables,
		Arrays:        syms.Arrays,
		Functions:     syms.Functions,
		Timestamp:     timestamp,
	}

	r.Sources = zipSources(syms.Arrays["source"], syms.Arrays["sha256sums"])
	r.Packages = splitPackages(r, syms)

	if r.Name == "" && len(r.Packages) > 0 {
		// A split-package recipe (spec.md §4.2) declares `pkgnames`
		// instead of a scalar `pkgname`; the recipe itself still needs
		// a name for workdir/log purposes, so it borrows the first
		// split package's.
		r.Name = r.Packages[0].Name
	}

	if err := r.ValidateMandatoryItems(); err != nil {
		return nil, err
	}

	if err := r.ValidateGeneral(); err != nil {
		return nil, err
	}

	return r, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}

	return v
}

// zipSources pairs the `source` and `sha256sums` arrays by index,
// the same convention the ancestor PKGBUILD format uses. A source
// with no matching checksum entry defaults to "SKIP".
func zipSources(uris, sums []string) []recipe.Source {
	sources := make([]recipe.Source, 0, len(uris))

	for i, uri := range uris {
		checksum := "SKIP"
		if i < len(sums) && sums[i] != "" {
			checksum = sums[i]
		}

		sources = append(sources, recipe.Source{URI: uri, Checksum: checksum})
	}

	return sources
}

// splitPackages determines the package set a recipe declares. A
// `pkgnames` array means a split-package recipe, one entry per name,
// each described by its own `package_<name>` function body and any
// ad hoc `pkgdesc_<name>`/`depends_<name>`/`backup_<name>` suffixed
// globals; a scalar `pkgname` means a single package sharing the
// recipe's own fields. specialize.ResolvePackages later overrides
// these provisional fields with whatever `package_<name>` itself
// declares (spec.md §4.2: "MUST supply at least pkgdesc, pkgver, and
// section").
func splitPackages(r *recipe.Recipe, syms *shellbridge.Symbols) []recipe.PackageSpec {
	names, isSplit := syms.Arrays["pkgnames"]
	if !isSplit || len(names) == 0 {
		return []recipe.PackageSpec{{
			Name:        r.Name,
			Description: r.Description,
			Depends:     r.Depends,
			Backup:      r.Backup,
		}}
	}

	specs := make([]recipe.PackageSpec, 0, len(names))

	for _, name := range names {
		specs = append(specs, recipe.PackageSpec{
			Name:        name,
			Description: orDefault(syms.Variables["pkgdesc_"+sanitize(name)], r.Description),
			Depends:     syms.Arrays["depends_"+sanitize(name)],
			Backup:      syms.Arrays["backup_"+sanitize(name)],
		})
	}

	return specs
}

func sanitize(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}
