package parser

import (
	"github.com/ipkrecipe/ipkrecipe/internal/errs"
	"github.com/ipkrecipe/ipkrecipe/internal/recipe"
	"github.com/ipkrecipe/ipkrecipe/internal/shellbridge"
)

// Specialize folds a Recipe's `_<arch>` suffixed overrides into a
// BuildRecipe for exactly one target architecture: a scalar override
// replaces its base value; an array override is appended to the
// base array; a function override replaces the base function of the
// same name entirely. Symbols with no arch-specific variant keep
// their base value unchanged.
func Specialize(r *recipe.Recipe, arch string) (*recipe.BuildRecipe, error) {
	br := &recipe.BuildRecipe{
		Owner:     r,
		Arch:      arch,
		Variables: make(map[string]string, len(r.Variables)),
		Arrays:    make(map[string][]string, len(r.Arrays)),
		Functions: make(map[string]string, len(r.Functions)),
	}

	for name, value := range r.Variables {
		base, symArch, ok := recipe.SplitArchSuffix(name, r.Architectures)
		if ok && symArch != arch {
			continue
		}

		if ok {
			if _, isArray := r.Arrays[base]; isArray {
				return nil, recipe.ErrSuffixCollision(base)
			}

			br.Variables[base] = value

			continue
		}

		if _, already := br.Variables[name]; !already {
			br.Variables[name] = value
		}
	}

	for name, values := range r.Arrays {
		if _, _, ok := recipe.SplitArchSuffix(name, r.Architectures); !ok {
			br.Arrays[name] = append(br.Arrays[name], values...)
		}
	}

	// Suffixed arrays are folded in a second pass so they always land
	// after their base array, whatever the map iteration order.
	for name, values := range r.Arrays {
		base, symArch, ok := recipe.SplitArchSuffix(name, r.Architectures)
		if !ok || symArch != arch {
			continue
		}

		if _, isScalar := r.Variables[base]; isScalar {
			return nil, recipe.ErrSuffixCollision(base)
		}

		br.Arrays[base] = append(br.Arrays[base], values...)
	}

	for name, body := range r.Functions {
		base, symArch, ok := recipe.SplitArchSuffix(name, r.Architectures)
		if ok && symArch != arch {
			continue
		}

		if ok {
			br.Functions[base] = body
			continue
		}

		if _, already := br.Functions[name]; !already {
			br.Functions[name] = body
		}
	}

	br.Sources = r.Sources
	br.Depends = br.Arrays["depends"]

	if br.Variables["pkgname"] == "" && r.Name != "" {
		br.Variables["pkgname"] = r.Name
	}

	if len(r.Packages) == 0 {
		return nil, errs.New(errs.KindRecipeParse, "recipe has no packages to specialize").
			WithContext("recipe", r.Name).WithContext("arch", arch).WithOperation("Specialize")
	}

	return br, nil
}

// ResolvePackages narrows a BuildRecipe to its concrete Package list.
// A package's depends and backup come from its `package_<name>`
// function when that declares them, else from its PackageSpec; a
// package with no depends of either kind takes the specialized
// recipe-level depends. PackageSpec values are used as declared:
// `_<arch>` overrides of them are not folded in.
func ResolvePackages(r *recipe.Recipe, br *recipe.BuildRecipe) []recipe.Package {
	packages := make([]recipe.Package, 0, len(r.Packages))

	for _, spec := range r.Packages {
		own := evaluatePackageFunction(br, spec.Name)

		depends := spec.Depends
		if len(depends) == 0 {
			depends = br.Arrays["depends"]
		}

		backup := spec.Backup

		version := r.Version
		section := r.Section
		description := orDefault(spec.Description, r.Description)

		if own != nil {
			version = orDefault(own.Variables["pkgver"], version)
			section = orDefault(own.Variables["section"], section)
			description = orDefault(own.Variables["pkgdesc"], description)

			if d, ok := own.Arrays["depends"]; ok {
				depends = d
			}

			if b, ok := own.Arrays["backup"]; ok {
				backup = b
			}
		}

		packages = append(packages, recipe.Package{
			Owner:       br,
			Name:        spec.Name,
			Version:     version,
			Revision:    r.Revision,
			Epoch:       r.Epoch,
			Arch:        br.Arch,
			Description: description,
			Maintainer:  r.Maintainer,
			Section:     section,
			Depends:     depends,
			Conflicts:   r.Conflicts,
			Provides:    r.Provides,
			Replaces:    r.Replaces,
			Backup:      backup,
			Scriptlets:  resolveScriptlets(br, spec.Name),
		})
	}

	return packages
}

// evaluatePackageFunction evaluates a split package's own
// `package_<name>` function body (if declared) through the shell
// bridge to recover the per-package pkgdesc/pkgver/section/depends/
// backup assignments it makes, per spec.md §4.2. It returns nil when
// the recipe declares no such function, leaving the package's fields
// at whatever splitPackages already derived.
func evaluatePackageFunction(br *recipe.BuildRecipe, pkgName string) *shellbridge.Symbols {
	body, ok := br.Functions["package_"+pkgName]
	if !ok {
		return nil
	}

	syms, err := shellbridge.Evaluate("package_"+pkgName, []byte(body))
	if err != nil {
		return nil
	}

	return syms
}

var scriptletNames = []string{
	"configure", "preinstall", "postinstall",
	"preremove", "postremove", "preupgrade", "postupgrade",
}

// resolveScriptlets looks up each maintainer lifecycle function by
// its per-package name (e.g. "postinstall_foo-doc"), falling back to
// the recipe-wide name for single-package recipes.
func resolveScriptlets(br *recipe.BuildRecipe, pkgName string) map[string]string {
	scriptlets := make(map[string]string)

	for _, hook := range scriptletNames {
		if body, ok := br.Functions[hook+"_"+sanitize(pkgName)]; ok {
			scriptlets[hook] = body
			continue
		}

		if body, ok := br.Functions[hook]; ok {
			scriptlets[hook] = body
		}
	}

	return scriptlets
}
