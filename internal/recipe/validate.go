package recipe

import (
	"regexp"
	"strings"

	spdxexp "github.com/github/go-spdx/v2/spdxexp"

	"github.com/ipkrecipe/ipkrecipe/internal/errs"
)

var pkgNamePattern = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)

// ValidateMandatoryItems checks structural completeness: a name, a
// version, at least one package, and package names that match
// [a-z][a-z0-9-]* with no duplicates. It does not compare the number
// of sources with the number of checksums, nor check that every
// declared architecture can be specialized. It mirrors the two-pass split the ancestor PKGBUILD validator uses —
// one pass for presence, one for semantic correctness.
func (r *Recipe) ValidateMandatoryItems() error {
	if r.Name == "" {
		return errs.New(errs.KindRecipeParse, "missing pkgname").WithOperation("ValidateMandatoryItems")
	}

	if r.Version == "" {
		return errs.New(errs.KindRecipeParse, "missing pkgver").
			WithContext("recipe", r.Name).WithOperation("ValidateMandatoryItems")
	}

	if len(r.Packages) == 0 {
		return errs.New(errs.KindRecipeParse, "recipe declares no packages").
			WithContext("recipe", r.Name).WithOperation("ValidateMandatoryItems")
	}

	seen := make(map[string]struct{}, len(r.Packages))

	for _, pkg := range r.Packages {
		if !pkgNamePattern.MatchString(pkg.Name) {
			return errs.New(errs.KindRecipeParse, "invalid pkgname").
				WithContext("pkgname", pkg.Name).WithOperation("ValidateMandatoryItems")
		}

		if _, dup := seen[pkg.Name]; dup {
			// Open Question (b): multiple packages sharing a name is
			// rejected outright, decided in DESIGN.md.
			return errs.New(errs.KindRecipeParse, "duplicate pkgname").
				WithContext("pkgname", pkg.Name).
				WithContext("field", "pkgnames").
				WithOperation("ValidateMandatoryItems")
		}

		seen[pkg.Name] = struct{}{}
	}

	return nil
}

// ValidateGeneral checks semantic correctness of populated fields:
// every checksum is SKIP or 64 lowercase hex digits, and every license
// is a valid SPDX identifier. Source URIs, the version format and
// timestamps are not checked here.
func (r *Recipe) ValidateGeneral() error {
	for _, src := range r.Sources {
		if src.Checksum == "SKIP" {
			continue
		}

		if len(src.Checksum) != 64 || !isHex(src.Checksum) {
			return errs.New(errs.KindRecipeParse, "checksum must be a 64-char hex sha256 digest or SKIP").
				WithContext("recipe", r.Name).
				WithContext("source", src.URI).
				WithOperation("ValidateGeneral")
		}
	}

	for _, license := range r.License {
		if ok, _ := spdxexp.ValidateLicenses([]string{license}); !ok {
			return errs.New(errs.KindRecipeParse, "invalid SPDX license identifier").
				WithContext("recipe", r.Name).
				WithContext("license", license).
				WithOperation("ValidateGeneral")
		}
	}

	return nil
}

func isHex(s string) bool {
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		default:
			return false
		}
	}

	return true
}

// ErrSuffixCollision reports Open Question (a): a `_<arch>` suffixed
// key colliding with a base key of a different kind (scalar vs
// array) is a parse error rather than a silently-resolved ambiguity.
func ErrSuffixCollision(field string) error {
	return errs.New(errs.KindRecipeParse,
		"field is declared as both a scalar and an array across architecture variants").
		WithContext("field", field).WithOperation("specialize")
}

// SplitArchSuffix splits a symbol name like "depends_armv7" into its
// base name and architecture suffix, given the recipe's declared
// architecture list. It returns ok=false for a name with no matching
// suffix.
func SplitArchSuffix(name string, architectures []string) (base, arch string, ok bool) {
	for _, a := range architectures {
		suffix := "_" + a
		if strings.HasSuffix(name, suffix) {
			return strings.TrimSuffix(name, suffix), a, true
		}
	}

	return name, "", false
}
