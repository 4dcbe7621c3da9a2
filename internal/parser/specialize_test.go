package parser_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ipkrecipe/ipkrecipe/internal/parser"
)

const splitSample = `
pkgnames=(foo-bin foo-doc)
pkgver=1.0
pkgrel=1
pkgdesc="base description"
section=utils
maintainer="Jane Doe <jane@example.org>"
license=(MIT)
arch=(armv7 rmall)
depends=(libc)

build() {
	make
}

package_foo-bin() {
	pkgdesc="the binary"
	pkgver=1.0.1
	section=utils
	depends=(libc libfoo)
	install -D -m 755 "$srcdir"/foo "$pkgdir"/usr/bin/foo
}

package_foo-doc() {
	pkgdesc="the docs"
	section=doc
	install -D -m 644 "$srcdir"/foo.txt "$pkgdir"/usr/share/doc/foo/README
}
`

func TestParseFileSplitPackagesByPkgnames(t *testing.T) {
	r, err := parser.ParseFile("foo.recipe", []byte(splitSample), time.Unix(0, 0))
	require.NoError(t, err)
	require.Equal(t, "foo-bin", r.Name, "recipe name falls back to the first split package")
	require.Len(t, r.Packages, 2)

	br, err := parser.Specialize(r, "armv7")
	require.NoError(t, err)

	packages := parser.ResolvePackages(r, br)
	require.Len(t, packages, 2)

	byName := make(map[string]int)
	for i, pkg := range packages {
		byName[pkg.Name] = i
	}

	bin := packages[byName["foo-bin"]]
	require.Equal(t, "the binary", bin.Description)
	require.Equal(t, "1.0.1", bin.Version)
	require.Equal(t, "utils", bin.Section)
	require.Equal(t, []string{"libc", "libfoo"}, bin.Depends)

	doc := packages[byName["foo-doc"]]
	require.Equal(t, "the docs", doc.Description)
	require.Equal(t, "1.0", doc.Version, "falls back to the recipe-level pkgver when not overridden")
	require.Equal(t, "doc", doc.Section)
}
