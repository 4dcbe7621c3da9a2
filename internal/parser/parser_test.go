package parser_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ipkrecipe/ipkrecipe/internal/parser"
)

const sample = `
pkgname=foo
pkgver=1.2.3
pkgrel=1
pkgdesc="a test package"
section=utils
maintainer="Jane Doe <jane@example.org>"
license=(MIT)
arch=(armv7 rmall)
depends=(libc)
depends_armv7=(libfoo-armv7)
source=(https://example.org/foo-1.2.3.tar.gz)
sha256sums=(SKIP)

build() {
	make
}

build_armv7() {
	make CROSS=armv7
}

postinstall() {
	echo hi
}
`

func TestParseFileAndSpecialize(t *testing.T) {
	r, err := parser.ParseFile("foo.recipe", []byte(sample), time.Unix(0, 0))
	require.NoError(t, err)
	require.Equal(t, "foo", r.Name)
	require.Equal(t, "1.2.3", r.Version)
	require.Len(t, r.Packages, 1)

	br, err := parser.Specialize(r, "armv7")
	require.NoError(t, err)
	require.Equal(t, []string{"libc", "libfoo-armv7"}, br.Arrays["depends"])
	require.Contains(t, br.Functions["build"], "CROSS=armv7")

	packages := parser.ResolvePackages(r, br)
	require.Len(t, packages, 1)
	require.Equal(t, "foo", packages[0].Name)
	require.Contains(t, packages[0].Scriptlets["postinstall"], "echo hi")
}

func TestParseFileRejectsMissingPkgname(t *testing.T) {
	_, err := parser.ParseFile("bad.recipe", []byte("pkgver=1.0\n"), time.Unix(0, 0))
	require.Error(t, err)
}
