package shellbridge_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ipkrecipe/ipkrecipe/internal/shellbridge"
)

const sample = `
pkgname=foo
pkgver=1.0
depends=(libc libfoo)
depends_armv7=(libfoo-armv7)

build() {
	make
}

build_armv7() {
	make CROSS=armv7
}
`

func TestEvaluateCollectsScalarsArraysAndFunctions(t *testing.T) {
	syms, err := shellbridge.Evaluate("test.recipe", []byte(sample))
	require.NoError(t, err)

	require.Equal(t, "foo", syms.Variables["pkgname"])
	require.Equal(t, "1.0", syms.Variables["pkgver"])
	require.Equal(t, []string{"libc", "libfoo"}, syms.Arrays["depends"])
	require.Equal(t, []string{"libfoo-armv7"}, syms.Arrays["depends_armv7"])
	require.Contains(t, syms.Functions["build"], "make")
	require.Contains(t, syms.Functions["build_armv7"], "CROSS=armv7")
}

func TestEvaluateRejectsInvalidShell(t *testing.T) {
	_, err := shellbridge.Evaluate("bad.recipe", []byte("if [ ; then"))
	require.Error(t, err)
}
