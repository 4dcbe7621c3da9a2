package recipe_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ipkrecipe/ipkrecipe/internal/errs"
	"github.com/ipkrecipe/ipkrecipe/internal/recipe"
)

func baseRecipe() *recipe.Recipe {
	return &recipe.Recipe{
		Name:          "foo",
		Version:       "1.0",
		Architectures: []string{"armv7", "rmall"},
		License:       []string{"MIT"},
		Sources: []recipe.Source{
			{URI: "https://example.org/foo.tar.gz", Checksum: "SKIP"},
		},
		Packages: []recipe.PackageSpec{{Name: "foo"}},
	}
}

func TestValidateMandatoryItemsRequiresName(t *testing.T) {
	r := baseRecipe()
	r.Name = ""

	err := r.ValidateMandatoryItems()
	require.Error(t, err)
	require.True(t, errs.Of(err, errs.KindRecipeParse))
}

func TestValidateMandatoryItemsRejectsDuplicatePackages(t *testing.T) {
	r := baseRecipe()
	r.Packages = append(r.Packages, recipe.PackageSpec{Name: "foo"})

	err := r.ValidateMandatoryItems()
	require.Error(t, err)
}

func TestValidateGeneralRejectsBadChecksum(t *testing.T) {
	r := baseRecipe()
	r.Sources[0].Checksum = "not-hex"

	err := r.ValidateGeneral()
	require.Error(t, err)
}

func TestValidateGeneralAcceptsSkip(t *testing.T) {
	r := baseRecipe()
	require.NoError(t, r.ValidateGeneral())
	require.NoError(t, r.ValidateMandatoryItems())
}

func TestSplitArchSuffix(t *testing.T) {
	base, arch, ok := recipe.SplitArchSuffix("depends_armv7", []string{"armv7", "rmall"})
	require.True(t, ok)
	require.Equal(t, "depends", base)
	require.Equal(t, "armv7", arch)

	_, _, ok = recipe.SplitArchSuffix("depends", []string{"armv7", "rmall"})
	require.False(t, ok)
}

func TestPackageVersionString(t *testing.T) {
	p := recipe.Package{Version: "1.0", Revision: "2"}
	require.Equal(t, "1.0-2", p.VersionString())

	p.Epoch = "1"
	require.Equal(t, "1:1.0-2", p.VersionString())
}
