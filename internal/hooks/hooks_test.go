package hooks_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ipkrecipe/ipkrecipe/internal/hooks"
	"github.com/ipkrecipe/ipkrecipe/internal/recipe"
)

func TestFireWithNoHandlersIsNoop(t *testing.T) {
	r := hooks.NewRegistry()
	require.NoError(t, r.Fire(hooks.EventPostBuild, nil))
}

func TestRegisteredHandlerCanMutateRecipe(t *testing.T) {
	r := hooks.NewRegistry()
	r.Register(hooks.EventPostParse, func(ctx *hooks.Context) error {
		ctx.Recipe.Packages = append(ctx.Recipe.Packages, recipe.PackageSpec{Name: "extra"})
		return nil
	})

	rec := &recipe.Recipe{Name: "foo", Packages: []recipe.PackageSpec{{Name: "foo"}}}
	require.NoError(t, r.Fire(hooks.EventPostParse, &hooks.Context{Recipe: rec}))
	require.Len(t, rec.Packages, 2)
	require.Equal(t, "extra", rec.Packages[1].Name)
}

func TestFireStopsAtFirstError(t *testing.T) {
	r := hooks.NewRegistry()

	var second bool

	r.Register(hooks.EventPostBuild, func(*hooks.Context) error { return errors.New("boom") })
	r.Register(hooks.EventPostBuild, func(*hooks.Context) error { second = true; return nil })

	err := r.Fire(hooks.EventPostBuild, &hooks.Context{})
	require.Error(t, err)
	require.False(t, second)
}

func TestLoadRejectsMissingModule(t *testing.T) {
	r := hooks.NewRegistry()
	err := r.Load("/nonexistent/hook.so")
	require.Error(t, err)
}
