package errs_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ipkrecipe/ipkrecipe/internal/errs"
)

func TestWrapPreservesCause(t *testing.T) {
	cause := errs.New(errs.KindFetch, "boom")
	wrapped := errs.Wrap(cause, errs.KindExtract, "extract failed").WithOperation("Extract")

	require.ErrorIs(t, wrapped, cause)
	require.Equal(t, cause, wrapped.Unwrap())
}

func TestOfMatchesKind(t *testing.T) {
	err := errs.New(errs.KindChecksumMismatch, "sha256 mismatch").
		WithContext("source", "foo.tar.gz")

	require.True(t, errs.Of(err, errs.KindChecksumMismatch))
	require.False(t, errs.Of(err, errs.KindFetch))
}

func TestIsComparesKindNotMessage(t *testing.T) {
	a := errs.New(errs.KindHook, "a")
	b := errs.New(errs.KindHook, "b")

	require.True(t, a.Is(b))
}
