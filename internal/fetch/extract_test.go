package fetch_test

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ipkrecipe/ipkrecipe/internal/fetch"
)

func TestExtractStripsMultiLevelCommonPrefix(t *testing.T) {
	archive := buildTarGzEntries(t, map[string]string{
		"project-1.2.3/a/b/one.txt": "one",
		"project-1.2.3/a/b/two.txt": "two",
	})

	path := filepath.Join(t.TempDir(), "project-1.2.3.tar.gz")
	require.NoError(t, os.WriteFile(path, archive, 0o644))

	destDir := t.TempDir()
	require.NoError(t, fetch.ExtractStrippingCommonPrefix(path, destDir))

	got, err := os.ReadFile(filepath.Join(destDir, "one.txt"))
	require.NoError(t, err)
	require.Equal(t, "one", string(got))

	got, err = os.ReadFile(filepath.Join(destDir, "two.txt"))
	require.NoError(t, err)
	require.Equal(t, "two", string(got))

	_, err = os.Stat(filepath.Join(destDir, "project-1.2.3"))
	require.True(t, os.IsNotExist(err), "the full multi-level wrapper must be stripped, not just its first segment")
}

func TestExtractLeavesNoCommonPrefixUntouched(t *testing.T) {
	archive := buildTarGzEntries(t, map[string]string{
		"top.txt":       "top",
		"nested/in.txt": "in",
	})

	path := filepath.Join(t.TempDir(), "mixed.tar.gz")
	require.NoError(t, os.WriteFile(path, archive, 0o644))

	destDir := t.TempDir()
	require.NoError(t, fetch.ExtractStrippingCommonPrefix(path, destDir))

	_, err := os.Stat(filepath.Join(destDir, "top.txt"))
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(destDir, "nested", "in.txt"))
	require.NoError(t, err)
}

func buildTarGzEntries(t *testing.T, files map[string]string) []byte {
	t.Helper()

	var tarBuf bytes.Buffer

	tw := tar.NewWriter(&tarBuf)
	for name, contents := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{Name: name, Size: int64(len(contents)), Mode: 0o644}))
		_, err := tw.Write([]byte(contents))
		require.NoError(t, err)
	}

	require.NoError(t, tw.Close())

	var gzBuf bytes.Buffer

	gw := gzip.NewWriter(&gzBuf)
	_, err := gw.Write(tarBuf.Bytes())
	require.NoError(t, err)
	require.NoError(t, gw.Close())

	return gzBuf.Bytes()
}
