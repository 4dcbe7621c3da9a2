package fetch

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mholt/archiver/v4"

	"github.com/ipkrecipe/ipkrecipe/internal/errs"
)

// ExtractStrippingCommonPrefix extracts path into destDir if it is a
// recognized archive format, stripping the leading directory path
// shared by every entry, however many levels deep (such as the
// "project-v1.2.3/" wrapper directory typical of GitHub release
// tarballs). Non-archive files are left in
// place untouched.
func ExtractStrippingCommonPrefix(path, destDir string) error {
	f, err := os.Open(path) // #nosec G304 -- path was produced by the fetch step, not user input
	if err != nil {
		return errs.Wrap(err, errs.KindExtract, "failed to open archive").
			WithContext("path", path).WithOperation("ExtractStrippingCommonPrefix")
	}
	defer f.Close()

	format, stream, err := archiver.Identify(filepath.Base(path), f)
	if err != nil {
		// Not a recognized archive: leave the fetched file as-is.
		return nil //nolint:nilerr // identify failure means "not an archive", not an error
	}

	extractor, ok := format.(archiver.Extractor)
	if !ok {
		return errs.New(errs.KindExtract, "archive format does not support extraction").
			WithContext("path", path).WithOperation("ExtractStrippingCommonPrefix")
	}

	prefix, err := commonPrefix(format, stream)
	if err != nil {
		return err
	}

	f.Close()

	f2, err := os.Open(path) // #nosec G304 -- same trusted path reopened for the real extraction pass
	if err != nil {
		return errs.Wrap(err, errs.KindExtract, "failed to reopen archive").
			WithContext("path", path).WithOperation("ExtractStrippingCommonPrefix")
	}
	defer f2.Close()

	_, stream2, err := archiver.Identify(filepath.Base(path), f2)
	if err != nil {
		return errs.Wrap(err, errs.KindExtract, "failed to re-identify archive").
			WithContext("path", path).WithOperation("ExtractStrippingCommonPrefix")
	}

	return extractor.Extract(context.Background(), stream2, func(_ context.Context, info archiver.File) error {
		return writeEntry(info, prefix, destDir)
	})
}

// commonPrefix does a dry pass over every archive entry to find the
// full leading directory path shared by all of them, however many
// levels deep (spec.md §4.3: stripping must work "even when the
// common prefix is several levels deep").
func commonPrefix(format archiver.Format, stream io.Reader) ([]string, error) {
	extractor, ok := format.(archiver.Extractor)
	if !ok {
		return nil, nil
	}

	var prefix []string

	first := true

	err := extractor.Extract(context.Background(), stream, func(_ context.Context, info archiver.File) error {
		dirs := dirComponents(info.NameInArchive)

		if first {
			prefix = dirs
			first = false

			return nil
		}

		prefix = commonComponents(prefix, dirs)

		return nil
	})
	if err != nil {
		return nil, errs.Wrap(err, errs.KindExtract, "failed to scan archive for common prefix").
			WithOperation("commonPrefix")
	}

	return prefix, nil
}

// dirComponents splits name's directory portion (everything but its
// final path element) into its slash-separated components.
func dirComponents(name string) []string {
	name = strings.TrimPrefix(filepath.ToSlash(name), "/")

	idx := strings.LastIndexByte(name, '/')
	if idx < 0 {
		return nil
	}

	return strings.Split(name[:idx], "/")
}

// commonComponents returns the longest shared leading run between a
// and b.
func commonComponents(a, b []string) []string {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return a[:i]
		}
	}

	return a[:n]
}

func writeEntry(info archiver.File, prefix []string, destDir string) error {
	name := filepath.ToSlash(info.NameInArchive)

	if len(prefix) > 0 {
		name = strings.TrimPrefix(name, strings.Join(prefix, "/")+"/")
	}

	if name == "" {
		return nil
	}

	target := filepath.Join(destDir, filepath.FromSlash(name))

	if info.IsDir() {
		return os.MkdirAll(target, 0o755) //nolint:wrapcheck // extraction target is the work directory
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return errs.Wrap(err, errs.KindExtract, "failed to create extraction directory").
			WithContext("target", target).WithOperation("writeEntry")
	}

	r, err := info.Open()
	if err != nil {
		return errs.Wrap(err, errs.KindExtract, "failed to open archive entry").
			WithContext("entry", info.NameInArchive).WithOperation("writeEntry")
	}
	defer r.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode()) // #nosec G304 -- target is derived from the controlled work directory
	if err != nil {
		return errs.Wrap(err, errs.KindExtract, "failed to create extracted file").
			WithContext("target", target).WithOperation("writeEntry")
	}
	defer out.Close()

	if _, err := io.Copy(out, r); err != nil {
		return errs.Wrap(err, errs.KindExtract, "failed to write extracted file").
			WithContext("target", target).WithOperation("writeEntry")
	}

	return nil
}
