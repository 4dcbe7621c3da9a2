// Package ar provides the deterministic tar-entry and ar-member
// header builders shared by the ipk archive writer: every field that
// would otherwise vary run to run (timestamp, ownership, entry
// order) is pinned here in one place.
package ar

import (
	"archive/tar"
	"sort"
	"time"

	blakesmithar "github.com/blakesmith/ar"
)

// Entry is one file (or directory) to place inside a tar member,
// already read into memory (ipk payloads are small embedded-device
// packages, so this trades a little memory for a much simpler
// deterministic writer).
type Entry struct {
	Name  string
	Mode  int64
	Data  []byte
	IsDir bool
}

// SortEntries returns entries sorted lexicographically by name, the
// fixed iteration order SPEC_FULL.md §4.6 requires.
func SortEntries(entries []Entry) []Entry {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	return sorted
}

// TarHeader builds a deterministic tar.Header for e: fixed mtime,
// root ownership, and no uname/gname (matching spec.md §4.6 exactly,
// a stricter pin than the ancestor codebase's "root"/"root" names).
// A directory entry (e.IsDir) carries no data and uses tar.TypeDir.
func TarHeader(e Entry, at time.Time) *tar.Header {
	typeflag := byte(tar.TypeReg)
	size := int64(len(e.Data))

	if e.IsDir {
		typeflag = tar.TypeDir
		size = 0
	}

	return &tar.Header{
		Name:     e.Name,
		Mode:     e.Mode,
		Size:     size,
		ModTime:  at,
		Typeflag: typeflag,
		Uid:      0,
		Gid:      0,
		Uname:    "",
		Gname:    "",
	}
}

// Header builds a deterministic ar.Header for a top-level ipk
// member (control.tar.gz, data.tar.gz, debian-binary).
func Header(name string, size int64, at time.Time) *blakesmithar.Header {
	return &blakesmithar.Header{
		Name:    name,
		Size:    size,
		Mode:    0o100644,
		ModTime: at,
		Uid:     0,
		Gid:     0,
	}
}
