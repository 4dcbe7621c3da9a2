// Package ipk builds deterministic Debian-style .ipk archives: a
// BSD ar container of exactly three members (debian-binary,
// control.tar.gz, data.tar.gz), consumed by Opkg.
package ipk

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/template"
	"time"

	blakesmithar "github.com/blakesmith/ar"

	arx "github.com/ipkrecipe/ipkrecipe/internal/ar"
	"github.com/ipkrecipe/ipkrecipe/internal/errs"
	"github.com/ipkrecipe/ipkrecipe/internal/recipe"
)

const binaryVersion = "2.0\n"

// File is one staged payload file this package installs.
type File struct {
	Path string // path relative to the install root, e.g. "usr/bin/foo"
	Mode int64
	Data []byte
}

// Build renders pkg into a complete .ipk archive and writes it to w.
// at pins the timestamp of every tar entry, and the outer ar member
// headers carry a zero mtime, making the output byte-for-byte
// reproducible given the same inputs.
func Build(w io.Writer, pkg recipe.Package, files []File, at time.Time) error {
	control, err := controlTarGz(pkg, files, at)
	if err != nil {
		return err
	}

	data, err := dataTarGz(files, at)
	if err != nil {
		return err
	}

	writer := blakesmithar.NewWriter(w)
	if err := writer.WriteGlobalHeader(); err != nil {
		return errs.Wrap(err, errs.KindArchiveWrite, "failed to write ar global header").
			WithOperation("Build")
	}

	members := []struct {
		name string
		data []byte
	}{
		{"debian-binary", []byte(binaryVersion)},
		{"control.tar.gz", control},
		{"data.tar.gz", data},
	}

	for _, m := range members {
		header := arx.Header(m.name, int64(len(m.data)), time.Unix(0, 0))
		if err := writer.WriteHeader(header); err != nil {
			return errs.Wrap(err, errs.KindArchiveWrite, "failed to write ar member header").
				WithContext("member", m.name).WithOperation("Build")
		}

		if _, err := writer.Write(m.data); err != nil {
			return errs.Wrap(err, errs.KindArchiveWrite, "failed to write ar member data").
				WithContext("member", m.name).WithOperation("Build")
		}
	}

	return nil
}

// dataTarGz tars every staged file under its install path and gzips
// the result with a fully zeroed gzip header, so the compressed
// bytes themselves are reproducible (not just the tar payload).
func dataTarGz(files []File, at time.Time) ([]byte, error) {
	entries := make([]arx.Entry, 0, len(files))
	for _, f := range files {
		entries = append(entries, arx.Entry{Name: "./" + strings.TrimPrefix(f.Path, "/"), Mode: f.Mode, Data: f.Data})
	}

	return tarGz(arx.SortEntries(entries), at)
}

// controlTarGz renders the control file, maintainer scriptlets, and
// conffiles list into the control member.
func controlTarGz(pkg recipe.Package, files []File, at time.Time) ([]byte, error) {
	control, err := renderControl(pkg, files)
	if err != nil {
		return nil, err
	}

	entries := []arx.Entry{
		{Name: "./", Mode: 0o755, IsDir: true},
		{Name: "./control", Mode: 0o644, Data: control},
	}

	if len(pkg.Backup) > 0 {
		entries = append(entries, arx.Entry{
			Name: "./conffiles",
			Mode: 0o644,
			Data: []byte(strings.Join(normalizeConffiles(pkg.Backup), "\n") + "\n"),
		})
	}

	memberNames := map[string]string{
		"preinstall": "preinst", "postinstall": "postinst",
		"preremove": "prerm", "postremove": "postrm",
	}

	for _, name := range []string{"configure", "preinstall", "postinstall", "preremove", "postremove", "preupgrade", "postupgrade"} {
		body, ok := pkg.Scriptlets[name]
		if !ok {
			continue
		}

		member := name
		if opkgName, ok := memberNames[name]; ok {
			member = opkgName
		}

		entries = append(entries, arx.Entry{
			Name: "./" + member,
			Mode: 0o755,
			Data: []byte("#!/bin/sh\nset -e\n" + body + "\n"),
		})
	}

	return tarGz(arx.SortEntries(entries), at)
}

func normalizeConffiles(backup []string) []string {
	out := make([]string, len(backup))
	for i, b := range backup {
		if !strings.HasPrefix(b, "/") {
			b = "/" + b
		}

		out[i] = b
	}

	sort.Strings(out)

	return out
}

func tarGz(entries []arx.Entry, at time.Time) ([]byte, error) {
	var tarBuf bytes.Buffer

	tw := tar.NewWriter(&tarBuf)

	for _, e := range entries {
		header := arx.TarHeader(e, at)
		if err := tw.WriteHeader(header); err != nil {
			return nil, errs.Wrap(err, errs.KindArchiveWrite, "failed to write tar header").
				WithContext("entry", e.Name).WithOperation("tarGz")
		}

		if _, err := tw.Write(e.Data); err != nil {
			return nil, errs.Wrap(err, errs.KindArchiveWrite, "failed to write tar entry").
				WithContext("entry", e.Name).WithOperation("tarGz")
		}
	}

	if err := tw.Close(); err != nil {
		return nil, errs.Wrap(err, errs.KindArchiveWrite, "failed to close tar writer").WithOperation("tarGz")
	}

	var gzBuf bytes.Buffer

	gw, _ := gzip.NewWriterLevel(&gzBuf, gzip.BestCompression)
	gw.Header = gzip.Header{} // zeroed ModTime/Name/Comment for byte-determinism

	if _, err := gw.Write(tarBuf.Bytes()); err != nil {
		return nil, errs.Wrap(err, errs.KindArchiveWrite, "failed to gzip tar payload").WithOperation("tarGz")
	}

	if err := gw.Close(); err != nil {
		return nil, errs.Wrap(err, errs.KindArchiveWrite, "failed to close gzip writer").WithOperation("tarGz")
	}

	return gzBuf.Bytes(), nil
}

const controlTemplate = `Package: {{.Name}}
Version: {{.Version}}
Section: {{.Section}}
Architecture: {{.Arch}}
Maintainer: {{.Maintainer}}
{{- if .Depends}}
Depends: {{join .Depends}}
{{- end}}
{{- if .Provides}}
Provides: {{join .Provides}}
{{- end}}
{{- if .Conflicts}}
Conflicts: {{join .Conflicts}}
{{- end}}
{{- if .Replaces}}
Replaces: {{join .Replaces}}
{{- end}}
Installed-Size: {{.InstalledSize}}
Description: {{.Description}}
`

type controlView struct {
	recipe.Package
	InstalledSize int64
}

// renderControl fills the fixed-key-order control file template,
// matching the ancestor codebase's text/template-with-custom-funcs
// approach.
func renderControl(pkg recipe.Package, files []File) ([]byte, error) {
	funcs := template.FuncMap{
		"join": func(items []string) string { return strings.Join(items, ", ") },
	}

	tmpl, err := template.New("control").Funcs(funcs).Parse(controlTemplate)
	if err != nil {
		return nil, errs.Wrap(err, errs.KindArchiveWrite, "failed to parse control template").
			WithOperation("renderControl")
	}

	var size int64
	for _, f := range files {
		size += int64(len(f.Data))
	}

	view := controlView{Package: pkg, InstalledSize: size / 1024}
	view.Version = pkg.VersionString()

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, view); err != nil {
		return nil, errs.Wrap(err, errs.KindArchiveWrite, "failed to render control file").
			WithOperation("renderControl")
	}

	return buf.Bytes(), nil
}

// FileName renders the standard ipk artifact filename for pkg.
func FileName(pkg recipe.Package) string {
	return fmt.Sprintf("%s_%s_%s.ipk", pkg.Name, pkg.VersionString(), pkg.Arch)
}
