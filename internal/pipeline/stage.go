package pipeline

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ipkrecipe/ipkrecipe/internal/errs"
	"github.com/ipkrecipe/ipkrecipe/internal/ipk"
)

// stageFiles walks the package's staging root (the directory the
// package() function populates, $pkgdir, which is <workDir>/pkg/<pkgname>) and
// reads every regular file into an ipk.File, relative to that root.
func stageFiles(root string) ([]ipk.File, error) {
	var files []ipk.File

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == root {
				return nil
			}

			return err
		}

		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		data, err := os.ReadFile(path) // #nosec G304 -- path is derived from the controlled staging root
		if err != nil {
			return err
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		files = append(files, ipk.File{Path: rel, Mode: int64(info.Mode().Perm()), Data: data})

		return nil
	})
	if err != nil {
		return nil, errs.Wrap(err, errs.KindArchiveWrite, "failed to walk package staging root").
			WithContext("root", root).WithOperation("stageFiles")
	}

	return files, nil
}
