// Package assets gives access to the files embedded in the binary: report
// templates and the query catalog.
package assets

import (
	"embed"
	"fmt"
	"io/fs"
)

var efs *embed.FS

func GetData() *embed.FS {
	return efs
}

func UpdateData(d *embed.FS) {
	efs = d
}

// ReadFile reads an embedded file, failing when no data was registered.
func ReadFile(path string) ([]byte, error) {
	if efs == nil {
		return nil, fmt.Errorf("embedded data not initialized reading %s", path)
	}
	return efs.ReadFile(path)
}

// GetAllFilenames returns the names of all files under path in the embedded FS.
func GetAllFilenames(efs *embed.FS, path string) (files []string, err error) {
	if err := fs.WalkDir(efs, path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		files = append(files, path)

		return nil
	}); err != nil {
		return nil, err
	}

	return files, nil
}
