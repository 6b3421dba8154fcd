package file

import (
	"os"
	"path/filepath"
	"strings"
)

// FindByExt walks root and returns all regular files with the given
// extension (case-insensitive, leading dot required, e.g. ".json").
func FindByExt(root, ext string) ([]string, error) {
	var found []string

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ext) {
			found = append(found, path)
		}
		return nil
	})

	return found, err
}
