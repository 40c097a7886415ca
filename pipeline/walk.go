package pipeline

import (
	"io/fs"
	"os"
	"path/filepath"
)

// packageExt is the only file extension Walk considers an archive,
// matching the single-file and directory-walk checks in
// original_source/dbpf-recompress.cpp's main() (lines 50-65).
const packageExt = ".package"

// Walk collects every .package file under root, or returns root itself if
// it is already a file with that extension. Grounded on the
// directory-discovery step of jonjohnsonjr/targz's main.go and
// hansbonini/tombatools, both of which walk a path and hand each regular
// file to a per-file transform.
func Walk(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		if filepath.Ext(root) != packageExt {
			return nil, nil
		}
		return []string{root}, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if filepath.Ext(path) != packageExt {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
