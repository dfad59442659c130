package compression

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sergey-gru/go-cml/pkg/cml"
)

// Unzip extracts an in-memory zip archive into root and returns a
// reference for every extracted file, in archive order. Directory
// entries are skipped; file modes are not preserved.
func Unzip(data []byte, root string) ([]*cml.FileRef, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}

	var refs []*cml.FileRef
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		ref, err := cml.NewFileRef(f.Name)
		if err != nil {
			return nil, fmt.Errorf("archive member %q: %w", f.Name, err)
		}
		if err := extract(f, ref.FullPath(root)); err != nil {
			return nil, fmt.Errorf("extracting %s: %w", ref.Path, err)
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func extract(f *zip.File, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	src, err := f.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	_, err = io.Copy(out, src)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	return err
}
