// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package archive unpacks the zip archives the processing pages serve when
// more than one file is downloaded at once.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Unzip extracts every regular file in the archive at zipPath into destDir
// and returns the extracted paths, sorted. The site's archives are flat, so
// entries are written under their base name only; an entry whose name
// resolves to no usable base name is rejected. Directories are skipped.
func Unzip(zipPath, destDir string) ([]string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("opening archive %s: %w", zipPath, err)
	}
	defer r.Close()

	var extracted []string
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}

		name := filepath.Base(filepath.FromSlash(f.Name))
		if name == "." || name == ".." || name == string(filepath.Separator) || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("archive %s contains unusable entry name %q", zipPath, f.Name)
		}

		dest := filepath.Join(destDir, name)
		if err := extractFile(f, dest); err != nil {
			return nil, fmt.Errorf("extracting %s from %s: %w", f.Name, zipPath, err)
		}
		extracted = append(extracted, dest)
	}

	sort.Strings(extracted)
	return extracted, nil
}

func extractFile(f *zip.File, dest string) error {
	src, err := f.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}

	_, copyErr := io.Copy(out, src)
	closeErr := out.Close()
	if copyErr != nil {
		os.Remove(dest)
		return copyErr
	}
	if closeErr != nil {
		os.Remove(dest)
		return closeErr
	}
	return nil
}
