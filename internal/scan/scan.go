// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package scan discovers image files and partitions them into upload batches.
package scan

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// supportedExts lists the image extensions the processing pages accept,
// in lowercase.
var supportedExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
	".gif":  true,
	".bmp":  true,
	".tiff": true,
}

// Supported reports whether path has a supported image extension,
// case-insensitively.
func Supported(path string) bool {
	return supportedExts[strings.ToLower(filepath.Ext(path))]
}

// Images returns the supported image files directly inside dir, sorted by
// path. Extension matching is case-insensitive; subdirectories are not
// descended into. An existing but empty directory yields an empty slice.
func Images(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading input directory %s: %w", dir, err)
	}

	images := []string{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if Supported(entry.Name()) {
			images = append(images, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(images)
	return images, nil
}

// Batches splits paths into consecutive batches of at most size. The final
// batch may be short. A size of zero or less yields a single batch.
func Batches(paths []string, size int) [][]string {
	if len(paths) == 0 {
		return nil
	}
	if size <= 0 {
		return [][]string{paths}
	}

	var batches [][]string
	for start := 0; start < len(paths); start += size {
		end := start + size
		if end > len(paths) {
			end = len(paths)
		}
		batches = append(batches, paths[start:end])
	}
	return batches
}
