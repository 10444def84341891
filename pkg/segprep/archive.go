// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package segprep

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// validateArchive checks that the file at path parses as a zip container.
// An HTML error page saved under the zip name fails here, before any
// extraction is attempted.
func validateArchive(path string) error {
	r, err := zip.OpenReader(path)
	if err != nil {
		return &InvalidArchiveError{Path: path, Err: err}
	}
	return r.Close()
}

// extractArchive unpacks every entry of the zip at src into destDir.
// Entries escaping destDir are rejected.
func extractArchive(src, destDir string) error {
	r, err := zip.OpenReader(src)
	if err != nil {
		return &InvalidArchiveError{Path: src, Err: err}
	}
	defer r.Close()

	destAbs, err := filepath.Abs(destDir)
	if err != nil {
		return err
	}

	for _, f := range r.File {
		target := filepath.Join(destAbs, filepath.FromSlash(f.Name))
		if !strings.HasPrefix(target, destAbs+string(os.PathSeparator)) && target != destAbs {
			return fmt.Errorf("archive entry %q escapes destination", f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		if err := extractEntry(f, target); err != nil {
			return fmt.Errorf("extract %s: %w", f.Name, err)
		}
	}
	return nil
}

func extractEntry(f *zip.File, target string) error {
	in, err := f.Open()
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode().Perm()|0o200)
	if err != nil {
		return err
	}

	_, cerr := io.Copy(out, in)
	if closeErr := out.Close(); cerr == nil {
		cerr = closeErr
	}
	return cerr
}

// topLevelEntries lists the immediate children of dir, sorted, as a sanity
// check after extraction.
func topLevelEntries(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}
