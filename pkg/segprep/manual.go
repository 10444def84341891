// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package segprep

import (
	"fmt"
	"path/filepath"
	"strings"
)

// expectedDatasetDirs are the subdirectories a correctly prepared dataset
// tree contains, used in the manual instructions as the success check.
var expectedDatasetDirs = []string{"Covid19", "MosMedPlus"}

// ShareURL returns the human-facing share link for a drive identifier.
func ShareURL(fileID string) string {
	return fmt.Sprintf("https://drive.google.com/drive/folders/%s", extractFileID(fileID))
}

// ManualInstructions renders step-by-step instructions for fetching the
// dataset archive by hand, for when every automated transport has failed.
func ManualInstructions(fileID, archiveName, datasetDir string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Automatic download failed. To fetch the datasets manually:\n")
	fmt.Fprintf(&b, "  1. Open %s in a browser\n", ShareURL(fileID))
	fmt.Fprintf(&b, "  2. Download the archive as %s\n", archiveName)
	fmt.Fprintf(&b, "  3. Extract it into %s%c\n", datasetDir, filepath.Separator)
	fmt.Fprintf(&b, "  4. Verify the directory now contains: %s\n", strings.Join(expectedDatasetDirs, ", "))
	fmt.Fprintf(&b, "The tool will pick the files up on the next run.")
	return b.String()
}
