package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// VersionFileName is the sidecar file holding the store's on-disk schema
// version: UTF-8 text containing a single decimal number, written by the
// node next to (or inside) the store directory.
const VersionFileName = ".store-version"

// SupportedStoreVersions lists the on-disk versions this build can read.
var SupportedStoreVersions = []uint32{8, 9}

// VersionDetection is the best-effort result of store version detection.
type VersionDetection struct {
	Version           *uint32  `json:"version"`
	Supported         *bool    `json:"supported"`
	SupportedVersions []uint32 `json:"supported_versions"`
	Source            string   `json:"source,omitempty"`
	Error             string   `json:"error,omitempty"`
}

// DetectStoreVersion detects the on-disk schema version for a store path.
// It checks the parent directory first (the canonical layout puts the
// version file next to the store directory), then the store directory
// itself. Detection never fails hard; problems are reported in the result.
func DetectStoreVersion(storePath string) VersionDetection {
	det := VersionDetection{SupportedVersions: SupportedStoreVersions}

	candidates := []string{
		filepath.Join(filepath.Dir(storePath), VersionFileName),
		filepath.Join(storePath, VersionFileName),
	}

	for _, path := range candidates {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		det.Source = path

		if info.IsDir() {
			det.Error = "version file exists but is not a regular file"
			return det
		}

		content, err := os.ReadFile(path)
		if err != nil {
			det.Error = fmt.Sprintf("failed to read version file: %v", err)
			return det
		}

		trimmed := strings.TrimSpace(string(content))
		parsed, err := strconv.ParseUint(trimmed, 10, 32)
		if err != nil {
			// A version file that exists but cannot be parsed is surfaced,
			// not skipped in favor of other candidates.
			det.Error = fmt.Sprintf("invalid version content %q: %v", trimmed, err)
			return det
		}

		version := uint32(parsed)
		supported := false
		for _, v := range SupportedStoreVersions {
			if v == version {
				supported = true
				break
			}
		}
		det.Version = &version
		det.Supported = &supported
		return det
	}

	return det
}
