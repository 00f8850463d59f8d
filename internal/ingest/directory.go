package ingest

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/deckscan/deckscan/constants"
)

// DirStats summarizes one directory scan.
type DirStats struct {
	Scanned int `json:"scanned"`
	Matched int `json:"matched"`
	Hidden  int `json:"hidden"`
	Errored int `json:"errored"`
}

// ScanDir walks root and returns the deck candidates in lexical walk order.
// includeExts defaults to the allowed upload extensions; hidden entries are
// skipped when skipHidden is set. Unreadable entries are counted and the
// walk continues.
func ScanDir(root string, includeExts []string, skipHidden bool) ([]string, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}

	exts := extSet(includeExts)

	var paths []string
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		stats.Scanned++
		if walkErr != nil {
			stats.Errored++
			return nil
		}
		if skipHidden && isHidden(path) && path != root {
			stats.Hidden++
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		ext := constants.NormalizeExt(filepath.Ext(path))
		if _, ok := exts[ext]; !ok {
			return nil
		}
		stats.Matched++
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return paths, stats, err
	}
	return paths, stats, nil
}

func extSet(includeExts []string) map[string]struct{} {
	if len(includeExts) == 0 {
		return constants.AllowedExtensions
	}
	exts := make(map[string]struct{}, len(includeExts))
	for _, e := range includeExts {
		e = constants.NormalizeExt(strings.TrimSpace(e))
		if e != "" {
			exts[e] = struct{}{}
		}
	}
	return exts
}

func isHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
