package orchestrate

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/Sriram-PR/specdoc/pkg/config"
	"github.com/Sriram-PR/specdoc/pkg/utils"
)

// CollectSources walks root and returns the files whose extension is included
// and whose slash-separated path relative to root matches no exclude pattern.
// Hidden directories are skipped. Paths are returned in lexical order.
func CollectSources(root string, cfg config.BatchConfig) ([]string, error) {
	if _, err := cfg.Validate(); err != nil {
		return nil, err
	}
	excludes, err := utils.CompileRegexPatterns(cfg.ExcludePatterns)
	if err != nil {
		return nil, err
	}
	include := make(map[string]bool, len(cfg.IncludeExtensions))
	for _, ext := range cfg.IncludeExtensions {
		include[ext] = true
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", utils.ErrFilesystem, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: '%s' is not a directory", utils.ErrUnsupportedSource, root)
	}

	var sources []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if path == root {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") || utils.MatchesAny(excludes, rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if !include[strings.ToLower(filepath.Ext(d.Name()))] {
			return nil
		}
		if utils.MatchesAny(excludes, rel) {
			return nil
		}
		sources = append(sources, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: walking '%s': %w", utils.ErrFilesystem, root, err)
	}
	return sources, nil
}
