package s3

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// expandGlob expands glob patterns to file paths, supporting ** for
// recursive matching. Later patterns override earlier ones and a !
// prefix excludes a pattern, so "dump/**" "!dump/**/*.tmp" uploads a
// capture directory minus its scratch files. Directories are skipped.
func expandGlob(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string

	type patternRule struct {
		pattern string
		include bool
	}

	var rules []patternRule
	for _, p := range patterns {
		if strings.HasPrefix(p, "!") {
			rules = append(rules, patternRule{strings.TrimPrefix(p, "!"), false})
		} else {
			rules = append(rules, patternRule{p, true})
		}
	}

	candidateFiles := make(map[string]bool)
	for _, rule := range rules {
		if !rule.include {
			continue
		}
		matches, err := doublestar.FilepathGlob(rule.pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern '%s': %w", rule.pattern, err)
		}
		for _, match := range matches {
			info, err := os.Stat(match)
			if err != nil || info.IsDir() {
				continue
			}
			candidateFiles[match] = true
		}
	}

	for filePath := range candidateFiles {
		included := false
		for _, rule := range rules {
			matched, err := doublestar.PathMatch(rule.pattern, filePath)
			if err != nil {
				return nil, fmt.Errorf("invalid pattern '%s': %w", rule.pattern, err)
			}
			if matched {
				included = rule.include
			}
		}
		if included && !seen[filePath] {
			seen[filePath] = true
			files = append(files, filePath)
		}
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no files matched patterns")
	}

	sort.Strings(files)
	return files, nil
}
