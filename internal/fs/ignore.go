package fs

import (
	"bufio"
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// IgnoreFile lists extra rotation ignore patterns, one per line, at the
// top of the image root.
const IgnoreFile = ".autobotignore"

// defaultIgnorePatterns are always applied regardless of config.
var defaultIgnorePatterns = []string{IgnoreFile}

type ignorePattern struct {
	glob     string
	wholeRel bool // match the whole relative path instead of the file name
}

func (p ignorePattern) match(rel string) bool {
	subject := path.Base(rel)
	if p.wholeRel {
		subject = rel
	}
	ok, _ := path.Match(p.glob, subject)
	return ok
}

// IgnoreMatcher decides which files rotation leaves in their weekly bucket.
// A pattern without '/' is matched against the file name, so ".DS_Store"
// hits at any depth. A pattern with '/' is matched against the slash
// separated path below the image root, e.g. "*/general/*/*" keeps every
// file of one channel.
type IgnoreMatcher struct {
	patterns []ignorePattern
}

// NewIgnoreMatcher creates an IgnoreMatcher from raw pattern strings.
// Blank lines and lines starting with '#' are skipped. Malformed globs
// never match; use CheckPatterns to reject them up front.
func NewIgnoreMatcher(rawPatterns []string) *IgnoreMatcher {
	m := &IgnoreMatcher{}
	for _, raw := range cleanPatterns(rawPatterns) {
		m.patterns = append(m.patterns, ignorePattern{
			glob:     raw,
			wholeRel: strings.Contains(raw, "/"),
		})
	}
	return m
}

// CheckPatterns returns an error naming the first malformed glob.
func CheckPatterns(rawPatterns []string) error {
	for _, raw := range cleanPatterns(rawPatterns) {
		if _, err := path.Match(raw, ""); err != nil {
			return fmt.Errorf("bad ignore pattern %q: %w", raw, err)
		}
	}
	return nil
}

func cleanPatterns(raw []string) []string {
	var out []string
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p == "" || strings.HasPrefix(p, "#") {
			continue
		}
		out = append(out, p)
	}
	return out
}

// LoadIgnoreMatcher combines the built-in patterns, the configured ones and
// the contents of <root>/.autobotignore when present. Malformed patterns
// are an error.
func LoadIgnoreMatcher(root string, configured []string) (*IgnoreMatcher, error) {
	fromFile, err := ParseIgnoreFile(filepath.Join(root, IgnoreFile))
	if err != nil {
		return nil, err
	}

	all := append([]string{}, defaultIgnorePatterns...)
	all = append(all, configured...)
	all = append(all, fromFile...)
	if err := CheckPatterns(all); err != nil {
		return nil, err
	}
	return NewIgnoreMatcher(all), nil
}

// Match reports whether relativePath should be left in place.
func (m *IgnoreMatcher) Match(relativePath string) bool {
	rel := filepath.ToSlash(relativePath)
	for _, p := range m.patterns {
		if p.match(rel) {
			return true
		}
	}
	return false
}

// ParseIgnoreFile reads raw patterns from path, one per line.
// A missing file yields no patterns.
func ParseIgnoreFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening ignore file: %w", err)
	}
	defer f.Close()

	var patterns []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		patterns = append(patterns, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading ignore file %s: %w", path, err)
	}
	return patterns, nil
}
