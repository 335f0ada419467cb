package scanner

import (
	"runtime"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// IgnoreSet holds the ignore-pattern list from Settings and decides whether
// a path segment prunes traversal. A directory is pruned if any path
// segment matches an entry exactly; a trailing "/" on an entry restricts
// the match to directory segments. Matching is case-sensitive on Unix and
// case-insensitive on filesystems that are themselves case-insensitive
// (darwin, windows) — this mirrors the teacher codebase's own gitignore
// matcher, simplified to the spec's any-depth segment semantics instead of
// full gitignore precedence/negation rules.
type IgnoreSet struct {
	entries    []ignoreEntry
	foldCase   bool
}

type ignoreEntry struct {
	text      string // without trailing slash
	dirOnly   bool
	hasGlob   bool
}

// NewIgnoreSet compiles a list of raw pattern strings (as stored in
// Settings.IgnorePatterns) into a matcher.
func NewIgnoreSet(patterns []string) *IgnoreSet {
	set := &IgnoreSet{
		foldCase: runtime.GOOS == "darwin" || runtime.GOOS == "windows",
	}
	for _, p := range patterns {
		if p == "" {
			continue
		}
		e := ignoreEntry{text: p}
		if strings.HasSuffix(e.text, "/") {
			e.dirOnly = true
			e.text = strings.TrimSuffix(e.text, "/")
		}
		e.hasGlob = strings.ContainsAny(e.text, "*?[")
		if set.foldCase {
			e.text = strings.ToLower(e.text)
		}
		set.entries = append(set.entries, e)
	}
	return set
}

// MatchSegment reports whether a single path segment (a directory or file
// name, not a full path) matches an ignore entry. isDir tells the matcher
// whether the segment names a directory, so dirOnly entries only prune
// directories.
func (s *IgnoreSet) MatchSegment(segment string, isDir bool) bool {
	cmp := segment
	if s.foldCase {
		cmp = strings.ToLower(cmp)
	}
	for _, e := range s.entries {
		if e.dirOnly && !isDir {
			continue
		}
		if e.hasGlob {
			if ok, _ := doublestar.Match(e.text, cmp); ok {
				return true
			}
			continue
		}
		if e.text == cmp {
			return true
		}
	}
	return false
}

// MatchPath reports whether any segment of a relative path (forward-slash
// or OS-separated; both are accepted) matches the ignore set. Used by
// callers that already have a full relative path rather than a single
// segment in hand.
func (s *IgnoreSet) MatchPath(relPath string) bool {
	relPath = strings.ReplaceAll(relPath, "\\", "/")
	parts := strings.Split(relPath, "/")
	for i, part := range parts {
		if part == "" {
			continue
		}
		// Every segment except the last is necessarily a directory.
		isDir := i < len(parts)-1
		if s.MatchSegment(part, isDir) {
			return true
		}
	}
	return false
}
