// Package fonts finds font files for the overlays by fuzzy name.
package fonts

import (
	"io/fs"
	"path"
	"strings"
)

// Exts are the font file extensions raylib can load.
var Exts = []string{".ttf", ".otf"}

// Scan returns the slash-separated paths of all font files in fsys.
func Scan(fsys fs.FS) ([]string, error) {
	var out []string
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && isFont(p) {
			out = append(out, p)
		}
		return nil
	})
	return out, err
}

func isFont(p string) bool {
	ext := strings.ToLower(path.Ext(p))
	for _, e := range Exts {
		if ext == e {
			return true
		}
	}
	return false
}

// normalizeForMatch lowercases and removes spaces, dashes, and underscores for fuzzy matching.
func normalizeForMatch(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, "_", "")
	return s
}

// SearchCandidates returns search terms to try in order.
// "GoogleSans-Regular.ttf" gives ["GoogleSans-Regular.ttf", "GoogleSans", "GoogleSans-Regular"].
func SearchCandidates(pathOrName string) []string {
	pathOrName = strings.TrimSpace(pathOrName)
	seen := map[string]bool{pathOrName: true}
	candidates := []string{pathOrName}
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			candidates = append(candidates, s)
		}
	}
	// First path segment
	if i := strings.IndexAny(pathOrName, "/\\"); i > 0 {
		add(pathOrName[:i])
	}
	// Family before the first hyphen
	if i := strings.Index(pathOrName, "-"); i > 0 {
		add(pathOrName[:i])
	}
	lower := strings.ToLower(pathOrName)
	for _, ext := range Exts {
		if strings.HasSuffix(lower, ext) {
			add(pathOrName[:len(pathOrName)-len(ext)])
			break
		}
	}
	return candidates
}

// Find returns the path in fsys of the font best matching search. An exact path wins; otherwise
// each search candidate is matched against normalized paths and, among several matches, a
// "regular" face is preferred.
func Find(fsys fs.FS, search string) (string, error) {
	if search == "" {
		return "", fs.ErrNotExist
	}
	if isFont(search) {
		if _, err := fs.Stat(fsys, search); err == nil {
			return search, nil
		}
	}
	list, err := Scan(fsys)
	if err != nil {
		return "", err
	}
	for _, term := range SearchCandidates(search) {
		norm := normalizeForMatch(term)
		if norm == "" {
			continue
		}
		var matches []string
		for _, p := range list {
			if strings.Contains(normalizeForMatch(p), norm) {
				matches = append(matches, p)
			}
		}
		if len(matches) == 0 {
			continue
		}
		for _, p := range matches {
			if strings.Contains(strings.ToLower(p), "regular") {
				return p, nil
			}
		}
		return matches[0], nil
	}
	return "", fs.ErrNotExist
}
