// Package fsutil provides atomic file writes and path/slug helpers.
// Atomic writes (tmp + fsync + rename) are the durability contract for
// every JSON artifact in the run and job trees.
package fsutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
)

// WriteFileAtomic writes data to path via a .tmp sibling, fsyncs, and renames.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "fsutil: mkdir %s", dir)
	}

	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return eris.Wrapf(err, "fsutil: open %s", tmp)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return eris.Wrapf(err, "fsutil: write %s", tmp)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return eris.Wrapf(err, "fsutil: fsync %s", tmp)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return eris.Wrapf(err, "fsutil: close %s", tmp)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return eris.Wrapf(err, "fsutil: rename %s", path)
	}
	return nil
}

// WriteJSONAtomic marshals v with indentation and writes it atomically.
func WriteJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return eris.Wrapf(err, "fsutil: marshal %s", path)
	}
	return WriteFileAtomic(path, append(data, '\n'), 0o644)
}

// ReadJSON unmarshals the JSON file at path into v.
func ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrapf(err, "fsutil: read %s", path)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return eris.Wrapf(err, "fsutil: unmarshal %s", path)
	}
	return nil
}

var (
	schemeRe   = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*://`)
	nonAlnumRe = regexp.MustCompile(`[^a-zA-Z0-9]+`)
)

// SlugURL converts a URL into a filesystem-safe slug: scheme stripped,
// non-alphanumeric runs collapsed to single underscores, 80-char cap.
func SlugURL(rawURL string) string {
	s := schemeRe.ReplaceAllString(rawURL, "")
	s = nonAlnumRe.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 80 {
		s = s[:80]
		s = strings.TrimRight(s, "_")
	}
	return s
}

// Slug converts arbitrary text into a URL-safe lowercase slug.
func Slug(text string) string {
	s := strings.ToLower(text)
	s = nonAlnumRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// RunSlug builds the canonical run key from a niche and an ISO date.
func RunSlug(niche, date string) string {
	return Slug(niche) + "-" + date
}
