// Package media provides the media entities produced by enumeration.
package media

import (
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/samber/lo"
)

// Record is one row returned by the media store.
type Record struct {
	Path         string    // Absolute file path
	LastModified time.Time // Modification time of the file
	BucketID     string    // Stable ID of the containing directory
	BucketName   string    // Display name of the containing directory
}

// Entry is a playable item in the playlist.
// Entries are immutable once created.
type Entry struct {
	URI   string // file:// URI of the media
	Title string // Display title derived from the file name
}

// ID returns the media ID reported on item transitions.
func (e Entry) ID() string {
	return e.URI
}

// NormalizeExtension lowercases everything after the last dot of p.
// Paths without a dot are returned unchanged.
func NormalizeExtension(p string) string {
	i := strings.LastIndex(p, ".")
	if i < 0 {
		return p
	}
	return p[:i] + strings.ToLower(p[i:])
}

// EntryFromPath builds an entry for a local file path.
func EntryFromPath(p string) Entry {
	p = NormalizeExtension(filepath.ToSlash(p))
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	u := url.URL{Scheme: "file", Path: p}
	return Entry{
		URI:   u.String(),
		Title: path.Base(p),
	}
}

// NewEntry builds an entry from a URI, normalizing its extension.
// Strings that do not parse as URIs are treated as plain paths.
func NewEntry(uri string) Entry {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme == "" {
		return EntryFromPath(uri)
	}
	u.Path = NormalizeExtension(u.Path)
	u.RawPath = ""
	return Entry{
		URI:   u.String(),
		Title: path.Base(u.Path),
	}
}

// EntriesFromRecords converts media store records into playlist entries,
// keeping the record order.
func EntriesFromRecords(records []Record) []Entry {
	return lo.Map(records, func(r Record, _ int) Entry {
		return EntryFromPath(r.Path)
	})
}

// LocalPath returns the file path of a file:// entry.
func (e Entry) LocalPath() (string, bool) {
	u, err := url.Parse(e.URI)
	if err != nil || u.Scheme != "file" {
		return "", false
	}
	return filepath.FromSlash(u.Path), true
}

// ResolveLocalPath returns p, or the file in the same directory whose name
// differs from p only in case. Entries carry a lowercased extension, the
// file on disk may not.
func ResolveLocalPath(p string) string {
	if _, err := os.Stat(p); err == nil {
		return p
	}
	dir, base := filepath.Split(p)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return p
	}
	for _, de := range entries {
		if strings.EqualFold(de.Name(), base) {
			return filepath.Join(dir, de.Name())
		}
	}
	return p
}
