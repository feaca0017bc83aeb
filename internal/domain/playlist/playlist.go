// Package playlist provides the Playlist domain entity.
package playlist

import (
	"github.com/samber/lo"

	"github.com/osa030/vidbox/internal/domain/media"
)

// Playlist is the ordered list of entries offered by the picker.
type Playlist struct {
	Entries []media.Entry // Entries in enumeration order
}

// New creates a playlist holding the given entries.
func New(entries ...media.Entry) *Playlist {
	p := &Playlist{Entries: make([]media.Entry, 0, len(entries))}
	p.Entries = append(p.Entries, entries...)
	return p
}

// Len returns the number of entries.
func (p *Playlist) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Entries)
}

// IsEmpty reports whether the playlist has no entries.
func (p *Playlist) IsEmpty() bool {
	return p.Len() == 0
}

// At returns the entry at index i.
func (p *Playlist) At(i int) (media.Entry, bool) {
	if i < 0 || i >= p.Len() {
		return media.Entry{}, false
	}
	return p.Entries[i], true
}

// Contains reports whether i is a valid index.
func (p *Playlist) Contains(i int) bool {
	return i >= 0 && i < p.Len()
}

// Append adds entries to the end of the playlist.
func (p *Playlist) Append(entries ...media.Entry) {
	p.Entries = append(p.Entries, entries...)
}

// URIs returns the URI of every entry.
func (p *Playlist) URIs() []string {
	if p == nil {
		return []string{}
	}
	return lo.Map(p.Entries, func(e media.Entry, _ int) string {
		return e.URI
	})
}

// Titles returns the display title of every entry.
func (p *Playlist) Titles() []string {
	if p == nil {
		return []string{}
	}
	return lo.Map(p.Entries, func(e media.Entry, _ int) string {
		return e.Title
	})
}

// Labels returns the strings shown in the picker, one per entry.
// The picker lists the full URIs.
func (p *Playlist) Labels() []string {
	return p.URIs()
}
