package playlist

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/osa030/vidbox/internal/domain/media"
)

func TestPlaylist_URIs(t *testing.T) {
	tests := []struct {
		name     string
		entries  []media.Entry
		expected []string
	}{
		{
			name:     "empty playlist",
			entries:  []media.Entry{},
			expected: []string{},
		},
		{
			name: "single entry",
			entries: []media.Entry{
				{URI: "file:///a.mp4", Title: "a.mp4"},
			},
			expected: []string{"file:///a.mp4"},
		},
		{
			name: "multiple entries",
			entries: []media.Entry{
				{URI: "file:///a.mp4", Title: "a.mp4"},
				{URI: "file:///b.mkv", Title: "b.mkv"},
				{URI: "file:///c.webm", Title: "c.webm"},
			},
			expected: []string{"file:///a.mp4", "file:///b.mkv", "file:///c.webm"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.entries...)

			assert.Equal(t, tt.expected, p.URIs())
			assert.Equal(t, tt.expected, p.Labels())
			assert.Equal(t, len(tt.expected), p.Len())
		})
	}
}

func TestPlaylist_At(t *testing.T) {
	p := New(
		media.NewEntry("file:///a.MP4"),
		media.NewEntry("file:///b.mkv"),
	)

	e, ok := p.At(1)
	assert.True(t, ok)
	assert.Equal(t, "b.mkv", e.Title)

	_, ok = p.At(2)
	assert.False(t, ok)
	_, ok = p.At(-1)
	assert.False(t, ok)

	assert.True(t, p.Contains(0))
	assert.False(t, p.Contains(2))
}

func TestPlaylist_Titles(t *testing.T) {
	p := New(
		media.NewEntry("file:///a.MP4"),
		media.NewEntry("file:///b.mkv"),
	)

	assert.Equal(t, []string{"a.mp4", "b.mkv"}, p.Titles())
}

func TestPlaylist_NilIsEmpty(t *testing.T) {
	var p *Playlist

	assert.True(t, p.IsEmpty())
	assert.Equal(t, 0, p.Len())
	assert.Empty(t, p.URIs())
}

func TestPlaylist_Append(t *testing.T) {
	p := New()
	assert.True(t, p.IsEmpty())

	p.Append(media.NewEntry("file:///x.mov"))

	assert.Equal(t, 1, p.Len())
	assert.Equal(t, []string{"x.mov"}, p.Titles())
}
