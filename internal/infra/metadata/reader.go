// Package metadata reads container tags of media files.
package metadata

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/dhowden/tag"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/vidbox/internal/domain/media"
)

// ErrNotLocal is returned for URIs that do not point to a local file.
var ErrNotLocal = errors.New("not a local file uri")

const defaultMediaType = "video"

// Reader extracts metadata from media files.
type Reader struct{}

// NewReader creates a metadata reader.
func NewReader() *Reader {
	return &Reader{}
}

// ReadURI reads the metadata of a file:// URI.
func (r *Reader) ReadURI(uri string) (media.Metadata, error) {
	path, ok := media.NewEntry(uri).LocalPath()
	if !ok {
		return media.Metadata{}, errors.Wrapf(ErrNotLocal, "uri %s", uri)
	}
	return r.Read(media.ResolveLocalPath(path))
}

// Read reads the metadata of a file. Files without tags get the file name
// as title.
func (r *Reader) Read(path string) (media.Metadata, error) {
	file, err := os.Open(path)
	if err != nil {
		return media.Metadata{}, errors.Wrap(err, "failed to open media file")
	}
	defer file.Close()

	return r.ReadFrom(file, path), nil
}

// ReadFrom reads metadata from an open file. source names the file for the
// fallback title.
func (r *Reader) ReadFrom(rs io.ReadSeeker, source string) media.Metadata {
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return fallback(source)
	}

	m, err := tag.ReadFrom(rs)
	if err != nil {
		if !errors.Is(err, tag.ErrNoTagsFound) {
			zlog.Debug().Msgf("metadata: failed to read tags of %s: %v", source, err)
		}
		return fallback(source)
	}

	meta := media.Metadata{
		Title:       strings.TrimSpace(m.Title()),
		MediaType:   mediaType(m.FileType()),
		Description: strings.TrimSpace(m.Comment()),
		Artist:      strings.TrimSpace(m.Artist()),
		Genre:       strings.TrimSpace(m.Genre()),
	}
	if meta.Title == "" {
		meta.Title = filepath.Base(source)
	}
	return meta
}

func mediaType(ft tag.FileType) string {
	if ft == tag.UnknownFileType {
		return defaultMediaType
	}
	return strings.ToLower(string(ft))
}

func fallback(source string) media.Metadata {
	return media.Metadata{
		Title:     filepath.Base(source),
		MediaType: defaultMediaType,
	}
}
