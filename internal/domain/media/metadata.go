package media

import "strings"

// Metadata describes the currently loaded media item.
type Metadata struct {
	Title       string
	MediaType   string
	Description string
	Artist      string
	Genre       string
}

// String returns a one-line summary used for logging.
func (m Metadata) String() string {
	var b strings.Builder
	b.WriteString(" title:" + m.Title)
	b.WriteString(" mediatype:" + m.MediaType)
	b.WriteString(" descr:" + m.Description)
	b.WriteString(" artist:" + m.Artist)
	b.WriteString(" genre:" + m.Genre)
	return b.String()
}
