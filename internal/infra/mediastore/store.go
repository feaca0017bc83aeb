// Package mediastore enumerates video files on the configured volumes.
package mediastore

import (
	"context"
	"fmt"
	"hash/fnv"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/osa030/vidbox/internal/domain/media"
)

// DefaultExtensions are the file extensions treated as video.
var DefaultExtensions = []string{".mp4", ".mkv", ".webm", ".mov", ".avi", ".m4v", ".3gp", ".ts"}

// Config lists the volumes to scan.
type Config struct {
	ExternalRoots []string // Scanned first
	InternalRoots []string // Scanned after the external roots
	Extensions    []string // Matched case-insensitively, with or without the dot
}

// Store is the media store backed by the local filesystem.
type Store struct {
	external   []string
	internal   []string
	extensions map[string]bool
}

// New creates a store.
func New(cfg Config) *Store {
	exts := cfg.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}

	extensions := make(map[string]bool, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		extensions[ext] = true
	}

	return &Store{
		external:   cleanRoots(cfg.ExternalRoots),
		internal:   cleanRoots(cfg.InternalRoots),
		extensions: extensions,
	}
}

// Roots returns every configured root, external first.
func (s *Store) Roots() []string {
	return append(append([]string{}, s.external...), s.internal...)
}

// IsVideoFile reports whether the path has a video extension.
func (s *Store) IsVideoFile(path string) bool {
	return s.extensions[strings.ToLower(filepath.Ext(path))]
}

// EnumerateVideoFiles lists the video files of the external volumes followed
// by those of the internal volumes. Roots that do not exist are skipped.
func (s *Store) EnumerateVideoFiles(ctx context.Context) ([]media.Record, error) {
	records := make([]media.Record, 0)

	for _, root := range s.Roots() {
		found, err := s.scanRoot(ctx, root)
		if err != nil {
			return nil, err
		}
		records = append(records, found...)
	}

	zlog.Debug().Msgf("mediastore: enumerated %d video files from %d roots", len(records), len(s.Roots()))
	return records, nil
}

func (s *Store) scanRoot(ctx context.Context, root string) ([]media.Record, error) {
	if _, err := os.Stat(root); err != nil {
		zlog.Debug().Msgf("mediastore: skipping root %s: %v", root, err)
		return nil, nil
	}

	var records []media.Record
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if errors.Is(err, fs.ErrPermission) && d != nil && d.IsDir() {
				zlog.Warn().Msgf("mediastore: skipping unreadable directory %s", path)
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() {
			if path != root && isHidden(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if isHidden(d.Name()) || !s.IsVideoFile(path) {
			return nil
		}

		record, err := newRecord(path, d)
		if err != nil {
			zlog.Warn().Msgf("mediastore: failed to stat %s: %v", path, err)
			return nil
		}
		records = append(records, record)
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to scan %s", root)
	}
	return records, nil
}

func newRecord(path string, d fs.DirEntry) (media.Record, error) {
	info, err := d.Info()
	if err != nil {
		return media.Record{}, err
	}
	dir := filepath.Dir(path)
	return media.Record{
		Path:         path,
		LastModified: info.ModTime(),
		BucketID:     BucketID(dir),
		BucketName:   filepath.Base(dir),
	}, nil
}

// BucketID returns a stable identifier for a directory.
func BucketID(dir string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(filepath.ToSlash(filepath.Clean(dir)))))
	return fmt.Sprintf("%d", int32(h.Sum32()))
}

func cleanRoots(roots []string) []string {
	cleaned := lo.FilterMap(roots, func(r string, _ int) (string, bool) {
		r = strings.TrimSpace(r)
		if r == "" {
			return "", false
		}
		return filepath.Clean(r), true
	})
	return lo.Uniq(cleaned)
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
