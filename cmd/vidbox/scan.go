package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/vidbox/internal/domain/media"
	"github.com/osa030/vidbox/internal/infra/config"
	"github.com/osa030/vidbox/internal/infra/mediastore"
	"github.com/osa030/vidbox/internal/infra/metadata"
)

// scan prints the videos the player would queue, in queue order.
func scan(cfg *config.Config, withMetadata bool) error {
	ctx := context.Background()
	if timeout := cfg.ScanTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	store := mediastore.New(cfg.MediaStoreConfig())
	records, err := store.EnumerateVideoFiles(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to enumerate videos")
	}

	reader := metadata.NewReader()
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tBUCKET\tURI\tTITLE")
	for i, entry := range media.EntriesFromRecords(records) {
		title := ""
		if withMetadata {
			meta, err := reader.ReadURI(entry.URI)
			if err != nil {
				zlog.Warn().Msgf("scan: failed to read metadata: uri=%s err=%v", entry.URI, err)
			} else {
				title = meta.Title
			}
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i, records[i].BucketName, entry.URI, title)
	}
	if err := w.Flush(); err != nil {
		return errors.Wrap(err, "failed to write output")
	}

	fmt.Printf("\n%d videos in %d roots\n", len(records), len(store.Roots()))
	return nil
}
