package autotune

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cdplayer/internal/bridge"
	"cdplayer/internal/logging"
)

const hierarchy = "browse"

var (
	// ErrNotFound means the catalog does not contain the configured path.
	ErrNotFound = errors.New("catalog entry not found")
	// ErrAborted means the catalog was not at the level the search expected,
	// usually because another client moved the cursor. The search is not
	// retried.
	ErrAborted = errors.New("catalog search aborted")
)

// Catalog is the browse service of the music system.
type Catalog interface {
	Browse(ctx context.Context, req bridge.BrowseRequest) (bridge.BrowseResult, error)
	Load(ctx context.Context, req bridge.LoadRequest) (bridge.Page, error)
}

// Navigator walks the catalog along a path of titles and selects the leaf on
// a zone.
type Navigator struct {
	catalog Catalog
	logger  *slog.Logger
}

// New constructs a Navigator.
func New(catalog Catalog, logger *slog.Logger) *Navigator {
	return &Navigator{catalog: catalog, logger: logging.NewComponentLogger(logger, "autotune")}
}

// Tune finds the entry named by path (for example "Internet Radio", "CD
// Player") and selects it on zone. An empty zone does nothing.
func (n *Navigator) Tune(ctx context.Context, zone string, path []string) (bridge.Item, error) {
	if zone == "" {
		return bridge.Item{}, nil
	}
	if len(path) == 0 {
		return bridge.Item{}, errors.New("empty catalog path")
	}

	res, err := n.catalog.Browse(ctx, bridge.BrowseRequest{Hierarchy: hierarchy, ZoneOrOutputID: zone, PopAll: true})
	if err != nil {
		return bridge.Item{}, fmt.Errorf("browse root: %w", err)
	}

	// Each pass descends one level, so the path length bounds the walk.
	for range path {
		if res.Action != "list" {
			return bridge.Item{}, fmt.Errorf("%w: browse returned %q", ErrAborted, res.Action)
		}
		offset := max(res.List.DisplayOffset, 0)
		page, err := n.catalog.Load(ctx, bridge.LoadRequest{Hierarchy: hierarchy, Offset: offset, SetDisplayOffset: offset})
		if err != nil {
			return bridge.Item{}, fmt.Errorf("load: %w", err)
		}

		level := page.List.Level
		if level < 0 || level >= len(path) {
			return bridge.Item{}, fmt.Errorf("%w: unexpected level %d", ErrAborted, level)
		}
		if level > 0 && page.List.Title != path[level-1] {
			return bridge.Item{}, fmt.Errorf("%w: at %q, expected %q", ErrAborted, page.List.Title, path[level-1])
		}

		item, ok := findTitle(page.Items, path[level])
		if !ok {
			n.logger.Debug("catalog entry missing",
				logging.String("title", path[level]),
				logging.Int("level", level),
				logging.Int("items_scanned", len(page.Items)),
			)
			return bridge.Item{}, fmt.Errorf("%w: %q", ErrNotFound, path[level])
		}

		res, err = n.catalog.Browse(ctx, bridge.BrowseRequest{Hierarchy: hierarchy, ZoneOrOutputID: zone, ItemKey: item.ItemKey})
		if err != nil {
			return bridge.Item{}, fmt.Errorf("browse %q: %w", item.Title, err)
		}
		if level == len(path)-1 {
			n.logger.Info("auto-tuned zone", logging.String("zone", zone), logging.String("title", item.Title))
			return item, nil
		}
	}
	return bridge.Item{}, fmt.Errorf("%w: catalog deeper than path", ErrAborted)
}

// findTitle scans the whole page; a miss is only reported after the last
// item has been compared.
func findTitle(items []bridge.Item, title string) (bridge.Item, bool) {
	for _, item := range items {
		if item.Title == title {
			return item, true
		}
	}
	return bridge.Item{}, false
}
