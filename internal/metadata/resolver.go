package metadata

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/musiclite/musiclite/pkg/types"
)

// Resolver turns a bare filename into the best metadata it can find. Tiers
// run in order: remote extraction, filename patterns, remote search overlay,
// placeholder cover. Remote failures only skip their own tier, so the
// resolver always produces something.
type Resolver struct {
	lookup types.MetadataLookup
	debug  bool
}

func NewResolver(lookup types.MetadataLookup, debug bool) *Resolver {
	return &Resolver{lookup: lookup, debug: debug}
}

func (r *Resolver) debugLog(format string, args ...interface{}) {
	if !r.debug {
		return
	}
	log.Printf("[RESOLVER] "+format, args...)
}

// Resolve enriches one asset. filePath is the asset's playback uri, handed
// to the remote extractor; filename drives the pattern tier.
func (r *Resolver) Resolve(ctx context.Context, filePath, filename string) *types.PartialSong {
	if r.lookup != nil {
		extracted, ok, err := r.lookup.ExtractMetadata(ctx, filePath)
		if err != nil {
			r.debugLog("extract failed for %s: %v", filename, err)
		} else if ok && extracted != nil && extracted.Title != "" {
			if extracted.CoverArt == "" {
				extracted.CoverArt = PlaceholderCover()
			}
			return extracted
		}
	}

	partial := ParseFilename(filename)

	if r.lookup != nil {
		r.overlaySearch(ctx, partial)
	}

	if partial.CoverArt == "" {
		partial.CoverArt = PlaceholderCover()
	}

	return partial
}

// overlaySearch merges the best search hit into the partial. The title
// parsed from the filename is kept; the hit's artist wins over the
// filename-derived guess, the remaining fields only fill gaps.
func (r *Resolver) overlaySearch(ctx context.Context, partial *types.PartialSong) {
	query := partial.Title
	if partial.Artist != "" && partial.Artist != types.UnknownArtist {
		query = partial.Artist + " " + partial.Title
	}

	results, err := r.lookup.Search(ctx, query, 1)
	if err != nil {
		r.debugLog("search failed for '%s': %v", query, err)
		return
	}
	if len(results) == 0 {
		return
	}

	hit := results[0]
	if hit.Artist != "" {
		partial.Artist = hit.Artist
	}
	if partial.Album == "" && hit.Album != "" {
		partial.Album = hit.Album
	}
	if partial.Genre == "" && hit.Genre != "" {
		partial.Genre = hit.Genre
	}
	if partial.CoverArt == "" && hit.Thumbnail != "" {
		partial.CoverArt = hit.Thumbnail
	}
	if partial.ExternalID == "" {
		partial.ExternalID = hit.ID
	}
}

type filenamePattern struct {
	re          *regexp.Regexp
	titleGroup  int
	artistGroup int
}

// Pattern order matters: the dash split wins over everything else, and the
// underscore split runs before the parenthesised and ft./feat. forms.
var filenamePatterns = []filenamePattern{
	{regexp.MustCompile(`^(.+?)\s+-\s+(.+)$`), 2, 1},
	{regexp.MustCompile(`^(.+?)_(.+)$`), 2, 1},
	{regexp.MustCompile(`^(.+?)\s*\((.+?)\)\s*$`), 1, 2},
	{regexp.MustCompile(`(?i)^(.+?)\s+ft\.?\s+(.+)$`), 1, 2},
	{regexp.MustCompile(`(?i)^(.+?)\s+feat\.?\s+(.+)$`), 1, 2},
}

// ParseFilename derives title/artist from a bare filename. Unmatched names
// become {title: name without extension, artist: "Unknown Artist"}.
func ParseFilename(filename string) *types.PartialSong {
	name := strings.TrimSuffix(filename, filepath.Ext(filename))
	name = strings.TrimSpace(name)

	for _, p := range filenamePatterns {
		m := p.re.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		title := strings.TrimSpace(m[p.titleGroup])
		artist := strings.TrimSpace(m[p.artistGroup])
		if title == "" || artist == "" {
			continue
		}
		return &types.PartialSong{Title: title, Artist: artist}
	}

	title := name
	if title == "" {
		title = types.UnknownTitle
	}
	return &types.PartialSong{Title: title, Artist: types.UnknownArtist}
}

var placeholderColors = []string{
	"1DB954", "9C27B0", "3F51B5", "2196F3", "009688", "FF5722", "E91E63",
}

// PlaceholderCover returns a generated cover url with a random palette color.
func PlaceholderCover() string {
	color := placeholderColors[rand.Intn(len(placeholderColors))]
	return fmt.Sprintf("https://via.placeholder.com/400/%s/FFFFFF", color)
}
