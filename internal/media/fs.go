package media

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dhowden/tag"
	"github.com/gopxl/beep/mp3"

	"github.com/musiclite/musiclite/pkg/types"
)

var audioExtensions = map[string]bool{
	".mp3":  true,
	".m4a":  true,
	".flac": true,
	".ogg":  true,
	".wav":  true,
}

// IsAudioFile reports whether the path has a supported audio extension.
func IsAudioFile(path string) bool {
	return audioExtensions[strings.ToLower(filepath.Ext(path))]
}

// FSSource exposes a music directory as a device media library. Assets are
// listed newest-first by modification time; the asset id is the file path.
type FSSource struct {
	root  string
	debug bool

	mu     sync.Mutex
	listed []types.Asset
}

func NewFSSource(root string, debug bool) *FSSource {
	return &FSSource{root: root, debug: debug}
}

func (s *FSSource) debugLog(format string, args ...interface{}) {
	if !s.debug {
		return
	}
	log.Printf("[MEDIA] "+format, args...)
}

// RequestPermission checks that the music directory is readable. A missing
// or unreadable directory maps to ErrPermissionDenied.
func (s *FSSource) RequestPermission(ctx context.Context) error {
	info, err := os.Stat(s.root)
	if err != nil {
		s.debugLog("stat %s failed: %v", s.root, err)
		return fmt.Errorf("%w: %s", ErrPermissionDenied, s.root)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrPermissionDenied, s.root)
	}
	if _, err := os.ReadDir(s.root); err != nil {
		return fmt.Errorf("%w: %s", ErrPermissionDenied, s.root)
	}
	return nil
}

// ListAssets pages through the directory newest-first. An empty cursor
// rewalks the tree; subsequent cursors page the snapshot taken then.
func (s *FSSource) ListAssets(ctx context.Context, pageSize int, cursor string) (*types.AssetPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	offset := 0
	if cursor == "" {
		assets, err := s.walk(ctx)
		if err != nil {
			return nil, err
		}
		s.listed = assets
	} else {
		parsed, err := strconv.Atoi(cursor)
		if err != nil {
			return nil, fmt.Errorf("invalid cursor %q: %w", cursor, err)
		}
		offset = parsed
	}

	if pageSize <= 0 {
		pageSize = 100
	}

	end := offset + pageSize
	if end > len(s.listed) {
		end = len(s.listed)
	}
	if offset > len(s.listed) {
		offset = len(s.listed)
	}

	page := &types.AssetPage{
		Assets:  s.listed[offset:end],
		HasMore: end < len(s.listed),
	}
	if page.HasMore {
		page.NextCursor = strconv.Itoa(end)
	}

	s.debugLog("ListAssets offset=%d returned=%d hasMore=%v", offset, len(page.Assets), page.HasMore)
	return page, nil
}

func (s *FSSource) walk(ctx context.Context) ([]types.Asset, error) {
	type entry struct {
		asset   types.Asset
		modTime time.Time
	}

	var entries []entry
	err := filepath.WalkDir(s.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			s.debugLog("walk error at %s: %v", path, err)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || !IsAudioFile(path) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			s.debugLog("stat %s failed: %v", path, err)
			return nil
		}

		entries = append(entries, entry{
			asset: types.Asset{
				ID:        path,
				Filename:  filepath.Base(path),
				CreatedAt: info.ModTime(),
			},
			modTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		if os.IsPermission(err) {
			return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, s.root)
		}
		return nil, fmt.Errorf("walk music dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].modTime.After(entries[j].modTime)
	})

	assets := make([]types.Asset, len(entries))
	for i, e := range entries {
		assets[i] = e.asset
	}
	return assets, nil
}

// AssetDetails stats the file, probes its duration, and reads its embedded
// tags. Tag and probe errors are tolerated; many files carry neither.
func (s *FSSource) AssetDetails(ctx context.Context, asset types.Asset) (*types.AssetInfo, error) {
	if _, err := os.Stat(asset.ID); err != nil {
		return nil, fmt.Errorf("stat asset %s: %w", asset.ID, err)
	}

	info := &types.AssetInfo{
		URI:      asset.ID,
		Filename: asset.Filename,
	}

	info.Duration = s.readDuration(asset.ID)
	info.Embedded = s.readTags(asset.ID)

	return info, nil
}

// readDuration decodes the stream header to compute the track length. Only
// mp3 is probed; other formats report 0 and the resolver's value stands.
func (s *FSSource) readDuration(path string) float64 {
	if strings.ToLower(filepath.Ext(path)) != ".mp3" {
		return 0
	}

	f, err := os.Open(path)
	if err != nil {
		s.debugLog("open %s failed: %v", path, err)
		return 0
	}

	streamer, format, err := mp3.Decode(f)
	if err != nil {
		s.debugLog("no decodable audio in %s: %v", path, err)
		if closeErr := f.Close(); closeErr != nil {
			log.Printf("Failed to close file: %v", closeErr)
		}
		return 0
	}
	defer func() {
		if closeErr := streamer.Close(); closeErr != nil {
			log.Printf("Failed to close streamer: %v", closeErr)
		}
	}()

	n := streamer.Len()
	if n <= 0 {
		return 0
	}
	return format.SampleRate.D(n).Seconds()
}

func (s *FSSource) readTags(path string) *types.PartialSong {
	f, err := os.Open(path)
	if err != nil {
		s.debugLog("open %s failed: %v", path, err)
		return nil
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			log.Printf("Failed to close file: %v", closeErr)
		}
	}()

	meta, err := tag.ReadFrom(f)
	if err != nil {
		s.debugLog("no readable tags in %s: %v", path, err)
		return nil
	}

	partial := &types.PartialSong{
		Title:  strings.TrimSpace(meta.Title()),
		Artist: strings.TrimSpace(meta.Artist()),
		Album:  strings.TrimSpace(meta.Album()),
		Genre:  strings.TrimSpace(meta.Genre()),
	}

	if partial.Title == "" && partial.Artist == "" && partial.Album == "" && partial.Genre == "" {
		return nil
	}
	return partial
}
