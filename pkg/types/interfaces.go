package types

import (
	"context"
	"time"
)

// Asset is one media item as reported by the device library, before any
// enrichment. ID is stable across scans for the same item.
type Asset struct {
	ID        string
	Filename  string
	CreatedAt time.Time
}

// AssetPage is one page of a newest-first asset listing.
type AssetPage struct {
	Assets     []Asset
	NextCursor string
	HasMore    bool
}

// AssetInfo carries the per-asset details the source can provide cheaply.
// Embedded holds tag data read from the file itself, nil when unavailable.
type AssetInfo struct {
	URI      string
	Duration float64
	Filename string
	Embedded *PartialSong
}

// MediaSource abstracts the device media library. Implementations page
// newest-first; an empty cursor starts from the top.
type MediaSource interface {
	RequestPermission(ctx context.Context) error
	ListAssets(ctx context.Context, pageSize int, cursor string) (*AssetPage, error)
	AssetDetails(ctx context.Context, asset Asset) (*AssetInfo, error)
}

// MetadataLookup is the remote enrichment collaborator. Both calls are
// best-effort; callers treat failures as "this tier produced nothing".
type MetadataLookup interface {
	ExtractMetadata(ctx context.Context, filePath string) (*PartialSong, bool, error)
	Search(ctx context.Context, query string, limit int) ([]*SearchResult, error)
}

// PlaybackUpdate is one tick of device feedback.
type PlaybackUpdate struct {
	Position  float64
	IsPlaying bool
	Finished  bool
}

// PlaybackDevice is the audio output contract. Load replaces whatever is
// loaded and starts playback immediately. All methods are synchronous:
// returning nil means the device accepted the command.
type PlaybackDevice interface {
	Load(ctx context.Context, song *Song) error
	Pause() error
	Resume() error
	Stop() error
	Seek(seconds float64) error
	Unload() error
	OnUpdate(fn func(PlaybackUpdate))
	Close() error
}
