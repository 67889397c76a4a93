package types

import (
	"time"
)

// SongSource identifies where a song's audio comes from.
type SongSource string

const (
	SourceLocal  SongSource = "local"
	SourceRemote SongSource = "remote"
	SourceOther  SongSource = "other"
)

const (
	UnknownTitle  = "Unknown Title"
	UnknownArtist = "Unknown Artist"
	UnknownAlbum  = "Unknown Album"
	UnknownGenre  = "Unknown"
)

type Song struct {
	ID       string  `json:"id" db:"id"`
	Title    string  `json:"title" db:"title"`
	Artist   string  `json:"artist" db:"artist"`
	Album    string  `json:"album" db:"album"`
	Genre    string  `json:"genre" db:"genre"`
	Duration float64 `json:"duration" db:"duration"`
	CoverArt string  `json:"coverArt" db:"cover_art"`

	URI      string     `json:"uri" db:"uri"`
	LocalURI string     `json:"localUri" db:"local_uri"`
	Source   SongSource `json:"source" db:"source"`

	ExternalID   string     `json:"externalId,omitempty" db:"external_id"`
	DownloadedAt *time.Time `json:"downloadDate,omitempty" db:"downloaded_at"`
}

// Playable reports whether the song has any audio source at all. A song
// with neither URI is a data-quality defect, not something the player can
// recover from at runtime.
func (s *Song) Playable() bool {
	return s != nil && (s.URI != "" || s.LocalURI != "")
}

// PlaybackURI returns the preferred source for playback, favoring the
// on-device copy.
func (s *Song) PlaybackURI() string {
	if s.LocalURI != "" {
		return s.LocalURI
	}
	return s.URI
}

// PartialSong is the enrichment result for one asset: whatever fields the
// resolver managed to fill. A cached PartialSong may be sparse or empty;
// its mere presence means the asset was already resolved once.
type PartialSong struct {
	Title      string  `json:"title,omitempty"`
	Artist     string  `json:"artist,omitempty"`
	Album      string  `json:"album,omitempty"`
	Genre      string  `json:"genre,omitempty"`
	Duration   float64 `json:"duration,omitempty"`
	CoverArt   string  `json:"coverArt,omitempty"`
	ExternalID string  `json:"externalId,omitempty"`
}

type Playlist struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	CoverArt    string    `json:"coverArt" db:"cover_art"`
	Songs       []*Song   `json:"songs" db:"-"`
	Generated   bool      `json:"isGenerated" db:"generated"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

type PlayHistoryEntry struct {
	ID       int64     `json:"-" db:"id"`
	SongID   string    `json:"songId" db:"song_id"`
	Title    string    `json:"title" db:"title"`
	Artist   string    `json:"artist" db:"artist"`
	Genre    string    `json:"genre,omitempty" db:"genre"`
	PlayedAt time.Time `json:"timestamp" db:"played_at"`
}

// ScanState is the scan bookkeeping persisted alongside the catalog.
// LastScanPath is only a cheap "most recent item" hint, never a
// correctness guarantee.
type ScanState struct {
	LastScan     time.Time `db:"last_scan"`
	LastScanPath string    `db:"last_scan_path"`
}

// RepeatMode controls what happens when the queue runs out.
type RepeatMode string

const (
	RepeatOff RepeatMode = "off"
	RepeatAll RepeatMode = "all"
	RepeatOne RepeatMode = "one"
)

// Valid reports whether the value is one of the three known modes. Persisted
// settings may carry garbage or a zero value from an older schema.
func (m RepeatMode) Valid() bool {
	switch m {
	case RepeatOff, RepeatAll, RepeatOne:
		return true
	}
	return false
}

// Next cycles off -> all -> one -> off.
func (m RepeatMode) Next() RepeatMode {
	switch m {
	case RepeatOff:
		return RepeatAll
	case RepeatAll:
		return RepeatOne
	default:
		return RepeatOff
	}
}

// PlayerSettings holds the only playback state that survives a restart.
// Everything else (current song, queue, progress) resets on cold start.
type PlayerSettings struct {
	RepeatMode  RepeatMode `json:"repeatMode"`
	ShuffleMode bool       `json:"shuffleMode"`
}

type SearchResult struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Artist    string  `json:"artist"`
	Album     string  `json:"album"`
	Genre     string  `json:"genre"`
	Thumbnail string  `json:"thumbnail"`
	Duration  float64 `json:"duration"`
}
