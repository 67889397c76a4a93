package services

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/musiclite/musiclite/internal/config"
	"github.com/musiclite/musiclite/internal/storage"
	"github.com/musiclite/musiclite/pkg/types"
)

func newServiceDB(t *testing.T) *storage.Database {
	t.Helper()

	cfg := &config.Config{}
	cfg.Storage.DatabasePath = filepath.Join(t.TempDir(), "test.db")

	db, err := storage.NewDatabase(cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("close db: %v", err)
		}
	})
	return db
}

func catalogSong(i int, genre, artist string) *types.Song {
	return &types.Song{
		ID:     fmt.Sprintf("song-%02d", i),
		Title:  fmt.Sprintf("Title %02d", i),
		Artist: artist,
		Genre:  genre,
		URI:    fmt.Sprintf("/music/song-%02d.mp3", i),
		Source: types.SourceLocal,
	}
}

// seedCatalog stores n songs cycling through the given genres.
func seedCatalog(t *testing.T, db *storage.Database, n int, genres []string) []*types.Song {
	t.Helper()

	songs := make([]*types.Song, n)
	for i := 0; i < n; i++ {
		genre := genres[i%len(genres)]
		songs[i] = catalogSong(i, genre, genre+" Artist")
	}
	require.NoError(t, db.ReplaceCatalog(context.Background(), songs, types.ScanState{LastScan: time.Now()}))
	return songs
}

func playTimes(t *testing.T, recs *RecommendationService, song *types.Song, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, recs.TrackPlay(context.Background(), song))
	}
}

func TestTrackPlay_RecordsHistory(t *testing.T) {
	db := newServiceDB(t)
	recs := NewRecommendationService(db, false)
	ctx := context.Background()

	song := catalogSong(0, "Rock", "Queen")
	require.NoError(t, recs.TrackPlay(ctx, song))
	require.NoError(t, recs.TrackPlay(ctx, nil), "nil song is a no-op")

	count, err := recs.PlayCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	entries, err := db.GetPlayHistory(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "song-00", entries[0].SongID)
	assert.Equal(t, "Rock", entries[0].Genre)
}

func TestMostPlayed_OrdersByPlayCount(t *testing.T) {
	db := newServiceDB(t)
	recs := NewRecommendationService(db, false)
	ctx := context.Background()

	songs := seedCatalog(t, db, 3, []string{"Rock"})
	playTimes(t, recs, songs[2], 3)
	playTimes(t, recs, songs[0], 1)

	got, err := recs.MostPlayed(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 2, "unplayed songs are excluded")
	assert.Equal(t, songs[2].ID, got[0].ID)
	assert.Equal(t, songs[0].ID, got[1].ID)

	limited, err := recs.MostPlayed(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestFavoriteGenres_RanksAndSkipsUnknown(t *testing.T) {
	db := newServiceDB(t)
	recs := NewRecommendationService(db, false)
	ctx := context.Background()

	playTimes(t, recs, catalogSong(0, "Rock", "A"), 3)
	playTimes(t, recs, catalogSong(1, "Jazz", "B"), 2)
	playTimes(t, recs, catalogSong(2, "Pop", "C"), 2)
	playTimes(t, recs, catalogSong(3, types.UnknownGenre, "D"), 5)
	playTimes(t, recs, catalogSong(4, "", "E"), 5)

	genres, err := recs.FavoriteGenres(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Rock", "Jazz", "Pop"}, genres, "ties break alphabetically, unknowns are skipped")

	top, err := recs.FavoriteGenres(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"Rock", "Jazz"}, top)
}

func TestFavoriteArtists_SkipsUnknownArtist(t *testing.T) {
	db := newServiceDB(t)
	recs := NewRecommendationService(db, false)
	ctx := context.Background()

	playTimes(t, recs, catalogSong(0, "Rock", "Queen"), 2)
	playTimes(t, recs, catalogSong(1, "Rock", types.UnknownArtist), 5)

	artists, err := recs.FavoriteArtists(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Queen"}, artists)
}

func TestGenerateDailyMixes_NotEnoughData(t *testing.T) {
	db := newServiceDB(t)
	recs := NewRecommendationService(db, false)
	ctx := context.Background()

	existing := &types.Playlist{ID: "gen-old", Name: "Daily Mix 1", Generated: true}
	require.NoError(t, db.ReplaceGeneratedPlaylists(ctx, []*types.Playlist{existing}))

	songs := seedCatalog(t, db, 5, []string{"Rock"})
	playTimes(t, recs, songs[0], 3)

	mixes, err := recs.GenerateDailyMixes(ctx)
	require.NoError(t, err)
	assert.Nil(t, mixes)

	kept, err := db.GetPlaylist(ctx, "gen-old")
	require.NoError(t, err)
	assert.NotNil(t, kept, "too little data must not wipe the stored mixes")
}

func TestGenerateDailyMixes_BuildsAndPersistsTopGenreMixes(t *testing.T) {
	db := newServiceDB(t)
	recs := NewRecommendationService(db, false)
	ctx := context.Background()

	songs := seedCatalog(t, db, 24, []string{"Rock", "Pop", "Jazz", "Folk"})
	playTimes(t, recs, songs[0], 10) // Rock
	playTimes(t, recs, songs[1], 6)  // Pop
	playTimes(t, recs, songs[2], 4)  // Jazz

	mixes, err := recs.GenerateDailyMixes(ctx)
	require.NoError(t, err)
	require.Len(t, mixes, 3)

	for i, mix := range mixes {
		assert.Equal(t, fmt.Sprintf("Daily Mix %d", i+1), mix.Name)
		assert.True(t, mix.Generated)
		assert.Len(t, mix.Songs, 10, "mixes are padded up to size from the catalog")
		assert.NotEmpty(t, mix.CoverArt)
	}
	assert.Contains(t, mixes[0].Description, "Rock")
	assert.Contains(t, mixes[1].Description, "Pop")
	assert.Contains(t, mixes[2].Description, "Jazz")

	stored, err := db.GetPlaylists(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, 3)

	// Regeneration replaces the previous batch instead of piling up.
	_, err = recs.GenerateDailyMixes(ctx)
	require.NoError(t, err)

	stored, err = db.GetPlaylists(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, 3)
}

func TestGenerateRecommendedPlaylist_ArtistHitCountsDouble(t *testing.T) {
	db := newServiceDB(t)
	recs := NewRecommendationService(db, false)
	ctx := context.Background()

	catalog := []*types.Song{
		catalogSong(0, "Rock", "Queen"),
		catalogSong(1, "Rock", "Other"),
		catalogSong(2, "Jazz", "Other"),
	}
	require.NoError(t, db.ReplaceCatalog(ctx, catalog, types.ScanState{LastScan: time.Now()}))

	// One play of a Rock song by Queen: artist weighs double the genre.
	playTimes(t, recs, catalog[0], 1)

	playlist, err := recs.GenerateRecommendedPlaylist(ctx, "For You", 2)
	require.NoError(t, err)
	require.NotNil(t, playlist)
	assert.Equal(t, "For You", playlist.Name)
	assert.True(t, playlist.Generated)
	require.Len(t, playlist.Songs, 2)
	assert.Equal(t, "song-00", playlist.Songs[0].ID, "artist and genre hit ranks first")
	assert.Equal(t, "song-01", playlist.Songs[1].ID, "genre-only hit ranks second")
}
