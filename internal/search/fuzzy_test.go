package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/musiclite/musiclite/internal/config"
	"github.com/musiclite/musiclite/pkg/types"
)

type fakeCatalog struct {
	songs []*types.Song
	err   error
}

func (f *fakeCatalog) GetSongs(ctx context.Context) ([]*types.Song, error) {
	return f.songs, f.err
}

func searchConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Search.MaxResults = 100
	return cfg
}

func TestScoreSongs_TitleOutranksArtistOutranksAlbum(t *testing.T) {
	songs := []*types.Song{
		{ID: "album", Title: "Something Else", Artist: "Nobody", Album: "Queen Live"},
		{ID: "artist", Title: "Another Track", Artist: "Queen", Album: "A Night at the Opera"},
		{ID: "title", Title: "Queen of Hearts", Artist: "Nobody", Album: "Misc"},
		{ID: "miss", Title: "Unrelated", Artist: "Someone", Album: "Other"},
	}

	got := ScoreSongs(songs, "queen")

	require.Len(t, got, 3, "songs without any match are dropped")
	assert.Equal(t, "title", got[0].ID)
	assert.Equal(t, "artist", got[1].ID)
	assert.Equal(t, "album", got[2].ID)
}

func TestScoreSongs_ExactTitleBeatsSubstring(t *testing.T) {
	songs := []*types.Song{
		{ID: "long", Title: "Queen of the Winter Night"},
		{ID: "exact", Title: "Queen"},
	}

	got := ScoreSongs(songs, "queen")

	require.Len(t, got, 2)
	assert.Equal(t, "exact", got[0].ID, "exact title match gets closeness credit")
}

func TestScoreSongs_NearMissGetsLevenshteinCredit(t *testing.T) {
	songs := []*types.Song{
		{ID: "near", Title: "Bohemian"},
	}

	got := ScoreSongs(songs, "bohemian")
	require.Len(t, got, 1)

	// One typo still matches through the distance check.
	got = ScoreSongs(songs, "bohemia")
	require.Len(t, got, 1)
	assert.Equal(t, "near", got[0].ID)
}

func TestSearch_EmptyQueryReturnsNothing(t *testing.T) {
	engine := NewEngine(searchConfig(), &fakeCatalog{songs: []*types.Song{{ID: "a", Title: "A"}}})

	got, err := engine.Search(context.Background(), "", 10)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSearch_LimitApplied(t *testing.T) {
	catalog := &fakeCatalog{songs: []*types.Song{
		{ID: "a", Title: "Love Song"},
		{ID: "b", Title: "Love Story"},
		{ID: "c", Title: "Lovely Day"},
	}}
	engine := NewEngine(searchConfig(), catalog)

	got, err := engine.Search(context.Background(), "love", 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = engine.Search(context.Background(), "love", 0)
	require.NoError(t, err)
	assert.Len(t, got, 3, "non-positive limit falls back to the configured cap")
}

func TestSearch_CatalogErrorPropagates(t *testing.T) {
	engine := NewEngine(searchConfig(), &fakeCatalog{err: errors.New("db closed")})

	_, err := engine.Search(context.Background(), "anything", 10)
	require.Error(t, err)
}
