package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePlaylist(t *testing.T) {
	db := newServiceDB(t)
	svc := NewPlaylistService(db, false)
	ctx := context.Background()

	_, err := svc.CreatePlaylist(ctx, "", "no name")
	require.Error(t, err)

	created, err := svc.CreatePlaylist(ctx, "Road Trip", "long drives")
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.False(t, created.Generated)

	got, err := svc.GetPlaylist(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Road Trip", got.Name)
	assert.Equal(t, "long drives", got.Description)
}

func TestAddSong_DuplicateIsNoOp(t *testing.T) {
	db := newServiceDB(t)
	svc := NewPlaylistService(db, false)
	ctx := context.Background()

	created, err := svc.CreatePlaylist(ctx, "Mix", "")
	require.NoError(t, err)

	song := catalogSong(0, "Rock", "Queen")
	require.NoError(t, svc.AddSong(ctx, created.ID, song))
	require.NoError(t, svc.AddSong(ctx, created.ID, song))

	got, err := svc.GetPlaylist(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, got.Songs, 1)
	assert.Equal(t, song.ID, got.Songs[0].ID)
}

func TestAddSong_MissingPlaylist(t *testing.T) {
	db := newServiceDB(t)
	svc := NewPlaylistService(db, false)

	err := svc.AddSong(context.Background(), "nope", catalogSong(0, "Rock", "Queen"))
	require.Error(t, err)

	err = svc.AddSong(context.Background(), "nope", nil)
	require.Error(t, err)
}

func TestRemoveSong(t *testing.T) {
	db := newServiceDB(t)
	svc := NewPlaylistService(db, false)
	ctx := context.Background()

	created, err := svc.CreatePlaylist(ctx, "Mix", "")
	require.NoError(t, err)

	a := catalogSong(0, "Rock", "Queen")
	b := catalogSong(1, "Pop", "Abba")
	require.NoError(t, svc.AddSong(ctx, created.ID, a))
	require.NoError(t, svc.AddSong(ctx, created.ID, b))

	require.NoError(t, svc.RemoveSong(ctx, created.ID, a.ID))

	got, err := svc.GetPlaylist(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, got.Songs, 1)
	assert.Equal(t, b.ID, got.Songs[0].ID)

	// Removing a song that is not a member leaves the playlist alone.
	require.NoError(t, svc.RemoveSong(ctx, created.ID, "ghost"))
	got, err = svc.GetPlaylist(ctx, created.ID)
	require.NoError(t, err)
	assert.Len(t, got.Songs, 1)
}

func TestDeletePlaylist(t *testing.T) {
	db := newServiceDB(t)
	svc := NewPlaylistService(db, false)
	ctx := context.Background()

	created, err := svc.CreatePlaylist(ctx, "Gone Soon", "")
	require.NoError(t, err)

	require.NoError(t, svc.DeletePlaylist(ctx, created.ID))

	got, err := svc.GetPlaylist(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	all, err := svc.GetPlaylists(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}
