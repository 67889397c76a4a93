package services

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/musiclite/musiclite/pkg/types"
)

// PlaylistStore is the persistence surface for user playlists.
type PlaylistStore interface {
	GetPlaylists(ctx context.Context) ([]*types.Playlist, error)
	GetPlaylist(ctx context.Context, id string) (*types.Playlist, error)
	SavePlaylist(ctx context.Context, playlist *types.Playlist) error
	DeletePlaylist(ctx context.Context, id string) error
}

// PlaylistService manages user playlists. Generated playlists flow through
// the recommendation service instead.
type PlaylistService struct {
	store PlaylistStore
	debug bool
}

func NewPlaylistService(store PlaylistStore, debug bool) *PlaylistService {
	return &PlaylistService{store: store, debug: debug}
}

func (s *PlaylistService) debugLog(format string, args ...interface{}) {
	if !s.debug {
		return
	}
	log.Printf("[PLAYLIST] "+format, args...)
}

func (s *PlaylistService) CreatePlaylist(ctx context.Context, name, description string) (*types.Playlist, error) {
	if name == "" {
		return nil, fmt.Errorf("playlist name cannot be empty")
	}

	playlist := &types.Playlist{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
	}

	if err := s.store.SavePlaylist(ctx, playlist); err != nil {
		return nil, fmt.Errorf("create playlist: %w", err)
	}

	s.debugLog("Created playlist: %s", name)
	return playlist, nil
}

func (s *PlaylistService) DeletePlaylist(ctx context.Context, id string) error {
	if err := s.store.DeletePlaylist(ctx, id); err != nil {
		return fmt.Errorf("delete playlist: %w", err)
	}
	s.debugLog("Deleted playlist: %s", id)
	return nil
}

func (s *PlaylistService) GetPlaylists(ctx context.Context) ([]*types.Playlist, error) {
	return s.store.GetPlaylists(ctx)
}

func (s *PlaylistService) GetPlaylist(ctx context.Context, id string) (*types.Playlist, error) {
	return s.store.GetPlaylist(ctx, id)
}

// AddSong appends a song to the playlist. Adding a song that is already a
// member is a no-op.
func (s *PlaylistService) AddSong(ctx context.Context, playlistID string, song *types.Song) error {
	if song == nil {
		return fmt.Errorf("song cannot be nil")
	}

	playlist, err := s.store.GetPlaylist(ctx, playlistID)
	if err != nil {
		return fmt.Errorf("get playlist: %w", err)
	}
	if playlist == nil {
		return fmt.Errorf("playlist %s not found", playlistID)
	}

	for _, member := range playlist.Songs {
		if member.ID == song.ID {
			s.debugLog("Song %s already in playlist %s", song.ID, playlistID)
			return nil
		}
	}

	playlist.Songs = append(playlist.Songs, song)

	if err := s.store.SavePlaylist(ctx, playlist); err != nil {
		return fmt.Errorf("save playlist: %w", err)
	}

	s.debugLog("Added %s to playlist %s", song.Title, playlist.Name)
	return nil
}

func (s *PlaylistService) RemoveSong(ctx context.Context, playlistID, songID string) error {
	playlist, err := s.store.GetPlaylist(ctx, playlistID)
	if err != nil {
		return fmt.Errorf("get playlist: %w", err)
	}
	if playlist == nil {
		return fmt.Errorf("playlist %s not found", playlistID)
	}

	filtered := playlist.Songs[:0]
	for _, member := range playlist.Songs {
		if member.ID != songID {
			filtered = append(filtered, member)
		}
	}
	playlist.Songs = filtered

	if err := s.store.SavePlaylist(ctx, playlist); err != nil {
		return fmt.Errorf("save playlist: %w", err)
	}

	s.debugLog("Removed %s from playlist %s", songID, playlist.Name)
	return nil
}
