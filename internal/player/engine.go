package player

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/musiclite/musiclite/internal/handlers"
	"github.com/musiclite/musiclite/pkg/types"
)

// ErrNoPlayableSource is returned when a song carries neither a device uri
// nor a local file. Loading it would leave the device in limbo.
var ErrNoPlayableSource = errors.New("song has no playable source")

// SettingsStore persists the repeat/shuffle flags. Nothing else about the
// session survives a restart.
type SettingsStore interface {
	GetPlayerSettings(ctx context.Context) (types.PlayerSettings, error)
	SavePlayerSettings(ctx context.Context, settings types.PlayerSettings) error
}

// Engine is the single global playback session. Every transition asks the
// device first and mutates state only after the device acknowledged, so a
// failed command leaves the session exactly where it was.
type Engine struct {
	device   types.PlaybackDevice
	settings SettingsStore
	bus      *handlers.EventBus
	debug    bool

	mu        sync.Mutex
	current   *types.Song
	queue     []*types.Song
	playing   bool
	progress  float64
	duration  float64
	repeat    types.RepeatMode
	shuffle   bool
	minimized bool

	// generation advances on every successful load and on every
	// seek-restart; finishedGen records the last generation whose finished
	// signal was consumed. The device re-arms its end-of-stream callback
	// when a finished track is seeked, so each completion is a new
	// generation and only same-completion duplicates are dropped.
	generation  uint64
	finishedGen uint64
}

func NewEngine(device types.PlaybackDevice, settings SettingsStore, bus *handlers.EventBus, debug bool) *Engine {
	e := &Engine{
		device:   device,
		settings: settings,
		bus:      bus,
		repeat:   types.RepeatOff,
		debug:    debug,
	}

	if settings != nil {
		if saved, err := settings.GetPlayerSettings(context.Background()); err != nil {
			log.Printf("[PLAYER] Failed to load settings: %v", err)
		} else {
			if saved.RepeatMode.Valid() {
				e.repeat = saved.RepeatMode
			}
			e.shuffle = saved.ShuffleMode
		}
	}

	device.OnUpdate(e.handleUpdate)

	return e
}

func (e *Engine) debugLog(format string, args ...interface{}) {
	if !e.debug {
		return
	}
	log.Printf("[PLAYER] "+format, args...)
}

// SetCurrentSong replaces the session's track. A nil song tears the session
// down to idle.
func (e *Engine) SetCurrentSong(ctx context.Context, song *types.Song) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if song == nil {
		if err := e.device.Stop(); err != nil {
			e.debugLog("Stop on clear failed: %v", err)
		}
		if err := e.device.Unload(); err != nil {
			e.debugLog("Unload on clear failed: %v", err)
		}
		e.current = nil
		e.playing = false
		e.progress = 0
		e.duration = 0
		return nil
	}

	return e.loadLocked(ctx, song, e.queue)
}

// loadLocked loads a song and commits the session state only on device ack.
// Caller holds the mutex.
func (e *Engine) loadLocked(ctx context.Context, song *types.Song, rest []*types.Song) error {
	if !song.Playable() {
		return fmt.Errorf("%w: %s", ErrNoPlayableSource, song.ID)
	}

	if err := e.device.Load(ctx, song); err != nil {
		return fmt.Errorf("load %s: %w", song.ID, err)
	}

	e.current = song
	e.queue = rest
	e.playing = true
	e.progress = 0
	e.duration = song.Duration
	e.minimized = false
	e.generation++

	e.debugLog("Now playing: %s - %s", song.Artist, song.Title)

	if e.bus != nil {
		e.bus.PublishSongStarted(song)
	}

	return nil
}

// PlayNext advances the queue. With an empty queue the repeat mode decides:
// one replays the current track, all leaves replenishment to the caller,
// off pauses on the current track.
func (e *Engine) PlayNext(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.queue) == 0 {
		switch e.repeat {
		case types.RepeatOne:
			if e.current == nil {
				return nil
			}
			if err := e.device.Seek(0); err != nil {
				return fmt.Errorf("replay seek: %w", err)
			}
			e.rearmFinishedLocked()
			e.progress = 0
			e.playing = true
			return nil
		case types.RepeatAll:
			// Queue replenishment is the caller's job.
			return nil
		default:
			if e.current != nil {
				if err := e.device.Pause(); err != nil {
					e.debugLog("Pause at queue end failed: %v", err)
				}
			}
			e.playing = false
			return nil
		}
	}

	next := e.queue[0]
	return e.loadLocked(ctx, next, e.queue[1:])
}

// PlayPrevious restarts the current track. The session keeps no backward
// history.
func (e *Engine) PlayPrevious(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil {
		return nil
	}

	if err := e.device.Seek(0); err != nil {
		return fmt.Errorf("restart seek: %w", err)
	}
	e.rearmFinishedLocked()
	e.progress = 0
	return nil
}

// rearmFinishedLocked opens a new completion window after a seek restarted a
// track. Caller holds the mutex.
func (e *Engine) rearmFinishedLocked() {
	e.generation++
}

func (e *Engine) TogglePlay() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil {
		return nil
	}

	if e.playing {
		if err := e.device.Pause(); err != nil {
			return fmt.Errorf("pause: %w", err)
		}
		e.playing = false
	} else {
		if err := e.device.Resume(); err != nil {
			return fmt.Errorf("resume: %w", err)
		}
		e.playing = true
	}

	return nil
}

// SetProgress handles a user scrub.
func (e *Engine) SetProgress(seconds float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil {
		return nil
	}

	if err := e.device.Seek(seconds); err != nil {
		return fmt.Errorf("seek: %w", err)
	}
	e.rearmFinishedLocked()
	e.progress = seconds
	return nil
}

func (e *Engine) ToggleShuffle() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.shuffle = !e.shuffle
	e.persistSettingsLocked()
	return e.shuffle
}

func (e *Engine) ToggleRepeat() types.RepeatMode {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.repeat = e.repeat.Next()
	e.persistSettingsLocked()
	return e.repeat
}

func (e *Engine) persistSettingsLocked() {
	if e.settings == nil {
		return
	}
	settings := types.PlayerSettings{RepeatMode: e.repeat, ShuffleMode: e.shuffle}
	if err := e.settings.SavePlayerSettings(context.Background(), settings); err != nil {
		log.Printf("[PLAYER] Failed to persist settings: %v", err)
	}
}

func (e *Engine) Minimize() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.minimized = true
}

func (e *Engine) Restore() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.minimized = false
}

// ClosePlayer tears down the whole session: track, queue, and position.
func (e *Engine) ClosePlayer() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.device.Stop(); err != nil {
		e.debugLog("Stop on close failed: %v", err)
	}
	if err := e.device.Unload(); err != nil {
		e.debugLog("Unload on close failed: %v", err)
	}

	e.current = nil
	e.queue = nil
	e.playing = false
	e.progress = 0
	e.duration = 0
	e.minimized = false
	return nil
}

// SetQueue replaces the queue, dropping any entry that is the current song.
func (e *Engine) SetQueue(songs []*types.Song) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.queue = e.filterCurrentLocked(songs)
}

func (e *Engine) AddToQueue(song *types.Song) {
	if song == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current != nil && e.current.ID == song.ID {
		return
	}
	for _, queued := range e.queue {
		if queued.ID == song.ID {
			return
		}
	}
	e.queue = append(e.queue, song)
}

func (e *Engine) RemoveFromQueue(songID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	filtered := e.queue[:0]
	for _, queued := range e.queue {
		if queued.ID != songID {
			filtered = append(filtered, queued)
		}
	}
	e.queue = filtered
}

func (e *Engine) ClearQueue() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.queue = nil
}

func (e *Engine) filterCurrentLocked(songs []*types.Song) []*types.Song {
	if e.current == nil {
		return append([]*types.Song(nil), songs...)
	}
	filtered := make([]*types.Song, 0, len(songs))
	for _, song := range songs {
		if song.ID != e.current.ID {
			filtered = append(filtered, song)
		}
	}
	return filtered
}

// handleUpdate consumes the device position feed. A finished signal advances
// the queue at most once per load generation.
func (e *Engine) handleUpdate(update types.PlaybackUpdate) {
	e.mu.Lock()

	if e.current == nil {
		e.mu.Unlock()
		return
	}

	if update.Finished {
		if e.finishedGen == e.generation {
			e.mu.Unlock()
			return
		}
		e.finishedGen = e.generation
		e.mu.Unlock()

		if err := e.PlayNext(context.Background()); err != nil {
			log.Printf("[PLAYER] Auto-advance failed: %v", err)
		}
		return
	}

	e.progress = update.Position
	e.playing = update.IsPlaying
	e.mu.Unlock()
}

func (e *Engine) CurrentSong() *types.Song {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

func (e *Engine) Queue() []*types.Song {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*types.Song(nil), e.queue...)
}

func (e *Engine) IsPlaying() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playing
}

func (e *Engine) Progress() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.progress
}

func (e *Engine) Duration() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.duration
}

func (e *Engine) RepeatMode() types.RepeatMode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.repeat
}

func (e *Engine) ShuffleMode() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.shuffle
}

func (e *Engine) IsMinimized() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.minimized
}
