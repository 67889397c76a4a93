package player

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/musiclite/musiclite/pkg/types"
)

type fakeDevice struct {
	loaded   *types.Song
	loadErr  error
	seekErr  error
	updateFn func(types.PlaybackUpdate)

	loads   int
	pauses  int
	resumes int
	stops   int
	unloads int
	seeks   []float64
}

func (f *fakeDevice) Load(ctx context.Context, song *types.Song) error {
	if f.loadErr != nil {
		return f.loadErr
	}
	f.loads++
	f.loaded = song
	return nil
}

func (f *fakeDevice) Pause() error  { f.pauses++; return nil }
func (f *fakeDevice) Resume() error { f.resumes++; return nil }
func (f *fakeDevice) Stop() error   { f.stops++; return nil }

func (f *fakeDevice) Seek(seconds float64) error {
	if f.seekErr != nil {
		return f.seekErr
	}
	f.seeks = append(f.seeks, seconds)
	return nil
}

func (f *fakeDevice) Unload() error { f.unloads++; return nil }

func (f *fakeDevice) OnUpdate(fn func(types.PlaybackUpdate)) { f.updateFn = fn }

func (f *fakeDevice) Close() error { return nil }

type fakeSettings struct {
	saved  []types.PlayerSettings
	stored types.PlayerSettings
	getErr error
	putErr error
}

func (f *fakeSettings) GetPlayerSettings(ctx context.Context) (types.PlayerSettings, error) {
	return f.stored, f.getErr
}

func (f *fakeSettings) SavePlayerSettings(ctx context.Context, settings types.PlayerSettings) error {
	f.saved = append(f.saved, settings)
	return f.putErr
}

func song(id string, duration float64) *types.Song {
	return &types.Song{ID: id, Title: "Title " + id, Artist: "Artist", Duration: duration, URI: "/music/" + id + ".mp3"}
}

func newTestEngine(t *testing.T) (*Engine, *fakeDevice, *fakeSettings) {
	t.Helper()
	device := &fakeDevice{}
	settings := &fakeSettings{}
	engine := NewEngine(device, settings, nil, false)
	return engine, device, settings
}

func TestPlayNext_AdvancesQueue(t *testing.T) {
	engine, device, _ := newTestEngine(t)
	ctx := context.Background()

	a, b := song("a", 200), song("b", 100)
	engine.SetQueue([]*types.Song{a, b})

	require.NoError(t, engine.PlayNext(ctx))

	assert.Equal(t, a, engine.CurrentSong())
	assert.Equal(t, []*types.Song{b}, engine.Queue())
	assert.True(t, engine.IsPlaying())
	assert.Equal(t, 0.0, engine.Progress())
	assert.Equal(t, 200.0, engine.Duration())
	assert.Equal(t, a, device.loaded)
	assert.False(t, engine.IsMinimized())
}

func TestSetCurrentSong_NilClearsSession(t *testing.T) {
	engine, device, _ := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, engine.SetCurrentSong(ctx, song("a", 100)))
	require.NoError(t, engine.SetCurrentSong(ctx, nil))

	assert.Nil(t, engine.CurrentSong())
	assert.False(t, engine.IsPlaying())
	assert.Equal(t, 0.0, engine.Progress())
	assert.Equal(t, 0.0, engine.Duration())
	assert.Equal(t, 1, device.stops)
	assert.Equal(t, 1, device.unloads)
}

func TestSetCurrentSong_NoPlayableSource(t *testing.T) {
	engine, device, _ := newTestEngine(t)

	broken := &types.Song{ID: "x", Title: "No Source"}
	err := engine.SetCurrentSong(context.Background(), broken)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoPlayableSource))
	assert.Nil(t, engine.CurrentSong())
	assert.Equal(t, 0, device.loads)
}

func TestLoadFailure_LeavesStateUntouched(t *testing.T) {
	engine, device, _ := newTestEngine(t)
	ctx := context.Background()

	a := song("a", 100)
	require.NoError(t, engine.SetCurrentSong(ctx, a))
	engine.SetQueue([]*types.Song{song("b", 50)})

	device.loadErr = errors.New("decode failed")
	err := engine.PlayNext(ctx)

	require.Error(t, err)
	assert.Equal(t, a, engine.CurrentSong(), "failed load must not change the current song")
	assert.Len(t, engine.Queue(), 1, "failed load must not consume the queue")
	assert.True(t, engine.IsPlaying())
}

func TestPlayNext_EmptyQueueRepeatOne(t *testing.T) {
	engine, device, _ := newTestEngine(t)
	ctx := context.Background()

	a := song("a", 100)
	require.NoError(t, engine.SetCurrentSong(ctx, a))

	engine.ToggleRepeat() // off -> all
	engine.ToggleRepeat() // all -> one

	require.NoError(t, engine.PlayNext(ctx))

	assert.Equal(t, a, engine.CurrentSong())
	assert.Equal(t, []float64{0}, device.seeks, "repeat one replays from the start")
	assert.True(t, engine.IsPlaying())
	assert.Equal(t, 1, device.loads, "no reload on replay")
}

func TestPlayNext_EmptyQueueRepeatAllIsNoOp(t *testing.T) {
	engine, device, _ := newTestEngine(t)
	ctx := context.Background()

	a := song("a", 100)
	require.NoError(t, engine.SetCurrentSong(ctx, a))
	engine.ToggleRepeat() // off -> all

	require.NoError(t, engine.PlayNext(ctx))

	assert.Equal(t, a, engine.CurrentSong())
	assert.Empty(t, device.seeks)
	assert.Equal(t, 0, device.pauses, "repeat all leaves replenishment to the caller")
}

func TestPlayNext_EmptyQueueRepeatOffPauses(t *testing.T) {
	engine, device, _ := newTestEngine(t)
	ctx := context.Background()

	a := song("a", 100)
	require.NoError(t, engine.SetCurrentSong(ctx, a))

	require.NoError(t, engine.PlayNext(ctx))

	assert.Equal(t, a, engine.CurrentSong(), "current song is kept at queue end")
	assert.False(t, engine.IsPlaying())
	assert.Equal(t, 1, device.pauses)
}

func TestPlayPrevious_AlwaysRestarts(t *testing.T) {
	engine, device, _ := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, engine.SetCurrentSong(ctx, song("a", 100)))
	require.NoError(t, engine.SetProgress(42))
	require.NoError(t, engine.PlayPrevious(ctx))

	assert.Equal(t, []float64{42, 0}, device.seeks)
	assert.Equal(t, 0.0, engine.Progress())
}

func TestTogglePlay(t *testing.T) {
	engine, device, _ := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, engine.TogglePlay(), "toggle with no song is a no-op")
	assert.Equal(t, 0, device.pauses)

	require.NoError(t, engine.SetCurrentSong(ctx, song("a", 100)))

	require.NoError(t, engine.TogglePlay())
	assert.False(t, engine.IsPlaying())
	assert.Equal(t, 1, device.pauses)

	require.NoError(t, engine.TogglePlay())
	assert.True(t, engine.IsPlaying())
	assert.Equal(t, 1, device.resumes)
}

func TestToggleRepeat_CyclesAndPersists(t *testing.T) {
	engine, _, settings := newTestEngine(t)

	assert.Equal(t, types.RepeatAll, engine.ToggleRepeat())
	assert.Equal(t, types.RepeatOne, engine.ToggleRepeat())
	assert.Equal(t, types.RepeatOff, engine.ToggleRepeat())

	require.Len(t, settings.saved, 3)
	assert.Equal(t, types.RepeatOff, settings.saved[2].RepeatMode)
}

func TestToggleShuffle_Persists(t *testing.T) {
	engine, _, settings := newTestEngine(t)

	assert.True(t, engine.ToggleShuffle())
	assert.False(t, engine.ToggleShuffle())

	require.Len(t, settings.saved, 2)
	assert.True(t, settings.saved[0].ShuffleMode)
	assert.False(t, settings.saved[1].ShuffleMode)
}

func TestEngine_RestoresPersistedSettings(t *testing.T) {
	device := &fakeDevice{}
	settings := &fakeSettings{stored: types.PlayerSettings{RepeatMode: types.RepeatAll, ShuffleMode: true}}

	engine := NewEngine(device, settings, nil, false)

	assert.Equal(t, types.RepeatAll, engine.RepeatMode())
	assert.True(t, engine.ShuffleMode())
}

func TestEngine_InvalidStoredRepeatModeFallsBack(t *testing.T) {
	for _, stored := range []types.RepeatMode{"", "bogus"} {
		settings := &fakeSettings{stored: types.PlayerSettings{RepeatMode: stored}}
		engine := NewEngine(&fakeDevice{}, settings, nil, false)

		assert.Equal(t, types.RepeatOff, engine.RepeatMode())
		assert.Equal(t, types.RepeatAll, engine.ToggleRepeat(), "cycle starts from off")
	}
}

func TestFinished_AdvancesOncePerGeneration(t *testing.T) {
	engine, device, _ := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, engine.SetCurrentSong(ctx, song("a", 100)))

	device.updateFn(types.PlaybackUpdate{Position: 100, Finished: true})
	device.updateFn(types.PlaybackUpdate{Position: 100, Finished: true})

	assert.False(t, engine.IsPlaying())
	assert.Equal(t, 1, device.pauses, "duplicate finished signals are ignored")
}

func TestFinished_RepeatOneReplaysEveryCompletion(t *testing.T) {
	engine, device, _ := newTestEngine(t)
	ctx := context.Background()

	a := song("a", 100)
	require.NoError(t, engine.SetCurrentSong(ctx, a))
	engine.ToggleRepeat() // off -> all
	engine.ToggleRepeat() // all -> one

	device.updateFn(types.PlaybackUpdate{Position: 100, Finished: true})
	device.updateFn(types.PlaybackUpdate{Position: 100, Finished: true})

	assert.Equal(t, []float64{0, 0}, device.seeks, "every completion replays under repeat one")
	assert.Equal(t, a, engine.CurrentSong())
	assert.True(t, engine.IsPlaying())
}

func TestFinished_AdvancesAgainAfterRestart(t *testing.T) {
	engine, device, _ := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, engine.SetCurrentSong(ctx, song("a", 100)))

	device.updateFn(types.PlaybackUpdate{Position: 100, Finished: true})
	assert.Equal(t, 1, device.pauses)

	// Restarting the finished track opens a new completion window.
	require.NoError(t, engine.PlayPrevious(ctx))
	device.updateFn(types.PlaybackUpdate{Position: 100, Finished: true})

	assert.Equal(t, 2, device.pauses)
	assert.False(t, engine.IsPlaying())
}

func TestFinished_AdvancesToNextSong(t *testing.T) {
	engine, device, _ := newTestEngine(t)
	ctx := context.Background()

	a, b := song("a", 100), song("b", 50)
	require.NoError(t, engine.SetCurrentSong(ctx, a))
	engine.SetQueue([]*types.Song{b})

	device.updateFn(types.PlaybackUpdate{Position: 100, Finished: true})

	assert.Equal(t, b, engine.CurrentSong())
	assert.Empty(t, engine.Queue())
	assert.True(t, engine.IsPlaying())
	assert.Equal(t, 50.0, engine.Duration())
}

func TestPositionFeed_UpdatesProgress(t *testing.T) {
	engine, device, _ := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, engine.SetCurrentSong(ctx, song("a", 100)))

	device.updateFn(types.PlaybackUpdate{Position: 12.5, IsPlaying: true})

	assert.Equal(t, 12.5, engine.Progress())
	assert.True(t, engine.IsPlaying())
}

func TestQueueOps(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	a, b, c := song("a", 1), song("b", 2), song("c", 3)
	require.NoError(t, engine.SetCurrentSong(ctx, a))

	engine.SetQueue([]*types.Song{a, b, c})
	assert.Equal(t, []*types.Song{b, c}, engine.Queue(), "current song is filtered out")

	engine.AddToQueue(b)
	assert.Len(t, engine.Queue(), 2, "duplicates are not queued")

	engine.AddToQueue(a)
	assert.Len(t, engine.Queue(), 2, "current song is not queued")

	engine.RemoveFromQueue("b")
	assert.Equal(t, []*types.Song{c}, engine.Queue())

	engine.ClearQueue()
	assert.Empty(t, engine.Queue())
}

func TestClosePlayer_TearsDownEverything(t *testing.T) {
	engine, device, _ := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, engine.SetCurrentSong(ctx, song("a", 100)))
	engine.SetQueue([]*types.Song{song("b", 50)})
	engine.Minimize()

	require.NoError(t, engine.ClosePlayer())

	assert.Nil(t, engine.CurrentSong())
	assert.Empty(t, engine.Queue())
	assert.False(t, engine.IsPlaying())
	assert.False(t, engine.IsMinimized())
	assert.Equal(t, 1, device.stops)
	assert.Equal(t, 1, device.unloads)
}

func TestMinimizeRestore(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, engine.SetCurrentSong(ctx, song("a", 100)))

	engine.Minimize()
	assert.True(t, engine.IsMinimized())

	engine.Restore()
	assert.False(t, engine.IsMinimized())

	require.NoError(t, engine.SetCurrentSong(ctx, song("b", 50)))
	assert.False(t, engine.IsMinimized(), "loading a song restores the player")
}
