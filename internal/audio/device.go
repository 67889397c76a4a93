package audio

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/mp3"
	"github.com/gopxl/beep/speaker"

	"github.com/musiclite/musiclite/internal/config"
	"github.com/musiclite/musiclite/pkg/types"
)

var speakerInitialized = false
var speakerMutex sync.Mutex

// Device drives the speaker. Load is synchronous: when it returns nil the
// track is decoded and audible. A 250ms ticker feeds position updates to the
// registered callback; track end arrives as a Finished update.
type Device struct {
	mu sync.Mutex

	cfg        *config.Config
	sampleRate beep.SampleRate
	streamRate beep.SampleRate
	streamer   beep.StreamSeekCloser
	ctrl       *beep.Ctrl
	volume     *effects.Volume
	updateFn   func(types.PlaybackUpdate)
	ticker     *time.Ticker
	done       chan struct{}
	httpClient *http.Client
	debug      bool
	playing    bool
	paused     bool
	finished   bool
	loadToken  uint64
}

func NewDevice(cfg *config.Config) (*Device, error) {
	d := &Device{
		cfg:        cfg,
		done:       make(chan struct{}),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		sampleRate: beep.SampleRate(cfg.Audio.SampleRate),
		debug:      cfg.Debug,
	}

	if err := d.initializeSpeaker(); err != nil {
		return nil, fmt.Errorf("failed to initialize speaker: %w", err)
	}

	d.ticker = time.NewTicker(250 * time.Millisecond)
	go d.positionUpdater()

	if d.debug {
		log.Printf("[AUDIO] Device initialized on %s with sample rate: %d", runtime.GOOS, d.sampleRate)
	}

	return d, nil
}

func (d *Device) initializeSpeaker() error {
	speakerMutex.Lock()
	defer speakerMutex.Unlock()

	if speakerInitialized {
		if d.debug {
			log.Printf("[AUDIO] Speaker already initialized")
		}
		return nil
	}

	bufferSize := d.sampleRate.N(time.Second / 10)
	if runtime.GOOS == "linux" {
		bufferSize = d.sampleRate.N(time.Second / 5)
	}

	if err := speaker.Init(d.sampleRate, bufferSize); err != nil {
		return fmt.Errorf("speaker initialization failed: %w", err)
	}

	speakerInitialized = true
	if d.debug {
		log.Printf("[AUDIO] Speaker initialized with buffer size %d", bufferSize)
	}
	return nil
}

func (d *Device) debugLog(format string, args ...interface{}) {
	if !d.debug {
		return
	}
	log.Printf("[AUDIO] "+format, args...)
}

// OnUpdate registers the playback feed consumer. Must be called before the
// first Load.
func (d *Device) OnUpdate(fn func(types.PlaybackUpdate)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.updateFn = fn
}

// Load decodes the song and starts playback. On error the device ends up
// unloaded, never mid-track.
func (d *Device) Load(ctx context.Context, song *types.Song) error {
	if song == nil {
		return fmt.Errorf("song cannot be nil")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopInternal()

	reader, err := d.openSource(ctx, song)
	if err != nil {
		return fmt.Errorf("open audio source: %w", err)
	}

	streamer, format, err := mp3.Decode(reader)
	if err != nil {
		if closeErr := reader.Close(); closeErr != nil {
			d.debugLog("Failed to close reader: %v", closeErr)
		}
		return fmt.Errorf("decode mp3: %w", err)
	}

	d.streamer = streamer
	d.streamRate = format.SampleRate

	d.debugLog("Loaded '%s' - Sample Rate: %d, Length: %d samples, Duration: %v",
		song.Title, format.SampleRate, streamer.Len(), format.SampleRate.D(streamer.Len()))

	resampled := beep.Resample(4, format.SampleRate, d.sampleRate, streamer)
	d.ctrl = &beep.Ctrl{Streamer: resampled, Paused: false}
	d.volume = &effects.Volume{
		Streamer: d.ctrl,
		Base:     2,
		Volume:   (d.cfg.Audio.DefaultVolume - 1) * 5,
		Silent:   d.cfg.Audio.DefaultVolume == 0,
	}

	d.loadToken++
	d.startSequenceLocked()

	return nil
}

// startSequenceLocked queues the current volume chain on the speaker with a
// fresh end-of-stream callback. Caller holds the mutex.
func (d *Device) startSequenceLocked() {
	token := d.loadToken

	speaker.Clear()
	speaker.Play(beep.Seq(d.volume, beep.Callback(func() {
		d.onStreamDone(token)
	})))

	d.playing = true
	d.paused = false
	d.finished = false
}

func (d *Device) onStreamDone(token uint64) {
	d.mu.Lock()
	if token != d.loadToken || d.streamer == nil {
		d.mu.Unlock()
		return
	}

	d.playing = false
	d.finished = true
	position := d.streamRate.D(d.streamer.Position()).Seconds()
	fn := d.updateFn
	d.mu.Unlock()

	d.debugLog("Playback finished")

	if fn != nil {
		fn(types.PlaybackUpdate{Position: position, IsPlaying: false, Finished: true})
	}
}

func (d *Device) openSource(ctx context.Context, song *types.Song) (io.ReadCloser, error) {
	if song.LocalURI != "" {
		if _, err := os.Stat(song.LocalURI); err == nil {
			d.debugLog("Using local file: %s", song.LocalURI)
			return os.Open(song.LocalURI)
		}
	}

	uri := song.PlaybackURI()
	if uri == "" {
		return nil, fmt.Errorf("no playable source")
	}

	if _, err := os.Stat(uri); err == nil {
		d.debugLog("Using file: %s", uri)
		return os.Open(uri)
	}

	d.debugLog("Streaming from URL: %s", uri)
	return d.streamFromURL(ctx, uri)
}

func (d *Device) streamFromURL(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", "MusicLite/1.0")
	req.Header.Set("Accept", "audio/mpeg, audio/*")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if closeErr := resp.Body.Close(); closeErr != nil {
			d.debugLog("Failed to close response body: %v", closeErr)
		}
		return nil, fmt.Errorf("bad status: %s", resp.Status)
	}

	return resp.Body, nil
}

func (d *Device) stopInternal() {
	if d.playing || d.paused {
		speaker.Clear()
	}

	if d.streamer != nil {
		if closeErr := d.streamer.Close(); closeErr != nil {
			d.debugLog("Error closing streamer: %v", closeErr)
		}
		d.streamer = nil
	}

	d.ctrl = nil
	d.volume = nil
	d.playing = false
	d.paused = false
	d.finished = false
}

func (d *Device) Pause() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ctrl != nil && d.playing && !d.paused {
		speaker.Lock()
		d.ctrl.Paused = true
		speaker.Unlock()
		d.paused = true
		d.debugLog("Paused playback")
	}
	return nil
}

func (d *Device) Resume() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ctrl != nil && d.playing && d.paused {
		speaker.Lock()
		d.ctrl.Paused = false
		speaker.Unlock()
		d.paused = false
		d.debugLog("Resumed playback")
	}
	return nil
}

func (d *Device) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.playing || d.paused {
		speaker.Clear()
	}
	d.playing = false
	d.paused = false
	d.debugLog("Stopped playback")
	return nil
}

// Seek moves within the loaded track. Seeking a finished track restarts the
// speaker sequence from the new position.
func (d *Device) Seek(seconds float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.streamer == nil {
		return nil
	}

	pos := d.streamRate.N(time.Duration(seconds * float64(time.Second)))
	if pos < 0 {
		pos = 0
	}
	if pos >= d.streamer.Len() {
		pos = d.streamer.Len() - 1
	}

	speaker.Lock()
	err := d.streamer.Seek(pos)
	speaker.Unlock()
	if err != nil {
		d.debugLog("Seek failed: %v", err)
		return fmt.Errorf("seek: %w", err)
	}

	if d.finished {
		d.startSequenceLocked()
	}

	d.debugLog("Seeked to %.2fs", seconds)
	return nil
}

func (d *Device) Unload() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopInternal()
	d.debugLog("Unloaded")
	return nil
}

func (d *Device) SetVolume(volume float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.volume != nil {
		speaker.Lock()
		d.volume.Volume = (volume - 1) * 5
		d.volume.Silent = volume == 0
		speaker.Unlock()
		d.debugLog("Volume set to: %.2f", volume)
	}
	return nil
}

func (d *Device) Close() error {
	d.debugLog("Closing device")

	close(d.done)
	if d.ticker != nil {
		d.ticker.Stop()
	}
	return d.Unload()
}

func (d *Device) positionUpdater() {
	for {
		select {
		case <-d.ticker.C:
			d.emitPosition()
		case <-d.done:
			return
		}
	}
}

func (d *Device) emitPosition() {
	d.mu.Lock()
	if d.streamer == nil || d.finished {
		d.mu.Unlock()
		return
	}

	position := d.streamRate.D(d.streamer.Position()).Seconds()
	isPlaying := d.playing && !d.paused
	fn := d.updateFn
	d.mu.Unlock()

	if fn != nil {
		fn(types.PlaybackUpdate{Position: position, IsPlaying: isPlaying})
	}
}
