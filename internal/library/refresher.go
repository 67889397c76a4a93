package library

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/musiclite/musiclite/internal/config"
)

// Refresher runs periodic quick scans so new files show up without a manual
// rescan. A tick is dropped when a scan is already in flight.
type Refresher struct {
	scanner  *Scanner
	interval time.Duration
	debug    bool

	mu      sync.Mutex
	running bool
	stop    chan struct{}

	onRefresh func()
}

func NewRefresher(scanner *Scanner, cfg *config.Config) *Refresher {
	return &Refresher{
		scanner:  scanner,
		interval: time.Duration(cfg.Library.RefreshInterval) * time.Second,
		debug:    cfg.Debug,
		stop:     make(chan struct{}),
	}
}

func (r *Refresher) debugLog(format string, args ...interface{}) {
	if !r.debug {
		return
	}
	log.Printf("[REFRESH] "+format, args...)
}

// SetOnRefresh registers a callback fired after a quick scan that changed or
// confirmed the catalog. Must be set before Start.
func (r *Refresher) SetOnRefresh(fn func()) {
	r.onRefresh = fn
}

func (r *Refresher) Start(ctx context.Context) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.mu.Unlock()

	r.debugLog("Refresher starting with interval: %v", r.interval)

	ticker := time.NewTicker(r.interval)

	go func() {
		defer func() {
			ticker.Stop()
			r.mu.Lock()
			r.running = false
			r.mu.Unlock()
			r.debugLog("Refresher stopped")
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case <-r.stop:
				return
			case <-ticker.C:
				r.refresh(ctx)
			}
		}
	}()
}

func (r *Refresher) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return
	}
	close(r.stop)
	r.stop = make(chan struct{})
	r.running = false
}

// TriggerRefresh runs one quick scan out of band, used by the watcher.
func (r *Refresher) TriggerRefresh(ctx context.Context) {
	r.refresh(ctx)
}

func (r *Refresher) refresh(ctx context.Context) {
	if r.scanner.IsScanning() {
		r.debugLog("Scan in flight, skipping refresh")
		return
	}

	if _, err := r.scanner.IncrementalScan(ctx); err != nil {
		if errors.Is(err, ErrScanInProgress) {
			r.debugLog("Scan in flight, skipping refresh")
			return
		}
		log.Printf("[REFRESH] Quick scan failed: %v", err)
		return
	}

	if r.onRefresh != nil {
		r.onRefresh()
	}
}
