package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/musiclite/musiclite/internal/audio"
	"github.com/musiclite/musiclite/internal/config"
	"github.com/musiclite/musiclite/internal/handlers"
	"github.com/musiclite/musiclite/internal/library"
	"github.com/musiclite/musiclite/internal/lookup"
	"github.com/musiclite/musiclite/internal/media"
	"github.com/musiclite/musiclite/internal/metadata"
	"github.com/musiclite/musiclite/internal/player"
	"github.com/musiclite/musiclite/internal/services"
	"github.com/musiclite/musiclite/internal/storage"
	"github.com/musiclite/musiclite/pkg/types"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	play := flag.Bool("play", false, "start shuffled playback after the library is ready")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := storage.NewDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Failed to close storage: %v", err)
		}
	}()

	var remote types.MetadataLookup
	if client := lookup.NewClient(cfg); client.Enabled() {
		remote = client
	} else {
		log.Printf("No lookup backend configured, enrichment falls back to filenames and tags")
	}

	cache := metadata.NewCache(db, cfg.Debug)
	resolver := metadata.NewResolver(remote, cfg.Debug)
	source := media.NewFSSource(cfg.Library.MusicDir, cfg.Debug)
	scanner := library.NewScanner(source, resolver, cache, db, cfg)

	bus := handlers.NewEventBus()

	device, err := audio.NewDevice(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize audio device: %v", err)
	}
	defer func() {
		if err := device.Close(); err != nil {
			log.Printf("Failed to close audio device: %v", err)
		}
	}()

	engine := player.NewEngine(device, db, bus, cfg.Debug)

	recs := services.NewRecommendationService(db, cfg.Debug)
	libraryService := services.NewLibraryService(scanner, db, recs, bus, cfg.Debug)

	songs, err := libraryService.Initialize(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize library: %v", err)
	}
	log.Printf("Library ready with %d songs", len(songs))

	refresher := library.NewRefresher(scanner, cfg)
	refresher.SetOnRefresh(func() {
		bus.PublishLibraryUpdated(nil)
	})
	refresher.Start(ctx)
	defer refresher.Stop()

	if cfg.Library.WatchEnabled {
		watcher, err := library.NewWatcher(cfg.Library.MusicDir, refresher, cfg.Debug)
		if err != nil {
			log.Printf("Directory watch unavailable: %v", err)
		} else {
			watcher.Start(ctx)
			defer func() {
				if err := watcher.Close(); err != nil {
					log.Printf("Failed to close watcher: %v", err)
				}
			}()
		}
	}

	if *play {
		first, rest, err := libraryService.ShuffledQueue(ctx)
		if err != nil {
			log.Printf("Failed to build queue: %v", err)
		} else if first != nil {
			engine.SetQueue(rest)
			if err := engine.SetCurrentSong(ctx, first); err != nil {
				log.Printf("Failed to start playback: %v", err)
			}
		}
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	log.Printf("Shutting down")
	if err := engine.ClosePlayer(); err != nil {
		log.Printf("Failed to close player: %v", err)
	}
	cancel()
}
