package handlers

import (
	"sync"

	"github.com/musiclite/musiclite/pkg/types"
)

const (
	EventSongStarted    = "player.song_started"
	EventLibraryUpdated = "library.updated"
	EventScanComplete   = "library.scan_complete"
)

type EventBus struct {
	subscribers map[string][]EventHandler
	mutex       sync.RWMutex
}

type EventHandler func(data interface{})

func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[string][]EventHandler),
	}
}

func (bus *EventBus) Subscribe(eventType string, handler EventHandler) {
	bus.mutex.Lock()
	defer bus.mutex.Unlock()
	bus.subscribers[eventType] = append(bus.subscribers[eventType], handler)
}

func (bus *EventBus) Publish(eventType string, data interface{}) {
	bus.mutex.RLock()
	handlers := bus.subscribers[eventType]
	bus.mutex.RUnlock()

	for _, handler := range handlers {
		go handler(data)
	}
}

func (bus *EventBus) Unsubscribe(eventType string) {
	bus.mutex.Lock()
	defer bus.mutex.Unlock()
	delete(bus.subscribers, eventType)
}

// Typed accessors per event, so consumers don't repeat the assertion dance.
// A payload of the wrong type is dropped rather than delivered as a zero
// value.

func (bus *EventBus) PublishSongStarted(song *types.Song) {
	bus.Publish(EventSongStarted, song)
}

func (bus *EventBus) SubscribeSongStarted(fn func(*types.Song)) {
	bus.Subscribe(EventSongStarted, func(data interface{}) {
		if song, ok := data.(*types.Song); ok {
			fn(song)
		}
	})
}

func (bus *EventBus) PublishLibraryUpdated(songs []*types.Song) {
	bus.Publish(EventLibraryUpdated, songs)
}

func (bus *EventBus) SubscribeLibraryUpdated(fn func([]*types.Song)) {
	bus.Subscribe(EventLibraryUpdated, func(data interface{}) {
		songs, ok := data.([]*types.Song)
		if ok || data == nil {
			fn(songs)
		}
	})
}

func (bus *EventBus) PublishScanComplete(count int) {
	bus.Publish(EventScanComplete, count)
}

func (bus *EventBus) SubscribeScanComplete(fn func(int)) {
	bus.Subscribe(EventScanComplete, func(data interface{}) {
		if count, ok := data.(int); ok {
			fn(count)
		}
	})
}
