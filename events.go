package main

import (
	"sync"
	"sync/atomic"

	"github.com/dynamitemc/chunkstore/chunk"
)

type Events struct {
	mu      sync.RWMutex
	_events map[string][]func(...interface{})
}

func NewEvents() *Events {
	return &Events{_events: make(map[string][]func(...interface{}))}
}

func (emitter *Events) AddListener(key string, action func(...interface{})) {
	emitter.mu.Lock()
	defer emitter.mu.Unlock()
	emitter._events[key] = append(emitter._events[key], action)
}

func (emitter *Events) RemoveListener(key string, index int) {
	emitter.mu.Lock()
	defer emitter.mu.Unlock()
	if index < len(emitter._events[key]) {
		emitter._events[key][index] = nil
	}
}

func (emitter *Events) RemoveAllListeners(key string) {
	emitter.mu.Lock()
	defer emitter.mu.Unlock()
	delete(emitter._events, key)
}

func (emitter *Events) Emit(key string, data ...interface{}) {
	emitter.mu.RLock()
	actions := emitter._events[key]
	emitter.mu.RUnlock()
	for _, action := range actions {
		if action == nil {
			continue
		}
		action(data...)
	}
}

// Counters tallies what happened to chunks during a command.
type Counters struct {
	Loaded    atomic.Int64
	Saved     atomic.Int64
	Unchanged atomic.Int64
	Misplaced atomic.Int64
	Failed    atomic.Int64
	Entities  atomic.Int64
	ByStatus  sync.Map
}

func (store *Store) CreateEvents() {
	store.Events.AddListener("ChunkLoaded", store.OnChunkLoaded)
	store.Events.AddListener("ChunkSaved", store.OnChunkSaved)
	store.Events.AddListener("ChunkMisplaced", store.OnChunkMisplaced)
	store.Events.AddListener("ChunkFailed", store.OnChunkFailed)
	store.Events.AddListener("EntitiesLoaded", store.OnEntitiesLoaded)
}

func (store *Store) OnChunkLoaded(params ...interface{}) {
	c := params[0].(chunk.Chunk)
	store.Counters.Loaded.Add(1)
	n, _ := store.Counters.ByStatus.LoadOrStore(c.Status(), new(atomic.Int64))
	n.(*atomic.Int64).Add(1)
}

func (store *Store) OnChunkSaved(params ...interface{}) {
	if written := params[1].(bool); written {
		store.Counters.Saved.Add(1)
		return
	}
	store.Counters.Unchanged.Add(1)
}

func (store *Store) OnChunkMisplaced(params ...interface{}) {
	actual, expected := params[0].(chunk.ChunkPos), params[1].(chunk.ChunkPos)
	store.Counters.Misplaced.Add(1)
	store.Logger.Warn("Chunk %v was stored in the slot of %v", actual, expected)
}

func (store *Store) OnChunkFailed(params ...interface{}) {
	pos, err := params[0].(chunk.ChunkPos), params[1].(error)
	store.Counters.Failed.Add(1)
	store.Logger.Error("Chunk %v: %v", pos, err)
}

func (store *Store) OnEntitiesLoaded(params ...interface{}) {
	store.Counters.Entities.Add(int64(params[0].(int)))
}
