package music

import (
	"sync"

	"github.com/disgoorg/snowflake/v2"
)

// Registry maps guilds to their live queue.
type Registry struct {
	mu     sync.RWMutex
	queues map[snowflake.ID]*ServerQueue
}

func NewRegistry() *Registry {
	return &Registry{queues: make(map[snowflake.ID]*ServerQueue)}
}

func (r *Registry) Get(guildID snowflake.ID) *ServerQueue {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.queues[guildID]
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.queues)
}

func (r *Registry) All() []*ServerQueue {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*ServerQueue, 0, len(r.queues))
	for _, q := range r.queues {
		out = append(out, q)
	}
	return out
}

func (r *Registry) loadOrStore(guildID snowflake.ID, create func() *ServerQueue) (*ServerQueue, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if q, ok := r.queues[guildID]; ok {
		return q, false
	}
	q := create()
	r.queues[guildID] = q
	return q, true
}

// delete only removes q if it is still the guild's queue.
func (r *Registry) delete(guildID snowflake.ID, q *ServerQueue) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.queues[guildID] != q {
		return false
	}
	delete(r.queues, guildID)
	return true
}
