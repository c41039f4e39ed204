package services

import (
	"sync"

	"github.com/google/uuid"
)

// SessionRegistry memetakan session id ke orchestrator-nya. Satu sesi = satu
// user membuka satu link embed; orchestrator hidup di memori selama sesi.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*Orchestrator
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[string]*Orchestrator),
	}
}

// Register menyimpan orchestrator dan mengembalikan session id baru.
func (r *SessionRegistry) Register(orch *Orchestrator) string {
	id := uuid.New().String()
	orch.setSessionID(id)
	r.mu.Lock()
	r.sessions[id] = orch
	r.mu.Unlock()
	return id
}

func (r *SessionRegistry) Get(id string) (*Orchestrator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	orch, ok := r.sessions[id]
	return orch, ok
}

func (r *SessionRegistry) Remove(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

func (r *SessionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
