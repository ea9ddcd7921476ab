package gateway

import (
	"strings"
	"sync"
)

// A Roster is the in-memory list of actors currently known to be online,
// maintained from member join/leave events. It fills in role and level data
// for messages whose source only carries an actor id.
type Roster struct {
	mu     sync.RWMutex
	actors map[string]Actor
}

func NewRoster(actors ...Actor) *Roster {
	roster := &Roster{
		actors: map[string]Actor{},
	}
	for _, actor := range actors {
		roster.Add(actor)
	}
	return roster
}

func (r *Roster) Add(actor Actor) {
	if len(strings.TrimSpace(actor.ID)) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actors[actor.ID] = actor
}

func (r *Roster) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.actors, id)
}

func (r *Roster) Find(id string) (Actor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	actor, ok := r.actors[id]
	return actor, ok
}

func (r *Roster) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.actors)
}

func (r *Roster) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actors = map[string]Actor{}
}
