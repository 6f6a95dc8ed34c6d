package games

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrGameNotFound = errors.New("game not found")

type matchEntry struct {
	owner string
	game  *MatchGame
}

type plotEntry struct {
	owner string
	game  *PlotGame
}

// Registry holds live game rounds keyed by id. Rounds are owner-scoped: a
// session can only touch rounds it created.
type Registry struct {
	mu    sync.Mutex
	rng   *rand.Rand
	match map[string]matchEntry
	plot  map[string]plotEntry
}

func NewRegistry() *Registry {
	return &Registry{
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
		match: make(map[string]matchEntry),
		plot:  make(map[string]plotEntry),
	}
}

func (r *Registry) NewMatch(owner string) (string, *MatchGame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := uuid.NewString()
	g := NewMatchGame(r.rng)
	r.match[id] = matchEntry{owner: owner, game: g}
	return id, g
}

func (r *Registry) Match(owner, id string) (*MatchGame, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.match[id]
	if !ok || e.owner != owner {
		return nil, ErrGameNotFound
	}
	return e.game, nil
}

func (r *Registry) NewPlot(owner string) (string, *PlotGame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := uuid.NewString()
	g := NewPlotGame()
	r.plot[id] = plotEntry{owner: owner, game: g}
	return id, g
}

func (r *Registry) Plot(owner, id string) (*PlotGame, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.plot[id]
	if !ok || e.owner != owner {
		return nil, ErrGameNotFound
	}
	return e.game, nil
}

// DropOwner discards every round a session created, called on logout.
func (r *Registry) DropOwner(owner string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, e := range r.match {
		if e.owner == owner {
			delete(r.match, id)
		}
	}
	for id, e := range r.plot {
		if e.owner == owner {
			delete(r.plot, id)
		}
	}
}
