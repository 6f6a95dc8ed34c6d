package games

import (
	"errors"
	"math/rand"
	"sync"
)

var ErrCardUnavailable = errors.New("card cannot be flipped")
var ErrGameComplete = errors.New("game is complete")

type matchPair struct {
	Species string
	Benefit string
	Fact    string
}

// matchPairs is the fixed species/benefit deck content.
var matchPairs = []matchPair{
	{"Azadirachta indica (Neem)", "Air purification", "Neem canopies filter dust and airborne pollutants year-round."},
	{"Ficus religiosa (Peepal)", "Night-time O2 release", "Peepal keeps releasing oxygen after dark thanks to CAM photosynthesis."},
	{"Syzygium cumini (Jamun)", "Urban biodiversity", "Jamun fruit sustains birds and pollinators inside city limits."},
	{"Mangifera indica (Mango)", "Shade + fruit", "A mature mango tree cools its surroundings while feeding a neighbourhood."},
	{"Dalbergia sissoo (Shisham)", "Soil binding", "Shisham roots knit loose soil together and curb erosion."},
	{"Prosopis cineraria (Khejri)", "Arid resilience", "Khejri thrives on minimal water and fixes nitrogen in desert soil."},
}

type CardRole string

const (
	RoleSpecies CardRole = "species"
	RoleBenefit CardRole = "benefit"
)

type Card struct {
	Label   string   `json:"label"`
	Role    CardRole `json:"role"`
	Pair    int      `json:"-"`
	FaceUp  bool     `json:"face_up"`
	Matched bool     `json:"matched"`
}

// MatchGame is one memory-match round: a 12-card shuffled deck, flipped two
// at a time. A mismatch stays visible until Resolve or the next flip.
type MatchGame struct {
	mu      sync.Mutex
	deck    []Card
	held    int // index of the single face-up unmatched card, -1 when none
	revert  [2]int
	pending bool
	moves   int
	facts   []string
}

// NewMatchGame builds and shuffles the deck. The rng is injectable so tests
// can fix the order.
func NewMatchGame(rng *rand.Rand) *MatchGame {
	deck := make([]Card, 0, len(matchPairs)*2)
	for i, p := range matchPairs {
		deck = append(deck,
			Card{Label: p.Species, Role: RoleSpecies, Pair: i},
			Card{Label: p.Benefit, Role: RoleBenefit, Pair: i},
		)
	}
	rng.Shuffle(len(deck), func(a, b int) { deck[a], deck[b] = deck[b], deck[a] })
	return &MatchGame{deck: deck, held: -1}
}

// Flip turns card i face up. The second card of an attempt counts a move;
// a pair matches only when the pair index agrees and the roles differ.
func (g *MatchGame) Flip(i int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.resolveLocked()

	if g.completedLocked() {
		return ErrGameComplete
	}
	if i < 0 || i >= len(g.deck) {
		return ErrCardUnavailable
	}
	c := &g.deck[i]
	if c.Matched || c.FaceUp {
		return ErrCardUnavailable
	}
	c.FaceUp = true
	if g.held < 0 {
		g.held = i
		return nil
	}

	g.moves++
	first := &g.deck[g.held]
	if first.Pair == c.Pair && first.Role != c.Role {
		first.Matched, c.Matched = true, true
		g.facts = append(g.facts, matchPairs[c.Pair].Fact)
	} else {
		g.revert = [2]int{g.held, i}
		g.pending = true
	}
	g.held = -1
	return nil
}

// Resolve turns a pending mismatch back face-down. It replaces the timed
// flip-back: callers tick it after showing the pair.
func (g *MatchGame) Resolve() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.resolveLocked()
}

func (g *MatchGame) resolveLocked() {
	if !g.pending {
		return
	}
	for _, idx := range g.revert {
		if !g.deck[idx].Matched {
			g.deck[idx].FaceUp = false
		}
	}
	g.pending = false
}

func (g *MatchGame) completedLocked() bool {
	for _, c := range g.deck {
		if !c.Matched {
			return false
		}
	}
	return true
}

func (g *MatchGame) Completed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.completedLocked()
}

func (g *MatchGame) Moves() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.moves
}

func (g *MatchGame) Facts() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, len(g.facts))
	copy(out, g.facts)
	return out
}

// MatchView is the API projection of a round. Face-down card labels are
// blanked so the browser cannot peek.
type MatchView struct {
	Cards     []Card   `json:"cards"`
	Moves     int      `json:"moves"`
	Facts     []string `json:"facts"`
	Completed bool     `json:"completed"`
}

func (g *MatchGame) View() MatchView {
	g.mu.Lock()
	defer g.mu.Unlock()
	cards := make([]Card, len(g.deck))
	copy(cards, g.deck)
	for i := range cards {
		if !cards[i].FaceUp && !cards[i].Matched {
			cards[i].Label = ""
			cards[i].Role = ""
		}
	}
	facts := make([]string, len(g.facts))
	copy(facts, g.facts)
	return MatchView{Cards: cards, Moves: g.moves, Facts: facts, Completed: g.completedLocked()}
}
