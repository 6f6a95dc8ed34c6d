package games

import (
	"errors"
	"fmt"
	"sync"
)

var ErrGameOver = errors.New("no lives left")
var ErrUnknownSpecies = errors.New("unknown species")
var ErrBadCoordinates = errors.New("coordinates must be 0-100")

const (
	plotStartLives = 3
	plotLogCap     = 8
	nativeScore    = 10
)

var nativeSpecies = map[string]bool{
	"Azadirachta indica (Neem)":   true,
	"Acacia nilotica (Babul)":     true,
	"Prosopis cineraria (Khejri)": true,
	"Dalbergia sissoo (Shisham)":  true,
	"Terminalia arjuna (Arjun)":   true,
	"Syzygium cumini (Jamun)":     true,
	"Mangifera indica (Mango)":    true,
	"Ficus religiosa (Peepal)":    true,
}

var invasiveSpecies = map[string]bool{
	"Casuarina equisetifolia (Casuarina)": true,
	"Leucaena leucocephala (Subabul)":     true,
	"Prosopis juliflora (Vilayati babul)": true,
}

type PlotMarker struct {
	Species string  `json:"species"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Native  bool    `json:"native"`
}

// PlotGame is one plant-and-survive round on a virtual plot. Coordinates are
// percentages of the plot, so the board scales with the viewport.
type PlotGame struct {
	mu      sync.Mutex
	score   int
	lives   int
	markers []PlotMarker
	log     []string
}

func NewPlotGame() *PlotGame {
	return &PlotGame{lives: plotStartLives}
}

// Drop plants a species at (x, y). Native species score, invasive ones cost
// a life; the marker stays either way as a visible success or failure mark.
func (g *PlotGame) Drop(species string, x, y float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.lives <= 0 {
		return ErrGameOver
	}
	if x < 0 || x > 100 || y < 0 || y > 100 {
		return ErrBadCoordinates
	}
	native := nativeSpecies[species]
	if !native && !invasiveSpecies[species] {
		return ErrUnknownSpecies
	}

	g.markers = append(g.markers, PlotMarker{Species: species, X: x, Y: y, Native: native})
	if native {
		g.score += nativeScore
		g.pushLog(fmt.Sprintf("%s planted: +%d points", species, nativeScore))
	} else {
		g.lives--
		g.pushLog(fmt.Sprintf("%s is invasive: lost a life (%d left)", species, g.lives))
	}
	return nil
}

// pushLog prepends; the log keeps only the newest entries.
func (g *PlotGame) pushLog(msg string) {
	g.log = append([]string{msg}, g.log...)
	if len(g.log) > plotLogCap {
		g.log = g.log[:plotLogCap]
	}
}

// Reset clears the round back to a fresh plot.
func (g *PlotGame) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.score = 0
	g.lives = plotStartLives
	g.markers = nil
	g.log = nil
}

type PlotView struct {
	Score    int          `json:"score"`
	Lives    int          `json:"lives"`
	GameOver bool         `json:"game_over"`
	Markers  []PlotMarker `json:"markers"`
	Log      []string     `json:"log"`
}

func (g *PlotGame) View() PlotView {
	g.mu.Lock()
	defer g.mu.Unlock()
	markers := make([]PlotMarker, len(g.markers))
	copy(markers, g.markers)
	log := make([]string, len(g.log))
	copy(log, g.log)
	return PlotView{Score: g.score, Lives: g.lives, GameOver: g.lives <= 0, Markers: markers, Log: log}
}

// Species lists the palette offered to the player, natives first.
func Species() (native, invasive []string) {
	for _, s := range []string{
		"Azadirachta indica (Neem)",
		"Acacia nilotica (Babul)",
		"Prosopis cineraria (Khejri)",
		"Dalbergia sissoo (Shisham)",
		"Terminalia arjuna (Arjun)",
		"Syzygium cumini (Jamun)",
		"Mangifera indica (Mango)",
		"Ficus religiosa (Peepal)",
	} {
		native = append(native, s)
	}
	for _, s := range []string{
		"Casuarina equisetifolia (Casuarina)",
		"Leucaena leucocephala (Subabul)",
		"Prosopis juliflora (Vilayati babul)",
	} {
		invasive = append(invasive, s)
	}
	return native, invasive
}
