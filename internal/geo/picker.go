package geo

import (
	"math"
	"sync"
)

// Picker models the location-selection widget: one marker, one change
// callback. Marker moves come either from the user (click, drag) or from the
// owning form pushing coordinates back in; only user moves fire the callback.
type Picker struct {
	mu       sync.Mutex
	inited   bool
	lat, lon float64
	onChange func(lat, lon float64)
}

func NewPicker(lat, lon float64, onChange func(lat, lon float64)) *Picker {
	p := &Picker{}
	p.Init(lat, lon, onChange)
	return p
}

// Init sets up the marker and callback exactly once. Later calls are no-ops
// so a re-rendered owner cannot reset the widget.
func (p *Picker) Init(lat, lon float64, onChange func(lat, lon float64)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inited {
		return
	}
	p.inited = true
	p.lat, p.lon = lat, lon
	p.onChange = onChange
}

// SetView re-centers on externally supplied coordinates without firing the
// callback; the marker follows the view.
func (p *Picker) SetView(lat, lon float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lat, p.lon = lat, lon
}

// Click moves the marker to the clicked point and reports it.
func (p *Picker) Click(lat, lon float64) {
	p.userMove(lat, lon)
}

// DragEnd reports the marker's final position after a drag.
func (p *Picker) DragEnd(lat, lon float64) {
	p.userMove(lat, lon)
}

func (p *Picker) userMove(lat, lon float64) {
	lat, lon = Round6(lat), Round6(lon)
	p.mu.Lock()
	p.lat, p.lon = lat, lon
	cb := p.onChange
	p.mu.Unlock()
	if cb != nil {
		cb(lat, lon)
	}
}

// Marker returns the current marker position.
func (p *Picker) Marker() (lat, lon float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lat, p.lon
}

// Round6 rounds a coordinate to six decimal places, the precision forms
// accept.
func Round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
