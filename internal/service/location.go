package service

import (
	"github.com/gitmanhimanshu/verdantia/internal/geo"
	"github.com/gitmanhimanshu/verdantia/internal/session"
)

// Default map center when a session has not picked a spot yet.
const (
	defaultMapLat = 20.5937
	defaultMapLon = 78.9629
)

type PickedLocation struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
	Set bool    `json:"set"`
}

// picker returns the session's map widget, creating it on first use. The
// widget's change callback writes the chosen coordinates back into the
// session's wizard state.
func (s *Service) picker(sessionID string) *geo.Picker {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.pickers[sessionID]; ok {
		return p
	}
	p := geo.NewPicker(defaultMapLat, defaultMapLon, func(lat, lon float64) {
		s.mu.Lock()
		s.picked[sessionID] = PickedLocation{Lat: lat, Lon: lon, Set: true}
		s.mu.Unlock()
	})
	s.pickers[sessionID] = p
	return p
}

// PickLocation records a user move on the map. Drag ends and clicks are the
// same gesture to the wizard; both settle the marker and remember the spot.
func (s *Service) PickLocation(cur session.Current, lat, lon float64, drag bool) PickedLocation {
	p := s.picker(cur.Session.ID)
	if drag {
		p.DragEnd(lat, lon)
	} else {
		p.Click(lat, lon)
	}
	mlat, mlon := p.Marker()
	return PickedLocation{Lat: mlat, Lon: mlon, Set: true}
}

// CenterMap re-centers the widget without treating it as a choice.
func (s *Service) CenterMap(cur session.Current, lat, lon float64) {
	s.picker(cur.Session.ID).SetView(lat, lon)
}

// Location reports the session's chosen spot, or the marker default when
// nothing was picked yet.
func (s *Service) Location(cur session.Current) PickedLocation {
	s.mu.Lock()
	loc, ok := s.picked[cur.Session.ID]
	s.mu.Unlock()
	if ok {
		return loc
	}
	p := s.picker(cur.Session.ID)
	lat, lon := p.Marker()
	return PickedLocation{Lat: lat, Lon: lon}
}
