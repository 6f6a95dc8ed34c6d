package service

import (
	"time"

	"github.com/google/uuid"
)

// Alert is a transient per-session notice. Entries expire on their own; the
// browser polls the feed.
type Alert struct {
	ID      string    `json:"id"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
	Expires time.Time `json:"expires"`
}

func (s *Service) PushAlert(sessionID, level, message string) {
	a := Alert{
		ID:      uuid.NewString(),
		Level:   level,
		Message: message,
		Expires: time.Now().Add(s.cfg.AlertTTL()),
	}
	s.mu.Lock()
	s.alerts[sessionID] = append(s.alerts[sessionID], a)
	s.mu.Unlock()
}

// Alerts returns the live feed, pruning expired entries as it goes.
func (s *Service) Alerts(sessionID string) []Alert {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.alerts[sessionID][:0]
	for _, a := range s.alerts[sessionID] {
		if now.Before(a.Expires) {
			kept = append(kept, a)
		}
	}
	if len(kept) == 0 {
		delete(s.alerts, sessionID)
		return nil
	}
	s.alerts[sessionID] = kept
	out := make([]Alert, len(kept))
	copy(out, kept)
	return out
}
