package conversation

import (
	"sync"
	"time"
)

// Turn is one recorded message in a conversation. Turns are append-only.
type Turn struct {
	Role    string    `json:"role"` // "user" or "assistant"
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// History keeps per-session conversation turns in memory. Sessions are
// independent; appends never mutate existing turns.
type History struct {
	mu    sync.RWMutex
	limit int
	turns map[string][]Turn
}

// NewHistory creates a history store. limit caps how many recent turns are
// fed back into a prompt; the full transcript is retained.
func NewHistory(limit int) *History {
	return &History{
		limit: limit,
		turns: make(map[string][]Turn),
	}
}

// Append records turns for the session.
func (h *History) Append(session string, turns ...Turn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns[session] = append(h.turns[session], turns...)
}

// Recent returns a copy of the session's last turns, at most the configured
// limit.
func (h *History) Recent(session string) []Turn {
	h.mu.RLock()
	defer h.mu.RUnlock()

	all := h.turns[session]
	if h.limit > 0 && len(all) > h.limit {
		all = all[len(all)-h.limit:]
	}
	out := make([]Turn, len(all))
	copy(out, all)
	return out
}

// Turns returns a copy of the session's full transcript.
func (h *History) Turns(session string) []Turn {
	h.mu.RLock()
	defer h.mu.RUnlock()

	all := h.turns[session]
	out := make([]Turn, len(all))
	copy(out, all)
	return out
}

// Sessions returns the known session keys.
func (h *History) Sessions() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]string, 0, len(h.turns))
	for session := range h.turns {
		out = append(out, session)
	}
	return out
}
