package session

// EventKind identifies a session event.
type EventKind int

const (
	// EventStopped is published when a new Stop has been minted.
	EventStopped EventKind = iota

	// EventResumed is published after the current Stop was invalidated by
	// a resume.
	EventResumed

	// EventExited is published when the debuggee terminates.
	EventExited

	// EventDisconnected is published when the connection to the debug
	// server is gone.
	EventDisconnected
)

// String returns a human-readable event kind name.
func (k EventKind) String() string {
	switch k {
	case EventStopped:
		return "stopped"
	case EventResumed:
		return "resumed"
	case EventExited:
		return "exited"
	case EventDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Event is a session state change delivered to subscribers in order.
type Event struct {
	Kind EventKind

	// Stop is the freshly minted stop for EventStopped and the invalidated
	// stop for EventResumed. Nil otherwise.
	Stop *Stop

	// ExitCode is set for EventExited.
	ExitCode int
}

// Subscribe registers a subscriber and returns its channel plus a cancel
// function. Events are delivered in publish order; a subscriber that stops
// draining loses events rather than blocking the pump. Cancel closes the
// channel.
func (s *Session) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, s.subDepth)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	count := len(s.subs)
	s.mu.Unlock()
	s.log.Debug("session subscribe, subs=%d", count)

	return ch, func() {
		// Removal and close happen under the same lock publish sends
		// under, so a send can never race the close.
		s.mu.Lock()
		if _, ok := s.subs[ch]; ok {
			delete(s.subs, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
}

// publish fans an event out to all subscribers. Sends are non-blocking and
// happen under the lock.
func (s *Session) publish(ev Event) {
	s.mu.Lock()
	dropped := 0
	for sub := range s.subs {
		select {
		case sub <- ev:
		default:
			dropped++
		}
	}
	s.mu.Unlock()

	if dropped > 0 {
		s.log.Warn("session event dropped, kind=%s subs=%d", ev.Kind, dropped)
	}
}
