package exams

import (
	"sync"
	"time"
)

// ExpireFunc finalizes an attempt whose clock ran out.
type ExpireFunc func(attemptID string)

// Session is the in-process countdown for one in_progress attempt. All state
// changes go through its mutex; the status check-and-set is the single claim
// that decides the manual-submit versus timeout race.
type Session struct {
	mu        sync.Mutex
	attemptID string
	remaining int
	status    string
	ticker    *time.Ticker
	stop      chan struct{}
	onExpire  ExpireFunc
}

// Tick decrements the clock by one second. At zero it claims the timeout
// transition and fires onExpire exactly once; ticks after any claim are no-ops.
func (s *Session) Tick() {
	s.mu.Lock()
	if s.status != StatusInProgress {
		s.mu.Unlock()
		return
	}
	s.remaining--
	if s.remaining > 0 {
		s.mu.Unlock()
		return
	}
	s.status = StatusSubmittedOnTimeout
	s.cancelLocked()
	s.mu.Unlock()

	if s.onExpire != nil {
		s.onExpire(s.attemptID)
	}
}

// Claim attempts the in_progress → status transition. The loser of a race
// observes false and must do nothing.
func (s *Session) Claim(status string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusInProgress {
		return false
	}
	s.status = status
	s.cancelLocked()
	return true
}

// Remaining returns the seconds left on the session clock.
func (s *Session) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remaining
}

// cancelLocked stops the ticker the moment status leaves in_progress, so a
// stray tick can never fire after a manual submit.
func (s *Session) cancelLocked() {
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
}

func (s *Session) run(ticker *time.Ticker, stop chan struct{}) {
	for {
		select {
		case <-ticker.C:
			s.Tick()
		case <-stop:
			return
		}
	}
}

// Engine owns the live sessions of this process. Persistence keeps its own
// status guard, so an untracked attempt (after a restart) falls through to
// the storage-level claim.
type Engine struct {
	mu       sync.Mutex
	sessions map[string]*Session
	onExpire ExpireFunc
}

// NewEngine constructs an Engine. onExpire runs outside any engine lock.
func NewEngine(onExpire ExpireFunc) *Engine {
	return &Engine{
		sessions: make(map[string]*Session),
		onExpire: onExpire,
	}
}

// Track starts a 1-second cadence countdown for the attempt.
func (e *Engine) Track(attemptID string, remainingSeconds int) *Session {
	sess := &Session{
		attemptID: attemptID,
		remaining: remainingSeconds,
		status:    StatusInProgress,
	}
	sess.onExpire = func(id string) {
		e.drop(id)
		if e.onExpire != nil {
			e.onExpire(id)
		}
	}

	e.mu.Lock()
	if existing, ok := e.sessions[attemptID]; ok {
		e.mu.Unlock()
		return existing
	}
	e.sessions[attemptID] = sess
	e.mu.Unlock()

	ticker := time.NewTicker(time.Second)
	stop := make(chan struct{})
	sess.mu.Lock()
	sess.ticker = ticker
	sess.stop = stop
	sess.mu.Unlock()
	go sess.run(ticker, stop)

	return sess
}

// Claim resolves the manual-submit side of the race. Attempts not tracked in
// this process claim true here and rely on the storage-level status guard.
func (e *Engine) Claim(attemptID, status string) bool {
	e.mu.Lock()
	sess, ok := e.sessions[attemptID]
	e.mu.Unlock()
	if !ok {
		return true
	}
	claimed := sess.Claim(status)
	if claimed {
		e.drop(attemptID)
	}
	return claimed
}

// Release stops tracking without claiming, e.g. on shutdown.
func (e *Engine) Release(attemptID string) {
	e.mu.Lock()
	sess, ok := e.sessions[attemptID]
	delete(e.sessions, attemptID)
	e.mu.Unlock()
	if ok {
		sess.mu.Lock()
		sess.cancelLocked()
		sess.mu.Unlock()
	}
}

func (e *Engine) drop(attemptID string) {
	e.mu.Lock()
	delete(e.sessions, attemptID)
	e.mu.Unlock()
}
