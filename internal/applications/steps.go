package applications

import (
	"math"

	"admissions-backend/internal/universities"
)

// NavigationPolicy decides whether a jump to the given step is allowed.
// The default policy permits free navigation: step indicators are always
// selectable and gating applies to completion, not to viewing a step.
type NavigationPolicy func(seq *Sequencer, stepKey string) bool

// FreeNavigation allows jumping to any enabled step.
func FreeNavigation(*Sequencer, string) bool { return true }

// Sequencer walks an application through its university's enabled steps.
// It is a pure in-memory structure hydrated from stored progress.
type Sequencer struct {
	steps     []string
	current   int
	completed map[string]struct{}
	policy    NavigationPolicy
}

// NewSequencer builds a sequencer over the enabled steps. currentKey and
// completed come from stored progress; an unknown currentKey falls back to
// the first step.
func NewSequencer(steps []string, currentKey string, completed []string) (*Sequencer, error) {
	if len(steps) == 0 {
		return nil, ErrNoStepsConfigured
	}

	seq := &Sequencer{
		steps:     append([]string(nil), steps...),
		completed: make(map[string]struct{}, len(completed)),
		policy:    FreeNavigation,
	}
	for _, key := range completed {
		if seq.indexOf(key) >= 0 {
			seq.completed[key] = struct{}{}
		}
	}
	if idx := seq.indexOf(currentKey); idx >= 0 {
		seq.current = idx
	}
	return seq, nil
}

// SetPolicy replaces the navigation policy.
func (s *Sequencer) SetPolicy(p NavigationPolicy) {
	if p != nil {
		s.policy = p
	}
}

// CurrentStep returns the key of the step the student is on.
func (s *Sequencer) CurrentStep() string {
	return s.steps[s.current]
}

// Steps returns the enabled step keys in order.
func (s *Sequencer) Steps() []string {
	return append([]string(nil), s.steps...)
}

// CanNavigateTo reports whether a jump to stepKey is permitted.
func (s *Sequencer) CanNavigateTo(stepKey string) bool {
	if s.indexOf(stepKey) < 0 {
		return false
	}
	return s.policy(s, stepKey)
}

// GoTo jumps to stepKey. Unknown or disabled steps leave the sequencer
// unchanged and report false.
func (s *Sequencer) GoTo(stepKey string) bool {
	idx := s.indexOf(stepKey)
	if idx < 0 || !s.policy(s, stepKey) {
		return false
	}
	s.current = idx
	return true
}

// Advance moves to the next enabled step; no-op on the last step.
func (s *Sequencer) Advance() {
	if s.current < len(s.steps)-1 {
		s.current++
	}
}

// Retreat moves to the previous enabled step; no-op on the first step.
func (s *Sequencer) Retreat() {
	if s.current > 0 {
		s.current--
	}
}

// MarkCompleted records a step as done. Idempotent; unknown keys are ignored.
func (s *Sequencer) MarkCompleted(stepKey string) {
	if s.indexOf(stepKey) < 0 {
		return
	}
	s.completed[stepKey] = struct{}{}
}

// MarkIncomplete clears a step's completion, e.g. when a verified document
// checklist regresses after a rejection.
func (s *Sequencer) MarkIncomplete(stepKey string) {
	delete(s.completed, stepKey)
}

// IsCompleted reports whether the step has been marked done.
func (s *Sequencer) IsCompleted(stepKey string) bool {
	_, ok := s.completed[stepKey]
	return ok
}

// CompletedSteps returns completed step keys in enabled order.
func (s *Sequencer) CompletedSteps() []string {
	out := make([]string, 0, len(s.completed))
	for _, key := range s.steps {
		if _, ok := s.completed[key]; ok {
			out = append(out, key)
		}
	}
	return out
}

// MissingSteps returns enabled steps not yet completed, excluding the given keys.
func (s *Sequencer) MissingSteps(exclude ...string) []string {
	skip := make(map[string]struct{}, len(exclude))
	for _, key := range exclude {
		skip[key] = struct{}{}
	}
	out := []string{}
	for _, key := range s.steps {
		if _, ok := skip[key]; ok {
			continue
		}
		if _, done := s.completed[key]; !done {
			out = append(out, key)
		}
	}
	return out
}

// ProgressPercent returns completed/enabled * 100 rounded to one decimal.
func (s *Sequencer) ProgressPercent() float64 {
	if len(s.steps) == 0 {
		return 0
	}
	pct := float64(len(s.completed)) / float64(len(s.steps)) * 100
	return math.Round(pct*10) / 10
}

// Label returns the display label for a step key.
func Label(stepKey string) string {
	return universities.StepLabels[stepKey]
}

func (s *Sequencer) indexOf(stepKey string) int {
	for i, key := range s.steps {
		if key == stepKey {
			return i
		}
	}
	return -1
}
