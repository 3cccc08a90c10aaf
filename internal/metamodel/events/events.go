// Package events publishes domain events for member interactions.
//
// Subscribers registered for an event name may hide, disable or veto the member the event belongs
// to, and observe action execution.
package events

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/causeway-lang/causeway/internal/metamodel/feature"
)

// Phase is the stage of an interaction an event is posted for
type Phase int

const (
	// PhaseHide asks subscribers whether the member should be hidden
	PhaseHide Phase = iota
	// PhaseDisable asks subscribers whether the member should be disabled
	PhaseDisable
	// PhaseValidate asks subscribers whether the proposed value or arguments are acceptable
	PhaseValidate
	// PhaseExecuting is posted before an action runs or a property is modified
	PhaseExecuting
	// PhaseExecuted is posted after an action ran or a property was modified
	PhaseExecuted
)

// String returns the string representation of the phase
func (p Phase) String() string {
	switch p {
	case PhaseHide:
		return "HIDE"
	case PhaseDisable:
		return "DISABLE"
	case PhaseValidate:
		return "VALIDATE"
	case PhaseExecuting:
		return "EXECUTING"
	case PhaseExecuted:
		return "EXECUTED"
	default:
		return "UNKNOWN"
	}
}

// IsCheck is true for the phases that can veto
func (p Phase) IsCheck() bool {
	return p == PhaseHide || p == PhaseDisable || p == PhaseValidate
}

// Event is posted to the subscribers of Name
type Event struct {
	Name       string
	Phase      Phase
	Identifier feature.Identifier
	Source     interface{}
	Proposed   interface{}
	Args       []interface{}
	Result     interface{}

	hidden      bool
	disabled    string
	invalidated string
}

// Hide vetoes visibility during PhaseHide
func (e *Event) Hide() {
	e.hidden = true
}

// Disable vetoes usability during PhaseDisable
func (e *Event) Disable(reason string) {
	e.disabled = reason
}

// Invalidate vetoes the proposal during PhaseValidate
func (e *Event) Invalidate(reason string) {
	e.invalidated = reason
}

// IsHidden reports whether a subscriber hid the member
func (e *Event) IsHidden() bool { return e.hidden }

// DisabledReason is the reason given to Disable, if any
func (e *Event) DisabledReason() string { return e.disabled }

// InvalidReason is the reason given to Invalidate, if any
func (e *Event) InvalidReason() string { return e.invalidated }

// Subscriber receives events; it may veto check phases
type Subscriber func(e *Event) error

type subscription struct {
	priority int
	seq      int
	fn       Subscriber
}

// Bus dispatches events to subscribers by name; the wildcard name "*" receives every event
type Bus struct {
	mu     sync.RWMutex
	subs   map[string][]subscription
	seq    int
	logger *zap.Logger
}

// NewBus creates an event bus
func NewBus(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		subs:   make(map[string][]subscription),
		logger: logger,
	}
}

// Subscribe registers fn for name; lower priorities run first, equal priorities in subscription order
func (b *Bus) Subscribe(name string, priority int, fn Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	list := append(b.subs[name], subscription{priority: priority, seq: b.seq, fn: fn})
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].priority != list[j].priority {
			return list[i].priority < list[j].priority
		}
		return list[i].seq < list[j].seq
	})
	b.subs[name] = list
}

// HasSubscribers reports whether anything would receive events called name
func (b *Bus) HasSubscribers(name string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[name]) > 0 || len(b.subs["*"]) > 0
}

// Post delivers e to its subscribers in order. Check phases stop at the first veto; a subscriber
// error stops delivery and is returned.
func (b *Bus) Post(e *Event) error {
	b.mu.RLock()
	subs := make([]subscription, 0, len(b.subs[e.Name])+len(b.subs["*"]))
	subs = append(subs, b.subs[e.Name]...)
	subs = append(subs, b.subs["*"]...)
	b.mu.RUnlock()

	for _, s := range subs {
		if err := s.fn(e); err != nil {
			b.logger.Warn("event subscriber failed",
				zap.String("event", e.Name),
				zap.Stringer("phase", e.Phase),
				zap.Error(err))
			return fmt.Errorf("subscriber for %s (%s) failed: %w", e.Name, e.Phase, err)
		}
		if e.Phase.IsCheck() && e.vetoed() {
			break
		}
	}
	return nil
}

func (e *Event) vetoed() bool {
	return e.hidden || e.disabled != "" || e.invalidated != ""
}
