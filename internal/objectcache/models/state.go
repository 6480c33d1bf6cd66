package models

// ResolveState is the lifecycle stage of an adapter's content relative to
// the backing store.
//
// Transitions:
//   - Transient -> Resolved (persistence promotion)
//   - Ghost -> Resolved (load)
//
// Value, Standalone and Resolved are terminal.
type ResolveState string

const (
	StateValue      ResolveState = "value"
	StateStandalone ResolveState = "standalone"
	StateTransient  ResolveState = "transient"
	StateGhost      ResolveState = "ghost"
	StateResolved   ResolveState = "resolved"
)

func (s ResolveState) IsValid() bool {
	switch s {
	case StateValue, StateStandalone, StateTransient, StateGhost, StateResolved:
		return true
	}
	return false
}

// CanTransitionTo reports whether s may move to next.
func (s ResolveState) CanTransitionTo(next ResolveState) bool {
	switch s {
	case StateTransient, StateGhost:
		return next == StateResolved
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s ResolveState) IsTerminal() bool {
	return s == StateValue || s == StateStandalone || s == StateResolved
}

// IsIndexed reports whether adapters in state s are tracked by the cache.
func (s ResolveState) IsIndexed() bool {
	return s != StateValue && s != StateStandalone
}

func (s ResolveState) String() string {
	return string(s)
}
