package lifecycle

// Event names a session lifecycle transition request.
type Event string

const (
	EventCheckIn    Event = "check_in"
	EventBegin      Event = "begin"
	EventCheckOut   Event = "check_out"
	EventFinish     Event = "finish"
	EventCancel     Event = "cancel"
	EventPostpone   Event = "postpone"
	EventReschedule Event = "reschedule"
)

// Transition is the outcome of applying an Event: the new session status and
// the resource status the engine must write in the same transaction.
// TouchResource is false for transitions with no resource side effect
// (reschedule re-enters planning without reclaiming the room).
type Transition struct {
	To            SessionStatus
	Resource      ResourceStatus
	TouchResource bool
}

type rule struct {
	from map[SessionStatus]bool
	out  Transition
}

// The transition table. Cancel is only reachable before the patient is on the
// table (scheduled/pre_op/postponed); an in-progress case cannot be cancelled,
// only finished. Postpone releases the room from any non-terminal state.
var rules = map[Event]rule{
	EventCheckIn: {
		from: set(SessionScheduled),
		out:  Transition{To: SessionPreOp, Resource: ResourceInUse, TouchResource: true},
	},
	EventBegin: {
		from: set(SessionScheduled, SessionPreOp),
		out:  Transition{To: SessionInProgress, Resource: ResourceInUse, TouchResource: true},
	},
	EventCheckOut: {
		from: set(SessionInProgress),
		out:  Transition{To: SessionPostOp, Resource: ResourceInUse, TouchResource: true},
	},
	EventFinish: {
		from: set(SessionInProgress, SessionPostOp),
		out:  Transition{To: SessionCompleted, Resource: ResourceCleaning, TouchResource: true},
	},
	EventCancel: {
		from: set(SessionScheduled, SessionPreOp, SessionPostponed),
		out:  Transition{To: SessionCancelled, Resource: ResourceAvailable, TouchResource: true},
	},
	EventPostpone: {
		from: set(SessionScheduled, SessionPreOp, SessionInProgress, SessionPostOp, SessionPostponed),
		out:  Transition{To: SessionPostponed, Resource: ResourceAvailable, TouchResource: true},
	},
	EventReschedule: {
		from: set(SessionPostponed),
		out:  Transition{To: SessionScheduled},
	},
}

func set(ss ...SessionStatus) map[SessionStatus]bool {
	m := make(map[SessionStatus]bool, len(ss))
	for _, s := range ss {
		m[s] = true
	}
	return m
}

// Apply resolves the transition for ev from the current status. It returns
// ErrValidation-wrapped errors for unknown events and disallowed transitions.
func Apply(current SessionStatus, ev Event) (Transition, error) {
	r, ok := rules[ev]
	if !ok {
		return Transition{}, Invalidf("unknown event %q", ev)
	}
	if current.Terminal() {
		return Transition{}, Invalidf("session is %s; no further transitions", current)
	}
	if !r.from[current] {
		return Transition{}, Invalidf("cannot %s a %s session", ev, current)
	}
	return r.out, nil
}

// EventFor maps a requested target status to the event that reaches it. This
// lets the HTTP surface accept a desired status while the engine still runs
// the full transition rules.
func EventFor(target SessionStatus) (Event, error) {
	switch target {
	case SessionPreOp:
		return EventCheckIn, nil
	case SessionInProgress:
		return EventBegin, nil
	case SessionPostOp:
		return EventCheckOut, nil
	case SessionCompleted:
		return EventFinish, nil
	case SessionCancelled:
		return EventCancel, nil
	case SessionPostponed:
		return EventPostpone, nil
	case SessionScheduled:
		return EventReschedule, nil
	default:
		return "", Invalidf("unknown target status %q", target)
	}
}
