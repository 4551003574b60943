// Package lifecycle holds the shared state machine for exclusively-allocated
// clinical resources (operating theatres, dialysis machines) and the sessions
// that claim them. Everything in this package is pure: no I/O, no clocks other
// than timestamps passed in, so the transition rules can be tested exhaustively.
package lifecycle

import "time"

// ResourceStatus is the availability state of a physical resource.
type ResourceStatus string

const (
	ResourceAvailable   ResourceStatus = "available"
	ResourceInUse       ResourceStatus = "in_use"
	ResourceMaintenance ResourceStatus = "maintenance"
	ResourceCleaning    ResourceStatus = "cleaning"
	ResourceReserved    ResourceStatus = "reserved"
)

var resourceStatuses = map[ResourceStatus]bool{
	ResourceAvailable: true, ResourceInUse: true, ResourceMaintenance: true,
	ResourceCleaning: true, ResourceReserved: true,
}

// ValidResourceStatus reports whether s is a known resource status.
func ValidResourceStatus(s ResourceStatus) bool { return resourceStatuses[s] }

// SessionStatus is the lifecycle state of a session (surgery, dialysis run).
type SessionStatus string

const (
	SessionScheduled  SessionStatus = "scheduled"
	SessionPreOp      SessionStatus = "pre_op"
	SessionInProgress SessionStatus = "in_progress"
	SessionPostOp     SessionStatus = "post_op"
	SessionCompleted  SessionStatus = "completed"
	SessionCancelled  SessionStatus = "cancelled"
	SessionPostponed  SessionStatus = "postponed"
)

var sessionStatuses = map[SessionStatus]bool{
	SessionScheduled: true, SessionPreOp: true, SessionInProgress: true,
	SessionPostOp: true, SessionCompleted: true, SessionCancelled: true,
	SessionPostponed: true,
}

// ValidSessionStatus reports whether s is a known session status.
func ValidSessionStatus(s SessionStatus) bool { return sessionStatuses[s] }

// Terminal reports whether s admits no further transitions.
func (s SessionStatus) Terminal() bool {
	return s == SessionCompleted || s == SessionCancelled
}

// Active reports whether a session in state s holds its resource. A resource
// must read in_use exactly while one of its sessions is active.
func (s SessionStatus) Active() bool {
	return s == SessionPreOp || s == SessionInProgress || s == SessionPostOp
}

// ActiveSessionStatuses lists the states during which a session holds its
// resource, in lifecycle order. Exposed for SQL IN-clauses.
func ActiveSessionStatuses() []SessionStatus {
	return []SessionStatus{SessionPreOp, SessionInProgress, SessionPostOp}
}

// Priority is the clinical urgency label stored on a session. Its lexical
// order does not match urgency order; use Weight for ordering.
type Priority string

const (
	PriorityEmergency Priority = "emergency"
	PriorityUrgent    Priority = "urgent"
	PriorityElective  Priority = "elective"
)

var priorityWeights = map[Priority]int{
	PriorityEmergency: 0,
	PriorityUrgent:    1,
	PriorityElective:  2,
}

// ValidPriority reports whether p is a known priority label.
func ValidPriority(p Priority) bool {
	_, ok := priorityWeights[p]
	return ok
}

// Weight returns the ordering weight for p: emergency < urgent < elective.
// Unknown labels sort after all known ones.
func (p Priority) Weight() int {
	if w, ok := priorityWeights[p]; ok {
		return w
	}
	return len(priorityWeights)
}

// Duration returns the session duration in whole minutes, rounded half-up,
// or nil when the start timestamp was never recorded. A finish without a
// recorded start is permitted and simply yields no duration.
func Duration(start, end *time.Time) *int {
	if start == nil || end == nil {
		return nil
	}
	mins := int(end.Sub(*start).Round(time.Minute) / time.Minute)
	return &mins
}
