// Package intent defines the events that flow through the store and the
// effect runner. An event names what happened; slices decide what it means
// for their state and handlers decide what work it starts.
package intent

import "strings"

// Type identifies an event, namespaced by slice ("songs/fetchRequest").
type Type string

// Event is a user- or system-triggered action, or the terminal outcome of one.
type Event struct {
	Type    Type
	Payload interface{}
}

// New creates an event.
func New(t Type, payload interface{}) Event {
	return Event{Type: t, Payload: payload}
}

// Slice returns the namespace portion of the type.
func (t Type) Slice() string {
	if i := strings.IndexByte(string(t), '/'); i >= 0 {
		return string(t[:i])
	}
	return ""
}

// IsRequest reports whether the type starts an asynchronous lifecycle.
func (t Type) IsRequest() bool {
	return strings.HasSuffix(string(t), "Request")
}

// IsTerminal reports whether the type ends an asynchronous lifecycle.
func (t Type) IsTerminal() bool {
	return strings.HasSuffix(string(t), "Success") || strings.HasSuffix(string(t), "Failure")
}

// FailureMessage returns the message carried by a failure event, if any.
func FailureMessage(ev Event) (string, bool) {
	if !strings.HasSuffix(string(ev.Type), "Failure") {
		return "", false
	}
	msg, ok := ev.Payload.(string)
	return msg, ok
}
