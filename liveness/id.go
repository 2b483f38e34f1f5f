package liveness

import (
	"github.com/google/uuid"
)

// RuntimeID identifies one scripting runtime instance.
// It is a non-owning value: holding it never keeps the runtime alive.
// Two identities are equal only if they were produced by the same NewID call.
type RuntimeID struct {
	id    uuid.UUID
	label string
}

// NewID returns a fresh identity. The label is used for diagnostics only.
func NewID(label string) RuntimeID {
	return RuntimeID{id: uuid.New(), label: label}
}

// IsZero reports whether id is the zero identity, which is never alive.
func (id RuntimeID) IsZero() bool {
	return id.id == uuid.Nil
}

// Label returns the diagnostic label.
func (id RuntimeID) Label() string {
	return id.label
}

func (id RuntimeID) String() string {
	if id.IsZero() {
		return "<none>"
	}
	short := id.id.String()[:8]
	if id.label == "" {
		return short
	}
	return id.label + "#" + short
}
