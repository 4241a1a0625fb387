package watcher

import (
	"time"

	"github.com/google/uuid"
)

// Op is the kind of change an Event reports.
type Op int

const (
	// OpIndex means the note was created or written and should be (re)indexed.
	OpIndex Op = iota
	// OpRemove means the note was deleted or renamed away.
	OpRemove
	// OpRemoveTree means a watched directory was deleted or renamed away; Path is the
	// directory and every note under it is gone.
	OpRemoveTree
)

func (o Op) String() string {
	switch o {
	case OpIndex:
		return "index"
	case OpRemove:
		return "remove"
	case OpRemoveTree:
		return "remove_tree"
	default:
		return "unknown"
	}
}

// Event is one note change, delivered in the order it was observed.
type Event struct {
	ID   uuid.UUID
	Op   Op
	Path string
	At   time.Time
}

func newEvent(op Op, path string) Event {
	return Event{ID: uuid.New(), Op: op, Path: path, At: time.Now()}
}
