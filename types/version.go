package types

import (
	"cmp"
	"fmt"
)

// Epoch is a cluster map epoch.
type Epoch uint32

// Version is the version of an object: the map epoch it was written in and a
// counter increasing with each write.
type Version struct {
	Epoch   uint64
	Counter uint64
}

func (v Version) String() string {
	return fmt.Sprintf("%d'%d", v.Epoch, v.Counter)
}

// Compare orders versions by epoch, then by counter.
func (v Version) Compare(other Version) int {
	if c := cmp.Compare(v.Epoch, other.Epoch); c != 0 {
		return c
	}
	return cmp.Compare(v.Counter, other.Counter)
}

// Action is the kind of object mutation applied to a tree.
type Action uint8

const (
	// Create adds a new object version.
	Create Action = iota
	// Modify replaces the previous object version with the current one.
	Modify
	// Delete removes the previous object version.
	Delete
)

func (a Action) String() string {
	switch a {
	case Create:
		return "create"
	case Modify:
		return "modify"
	case Delete:
		return "delete"
	default:
		return fmt.Sprintf("<unknown action %d>", uint8(a))
	}
}

// Valid reports whether a is one of the known actions.
func (a Action) Valid() bool {
	return a <= Delete
}
