// Package analyzer locates the most recent anchor fault in an event log and
// correlates the error codes that preceded it.
package analyzer

import (
	"time"
)

// State is the position of a CorrelationEngine in its lifecycle.
type State int

const (
	// StateSeeking means no anchor event has been found yet.
	StateSeeking State = iota
	// StateScanning means the anchor is known and older events are accumulated.
	StateScanning
	// StateClosed is terminal: the correlation window has been decided.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateSeeking:
		return "seeking"
	case StateScanning:
		return "scanning"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Category is the subsystem family encoded in an error-code token.
type Category int

const (
	CategoryAPI    Category = 0 // APIBased
	CategoryLCS    Category = 1 // LCSBased
	CategoryUnused Category = 2
	CategoryVPS    Category = 3 // VPSBased
)

func (c Category) String() string {
	switch c {
	case CategoryAPI:
		return "APIBased"
	case CategoryLCS:
		return "LCSBased"
	case CategoryUnused:
		return "Unused"
	case CategoryVPS:
		return "VPSBased"
	default:
		return "unknown"
	}
}

// ErrorCodeKey identifies an error code. Two keys are equal iff their
// tokens are equal.
type ErrorCodeKey struct {
	Category Category
	Offset   uint8

	token string
}

// Token returns the full token text, e.g. "0x20001105".
func (k ErrorCodeKey) Token() string {
	return k.token
}

func (k ErrorCodeKey) String() string {
	return k.token
}

// OpenErrorEntry is an error code seen inside the window and not yet
// resolved by a matching set/cleared pair.
type OpenErrorEntry struct {
	Code ErrorCodeKey

	// TimeBefore is the distance to the reference timestamp, in seconds,
	// at first sighting.
	TimeBefore int

	Computer string
	Keywords string
	UserID   string

	// Metadata holds the <string> blocks of the first sighting, in order.
	Metadata []string

	// Description is the text following the code on the EW line.
	Description string

	// Repeat counts sightings after the first, less resolved pairs.
	// It is never negative.
	Repeat int
}

// Anchor describes the event that opened the correlation window.
type Anchor struct {
	// Error is the matched signature text.
	Error string

	// TimeCreated is the anchor's creation time as written in the record.
	TimeCreated string

	// Timestamp is TimeCreated parsed to second precision.
	Timestamp time.Time

	Computer string
	Keywords string
	UserID   string
}

// Terminal is a snapshot of an engine's state once scanning stops.
type Terminal struct {
	State State

	// Anchor is nil when no anchor event was found.
	Anchor *Anchor

	// Entries holds the surviving open errors in first-sighting order.
	Entries []OpenErrorEntry

	// ErrorRepeat counts recurrences of the anchor signature inside the window.
	ErrorRepeat int

	// TablePresent records whether a troubleshooting table could be consulted.
	TablePresent bool

	// Exhausted is set when the input ran out before the window closed.
	// Entries collected in an unclosed window are not part of the episode.
	Exhausted bool
}

// HasAnchor reports whether an anchor event was found.
func (t *Terminal) HasAnchor() bool {
	return t != nil && t.Anchor != nil
}
