// Package parser provides event record reading and parsing functionality.
package parser

import "time"

// Record is a raw structured-event record in its native serialization.
type Record interface {
	// XML returns the record's XML text.
	XML() string
}

// RawRecord is a single <Event> element read from an export file.
type RawRecord struct {
	// Content is the original XML text of the record.
	Content string

	// Source is the file path this record came from.
	Source string

	// Index is the 1-based position of the record in its source file.
	Index int
}

// XML returns the record's XML text.
func (r *RawRecord) XML() string {
	return r.Content
}

// ParsedEvent represents a single event record with extracted metadata.
type ParsedEvent struct {
	// Provider is the name of the subsystem that emitted the event.
	Provider string

	// TimeCreated is the creation time exactly as written in the record.
	TimeCreated string

	// Timestamp is TimeCreated parsed to second precision (UTC).
	Timestamp time.Time

	// Computer is the host the event was recorded on.
	Computer string

	// Keywords is the record's keyword mask text.
	Keywords string

	// UserID is the security identifier of the emitting user.
	UserID string

	// Data is the raw text of the event-specific data block.
	Data string
}
