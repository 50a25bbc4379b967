package parser

import (
	"encoding/xml"
	"errors"
	"strings"
)

// ErrMalformedRecord is matched by every ParseError.
var ErrMalformedRecord = errors.New("malformed event record")

// ParseError reports a record that is not well-formed XML or lacks an
// expected element or attribute. It is local to a single record.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return ErrMalformedRecord.Error() + ": " + e.Reason + ": " + e.Err.Error()
	}
	return ErrMalformedRecord.Error() + ": " + e.Reason
}

// Unwrap returns the underlying decode error, if any.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrMalformedRecord.
func (e *ParseError) Is(target error) bool {
	return target == ErrMalformedRecord
}

// node is a generic XML element; attribute order is preserved.
type node struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Text     string     `xml:",chardata"`
	Children []node     `xml:",any"`
}

// child returns the first direct child with the given namespace and local name.
func (n *node) child(space, local string) *node {
	for i := range n.Children {
		c := &n.Children[i]
		if c.XMLName.Space == space && c.XMLName.Local == local {
			return c
		}
	}
	return nil
}

// attr returns the named attribute, falling back to the first attribute
// that is not a namespace declaration.
func (n *node) attr(local string) (string, bool) {
	var first *xml.Attr
	for i := range n.Attrs {
		a := &n.Attrs[i]
		if a.Name.Space == "xmlns" || a.Name.Local == "xmlns" {
			continue
		}
		if a.Name.Local == local {
			return a.Value, true
		}
		if first == nil {
			first = a
		}
	}
	if first != nil {
		return first.Value, true
	}
	return "", false
}

// Parse converts a raw record into a ParsedEvent.
func Parse(rec Record) (*ParsedEvent, error) {
	return ParseEvent(rec.XML())
}

// ParseEvent converts the XML text of one event record into a ParsedEvent.
// System and EventData are looked up in the namespace of the root element.
func ParseEvent(data string) (*ParsedEvent, error) {
	var root node
	if err := xml.Unmarshal([]byte(data), &root); err != nil {
		return nil, &ParseError{Reason: "decoding xml", Err: err}
	}

	ns := root.XMLName.Space
	if ns == "" {
		return nil, &ParseError{Reason: "root element <" + root.XMLName.Local + "> has no namespace"}
	}

	system := root.child(ns, "System")
	if system == nil {
		return nil, &ParseError{Reason: "missing System element"}
	}
	eventData := root.child(ns, "EventData")
	if eventData == nil {
		return nil, &ParseError{Reason: "missing EventData element"}
	}
	dataNode := eventData.child(ns, "Data")
	if dataNode == nil {
		return nil, &ParseError{Reason: "missing EventData/Data element"}
	}

	ev := &ParsedEvent{Data: dataNode.Text}

	var err error
	if ev.Provider, err = requireAttr(system, ns, "Provider", "Name"); err != nil {
		return nil, err
	}
	if ev.TimeCreated, err = requireAttr(system, ns, "TimeCreated", "SystemTime"); err != nil {
		return nil, err
	}
	if ev.Timestamp, err = ParseTimestamp(ev.TimeCreated); err != nil {
		return nil, &ParseError{Reason: "TimeCreated", Err: err}
	}
	if ev.Computer, err = requireText(system, ns, "Computer"); err != nil {
		return nil, err
	}
	if ev.Keywords, err = requireText(system, ns, "Keywords"); err != nil {
		return nil, err
	}
	if ev.UserID, err = requireAttr(system, ns, "Security", "UserID"); err != nil {
		return nil, err
	}

	return ev, nil
}

func requireAttr(parent *node, ns, element, attr string) (string, error) {
	n := parent.child(ns, element)
	if n == nil {
		return "", &ParseError{Reason: "missing System/" + element + " element"}
	}
	v, ok := n.attr(attr)
	if !ok {
		return "", &ParseError{Reason: "System/" + element + " has no " + attr + " attribute"}
	}
	return v, nil
}

func requireText(parent *node, ns, element string) (string, error) {
	n := parent.child(ns, element)
	if n == nil {
		return "", &ParseError{Reason: "missing System/" + element + " element"}
	}
	return strings.TrimSpace(n.Text), nil
}
