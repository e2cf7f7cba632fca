package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// EventKind is the kind of a document event.
type EventKind int

const (
	EventNone EventKind = iota
	EventSequenceStart
	EventSequenceEnd
	EventMappingStart
	EventMappingEnd
	EventScalar
)

func (k EventKind) String() string {
	switch k {
	case EventSequenceStart:
		return "sequence start"
	case EventSequenceEnd:
		return "sequence end"
	case EventMappingStart:
		return "mapping start"
	case EventMappingEnd:
		return "mapping end"
	case EventScalar:
		return "scalar"
	}
	return "end of document"
}

// Event is a single step of a flattened document.
type Event struct {
	Kind  EventKind
	Value string // scalar text, empty for structural events
	Line  int
}

// Cursor walks a YAML node tree as a stream of events.
type Cursor struct {
	events []Event
	pos    int
}

// NewCursor flattens node into events. Document and alias nodes are
// resolved to their content.
func NewCursor(node *yaml.Node) *Cursor {
	c := &Cursor{}
	c.flatten(node)
	return c
}

func (c *Cursor) flatten(n *yaml.Node) {
	if n == nil {
		return
	}
	switch n.Kind {
	case yaml.DocumentNode:
		for _, child := range n.Content {
			c.flatten(child)
		}
	case yaml.AliasNode:
		c.flatten(n.Alias)
	case yaml.SequenceNode:
		c.events = append(c.events, Event{Kind: EventSequenceStart, Line: n.Line})
		for _, child := range n.Content {
			c.flatten(child)
		}
		c.events = append(c.events, Event{Kind: EventSequenceEnd, Line: n.Line})
	case yaml.MappingNode:
		c.events = append(c.events, Event{Kind: EventMappingStart, Line: n.Line})
		for _, child := range n.Content {
			c.flatten(child)
		}
		c.events = append(c.events, Event{Kind: EventMappingEnd, Line: n.Line})
	case yaml.ScalarNode:
		c.events = append(c.events, Event{Kind: EventScalar, Value: n.Value, Line: n.Line})
	}
}

func (c *Cursor) peek() Event {
	if c.pos >= len(c.events) {
		line := 0
		if len(c.events) > 0 {
			line = c.events[len(c.events)-1].Line
		}
		return Event{Kind: EventNone, Line: line}
	}
	return c.events[c.pos]
}

// Line returns the document line of the next event.
func (c *Cursor) Line() int {
	return c.peek().Line
}

// Expect consumes the next event, which must be of the given kind.
// It returns the scalar text of the event.
func (c *Cursor) Expect(kind EventKind) (string, error) {
	ev := c.peek()
	if ev.Kind != kind {
		return "", &Error{
			Line: ev.Line,
			Msg:  fmt.Sprintf("expected %s, found %s", kind, ev.Kind),
		}
	}
	c.pos++
	return ev.Value, nil
}

// Accept consumes the next event only if it is of the given kind.
func (c *Cursor) Accept(kind EventKind) (string, bool) {
	ev := c.peek()
	if ev.Kind != kind {
		return "", false
	}
	c.pos++
	return ev.Value, true
}
