// Package feed provides the realtime change feed: an in-process fan-out hub
// plus bridges that carry row changes from Postgres or NATS into it.
package feed

import (
	"encoding/json"
	"fmt"
)

// EventType is the kind of row change.
type EventType string

// Row change kinds. EventResync is synthetic: it tells subscribers that
// changes may have been missed and local state should be refetched.
const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
	EventResync EventType = "RESYNC"
)

// Tables carried on the feed.
const (
	TableTargets   = "targets"
	TableRatings   = "ratings"
	TableChat      = "chat_messages"
	TableQuestions = "questions"
	TableSettings  = "settings"
	TableResumes   = "resumes"
)

// Change is one row change broadcast to subscribers.
type Change struct {
	Type   EventType       `json:"type"`
	Table  string          `json:"table"`
	ID     string          `json:"id,omitempty"`
	Target string          `json:"target,omitempty"`
	Row    json.RawMessage `json:"row,omitempty"`
}

// NewChange builds a Change carrying row encoded as JSON.
func NewChange(eventType EventType, table, id, target string, row any) (Change, error) {
	c := Change{Type: eventType, Table: table, ID: id, Target: target}
	if row != nil {
		data, err := json.Marshal(row)
		if err != nil {
			return Change{}, fmt.Errorf("failed to encode %s row: %w", table, err)
		}
		c.Row = data
	}
	return c, nil
}

// Decode unmarshals the row payload into v.
func (c Change) Decode(v any) error {
	if len(c.Row) == 0 {
		return fmt.Errorf("change on %s has no row", c.Table)
	}
	if err := json.Unmarshal(c.Row, v); err != nil {
		return fmt.Errorf("failed to decode %s row: %w", c.Table, err)
	}
	return nil
}

// Filter narrows a subscription. Empty fields match everything.
// The target filter is coarse: changes without a target always pass.
type Filter struct {
	Table  string `json:"table,omitempty"`
	Target string `json:"target,omitempty"`
}

// Match reports whether c passes the filter. Resync markers always pass.
func (f Filter) Match(c Change) bool {
	if c.Type == EventResync {
		return true
	}
	if f.Table != "" && f.Table != c.Table {
		return false
	}
	if f.Target != "" && c.Target != "" && f.Target != c.Target {
		return false
	}
	return true
}

// Publisher accepts changes for delivery to subscribers.
type Publisher interface {
	Publish(c Change)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(c Change)

// Publish calls f(c).
func (f PublisherFunc) Publish(c Change) { f(c) }

// Nop discards changes. It is used when the database triggers are the
// source of the feed.
var Nop Publisher = PublisherFunc(func(Change) {})
