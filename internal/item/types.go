package item

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Priority classifies how important a context item is.
// The set is closed: the store and the watch filter validator both
// reject values outside it.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

// ValidPriorities lists the accepted priority values in display order.
var ValidPriorities = []Priority{PriorityHigh, PriorityNormal, PriorityLow}

// Valid reports whether p is one of the accepted priority values.
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityNormal, PriorityLow:
		return true
	}
	return false
}

// ParsePriority converts a user-supplied string to a Priority.
// The empty string maps to PriorityNormal.
func ParsePriority(s string) (Priority, error) {
	if s == "" {
		return PriorityNormal, nil
	}
	p := Priority(strings.ToLower(s))
	if !p.Valid() {
		return "", fmt.Errorf("invalid priority %q: must be one of %v", s, ValidPriorities)
	}
	return p, nil
}

// ChangeType identifies the kind of mutation a Change records.
type ChangeType string

const (
	ChangeCreate ChangeType = "CREATE"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
)

// DefaultChannel is the channel assigned to items saved without an
// explicit channel.
const DefaultChannel = "default"

// Item is a single context item owned by a session.
// (SessionID, Key) is the item's identity; saving the same key again
// updates the existing item.
type Item struct {
	SessionID string
	Key       string
	Value     string
	Category  string
	Priority  Priority
	Channel   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks that the item can be persisted.
func (it Item) Validate() error {
	if it.SessionID == "" {
		return fmt.Errorf("item session id must not be empty")
	}
	if it.Key == "" {
		return fmt.Errorf("item key must not be empty")
	}
	if it.Priority != "" && !it.Priority.Valid() {
		return fmt.Errorf("invalid priority %q: must be one of %v", it.Priority, ValidPriorities)
	}
	return nil
}

// Change is one immutable entry in the change log.
//
// Seq is assigned by the store at write time and is the sole ordering
// authority; CreatedAt is informational only. Category, Priority, and
// Channel are copied from the item at mutation time (for deletes, from
// the item's last state before removal) so matching never needs to
// re-read the item.
type Change struct {
	Seq       int64
	SessionID string
	Key       string
	Type      ChangeType
	Category  string
	Priority  Priority
	Channel   string
	CreatedAt time.Time
}

// NormalizeKey returns the NFC normal form of an item key or key
// pattern. All keys are normalized before storage and all patterns
// before matching, so equal-looking Unicode keys cannot diverge.
func NormalizeKey(key string) string {
	return norm.NFC.String(key)
}
