package store

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// Subscriber is one registered chat. Blocked subscribers are excluded from
// all processing regardless of Active; they are never hard-deleted.
type Subscriber struct {
	ID         string // UUID
	ChatID     int64
	Email      string // empty when unset
	Credential []byte // encrypted, empty when unset
	Active     bool
	Blocked    bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// HasCredential reports credential presence without exposing it.
func (s *Subscriber) HasCredential() bool { return len(s.Credential) > 0 }

// ListFilter selects subscribers for admin listing.
type ListFilter string

const (
	FilterAll       ListFilter = "all"
	FilterActive    ListFilter = "active"
	FilterInactive  ListFilter = "inactive"
	FilterBlocked   ListFilter = "blocked"
	FilterUnblocked ListFilter = "unblocked"
)

// ItemKind tags what a fingerprint describes.
type ItemKind string

const (
	KindCourse   ItemKind = "course"
	KindSection  ItemKind = "section"
	KindActivity ItemKind = "activity"
)
