// Package changefeed pushes submission changes to live viewers. Delivery is
// best effort and nothing in the system depends on it for correctness.
package changefeed

import (
	"context"
	"time"

	"github.com/anonto42/photowall/backend/internal/models"
)

type EventType string

const (
	EventInsert EventType = "insert"
	EventUpdate EventType = "update"
	EventDelete EventType = "delete"
)

const TableSubmissions = "submissions"

// Event describes one row change. Old is nil for inserts and New is nil for deletes.
type Event struct {
	Type  EventType          `json:"type"`
	Table string             `json:"table"`
	Old   *models.Submission `json:"old,omitempty"`
	New   *models.Submission `json:"new,omitempty"`
	At    time.Time          `json:"at"`
}

// SubmissionID returns the id of the row the event is about.
func (e Event) SubmissionID() uint {
	if e.New != nil {
		return e.New.ID
	}
	if e.Old != nil {
		return e.Old.ID
	}
	return 0
}

// Filter narrows a subscription. The zero value matches everything.
type Filter struct {
	SubmissionID uint
}

func (f Filter) Match(e Event) bool {
	return f.SubmissionID == 0 || f.SubmissionID == e.SubmissionID()
}

// Feed publishes and fans out change events. Subscribe channels are closed
// once ctx is done.
type Feed interface {
	Publish(ctx context.Context, e Event) error
	Subscribe(ctx context.Context, f Filter) (<-chan Event, error)
}

// Inserted, Updated and Deleted build events stamped with the current time.
func Inserted(sub *models.Submission) Event {
	return Event{Type: EventInsert, Table: TableSubmissions, New: sub, At: time.Now().UTC()}
}

func Updated(old, updated *models.Submission) Event {
	return Event{Type: EventUpdate, Table: TableSubmissions, Old: old, New: updated, At: time.Now().UTC()}
}

func Deleted(old *models.Submission) Event {
	return Event{Type: EventDelete, Table: TableSubmissions, Old: old, At: time.Now().UTC()}
}
