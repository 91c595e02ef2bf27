// Package notify delivers best-effort notifications about marketplace events.
// Events are queued after the triggering transaction commits and delivered by
// a single worker; a failing sink is logged and never reaches the caller.
package notify

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	BidCreated       Kind = "BID_CREATED"       // to the project's buyer
	BidAccepted      Kind = "BID_ACCEPTED"      // to the chosen seller
	BidRejected      Kind = "BID_REJECTED"      // to every other bidder
	ProjectCompleted Kind = "PROJECT_COMPLETED" // to the assigned seller
)

type Event struct {
	Kind Kind `json:"kind"`

	// recipient
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"-"`
	Name   string    `json:"-"`

	ProjectID    uuid.UUID  `json:"project_id"`
	ProjectTitle string     `json:"project_title"`
	BidID        *uuid.UUID `json:"bid_id,omitempty"`
	Amount       int64      `json:"amount,omitempty"`
	ActorName    string     `json:"actor_name,omitempty"`

	OccurredAt time.Time `json:"occurred_at"`
}

// Emitter is what services depend on. Emit must not block.
type Emitter interface {
	Emit(Event)
}

// Nop drops every event.
type Nop struct{}

func (Nop) Emit(Event) {}

func (e Event) Title() string {
	switch e.Kind {
	case BidCreated:
		return fmt.Sprintf("New bid on %q", e.ProjectTitle)
	case BidAccepted:
		return fmt.Sprintf("Your bid on %q was accepted", e.ProjectTitle)
	case BidRejected:
		return fmt.Sprintf("Your bid on %q was not selected", e.ProjectTitle)
	case ProjectCompleted:
		return fmt.Sprintf("Project %q was marked completed", e.ProjectTitle)
	default:
		return "Marketplace update"
	}
}

func (e Event) Body() string {
	switch e.Kind {
	case BidCreated:
		return fmt.Sprintf("%s placed a bid of %d on your project %q.", e.ActorName, e.Amount, e.ProjectTitle)
	case BidAccepted:
		return fmt.Sprintf("%s accepted your bid of %d. The project is now in progress.", e.ActorName, e.Amount)
	case BidRejected:
		return fmt.Sprintf("The buyer selected another bid for %q.", e.ProjectTitle)
	case ProjectCompleted:
		return fmt.Sprintf("%s marked %q as completed. Thank you!", e.ActorName, e.ProjectTitle)
	default:
		return ""
	}
}

// Push is the payload pushed to websocket clients and published on Redis.
func (e Event) Push() map[string]any {
	return map[string]any{
		"type": "notification",
		"notification": map[string]any{
			"kind":          e.Kind,
			"title":         e.Title(),
			"body":          e.Body(),
			"project_id":    e.ProjectID.String(),
			"project_title": e.ProjectTitle,
			"bid_id":        e.BidID,
			"occurred_at":   e.OccurredAt,
		},
	}
}
