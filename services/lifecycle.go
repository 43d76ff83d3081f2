package services

import (
	"fmt"
	"time"

	"unidos-api/documents"
	"unidos-api/models"
)

// Actor identifies who is performing an operation. NGOID is zero for
// accounts that have no NGO profile.
type Actor struct {
	UserID int
	Role   string
	NGOID  int
}

// Lifecycle drives the status machines for events and mega-events. All
// methods mutate the document in place; persisting the result is the
// caller's job.
type Lifecycle struct{}

var eventTransitions = map[string][]string{
	documents.EventDraft:      {documents.EventPublished, documents.EventCancelled},
	documents.EventPublished:  {documents.EventInProgress, documents.EventSuspended, documents.EventCancelled},
	documents.EventInProgress: {documents.EventFinished, documents.EventSuspended},
	documents.EventSuspended:  {documents.EventPublished, documents.EventCancelled},
	documents.EventFinished:   {},
	documents.EventCancelled:  {},
}

var megaTransitions = map[string][]string{
	documents.MegaPlanning:             {documents.MegaCallForParticipation, documents.MegaCancelled},
	documents.MegaCallForParticipation: {documents.MegaOrganizing, documents.MegaPostponed, documents.MegaCancelled},
	documents.MegaOrganizing:           {documents.MegaInProgress, documents.MegaPostponed, documents.MegaCancelled},
	documents.MegaInProgress:           {documents.MegaFinished, documents.MegaPostponed},
	documents.MegaPostponed:            {documents.MegaCallForParticipation, documents.MegaCancelled},
	documents.MegaFinished:             {},
	documents.MegaCancelled:            {},
}

// EventTransitionsFrom returns the target statuses reachable from a state.
func EventTransitionsFrom(status string) []string {
	return eventTransitions[status]
}

// MegaTransitionsFrom returns the target statuses reachable from a state.
func MegaTransitionsFrom(status string) []string {
	return megaTransitions[status]
}

func transitionAllowed(table map[string][]string, from, to string) bool {
	for _, t := range table[from] {
		if t == to {
			return true
		}
	}
	return false
}

// AuthorizeEventChange checks that the actor may drive the event's
// lifecycle: the owning NGO or a super admin.
func (Lifecycle) AuthorizeEventChange(doc *documents.EventDocument, actor Actor) error {
	if actor.Role == models.RoleSuperAdmin {
		return nil
	}
	if actor.Role == models.RoleNGO && actor.NGOID == doc.NGOID {
		return nil
	}
	return NewError(KindUnauthorized, "only the organizing NGO can change this event")
}

// AuthorizeMegaChange checks that the actor may drive the mega-event's
// lifecycle: an active principal coordinator or co-organizer, or a
// super admin.
func (Lifecycle) AuthorizeMegaChange(doc *documents.MegaEventDocument, actor Actor) error {
	if actor.Role == models.RoleSuperAdmin {
		return nil
	}
	if actor.Role == models.RoleNGO {
		if o := doc.FindOrganizer(actor.NGOID); o != nil && o.Active {
			if o.Role == models.OrganizerRolePrincipal || o.Role == models.OrganizerRoleCo {
				return nil
			}
		}
	}
	return NewError(KindUnauthorized, "only a coordinating organizer can change this mega-event")
}

// ChangeEventStatus validates and applies a status transition on an
// event document: transition table, target guards, side effects, and a
// history entry. The reason defaults when empty.
func (l Lifecycle) ChangeEventStatus(doc *documents.EventDocument, to, reason string, actor Actor, now time.Time) error {
	from := doc.Status
	if !transitionAllowed(eventTransitions, from, to) {
		return InvalidTransition(from, to, eventTransitions[from])
	}

	if err := l.eventGuard(doc, to, now); err != nil {
		return err
	}

	switch to {
	case documents.EventPublished:
		doc.Public = true
		doc.EnrollmentOpen = true
	case documents.EventSuspended:
		doc.EnrollmentOpen = false
	case documents.EventInProgress:
		doc.EnrollmentOpen = false
	case documents.EventFinished:
		doc.EnrollmentOpen = false
		t := now
		doc.FinishedAt = &t
		doc.RecomputeMetrics()
	case documents.EventCancelled:
		doc.EnrollmentOpen = false
		doc.Public = false
		t := now
		doc.CancelledAt = &t
	}

	doc.Status = to
	doc.UpdatedAt = now
	doc.History = append(doc.History, documents.StatusChange{
		From:    from,
		To:      to,
		Reason:  defaultReason(reason, from, to),
		ActorID: actor.UserID,
		At:      now,
	})
	return nil
}

func (Lifecycle) eventGuard(doc *documents.EventDocument, to string, now time.Time) error {
	switch to {
	case documents.EventPublished:
		if doc.Title == "" || doc.Location.IsZero() || doc.StartDate == nil {
			return NewError(KindPreconditionFailed, "publishing requires a title, location and start date")
		}
		if !doc.StartDate.After(now) {
			return NewError(KindPreconditionFailed, "cannot publish an event whose start date has passed")
		}
	case documents.EventInProgress:
		if doc.StartDate == nil {
			return NewError(KindPreconditionFailed, "cannot start an event without a start date")
		}
		if now.Before(*doc.StartDate) {
			return NewError(KindPreconditionFailed, "the event has not reached its start date")
		}
		if doc.EndDate != nil && now.After(*doc.EndDate) {
			return NewError(KindPreconditionFailed, "the event window has already closed")
		}
	case documents.EventFinished:
		boundary := doc.EndDate
		if boundary == nil {
			boundary = doc.StartDate
		}
		if boundary == nil {
			return NewError(KindPreconditionFailed, "cannot finish an event without dates")
		}
		if now.Before(*boundary) {
			return NewError(KindPreconditionFailed, "the event has not ended yet")
		}
	}
	return nil
}

// ChangeMegaStatus validates and applies a status transition on a
// mega-event document.
func (l Lifecycle) ChangeMegaStatus(doc *documents.MegaEventDocument, to, reason string, actor Actor, now time.Time) error {
	from := doc.Status
	if !transitionAllowed(megaTransitions, from, to) {
		return InvalidTransition(from, to, megaTransitions[from])
	}

	if err := l.megaGuard(doc, to, now); err != nil {
		return err
	}

	switch to {
	case documents.MegaCallForParticipation:
		doc.Public = true
		doc.EnrollmentOpen = true
	case documents.MegaOrganizing:
		doc.EnrollmentOpen = false
	case documents.MegaInProgress:
		doc.EnrollmentOpen = false
	case documents.MegaPostponed:
		doc.EnrollmentOpen = false
	case documents.MegaFinished:
		doc.EnrollmentOpen = false
		t := now
		doc.FinishedAt = &t
		doc.RecomputeMetrics()
	case documents.MegaCancelled:
		doc.EnrollmentOpen = false
		doc.Public = false
		t := now
		doc.CancelledAt = &t
	}

	doc.Status = to
	doc.UpdatedAt = now
	doc.History = append(doc.History, documents.StatusChange{
		From:    from,
		To:      to,
		Reason:  defaultReason(reason, from, to),
		ActorID: actor.UserID,
		At:      now,
	})
	return nil
}

func (Lifecycle) megaGuard(doc *documents.MegaEventDocument, to string, now time.Time) error {
	switch to {
	case documents.MegaCallForParticipation:
		if doc.Title == "" || doc.Location.IsZero() || doc.StartDate == nil {
			return NewError(KindPreconditionFailed, "opening the call requires a title, location and start date")
		}
		if !doc.StartDate.After(now) {
			return NewError(KindPreconditionFailed, "cannot open the call for a mega-event whose start date has passed")
		}
		if doc.ActiveOrganizers() == 0 {
			return NewError(KindPreconditionFailed, "at least one active organizer NGO is required")
		}
	case documents.MegaOrganizing:
		if doc.ActiveParticipants() == 0 {
			return NewError(KindPreconditionFailed, "at least one registered participant is required")
		}
	case documents.MegaInProgress:
		if doc.StartDate == nil {
			return NewError(KindPreconditionFailed, "cannot start a mega-event without a start date")
		}
		if now.Before(*doc.StartDate) {
			return NewError(KindPreconditionFailed, "the mega-event has not reached its start date")
		}
		if doc.EndDate != nil && now.After(*doc.EndDate) {
			return NewError(KindPreconditionFailed, "the mega-event window has already closed")
		}
	case documents.MegaFinished:
		boundary := doc.EndDate
		if boundary == nil {
			boundary = doc.StartDate
		}
		if boundary == nil {
			return NewError(KindPreconditionFailed, "cannot finish a mega-event without dates")
		}
		if now.Before(*boundary) {
			return NewError(KindPreconditionFailed, "the mega-event has not ended yet")
		}
	}
	return nil
}

func defaultReason(reason, from, to string) string {
	if reason != "" {
		return reason
	}
	return fmt.Sprintf("Status changed from %s to %s", from, to)
}
