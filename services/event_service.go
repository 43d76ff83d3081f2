package services

import (
	"context"
	"log"
	"time"

	"unidos-api/documents"
	"unidos-api/models"
)

// CreateEventInput carries the fields accepted when creating an event.
type CreateEventInput struct {
	Title              string
	Description        string
	EventType          string
	Category           string
	Location           documents.Location
	StartDate          *time.Time
	EndDate            *time.Time
	Capacity           int
	RequiresApproval   bool
	EnrollmentDeadline *time.Time
}

// UpdateEventInput is a partial update; nil fields are left untouched.
type UpdateEventInput struct {
	Title              *string
	Description        *string
	EventType          *string
	Category           *string
	Location           *documents.Location
	StartDate          *time.Time
	EndDate            *time.Time
	Capacity           *int
	RequiresApproval   *bool
	EnrollmentDeadline *time.Time
}

// EventService coordinates the ledger and document copies of events.
// Creation is ledger-transaction-first; updates land on the document
// and are mirrored to the ledger best effort.
type EventService struct {
	ledger    Ledger
	store     EventStore
	notifier  Notifier
	lifecycle Lifecycle
	now       nowFunc
}

func NewEventService(ledger Ledger, store EventStore, notifier Notifier) *EventService {
	return &EventService{ledger: ledger, store: store, notifier: notifier, now: time.Now}
}

// WithClock pins the service clock, for tests.
func (s *EventService) WithClock(f func() time.Time) *EventService {
	s.now = orNow(f)
	return s
}

// Create writes the ledger row and the document copy. The ledger
// transaction stays open across the document insert: a failed document
// write rolls the row back, and a failed commit removes the document so
// neither store keeps an orphan.
func (s *EventService) Create(ctx context.Context, actor Actor, in CreateEventInput) (*documents.EventDocument, error) {
	if actor.Role != models.RoleNGO && actor.Role != models.RoleSuperAdmin {
		return nil, NewError(KindUnauthorized, "only NGO accounts can create events")
	}
	ngoID := actor.NGOID
	if actor.Role == models.RoleNGO && ngoID == 0 {
		return nil, NewError(KindNotAnNgo, "the account has no NGO profile")
	}

	now := s.now()
	doc := &documents.EventDocument{
		NGOID:              ngoID,
		Title:              in.Title,
		Description:        in.Description,
		EventType:          in.EventType,
		Category:           in.Category,
		Location:           in.Location,
		StartDate:          in.StartDate,
		EndDate:            in.EndDate,
		Capacity:           in.Capacity,
		RequiresApproval:   in.RequiresApproval,
		EnrollmentDeadline: in.EnrollmentDeadline,
		Status:             documents.EventDraft,
		Active:             true,
		Images:             []documents.Image{},
		Registrations:      []documents.Registration{},
		Sponsors:           []documents.SponsorRef{},
		Backers:            []documents.BackerRef{},
		History: []documents.StatusChange{{
			To:      documents.EventDraft,
			Reason:  "Event created",
			ActorID: actor.UserID,
			At:      now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := doc.Validate(); err != nil {
		return nil, WrapError(KindValidationFailed, err, "invalid event")
	}

	row := &models.Event{
		NGOID:       ngoID,
		Title:       in.Title,
		Description: in.Description,
		EventType:   in.EventType,
		Category:    in.Category,
		Location:    in.Location.String(),
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		Capacity:    in.Capacity,
		Status:      documents.EventDraft,
	}

	tx, err := s.ledger.Begin()
	if err != nil {
		return nil, WrapError(KindStoreUnavailable, err, "ledger unavailable")
	}
	if err := tx.CreateEvent(row); err != nil {
		tx.Rollback()
		return nil, WrapError(KindStoreUnavailable, err, "could not record the event")
	}
	doc.LedgerID = row.ID

	if err := s.store.Insert(ctx, doc); err != nil {
		tx.Rollback()
		return nil, WrapError(KindDualWriteFailure, err, "document write failed, event discarded")
	}
	if err := tx.Commit(); err != nil {
		if derr := s.store.Remove(ctx, row.ID); derr != nil {
			log.Printf("compensating document delete failed for event %d: %v", row.ID, derr)
		}
		return nil, WrapError(KindDualWriteFailure, err, "ledger commit failed, event discarded")
	}
	return doc, nil
}

// Get returns the document copy of an event.
func (s *EventService) Get(ctx context.Context, ledgerID int) (*documents.EventDocument, error) {
	return s.store.FindByLedgerID(ctx, ledgerID)
}

// List returns event documents matching the filter.
func (s *EventService) List(ctx context.Context, filter EventFilter) ([]documents.EventDocument, error) {
	return s.store.List(ctx, filter)
}

// Update applies a partial update. The document is the authoritative
// copy; the ledger mirror is refreshed best effort afterwards.
func (s *EventService) Update(ctx context.Context, actor Actor, ledgerID int, in UpdateEventInput) (*documents.EventDocument, error) {
	unlock := s.store.Lock(ledgerID)
	defer unlock()

	doc, err := s.store.FindByLedgerID(ctx, ledgerID)
	if err != nil {
		return nil, err
	}
	if err := s.lifecycle.AuthorizeEventChange(doc, actor); err != nil {
		return nil, err
	}

	if in.Title != nil {
		doc.Title = *in.Title
	}
	if in.Description != nil {
		doc.Description = *in.Description
	}
	if in.EventType != nil {
		doc.EventType = *in.EventType
	}
	if in.Category != nil {
		doc.Category = *in.Category
	}
	if in.Location != nil {
		doc.Location = *in.Location
	}
	if in.StartDate != nil {
		doc.StartDate = in.StartDate
	}
	if in.EndDate != nil {
		doc.EndDate = in.EndDate
	}
	if in.Capacity != nil {
		doc.Capacity = *in.Capacity
	}
	if in.RequiresApproval != nil {
		doc.RequiresApproval = *in.RequiresApproval
	}
	if in.EnrollmentDeadline != nil {
		doc.EnrollmentDeadline = in.EnrollmentDeadline
	}
	doc.UpdatedAt = s.now()

	if err := doc.Validate(); err != nil {
		return nil, WrapError(KindValidationFailed, err, "invalid event")
	}
	if err := s.store.Replace(ctx, doc); err != nil {
		return nil, WrapError(KindStoreUnavailable, err, "could not save the event")
	}
	s.mirrorEvent(doc)
	return doc, nil
}

// Delete removes the relational graph and soft-deletes the document.
// Events with active registrations, sponsors or backers are protected.
func (s *EventService) Delete(ctx context.Context, actor Actor, ledgerID int) error {
	unlock := s.store.Lock(ledgerID)
	defer unlock()

	doc, err := s.store.FindByLedgerID(ctx, ledgerID)
	if err != nil {
		return err
	}
	if err := s.lifecycle.AuthorizeEventChange(doc, actor); err != nil {
		return err
	}
	if doc.ActiveRegistrations() > 0 || len(doc.Sponsors) > 0 || len(doc.Backers) > 0 {
		return NewError(KindHasDependents, "the event still has registrations or sponsors")
	}

	tx, err := s.ledger.Begin()
	if err != nil {
		return WrapError(KindStoreUnavailable, err, "ledger unavailable")
	}
	if err := tx.DeleteEventGraph(ledgerID); err != nil {
		tx.Rollback()
		return WrapError(KindStoreUnavailable, err, "could not delete the event")
	}
	if err := tx.Commit(); err != nil {
		return WrapError(KindDualWriteFailure, err, "ledger delete did not commit")
	}

	now := s.now()
	doc.Active = false
	doc.Public = false
	doc.EnrollmentOpen = false
	doc.Status = documents.EventCancelled
	t := now
	doc.CancelledAt = &t
	doc.UpdatedAt = now
	if err := s.store.Replace(ctx, doc); err != nil {
		return WrapError(KindDualWriteFailure, err, "ledger rows deleted but the document could not be retired")
	}
	return nil
}

// ChangeStatus drives the event lifecycle and notifies on the
// transitions readers care about.
func (s *EventService) ChangeStatus(ctx context.Context, actor Actor, ledgerID int, to, reason string) (*documents.EventDocument, error) {
	unlock := s.store.Lock(ledgerID)
	defer unlock()

	doc, err := s.store.FindByLedgerID(ctx, ledgerID)
	if err != nil {
		return nil, err
	}
	if err := s.lifecycle.AuthorizeEventChange(doc, actor); err != nil {
		return nil, err
	}
	if err := s.lifecycle.ChangeEventStatus(doc, to, reason, actor, s.now()); err != nil {
		return nil, err
	}
	if err := s.store.Replace(ctx, doc); err != nil {
		return nil, WrapError(KindStoreUnavailable, err, "could not save the event")
	}
	s.mirrorEvent(doc)

	if s.notifier != nil {
		var nerr error
		switch to {
		case documents.EventPublished:
			nerr = s.notifier.EventPublished(doc)
		case documents.EventCancelled:
			nerr = s.notifier.EventCancelled(doc, reason)
		}
		if nerr != nil {
			log.Printf("notification for event %d failed: %v", ledgerID, nerr)
		}
	}
	return doc, nil
}

// Register enrolls the acting user.
func (s *EventService) Register(ctx context.Context, actor Actor, ledgerID int, comments string) (*documents.EventDocument, error) {
	unlock := s.store.Lock(ledgerID)
	defer unlock()

	doc, err := s.store.FindByLedgerID(ctx, ledgerID)
	if err != nil {
		return nil, err
	}
	user, err := s.ledger.GetUser(actor.UserID)
	if err != nil {
		return nil, err
	}

	reg, err := RegisterForEvent(doc, user, comments, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.store.Replace(ctx, doc); err != nil {
		return nil, WrapError(KindStoreUnavailable, err, "could not save the registration")
	}

	if merr := s.ledger.SaveEventParticipant(&models.EventParticipant{
		EventID:      ledgerID,
		UserID:       user.ID,
		Kind:         reg.Kind,
		RegisteredAt: reg.RegisteredAt,
	}); merr != nil {
		log.Printf("ledger mirror of event %d registration failed: %v", ledgerID, merr)
	}
	return doc, nil
}

// CancelRegistration releases a spot. Users cancel for themselves; the
// owning NGO can cancel on a participant's behalf.
func (s *EventService) CancelRegistration(ctx context.Context, actor Actor, ledgerID, userID int) (*documents.EventDocument, error) {
	unlock := s.store.Lock(ledgerID)
	defer unlock()

	doc, err := s.store.FindByLedgerID(ctx, ledgerID)
	if err != nil {
		return nil, err
	}
	if userID != actor.UserID {
		if err := s.lifecycle.AuthorizeEventChange(doc, actor); err != nil {
			return nil, err
		}
	}
	if err := CancelEventRegistration(doc, userID, s.now()); err != nil {
		return nil, err
	}
	if err := s.store.Replace(ctx, doc); err != nil {
		return nil, WrapError(KindStoreUnavailable, err, "could not save the cancellation")
	}
	s.mirrorEvent(doc)
	return doc, nil
}

// Approve confirms a waitlisted registration. Owning NGO only.
func (s *EventService) Approve(ctx context.Context, actor Actor, ledgerID, userID int) (*documents.EventDocument, error) {
	unlock := s.store.Lock(ledgerID)
	defer unlock()

	doc, err := s.store.FindByLedgerID(ctx, ledgerID)
	if err != nil {
		return nil, err
	}
	if err := s.lifecycle.AuthorizeEventChange(doc, actor); err != nil {
		return nil, err
	}
	if err := ApproveEventRegistration(doc, userID, s.now()); err != nil {
		return nil, err
	}
	if err := s.store.Replace(ctx, doc); err != nil {
		return nil, WrapError(KindStoreUnavailable, err, "could not save the approval")
	}
	return doc, nil
}

// MarkAttendance records whether a participant showed up. Owning NGO only.
func (s *EventService) MarkAttendance(ctx context.Context, actor Actor, ledgerID, userID int, attended bool) (*documents.EventDocument, error) {
	unlock := s.store.Lock(ledgerID)
	defer unlock()

	doc, err := s.store.FindByLedgerID(ctx, ledgerID)
	if err != nil {
		return nil, err
	}
	if err := s.lifecycle.AuthorizeEventChange(doc, actor); err != nil {
		return nil, err
	}
	if err := MarkEventAttendance(doc, userID, attended, s.now()); err != nil {
		return nil, err
	}
	if err := s.store.Replace(ctx, doc); err != nil {
		return nil, WrapError(KindStoreUnavailable, err, "could not save the attendance")
	}

	if merr := s.ledger.SaveEventParticipant(&models.EventParticipant{
		EventID:  ledgerID,
		UserID:   userID,
		Attended: attended,
	}); merr != nil {
		log.Printf("ledger mirror of event %d attendance failed: %v", ledgerID, merr)
	}
	return doc, nil
}

// AddSponsor records the acting company account as a sponsor.
func (s *EventService) AddSponsor(ctx context.Context, actor Actor, ledgerID int, tier string) (*documents.EventDocument, error) {
	company, err := s.ledger.GetCompanyByUser(actor.UserID)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, NewError(KindUnauthorized, "only company accounts can sponsor events")
	}

	unlock := s.store.Lock(ledgerID)
	defer unlock()

	doc, err := s.store.FindByLedgerID(ctx, ledgerID)
	if err != nil {
		return nil, err
	}
	if err := AddEventSponsor(doc, company, tier, s.now()); err != nil {
		return nil, err
	}
	if err := s.store.Replace(ctx, doc); err != nil {
		return nil, WrapError(KindStoreUnavailable, err, "could not save the sponsorship")
	}

	if merr := s.ledger.SaveEventSponsor(&models.EventSponsor{
		EventID:   ledgerID,
		CompanyID: company.ID,
		Tier:      tier,
	}); merr != nil {
		log.Printf("ledger mirror of event %d sponsorship failed: %v", ledgerID, merr)
	}
	return doc, nil
}

// AddBacker records the acting NGO as a supporting backer.
func (s *EventService) AddBacker(ctx context.Context, actor Actor, ledgerID int) (*documents.EventDocument, error) {
	ngo, err := s.ledger.GetNGOByUser(actor.UserID)
	if err != nil {
		return nil, err
	}
	if ngo == nil {
		return nil, NewError(KindNotAnNgo, "only NGO accounts can back events")
	}

	unlock := s.store.Lock(ledgerID)
	defer unlock()

	doc, err := s.store.FindByLedgerID(ctx, ledgerID)
	if err != nil {
		return nil, err
	}
	if doc.NGOID == ngo.ID {
		return nil, NewError(KindValidationFailed, "the organizing NGO cannot back its own event")
	}
	if err := AddEventBacker(doc, ngo, s.now()); err != nil {
		return nil, err
	}
	if err := s.store.Replace(ctx, doc); err != nil {
		return nil, WrapError(KindStoreUnavailable, err, "could not save the backing")
	}

	if merr := s.ledger.SaveEventBacker(&models.EventBacker{
		EventID: ledgerID,
		NGOID:   ngo.ID,
	}); merr != nil {
		log.Printf("ledger mirror of event %d backing failed: %v", ledgerID, merr)
	}
	return doc, nil
}

// RemoveSponsor withdraws the acting company's sponsorship.
func (s *EventService) RemoveSponsor(ctx context.Context, actor Actor, ledgerID int) (*documents.EventDocument, error) {
	company, err := s.ledger.GetCompanyByUser(actor.UserID)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, NewError(KindUnauthorized, "only company accounts can withdraw sponsorships")
	}

	unlock := s.store.Lock(ledgerID)
	defer unlock()

	doc, err := s.store.FindByLedgerID(ctx, ledgerID)
	if err != nil {
		return nil, err
	}

	found := false
	for i, sp := range doc.Sponsors {
		if sp.CompanyID == company.ID {
			doc.Sponsors = append(doc.Sponsors[:i], doc.Sponsors[i+1:]...)
			found = true
			break
		}
	}
	if !found {
		return nil, NewError(KindNotFound, "company %d does not sponsor this event", company.ID)
	}
	doc.UpdatedAt = s.now()

	if err := s.store.Replace(ctx, doc); err != nil {
		return nil, WrapError(KindStoreUnavailable, err, "could not save the change")
	}
	if merr := s.ledger.DeleteEventSponsor(ledgerID, company.ID); merr != nil {
		log.Printf("ledger mirror of event %d sponsorship removal failed: %v", ledgerID, merr)
	}
	return doc, nil
}

// RemoveBacker withdraws the acting NGO's backing.
func (s *EventService) RemoveBacker(ctx context.Context, actor Actor, ledgerID int) (*documents.EventDocument, error) {
	ngo, err := s.ledger.GetNGOByUser(actor.UserID)
	if err != nil {
		return nil, err
	}
	if ngo == nil {
		return nil, NewError(KindNotAnNgo, "only NGO accounts can withdraw backing")
	}

	unlock := s.store.Lock(ledgerID)
	defer unlock()

	doc, err := s.store.FindByLedgerID(ctx, ledgerID)
	if err != nil {
		return nil, err
	}

	found := false
	for i, b := range doc.Backers {
		if b.NGOID == ngo.ID {
			doc.Backers = append(doc.Backers[:i], doc.Backers[i+1:]...)
			found = true
			break
		}
	}
	if !found {
		return nil, NewError(KindNotFound, "NGO %d does not back this event", ngo.ID)
	}
	doc.UpdatedAt = s.now()

	if err := s.store.Replace(ctx, doc); err != nil {
		return nil, WrapError(KindStoreUnavailable, err, "could not save the change")
	}
	if merr := s.ledger.DeleteEventBacker(ledgerID, ngo.ID); merr != nil {
		log.Printf("ledger mirror of event %d backing removal failed: %v", ledgerID, merr)
	}
	return doc, nil
}

// StatusCounts summarizes an NGO's events per lifecycle status.
func (s *EventService) StatusCounts(ctx context.Context, ngoID int) (map[string]int, error) {
	return s.store.CountByStatus(ctx, ngoID)
}

// AttachImages appends uploaded images. Owning NGO only.
func (s *EventService) AttachImages(ctx context.Context, actor Actor, ledgerID int, images []documents.Image) (*documents.EventDocument, error) {
	unlock := s.store.Lock(ledgerID)
	defer unlock()

	doc, err := s.store.FindByLedgerID(ctx, ledgerID)
	if err != nil {
		return nil, err
	}
	if err := s.lifecycle.AuthorizeEventChange(doc, actor); err != nil {
		return nil, err
	}
	if err := AttachEventImages(doc, images, s.now()); err != nil {
		return nil, err
	}
	if err := s.store.Replace(ctx, doc); err != nil {
		return nil, WrapError(KindStoreUnavailable, err, "could not save the images")
	}
	return doc, nil
}

// RemoveImage drops one image by position. Owning NGO only.
func (s *EventService) RemoveImage(ctx context.Context, actor Actor, ledgerID, index int) (*documents.EventDocument, error) {
	unlock := s.store.Lock(ledgerID)
	defer unlock()

	doc, err := s.store.FindByLedgerID(ctx, ledgerID)
	if err != nil {
		return nil, err
	}
	if err := s.lifecycle.AuthorizeEventChange(doc, actor); err != nil {
		return nil, err
	}
	if err := RemoveEventImage(doc, index, s.now()); err != nil {
		return nil, err
	}
	if err := s.store.Replace(ctx, doc); err != nil {
		return nil, WrapError(KindStoreUnavailable, err, "could not save the change")
	}
	return doc, nil
}

// CloseExpiredEnrollment flips enrollment off on published events whose
// deadline has passed. Returns how many events were touched.
func (s *EventService) CloseExpiredEnrollment(ctx context.Context) (int, error) {
	now := s.now()
	closed := 0
	for page := 1; ; page++ {
		docs, err := s.store.List(ctx, EventFilter{
			Status:   documents.EventPublished,
			Page:     page,
			PageSize: 100,
		})
		if err != nil {
			return closed, WrapError(KindStoreUnavailable, err, "could not list published events")
		}
		for i := range docs {
			d := &docs[i]
			if !d.EnrollmentOpen || d.EnrollmentDeadline == nil || d.EnrollmentDeadline.After(now) {
				continue
			}
			if err := s.closeEnrollment(ctx, d.LedgerID, now); err != nil {
				log.Printf("enrollment sweep of event %d failed: %v", d.LedgerID, err)
				continue
			}
			closed++
		}
		if len(docs) < 100 {
			return closed, nil
		}
	}
}

func (s *EventService) closeEnrollment(ctx context.Context, ledgerID int, now time.Time) error {
	unlock := s.store.Lock(ledgerID)
	defer unlock()

	doc, err := s.store.FindByLedgerID(ctx, ledgerID)
	if err != nil {
		return err
	}
	if !doc.EnrollmentOpen || doc.EnrollmentDeadline == nil || doc.EnrollmentDeadline.After(now) {
		return nil
	}
	doc.EnrollmentOpen = false
	doc.UpdatedAt = now
	return s.store.Replace(ctx, doc)
}

// mirrorEvent refreshes the relational scalar copy, best effort.
func (s *EventService) mirrorEvent(doc *documents.EventDocument) {
	row := &models.Event{
		ID:          doc.LedgerID,
		NGOID:       doc.NGOID,
		Title:       doc.Title,
		Description: doc.Description,
		EventType:   doc.EventType,
		Category:    doc.Category,
		Location:    doc.Location.String(),
		StartDate:   doc.StartDate,
		EndDate:     doc.EndDate,
		Capacity:    doc.Capacity,
		Status:      doc.Status,
		Public:      doc.Public,
	}
	if err := s.ledger.MirrorEvent(row); err != nil {
		log.Printf("ledger mirror of event %d failed: %v", doc.LedgerID, err)
	}
}
