package services

import (
	"context"
	"log"
	"time"

	"unidos-api/documents"
	"unidos-api/models"
)

// CreateMegaEventInput carries the fields accepted when creating a
// mega-event. The creating NGO becomes the principal coordinator.
type CreateMegaEventInput struct {
	Title            string
	Description      string
	Category         string
	Location         documents.Location
	StartDate        *time.Time
	EndDate          *time.Time
	Capacity         int
	RequiresApproval bool
}

// UpdateMegaEventInput is a partial update; nil fields are untouched.
type UpdateMegaEventInput struct {
	Title            *string
	Description      *string
	Category         *string
	Location         *documents.Location
	StartDate        *time.Time
	EndDate          *time.Time
	Capacity         *int
	RequiresApproval *bool
}

// MegaEventService coordinates the ledger and document copies of
// mega-events, following the same dual-write rules as events.
type MegaEventService struct {
	ledger    Ledger
	store     MegaEventStore
	notifier  Notifier
	lifecycle Lifecycle
	now       nowFunc
}

func NewMegaEventService(ledger Ledger, store MegaEventStore, notifier Notifier) *MegaEventService {
	return &MegaEventService{ledger: ledger, store: store, notifier: notifier, now: time.Now}
}

// WithClock pins the service clock, for tests.
func (s *MegaEventService) WithClock(f func() time.Time) *MegaEventService {
	s.now = orNow(f)
	return s
}

// Create writes the ledger row and the document copy, seeding the
// creating NGO as the principal coordinator.
func (s *MegaEventService) Create(ctx context.Context, actor Actor, in CreateMegaEventInput) (*documents.MegaEventDocument, error) {
	if actor.Role != models.RoleNGO && actor.Role != models.RoleSuperAdmin {
		return nil, NewError(KindUnauthorized, "only NGO accounts can create mega-events")
	}

	var founder *models.NGOProfile
	if actor.Role == models.RoleNGO {
		ngo, err := s.ledger.GetNGOByUser(actor.UserID)
		if err != nil {
			return nil, err
		}
		if ngo == nil {
			return nil, NewError(KindNotAnNgo, "the account has no NGO profile")
		}
		founder = ngo
	}

	now := s.now()
	doc := &documents.MegaEventDocument{
		Title:            in.Title,
		Description:      in.Description,
		Category:         in.Category,
		Location:         in.Location,
		StartDate:        in.StartDate,
		EndDate:          in.EndDate,
		Capacity:         in.Capacity,
		RequiresApproval: in.RequiresApproval,
		Status:           documents.MegaPlanning,
		Active:           true,
		Images:           []documents.Image{},
		Organizers:       []documents.OrganizerEntry{},
		Sponsors:         []documents.PledgeEntry{},
		Participants:     []documents.Registration{},
		History: []documents.StatusChange{{
			To:      documents.MegaPlanning,
			Reason:  "Mega-event created",
			ActorID: actor.UserID,
			At:      now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if founder != nil {
		doc.Organizers = append(doc.Organizers, documents.OrganizerEntry{
			NGOID:    founder.ID,
			Name:     founder.Name,
			Role:     models.OrganizerRolePrincipal,
			Active:   true,
			JoinedAt: now,
		})
	}
	doc.RecomputeMetrics()
	if err := doc.Validate(); err != nil {
		return nil, WrapError(KindValidationFailed, err, "invalid mega-event")
	}

	row := &models.MegaEvent{
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		Location:    in.Location.String(),
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		Status:      documents.MegaPlanning,
	}

	tx, err := s.ledger.Begin()
	if err != nil {
		return nil, WrapError(KindStoreUnavailable, err, "ledger unavailable")
	}
	if err := tx.CreateMegaEvent(row); err != nil {
		tx.Rollback()
		return nil, WrapError(KindStoreUnavailable, err, "could not record the mega-event")
	}
	doc.LedgerID = row.ID

	// The founding coordinator's join row lands in the same transaction
	// as the core row.
	if founder != nil {
		if err := tx.CreateMegaOrganizer(&models.MegaEventOrganizer{
			MegaEventID: row.ID,
			NGOID:       founder.ID,
			Role:        models.OrganizerRolePrincipal,
			Active:      true,
			JoinedAt:    now,
		}); err != nil {
			tx.Rollback()
			return nil, WrapError(KindStoreUnavailable, err, "could not record the founding organizer")
		}
	}

	if err := s.store.Insert(ctx, doc); err != nil {
		tx.Rollback()
		return nil, WrapError(KindDualWriteFailure, err, "document write failed, mega-event discarded")
	}
	if err := tx.Commit(); err != nil {
		if derr := s.store.Remove(ctx, row.ID); derr != nil {
			log.Printf("compensating document delete failed for mega-event %d: %v", row.ID, derr)
		}
		return nil, WrapError(KindDualWriteFailure, err, "ledger commit failed, mega-event discarded")
	}
	return doc, nil
}

// Get returns the document copy of a mega-event.
func (s *MegaEventService) Get(ctx context.Context, ledgerID int) (*documents.MegaEventDocument, error) {
	return s.store.FindByLedgerID(ctx, ledgerID)
}

// List returns mega-event documents matching the filter.
func (s *MegaEventService) List(ctx context.Context, filter MegaEventFilter) ([]documents.MegaEventDocument, error) {
	return s.store.List(ctx, filter)
}

// Update applies a partial update, document first, mirror best effort.
func (s *MegaEventService) Update(ctx context.Context, actor Actor, ledgerID int, in UpdateMegaEventInput) (*documents.MegaEventDocument, error) {
	unlock := s.store.Lock(ledgerID)
	defer unlock()

	doc, err := s.store.FindByLedgerID(ctx, ledgerID)
	if err != nil {
		return nil, err
	}
	if err := s.lifecycle.AuthorizeMegaChange(doc, actor); err != nil {
		return nil, err
	}

	if in.Title != nil {
		doc.Title = *in.Title
	}
	if in.Description != nil {
		doc.Description = *in.Description
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
	doc.UpdatedAt = s.now()

	if err := doc.Validate(); err != nil {
		return nil, WrapError(KindValidationFailed, err, "invalid mega-event")
	}
	if err := s.store.Replace(ctx, doc); err != nil {
		return nil, WrapError(KindStoreUnavailable, err, "could not save the mega-event")
	}
	s.mirrorMega(doc)
	return doc, nil
}

// Delete removes the relational graph and soft-deletes the document.
// Mega-events with participants, pledges or co-organizers are protected.
func (s *MegaEventService) Delete(ctx context.Context, actor Actor, ledgerID int) error {
	unlock := s.store.Lock(ledgerID)
	defer unlock()

	doc, err := s.store.FindByLedgerID(ctx, ledgerID)
	if err != nil {
		return err
	}
	if err := s.lifecycle.AuthorizeMegaChange(doc, actor); err != nil {
		return err
	}
	if doc.ActiveParticipants() > 0 || len(doc.Sponsors) > 0 || doc.ActiveOrganizers() > 1 {
		return NewError(KindHasDependents, "the mega-event still has participants, pledges or co-organizers")
	}

	tx, err := s.ledger.Begin()
	if err != nil {
		return WrapError(KindStoreUnavailable, err, "ledger unavailable")
	}
	if err := tx.DeleteMegaEventGraph(ledgerID); err != nil {
		tx.Rollback()
		return WrapError(KindStoreUnavailable, err, "could not delete the mega-event")
	}
	if err := tx.Commit(); err != nil {
		return WrapError(KindDualWriteFailure, err, "ledger delete did not commit")
	}

	now := s.now()
	doc.Active = false
	doc.Public = false
	doc.EnrollmentOpen = false
	doc.Status = documents.MegaCancelled
	t := now
	doc.CancelledAt = &t
	doc.UpdatedAt = now
	if err := s.store.Replace(ctx, doc); err != nil {
		return WrapError(KindDualWriteFailure, err, "ledger rows deleted but the document could not be retired")
	}
	return nil
}

// ChangeStatus drives the mega-event lifecycle.
func (s *MegaEventService) ChangeStatus(ctx context.Context, actor Actor, ledgerID int, to, reason string) (*documents.MegaEventDocument, error) {
	unlock := s.store.Lock(ledgerID)
	defer unlock()

	doc, err := s.store.FindByLedgerID(ctx, ledgerID)
	if err != nil {
		return nil, err
	}
	if err := s.lifecycle.AuthorizeMegaChange(doc, actor); err != nil {
		return nil, err
	}
	from := doc.Status
	if err := s.lifecycle.ChangeMegaStatus(doc, to, reason, actor, s.now()); err != nil {
		return nil, err
	}
	if err := s.store.Replace(ctx, doc); err != nil {
		return nil, WrapError(KindStoreUnavailable, err, "could not save the mega-event")
	}
	s.mirrorMega(doc)

	if s.notifier != nil {
		if nerr := s.notifier.MegaEventStatusChanged(doc, from, to); nerr != nil {
			log.Printf("notification for mega-event %d failed: %v", ledgerID, nerr)
		}
	}
	return doc, nil
}

// Register enrolls the acting user as a participant.
func (s *MegaEventService) Register(ctx context.Context, actor Actor, ledgerID int, comments string) (*documents.MegaEventDocument, error) {
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

	reg, err := RegisterForMega(doc, user, comments, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.store.Replace(ctx, doc); err != nil {
		return nil, WrapError(KindStoreUnavailable, err, "could not save the registration")
	}

	if merr := s.ledger.SaveMegaParticipant(&models.MegaEventParticipant{
		MegaEventID:  ledgerID,
		UserID:       user.ID,
		Kind:         reg.Kind,
		State:        reg.State,
		RegisteredAt: reg.RegisteredAt,
	}); merr != nil {
		log.Printf("ledger mirror of mega-event %d registration failed: %v", ledgerID, merr)
	}
	return doc, nil
}

// Approve confirms a waitlisted registration. Coordinators only.
func (s *MegaEventService) Approve(ctx context.Context, actor Actor, ledgerID, userID int) (*documents.MegaEventDocument, error) {
	unlock := s.store.Lock(ledgerID)
	defer unlock()

	doc, err := s.store.FindByLedgerID(ctx, ledgerID)
	if err != nil {
		return nil, err
	}
	if err := s.lifecycle.AuthorizeMegaChange(doc, actor); err != nil {
		return nil, err
	}
	if err := ApproveMegaRegistration(doc, userID, s.now()); err != nil {
		return nil, err
	}
	if err := s.store.Replace(ctx, doc); err != nil {
		return nil, WrapError(KindStoreUnavailable, err, "could not save the approval")
	}

	if merr := s.ledger.SaveMegaParticipant(&models.MegaEventParticipant{
		MegaEventID: ledgerID,
		UserID:      userID,
		State:       documents.RegistrationConfirmed,
	}); merr != nil {
		log.Printf("ledger mirror of mega-event %d approval failed: %v", ledgerID, merr)
	}
	return doc, nil
}

// CancelRegistration releases a participant's spot. Users cancel for
// themselves; coordinators can cancel on a participant's behalf.
func (s *MegaEventService) CancelRegistration(ctx context.Context, actor Actor, ledgerID, userID int) (*documents.MegaEventDocument, error) {
	unlock := s.store.Lock(ledgerID)
	defer unlock()

	doc, err := s.store.FindByLedgerID(ctx, ledgerID)
	if err != nil {
		return nil, err
	}
	if userID != actor.UserID {
		if err := s.lifecycle.AuthorizeMegaChange(doc, actor); err != nil {
			return nil, err
		}
	}
	if err := CancelMegaRegistration(doc, userID, s.now()); err != nil {
		return nil, err
	}
	if err := s.store.Replace(ctx, doc); err != nil {
		return nil, WrapError(KindStoreUnavailable, err, "could not save the cancellation")
	}
	return doc, nil
}

// MarkAttendance records attendance for a participant. Coordinators only.
func (s *MegaEventService) MarkAttendance(ctx context.Context, actor Actor, ledgerID, userID int, attended bool) (*documents.MegaEventDocument, error) {
	unlock := s.store.Lock(ledgerID)
	defer unlock()

	doc, err := s.store.FindByLedgerID(ctx, ledgerID)
	if err != nil {
		return nil, err
	}
	if err := s.lifecycle.AuthorizeMegaChange(doc, actor); err != nil {
		return nil, err
	}
	if err := MarkMegaAttendance(doc, userID, attended, s.now()); err != nil {
		return nil, err
	}
	if err := s.store.Replace(ctx, doc); err != nil {
		return nil, WrapError(KindStoreUnavailable, err, "could not save the attendance")
	}

	if merr := s.ledger.SaveMegaParticipant(&models.MegaEventParticipant{
		MegaEventID: ledgerID,
		UserID:      userID,
		Attended:    attended,
	}); merr != nil {
		log.Printf("ledger mirror of mega-event %d attendance failed: %v", ledgerID, merr)
	}
	return doc, nil
}

// AddOrganizer joins an NGO to the organizing team. Coordinators only;
// the target account must carry an NGO profile.
func (s *MegaEventService) AddOrganizer(ctx context.Context, actor Actor, ledgerID, ngoID int, role string) (*documents.MegaEventDocument, error) {
	ngo, err := s.ledger.GetNGO(ngoID)
	if err != nil {
		return nil, err
	}
	if ngo == nil {
		return nil, NewError(KindNotAnNgo, "account %d is not an NGO", ngoID)
	}

	unlock := s.store.Lock(ledgerID)
	defer unlock()

	doc, err := s.store.FindByLedgerID(ctx, ledgerID)
	if err != nil {
		return nil, err
	}
	if err := s.lifecycle.AuthorizeMegaChange(doc, actor); err != nil {
		return nil, err
	}
	if err := AddOrganizer(doc, ngo, role, s.now()); err != nil {
		return nil, err
	}
	if err := s.store.Replace(ctx, doc); err != nil {
		return nil, WrapError(KindStoreUnavailable, err, "could not save the organizer")
	}

	entry := doc.FindOrganizer(ngo.ID)
	if merr := s.ledger.SaveMegaOrganizer(&models.MegaEventOrganizer{
		MegaEventID: ledgerID,
		NGOID:       ngo.ID,
		Role:        entry.Role,
		Active:      true,
		JoinedAt:    entry.JoinedAt,
	}); merr != nil {
		log.Printf("ledger mirror of mega-event %d organizer failed: %v", ledgerID, merr)
	}
	return doc, nil
}

// RemoveOrganizer retires an NGO from the organizing team.
func (s *MegaEventService) RemoveOrganizer(ctx context.Context, actor Actor, ledgerID, ngoID int) (*documents.MegaEventDocument, error) {
	unlock := s.store.Lock(ledgerID)
	defer unlock()

	doc, err := s.store.FindByLedgerID(ctx, ledgerID)
	if err != nil {
		return nil, err
	}
	if err := s.lifecycle.AuthorizeMegaChange(doc, actor); err != nil {
		return nil, err
	}
	if err := RemoveOrganizer(doc, ngoID, s.now()); err != nil {
		return nil, err
	}
	if err := s.store.Replace(ctx, doc); err != nil {
		return nil, WrapError(KindStoreUnavailable, err, "could not save the change")
	}

	if merr := s.ledger.SaveMegaOrganizer(&models.MegaEventOrganizer{
		MegaEventID: ledgerID,
		NGOID:       ngoID,
		Active:      false,
	}); merr != nil {
		log.Printf("ledger mirror of mega-event %d organizer failed: %v", ledgerID, merr)
	}
	return doc, nil
}

// AddPledge records a sponsorship pledge from the acting company.
func (s *MegaEventService) AddPledge(ctx context.Context, actor Actor, ledgerID int, tier string, amount float64, note string) (*documents.MegaEventDocument, error) {
	company, err := s.ledger.GetCompanyByUser(actor.UserID)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, NewError(KindUnauthorized, "only company accounts can pledge sponsorships")
	}

	unlock := s.store.Lock(ledgerID)
	defer unlock()

	doc, err := s.store.FindByLedgerID(ctx, ledgerID)
	if err != nil {
		return nil, err
	}
	if err := AddPledge(doc, company, tier, amount, note, s.now()); err != nil {
		return nil, err
	}
	if err := s.store.Replace(ctx, doc); err != nil {
		return nil, WrapError(KindStoreUnavailable, err, "could not save the pledge")
	}

	if merr := s.ledger.SaveMegaSponsor(&models.MegaEventSponsor{
		MegaEventID: ledgerID,
		CompanyID:   company.ID,
		Tier:        tier,
		Amount:      amount,
		State:       models.PledgePledged,
		Note:        note,
	}); merr != nil {
		log.Printf("ledger mirror of mega-event %d pledge failed: %v", ledgerID, merr)
	}
	return doc, nil
}

// SetPledgeState confirms or withdraws a pledge. Coordinators only.
func (s *MegaEventService) SetPledgeState(ctx context.Context, actor Actor, ledgerID, companyID int, state string) (*documents.MegaEventDocument, error) {
	unlock := s.store.Lock(ledgerID)
	defer unlock()

	doc, err := s.store.FindByLedgerID(ctx, ledgerID)
	if err != nil {
		return nil, err
	}
	if err := s.lifecycle.AuthorizeMegaChange(doc, actor); err != nil {
		return nil, err
	}
	if err := SetPledgeState(doc, companyID, state, s.now()); err != nil {
		return nil, err
	}
	if err := s.store.Replace(ctx, doc); err != nil {
		return nil, WrapError(KindStoreUnavailable, err, "could not save the pledge")
	}

	if merr := s.ledger.SaveMegaSponsor(&models.MegaEventSponsor{
		MegaEventID: ledgerID,
		CompanyID:   companyID,
		State:       state,
	}); merr != nil {
		log.Printf("ledger mirror of mega-event %d pledge failed: %v", ledgerID, merr)
	}
	return doc, nil
}

// AttachImages appends uploaded images. Coordinators only.
func (s *MegaEventService) AttachImages(ctx context.Context, actor Actor, ledgerID int, images []documents.Image) (*documents.MegaEventDocument, error) {
	unlock := s.store.Lock(ledgerID)
	defer unlock()

	doc, err := s.store.FindByLedgerID(ctx, ledgerID)
	if err != nil {
		return nil, err
	}
	if err := s.lifecycle.AuthorizeMegaChange(doc, actor); err != nil {
		return nil, err
	}
	if err := AttachMegaImages(doc, images, s.now()); err != nil {
		return nil, err
	}
	if err := s.store.Replace(ctx, doc); err != nil {
		return nil, WrapError(KindStoreUnavailable, err, "could not save the images")
	}
	return doc, nil
}

// RemoveImage drops one image by position. Coordinators only.
func (s *MegaEventService) RemoveImage(ctx context.Context, actor Actor, ledgerID, index int) (*documents.MegaEventDocument, error) {
	unlock := s.store.Lock(ledgerID)
	defer unlock()

	doc, err := s.store.FindByLedgerID(ctx, ledgerID)
	if err != nil {
		return nil, err
	}
	if err := s.lifecycle.AuthorizeMegaChange(doc, actor); err != nil {
		return nil, err
	}
	if err := RemoveMegaImage(doc, index, s.now()); err != nil {
		return nil, err
	}
	if err := s.store.Replace(ctx, doc); err != nil {
		return nil, WrapError(KindStoreUnavailable, err, "could not save the change")
	}
	return doc, nil
}

// mirrorMega refreshes the relational scalar copy, best effort.
func (s *MegaEventService) mirrorMega(doc *documents.MegaEventDocument) {
	row := &models.MegaEvent{
		ID:          doc.LedgerID,
		Title:       doc.Title,
		Description: doc.Description,
		Category:    doc.Category,
		Location:    doc.Location.String(),
		StartDate:   doc.StartDate,
		EndDate:     doc.EndDate,
		Status:      doc.Status,
		Public:      doc.Public,
	}
	if err := s.ledger.MirrorMegaEvent(row); err != nil {
		log.Printf("ledger mirror of mega-event %d failed: %v", doc.LedgerID, err)
	}
}
