package services

import (
	"time"

	"unidos-api/documents"
	"unidos-api/models"
)

// Aggregate ceilings on stored images.
const (
	MaxEventImages     = 10
	MaxMegaEventImages = 20
)

// RegisterForEvent enrolls a user on an event document. Approval-gated
// events park the registration on the waitlist; otherwise it is
// confirmed immediately. A previously cancelled registration is
// reactivated instead of duplicated.
func RegisterForEvent(doc *documents.EventDocument, user *models.User, comments string, now time.Time) (*documents.Registration, error) {
	if doc.Status != documents.EventPublished {
		return nil, NewError(KindEnrollmentClosed, "the event is not accepting registrations")
	}
	if !doc.EnrollmentOpen {
		return nil, NewError(KindEnrollmentClosed, "enrollment is closed for this event")
	}
	if doc.EnrollmentDeadline != nil && now.After(*doc.EnrollmentDeadline) {
		return nil, NewError(KindEnrollmentDeadline, "the enrollment deadline has passed")
	}

	existing := doc.FindRegistration(user.ID)
	if existing != nil && existing.State != documents.RegistrationCancelled {
		return nil, NewError(KindAlreadyRegistered, "user %d is already registered", user.ID)
	}

	if doc.Capacity > 0 && doc.ActiveRegistrations() >= doc.Capacity {
		return nil, NewError(KindCapacityExceeded, "the event is at capacity (%d)", doc.Capacity)
	}

	state := documents.RegistrationConfirmed
	if doc.RequiresApproval {
		state = documents.RegistrationWaitlisted
	}

	if existing != nil {
		existing.State = state
		existing.Comments = comments
		existing.Attended = false
		existing.AttendedAt = nil
		existing.RegisteredAt = now
		doc.RecomputeMetrics()
		doc.UpdatedAt = now
		return existing, nil
	}

	doc.Registrations = append(doc.Registrations, documents.Registration{
		UserID:       user.ID,
		Name:         user.Username,
		Kind:         user.Role,
		State:        state,
		Comments:     comments,
		RegisteredAt: now,
	})
	doc.RecomputeMetrics()
	doc.UpdatedAt = now
	return &doc.Registrations[len(doc.Registrations)-1], nil
}

// CancelEventRegistration releases a user's spot. Waitlisted entries are
// not promoted automatically; approval stays an explicit organizer step.
func CancelEventRegistration(doc *documents.EventDocument, userID int, now time.Time) error {
	reg := doc.FindRegistration(userID)
	if reg == nil || reg.State == documents.RegistrationCancelled {
		return NewError(KindNotRegistered, "user %d is not registered", userID)
	}
	reg.State = documents.RegistrationCancelled
	doc.RecomputeMetrics()
	doc.UpdatedAt = now
	return nil
}

// ApproveEventRegistration confirms a waitlisted registration, subject
// to the capacity ceiling.
func ApproveEventRegistration(doc *documents.EventDocument, userID int, now time.Time) error {
	reg := doc.FindRegistration(userID)
	if reg == nil || reg.State == documents.RegistrationCancelled {
		return NewError(KindNotRegistered, "user %d is not registered", userID)
	}
	if reg.State == documents.RegistrationConfirmed {
		return nil
	}
	reg.State = documents.RegistrationConfirmed
	doc.RecomputeMetrics()
	doc.UpdatedAt = now
	return nil
}

// MarkEventAttendance records whether a registered user showed up. The
// operation is idempotent; repeated calls with the same flag are no-ops
// beyond the metrics refresh.
func MarkEventAttendance(doc *documents.EventDocument, userID int, attended bool, now time.Time) error {
	reg := doc.FindRegistration(userID)
	if reg == nil || reg.State == documents.RegistrationCancelled {
		return NewError(KindNotRegistered, "user %d is not registered", userID)
	}
	reg.Attended = attended
	if attended {
		t := now
		reg.AttendedAt = &t
	} else {
		reg.AttendedAt = nil
	}
	doc.RecomputeMetrics()
	doc.UpdatedAt = now
	return nil
}

// AddEventSponsor links a company to an event. Duplicate sponsorships
// are rejected.
func AddEventSponsor(doc *documents.EventDocument, company *models.Company, tier string, now time.Time) error {
	for _, s := range doc.Sponsors {
		if s.CompanyID == company.ID {
			return NewError(KindAlreadySponsor, "company %d already sponsors this event", company.ID)
		}
	}
	doc.Sponsors = append(doc.Sponsors, documents.SponsorRef{
		CompanyID: company.ID,
		Name:      company.Name,
		Tier:      tier,
		AddedAt:   now,
	})
	doc.UpdatedAt = now
	return nil
}

// AddEventBacker links a supporting NGO to an event.
func AddEventBacker(doc *documents.EventDocument, ngo *models.NGOProfile, now time.Time) error {
	for _, b := range doc.Backers {
		if b.NGOID == ngo.ID {
			return NewError(KindAlreadySponsor, "NGO %d already backs this event", ngo.ID)
		}
	}
	doc.Backers = append(doc.Backers, documents.BackerRef{
		NGOID:   ngo.ID,
		Name:    ngo.Name,
		AddedAt: now,
	})
	doc.UpdatedAt = now
	return nil
}

// RegisterForMega enrolls a user on a mega-event. Registration is only
// open during the call for participation; entering the organizing phase
// closes it. Approval-gated mega-events park the registration on the
// waitlist, as events do.
func RegisterForMega(doc *documents.MegaEventDocument, user *models.User, comments string, now time.Time) (*documents.Registration, error) {
	if doc.Status != documents.MegaCallForParticipation {
		return nil, NewError(KindEnrollmentClosed, "the mega-event is not accepting registrations")
	}
	if !doc.EnrollmentOpen {
		return nil, NewError(KindEnrollmentClosed, "enrollment is closed for this mega-event")
	}

	existing := doc.FindParticipant(user.ID)
	if existing != nil && existing.State != documents.RegistrationCancelled {
		return nil, NewError(KindAlreadyRegistered, "user %d is already registered", user.ID)
	}

	if doc.Capacity > 0 && doc.ActiveParticipants() >= doc.Capacity {
		return nil, NewError(KindCapacityExceeded, "the mega-event is at capacity (%d)", doc.Capacity)
	}

	state := documents.RegistrationConfirmed
	if doc.RequiresApproval {
		state = documents.RegistrationWaitlisted
	}

	if existing != nil {
		existing.State = state
		existing.Comments = comments
		existing.Attended = false
		existing.AttendedAt = nil
		existing.RegisteredAt = now
		doc.RecomputeMetrics()
		doc.UpdatedAt = now
		return existing, nil
	}

	doc.Participants = append(doc.Participants, documents.Registration{
		UserID:       user.ID,
		Name:         user.Username,
		Kind:         user.Role,
		State:        state,
		Comments:     comments,
		RegisteredAt: now,
	})
	doc.RecomputeMetrics()
	doc.UpdatedAt = now
	return &doc.Participants[len(doc.Participants)-1], nil
}

// ApproveMegaRegistration confirms a waitlisted mega-event registration.
func ApproveMegaRegistration(doc *documents.MegaEventDocument, userID int, now time.Time) error {
	reg := doc.FindParticipant(userID)
	if reg == nil || reg.State == documents.RegistrationCancelled {
		return NewError(KindNotRegistered, "user %d is not registered", userID)
	}
	if reg.State == documents.RegistrationConfirmed {
		return nil
	}
	reg.State = documents.RegistrationConfirmed
	doc.RecomputeMetrics()
	doc.UpdatedAt = now
	return nil
}

// CancelMegaRegistration releases a participant's spot.
func CancelMegaRegistration(doc *documents.MegaEventDocument, userID int, now time.Time) error {
	reg := doc.FindParticipant(userID)
	if reg == nil || reg.State == documents.RegistrationCancelled {
		return NewError(KindNotRegistered, "user %d is not registered", userID)
	}
	reg.State = documents.RegistrationCancelled
	doc.RecomputeMetrics()
	doc.UpdatedAt = now
	return nil
}

// MarkMegaAttendance records attendance for a mega-event participant.
func MarkMegaAttendance(doc *documents.MegaEventDocument, userID int, attended bool, now time.Time) error {
	reg := doc.FindParticipant(userID)
	if reg == nil || reg.State == documents.RegistrationCancelled {
		return NewError(KindNotRegistered, "user %d is not registered", userID)
	}
	reg.Attended = attended
	if attended {
		t := now
		reg.AttendedAt = &t
	} else {
		reg.AttendedAt = nil
	}
	doc.RecomputeMetrics()
	doc.UpdatedAt = now
	return nil
}

// AddOrganizer joins an NGO to a mega-event's organizing team. New
// members join as collaborators unless a coordinating role is named
// explicitly. A retired membership is reactivated rather than
// duplicated.
func AddOrganizer(doc *documents.MegaEventDocument, ngo *models.NGOProfile, role string, now time.Time) error {
	switch role {
	case "":
		role = models.OrganizerRoleCollaborator
	case models.OrganizerRolePrincipal, models.OrganizerRoleCo,
		models.OrganizerRoleCollaborator, models.OrganizerRoleSupport:
	default:
		return NewError(KindValidationFailed, "unknown organizer role %q", role)
	}
	existing := doc.FindOrganizer(ngo.ID)
	if existing != nil {
		if existing.Active {
			return NewError(KindAlreadyOrganizer, "NGO %d is already an organizer", ngo.ID)
		}
		existing.Active = true
		existing.Role = role
		existing.JoinedAt = now
		doc.RecomputeMetrics()
		doc.UpdatedAt = now
		return nil
	}
	doc.Organizers = append(doc.Organizers, documents.OrganizerEntry{
		NGOID:    ngo.ID,
		Name:     ngo.Name,
		Role:     role,
		Active:   true,
		JoinedAt: now,
	})
	doc.RecomputeMetrics()
	doc.UpdatedAt = now
	return nil
}

// RemoveOrganizer retires an NGO from the organizing team. The last
// active organizer cannot leave once the call has been opened.
func RemoveOrganizer(doc *documents.MegaEventDocument, ngoID int, now time.Time) error {
	existing := doc.FindOrganizer(ngoID)
	if existing == nil || !existing.Active {
		return NewError(KindNotFound, "NGO %d is not an active organizer", ngoID)
	}
	if doc.Status != documents.MegaPlanning && doc.ActiveOrganizers() == 1 {
		return NewError(KindPreconditionFailed, "a mega-event past planning needs at least one organizer")
	}
	existing.Active = false
	doc.RecomputeMetrics()
	doc.UpdatedAt = now
	return nil
}

// AddPledge records a company sponsorship pledge. One pledge per
// company per mega-event.
func AddPledge(doc *documents.MegaEventDocument, company *models.Company, tier string, amount float64, note string, now time.Time) error {
	if amount < 0 {
		return NewError(KindValidationFailed, "pledge amount cannot be negative")
	}
	for _, s := range doc.Sponsors {
		if s.CompanyID == company.ID {
			return NewError(KindAlreadySponsor, "company %d already has a pledge", company.ID)
		}
	}
	doc.Sponsors = append(doc.Sponsors, documents.PledgeEntry{
		CompanyID: company.ID,
		Name:      company.Name,
		Tier:      tier,
		Amount:    amount,
		State:     models.PledgePledged,
		Note:      note,
		PledgedAt: now,
	})
	doc.RecomputeMetrics()
	doc.UpdatedAt = now
	return nil
}

// SetPledgeState moves a pledge between pledged, confirmed, paid and
// cancelled. Only confirmed pledges count toward the pledged total.
func SetPledgeState(doc *documents.MegaEventDocument, companyID int, state string, now time.Time) error {
	switch state {
	case models.PledgePledged, models.PledgeConfirmed, models.PledgePaid, models.PledgeCancelled:
	default:
		return NewError(KindValidationFailed, "unknown pledge state %q", state)
	}
	for i := range doc.Sponsors {
		if doc.Sponsors[i].CompanyID == companyID {
			doc.Sponsors[i].State = state
			doc.RecomputeMetrics()
			doc.UpdatedAt = now
			return nil
		}
	}
	return NewError(KindNotFound, "company %d has no pledge on this mega-event", companyID)
}

// AttachEventImages appends images to an event, enforcing the stored
// ceiling.
func AttachEventImages(doc *documents.EventDocument, images []documents.Image, now time.Time) error {
	if len(doc.Images)+len(images) > MaxEventImages {
		return NewError(KindTooManyImages, "an event can hold at most %d images", MaxEventImages)
	}
	doc.Images = append(doc.Images, images...)
	doc.UpdatedAt = now
	return nil
}

// AttachMegaImages appends images to a mega-event, enforcing the stored
// ceiling.
func AttachMegaImages(doc *documents.MegaEventDocument, images []documents.Image, now time.Time) error {
	if len(doc.Images)+len(images) > MaxMegaEventImages {
		return NewError(KindTooManyImages, "a mega-event can hold at most %d images", MaxMegaEventImages)
	}
	doc.Images = append(doc.Images, images...)
	doc.UpdatedAt = now
	return nil
}

// RemoveEventImage drops an image by index.
func RemoveEventImage(doc *documents.EventDocument, index int, now time.Time) error {
	if index < 0 || index >= len(doc.Images) {
		return NewError(KindNotFound, "no image at position %d", index)
	}
	doc.Images = append(doc.Images[:index], doc.Images[index+1:]...)
	doc.UpdatedAt = now
	return nil
}

// RemoveMegaImage drops an image by index.
func RemoveMegaImage(doc *documents.MegaEventDocument, index int, now time.Time) error {
	if index < 0 || index >= len(doc.Images) {
		return NewError(KindNotFound, "no image at position %d", index)
	}
	doc.Images = append(doc.Images[:index], doc.Images[index+1:]...)
	doc.UpdatedAt = now
	return nil
}
