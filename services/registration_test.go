package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unidos-api/documents"
	"unidos-api/models"
)

var regNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func openEvent(capacity int) *documents.EventDocument {
	start := regNow.Add(24 * time.Hour)
	return &documents.EventDocument{
		LedgerID:       1,
		NGOID:          10,
		Title:          "Tree planting",
		Location:       documents.Location{Address: "City park", Mode: documents.ModeInPerson},
		StartDate:      &start,
		Capacity:       capacity,
		Status:         documents.EventPublished,
		EnrollmentOpen: true,
		Public:         true,
		Active:         true,
	}
}

func member(id int) *models.User {
	return &models.User{ID: id, Username: fmt.Sprintf("user%d", id), Role: models.RoleExternalMember}
}

func TestRegisterConfirmsImmediately(t *testing.T) {
	doc := openEvent(10)

	reg, err := RegisterForEvent(doc, member(7), "bringing gloves", regNow)
	require.NoError(t, err)
	assert.Equal(t, documents.RegistrationConfirmed, reg.State)
	assert.Equal(t, "bringing gloves", reg.Comments)
	assert.Equal(t, 1, doc.Metrics.Registered)
}

func TestRegisterWaitlistsWhenApprovalRequired(t *testing.T) {
	doc := openEvent(10)
	doc.RequiresApproval = true

	reg, err := RegisterForEvent(doc, member(7), "", regNow)
	require.NoError(t, err)
	assert.Equal(t, documents.RegistrationWaitlisted, reg.State)
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	doc := openEvent(10)

	_, err := RegisterForEvent(doc, member(7), "", regNow)
	require.NoError(t, err)

	_, err = RegisterForEvent(doc, member(7), "", regNow)
	require.Error(t, err)
	assert.Equal(t, KindAlreadyRegistered, KindOf(err))
	assert.Len(t, doc.Registrations, 1)
}

func TestRegisterReactivatesCancelledSpot(t *testing.T) {
	doc := openEvent(10)

	_, err := RegisterForEvent(doc, member(7), "", regNow)
	require.NoError(t, err)
	require.NoError(t, CancelEventRegistration(doc, 7, regNow))

	reg, err := RegisterForEvent(doc, member(7), "back again", regNow.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, documents.RegistrationConfirmed, reg.State)
	assert.Len(t, doc.Registrations, 1)
	assert.Equal(t, 1, doc.Metrics.Registered)
}

func TestCapacityBoundary(t *testing.T) {
	doc := openEvent(2)

	_, err := RegisterForEvent(doc, member(1), "", regNow)
	require.NoError(t, err)
	_, err = RegisterForEvent(doc, member(2), "", regNow)
	require.NoError(t, err)

	// Exactly at the ceiling: the next registration must bounce.
	_, err = RegisterForEvent(doc, member(3), "", regNow)
	require.Error(t, err)
	assert.Equal(t, KindCapacityExceeded, KindOf(err))

	// A cancellation frees the spot.
	require.NoError(t, CancelEventRegistration(doc, 1, regNow))
	_, err = RegisterForEvent(doc, member(3), "", regNow)
	require.NoError(t, err)
}

func TestWaitlistedCountsAgainstCapacity(t *testing.T) {
	doc := openEvent(1)
	doc.RequiresApproval = true

	_, err := RegisterForEvent(doc, member(1), "", regNow)
	require.NoError(t, err)

	_, err = RegisterForEvent(doc, member(2), "", regNow)
	require.Error(t, err)
	assert.Equal(t, KindCapacityExceeded, KindOf(err))
}

func TestZeroCapacityMeansUnlimited(t *testing.T) {
	doc := openEvent(0)
	for i := 1; i <= 50; i++ {
		_, err := RegisterForEvent(doc, member(i), "", regNow)
		require.NoError(t, err)
	}
	assert.Equal(t, 50, doc.Metrics.Registered)
}

func TestRegisterRespectsEnrollmentFlags(t *testing.T) {
	t.Run("closed enrollment", func(t *testing.T) {
		doc := openEvent(10)
		doc.EnrollmentOpen = false
		_, err := RegisterForEvent(doc, member(7), "", regNow)
		assert.Equal(t, KindEnrollmentClosed, KindOf(err))
	})

	t.Run("non-published status", func(t *testing.T) {
		doc := openEvent(10)
		doc.Status = documents.EventSuspended
		_, err := RegisterForEvent(doc, member(7), "", regNow)
		assert.Equal(t, KindEnrollmentClosed, KindOf(err))
	})

	t.Run("deadline passed", func(t *testing.T) {
		doc := openEvent(10)
		deadline := regNow.Add(-time.Minute)
		doc.EnrollmentDeadline = &deadline
		_, err := RegisterForEvent(doc, member(7), "", regNow)
		assert.Equal(t, KindEnrollmentDeadline, KindOf(err))
	})
}

func TestApprovePromotesWaitlisted(t *testing.T) {
	doc := openEvent(10)
	doc.RequiresApproval = true

	_, err := RegisterForEvent(doc, member(7), "", regNow)
	require.NoError(t, err)

	require.NoError(t, ApproveEventRegistration(doc, 7, regNow))
	assert.Equal(t, documents.RegistrationConfirmed, doc.Registrations[0].State)

	// Approving twice is a no-op.
	require.NoError(t, ApproveEventRegistration(doc, 7, regNow))
}

func TestAttendanceIsIdempotent(t *testing.T) {
	doc := openEvent(10)
	for i := 1; i <= 4; i++ {
		_, err := RegisterForEvent(doc, member(i), "", regNow)
		require.NoError(t, err)
	}

	require.NoError(t, MarkEventAttendance(doc, 1, true, regNow))
	require.NoError(t, MarkEventAttendance(doc, 1, true, regNow))
	require.NoError(t, MarkEventAttendance(doc, 2, true, regNow))

	assert.Equal(t, 2, doc.Metrics.Attended)
	assert.Equal(t, 50, doc.Metrics.AttendanceRate)

	// Flipping back recomputes the snapshot.
	require.NoError(t, MarkEventAttendance(doc, 2, false, regNow))
	assert.Equal(t, 1, doc.Metrics.Attended)
	assert.Equal(t, 25, doc.Metrics.AttendanceRate)
	assert.Nil(t, doc.Registrations[1].AttendedAt)
}

func TestAttendanceRequiresRegistration(t *testing.T) {
	doc := openEvent(10)
	err := MarkEventAttendance(doc, 99, true, regNow)
	assert.Equal(t, KindNotRegistered, KindOf(err))
}

func openMega() *documents.MegaEventDocument {
	start := regNow.Add(30 * 24 * time.Hour)
	return &documents.MegaEventDocument{
		LedgerID:       1,
		Title:          "Regional summit",
		Location:       documents.Location{Address: "Fairgrounds", City: "Riverside"},
		StartDate:      &start,
		Status:         documents.MegaCallForParticipation,
		EnrollmentOpen: true,
		Public:         true,
		Active:         true,
		Organizers: []documents.OrganizerEntry{
			{NGOID: 10, Name: "Green Roots", Role: models.OrganizerRolePrincipal, Active: true},
		},
	}
}

func TestMegaRegistrationOnlyDuringCall(t *testing.T) {
	doc := openMega()

	_, err := RegisterForMega(doc, member(7), "", regNow)
	require.NoError(t, err)

	// Once the team moves to organizing the participant list is frozen.
	doc.Status = documents.MegaOrganizing
	_, err = RegisterForMega(doc, member(8), "", regNow)
	assert.Equal(t, KindEnrollmentClosed, KindOf(err))

	doc.Status = documents.MegaInProgress
	_, err = RegisterForMega(doc, member(8), "", regNow)
	assert.Equal(t, KindEnrollmentClosed, KindOf(err))
}

func TestMegaRegistrationWaitlistsWhenApprovalRequired(t *testing.T) {
	doc := openMega()
	doc.RequiresApproval = true

	reg, err := RegisterForMega(doc, member(7), "", regNow)
	require.NoError(t, err)
	assert.Equal(t, documents.RegistrationWaitlisted, reg.State)
	assert.Equal(t, 0, doc.Metrics.Participants)

	require.NoError(t, ApproveMegaRegistration(doc, 7, regNow))
	assert.Equal(t, documents.RegistrationConfirmed, doc.Participants[0].State)
	assert.Equal(t, 1, doc.Metrics.Participants)

	// A cancelled spot re-enters through the waitlist too.
	require.NoError(t, CancelMegaRegistration(doc, 7, regNow))
	reg, err = RegisterForMega(doc, member(7), "back again", regNow.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, documents.RegistrationWaitlisted, reg.State)
}

func TestMegaMetricsCountConfirmedOnly(t *testing.T) {
	doc := openMega()
	for i := 1; i <= 3; i++ {
		_, err := RegisterForMega(doc, member(i), "", regNow)
		require.NoError(t, err)
	}
	doc.Participants[2].State = documents.RegistrationWaitlisted
	require.NoError(t, MarkMegaAttendance(doc, 1, true, regNow))

	assert.Equal(t, 2, doc.Metrics.Participants)
	assert.Equal(t, 1, doc.Metrics.Attended)
	assert.Equal(t, 50, doc.Metrics.AttendanceRate)
}

func TestOrganizerDedupeAndReactivation(t *testing.T) {
	doc := openMega()
	ngo := &models.NGOProfile{ID: 11, Name: "Blue Rivers"}

	require.NoError(t, AddOrganizer(doc, ngo, "", regNow))
	assert.Equal(t, models.OrganizerRoleCollaborator, doc.Organizers[1].Role)

	err := AddOrganizer(doc, ngo, "", regNow)
	assert.Equal(t, KindAlreadyOrganizer, KindOf(err))

	require.NoError(t, RemoveOrganizer(doc, 11, regNow))
	assert.False(t, doc.Organizers[1].Active)

	require.NoError(t, AddOrganizer(doc, ngo, models.OrganizerRoleSupport, regNow))
	assert.Len(t, doc.Organizers, 2)
	assert.True(t, doc.Organizers[1].Active)
	assert.Equal(t, models.OrganizerRoleSupport, doc.Organizers[1].Role)
}

func TestAddOrganizerRejectsUnknownRole(t *testing.T) {
	doc := openMega()
	ngo := &models.NGOProfile{ID: 11, Name: "Blue Rivers"}

	err := AddOrganizer(doc, ngo, "director", regNow)
	assert.Equal(t, KindValidationFailed, KindOf(err))
	assert.Len(t, doc.Organizers, 1)
}

func TestLastOrganizerCannotLeavePastPlanning(t *testing.T) {
	doc := openMega()
	err := RemoveOrganizer(doc, 10, regNow)
	assert.Equal(t, KindPreconditionFailed, KindOf(err))

	doc.Status = documents.MegaPlanning
	require.NoError(t, RemoveOrganizer(doc, 10, regNow))
}

func TestPledgedTotalSumsConfirmedOnly(t *testing.T) {
	doc := openMega()
	acme := &models.Company{ID: 4, Name: "Acme"}
	globex := &models.Company{ID: 5, Name: "Globex"}

	require.NoError(t, AddPledge(doc, acme, "gold", 5000, "", regNow))
	require.NoError(t, AddPledge(doc, globex, "silver", 2000, "", regNow))
	assert.Equal(t, models.PledgePledged, doc.Sponsors[0].State)
	assert.Equal(t, 0.0, doc.Metrics.PledgedTotal, "a fresh pledge does not count yet")

	require.NoError(t, SetPledgeState(doc, 4, models.PledgeConfirmed, regNow))
	assert.Equal(t, 5000.0, doc.Metrics.PledgedTotal)

	require.NoError(t, SetPledgeState(doc, 5, models.PledgeConfirmed, regNow))
	require.NoError(t, SetPledgeState(doc, 4, models.PledgeCancelled, regNow))
	assert.Equal(t, 2000.0, doc.Metrics.PledgedTotal)

	// Paid pledges leave the raised total; the sponsor count drops only
	// on cancellation.
	require.NoError(t, SetPledgeState(doc, 5, models.PledgePaid, regNow))
	assert.Equal(t, 0.0, doc.Metrics.PledgedTotal)
	assert.Equal(t, 1, doc.Metrics.Sponsors)
	assert.Equal(t, 0.0, doc.Metrics.Budget.TotalRaised)
}

func TestPledgeDedupeAndValidation(t *testing.T) {
	doc := openMega()
	acme := &models.Company{ID: 4, Name: "Acme"}

	err := AddPledge(doc, acme, "gold", -1, "", regNow)
	assert.Equal(t, KindValidationFailed, KindOf(err))

	require.NoError(t, AddPledge(doc, acme, "gold", 5000, "", regNow))
	err = AddPledge(doc, acme, "gold", 1000, "", regNow)
	assert.Equal(t, KindAlreadySponsor, KindOf(err))

	err = SetPledgeState(doc, 4, "maybe", regNow)
	assert.Equal(t, KindValidationFailed, KindOf(err))

	err = SetPledgeState(doc, 99, models.PledgeConfirmed, regNow)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestImageCeilings(t *testing.T) {
	makeImages := func(n int) []documents.Image {
		out := make([]documents.Image, n)
		for i := range out {
			out[i] = documents.Image{Filename: fmt.Sprintf("img%d.png", i), MIME: "image/png"}
		}
		return out
	}

	t.Run("event holds at most ten", func(t *testing.T) {
		doc := openEvent(10)
		require.NoError(t, AttachEventImages(doc, makeImages(5), regNow))
		require.NoError(t, AttachEventImages(doc, makeImages(5), regNow))

		err := AttachEventImages(doc, makeImages(1), regNow)
		assert.Equal(t, KindTooManyImages, KindOf(err))
		assert.Len(t, doc.Images, 10)

		require.NoError(t, RemoveEventImage(doc, 0, regNow))
		require.NoError(t, AttachEventImages(doc, makeImages(1), regNow))
	})

	t.Run("mega-event holds at most twenty", func(t *testing.T) {
		doc := openMega()
		require.NoError(t, AttachMegaImages(doc, makeImages(20), regNow))
		err := AttachMegaImages(doc, makeImages(1), regNow)
		assert.Equal(t, KindTooManyImages, KindOf(err))
	})

	t.Run("remove rejects bad index", func(t *testing.T) {
		doc := openEvent(10)
		err := RemoveEventImage(doc, 0, regNow)
		assert.Equal(t, KindNotFound, KindOf(err))
	})
}
