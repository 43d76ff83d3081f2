package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unidos-api/documents"
	"unidos-api/models"
)

type fakeTx struct {
	ledger     *fakeLedger
	commitErr  error
	createErr  error
	orgErr     error
	committed  bool
	rolledBack bool
	deleted    []int
	orgs       []*models.MegaEventOrganizer
}

func (t *fakeTx) CreateEvent(row *models.Event) error {
	if t.createErr != nil {
		return t.createErr
	}
	t.ledger.nextID++
	row.ID = t.ledger.nextID
	return nil
}

func (t *fakeTx) CreateMegaEvent(row *models.MegaEvent) error {
	if t.createErr != nil {
		return t.createErr
	}
	t.ledger.nextID++
	row.ID = t.ledger.nextID
	return nil
}

func (t *fakeTx) CreateMegaOrganizer(o *models.MegaEventOrganizer) error {
	if t.orgErr != nil {
		return t.orgErr
	}
	t.orgs = append(t.orgs, o)
	return nil
}

func (t *fakeTx) DeleteEventGraph(eventID int) error {
	t.deleted = append(t.deleted, eventID)
	return nil
}

func (t *fakeTx) DeleteMegaEventGraph(megaID int) error {
	t.deleted = append(t.deleted, megaID)
	return nil
}

func (t *fakeTx) Commit() error {
	if t.commitErr != nil {
		return t.commitErr
	}
	t.committed = true
	// Rows written through the transaction become visible on commit.
	t.ledger.megaOrgs = append(t.ledger.megaOrgs, t.orgs...)
	return nil
}

func (t *fakeTx) Rollback() error {
	t.rolledBack = true
	return nil
}

type fakeLedger struct {
	nextID    int
	tx        *fakeTx
	createErr error
	commitErr error
	orgErr    error
	mirrorErr error

	users     map[int]*models.User
	ngos      map[int]*models.NGOProfile
	companies map[int]*models.Company

	mirroredEvents []*models.Event
	mirroredMegas  []*models.MegaEvent
	participants   []*models.EventParticipant
	sponsors       []*models.EventSponsor
	backers        []*models.EventBacker
	megaParts      []*models.MegaEventParticipant
	megaOrgs       []*models.MegaEventOrganizer
	megaSponsors   []*models.MegaEventSponsor
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		users:     map[int]*models.User{},
		ngos:      map[int]*models.NGOProfile{},
		companies: map[int]*models.Company{},
	}
}

func (l *fakeLedger) Begin() (LedgerTx, error) {
	l.tx = &fakeTx{ledger: l, createErr: l.createErr, commitErr: l.commitErr, orgErr: l.orgErr}
	return l.tx, nil
}

func (l *fakeLedger) GetUser(id int) (*models.User, error) {
	u, ok := l.users[id]
	if !ok {
		return nil, NewError(KindNotFound, "user %d not found", id)
	}
	return u, nil
}

func (l *fakeLedger) GetNGO(id int) (*models.NGOProfile, error) {
	return l.ngos[id], nil
}

func (l *fakeLedger) GetNGOByUser(userID int) (*models.NGOProfile, error) {
	for _, n := range l.ngos {
		if n.UserID == userID {
			return n, nil
		}
	}
	return nil, nil
}

func (l *fakeLedger) GetCompany(id int) (*models.Company, error) {
	return l.companies[id], nil
}

func (l *fakeLedger) GetCompanyByUser(userID int) (*models.Company, error) {
	for _, co := range l.companies {
		if co.UserID == userID {
			return co, nil
		}
	}
	return nil, nil
}

func (l *fakeLedger) MirrorEvent(row *models.Event) error {
	if l.mirrorErr != nil {
		return l.mirrorErr
	}
	l.mirroredEvents = append(l.mirroredEvents, row)
	return nil
}

func (l *fakeLedger) SaveEventParticipant(p *models.EventParticipant) error {
	if l.mirrorErr != nil {
		return l.mirrorErr
	}
	l.participants = append(l.participants, p)
	return nil
}

func (l *fakeLedger) SaveEventSponsor(s *models.EventSponsor) error {
	l.sponsors = append(l.sponsors, s)
	return nil
}

func (l *fakeLedger) SaveEventBacker(b *models.EventBacker) error {
	l.backers = append(l.backers, b)
	return nil
}

func (l *fakeLedger) DeleteEventSponsor(eventID, companyID int) error {
	for i, s := range l.sponsors {
		if s.EventID == eventID && s.CompanyID == companyID {
			l.sponsors = append(l.sponsors[:i], l.sponsors[i+1:]...)
			break
		}
	}
	return nil
}

func (l *fakeLedger) DeleteEventBacker(eventID, ngoID int) error {
	for i, b := range l.backers {
		if b.EventID == eventID && b.NGOID == ngoID {
			l.backers = append(l.backers[:i], l.backers[i+1:]...)
			break
		}
	}
	return nil
}

func (l *fakeLedger) MirrorMegaEvent(row *models.MegaEvent) error {
	if l.mirrorErr != nil {
		return l.mirrorErr
	}
	l.mirroredMegas = append(l.mirroredMegas, row)
	return nil
}

func (l *fakeLedger) SaveMegaParticipant(p *models.MegaEventParticipant) error {
	l.megaParts = append(l.megaParts, p)
	return nil
}

func (l *fakeLedger) SaveMegaOrganizer(o *models.MegaEventOrganizer) error {
	l.megaOrgs = append(l.megaOrgs, o)
	return nil
}

func (l *fakeLedger) SaveMegaSponsor(s *models.MegaEventSponsor) error {
	l.megaSponsors = append(l.megaSponsors, s)
	return nil
}

type fakeEventStore struct {
	docs       map[int]*documents.EventDocument
	insertErr  error
	replaceErr error
	removed    []int
}

func newFakeEventStore() *fakeEventStore {
	return &fakeEventStore{docs: map[int]*documents.EventDocument{}}
}

func (s *fakeEventStore) Insert(ctx context.Context, doc *documents.EventDocument) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	copied := *doc
	s.docs[doc.LedgerID] = &copied
	return nil
}

func (s *fakeEventStore) FindByLedgerID(ctx context.Context, ledgerID int) (*documents.EventDocument, error) {
	doc, ok := s.docs[ledgerID]
	if !ok || !doc.Active {
		return nil, NewError(KindNotFound, "event %d not found", ledgerID)
	}
	copied := *doc
	return &copied, nil
}

func (s *fakeEventStore) Replace(ctx context.Context, doc *documents.EventDocument) error {
	if s.replaceErr != nil {
		return s.replaceErr
	}
	copied := *doc
	s.docs[doc.LedgerID] = &copied
	return nil
}

func (s *fakeEventStore) Remove(ctx context.Context, ledgerID int) error {
	delete(s.docs, ledgerID)
	s.removed = append(s.removed, ledgerID)
	return nil
}

func (s *fakeEventStore) List(ctx context.Context, filter EventFilter) ([]documents.EventDocument, error) {
	out := []documents.EventDocument{}
	for _, d := range s.docs {
		if d.Active {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (s *fakeEventStore) CountByStatus(ctx context.Context, ngoID int) (map[string]int, error) {
	counts := map[string]int{}
	for _, d := range s.docs {
		if d.Active && d.NGOID == ngoID {
			counts[d.Status]++
		}
	}
	return counts, nil
}

func (s *fakeEventStore) Lock(ledgerID int) func() { return func() {} }

type fakeMegaStore struct {
	docs      map[int]*documents.MegaEventDocument
	insertErr error
	removed   []int
}

func newFakeMegaStore() *fakeMegaStore {
	return &fakeMegaStore{docs: map[int]*documents.MegaEventDocument{}}
}

func (s *fakeMegaStore) Insert(ctx context.Context, doc *documents.MegaEventDocument) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	copied := *doc
	s.docs[doc.LedgerID] = &copied
	return nil
}

func (s *fakeMegaStore) FindByLedgerID(ctx context.Context, ledgerID int) (*documents.MegaEventDocument, error) {
	doc, ok := s.docs[ledgerID]
	if !ok || !doc.Active {
		return nil, NewError(KindNotFound, "mega-event %d not found", ledgerID)
	}
	copied := *doc
	return &copied, nil
}

func (s *fakeMegaStore) Replace(ctx context.Context, doc *documents.MegaEventDocument) error {
	copied := *doc
	s.docs[doc.LedgerID] = &copied
	return nil
}

func (s *fakeMegaStore) Remove(ctx context.Context, ledgerID int) error {
	delete(s.docs, ledgerID)
	s.removed = append(s.removed, ledgerID)
	return nil
}

func (s *fakeMegaStore) List(ctx context.Context, filter MegaEventFilter) ([]documents.MegaEventDocument, error) {
	out := []documents.MegaEventDocument{}
	for _, d := range s.docs {
		if d.Active {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (s *fakeMegaStore) Lock(ledgerID int) func() { return func() {} }

var testClock = func() time.Time {
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func newTestEventService(ledger *fakeLedger, store *fakeEventStore) *EventService {
	return NewEventService(ledger, store, nil).WithClock(testClock)
}

func ngoActor() Actor {
	return Actor{UserID: 1, Role: models.RoleNGO, NGOID: 10}
}

func TestEventCreateWritesBothStores(t *testing.T) {
	ledger := newFakeLedger()
	store := newFakeEventStore()
	svc := newTestEventService(ledger, store)

	start := testClock().Add(48 * time.Hour)
	doc, err := svc.Create(context.Background(), ngoActor(), CreateEventInput{
		Title:     "River cleanup",
		Location:  documents.Location{Address: "North bank"},
		StartDate: &start,
		Capacity:  30,
	})
	require.NoError(t, err)
	require.NotNil(t, doc)

	assert.Equal(t, documents.EventDraft, doc.Status)
	assert.True(t, doc.Active)
	assert.Equal(t, 1, doc.LedgerID)
	assert.True(t, ledger.tx.committed)
	require.Contains(t, store.docs, 1)
	require.Len(t, doc.History, 1)
	assert.Equal(t, documents.EventDraft, doc.History[0].To)
}

func TestEventCreateRollsBackWhenDocumentWriteFails(t *testing.T) {
	ledger := newFakeLedger()
	store := newFakeEventStore()
	store.insertErr = errors.New("mongo down")
	svc := newTestEventService(ledger, store)

	_, err := svc.Create(context.Background(), ngoActor(), CreateEventInput{Title: "Orphaned"})
	require.Error(t, err)
	assert.Equal(t, KindDualWriteFailure, KindOf(err))
	assert.True(t, ledger.tx.rolledBack)
	assert.False(t, ledger.tx.committed)
	assert.Empty(t, store.docs)
}

func TestEventCreateCompensatesWhenCommitFails(t *testing.T) {
	ledger := newFakeLedger()
	ledger.commitErr = errors.New("deadlock")
	store := newFakeEventStore()
	svc := newTestEventService(ledger, store)

	_, err := svc.Create(context.Background(), ngoActor(), CreateEventInput{Title: "Half written"})
	require.Error(t, err)
	assert.Equal(t, KindDualWriteFailure, KindOf(err))
	assert.Equal(t, []int{1}, store.removed)
	assert.Empty(t, store.docs)
}

func TestEventCreateRejectsNonNGO(t *testing.T) {
	svc := newTestEventService(newFakeLedger(), newFakeEventStore())

	_, err := svc.Create(context.Background(), Actor{UserID: 5, Role: models.RoleCompany}, CreateEventInput{Title: "Nope"})
	require.Error(t, err)
	assert.Equal(t, KindUnauthorized, KindOf(err))
}

func seedEvent(store *fakeEventStore, status string) *documents.EventDocument {
	start := testClock().Add(24 * time.Hour)
	doc := &documents.EventDocument{
		LedgerID:       1,
		NGOID:          10,
		Title:          "Food drive",
		Location:       documents.Location{Address: "Main square"},
		StartDate:      &start,
		Capacity:       2,
		Status:         status,
		EnrollmentOpen: status == documents.EventPublished,
		Public:         status != documents.EventDraft,
		Active:         true,
	}
	store.docs[1] = doc
	return doc
}

func TestEventUpdateSwallowsMirrorFailure(t *testing.T) {
	ledger := newFakeLedger()
	ledger.mirrorErr = errors.New("mysql gone")
	store := newFakeEventStore()
	seedEvent(store, documents.EventDraft)
	svc := newTestEventService(ledger, store)

	title := "Winter food drive"
	doc, err := svc.Update(context.Background(), ngoActor(), 1, UpdateEventInput{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Winter food drive", doc.Title)
	assert.Equal(t, "Winter food drive", store.docs[1].Title)
	assert.Empty(t, ledger.mirroredEvents)
}

func TestEventUpdateRejectsForeignNGO(t *testing.T) {
	store := newFakeEventStore()
	seedEvent(store, documents.EventDraft)
	svc := newTestEventService(newFakeLedger(), store)

	title := "Hijacked"
	_, err := svc.Update(context.Background(), Actor{UserID: 9, Role: models.RoleNGO, NGOID: 99}, 1, UpdateEventInput{Title: &title})
	require.Error(t, err)
	assert.Equal(t, KindUnauthorized, KindOf(err))
}

func TestEventDeleteBlockedByDependents(t *testing.T) {
	store := newFakeEventStore()
	doc := seedEvent(store, documents.EventPublished)
	doc.Registrations = []documents.Registration{{UserID: 7, State: documents.RegistrationConfirmed}}
	svc := newTestEventService(newFakeLedger(), store)

	err := svc.Delete(context.Background(), ngoActor(), 1)
	require.Error(t, err)
	assert.Equal(t, KindHasDependents, KindOf(err))
	assert.True(t, store.docs[1].Active)
}

func TestEventDeleteRetiresDocument(t *testing.T) {
	ledger := newFakeLedger()
	store := newFakeEventStore()
	seedEvent(store, documents.EventDraft)
	svc := newTestEventService(ledger, store)

	require.NoError(t, svc.Delete(context.Background(), ngoActor(), 1))
	assert.Equal(t, []int{1}, ledger.tx.deleted)
	assert.True(t, ledger.tx.committed)

	retired := store.docs[1]
	assert.False(t, retired.Active)
	assert.Equal(t, documents.EventCancelled, retired.Status)
	assert.NotNil(t, retired.CancelledAt)
}

func TestEventRegisterMirrorsParticipant(t *testing.T) {
	ledger := newFakeLedger()
	ledger.users[7] = &models.User{ID: 7, Username: "maria", Role: models.RoleExternalMember}
	store := newFakeEventStore()
	seedEvent(store, documents.EventPublished)
	svc := newTestEventService(ledger, store)

	doc, err := svc.Register(context.Background(), Actor{UserID: 7, Role: models.RoleExternalMember}, 1, "")
	require.NoError(t, err)
	require.Len(t, doc.Registrations, 1)
	assert.Equal(t, documents.RegistrationConfirmed, doc.Registrations[0].State)

	require.Len(t, ledger.participants, 1)
	assert.Equal(t, 7, ledger.participants[0].UserID)
	assert.Equal(t, 1, ledger.participants[0].EventID)
}

func TestEventRegisterSucceedsWhenMirrorFails(t *testing.T) {
	ledger := newFakeLedger()
	ledger.users[7] = &models.User{ID: 7, Username: "maria", Role: models.RoleExternalMember}
	store := newFakeEventStore()
	seedEvent(store, documents.EventPublished)
	svc := newTestEventService(ledger, store)
	ledger.mirrorErr = errors.New("mysql gone")

	doc, err := svc.Register(context.Background(), Actor{UserID: 7, Role: models.RoleExternalMember}, 1, "")
	require.NoError(t, err)
	assert.Len(t, doc.Registrations, 1)
	assert.Len(t, store.docs[1].Registrations, 1)
}

func TestEventSponsorRequiresCompanyProfile(t *testing.T) {
	ledger := newFakeLedger()
	store := newFakeEventStore()
	seedEvent(store, documents.EventPublished)
	svc := newTestEventService(ledger, store)

	_, err := svc.AddSponsor(context.Background(), Actor{UserID: 3, Role: models.RoleCompany}, 1, "gold")
	require.Error(t, err)
	assert.Equal(t, KindUnauthorized, KindOf(err))
}

func TestEventSponsorDeduped(t *testing.T) {
	ledger := newFakeLedger()
	ledger.companies[4] = &models.Company{ID: 4, UserID: 3, Name: "Acme"}
	store := newFakeEventStore()
	seedEvent(store, documents.EventPublished)
	svc := newTestEventService(ledger, store)
	actor := Actor{UserID: 3, Role: models.RoleCompany}

	_, err := svc.AddSponsor(context.Background(), actor, 1, "gold")
	require.NoError(t, err)

	_, err = svc.AddSponsor(context.Background(), actor, 1, "silver")
	require.Error(t, err)
	assert.Equal(t, KindAlreadySponsor, KindOf(err))
}

func TestEventSponsorRemoval(t *testing.T) {
	ledger := newFakeLedger()
	ledger.companies[4] = &models.Company{ID: 4, UserID: 3, Name: "Acme"}
	store := newFakeEventStore()
	seedEvent(store, documents.EventPublished)
	svc := newTestEventService(ledger, store)
	actor := Actor{UserID: 3, Role: models.RoleCompany}

	_, err := svc.AddSponsor(context.Background(), actor, 1, "gold")
	require.NoError(t, err)

	doc, err := svc.RemoveSponsor(context.Background(), actor, 1)
	require.NoError(t, err)
	assert.Empty(t, doc.Sponsors)
	assert.Empty(t, ledger.sponsors)

	_, err = svc.RemoveSponsor(context.Background(), actor, 1)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestEventStatusCounts(t *testing.T) {
	store := newFakeEventStore()
	seedEvent(store, documents.EventPublished)
	svc := newTestEventService(newFakeLedger(), store)

	counts, err := svc.StatusCounts(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{documents.EventPublished: 1}, counts)
}

func TestCloseExpiredEnrollment(t *testing.T) {
	store := newFakeEventStore()
	expired := seedEvent(store, documents.EventPublished)
	pastDeadline := testClock().Add(-time.Hour)
	expired.EnrollmentDeadline = &pastDeadline

	futureDeadline := testClock().Add(time.Hour)
	open := &documents.EventDocument{
		LedgerID:           2,
		NGOID:              10,
		Title:              "Beach cleanup",
		Status:             documents.EventPublished,
		EnrollmentOpen:     true,
		EnrollmentDeadline: &futureDeadline,
		Active:             true,
	}
	store.docs[2] = open

	noDeadline := &documents.EventDocument{
		LedgerID:       3,
		NGOID:          10,
		Title:          "Open house",
		Status:         documents.EventPublished,
		EnrollmentOpen: true,
		Active:         true,
	}
	store.docs[3] = noDeadline

	svc := newTestEventService(newFakeLedger(), store)

	closed, err := svc.CloseExpiredEnrollment(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, closed)
	assert.False(t, store.docs[1].EnrollmentOpen)
	assert.True(t, store.docs[2].EnrollmentOpen)
	assert.True(t, store.docs[3].EnrollmentOpen)
}

func megaWindow() (time.Time, time.Time) {
	start := testClock().Add(30 * 24 * time.Hour)
	return start, start.Add(48 * time.Hour)
}

func TestMegaCreateSeedsPrincipalCoordinator(t *testing.T) {
	ledger := newFakeLedger()
	ledger.ngos[10] = &models.NGOProfile{ID: 10, UserID: 1, Name: "Green Roots"}
	store := newFakeMegaStore()
	svc := NewMegaEventService(ledger, store, nil).WithClock(testClock)

	start, end := megaWindow()
	doc, err := svc.Create(context.Background(), ngoActor(), CreateMegaEventInput{
		Title:     "City summit",
		StartDate: &start,
		EndDate:   &end,
	})
	require.NoError(t, err)

	require.Len(t, doc.Organizers, 1)
	assert.Equal(t, models.OrganizerRolePrincipal, doc.Organizers[0].Role)
	assert.True(t, doc.Organizers[0].Active)
	assert.Equal(t, documents.MegaPlanning, doc.Status)
	assert.Equal(t, 1, doc.Metrics.Organizers)

	// The coordinator's join row rides the same transaction as the
	// core row, so it is only visible once the commit lands.
	require.Len(t, ledger.tx.orgs, 1)
	require.Len(t, ledger.megaOrgs, 1)
	assert.Equal(t, models.OrganizerRolePrincipal, ledger.megaOrgs[0].Role)
	assert.Equal(t, 1, ledger.megaOrgs[0].MegaEventID)
}

func TestMegaCreateRollsBackWhenOrganizerRowFails(t *testing.T) {
	ledger := newFakeLedger()
	ledger.ngos[10] = &models.NGOProfile{ID: 10, UserID: 1, Name: "Green Roots"}
	ledger.orgErr = errors.New("organizer insert failed")
	store := newFakeMegaStore()
	svc := NewMegaEventService(ledger, store, nil).WithClock(testClock)

	start, end := megaWindow()
	_, err := svc.Create(context.Background(), ngoActor(), CreateMegaEventInput{
		Title:     "City summit",
		StartDate: &start,
		EndDate:   &end,
	})
	require.Error(t, err)
	assert.True(t, ledger.tx.rolledBack)
	assert.False(t, ledger.tx.committed)
	assert.Empty(t, ledger.megaOrgs)
	assert.Empty(t, store.docs)
}

func TestMegaDeleteBlockedByCoOrganizers(t *testing.T) {
	ledger := newFakeLedger()
	store := newFakeMegaStore()
	store.docs[1] = &documents.MegaEventDocument{
		LedgerID: 1,
		Title:    "City summit",
		Status:   documents.MegaPlanning,
		Active:   true,
		Organizers: []documents.OrganizerEntry{
			{NGOID: 10, Role: models.OrganizerRolePrincipal, Active: true},
			{NGOID: 11, Role: models.OrganizerRoleCo, Active: true},
		},
	}
	svc := NewMegaEventService(ledger, store, nil).WithClock(testClock)

	err := svc.Delete(context.Background(), ngoActor(), 1)
	require.Error(t, err)
	assert.Equal(t, KindHasDependents, KindOf(err))
}

func TestMegaAddOrganizerRequiresNGOProfile(t *testing.T) {
	ledger := newFakeLedger()
	store := newFakeMegaStore()
	store.docs[1] = &documents.MegaEventDocument{
		LedgerID: 1,
		Title:    "City summit",
		Status:   documents.MegaPlanning,
		Active:   true,
		Organizers: []documents.OrganizerEntry{
			{NGOID: 10, Role: models.OrganizerRolePrincipal, Active: true},
		},
	}
	svc := NewMegaEventService(ledger, store, nil).WithClock(testClock)

	_, err := svc.AddOrganizer(context.Background(), ngoActor(), 1, 42, "")
	require.Error(t, err)
	assert.Equal(t, KindNotAnNgo, KindOf(err))
}
