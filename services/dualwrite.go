package services

import (
	"context"
	"time"

	"unidos-api/documents"
	"unidos-api/models"
)

// Ledger is the relational side of the dual-write pair. Mirror methods
// are best effort: the document copy is authoritative and mirror
// failures are logged, not surfaced.
type Ledger interface {
	Begin() (LedgerTx, error)

	GetUser(id int) (*models.User, error)
	GetNGO(id int) (*models.NGOProfile, error)
	GetNGOByUser(userID int) (*models.NGOProfile, error)
	GetCompany(id int) (*models.Company, error)
	GetCompanyByUser(userID int) (*models.Company, error)

	MirrorEvent(row *models.Event) error
	SaveEventParticipant(p *models.EventParticipant) error
	SaveEventSponsor(s *models.EventSponsor) error
	SaveEventBacker(b *models.EventBacker) error
	DeleteEventSponsor(eventID, companyID int) error
	DeleteEventBacker(eventID, ngoID int) error

	MirrorMegaEvent(row *models.MegaEvent) error
	SaveMegaParticipant(p *models.MegaEventParticipant) error
	SaveMegaOrganizer(o *models.MegaEventOrganizer) error
	SaveMegaSponsor(s *models.MegaEventSponsor) error
}

// LedgerTx is a relational transaction. Creation and deletion of
// aggregates run inside one so the dependency-ordered writes land
// atomically.
type LedgerTx interface {
	CreateEvent(row *models.Event) error
	CreateMegaEvent(row *models.MegaEvent) error
	CreateMegaOrganizer(o *models.MegaEventOrganizer) error
	DeleteEventGraph(eventID int) error
	DeleteMegaEventGraph(megaID int) error
	Commit() error
	Rollback() error
}

// EventStore is the document side for events. Lock serializes writers
// on one aggregate; the returned func releases the hold.
type EventStore interface {
	Insert(ctx context.Context, doc *documents.EventDocument) error
	FindByLedgerID(ctx context.Context, ledgerID int) (*documents.EventDocument, error)
	Replace(ctx context.Context, doc *documents.EventDocument) error
	Remove(ctx context.Context, ledgerID int) error
	List(ctx context.Context, filter EventFilter) ([]documents.EventDocument, error)
	CountByStatus(ctx context.Context, ngoID int) (map[string]int, error)
	Lock(ledgerID int) func()
}

// MegaEventStore is the document side for mega-events.
type MegaEventStore interface {
	Insert(ctx context.Context, doc *documents.MegaEventDocument) error
	FindByLedgerID(ctx context.Context, ledgerID int) (*documents.MegaEventDocument, error)
	Replace(ctx context.Context, doc *documents.MegaEventDocument) error
	Remove(ctx context.Context, ledgerID int) error
	List(ctx context.Context, filter MegaEventFilter) ([]documents.MegaEventDocument, error)
	Lock(ledgerID int) func()
}

// Notifier delivers lifecycle notices. Implementations must be safe to
// call with best-effort semantics; failures are logged by the caller.
type Notifier interface {
	EventPublished(doc *documents.EventDocument) error
	EventCancelled(doc *documents.EventDocument, reason string) error
	MegaEventStatusChanged(doc *documents.MegaEventDocument, from, to string) error
}

// EventFilter narrows event listings.
type EventFilter struct {
	NGOID        int
	Status       string
	EventType    string
	Category     string
	PublicOnly   bool
	UpcomingOnly bool
	Search       string
	Page         int
	PageSize     int
}

// MegaEventFilter narrows mega-event listings.
type MegaEventFilter struct {
	Status         string
	Category       string
	OrganizerNGOID int
	PublicOnly     bool
	UpcomingOnly   bool
	Search         string
	Page           int
	PageSize       int
}

// nowFunc lets tests pin the clock.
type nowFunc func() time.Time

func orNow(f nowFunc) nowFunc {
	if f == nil {
		return time.Now
	}
	return f
}
