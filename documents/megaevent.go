package documents

import (
	"fmt"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"unidos-api/models"
)

// Mega-event lifecycle statuses.
const (
	MegaPlanning             = "planning"
	MegaCallForParticipation = "call_for_participation"
	MegaOrganizing           = "organizing"
	MegaInProgress           = "in_progress"
	MegaFinished             = "finished"
	MegaPostponed            = "postponed"
	MegaCancelled            = "cancelled"
)

// Mega-event ceilings.
const (
	MaxMegaEventCapacity = 10000
	MaxMegaEventDuration = 30 * 24 * time.Hour
)

// OrganizerEntry mirrors an NGO's organizer membership inside the document.
type OrganizerEntry struct {
	NGOID    int       `bson:"ngo_id" json:"ngo_id"`
	Name     string    `bson:"name" json:"name"`
	Role     string    `bson:"role" json:"role"`
	Active   bool      `bson:"active" json:"active"`
	JoinedAt time.Time `bson:"joined_at" json:"joined_at"`
}

// PledgeEntry mirrors a company sponsorship pledge inside the document.
type PledgeEntry struct {
	CompanyID int       `bson:"company_id" json:"company_id"`
	Name      string    `bson:"name" json:"name"`
	Tier      string    `bson:"tier,omitempty" json:"tier,omitempty"`
	Amount    float64   `bson:"amount" json:"amount"`
	State     string    `bson:"state" json:"state"`
	Note      string    `bson:"note,omitempty" json:"note,omitempty"`
	PledgedAt time.Time `bson:"pledged_at" json:"pledged_at"`
}

// EstimatedImpact holds organizer-reported reach figures. They are
// stored as given; the lifecycle never derives them.
type EstimatedImpact struct {
	PeopleReached    int `bson:"people_reached" json:"people_reached"`
	MediaCoverage    int `bson:"media_coverage" json:"media_coverage"`
	SocialMediaReach int `bson:"social_media_reach" json:"social_media_reach"`
}

// BudgetSummary is the pledge-driven money rollup. TotalRaised and
// FinalBalance are recomputed from the sponsor list; TotalSpent is
// organizer-reported.
type BudgetSummary struct {
	TotalRaised  float64 `bson:"total_raised" json:"total_raised"`
	TotalSpent   float64 `bson:"total_spent" json:"total_spent"`
	FinalBalance float64 `bson:"final_balance" json:"final_balance"`
}

// MegaEventMetrics is the denormalized snapshot for a mega-event.
type MegaEventMetrics struct {
	Participants   int             `bson:"participants" json:"participants"`
	Attended       int             `bson:"attended" json:"attended"`
	AttendanceRate int             `bson:"attendance_rate" json:"attendance_rate"`
	Organizers     int             `bson:"organizers" json:"organizers"`
	Sponsors       int             `bson:"sponsors" json:"sponsors"`
	PledgedTotal   float64         `bson:"pledged_total" json:"pledged_total"`
	Impact         EstimatedImpact `bson:"impact" json:"impact"`
	Budget         BudgetSummary   `bson:"budget" json:"budget"`
}

// MegaEventDocument is the authoritative document copy of a mega-event.
type MegaEventDocument struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	LedgerID         int                `bson:"ledger_id" json:"ledger_id"`
	Title            string             `bson:"title" json:"title"`
	Description      string             `bson:"description" json:"description"`
	Category         string             `bson:"category,omitempty" json:"category,omitempty"`
	Location         Location           `bson:"location" json:"location"`
	StartDate        *time.Time         `bson:"start_date,omitempty" json:"start_date"`
	EndDate          *time.Time         `bson:"end_date,omitempty" json:"end_date"`
	Capacity         int                `bson:"capacity" json:"capacity"`
	RequiresApproval bool               `bson:"requires_approval" json:"requires_approval"`
	EnrollmentOpen   bool               `bson:"enrollment_open" json:"enrollment_open"`
	Public           bool               `bson:"public" json:"public"`
	Status           string             `bson:"status" json:"status"`
	Active           bool               `bson:"active" json:"active"`
	Images           []Image            `bson:"images" json:"-"`
	Organizers       []OrganizerEntry   `bson:"organizers" json:"organizers"`
	Sponsors         []PledgeEntry      `bson:"sponsors" json:"sponsors"`
	Participants     []Registration     `bson:"participants" json:"participants"`
	History          []StatusChange     `bson:"history" json:"history"`
	Metrics          MegaEventMetrics   `bson:"metrics" json:"metrics"`
	FinishedAt       *time.Time         `bson:"finished_at,omitempty" json:"finished_at"`
	CancelledAt      *time.Time         `bson:"cancelled_at,omitempty" json:"cancelled_at"`
	CreatedAt        time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time          `bson:"updated_at" json:"updated_at"`
}

// Validate checks the fields a document must carry before it is stored.
func (m *MegaEventDocument) Validate() error {
	if m.Title == "" {
		return fmt.Errorf("title is required")
	}
	if m.Capacity < 0 {
		return fmt.Errorf("capacity cannot be negative")
	}
	if m.Capacity > MaxMegaEventCapacity {
		return fmt.Errorf("capacity cannot exceed %d", MaxMegaEventCapacity)
	}
	if m.EndDate == nil {
		return fmt.Errorf("end date is required")
	}
	if m.StartDate != nil {
		if m.EndDate.Before(*m.StartDate) {
			return fmt.Errorf("end date cannot precede start date")
		}
		if m.EndDate.Sub(*m.StartDate) > MaxMegaEventDuration {
			return fmt.Errorf("a mega-event cannot run longer than 30 days")
		}
	}
	return m.Location.validate()
}

// FindParticipant returns the registration for a user, or nil.
func (m *MegaEventDocument) FindParticipant(userID int) *Registration {
	for i := range m.Participants {
		if m.Participants[i].UserID == userID {
			return &m.Participants[i]
		}
	}
	return nil
}

// FindOrganizer returns the organizer entry for an NGO, or nil.
func (m *MegaEventDocument) FindOrganizer(ngoID int) *OrganizerEntry {
	for i := range m.Organizers {
		if m.Organizers[i].NGOID == ngoID {
			return &m.Organizers[i]
		}
	}
	return nil
}

// ActiveOrganizers counts organizer entries that are still active.
func (m *MegaEventDocument) ActiveOrganizers() int {
	n := 0
	for _, o := range m.Organizers {
		if o.Active {
			n++
		}
	}
	return n
}

// ConfirmedParticipants counts confirmed registrations only. Waitlisted
// entries do not count toward the participation numbers.
func (m *MegaEventDocument) ConfirmedParticipants() int {
	n := 0
	for _, p := range m.Participants {
		if p.State == RegistrationConfirmed {
			n++
		}
	}
	return n
}

// ActiveParticipants counts registrations that still occupy a spot,
// waitlisted included. Capacity checks use this count.
func (m *MegaEventDocument) ActiveParticipants() int {
	n := 0
	for _, p := range m.Participants {
		if p.State != RegistrationCancelled {
			n++
		}
	}
	return n
}

// RecomputeMetrics refreshes the snapshot. Participation numbers count
// confirmed registrations only; the pledged total sums confirmed pledges.
func (m *MegaEventDocument) RecomputeMetrics() {
	confirmed, attended := 0, 0
	for _, p := range m.Participants {
		if p.State != RegistrationConfirmed {
			continue
		}
		confirmed++
		if p.Attended {
			attended++
		}
	}
	m.Metrics.Participants = confirmed
	m.Metrics.Attended = attended
	if confirmed == 0 {
		m.Metrics.AttendanceRate = 0
	} else {
		m.Metrics.AttendanceRate = int(math.Round(100 * float64(attended) / float64(confirmed)))
	}

	m.Metrics.Organizers = m.ActiveOrganizers()

	sponsors, total := 0, 0.0
	for _, s := range m.Sponsors {
		if s.State == models.PledgeCancelled {
			continue
		}
		sponsors++
		if s.State == models.PledgeConfirmed {
			total += s.Amount
		}
	}
	m.Metrics.Sponsors = sponsors
	m.Metrics.PledgedTotal = total
	m.Metrics.Budget.TotalRaised = total
	m.Metrics.Budget.FinalBalance = total - m.Metrics.Budget.TotalSpent
}

// SafeProjection is the read shape served to clients.
func (m *MegaEventDocument) SafeProjection() map[string]interface{} {
	images := make([]string, 0, len(m.Images))
	for _, img := range m.Images {
		images = append(images, img.DataURL())
	}
	return map[string]interface{}{
		"id":                m.ID.Hex(),
		"ledger_id":         m.LedgerID,
		"title":             m.Title,
		"description":       m.Description,
		"category":          m.Category,
		"location":          m.Location,
		"start_date":        m.StartDate,
		"end_date":          m.EndDate,
		"capacity":          m.Capacity,
		"requires_approval": m.RequiresApproval,
		"enrollment_open":   m.EnrollmentOpen,
		"public":            m.Public,
		"status":            m.Status,
		"images":            images,
		"organizers":        m.Organizers,
		"sponsors":          m.Sponsors,
		"participants":      m.Participants,
		"history":           m.History,
		"metrics":           m.Metrics,
		"finished_at":       m.FinishedAt,
		"cancelled_at":      m.CancelledAt,
		"created_at":        m.CreatedAt,
		"updated_at":        m.UpdatedAt,
	}
}
