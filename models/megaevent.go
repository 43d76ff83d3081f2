package models

import (
	"time"
)

// MegaEvent is the relational mirror of a mega-event aggregate.
type MegaEvent struct {
	ID          int        `json:"id" gorm:"primaryKey;autoIncrement"`
	Title       string     `json:"title" gorm:"not null;size:255"`
	Description string     `json:"description" gorm:"type:text"`
	Category    string     `json:"category" gorm:"size:100"`
	Location    string     `json:"location" gorm:"size:255"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	Status      string     `json:"status" gorm:"not null;size:50;default:planning"`
	Public      bool       `json:"public" gorm:"default:false"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Organizer roles inside a mega-event. Only the principal coordinator
// and co-organizers may drive the lifecycle; collaborator is the
// default for newly added NGOs.
const (
	OrganizerRolePrincipal    = "principal_coordinator"
	OrganizerRoleCo           = "co_organizer"
	OrganizerRoleCollaborator = "collaborator"
	OrganizerRoleSupport      = "support"
)

// MegaEventOrganizer links an NGO to a mega-event it helps run. Rows are
// soft-retired by flipping Active so the membership history survives.
type MegaEventOrganizer struct {
	ID          int       `json:"id" gorm:"primaryKey;autoIncrement"`
	MegaEventID int       `json:"mega_event_id" gorm:"not null;index"`
	NGOID       int       `json:"ngo_id" gorm:"not null;index"`
	Role        string    `json:"role" gorm:"size:50;default:collaborator"`
	Active      bool      `json:"active" gorm:"default:true"`
	JoinedAt    time.Time `json:"joined_at"`

	MegaEvent MegaEvent  `json:"-" gorm:"foreignKey:MegaEventID"`
	NGO       NGOProfile `json:"ngo" gorm:"foreignKey:NGOID"`
}

// Pledge states for mega-event sponsorships. A pledge starts as
// "pledged"; only confirmed pledges count toward the pledged total.
const (
	PledgePledged   = "pledged"
	PledgeConfirmed = "confirmed"
	PledgePaid      = "paid"
	PledgeCancelled = "cancelled"
)

// MegaEventSponsor records a company pledge toward a mega-event.
type MegaEventSponsor struct {
	ID          int       `json:"id" gorm:"primaryKey;autoIncrement"`
	MegaEventID int       `json:"mega_event_id" gorm:"not null;index;uniqueIndex:idx_mega_sponsor"`
	CompanyID   int       `json:"company_id" gorm:"not null;uniqueIndex:idx_mega_sponsor"`
	Tier        string    `json:"tier" gorm:"size:50"`
	Amount      float64   `json:"amount" gorm:"default:0"`
	State       string    `json:"state" gorm:"size:50;default:pledged"`
	Note        string    `json:"note" gorm:"type:text"`
	PledgedAt   time.Time `json:"pledged_at"`

	MegaEvent MegaEvent `json:"-" gorm:"foreignKey:MegaEventID"`
	Company   Company   `json:"company" gorm:"foreignKey:CompanyID"`
}

// MegaEventParticipant is the relational registration row for mega-events.
type MegaEventParticipant struct {
	ID           int       `json:"id" gorm:"primaryKey;autoIncrement"`
	MegaEventID  int       `json:"mega_event_id" gorm:"not null;index;uniqueIndex:idx_mega_participant"`
	UserID       int       `json:"user_id" gorm:"not null;uniqueIndex:idx_mega_participant"`
	Kind         string    `json:"kind" gorm:"size:50"`
	State        string    `json:"state" gorm:"size:50;default:confirmed"`
	Attended     bool      `json:"attended" gorm:"default:false"`
	RegisteredAt time.Time `json:"registered_at"`

	MegaEvent MegaEvent `json:"-" gorm:"foreignKey:MegaEventID"`
	User      User      `json:"user" gorm:"foreignKey:UserID"`
}
