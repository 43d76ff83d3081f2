package models

import (
	"time"
)

// Event is the relational mirror of an event aggregate. The scalar fields
// here stay in sync with the document copy; joins and counters hang off it.
type Event struct {
	ID          int        `json:"id" gorm:"primaryKey;autoIncrement"`
	NGOID       int        `json:"ngo_id" gorm:"not null;index"`
	Title       string     `json:"title" gorm:"not null;size:255"`
	Description string     `json:"description" gorm:"type:text"`
	EventType   string     `json:"event_type" gorm:"size:100"`
	Category    string     `json:"category" gorm:"size:100"`
	Location    string     `json:"location" gorm:"size:255"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	Capacity    int        `json:"capacity" gorm:"default:0"`
	Status      string     `json:"status" gorm:"not null;size:50;default:draft"`
	Public      bool       `json:"public" gorm:"default:false"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	NGO NGOProfile `json:"ngo" gorm:"foreignKey:NGOID"`
}

// EventSponsor links a company to an event it sponsors.
type EventSponsor struct {
	ID        int       `json:"id" gorm:"primaryKey;autoIncrement"`
	EventID   int       `json:"event_id" gorm:"not null;index;uniqueIndex:idx_event_sponsor"`
	CompanyID int       `json:"company_id" gorm:"not null;uniqueIndex:idx_event_sponsor"`
	Tier      string    `json:"tier" gorm:"size:50"`
	CreatedAt time.Time `json:"created_at"`

	Event   Event   `json:"-" gorm:"foreignKey:EventID"`
	Company Company `json:"company" gorm:"foreignKey:CompanyID"`
}

// EventBacker links a supporting NGO to an event run by another NGO.
type EventBacker struct {
	ID        int       `json:"id" gorm:"primaryKey;autoIncrement"`
	EventID   int       `json:"event_id" gorm:"not null;index;uniqueIndex:idx_event_backer"`
	NGOID     int       `json:"ngo_id" gorm:"not null;uniqueIndex:idx_event_backer"`
	CreatedAt time.Time `json:"created_at"`

	Event Event      `json:"-" gorm:"foreignKey:EventID"`
	NGO   NGOProfile `json:"ngo" gorm:"foreignKey:NGOID"`
}

// EventParticipant is the relational registration row. The authoritative
// registration list lives on the document; this row backs reporting joins.
type EventParticipant struct {
	ID           int       `json:"id" gorm:"primaryKey;autoIncrement"`
	EventID      int       `json:"event_id" gorm:"not null;index;uniqueIndex:idx_event_participant"`
	UserID       int       `json:"user_id" gorm:"not null;uniqueIndex:idx_event_participant"`
	Kind         string    `json:"kind" gorm:"size:50"`
	Attended     bool      `json:"attended" gorm:"default:false"`
	RegisteredAt time.Time `json:"registered_at"`

	Event Event `json:"-" gorm:"foreignKey:EventID"`
	User  User  `json:"user" gorm:"foreignKey:UserID"`
}
