package documents

import (
	"encoding/base64"
	"fmt"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Event lifecycle statuses.
const (
	EventDraft      = "draft"
	EventPublished  = "published"
	EventInProgress = "in_progress"
	EventFinished   = "finished"
	EventSuspended  = "suspended"
	EventCancelled  = "cancelled"
)

// Registration states shared by events and mega-events.
const (
	RegistrationConfirmed  = "confirmed"
	RegistrationWaitlisted = "waitlisted"
	RegistrationCancelled  = "cancelled"
)

// Location modes.
const (
	ModeInPerson = "in-person"
	ModeVirtual  = "virtual"
	ModeHybrid   = "hybrid"
)

// MaxEventCapacity is the ceiling an event capacity may be set to.
const MaxEventCapacity = 5000

// Location is the venue sub-document shared by events and mega-events.
// Department and Country are only filled on mega-events.
type Location struct {
	Address     string   `bson:"address" json:"address"`
	City        string   `bson:"city,omitempty" json:"city,omitempty"`
	Department  string   `bson:"department,omitempty" json:"department,omitempty"`
	Country     string   `bson:"country,omitempty" json:"country,omitempty"`
	Mode        string   `bson:"mode,omitempty" json:"mode,omitempty"`
	VirtualLink string   `bson:"virtual_link,omitempty" json:"virtual_link,omitempty"`
	Latitude    *float64 `bson:"latitude,omitempty" json:"latitude,omitempty"`
	Longitude   *float64 `bson:"longitude,omitempty" json:"longitude,omitempty"`
}

// IsZero reports whether no venue information has been set.
func (l Location) IsZero() bool {
	return l == Location{}
}

// String flattens the venue for the relational mirror column.
func (l Location) String() string {
	switch {
	case l.Address != "" && l.City != "":
		return l.Address + ", " + l.City
	case l.Address != "":
		return l.Address
	case l.VirtualLink != "":
		return l.VirtualLink
	default:
		return l.City
	}
}

func (l Location) validate() error {
	switch l.Mode {
	case "", ModeInPerson, ModeVirtual, ModeHybrid:
		return nil
	default:
		return fmt.Errorf("unknown location mode %q", l.Mode)
	}
}

// Registration is one participant entry embedded in an aggregate.
type Registration struct {
	UserID       int        `bson:"user_id" json:"user_id"`
	Name         string     `bson:"name" json:"name"`
	Kind         string     `bson:"kind" json:"kind"`
	State        string     `bson:"state" json:"state"`
	Attended     bool       `bson:"attended" json:"attended"`
	Comments     string     `bson:"comments,omitempty" json:"comments,omitempty"`
	RegisteredAt time.Time  `bson:"registered_at" json:"registered_at"`
	AttendedAt   *time.Time `bson:"attended_at,omitempty" json:"attended_at,omitempty"`
}

// StatusChange is one entry in an aggregate's lifecycle history.
type StatusChange struct {
	From    string    `bson:"from" json:"from"`
	To      string    `bson:"to" json:"to"`
	Reason  string    `bson:"reason" json:"reason"`
	ActorID int       `bson:"actor_id" json:"actor_id"`
	At      time.Time `bson:"at" json:"at"`
}

// Image is a blob embedded directly in the aggregate document.
type Image struct {
	Filename   string    `bson:"filename" json:"filename"`
	MIME       string    `bson:"mime" json:"mime"`
	Size       int64     `bson:"size" json:"size"`
	Data       []byte    `bson:"data" json:"-"`
	UploadedAt time.Time `bson:"uploaded_at" json:"uploaded_at"`
}

// DataURL renders the image as an inline data URL for read projections.
func (i Image) DataURL() string {
	return fmt.Sprintf("data:%s;base64,%s", i.MIME, base64.StdEncoding.EncodeToString(i.Data))
}

// SponsorRef mirrors an event sponsorship inside the document.
type SponsorRef struct {
	CompanyID int       `bson:"company_id" json:"company_id"`
	Name      string    `bson:"name" json:"name"`
	Tier      string    `bson:"tier,omitempty" json:"tier,omitempty"`
	AddedAt   time.Time `bson:"added_at" json:"added_at"`
}

// BackerRef mirrors a supporting-NGO link inside the document.
type BackerRef struct {
	NGOID   int       `bson:"ngo_id" json:"ngo_id"`
	Name    string    `bson:"name" json:"name"`
	AddedAt time.Time `bson:"added_at" json:"added_at"`
}

// EventMetrics is the denormalized attendance snapshot.
type EventMetrics struct {
	Registered     int `bson:"registered" json:"registered"`
	Attended       int `bson:"attended" json:"attended"`
	AttendanceRate int `bson:"attendance_rate" json:"attendance_rate"`
}

// EventDocument is the authoritative document copy of an event.
type EventDocument struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	LedgerID           int                `bson:"ledger_id" json:"ledger_id"`
	NGOID              int                `bson:"ngo_id" json:"ngo_id"`
	Title              string             `bson:"title" json:"title"`
	Description        string             `bson:"description" json:"description"`
	EventType          string             `bson:"event_type" json:"event_type"`
	Category           string             `bson:"category,omitempty" json:"category,omitempty"`
	Location           Location           `bson:"location" json:"location"`
	StartDate          *time.Time         `bson:"start_date,omitempty" json:"start_date"`
	EndDate            *time.Time         `bson:"end_date,omitempty" json:"end_date"`
	Capacity           int                `bson:"capacity" json:"capacity"`
	RequiresApproval   bool               `bson:"requires_approval" json:"requires_approval"`
	EnrollmentOpen     bool               `bson:"enrollment_open" json:"enrollment_open"`
	EnrollmentDeadline *time.Time         `bson:"enrollment_deadline,omitempty" json:"enrollment_deadline"`
	Public             bool               `bson:"public" json:"public"`
	Status             string             `bson:"status" json:"status"`
	Active             bool               `bson:"active" json:"active"`
	Images             []Image            `bson:"images" json:"-"`
	Registrations      []Registration     `bson:"registrations" json:"registrations"`
	Sponsors           []SponsorRef       `bson:"sponsors" json:"sponsors"`
	Backers            []BackerRef        `bson:"backers" json:"backers"`
	History            []StatusChange     `bson:"history" json:"history"`
	Metrics            EventMetrics       `bson:"metrics" json:"metrics"`
	FinishedAt         *time.Time         `bson:"finished_at,omitempty" json:"finished_at"`
	CancelledAt        *time.Time         `bson:"cancelled_at,omitempty" json:"cancelled_at"`
	CreatedAt          time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt          time.Time          `bson:"updated_at" json:"updated_at"`
}

// Validate checks the fields a document must carry before it is stored.
func (e *EventDocument) Validate() error {
	if e.Title == "" {
		return fmt.Errorf("title is required")
	}
	if e.NGOID <= 0 {
		return fmt.Errorf("owning NGO is required")
	}
	if e.Capacity < 0 {
		return fmt.Errorf("capacity cannot be negative")
	}
	if e.Capacity > MaxEventCapacity {
		return fmt.Errorf("capacity cannot exceed %d", MaxEventCapacity)
	}
	if e.StartDate != nil && e.EndDate != nil && e.EndDate.Before(*e.StartDate) {
		return fmt.Errorf("end date cannot precede start date")
	}
	if e.EnrollmentDeadline != nil && e.StartDate != nil && e.EnrollmentDeadline.After(*e.StartDate) {
		return fmt.Errorf("enrollment deadline cannot fall after the start date")
	}
	return e.Location.validate()
}

// FindRegistration returns the registration for a user, or nil.
func (e *EventDocument) FindRegistration(userID int) *Registration {
	for i := range e.Registrations {
		if e.Registrations[i].UserID == userID {
			return &e.Registrations[i]
		}
	}
	return nil
}

// ActiveRegistrations counts registrations that still occupy a spot.
func (e *EventDocument) ActiveRegistrations() int {
	n := 0
	for _, r := range e.Registrations {
		if r.State != RegistrationCancelled {
			n++
		}
	}
	return n
}

// RecomputeMetrics refreshes the attendance snapshot from the
// registration list. The rate is a rounded whole percentage; an event
// with no active registrations reports zero.
func (e *EventDocument) RecomputeMetrics() {
	registered, attended := 0, 0
	for _, r := range e.Registrations {
		if r.State == RegistrationCancelled {
			continue
		}
		registered++
		if r.Attended {
			attended++
		}
	}
	e.Metrics.Registered = registered
	e.Metrics.Attended = attended
	if registered == 0 {
		e.Metrics.AttendanceRate = 0
		return
	}
	e.Metrics.AttendanceRate = int(math.Round(100 * float64(attended) / float64(registered)))
}

// SafeProjection is the read shape served to clients. Image blobs are
// rendered as inline data URLs instead of raw bytes.
func (e *EventDocument) SafeProjection() map[string]interface{} {
	images := make([]string, 0, len(e.Images))
	for _, img := range e.Images {
		images = append(images, img.DataURL())
	}
	return map[string]interface{}{
		"id":                  e.ID.Hex(),
		"ledger_id":           e.LedgerID,
		"ngo_id":              e.NGOID,
		"title":               e.Title,
		"description":         e.Description,
		"event_type":          e.EventType,
		"category":            e.Category,
		"location":            e.Location,
		"start_date":          e.StartDate,
		"end_date":            e.EndDate,
		"capacity":            e.Capacity,
		"requires_approval":   e.RequiresApproval,
		"enrollment_open":     e.EnrollmentOpen,
		"enrollment_deadline": e.EnrollmentDeadline,
		"public":              e.Public,
		"status":              e.Status,
		"images":              images,
		"registrations":       e.Registrations,
		"sponsors":            e.Sponsors,
		"backers":             e.Backers,
		"history":             e.History,
		"metrics":             e.Metrics,
		"finished_at":         e.FinishedAt,
		"cancelled_at":        e.CancelledAt,
		"created_at":          e.CreatedAt,
		"updated_at":          e.UpdatedAt,
	}
}
