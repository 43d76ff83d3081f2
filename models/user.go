package models

import (
	"time"
)

// Account roles recognized by the platform. The ledger is the system of
// record for identity, so every actor carries one of these.
const (
	RoleNGO            = "ngo"
	RoleCompany        = "company"
	RoleExternalMember = "external_member"
	RoleSuperAdmin     = "super_admin"
)

type User struct {
	ID            int       `json:"id" gorm:"primaryKey;autoIncrement"`
	Username      string    `json:"username" gorm:"uniqueIndex;not null;size:100"`
	Email         string    `json:"email" gorm:"uniqueIndex;not null;size:255"`
	Password      string    `json:"-" gorm:"not null;size:255"`
	Role          string    `json:"role" gorm:"not null;size:50"`
	EmailVerified bool      `json:"email_verified" gorm:"default:false"`
	Active        bool      `json:"active" gorm:"default:true"`
	LastAccessAt  time.Time `json:"last_access_at"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Company is the sponsor-side profile attached to a company account.
type Company struct {
	ID        int       `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID    int       `json:"user_id" gorm:"uniqueIndex;not null"`
	Name      string    `json:"name" gorm:"not null;size:255"`
	Industry  string    `json:"industry" gorm:"size:100"`
	CreatedAt time.Time `json:"created_at"`

	User User `json:"user" gorm:"foreignKey:UserID"`
}

// NGOProfile is the organizer-side profile attached to an NGO account.
type NGOProfile struct {
	ID        int       `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID    int       `json:"user_id" gorm:"uniqueIndex;not null"`
	Name      string    `json:"name" gorm:"not null;size:255"`
	Mission   string    `json:"mission" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`

	User User `json:"user" gorm:"foreignKey:UserID"`
}

// ExternalMember is an individual who participates in events without
// belonging to any organization.
type ExternalMember struct {
	ID        int       `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID    int       `json:"user_id" gorm:"uniqueIndex;not null"`
	FullName  string    `json:"full_name" gorm:"not null;size:255"`
	Phone     string    `json:"phone" gorm:"size:50"`
	CreatedAt time.Time `json:"created_at"`

	User User `json:"user" gorm:"foreignKey:UserID"`
}
