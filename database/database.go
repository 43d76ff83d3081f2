package database

import (
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"unidos-api/config"
	"unidos-api/models"
)

// Initialize opens the relational ledger connection.
func Initialize(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

// Migrate creates or updates the ledger schema.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.NGOProfile{},
		&models.Company{},
		&models.ExternalMember{},
		&models.Event{},
		&models.EventSponsor{},
		&models.EventBacker{},
		&models.EventParticipant{},
		&models.MegaEvent{},
		&models.MegaEventOrganizer{},
		&models.MegaEventSponsor{},
		&models.MegaEventParticipant{},
	)
	if err != nil {
		return err
	}

	addCustomIndexes(db)
	addDatabaseConstraints(db)
	return nil
}

func addCustomIndexes(db *gorm.DB) {
	indexes := []string{
		"CREATE INDEX idx_events_status_start ON events(status, start_date)",
		"CREATE INDEX idx_mega_events_status ON mega_events(status)",
		"CREATE INDEX idx_mega_organizers_active ON mega_event_organizers(mega_event_id, active)",
	}

	for _, idx := range indexes {
		if err := db.Exec(idx).Error; err != nil {
			log.Printf("Warning: could not create index: %v", err)
		}
	}
}

func addDatabaseConstraints(db *gorm.DB) {
	constraints := []string{
		"ALTER TABLE events ADD CONSTRAINT chk_event_capacity CHECK (capacity >= 0)",
		"ALTER TABLE mega_event_sponsors ADD CONSTRAINT chk_pledge_amount CHECK (amount >= 0)",
	}

	for _, c := range constraints {
		if err := db.Exec(c).Error; err != nil {
			log.Printf("Warning: could not add constraint: %v", err)
		}
	}
}

// Seed inserts a super admin account when the users table is empty.
func Seed(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("changeme"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := models.User{
		Username:      "admin",
		Email:         "admin@unidos.local",
		Password:      string(hash),
		Role:          models.RoleSuperAdmin,
		EmailVerified: true,
		Active:        true,
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}

	log.Println("Seeded super admin account (username: admin)")
	return nil
}
