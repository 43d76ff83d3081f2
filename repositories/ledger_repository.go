package repositories

import (
	"errors"

	"gorm.io/gorm"

	"unidos-api/models"
	"unidos-api/services"
)

// LedgerRepository is the gorm-backed implementation of the relational
// side of the dual-write pair.
type LedgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

func (r *LedgerRepository) Begin() (services.LedgerTx, error) {
	tx := r.db.Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return &ledgerTx{tx: tx}, nil
}

func (r *LedgerRepository) GetUser(id int) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, services.NewError(services.KindNotFound, "user %d not found", id)
		}
		return nil, err
	}
	return &user, nil
}

func (r *LedgerRepository) GetNGO(id int) (*models.NGOProfile, error) {
	var ngo models.NGOProfile
	if err := r.db.First(&ngo, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ngo, nil
}

func (r *LedgerRepository) GetNGOByUser(userID int) (*models.NGOProfile, error) {
	var ngo models.NGOProfile
	if err := r.db.Where("user_id = ?", userID).First(&ngo).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ngo, nil
}

func (r *LedgerRepository) GetCompany(id int) (*models.Company, error) {
	var company models.Company
	if err := r.db.First(&company, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &company, nil
}

func (r *LedgerRepository) GetCompanyByUser(userID int) (*models.Company, error) {
	var company models.Company
	if err := r.db.Where("user_id = ?", userID).First(&company).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &company, nil
}

func (r *LedgerRepository) MirrorEvent(row *models.Event) error {
	return r.db.Model(&models.Event{}).
		Where("id = ?", row.ID).
		Select("Title", "Description", "EventType", "Category", "Location", "StartDate", "EndDate", "Capacity", "Status", "Public").
		Updates(row).Error
}

func (r *LedgerRepository) SaveEventParticipant(p *models.EventParticipant) error {
	var existing models.EventParticipant
	err := r.db.Where("event_id = ? AND user_id = ?", p.EventID, p.UserID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.db.Create(p).Error
	}
	if err != nil {
		return err
	}
	updates := map[string]interface{}{"attended": p.Attended}
	if p.Kind != "" {
		updates["kind"] = p.Kind
	}
	return r.db.Model(&existing).Updates(updates).Error
}

func (r *LedgerRepository) SaveEventSponsor(s *models.EventSponsor) error {
	var existing models.EventSponsor
	err := r.db.Where("event_id = ? AND company_id = ?", s.EventID, s.CompanyID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.db.Create(s).Error
	}
	if err != nil {
		return err
	}
	return r.db.Model(&existing).Update("tier", s.Tier).Error
}

func (r *LedgerRepository) SaveEventBacker(b *models.EventBacker) error {
	var existing models.EventBacker
	err := r.db.Where("event_id = ? AND ngo_id = ?", b.EventID, b.NGOID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.db.Create(b).Error
	}
	return err
}

func (r *LedgerRepository) DeleteEventSponsor(eventID, companyID int) error {
	return r.db.Where("event_id = ? AND company_id = ?", eventID, companyID).
		Delete(&models.EventSponsor{}).Error
}

func (r *LedgerRepository) DeleteEventBacker(eventID, ngoID int) error {
	return r.db.Where("event_id = ? AND ngo_id = ?", eventID, ngoID).
		Delete(&models.EventBacker{}).Error
}

func (r *LedgerRepository) MirrorMegaEvent(row *models.MegaEvent) error {
	return r.db.Model(&models.MegaEvent{}).
		Where("id = ?", row.ID).
		Select("Title", "Description", "Category", "Location", "StartDate", "EndDate", "Status", "Public").
		Updates(row).Error
}

func (r *LedgerRepository) SaveMegaParticipant(p *models.MegaEventParticipant) error {
	var existing models.MegaEventParticipant
	err := r.db.Where("mega_event_id = ? AND user_id = ?", p.MegaEventID, p.UserID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.db.Create(p).Error
	}
	if err != nil {
		return err
	}
	updates := map[string]interface{}{"attended": p.Attended}
	if p.Kind != "" {
		updates["kind"] = p.Kind
	}
	if p.State != "" {
		updates["state"] = p.State
	}
	return r.db.Model(&existing).Updates(updates).Error
}

func (r *LedgerRepository) SaveMegaOrganizer(o *models.MegaEventOrganizer) error {
	var existing models.MegaEventOrganizer
	err := r.db.Where("mega_event_id = ? AND ngo_id = ?", o.MegaEventID, o.NGOID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.db.Create(o).Error
	}
	if err != nil {
		return err
	}
	updates := map[string]interface{}{"active": o.Active}
	if o.Role != "" {
		updates["role"] = o.Role
	}
	return r.db.Model(&existing).Updates(updates).Error
}

func (r *LedgerRepository) SaveMegaSponsor(s *models.MegaEventSponsor) error {
	var existing models.MegaEventSponsor
	err := r.db.Where("mega_event_id = ? AND company_id = ?", s.MegaEventID, s.CompanyID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.db.Create(s).Error
	}
	if err != nil {
		return err
	}
	updates := map[string]interface{}{}
	if s.State != "" {
		updates["state"] = s.State
	}
	if s.Tier != "" {
		updates["tier"] = s.Tier
	}
	if s.Amount > 0 {
		updates["amount"] = s.Amount
	}
	if len(updates) == 0 {
		return nil
	}
	return r.db.Model(&existing).Updates(updates).Error
}

// ledgerTx wraps a gorm transaction. Aggregate creation and deletion
// run through here so the dependency-ordered writes land atomically.
type ledgerTx struct {
	tx *gorm.DB
}

func (t *ledgerTx) CreateEvent(row *models.Event) error {
	return t.tx.Create(row).Error
}

func (t *ledgerTx) CreateMegaEvent(row *models.MegaEvent) error {
	return t.tx.Create(row).Error
}

func (t *ledgerTx) CreateMegaOrganizer(o *models.MegaEventOrganizer) error {
	return t.tx.Create(o).Error
}

// DeleteEventGraph removes an event and its join rows, children first.
func (t *ledgerTx) DeleteEventGraph(eventID int) error {
	if err := t.tx.Where("event_id = ?", eventID).Delete(&models.EventParticipant{}).Error; err != nil {
		return err
	}
	if err := t.tx.Where("event_id = ?", eventID).Delete(&models.EventSponsor{}).Error; err != nil {
		return err
	}
	if err := t.tx.Where("event_id = ?", eventID).Delete(&models.EventBacker{}).Error; err != nil {
		return err
	}
	return t.tx.Delete(&models.Event{}, eventID).Error
}

// DeleteMegaEventGraph removes a mega-event and its join rows, children
// first.
func (t *ledgerTx) DeleteMegaEventGraph(megaID int) error {
	if err := t.tx.Where("mega_event_id = ?", megaID).Delete(&models.MegaEventParticipant{}).Error; err != nil {
		return err
	}
	if err := t.tx.Where("mega_event_id = ?", megaID).Delete(&models.MegaEventSponsor{}).Error; err != nil {
		return err
	}
	if err := t.tx.Where("mega_event_id = ?", megaID).Delete(&models.MegaEventOrganizer{}).Error; err != nil {
		return err
	}
	return t.tx.Delete(&models.MegaEvent{}, megaID).Error
}

func (t *ledgerTx) Commit() error {
	return t.tx.Commit().Error
}

func (t *ledgerTx) Rollback() error {
	return t.tx.Rollback().Error
}
