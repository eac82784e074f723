package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Gender values accepted for a user profile.
const (
	GenderMale   = "male"
	GenderFemale = "female"
	GenderOther  = "other"
)

// UserProfile holds the permanent, non-health identity of a user.
// Profiles are keyed by email (case-insensitive) and are never auto-deleted;
// health data lives exclusively in AssessmentRecord.
type UserProfile struct {
	ID        uuid.UUID `gorm:"type:varchar(36);primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Email     string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Phone     string    `gorm:"size:50" json:"phone"`
	Age       int       `gorm:"check:age >= 1 AND age <= 150" json:"age"`
	Gender    string    `gorm:"size:20" json:"gender"`
	Country   string    `gorm:"size:100" json:"country"`

	// EverHadData records that at least one assessment was ever created for
	// this profile, so "users whose data was deleted" can be counted after
	// the records themselves are gone.
	EverHadData bool `gorm:"not null;default:false" json:"-"`
}

func (p *UserProfile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.Email = NormalizeEmail(p.Email)
	return nil
}

// NormalizeEmail lowercases and trims an email so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidGender reports whether g is one of the accepted gender values.
func ValidGender(g string) bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}
