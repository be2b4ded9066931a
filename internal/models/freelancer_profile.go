package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FreelancerProfile carries the public identity shown in the conversation
// directory. The onboarding pipeline lives outside this service; rows are
// near-immutable here, which is what makes the identity cache safe.
type FreelancerProfile struct {
	ID     uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`

	DisplayName string `gorm:"type:varchar(120)" json:"display_name"`
	PhotoURL    string `gorm:"type:text" json:"photo_url"`
	About       string `gorm:"type:text" json:"about"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *FreelancerProfile) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return
}
