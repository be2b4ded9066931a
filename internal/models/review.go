package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Review is client feedback on a delivered commercial form. The
// (form_id, client_id) pair is unique: a second submission updates the
// existing row instead of inserting a new one.
type Review struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	FormID       uuid.UUID `gorm:"type:uuid;index:idx_review_form_client,unique" json:"form_id"`
	ClientID     uuid.UUID `gorm:"type:uuid;index:idx_review_form_client,unique" json:"client_id"`
	FreelancerID uuid.UUID `gorm:"type:uuid;index" json:"freelancer_id"`

	Rating  int    `gorm:"not null" json:"rating"` // 1-5
	Comment string `gorm:"type:text" json:"comment"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Form       *Form `gorm:"foreignKey:FormID" json:"form,omitempty"`
	Client     *User `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Freelancer *User `gorm:"foreignKey:FreelancerID" json:"freelancer,omitempty"`
}

func (r *Review) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return
}
