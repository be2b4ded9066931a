package lifecycle

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Aerovity/riglii-backend/internal/models"
)

// ClosingWindowDays is how long a conversation stays writable after a
// commercial delivery before it goes read-only.
const ClosingWindowDays = 3

// GateState is the derived messaging gate of a conversation. Never
// persisted; recomputed from the authoritative form rows on every check.
type GateState struct {
	Open          bool       `json:"open"`
	Closed        bool       `json:"closed"`
	DaysRemaining int        `json:"days_remaining"`
	DeliveredForm *uuid.UUID `json:"delivered_form_id,omitempty"`
}

// DaysRemaining counts whole days left in the closing window. Zero once
// the window elapsed.
func DaysRemaining(submittedAt, now time.Time) int {
	elapsed := int(now.Sub(submittedAt).Hours() / 24)
	if rem := ClosingWindowDays - elapsed; rem > 0 {
		return rem
	}
	return 0
}

// Gate derives the messaging gate: open once any proposal was accepted,
// closed ClosingWindowDays after a commercial delivery.
func (s *Service) Gate(conversationID uuid.UUID) (GateState, error) {
	return s.gate(s.DB, conversationID)
}

func (s *Service) gate(tx *gorm.DB, conversationID uuid.UUID) (GateState, error) {
	var state GateState

	var accepted int64
	if err := tx.Model(&models.Form{}).
		Where("conversation_id = ? AND kind = ? AND status = ?",
			conversationID, models.FormProposal, models.FormStatusAccepted).
		Count(&accepted).Error; err != nil {
		return state, err
	}
	state.Open = accepted > 0

	var delivered models.Form
	err := tx.
		Where("conversation_id = ? AND kind = ? AND status = ? AND project_submitted = ?",
			conversationID, models.FormCommercial, models.FormStatusAccepted, true).
		Order("project_submitted_at ASC").
		First(&delivered).Error
	if err == gorm.ErrRecordNotFound {
		return state, nil
	}
	if err != nil {
		return state, err
	}

	id := delivered.ID
	state.DeliveredForm = &id
	if delivered.ProjectSubmittedAt != nil {
		state.DaysRemaining = DaysRemaining(*delivered.ProjectSubmittedAt, s.now())
		state.Closed = state.DaysRemaining == 0
	}
	return state, nil
}
