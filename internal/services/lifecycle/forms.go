package lifecycle

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Aerovity/riglii-backend/internal/apperr"
	"github.com/Aerovity/riglii-backend/internal/models"
)

func formLabel(kind models.FormKind) string {
	if kind == models.FormCommercial {
		return "Commercial agreement"
	}
	return "Proposal"
}

// CreateFormInput is everything a new proposal/commercial form needs.
type CreateFormInput struct {
	Kind         models.FormKind
	Title        string
	Description  string
	Price        int64
	TimeEstimate string
}

// CreateForm opens a new form in pending state and appends the form
// message to the conversation. Only the freelancer side may send forms;
// a commercial form additionally requires an accepted proposal and no
// other live (pending/accepted) commercial form.
func (s *Service) CreateForm(conversationID, senderID uuid.UUID, in CreateFormInput) (*models.Form, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.TimeEstimate = strings.TrimSpace(in.TimeEstimate)

	if in.Kind != models.FormProposal && in.Kind != models.FormCommercial {
		return nil, apperr.Validation("kind must be proposal or commercial")
	}
	if in.Title == "" {
		return nil, apperr.Validation("title is required")
	}
	if in.Description == "" {
		return nil, apperr.Validation("description is required")
	}
	if in.TimeEstimate == "" {
		return nil, apperr.Validation("time estimate is required")
	}
	if in.Price <= 0 {
		return nil, apperr.Validation("price must be positive")
	}

	var conv models.Conversation
	if err := s.DB.First(&conv, "id = ?", conversationID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("conversation not found")
		}
		return nil, apperr.Dependency("failed to load conversation", err)
	}
	if !conv.HasParticipant(senderID) {
		return nil, apperr.NotFound("conversation not found")
	}
	if conv.FreelancerID != senderID {
		return nil, apperr.Policy("only the freelancer may send forms")
	}

	gate, err := s.Gate(conversationID)
	if err != nil {
		return nil, apperr.Dependency("failed to derive conversation gate", err)
	}
	if gate.Closed {
		return nil, apperr.Policy("conversation is closed")
	}

	if in.Kind == models.FormCommercial {
		if !gate.Open {
			return nil, apperr.Policy("a commercial agreement requires an accepted proposal first")
		}
		// Refused/cancelled commercial forms are inert and do not block a
		// new one.
		var live int64
		if err := s.DB.Model(&models.Form{}).
			Where("conversation_id = ? AND kind = ? AND status IN ?",
				conversationID, models.FormCommercial,
				[]models.FormStatus{models.FormStatusPending, models.FormStatusAccepted}).
			Count(&live).Error; err != nil {
			return nil, apperr.Dependency("failed to check commercial forms", err)
		}
		if live > 0 {
			return nil, apperr.Policy("a commercial agreement is already in progress for this conversation")
		}
	}

	form := models.Form{
		ID:             uuid.New(),
		ConversationID: conversationID,
		SenderID:       senderID,
		ReceiverID:     conv.Other(senderID),
		Kind:           in.Kind,
		Title:          in.Title,
		Description:    in.Description,
		Price:          in.Price,
		TimeEstimate:   in.TimeEstimate,
		Status:         models.FormStatusPending,
	}

	if err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&form).Error; err != nil {
			return err
		}
		msg := models.Message{
			SenderID:   form.SenderID,
			ReceiverID: form.ReceiverID,
			Kind:       models.MessageForm,
			Text:       form.Title,
			FormID:     &form.ID,
		}
		return s.appendMessage(tx, conversationID, &msg)
	}); err != nil {
		return nil, apperr.Dependency("failed to create form", err)
	}

	s.broadcast(&conv, form.ReceiverID, map[string]interface{}{
		"type": "form_update",
		"form": form,
	})

	return &form, nil
}

// GetForm loads a form visible to userID. A wrong participant gets the
// same not-found as a missing row.
func (s *Service) GetForm(formID, userID uuid.UUID) (*models.Form, error) {
	var form models.Form
	if err := s.DB.
		Preload("Sender").
		Preload("Sender.FreelancerProfile").
		Preload("Receiver").
		First(&form, "id = ?", formID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("form not found")
		}
		return nil, apperr.Dependency("failed to load form", err)
	}
	if !form.HasParticipant(userID) {
		return nil, apperr.NotFound("form not found")
	}
	return &form, nil
}

// ListForms returns every form of a conversation, newest first.
func (s *Service) ListForms(conversationID, userID uuid.UUID) ([]models.Form, error) {
	var conv models.Conversation
	if err := s.DB.First(&conv, "id = ?", conversationID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("conversation not found")
		}
		return nil, apperr.Dependency("failed to load conversation", err)
	}
	if !conv.HasParticipant(userID) {
		return nil, apperr.NotFound("conversation not found")
	}

	var forms []models.Form
	if err := s.DB.
		Preload("Sender").
		Preload("Sender.FreelancerProfile").
		Preload("Receiver").
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC").
		Find(&forms).Error; err != nil {
		return nil, apperr.Dependency("failed to fetch forms", err)
	}
	return forms, nil
}

// AcceptForm transitions pending -> accepted. Receiver only, and the
// signature capture must be non-empty before the write is attempted. The
// status write is conditional on pending, so the loser of a concurrent
// accept/refuse race lands here with zero rows affected.
func (s *Service) AcceptForm(formID, actorID uuid.UUID, signature string) (*models.Form, error) {
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return nil, apperr.Validation("a digital signature is required to accept")
	}

	form, err := s.loadFormForResponse(formID, actorID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Form{}).
			Where("id = ? AND status = ?", formID, models.FormStatusPending).
			Updates(map[string]interface{}{
				"status":       models.FormStatusAccepted,
				"signature":    signature,
				"responded_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.Policy("form is no longer pending")
		}

		msg := models.Message{
			SenderID:   actorID,
			ReceiverID: form.SenderID,
			Kind:       models.MessageSystemAccept,
			Text:       fmt.Sprintf("✅ %s accepted: %s", formLabel(form.Kind), form.Title),
			FormID:     &form.ID,
		}
		return s.appendMessage(tx, form.ConversationID, &msg)
	}); err != nil {
		if apperr.IsPolicy(err) {
			return nil, err
		}
		return nil, apperr.Dependency("failed to accept form", err)
	}

	return s.afterTransition(form, "form-accepted", form.SenderID)
}

// RefuseForm transitions pending -> refused. Symmetric to accept, no
// signature, optional reason echoed in the system message.
func (s *Service) RefuseForm(formID, actorID uuid.UUID, reason string) (*models.Form, error) {
	form, err := s.loadFormForResponse(formID, actorID)
	if err != nil {
		return nil, err
	}

	reason = strings.TrimSpace(reason)
	text := fmt.Sprintf("❌ %s refused: %s", formLabel(form.Kind), form.Title)
	if reason != "" {
		text += "\nReason: " + reason
	}

	now := s.now()
	if err := s.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Form{}).
			Where("id = ? AND status = ?", formID, models.FormStatusPending).
			Updates(map[string]interface{}{
				"status":       models.FormStatusRefused,
				"responded_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.Policy("form is no longer pending")
		}

		msg := models.Message{
			SenderID:   actorID,
			ReceiverID: form.SenderID,
			Kind:       models.MessageSystemRefuse,
			Text:       text,
			FormID:     &form.ID,
		}
		return s.appendMessage(tx, form.ConversationID, &msg)
	}); err != nil {
		if apperr.IsPolicy(err) {
			return nil, err
		}
		return nil, apperr.Dependency("failed to refuse form", err)
	}

	return s.afterTransition(form, "form-refused", form.SenderID)
}

func (s *Service) loadFormForResponse(formID, actorID uuid.UUID) (*models.Form, error) {
	var form models.Form
	if err := s.DB.First(&form, "id = ?", formID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("form not found")
		}
		return nil, apperr.Dependency("failed to load form", err)
	}
	if !form.HasParticipant(actorID) {
		return nil, apperr.NotFound("form not found")
	}
	if form.ReceiverID != actorID {
		return nil, apperr.Policy("only the receiver may respond to a form")
	}
	return &form, nil
}

// afterTransition reloads the form, pushes realtime updates and fires the
// best-effort email to mailTo.
func (s *Service) afterTransition(stale *models.Form, templateID string, mailTo uuid.UUID) (*models.Form, error) {
	var form models.Form
	if err := s.DB.First(&form, "id = ?", stale.ID).Error; err != nil {
		return nil, apperr.Dependency("failed to reload form", err)
	}

	var conv models.Conversation
	if err := s.DB.First(&conv, "id = ?", form.ConversationID).Error; err == nil {
		s.broadcast(&conv, mailTo, map[string]interface{}{
			"type": "form_update",
			"form": form,
		})
	}

	s.notifyMail(mailTo, templateID, map[string]string{
		"form_id": form.ID.String(),
		"kind":    string(form.Kind),
		"title":   form.Title,
		"status":  string(form.Status),
	})

	return &form, nil
}
