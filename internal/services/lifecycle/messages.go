package lifecycle

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Aerovity/riglii-backend/internal/apperr"
	"github.com/Aerovity/riglii-backend/internal/models"
)

// appendMessage assigns the next per-conversation seq and inserts the
// message inside tx. The UPDATE on last_seq takes the conversation row
// lock, so concurrent writers serialize and seq stays gapless per writer
// order.
func (s *Service) appendMessage(tx *gorm.DB, conversationID uuid.UUID, msg *models.Message) error {
	res := tx.Model(&models.Conversation{}).
		Where("id = ?", conversationID).
		UpdateColumn("last_seq", gorm.Expr("last_seq + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	var seq int64
	if err := tx.Model(&models.Conversation{}).
		Where("id = ?", conversationID).
		Select("last_seq").
		Scan(&seq).Error; err != nil {
		return err
	}

	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	msg.ConversationID = conversationID
	msg.Seq = seq
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = s.now()
	}

	if err := tx.Create(msg).Error; err != nil {
		return err
	}

	return tx.Model(&models.Conversation{}).
		Where("id = ?", conversationID).
		Update("last_message_at", msg.CreatedAt).Error
}

// SendMessage appends a plain or attachment message. The gate must be
// open (some proposal accepted) and not closed (delivery window elapsed).
func (s *Service) SendMessage(conversationID, senderID uuid.UUID, text string, attachmentPath string, attachmentKind models.AttachmentKind) (*models.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" && attachmentPath == "" {
		return nil, apperr.Validation("message text or attachment is required")
	}
	if attachmentPath != "" && attachmentKind != models.AttachmentImage && attachmentKind != models.AttachmentFile {
		return nil, apperr.Validation("attachment kind must be image or file")
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

	gate, err := s.Gate(conversationID)
	if err != nil {
		return nil, apperr.Dependency("failed to derive conversation gate", err)
	}
	if !gate.Open {
		return nil, apperr.Policy("conversation is not open for messaging until a proposal is accepted")
	}
	if gate.Closed {
		return nil, apperr.Policy("conversation is closed")
	}

	msg := models.Message{
		SenderID:       senderID,
		ReceiverID:     conv.Other(senderID),
		Kind:           models.MessageText,
		Text:           text,
		AttachmentPath: attachmentPath,
		AttachmentKind: attachmentKind,
	}

	if err := s.DB.Transaction(func(tx *gorm.DB) error {
		return s.appendMessage(tx, conversationID, &msg)
	}); err != nil {
		return nil, apperr.Dependency("failed to send message", err)
	}

	s.broadcast(&conv, msg.ReceiverID, map[string]interface{}{
		"type":    "new_message",
		"message": msg,
	})

	return &msg, nil
}

// ListMessages returns the full timeline ascending by seq. Form-reference
// messages carry the live form row, not a copy-at-send-time.
func (s *Service) ListMessages(conversationID, userID uuid.UUID) ([]models.Message, error) {
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

	var messages []models.Message
	if err := s.DB.
		Preload("Sender").
		Preload("Sender.FreelancerProfile").
		Preload("Form").
		Where("conversation_id = ?", conversationID).
		Order("seq ASC").
		Find(&messages).Error; err != nil {
		return nil, apperr.Dependency("failed to fetch messages", err)
	}

	return messages, nil
}
