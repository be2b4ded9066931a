package lifecycle

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Aerovity/riglii-backend/internal/apperr"
	"github.com/Aerovity/riglii-backend/internal/models"
)

// ConversationSummary is one row of the directory view.
type ConversationSummary struct {
	Conversation models.Conversation `json:"conversation"`
	Other        *models.User        `json:"other,omitempty"`
	LastMessage  *models.Message     `json:"last_message,omitempty"`
	UnreadCount  int64               `json:"unread_count"`
	LatestForm   *models.Form        `json:"latest_form,omitempty"`
	Gate         GateState           `json:"gate"`
}

// StartConversation resolves or lazily creates the single conversation
// for the unordered (userID, otherID) pair. Exactly one side must hold
// the freelancer role; that side becomes the canonical freelancer column,
// which is what keeps the one-per-pair invariant enforceable.
func (s *Service) StartConversation(userID, otherID uuid.UUID) (*models.Conversation, bool, error) {
	if userID == otherID {
		return nil, false, apperr.Validation("cannot start a conversation with yourself")
	}

	var me, other models.User
	if err := s.DB.First(&me, "id = ?", userID).Error; err != nil {
		return nil, false, apperr.NotFound("user not found")
	}
	if err := s.DB.First(&other, "id = ?", otherID).Error; err != nil {
		return nil, false, apperr.NotFound("user not found")
	}

	var clientID, freelancerID uuid.UUID
	switch {
	case other.IsFreelancer():
		clientID, freelancerID = userID, otherID
	case me.IsFreelancer():
		clientID, freelancerID = otherID, userID
	default:
		return nil, false, apperr.Policy("a conversation requires a freelancer participant")
	}

	var conv models.Conversation
	err := s.DB.
		Where("client_id = ? AND freelancer_id = ?", clientID, freelancerID).
		First(&conv).Error
	if err == nil {
		return &conv, false, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, false, apperr.Dependency("failed to fetch conversation", err)
	}

	conv = models.Conversation{
		ClientID:      clientID,
		FreelancerID:  freelancerID,
		LastMessageAt: s.now(),
	}
	if err := s.DB.Create(&conv).Error; err != nil {
		return nil, false, apperr.Dependency("failed to create conversation", err)
	}
	return &conv, true, nil
}

// ListConversations builds the directory for userID, newest activity
// first.
func (s *Service) ListConversations(userID uuid.UUID) ([]ConversationSummary, error) {
	var convs []models.Conversation
	if err := s.DB.
		Preload("Client").
		Preload("Client.FreelancerProfile").
		Preload("Freelancer").
		Preload("Freelancer.FreelancerProfile").
		Where("client_id = ? OR freelancer_id = ?", userID, userID).
		Order("last_message_at DESC").
		Find(&convs).Error; err != nil {
		return nil, apperr.Dependency("failed to fetch conversations", err)
	}

	out := make([]ConversationSummary, 0, len(convs))
	for _, conv := range convs {
		sum := ConversationSummary{Conversation: conv}

		if conv.ClientID == userID {
			sum.Other = conv.Freelancer
		} else {
			sum.Other = conv.Client
		}

		s.DB.Model(&models.Message{}).
			Where("conversation_id = ? AND receiver_id = ? AND is_read = false", conv.ID, userID).
			Count(&sum.UnreadCount)

		var last models.Message
		if err := s.DB.
			Where("conversation_id = ?", conv.ID).
			Order("seq DESC").
			Limit(1).
			First(&last).Error; err == nil {
			sum.LastMessage = &last
		}

		var latest models.Form
		if err := s.DB.
			Where("conversation_id = ?", conv.ID).
			Order("created_at DESC").
			Limit(1).
			First(&latest).Error; err == nil {
			sum.LatestForm = &latest
		}

		if gate, err := s.Gate(conv.ID); err == nil {
			sum.Gate = gate
		}

		out = append(out, sum)
	}

	return out, nil
}

// MarkRead flips the read flag on every message addressed to userID in
// the conversation. Idempotent.
func (s *Service) MarkRead(conversationID, userID uuid.UUID) error {
	var conv models.Conversation
	if err := s.DB.First(&conv, "id = ?", conversationID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return apperr.NotFound("conversation not found")
		}
		return apperr.Dependency("failed to load conversation", err)
	}
	if !conv.HasParticipant(userID) {
		return apperr.NotFound("conversation not found")
	}

	if err := s.DB.Model(&models.Message{}).
		Where("conversation_id = ? AND receiver_id = ? AND is_read = false", conversationID, userID).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": s.now(),
		}).Error; err != nil {
		return apperr.Dependency("failed to mark messages as read", err)
	}
	return nil
}

// UnreadTotal counts unread messages addressed to userID across all
// conversations.
func (s *Service) UnreadTotal(userID uuid.UUID) (int64, error) {
	var count int64
	if err := s.DB.Model(&models.Message{}).
		Where("receiver_id = ? AND is_read = false", userID).
		Count(&count).Error; err != nil {
		return 0, apperr.Dependency("failed to count unread messages", err)
	}
	return count, nil
}
