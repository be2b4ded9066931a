// Package lifecycle implements the conversation/proposal/delivery/review
// core: the form state machine, the delivery latch and closing countdown,
// the message stream and the conversation directory. Every transition is a
// single conditional write (or a short transaction), so concurrent actors
// race on the store's row atomicity, never on in-process state.
package lifecycle

import (
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/Aerovity/riglii-backend/internal/models"
	"github.com/Aerovity/riglii-backend/internal/realtime"
	"github.com/Aerovity/riglii-backend/internal/services/mailer"
)

// Notifier is the transactional email collaborator. Satisfied by
// *mailer.Mailer; swapped for a stub in tests. Always best effort.
type Notifier interface {
	SendTransactional(to, templateID string, params map[string]string) (*mailer.SendResult, error)
}

type Service struct {
	DB   *gorm.DB
	Hub  *realtime.Hub
	RDB  *redis.Client
	Mail Notifier

	// Now is the clock; tests override it to advance the countdown.
	Now func() time.Time
}

func NewService(db *gorm.DB, hub *realtime.Hub, rdb *redis.Client, mail Notifier) *Service {
	return &Service{DB: db, Hub: hub, RDB: rdb, Mail: mail, Now: time.Now}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// broadcast pushes an event envelope to both participants and drops a
// redis hint for the recipient. Nil hub/redis are fine (tests, workers).
func (s *Service) broadcast(conv *models.Conversation, recipientID uuid.UUID, payload map[string]interface{}) {
	if s.Hub != nil {
		s.Hub.SendToConversation(conv.ClientID, conv.FreelancerID, payload)
	}
	realtime.Notify(s.RDB, recipientID, payload)
}

// notifyMail resolves the recipient's address and fires the template in
// the background. Errors are logged, never propagated: email is not part
// of any state transition.
func (s *Service) notifyMail(userID uuid.UUID, templateID string, params map[string]string) {
	if s.Mail == nil {
		return
	}
	var u models.User
	if err := s.DB.First(&u, "id = ?", userID).Error; err != nil {
		log.Printf("mail: recipient %s not found: %v", userID, err)
		return
	}
	go func() {
		if _, err := s.Mail.SendTransactional(u.Email, templateID, params); err != nil {
			log.Printf("mail: send %s to %s failed: %v", templateID, u.Email, err)
		}
	}()
}
