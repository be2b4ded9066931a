package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Conversation is the single thread between a client and a freelancer.
// The (client_id, freelancer_id) pair is the canonical order for the
// unordered participant pair: at most one row exists per pair.
type Conversation struct {
	ID uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`

	ClientID     uuid.UUID `gorm:"type:uuid;index:idx_conv_pair,unique" json:"client_id"`
	FreelancerID uuid.UUID `gorm:"type:uuid;index:idx_conv_pair,unique" json:"freelancer_id"`

	// LastSeq is the message counter; incremented under a row lock so
	// ordering never depends on timestamp granularity.
	LastSeq       int64     `gorm:"not null;default:0" json:"-"`
	LastMessageAt time.Time `json:"last_message_at"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	Client     *User     `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Freelancer *User     `gorm:"foreignKey:FreelancerID" json:"freelancer,omitempty"`
	Messages   []Message `gorm:"foreignKey:ConversationID" json:"messages,omitempty"`
}

func (c *Conversation) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return
}

// Other returns the counterpart of userID in this conversation.
func (c *Conversation) Other(userID uuid.UUID) uuid.UUID {
	if userID == c.ClientID {
		return c.FreelancerID
	}
	return c.ClientID
}

func (c *Conversation) HasParticipant(userID uuid.UUID) bool {
	return userID == c.ClientID || userID == c.FreelancerID
}

type MessageKind string

const (
	MessageText           MessageKind = "text"
	MessageForm           MessageKind = "form"
	MessageSystemAccept   MessageKind = "system_accept"
	MessageSystemRefuse   MessageKind = "system_refuse"
	MessageSystemDelivery MessageKind = "system_delivery"
)

type AttachmentKind string

const (
	AttachmentImage AttachmentKind = "image"
	AttachmentFile  AttachmentKind = "file"
)

// Message is an append-only record in a conversation. Immutable after
// insert except the read flag. Seq is the ordering key within a
// conversation; created_at is display metadata.
type Message struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ConversationID uuid.UUID `gorm:"type:uuid;index" json:"conversation_id"`
	SenderID       uuid.UUID `gorm:"type:uuid;index" json:"sender_id"`
	ReceiverID     uuid.UUID `gorm:"type:uuid;index" json:"receiver_id"`

	Seq  int64       `gorm:"not null;index:idx_msg_conv_seq" json:"seq"`
	Kind MessageKind `gorm:"type:varchar(20);default:'text'" json:"kind"`
	Text string      `json:"text"`

	AttachmentPath string         `gorm:"type:text" json:"attachment_path,omitempty"`
	AttachmentKind AttachmentKind `gorm:"type:varchar(10)" json:"attachment_kind,omitempty"`

	// Set when Kind == form / system_*; consumers resolve the live form
	// snapshot instead of a copy-at-send-time.
	FormID *uuid.UUID `gorm:"type:uuid;index" json:"form_id,omitempty"`

	IsRead    bool       `gorm:"default:false" json:"is_read"`
	ReadAt    *time.Time `json:"read_at"`
	CreatedAt time.Time  `json:"created_at"`

	Sender *User `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	Form   *Form `gorm:"foreignKey:FormID" json:"form,omitempty"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return
}

func (m *Message) IsSystem() bool {
	switch m.Kind {
	case MessageSystemAccept, MessageSystemRefuse, MessageSystemDelivery:
		return true
	}
	return false
}
