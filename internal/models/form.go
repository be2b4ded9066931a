package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type FormKind string

const (
	FormProposal   FormKind = "proposal"
	FormCommercial FormKind = "commercial"
)

type FormStatus string

const (
	FormStatusPending  FormStatus = "pending"
	FormStatusAccepted FormStatus = "accepted"
	FormStatusRefused  FormStatus = "refused"
	// Reserved: no operation emits cancelled yet.
	FormStatusCancelled FormStatus = "cancelled"
)

// ProjectFile describes one delivered file. The slice order in
// project_files is the submission order.
type ProjectFile struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Size int64  `json:"size"`
	Mime string `json:"mime"`
}

// Form is a negotiable offer attached to a conversation: a proposal that
// opens messaging, or a commercial agreement that carries the delivery
// sub-state. Sender is always the freelancer side, receiver the client.
type Form struct {
	ID             uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ConversationID uuid.UUID `gorm:"type:uuid;index" json:"conversation_id"`
	SenderID       uuid.UUID `gorm:"type:uuid;index" json:"sender_id"`
	ReceiverID     uuid.UUID `gorm:"type:uuid;index" json:"receiver_id"`

	Kind         FormKind `gorm:"type:varchar(20);not null;index" json:"kind"`
	Title        string   `gorm:"not null" json:"title"`
	Description  string   `gorm:"type:text;not null" json:"description"`
	Price        int64    `gorm:"not null" json:"price"`
	TimeEstimate string   `gorm:"type:varchar(120)" json:"time_estimate"`

	Status      FormStatus `gorm:"type:varchar(20);default:'pending';index" json:"status"`
	Signature   string     `gorm:"type:text" json:"signature,omitempty"`
	RespondedAt *time.Time `json:"responded_at,omitempty"`

	// Delivery sub-state, commercial forms only. project_submitted is a
	// one-way latch guarded by a conditional update.
	ProjectSubmitted     bool           `gorm:"default:false" json:"project_submitted"`
	ProjectSubmittedAt   *time.Time     `json:"project_submitted_at,omitempty"`
	ProjectSubmissionURL string         `gorm:"type:text" json:"project_submission_url,omitempty"`
	ProjectNotes         string         `gorm:"type:text" json:"project_notes,omitempty"`
	ProjectFiles         datatypes.JSON `json:"project_files,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Conversation *Conversation `gorm:"foreignKey:ConversationID" json:"conversation,omitempty"`
	Sender       *User         `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	Receiver     *User         `gorm:"foreignKey:ReceiverID" json:"receiver,omitempty"`
}

func (f *Form) BeforeCreate(tx *gorm.DB) (err error) {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return
}

func (f *Form) HasParticipant(userID uuid.UUID) bool {
	return userID == f.SenderID || userID == f.ReceiverID
}

// Files decodes the project_files column. Empty slice when nothing was
// delivered or the column is null.
func (f *Form) Files() []ProjectFile {
	if len(f.ProjectFiles) == 0 {
		return nil
	}
	var out []ProjectFile
	if err := json.Unmarshal(f.ProjectFiles, &out); err != nil {
		return nil
	}
	return out
}

func (f *Form) SetFiles(files []ProjectFile) error {
	b, err := json.Marshal(files)
	if err != nil {
		return err
	}
	f.ProjectFiles = datatypes.JSON(b)
	return nil
}
