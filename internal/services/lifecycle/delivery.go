package lifecycle

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Aerovity/riglii-backend/internal/apperr"
	"github.com/Aerovity/riglii-backend/internal/models"
)

// SubmitDelivery populates the delivery sub-state of an accepted
// commercial form. One-way latch: the conditional update on
// project_submitted = false makes a second call fail regardless of
// arguments. Files must already be persisted in object storage; only
// their metadata lands here.
func (s *Service) SubmitDelivery(formID, actorID uuid.UUID, files []models.ProjectFile, submissionURL, notes string) (*models.Form, error) {
	submissionURL = strings.TrimSpace(submissionURL)
	notes = strings.TrimSpace(notes)
	if len(files) == 0 && submissionURL == "" {
		return nil, apperr.Validation("delivery requires files or a submission link")
	}

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
	if form.SenderID != actorID {
		return nil, apperr.Policy("only the form sender may submit the project")
	}
	if form.Kind != models.FormCommercial {
		return nil, apperr.Policy("delivery applies to commercial agreements only")
	}

	var payload models.Form
	if err := payload.SetFiles(files); err != nil {
		return nil, apperr.Validation("invalid file list")
	}

	now := s.now()
	if err := s.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Form{}).
			Where("id = ? AND status = ? AND project_submitted = ?",
				formID, models.FormStatusAccepted, false).
			Updates(map[string]interface{}{
				"project_submitted":      true,
				"project_submitted_at":   now,
				"project_submission_url": submissionURL,
				"project_notes":          notes,
				"project_files":          payload.ProjectFiles,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			if form.ProjectSubmitted {
				return apperr.Policy("project was already submitted")
			}
			return apperr.Policy("delivery requires an accepted agreement")
		}

		text := fmt.Sprintf("📦 Project delivered — %d file(s)", len(files))
		if submissionURL != "" {
			text += "\nLink: " + submissionURL
		}
		if notes != "" {
			text += "\nNotes: " + notes
		}

		msg := models.Message{
			SenderID:   actorID,
			ReceiverID: form.ReceiverID,
			Kind:       models.MessageSystemDelivery,
			Text:       text,
			FormID:     &form.ID,
		}
		return s.appendMessage(tx, form.ConversationID, &msg)
	}); err != nil {
		if apperr.IsPolicy(err) {
			return nil, err
		}
		return nil, apperr.Dependency("failed to submit delivery", err)
	}

	return s.afterTransition(&form, "project-delivered", form.ReceiverID)
}
