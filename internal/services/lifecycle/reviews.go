package lifecycle

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Aerovity/riglii-backend/internal/apperr"
	"github.com/Aerovity/riglii-backend/internal/models"
)

const maxReviewCommentLen = 500

// SubmitReview records client feedback on a delivered commercial form.
// One review per (form, client): a resubmission updates the existing row.
func (s *Service) SubmitReview(formID, clientID uuid.UUID, rating int, comment string) (*models.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, apperr.Validation("rating must be between 1 and 5")
	}
	if len(comment) > maxReviewCommentLen {
		return nil, apperr.Validation("comment must be at most %d characters", maxReviewCommentLen)
	}

	var form models.Form
	if err := s.DB.First(&form, "id = ?", formID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("form not found")
		}
		return nil, apperr.Dependency("failed to load form", err)
	}
	if form.ReceiverID != clientID {
		return nil, apperr.NotFound("form not found")
	}
	if form.Status != models.FormStatusAccepted || !form.ProjectSubmitted {
		return nil, apperr.Policy("reviews require an accepted and delivered agreement")
	}

	var review models.Review
	err := s.DB.
		Where("form_id = ? AND client_id = ?", formID, clientID).
		First(&review).Error

	switch {
	case err == nil:
		review.Rating = rating
		review.Comment = comment
		review.UpdatedAt = s.now()
		if err := s.DB.Save(&review).Error; err != nil {
			return nil, apperr.Dependency("failed to update review", err)
		}
	case err == gorm.ErrRecordNotFound:
		review = models.Review{
			FormID:       formID,
			ClientID:     clientID,
			FreelancerID: form.SenderID,
			Rating:       rating,
			Comment:      comment,
		}
		if err := s.DB.Create(&review).Error; err != nil {
			return nil, apperr.Dependency("failed to create review", err)
		}
	default:
		return nil, apperr.Dependency("failed to fetch review", err)
	}

	return &review, nil
}

// ListFreelancerReviews returns a freelancer's reviews, newest first,
// with the average rating.
func (s *Service) ListFreelancerReviews(freelancerID uuid.UUID) ([]models.Review, float64, error) {
	var reviews []models.Review
	if err := s.DB.
		Preload("Client").
		Where("freelancer_id = ?", freelancerID).
		Order("created_at DESC").
		Find(&reviews).Error; err != nil {
		return nil, 0, apperr.Dependency("failed to fetch reviews", err)
	}

	if len(reviews) == 0 {
		return reviews, 0, nil
	}

	var sum int
	for _, r := range reviews {
		sum += r.Rating
	}
	return reviews, float64(sum) / float64(len(reviews)), nil
}
