package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Aerovity/riglii-backend/internal/services/lifecycle"
)

type ReviewHandler struct {
	Service *lifecycle.Service
}

func NewReviewHandler(svc *lifecycle.Service) *ReviewHandler {
	return &ReviewHandler{Service: svc}
}

type submitReviewReq struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// SubmitReview records the client's rating on a delivered agreement.
// Resubmitting overwrites the previous review.
func (h *ReviewHandler) SubmitReview(c *fiber.Ctx) error {
	userUUID, err := getUserUUID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"success": false, "message": "Unauthorized"})
	}

	formUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid form ID",
		})
	}

	var req submitReviewReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid body",
		})
	}

	review, err := h.Service.SubmitReview(formUUID, userUUID, req.Rating, req.Comment)
	if err != nil {
		return respondErr(c, err)
	}

	return c.JSON(fiber.Map{"success": true, "data": review})
}

// GetFreelancerReviews is public: anyone can read a freelancer's reviews
// and average rating.
func (h *ReviewHandler) GetFreelancerReviews(c *fiber.Ctx) error {
	freelancerUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"message": "Invalid freelancer ID",
		})
	}

	reviews, avg, err := h.Service.ListFreelancerReviews(freelancerUUID)
	if err != nil {
		return respondErr(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"reviews":        reviews,
			"average_rating": avg,
			"count":          len(reviews),
		},
	})
}
