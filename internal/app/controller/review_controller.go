package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/seojinhan/matjip-backend/internal/app/model"
	"github.com/seojinhan/matjip-backend/internal/app/service"
	apperrors "github.com/seojinhan/matjip-backend/internal/errors"
	"github.com/seojinhan/matjip-backend/internal/middleware"
)

type ReviewController struct {
	reviewService *service.ReviewService
}

func NewReviewController(reviewService *service.ReviewService) *ReviewController {
	return &ReviewController{
		reviewService: reviewService,
	}
}

// SubmitReview records a review and updates the restaurant's
// aggregates atomically. The author identity comes from the validated
// token, never from the payload.
func (ctrl *ReviewController) SubmitReview(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "")
		return
	}
	userName, _ := middleware.GetUserName(c)

	var input service.ReviewInput
	if err := c.ShouldBindJSON(&input); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "invalid review payload")
		return
	}
	input.UserID = userID
	input.UserName = userName

	review, err := ctrl.reviewService.SubmitReview(c.Request.Context(), c.Param("id"), &input)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoRestaurantID):
			apperrors.BadRequest(c, apperrors.ValidationInvalidID, err.Error())
		case errors.Is(err, service.ErrNoValidReview):
			apperrors.BadRequest(c, apperrors.ReviewInvalidRating, err.Error())
		case errors.Is(err, service.ErrRestaurantNotFound):
			apperrors.NotFound(c, apperrors.RestaurantNotFound, "restaurant not found")
		default:
			apperrors.InternalError(c, "failed to submit review")
		}
		return
	}

	c.JSON(http.StatusCreated, review)
}

// ListReviews returns a restaurant's reviews, most recent first.
func (ctrl *ReviewController) ListReviews(c *gin.Context) {
	reviews, err := ctrl.reviewService.ListReviews(c.Param("id"))
	if err != nil {
		apperrors.InternalError(c, "failed to list reviews")
		return
	}
	if reviews == nil {
		// empty result is a normal case on the read path
		reviews = []model.Review{}
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  reviews,
		"total": len(reviews),
	})
}
