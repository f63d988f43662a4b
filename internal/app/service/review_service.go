package service

import (
	"context"
	"errors"
	"strings"

	"github.com/seojinhan/matjip-backend/internal/app/model"
	"github.com/seojinhan/matjip-backend/internal/app/repository"
	"github.com/seojinhan/matjip-backend/internal/watch"
	"github.com/seojinhan/matjip-backend/pkg/logger"
	"gorm.io/gorm"
)

// Sentinel errors. Validation errors are raised before any store call
// and are never retried.
var (
	ErrNoRestaurantID     = errors.New("no restaurant ID provided")
	ErrNoValidReview      = errors.New("no valid review provided")
	ErrRestaurantNotFound = errors.New("restaurant not found")
	ErrNilCallback        = errors.New("watch callback must not be nil")
)

const (
	MinRating = 0.0
	MaxRating = 5.0
)

// ReviewInput is what a caller submits. CreatedAt is deliberately
// absent: the timestamp is server-assigned inside the transaction.
type ReviewInput struct {
	Rating   float64 `json:"rating" binding:"min=0,max=5"`
	Text     string  `json:"text" binding:"required"`
	UserID   string  `json:"-"`
	UserName string  `json:"-"`
}

type ReviewService struct {
	reviewRepo *repository.ReviewRepository
	broker     *watch.Broker
}

func NewReviewService(reviewRepo *repository.ReviewRepository, broker *watch.Broker) *ReviewService {
	return &ReviewService{
		reviewRepo: reviewRepo,
		broker:     broker,
	}
}

// SubmitReview records a review and updates the restaurant's
// aggregates atomically. On success both the restaurant list and the
// restaurant's review stream are notified; on failure nothing is
// observable.
func (s *ReviewService) SubmitReview(ctx context.Context, restaurantID string, input *ReviewInput) (*model.Review, error) {
	if strings.TrimSpace(restaurantID) == "" {
		return nil, ErrNoRestaurantID
	}
	if input == nil || strings.TrimSpace(input.Text) == "" ||
		input.Rating < MinRating || input.Rating > MaxRating {
		return nil, ErrNoValidReview
	}

	review := &model.Review{
		RestaurantID: restaurantID,
		Rating:       input.Rating,
		Text:         input.Text,
		UserID:       input.UserID,
		UserName:     input.UserName,
	}

	if err := s.reviewRepo.SubmitReview(review); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRestaurantNotFound
		}
		return nil, err
	}

	s.broker.Publish(ctx, watch.TopicRestaurants)
	s.broker.Publish(ctx, watch.TopicReviews(restaurantID))

	return review, nil
}

// ListReviews returns a restaurant's reviews, most recent first. An
// empty id degrades to an empty result with a logged diagnostic.
func (s *ReviewService) ListReviews(restaurantID string) ([]model.Review, error) {
	if strings.TrimSpace(restaurantID) == "" {
		logger.Warn("ListReviews called without a restaurant ID")
		return nil, nil
	}
	return s.reviewRepo.GetReviewsByRestaurantID(restaurantID)
}

// WatchReviews delivers the full current review list of a restaurant
// to fn: once immediately, then again after every change. The
// returned unsubscribe func is idempotent.
func (s *ReviewService) WatchReviews(restaurantID string, fn func([]model.Review)) (func(), error) {
	if strings.TrimSpace(restaurantID) == "" {
		return nil, ErrNoRestaurantID
	}
	if fn == nil {
		return nil, ErrNilCallback
	}

	sub := s.broker.Subscribe(watch.TopicReviews(restaurantID))

	go func() {
		s.deliverReviews(restaurantID, fn)
		for range sub.C {
			s.deliverReviews(restaurantID, fn)
		}
	}()

	return sub.Unsubscribe, nil
}

func (s *ReviewService) deliverReviews(restaurantID string, fn func([]model.Review)) {
	reviews, err := s.reviewRepo.GetReviewsByRestaurantID(restaurantID)
	if err != nil {
		logger.Error("Failed to load review snapshot for watcher", err, map[string]interface{}{
			"restaurant_id": restaurantID,
		})
		return
	}
	fn(reviews)
}

// Reconcile recomputes aggregates from stored reviews and repairs any
// drift. Invoked by the scheduler.
func (s *ReviewService) Reconcile(ctx context.Context) (int, error) {
	repaired, err := s.reviewRepo.ReconcileAggregates()
	if err != nil {
		return repaired, err
	}
	if repaired > 0 {
		s.broker.Publish(ctx, watch.TopicRestaurants)
	}
	return repaired, nil
}
