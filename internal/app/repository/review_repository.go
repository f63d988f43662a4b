package repository

import (
	"time"

	"github.com/seojinhan/matjip-backend/internal/app/model"
	"github.com/seojinhan/matjip-backend/pkg/logger"
	"gorm.io/gorm"
)

type ReviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// SubmitReview inserts a review and folds its rating into the parent
// restaurant's aggregates in one transaction: either both writes
// commit or neither does. The aggregate update uses SQL expressions
// evaluated against the row's current values inside the same UPDATE,
// so N concurrent submissions serialize on the restaurant row and the
// final aggregate equals some sequential order of all N. Conflict
// handling and retry are the database's job; there is no client-side
// locking.
func (r *ReviewRepository) SubmitReview(review *model.Review) error {
	logger.Debug("Submitting review", map[string]interface{}{
		"restaurant_id": review.RestaurantID,
		"rating":        review.Rating,
		"user_id":       review.UserID,
	})

	err := r.db.Transaction(func(tx *gorm.DB) error {
		// The restaurant must exist; a missing parent aborts the
		// whole transaction before anything is written.
		var restaurant model.Restaurant
		if err := tx.First(&restaurant, "id = ?", review.RestaurantID).Error; err != nil {
			return err
		}

		// Server-assigned timestamp. Client-supplied values are
		// overwritten, never trusted.
		review.CreatedAt = time.Now().UTC()
		if err := tx.Create(review).Error; err != nil {
			return err
		}

		// num_ratings, sum_rating and avg_rating advance together in
		// a single statement; both expressions read the pre-update
		// column values, so the average stays exact under
		// concurrency. A missing prior value cannot occur: the
		// columns default to zero on creation.
		return tx.Model(&model.Restaurant{}).
			Where("id = ?", review.RestaurantID).
			UpdateColumns(map[string]interface{}{
				"num_ratings": gorm.Expr("num_ratings + 1"),
				"sum_rating":  gorm.Expr("sum_rating + ?", review.Rating),
				"avg_rating":  gorm.Expr("(sum_rating + ?) / (num_ratings + 1)", review.Rating),
				"updated_at":  review.CreatedAt,
			}).Error
	})

	if err != nil {
		logger.Error("Failed to submit review", err, map[string]interface{}{
			"restaurant_id": review.RestaurantID,
			"user_id":       review.UserID,
		})
		return err
	}

	logger.Debug("Review submitted", map[string]interface{}{
		"review_id":     review.ID,
		"restaurant_id": review.RestaurantID,
	})
	return nil
}

// GetReviewsByRestaurantID lists a restaurant's reviews, most recent
// first.
func (r *ReviewRepository) GetReviewsByRestaurantID(restaurantID string) ([]model.Review, error) {
	var reviews []model.Review
	err := r.db.Where("restaurant_id = ?", restaurantID).
		Order("created_at DESC").
		Find(&reviews).Error
	if err != nil {
		logger.Error("Failed to find reviews", err, map[string]interface{}{
			"restaurant_id": restaurantID,
		})
		return nil, err
	}
	return reviews, nil
}

// CountByRestaurantID reports the number of stored reviews for a
// restaurant. Used by tests and the reconciliation job.
func (r *ReviewRepository) CountByRestaurantID(restaurantID string) (int64, error) {
	var count int64
	err := r.db.Model(&model.Review{}).
		Where("restaurant_id = ?", restaurantID).
		Count(&count).Error
	return count, err
}

// aggregateRow is the recomputed truth for one restaurant.
type aggregateRow struct {
	RestaurantID string
	NumRatings   int
	SumRating    float64
}

// ReconcileAggregates recomputes count and sum from the reviews table
// and repairs any restaurant whose stored aggregates drifted. Under
// normal operation the submission transaction keeps them exact; this
// is the scheduled safety net behind the count invariant.
func (r *ReviewRepository) ReconcileAggregates() (int, error) {
	var restaurants []model.Restaurant
	if err := r.db.Find(&restaurants).Error; err != nil {
		return 0, err
	}

	var rows []aggregateRow
	if err := r.db.Model(&model.Review{}).
		Select("restaurant_id, COUNT(*) as num_ratings, COALESCE(SUM(rating), 0) as sum_rating").
		Group("restaurant_id").
		Scan(&rows).Error; err != nil {
		return 0, err
	}

	truth := make(map[string]aggregateRow, len(rows))
	for _, row := range rows {
		truth[row.RestaurantID] = row
	}

	repaired := 0
	for _, restaurant := range restaurants {
		want := truth[restaurant.ID] // zero row when no reviews exist
		if restaurant.NumRatings == want.NumRatings && restaurant.SumRating == want.SumRating {
			continue
		}

		avg := 0.0
		if want.NumRatings > 0 {
			avg = want.SumRating / float64(want.NumRatings)
		}
		err := r.db.Model(&model.Restaurant{}).
			Where("id = ?", restaurant.ID).
			UpdateColumns(map[string]interface{}{
				"num_ratings": want.NumRatings,
				"sum_rating":  want.SumRating,
				"avg_rating":  avg,
			}).Error
		if err != nil {
			return repaired, err
		}

		logger.Warn("Repaired drifted restaurant aggregates", map[string]interface{}{
			"restaurant_id":   restaurant.ID,
			"stored_ratings":  restaurant.NumRatings,
			"counted_ratings": want.NumRatings,
		})
		repaired++
	}

	return repaired, nil
}
