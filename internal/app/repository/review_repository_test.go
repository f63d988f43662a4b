package repository

import (
	"sync"
	"testing"
	"time"

	"github.com/seojinhan/matjip-backend/internal/app/model"
	"github.com/seojinhan/matjip-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupReviewTest(t *testing.T) (*gorm.DB, *ReviewRepository, *model.Restaurant) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)

	restaurant := &model.Restaurant{
		Name:     "Seoul Garden",
		Category: "Korean",
		City:     "Seoul",
		Price:    2,
	}
	require.NoError(t, NewRestaurantRepository(testDB).Create(restaurant))

	return testDB, NewReviewRepository(testDB), restaurant
}

func loadRestaurant(t *testing.T, testDB *gorm.DB, id string) *model.Restaurant {
	var restaurant model.Restaurant
	require.NoError(t, testDB.First(&restaurant, "id = ?", id).Error)
	return &restaurant
}

func TestReviewRepository_SubmitReview_UpdatesAggregates(t *testing.T) {
	testDB, repo, restaurant := setupReviewTest(t)
	defer db.CleanupTestDB(testDB)

	err := repo.SubmitReview(&model.Review{
		RestaurantID: restaurant.ID,
		Rating:       4.0,
		Text:         "Great bulgogi",
		UserID:       "user-1",
	})
	require.NoError(t, err)

	got := loadRestaurant(t, testDB, restaurant.ID)
	assert.Equal(t, 1, got.NumRatings)
	assert.InDelta(t, 4.0, got.SumRating, 1e-9)
	assert.InDelta(t, 4.0, got.AvgRating, 1e-9)

	err = repo.SubmitReview(&model.Review{
		RestaurantID: restaurant.ID,
		Rating:       3.0,
		Text:         "Solid lunch option",
		UserID:       "user-2",
	})
	require.NoError(t, err)

	got = loadRestaurant(t, testDB, restaurant.ID)
	assert.Equal(t, 2, got.NumRatings)
	assert.InDelta(t, 7.0, got.SumRating, 1e-9)
	assert.InDelta(t, 3.5, got.AvgRating, 1e-9)
}

// A restaurant holding two ratings summing to 7 receives a 5 and then a
// 1; every intermediate and final state must stay exact.
func TestReviewRepository_SubmitReview_SequentialFold(t *testing.T) {
	testDB, repo, restaurant := setupReviewTest(t)
	defer db.CleanupTestDB(testDB)

	for _, rating := range []float64{4.0, 3.0} {
		require.NoError(t, repo.SubmitReview(&model.Review{
			RestaurantID: restaurant.ID,
			Rating:       rating,
			Text:         "seed",
			UserID:       "seeder",
		}))
	}

	require.NoError(t, repo.SubmitReview(&model.Review{
		RestaurantID: restaurant.ID,
		Rating:       5.0,
		Text:         "Best naengmyeon in town",
		UserID:       "user-3",
	}))

	got := loadRestaurant(t, testDB, restaurant.ID)
	assert.Equal(t, 3, got.NumRatings)
	assert.InDelta(t, 12.0, got.SumRating, 1e-9)
	assert.InDelta(t, 4.0, got.AvgRating, 1e-9)

	require.NoError(t, repo.SubmitReview(&model.Review{
		RestaurantID: restaurant.ID,
		Rating:       1.0,
		Text:         "Waited an hour",
		UserID:       "user-4",
	}))

	got = loadRestaurant(t, testDB, restaurant.ID)
	assert.Equal(t, 4, got.NumRatings)
	assert.InDelta(t, 13.0, got.SumRating, 1e-9)
	assert.InDelta(t, 3.25, got.AvgRating, 1e-9)
}

func TestReviewRepository_SubmitReview_MissingRestaurantWritesNothing(t *testing.T) {
	testDB, repo, _ := setupReviewTest(t)
	defer db.CleanupTestDB(testDB)

	err := repo.SubmitReview(&model.Review{
		RestaurantID: "00000000-0000-0000-0000-000000000000",
		Rating:       5.0,
		Text:         "Phantom restaurant",
		UserID:       "user-1",
	})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	// The aborted transaction must leave no review behind
	var count int64
	require.NoError(t, testDB.Model(&model.Review{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestReviewRepository_SubmitReview_OverwritesClientTimestamp(t *testing.T) {
	testDB, repo, restaurant := setupReviewTest(t)
	defer db.CleanupTestDB(testDB)

	bogus := time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC)
	review := &model.Review{
		RestaurantID: restaurant.ID,
		Rating:       4.0,
		Text:         "Timestamp check",
		UserID:       "user-1",
		CreatedAt:    bogus,
	}
	require.NoError(t, repo.SubmitReview(review))

	assert.NotEqual(t, bogus, review.CreatedAt)
	assert.WithinDuration(t, time.Now().UTC(), review.CreatedAt, time.Minute)
}

func TestReviewRepository_SubmitReview_Concurrent(t *testing.T) {
	testDB, repo, restaurant := setupReviewTest(t)
	defer db.CleanupTestDB(testDB)

	ratings := []float64{5, 4, 3, 2, 1, 5, 4, 3}
	wantSum := 0.0
	for _, r := range ratings {
		wantSum += r
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(ratings))
	for i, rating := range ratings {
		wg.Add(1)
		go func(i int, rating float64) {
			defer wg.Done()
			errs <- repo.SubmitReview(&model.Review{
				RestaurantID: restaurant.ID,
				Rating:       rating,
				Text:         "concurrent",
				UserID:       "user",
			})
		}(i, rating)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	got := loadRestaurant(t, testDB, restaurant.ID)
	assert.Equal(t, len(ratings), got.NumRatings)
	assert.InDelta(t, wantSum, got.SumRating, 1e-9)
	assert.InDelta(t, wantSum/float64(len(ratings)), got.AvgRating, 1e-9)

	count, err := repo.CountByRestaurantID(restaurant.ID)
	require.NoError(t, err)
	assert.EqualValues(t, len(ratings), count)
}

func TestReviewRepository_GetReviewsByRestaurantID_NewestFirst(t *testing.T) {
	testDB, repo, restaurant := setupReviewTest(t)
	defer db.CleanupTestDB(testDB)

	// Insert directly with spread-out timestamps; SubmitReview would
	// stamp them all within the same instant.
	base := time.Now().UTC().Add(-time.Hour)
	for i, text := range []string{"oldest", "middle", "newest"} {
		require.NoError(t, testDB.Create(&model.Review{
			RestaurantID: restaurant.ID,
			Rating:       4.0,
			Text:         text,
			UserID:       "user",
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		}).Error)
	}

	reviews, err := repo.GetReviewsByRestaurantID(restaurant.ID)
	require.NoError(t, err)
	require.Len(t, reviews, 3)
	assert.Equal(t, "newest", reviews[0].Text)
	assert.Equal(t, "middle", reviews[1].Text)
	assert.Equal(t, "oldest", reviews[2].Text)
}

func TestReviewRepository_GetReviewsByRestaurantID_Empty(t *testing.T) {
	testDB, repo, restaurant := setupReviewTest(t)
	defer db.CleanupTestDB(testDB)

	reviews, err := repo.GetReviewsByRestaurantID(restaurant.ID)
	require.NoError(t, err)
	assert.Empty(t, reviews)
}

func TestReviewRepository_ReconcileAggregates(t *testing.T) {
	testDB, repo, restaurant := setupReviewTest(t)
	defer db.CleanupTestDB(testDB)

	for _, rating := range []float64{5, 3} {
		require.NoError(t, repo.SubmitReview(&model.Review{
			RestaurantID: restaurant.ID,
			Rating:       rating,
			Text:         "seed",
			UserID:       "user",
		}))
	}

	t.Run("Nothing to repair when aggregates are exact", func(t *testing.T) {
		repaired, err := repo.ReconcileAggregates()
		require.NoError(t, err)
		assert.Zero(t, repaired)
	})

	t.Run("Repairs drifted aggregates", func(t *testing.T) {
		// Simulate manual data surgery that bypassed the transaction
		require.NoError(t, testDB.Model(&model.Restaurant{}).
			Where("id = ?", restaurant.ID).
			UpdateColumns(map[string]interface{}{
				"num_ratings": 99,
				"sum_rating":  0.0,
				"avg_rating":  0.0,
			}).Error)

		repaired, err := repo.ReconcileAggregates()
		require.NoError(t, err)
		assert.Equal(t, 1, repaired)

		got := loadRestaurant(t, testDB, restaurant.ID)
		assert.Equal(t, 2, got.NumRatings)
		assert.InDelta(t, 8.0, got.SumRating, 1e-9)
		assert.InDelta(t, 4.0, got.AvgRating, 1e-9)
	})
}
