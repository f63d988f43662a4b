package service

import (
	"context"
	"testing"
	"time"

	"github.com/seojinhan/matjip-backend/internal/app/model"
	"github.com/seojinhan/matjip-backend/internal/app/repository"
	"github.com/seojinhan/matjip-backend/internal/db"
	"github.com/seojinhan/matjip-backend/internal/watch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const snapshotWait = 2 * time.Second

func setupReviewServiceTest(t *testing.T) (*gorm.DB, *ReviewService, *model.Restaurant) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)

	restaurant := &model.Restaurant{
		Name:     "Seoul Garden",
		Category: "Korean",
		City:     "Seoul",
		Price:    2,
	}
	require.NoError(t, repository.NewRestaurantRepository(testDB).Create(restaurant))

	svc := NewReviewService(repository.NewReviewRepository(testDB), watch.NewBroker())
	return testDB, svc, restaurant
}

func TestReviewService_SubmitReview_Validation(t *testing.T) {
	testDB, svc, restaurant := setupReviewServiceTest(t)
	defer db.CleanupTestDB(testDB)

	tests := []struct {
		name         string
		restaurantID string
		input        *ReviewInput
		wantErr      error
	}{
		{
			name:         "Empty restaurant id",
			restaurantID: "",
			input:        &ReviewInput{Rating: 4, Text: "fine"},
			wantErr:      ErrNoRestaurantID,
		},
		{
			name:         "Whitespace restaurant id",
			restaurantID: "   ",
			input:        &ReviewInput{Rating: 4, Text: "fine"},
			wantErr:      ErrNoRestaurantID,
		},
		{
			name:         "Nil input",
			restaurantID: restaurant.ID,
			input:        nil,
			wantErr:      ErrNoValidReview,
		},
		{
			name:         "Empty text",
			restaurantID: restaurant.ID,
			input:        &ReviewInput{Rating: 4, Text: "   "},
			wantErr:      ErrNoValidReview,
		},
		{
			name:         "Rating above bound",
			restaurantID: restaurant.ID,
			input:        &ReviewInput{Rating: 5.5, Text: "too good"},
			wantErr:      ErrNoValidReview,
		},
		{
			name:         "Negative rating",
			restaurantID: restaurant.ID,
			input:        &ReviewInput{Rating: -1, Text: "bad"},
			wantErr:      ErrNoValidReview,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			review, err := svc.SubmitReview(context.Background(), tt.restaurantID, tt.input)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, review)
		})
	}

	// Rejected submissions must not have touched the store
	var count int64
	require.NoError(t, testDB.Model(&model.Review{}).Count(&count).Error)
	assert.Zero(t, count)

	got, err := repository.NewRestaurantRepository(testDB).FindByID(restaurant.ID)
	require.NoError(t, err)
	assert.Zero(t, got.NumRatings)
}

func TestReviewService_SubmitReview_UnknownRestaurant(t *testing.T) {
	testDB, svc, _ := setupReviewServiceTest(t)
	defer db.CleanupTestDB(testDB)

	review, err := svc.SubmitReview(context.Background(),
		"00000000-0000-0000-0000-000000000000",
		&ReviewInput{Rating: 4, Text: "ghost"},
	)
	assert.ErrorIs(t, err, ErrRestaurantNotFound)
	assert.Nil(t, review)
}

func TestReviewService_SubmitReview_BoundaryRatings(t *testing.T) {
	testDB, svc, restaurant := setupReviewServiceTest(t)
	defer db.CleanupTestDB(testDB)

	for _, rating := range []float64{MinRating, MaxRating} {
		review, err := svc.SubmitReview(context.Background(), restaurant.ID,
			&ReviewInput{Rating: rating, Text: "boundary", UserID: "user-1"},
		)
		require.NoError(t, err)
		require.NotNil(t, review)
		assert.NotEmpty(t, review.ID)
	}

	got, err := repository.NewRestaurantRepository(testDB).FindByID(restaurant.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.NumRatings)
	assert.InDelta(t, 2.5, got.AvgRating, 1e-9)
}

func TestReviewService_ListReviews(t *testing.T) {
	testDB, svc, restaurant := setupReviewServiceTest(t)
	defer db.CleanupTestDB(testDB)

	t.Run("Empty id degrades to empty result", func(t *testing.T) {
		reviews, err := svc.ListReviews("")
		assert.NoError(t, err)
		assert.Nil(t, reviews)
	})

	t.Run("Returns submitted reviews", func(t *testing.T) {
		_, err := svc.SubmitReview(context.Background(), restaurant.ID,
			&ReviewInput{Rating: 4, Text: "good", UserID: "user-1"},
		)
		require.NoError(t, err)

		reviews, err := svc.ListReviews(restaurant.ID)
		require.NoError(t, err)
		require.Len(t, reviews, 1)
		assert.Equal(t, "good", reviews[0].Text)
	})
}

func TestReviewService_WatchReviews_Rejections(t *testing.T) {
	testDB, svc, restaurant := setupReviewServiceTest(t)
	defer db.CleanupTestDB(testDB)

	t.Run("Nil callback", func(t *testing.T) {
		unsubscribe, err := svc.WatchReviews(restaurant.ID, nil)
		assert.ErrorIs(t, err, ErrNilCallback)
		assert.Nil(t, unsubscribe)
	})

	t.Run("Empty restaurant id", func(t *testing.T) {
		unsubscribe, err := svc.WatchReviews("", func([]model.Review) {})
		assert.ErrorIs(t, err, ErrNoRestaurantID)
		assert.Nil(t, unsubscribe)
	})
}

func TestReviewService_WatchReviews_FullSnapshots(t *testing.T) {
	testDB, svc, restaurant := setupReviewServiceTest(t)
	defer db.CleanupTestDB(testDB)

	snapshots := make(chan []model.Review, 4)
	unsubscribe, err := svc.WatchReviews(restaurant.ID, func(reviews []model.Review) {
		snapshots <- reviews
	})
	require.NoError(t, err)

	// Initial snapshot arrives without any change
	select {
	case got := <-snapshots:
		assert.Empty(t, got)
	case <-time.After(snapshotWait):
		t.Fatal("timed out waiting for initial snapshot")
	}

	_, err = svc.SubmitReview(context.Background(), restaurant.ID,
		&ReviewInput{Rating: 5, Text: "first", UserID: "user-1"},
	)
	require.NoError(t, err)

	// Each delivery is the full current result set, not a diff
	select {
	case got := <-snapshots:
		require.Len(t, got, 1)
		assert.Equal(t, "first", got[0].Text)
	case <-time.After(snapshotWait):
		t.Fatal("timed out waiting for change snapshot")
	}

	// Unsubscribing twice is a no-op, not a panic
	unsubscribe()
	unsubscribe()

	_, err = svc.SubmitReview(context.Background(), restaurant.ID,
		&ReviewInput{Rating: 3, Text: "second", UserID: "user-2"},
	)
	require.NoError(t, err)

	select {
	case got := <-snapshots:
		t.Fatalf("received snapshot after unsubscribe: %d reviews", len(got))
	case <-time.After(200 * time.Millisecond):
	}
}

func TestReviewService_Reconcile(t *testing.T) {
	testDB, svc, restaurant := setupReviewServiceTest(t)
	defer db.CleanupTestDB(testDB)

	_, err := svc.SubmitReview(context.Background(), restaurant.ID,
		&ReviewInput{Rating: 4, Text: "fine", UserID: "user-1"},
	)
	require.NoError(t, err)

	// Drift introduced outside the submission transaction
	require.NoError(t, testDB.Model(&model.Restaurant{}).
		Where("id = ?", restaurant.ID).
		UpdateColumns(map[string]interface{}{"num_ratings": 7}).Error)

	repaired, err := svc.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, repaired)

	got, err := repository.NewRestaurantRepository(testDB).FindByID(restaurant.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.NumRatings)
}
