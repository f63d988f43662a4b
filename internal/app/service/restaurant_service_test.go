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

func setupRestaurantServiceTest(t *testing.T) (*gorm.DB, *RestaurantService) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)

	repo := repository.NewRestaurantRepository(testDB)
	svc := NewRestaurantService(repo, watch.NewBroker())
	return testDB, svc
}

func createRestaurant(t *testing.T, svc *RestaurantService, input RestaurantInput) *model.Restaurant {
	restaurant, err := svc.Create(context.Background(), &input)
	require.NoError(t, err)
	require.NotEmpty(t, restaurant.ID)
	return restaurant
}

func TestRestaurantService_Get(t *testing.T) {
	testDB, svc := setupRestaurantServiceTest(t)
	defer db.CleanupTestDB(testDB)

	created := createRestaurant(t, svc, RestaurantInput{
		Name: "Seoul Garden", Category: "Korean", City: "Seoul", Price: 2,
	})

	t.Run("Existing restaurant", func(t *testing.T) {
		got, err := svc.Get(created.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "Seoul Garden", got.Name)
	})

	t.Run("Empty id degrades to empty result", func(t *testing.T) {
		got, err := svc.Get("")
		assert.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("Unknown id degrades to empty result", func(t *testing.T) {
		got, err := svc.Get("00000000-0000-0000-0000-000000000000")
		assert.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestRestaurantService_List_FilterMapping(t *testing.T) {
	testDB, svc := setupRestaurantServiceTest(t)
	defer db.CleanupTestDB(testDB)

	createRestaurant(t, svc, RestaurantInput{Name: "Cheap Eats", Category: "Korean", City: "Seoul", Price: 1})
	createRestaurant(t, svc, RestaurantInput{Name: "Mid Range", Category: "Korean", City: "Seoul", Price: 2})
	createRestaurant(t, svc, RestaurantInput{Name: "Fine Dining", Category: "French", City: "Seoul", Price: 4})

	t.Run("Price symbols map to tier", func(t *testing.T) {
		found, err := svc.List(RestaurantFilters{Price: "$$"})
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "Mid Range", found[0].Name)
	})

	t.Run("Malformed price means unconstrained", func(t *testing.T) {
		found, err := svc.List(RestaurantFilters{Price: "cheap"})
		require.NoError(t, err)
		assert.Len(t, found, 3)
	})

	t.Run("Category and city compose", func(t *testing.T) {
		found, err := svc.List(RestaurantFilters{Category: "Korean", City: "Seoul"})
		require.NoError(t, err)
		assert.Len(t, found, 2)
	})
}

func TestRestaurantService_List_Sorting(t *testing.T) {
	testDB, svc := setupRestaurantServiceTest(t)
	defer db.CleanupTestDB(testDB)

	repo := repository.NewRestaurantRepository(testDB)
	seed := []model.Restaurant{
		{Name: "Popular", Category: "Korean", City: "Seoul", Price: 1, NumRatings: 50, SumRating: 150, AvgRating: 3.0},
		{Name: "Beloved", Category: "Korean", City: "Seoul", Price: 1, NumRatings: 4, SumRating: 19.2, AvgRating: 4.8},
	}
	for i := range seed {
		require.NoError(t, repo.Create(&seed[i]))
	}

	t.Run("Default orders by average rating", func(t *testing.T) {
		found, err := svc.List(RestaurantFilters{})
		require.NoError(t, err)
		require.Len(t, found, 2)
		assert.Equal(t, "Beloved", found[0].Name)
	})

	t.Run("Review sort orders by rating count", func(t *testing.T) {
		found, err := svc.List(RestaurantFilters{Sort: repository.SortByReview})
		require.NoError(t, err)
		require.Len(t, found, 2)
		assert.Equal(t, "Popular", found[0].Name)
	})
}

func TestRestaurantService_Watch(t *testing.T) {
	testDB, svc := setupRestaurantServiceTest(t)
	defer db.CleanupTestDB(testDB)

	t.Run("Nil callback is rejected at subscribe time", func(t *testing.T) {
		unsubscribe, err := svc.Watch(RestaurantFilters{}, nil)
		assert.ErrorIs(t, err, ErrNilCallback)
		assert.Nil(t, unsubscribe)
	})

	snapshots := make(chan []model.Restaurant, 4)
	unsubscribe, err := svc.Watch(RestaurantFilters{City: "Seoul"}, func(restaurants []model.Restaurant) {
		snapshots <- restaurants
	})
	require.NoError(t, err)

	select {
	case got := <-snapshots:
		assert.Empty(t, got)
	case <-time.After(snapshotWait):
		t.Fatal("timed out waiting for initial snapshot")
	}

	createRestaurant(t, svc, RestaurantInput{
		Name: "Seoul Garden", Category: "Korean", City: "Seoul", Price: 2,
	})

	// Snapshot reflects the filter, and carries the whole result set
	select {
	case got := <-snapshots:
		require.Len(t, got, 1)
		assert.Equal(t, "Seoul Garden", got[0].Name)
	case <-time.After(snapshotWait):
		t.Fatal("timed out waiting for change snapshot")
	}

	// A change outside the filter still ticks the watcher; the snapshot
	// it re-queries keeps honoring the filter
	createRestaurant(t, svc, RestaurantInput{
		Name: "Busan Grill", Category: "Korean", City: "Busan", Price: 2,
	})

	select {
	case got := <-snapshots:
		require.Len(t, got, 1)
		assert.Equal(t, "Seoul Garden", got[0].Name)
	case <-time.After(snapshotWait):
		t.Fatal("timed out waiting for filtered snapshot")
	}

	unsubscribe()
	unsubscribe()

	createRestaurant(t, svc, RestaurantInput{
		Name: "Late Arrival", Category: "Korean", City: "Seoul", Price: 2,
	})

	select {
	case <-snapshots:
		t.Fatal("received snapshot after unsubscribe")
	case <-time.After(200 * time.Millisecond):
	}
}
