package service

import (
	"context"
	"errors"
	"strings"

	"github.com/seojinhan/matjip-backend/internal/app/model"
	"github.com/seojinhan/matjip-backend/internal/app/repository"
	"github.com/seojinhan/matjip-backend/internal/watch"
	"github.com/seojinhan/matjip-backend/pkg/logger"
	"github.com/seojinhan/matjip-backend/pkg/util"
	"gorm.io/gorm"
)

// RestaurantFilters is the caller-facing filter shape. Price arrives
// as a currency-symbol string ("$$" is tier 2); absent fields are
// unconstrained.
type RestaurantFilters struct {
	Category string `form:"category"`
	City     string `form:"city"`
	Price    string `form:"price"`
	Sort     string `form:"sort"`
}

func (f RestaurantFilters) toRepoFilter() repository.RestaurantFilter {
	return repository.RestaurantFilter{
		Category: f.Category,
		City:     f.City,
		Price:    util.ParsePriceTier(f.Price),
		Sort:     f.Sort,
	}
}

type RestaurantService struct {
	restaurantRepo repository.RestaurantRepository
	broker         *watch.Broker
}

func NewRestaurantService(restaurantRepo repository.RestaurantRepository, broker *watch.Broker) *RestaurantService {
	return &RestaurantService{
		restaurantRepo: restaurantRepo,
		broker:         broker,
	}
}

// RestaurantInput creates a restaurant via the administration path.
type RestaurantInput struct {
	Name     string `json:"name" binding:"required"`
	Category string `json:"category" binding:"required"`
	City     string `json:"city" binding:"required"`
	Price    int    `json:"price" binding:"required,min=1,max=4"`
	PhotoURL string `json:"photo_url"`
}

func (s *RestaurantService) Create(ctx context.Context, input *RestaurantInput) (*model.Restaurant, error) {
	restaurant := &model.Restaurant{
		Name:     input.Name,
		Category: input.Category,
		City:     input.City,
		Price:    input.Price,
		PhotoURL: input.PhotoURL,
	}
	if err := s.restaurantRepo.Create(restaurant); err != nil {
		return nil, err
	}

	s.broker.Publish(ctx, watch.TopicRestaurants)
	return restaurant, nil
}

// List returns all restaurants matching the filters, ordered per the
// sort clause (avg rating descending by default, review count
// descending for "Review").
func (s *RestaurantService) List(filters RestaurantFilters) ([]model.Restaurant, error) {
	return s.restaurantRepo.FindAll(filters.toRepoFilter())
}

// Get fetches one restaurant. An empty id and an unknown id both
// degrade to an empty result with a logged diagnostic; missing data is
// a normal, recoverable case on the read path.
func (s *RestaurantService) Get(id string) (*model.Restaurant, error) {
	if strings.TrimSpace(id) == "" {
		logger.Warn("Get restaurant called without an ID")
		return nil, nil
	}

	restaurant, err := s.restaurantRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Debug("Restaurant not found", map[string]interface{}{
				"restaurant_id": id,
			})
			return nil, nil
		}
		return nil, err
	}
	return restaurant, nil
}

// Watch delivers the full current result set for the filters to fn:
// once immediately on subscribe, then again after every change to any
// matching record. Never diffs. The returned unsubscribe func is
// idempotent.
func (s *RestaurantService) Watch(filters RestaurantFilters, fn func([]model.Restaurant)) (func(), error) {
	if fn == nil {
		return nil, ErrNilCallback
	}

	sub := s.broker.Subscribe(watch.TopicRestaurants)

	go func() {
		s.deliver(filters, fn)
		for range sub.C {
			s.deliver(filters, fn)
		}
	}()

	return sub.Unsubscribe, nil
}

func (s *RestaurantService) deliver(filters RestaurantFilters, fn func([]model.Restaurant)) {
	restaurants, err := s.restaurantRepo.FindAll(filters.toRepoFilter())
	if err != nil {
		logger.Error("Failed to load restaurant snapshot for watcher", err, map[string]interface{}{
			"category": filters.Category,
			"city":     filters.City,
		})
		return
	}
	fn(restaurants)
}
