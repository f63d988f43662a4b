package repository

import (
	"github.com/seojinhan/matjip-backend/internal/app/model"
	"github.com/seojinhan/matjip-backend/pkg/logger"
	"gorm.io/gorm"
)

// Sort clauses for restaurant listings.
const (
	SortByRating = "Rating" // avg_rating DESC (default)
	SortByReview = "Review" // num_ratings DESC
)

// RestaurantFilter is an AND-conjunction of equality predicates plus
// one ordering clause. A zero field means unconstrained, not
// match-nothing.
type RestaurantFilter struct {
	Category string
	City     string
	Price    int // tier ordinal 1-4; 0 means no price filter
	Sort     string
}

type RestaurantRepository interface {
	Create(restaurant *model.Restaurant) error
	BulkCreate(restaurants []model.Restaurant, batchSize int) error
	Update(restaurant *model.Restaurant) error
	UpdatePhotoURL(id, photoURL string) error
	FindAll(filter RestaurantFilter) ([]model.Restaurant, error)
	FindByID(id string) (*model.Restaurant, error)
}

type restaurantRepository struct {
	db *gorm.DB
}

func NewRestaurantRepository(db *gorm.DB) RestaurantRepository {
	return &restaurantRepository{db: db}
}

func (r *restaurantRepository) Create(restaurant *model.Restaurant) error {
	logger.Debug("Creating restaurant in database", map[string]interface{}{
		"name": restaurant.Name,
		"city": restaurant.City,
	})

	if err := r.db.Create(restaurant).Error; err != nil {
		logger.Error("Failed to create restaurant in database", err, map[string]interface{}{
			"name": restaurant.Name,
			"city": restaurant.City,
		})
		return err
	}

	logger.Debug("Restaurant created in database", map[string]interface{}{
		"restaurant_id": restaurant.ID,
		"name":          restaurant.Name,
	})
	return nil
}

// BulkCreate inserts restaurants in batches. Used by the seed importer.
func (r *restaurantRepository) BulkCreate(restaurants []model.Restaurant, batchSize int) error {
	if len(restaurants) == 0 {
		return nil
	}

	if err := r.db.CreateInBatches(restaurants, batchSize).Error; err != nil {
		logger.Error("Failed to bulk create restaurants", err, map[string]interface{}{
			"count": len(restaurants),
		})
		return err
	}

	logger.Info("Bulk created restaurants", map[string]interface{}{
		"count": len(restaurants),
	})
	return nil
}

func (r *restaurantRepository) Update(restaurant *model.Restaurant) error {
	logger.Debug("Updating restaurant in database", map[string]interface{}{
		"restaurant_id": restaurant.ID,
		"name":          restaurant.Name,
	})

	if err := r.db.Save(restaurant).Error; err != nil {
		logger.Error("Failed to update restaurant in database", err, map[string]interface{}{
			"restaurant_id": restaurant.ID,
		})
		return err
	}
	return nil
}

// UpdatePhotoURL writes only the photo reference. The photo field is
// not an aggregate field, so this stays outside the review
// transaction.
func (r *restaurantRepository) UpdatePhotoURL(id, photoURL string) error {
	result := r.db.Model(&model.Restaurant{}).
		Where("id = ?", id).
		Update("photo_url", photoURL)
	if result.Error != nil {
		logger.Error("Failed to update restaurant photo", result.Error, map[string]interface{}{
			"restaurant_id": id,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *restaurantRepository) FindAll(filter RestaurantFilter) ([]model.Restaurant, error) {
	logger.Debug("Finding restaurants", map[string]interface{}{
		"category": filter.Category,
		"city":     filter.City,
		"price":    filter.Price,
		"sort":     filter.Sort,
	})

	query := r.db.Model(&model.Restaurant{})

	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.City != "" {
		query = query.Where("city = ?", filter.City)
	}
	if filter.Price != 0 {
		query = query.Where("price = ?", filter.Price)
	}

	order := "avg_rating DESC"
	if filter.Sort == SortByReview {
		order = "num_ratings DESC"
	}

	var restaurants []model.Restaurant
	if err := query.Order(order).Find(&restaurants).Error; err != nil {
		logger.Error("Failed to find restaurants", err, map[string]interface{}{
			"category": filter.Category,
			"city":     filter.City,
		})
		return nil, err
	}

	logger.Debug("Restaurants found", map[string]interface{}{
		"count": len(restaurants),
	})
	return restaurants, nil
}

func (r *restaurantRepository) FindByID(id string) (*model.Restaurant, error) {
	logger.Debug("Finding restaurant by ID", map[string]interface{}{
		"restaurant_id": id,
	})

	var restaurant model.Restaurant
	if err := r.db.First(&restaurant, "id = ?", id).Error; err != nil {
		if err != gorm.ErrRecordNotFound {
			logger.Error("Failed to find restaurant", err, map[string]interface{}{
				"restaurant_id": id,
			})
		}
		return nil, err
	}

	return &restaurant, nil
}
