package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/seojinhan/matjip-backend/internal/app/service"
	apperrors "github.com/seojinhan/matjip-backend/internal/errors"
)

type RestaurantController struct {
	restaurantService *service.RestaurantService
}

func NewRestaurantController(restaurantService *service.RestaurantService) *RestaurantController {
	return &RestaurantController{
		restaurantService: restaurantService,
	}
}

// ListRestaurants returns restaurants matching the query filters.
// Filters compose as AND; an absent filter is unconstrained. price is
// a currency-symbol string ("$$" is tier 2); sort is "Rating"
// (default) or "Review".
func (ctrl *RestaurantController) ListRestaurants(c *gin.Context) {
	var filters service.RestaurantFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "invalid filter parameters")
		return
	}

	restaurants, err := ctrl.restaurantService.List(filters)
	if err != nil {
		apperrors.InternalError(c, "failed to list restaurants")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  restaurants,
		"total": len(restaurants),
	})
}

// GetRestaurantByID returns one restaurant, or 404 when the id is
// unknown or empty.
func (ctrl *RestaurantController) GetRestaurantByID(c *gin.Context) {
	restaurant, err := ctrl.restaurantService.Get(c.Param("id"))
	if err != nil {
		apperrors.InternalError(c, "failed to load restaurant")
		return
	}
	if restaurant == nil {
		apperrors.NotFound(c, apperrors.RestaurantNotFound, "restaurant not found")
		return
	}

	c.JSON(http.StatusOK, restaurant)
}

// CreateRestaurant is the administration path; aggregate fields start
// at zero and are only touched by review submission.
func (ctrl *RestaurantController) CreateRestaurant(c *gin.Context) {
	var input service.RestaurantInput
	if err := c.ShouldBindJSON(&input); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "invalid restaurant payload")
		return
	}

	restaurant, err := ctrl.restaurantService.Create(c.Request.Context(), &input)
	if err != nil {
		apperrors.InternalError(c, "failed to create restaurant")
		return
	}

	c.JSON(http.StatusCreated, restaurant)
}
