package controller

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"
	"github.com/seojinhan/matjip-backend/internal/app/model"
	"github.com/seojinhan/matjip-backend/internal/app/service"
	apperrors "github.com/seojinhan/matjip-backend/internal/errors"
	"github.com/seojinhan/matjip-backend/internal/middleware"
	"github.com/seojinhan/matjip-backend/internal/websocket"
)

var upgrader = gorillaws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Origins are already constrained by the CORS middleware.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WatchController bridges watch subscriptions onto WebSocket
// connections. Every message is the full current result set for the
// query, re-sent whenever matching data changes.
type WatchController struct {
	restaurantService *service.RestaurantService
	reviewService     *service.ReviewService
}

func NewWatchController(restaurantService *service.RestaurantService, reviewService *service.ReviewService) *WatchController {
	return &WatchController{
		restaurantService: restaurantService,
		reviewService:     reviewService,
	}
}

// WatchRestaurants streams restaurant list snapshots filtered by the
// same query parameters as the one-shot listing.
func (ctrl *WatchController) WatchRestaurants(c *gin.Context) {
	var filters service.RestaurantFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "invalid filter parameters")
		return
	}

	client, ok := ctrl.upgrade(c)
	if !ok {
		return
	}

	unsubscribe, err := ctrl.restaurantService.Watch(filters, func(restaurants []model.Restaurant) {
		ctrl.send(client, gin.H{"data": restaurants, "total": len(restaurants)})
	})
	if err != nil {
		client.CloseWithError(err.Error())
		return
	}

	ctrl.run(client, unsubscribe)
}

// WatchReviews streams review list snapshots for one restaurant,
// most recent first.
func (ctrl *WatchController) WatchReviews(c *gin.Context) {
	client, ok := ctrl.upgrade(c)
	if !ok {
		return
	}

	unsubscribe, err := ctrl.reviewService.WatchReviews(c.Param("id"), func(reviews []model.Review) {
		ctrl.send(client, gin.H{"data": reviews, "total": len(reviews)})
	})
	if err != nil {
		client.CloseWithError(err.Error())
		return
	}

	ctrl.run(client, unsubscribe)
}

func (ctrl *WatchController) upgrade(c *gin.Context) (*websocket.Client, bool) {
	log := middleware.GetLoggerFromContext(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn("WebSocket upgrade failed", map[string]interface{}{
			"error": err.Error(),
		})
		// Upgrade already wrote the HTTP error response
		return nil, false
	}
	return websocket.NewClient(conn), true
}

func (ctrl *WatchController) send(client *websocket.Client, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	select {
	case client.Send <- data:
	case <-client.Done:
	}
}

// run pumps snapshots until the peer disconnects, then tears the
// subscription down. Unsubscribe is idempotent, so racing with a
// concurrent close is harmless.
func (ctrl *WatchController) run(client *websocket.Client, unsubscribe func()) {
	go client.WritePump()
	client.ReadPump() // returns when the peer disconnects
	unsubscribe()
}
