package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/seojinhan/matjip-backend/internal/app/service"
	apperrors "github.com/seojinhan/matjip-backend/internal/errors"
	"github.com/seojinhan/matjip-backend/internal/middleware"
)

type UploadController struct {
	photoService *service.PhotoService
}

func NewUploadController(photoService *service.PhotoService) *UploadController {
	return &UploadController{
		photoService: photoService,
	}
}

// UploadPhoto accepts a multipart photo, stores it in object storage
// and records the public URL on the restaurant.
func (ctrl *UploadController) UploadPhoto(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	restaurantID := c.Param("id")

	fileHeader, err := c.FormFile("photo")
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationRequired, "photo file is required")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		apperrors.BadRequest(c, apperrors.UploadFailed, "failed to read uploaded file")
		return
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	url, err := ctrl.photoService.UploadPhoto(
		c.Request.Context(),
		restaurantID,
		fileHeader.Filename,
		contentType,
		fileHeader.Size,
		file,
	)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoRestaurantID):
			apperrors.BadRequest(c, apperrors.ValidationInvalidID, err.Error())
		case errors.Is(err, service.ErrRestaurantNotFound):
			apperrors.NotFound(c, apperrors.RestaurantNotFound, "restaurant not found")
		default:
			log.Error("Photo upload failed", err, map[string]interface{}{
				"restaurant_id": restaurantID,
				"filename":      fileHeader.Filename,
			})
			apperrors.BadRequest(c, apperrors.UploadFailed, err.Error())
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"photo_url": url,
	})
}

type presignRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
}

// PresignPhotoUpload returns a pre-signed PUT URL for a direct-to-S3
// photo upload.
func (ctrl *UploadController) PresignPhotoUpload(c *gin.Context) {
	restaurantID := c.Param("id")

	var req presignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "filename and content_type are required")
		return
	}

	resp, err := ctrl.photoService.PresignUpload(restaurantID, req.Filename, req.ContentType)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoRestaurantID):
			apperrors.BadRequest(c, apperrors.ValidationInvalidID, err.Error())
		case errors.Is(err, service.ErrRestaurantNotFound):
			apperrors.NotFound(c, apperrors.RestaurantNotFound, "restaurant not found")
		default:
			apperrors.BadRequest(c, apperrors.UploadFailed, err.Error())
		}
		return
	}

	c.JSON(http.StatusOK, resp)
}
