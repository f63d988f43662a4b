package service

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/seojinhan/matjip-backend/internal/app/repository"
	"github.com/seojinhan/matjip-backend/internal/storage"
	"github.com/seojinhan/matjip-backend/internal/watch"
	"gorm.io/gorm"
)

const (
	MaxPhotoSize = 10 << 20 // 10MB
)

var allowedPhotoTypes = []string{"image/jpeg", "image/png", "image/webp"}

// PhotoService stores a restaurant photo in object storage and records
// its public URL on the restaurant. The photo reference is not an
// aggregate field; it is written outside the review transaction.
type PhotoService struct {
	store          *storage.S3Storage
	restaurantRepo repository.RestaurantRepository
	broker         *watch.Broker
}

func NewPhotoService(store *storage.S3Storage, restaurantRepo repository.RestaurantRepository, broker *watch.Broker) *PhotoService {
	return &PhotoService{
		store:          store,
		restaurantRepo: restaurantRepo,
		broker:         broker,
	}
}

// UploadPhoto uploads the photo bytes and updates the restaurant's
// photo reference, returning the durable public URL.
func (s *PhotoService) UploadPhoto(ctx context.Context, restaurantID, filename, contentType string, size int64, body io.Reader) (string, error) {
	if strings.TrimSpace(restaurantID) == "" {
		return "", ErrNoRestaurantID
	}
	if err := s.store.ValidateFileSize(size, MaxPhotoSize); err != nil {
		return "", err
	}
	if err := s.store.ValidateContentType(contentType, allowedPhotoTypes); err != nil {
		return "", err
	}

	url, err := s.store.UploadPhoto(ctx, restaurantID, filename, contentType, body)
	if err != nil {
		return "", err
	}

	if err := s.restaurantRepo.UpdatePhotoURL(restaurantID, url); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrRestaurantNotFound
		}
		return "", err
	}

	s.broker.Publish(ctx, watch.TopicRestaurants)
	return url, nil
}

// PresignUpload hands out a pre-signed PUT URL so large photos can
// bypass the API server. The restaurant must exist; the photo URL is
// recorded optimistically since the client uploads out of band.
func (s *PhotoService) PresignUpload(restaurantID, filename, contentType string) (*storage.PresignedURLResponse, error) {
	if strings.TrimSpace(restaurantID) == "" {
		return nil, ErrNoRestaurantID
	}
	if err := s.store.ValidateContentType(contentType, allowedPhotoTypes); err != nil {
		return nil, err
	}

	resp, err := s.store.GeneratePresignedURL(restaurantID, filename, contentType)
	if err != nil {
		return nil, err
	}

	if err := s.restaurantRepo.UpdatePhotoURL(restaurantID, resp.FileURL); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRestaurantNotFound
		}
		return nil, err
	}

	return resp, nil
}
