package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	"github.com/jwalitptl/clinic-api/internal/config"
	"github.com/jwalitptl/clinic-api/pkg/circuitbreaker"
	"github.com/jwalitptl/clinic-api/pkg/logger"
)

var ErrNotConfigured = errors.New("image storage is not configured")

// File is one image taken from a multipart form.
type File struct {
	Name string
	Body io.Reader
}

// ImageStore uploads images and returns their public https URL.
type ImageStore interface {
	Upload(ctx context.Context, name string, r io.Reader) (string, error)
}

type cloudinaryStore struct {
	cld    *cloudinary.Cloudinary
	folder string
	cb     *circuitbreaker.CircuitBreaker
}

func NewCloudinaryStore(cfg config.ImagesConfig, log *logger.Logger) (ImageStore, error) {
	if cfg.CloudName == "" {
		return disabledStore{}, nil
	}
	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to configure cloudinary: %w", err)
	}
	return &cloudinaryStore{
		cld:    cld,
		folder: cfg.Folder,
		cb:     circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultSettings("cloudinary"), log),
	}, nil
}

func (s *cloudinaryStore) Upload(ctx context.Context, name string, r io.Reader) (string, error) {
	var url string
	err := s.cb.Execute(func() error {
		res, err := s.cld.Upload.Upload(ctx, r, uploader.UploadParams{
			Folder:       s.folder,
			ResourceType: "image",
		})
		if err != nil {
			return err
		}
		if res.Error.Message != "" {
			return errors.New(res.Error.Message)
		}
		url = res.SecureURL
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", name, err)
	}
	return url, nil
}

type disabledStore struct{}

func (disabledStore) Upload(context.Context, string, io.Reader) (string, error) {
	return "", ErrNotConfigured
}
