package cloudinary

import (
	"context"
	"fmt"
	"io"

	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/cloudinary/cloudinary-go/v2/config"
)

// Resource types as Cloudinary names them. Audio is stored under "video".
const (
	ResourceImage = "image"
	ResourceVideo = "video"
)

// Optimized delivery for posters, covers and artwork.
const imageEager = "q_auto,f_auto,w_1200,c_limit"

var eagerAsyncFalse = false

type UploadResult struct {
	URL      string
	PublicID string
}

// Client wraps Cloudinary upload and destroy.
type Client interface {
	Upload(ctx context.Context, file io.Reader, resourceType, folder, publicID string) (*UploadResult, error)
	Destroy(ctx context.Context, resourceType, publicID string) error
}

type clientImpl struct {
	cloudName string
	uploader  *uploader.API
}

func (c *clientImpl) Upload(ctx context.Context, file io.Reader, resourceType, folder, publicID string) (*UploadResult, error) {
	params := uploader.UploadParams{
		Folder:       folder,
		PublicID:     publicID,
		ResourceType: resourceType,
	}
	if resourceType == ResourceImage {
		params.Eager = imageEager
		params.EagerAsync = &eagerAsyncFalse
	}
	result, err := c.uploader.Upload(ctx, file, params)
	if err != nil {
		return nil, err
	}
	if result.Error.Message != "" {
		return nil, fmt.Errorf("cloudinary: %s", result.Error.Message)
	}
	return &UploadResult{URL: result.SecureURL, PublicID: result.PublicID}, nil
}

func (c *clientImpl) Destroy(ctx context.Context, resourceType, publicID string) error {
	result, err := c.uploader.Destroy(ctx, uploader.DestroyParams{
		PublicID:     publicID,
		ResourceType: resourceType,
	})
	if err != nil {
		return err
	}
	if result.Error.Message != "" {
		return fmt.Errorf("cloudinary: %s", result.Error.Message)
	}
	return nil
}

// NewClientFromParams builds a Client from Cloudinary cloud name, API key, and secret.
func NewClientFromParams(cloudName, apiKey, apiSecret string) (Client, error) {
	cfg, err := config.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, err
	}
	up, err := uploader.NewWithConfiguration(cfg)
	if err != nil {
		return nil, err
	}
	return &clientImpl{
		cloudName: cloudName,
		uploader:  up,
	}, nil
}
