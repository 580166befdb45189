package assets

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/br-silvano/moveit-next/internal/challenge"
)

const (
	defaultSignedURLTTL = time.Hour
	maxCatalogBytes     = 1 << 20 // 1MB
)

// Service reads the challenge catalog from Cloud Storage and signs URLs for sound assets.
type Service struct {
	client       *storage.Client
	bucketName   string
	signedURLTTL time.Duration

	// Signing key for SignedURL. When unset the client's credentials sign.
	googleAccessID string
	privateKey     []byte
}

// NewService creates a Cloud Storage backed asset service. endpoint is optional and
// points the client at an emulator or a private endpoint.
func NewService(ctx context.Context, bucketName, endpoint string) (*Service, error) {
	if strings.TrimSpace(bucketName) == "" {
		return nil, fmt.Errorf("assets bucket is required")
	}

	var opts []option.ClientOption
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint), option.WithoutAuthentication())
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &Service{
		client:       client,
		bucketName:   bucketName,
		signedURLTTL: defaultSignedURLTTL,
	}, nil
}

// UseSigningKey signs URLs with a service account key instead of the client credentials.
func (s *Service) UseSigningKey(googleAccessID string, privateKey []byte) {
	s.googleAccessID = googleAccessID
	s.privateKey = privateKey
}

// LoadCatalog downloads and validates a JSON catalog object.
func (s *Service) LoadCatalog(ctx context.Context, objectPath string) (*challenge.Catalog, error) {
	data, err := s.readObject(ctx, objectPath)
	if err != nil {
		return nil, err
	}
	return challenge.ParseCatalog(data)
}

// SignedURL returns a time-limited GET URL for an asset path such as "/notification.mp3".
func (s *Service) SignedURL(_ context.Context, asset string) (string, error) {
	opts := &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  "GET",
		Expires: time.Now().Add(s.signedURLTTL),
	}
	if s.googleAccessID != "" && len(s.privateKey) > 0 {
		opts.GoogleAccessID = s.googleAccessID
		opts.PrivateKey = s.privateKey
	}

	url, err := s.client.Bucket(s.bucketName).SignedURL(objectPath(asset), opts)
	if err != nil {
		return "", fmt.Errorf("failed to generate signed URL: %w", err)
	}
	return url, nil
}

func (s *Service) readObject(ctx context.Context, path string) ([]byte, error) {
	reader, err := s.client.Bucket(s.bucketName).Object(objectPath(path)).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open object %s: %w", path, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(io.LimitReader(reader, maxCatalogBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", path, err)
	}
	return data, nil
}

// Ping checks that the bucket is reachable with the current credentials.
func (s *Service) Ping(ctx context.Context) error {
	if _, err := s.client.Bucket(s.bucketName).Attrs(ctx); err != nil {
		return fmt.Errorf("bucket %s: %w", s.bucketName, err)
	}
	return nil
}

// Close closes the storage client.
func (s *Service) Close() error {
	return s.client.Close()
}

// objectPath turns a public asset path into a bucket object name.
func objectPath(asset string) string {
	return strings.TrimLeft(strings.TrimSpace(asset), "/")
}
