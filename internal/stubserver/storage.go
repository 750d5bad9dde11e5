package stubserver

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// UploadStore issues the pre-signed upload URLs handed to clients.
type UploadStore interface {
	SignedURL(ctx context.Context, fileName, contentType string) (signedURL, publicURL string, err error)
}

// ObjectStoreConfig targets an S3-compatible service for uploads.
type ObjectStoreConfig struct {
	Bucket        string
	Region        string
	Endpoint      string
	PublicBaseURL string
}

// localUploadStore signs URLs pointing back at the stub server itself, which
// accepts the PUT and holds the bytes in memory. Used when no bucket is
// configured.
type localUploadStore struct {
	baseURL string

	mu      sync.Mutex
	objects map[string][]byte
}

func newLocalUploadStore(baseURL string) *localUploadStore {
	return &localUploadStore{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		objects: make(map[string][]byte),
	}
}

// SignedURL implements UploadStore. The "signature" is the object key itself;
// the stub does not emulate credential checks.
func (l *localUploadStore) SignedURL(_ context.Context, fileName, _ string) (string, string, error) {
	key := fmt.Sprintf("%s-%s", uuid.NewString(), path.Base(fileName))
	target := fmt.Sprintf("%s/objects/%s", l.baseURL, key)
	return target, target, nil
}

func (l *localUploadStore) put(key string, data []byte) {
	l.mu.Lock()
	l.objects[key] = data
	l.mu.Unlock()
}

func (l *localUploadStore) get(key string) ([]byte, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	data, ok := l.objects[key]
	return data, ok
}

// S3UploadStore presigns uploads against a real S3-compatible bucket and can
// also push objects directly.
type S3UploadStore struct {
	presign  *s3.PresignClient
	uploader *manager.Uploader
	bucket   string
	baseURL  string
}

// NewS3UploadStore configures the presigner and uploader targeting the
// provided object store.
func NewS3UploadStore(ctx context.Context, cfg ObjectStoreConfig) (*S3UploadStore, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("s3 uploads: bucket is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}

	if strings.TrimSpace(cfg.Endpoint) != "" {
		resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, _ ...interface{}) (aws.Endpoint, error) {
			if service == s3.ServiceID {
				return aws.Endpoint{
					URL:           cfg.Endpoint,
					SigningRegion: cfg.Region,
				}, nil
			}
			return aws.Endpoint{}, &aws.EndpointNotFoundError{}
		})
		loadOpts = append(loadOpts, awsconfig.WithEndpointResolverWithOptions(resolver))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})

	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = 5 * 1024 * 1024
		u.LeavePartsOnError = false
	})

	return &S3UploadStore{
		presign:  s3.NewPresignClient(client),
		uploader: uploader,
		bucket:   cfg.Bucket,
		baseURL:  strings.TrimSuffix(cfg.PublicBaseURL, "/"),
	}, nil
}

// SignedURL implements UploadStore with a 15-minute presigned PUT.
func (s *S3UploadStore) SignedURL(ctx context.Context, fileName, contentType string) (string, string, error) {
	key := fmt.Sprintf("uploads/%s-%s", uuid.NewString(), path.Base(fileName))

	presigned, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return "", "", fmt.Errorf("presign %s: %w", key, err)
	}

	publicURL := key
	if s.baseURL != "" {
		publicURL = fmt.Sprintf("%s/%s", s.baseURL, key)
	}
	return presigned.URL, publicURL, nil
}

// Save pushes content straight into the bucket, bypassing the presign flow.
// Used for server-generated artifacts.
func (s *S3UploadStore) Save(ctx context.Context, key string, data []byte) (string, error) {
	key = strings.TrimLeft(key, "/")
	if key == "" {
		return "", fmt.Errorf("s3 uploads: empty key")
	}

	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return "", fmt.Errorf("s3 upload %s: %w", key, err)
	}

	if s.baseURL == "" {
		return key, nil
	}
	return fmt.Sprintf("%s/%s", s.baseURL, key), nil
}
