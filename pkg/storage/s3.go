package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsCfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	"github.com/noah-isme/sipodi-api/pkg/config"
)

// DefaultPresignExpiry is used when the caller passes a non-positive expiry.
const DefaultPresignExpiry = time.Hour

// ErrObjectNotFound is returned by Head when the key does not exist in the bucket.
var ErrObjectNotFound = errors.New("storage: object not found")

// ObjectInfo is the metadata the bucket reports for a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// PresignedPut describes a direct-to-bucket upload the client performs itself.
type PresignedPut struct {
	URL       string
	Method    string
	Headers   map[string]string
	ExpiresAt time.Time
}

// S3Store talks to an S3-compatible bucket (MinIO in development).
type S3Store struct {
	client        *s3.Client
	presignClient *s3.PresignClient
	bucket        string
	publicURL     string
	logger        *zap.Logger
}

// NewS3Store builds the bucket client. Presigned URLs are signed against cfg.PublicURL
// so browsers can reach them even when cfg.Endpoint is an internal address.
func NewS3Store(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage bucket is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	sdkConfig, err := awsCfg.LoadDefaultConfig(ctx,
		awsCfg.WithRegion(cfg.Region),
		awsCfg.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load s3 config: %w", err)
	}

	client := s3.NewFromConfig(sdkConfig, withEndpoint(cfg.Endpoint))
	publicURL := cfg.PublicURL
	if publicURL == "" {
		publicURL = cfg.Endpoint
	}
	presignClient := s3.NewPresignClient(s3.NewFromConfig(sdkConfig, withEndpoint(publicURL)))

	logger.Info("s3 storage initialised", zap.String("endpoint", cfg.Endpoint), zap.String("bucket", cfg.Bucket))

	return &S3Store{
		client:        client,
		presignClient: presignClient,
		bucket:        cfg.Bucket,
		publicURL:     strings.TrimRight(publicURL, "/"),
		logger:        logger,
	}, nil
}

func withEndpoint(endpoint string) func(*s3.Options) {
	return func(o *s3.Options) {
		o.UsePathStyle = true
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	}
}

// PresignPut returns a PUT URL bound to key and contentType. The uploader must send the same Content-Type.
func (s *S3Store) PresignPut(ctx context.Context, key, contentType string, expires time.Duration) (*PresignedPut, error) {
	if expires <= 0 {
		expires = DefaultPresignExpiry
	}
	req, err := s.presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return nil, fmt.Errorf("presign put %s: %w", key, err)
	}

	headers := map[string]string{"Content-Type": contentType}
	for name, values := range req.SignedHeader {
		if strings.EqualFold(name, "host") || len(values) == 0 {
			continue
		}
		headers[name] = values[0]
	}

	return &PresignedPut{
		URL:       req.URL,
		Method:    req.Method,
		Headers:   headers,
		ExpiresAt: time.Now().Add(expires).UTC(),
	}, nil
}

// Head fetches object metadata, returning ErrObjectNotFound for missing keys.
func (s *S3Store) Head(ctx context.Context, key string) (*ObjectInfo, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("head object %s: %w", key, err)
	}

	info := &ObjectInfo{Key: key, Size: aws.ToInt64(out.ContentLength), ContentType: aws.ToString(out.ContentType)}
	if out.LastModified != nil {
		info.LastModified = out.LastModified.UTC()
	}
	return info, nil
}

// Delete removes key from the bucket. Missing keys are not an error.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	s.logger.Debug("object deleted", zap.String("key", key))
	return nil
}

// ObjectURL is the stable public URL stored on profiles and talents.
func (s *S3Store) ObjectURL(key string) string {
	return ObjectURL(s.publicURL, s.bucket, key)
}

// ObjectURL joins a path-style public URL for key.
func ObjectURL(publicURL, bucket, key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return fmt.Sprintf("%s/%s/%s", strings.TrimRight(publicURL, "/"), bucket, strings.Join(segments, "/"))
}

// KeyFromURL reverses ObjectURL for URLs under this store's public bucket path.
func (s *S3Store) KeyFromURL(rawURL string) (string, bool) {
	return KeyFromURL(s.publicURL, s.bucket, rawURL)
}

// KeyFromURL extracts the object key from a URL built by ObjectURL.
func KeyFromURL(publicURL, bucket, rawURL string) (string, bool) {
	prefix := strings.TrimRight(publicURL, "/") + "/" + bucket + "/"
	if !strings.HasPrefix(rawURL, prefix) {
		return "", false
	}
	segments := strings.Split(strings.TrimPrefix(rawURL, prefix), "/")
	for i, seg := range segments {
		unescaped, err := url.PathUnescape(seg)
		if err != nil || unescaped == "" {
			return "", false
		}
		segments[i] = unescaped
	}
	return strings.Join(segments, "/"), true
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}
