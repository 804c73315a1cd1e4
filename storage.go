package pubsite

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ImageStorage holds the encoded bytes of uploaded images.
type ImageStorage interface {
	Put(ctx context.Context, name string, data []byte) error
	Delete(ctx context.Context, name string) error
	Exists(ctx context.Context, name string) (bool, error)
	// URL is the public address of a stored image.
	URL(name string) string
}

// FSImageStorage keeps images in a local directory served under /media/.
type FSImageStorage struct {
	dir    string
	prefix string
}

// NewFSImageStorage stores files in dir and links them under urlPrefix.
func NewFSImageStorage(dir, urlPrefix string) *FSImageStorage {
	return &FSImageStorage{dir: dir, prefix: "/" + strings.Trim(urlPrefix, "/") + "/"}
}

// Dir is the directory images are written to.
func (s *FSImageStorage) Dir() string { return s.dir }

func (s *FSImageStorage) path(name string) string {
	return filepath.Join(s.dir, filepath.Base(name))
}

func (s *FSImageStorage) Put(_ context.Context, name string, data []byte) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create media dir: %w", err)
	}
	if err := os.WriteFile(s.path(name), data, 0o644); err != nil {
		return fmt.Errorf("write image: %w", err)
	}
	return nil
}

func (s *FSImageStorage) Delete(_ context.Context, name string) error {
	err := os.Remove(s.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (s *FSImageStorage) Exists(_ context.Context, name string) (bool, error) {
	_, err := os.Stat(s.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

func (s *FSImageStorage) URL(name string) string {
	return s.prefix + name
}

// S3ImageStorage keeps images in an S3-compatible bucket.
type S3ImageStorage struct {
	client    *s3.Client
	bucket    string
	prefix    string
	publicURL string
}

// NewS3ImageStorage builds an S3 client from cfg. Static credentials are
// used when set; otherwise the default AWS credential chain applies.
func NewS3ImageStorage(ctx context.Context, cfg S3Config) (*S3ImageStorage, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3: bucket is required")
	}
	region := cfg.Region
	if region == "" {
		region = "auto"
	}
	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3: load config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	publicURL := strings.TrimRight(cfg.PublicURL, "/")
	if publicURL == "" {
		publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, region)
	}
	return &S3ImageStorage{
		client:    client,
		bucket:    cfg.Bucket,
		prefix:    strings.Trim(cfg.Prefix, "/"),
		publicURL: publicURL,
	}, nil
}

func (s *S3ImageStorage) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

func (s *S3ImageStorage) Put(ctx context.Context, name string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(s.key(name)),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String("image/jpeg"),
		CacheControl: aws.String("public, max-age=31536000, immutable"),
	})
	if err != nil {
		return fmt.Errorf("s3: put %s: %w", name, err)
	}
	return nil
}

func (s *S3ImageStorage) Delete(ctx context.Context, name string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		return fmt.Errorf("s3: delete %s: %w", name, err)
	}
	return nil
}

func (s *S3ImageStorage) Exists(ctx context.Context, name string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("s3: head %s: %w", name, err)
	}
	return true, nil
}

func (s *S3ImageStorage) URL(name string) string {
	return s.publicURL + "/" + s.key(name)
}
