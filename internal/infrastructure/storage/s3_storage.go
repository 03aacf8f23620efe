package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	infraconfig "github.com/flowstart/douyin-web/internal/infrastructure/config"
)

const (
	defaultKeyPrefix = "uploads/"
	defaultEndpoint  = "localhost:9000"
	defaultRegion    = "us-east-1"
)

// S3FileStore keeps uploads in an S3 compatible bucket (AWS S3, MinIO,
// RustFS) so the worker can fetch them on any host.
type S3FileStore struct {
	client  *s3.Client
	bucket  string
	prefix  string
	tempDir string
	log     *zap.Logger
}

type S3FileStoreOption func(*S3FileStore)

func WithLogger(log *zap.Logger) S3FileStoreOption {
	return func(s *S3FileStore) { s.log = log }
}

// WithKeyPrefix is prepended to every object key.
func WithKeyPrefix(prefix string) S3FileStoreOption {
	return func(s *S3FileStore) { s.prefix = prefix }
}

// WithTempDir is where Fetch downloads objects. Empty means os.TempDir.
func WithTempDir(dir string) S3FileStoreOption {
	return func(s *S3FileStore) { s.tempDir = dir }
}

// NewS3FileStore builds a client with static credentials. It does not
// touch the network; call EnsureBucket for that.
func NewS3FileStore(cfg *infraconfig.StorageConfig, opts ...S3FileStoreOption) (*S3FileStore, error) {
	if cfg == nil {
		return nil, errors.New("storage: configuration is required")
	}
	var missing []error
	for field, v := range map[string]string{"bucket": cfg.Bucket, "access key": cfg.AccessKey, "secret key": cfg.SecretKey} {
		if v == "" {
			missing = append(missing, fmt.Errorf("storage: %s is required", field))
		}
	}
	if err := errors.Join(missing...); err != nil {
		return nil, err
	}

	endpoint, err := endpointURL(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		return nil, err
	}
	region := cfg.Region
	if region == "" {
		region = defaultRegion
	}
	awsCfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("storage: aws config: %w", err)
	}

	s := &S3FileStore{
		client: s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.UsePathStyle = cfg.UsePathStyle
			o.BaseEndpoint = aws.String(endpoint)
		}),
		bucket: cfg.Bucket,
		prefix: defaultKeyPrefix,
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// endpointURL adds a scheme to a bare host:port.
func endpointURL(endpoint string, useSSL bool) (string, error) {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	if !strings.Contains(endpoint, "://") {
		scheme := "http://"
		if useSSL {
			scheme = "https://"
		}
		endpoint = scheme + endpoint
	}
	if _, err := url.Parse(endpoint); err != nil {
		return "", fmt.Errorf("storage: invalid endpoint: %w", err)
	}
	return endpoint, nil
}

// isMissing reports the not-found shapes S3 and its clones return.
func isMissing(err error) bool {
	var (
		notFound     *types.NotFound
		noSuchKey    *types.NoSuchKey
		noSuchBucket *types.NoSuchBucket
	)
	return errors.As(err, &notFound) || errors.As(err, &noSuchKey) || errors.As(err, &noSuchBucket)
}

// EnsureBucket creates the bucket when it does not exist yet.
func (s *S3FileStore) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	switch {
	case err == nil:
		return nil
	case !isMissing(err):
		return fmt.Errorf("storage: head bucket %s: %w", s.bucket, err)
	}

	s.log.Info("Creating upload bucket", zap.String("bucket", s.bucket))
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)})
	var owned *types.BucketAlreadyOwnedByYou
	if err != nil && !errors.As(err, &owned) {
		return fmt.Errorf("storage: create bucket %s: %w", s.bucket, err)
	}
	return nil
}

// Put stores r under name. A reader that cannot seek is buffered first,
// since signing a plain HTTP body needs to rewind it.
func (s *S3FileStore) Put(ctx context.Context, name string, r io.Reader) error {
	if name == "" {
		return errors.New("storage: object name is required")
	}
	body, ok := r.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(r)
		if err != nil {
			return fmt.Errorf("storage: read upload: %w", err)
		}
		body = bytes.NewReader(data)
	}
	if _, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
		Body:   body,
	}); err != nil {
		return fmt.Errorf("storage: put %s: %w", name, err)
	}
	return nil
}

// Fetch downloads the object to a temp file with the same extension, since
// the sheet reader is picked by extension. release deletes the file.
func (s *S3FileStore) Fetch(ctx context.Context, name string) (path string, release func(), err error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		if isMissing(err) {
			return "", nil, fmt.Errorf("%w: %s", ErrObjectNotFound, name)
		}
		return "", nil, fmt.Errorf("storage: get %s: %w", name, err)
	}
	defer out.Body.Close()

	tmp, err := os.CreateTemp(s.tempDir, "fetch-*"+filepath.Ext(name))
	if err != nil {
		return "", nil, fmt.Errorf("storage: temp file: %w", err)
	}
	release = func() { _ = os.Remove(tmp.Name()) }

	_, err = io.Copy(tmp, out.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		release()
		return "", nil, fmt.Errorf("storage: download %s: %w", name, err)
	}
	return tmp.Name(), release, nil
}

func (s *S3FileStore) Delete(ctx context.Context, name string) error {
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	}); err != nil {
		return fmt.Errorf("storage: delete %s: %w", name, err)
	}
	return nil
}

// Bucket names the bucket uploads go to.
func (s *S3FileStore) Bucket() string { return s.bucket }

// key flattens name to its base so callers cannot escape the prefix.
func (s *S3FileStore) key(name string) string {
	return s.prefix + filepath.Base(name)
}
