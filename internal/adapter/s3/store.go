// Package s3 exposes an S3 bucket holding a Zarr hierarchy as an object
// store for the reader. The AORC archive is a public bucket, so requests go
// out unsigned; a custom endpoint covers S3-compatible services and test
// servers.
package s3

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hydroclim/aorc-extract/internal/observability"
)

// Store reads objects below one bucket prefix. It satisfies the zarr store
// contract: keys are slash-separated and relative to the dataset root, and a
// missing object reports fs.ErrNotExist.
type Store struct {
	client  *minio.Client
	bucket  string
	prefix  string
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewStore builds an anonymous S3 client for the bucket and prefix named by
// an s3:// URI. An empty endpoint means AWS; an http:// endpoint disables
// TLS, which test servers rely on.
func NewStore(uri, endpoint, region string, metrics *observability.Metrics, logger *slog.Logger) (*Store, error) {
	bucket, prefix, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}

	secure := true
	switch {
	case endpoint == "":
		endpoint = "s3.amazonaws.com"
	case strings.HasPrefix(endpoint, "http://"):
		endpoint = strings.TrimPrefix(endpoint, "http://")
		secure = false
	case strings.HasPrefix(endpoint, "https://"):
		endpoint = strings.TrimPrefix(endpoint, "https://")
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4("", "", ""),
		Secure: secure,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("s3 client: %w", err)
	}

	return &Store{
		client:  client,
		bucket:  bucket,
		prefix:  prefix,
		metrics: metrics,
		logger:  logger,
	}, nil
}

// ParseURI splits an s3:// URI into bucket and key prefix.
func ParseURI(uri string) (bucket, prefix string, err error) {
	rest, ok := strings.CutPrefix(uri, "s3://")
	if !ok {
		return "", "", fmt.Errorf("storage URI %q is not an s3:// URI", uri)
	}
	bucket, prefix, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("storage URI %q has no bucket", uri)
	}
	return bucket, strings.Trim(prefix, "/"), nil
}

// Bucket returns the bucket name the store reads from.
func (s *Store) Bucket() string {
	return s.bucket
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	obj, err := s.client.GetObject(ctx, s.bucket, s.objectKey(key), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("object %q: %w", key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			s.metrics.ObjectsMissing.Inc()
			return nil, fmt.Errorf("object %q: %w", key, fs.ErrNotExist)
		}
		return nil, fmt.Errorf("object %q: %w", key, err)
	}

	s.metrics.ObjectsFetched.Inc()
	s.metrics.BytesFetched.Add(float64(len(data)))
	s.metrics.FetchDuration.Observe(time.Since(start).Seconds())
	s.logger.Debug("fetched object", "key", key, "bytes", len(data))
	return data, nil
}

func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	strip := ""
	if s.prefix != "" {
		strip = s.prefix + "/"
	}

	var keys []string
	opts := minio.ListObjectsOptions{Prefix: s.objectKey(prefix), Recursive: true}
	for obj := range s.client.ListObjects(ctx, s.bucket, opts) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list %q: %w", prefix, obj.Err)
		}
		keys = append(keys, strings.TrimPrefix(obj.Key, strip))
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *Store) objectKey(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + "/" + key
}
