package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
)

const defaultS3Endpoint = "s3.amazonaws.com"

// S3Options configures the S3 backend.
type S3Options struct {
	// Endpoint is the host[:port] of the S3 API. Empty means AWS S3.
	Endpoint string
	Region   string

	// AccessKeyID and SecretAccessKey are optional. Without them credentials come from the
	// environment, the shared credentials file, or the instance role, in that order.
	AccessKeyID     string
	SecretAccessKey string

	Insecure bool
}

// NewS3 creates a store backed by AWS S3 or any S3 compatible service.
func NewS3(logger zerolog.Logger, opts S3Options) (store ListingStore, err error) {
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = defaultS3Endpoint
	}

	var creds *credentials.Credentials
	if opts.AccessKeyID != "" {
		creds = credentials.NewStaticV4(opts.AccessKeyID, opts.SecretAccessKey, "")
	} else {
		creds = credentials.NewChainCredentials([]credentials.Provider{
			&credentials.EnvAWS{},
			&credentials.FileAWSCredentials{},
			&credentials.IAM{Client: &http.Client{Transport: http.DefaultTransport}},
		})
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  creds,
		Secure: !opts.Insecure,
		Region: opts.Region,
	})
	if err != nil {
		err = fmt.Errorf("failed to create S3 client for %s: %w", endpoint, err)
		return
	}

	store = &s3Store{logger: logger, client: client}
	return
}

type s3Store struct {
	logger zerolog.Logger
	client *minio.Client
}

func (s *s3Store) Get(ctx context.Context, bucket string, key string) (data []byte, err error) {
	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		err = s.wrapError(err, bucket, key)
		return
	}
	defer obj.Close()

	data, err = io.ReadAll(obj)
	if err != nil {
		data = nil
		err = s.wrapError(err, bucket, key)
	}
	return
}

func (s *s3Store) Put(ctx context.Context, bucket string, key string, data []byte) (err error) {
	_, err = s.client.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{})
	if err != nil {
		err = fmt.Errorf("failed to put s3://%s/%s: %w", bucket, key, err)
		return
	}

	s.logger.Debug().Str("bucket", bucket).Str("key", key).Int("size", len(data)).Msg("Wrote object")
	return
}

func (s *s3Store) List(ctx context.Context, bucket string, prefix string, since time.Time) (objects []ObjectInfo, err error) {
	opts := minio.ListObjectsOptions{Prefix: prefix, Recursive: true}
	for info := range s.client.ListObjects(ctx, bucket, opts) {
		if info.Err != nil {
			err = fmt.Errorf("failed to list s3://%s/%s: %w", bucket, prefix, info.Err)
			return nil, err
		}

		if info.LastModified.Before(since) {
			continue
		}

		objects = append(objects, ObjectInfo{Key: info.Key, Size: info.Size, LastModified: info.LastModified})
	}

	sort.Slice(objects, func(i, j int) bool {
		return objects[i].Key < objects[j].Key
	})

	return
}

func (s *s3Store) wrapError(err error, bucket string, key string) error {
	if isNoSuchKeyError(err) {
		return fmt.Errorf("s3://%s/%s: %w", bucket, key, ErrNotFound)
	}
	return fmt.Errorf("failed to get s3://%s/%s: %w", bucket, key, err)
}

func isNoSuchKeyError(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}
