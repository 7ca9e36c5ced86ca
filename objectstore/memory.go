package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/johannesboyne/gofakes3"
	"github.com/johannesboyne/gofakes3/backend/s3mem"
)

// NewMemory creates a store that keeps objects in process memory. Buckets are created on first write.
func NewMemory() ListingStore {
	return &memoryStore{backend: s3mem.New()}
}

type memoryStore struct {
	backend *s3mem.Backend
}

func (s *memoryStore) Get(ctx context.Context, bucket string, key string) (data []byte, err error) {
	obj, err := s.backend.GetObject(bucket, key, nil)
	if err != nil {
		if gofakes3.HasErrorCode(err, gofakes3.ErrNoSuchKey) || gofakes3.HasErrorCode(err, gofakes3.ErrNoSuchBucket) {
			err = fmt.Errorf("mem://%s/%s: %w", bucket, key, ErrNotFound)
			return
		}
		err = fmt.Errorf("failed to get mem://%s/%s: %w", bucket, key, err)
		return
	}
	defer obj.Contents.Close()

	data, err = io.ReadAll(obj.Contents)
	return
}

func (s *memoryStore) Put(ctx context.Context, bucket string, key string, data []byte) (err error) {
	if err = s.ensureBucket(bucket); err != nil {
		return
	}

	_, err = s.backend.PutObject(bucket, key, map[string]string{}, bytes.NewReader(data), int64(len(data)))
	if err != nil {
		err = fmt.Errorf("failed to put mem://%s/%s: %w", bucket, key, err)
	}
	return
}

func (s *memoryStore) List(ctx context.Context, bucket string, prefix string, since time.Time) (objects []ObjectInfo, err error) {
	exists, err := s.backend.BucketExists(bucket)
	if err != nil || !exists {
		return
	}

	list, err := s.backend.ListBucket(bucket, &gofakes3.Prefix{HasPrefix: prefix != "", Prefix: prefix}, gofakes3.ListBucketPage{})
	if err != nil {
		err = fmt.Errorf("failed to list mem://%s/%s: %w", bucket, prefix, err)
		return
	}

	for _, c := range list.Contents {
		if c.LastModified.Time.Before(since) {
			continue
		}
		objects = append(objects, ObjectInfo{Key: c.Key, Size: c.Size, LastModified: c.LastModified.Time})
	}

	sort.Slice(objects, func(i, j int) bool {
		return objects[i].Key < objects[j].Key
	})

	return
}

func (s *memoryStore) ensureBucket(bucket string) (err error) {
	exists, err := s.backend.BucketExists(bucket)
	if err != nil || exists {
		return
	}

	err = s.backend.CreateBucket(bucket)
	return
}
