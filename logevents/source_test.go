package logevents

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"autoblock/objectstore"
	"autoblock/testutils"

	"github.com/stretchr/testify/assert"
)

func newTestReader(t *testing.T, format Format, objects objectstore.Store) *Reader {
	logger := testutils.NewTestLogger(t)
	return NewReader(logger, NewDecoder(logger, format, nil), objects, ReaderOptions{Concurrency: 2})
}

func TestParseLocation(t *testing.T) {
	assert := assert.New(t)

	s3, err1 := ParseLocation("s3://logs-bucket/AWSLogs/E123.2017-06-30-01.abcd.gz")
	local, err2 := ParseLocation("/var/log/cf.gz")
	fileURI, err3 := ParseLocation("file:///var/log/cf.gz")
	_, err4 := ParseLocation("s3://bucket-only")
	_, err5 := ParseLocation("")

	assert.Nil(err1)
	assert.Equal(Location{Bucket: "logs-bucket", Key: "AWSLogs/E123.2017-06-30-01.abcd.gz"}, s3)
	assert.Equal("s3://logs-bucket/AWSLogs/E123.2017-06-30-01.abcd.gz", s3.String())
	assert.Nil(err2)
	assert.Equal("/var/log/cf.gz", local.Path)
	assert.Nil(err3)
	assert.Equal("/var/log/cf.gz", fileURI.Path)
	assert.Error(err4)
	assert.Error(err5)
}

func TestReadBatchesFromObjectStore(t *testing.T) {
	assert := assert.New(t)

	// Arrange
	objects := objectstore.NewMemory()
	ctx := context.Background()
	assert.Nil(objects.Put(ctx, "logs", "a.gz", gzipped(t, cloudFrontLog(cloudFrontLine))))
	assert.Nil(objects.Put(ctx, "logs", "b.gz", gzipped(t, cloudFrontLog(cloudFrontLine, cloudFrontLine))))
	r := newTestReader(t, CloudFront, objects)

	// Act
	batches, err := r.ReadBatches(ctx, []string{"s3://logs/a.gz", "s3://logs/b.gz"})

	// Assert
	assert.Nil(err)
	assert.Len(batches, 2)
	assert.Equal("logs", batches[0].Scope)
	assert.Equal([]string{"s3://logs/a.gz"}, batches[0].Sources)
	assert.Len(batches[0].Events, 1)
	assert.Len(batches[1].Events, 2)
}

func TestReadBatchesSkipsOtherKeys(t *testing.T) {
	assert := assert.New(t)

	// Arrange
	objects := objectstore.NewMemory()
	ctx := context.Background()
	assert.Nil(objects.Put(ctx, "logs", "AWSLogs/x.log.gz", gzipped(t, albLine+"\n")))
	r := newTestReader(t, ALB, objects)

	// Act
	batches, err := r.ReadBatches(ctx, []string{"s3://logs/ELBAccessLogTestFile", "s3://logs/AWSLogs/x.log.gz", "s3://logs/notes.txt"})

	// Assert
	assert.Nil(err)
	assert.Len(batches, 1)
	assert.Equal("192.168.131.39", batches[0].Events[0].ClientIP())
}

func TestReadBatchesMissingObject(t *testing.T) {
	assert := assert.New(t)

	// Arrange
	r := newTestReader(t, CloudFront, objectstore.NewMemory())

	// Act
	_, err := r.ReadBatches(context.Background(), []string{"s3://logs/missing.gz"})

	// Assert
	assert.Error(err)
}

func TestReadBatchesFromLocalFile(t *testing.T) {
	assert := assert.New(t)

	// Arrange
	dir := t.TempDir()
	path := filepath.Join(dir, "cf.gz")
	assert.Nil(os.WriteFile(path, gzipped(t, cloudFrontLog(cloudFrontLine)), 0644))
	r := newTestReader(t, CloudFront, nil)

	// Act
	batches, err := r.ReadBatches(context.Background(), []string{path})

	// Assert
	assert.Nil(err)
	assert.Len(batches, 1)
	assert.Equal(DefaultLocalScope, batches[0].Scope)
	assert.Len(batches[0].Events, 1)
}

func TestReadBatchesWithoutObjectStore(t *testing.T) {
	assert := assert.New(t)

	r := newTestReader(t, CloudFront, nil)

	_, err := r.ReadBatches(context.Background(), []string{"s3://logs/a.gz"})

	assert.Error(err)
}

func TestReadWindow(t *testing.T) {
	assert := assert.New(t)

	// Arrange
	objects := objectstore.NewMemory()
	ctx := context.Background()
	early := `https 2018-07-02T22:10:00.000000Z app/lb/1 1.1.1.1:1 10.0.0.1:80 0.0 0.0 0.0 200 200 0 57 "GET https://example.com:443/ HTTP/1.1" "curl" - - arn "Root=1" "-" "-"`
	assert.Nil(objects.Put(ctx, "logs", "alb/1.log.gz", gzipped(t, albLine+"\n"+early+"\n")))
	assert.Nil(objects.Put(ctx, "logs", "alb/2.log.gz", gzipped(t, albPlainHTTPLine+"\n")))
	assert.Nil(objects.Put(ctx, "logs", "other/3.log.gz", gzipped(t, albLine+"\n")))
	r := newTestReader(t, ALB, objects)
	from := time.Date(2018, 7, 2, 22, 20, 0, 0, time.UTC)
	to := from.Add(5 * time.Minute)

	// Act
	batch, err := r.ReadWindow(ctx, "logs", "alb/", time.Time{}, to)
	windowed := FilterWindow(batch.Events, from, to)

	// Assert
	assert.Nil(err)
	assert.Equal("logs", batch.Scope)
	assert.Equal([]string{"s3://logs/alb/1.log.gz", "s3://logs/alb/2.log.gz"}, batch.Sources)
	assert.Len(batch.Events, 3)
	assert.Len(windowed, 2)
}

type getOnlyStore struct{}

func (getOnlyStore) Get(ctx context.Context, bucket string, key string) ([]byte, error) {
	return nil, objectstore.ErrNotFound
}

func (getOnlyStore) Put(ctx context.Context, bucket string, key string, data []byte) error {
	return nil
}

func TestReadWindowNeedsListing(t *testing.T) {
	assert := assert.New(t)

	r := newTestReader(t, ALB, getOnlyStore{})

	_, err := r.ReadWindow(context.Background(), "logs", "", time.Time{}, time.Now())

	assert.Error(err)
}
